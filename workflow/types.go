package workflow

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Domain identifies which resource pool an allocation operates on.
// Each domain is a configuration of the same engine, not a separate engine.
type Domain string

// Allocation domains.
const (
	DomainBed    Domain = "bed"
	DomainStaff  Domain = "staff"
	DomainSupply Domain = "supply"
)

// Valid reports whether d is a known allocation domain.
func (d Domain) Valid() bool {
	switch d {
	case DomainBed, DomainStaff, DomainSupply:
		return true
	}
	return false
}

// Urgency classifies how quickly an allocation request must be satisfied.
// Emergency requests bypass scoring and optimization entirely.
type Urgency string

// Urgency levels.
const (
	UrgencyEmergency Urgency = "emergency"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyRoutine   Urgency = "routine"
)

// AllocationRequest is the immutable input to a single workflow run.
// Attributes carry target entity descriptors (patient acuity, shift window,
// item category) and Preferences carry soft placement hints. Exactly one
// engine run consumes a request.
type AllocationRequest struct {
	ID          uuid.UUID         `json:"id"`
	Domain      Domain            `json:"domain"`
	Urgency     Urgency           `json:"urgency"`
	Subject     string            `json:"subject"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// Requirement is one typed line item derived from an AllocationRequest,
// e.g. "1 ICU-capable bed with isolation" or "1 RN with ACLS for shift N".
type Requirement struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Quantity     int      `json:"quantity"`
	Capabilities []string `json:"capabilities,omitempty"`
	Location     string   `json:"location,omitempty"`
	Critical     bool     `json:"critical"`
}

// Candidate is a point-in-time snapshot of one allocatable resource read
// from the repository at assessment time. It is never mutated in place;
// the commit step re-checks Version against the repository of record.
type Candidate struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	Capabilities []string  `json:"capabilities,omitempty"`
	Location     string    `json:"location,omitempty"`
	Capacity     int       `json:"capacity"`
	Load         float64   `json:"load"`
	Version      int64     `json:"version"`
}

// Available reports whether the snapshot showed the resource as assignable.
func (c Candidate) Available() bool {
	return c.Status == StatusAvailable
}

// HasCapability reports whether the candidate advertises the given capability.
func (c Candidate) HasCapability(cap string) bool {
	return slices.Contains(c.Capabilities, cap)
}

// Candidate status values as stored by the resource repository.
const (
	StatusAvailable   = "available"
	StatusAssigned    = "assigned"
	StatusUnavailable = "unavailable"
)

// Criterion names one dimension of a candidate score breakdown.
type Criterion string

// Scoring criteria shared by all domains. Profiles weight them differently.
const (
	CriterionCapability Criterion = "capability"
	CriterionProximity  Criterion = "proximity"
	CriterionCompliance Criterion = "compliance"
	CriterionWorkload   Criterion = "workload"
)

// ScoredCandidate pairs a candidate with a requirement and the suitability
// score computed for the pair. Scores are run-scoped and ephemeral.
type ScoredCandidate struct {
	Candidate     Candidate             `json:"candidate"`
	RequirementID string                `json:"requirement_id"`
	Score         float64               `json:"score"`
	Breakdown     map[Criterion]float64 `json:"breakdown,omitempty"`
}

// Severity classifies a constraint violation.
type Severity string

// Violation severities. Critical violations block implementation and route
// the run to human review; warnings feed the optimizer.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Violation records one breach of an allocation rule. Violation lists are
// always recomputed from scratch so plan state and violation state cannot
// diverge.
type Violation struct {
	RuleID         string   `json:"rule_id"`
	Severity       Severity `json:"severity"`
	RequirementIDs []string `json:"requirement_ids,omitempty"`
	Message        string   `json:"message"`
}

// Utilization summarizes current load for one resource pool.
type Utilization struct {
	Pool     string  `json:"pool"`
	Capacity int     `json:"capacity"`
	InUse    int     `json:"in_use"`
	Load     float64 `json:"load"`
}

// CoordinationRequest asks another domain's agent to act or confirm,
// e.g. a bed placement asking the staff agent to verify coverage.
// Fire-and-acknowledge: the issuing run never blocks on its completion.
type CoordinationRequest struct {
	ID          uuid.UUID `json:"id"`
	From        Domain    `json:"from"`
	To          Domain    `json:"to"`
	RequestID   uuid.UUID `json:"request_id"`
	Action      string    `json:"action"`
	Detail      string    `json:"detail,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// AckStatus reports how the coordinator received a coordination request.
type AckStatus string

// Ack statuses. Undeliverable is non-fatal to the issuing run.
const (
	AckQueued        AckStatus = "queued"
	AckUndeliverable AckStatus = "undeliverable"
)

// CoordinationAck confirms receipt or queuing of a coordination request,
// not its completion.
type CoordinationAck struct {
	RequestID uuid.UUID `json:"request_id"`
	Status    AckStatus `json:"status"`
}
