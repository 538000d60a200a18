package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

// Bed rule identifiers.
const (
	RuleIsolationRequired = "isolation_required"
	RuleWardOverload      = "ward_overload"
)

// bedProfile places patients into beds. A request describes one patient;
// the profile derives a single bed requirement from the patient's unit and
// precaution attributes.
type bedProfile struct {
	policy Policy
}

// NewBedProfile creates the bed placement agent profile.
func NewBedProfile(policy Policy) workflow.Profile {
	return &bedProfile{policy: policy}
}

func (p *bedProfile) Domain() workflow.Domain {
	return workflow.DomainBed
}

// AnalyzeRequirements derives one bed requirement per request. The unit
// attribute becomes the bed kind; isolation and telemetry precautions
// become required capabilities that ineligible beds cannot satisfy.
func (p *bedProfile) AnalyzeRequirements(_ context.Context, req workflow.AllocationRequest) ([]workflow.Requirement, error) {
	unit := req.Attributes["unit"]
	if unit == "" {
		unit = "ward"
	}

	var caps []string
	if req.Attributes["isolation"] == "true" {
		caps = append(caps, "isolation")
	}
	if req.Attributes["telemetry"] == "true" {
		caps = append(caps, "telemetry")
	}
	if unit == "icu" {
		caps = append(caps, "icu")
	}

	return []workflow.Requirement{{
		ID:           "bed-1",
		Kind:         "bed",
		Quantity:     1,
		Capabilities: caps,
		Location:     req.Preferences["location"],
		Critical:     req.Urgency != workflow.UrgencyRoutine || unit == "icu",
	}}, nil
}

// Score rates a bed for a placement. A bed missing any required capability
// is ineligible and scores zero: an isolation patient can never land in an
// open bay regardless of how the other criteria weigh.
func (p *bedProfile) Score(req workflow.Requirement, c workflow.Candidate) workflow.ScoredCandidate {
	match := workflow.CapabilityMatch(req.Capabilities, c.Capabilities)
	breakdown := map[workflow.Criterion]float64{
		workflow.CriterionCapability: match,
		workflow.CriterionProximity:  workflow.ProximityScore(req.Location, c.Location),
		workflow.CriterionCompliance: kindMatch(req.Kind, c.Kind),
		workflow.CriterionWorkload:   workflow.WorkloadBalance(c.Load),
	}

	score := workflow.Compose(breakdown, p.policy.Weights)
	if match < 1 {
		score = 0
	}

	return workflow.ScoredCandidate{
		Candidate:     c,
		RequirementID: req.ID,
		Score:         score,
		Breakdown:     breakdown,
	}
}

func (p *bedProfile) Rules() []workflow.Rule {
	return []workflow.Rule{
		coverageGapRule("bed"),
		capabilityRule(RuleIsolationRequired, workflow.SeverityCritical),
		loadRule(RuleWardOverload, p.policy.Threshold("max_ward_load", 0.85), "unit"),
		locationDriftRule(),
	}
}

func (p *bedProfile) Mutators() []workflow.Mutator {
	return []workflow.Mutator{
		fillGapsMutator(),
		swapFlaggedMutator(),
		rebalanceMutator(p.policy.Threshold("max_ward_load", 0.85)),
	}
}

// Coordination asks the staff agent to confirm nursing coverage for the
// unit receiving the patient. Advisory: the placement stands either way.
func (p *bedProfile) Coordination(req workflow.AllocationRequest, plan workflow.Plan) []workflow.CoordinationRequest {
	if len(plan.Assignments) == 0 {
		return nil
	}

	return []workflow.CoordinationRequest{{
		ID:          uuid.New(),
		From:        workflow.DomainBed,
		To:          workflow.DomainStaff,
		RequestID:   req.ID,
		Action:      "confirm_coverage",
		Detail:      fmt.Sprintf("bed placement for %s, verify unit staffing", req.Subject),
		SubmittedAt: time.Now().UTC(),
	}}
}

// kindMatch scores 1 when the candidate is exactly the requested kind.
// Beds in a different unit class still satisfy the requirement but score
// lower on compliance.
func kindMatch(wanted, actual string) float64 {
	if wanted == "" || wanted == actual {
		return 1
	}
	return 0.5
}
