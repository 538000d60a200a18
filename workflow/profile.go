package workflow

import (
	"context"

	"github.com/google/uuid"
)

// Profile supplies the domain-specific pieces of the allocation workflow:
// requirement analysis, candidate scoring, constraint rules, and optimizer
// mutation strategies. The bed, staff, and supply agents are three Profile
// implementations driving the same engine.
type Profile interface {
	// Domain returns the allocation domain this profile serves.
	Domain() Domain

	// AnalyzeRequirements derives the typed requirement set from a request.
	// Called once per run, and again only if the optimizer routes back to
	// plan generation.
	AnalyzeRequirements(ctx context.Context, req AllocationRequest) ([]Requirement, error)

	// Score computes the suitability of one candidate for one requirement.
	// Implementations must be pure and deterministic for identical inputs.
	Score(req Requirement, c Candidate) ScoredCandidate

	// Rules returns the constraint ruleset evaluated on every validation
	// pass. At least one rule must be always-critical (double-booking is
	// enforced by the engine regardless).
	Rules() []Rule

	// Mutators returns the optimization strategies tried, in order, during
	// each optimizer pass.
	Mutators() []Mutator

	// Coordination returns cross-agent follow-ups to emit once a plan is
	// implemented, e.g. a bed placement requesting a staff coverage check.
	Coordination(req AllocationRequest, plan Plan) []CoordinationRequest
}

// Rule is one constraint evaluated against a full plan. Check receives the
// plan, the requirements it was built from, and the candidate snapshots it
// references, and returns every violation it detects. Checks must not
// mutate their inputs.
type Rule struct {
	ID       string
	Severity Severity
	Check    func(plan Plan, reqs []Requirement, candidates map[uuid.UUID]Candidate) []Violation
}

// Mutator is one optimization strategy. Apply proposes a mutated plan;
// changed is false when the strategy found nothing to improve. The
// optimizer only accepts proposals that do not increase the critical
// violation count.
type Mutator struct {
	Name  string
	Apply func(plan Plan, violations []Violation, scored []ScoredCandidate) (next Plan, changed bool)
}

// CandidateFilter narrows a repository candidate fetch.
type CandidateFilter struct {
	Kind         string
	Capabilities []string
	Location     string
}

// Repository is the narrow read/commit surface the engine requires from
// the resource store. Implementations must provide at-most-one-writer
// semantics at commit time: CommitAssignment re-checks the resource
// version recorded in the expected snapshot and returns ErrCommitConflict
// if the resource changed since assessment.
type Repository interface {
	FetchCandidates(ctx context.Context, domain Domain, filter CandidateFilter) ([]Candidate, error)
	FetchUtilization(ctx context.Context, domain Domain, pool string) (Utilization, error)
	CommitAssignment(ctx context.Context, domain Domain, a Assignment, expected Candidate) error
	Release(ctx context.Context, domain Domain, assignments []Assignment) error
}

// Notifier delivers stakeholder notifications. Fire-and-forget from the
// engine's perspective: delivery errors are logged, never fatal.
type Notifier interface {
	Notify(ctx context.Context, recipient, message string, priority Urgency) error
}

// ReviewDecision is the outcome of a human review.
type ReviewDecision struct {
	Approved bool   `json:"approved"`
	Reviewer string `json:"reviewer,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Reviewer is the human-review collaborator. RequestReview may block up to
// the context deadline; the engine treats a deadline expiry as ErrReviewTimeout.
type Reviewer interface {
	RequestReview(ctx context.Context, plan Plan, violations []Violation) (ReviewDecision, error)
}

// Auditor persists the run record at its terminal state.
type Auditor interface {
	RecordRun(ctx context.Context, run Run) error
}

// Coordinator accepts cross-agent coordination requests. Submit must never
// block the issuing engine; the ack confirms receipt, not completion.
type Coordinator interface {
	Submit(ctx context.Context, req CoordinationRequest) (CoordinationAck, error)
}
