package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Runtime bundles the collaborators an engine requires. Resources and
// Reviewer are mandatory; Notifier, Auditor, and Coordinator degrade to
// no-ops when nil so the engine stays usable in partial assemblies.
type Runtime struct {
	Resources   Repository
	Reviewer    Reviewer
	Notifier    Notifier
	Auditor     Auditor
	Coordinator Coordinator
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Engine executes allocation workflow runs for a single domain profile.
// Each Execute call owns a private Run; engines are safe for concurrent
// use and multiple runs may execute in parallel.
type Engine struct {
	profile Profile
	cfg     Config
	rt      Runtime
}

// New creates an Engine for the given profile. The config must already be
// finalized.
func New(profile Profile, cfg Config, rt Runtime) (*Engine, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if !profile.Domain().Valid() {
		return nil, fmt.Errorf("invalid profile domain: %s", profile.Domain())
	}
	if rt.Resources == nil {
		return nil, fmt.Errorf("resource repository is required")
	}
	if rt.Reviewer == nil {
		return nil, fmt.Errorf("reviewer is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if rt.Logger == nil {
		rt.Logger = slog.Default()
	}
	if rt.Clock == nil {
		rt.Clock = time.Now
	}

	return &Engine{
		profile: profile,
		cfg:     cfg,
		rt:      rt,
	}, nil
}

// execution holds the run-scoped working set threaded through the states.
type execution struct {
	req         AllocationRequest
	reqs        []Requirement
	byID        map[uuid.UUID]Candidate
	perReq      map[string][]Candidate
	evicted     map[uuid.UUID]struct{}
	scored      []ScoredCandidate
	utilization []Utilization
	plan        Plan

	relaxed       bool
	regenerated   bool
	commitRetried bool
	committed     []Assignment
}

// Execute runs the allocation workflow for one request to a terminal state.
// The returned Run always carries the final state, the last valid plan
// snapshot, and a failure reason when the run failed. Cancellation is
// honored at every state boundary: a cancelled context fails the run with
// reason "cancelled" and rolls back any partial commits.
func (e *Engine) Execute(ctx context.Context, req AllocationRequest) (*Run, error) {
	if req.Domain != e.profile.Domain() {
		return nil, fmt.Errorf("request domain %s does not match engine domain %s", req.Domain, e.profile.Domain())
	}

	run := &Run{
		ID:        uuid.New(),
		RequestID: req.ID,
		Domain:    req.Domain,
		State:     StateAnalyzeRequirements,
		Status:    RunActive,
		StartedAt: e.rt.Clock(),
	}
	exec := &execution{req: req, byID: make(map[uuid.UUID]Candidate)}

	logger := e.rt.Logger.With(
		"run_id", run.ID,
		"request_id", req.ID,
		"domain", req.Domain,
		"urgency", req.Urgency,
	)
	logger.InfoContext(ctx, "workflow run started", "subject", req.Subject)

	for !run.State.Terminal() {
		if err := ctx.Err(); err != nil {
			e.fail(run, exec, logger, "cancelled")
			break
		}
		run.State = e.step(ctx, run, exec, logger)
	}

	if run.State == StateCompleted {
		run.Status = RunCompleted
	}
	run.CompletedAt = e.rt.Clock()
	run.Plan = &exec.plan

	e.record(run, logger)

	logger.InfoContext(
		ctx, "workflow run finished",
		"state", run.State,
		"status", run.Status,
		"iterations", run.Iterations,
		"assignments", len(exec.plan.Assignments),
		"gaps", len(exec.plan.Gaps),
	)
	return run, nil
}

func (e *Engine) step(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	switch run.State {
	case StateAnalyzeRequirements:
		return e.analyzeRequirements(ctx, run, exec, logger)
	case StateAssessAvailability:
		return e.assessAvailability(ctx, run, exec, logger)
	case StateEmergencyFastPath:
		return e.emergencyFastPath(run, exec, logger)
	case StateAnalyzeCapacity:
		return e.analyzeCapacity(ctx, run, exec, logger)
	case StateGeneratePlan:
		return e.generatePlan(ctx, run, exec, logger)
	case StateQualityGate:
		return e.qualityGate(run, exec, logger)
	case StateValidate:
		return e.validate(run, exec, logger)
	case StateOptimize:
		return e.optimize(run, exec, logger)
	case StateHumanReview:
		return e.humanReview(ctx, run, exec, logger)
	case StateImplementation:
		return e.implement(ctx, run, exec, logger)
	case StateNotify:
		return e.notify(ctx, run, exec, logger)
	default:
		e.fail(run, exec, logger, fmt.Sprintf("unknown state %s", run.State))
		return StateFailed
	}
}

// fail transitions the run to Failed, rolling back any partial commits so
// a failed run never leaves assignments behind.
func (e *Engine) fail(run *Run, exec *execution, logger *slog.Logger, reason string) {
	e.rollback(exec, logger)

	run.Status = RunFailed
	run.FailureReason = reason
	run.logf(e.rt.Clock(), run.State, "run failed: "+reason)
	run.State = StateFailed

	logger.Error("workflow run failed", "reason", reason, "state", run.State)
}

func (e *Engine) rollback(exec *execution, logger *slog.Logger) {
	if len(exec.committed) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.rt.Resources.Release(ctx, e.profile.Domain(), exec.committed); err != nil {
		logger.Error("assignment rollback failed", "count", len(exec.committed), "error", err)
		return
	}
	exec.committed = nil
}

func (e *Engine) record(run *Run, logger *slog.Logger) {
	if e.rt.Auditor == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.rt.Auditor.RecordRun(ctx, *run); err != nil {
		logger.Error("run audit record failed", "error", err)
	}
}

// activeRules returns the profile ruleset, restricted to critical rules
// when the run operates under relaxed constraints after a review timeout.
func (e *Engine) activeRules(exec *execution) []Rule {
	rules := e.profile.Rules()
	if !exec.relaxed {
		return rules
	}

	critical := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Severity == SeverityCritical {
			critical = append(critical, r)
		}
	}
	return critical
}
