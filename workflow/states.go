package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
)

func (e *Engine) analyzeRequirements(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	reqs, err := e.profile.AnalyzeRequirements(ctx, exec.req)
	if err != nil {
		e.fail(run, exec, logger, fmt.Sprintf("%v: %v", ErrAnalysisFailed, err))
		return StateFailed
	}
	if len(reqs) == 0 {
		e.fail(run, exec, logger, fmt.Sprintf("%v: request yields no requirements", ErrAnalysisFailed))
		return StateFailed
	}

	exec.reqs = reqs
	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("derived %d requirements", len(reqs)))
	logger.Info("requirements analyzed", "count", len(reqs))

	return StateAssessAvailability
}

func (e *Engine) assessAvailability(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	exec.perReq = make(map[string][]Candidate, len(exec.reqs))

	for _, req := range exec.reqs {
		candidates, err := e.rt.Resources.FetchCandidates(ctx, e.profile.Domain(), CandidateFilter{
			Kind:         req.Kind,
			Capabilities: req.Capabilities,
			Location:     req.Location,
		})
		if err != nil {
			e.fail(run, exec, logger, fmt.Sprintf("%v: %v", ErrRepositoryUnavailable, err))
			return StateFailed
		}

		available := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if !c.Available() {
				continue
			}
			available = append(available, c)
			exec.byID[c.ID] = c
		}
		sortCandidates(available)
		exec.perReq[req.ID] = available
	}

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("assessed %d candidate pools", len(exec.perReq)))
	logger.Info("availability assessed", "pools", len(exec.perReq), "candidates", len(exec.byID))

	if exec.req.Urgency == UrgencyEmergency {
		return StateEmergencyFastPath
	}
	return StateAnalyzeCapacity
}

// emergencyFastPath assigns the first available candidate per requirement
// without scoring or optimization. Emergencies trade placement quality for
// latency; validation still happens implicitly at commit time through the
// optimistic version check.
func (e *Engine) emergencyFastPath(run *Run, exec *execution, logger *slog.Logger) State {
	used := make(map[uuid.UUID]int)
	plan := Plan{Assignments: make([]Assignment, 0, len(exec.reqs))}

	for _, req := range exec.reqs {
		assigned := false
		for _, c := range exec.perReq[req.ID] {
			capacity := max(c.Capacity, 1)
			if used[c.ID] >= capacity {
				continue
			}
			used[c.ID]++
			plan.Assignments = append(plan.Assignments, Assignment{
				RequirementID: req.ID,
				ResourceID:    c.ID,
				Score:         1,
			})
			assigned = true
			break
		}
		if !assigned {
			plan.Gaps = append(plan.Gaps, req.ID)
		}
	}

	plan.Quality = planQuality(plan.Assignments, plan.Gaps)
	exec.plan = plan

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("emergency fast path assigned %d of %d requirements", len(plan.Assignments), len(exec.reqs)))
	logger.Warn("emergency fast path taken", "assigned", len(plan.Assignments), "gaps", len(plan.Gaps))

	return StateImplementation
}

func (e *Engine) analyzeCapacity(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	pools := candidatePools(exec.byID)
	exec.utilization = exec.utilization[:0]

	for _, pool := range pools {
		util, err := e.rt.Resources.FetchUtilization(ctx, e.profile.Domain(), pool)
		if err != nil {
			e.fail(run, exec, logger, fmt.Sprintf("%v: %v", ErrRepositoryUnavailable, err))
			return StateFailed
		}
		exec.utilization = append(exec.utilization, util)
	}

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("analyzed utilization across %d pools", len(pools)))
	logger.Info("capacity analyzed", "pools", len(pools))

	return StateGeneratePlan
}

// generatePlan scores every (requirement, candidate) pair and assigns best
// matches greedily, critical requirements first. Unmatched requirements are
// recorded as coverage gaps, never dropped.
func (e *Engine) generatePlan(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	if exec.regenerated {
		// Re-generation requested by the optimizer: recompute the
		// requirement set before rebuilding the plan. Analysis errors
		// here degrade to reusing the prior requirement set.
		if reqs, err := e.profile.AnalyzeRequirements(ctx, exec.req); err == nil && len(reqs) > 0 {
			exec.reqs = reqs
		}
	}

	exec.scored = exec.scored[:0]
	for _, req := range exec.reqs {
		for _, c := range exec.perReq[req.ID] {
			exec.scored = append(exec.scored, safeScore(e.profile, req, c))
		}
	}

	used := make(map[uuid.UUID]int)
	plan := Plan{Assignments: make([]Assignment, 0, len(exec.reqs))}

	for _, req := range orderRequirements(exec.reqs) {
		best, ok := bestCandidate(exec.scored, req.ID, used, exec.byID)
		if !ok {
			plan.Gaps = append(plan.Gaps, req.ID)
			continue
		}
		used[best.Candidate.ID]++
		plan.Assignments = append(plan.Assignments, Assignment{
			RequirementID: req.ID,
			ResourceID:    best.Candidate.ID,
			Score:         best.Score,
		})
	}

	plan.Quality = planQuality(plan.Assignments, plan.Gaps)
	exec.plan = plan

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("generated plan: %d assignments, %d gaps, quality %.2f", len(plan.Assignments), len(plan.Gaps), plan.Quality))
	logger.Info("plan generated", "assignments", len(plan.Assignments), "gaps", len(plan.Gaps), "quality", plan.Quality)

	return StateQualityGate
}

func (e *Engine) qualityGate(run *Run, exec *execution, logger *slog.Logger) State {
	next := RouteQualityGate(exec.plan, e.cfg)

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("quality %.2f routed to %s", exec.plan.Quality, next))
	logger.Info("quality gate evaluated", "quality", exec.plan.Quality, "next", next)

	return next
}

func (e *Engine) validate(run *Run, exec *execution, logger *slog.Logger) State {
	exec.plan.Violations = Validate(exec.plan, e.activeRules(exec), exec.reqs, exec.byID)
	next := RouteValidation(exec.plan.Violations)

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("%d violations (%d critical), routed to %s", len(exec.plan.Violations), CountCritical(exec.plan.Violations), next))
	logger.Info(
		"plan validated",
		"violations", len(exec.plan.Violations),
		"critical", CountCritical(exec.plan.Violations),
		"relaxed", exec.relaxed,
		"next", next,
	)

	return next
}

func (e *Engine) optimize(run *Run, exec *execution, logger *slog.Logger) State {
	if run.Iterations >= e.cfg.MaxIterations {
		run.logf(e.rt.Clock(), run.State, "iteration budget exhausted")
		logger.Warn("iteration budget exhausted", "iterations", run.Iterations)
		return StateHumanReview
	}

	run.Iterations++
	next := Optimize(exec.plan, exec.scored, e.activeRules(exec), exec.reqs, exec.byID, e.profile.Mutators())
	changed := !next.Equal(exec.plan)
	if changed {
		exec.plan = next
	} else {
		exec.plan.Violations = next.Violations
	}

	// A stalled pass with coverage gaps gets one shot at re-generation
	// before surrendering to human review.
	if !changed && len(exec.plan.Gaps) > 0 && !exec.regenerated && run.Iterations < e.cfg.MaxIterations {
		exec.regenerated = true
		run.logf(e.rt.Clock(), run.State, "optimization stalled with gaps, re-generating plan")
		logger.Info("optimization stalled, re-generating plan", "gaps", len(exec.plan.Gaps))
		return StateGeneratePlan
	}

	route := RouteOptimizeExit(changed, exec.plan.Violations, run.Iterations, e.cfg.MaxIterations)

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("pass %d (changed=%t) routed to %s", run.Iterations, changed, route))
	logger.Info("optimization pass complete", "iteration", run.Iterations, "changed", changed, "next", route)

	return route
}

func (e *Engine) humanReview(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	run.Status = RunAwaitingReview
	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("review requested: %d violations, quality %.2f", len(exec.plan.Violations), exec.plan.Quality))
	logger.Info("human review requested", "violations", len(exec.plan.Violations))

	reviewCtx, cancel := context.WithTimeout(ctx, e.cfg.ReviewTimeoutDuration())
	defer cancel()

	decision, err := e.rt.Reviewer.RequestReview(reviewCtx, exec.plan, exec.plan.Violations)
	if err != nil {
		// Non-response is treated as rejection: one retry with relaxed
		// non-critical constraints, then a failed run.
		if exec.relaxed {
			e.fail(run, exec, logger, ErrReviewTimeout.Error())
			return StateFailed
		}

		exec.relaxed = true
		run.Status = RunActive
		run.logf(e.rt.Clock(), run.State, "review unanswered, retrying with relaxed constraints")
		logger.Warn("review unanswered, relaxing non-critical constraints", "error", err)
		return StateValidate
	}

	run.Status = RunActive
	if !decision.Approved {
		e.fail(run, exec, logger, fmt.Sprintf("%v: %s", ErrReviewRejected, decision.Note))
		return StateFailed
	}

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("plan approved by %s", decision.Reviewer))
	logger.Info("plan approved", "reviewer", decision.Reviewer)

	return StateImplementation
}

// implement commits assignments through the repository's optimistic
// check-and-commit. A conflicting resource triggers rollback of the
// partial commits and one re-optimization round with the stale candidate
// evicted; a second conflict fails the run.
func (e *Engine) implement(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	for _, a := range exec.plan.Assignments {
		expected, ok := exec.byID[a.ResourceID]
		if !ok {
			e.fail(run, exec, logger, fmt.Sprintf("assignment references unknown resource %s", a.ResourceID))
			return StateFailed
		}

		err := e.rt.Resources.CommitAssignment(ctx, e.profile.Domain(), a, expected)
		if err == nil {
			exec.committed = append(exec.committed, a)
			continue
		}

		if errors.Is(err, ErrCommitConflict) {
			return e.handleCommitConflict(ctx, run, exec, logger, a)
		}

		e.fail(run, exec, logger, fmt.Sprintf("%v: %v", ErrRepositoryUnavailable, err))
		return StateFailed
	}

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("committed %d assignments", len(exec.committed)))
	logger.Info("plan implemented", "assignments", len(exec.committed))

	return StateNotify
}

func (e *Engine) handleCommitConflict(ctx context.Context, run *Run, exec *execution, logger *slog.Logger, stale Assignment) State {
	e.rollback(exec, logger)
	e.evict(exec, stale)

	if exec.commitRetried {
		e.fail(run, exec, logger, fmt.Sprintf("%v: resource %s", ErrCommitConflict, stale.ResourceID))
		return StateFailed
	}
	exec.commitRetried = true

	run.logf(e.rt.Clock(), run.State, fmt.Sprintf("commit conflict on resource %s, re-optimizing", stale.ResourceID))
	logger.Warn("commit conflict detected", "resource_id", stale.ResourceID)

	if exec.req.Urgency == UrgencyEmergency {
		// The fast path never scored candidates, so conflict recovery
		// re-assesses availability instead of optimizing.
		return StateAssessAvailability
	}

	// The rollback released any already-committed assignments, and a release
	// bumps each resource's version. The retry must commit against current
	// snapshots, not the assessment-time ones the rollback just invalidated.
	if err := e.refreshSnapshots(ctx, exec); err != nil {
		e.fail(run, exec, logger, fmt.Sprintf("%v: %v", ErrRepositoryUnavailable, err))
		return StateFailed
	}
	return StateOptimize
}

// evict removes a stale resource from the run's working set so the next
// optimization or assessment pass cannot re-select it.
func (e *Engine) evict(exec *execution, stale Assignment) {
	if exec.evicted == nil {
		exec.evicted = make(map[uuid.UUID]struct{})
	}
	exec.evicted[stale.ResourceID] = struct{}{}
	delete(exec.byID, stale.ResourceID)

	for id, pool := range exec.perReq {
		exec.perReq[id] = slices.DeleteFunc(pool, func(c Candidate) bool {
			return c.ID == stale.ResourceID
		})
	}
	exec.scored = slices.DeleteFunc(exec.scored, func(s ScoredCandidate) bool {
		return s.Candidate.ID == stale.ResourceID
	})

	plan := exec.plan.Clone()
	plan.Assignments = slices.DeleteFunc(plan.Assignments, func(a Assignment) bool {
		return a.ResourceID == stale.ResourceID
	})
	for _, a := range exec.plan.Assignments {
		if a.ResourceID == stale.ResourceID && !slices.Contains(plan.Gaps, a.RequirementID) {
			plan.Gaps = append(plan.Gaps, a.RequirementID)
		}
	}
	plan.Quality = planQuality(plan.Assignments, plan.Gaps)
	exec.plan = plan
}

// refreshSnapshots re-reads candidate state after a rollback so the retry
// commits against current resource versions. Evicted resources stay out of
// the working set; plan assignments whose resource is no longer available
// become coverage gaps for the optimizer to re-fill.
func (e *Engine) refreshSnapshots(ctx context.Context, exec *execution) error {
	exec.byID = make(map[uuid.UUID]Candidate)
	exec.perReq = make(map[string][]Candidate, len(exec.reqs))

	for _, req := range exec.reqs {
		candidates, err := e.rt.Resources.FetchCandidates(ctx, e.profile.Domain(), CandidateFilter{
			Kind:         req.Kind,
			Capabilities: req.Capabilities,
			Location:     req.Location,
		})
		if err != nil {
			return err
		}

		available := make([]Candidate, 0, len(candidates))
		for _, c := range candidates {
			if !c.Available() {
				continue
			}
			if _, gone := exec.evicted[c.ID]; gone {
				continue
			}
			available = append(available, c)
			exec.byID[c.ID] = c
		}
		sortCandidates(available)
		exec.perReq[req.ID] = available
	}

	exec.scored = slices.DeleteFunc(exec.scored, func(s ScoredCandidate) bool {
		_, known := exec.byID[s.Candidate.ID]
		return !known
	})
	for i := range exec.scored {
		exec.scored[i].Candidate = exec.byID[exec.scored[i].Candidate.ID]
	}

	plan := exec.plan.Clone()
	plan.Assignments = slices.DeleteFunc(plan.Assignments, func(a Assignment) bool {
		_, known := exec.byID[a.ResourceID]
		return !known
	})
	for _, a := range exec.plan.Assignments {
		if _, known := exec.byID[a.ResourceID]; known {
			continue
		}
		if !slices.Contains(plan.Gaps, a.RequirementID) {
			plan.Gaps = append(plan.Gaps, a.RequirementID)
		}
	}
	plan.Quality = planQuality(plan.Assignments, plan.Gaps)
	exec.plan = plan
	return nil
}

func (e *Engine) notify(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) State {
	e.send(ctx, logger, "requester:"+exec.req.Subject, fmt.Sprintf("allocation completed with %d assignments", len(exec.plan.Assignments)), exec.req.Urgency)
	for _, a := range exec.plan.Assignments {
		if c, ok := exec.byID[a.ResourceID]; ok {
			e.send(ctx, logger, "owner:"+c.Name, fmt.Sprintf("resource assigned to requirement %s", a.RequirementID), exec.req.Urgency)
		}
	}

	e.coordinate(ctx, run, exec, logger)

	run.logf(e.rt.Clock(), run.State, "stakeholders notified")
	return StateCompleted
}

func (e *Engine) send(ctx context.Context, logger *slog.Logger, recipient, message string, priority Urgency) {
	if e.rt.Notifier == nil {
		return
	}
	if err := e.rt.Notifier.Notify(ctx, recipient, message, priority); err != nil {
		logger.Warn("notification delivery failed", "recipient", recipient, "error", err)
	}
}

// coordinate emits cross-agent follow-ups. An undeliverable request is a
// warning on the issuing run, never a failure: the engine proceeds to
// Completed regardless, logging pending coordination as follow-up work.
func (e *Engine) coordinate(ctx context.Context, run *Run, exec *execution, logger *slog.Logger) {
	if e.rt.Coordinator == nil {
		return
	}

	for _, cr := range e.profile.Coordination(exec.req, exec.plan) {
		ack, err := e.rt.Coordinator.Submit(ctx, cr)
		if err != nil || ack.Status == AckUndeliverable {
			run.logf(e.rt.Clock(), run.State, fmt.Sprintf("coordination request %s to %s undeliverable", cr.Action, cr.To))
			logger.Warn("coordination request undeliverable", "to", cr.To, "action", cr.Action, "error", err)
			continue
		}

		run.logf(e.rt.Clock(), run.State, fmt.Sprintf("coordination request %s queued for %s", cr.Action, cr.To))
		logger.Info("coordination request queued", "to", cr.To, "action", cr.Action)
	}
}

// orderRequirements sorts critical requirements first, then by ID, so
// greedy assignment is deterministic and critical needs claim the best
// candidates.
func orderRequirements(reqs []Requirement) []Requirement {
	ordered := slices.Clone(reqs)
	slices.SortFunc(ordered, func(a, b Requirement) int {
		if a.Critical != b.Critical {
			if a.Critical {
				return -1
			}
			return 1
		}
		return strings.Compare(a.ID, b.ID)
	})
	return ordered
}

// bestCandidate picks the highest-scoring positively-scored candidate for
// a requirement that still has capacity left. Ties break on candidate ID
// for determinism.
func bestCandidate(scored []ScoredCandidate, requirementID string, used map[uuid.UUID]int, byID map[uuid.UUID]Candidate) (ScoredCandidate, bool) {
	var best ScoredCandidate
	found := false

	for _, s := range scored {
		if s.RequirementID != requirementID || s.Score <= 0 {
			continue
		}
		if _, known := byID[s.Candidate.ID]; !known {
			continue
		}
		if used[s.Candidate.ID] >= max(s.Candidate.Capacity, 1) {
			continue
		}
		if !found || s.Score > best.Score ||
			(s.Score == best.Score && s.Candidate.ID.String() < best.Candidate.ID.String()) {
			best = s
			found = true
		}
	}

	return best, found
}

func candidatePools(byID map[uuid.UUID]Candidate) []string {
	seen := make(map[string]struct{})
	for _, c := range byID {
		if c.Location != "" {
			seen[c.Location] = struct{}{}
		}
	}

	pools := make([]string, 0, len(seen))
	for pool := range seen {
		pools = append(pools, pool)
	}
	slices.Sort(pools)
	return pools
}

func sortCandidates(candidates []Candidate) {
	slices.SortFunc(candidates, func(a, b Candidate) int {
		return strings.Compare(a.ID.String(), b.ID.String())
	})
}
