package workflow

import "github.com/google/uuid"

// Optimize applies one optimization pass to a plan. It tries each mutator
// in order and accepts a proposal only when it strictly improves the plan:
// fewer critical violations first, then fewer total violations, then a
// higher quality score. Because every proposal is re-validated before
// acceptance, the critical violation count is monotonically non-increasing
// across passes.
//
// Calling Optimize on an already-optimal plan returns it unchanged, which
// the engine detects through Plan.Equal to short-circuit the remaining
// iteration budget.
func Optimize(
	plan Plan,
	scored []ScoredCandidate,
	rules []Rule,
	reqs []Requirement,
	candidates map[uuid.UUID]Candidate,
	mutators []Mutator,
) Plan {
	best := plan.Clone()
	best.Violations = Validate(best, rules, reqs, candidates)

	for _, m := range mutators {
		proposal, changed := safeMutate(m, best, scored)
		if !changed {
			continue
		}

		proposal.Violations = Validate(proposal, rules, reqs, candidates)
		if better(proposal, best) {
			best = proposal
		}
	}

	return best
}

// better implements the strict improvement ordering for pass acceptance.
func better(proposal, current Plan) bool {
	pc, cc := CountCritical(proposal.Violations), CountCritical(current.Violations)
	if pc != cc {
		return pc < cc
	}
	if len(proposal.Violations) != len(current.Violations) {
		return len(proposal.Violations) < len(current.Violations)
	}
	return proposal.Quality > current.Quality
}

// safeMutate shields the optimizer from a faulty mutation strategy. A
// panicking mutator degrades to a no-op pass so the engine always has a
// defined next state.
func safeMutate(m Mutator, plan Plan, scored []ScoredCandidate) (next Plan, changed bool) {
	defer func() {
		if r := recover(); r != nil {
			next, changed = plan, false
		}
	}()

	return m.Apply(plan.Clone(), plan.Violations, scored)
}
