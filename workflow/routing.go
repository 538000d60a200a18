package workflow

// Routing predicates are pure functions of the current plan, violations,
// and iteration counter so the engine is deterministic and replayable.

// RouteQualityGate decides the exit from the quality gate. Plans at or
// above the low-quality threshold proceed to validation; everything below
// goes straight to optimization.
func RouteQualityGate(plan Plan, cfg Config) State {
	if plan.Quality >= cfg.HighQuality && len(plan.Gaps) == 0 {
		return StateValidate
	}
	if plan.Quality >= cfg.LowQuality {
		return StateValidate
	}
	return StateOptimize
}

// RouteValidation decides the exit from constraint validation: a clean
// plan implements, critical violations demand human review, and anything
// else feeds the optimizer.
func RouteValidation(violations []Violation) State {
	if len(violations) == 0 {
		return StateImplementation
	}
	if HasCritical(violations) {
		return StateHumanReview
	}
	return StateOptimize
}

// RouteOptimizeExit decides where an optimization pass sends the run.
// An exhausted iteration budget always routes to human review; this bound
// is the only thing preventing an unbounded loop when constraints are
// unsatisfiable. An unchanged plan short-circuits the remaining budget.
func RouteOptimizeExit(changed bool, violations []Violation, iterations, maxIterations int) State {
	if iterations >= maxIterations {
		return StateHumanReview
	}
	if changed {
		return StateValidate
	}
	if len(violations) == 0 {
		return StateValidate
	}
	return StateHumanReview
}
