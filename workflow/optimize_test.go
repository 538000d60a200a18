package workflow_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

func gapPlan(gaps ...string) workflow.Plan {
	return workflow.Plan{Gaps: gaps}
}

func swapMutator(reqID string, resourceID uuid.UUID, score float64) workflow.Mutator {
	return workflow.Mutator{
		Name: "swap",
		Apply: func(plan workflow.Plan, _ []workflow.Violation, _ []workflow.ScoredCandidate) (workflow.Plan, bool) {
			return plan.Replace(reqID, resourceID, score), true
		},
	}
}

func TestOptimizeAcceptsStrictImprovement(t *testing.T) {
	target := resID(1)
	candidates := map[uuid.UUID]workflow.Candidate{target: {ID: target, Capacity: 1}}
	rules := []workflow.Rule{coverageRule()}
	reqs := []workflow.Requirement{{ID: "bed-1", Critical: true}}

	result := workflow.Optimize(gapPlan("bed-1"), nil, rules, reqs, candidates,
		[]workflow.Mutator{swapMutator("bed-1", target, 0.9)})

	if len(result.Gaps) != 0 {
		t.Fatalf("gaps = %v, want none after fill", result.Gaps)
	}
	if workflow.CountCritical(result.Violations) != 0 {
		t.Errorf("critical violations = %+v, want none", result.Violations)
	}
	if result.Quality != 0.9 {
		t.Errorf("quality = %.2f, want 0.90", result.Quality)
	}
}

func TestOptimizeRejectsRegression(t *testing.T) {
	good := resID(1)
	bad := resID(2)
	candidates := map[uuid.UUID]workflow.Candidate{
		good: {ID: good, Capacity: 1},
		bad:  {ID: bad, Capacity: 1},
	}
	base := workflow.Plan{}.Replace("bed-1", good, 0.9)

	// The proposal lowers quality with no violation payoff; the pass must
	// keep the incumbent plan.
	result := workflow.Optimize(base, nil, nil, nil, candidates,
		[]workflow.Mutator{swapMutator("bed-1", bad, 0.2)})

	if !result.Equal(base) {
		t.Fatalf("optimizer accepted a regression: %+v", result)
	}
}

func TestOptimizePrefersFewerCriticalsOverQuality(t *testing.T) {
	shared := resID(1)
	spare := resID(2)
	candidates := map[uuid.UUID]workflow.Candidate{
		shared: {ID: shared, Capacity: 1},
		spare:  {ID: spare, Capacity: 1},
	}

	// Both requirements start on the same resource: one critical double
	// booking. Moving bed-2 to a lower-scoring spare clears it.
	base := workflow.Plan{}.Replace("bed-1", shared, 0.9).Replace("bed-2", shared, 0.9)

	result := workflow.Optimize(base, nil, nil, nil, candidates,
		[]workflow.Mutator{swapMutator("bed-2", spare, 0.3)})

	if workflow.CountCritical(result.Violations) != 0 {
		t.Fatalf("critical violations remain: %+v", result.Violations)
	}
	if a, ok := result.Assigned("bed-2"); !ok || a.ResourceID != spare {
		t.Errorf("bed-2 assignment = %+v, want moved to spare", a)
	}
}

func TestOptimizePanickingMutatorIsNoOp(t *testing.T) {
	base := workflow.Plan{}.Replace("bed-1", resID(1), 0.8)
	broken := workflow.Mutator{
		Name: "broken",
		Apply: func(workflow.Plan, []workflow.Violation, []workflow.ScoredCandidate) (workflow.Plan, bool) {
			panic("nil map write")
		},
	}

	result := workflow.Optimize(base, nil, nil, nil,
		map[uuid.UUID]workflow.Candidate{resID(1): {ID: resID(1), Capacity: 1}},
		[]workflow.Mutator{broken})

	if !result.Equal(base) {
		t.Fatalf("panicking mutator changed the plan: %+v", result)
	}
}

func TestOptimizeUnchangedPlanReturnsEqual(t *testing.T) {
	base := workflow.Plan{}.Replace("bed-1", resID(1), 0.8)

	result := workflow.Optimize(base, nil, nil, nil,
		map[uuid.UUID]workflow.Candidate{resID(1): {ID: resID(1), Capacity: 1}}, nil)

	if !result.Equal(base) {
		t.Fatalf("pass with no mutators changed the plan: %+v", result)
	}
}
