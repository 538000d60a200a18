package workflow_test

import (
	"testing"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/workflow"
)

func TestValidateDoubleBooking(t *testing.T) {
	shared := resID(1)
	plan := workflow.Plan{
		Assignments: []workflow.Assignment{
			{RequirementID: "rn-1", ResourceID: shared, Score: 0.9},
			{RequirementID: "rn-2", ResourceID: shared, Score: 0.8},
			{RequirementID: "rn-3", ResourceID: resID(2), Score: 0.7},
		},
	}
	candidates := map[uuid.UUID]workflow.Candidate{
		shared:   {ID: shared, Capacity: 1},
		resID(2): {ID: resID(2), Capacity: 1},
	}

	violations := workflow.Validate(plan, nil, nil, candidates)
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}

	v := violations[0]
	if v.RuleID != workflow.RuleDoubleBooking || v.Severity != workflow.SeverityCritical {
		t.Errorf("violation = %+v, want critical %s", v, workflow.RuleDoubleBooking)
	}
	if len(v.RequirementIDs) != 2 || v.RequirementIDs[0] != "rn-1" || v.RequirementIDs[1] != "rn-2" {
		t.Errorf("requirement ids = %v, want sorted [rn-1 rn-2]", v.RequirementIDs)
	}
}

func TestValidateRespectsCapacity(t *testing.T) {
	pool := resID(1)
	plan := workflow.Plan{
		Assignments: []workflow.Assignment{
			{RequirementID: "ppe-1", ResourceID: pool},
			{RequirementID: "ppe-2", ResourceID: pool},
			{RequirementID: "ppe-3", ResourceID: pool},
		},
	}
	candidates := map[uuid.UUID]workflow.Candidate{
		pool: {ID: pool, Capacity: 3},
	}

	if violations := workflow.Validate(plan, nil, nil, candidates); len(violations) != 0 {
		t.Errorf("violations = %+v, want none within capacity", violations)
	}
}

func TestValidateUnknownResourceDefaultsToCapacityOne(t *testing.T) {
	ghost := resID(9)
	plan := workflow.Plan{
		Assignments: []workflow.Assignment{
			{RequirementID: "bed-1", ResourceID: ghost},
			{RequirementID: "bed-2", ResourceID: ghost},
		},
	}

	violations := workflow.Validate(plan, nil, nil, map[uuid.UUID]workflow.Candidate{})
	if len(violations) != 1 || violations[0].RuleID != workflow.RuleDoubleBooking {
		t.Fatalf("violations = %+v, want one double booking", violations)
	}
}

func TestValidatePanickingRuleBecomesCriticalViolation(t *testing.T) {
	rules := []workflow.Rule{{
		ID:       "broken",
		Severity: workflow.SeverityWarning,
		Check: func(workflow.Plan, []workflow.Requirement, map[uuid.UUID]workflow.Candidate) []workflow.Violation {
			panic("index out of range")
		},
	}}

	violations := workflow.Validate(workflow.Plan{}, rules, nil, nil)
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}
	if violations[0].RuleID != "broken" || violations[0].Severity != workflow.SeverityCritical {
		t.Errorf("violation = %+v, want critical broken", violations[0])
	}
}

func TestValidateDeterministicOrder(t *testing.T) {
	unsorted := func(workflow.Plan, []workflow.Requirement, map[uuid.UUID]workflow.Candidate) []workflow.Violation {
		return []workflow.Violation{
			{RuleID: "zeta", Severity: workflow.SeverityWarning, Message: "b"},
			{RuleID: "alpha", Severity: workflow.SeverityInfo, Message: "a"},
			{RuleID: "zeta", Severity: workflow.SeverityWarning, Message: "a"},
		}
	}
	rules := []workflow.Rule{{ID: "mixed", Check: unsorted}}

	first := workflow.Validate(workflow.Plan{}, rules, nil, nil)
	second := workflow.Validate(workflow.Plan{}, rules, nil, nil)

	if first[0].RuleID != "alpha" {
		t.Errorf("first violation = %s, want alpha", first[0].RuleID)
	}
	if first[1].Message != "a" || first[2].Message != "b" {
		t.Errorf("zeta violations out of order: %+v", first[1:])
	}
	for i := range first {
		if first[i].RuleID != second[i].RuleID || first[i].Message != second[i].Message {
			t.Fatalf("validation not deterministic at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestFilterSeverityAndCounts(t *testing.T) {
	violations := []workflow.Violation{
		{RuleID: "a", Severity: workflow.SeverityCritical},
		{RuleID: "b", Severity: workflow.SeverityWarning},
		{RuleID: "c", Severity: workflow.SeverityCritical},
		{RuleID: "d", Severity: workflow.SeverityInfo},
	}

	if got := workflow.CountCritical(violations); got != 2 {
		t.Errorf("CountCritical = %d, want 2", got)
	}
	if !workflow.HasCritical(violations) {
		t.Error("HasCritical = false, want true")
	}
	if got := len(workflow.FilterSeverity(violations, workflow.SeverityWarning)); got != 1 {
		t.Errorf("warnings = %d, want 1", got)
	}
	if workflow.HasCritical(nil) {
		t.Error("HasCritical(nil) = true, want false")
	}
}
