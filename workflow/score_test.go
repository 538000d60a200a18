package workflow_test

import (
	"testing"

	"github.com/ashbyfield/ward/workflow"
)

func TestCompose(t *testing.T) {
	weights := workflow.Weights{Capability: 0.4, Proximity: 0.15, Compliance: 0.3, Workload: 0.15}

	tests := []struct {
		name      string
		breakdown map[workflow.Criterion]float64
		want      float64
	}{
		{
			name: "all perfect",
			breakdown: map[workflow.Criterion]float64{
				workflow.CriterionCapability: 1,
				workflow.CriterionProximity:  1,
				workflow.CriterionCompliance: 1,
				workflow.CriterionWorkload:   1,
			},
			want: 1,
		},
		{
			name:      "missing criteria contribute zero",
			breakdown: map[workflow.Criterion]float64{workflow.CriterionCapability: 1},
			want:      0.4,
		},
		{
			name:      "empty breakdown",
			breakdown: map[workflow.Criterion]float64{},
			want:      0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := workflow.Compose(tc.breakdown, weights)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Compose = %.4f, want %.4f", got, tc.want)
			}
		})
	}
}

func TestComposeZeroWeightMass(t *testing.T) {
	breakdown := map[workflow.Criterion]float64{workflow.CriterionCapability: 1}
	if got := workflow.Compose(breakdown, workflow.Weights{}); got != 0 {
		t.Errorf("Compose with zero weights = %.4f, want 0", got)
	}
}

func TestCapabilityMatch(t *testing.T) {
	tests := []struct {
		name      string
		required  []string
		available []string
		want      float64
	}{
		{"no requirements", nil, []string{"icu"}, 1},
		{"full match", []string{"icu", "telemetry"}, []string{"telemetry", "icu", "isolation"}, 1},
		{"partial match", []string{"icu", "telemetry"}, []string{"icu"}, 0.5},
		{"no match", []string{"cold_chain"}, []string{"bulk"}, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := workflow.CapabilityMatch(tc.required, tc.available); got != tc.want {
				t.Errorf("CapabilityMatch = %.2f, want %.2f", got, tc.want)
			}
		})
	}
}

func TestProximityScore(t *testing.T) {
	if got := workflow.ProximityScore("", "west"); got != 1 {
		t.Errorf("no preference = %.0f, want 1", got)
	}
	if got := workflow.ProximityScore("east", "east"); got != 1 {
		t.Errorf("exact match = %.0f, want 1", got)
	}
	if got := workflow.ProximityScore("east", "west"); got != 0 {
		t.Errorf("mismatch = %.0f, want 0", got)
	}
}

func TestWorkloadBalance(t *testing.T) {
	if got := workflow.WorkloadBalance(0); got != 1 {
		t.Errorf("idle = %.2f, want 1", got)
	}
	if got := workflow.WorkloadBalance(1.5); got != 0 {
		t.Errorf("overloaded = %.2f, want 0 (clamped)", got)
	}
	if got := workflow.WorkloadBalance(0.25); got != 0.75 {
		t.Errorf("quarter load = %.2f, want 0.75", got)
	}
}
