package agents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ashbyfield/ward/workflow"
)

func TestLoadPolicyMissingFileYieldsDefaults(t *testing.T) {
	policy, err := LoadPolicy(t.TempDir(), workflow.DomainBed)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	if policy.Weights.Sum() <= 0 {
		t.Errorf("weights = %+v, want defaults", policy.Weights)
	}
	if got := policy.Threshold("max_ward_load", 0.85); got != 0.85 {
		t.Errorf("Threshold fallback = %.2f, want 0.85", got)
	}
}

func TestLoadPolicyReadsFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`
weights:
  capability: 0.5
  proximity: 0.1
  compliance: 0.2
  workload: 0.2
thresholds:
  max_staff_load: 0.7
`)
	if err := os.WriteFile(filepath.Join(dir, "staff.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	policy, err := LoadPolicy(dir, workflow.DomainStaff)
	if err != nil {
		t.Fatalf("LoadPolicy: %v", err)
	}

	if policy.Weights.Capability != 0.5 {
		t.Errorf("capability weight = %.2f, want 0.5", policy.Weights.Capability)
	}
	if got := policy.Threshold("max_staff_load", 0.8); got != 0.7 {
		t.Errorf("max_staff_load = %.2f, want 0.7", got)
	}
	if got := policy.Threshold("rest_load", 0.9); got != 0.9 {
		t.Errorf("unset threshold = %.2f, want fallback 0.9", got)
	}
}

func TestLoadPolicyMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "supply.yaml"), []byte("weights: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadPolicy(dir, workflow.DomainSupply); err == nil {
		t.Fatal("LoadPolicy accepted malformed yaml")
	}
}
