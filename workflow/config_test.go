package workflow_test

import (
	"testing"

	"github.com/ashbyfield/ward/workflow"
)

func TestConfigFinalizeDefaults(t *testing.T) {
	var cfg workflow.Config
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if cfg.MaxIterations != 4 {
		t.Errorf("MaxIterations = %d, want 4", cfg.MaxIterations)
	}
	if cfg.HighQuality != 0.85 || cfg.LowQuality != 0.55 {
		t.Errorf("thresholds = %.2f/%.2f, want 0.85/0.55", cfg.HighQuality, cfg.LowQuality)
	}
	if cfg.ReviewTimeoutDuration().Seconds() != 30 {
		t.Errorf("ReviewTimeout = %s, want 30s", cfg.ReviewTimeout)
	}
}

func TestConfigFinalizeValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  workflow.Config
	}{
		{"negative iterations", workflow.Config{MaxIterations: -1}},
		{"low quality out of range", workflow.Config{LowQuality: 1.2}},
		{"inverted thresholds", workflow.Config{HighQuality: 0.4, LowQuality: 0.6}},
		{"bad timeout", workflow.Config{ReviewTimeout: "soon"}},
		{"zero timeout", workflow.Config{ReviewTimeout: "0s"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Finalize(nil); err == nil {
				t.Error("Finalize accepted invalid config")
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := workflow.Config{MaxIterations: 4, HighQuality: 0.85, LowQuality: 0.55, ReviewTimeout: "30s"}
	base.Merge(&workflow.Config{MaxIterations: 8, ReviewTimeout: "5m"})

	if base.MaxIterations != 8 || base.ReviewTimeout != "5m" {
		t.Errorf("merged = %+v, want overlay applied", base)
	}
	if base.HighQuality != 0.85 || base.LowQuality != 0.55 {
		t.Errorf("merged = %+v, want zero overlay fields ignored", base)
	}
}
