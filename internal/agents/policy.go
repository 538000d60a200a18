// Package agents implements the bed, staff, and supply domain agents.
// Each agent is a workflow.Profile: the same engine parameterized with
// domain-specific requirement analysis, scoring criteria, constraint
// rules, and mutation strategies. Scoring weights and rule thresholds are
// domain policy, loaded from YAML files so operations staff can tune them
// without a rebuild.
package agents

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ashbyfield/ward/workflow"
)

// Policy carries the tunable parts of one domain profile.
type Policy struct {
	Weights    workflow.Weights   `yaml:"weights"`
	Thresholds map[string]float64 `yaml:"thresholds"`
}

// Threshold returns a named threshold, or fallback when unset.
func (p Policy) Threshold(name string, fallback float64) float64 {
	if v, ok := p.Thresholds[name]; ok {
		return v
	}
	return fallback
}

func (p Policy) normalize() Policy {
	if p.Weights.Sum() <= 0 {
		p.Weights = workflow.Weights{Capability: 0.4, Proximity: 0.15, Compliance: 0.3, Workload: 0.15}
	}
	if p.Thresholds == nil {
		p.Thresholds = make(map[string]float64)
	}
	return p
}

// LoadPolicy reads the policy file for a domain from dir, e.g.
// policies/bed.yaml. A missing file yields the default policy; a
// malformed file is an error so a bad deploy fails loudly.
func LoadPolicy(dir string, domain workflow.Domain) (Policy, error) {
	var p Policy

	path := filepath.Join(dir, fmt.Sprintf("%s.yaml", domain))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p.normalize(), nil
		}
		return p, fmt.Errorf("read policy %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy %s: %w", path, err)
	}
	return p.normalize(), nil
}
