package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	EnvAgentsPolicyDir         = "WARD_AGENTS_POLICY_DIR"
	EnvAgentsMaxConcurrentRuns = "WARD_AGENTS_MAX_CONCURRENT_RUNS"
)

// AgentsConfig holds domain agent settings: where policy files live and
// how many allocation runs may execute concurrently.
type AgentsConfig struct {
	PolicyDir         string `toml:"policy_dir"`
	MaxConcurrentRuns int    `toml:"max_concurrent_runs"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *AgentsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *AgentsConfig) Merge(overlay *AgentsConfig) {
	if overlay.PolicyDir != "" {
		c.PolicyDir = overlay.PolicyDir
	}
	if overlay.MaxConcurrentRuns != 0 {
		c.MaxConcurrentRuns = overlay.MaxConcurrentRuns
	}
}

func (c *AgentsConfig) loadDefaults() {
	if c.PolicyDir == "" {
		c.PolicyDir = "policies"
	}
	if c.MaxConcurrentRuns == 0 {
		c.MaxConcurrentRuns = 16
	}
}

func (c *AgentsConfig) loadEnv() {
	if v := os.Getenv(EnvAgentsPolicyDir); v != "" {
		c.PolicyDir = v
	}
	if v := os.Getenv(EnvAgentsMaxConcurrentRuns); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrentRuns = n
		}
	}
}

func (c *AgentsConfig) validate() error {
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("max_concurrent_runs must be at least 1: %d", c.MaxConcurrentRuns)
	}
	return nil
}
