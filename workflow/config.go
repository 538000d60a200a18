package workflow

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds engine tuning parameters. Routing thresholds and the
// iteration cap are configuration, but the cap itself is a hard
// requirement: it is the only bound on the optimize/validate loop when
// constraints are unsatisfiable.
type Config struct {
	MaxIterations int     `toml:"max_iterations"`
	HighQuality   float64 `toml:"high_quality"`
	LowQuality    float64 `toml:"low_quality"`
	ReviewTimeout string  `toml:"review_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxIterations string
	HighQuality   string
	LowQuality    string
	ReviewTimeout string
}

// ReviewTimeoutDuration returns ReviewTimeout as a time.Duration.
func (c *Config) ReviewTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReviewTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxIterations != 0 {
		c.MaxIterations = overlay.MaxIterations
	}
	if overlay.HighQuality != 0 {
		c.HighQuality = overlay.HighQuality
	}
	if overlay.LowQuality != 0 {
		c.LowQuality = overlay.LowQuality
	}
	if overlay.ReviewTimeout != "" {
		c.ReviewTimeout = overlay.ReviewTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 4
	}
	if c.HighQuality == 0 {
		c.HighQuality = 0.85
	}
	if c.LowQuality == 0 {
		c.LowQuality = 0.55
	}
	if c.ReviewTimeout == "" {
		c.ReviewTimeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxIterations != "" {
		if v := os.Getenv(env.MaxIterations); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxIterations = n
			}
		}
	}
	if env.HighQuality != "" {
		if v := os.Getenv(env.HighQuality); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.HighQuality = f
			}
		}
	}
	if env.LowQuality != "" {
		if v := os.Getenv(env.LowQuality); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.LowQuality = f
			}
		}
	}
	if env.ReviewTimeout != "" {
		if v := os.Getenv(env.ReviewTimeout); v != "" {
			c.ReviewTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1: %d", c.MaxIterations)
	}
	if c.LowQuality <= 0 || c.LowQuality >= 1 {
		return fmt.Errorf("low_quality must be in (0,1): %f", c.LowQuality)
	}
	if c.HighQuality <= c.LowQuality || c.HighQuality > 1 {
		return fmt.Errorf("high_quality must be in (low_quality,1]: %f", c.HighQuality)
	}
	if d, err := time.ParseDuration(c.ReviewTimeout); err != nil || d <= 0 {
		return fmt.Errorf("review_timeout must be a positive duration: %q", c.ReviewTimeout)
	}
	return nil
}
