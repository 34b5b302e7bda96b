package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variable names for conversion pipeline configuration.
const (
	EnvConvertWorkers     = "CONVERT_WORKERS"
	EnvConvertMaxAttempts = "CONVERT_MAX_ATTEMPTS"
)

// ConvertConfig contains conversion worker and retry configuration.
type ConvertConfig struct {
	// Workers is the number of concurrent extraction workers.
	Workers int `toml:"workers"`

	// MaxAttempts bounds extraction retries for a single job.
	MaxAttempts int `toml:"max_attempts"`

	// PollInterval is how often idle workers look for queued jobs.
	PollInterval string `toml:"poll_interval"`

	// SweepInterval is how often the supervisor reclaims stuck jobs.
	SweepInterval string `toml:"sweep_interval"`

	// ProcessingCeiling is the wall-clock limit for a single attempt;
	// jobs in PROCESSING longer than this are treated as transient
	// failures and requeued by the sweep.
	ProcessingCeiling string `toml:"processing_ceiling"`
}

// PollIntervalDuration parses and returns the poll interval as a time.Duration.
func (c *ConvertConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// SweepIntervalDuration parses and returns the sweep interval as a time.Duration.
func (c *ConvertConfig) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// ProcessingCeilingDuration parses and returns the processing ceiling as a time.Duration.
func (c *ConvertConfig) ProcessingCeilingDuration() time.Duration {
	d, _ := time.ParseDuration(c.ProcessingCeiling)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *ConvertConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *ConvertConfig) Merge(overlay *ConvertConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
	if overlay.ProcessingCeiling != "" {
		c.ProcessingCeiling = overlay.ProcessingCeiling
	}
}

func (c *ConvertConfig) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.PollInterval == "" {
		c.PollInterval = "1s"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "30s"
	}
	if c.ProcessingCeiling == "" {
		c.ProcessingCeiling = "5m"
	}
}

func (c *ConvertConfig) loadEnv() {
	if v := os.Getenv(EnvConvertWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvConvertMaxAttempts); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxAttempts = n
		}
	}
}

func (c *ConvertConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	for name, v := range map[string]string{
		"poll_interval":      c.PollInterval,
		"sweep_interval":     c.SweepInterval,
		"processing_ceiling": c.ProcessingCeiling,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
