package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names for quota configuration.
const (
	EnvQuotaFreeAllotment = "QUOTA_FREE_ALLOTMENT"
	EnvQuotaPeriod        = "QUOTA_PERIOD"
)

// Quota period policies controlling when the free-tier counter resets.
const (
	QuotaPeriodNever   = "never"
	QuotaPeriodDaily   = "daily"
	QuotaPeriodMonthly = "monthly"
)

// QuotaConfig contains free-tier quota configuration.
type QuotaConfig struct {
	// FreeAllotment is the number of conversions a free-tier user may
	// consume per counting period.
	FreeAllotment int `toml:"free_allotment"`

	// Period controls when used counts roll over: never, daily, or monthly.
	Period string `toml:"period"`
}

// Finalize applies defaults, loads environment overrides, and validates the quota configuration.
func (c *QuotaConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *QuotaConfig) Merge(overlay *QuotaConfig) {
	if overlay.FreeAllotment != 0 {
		c.FreeAllotment = overlay.FreeAllotment
	}
	if overlay.Period != "" {
		c.Period = overlay.Period
	}
}

func (c *QuotaConfig) loadDefaults() {
	if c.FreeAllotment == 0 {
		c.FreeAllotment = 5
	}
	if c.Period == "" {
		c.Period = QuotaPeriodNever
	}
}

func (c *QuotaConfig) loadEnv() {
	if v := os.Getenv(EnvQuotaFreeAllotment); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FreeAllotment = n
		}
	}
	if v := os.Getenv(EnvQuotaPeriod); v != "" {
		c.Period = v
	}
}

func (c *QuotaConfig) validate() error {
	if c.FreeAllotment < 1 {
		return fmt.Errorf("free_allotment must be positive")
	}
	switch c.Period {
	case QuotaPeriodNever, QuotaPeriodDaily, QuotaPeriodMonthly:
		return nil
	default:
		return fmt.Errorf("invalid period: %s (must be never, daily, or monthly)", c.Period)
	}
}
