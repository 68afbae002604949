package scheduler

import (
	"time"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval       time.Duration
	BatchSize         int
	ExpiryWarningDays int
	AnonymizeDryRun   bool
	VerifyExpiring    bool
	// EnabledJobs restricts which jobs run. Empty means all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:       time.Minute,
		BatchSize:         50,
		ExpiryWarningDays: 90,
		VerifyExpiring:    true,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.ExpiryWarningDays <= 0 {
		c.ExpiryWarningDays = defaults.ExpiryWarningDays
	}
	return c
}
