package scheduler

import (
	"time"

	"github.com/smallbiznis/tourdesk/internal/config"
)

// Config controls scheduler intervals and which jobs run.
type Config struct {
	Enabled     bool
	RunInterval time.Duration
	JobTimeout  time.Duration
	// EnabledJobs limits the instance to the named jobs. Empty runs all of them.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		RunInterval: time.Minute,
		JobTimeout:  30 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.Enabled = cfg.Scheduler.Enabled
	c.RunInterval = cfg.Scheduler.Interval
	c.EnabledJobs = cfg.Scheduler.Jobs
	return c.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}
