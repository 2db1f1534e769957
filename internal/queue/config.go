package queue

import (
	"time"

	"github.com/ternarybob/thesis/internal/common"
	"github.com/ternarybob/thesis/internal/retry"
)

// Config holds configuration for the queue manager
type Config struct {
	// PollInterval is how often each worker looks for due jobs
	PollInterval time.Duration

	// Concurrency is the number of concurrent workers
	Concurrency int

	// JobsPerMinute caps how many jobs start per minute across all workers
	JobsPerMinute int

	// MaxAttempts applies to jobs enqueued without their own limit
	MaxAttempts int

	// Backoff supplies the delay before a failed job is tried again
	Backoff retry.Policy
}

// NewDefaultConfig creates a queue configuration with sensible defaults
func NewDefaultConfig() Config {
	return Config{
		PollInterval:  5 * time.Second,
		Concurrency:   2,
		JobsPerMinute: 10,
		MaxAttempts:   3,
		Backoff:       retry.DefaultPolicy(),
	}
}

// ConfigFromCommon maps the [queue] section onto a Config.
func ConfigFromCommon(cfg common.QueueConfig) Config {
	c := NewDefaultConfig()
	c.PollInterval = common.ParseDuration(cfg.PollInterval, c.PollInterval)
	if cfg.Concurrency > 0 {
		c.Concurrency = cfg.Concurrency
	}
	if cfg.JobsPerMinute > 0 {
		c.JobsPerMinute = cfg.JobsPerMinute
	}
	if cfg.MaxAttempts > 0 {
		c.MaxAttempts = cfg.MaxAttempts
	}
	return c
}
