package tasks

import "time"

// Config holds configuration for the maintenance task queue.
type Config struct {
	// Workers is the number of concurrent task workers. Default: 2
	Workers int

	// MaxRetries is the maximum retry attempts for a failed task. Default: 3
	MaxRetries int

	// RetryDelay is the backoff between retries of a failed task. Default: 1m
	RetryDelay time.Duration

	// TaskTimeout bounds a single task execution. Default: 5m
	TaskTimeout time.Duration

	// ReleaseAfter is when a stuck task is released back to its queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often completed tasks are swept. Default: 1h
	CleanupInterval time.Duration

	// RetentionDuration is how long completed tasks are kept. Default: 24h
	RetentionDuration time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Workers:           2,
		MaxRetries:        3,
		RetryDelay:        1 * time.Minute,
		TaskTimeout:       5 * time.Minute,
		ReleaseAfter:      15 * time.Minute,
		CleanupInterval:   1 * time.Hour,
		RetentionDuration: 24 * time.Hour,
	}
}
