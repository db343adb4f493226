// Package scheduler raises reminders for due tasks and upcoming dates.
package scheduler

import "time"

// Config defines the scheduler configuration.
type Config struct {
	// Interval is how often the store is scanned.
	Interval time.Duration
	// Lookahead is how far ahead a due date or important date is reported.
	Lookahead time.Duration
	// GlobalMax is the maximum number of concurrent deliveries across all notifiers.
	GlobalMax int
	// ByNotifier defines per-notifier concurrency limits.
	ByNotifier map[string]int
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval:  time.Minute,
		Lookahead: 24 * time.Hour,
		GlobalMax: 10,
		ByNotifier: map[string]int{
			"log":       10,
			"localexec": 2,
		},
	}
}

// GetNotifierLimit returns the concurrency limit for a notifier.
func (c *Config) GetNotifierLimit(name string) int {
	if limit, ok := c.ByNotifier[name]; ok {
		return limit
	}
	return 1
}
