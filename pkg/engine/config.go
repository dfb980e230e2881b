package engine

import (
	"fmt"
	"time"
)

// defaultBatchCap is the hard upper bound on a manual run's batch size,
// regardless of what the caller or policy asks for.
const defaultBatchCap = 100

// Config controls the automation engine's background behaviour. It can
// be swapped at runtime via Engine.UpdateConfiguration, which restarts
// the background services with the new settings.
type Config struct {
	// TargetEmailsPerMinute sets the continuous-cleanup throughput; the
	// background tick interval is one minute divided by this value.
	// Default: 10
	TargetEmailsPerMinute int `yaml:"target_emails_per_minute"`

	// MaxConcurrentOperations caps simultaneously executing jobs. Ticks
	// are skipped while the queue holds at least this many jobs.
	// Default: 3
	MaxConcurrentOperations int `yaml:"max_concurrent_operations"`

	// PauseDuringPeakHours skips continuous ticks inside the peak-hour
	// window.
	PauseDuringPeakHours bool `yaml:"pause_during_peak_hours"`

	// PeakHoursStart and PeakHoursEnd bound the peak window in local
	// hours [0,24). A start after the end wraps past midnight.
	// Defaults: 9 and 17.
	PeakHoursStart int `yaml:"peak_hours_start"`
	PeakHoursEnd   int `yaml:"peak_hours_end"`

	// HealthPollInterval is the cadence of the event-trigger poller.
	// Default: 5 minutes
	HealthPollInterval time.Duration `yaml:"health_poll_interval"`

	// StorageWarningPercent triggers a normal event cleanup.
	// Default: 80
	StorageWarningPercent float64 `yaml:"storage_warning_percent"`

	// StorageCriticalPercent triggers an emergency cleanup.
	// Default: 95
	StorageCriticalPercent float64 `yaml:"storage_critical_percent"`

	// QueryTimeDegradedMs marks query latency as degraded.
	// Default: 500
	QueryTimeDegradedMs float64 `yaml:"query_time_degraded_ms"`

	// CacheHitRateDegraded marks a cache hit rate at or below this value
	// as degraded. Default: 0.5
	CacheHitRateDegraded float64 `yaml:"cache_hit_rate_degraded"`

	// EmergencyPolicyIDs are the policies run, forced, when storage
	// crosses the critical threshold.
	EmergencyPolicyIDs []string `yaml:"emergency_policy_ids"`

	// EmergencyBatchSize is the per-policy cap for emergency runs.
	// Default: 500
	EmergencyBatchSize int `yaml:"emergency_batch_size"`

	// BatchSize is the number of candidates processed per batch.
	// Default: 50
	BatchSize int `yaml:"batch_size"`

	// InterBatchDelay is the pause between batches, respecting external
	// rate limits. Default: 100ms
	InterBatchDelay time.Duration `yaml:"inter_batch_delay"`

	// ContinueOnBatchError keeps a run going after a failed batch. The
	// deletion executor still stops within the failing batch; this flag
	// governs whether the run moves on to the next batch.
	// Default: true
	ContinueOnBatchError bool `yaml:"continue_on_batch_error"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		TargetEmailsPerMinute:   10,
		MaxConcurrentOperations: 3,
		PauseDuringPeakHours:    false,
		PeakHoursStart:          9,
		PeakHoursEnd:            17,
		HealthPollInterval:      5 * time.Minute,
		StorageWarningPercent:   80,
		StorageCriticalPercent:  95,
		QueryTimeDegradedMs:     500,
		CacheHitRateDegraded:    0.5,
		EmergencyBatchSize:      500,
		BatchSize:               50,
		InterBatchDelay:         100 * time.Millisecond,
		ContinueOnBatchError:    true,
	}
}

// Validate checks the configuration for values the engine cannot run
// with.
func (c *Config) Validate() error {
	if c.TargetEmailsPerMinute <= 0 {
		return fmt.Errorf("target_emails_per_minute must be positive, got %d", c.TargetEmailsPerMinute)
	}
	if c.MaxConcurrentOperations <= 0 {
		return fmt.Errorf("max_concurrent_operations must be positive, got %d", c.MaxConcurrentOperations)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	}
	if c.PeakHoursStart < 0 || c.PeakHoursStart > 23 || c.PeakHoursEnd < 0 || c.PeakHoursEnd > 23 {
		return fmt.Errorf("peak hours must be within [0,23], got %d-%d", c.PeakHoursStart, c.PeakHoursEnd)
	}
	if c.StorageWarningPercent > c.StorageCriticalPercent {
		return fmt.Errorf("storage_warning_percent %.1f exceeds storage_critical_percent %.1f",
			c.StorageWarningPercent, c.StorageCriticalPercent)
	}
	if c.HealthPollInterval <= 0 {
		return fmt.Errorf("health_poll_interval must be positive, got %s", c.HealthPollInterval)
	}
	return nil
}

// tickInterval derives the continuous-loop cadence from the target
// throughput.
func (c *Config) tickInterval() time.Duration {
	return time.Minute / time.Duration(c.TargetEmailsPerMinute)
}

// inPeakHours reports whether t falls inside the configured peak window.
func (c *Config) inPeakHours(t time.Time) bool {
	if !c.PauseDuringPeakHours {
		return false
	}
	hour := t.Hour()
	if c.PeakHoursStart <= c.PeakHoursEnd {
		return hour >= c.PeakHoursStart && hour < c.PeakHoursEnd
	}
	// Window wraps past midnight.
	return hour >= c.PeakHoursStart || hour < c.PeakHoursEnd
}
