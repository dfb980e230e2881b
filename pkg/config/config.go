package config

import "time"

// Config is the root configuration structure for Mailkeep. It contains
// all configuration sections for storage, the automation engine, scoring,
// safety protections, the status server, and telemetry.
type Config struct {
	// Storage contains database paths and connection settings.
	Storage StorageConfig `yaml:"storage"`

	// Engine contains automation engine settings: throughput, batching,
	// health thresholds, and error-continuation behaviour.
	Engine EngineConfig `yaml:"engine"`

	// Scoring contains staleness scoring weights.
	Scoring ScoringConfig `yaml:"scoring"`

	// Safety contains the protection chain settings applied before any
	// record can become a cleanup candidate.
	Safety SafetyConfig `yaml:"safety"`

	// Server contains the status HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains database configuration.
type StorageConfig struct {
	// JobsPath is the SQLite file backing jobs, policies, and execution
	// history. Default: "data/mailkeep.db"
	JobsPath string `yaml:"jobs_path"`

	// AccessPath is the SQLite file backing the access log.
	// Default: "data/access.db"
	AccessPath string `yaml:"access_path"`

	// MaxOpenConns is the maximum number of open connections to the jobs
	// database. Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when a database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CapacityBytes is the mailbox storage capacity the event triggers
	// measure utilization against. Default: 16106127360 (15 GiB)
	CapacityBytes int64 `yaml:"capacity_bytes"`
}

// EngineConfig contains automation engine configuration. The fields
// mirror the engine's runtime configuration; see the engine package for
// field semantics.
type EngineConfig struct {
	// TargetEmailsPerMinute sets continuous-cleanup throughput.
	// Default: 10
	TargetEmailsPerMinute int `yaml:"target_emails_per_minute"`

	// MaxConcurrentOperations caps simultaneously executing jobs.
	// Default: 3
	MaxConcurrentOperations int `yaml:"max_concurrent_operations"`

	// PauseDuringPeakHours skips continuous ticks inside the peak-hour
	// window.
	PauseDuringPeakHours bool `yaml:"pause_during_peak_hours"`

	// PeakHoursStart and PeakHoursEnd bound the peak window in local
	// hours [0,23]. Defaults: 9 and 17.
	PeakHoursStart int `yaml:"peak_hours_start"`
	PeakHoursEnd   int `yaml:"peak_hours_end"`

	// HealthPollInterval is the event-trigger polling cadence.
	// Default: 5m
	HealthPollInterval time.Duration `yaml:"health_poll_interval"`

	// StorageWarningPercent triggers a normal event cleanup. Default: 80
	StorageWarningPercent float64 `yaml:"storage_warning_percent"`

	// StorageCriticalPercent triggers an emergency cleanup. Default: 95
	StorageCriticalPercent float64 `yaml:"storage_critical_percent"`

	// QueryTimeDegradedMs marks query latency as degraded. Default: 500
	QueryTimeDegradedMs float64 `yaml:"query_time_degraded_ms"`

	// CacheHitRateDegraded marks a low cache hit rate as degraded.
	// Default: 0.5
	CacheHitRateDegraded float64 `yaml:"cache_hit_rate_degraded"`

	// EmergencyPolicyIDs are run, forced, past the critical threshold.
	EmergencyPolicyIDs []string `yaml:"emergency_policy_ids"`

	// EmergencyBatchSize is the per-policy cap for emergency runs.
	// Default: 500
	EmergencyBatchSize int `yaml:"emergency_batch_size"`

	// BatchSize is the candidates processed per batch. Default: 50
	BatchSize int `yaml:"batch_size"`

	// InterBatchDelay is the pause between batches. Default: 100ms
	InterBatchDelay time.Duration `yaml:"inter_batch_delay"`

	// ContinueOnBatchError keeps a run going after a failed batch.
	// Default: true
	ContinueOnBatchError *bool `yaml:"continue_on_batch_error"`
}

// ScoringConfig contains staleness scoring configuration.
type ScoringConfig struct {
	// Weights are the five factor weights. They should sum to 1.0; a
	// deviation is logged as a warning but accepted.
	Weights WeightsConfig `yaml:"weights"`
}

// WeightsConfig holds the staleness factor weights.
type WeightsConfig struct {
	// Age weight. Default: 0.25
	Age float64 `yaml:"age"`

	// Importance weight. Default: 0.30
	Importance float64 `yaml:"importance"`

	// Size weight. Default: 0.15
	Size float64 `yaml:"size"`

	// Spam weight. Default: 0.15
	Spam float64 `yaml:"spam"`

	// Access weight. Default: 0.15
	Access float64 `yaml:"access"`
}

// SafetyConfig contains the protection chain configuration.
type SafetyConfig struct {
	// RecentDaysFloor protects records younger than this many days.
	// Default: 7
	RecentDaysFloor int `yaml:"recent_days_floor"`

	// VIPDomains lists sender domains always worth preserving.
	VIPDomains []string `yaml:"vip_domains"`

	// LegalKeywords lists subject keywords indicating legal or
	// contractual content. Defaults: contract, agreement, legal,
	// invoice, tax.
	LegalKeywords []string `yaml:"legal_keywords"`
}

// ServerConfig contains the status HTTP server configuration.
type ServerConfig struct {
	// Enabled turns the status server on. Default: true
	Enabled *bool `yaml:"enabled"`

	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8385"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// MetricsEnabled exposes Prometheus metrics on the status server.
	// Default: true
	MetricsEnabled *bool `yaml:"metrics_enabled"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// Output is the log destination: "stdout", "stderr", or a file path.
	// Default: "stderr"
	Output string `yaml:"output"`
}
