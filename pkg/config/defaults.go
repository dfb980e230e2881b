package config

import "time"

// Default values for configuration fields.
const (
	// Storage defaults
	DefaultJobsPath     = "data/mailkeep.db"
	DefaultAccessPath   = "data/access.db"
	DefaultMaxOpenConns = 10
	DefaultMaxIdleConns = 5
	DefaultWALMode      = true
	DefaultBusyTimeout  = 5 * time.Second

	// DefaultCapacityBytes is 15 GiB, a common mailbox quota.
	DefaultCapacityBytes = 15 << 30

	// Engine defaults
	DefaultTargetEmailsPerMinute   = 10
	DefaultMaxConcurrentOperations = 3
	DefaultPeakHoursStart          = 9
	DefaultPeakHoursEnd            = 17
	DefaultHealthPollInterval      = 5 * time.Minute
	DefaultStorageWarningPercent   = 80.0
	DefaultStorageCriticalPercent  = 95.0
	DefaultQueryTimeDegradedMs     = 500.0
	DefaultCacheHitRateDegraded    = 0.5
	DefaultEmergencyBatchSize      = 500
	DefaultBatchSize               = 50
	DefaultInterBatchDelay         = 100 * time.Millisecond
	DefaultContinueOnBatchError    = true

	// Scoring defaults
	DefaultWeightAge        = 0.25
	DefaultWeightImportance = 0.30
	DefaultWeightSize       = 0.15
	DefaultWeightSpam       = 0.15
	DefaultWeightAccess     = 0.15

	// Safety defaults
	DefaultRecentDaysFloor = 7

	// Server defaults
	DefaultServerEnabled   = true
	DefaultListenAddress   = "127.0.0.1:8385"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultLoggingOutput  = "stderr"
	DefaultMetricsEnabled = true
)

// DefaultLegalKeywords are the subject keywords that mark a record as
// legally relevant when no override is configured.
var DefaultLegalKeywords = []string{"contract", "agreement", "legal", "invoice", "tax"}

// ApplyDefaults fills zero-valued fields with their documented defaults.
// It never overrides a value the user has set explicitly; *bool fields
// distinguish "not set" from "set to false".
func ApplyDefaults(cfg *Config) {
	// Storage defaults
	if cfg.Storage.JobsPath == "" {
		cfg.Storage.JobsPath = DefaultJobsPath
	}
	if cfg.Storage.AccessPath == "" {
		cfg.Storage.AccessPath = DefaultAccessPath
	}
	if cfg.Storage.MaxOpenConns == 0 {
		cfg.Storage.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.Storage.MaxIdleConns == 0 {
		cfg.Storage.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Storage.WALMode == nil {
		cfg.Storage.WALMode = boolPtr(DefaultWALMode)
	}
	if cfg.Storage.CapacityBytes == 0 {
		cfg.Storage.CapacityBytes = DefaultCapacityBytes
	}

	// Engine defaults
	if cfg.Engine.TargetEmailsPerMinute == 0 {
		cfg.Engine.TargetEmailsPerMinute = DefaultTargetEmailsPerMinute
	}
	if cfg.Engine.MaxConcurrentOperations == 0 {
		cfg.Engine.MaxConcurrentOperations = DefaultMaxConcurrentOperations
	}
	if cfg.Engine.PeakHoursStart == 0 && cfg.Engine.PeakHoursEnd == 0 {
		cfg.Engine.PeakHoursStart = DefaultPeakHoursStart
		cfg.Engine.PeakHoursEnd = DefaultPeakHoursEnd
	}
	if cfg.Engine.HealthPollInterval == 0 {
		cfg.Engine.HealthPollInterval = DefaultHealthPollInterval
	}
	if cfg.Engine.StorageWarningPercent == 0 {
		cfg.Engine.StorageWarningPercent = DefaultStorageWarningPercent
	}
	if cfg.Engine.StorageCriticalPercent == 0 {
		cfg.Engine.StorageCriticalPercent = DefaultStorageCriticalPercent
	}
	if cfg.Engine.QueryTimeDegradedMs == 0 {
		cfg.Engine.QueryTimeDegradedMs = DefaultQueryTimeDegradedMs
	}
	if cfg.Engine.CacheHitRateDegraded == 0 {
		cfg.Engine.CacheHitRateDegraded = DefaultCacheHitRateDegraded
	}
	if cfg.Engine.EmergencyBatchSize == 0 {
		cfg.Engine.EmergencyBatchSize = DefaultEmergencyBatchSize
	}
	if cfg.Engine.BatchSize == 0 {
		cfg.Engine.BatchSize = DefaultBatchSize
	}
	if cfg.Engine.InterBatchDelay == 0 {
		cfg.Engine.InterBatchDelay = DefaultInterBatchDelay
	}
	if cfg.Engine.ContinueOnBatchError == nil {
		cfg.Engine.ContinueOnBatchError = boolPtr(DefaultContinueOnBatchError)
	}

	// Scoring defaults: weights are all-or-nothing. A partially set
	// weight block would silently skew scores, so defaults apply only
	// when every weight is zero.
	w := &cfg.Scoring.Weights
	if w.Age == 0 && w.Importance == 0 && w.Size == 0 && w.Spam == 0 && w.Access == 0 {
		w.Age = DefaultWeightAge
		w.Importance = DefaultWeightImportance
		w.Size = DefaultWeightSize
		w.Spam = DefaultWeightSpam
		w.Access = DefaultWeightAccess
	}

	// Safety defaults
	if cfg.Safety.RecentDaysFloor == 0 {
		cfg.Safety.RecentDaysFloor = DefaultRecentDaysFloor
	}
	if len(cfg.Safety.LegalKeywords) == 0 {
		cfg.Safety.LegalKeywords = append([]string(nil), DefaultLegalKeywords...)
	}

	// Server defaults
	if cfg.Server.Enabled == nil {
		cfg.Server.Enabled = boolPtr(DefaultServerEnabled)
	}
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Logging.Output == "" {
		cfg.Telemetry.Logging.Output = DefaultLoggingOutput
	}
	if cfg.Telemetry.MetricsEnabled == nil {
		cfg.Telemetry.MetricsEnabled = boolPtr(DefaultMetricsEnabled)
	}
}

func boolPtr(v bool) *bool { return &v }
