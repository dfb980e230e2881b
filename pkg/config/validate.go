package config

import (
	"fmt"
	"math"
	"net"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "engine.batch_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateScoring(&cfg.Scoring)...)
	errs = append(errs, validateSafety(&cfg.Safety)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateStorage(cfg *StorageConfig) []FieldError {
	var errs []FieldError

	if cfg.JobsPath == "" {
		errs = append(errs, FieldError{
			Field:   "storage.jobs_path",
			Message: "jobs database path is required",
		})
	}
	if cfg.AccessPath == "" {
		errs = append(errs, FieldError{
			Field:   "storage.access_path",
			Message: "access database path is required",
		})
	}
	if cfg.MaxOpenConns < 1 {
		errs = append(errs, FieldError{
			Field:   "storage.max_open_conns",
			Message: "must be at least 1",
		})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.max_idle_conns",
			Message: "must not be negative",
		})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "storage.busy_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.CapacityBytes < 1 {
		errs = append(errs, FieldError{
			Field:   "storage.capacity_bytes",
			Message: "must be positive",
		})
	}

	return errs
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError

	if cfg.TargetEmailsPerMinute < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.target_emails_per_minute",
			Message: "must be at least 1",
		})
	}
	if cfg.MaxConcurrentOperations < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.max_concurrent_operations",
			Message: "must be at least 1",
		})
	}
	if cfg.PeakHoursStart < 0 || cfg.PeakHoursStart > 23 {
		errs = append(errs, FieldError{
			Field:   "engine.peak_hours_start",
			Message: "must be an hour between 0 and 23",
		})
	}
	if cfg.PeakHoursEnd < 0 || cfg.PeakHoursEnd > 23 {
		errs = append(errs, FieldError{
			Field:   "engine.peak_hours_end",
			Message: "must be an hour between 0 and 23",
		})
	}
	if cfg.HealthPollInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "engine.health_poll_interval",
			Message: "must be positive",
		})
	}
	if cfg.StorageWarningPercent <= 0 || cfg.StorageWarningPercent > 100 {
		errs = append(errs, FieldError{
			Field:   "engine.storage_warning_percent",
			Message: "must be between 0 and 100",
		})
	}
	if cfg.StorageCriticalPercent <= 0 || cfg.StorageCriticalPercent > 100 {
		errs = append(errs, FieldError{
			Field:   "engine.storage_critical_percent",
			Message: "must be between 0 and 100",
		})
	}
	if cfg.StorageCriticalPercent <= cfg.StorageWarningPercent {
		errs = append(errs, FieldError{
			Field:   "engine.storage_critical_percent",
			Message: "must be greater than storage_warning_percent",
		})
	}
	if cfg.BatchSize < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.batch_size",
			Message: "must be at least 1",
		})
	}
	if cfg.EmergencyBatchSize < 1 {
		errs = append(errs, FieldError{
			Field:   "engine.emergency_batch_size",
			Message: "must be at least 1",
		})
	}
	if cfg.InterBatchDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "engine.inter_batch_delay",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateScoring(cfg *ScoringConfig) []FieldError {
	var errs []FieldError

	w := cfg.Weights
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"age", w.Age},
		{"importance", w.Importance},
		{"size", w.Size},
		{"spam", w.Spam},
		{"access", w.Access},
	} {
		if f.value < 0 || f.value > 1 {
			errs = append(errs, FieldError{
				Field:   "scoring.weights." + f.name,
				Message: "must be between 0 and 1",
			})
		}
	}

	sum := w.Age + w.Importance + w.Size + w.Spam + w.Access
	if math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, FieldError{
			Field:   "scoring.weights",
			Message: fmt.Sprintf("weights must sum to 1.0, got %.3f", sum),
		})
	}

	return errs
}

func validateSafety(cfg *SafetyConfig) []FieldError {
	var errs []FieldError

	if cfg.RecentDaysFloor < 1 {
		errs = append(errs, FieldError{
			Field:   "safety.recent_days_floor",
			Message: "must be at least 1 day",
		})
	}
	for i, domain := range cfg.VIPDomains {
		if strings.TrimSpace(domain) == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("safety.vip_domains[%d]", i),
				Message: "domain must not be empty",
			})
		}
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled != nil && !*cfg.Enabled {
		return nil
	}

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required when the server is enabled",
		})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "must not be negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "must not be negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid level %q: must be debug, info, warn, or error", cfg.Logging.Level),
		})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid format %q: must be json or text", cfg.Logging.Format),
		})
	}

	return errs
}
