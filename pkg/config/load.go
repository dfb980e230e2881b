package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention MAILKEEP_SECTION_FIELD (e.g., MAILKEEP_ENGINE_BATCH_SIZE) and
// always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format MAILKEEP_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Storage overrides
	if val := os.Getenv("MAILKEEP_STORAGE_JOBS_PATH"); val != "" {
		cfg.Storage.JobsPath = val
	}
	if val := os.Getenv("MAILKEEP_STORAGE_ACCESS_PATH"); val != "" {
		cfg.Storage.AccessPath = val
	}
	if val := os.Getenv("MAILKEEP_STORAGE_MAX_OPEN_CONNS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Storage.MaxOpenConns = i
		}
	}
	if val := os.Getenv("MAILKEEP_STORAGE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.BusyTimeout = d
		}
	}

	// Engine overrides
	if val := os.Getenv("MAILKEEP_ENGINE_TARGET_EMAILS_PER_MINUTE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.TargetEmailsPerMinute = i
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_MAX_CONCURRENT_OPERATIONS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.MaxConcurrentOperations = i
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_PAUSE_DURING_PEAK_HOURS"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.PauseDuringPeakHours = b
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_HEALTH_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.HealthPollInterval = d
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_STORAGE_WARNING_PERCENT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Engine.StorageWarningPercent = f
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_STORAGE_CRITICAL_PERCENT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Engine.StorageCriticalPercent = f
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_EMERGENCY_POLICY_IDS"); val != "" {
		cfg.Engine.EmergencyPolicyIDs = splitList(val)
	}
	if val := os.Getenv("MAILKEEP_ENGINE_BATCH_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.BatchSize = i
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_INTER_BATCH_DELAY"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.InterBatchDelay = d
		}
	}
	if val := os.Getenv("MAILKEEP_ENGINE_CONTINUE_ON_BATCH_ERROR"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.ContinueOnBatchError = &b
		}
	}

	// Safety overrides
	if val := os.Getenv("MAILKEEP_SAFETY_RECENT_DAYS_FLOOR"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Safety.RecentDaysFloor = i
		}
	}
	if val := os.Getenv("MAILKEEP_SAFETY_VIP_DOMAINS"); val != "" {
		cfg.Safety.VIPDomains = splitList(val)
	}

	// Server overrides
	if val := os.Getenv("MAILKEEP_SERVER_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Server.Enabled = &b
		}
	}
	if val := os.Getenv("MAILKEEP_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}

	// Telemetry overrides
	if val := os.Getenv("MAILKEEP_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("MAILKEEP_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("MAILKEEP_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.MetricsEnabled = &b
		}
	}
}

// splitList parses a comma-separated environment value into a slice,
// trimming whitespace and dropping empty entries.
func splitList(val string) []string {
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
