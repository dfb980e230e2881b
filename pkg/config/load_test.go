package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mailkeep.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
storage:
  jobs_path: /tmp/jobs.db
engine:
  target_emails_per_minute: 30
  batch_size: 20
  emergency_policy_ids: [aggressive-cleanup]
safety:
  vip_domains: [example.com]
telemetry:
  logging:
    level: debug
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Storage.JobsPath != "/tmp/jobs.db" {
		t.Errorf("JobsPath = %q", cfg.Storage.JobsPath)
	}
	if cfg.Storage.AccessPath != DefaultAccessPath {
		t.Errorf("AccessPath should default, got %q", cfg.Storage.AccessPath)
	}
	if cfg.Engine.TargetEmailsPerMinute != 30 {
		t.Errorf("TargetEmailsPerMinute = %d, want 30", cfg.Engine.TargetEmailsPerMinute)
	}
	if cfg.Engine.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", cfg.Engine.BatchSize)
	}
	if len(cfg.Engine.EmergencyPolicyIDs) != 1 || cfg.Engine.EmergencyPolicyIDs[0] != "aggressive-cleanup" {
		t.Errorf("EmergencyPolicyIDs = %v", cfg.Engine.EmergencyPolicyIDs)
	}
	if len(cfg.Safety.VIPDomains) != 1 || cfg.Safety.VIPDomains[0] != "example.com" {
		t.Errorf("VIPDomains = %v", cfg.Safety.VIPDomains)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("logging level = %q", cfg.Telemetry.Logging.Level)
	}
	// Untouched sections still get defaults.
	if cfg.Engine.HealthPollInterval != DefaultHealthPollInterval {
		t.Errorf("HealthPollInterval = %v", cfg.Engine.HealthPollInterval)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "engine: [not a mapping")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  batch_size: -5
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for negative batch size")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  batch_size: 20
`)

	t.Setenv("MAILKEEP_ENGINE_BATCH_SIZE", "75")
	t.Setenv("MAILKEEP_ENGINE_INTER_BATCH_DELAY", "250ms")
	t.Setenv("MAILKEEP_ENGINE_CONTINUE_ON_BATCH_ERROR", "false")
	t.Setenv("MAILKEEP_SAFETY_VIP_DOMAINS", "example.com, partner.org")
	t.Setenv("MAILKEEP_SERVER_LISTEN_ADDRESS", "0.0.0.0:9090")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}

	if cfg.Engine.BatchSize != 75 {
		t.Errorf("BatchSize = %d, want env override 75", cfg.Engine.BatchSize)
	}
	if cfg.Engine.InterBatchDelay != 250*time.Millisecond {
		t.Errorf("InterBatchDelay = %v", cfg.Engine.InterBatchDelay)
	}
	if cfg.Engine.ContinueOnBatchError == nil || *cfg.Engine.ContinueOnBatchError {
		t.Error("ContinueOnBatchError should be overridden to false")
	}
	if len(cfg.Safety.VIPDomains) != 2 || cfg.Safety.VIPDomains[1] != "partner.org" {
		t.Errorf("VIPDomains = %v", cfg.Safety.VIPDomains)
	}
	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("ListenAddress = %q", cfg.Server.ListenAddress)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfigFile(t, "")

	t.Setenv("MAILKEEP_ENGINE_STORAGE_WARNING_PERCENT", "96")
	t.Setenv("MAILKEEP_ENGINE_STORAGE_CRITICAL_PERCENT", "95")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Fatal("expected re-validation failure after overrides")
	}
}
