package engine

import (
	"context"
	"testing"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/mailstore"
	"mailkeep-hq/mailkeep/pkg/policy"
)

type staticHealth struct {
	snapshot mailstore.HealthSnapshot
}

func (h *staticHealth) CurrentHealth(_ context.Context) (*mailstore.HealthSnapshot, error) {
	snap := h.snapshot
	return &snap, nil
}

func TestPollHealth_EmergencyCleanup(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	pol := h.createPolicy(t, &policy.Policy{
		Name:    "emergency purge",
		Enabled: true,
		Action:  policy.ActionDelete,
	})

	cfg := DefaultConfig()
	cfg.EmergencyPolicyIDs = []string{pol.ID}
	h.engine.health = &staticHealth{snapshot: mailstore.HealthSnapshot{StorageUsedPercent: 97}}

	h.engine.pollHealth(ctx, cfg)

	pending, err := h.store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusPending, Type: jobs.TypeEventCleanup})
	if err != nil {
		t.Fatalf("ListJobs() failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("len(pending) = %d, want 1 emergency job", len(pending))
	}
	job := pending[0]
	if job.Metadata.Priority != jobs.PriorityEmergency || !job.Params.Force {
		t.Errorf("emergency job = %+v, want forced with emergency priority", job)
	}
	if job.Metadata.PolicyID != pol.ID {
		t.Errorf("PolicyID = %s, want %s", job.Metadata.PolicyID, pol.ID)
	}
	if job.Metadata.BatchSize != cfg.EmergencyBatchSize {
		t.Errorf("BatchSize = %d, want %d", job.Metadata.BatchSize, cfg.EmergencyBatchSize)
	}
}

func TestPollHealth_WarningDebounced(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	cfg := DefaultConfig()
	h.engine.health = &staticHealth{snapshot: mailstore.HealthSnapshot{StorageUsedPercent: 85}}

	h.engine.pollHealth(ctx, cfg)
	h.engine.pollHealth(ctx, cfg)

	pending, err := h.store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusPending, Type: jobs.TypeEventCleanup})
	if err != nil {
		t.Fatalf("ListJobs() failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("len(pending) = %d, want 1 (second poll debounced)", len(pending))
	}
	if pending[0].Metadata.TriggerReason != "storage_warning" {
		t.Errorf("reason = %s, want storage_warning", pending[0].Metadata.TriggerReason)
	}
	if pending[0].Metadata.PolicyID != "" {
		t.Error("warning job must cover all active policies")
	}
}

func TestPollHealth_DegradedPerformance(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	cfg := DefaultConfig()
	h.engine.health = &staticHealth{snapshot: mailstore.HealthSnapshot{
		StorageUsedPercent: 40,
		AvgQueryTimeMs:     900,
		CacheHitRate:       0.9,
	}}

	h.engine.pollHealth(ctx, cfg)

	pending, _ := h.store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusPending, Type: jobs.TypeEventCleanup})
	if len(pending) != 1 || pending[0].Metadata.TriggerReason != "performance_degraded" {
		t.Errorf("pending = %+v, want one performance_degraded job", pending)
	}
}

func TestPollHealth_HealthyNoAction(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	cfg := DefaultConfig()
	h.engine.health = &staticHealth{snapshot: mailstore.HealthSnapshot{
		StorageUsedPercent: 40,
		AvgQueryTimeMs:     50,
		CacheHitRate:       0.95,
	}}

	h.engine.pollHealth(ctx, cfg)

	pending, _ := h.store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusPending})
	if len(pending) != 0 {
		t.Errorf("len(pending) = %d, want 0 for healthy store", len(pending))
	}
}

func TestConfig_TickInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetEmailsPerMinute = 12
	if got := cfg.tickInterval(); got != 5*time.Second {
		t.Errorf("tickInterval() = %s, want 5s", got)
	}
}

func TestConfig_InPeakHours(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PauseDuringPeakHours = true
	cfg.PeakHoursStart = 9
	cfg.PeakHoursEnd = 17

	at := func(hour int) time.Time {
		return time.Date(2026, 3, 1, hour, 30, 0, 0, time.UTC)
	}

	if !cfg.inPeakHours(at(12)) {
		t.Error("noon should be inside 9-17")
	}
	if cfg.inPeakHours(at(17)) {
		t.Error("window end is exclusive")
	}
	if cfg.inPeakHours(at(3)) {
		t.Error("3 AM is outside 9-17")
	}

	// Window wrapping midnight.
	cfg.PeakHoursStart = 22
	cfg.PeakHoursEnd = 6
	if !cfg.inPeakHours(at(23)) || !cfg.inPeakHours(at(2)) {
		t.Error("wrapped window must cover late night and early morning")
	}
	if cfg.inPeakHours(at(12)) {
		t.Error("noon is outside a 22-6 window")
	}

	cfg.PauseDuringPeakHours = false
	if cfg.inPeakHours(at(23)) {
		t.Error("disabled pause never reports peak hours")
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() failed: %v", err)
	}

	bad := DefaultConfig()
	bad.StorageWarningPercent = 99
	bad.StorageCriticalPercent = 80
	if err := bad.Validate(); err == nil {
		t.Error("warning above critical must be rejected")
	}

	bad = DefaultConfig()
	bad.BatchSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero batch size must be rejected")
	}
}
