package engine

import (
	"context"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
)

// runEventTriggerLoop polls the health source and enqueues event-driven
// cleanup jobs when thresholds are breached.
func (e *Engine) runEventTriggerLoop(ctx context.Context, cfg *Config) {
	defer e.wg.Done()

	ticker := time.NewTicker(cfg.HealthPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		e.pollHealth(ctx, cfg)
	}
}

// pollHealth takes one health snapshot and reacts to it. Storage at or
// above the critical threshold runs the emergency policies, forced, with
// large batch caps. A warning-level breach or degraded query/cache
// metrics enqueue one normal event job covering all active policies.
func (e *Engine) pollHealth(ctx context.Context, cfg *Config) {
	snapshot, err := e.health.CurrentHealth(ctx)
	if err != nil {
		e.logger.Error("health poll failed", "error", err)
		return
	}

	switch {
	case snapshot.StorageUsedPercent >= cfg.StorageCriticalPercent:
		e.logger.Warn("storage critical, starting emergency cleanup",
			"storage_used_percent", snapshot.StorageUsedPercent,
			"threshold", cfg.StorageCriticalPercent,
		)
		e.triggerEmergencyCleanup(ctx, cfg)

	case snapshot.StorageUsedPercent >= cfg.StorageWarningPercent:
		e.triggerEventCleanup(ctx, cfg, "storage_warning", snapshot.StorageUsedPercent)

	case snapshot.AvgQueryTimeMs >= cfg.QueryTimeDegradedMs,
		snapshot.CacheHitRate > 0 && snapshot.CacheHitRate <= cfg.CacheHitRateDegraded:
		e.triggerEventCleanup(ctx, cfg, "performance_degraded", snapshot.StorageUsedPercent)
	}
}

// triggerEmergencyCleanup enqueues one forced event job per configured
// emergency policy.
func (e *Engine) triggerEmergencyCleanup(ctx context.Context, cfg *Config) {
	if len(cfg.EmergencyPolicyIDs) == 0 {
		e.logger.Warn("storage critical but no emergency policies configured")
		return
	}

	for _, policyID := range cfg.EmergencyPolicyIDs {
		metadata := jobs.CleanupMetadata{
			PolicyID:         policyID,
			TriggerReason:    "storage_critical",
			Priority:         jobs.PriorityEmergency,
			BatchSize:        cfg.EmergencyBatchSize,
			TargetEmailCount: cfg.EmergencyBatchSize,
		}
		if err := e.enqueueSystemJob(ctx, jobs.TypeEventCleanup, metadata, jobs.Params{Force: true}); err != nil {
			e.logger.Error("failed to enqueue emergency job", "policy_id", policyID, "error", err)
		}
	}
}

// triggerEventCleanup enqueues a normal-priority event job covering all
// active policies, unless one is already waiting.
func (e *Engine) triggerEventCleanup(ctx context.Context, cfg *Config, reason string, storagePercent float64) {
	pending, err := e.store.ListJobs(ctx, jobs.Filter{
		Status: jobs.StatusPending,
		Type:   jobs.TypeEventCleanup,
	})
	if err != nil {
		e.logger.Error("failed to check pending event jobs", "error", err)
		return
	}
	if len(pending) > 0 {
		e.logger.Debug("event cleanup already pending, skipping", "reason", reason)
		return
	}

	e.logger.Info("health threshold breached, enqueueing event cleanup",
		"reason", reason,
		"storage_used_percent", storagePercent,
	)

	metadata := jobs.CleanupMetadata{
		TriggerReason:    reason,
		Priority:         jobs.PriorityHigh,
		BatchSize:        cfg.BatchSize,
		TargetEmailCount: cfg.TargetEmailsPerMinute,
	}
	if err := e.enqueueSystemJob(ctx, jobs.TypeEventCleanup, metadata, jobs.Params{}); err != nil {
		e.logger.Error("failed to enqueue event job", "error", err)
	}
}
