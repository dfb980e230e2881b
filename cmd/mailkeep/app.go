package main

import (
	"context"
	"fmt"
	"log/slog"

	"mailkeep-hq/mailkeep/pkg/access"
	accessstorage "mailkeep-hq/mailkeep/pkg/access/storage"
	"mailkeep-hq/mailkeep/pkg/config"
	"mailkeep-hq/mailkeep/pkg/engine"
	"mailkeep-hq/mailkeep/pkg/jobs"
	jobstorage "mailkeep-hq/mailkeep/pkg/jobs/storage"
	"mailkeep-hq/mailkeep/pkg/mailstore"
	"mailkeep-hq/mailkeep/pkg/policy"
	"mailkeep-hq/mailkeep/pkg/staleness"
	"mailkeep-hq/mailkeep/pkg/telemetry/health"
)

// app holds the wired collaborators behind a running mailkeep process.
type app struct {
	store       *jobstorage.SQLiteStore
	accessStore *accessstorage.SQLiteStore
	tracker     *access.Tracker
	registry    *policy.Registry
	records     *mailstore.MemoryStore
	engine      *engine.Engine
	checker     *health.Checker
}

// buildApp wires storage, scoring, policies, and the automation engine
// from the loaded configuration.
func buildApp(ctx context.Context, cfg *config.Config, metrics *engine.Metrics, logger *slog.Logger) (*app, error) {
	store, err := jobstorage.NewSQLiteStore(&jobstorage.SQLiteConfig{
		Path:         cfg.Storage.JobsPath,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
		WALMode:      cfg.Storage.WALMode == nil || *cfg.Storage.WALMode,
		BusyTimeout:  cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening jobs database: %w", err)
	}

	accessStore, err := accessstorage.NewSQLiteStore(accessstorage.SQLiteConfig{
		Path:        cfg.Storage.AccessPath,
		BusyTimeout: cfg.Storage.BusyTimeout,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening access database: %w", err)
	}

	tracker := access.NewTracker(accessStore)

	registry, err := policy.NewRegistry(ctx, store)
	if err != nil {
		accessStore.Close()
		store.Close()
		return nil, fmt.Errorf("loading policies: %w", err)
	}

	scorer := staleness.NewScorer(tracker, logger)
	scorer.UpdateWeights(weightOverrides(&cfg.Scoring.Weights))

	chain := policy.NewChain(policy.ProtectionConfig{
		RecentDaysFloor: cfg.Safety.RecentDaysFloor,
		VIPDomains:      cfg.Safety.VIPDomains,
		LegalKeywords:   cfg.Safety.LegalKeywords,
	})

	// Record sources attach through the mailstore interfaces; the
	// in-memory store serves standalone deployments and tests.
	records := mailstore.NewMemoryStore()
	deleter := mailstore.NewBatchDeleter(records, mailstore.DefaultDeleteBatchSize)
	healthSrc := mailstore.NewStoreHealthSource(records, cfg.Storage.CapacityBytes)

	polEngine := policy.NewEngine(registry, scorer, tracker, records, chain, logger)

	eng, err := engine.New(engineConfigFrom(&cfg.Engine), engine.Dependencies{
		Store:    store,
		Queue:    jobs.NewQueue(),
		Policies: polEngine,
		Records:  records,
		Deleter:  deleter,
		Health:   healthSrc,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		accessStore.Close()
		store.Close()
		return nil, fmt.Errorf("creating engine: %w", err)
	}

	checker := health.New(0)
	checker.RegisterCheck("jobs_db", func(ctx context.Context) error {
		_, err := store.ListJobs(ctx, jobs.Filter{Limit: 1})
		return err
	})
	checker.RegisterCheck("access_db", func(ctx context.Context) error {
		_, err := tracker.Summary(ctx, "health-probe")
		return err
	})

	return &app{
		store:       store,
		accessStore: accessStore,
		tracker:     tracker,
		registry:    registry,
		records:     records,
		engine:      eng,
		checker:     checker,
	}, nil
}

// Close releases the databases.
func (a *app) Close() {
	if err := a.accessStore.Close(); err != nil {
		slog.Warn("closing access database", "error", err)
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("closing jobs database", "error", err)
	}
}

// engineConfigFrom maps the file configuration onto the engine's
// runtime configuration.
func engineConfigFrom(cfg *config.EngineConfig) *engine.Config {
	out := &engine.Config{
		TargetEmailsPerMinute:   cfg.TargetEmailsPerMinute,
		MaxConcurrentOperations: cfg.MaxConcurrentOperations,
		PauseDuringPeakHours:    cfg.PauseDuringPeakHours,
		PeakHoursStart:          cfg.PeakHoursStart,
		PeakHoursEnd:            cfg.PeakHoursEnd,
		HealthPollInterval:      cfg.HealthPollInterval,
		StorageWarningPercent:   cfg.StorageWarningPercent,
		StorageCriticalPercent:  cfg.StorageCriticalPercent,
		QueryTimeDegradedMs:     cfg.QueryTimeDegradedMs,
		CacheHitRateDegraded:    cfg.CacheHitRateDegraded,
		EmergencyPolicyIDs:      cfg.EmergencyPolicyIDs,
		EmergencyBatchSize:      cfg.EmergencyBatchSize,
		BatchSize:               cfg.BatchSize,
		InterBatchDelay:         cfg.InterBatchDelay,
		ContinueOnBatchError:    true,
	}
	if cfg.ContinueOnBatchError != nil {
		out.ContinueOnBatchError = *cfg.ContinueOnBatchError
	}
	return out
}

// weightOverrides converts configured weights to a scorer update.
func weightOverrides(w *config.WeightsConfig) staleness.WeightOverrides {
	return staleness.WeightOverrides{
		Age:        &w.Age,
		Importance: &w.Importance,
		Size:       &w.Size,
		Spam:       &w.Spam,
		Access:     &w.Access,
	}
}
