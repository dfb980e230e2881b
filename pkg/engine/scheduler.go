package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mailkeep-hq/mailkeep/pkg/jobs"
)

// Scheduler runs policies with a cron schedule by calling back into the
// engine's manual trigger at the scheduled times.
type Scheduler struct {
	engine  *Engine
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
	ctx     context.Context
}

// NewScheduler creates a scheduler bound to the engine.
func NewScheduler(engine *Engine) *Scheduler {
	return &Scheduler{
		engine: engine,
		cron:   cron.New(),
		logger: slog.Default().With("component", "engine.scheduler"),
	}
}

// Start registers a cron entry for every active policy with a schedule
// and starts the scheduler. Policies without a schedule are skipped.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "0 0 * * 0"    - Weekly on Sunday at midnight
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx = ctx
	scheduled, err := s.register()
	if err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	if scheduled > 0 {
		s.logger.Info("cron scheduler started", "scheduled_policies", scheduled)
	} else {
		s.logger.Debug("cron scheduler started with no scheduled policies")
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// register adds a cron entry for every active policy with a schedule.
// The caller holds the mutex.
func (s *Scheduler) register() (int, error) {
	scheduled := 0
	for _, pol := range s.engine.policies.Registry().Active() {
		if pol.Schedule == "" {
			continue
		}
		if _, err := cron.ParseStandard(pol.Schedule); err != nil {
			s.logger.Error("invalid policy schedule, skipping",
				"policy_id", pol.ID,
				"schedule", pol.Schedule,
				"error", err,
			)
			continue
		}

		policyID := pol.ID
		_, err := s.cron.AddFunc(pol.Schedule, func() {
			s.runScheduled(s.ctx, policyID)
		})
		if err != nil {
			return scheduled, fmt.Errorf("failed to schedule policy %s: %w", policyID, err)
		}
		scheduled++
	}
	return scheduled, nil
}

// Refresh swaps the cron entries for the registry's current schedules,
// so policies created or rescheduled while the engine runs take effect
// without a restart. A no-op while the scheduler is stopped; Start
// registers fresh entries.
func (s *Scheduler) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	old := s.cron
	s.cron = cron.New()
	scheduled, err := s.register()
	if err != nil {
		s.logger.Error("schedule refresh failed", "error", err)
	}
	s.cron.Start()

	go func() {
		stopCtx := old.Stop()
		<-stopCtx.Done()
	}()

	s.logger.Info("cron schedules refreshed", "scheduled_policies", scheduled)
}

// runScheduled triggers one scheduled run.
func (s *Scheduler) runScheduled(ctx context.Context, policyID string) {
	jobID, err := s.engine.TriggerManualCleanup(ctx, policyID, jobs.Params{})
	if err != nil {
		s.logger.Error("scheduled cleanup trigger failed",
			"policy_id", policyID,
			"error", err,
		)
		return
	}
	s.logger.Info("scheduled cleanup triggered",
		"policy_id", policyID,
		"job_id", jobID,
	)
}

// Stop stops the scheduler and waits for any running entries to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.cron = cron.New()
		s.logger.Info("cron scheduler stopped")
	}
}

// NextRun returns the earliest scheduled trigger time, if any.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	for _, entry := range entries[1:] {
		if entry.Next.Before(next) {
			next = entry.Next
		}
	}
	return &next
}
