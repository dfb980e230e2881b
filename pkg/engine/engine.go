package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/mailstore"
	"mailkeep-hq/mailkeep/pkg/policy"
)

// Dependencies are the collaborators the engine is constructed with.
// Store, Queue, Policies, Records, and Deleter are required; Health is
// required only when event triggers run; Metrics and Logger are
// optional.
type Dependencies struct {
	Store    jobs.Store
	Queue    *jobs.Queue
	Policies *policy.Engine
	Records  mailstore.RecordStore
	Deleter  mailstore.Deleter
	Health   mailstore.HealthSource
	Metrics  *Metrics
	Logger   *slog.Logger
}

// Engine is the cleanup automation engine. It creates and executes
// cleanup jobs: on demand (manual trigger), on a schedule (cron), at a
// steady background rate (continuous loop), and in response to health
// degradation (event triggers).
type Engine struct {
	mu     sync.Mutex
	config *Config

	store    jobs.Store
	queue    *jobs.Queue
	policies *policy.Engine
	records  mailstore.RecordStore
	deleter  mailstore.Deleter
	health   mailstore.HealthSource
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time

	scheduler *Scheduler

	// cancelRequested holds ids of in-progress jobs the executor should
	// abandon at the next batch boundary.
	cancelRequested map[string]bool

	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an automation engine. A nil config uses DefaultConfig.
func New(config *Config, deps Dependencies) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine configuration: %w", err)
	}
	if deps.Store == nil || deps.Queue == nil || deps.Policies == nil {
		return nil, errors.New("engine requires a job store, a queue, and a policy engine")
	}
	if deps.Records == nil || deps.Deleter == nil {
		return nil, errors.New("engine requires a record store and a deleter")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "engine")
	}

	e := &Engine{
		config:          config,
		store:           deps.Store,
		queue:           deps.Queue,
		policies:        deps.Policies,
		records:         deps.Records,
		deleter:         deps.Deleter,
		health:          deps.Health,
		metrics:         deps.Metrics,
		logger:          logger,
		now:             time.Now,
		cancelRequested: make(map[string]bool),
	}
	e.scheduler = NewScheduler(e)
	e.policies.Registry().OnChange(e.scheduler.Refresh)

	e.queue.RegisterHandler(jobs.TypeScheduledCleanup, e.ProcessJob)
	e.queue.RegisterHandler(jobs.TypeContinuousCleanup, e.ProcessJob)
	e.queue.RegisterHandler(jobs.TypeEventCleanup, e.ProcessJob)

	return e, nil
}

// SetClock overrides the engine clock. Tests only.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Config returns the current configuration.
func (e *Engine) Config() *Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg := *e.config
	return &cfg
}

// TriggerManualCleanup validates the policy, creates a scheduled-cleanup
// job, persists it, verifies the persisted row is readable, and enqueues
// it. Returns the job id.
//
// A disabled policy is rejected unless params.Force is set.
func (e *Engine) TriggerManualCleanup(ctx context.Context, policyID string, params jobs.Params) (string, error) {
	pol, err := e.policies.Registry().Get(policyID)
	if err != nil {
		return "", err
	}
	if !pol.Enabled && !params.Force {
		return "", &policy.DisabledError{PolicyID: policyID}
	}

	batchSize := params.MaxEmails
	if batchSize <= 0 {
		batchSize = pol.Safety.MaxEmailsPerRun
	}
	if batchSize <= 0 || batchSize > defaultBatchCap {
		batchSize = defaultBatchCap
	}

	job := jobs.NewJob(jobs.TypeScheduledCleanup, params, jobs.CleanupMetadata{
		PolicyID:         policyID,
		TriggerReason:    "manual",
		Priority:         jobs.PriorityNormal,
		BatchSize:        batchSize,
		TargetEmailCount: batchSize,
	}, e.now())

	if err := e.store.SaveJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to persist job: %w", err)
	}

	// Read the row back before handing out the id; a silent write
	// failure here would strand the caller with a job that never runs.
	if _, err := e.store.GetJob(ctx, job.ID); err != nil {
		return "", fmt.Errorf("job %s not readable after persist: %w", job.ID, err)
	}

	e.queue.Add(job.ID, "")

	e.logger.Info("manual cleanup triggered",
		"job_id", job.ID,
		"policy_id", policyID,
		"dry_run", params.DryRun,
		"batch_size", batchSize,
	)
	return job.ID, nil
}

// ProcessJob loads a pending job, moves it to IN_PROGRESS, executes it,
// and drives it to a terminal state. Safe to call from the dispatch loop
// or directly.
func (e *Engine) ProcessJob(ctx context.Context, jobID string) error {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == jobs.StatusCancelled {
		e.logger.Info("skipping cancelled job", "job_id", jobID)
		return nil
	}

	started := e.now()
	if err := job.Start(started); err != nil {
		return err
	}
	if err := e.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to persist job start: %w", err)
	}

	results, execErr := e.execute(ctx, job)

	completed := e.now()
	switch {
	case errors.Is(execErr, errCancelled):
		if err := job.Cancel(completed); err != nil {
			return err
		}
		job.Results = results
		e.logger.Info("job cancelled", "job_id", jobID)
	case execErr != nil:
		if err := job.Fail(execErr.Error(), results, completed); err != nil {
			return err
		}
		e.logger.Error("job failed", "job_id", jobID, "error", execErr)
	default:
		if err := job.Complete(results, completed); err != nil {
			return err
		}
		e.logger.Info("job completed",
			"job_id", jobID,
			"success", results.Success,
			"deleted", results.EmailsDeleted,
			"archived", results.EmailsArchived,
			"storage_freed_bytes", results.StorageFreedBytes,
		)
	}

	e.clearCancelRequest(jobID)

	if err := e.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to persist terminal job: %w", err)
	}

	e.metrics.RecordJob(string(job.Type), string(job.Status), completed.Sub(started).Seconds())
	if results != nil {
		e.metrics.RecordResults(
			results.EmailsAnalyzed,
			results.EmailsDeleted,
			results.EmailsArchived,
			results.StorageFreedBytes,
			len(results.Errors),
		)
	}

	if job.Status == jobs.StatusCompleted {
		exec := jobs.NewExecution(job, completed)
		if err := e.store.AppendExecution(ctx, exec); err != nil {
			e.logger.Error("failed to record execution history", "job_id", jobID, "error", err)
		}
		if pid := job.Metadata.PolicyID; pid != "" && results != nil && !results.DryRun {
			cleaned := results.EmailsDeleted + results.EmailsArchived
			if err := e.policies.Registry().RecordRun(ctx, pid, cleaned); err != nil {
				e.logger.Error("failed to record policy run stats", "policy_id", pid, "error", err)
			}
		}
	}

	return execErr
}

// CancelJob cancels a job. Pending jobs are cancelled immediately;
// in-progress jobs are flagged and abandon work at the next batch
// boundary. Terminal jobs cannot be cancelled.
func (e *Engine) CancelJob(ctx context.Context, jobID string) error {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	switch job.Status {
	case jobs.StatusPending:
		if err := job.Cancel(e.now()); err != nil {
			return err
		}
		if err := e.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to persist cancellation: %w", err)
		}
		e.logger.Info("pending job cancelled", "job_id", jobID)
		return nil

	case jobs.StatusInProgress:
		e.mu.Lock()
		e.cancelRequested[jobID] = true
		e.mu.Unlock()
		e.logger.Info("cancellation requested for running job", "job_id", jobID)
		return nil
	}

	return &jobs.InvalidTransitionError{JobID: jobID, From: job.Status, To: jobs.StatusCancelled}
}

func (e *Engine) cancelWanted(jobID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelRequested[jobID]
}

func (e *Engine) clearCancelRequest(jobID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancelRequested, jobID)
}

// Start reconciles persisted jobs, then launches the background
// services: the dispatch loop, the continuous-cleanup loop, the
// event-trigger poller, and the cron scheduler.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return errors.New("engine already started")
	}
	e.running = true
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	cfg := *e.config
	e.mu.Unlock()

	if err := e.Reconcile(runCtx); err != nil {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		cancel()
		return fmt.Errorf("startup reconciliation failed: %w", err)
	}

	e.wg.Add(2)
	go e.runDispatchLoop(runCtx)
	go e.runContinuousLoop(runCtx, &cfg)

	if e.health != nil {
		e.wg.Add(1)
		go e.runEventTriggerLoop(runCtx, &cfg)
	}

	if err := e.scheduler.Start(runCtx); err != nil {
		e.logger.Error("cron scheduler failed to start", "error", err)
	}

	e.logger.Info("automation engine started",
		"tick_interval", cfg.tickInterval(),
		"health_poll_interval", cfg.HealthPollInterval,
		"max_concurrent_operations", cfg.MaxConcurrentOperations,
	)
	return nil
}

// Stop tears down the background services. In-flight jobs run to
// completion; only future timers are cleared.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.scheduler.Stop()
	e.wg.Wait()
	e.logger.Info("automation engine stopped")
}

// UpdateConfiguration swaps the engine configuration. Running background
// services are torn down and restarted with the new settings.
func (e *Engine) UpdateConfiguration(ctx context.Context, config *Config) error {
	if config == nil {
		return errors.New("configuration cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid engine configuration: %w", err)
	}

	e.mu.Lock()
	wasRunning := e.running
	e.mu.Unlock()

	if wasRunning {
		e.Stop()
	}

	e.mu.Lock()
	e.config = config
	e.mu.Unlock()

	e.logger.Info("engine configuration updated",
		"target_emails_per_minute", config.TargetEmailsPerMinute,
		"continue_on_batch_error", config.ContinueOnBatchError,
	)

	if wasRunning {
		return e.Start(ctx)
	}
	return nil
}
