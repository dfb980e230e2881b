package engine

import (
	"context"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
)

// dispatchPollInterval is how often the dispatch loop polls the queue
// when idle.
const dispatchPollInterval = time.Second

// runDispatchLoop drains the queue, running each job's registered
// handler. At most MaxConcurrentOperations jobs execute at once.
func (e *Engine) runDispatchLoop(ctx context.Context) {
	defer e.wg.Done()

	cfg := e.Config()
	sem := make(chan struct{}, cfg.MaxConcurrentOperations)

	ticker := time.NewTicker(dispatchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for {
			jobID, ok := e.queue.Retrieve("")
			if !ok {
				break
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				// Put the job back; the durable row survives anyway.
				e.queue.Add(jobID, "")
				return
			}

			e.wg.Add(1)
			go func(id string) {
				defer e.wg.Done()
				defer func() { <-sem }()

				if err := e.dispatch(ctx, id); err != nil {
					e.logger.Error("job dispatch failed", "job_id", id, "error", err)
				}
			}(jobID)
		}
	}
}

// dispatch runs the handler registered for the job's type.
func (e *Engine) dispatch(ctx context.Context, jobID string) error {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	handler, err := e.queue.HandlerFor(job.Type)
	if err != nil {
		return err
	}
	return handler(ctx, jobID)
}

// runContinuousLoop enqueues continuous-cleanup jobs at the configured
// target rate. Ticks are skipped during peak hours and while the queue
// already holds max_concurrent_operations jobs.
func (e *Engine) runContinuousLoop(ctx context.Context, cfg *Config) {
	defer e.wg.Done()

	ticker := time.NewTicker(cfg.tickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if cfg.inPeakHours(e.now()) {
			e.metrics.RecordSkippedTick("peak_hours")
			e.logger.Debug("continuous tick skipped: peak hours")
			continue
		}
		if e.queue.Len() >= cfg.MaxConcurrentOperations {
			e.metrics.RecordSkippedTick("queue_full")
			e.logger.Debug("continuous tick skipped: queue at capacity", "queued", e.queue.Len())
			continue
		}

		if err := e.enqueueSystemJob(ctx, jobs.TypeContinuousCleanup, jobs.CleanupMetadata{
			TriggerReason:    "continuous",
			Priority:         jobs.PriorityNormal,
			BatchSize:        cfg.BatchSize,
			TargetEmailCount: cfg.TargetEmailsPerMinute,
		}, jobs.Params{}); err != nil {
			e.logger.Error("failed to enqueue continuous job", "error", err)
		}
	}
}

// enqueueSystemJob persists a new job and puts it on the system list.
func (e *Engine) enqueueSystemJob(ctx context.Context, jobType jobs.JobType, metadata jobs.CleanupMetadata, params jobs.Params) error {
	job := jobs.NewJob(jobType, params, metadata, e.now())
	if err := e.store.SaveJob(ctx, job); err != nil {
		return err
	}
	e.queue.Add(job.ID, "")
	e.logger.Debug("job enqueued",
		"job_id", job.ID,
		"type", jobType,
		"reason", metadata.TriggerReason,
	)
	return nil
}
