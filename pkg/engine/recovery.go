package engine

import (
	"context"
	"fmt"

	"mailkeep-hq/mailkeep/pkg/jobs"
)

// Reconcile repairs persisted job state after a restart. The in-memory
// queue does not survive the process, so:
//
//   - jobs left IN_PROGRESS were orphaned mid-run; they are marked
//     FAILED rather than retried, since a partially executed run may
//     already have deleted records and a blind retry would double-act.
//   - jobs still PENDING are re-queued; they never started, so running
//     them now is safe.
func (e *Engine) Reconcile(ctx context.Context) error {
	orphaned, err := e.store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusInProgress})
	if err != nil {
		return fmt.Errorf("failed to list in-progress jobs: %w", err)
	}

	for _, job := range orphaned {
		if err := job.Fail("orphaned by restart", job.Results, e.now()); err != nil {
			return err
		}
		if err := e.store.SaveJob(ctx, job); err != nil {
			return fmt.Errorf("failed to persist orphan reconciliation for %s: %w", job.ID, err)
		}
		e.metrics.RecordJob(string(job.Type), string(jobs.StatusFailed), 0)
		e.logger.Warn("orphaned job marked failed",
			"job_id", job.ID,
			"type", job.Type,
			"started_at", job.StartedAt,
		)
	}

	pending, err := e.store.ListJobs(ctx, jobs.Filter{Status: jobs.StatusPending})
	if err != nil {
		return fmt.Errorf("failed to list pending jobs: %w", err)
	}
	for _, job := range pending {
		e.queue.Add(job.ID, "")
	}

	if len(orphaned) > 0 || len(pending) > 0 {
		e.logger.Info("startup reconciliation completed",
			"orphaned_failed", len(orphaned),
			"pending_requeued", len(pending),
		)
	}
	return nil
}
