package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/policy"
)

// errCancelled aborts a run at a batch boundary after CancelJob.
var errCancelled = errors.New("job cancelled")

// execute dispatches a started job to the policy-scoped or continuous
// execution path and returns the accumulated results.
func (e *Engine) execute(ctx context.Context, job *jobs.Job) (*jobs.Results, error) {
	if job.Metadata.PolicyID != "" {
		pol, err := e.policies.Registry().Get(job.Metadata.PolicyID)
		if err != nil {
			return nil, err
		}
		if !pol.Enabled && !job.Params.Force {
			return nil, &policy.DisabledError{PolicyID: pol.ID}
		}
		return e.executePolicy(ctx, job, pol)
	}
	return e.executeContinuous(ctx, job)
}

// executePolicy runs one policy: fetch eligible records, evaluate, then
// act on the candidates in batches.
func (e *Engine) executePolicy(ctx context.Context, job *jobs.Job, pol *policy.Policy) (*jobs.Results, error) {
	limit := job.Metadata.TargetEmailCount
	if limit <= 0 {
		limit = job.Metadata.BatchSize
	}

	records, err := e.policies.EligibleRecords(ctx, pol, limit)
	if err != nil {
		return nil, err
	}

	eval, err := e.policies.EvaluatePolicies(ctx, records, []*policy.Policy{pol})
	if err != nil {
		return nil, err
	}

	results := newResults(job, eval)
	if err := e.processCandidates(ctx, job, eval.Candidates, results); err != nil {
		return results, err
	}
	results.Success = len(results.Errors) == 0
	return results, nil
}

// executeContinuous iterates all active policies, each capped at the
// per-minute target rate. Per-policy failures are recorded and do not
// stop the remaining policies.
func (e *Engine) executeContinuous(ctx context.Context, job *jobs.Job) (*jobs.Results, error) {
	cfg := e.Config()
	active := e.policies.Registry().Active()

	total := &jobs.Results{DryRun: job.Params.DryRun}
	for _, pol := range active {
		if e.cancelWanted(job.ID) {
			return total, errCancelled
		}

		records, err := e.policies.EligibleRecords(ctx, pol, cfg.TargetEmailsPerMinute)
		if err != nil {
			total.Errors = append(total.Errors, fmt.Sprintf("policy %s: %v", pol.ID, err))
			continue
		}

		eval, err := e.policies.EvaluatePolicies(ctx, records, []*policy.Policy{pol})
		if err != nil {
			total.Errors = append(total.Errors, fmt.Sprintf("policy %s: %v", pol.ID, err))
			continue
		}

		results := newResults(job, eval)
		err = e.processCandidates(ctx, job, eval.Candidates, results)
		mergeResults(total, results)
		if errors.Is(err, errCancelled) {
			return total, errCancelled
		}
		if err != nil {
			total.Errors = append(total.Errors, fmt.Sprintf("policy %s: %v", pol.ID, err))
		}
	}

	total.Success = len(total.Errors) == 0
	return total, nil
}

func newResults(job *jobs.Job, eval *policy.Evaluation) *jobs.Results {
	results := &jobs.Results{
		DryRun:         job.Params.DryRun,
		EmailsAnalyzed: eval.Summary.TotalEvaluated,
		ProtectedCount: eval.Summary.ProtectedCount,
	}
	for _, c := range eval.Candidates {
		results.CandidateIDs = append(results.CandidateIDs, c.Record.ID)
	}
	return results
}

func mergeResults(total, part *jobs.Results) {
	total.EmailsAnalyzed += part.EmailsAnalyzed
	total.EmailsDeleted += part.EmailsDeleted
	total.EmailsArchived += part.EmailsArchived
	total.StorageFreedBytes += part.StorageFreedBytes
	total.ProtectedCount += part.ProtectedCount
	total.CandidateIDs = append(total.CandidateIDs, part.CandidateIDs...)
	total.Errors = append(total.Errors, part.Errors...)
}

// processCandidates acts on candidates in fixed-size batches, updating
// job progress between batches. In dry-run mode it reports the would-be
// outcome without touching the record store.
func (e *Engine) processCandidates(ctx context.Context, job *jobs.Job, candidates []*policy.Candidate, results *jobs.Results) error {
	cfg := e.Config()

	for _, c := range candidates {
		e.metrics.ObserveStaleness(c.Score.TotalScore)
	}

	if job.Params.DryRun {
		for _, c := range candidates {
			switch c.Action {
			case policy.ActionDelete:
				results.EmailsDeleted++
			case policy.ActionArchive:
				results.EmailsArchived++
			}
			results.StorageFreedBytes += c.Record.SizeBytes
		}
		return nil
	}

	batchSize := job.Metadata.BatchSize
	if batchSize <= 0 {
		batchSize = cfg.BatchSize
	}
	totalBatches := (len(candidates) + batchSize - 1) / batchSize

	for start := 0; start < len(candidates); start += batchSize {
		if e.cancelWanted(job.ID) {
			return errCancelled
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batchNum := start/batchSize + 1
		batch := candidates[start:end]

		job.Progress.CurrentBatch = batchNum
		job.Progress.TotalBatches = totalBatches
		job.Progress.EmailsAnalyzed = results.EmailsAnalyzed
		job.Progress.PercentComplete = float64(start) / float64(len(candidates)) * 100
		if err := e.store.SaveJob(ctx, job); err != nil {
			e.logger.Error("failed to persist progress", "job_id", job.ID, "error", err)
		}

		batchErr := e.processBatch(ctx, batch, results)
		if batchErr != nil {
			msg := fmt.Sprintf("batch %d/%d: %v", batchNum, totalBatches, batchErr)
			results.Errors = append(results.Errors, msg)
			job.Progress.Errors = append(job.Progress.Errors, msg)
			e.logger.Error("cleanup batch failed",
				"job_id", job.ID,
				"batch", batchNum,
				"total_batches", totalBatches,
				"error", batchErr,
			)
			if !cfg.ContinueOnBatchError {
				return nil
			}
		}

		job.Progress.EmailsCleaned = results.EmailsDeleted + results.EmailsArchived
		job.Progress.StorageFreedBytes = results.StorageFreedBytes

		// Yield between batches.
		if cfg.InterBatchDelay > 0 && end < len(candidates) {
			select {
			case <-time.After(cfg.InterBatchDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}

// processBatch splits one batch by action, submits deletions to the
// deletion executor, and archives the rest directly in the record store.
func (e *Engine) processBatch(ctx context.Context, batch []*policy.Candidate, results *jobs.Results) error {
	var deleteCandidates []*policy.Candidate
	var archiveIDs []string
	var archiveBytes int64

	for _, c := range batch {
		switch c.Action {
		case policy.ActionDelete:
			deleteCandidates = append(deleteCandidates, c)
		case policy.ActionArchive:
			archiveIDs = append(archiveIDs, c.Record.ID)
			archiveBytes += c.Record.SizeBytes
		}
	}

	if len(deleteCandidates) > 0 {
		ids := make([]string, len(deleteCandidates))
		for i, c := range deleteCandidates {
			ids[i] = c.Record.ID
		}

		res, err := e.deleter.DeleteRecords(ctx, ids)
		if err != nil {
			return fmt.Errorf("deletion failed: %w", err)
		}

		results.EmailsDeleted += res.Deleted
		// The deleter stops at its first failing sub-batch, so the
		// deleted records are a prefix of the submitted ids.
		for _, c := range deleteCandidates[:res.Deleted] {
			results.StorageFreedBytes += c.Record.SizeBytes
		}
		if len(res.Errors) > 0 {
			return fmt.Errorf("deletion stopped early: %s", res.Errors[0].Message)
		}
	}

	if len(archiveIDs) > 0 {
		if err := e.records.MarkArchived(ctx, archiveIDs); err != nil {
			return fmt.Errorf("archive failed: %w", err)
		}
		results.EmailsArchived += len(archiveIDs)
		results.StorageFreedBytes += archiveBytes
	}

	return nil
}
