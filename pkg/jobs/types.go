package jobs

import (
	"time"

	"github.com/google/uuid"
)

// JobType identifies how a cleanup job was initiated.
type JobType string

const (
	// TypeScheduledCleanup is a job created by the cron scheduler or a
	// manual trigger against a single policy.
	TypeScheduledCleanup JobType = "scheduled_cleanup"

	// TypeContinuousCleanup is a job created by the background loop; it
	// iterates all active policies at the target throughput.
	TypeContinuousCleanup JobType = "continuous_cleanup"

	// TypeEventCleanup is a job created by a health-metric threshold
	// breach.
	TypeEventCleanup JobType = "event_cleanup"
)

// JobStatus is a job's position in its state machine.
//
// Valid transitions:
//
//	PENDING     -> IN_PROGRESS | CANCELLED
//	IN_PROGRESS -> COMPLETED | FAILED | CANCELLED
//
// COMPLETED, FAILED, and CANCELLED are terminal; a terminal job is
// immutable.
type JobStatus string

const (
	StatusPending    JobStatus = "PENDING"
	StatusInProgress JobStatus = "IN_PROGRESS"
	StatusCompleted  JobStatus = "COMPLETED"
	StatusFailed     JobStatus = "FAILED"
	StatusCancelled  JobStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the state machine allows moving from s
// to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCancelled
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// Priority classifies how urgently a job should run.
type Priority string

const (
	PriorityNormal    Priority = "normal"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

// Params are the request parameters a trigger supplies.
type Params struct {
	// DryRun computes and reports results without mutating any record.
	DryRun bool `json:"dry_run"`

	// MaxEmails overrides the policy's per-run cap when positive.
	MaxEmails int `json:"max_emails,omitempty"`

	// Force runs a disabled policy anyway.
	Force bool `json:"force,omitempty"`
}

// CleanupMetadata describes what a cleanup job is meant to act on.
type CleanupMetadata struct {
	// PolicyID is the target policy; empty for continuous and event jobs
	// that iterate all active policies.
	PolicyID string `json:"policy_id,omitempty"`

	// TriggerReason records why the job exists ("manual", "scheduled",
	// "continuous", "storage_critical", ...).
	TriggerReason string `json:"trigger_reason"`

	// Priority is the job's priority class.
	Priority Priority `json:"priority"`

	// BatchSize is the number of candidates processed per batch.
	BatchSize int `json:"batch_size"`

	// TargetEmailCount caps the records considered by this run.
	TargetEmailCount int `json:"target_email_count"`
}

// Progress is the live progress snapshot updated between batches.
type Progress struct {
	EmailsAnalyzed    int      `json:"emails_analyzed"`
	EmailsCleaned     int      `json:"emails_cleaned"`
	StorageFreedBytes int64    `json:"storage_freed_bytes"`
	PercentComplete   float64  `json:"percent_complete"`
	CurrentBatch      int      `json:"current_batch"`
	TotalBatches      int      `json:"total_batches"`
	Errors            []string `json:"errors,omitempty"`
}

// Results is the final outcome persisted when a job reaches a terminal
// state.
type Results struct {
	// Success is false when any batch recorded an error, even if the job
	// completed.
	Success bool `json:"success"`

	DryRun bool `json:"dry_run"`

	EmailsAnalyzed    int   `json:"emails_analyzed"`
	EmailsDeleted     int   `json:"emails_deleted"`
	EmailsArchived    int   `json:"emails_archived"`
	StorageFreedBytes int64 `json:"storage_freed_bytes"`

	// CandidateIDs lists the records the run acted on (or, for a dry
	// run, would have acted on).
	CandidateIDs []string `json:"candidate_ids,omitempty"`

	// ProtectedCount is how many records a safety check excluded.
	ProtectedCount int `json:"protected_count"`

	Errors []string `json:"errors,omitempty"`
}

// Job is a persisted cleanup job. The automation engine is its only
// writer; once terminal, a job never changes again.
type Job struct {
	ID     string    `json:"id"`
	Type   JobType   `json:"type"`
	Status JobStatus `json:"status"`

	Params   Params          `json:"params"`
	Metadata CleanupMetadata `json:"metadata"`
	Progress Progress        `json:"progress"`

	Results      *Results `json:"results,omitempty"`
	ErrorDetails string   `json:"error_details,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job with a fresh id.
func NewJob(jobType JobType, params Params, metadata CleanupMetadata, now time.Time) *Job {
	return &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		Params:    params,
		Metadata:  metadata,
		CreatedAt: now,
	}
}

// Terminal reports whether the job has reached a terminal status.
func (j *Job) Terminal() bool {
	return j.Status.Terminal()
}

// Start moves the job to IN_PROGRESS and stamps the start time.
func (j *Job) Start(now time.Time) error {
	if err := j.transition(StatusInProgress); err != nil {
		return err
	}
	j.StartedAt = &now
	return nil
}

// Complete moves the job to COMPLETED, attaches the results, and forces
// progress to 100%.
func (j *Job) Complete(results *Results, now time.Time) error {
	if err := j.transition(StatusCompleted); err != nil {
		return err
	}
	j.Results = results
	j.Progress.PercentComplete = 100
	j.CompletedAt = &now
	return nil
}

// Fail moves the job to FAILED with the given error detail. Partial
// results, if any, are preserved.
func (j *Job) Fail(detail string, results *Results, now time.Time) error {
	if err := j.transition(StatusFailed); err != nil {
		return err
	}
	j.ErrorDetails = detail
	j.Results = results
	j.CompletedAt = &now
	return nil
}

// Cancel moves the job to CANCELLED. Pending jobs cancel immediately;
// in-progress jobs are cancelled cooperatively at the next batch
// boundary by the executor.
func (j *Job) Cancel(now time.Time) error {
	if err := j.transition(StatusCancelled); err != nil {
		return err
	}
	j.CompletedAt = &now
	return nil
}

func (j *Job) transition(next JobStatus) error {
	if !j.Status.CanTransition(next) {
		return &InvalidTransitionError{JobID: j.ID, From: j.Status, To: next}
	}
	j.Status = next
	return nil
}

// Execution is one completed run recorded in execution history.
type Execution struct {
	ID    string  `json:"id"`
	JobID string  `json:"job_id"`
	Type  JobType `json:"type"`

	// PolicyID is empty for runs spanning all active policies.
	PolicyID string `json:"policy_id,omitempty"`

	CompletedAt       time.Time `json:"completed_at"`
	EmailsProcessed   int       `json:"emails_processed"`
	EmailsCleaned     int       `json:"emails_cleaned"`
	StorageFreedBytes int64     `json:"storage_freed_bytes"`

	// Effectiveness is cleaned/processed; zero when nothing was
	// processed.
	Effectiveness float64 `json:"effectiveness"`
}

// NewExecution builds an execution-history entry from a terminal job.
func NewExecution(job *Job, now time.Time) *Execution {
	exec := &Execution{
		ID:          uuid.New().String(),
		JobID:       job.ID,
		Type:        job.Type,
		PolicyID:    job.Metadata.PolicyID,
		CompletedAt: now,
	}
	if job.Results != nil {
		exec.EmailsProcessed = job.Results.EmailsAnalyzed
		exec.EmailsCleaned = job.Results.EmailsDeleted + job.Results.EmailsArchived
		exec.StorageFreedBytes = job.Results.StorageFreedBytes
		if exec.EmailsProcessed > 0 {
			exec.Effectiveness = float64(exec.EmailsCleaned) / float64(exec.EmailsProcessed)
		}
	}
	return exec
}
