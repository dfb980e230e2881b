package jobs

import (
	"context"

	"mailkeep-hq/mailkeep/pkg/policy"
)

// Filter narrows job listings. Zero values match everything.
type Filter struct {
	Status JobStatus
	Type   JobType

	// Limit caps the number of jobs returned; 0 means no cap.
	Limit int
}

// Store persists jobs, policies, and execution history. It subsumes
// policy.Store so one database can back both the job engine and the
// policy registry.
//
// Implementations must treat SaveJob as an upsert keyed by job id.
type Store interface {
	policy.Store

	// SaveJob inserts or replaces the job row.
	SaveJob(ctx context.Context, job *Job) error

	// GetJob loads one job. Returns *NotFoundError for unknown ids.
	GetJob(ctx context.Context, id string) (*Job, error)

	// ListJobs returns jobs matching the filter, newest first.
	ListJobs(ctx context.Context, filter Filter) ([]*Job, error)

	// AppendExecution records a completed run in execution history.
	AppendExecution(ctx context.Context, exec *Execution) error

	// ListExecutions returns history entries, newest first. policyID ""
	// matches all policies.
	ListExecutions(ctx context.Context, policyID string, limit int) ([]*Execution, error)

	// Close releases underlying resources.
	Close() error
}
