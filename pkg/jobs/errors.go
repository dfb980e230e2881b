package jobs

import "fmt"

// NotFoundError indicates a job id with no persisted row.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.JobID)
}

// InvalidTransitionError indicates a state-machine violation, including
// any attempt to mutate a terminal job.
type InvalidTransitionError struct {
	JobID string
	From  JobStatus
	To    JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("job %s: invalid transition %s -> %s", e.JobID, e.From, e.To)
}

// HandlerNotFoundError indicates a job type with no registered handler.
type HandlerNotFoundError struct {
	Type JobType
}

func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("no handler registered for job type %s", e.Type)
}

// StorageError wraps a failure in the job store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("job storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a StorageError.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}
