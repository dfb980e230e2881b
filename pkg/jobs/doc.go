// Package jobs provides the cleanup job model: the job state machine,
// the in-memory queue, and the persistence interface.
//
// # Durability Model
//
// The Queue holds job ids only and is not persisted; the Store is the
// source of truth. After a restart the queue starts empty, and a
// reconciliation pass over the store detects jobs left IN_PROGRESS by
// the previous process.
//
// # State Machine
//
// Jobs move PENDING -> IN_PROGRESS -> COMPLETED | FAILED | CANCELLED.
// All three end states are terminal; any mutation of a terminal job
// yields an InvalidTransitionError.
package jobs
