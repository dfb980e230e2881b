// Package engine implements the cleanup automation engine: job
// creation, execution, and the background services that keep cleanup
// running without operator involvement.
//
// # Triggers
//
// Jobs enter the system four ways. A manual trigger targets one policy.
// The cron scheduler calls the manual trigger at policy-declared times.
// The continuous loop enqueues a job covering all active policies at a
// steady target rate, skipping ticks during peak hours or while the
// queue is at capacity. The event-trigger poller watches the record
// store's health and reacts to storage pressure or degraded
// performance, escalating to forced emergency runs past the critical
// threshold.
//
// # Execution
//
// A run fetches eligible records, evaluates them through the policy
// engine, and acts on the candidates in fixed-size batches: deletions
// go to the external deletion executor, archives are flipped directly
// in the record store. Progress is persisted between batches. Batch
// failures are recorded on the job; whether the run continues past
// them is controlled by Config.ContinueOnBatchError. The deletion
// executor stops within a failing batch regardless.
//
// Dry runs compute and report the full outcome without mutating any
// record.
//
// # Durability
//
// Every job lives in the Store from the moment it is created. The
// in-memory queue is rebuilt on startup by Engine.Reconcile: pending
// jobs are re-queued and jobs orphaned mid-run are marked failed.
package engine
