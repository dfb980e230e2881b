// Package mailstore defines the external collaborator interfaces consumed
// by the cleanup core: the record store, the batched deletion executor, and
// the health/metrics source.
//
// The cleanup core depends only on these interfaces. A production
// deployment binds them to a real mail provider client; tests and the
// default wiring use MemoryStore.
//
// # Deletion Semantics
//
// BatchDeleter processes deletions in fixed-size sub-batches and stops at
// the first failing sub-batch, returning partial success plus an error
// entry naming the batch that failed. Callers that want to continue past
// failures must do so at their own layer (the automation engine exposes
// this as a configuration flag).
package mailstore
