// Package access records read and search-interaction events per record and
// derives a recency/frequency summary used by the staleness scorer.
//
// The tracker is a leaf component: it depends only on its own EventStore
// and performs no retries. Read/write errors propagate to the caller.
package access

import (
	"context"
	"fmt"
)

// EventStore persists access and search events. Both logs are append-only.
type EventStore interface {
	// AppendAccess appends an access event.
	AppendAccess(ctx context.Context, event *AccessEvent) error

	// AppendSearch appends a search record.
	AppendSearch(ctx context.Context, record *SearchRecord) error

	// AccessEvents returns all access events for a record, oldest first.
	AccessEvents(ctx context.Context, recordID string) ([]*AccessEvent, error)

	// Searches returns all stored search records, oldest first.
	Searches(ctx context.Context) ([]*SearchRecord, error)
}

// Tracker derives access summaries from the event logs.
type Tracker struct {
	store EventStore
}

// NewTracker creates a tracker over the given event store.
func NewTracker(store EventStore) *Tracker {
	return &Tracker{store: store}
}

// LogAccess appends an access event to the log.
func (t *Tracker) LogAccess(ctx context.Context, event *AccessEvent) error {
	if event == nil || event.RecordID == "" {
		return fmt.Errorf("access event must carry a record id")
	}
	return t.store.AppendAccess(ctx, event)
}

// LogSearchActivity appends a search record with its result and
// interaction id lists.
func (t *Tracker) LogSearchActivity(ctx context.Context, record *SearchRecord) error {
	if record == nil {
		return fmt.Errorf("search record cannot be nil")
	}
	return t.store.AppendSearch(ctx, record)
}

// Summary recomputes the access summary for a record from the logs.
// Returns (nil, nil) when the record has no access events and no search
// appearances.
func (t *Tracker) Summary(ctx context.Context, recordID string) (*AccessSummary, error) {
	events, err := t.store.AccessEvents(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to load access events: %w", err)
	}

	searches, err := t.store.Searches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load search records: %w", err)
	}

	summary := &AccessSummary{RecordID: recordID}

	for _, event := range events {
		summary.TotalAccesses++
		if event.Timestamp.After(summary.LastAccessed) {
			summary.LastAccessed = event.Timestamp
		}
	}

	for _, search := range searches {
		if containsID(search.ResultIDs, recordID) {
			summary.SearchAppearances++
		}
		if containsID(search.InteractedIDs, recordID) {
			summary.SearchInteractions++
		}
	}

	if summary.TotalAccesses == 0 && summary.SearchAppearances == 0 {
		return nil, nil
	}

	summary.AccessScore = float64(summary.TotalAccesses) / 10
	if summary.AccessScore > 1 {
		summary.AccessScore = 1
	}

	return summary, nil
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
