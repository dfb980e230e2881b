// Package storage provides event-store backends for the access tracker:
// an in-memory store for tests and default wiring, and a SQLite store for
// durable append-only logs.
package storage

import (
	"context"
	"sync"

	"mailkeep-hq/mailkeep/pkg/access"
)

// MemoryStore implements access.EventStore using in-memory slices.
// Intended for testing; not durable.
type MemoryStore struct {
	mu       sync.RWMutex
	events   map[string][]*access.AccessEvent
	searches []*access.SearchRecord
}

// NewMemoryStore creates a new in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[string][]*access.AccessEvent),
	}
}

// AppendAccess appends an access event.
func (s *MemoryStore) AppendAccess(ctx context.Context, event *access.AccessEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *event
	s.events[event.RecordID] = append(s.events[event.RecordID], &eventCopy)
	return nil
}

// AppendSearch appends a search record.
func (s *MemoryStore) AppendSearch(ctx context.Context, record *access.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	recordCopy.ResultIDs = append([]string(nil), record.ResultIDs...)
	recordCopy.InteractedIDs = append([]string(nil), record.InteractedIDs...)
	s.searches = append(s.searches, &recordCopy)
	return nil
}

// AccessEvents returns all access events for a record, oldest first.
func (s *MemoryStore) AccessEvents(ctx context.Context, recordID string) ([]*access.AccessEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[recordID]
	out := make([]*access.AccessEvent, len(events))
	for i, event := range events {
		eventCopy := *event
		out[i] = &eventCopy
	}
	return out, nil
}

// Searches returns all stored search records, oldest first.
func (s *MemoryStore) Searches(ctx context.Context) ([]*access.SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*access.SearchRecord, len(s.searches))
	for i, record := range s.searches {
		recordCopy := *record
		out[i] = &recordCopy
	}
	return out, nil
}
