package mailstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"mailkeep-hq/mailkeep/pkg/mail"
)

// MemoryStore implements RecordStore and RawDeleter using an in-memory map.
// This implementation is intended for testing and single-process default
// wiring; it is not durable.
type MemoryStore struct {
	records map[string]*mail.EmailRecord
	mu      sync.RWMutex

	// now allows tests to pin the clock for age-based criteria.
	now func() time.Time
}

// NewMemoryStore creates a new in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*mail.EmailRecord),
		now:     time.Now,
	}
}

// SetClock overrides the clock used for age-based criteria. Tests only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Upsert inserts or replaces a record.
func (s *MemoryStore) Upsert(ctx context.Context, record *mail.EmailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy to avoid caller mutation
	recordCopy := *record
	s.records[record.ID] = &recordCopy
	return nil
}

// Get returns a copy of the record with the given id, or nil.
func (s *MemoryStore) Get(id string) *mail.EmailRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}
	recordCopy := *record
	return &recordCopy
}

// SearchEligible returns records matching the criteria, least-important and
// oldest first.
func (s *MemoryStore) SearchEligible(ctx context.Context, criteria *Criteria, limit int) ([]*mail.EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var results []*mail.EmailRecord
	for _, record := range s.records {
		if matchesCriteria(record, criteria, now) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	// Ascending importance, then ascending age (oldest first means the
	// earliest date first within an importance level).
	sort.Slice(results, func(i, j int) bool {
		ci := mail.CompareImportance(results[i].EffectiveImportance(), results[j].EffectiveImportance())
		if ci != 0 {
			return ci < 0
		}
		return results[i].Date.Before(results[j].Date)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Count returns the number of records matching the criteria.
func (s *MemoryStore) Count(ctx context.Context, criteria *Criteria) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var count int64
	for _, record := range s.records {
		if matchesCriteria(record, criteria, now) {
			count++
		}
	}
	return count, nil
}

// MarkArchived flips the archived flag on the given records.
func (s *MemoryStore) MarkArchived(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, id := range ids {
		if record, ok := s.records[id]; ok {
			record.Archived = true
			record.ArchivedAt = now
		}
	}
	return nil
}

// BatchDelete removes a batch of records, satisfying RawDeleter so the
// memory store can back a BatchDeleter directly.
func (s *MemoryStore) BatchDelete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.records, id)
	}
	return nil
}

// StorageUsedBytes sums the sizes of records still in primary storage;
// archived records do not count against capacity.
func (s *MemoryStore) StorageUsedBytes(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, record := range s.records {
		if record.Archived {
			continue
		}
		total += record.SizeBytes
	}
	return total, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matchesCriteria evaluates the AND-combined criteria against a record.
func matchesCriteria(record *mail.EmailRecord, criteria *Criteria, now time.Time) bool {
	if criteria == nil {
		return true
	}

	if criteria.ExcludeArchived && record.Archived {
		return false
	}
	if criteria.AgeDaysMin != nil && record.AgeDays(now) < *criteria.AgeDaysMin {
		return false
	}
	if criteria.ImportanceLevelMax != "" &&
		mail.CompareImportance(record.EffectiveImportance(), criteria.ImportanceLevelMax) > 0 {
		return false
	}
	if criteria.SizeBytesMin != nil && record.SizeBytes < *criteria.SizeBytesMin {
		return false
	}
	if criteria.SpamScoreMin != nil {
		if record.Analysis == nil || record.Analysis.SpamScore < *criteria.SpamScoreMin {
			return false
		}
	}
	if criteria.PromotionalScoreMin != nil {
		if record.Analysis == nil || record.Analysis.PromotionalScore < *criteria.PromotionalScoreMin {
			return false
		}
	}
	return true
}
