package mailstore

import (
	"context"
	"time"
)

// StorageUsage reports the total bytes held by a record store.
type StorageUsage interface {
	StorageUsedBytes(ctx context.Context) (int64, error)
}

// StoreHealthSource derives health snapshots from the record store
// itself: a timed Count query stands in for query latency, and storage
// use is measured against a configured capacity. Providers with a real
// quota API supply their own HealthSource instead.
type StoreHealthSource struct {
	records       RecordStore
	capacityBytes int64
}

// NewStoreHealthSource creates a health source over records. Storage
// utilization is reported only when records implements StorageUsage and
// capacityBytes is positive.
func NewStoreHealthSource(records RecordStore, capacityBytes int64) *StoreHealthSource {
	return &StoreHealthSource{records: records, capacityBytes: capacityBytes}
}

// CurrentHealth times one Count query and measures storage use against
// the configured capacity.
func (s *StoreHealthSource) CurrentHealth(ctx context.Context) (*HealthSnapshot, error) {
	start := time.Now()
	if _, err := s.records.Count(ctx, &Criteria{}); err != nil {
		return nil, err
	}

	snapshot := &HealthSnapshot{
		AvgQueryTimeMs: float64(time.Since(start).Microseconds()) / 1000,
		// No cache sits in front of the store.
		CacheHitRate: 1,
	}

	if usage, ok := s.records.(StorageUsage); ok && s.capacityBytes > 0 {
		used, err := usage.StorageUsedBytes(ctx)
		if err != nil {
			return nil, err
		}
		snapshot.StorageUsedPercent = float64(used) / float64(s.capacityBytes) * 100
	}
	return snapshot, nil
}
