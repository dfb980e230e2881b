package mailstore

import (
	"context"

	"mailkeep-hq/mailkeep/pkg/mail"
)

// Criteria describes a record-store query derived from policy criteria.
// All fields are optional; nil/zero fields are not applied. Fields are
// AND-combined by the store.
type Criteria struct {
	// AgeDaysMin selects records at least this many days old.
	AgeDaysMin *int

	// ImportanceLevelMax selects records whose importance level is at most
	// this level on the ordinal scale low < medium < high.
	ImportanceLevelMax mail.ImportanceLevel

	// SizeBytesMin selects records at least this large.
	SizeBytesMin *int64

	// SpamScoreMin selects records with at least this spam score.
	SpamScoreMin *float64

	// PromotionalScoreMin selects records with at least this promotional score.
	PromotionalScoreMin *float64

	// ExcludeArchived excludes records already archived.
	ExcludeArchived bool
}

// RecordStore is the record collection collaborator. Transactional
// semantics are the store's responsibility.
type RecordStore interface {
	// SearchEligible returns records matching the criteria, ordered by
	// ascending importance then ascending age (least important, oldest
	// first). limit <= 0 means no limit.
	SearchEligible(ctx context.Context, criteria *Criteria, limit int) ([]*mail.EmailRecord, error)

	// MarkArchived flips the archived flag on the given records.
	MarkArchived(ctx context.Context, ids []string) error

	// Count returns the number of records matching the criteria.
	Count(ctx context.Context, criteria *Criteria) (int64, error)

	// Upsert inserts or replaces a record.
	Upsert(ctx context.Context, record *mail.EmailRecord) error
}

// BatchError describes a failed deletion sub-batch.
type BatchError struct {
	// Batch is the 1-based sub-batch number that failed.
	Batch int `json:"batch"`

	// Message describes the failure.
	Message string `json:"message"`
}

// DeleteResult reports the outcome of a batched deletion, including
// partial success when a sub-batch fails.
type DeleteResult struct {
	// Deleted is the number of records successfully deleted.
	Deleted int `json:"deleted"`

	// Errors lists sub-batch failures. Non-empty means the deletion
	// stopped early.
	Errors []BatchError `json:"errors,omitempty"`
}

// Deleter is the destructive-action collaborator.
type Deleter interface {
	// DeleteRecords deletes the given records, batching internally.
	// A nil error with a non-empty result.Errors indicates partial success.
	DeleteRecords(ctx context.Context, ids []string) (*DeleteResult, error)
}

// HealthSnapshot is a point-in-time view of record-store health used by
// event triggers.
type HealthSnapshot struct {
	// StorageUsedPercent is storage utilization in [0,100].
	StorageUsedPercent float64 `json:"storage_used_percent"`

	// AvgQueryTimeMs is the recent average query latency in milliseconds.
	AvgQueryTimeMs float64 `json:"average_query_time_ms"`

	// CacheHitRate is the recent cache hit rate in [0,1].
	CacheHitRate float64 `json:"cache_hit_rate"`
}

// HealthSource provides health snapshots for event-triggered cleanup.
type HealthSource interface {
	CurrentHealth(ctx context.Context) (*HealthSnapshot, error)
}
