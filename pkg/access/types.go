package access

import "time"

// AccessType classifies how a record was accessed.
type AccessType string

const (
	// AccessDirectView is a direct open of the record.
	AccessDirectView AccessType = "direct_view"

	// AccessSearchResult is an appearance in search results.
	AccessSearchResult AccessType = "search_result"

	// AccessThreadView is a view of the containing thread.
	AccessThreadView AccessType = "thread_view"
)

// AccessEvent is one append-only access log entry.
type AccessEvent struct {
	// RecordID identifies the accessed record.
	RecordID string `json:"record_id"`

	// Type is the access type.
	Type AccessType `json:"type"`

	// Timestamp is when the access happened.
	Timestamp time.Time `json:"timestamp"`

	// Query is the originating search query, if any.
	Query string `json:"query,omitempty"`
}

// SearchRecord is one append-only search log entry capturing which records
// appeared in a search and which were interacted with.
type SearchRecord struct {
	// Query is the search query text.
	Query string `json:"query"`

	// Timestamp is when the search ran.
	Timestamp time.Time `json:"timestamp"`

	// ResultIDs lists record ids returned by the search.
	ResultIDs []string `json:"result_ids"`

	// InteractedIDs lists record ids the user opened from the results.
	InteractedIDs []string `json:"interacted_ids,omitempty"`
}

// AccessSummary is the derived recency/frequency view of a single record.
// It is recomputed from the logs on demand and is not an independent
// source of truth.
type AccessSummary struct {
	// RecordID identifies the summarized record.
	RecordID string `json:"record_id"`

	// TotalAccesses is the number of access events for the record.
	TotalAccesses int `json:"total_accesses"`

	// LastAccessed is the timestamp of the most recent access event.
	// Zero when the record was never accessed.
	LastAccessed time.Time `json:"last_accessed"`

	// SearchAppearances counts searches whose results included the record.
	SearchAppearances int `json:"search_appearances"`

	// SearchInteractions counts searches where the user opened the record.
	SearchInteractions int `json:"search_interactions"`

	// AccessScore is min(1, TotalAccesses/10).
	AccessScore float64 `json:"access_score"`
}
