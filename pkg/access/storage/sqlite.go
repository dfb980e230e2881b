package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mailkeep-hq/mailkeep/pkg/access"
)

// SQLiteStore implements access.EventStore on SQLite using the pure-Go
// driver. Both logs are append-only tables; summaries are always derived,
// never stored here.
type SQLiteStore struct {
	db *sql.DB
}

// SQLiteConfig configures the SQLite event store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

const accessSchema = `
CREATE TABLE IF NOT EXISTS access_log (
	record_id  TEXT NOT NULL,
	type       TEXT NOT NULL,
	timestamp  TIMESTAMP NOT NULL,
	query      TEXT
);
CREATE INDEX IF NOT EXISTS idx_access_log_record ON access_log(record_id);

CREATE TABLE IF NOT EXISTS search_log (
	query          TEXT NOT NULL,
	timestamp      TIMESTAMP NOT NULL,
	result_ids     TEXT NOT NULL,
	interacted_ids TEXT NOT NULL
);
`

// NewSQLiteStore opens (creating if needed) the access-log database.
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(accessSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AppendAccess appends an access event.
func (s *SQLiteStore) AppendAccess(ctx context.Context, event *access.AccessEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO access_log (record_id, type, timestamp, query) VALUES (?, ?, ?, ?)`,
		event.RecordID, string(event.Type), event.Timestamp, event.Query,
	)
	if err != nil {
		return fmt.Errorf("failed to append access event: %w", err)
	}
	return nil
}

// AppendSearch appends a search record. The id lists are stored as JSON.
func (s *SQLiteStore) AppendSearch(ctx context.Context, record *access.SearchRecord) error {
	resultIDs, err := json.Marshal(record.ResultIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal result ids: %w", err)
	}
	interactedIDs, err := json.Marshal(record.InteractedIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal interacted ids: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO search_log (query, timestamp, result_ids, interacted_ids) VALUES (?, ?, ?, ?)`,
		record.Query, record.Timestamp, string(resultIDs), string(interactedIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to append search record: %w", err)
	}
	return nil
}

// AccessEvents returns all access events for a record, oldest first.
func (s *SQLiteStore) AccessEvents(ctx context.Context, recordID string) ([]*access.AccessEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT record_id, type, timestamp, query FROM access_log WHERE record_id = ? ORDER BY timestamp ASC`,
		recordID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query access events: %w", err)
	}
	defer rows.Close()

	var events []*access.AccessEvent
	for rows.Next() {
		var event access.AccessEvent
		var accessType string
		var query sql.NullString
		if err := rows.Scan(&event.RecordID, &accessType, &event.Timestamp, &query); err != nil {
			return nil, fmt.Errorf("failed to scan access event: %w", err)
		}
		event.Type = access.AccessType(accessType)
		if query.Valid {
			event.Query = query.String
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate access events: %w", err)
	}
	return events, nil
}

// Searches returns all stored search records, oldest first.
func (s *SQLiteStore) Searches(ctx context.Context) ([]*access.SearchRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query, timestamp, result_ids, interacted_ids FROM search_log ORDER BY timestamp ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query search records: %w", err)
	}
	defer rows.Close()

	var records []*access.SearchRecord
	for rows.Next() {
		var record access.SearchRecord
		var resultIDs, interactedIDs string
		if err := rows.Scan(&record.Query, &record.Timestamp, &resultIDs, &interactedIDs); err != nil {
			return nil, fmt.Errorf("failed to scan search record: %w", err)
		}
		if err := json.Unmarshal([]byte(resultIDs), &record.ResultIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result ids: %w", err)
		}
		if err := json.Unmarshal([]byte(interactedIDs), &record.InteractedIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal interacted ids: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search records: %w", err)
	}
	return records, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
