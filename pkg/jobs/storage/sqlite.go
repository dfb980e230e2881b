package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mailkeep-hq/mailkeep/pkg/jobs"
	"mailkeep-hq/mailkeep/pkg/policy"
)

// SQLiteConfig contains configuration for the SQLite job store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/mailkeep.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements jobs.Store using SQLite. One database file
// backs jobs, cleanup metadata, policies, and execution history.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite job store. It initializes the
// database schema and enables WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "jobs.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, jobs.NewStorageError("open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite job store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return jobs.NewStorageError("enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return jobs.NewStorageError("set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return jobs.NewStorageError("create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return jobs.NewStorageError("insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return jobs.NewStorageError("get_schema_version", err)
	}
	if version != SchemaVersion {
		return jobs.NewStorageError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// SaveJob inserts or replaces the job row and its cleanup metadata.
func (s *SQLiteStore) SaveJob(ctx context.Context, job *jobs.Job) error {
	progressJSON, err := json.Marshal(job.Progress)
	if err != nil {
		return jobs.NewStorageError("marshal_progress", err)
	}

	var resultsJSON interface{}
	if job.Results != nil {
		raw, err := json.Marshal(job.Results)
		if err != nil {
			return jobs.NewStorageError("marshal_results", err)
		}
		resultsJSON = string(raw)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return jobs.NewStorageError("begin_tx", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO jobs (
			id, type, status,
			dry_run, max_emails, force,
			progress, results, error_details,
			created_at, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		job.ID, string(job.Type), string(job.Status),
		job.Params.DryRun, job.Params.MaxEmails, job.Params.Force,
		string(progressJSON), resultsJSON, nullable(job.ErrorDetails),
		job.CreatedAt, nullableTime(job.StartedAt), nullableTime(job.CompletedAt),
	)
	if err != nil {
		return jobs.NewStorageError("save_job", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO cleanup_job_metadata (
			job_id, policy_id, trigger_reason, priority, batch_size, target_email_count
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		job.ID, nullable(job.Metadata.PolicyID), job.Metadata.TriggerReason,
		string(job.Metadata.Priority), job.Metadata.BatchSize, job.Metadata.TargetEmailCount,
	)
	if err != nil {
		return jobs.NewStorageError("save_job_metadata", err)
	}

	if err := tx.Commit(); err != nil {
		return jobs.NewStorageError("commit", err)
	}
	return nil
}

const jobColumns = `
	j.id, j.type, j.status,
	j.dry_run, j.max_emails, j.force,
	j.progress, j.results, j.error_details,
	j.created_at, j.started_at, j.completed_at,
	m.policy_id, m.trigger_reason, m.priority, m.batch_size, m.target_email_count
`

// GetJob loads one job with its cleanup metadata.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*jobs.Job, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs j
		JOIN cleanup_job_metadata m ON m.job_id = j.id
		WHERE j.id = ?
	`, id)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, &jobs.NotFoundError{JobID: id}
	}
	if err != nil {
		return nil, jobs.NewStorageError("get_job", err)
	}
	return job, nil
}

// ListJobs returns jobs matching the filter, newest first.
func (s *SQLiteStore) ListJobs(ctx context.Context, filter jobs.Filter) ([]*jobs.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs j
		JOIN cleanup_job_metadata m ON m.job_id = j.id
		WHERE 1=1
	`
	var args []interface{}
	if filter.Status != "" {
		query += " AND j.status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.Type != "" {
		query += " AND j.type = ?"
		args = append(args, string(filter.Type))
	}
	query += " ORDER BY j.created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, jobs.NewStorageError("list_jobs", err)
	}
	defer rows.Close()

	var result []*jobs.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, jobs.NewStorageError("scan_job", err)
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, jobs.NewStorageError("list_jobs", err)
	}
	return result, nil
}

// AppendExecution records a completed run in execution history.
func (s *SQLiteStore) AppendExecution(ctx context.Context, exec *jobs.Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_history (
			id, job_id, type, policy_id, completed_at,
			emails_processed, emails_cleaned, storage_freed_bytes, effectiveness
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		exec.ID, exec.JobID, string(exec.Type), nullable(exec.PolicyID), exec.CompletedAt,
		exec.EmailsProcessed, exec.EmailsCleaned, exec.StorageFreedBytes, exec.Effectiveness,
	)
	if err != nil {
		return jobs.NewStorageError("append_execution", err)
	}
	return nil
}

// ListExecutions returns history entries, newest first.
func (s *SQLiteStore) ListExecutions(ctx context.Context, policyID string, limit int) ([]*jobs.Execution, error) {
	query := `
		SELECT id, job_id, type, policy_id, completed_at,
		       emails_processed, emails_cleaned, storage_freed_bytes, effectiveness
		FROM execution_history
		WHERE 1=1
	`
	var args []interface{}
	if policyID != "" {
		query += " AND policy_id = ?"
		args = append(args, policyID)
	}
	query += " ORDER BY completed_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, jobs.NewStorageError("list_executions", err)
	}
	defer rows.Close()

	var result []*jobs.Execution
	for rows.Next() {
		var (
			exec     jobs.Execution
			execType string
			policyID sql.NullString
		)
		err := rows.Scan(
			&exec.ID, &exec.JobID, &execType, &policyID, &exec.CompletedAt,
			&exec.EmailsProcessed, &exec.EmailsCleaned, &exec.StorageFreedBytes, &exec.Effectiveness,
		)
		if err != nil {
			return nil, jobs.NewStorageError("scan_execution", err)
		}
		exec.Type = jobs.JobType(execType)
		exec.PolicyID = policyID.String
		result = append(result, &exec)
	}
	if err := rows.Err(); err != nil {
		return nil, jobs.NewStorageError("list_executions", err)
	}
	return result, nil
}

// SavePolicy inserts or replaces a policy definition.
func (s *SQLiteStore) SavePolicy(ctx context.Context, p *policy.Policy) error {
	definition, err := json.Marshal(p)
	if err != nil {
		return jobs.NewStorageError("marshal_policy", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO cleanup_policies (
			id, name, enabled, priority, definition, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		p.ID, p.Name, p.Enabled, p.Priority, string(definition), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return jobs.NewStorageError("save_policy", err)
	}
	return nil
}

// DeletePolicy removes a policy definition.
func (s *SQLiteStore) DeletePolicy(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cleanup_policies WHERE id = ?", id)
	if err != nil {
		return jobs.NewStorageError("delete_policy", err)
	}
	return nil
}

// LoadPolicies returns all persisted policy definitions.
func (s *SQLiteStore) LoadPolicies(ctx context.Context) ([]*policy.Policy, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT definition FROM cleanup_policies")
	if err != nil {
		return nil, jobs.NewStorageError("load_policies", err)
	}
	defer rows.Close()

	var policies []*policy.Policy
	for rows.Next() {
		var definition string
		if err := rows.Scan(&definition); err != nil {
			return nil, jobs.NewStorageError("scan_policy", err)
		}
		var p policy.Policy
		if err := json.Unmarshal([]byte(definition), &p); err != nil {
			return nil, jobs.NewStorageError("unmarshal_policy", err)
		}
		policies = append(policies, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, jobs.NewStorageError("load_policies", err)
	}
	return policies, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return jobs.NewStorageError("close", err)
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*jobs.Job, error) {
	var (
		job          jobs.Job
		jobType      string
		status       string
		progressJSON string
		resultsJSON  sql.NullString
		errorDetails sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		policyID     sql.NullString
		priority     string
	)

	err := row.Scan(
		&job.ID, &jobType, &status,
		&job.Params.DryRun, &job.Params.MaxEmails, &job.Params.Force,
		&progressJSON, &resultsJSON, &errorDetails,
		&job.CreatedAt, &startedAt, &completedAt,
		&policyID, &job.Metadata.TriggerReason, &priority,
		&job.Metadata.BatchSize, &job.Metadata.TargetEmailCount,
	)
	if err != nil {
		return nil, err
	}

	job.Type = jobs.JobType(jobType)
	job.Status = jobs.JobStatus(status)
	job.Metadata.PolicyID = policyID.String
	job.Metadata.Priority = jobs.Priority(priority)
	job.ErrorDetails = errorDetails.String

	if progressJSON != "" {
		if err := json.Unmarshal([]byte(progressJSON), &job.Progress); err != nil {
			return nil, err
		}
	}
	if resultsJSON.Valid {
		var results jobs.Results
		if err := json.Unmarshal([]byte(resultsJSON.String), &results); err != nil {
			return nil, err
		}
		job.Results = &results
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
