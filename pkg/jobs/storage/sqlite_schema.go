package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the job database schema.
const Schema = `
-- Cleanup jobs table
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    status TEXT NOT NULL,

    -- Request parameters
    dry_run BOOLEAN NOT NULL DEFAULT 0,
    max_emails INTEGER,
    force BOOLEAN NOT NULL DEFAULT 0,

    -- Progress snapshot
    progress TEXT,

    -- Final outcome
    results TEXT,
    error_details TEXT,

    -- Timestamps
    created_at TIMESTAMP NOT NULL,
    started_at TIMESTAMP,
    completed_at TIMESTAMP
);

-- Cleanup metadata, 1:1 with jobs
CREATE TABLE IF NOT EXISTS cleanup_job_metadata (
    job_id TEXT PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
    policy_id TEXT,
    trigger_reason TEXT NOT NULL,
    priority TEXT NOT NULL,
    batch_size INTEGER NOT NULL,
    target_email_count INTEGER NOT NULL
);

-- Cleanup policy definitions
CREATE TABLE IF NOT EXISTS cleanup_policies (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    enabled BOOLEAN NOT NULL DEFAULT 1,
    priority INTEGER NOT NULL DEFAULT 0,

    -- Criteria, action, safety, schedule, and run stats as JSON
    definition TEXT NOT NULL,

    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

-- One row per completed run
CREATE TABLE IF NOT EXISTS execution_history (
    id TEXT PRIMARY KEY,
    job_id TEXT NOT NULL,
    type TEXT NOT NULL,
    policy_id TEXT,
    completed_at TIMESTAMP NOT NULL,
    emails_processed INTEGER NOT NULL,
    emails_cleaned INTEGER NOT NULL,
    storage_freed_bytes INTEGER NOT NULL,
    effectiveness REAL NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_type ON jobs(type);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
CREATE INDEX IF NOT EXISTS idx_metadata_policy_id ON cleanup_job_metadata(policy_id);
CREATE INDEX IF NOT EXISTS idx_history_policy_id ON execution_history(policy_id);
CREATE INDEX IF NOT EXISTS idx_history_completed_at ON execution_history(completed_at);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
