package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the results database schema.
// Timestamps are stored as Unix nanoseconds so both drivers read them back
// identically.
const Schema = `
-- Runs
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    mode TEXT NOT NULL,
    rule_sets INTEGER NOT NULL,
    data_sets INTEGER NOT NULL,
    functions TEXT,
    status TEXT NOT NULL,
    error TEXT,
    started_at INTEGER NOT NULL,
    ended_at INTEGER
);

-- Per-dataset scores
CREATE TABLE IF NOT EXISTS dataset_results (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    rule_set TEXT NOT NULL,
    data_set TEXT NOT NULL,
    records INTEGER NOT NULL,
    scores TEXT,
    recorded_at INTEGER NOT NULL
);

-- Confusion matrices, scope is "cumulative" or a dataset name
CREATE TABLE IF NOT EXISTS matrices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    rule_set TEXT NOT NULL,
    scope TEXT NOT NULL,
    matrix TEXT NOT NULL
);

-- Rule-set definitions
CREATE TABLE IF NOT EXISTS definitions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    rule_set TEXT NOT NULL,
    body TEXT NOT NULL
);

-- Sequential-mode traces
CREATE TABLE IF NOT EXISTS traces (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    rule_set TEXT NOT NULL,
    entries TEXT NOT NULL
);

-- Cross-ruleset summaries
CREATE TABLE IF NOT EXISTS summaries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    function TEXT NOT NULL,
    min REAL,
    max REAL,
    mean REAL,
    median REAL,
    stddev REAL,
    count INTEGER
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(name);
CREATE INDEX IF NOT EXISTS idx_dataset_results_run_id ON dataset_results(run_id);
CREATE INDEX IF NOT EXISTS idx_matrices_run_id ON matrices(run_id);
CREATE INDEX IF NOT EXISTS idx_definitions_run_id ON definitions(run_id);
CREATE INDEX IF NOT EXISTS idx_traces_run_id ON traces(run_id);
CREATE INDEX IF NOT EXISTS idx_summaries_run_id ON summaries(run_id);
`

// resultTables are the tables keyed by run_id, deleted together with a run.
var resultTables = []string{"dataset_results", "matrices", "definitions", "traces", "summaries"}

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
