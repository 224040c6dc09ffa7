package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/rulebench/pkg/results"
)

const (
	// DriverCGO is the mattn/go-sqlite3 driver name.
	DriverCGO = "sqlite3"

	// DriverPure is the CGO-free modernc.org/sqlite driver name.
	DriverPure = "sqlite"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" keeps the database in
	// process and forces a single connection.
	Path string

	// Driver selects the database/sql driver, DriverCGO or DriverPure.
	// Default: DriverCGO
	Driver string

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
		Path:         "data/rulebench.db",
		Driver:       DriverCGO,
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// Validate checks the configuration.
func (c *SQLiteConfig) Validate() error {
	if c.Path == "" {
		return errors.New("sqlite path cannot be empty")
	}
	switch c.Driver {
	case "", DriverCGO, DriverPure:
	default:
		return fmt.Errorf("unsupported sqlite driver %q (want %q or %q)", c.Driver, DriverCGO, DriverPure)
	}
	if c.BusyTimeout < 0 {
		return errors.New("busy timeout cannot be negative")
	}
	return nil
}

// dsn builds the driver-specific data source name carrying the busy timeout.
func (c *SQLiteConfig) dsn() string {
	ms := c.BusyTimeout.Milliseconds()
	if c.Driver == DriverPure {
		return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", c.Path, ms)
	}
	return fmt.Sprintf("%s?_busy_timeout=%d", c.Path, ms)
}

// SQLiteStorage implements results.Store using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, results.NewStorageError("sqlite", "config", err)
	}
	if config.Driver == "" {
		config.Driver = DriverCGO
	}

	logger := slog.Default().With("component", "results.storage.sqlite")

	db, err := sql.Open(config.Driver, config.dsn())
	if err != nil {
		return nil, results.NewStorageError("sqlite", "open", err)
	}

	if config.Path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"driver", config.Driver,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode && s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return results.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return results.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return results.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return results.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return results.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// BeginRun inserts a new run row.
func (s *SQLiteStorage) BeginRun(ctx context.Context, run *results.Run) error {
	functions, _ := json.Marshal(run.Functions)
	status := run.Status
	if status == "" {
		status = results.StatusRunning
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, name, description, mode, rule_sets, data_sets, functions, status, error, started_at, ended_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, NULL)`,
		run.ID, run.Name, run.Description, run.Mode, run.RuleSets, run.DataSets,
		string(functions), string(status), run.StartedAt.UnixNano(),
	)
	if err != nil {
		return results.NewStorageError("sqlite", "begin_run", err)
	}
	return nil
}

// RecordDataset stores per-dataset scores.
func (s *SQLiteStorage) RecordDataset(ctx context.Context, r *results.DatasetResult) error {
	scores, err := json.Marshal(r.Scores)
	if err != nil {
		return results.NewStorageError("sqlite", "record_dataset", err)
	}
	recordedAt := r.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO dataset_results (run_id, rule_set, data_set, records, scores, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.RuleSet, r.DataSet, r.Records, string(scores), recordedAt.UnixNano(),
	)
	if err != nil {
		return results.NewStorageError("sqlite", "record_dataset", err)
	}
	return nil
}

// RecordMatrix stores a confusion matrix as JSON.
func (s *SQLiteStorage) RecordMatrix(ctx context.Context, r *results.MatrixResult) error {
	matrix, err := json.Marshal(r.Matrix)
	if err != nil {
		return results.NewStorageError("sqlite", "record_matrix", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matrices (run_id, rule_set, scope, matrix) VALUES (?, ?, ?, ?)`,
		r.RunID, r.RuleSet, r.Scope, string(matrix),
	)
	if err != nil {
		return results.NewStorageError("sqlite", "record_matrix", err)
	}
	return nil
}

// RecordDefinition stores a rule-set definition.
func (s *SQLiteStorage) RecordDefinition(ctx context.Context, d *results.Definition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO definitions (run_id, rule_set, body) VALUES (?, ?, ?)`,
		d.RunID, d.RuleSet, d.Text,
	)
	if err != nil {
		return results.NewStorageError("sqlite", "record_definition", err)
	}
	return nil
}

// RecordTrace stores a trace as JSON.
func (s *SQLiteStorage) RecordTrace(ctx context.Context, t *results.TraceResult) error {
	entries, err := json.Marshal(t.Entries)
	if err != nil {
		return results.NewStorageError("sqlite", "record_trace", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO traces (run_id, rule_set, entries) VALUES (?, ?, ?)`,
		t.RunID, t.RuleSet, string(entries),
	)
	if err != nil {
		return results.NewStorageError("sqlite", "record_trace", err)
	}
	return nil
}

// RecordSummary stores the summary rows of a run in one transaction.
func (s *SQLiteStorage) RecordSummary(ctx context.Context, runID string, summary []results.FunctionSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return results.NewStorageError("sqlite", "record_summary", err)
	}
	defer tx.Rollback()

	for _, fs := range summary {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO summaries (run_id, function, min, max, mean, median, stddev, count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, fs.Function, fs.Stats.Min, fs.Stats.Max, fs.Stats.Mean,
			fs.Stats.Median, fs.Stats.StdDev, fs.Stats.Count,
		)
		if err != nil {
			return results.NewStorageError("sqlite", "record_summary", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return results.NewStorageError("sqlite", "record_summary", err)
	}
	return nil
}

// EndRun sets the final status of a run.
func (s *SQLiteStorage) EndRun(ctx context.Context, runID string, status results.RunStatus, runErr error) error {
	var errorVal interface{}
	if runErr != nil {
		errorVal = runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, ended_at = ? WHERE id = ?`,
		string(status), errorVal, time.Now().UnixNano(), runID,
	)
	if err != nil {
		return results.NewStorageError("sqlite", "end_run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return results.NewStorageError("sqlite", "end_run", err)
	}
	if n == 0 {
		return results.NewStorageError("sqlite", "end_run", fmt.Errorf("%w: %s", results.ErrRunNotFound, runID))
	}
	return nil
}

const selectRun = `SELECT id, name, description, mode, rule_sets, data_sets, functions, status, error, started_at, ended_at FROM runs`

// GetRun returns a single run.
func (s *SQLiteStorage) GetRun(ctx context.Context, runID string) (*results.Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRun+" WHERE id = ?", runID)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "get_run", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, results.NewStorageError("sqlite", "get_run", err)
		}
		return nil, fmt.Errorf("%w: %s", results.ErrRunNotFound, runID)
	}
	run, err := scanRun(rows)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "scan", err)
	}
	return run, nil
}

// ListRuns returns runs matching the query, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, query *results.RunQuery) ([]*results.Run, error) {
	if query == nil {
		query = &results.RunQuery{}
	}
	whereClause, args := buildWhereClause(query)

	sqlQuery := selectRun
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY started_at DESC"

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "list_runs", err)
	}
	defer rows.Close()

	runs := []*results.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, results.NewStorageError("sqlite", "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, results.NewStorageError("sqlite", "list_runs", err)
	}
	return runs, nil
}

// Report loads every result of a run.
func (s *SQLiteStorage) Report(ctx context.Context, runID string) (*results.Report, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	report := &results.Report{Run: run}

	if report.DataSets, err = s.datasetResults(ctx, runID); err != nil {
		return nil, err
	}
	if report.Matrices, err = s.matrices(ctx, runID); err != nil {
		return nil, err
	}
	if report.Definitions, err = s.definitions(ctx, runID); err != nil {
		return nil, err
	}
	if report.Traces, err = s.traces(ctx, runID); err != nil {
		return nil, err
	}
	if report.Summary, err = s.summaries(ctx, runID); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *SQLiteStorage) datasetResults(ctx context.Context, runID string) ([]results.DatasetResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_set, data_set, records, scores, recorded_at
		FROM dataset_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "query_dataset_results", err)
	}
	defer rows.Close()

	var out []results.DatasetResult
	for rows.Next() {
		r := results.DatasetResult{RunID: runID}
		var scores string
		var recordedAt int64
		if err := rows.Scan(&r.RuleSet, &r.DataSet, &r.Records, &scores, &recordedAt); err != nil {
			return nil, results.NewStorageError("sqlite", "scan", err)
		}
		if scores != "" {
			json.Unmarshal([]byte(scores), &r.Scores)
		}
		r.RecordedAt = time.Unix(0, recordedAt)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, results.NewStorageError("sqlite", "query_dataset_results", err)
	}
	return out, nil
}

func (s *SQLiteStorage) matrices(ctx context.Context, runID string) ([]results.MatrixResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_set, scope, matrix FROM matrices WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "query_matrices", err)
	}
	defer rows.Close()

	var out []results.MatrixResult
	for rows.Next() {
		m := results.MatrixResult{RunID: runID}
		var matrix string
		if err := rows.Scan(&m.RuleSet, &m.Scope, &matrix); err != nil {
			return nil, results.NewStorageError("sqlite", "scan", err)
		}
		if err := json.Unmarshal([]byte(matrix), &m.Matrix); err != nil {
			return nil, results.NewStorageError("sqlite", "decode_matrix", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, results.NewStorageError("sqlite", "query_matrices", err)
	}
	return out, nil
}

func (s *SQLiteStorage) definitions(ctx context.Context, runID string) ([]results.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_set, body FROM definitions WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "query_definitions", err)
	}
	defer rows.Close()

	var out []results.Definition
	for rows.Next() {
		d := results.Definition{RunID: runID}
		if err := rows.Scan(&d.RuleSet, &d.Text); err != nil {
			return nil, results.NewStorageError("sqlite", "scan", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, results.NewStorageError("sqlite", "query_definitions", err)
	}
	return out, nil
}

func (s *SQLiteStorage) traces(ctx context.Context, runID string) ([]results.TraceResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_set, entries FROM traces WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "query_traces", err)
	}
	defer rows.Close()

	var out []results.TraceResult
	for rows.Next() {
		t := results.TraceResult{RunID: runID}
		var entries string
		if err := rows.Scan(&t.RuleSet, &entries); err != nil {
			return nil, results.NewStorageError("sqlite", "scan", err)
		}
		if err := json.Unmarshal([]byte(entries), &t.Entries); err != nil {
			return nil, results.NewStorageError("sqlite", "decode_trace", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, results.NewStorageError("sqlite", "query_traces", err)
	}
	return out, nil
}

func (s *SQLiteStorage) summaries(ctx context.Context, runID string) ([]results.FunctionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT function, min, max, mean, median, stddev, count
		FROM summaries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, results.NewStorageError("sqlite", "query_summaries", err)
	}
	defer rows.Close()

	var out []results.FunctionSummary
	for rows.Next() {
		var fs results.FunctionSummary
		st := &fs.Stats
		if err := rows.Scan(&fs.Function, &st.Min, &st.Max, &st.Mean, &st.Median, &st.StdDev, &st.Count); err != nil {
			return nil, results.NewStorageError("sqlite", "scan", err)
		}
		out = append(out, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, results.NewStorageError("sqlite", "query_summaries", err)
	}
	return out, nil
}

// DeleteRunsBefore removes runs started before t together with their results.
func (s *SQLiteStorage) DeleteRunsBefore(ctx context.Context, t time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, results.NewStorageError("sqlite", "delete", err)
	}
	defer tx.Rollback()

	cutoff := t.UnixNano()
	for _, table := range resultTables {
		query := fmt.Sprintf("DELETE FROM %s WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)", table)
		if _, err := tx.ExecContext(ctx, query, cutoff); err != nil {
			return 0, results.NewStorageError("sqlite", "delete", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, results.NewStorageError("sqlite", "delete", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, results.NewStorageError("sqlite", "delete", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, results.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases resources held by the storage backend.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return results.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func buildWhereClause(query *results.RunQuery) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.Name != "" {
		conditions = append(conditions, "name = ?")
		args = append(args, query.Name)
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(query.Status))
	}
	if query.Since != nil {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, query.Since.UnixNano())
	}
	if query.Until != nil {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, query.Until.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}

// scanRun scans a runs row.
func scanRun(rows *sql.Rows) (*results.Run, error) {
	var run results.Run
	var description, functions, errorVal sql.NullString
	var status string
	var startedAt int64
	var endedAt sql.NullInt64

	err := rows.Scan(
		&run.ID, &run.Name, &description, &run.Mode, &run.RuleSets, &run.DataSets,
		&functions, &status, &errorVal, &startedAt, &endedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Description = description.String
	run.Status = results.RunStatus(status)
	run.Error = errorVal.String
	run.StartedAt = time.Unix(0, startedAt)
	if endedAt.Valid {
		ended := time.Unix(0, endedAt.Int64)
		run.EndedAt = &ended
	}
	if functions.Valid && functions.String != "" {
		json.Unmarshal([]byte(functions.String), &run.Functions)
	}

	return &run, nil
}

var _ results.Store = (*SQLiteStorage)(nil)
