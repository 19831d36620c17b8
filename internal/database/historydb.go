package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/nodescan/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "nodescan.db"

// ErrRunNotFound is returned when a run id is not in the history.
var ErrRunNotFound = errors.New("scan run not found")

// HistoryDB stores scan runs and their node outcomes.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer; parallel scan workers share this connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		start_node INTEGER NOT NULL,
		end_node INTEGER NOT NULL,
		mode TEXT NOT NULL,
		strategy TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON scan_runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON scan_runs(started_at);

	CREATE TABLE IF NOT EXISTS node_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES scan_runs(id),
		node_id INTEGER NOT NULL,
		base_url TEXT NOT NULL,
		issues TEXT NOT NULL,
		fetch_error TEXT,
		UNIQUE(run_id, node_id)
	);

	CREATE INDEX IF NOT EXISTS idx_results_run ON node_results(run_id);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// BeginRun inserts a running scan for r and returns its id.
func (hdb *HistoryDB) BeginRun(ctx context.Context, r model.ScanRange, startedAt time.Time) (int64, error) {
	query := `
	INSERT INTO scan_runs (site, start_node, end_node, mode, strategy, started_at, status)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		r.Site,
		r.StartNode,
		r.EndNode,
		r.Mode.String(),
		r.Strategy.String(),
		startedAt.UTC().Format(time.RFC3339Nano),
		string(model.RunRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to begin scan run: %w", err)
	}
	return result.LastInsertId()
}

// RecordOutcome stores the outcome of one node of run runID.
// Recording the same node twice replaces the earlier result.
func (hdb *HistoryDB) RecordOutcome(ctx context.Context, runID int64, outcome model.NodeOutcome) error {
	issues := outcome.Issues
	if issues == nil {
		issues = []model.Issue{}
	}
	issuesJSON, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("failed to serialize issues: %w", err)
	}

	var fetchErr sql.NullString
	if outcome.FetchErr != nil {
		fetchErr = sql.NullString{String: outcome.FetchErr.Error(), Valid: true}
	}

	query := `
	INSERT INTO node_results (run_id, node_id, base_url, issues, fetch_error)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(run_id, node_id) DO UPDATE SET
		base_url = excluded.base_url,
		issues = excluded.issues,
		fetch_error = excluded.fetch_error
	`

	if _, err := hdb.db.ExecContext(ctx, query,
		runID,
		outcome.NodeID,
		outcome.BaseURL,
		string(issuesJSON),
		fetchErr,
	); err != nil {
		return fmt.Errorf("failed to record node %d: %w", outcome.NodeID, err)
	}
	return nil
}

// FinishRun sets the final status of run runID.
func (hdb *HistoryDB) FinishRun(ctx context.Context, runID int64, status model.RunStatus, finishedAt time.Time) error {
	query := `UPDATE scan_runs SET status = ?, finished_at = ? WHERE id = ?`

	result, err := hdb.db.ExecContext(ctx, query,
		string(status),
		finishedAt.UTC().Format(time.RFC3339Nano),
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish scan run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish scan run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// ListSites returns every site with at least one recorded run.
func (hdb *HistoryDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `SELECT DISTINCT site FROM scan_runs ORDER BY site`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// ListRuns returns the runs of site, newest first. An empty site lists all runs.
// The returned runs carry no outcomes.
func (hdb *HistoryDB) ListRuns(ctx context.Context, site string) ([]*model.ScanRun, error) {
	query := `
	SELECT id, site, start_node, end_node, mode, strategy, started_at, finished_at, status
	FROM scan_runs
	`
	args := make([]any, 0, 1)
	if site != "" {
		query += " WHERE site = ?"
		args = append(args, site)
	}
	query += " ORDER BY started_at DESC, id DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan runs: %w", err)
	}
	defer rows.Close()

	var runs []*model.ScanRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns run id with its outcomes ordered by node id.
func (hdb *HistoryDB) GetRun(ctx context.Context, id int64) (*model.ScanRun, error) {
	query := `
	SELECT id, site, start_node, end_node, mode, strategy, started_at, finished_at, status
	FROM scan_runs
	WHERE id = ?
	`

	run, err := scanRun(hdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	run.Outcomes, err = hdb.GetRunOutcomes(ctx, id)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// GetRunOutcomes returns the recorded outcomes of run runID ordered by node id.
func (hdb *HistoryDB) GetRunOutcomes(ctx context.Context, runID int64) ([]model.NodeOutcome, error) {
	query := `
	SELECT node_id, base_url, issues, fetch_error
	FROM node_results
	WHERE run_id = ?
	ORDER BY node_id
	`

	rows, err := hdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get node results: %w", err)
	}
	defer rows.Close()

	var outcomes []model.NodeOutcome
	for rows.Next() {
		var (
			outcome    model.NodeOutcome
			issuesJSON string
			fetchErr   sql.NullString
		)
		if err := rows.Scan(&outcome.NodeID, &outcome.BaseURL, &issuesJSON, &fetchErr); err != nil {
			return nil, fmt.Errorf("failed to scan node result: %w", err)
		}
		if err := json.Unmarshal([]byte(issuesJSON), &outcome.Issues); err != nil {
			return nil, fmt.Errorf("failed to parse issues of node %d: %w", outcome.NodeID, err)
		}
		if fetchErr.Valid {
			outcome.FetchErr = errors.New(fetchErr.String)
		}
		outcome.Exists = true
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.ScanRun, error) {
	var (
		run        model.ScanRun
		mode       string
		strategy   string
		startedAt  string
		finishedAt sql.NullString
		status     string
	)
	err := row.Scan(&run.ID, &run.Site, &run.StartNode, &run.EndNode,
		&mode, &strategy, &startedAt, &finishedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if run.Mode, err = model.ParseFilterMode(mode); err != nil {
		return nil, fmt.Errorf("run %d: %w", run.ID, err)
	}
	switch strategy {
	case model.StrategyParallel.String():
		run.Strategy = model.StrategyParallel
	default:
		run.Strategy = model.StrategySequential
	}
	run.StartedAt = parseTimestamp(startedAt)
	if finishedAt.Valid {
		run.FinishedAt = parseTimestamp(finishedAt.String)
	}
	run.Status = model.RunStatus(status)
	return &run, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp parses s with the first matching format, or returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
