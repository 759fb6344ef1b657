// Package runlog persists per-run health check results and computes
// new/fixed issue sets between consecutive runs.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// CheckResult is one (category, check) outcome recorded for a run.
type CheckResult struct {
	Category       string
	Check          string
	Severity       string
	Recommendation string
}

// SeverityOk marks a check that found nothing wrong.
const SeverityOk = "ok"

// Run is one recorded monitoring run with its check results.
type Run struct {
	ID        string
	StartedAt time.Time
	Checks    []CheckResult
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS checks (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	category TEXT NOT NULL,
	check_name TEXT NOT NULL,
	severity TEXT NOT NULL,
	recommendation TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_checks_run ON checks(run_id);
`

// Store is the SQLite-backed run history.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the run history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open runlog: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate runlog: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists one run and returns its generated ID.
func (s *Store) RecordRun(ctx context.Context, startedAt time.Time, checks []CheckResult) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	defer tx.Rollback()

	runID := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`, runID, startedAt.UTC()); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for _, c := range checks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO checks (run_id, category, check_name, severity, recommendation) VALUES (?, ?, ?, ?, ?)`,
			runID, c.Category, c.Check, c.Severity, c.Recommendation); err != nil {
			return "", fmt.Errorf("insert check: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}
	return runID, nil
}

// Runs returns up to limit most recent runs, newest first, with their checks.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		checks, err := s.checksFor(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Checks = checks
	}
	return runs, nil
}

// PreviousRun returns the run recorded immediately before runID, or ok=false
// when runID is the first run on record.
func (s *Store) PreviousRun(ctx context.Context, runID string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.started_at FROM runs r
		WHERE r.started_at < (SELECT started_at FROM runs WHERE id = ?)
		ORDER BY r.started_at DESC LIMIT 1`, runID)

	var r Run
	if err := row.Scan(&r.ID, &r.StartedAt); err != nil {
		if err == sql.ErrNoRows {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("previous run: %w", err)
	}
	checks, err := s.checksFor(ctx, r.ID)
	if err != nil {
		return Run{}, false, err
	}
	r.Checks = checks
	return r, true, nil
}

func (s *Store) checksFor(ctx context.Context, runID string) ([]CheckResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, check_name, severity, recommendation FROM checks WHERE run_id = ? ORDER BY category, check_name`, runID)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer rows.Close()

	var checks []CheckResult
	for rows.Next() {
		var c CheckResult
		if err := rows.Scan(&c.Category, &c.Check, &c.Severity, &c.Recommendation); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}
