// Package store persists run summaries to SQLite so repeated runs can be
// compared across seeds and configurations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// RunRecord is one pipeline run's identity and summary series.
type RunRecord struct {
	ID           string
	Seed         uint64
	Replications int
	Ration       float64
	CreatedAt    time.Time
	Series       []SeriesMean
}

// SeriesMean is one named series' summary within a run.
type SeriesMean struct {
	Name   string
	Period int
	Mean   float64
}

// RunStore stores run summaries in a SQLite database.
type RunStore struct {
	mu sync.Mutex
	db *sql.DB
}

// NewRunStore opens (creating if needed) the run database under dir.
func NewRunStore(dir string) (*RunStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	dbPath := filepath.Join(dir, "runs.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open run database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &RunStore{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    seed INTEGER NOT NULL,
    replications INTEGER NOT NULL,
    ration REAL NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS run_series (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    period INTEGER NOT NULL,
    mean REAL NOT NULL,
    PRIMARY KEY (run_id, name, period)
);
CREATE INDEX IF NOT EXISTS idx_run_series_name ON run_series(name);
`

func initSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveRun stores a run and its series summaries in one transaction.
func (s *RunStore) SaveRun(ctx context.Context, run RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		return fmt.Errorf("run ID is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, seed, replications, ration, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, int64(run.Seed), run.Replications, run.Ration,
		run.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for _, sm := range run.Series {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_series (run_id, name, period, mean) VALUES (?, ?, ?, ?)`,
			run.ID, sm.Name, sm.Period, sm.Mean)
		if err != nil {
			return fmt.Errorf("failed to insert series %s for run %s: %w", sm.Name, run.ID, err)
		}
	}

	return tx.Commit()
}

// GetRun retrieves a run and its series by ID.
func (s *RunStore) GetRun(ctx context.Context, id string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var run RunRecord
	var seed int64
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, seed, replications, ration, created_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &seed, &run.Replications, &run.Ration, &createdAt)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	run.Seed = uint64(seed)
	if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
		run.CreatedAt = t
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, period, mean FROM run_series WHERE run_id = ? ORDER BY name, period`, id)
	if err != nil {
		return RunRecord{}, fmt.Errorf("failed to load series for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sm SeriesMean
		if err := rows.Scan(&sm.Name, &sm.Period, &sm.Mean); err != nil {
			return RunRecord{}, fmt.Errorf("failed to scan series row: %w", err)
		}
		run.Series = append(run.Series, sm)
	}

	return run, rows.Err()
}

// ListRuns returns all stored runs (without series), newest first.
func (s *RunStore) ListRuns(ctx context.Context) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, seed, replications, ration, created_at FROM runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var seed int64
		var createdAt string
		if err := rows.Scan(&run.ID, &seed, &run.Replications, &run.Ration, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		run.Seed = uint64(seed)
		if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
