// Package history persists finished pipeline runs to a local SQLite
// database so past builds can be inspected from the CLI.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/distbuilder/internal/pipeline"
)

// RunRecord is a stored run as read back from the database.
type RunRecord struct {
	ID       string
	Status   pipeline.RunStatus
	Revision string
	Started  time.Time
	Duration time.Duration
	Failed   string
	Err      string
	Stages   []StageRecord
}

// StageRecord is one stored stage result.
type StageRecord struct {
	Stage    string
	Attempts int
	Outcome  string
	ExitCode int
	Duration time.Duration
}

// Store persists runs in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if necessary) the database at dbPath.
// Use ":memory:" for tests.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		revision TEXT,
		started INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		failed_stage TEXT,
		error TEXT
	);
	CREATE TABLE IF NOT EXISTS stage_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		stage TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);
	CREATE INDEX IF NOT EXISTS idx_stage_results_run ON stage_results(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record stores a terminal run and its stage results in one transaction.
func (s *Store) Record(ctx context.Context, run *pipeline.PipelineRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	errText := ""
	if run.Err != nil {
		errText = run.Err.Error()
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO runs (id, status, revision, started, duration_ms, failed_stage, error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		run.ID, string(run.Status), run.Revision, run.Started.Unix(),
		run.Duration().Milliseconds(), run.FailedStage(), errText,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, res := range run.Results {
		outcome := "failed"
		switch {
		case res.Succeeded:
			outcome = "succeeded"
		case res.Cancelled:
			outcome = "cancelled"
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO stage_results (run_id, stage, attempts, outcome, exit_code, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
			run.ID, res.Stage, res.Attempts, outcome, res.ExitCode, res.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert stage result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first, with their stage results.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, status, revision, started, duration_ms, failed_stage, error FROM runs ORDER BY started DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		var status string
		var started, durationMS int64
		if err := rows.Scan(&r.ID, &status, &r.Revision, &started, &durationMS, &r.Failed, &r.Err); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Status = pipeline.RunStatus(status)
		r.Started = time.Unix(started, 0)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range records {
		stages, err := s.stagesFor(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Stages = stages
	}
	return records, nil
}

func (s *Store) stagesFor(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT stage, attempts, outcome, exit_code, duration_ms FROM stage_results WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query stage results: %w", err)
	}
	defer rows.Close()

	var stages []StageRecord
	for rows.Next() {
		var st StageRecord
		var durationMS int64
		if err := rows.Scan(&st.Stage, &st.Attempts, &st.Outcome, &st.ExitCode, &durationMS); err != nil {
			return nil, fmt.Errorf("scan stage result: %w", err)
		}
		st.Duration = time.Duration(durationMS) * time.Millisecond
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
