package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status tracks the lifecycle of a run or an individual stage.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one invocation of the alignment pipeline.
type Run struct {
	ID           string
	TileSpec     string
	Workspace    string
	Status       Status
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// StageRecord is the outcome of one stage within a run.
type StageRecord struct {
	RunID     string
	Stage     string
	Artifact  string
	Status    Status
	Duration  time.Duration
	StartedAt time.Time
}

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("ledger path required")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// timeLayout keeps a fixed-width fraction so stored timestamps sort
// lexicographically; RFC3339Nano trims trailing zeros and does not.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// StartRun inserts a new run in the running state.
func (s *Store) StartRun(ctx context.Context, id, tileSpec, workspace string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO runs (id, tile_spec, workspace, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, tileSpec, workspace, StatusRunning, now,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status for a run.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, errorMessage string) error {
	now := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE runs SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`,
		status, nullableString(errorMessage), now, id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// RecordStage appends one stage outcome to a run.
func (s *Store) RecordStage(ctx context.Context, rec StageRecord) error {
	if rec.RunID == "" || rec.Stage == "" {
		return errors.New("stage record requires run id and stage name")
	}
	started := rec.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO run_stages (run_id, stage, artifact, status, duration_ms, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Stage, nullableString(rec.Artifact), rec.Status,
		rec.Duration.Milliseconds(), started.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record stage: %w", err)
	}
	return nil
}

// GetRun fetches a run by identifier, returning nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// StagesForRun returns the stage records of a run in execution order.
func (s *Store) StagesForRun(ctx context.Context, runID string) ([]StageRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT run_id, stage, artifact, status, duration_ms, started_at
         FROM run_stages WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("stages for run: %w", err)
	}
	defer rows.Close()

	var records []StageRecord
	for rows.Next() {
		var (
			rec        StageRecord
			artifact   sql.NullString
			durationMS int64
			startedRaw string
		)
		if err := rows.Scan(&rec.RunID, &rec.Stage, &artifact, &rec.Status, &durationMS, &startedRaw); err != nil {
			return nil, err
		}
		rec.Artifact = artifact.String
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
			rec.StartedAt = started
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

const runColumns = "id, tile_spec, workspace, status, error_message, started_at, finished_at"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		statusStr   string
		errMsg      sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.TileSpec, &run.Workspace, &statusStr, &errMsg, &startedRaw, &finishedRaw); err != nil {
		return nil, err
	}
	run.Status = Status(statusStr)
	run.ErrorMessage = errMsg.String
	if started, err := time.Parse(time.RFC3339Nano, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(time.RFC3339Nano, finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
