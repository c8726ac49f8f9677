// Package sqlite persists review runs in a local SQLite database. It is the
// default store; postgres serves multi-instance deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

// Store implements orchestrate.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ orchestrate.Store = (*Store)(nil)

// NewStore opens (or creates) the database at path. Use ":memory:" for an
// in-memory database in tests.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Serialized writers; WAL keeps readers unblocked during run updates.
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		platform      TEXT NOT NULL,
		owner         TEXT NOT NULL,
		repo          TEXT NOT NULL,
		number        INTEGER NOT NULL,
		head_sha      TEXT NOT NULL,
		state         TEXT NOT NULL,
		score         REAL NOT NULL DEFAULT 0,
		review_status TEXT NOT NULL DEFAULT '',
		issue_count   INTEGER NOT NULL DEFAULT 0,
		error         TEXT NOT NULL DEFAULT '',
		started_at    INTEGER NOT NULL,
		finished_at   INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_pull_request ON runs(platform, owner, repo, number);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun upserts a run by ID. The orchestrator calls it once per state
// transition with the same ID.
func (s *Store) SaveRun(ctx context.Context, run domain.Run) error {
	query := `
		INSERT INTO runs (id, platform, owner, repo, number, head_sha, state, score, review_status, issue_count, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state         = excluded.state,
			score         = excluded.score,
			review_status = excluded.review_status,
			issue_count   = excluded.issue_count,
			error         = excluded.error,
			finished_at   = excluded.finished_at
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		string(run.Platform),
		run.Owner,
		run.Repo,
		run.Number,
		run.HeadSHA,
		run.State,
		run.Score,
		run.ReviewStatus,
		run.IssueCount,
		run.Error,
		run.StartedAt.Unix(),
		unixOrZero(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (domain.Run, error) {
	query := runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Run{}, orchestrate.ErrRunNotFound
		}
		return domain.Run{}, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	query := runColumns + ` FROM runs ORDER BY started_at DESC, id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// LastCompletedRun returns the most recent completed run for a pull request,
// or orchestrate.ErrRunNotFound.
func (s *Store) LastCompletedRun(ctx context.Context, platform domain.Platform, owner, repo string, number int) (domain.Run, error) {
	query := runColumns + `
		FROM runs
		WHERE platform = ? AND owner = ? AND repo = ? AND number = ? AND state = ?
		ORDER BY finished_at DESC, started_at DESC
		LIMIT 1
	`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, string(platform), owner, repo, number, domain.RunCompleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Run{}, orchestrate.ErrRunNotFound
		}
		return domain.Run{}, fmt.Errorf("getting last completed run: %w", err)
	}
	return run, nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

const runColumns = `SELECT id, platform, owner, repo, number, head_sha, state, score, review_status, issue_count, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.Run, error) {
	var (
		run        domain.Run
		platform   string
		startedAt  int64
		finishedAt int64
	)
	err := row.Scan(
		&run.ID,
		&platform,
		&run.Owner,
		&run.Repo,
		&run.Number,
		&run.HeadSHA,
		&run.State,
		&run.Score,
		&run.ReviewStatus,
		&run.IssueCount,
		&run.Error,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return domain.Run{}, err
	}
	run.Platform = domain.Platform(platform)
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if finishedAt != 0 {
		run.FinishedAt = time.Unix(finishedAt, 0).UTC()
	}
	return run, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
