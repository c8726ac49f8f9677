// Package postgres persists review runs in PostgreSQL. Use it instead of
// sqlite when several gateway instances share one run history.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

// Store implements orchestrate.Store on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ orchestrate.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	platform      TEXT NOT NULL,
	owner         TEXT NOT NULL,
	repo          TEXT NOT NULL,
	number        INTEGER NOT NULL,
	head_sha      TEXT NOT NULL,
	state         TEXT NOT NULL,
	score         DOUBLE PRECISION NOT NULL DEFAULT 0,
	review_status TEXT NOT NULL DEFAULT '',
	issue_count   INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_pull_request ON runs(platform, owner, repo, number);
`

// NewStore connects to databaseURL and ensures the schema exists.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	s := &Store{pool: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// SaveRun upserts a run by ID.
func (s *Store) SaveRun(ctx context.Context, run domain.Run) error {
	query := `
		INSERT INTO runs (id, platform, owner, repo, number, head_sha, state, score, review_status, issue_count, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			state         = EXCLUDED.state,
			score         = EXCLUDED.score,
			review_status = EXCLUDED.review_status,
			issue_count   = EXCLUDED.issue_count,
			error         = EXCLUDED.error,
			finished_at   = EXCLUDED.finished_at
	`

	var finishedAt *time.Time
	if !run.FinishedAt.IsZero() {
		finishedAt = &run.FinishedAt
	}
	_, err := s.pool.Exec(ctx, query,
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
		run.StartedAt,
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (domain.Run, error) {
	query := runColumns + ` FROM runs WHERE id = $1`

	run, err := scanRun(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Run{}, orchestrate.ErrRunNotFound
		}
		return domain.Run{}, fmt.Errorf("getting run: %w", err)
	}
	return run, nil
}

// ListRuns retrieves the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	query := runColumns + ` FROM runs ORDER BY started_at DESC, id LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
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
		WHERE platform = $1 AND owner = $2 AND repo = $3 AND number = $4 AND state = $5
		ORDER BY finished_at DESC NULLS LAST, started_at DESC
		LIMIT 1
	`

	run, err := scanRun(s.pool.QueryRow(ctx, query, string(platform), owner, repo, number, domain.RunCompleted))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Run{}, orchestrate.ErrRunNotFound
		}
		return domain.Run{}, fmt.Errorf("getting last completed run: %w", err)
	}
	return run, nil
}

// Ping verifies the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const runColumns = `SELECT id, platform, owner, repo, number, head_sha, state, score, review_status, issue_count, error, started_at, finished_at`

func scanRun(row pgx.Row) (domain.Run, error) {
	var (
		run        domain.Run
		platform   string
		finishedAt *time.Time
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
		&run.StartedAt,
		&finishedAt,
	)
	if err != nil {
		return domain.Run{}, err
	}
	run.Platform = domain.Platform(platform)
	if finishedAt != nil {
		run.FinishedAt = *finishedAt
	}
	return run, nil
}
