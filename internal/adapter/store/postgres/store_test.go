package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-gateway/internal/adapter/store/postgres"
	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

// Integration tests; they need a reachable database. Point
// REVGW_TEST_POSTGRES_URL at one (e.g. postgres://localhost:5432/revgw_test)
// to enable them.
func setupTestStore(t *testing.T) *postgres.Store {
	t.Helper()

	url := os.Getenv("REVGW_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("REVGW_TEST_POSTGRES_URL not set")
	}

	s, err := postgres.NewStore(context.Background(), url)
	require.NoError(t, err, "failed to connect test store")

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestStore_SaveRun_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := domain.Run{
		ID:        "pg-run-" + time.Now().Format("20060102150405.000"),
		Platform:  domain.PlatformGitLab,
		Owner:     "acme",
		Repo:      "widgets",
		Number:    11,
		HeadSHA:   "deadbeef",
		State:     domain.RunTriggered,
		StartedAt: time.Now().Truncate(time.Second).UTC(),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Platform, got.Platform)
	assert.Equal(t, run.HeadSHA, got.HeadSHA)
	assert.True(t, got.FinishedAt.IsZero(), "unfinished run should read back with zero FinishedAt")

	run.State = domain.RunCompleted
	run.Score = 74
	run.ReviewStatus = domain.ReviewNeedsChanges
	run.FinishedAt = run.StartedAt.Add(time.Minute)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err = s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, got.State)
	assert.Equal(t, 74.0, got.Score)
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))

	last, err := s.LastCompletedRun(ctx, domain.PlatformGitLab, "acme", "widgets", 11)
	require.NoError(t, err)
	assert.Equal(t, run.ID, last.ID)
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetRun(context.Background(), "never-saved")
	assert.ErrorIs(t, err, orchestrate.ErrRunNotFound)
}
