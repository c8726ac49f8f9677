package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/review-gateway/internal/adapter/store/sqlite"
	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

func setupTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err, "failed to create test store")

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func testRun(id string) domain.Run {
	return domain.Run{
		ID:        id,
		Platform:  domain.PlatformGitHub,
		Owner:     "acme",
		Repo:      "widgets",
		Number:    7,
		HeadSHA:   "abc123",
		State:     domain.RunTriggered,
		StartedAt: time.Now().Truncate(time.Second).UTC(),
	}
}

func TestStore_SaveRun_GetRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-1")
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Platform, got.Platform)
	assert.Equal(t, run.Owner, got.Owner)
	assert.Equal(t, run.Repo, got.Repo)
	assert.Equal(t, run.Number, got.Number)
	assert.Equal(t, run.HeadSHA, got.HeadSHA)
	assert.Equal(t, run.State, got.State)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.True(t, got.FinishedAt.IsZero(), "unfinished run should read back with zero FinishedAt")
}

func TestStore_SaveRun_UpsertsByID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	run := testRun("run-1")
	require.NoError(t, s.SaveRun(ctx, run))

	run.State = domain.RunCompleted
	run.Score = 88
	run.ReviewStatus = domain.ReviewApproved
	run.IssueCount = 3
	run.FinishedAt = run.StartedAt.Add(42 * time.Second)
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, got.State)
	assert.Equal(t, 88.0, got.Score)
	assert.Equal(t, domain.ReviewApproved, got.ReviewStatus)
	assert.Equal(t, 3, got.IssueCount)
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "upsert must not create a second row")
}

func TestStore_GetRun_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, orchestrate.ErrRunNotFound)
}

func TestStore_ListRuns_NewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		run := testRun(id)
		run.StartedAt = now.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.SaveRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-new", runs[0].ID)
	assert.Equal(t, "run-mid", runs[1].ID)
}

func TestStore_LastCompletedRun(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second).UTC()

	failed := testRun("run-failed")
	failed.State = domain.RunFailed
	failed.HeadSHA = "fff000"
	failed.FinishedAt = now.Add(3 * time.Hour)
	require.NoError(t, s.SaveRun(ctx, failed))

	first := testRun("run-first")
	first.State = domain.RunCompleted
	first.HeadSHA = "aaa111"
	first.FinishedAt = now.Add(1 * time.Hour)
	require.NoError(t, s.SaveRun(ctx, first))

	second := testRun("run-second")
	second.State = domain.RunCompleted
	second.HeadSHA = "bbb222"
	second.FinishedAt = now.Add(2 * time.Hour)
	require.NoError(t, s.SaveRun(ctx, second))

	got, err := s.LastCompletedRun(ctx, domain.PlatformGitHub, "acme", "widgets", 7)
	require.NoError(t, err)
	assert.Equal(t, "run-second", got.ID, "failed runs must not shadow the last completed one")
	assert.Equal(t, "bbb222", got.HeadSHA)
}

func TestStore_LastCompletedRun_ScopedToPullRequest(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	other := testRun("run-other-pr")
	other.Number = 99
	other.State = domain.RunCompleted
	other.FinishedAt = other.StartedAt.Add(time.Minute)
	require.NoError(t, s.SaveRun(ctx, other))

	_, err := s.LastCompletedRun(ctx, domain.PlatformGitHub, "acme", "widgets", 7)
	assert.ErrorIs(t, err, orchestrate.ErrRunNotFound)

	_, err = s.LastCompletedRun(ctx, domain.PlatformGitLab, "acme", "widgets", 99)
	assert.ErrorIs(t, err, orchestrate.ErrRunNotFound, "platform must scope the lookup")
}

func TestStore_Ping(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
