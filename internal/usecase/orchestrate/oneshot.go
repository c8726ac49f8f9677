package orchestrate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/analysis"
)

// ReviewRequest identifies one pull request for a direct review outside the
// webhook path.
type ReviewRequest struct {
	Platform domain.Platform
	Owner    string
	Repo     string
	Number   int

	// Post publishes the result back to the platform the way the webhook
	// path does. Without it the review is read-only.
	Post bool
}

// ReviewPullRequest fetches, analyzes, and optionally posts a single review
// synchronously, with the same run bookkeeping as the webhook path. Skip
// markers are not consulted: an operator invoking the review by hand
// outranks them.
func (o *Orchestrator) ReviewPullRequest(ctx context.Context, req ReviewRequest) (domain.Run, domain.ReviewResult, error) {
	connector, ok := o.connectors.Get(req.Platform)
	if !ok {
		return domain.Run{}, domain.ReviewResult{}, fmt.Errorf("no connector registered for platform %q", req.Platform)
	}

	mr, err := connector.GetMergeRequest(ctx, req.Owner, req.Repo, req.Number)
	if err != nil {
		return domain.Run{}, domain.ReviewResult{}, fmt.Errorf("fetching pull request: %w", err)
	}

	run := domain.Run{
		ID:        uuid.NewString(),
		Platform:  req.Platform,
		Owner:     req.Owner,
		Repo:      req.Repo,
		Number:    req.Number,
		HeadSHA:   mr.HeadSHA,
		State:     domain.RunTriggered,
		StartedAt: o.clock(),
	}
	o.saveRun(ctx, run)
	o.notify(NoteRunStarted, run, "", mr.Title)
	o.logger.Infof(ctx, "direct review run %s for %s:%s/%s#%d at %s", run.ID, req.Platform, req.Owner, req.Repo, req.Number, mr.HeadSHA)

	files, err := connector.GetChangedFiles(ctx, req.Owner, req.Repo, req.Number)
	if err != nil {
		return run, domain.ReviewResult{}, o.failRun(ctx, run, stageFetch, fmt.Errorf("fetching changed files: %w", err))
	}

	run.State = domain.RunAnalyzing
	o.saveRun(ctx, run)

	result, err := o.engine.Analyze(ctx, analysis.Request{
		Platform: req.Platform,
		Owner:    req.Owner,
		Repo:     req.Repo,
		Number:   req.Number,
		Files:    files,
		Load: func(ctx context.Context, path string) ([]byte, error) {
			return connector.GetFileContent(ctx, req.Owner, req.Repo, path, mr.HeadSHA)
		},
	})
	if err != nil {
		return run, domain.ReviewResult{}, o.failRun(ctx, run, stageAnalysis, err)
	}

	run.Score = result.Overall.Score
	run.ReviewStatus = result.Overall.Status
	run.IssueCount = len(result.Suggestions)

	if req.Post {
		run.State = domain.RunPostingResults
		o.saveRun(ctx, run)
		event := syntheticEvent(req, mr, o.clock())
		if err := o.postResults(ctx, connector, event, run, result); err != nil {
			return run, result, o.failRun(ctx, run, stagePosting, err)
		}
	}

	o.metrics.ReviewCompleted()
	o.metrics.IssuesFound(len(result.Suggestions))

	run.State = domain.RunCompleted
	run.FinishedAt = o.clock()
	o.saveRun(ctx, run)
	o.notify(NoteRunCompleted, run, "", fmt.Sprintf("score %.0f/100 (%s)", result.Overall.Score, result.Overall.Status))
	return run, result, nil
}

// syntheticEvent shapes a direct request like a delivery so the posting
// path works unchanged.
func syntheticEvent(req ReviewRequest, mr domain.MergeRequest, now time.Time) domain.WebhookEvent {
	return domain.WebhookEvent{
		ID:       uuid.NewString(),
		Type:     domain.EventPullRequest,
		Platform: req.Platform,
		Repository: domain.Repository{
			Name:     req.Repo,
			FullName: req.Owner + "/" + req.Repo,
			Owner:    req.Owner,
		},
		PullRequest: &domain.PullRequestRef{
			Number:       req.Number,
			Action:       domain.ActionOpened,
			Title:        mr.Title,
			HeadSHA:      mr.HeadSHA,
			SourceBranch: mr.SourceBranch,
			TargetBranch: mr.TargetBranch,
			Labels:       mr.Labels,
		},
		Timestamp: now,
	}
}
