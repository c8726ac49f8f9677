// Package orchestrate drives review runs end to end: it accepts normalized
// webhook events, decides whether they warrant a review, executes the
// analysis engine, and posts results back through the platform connectors.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/analysis"
	"github.com/bkyoung/review-gateway/internal/usecase/skip"
	"github.com/bkyoung/review-gateway/pkg/log"
)

// DispatchMode selects how an accepted event reaches the review pipeline.
type DispatchMode string

const (
	// DispatchAsync acknowledges the delivery immediately and runs the
	// review on a detached context.
	DispatchAsync DispatchMode = "async"
	// DispatchSync completes the review before the webhook response is
	// written. Run failures surface to the caller.
	DispatchSync DispatchMode = "sync"
)

const (
	defaultMaxConcurrentRuns = 8
	defaultRunTimeout        = 5 * time.Minute
)

// Stages reported on run-failure notifications.
const (
	stageFetch    = "fetch"
	stageAnalysis = "analysis"
	stagePosting  = "posting"
)

// Deps assembles an Orchestrator. Connectors, Engine, Metrics, Store, and
// Notifier are required. Generator and Fixer are optional: without them
// summaries stay template-built and auto-fix is inert.
type Deps struct {
	Connectors *Connectors
	Engine     ReviewEngine
	Metrics    *Metrics
	Store      Store
	Notifier   Notifier
	Generator  Generator
	Fixer      Fixer
	Logger     log.Logger
	Clock      func() time.Time

	Dispatch          DispatchMode
	MaxConcurrentRuns int
	RunTimeout        time.Duration
	AutoFix           bool
}

// Orchestrator is the only component touching both the inbound event stream
// and the outbound connectors. Safe for concurrent use.
type Orchestrator struct {
	connectors *Connectors
	engine     ReviewEngine
	metrics    *Metrics
	store      Store
	notifier   Notifier
	generator  Generator
	fixer      Fixer
	logger     log.Logger
	clock      func() time.Time

	dispatch   DispatchMode
	runTimeout time.Duration
	autoFix    bool

	sem chan struct{}
	wg  sync.WaitGroup
}

// New validates deps and applies defaults: async dispatch, eight concurrent
// runs, a five minute run timeout, and a nop logger.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Connectors == nil || deps.Connectors.Len() == 0 {
		return nil, fmt.Errorf("orchestrate: at least one connector is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("orchestrate: review engine is required")
	}
	if deps.Metrics == nil {
		return nil, fmt.Errorf("orchestrate: metrics are required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("orchestrate: run store is required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("orchestrate: notifier is required")
	}

	dispatch := deps.Dispatch
	if dispatch == "" {
		dispatch = DispatchAsync
	}
	if dispatch != DispatchAsync && dispatch != DispatchSync {
		return nil, fmt.Errorf("orchestrate: unknown dispatch mode %q", dispatch)
	}
	maxRuns := deps.MaxConcurrentRuns
	if maxRuns <= 0 {
		maxRuns = defaultMaxConcurrentRuns
	}
	runTimeout := deps.RunTimeout
	if runTimeout <= 0 {
		runTimeout = defaultRunTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Orchestrator{
		connectors: deps.Connectors,
		engine:     deps.Engine,
		metrics:    deps.Metrics,
		store:      deps.Store,
		notifier:   deps.Notifier,
		generator:  deps.Generator,
		fixer:      deps.Fixer,
		logger:     logger,
		clock:      clock,
		dispatch:   dispatch,
		runTimeout: runTimeout,
		autoFix:    deps.AutoFix,
		sem:        make(chan struct{}, maxRuns),
	}, nil
}

// HandleEvent routes one normalized event. Every accepted event counts as
// processed, whether or not it triggers a review. In async mode the review
// runs on a detached context and HandleEvent returns nil; in sync mode run
// failures are returned to the caller.
func (o *Orchestrator) HandleEvent(ctx context.Context, event domain.WebhookEvent) error {
	o.metrics.WebhookProcessed()

	pr := event.PullRequest
	if event.Type != domain.EventPullRequest || pr == nil {
		o.observe(event, fmt.Sprintf("%s event acknowledged without analysis", event.Type))
		return nil
	}
	if pr.Action != domain.ActionOpened && pr.Action != domain.ActionSynchronized {
		o.observe(event, fmt.Sprintf("pull request action %q does not trigger a review", pr.Action))
		return nil
	}

	if verdict := skip.Check(skip.CheckRequest{Title: pr.Title, Labels: pr.Labels}); verdict.ShouldSkip {
		o.skipRun(ctx, event, verdict.Reason)
		return nil
	}

	if pr.Action == domain.ActionSynchronized && o.alreadyReviewed(ctx, event) {
		o.observe(event, fmt.Sprintf("head %s already reviewed", pr.HeadSHA))
		return nil
	}

	if o.dispatch == DispatchSync {
		return o.runReview(ctx, event)
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.sem <- struct{}{}
		defer func() { <-o.sem }()

		runCtx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
		defer cancel()
		if err := o.runReview(runCtx, event); err != nil {
			o.logger.Errorf(runCtx, "detached review run failed: %v", err)
		}
	}()
	return nil
}

// Drain waits for detached runs to finish, up to the context deadline.
func (o *Orchestrator) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) runReview(ctx context.Context, event domain.WebhookEvent) error {
	pr := event.PullRequest
	owner := event.Repository.Owner
	repo := event.Repository.Name

	run := domain.Run{
		ID:        uuid.NewString(),
		Platform:  event.Platform,
		Owner:     owner,
		Repo:      repo,
		Number:    pr.Number,
		HeadSHA:   pr.HeadSHA,
		State:     domain.RunTriggered,
		StartedAt: o.clock(),
	}
	o.saveRun(ctx, run)
	o.notify(NoteRunStarted, run, "", pr.Title)
	o.logger.Infof(ctx, "review run %s triggered for %s:%s/%s#%d at %s", run.ID, run.Platform, owner, repo, pr.Number, pr.HeadSHA)

	connector, ok := o.connectors.Get(event.Platform)
	if !ok {
		return o.failRun(ctx, run, stageFetch, fmt.Errorf("no connector registered for platform %q", event.Platform))
	}

	files, err := connector.GetChangedFiles(ctx, owner, repo, pr.Number)
	if err != nil {
		return o.failRun(ctx, run, stageFetch, fmt.Errorf("fetching changed files: %w", err))
	}

	run.State = domain.RunAnalyzing
	o.saveRun(ctx, run)

	result, err := o.engine.Analyze(ctx, analysis.Request{
		Platform: event.Platform,
		Owner:    owner,
		Repo:     repo,
		Number:   pr.Number,
		Files:    files,
		Load: func(ctx context.Context, path string) ([]byte, error) {
			return connector.GetFileContent(ctx, owner, repo, path, pr.HeadSHA)
		},
	})
	if err != nil {
		return o.failRun(ctx, run, stageAnalysis, err)
	}

	run.State = domain.RunPostingResults
	run.Score = result.Overall.Score
	run.ReviewStatus = result.Overall.Status
	run.IssueCount = len(result.Suggestions)
	o.saveRun(ctx, run)

	if err := o.postResults(ctx, connector, event, run, result); err != nil {
		return o.failRun(ctx, run, stagePosting, err)
	}

	o.metrics.ReviewCompleted()
	o.metrics.IssuesFound(len(result.Suggestions))

	if o.autoFix {
		o.applyAutoFixes(ctx, connector, event, run, result)
	}

	run.State = domain.RunCompleted
	run.FinishedAt = o.clock()
	o.saveRun(ctx, run)
	o.notify(NoteRunCompleted, run, "", fmt.Sprintf("score %.0f/100 (%s)", result.Overall.Score, result.Overall.Status))
	o.logger.Infof(ctx, "review run %s completed: score %.0f/100 (%s), %d suggestion(s)", run.ID, result.Overall.Score, result.Overall.Status, len(result.Suggestions))
	return nil
}

// postResults publishes the review: summary comment first, then line comments
// for severe findings, then the commit status. A failed summary or status is
// fatal to the run; individual line comments only log.
func (o *Orchestrator) postResults(ctx context.Context, connector Connector, event domain.WebhookEvent, run domain.Run, result domain.ReviewResult) error {
	pr := event.PullRequest
	owner := event.Repository.Owner
	repo := event.Repository.Name

	summary := domain.Comment{Body: BuildSummaryComment(result, run.ID)}
	if err := connector.PostComment(ctx, owner, repo, pr.Number, summary); err != nil {
		return fmt.Errorf("posting summary comment: %w", err)
	}

	failed := 0
	for _, finding := range sortedFindings(result.Suggestions) {
		if finding.Severity != domain.SeverityCritical && finding.Severity != domain.SeverityHigh {
			continue
		}
		comment := domain.Comment{Body: BuildLineComment(finding), Path: finding.File, Line: finding.Line}
		if !comment.Anchored() {
			continue
		}
		if err := connector.PostComment(ctx, owner, repo, pr.Number, comment); err != nil {
			failed++
			o.logger.Warnf(ctx, "line comment on %s:%d failed: %v", finding.File, finding.Line, err)
		}
	}
	if failed > 0 {
		o.logger.Warnf(ctx, "%d line comment(s) failed to post on %s/%s#%d", failed, owner, repo, pr.Number)
	}

	if pr.HeadSHA == "" {
		o.logger.Warnf(ctx, "event carries no head SHA, skipping commit status")
		return nil
	}
	if err := connector.UpdateCommitStatus(ctx, owner, repo, pr.HeadSHA, CommitStatusFor(result)); err != nil {
		return fmt.Errorf("updating commit status: %w", err)
	}
	return nil
}

// skipRun records a run in the skipped state without analyzing anything.
func (o *Orchestrator) skipRun(ctx context.Context, event domain.WebhookEvent, reason string) {
	pr := event.PullRequest
	now := o.clock()
	run := domain.Run{
		ID:         uuid.NewString(),
		Platform:   event.Platform,
		Owner:      event.Repository.Owner,
		Repo:       event.Repository.Name,
		Number:     pr.Number,
		HeadSHA:    pr.HeadSHA,
		State:      domain.RunSkipped,
		StartedAt:  now,
		FinishedAt: now,
	}
	o.saveRun(ctx, run)
	o.notify(NoteRunSkipped, run, "", "skip marker in "+reason)
	o.logger.Infof(ctx, "review skipped for %s/%s#%d: marker in %s", run.Owner, run.Repo, run.Number, reason)
}

// alreadyReviewed reports whether the latest completed run for this pull
// request already covers the delivered head SHA.
func (o *Orchestrator) alreadyReviewed(ctx context.Context, event domain.WebhookEvent) bool {
	pr := event.PullRequest
	if pr.HeadSHA == "" {
		return false
	}
	last, err := o.store.LastCompletedRun(ctx, event.Platform, event.Repository.Owner, event.Repository.Name, pr.Number)
	if err != nil {
		if !errors.Is(err, ErrRunNotFound) {
			o.logger.Warnf(ctx, "last completed run lookup failed: %v", err)
		}
		return false
	}
	return last.HeadSHA == pr.HeadSHA
}

func (o *Orchestrator) failRun(ctx context.Context, run domain.Run, stage string, err error) error {
	run.State = domain.RunFailed
	run.Error = err.Error()
	run.FinishedAt = o.clock()
	o.saveRun(ctx, run)
	o.notify(NoteRunFailed, run, stage, err.Error())
	o.logger.Errorf(ctx, "review run %s failed during %s: %v", run.ID, stage, err)
	return fmt.Errorf("review run %s: %s: %w", run.ID, stage, err)
}

// saveRun persists a state transition. Storage trouble is logged, never
// fatal: the review itself outranks its bookkeeping.
func (o *Orchestrator) saveRun(ctx context.Context, run domain.Run) {
	if err := o.store.SaveRun(ctx, run); err != nil {
		o.logger.Warnf(ctx, "persisting run %s (%s): %v", run.ID, run.State, err)
	}
}

func (o *Orchestrator) observe(event domain.WebhookEvent, message string) {
	note := Notification{
		Kind:      NoteEventObserved,
		Platform:  event.Platform,
		Owner:     event.Repository.Owner,
		Repo:      event.Repository.Name,
		Message:   message,
		Timestamp: o.clock(),
	}
	if event.PullRequest != nil {
		note.Number = event.PullRequest.Number
	}
	o.notifier.Notify(note)
}

func (o *Orchestrator) notify(kind string, run domain.Run, stage, message string) {
	o.notifier.Notify(Notification{
		Kind:      kind,
		Platform:  run.Platform,
		Owner:     run.Owner,
		Repo:      run.Repo,
		Number:    run.Number,
		RunID:     run.ID,
		Stage:     stage,
		Message:   message,
		Timestamp: o.clock(),
	})
}
