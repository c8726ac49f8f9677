package orchestrate

import (
	"context"
	"errors"
	"time"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/analysis"
)

// Connector is the uniform client every platform adapter implements. Code
// above this interface never branches on platform; the per-platform
// request shaping and response mapping live entirely in the adapters.
type Connector interface {
	Platform() domain.Platform

	// Validate performs the credential preflight. Every other operation
	// fails fast with a typed contract error until it has succeeded.
	Validate(ctx context.Context) error

	ListRepositories(ctx context.Context) ([]domain.Repository, error)
	GetRepository(ctx context.Context, owner, repo string) (domain.Repository, error)
	GetMergeRequest(ctx context.Context, owner, repo string, number int) (domain.MergeRequest, error)
	GetChangedFiles(ctx context.Context, owner, repo string, number int) ([]domain.ChangedFile, error)
	GetFileContent(ctx context.Context, owner, repo, path, ref string) ([]byte, error)
	PostComment(ctx context.Context, owner, repo string, number int, comment domain.Comment) error
	UpdateCommitStatus(ctx context.Context, owner, repo, sha string, status domain.CommitStatus) error
	SetBranchProtection(ctx context.Context, owner, repo, branch string, protection domain.BranchProtection) error
	CreateWebhook(ctx context.Context, owner, repo string, hook domain.WebhookConfig) (string, error)

	// RateLimit returns the most recently observed rate-limit envelope.
	RateLimit() domain.RateLimit
}

// Connectors is the registry of configured platform connectors, selected by
// platform tag at construction time.
type Connectors struct {
	byPlatform map[domain.Platform]Connector
}

// NewConnectors builds a registry from the given connectors. A duplicate
// platform tag keeps the last connector registered.
func NewConnectors(items ...Connector) *Connectors {
	reg := &Connectors{byPlatform: make(map[domain.Platform]Connector, len(items))}
	for _, c := range items {
		reg.byPlatform[c.Platform()] = c
	}
	return reg
}

// Get returns the connector for a platform tag.
func (r *Connectors) Get(platform domain.Platform) (Connector, bool) {
	c, ok := r.byPlatform[platform]
	return c, ok
}

// All returns every registered connector in unspecified order.
func (r *Connectors) All() []Connector {
	out := make([]Connector, 0, len(r.byPlatform))
	for _, c := range r.byPlatform {
		out = append(out, c)
	}
	return out
}

// Len reports how many platforms are configured.
func (r *Connectors) Len() int {
	return len(r.byPlatform)
}

// ReviewEngine runs the analysis pipeline over one changeset.
type ReviewEngine interface {
	Analyze(ctx context.Context, req analysis.Request) (domain.ReviewResult, error)
}

// ErrRunNotFound is returned by Store lookups that match nothing.
var ErrRunNotFound = errors.New("run not found")

// Store persists review runs. SaveRun upserts by run ID; the orchestrator
// saves the same run once per state transition.
type Store interface {
	SaveRun(ctx context.Context, run domain.Run) error
	GetRun(ctx context.Context, id string) (domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)

	// LastCompletedRun returns the most recent completed run for a pull
	// request, or ErrRunNotFound.
	LastCompletedRun(ctx context.Context, platform domain.Platform, owner, repo string, number int) (domain.Run, error)

	Ping(ctx context.Context) error
	Close() error
}

// Notification kinds emitted by the orchestrator.
const (
	NoteEventObserved = "event_observed"
	NoteRunStarted    = "run_started"
	NoteRunCompleted  = "run_completed"
	NoteRunFailed     = "run_failed"
	NoteRunSkipped    = "run_skipped"
)

// Notification is one observability event. Delivery is fire-and-forget;
// implementations must never block the caller.
type Notification struct {
	Kind      string          `json:"kind"`
	Platform  domain.Platform `json:"platform,omitempty"`
	Owner     string          `json:"owner,omitempty"`
	Repo      string          `json:"repo,omitempty"`
	Number    int             `json:"number,omitempty"`
	RunID     string          `json:"runId,omitempty"`
	Stage     string          `json:"stage,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Notifier publishes notifications.
type Notifier interface {
	Notify(notification Notification)
}

// GenerateRequest is one prompt for the AI backend.
type GenerateRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Generator produces text from a prompt. Optional; without one the
// orchestrator falls back to template summaries and never generates fixes.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// FixRequest describes one auto-fix branch to create: full replacement
// content per path, committed to BranchName and pushed.
type FixRequest struct {
	Platform   domain.Platform
	Owner      string
	Repo       string
	CloneURL   string
	BaseBranch string
	BranchName string
	Message    string
	Files      map[string][]byte
}

// Fixer applies generated fixes to the repository.
type Fixer interface {
	Apply(ctx context.Context, fix FixRequest) error
}
