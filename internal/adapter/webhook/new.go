package webhook

import (
	"context"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/pkg/log"
)

// Dispatcher accepts canonical events for review orchestration.
type Dispatcher interface {
	HandleEvent(ctx context.Context, event domain.WebhookEvent) error
}

// Config holds inbound webhook security settings.
type Config struct {
	// Secrets enables signature verification per platform; a platform
	// without an entry is accepted unverified.
	Secrets map[domain.Platform]string
	// RateLimitPerMin caps deliveries per client IP. Zero disables the
	// limiter.
	RateLimitPerMin int
}

type Handler struct {
	dispatcher  Dispatcher
	verifier    *Verifier
	limiter     *ipLimiter
	normalizers map[domain.Platform]normalizer
	l           log.Logger
}

func NewHandler(dispatcher Dispatcher, cfg Config, l log.Logger) *Handler {
	if l == nil {
		l = log.NewNop()
	}
	return &Handler{
		dispatcher: dispatcher,
		verifier:   NewVerifier(cfg.Secrets, l),
		limiter:    newIPLimiter(cfg.RateLimitPerMin),
		normalizers: map[domain.Platform]normalizer{
			domain.PlatformGitHub:      githubNormalizer{l: l},
			domain.PlatformGitLab:      gitlabNormalizer{l: l},
			domain.PlatformBitbucket:   bitbucketNormalizer{l: l},
			domain.PlatformAzureDevOps: azureNormalizer{l: l},
		},
		l: l,
	}
}
