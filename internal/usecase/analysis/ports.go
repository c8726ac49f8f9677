package analysis

import (
	"context"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// Report is the raw output of one metrics-analyzer pass over one file.
// Complexity is the average number of decision points per function.
type Report struct {
	Complexity float64
	Issues     []domain.FileIssue
}

// MetricsAnalyzer is the outbound port to the static metrics analyzer.
type MetricsAnalyzer interface {
	AnalyzeFile(ctx context.Context, filename, language string, content []byte) (Report, error)
}

// Summarizer produces a natural-language summary for a finished result.
// The engine falls back to its deterministic template when it fails.
type Summarizer interface {
	Summarize(ctx context.Context, result domain.ReviewResult) (string, error)
}

// Redactor scrubs secrets from file content before it leaves the process.
type Redactor interface {
	RedactBytes(content []byte) []byte
}

// ContentLoader fetches one file's content at the review's head revision.
// The service path backs it with a platform connector; the CLI path backs
// it with the local filesystem.
type ContentLoader func(ctx context.Context, path string) ([]byte, error)
