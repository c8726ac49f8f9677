// Package report renders review results into files for the one-shot CLI
// path: a human-readable markdown report, the raw result as JSON, or
// SARIF for CI ingestion.
package report

import (
	"path/filepath"
	"strings"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// Artifact describes one review result to persist.
type Artifact struct {
	Platform  domain.Platform
	Owner     string
	Repo      string
	Number    int
	Result    domain.ReviewResult
	OutputDir string
}

type clock func() string

func sanitise(value string) string {
	if value == "" {
		return "unknown"
	}
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, string(filepath.Separator), "-")
	value = strings.ReplaceAll(value, " ", "-")
	return value
}
