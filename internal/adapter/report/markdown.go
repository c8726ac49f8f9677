package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// MarkdownWriter renders review results into Markdown files.
type MarkdownWriter struct {
	now clock
}

// NewMarkdownWriter constructs a Markdown writer with a timestamp supplier.
func NewMarkdownWriter(now clock) *MarkdownWriter {
	return &MarkdownWriter{now: now}
}

// Write persists a Markdown report to disk and returns its path.
func (w *MarkdownWriter) Write(ctx context.Context, artifact Artifact) (string, error) {
	if err := os.MkdirAll(artifact.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s_pr%d_%s.md",
		sanitise(artifact.Owner),
		sanitise(artifact.Repo),
		artifact.Number,
		w.now(),
	)
	path := filepath.Join(artifact.OutputDir, filename)

	content := buildMarkdown(artifact)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write markdown: %w", err)
	}

	return path, nil
}

func buildMarkdown(artifact Artifact) string {
	var builder strings.Builder
	caser := cases.Title(language.English)
	result := artifact.Result

	builder.WriteString("# Automated Review Report\n\n")
	builder.WriteString(fmt.Sprintf("- Platform: %s\n", artifact.Platform))
	builder.WriteString(fmt.Sprintf("- Pull request: %s/%s#%d\n", artifact.Owner, artifact.Repo, artifact.Number))
	builder.WriteString(fmt.Sprintf("- Score: %.0f/100 (%s)\n",
		result.Overall.Score,
		caser.String(strings.ReplaceAll(result.Overall.Status, "_", " "))))
	builder.WriteString(fmt.Sprintf("- Files analyzed: %d of %d\n",
		result.Metrics.FilesSucceeded, result.Metrics.FilesAttempted))
	if result.TestCoverage > 0 {
		builder.WriteString(fmt.Sprintf("- Test coverage estimate: %.0f%%\n", result.TestCoverage))
	}
	builder.WriteString(fmt.Sprintf("- Analysis duration: %s\n\n", result.Metrics.AnalysisDuration))

	if result.Overall.Summary != "" {
		builder.WriteString("## Summary\n\n")
		builder.WriteString(result.Overall.Summary)
		builder.WriteString("\n\n")
	}

	if len(result.Suggestions) == 0 && len(result.SecurityIssues) == 0 && len(result.PerformanceIssues) == 0 {
		builder.WriteString("No findings reported.\n")
		return builder.String()
	}

	writeFindingSection(&builder, caser, "Suggestions", result.Suggestions)
	writeFindingSection(&builder, caser, "Security Issues", result.SecurityIssues)
	writeFindingSection(&builder, caser, "Performance Issues", result.PerformanceIssues)

	if len(result.Metrics.FileErrors) > 0 {
		builder.WriteString("## Files Not Analyzed\n\n")
		for _, fe := range result.Metrics.FileErrors {
			builder.WriteString(fmt.Sprintf("- %s: %s\n", fe.Filename, fe.Message))
		}
		builder.WriteString("\n")
	}

	return builder.String()
}

func writeFindingSection(builder *strings.Builder, caser cases.Caser, heading string, findings []domain.Finding) {
	if len(findings) == 0 {
		return
	}
	builder.WriteString(fmt.Sprintf("## %s\n\n", heading))
	for _, finding := range findings {
		builder.WriteString(fmt.Sprintf("### %s (%s)\n", finding.Title, caser.String(finding.Severity)))
		if finding.File != "" {
			if finding.Line > 0 {
				builder.WriteString(fmt.Sprintf("- File: %s:%d\n", finding.File, finding.Line))
			} else {
				builder.WriteString(fmt.Sprintf("- File: %s\n", finding.File))
			}
		}
		builder.WriteString(fmt.Sprintf("- Category: %s\n", finding.Category))
		builder.WriteString(fmt.Sprintf("- Confidence: %.2f\n", finding.Confidence))
		if finding.AutoFixable {
			builder.WriteString("- Auto-fixable: yes\n")
		} else {
			builder.WriteString("- Auto-fixable: no\n")
		}
		if finding.Description != "" && finding.Description != finding.Title {
			builder.WriteString(fmt.Sprintf("\n%s\n", finding.Description))
		}
		builder.WriteString("\n")
	}
}
