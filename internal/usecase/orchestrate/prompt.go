package orchestrate

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/bkyoung/review-gateway/internal/domain"
)

const (
	summaryMaxTokens   = 300
	fixMaxTokens       = 4096
	summaryTemperature = 0.3
	fixTemperature     = 0.0
	summaryTopFindings = 8
)

var summaryPromptTemplate = template.Must(template.New("summary").Parse(`You are reviewing pull request {{.PullRequestID}}.

Automated analysis results:
- Score: {{printf "%.0f" .Overall.Score}}/100 ({{.Overall.Status}})
- Files analyzed: {{.Metrics.FilesSucceeded}} of {{.Metrics.FilesAttempted}}
- Suggestions: {{len .Suggestions}} (security: {{len .SecurityIssues}}, performance: {{len .PerformanceIssues}})
{{- if .Metrics.HumanReviewRecommended}}
- A human review is recommended for this change.
{{- end}}

Top findings:
{{- range .TopFindings}}
- [{{.Severity}}] {{.File}}:{{.Line}} {{.Title}}: {{.Description}}
{{- end}}

Write a 2-4 sentence review summary addressed to the pull request author.
Be specific about the most important problems. Plain text, no markdown headings.`))

var fixPromptTemplate = template.Must(template.New("fix").Parse("Fix the following issue in {{.File}}" +
	"{{if .Language}} ({{.Language}}){{end}}:\n\n" +
	"[{{.Severity}}/{{.Category}}] line {{.Line}}: {{.Title}}: {{.Description}}\n\n" +
	"Current file content:\n```\n{{.Content}}\n```\n\n" +
	"Return the complete corrected file content and nothing else. No commentary."))

type summaryPromptData struct {
	domain.ReviewResult
	TopFindings []domain.Finding
}

type fixPromptData struct {
	File        string
	Language    string
	Severity    string
	Category    string
	Line        int
	Title       string
	Description string
	Content     string
}

// AISummarizer upgrades template summaries through the AI backend. It
// implements the analysis engine's Summarizer port.
type AISummarizer struct {
	generator Generator
}

// NewAISummarizer wraps a generator as a summarizer.
func NewAISummarizer(generator Generator) *AISummarizer {
	return &AISummarizer{generator: generator}
}

// Summarize renders the result into a prompt and returns the generated
// summary.
func (s *AISummarizer) Summarize(ctx context.Context, result domain.ReviewResult) (string, error) {
	prompt, err := renderSummaryPrompt(result)
	if err != nil {
		return "", err
	}
	out, err := s.generator.Generate(ctx, GenerateRequest{
		Prompt:      prompt,
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func renderSummaryPrompt(result domain.ReviewResult) (string, error) {
	top := sortedFindings(result.Suggestions)
	if len(top) > summaryTopFindings {
		top = top[:summaryTopFindings]
	}
	var buf bytes.Buffer
	if err := summaryPromptTemplate.Execute(&buf, summaryPromptData{ReviewResult: result, TopFindings: top}); err != nil {
		return "", fmt.Errorf("rendering summary prompt: %w", err)
	}
	return buf.String(), nil
}

func renderFixPrompt(f domain.Finding, language string, content []byte) (string, error) {
	var buf bytes.Buffer
	err := fixPromptTemplate.Execute(&buf, fixPromptData{
		File:        f.File,
		Language:    language,
		Severity:    f.Severity,
		Category:    f.Category,
		Line:        f.Line,
		Title:       f.Title,
		Description: f.Description,
		Content:     string(content),
	})
	if err != nil {
		return "", fmt.Errorf("rendering fix prompt: %w", err)
	}
	return buf.String(), nil
}

// fencedBlock matches a fenced code block with an optional language tag.
var fencedBlock = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n(.*?)\\n?```")

// extractCode unwraps a fenced code block when the model added one; the
// prompt asks for bare content but models fence anyway.
func extractCode(response string) string {
	if m := fencedBlock.FindStringSubmatch(response); m != nil {
		return m[1]
	}
	return strings.TrimSpace(response)
}
