package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/bkyoung/review-gateway/internal/domain"
)

type stubGenerator struct {
	lastReq  GenerateRequest
	response string
	err      error
}

func (s *stubGenerator) Generate(_ context.Context, req GenerateRequest) (string, error) {
	s.lastReq = req
	return s.response, s.err
}

func TestRenderSummaryPrompt(t *testing.T) {
	result := domain.ReviewResult{
		PullRequestID: "github:acme/widgets#7",
		Overall:       domain.Overall{Score: 62, Status: domain.ReviewNeedsChanges},
		Suggestions: []domain.Finding{
			{Severity: domain.SeverityCritical, Title: "hardcoded credential", Description: "move it to config", File: "auth.go", Line: 12},
			{Severity: domain.SeverityLow, Title: "long line", File: "main.go", Line: 8},
		},
		Metrics: domain.ReviewMetrics{FilesAttempted: 3, FilesSucceeded: 2, HumanReviewRecommended: true},
	}
	prompt, err := renderSummaryPrompt(result)
	if err != nil {
		t.Fatalf("renderSummaryPrompt: %v", err)
	}

	for _, want := range []string{
		"reviewing pull request github:acme/widgets#7",
		"Score: 62/100 (needs_changes)",
		"Files analyzed: 2 of 3",
		"A human review is recommended",
		"- [critical] auth.go:12 hardcoded credential: move it to config",
		"Write a 2-4 sentence review summary",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}

	// Critical ordered before low.
	if strings.Index(prompt, "[critical]") > strings.Index(prompt, "[low]") {
		t.Error("findings not ordered by severity in prompt")
	}
}

func TestRenderSummaryPromptCapsFindings(t *testing.T) {
	result := domain.ReviewResult{Overall: domain.Overall{Score: 40, Status: domain.ReviewRejected}}
	for i := 0; i < 12; i++ {
		result.Suggestions = append(result.Suggestions, domain.Finding{
			Severity: domain.SeverityLow,
			Title:    fmt.Sprintf("finding %02d", i),
			File:     fmt.Sprintf("file%02d.go", i),
			Line:     1,
		})
	}
	prompt, err := renderSummaryPrompt(result)
	if err != nil {
		t.Fatalf("renderSummaryPrompt: %v", err)
	}
	if got := strings.Count(prompt, "- [low]"); got != summaryTopFindings {
		t.Errorf("prompt lists %d findings, want %d", got, summaryTopFindings)
	}
}

func TestAISummarizer(t *testing.T) {
	gen := &stubGenerator{response: "  The change looks risky.\n"}
	s := NewAISummarizer(gen)

	got, err := s.Summarize(context.Background(), domain.ReviewResult{
		Overall: domain.Overall{Score: 55, Status: domain.ReviewRejected},
	})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "The change looks risky." {
		t.Errorf("summary = %q, want trimmed text", got)
	}
	if gen.lastReq.MaxTokens != summaryMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", gen.lastReq.MaxTokens, summaryMaxTokens)
	}
	if gen.lastReq.Temperature != summaryTemperature {
		t.Errorf("Temperature = %v, want %v", gen.lastReq.Temperature, summaryTemperature)
	}
}

func TestAISummarizerPropagatesGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model unavailable")}
	s := NewAISummarizer(gen)

	if _, err := s.Summarize(context.Background(), domain.ReviewResult{}); err == nil {
		t.Fatal("Summarize should propagate generator errors")
	}
}

func TestRenderFixPrompt(t *testing.T) {
	f := domain.Finding{
		Severity:    domain.SeverityCritical,
		Category:    domain.CategorySecurity,
		Title:       "hardcoded credential",
		Description: "move it to config",
		File:        "auth.go",
		Line:        12,
	}
	prompt, err := renderFixPrompt(f, "Go", []byte("package main\n\nvar token = \"secret\"\n"))
	if err != nil {
		t.Fatalf("renderFixPrompt: %v", err)
	}

	for _, want := range []string{
		"Fix the following issue in auth.go (Go):",
		"[critical/security] line 12: hardcoded credential: move it to config",
		"var token = \"secret\"",
		"Return the complete corrected file content",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "fenced with language",
			response: "```go\npackage main\n```",
			want:     "package main",
		},
		{
			name:     "fenced without language",
			response: "```\nx = 1\n```",
			want:     "x = 1",
		},
		{
			name:     "fence with commentary around it",
			response: "Here you go:\n```python\nprint(1)\n```\nHope that helps!",
			want:     "print(1)",
		},
		{
			name:     "no fence",
			response: "  package main\n",
			want:     "package main",
		},
		{
			name:     "multiline body",
			response: "```go\npackage main\n\nfunc main() {}\n```",
			want:     "package main\n\nfunc main() {}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractCode(tt.response); got != tt.want {
				t.Errorf("extractCode(%q) = %q, want %q", tt.response, got, tt.want)
			}
		})
	}
}
