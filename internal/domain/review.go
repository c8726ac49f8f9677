package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

const (
	CategorySyntax      = "syntax"
	CategoryStyle       = "style"
	CategoryComplexity  = "complexity"
	CategorySecurity    = "security"
	CategoryPerformance = "performance"
)

// Rule-level severities reported by the metrics analyzer, before they are
// mapped onto finding severities.
const (
	RuleError   = "error"
	RuleWarning = "warning"
	RuleInfo    = "info"
)

const (
	ReviewApproved     = "approved"
	ReviewNeedsChanges = "needs_changes"
	ReviewRejected     = "rejected"
)

// ReviewResult is the aggregate produced once per review run. It is never
// mutated after the analysis engine returns it.
type ReviewResult struct {
	PullRequestID     string         `json:"pullRequestId"`
	Overall           Overall        `json:"overall"`
	Files             []FileAnalysis `json:"files"`
	Suggestions       []Finding      `json:"suggestions"`
	SecurityIssues    []Finding      `json:"securityIssues"`
	PerformanceIssues []Finding      `json:"performanceIssues"`
	TestCoverage      float64        `json:"testCoverage"`
	Metrics           ReviewMetrics  `json:"metrics"`
}

// Overall holds the aggregate verdict for a review run.
type Overall struct {
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
	Summary string  `json:"summary"`
}

// FileAnalysis is the per-file outcome of the analysis pipeline.
type FileAnalysis struct {
	Filename        string      `json:"filename"`
	Language        string      `json:"language"`
	Score           float64     `json:"score"`
	Complexity      float64     `json:"complexity"`
	Quality         float64     `json:"quality"`
	Testability     float64     `json:"testability"`
	Maintainability float64     `json:"maintainability"`
	Issues          []FileIssue `json:"issues,omitempty"`
}

// FileIssue is one raw analyzer observation, before severity mapping.
// Severity here is the rule level: error, warning, or info. Confidence
// and AutoFixable travel with the issue into the finding it becomes.
type FileIssue struct {
	Rule        string  `json:"rule"`
	Category    string  `json:"category"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
	Line        int     `json:"line,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
	AutoFixable bool    `json:"autoFixable,omitempty"`
}

// Finding is one actionable observation surfaced to reviewers. The same
// shape backs suggestions, security issues, and performance issues.
type Finding struct {
	ID          string  `json:"id"`
	Severity    string  `json:"severity"`
	Category    string  `json:"category"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	File        string  `json:"file,omitempty"`
	Line        int     `json:"line,omitempty"`
	AutoFixable bool    `json:"autoFixable"`
	Confidence  float64 `json:"confidence"`
}

// FindingInput captures the information required to create a Finding.
type FindingInput struct {
	Severity    string
	Category    string
	Title       string
	Description string
	File        string
	Line        int
	AutoFixable bool
	Confidence  float64
}

// NewFinding constructs a Finding with a deterministic ID, so reruns over
// identical input produce identical findings.
func NewFinding(input FindingInput) Finding {
	return Finding{
		ID:          hashFinding(input),
		Severity:    input.Severity,
		Category:    input.Category,
		Title:       input.Title,
		Description: input.Description,
		File:        input.File,
		Line:        input.Line,
		AutoFixable: input.AutoFixable,
		Confidence:  input.Confidence,
	}
}

func hashFinding(input FindingInput) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%d",
		input.Severity,
		input.Category,
		input.Title,
		input.File,
		input.Line,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:8])
}

// ReviewMetrics carries per-run diagnostics, including which files were
// attempted versus which produced results.
type ReviewMetrics struct {
	AnalysisDuration       time.Duration `json:"analysisDuration"`
	FilesAttempted         int           `json:"filesAttempted"`
	FilesSucceeded         int           `json:"filesSucceeded"`
	AverageComplexity      float64       `json:"averageComplexity"`
	HumanReviewRecommended bool          `json:"humanReviewRecommended"`
	FileErrors             []FileError   `json:"fileErrors,omitempty"`
}

// FileError records an isolated per-file analysis failure.
type FileError struct {
	Filename string `json:"filename"`
	Message  string `json:"message"`
}

// OverallStatus derives the review status from the aggregate score and the
// presence of critical security findings. A critical security finding
// rejects the run regardless of score.
func OverallStatus(score float64, criticalSecurity bool) string {
	if criticalSecurity {
		return ReviewRejected
	}
	switch {
	case score >= 80:
		return ReviewApproved
	case score >= 60:
		return ReviewNeedsChanges
	default:
		return ReviewRejected
	}
}

// HasCriticalSecurity reports whether any security issue is critical.
func (r ReviewResult) HasCriticalSecurity() bool {
	for _, issue := range r.SecurityIssues {
		if issue.Severity == SeverityCritical {
			return true
		}
	}
	return false
}
