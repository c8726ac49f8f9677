package orchestrate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// statusContext is the commit-status context every run reports under.
const statusContext = "review-gateway/automated-review"

// maxTableFindings caps the findings table in the summary comment; the rest
// are counted in a trailing line.
const maxTableFindings = 10

// severityOrder defines the display order for severity levels (highest first).
var severityOrder = []string{
	domain.SeverityCritical,
	domain.SeverityHigh,
	domain.SeverityMedium,
	domain.SeverityLow,
}

var severityRank = map[string]int{
	domain.SeverityCritical: 0,
	domain.SeverityHigh:     1,
	domain.SeverityMedium:   2,
	domain.SeverityLow:      3,
}

var titleCaser = cases.Title(language.English)

// BuildSummaryComment renders the consolidated markdown comment posted once
// per review run, before any line comments.
func BuildSummaryComment(result domain.ReviewResult, runID string) string {
	var sb strings.Builder

	sb.WriteString("## Automated Review\n\n")
	sb.WriteString(fmt.Sprintf("%s **%s** (score %.0f/100)\n\n",
		statusEmoji(result.Overall.Status),
		titleCaser.String(strings.ReplaceAll(result.Overall.Status, "_", " ")),
		result.Overall.Score))

	if result.Overall.Summary != "" {
		sb.WriteString(result.Overall.Summary)
		sb.WriteString("\n\n")
	}

	sb.WriteString(badgeLine(result))
	sb.WriteString("\n")

	if section := findingsTable(result.Suggestions); section != "" {
		sb.WriteString("\n")
		sb.WriteString(section)
	}

	if len(result.SecurityIssues) > 0 {
		sb.WriteString("\n### Security\n\n")
		for _, f := range sortedFindings(result.SecurityIssues) {
			sb.WriteString(fmt.Sprintf("- **%s** `%s` line %d: %s\n",
				f.Severity, escapeInlineCode(f.File), f.Line, escapeInlineCode(f.Title)))
		}
	}

	if n := autoFixableCount(result.Suggestions); n > 0 {
		sb.WriteString(fmt.Sprintf("\n🔧 %d suggestion(s) are auto-fixable.\n", n))
	}

	if result.TestCoverage > 0 {
		sb.WriteString(fmt.Sprintf("\nTest coverage estimate: %.0f%% of changed source files have test companions.\n", result.TestCoverage))
	}

	if result.Metrics.HumanReviewRecommended {
		sb.WriteString("\n> 👤 A human review is recommended for this change.\n")
	}

	sb.WriteString(fmt.Sprintf("\n---\n_run %s • %d of %d files analyzed in %s_\n",
		runID,
		result.Metrics.FilesSucceeded,
		result.Metrics.FilesAttempted,
		result.Metrics.AnalysisDuration.Round(time.Millisecond)))

	return sb.String()
}

// BuildLineComment renders the comment body anchored to one finding.
func BuildLineComment(f domain.Finding) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s **%s** (%s): %s",
		severityEmoji(f.Severity),
		titleCaser.String(f.Severity),
		f.Category,
		f.Title))
	if f.Description != "" && f.Description != f.Title {
		sb.WriteString("\n\n")
		sb.WriteString(f.Description)
	}
	if f.AutoFixable {
		sb.WriteString("\n\n_This suggestion is auto-fixable._")
	}
	return sb.String()
}

// CommitStatusFor maps a review outcome onto the commit status the head SHA
// receives.
func CommitStatusFor(result domain.ReviewResult) domain.CommitStatus {
	status := domain.CommitStatus{Context: statusContext}
	switch result.Overall.Status {
	case domain.ReviewApproved:
		status.State = domain.StatusSuccess
		status.Description = fmt.Sprintf("review passed (score %.0f/100)", result.Overall.Score)
	case domain.ReviewNeedsChanges:
		status.State = domain.StatusPending
		status.Description = "changes recommended"
	default:
		status.State = domain.StatusFailure
		status.Description = fmt.Sprintf("review rejected (score %.0f/100)", result.Overall.Score)
	}
	return status
}

// badgeLine creates the counts line.
// Example: 📊 **4 files** | 🔴 1 critical | 🟠 2 high | 🟡 0 medium | 🟢 3 low
func badgeLine(result domain.ReviewResult) string {
	counts := map[string]int{}
	for _, f := range result.Suggestions {
		counts[strings.ToLower(f.Severity)]++
	}
	parts := []string{fmt.Sprintf("📊 **%d files**", result.Metrics.FilesSucceeded)}
	emojis := map[string]string{
		domain.SeverityCritical: "🔴",
		domain.SeverityHigh:     "🟠",
		domain.SeverityMedium:   "🟡",
		domain.SeverityLow:      "🟢",
	}
	for _, severity := range severityOrder {
		parts = append(parts, fmt.Sprintf("%s %d %s", emojis[severity], counts[severity], severity))
	}
	return strings.Join(parts, " | ")
}

// findingsTable renders the top findings, highest severity first.
func findingsTable(findings []domain.Finding) string {
	if len(findings) == 0 {
		return ""
	}
	ordered := sortedFindings(findings)

	var sb strings.Builder
	sb.WriteString("### Findings\n\n")
	sb.WriteString("| Severity | Location | Finding |\n")
	sb.WriteString("|----------|----------|--------|\n")

	shown := ordered
	if len(shown) > maxTableFindings {
		shown = shown[:maxTableFindings]
	}
	for _, f := range shown {
		location := escapeTableCell(f.File)
		if f.Line > 0 {
			location = fmt.Sprintf("%s:%d", location, f.Line)
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n",
			f.Severity, location, escapeTableCell(f.Title)))
	}
	if extra := len(ordered) - len(shown); extra > 0 {
		sb.WriteString(fmt.Sprintf("\n…and %d more finding(s).\n", extra))
	}
	return sb.String()
}

// sortedFindings orders findings by severity rank, then file, then line.
func sortedFindings(findings []domain.Finding) []domain.Finding {
	ordered := make([]domain.Finding, len(findings))
	copy(ordered, findings)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := severityRank[ordered[i].Severity], severityRank[ordered[j].Severity]
		if ri != rj {
			return ri < rj
		}
		if ordered[i].File != ordered[j].File {
			return ordered[i].File < ordered[j].File
		}
		return ordered[i].Line < ordered[j].Line
	})
	return ordered
}

func autoFixableCount(findings []domain.Finding) int {
	var n int
	for _, f := range findings {
		if f.AutoFixable {
			n++
		}
	}
	return n
}

func statusEmoji(status string) string {
	switch status {
	case domain.ReviewApproved:
		return "✅"
	case domain.ReviewNeedsChanges:
		return "🟡"
	default:
		return "❌"
	}
}

func severityEmoji(severity string) string {
	switch severity {
	case domain.SeverityCritical:
		return "🔴"
	case domain.SeverityHigh:
		return "🟠"
	case domain.SeverityMedium:
		return "🟡"
	default:
		return "🟢"
	}
}

// escapeInlineCode escapes characters that would break `code` spans.
func escapeInlineCode(s string) string {
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

// escapeTableCell escapes characters that would break | cell | structure.
func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
