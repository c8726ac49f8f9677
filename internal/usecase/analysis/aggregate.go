package analysis

import (
	"fmt"

	"github.com/bkyoung/review-gateway/internal/domain"
)

const (
	securityPenalty     = 10
	performancePenalty  = 5
	coverageBonus       = 10
	coverageThreshold   = 80
	complexityThreshold = 15
)

// scoreFile derives the per-file quality dimensions from a raw report.
// Rule violations drag quality down; complexity drags testability and
// maintainability down. The file score is the mean of the three.
func scoreFile(filename, language string, report Report) domain.FileAnalysis {
	var errors, warnings, infos int
	for _, issue := range report.Issues {
		switch issue.Severity {
		case domain.RuleError:
			errors++
		case domain.RuleWarning:
			warnings++
		default:
			infos++
		}
	}

	quality := clamp(100 - 15*float64(errors) - 5*float64(warnings) - float64(infos))
	testability := clamp(100 - 4*report.Complexity)
	maintainability := clamp(100 - 2*report.Complexity - 3*float64(len(report.Issues)))

	return domain.FileAnalysis{
		Filename:        filename,
		Language:        language,
		Score:           (quality + testability + maintainability) / 3,
		Complexity:      report.Complexity,
		Quality:         quality,
		Testability:     testability,
		Maintainability: maintainability,
		Issues:          report.Issues,
	}
}

// aggregate folds the per-file results into the review aggregate:
// findings, score, status, and diagnostics.
func aggregate(pullRequestID string, files []domain.FileAnalysis, fileErrs []domain.FileError, attempted int, testCoverage float64) domain.ReviewResult {
	result := domain.ReviewResult{
		PullRequestID: pullRequestID,
		Files:         files,
		TestCoverage:  testCoverage,
	}

	for _, file := range files {
		for _, issue := range file.Issues {
			finding := domain.NewFinding(domain.FindingInput{
				Severity:    findingSeverity(issue),
				Category:    issue.Category,
				Title:       issue.Rule,
				Description: issue.Message,
				File:        file.Filename,
				Line:        issue.Line,
				AutoFixable: issue.AutoFixable,
				Confidence:  issue.Confidence,
			})
			result.Suggestions = append(result.Suggestions, finding)
			switch issue.Category {
			case domain.CategorySecurity:
				result.SecurityIssues = append(result.SecurityIssues, finding)
			case domain.CategoryPerformance:
				result.PerformanceIssues = append(result.PerformanceIssues, finding)
			}
		}
	}

	var severeSecurity, highPerformance int
	for _, issue := range result.SecurityIssues {
		if issue.Severity == domain.SeverityCritical || issue.Severity == domain.SeverityHigh {
			severeSecurity++
		}
	}
	for _, issue := range result.PerformanceIssues {
		if issue.Severity == domain.SeverityHigh {
			highPerformance++
		}
	}

	var scoreSum, complexitySum float64
	anyPoorFile := false
	for _, file := range files {
		scoreSum += file.Score
		complexitySum += file.Complexity
		if file.Score < 60 {
			anyPoorFile = true
		}
	}

	score := 0.0
	avgComplexity := 0.0
	if len(files) > 0 {
		score = scoreSum / float64(len(files))
		avgComplexity = complexitySum / float64(len(files))
	}
	score -= securityPenalty * float64(severeSecurity)
	score -= performancePenalty * float64(highPerformance)
	if testCoverage >= coverageThreshold {
		score += coverageBonus
	}
	score = clamp(score)

	result.Overall = domain.Overall{
		Score:  score,
		Status: domain.OverallStatus(score, result.HasCriticalSecurity()),
	}
	result.Metrics = domain.ReviewMetrics{
		FilesAttempted:         attempted,
		FilesSucceeded:         len(files),
		AverageComplexity:      avgComplexity,
		HumanReviewRecommended: avgComplexity > complexityThreshold || anyPoorFile,
		FileErrors:             fileErrs,
	}
	return result
}

// findingSeverity maps a rule-level severity onto a finding severity.
// Error-level security findings are the critical class.
func findingSeverity(issue domain.FileIssue) string {
	switch issue.Severity {
	case domain.RuleError:
		if issue.Category == domain.CategorySecurity {
			return domain.SeverityCritical
		}
		return domain.SeverityHigh
	case domain.RuleWarning:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// TestCoverage estimates how much of the changeset is test-covered: the
// share of changed source files whose test companion appears in the same
// changeset.
func TestCoverage(files []domain.ChangedFile) float64 {
	present := make(map[string]bool, len(files))
	for _, file := range files {
		if file.Status != domain.FileStatusRemoved {
			present[file.Filename] = true
		}
	}

	var sources, covered int
	for _, file := range files {
		if file.Status == domain.FileStatusRemoved || IsTestFile(file.Filename) {
			continue
		}
		companions := testCompanions(file.Filename)
		if len(companions) == 0 {
			continue
		}
		sources++
		for _, companion := range companions {
			if present[companion] {
				covered++
				break
			}
		}
	}

	if sources == 0 {
		return 0
	}
	return 100 * float64(covered) / float64(sources)
}

// templateSummary renders the deterministic fallback summary.
func templateSummary(result domain.ReviewResult) string {
	m := result.Metrics
	summary := fmt.Sprintf("Reviewed %d of %d changed files: score %.0f/100 (%s), %d suggestions, %d security issues, %d performance issues.",
		m.FilesSucceeded, m.FilesAttempted,
		result.Overall.Score, result.Overall.Status,
		len(result.Suggestions), len(result.SecurityIssues), len(result.PerformanceIssues))
	if m.HumanReviewRecommended {
		summary += " A human review is recommended."
	}
	return summary
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
