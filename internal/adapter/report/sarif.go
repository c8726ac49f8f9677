package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bkyoung/review-gateway/internal/domain"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

// SARIFWriter renders review results as SARIF 2.1.0 so CI systems can
// ingest findings alongside other static-analysis tools.
type SARIFWriter struct {
	now clock
}

// NewSARIFWriter creates a new SARIF writer with a timestamp supplier.
func NewSARIFWriter(now clock) *SARIFWriter {
	return &SARIFWriter{now: now}
}

// Write persists the review result as a SARIF file and returns its path.
func (w *SARIFWriter) Write(ctx context.Context, artifact Artifact) (string, error) {
	outputDir := filepath.Join(artifact.OutputDir,
		fmt.Sprintf("%s_%s_pr%d", sanitise(artifact.Owner), sanitise(artifact.Repo), artifact.Number),
		w.now())
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(outputDir, "review.sarif")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create sarif file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(buildSARIF(artifact)); err != nil {
		return "", fmt.Errorf("encode sarif: %w", err)
	}

	return path, nil
}

func buildSARIF(artifact Artifact) map[string]any {
	result := artifact.Result

	findings := make([]domain.Finding, 0,
		len(result.Suggestions)+len(result.SecurityIssues)+len(result.PerformanceIssues))
	findings = append(findings, result.Suggestions...)
	findings = append(findings, result.SecurityIssues...)
	findings = append(findings, result.PerformanceIssues...)

	results := make([]map[string]any, 0, len(findings))
	seen := make(map[string]bool, len(findings))
	for _, finding := range findings {
		// Security and performance findings also appear as suggestions;
		// one SARIF result per finding ID is enough.
		if seen[finding.ID] {
			continue
		}
		seen[finding.ID] = true
		results = append(results, sarifResult(finding))
	}

	return map[string]any{
		"version": "2.1.0",
		"$schema": sarifSchema,
		"runs": []map[string]any{
			{
				"tool": map[string]any{
					"driver": map[string]any{
						"name":           "review-gateway",
						"informationUri": "https://github.com/bkyoung/review-gateway",
						"rules":          sarifRules(results),
					},
				},
				"results": results,
				"properties": map[string]any{
					"pullRequest":  result.PullRequestID,
					"score":        result.Overall.Score,
					"status":       result.Overall.Status,
					"summary":      result.Overall.Summary,
					"testCoverage": result.TestCoverage,
				},
			},
		},
	}
}

func sarifResult(finding domain.Finding) map[string]any {
	message := finding.Description
	if message == "" {
		message = finding.Title
	}
	ruleID := finding.Category
	if ruleID == "" {
		ruleID = "review"
	}

	out := map[string]any{
		"ruleId":  ruleID,
		"level":   sarifLevel(finding.Severity),
		"message": map[string]any{"text": message},
	}

	// Findings without a file are run-level observations; SARIF allows
	// results with no location.
	if finding.File != "" {
		location := map[string]any{
			"artifactLocation": map[string]any{"uri": finding.File},
		}
		if finding.Line >= 1 {
			location["region"] = map[string]any{
				"startLine": finding.Line,
				"endLine":   finding.Line,
			}
		}
		out["locations"] = []map[string]any{{"physicalLocation": location}}
	}

	out["properties"] = map[string]any{
		"confidence":  finding.Confidence,
		"autoFixable": finding.AutoFixable,
	}
	return out
}

// sarifRules declares one rule per category that actually occurs, as the
// schema expects every referenced ruleId to be declared.
func sarifRules(results []map[string]any) []map[string]any {
	seen := make(map[string]bool)
	var rules []map[string]any
	for _, r := range results {
		id, _ := r["ruleId"].(string)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		rules = append(rules, map[string]any{
			"id": id,
			"shortDescription": map[string]any{
				"text": fmt.Sprintf("Automated review %s finding", id),
			},
		})
	}
	if rules == nil {
		rules = []map[string]any{}
	}
	return rules
}

func sarifLevel(severity string) string {
	switch severity {
	case domain.SeverityCritical, domain.SeverityHigh:
		return "error"
	case domain.SeverityMedium:
		return "warning"
	case domain.SeverityLow:
		return "note"
	default:
		return "warning"
	}
}
