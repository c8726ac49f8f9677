package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/analysis"
)

const (
	// autoFixConfidenceThreshold gates fix generation. Suggestions at or
	// below it are surfaced in the summary but never pushed as code.
	autoFixConfidenceThreshold = 0.8

	autoFixBranchPrefix = "review-gateway/autofix-"
)

// autoFixCandidates returns the suggestions eligible for automatic fixing:
// flagged auto-fixable, confident above the threshold, and anchored to a file.
func autoFixCandidates(findings []domain.Finding) []domain.Finding {
	var eligible []domain.Finding
	for _, f := range findings {
		if f.AutoFixable && f.Confidence > autoFixConfidenceThreshold && f.File != "" {
			eligible = append(eligible, f)
		}
	}
	return eligible
}

// applyAutoFixes generates corrected file content for eligible suggestions and
// pushes the result to a dedicated autofix branch. Failures here are logged
// and skipped; a completed review never fails on auto-fix.
func (o *Orchestrator) applyAutoFixes(ctx context.Context, connector Connector, event domain.WebhookEvent, run domain.Run, result domain.ReviewResult) {
	candidates := autoFixCandidates(result.Suggestions)
	if len(candidates) == 0 {
		return
	}
	if o.generator == nil || o.fixer == nil {
		o.logger.Debugf(ctx, "auto-fix enabled but no generator or fixer configured, skipping %d candidate(s)", len(candidates))
		return
	}

	owner := event.Repository.Owner
	repo := event.Repository.Name
	headSHA := event.PullRequest.HeadSHA

	// Fixes chain per file: the second finding in a file rewrites the
	// output of the first, not the original content.
	fixed := make(map[string][]byte)
	applied := 0
	for _, finding := range candidates {
		content, ok := fixed[finding.File]
		if !ok {
			raw, err := connector.GetFileContent(ctx, owner, repo, finding.File, headSHA)
			if err != nil {
				o.logger.Warnf(ctx, "auto-fix: loading %s: %v", finding.File, err)
				continue
			}
			content = raw
		}

		prompt, err := renderFixPrompt(finding, analysis.DetectLanguage(finding.File), content)
		if err != nil {
			o.logger.Warnf(ctx, "auto-fix: building prompt for %s: %v", finding.File, err)
			continue
		}
		response, err := o.generator.Generate(ctx, GenerateRequest{
			Prompt:      prompt,
			MaxTokens:   fixMaxTokens,
			Temperature: fixTemperature,
		})
		if err != nil {
			o.logger.Warnf(ctx, "auto-fix: generating fix for %s:%d: %v", finding.File, finding.Line, err)
			continue
		}
		code := extractCode(response)
		if strings.TrimSpace(code) == "" {
			o.logger.Warnf(ctx, "auto-fix: empty fix generated for %s:%d", finding.File, finding.Line)
			continue
		}

		fixed[finding.File] = []byte(code)
		applied++
	}
	if len(fixed) == 0 {
		return
	}

	branch := autoFixBranchPrefix + run.ID
	req := FixRequest{
		Platform:   event.Platform,
		Owner:      owner,
		Repo:       repo,
		CloneURL:   event.Repository.CloneURL,
		BaseBranch: event.PullRequest.SourceBranch,
		BranchName: branch,
		Message:    fmt.Sprintf("Apply %d automated review fix(es)", applied),
		Files:      fixed,
	}
	if err := o.fixer.Apply(ctx, req); err != nil {
		o.logger.Warnf(ctx, "auto-fix: pushing %s: %v", branch, err)
		return
	}

	o.metrics.AutoFixesApplied(applied)
	o.logger.Infof(ctx, "auto-fix: applied %d fix(es) across %d file(s) on %s", applied, len(fixed), branch)
}
