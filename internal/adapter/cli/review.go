package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bkyoung/review-gateway/internal/adapter/report"
	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

// ReportWriter persists one review result to disk and returns the path
// it wrote.
type ReportWriter interface {
	Write(ctx context.Context, artifact report.Artifact) (string, error)
}

// reviewCommand builds the one-shot review subcommand: fetch, analyze, and
// report on a single pull request without going through a webhook.
func reviewCommand(deps Dependencies) *cobra.Command {
	var platformName string
	var owner string
	var repo string
	var number int
	var format string
	var outputDir string
	var post bool

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review one pull request and write a report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if deps.Reviewer == nil {
				return errNoPlatforms
			}
			platform, err := parsePlatform(platformName)
			if err != nil {
				return err
			}
			if owner == "" || repo == "" {
				return fmt.Errorf("--owner and --repo are required")
			}
			if number <= 0 {
				return fmt.Errorf("--pr must be a positive integer")
			}
			writer, err := reportWriterFor(deps, format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			run, result, err := deps.Reviewer.ReviewPullRequest(ctx, orchestrate.ReviewRequest{
				Platform: platform,
				Owner:    owner,
				Repo:     repo,
				Number:   number,
				Post:     post,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "run %s: score %.0f/100 (%s), %d finding(s)\n",
				run.ID, result.Overall.Score, result.Overall.Status, run.IssueCount)

			dir := outputDir
			if dir == "" {
				dir = deps.OutputDir
			}
			path, err := writer.Write(ctx, report.Artifact{
				Platform:  platform,
				Owner:     owner,
				Repo:      repo,
				Number:    number,
				Result:    result,
				OutputDir: dir,
			})
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&platformName, "platform", "", "Platform hosting the pull request (github, gitlab, bitbucket, azure)")
	cmd.Flags().StringVar(&owner, "owner", "", "Repository owner, workspace, or project")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository name")
	cmd.Flags().IntVar(&number, "pr", 0, "Pull request number")
	cmd.Flags().StringVar(&format, "output", "markdown", "Report format: markdown, json, or sarif")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "Directory for the report (defaults to output.directory from config)")
	cmd.Flags().BoolVar(&post, "post", false, "Also post comments and a commit status back to the platform")

	return cmd
}

func reportWriterFor(deps Dependencies, format string) (ReportWriter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "markdown", "md":
		if deps.Markdown == nil {
			return nil, fmt.Errorf("markdown writer not configured")
		}
		return deps.Markdown, nil
	case "json":
		if deps.JSON == nil {
			return nil, fmt.Errorf("json writer not configured")
		}
		return deps.JSON, nil
	case "sarif":
		if deps.SARIF == nil {
			return nil, fmt.Errorf("sarif writer not configured")
		}
		return deps.SARIF, nil
	}
	return nil, fmt.Errorf("unknown output format %q (expected markdown, json, or sarif)", format)
}

// parsePlatform maps a user-facing platform name to its canonical tag.
func parsePlatform(value string) (domain.Platform, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "github":
		return domain.PlatformGitHub, nil
	case "gitlab":
		return domain.PlatformGitLab, nil
	case "bitbucket":
		return domain.PlatformBitbucket, nil
	case "azure", "azure-devops", "azure_devops":
		return domain.PlatformAzureDevOps, nil
	case "":
		return "", fmt.Errorf("--platform is required")
	}
	return "", fmt.Errorf("unknown platform %q (expected github, gitlab, bitbucket, or azure)", value)
}
