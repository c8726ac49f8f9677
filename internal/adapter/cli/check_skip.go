package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bkyoung/review-gateway/internal/usecase/skip"
)

// ErrShouldReview is returned when no skip trigger is found,
// indicating the review should proceed. Use this as a sentinel
// error in CI workflows.
var ErrShouldReview = errors.New("should review")

// checkSkipCommand creates the check-skip subcommand.
// This command checks pull request metadata for skip triggers.
//
// Exit codes:
//   - 0: Skip trigger found, review should be skipped
//   - 1: No skip trigger, review should proceed
func checkSkipCommand() *cobra.Command {
	var prTitle string
	var labels []string

	cmd := &cobra.Command{
		Use:   "check-skip",
		Short: "Check if a pull request opts out of automated review",
		Long: `Check a pull request title and labels for skip triggers.

Supported skip trigger patterns:
  [skip review] / [skip-review]
  [no review] / [no-review]
  a skip-review label

Title patterns are case-insensitive and can appear anywhere in the text.

Exit codes:
  0 - Skip trigger found, review should be skipped
  1 - No skip trigger, review should proceed

Example usage in GitHub Actions:
  if ./revgw check-skip --pr-title "${{ github.event.pull_request.title }}"; then
    echo "Skipping review"
    exit 0
  fi`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := skip.Check(skip.CheckRequest{
				Title:  prTitle,
				Labels: labels,
			})

			if result.ShouldSkip {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "skip: %s\n", result.Reason)
				return nil // Exit 0
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "review: no skip trigger found")
			return ErrShouldReview // Exit 1
		},
	}

	cmd.Flags().StringVar(&prTitle, "pr-title", "", "Pull request title to check")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "Pull request label to check (can be repeated)")

	return cmd
}
