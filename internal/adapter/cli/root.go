package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bkyoung/review-gateway/internal/domain"
	"github.com/bkyoung/review-gateway/internal/usecase/orchestrate"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// errNoPlatforms points the operator at the config fix when a command needs
// at least one connector and none is configured.
var errNoPlatforms = errors.New("no platforms configured; enable at least one under platforms in revgw.yaml")

// PullRequestReviewer runs a one-shot review of a single pull request.
type PullRequestReviewer interface {
	ReviewPullRequest(ctx context.Context, req orchestrate.ReviewRequest) (domain.Run, domain.ReviewResult, error)
}

// Server is the long-running webhook gateway started by the serve command.
type Server interface {
	Run(ctx context.Context) error
}

// PlatformValidator is the slice of a platform connector the validate
// command needs.
type PlatformValidator interface {
	Platform() domain.Platform
	Validate(ctx context.Context) error
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI. Reviewer, Server,
// and Validators stay nil/empty when no platform is configured; the
// commands that need them fail with guidance at invocation time so that
// version and check-skip keep working on a bare install.
type Dependencies struct {
	Reviewer   PullRequestReviewer
	Server     Server
	Validators []PlatformValidator
	Markdown   ReportWriter
	JSON       ReportWriter
	SARIF      ReportWriter
	OutputDir  string
	Args       Arguments
	Version    string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "revgw",
		Short: "Git platform webhook gateway and review orchestrator",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	root.AddCommand(serveCommand(deps.Server))
	root.AddCommand(reviewCommand(deps))
	root.AddCommand(validateCommand(deps.Validators))
	root.AddCommand(versionCommand(versionString))
	root.AddCommand(checkSkipCommand())

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func serveCommand(server Server) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook gateway until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == nil {
				return errNoPlatforms
			}
			return server.Run(cmd.Context())
		},
	}
}

func versionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the revgw version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}
