package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCommand builds the credential preflight subcommand. Every
// configured platform is checked; one failure does not stop the rest.
func validateCommand(validators []PlatformValidator) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate credentials for every configured platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(validators) == 0 {
				return errNoPlatforms
			}
			ctx := cmd.Context()
			failed := 0
			for _, v := range validators {
				if err := v.Validate(ctx); err != nil {
					failed++
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: FAILED: %v\n", v.Platform(), err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", v.Platform())
			}
			if failed > 0 {
				return fmt.Errorf("credential validation failed for %d of %d platform(s)", failed, len(validators))
			}
			return nil
		},
	}
}
