package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Long:  `Logout removes the stored token and display name. Logging out twice is harmless.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			if opts.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{"status": "success"})
				return nil
			}
			okLabel.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
			return nil
		},
	}
}
