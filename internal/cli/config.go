package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long:  `Show the API base URL and session file resolved from the environment.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"server":       opts.cfg.ServerURL,
					"session_file": opts.cfg.SessionFile,
					"log_level":    opts.cfg.LogLevel,
				})
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server: %s\n", opts.cfg.ServerURL)
			fmt.Fprintf(cmd.OutOrStdout(), "Session file: %s\n", opts.cfg.SessionFile)
			return nil
		},
	}
}
