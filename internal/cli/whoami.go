package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/tansive/backoffice/internal/apiclient"
	"github.com/tansive/backoffice/internal/session"
)

// MeEndpoint returns the identity behind the current token.
const MeEndpoint = "users/me"

type whoamiResult struct {
	DisplayName   string `json:"display_name,omitempty"`
	Authenticated bool   `json:"authenticated"`
	ExpiresAt     string `json:"expires_at,omitempty"`
	Verified      bool   `json:"verified,omitempty"`
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored identity",
		Long: `Whoami prints the display name stored with the session and, when the token
carries one, its expiry. With --verify the token is checked against the server and
the stored display name is refreshed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			verify, _ := cmd.Flags().GetBool("verify")
			return runWhoami(cmd, opts, verify)
		},
	}
	cmd.Flags().Bool("verify", false, "Check the token with the server")
	return cmd
}

func runWhoami(cmd *cobra.Command, opts *rootOptions, verify bool) error {
	ctx := cmd.Context()
	sess := opts.store.Get(ctx)

	result := whoamiResult{
		DisplayName:   sess.DisplayName,
		Authenticated: sess.HasToken(),
	}
	if exp, ok := session.TokenExpiry(sess.Token); ok {
		result.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}

	if verify && sess.HasToken() {
		me, err := apiclient.DoJSON[struct {
			Username string `json:"username"`
		}](ctx, opts.boundary, &apiclient.Request{Method: http.MethodGet, Endpoint: MeEndpoint})
		if err != nil {
			return err
		}
		result.Verified = true
		if me.Username != "" && me.Username != sess.DisplayName {
			if err := opts.store.Set(ctx, sess.Token, me.Username); err != nil {
				return fmt.Errorf("failed to save session: %w", err)
			}
			result.DisplayName = me.Username
		}
	}

	if opts.jsonOutput {
		printJSON(cmd.OutOrStdout(), result)
		return nil
	}
	w := cmd.OutOrStdout()
	if !result.Authenticated {
		fmt.Fprintln(w, "Not logged in")
		return nil
	}
	name := result.DisplayName
	if name == "" {
		name = "(unknown)"
	}
	fmt.Fprintf(w, "Logged in as %s\n", name)
	if result.ExpiresAt != "" {
		fmt.Fprintf(w, "Token expires: %s\n", result.ExpiresAt)
	}
	if result.Verified {
		okLabel.Fprintln(w, "✓ Token accepted by server")
	}
	return nil
}
