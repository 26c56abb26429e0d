package cli

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/tansive/backoffice/internal/apiclient"
	"github.com/tidwall/gjson"
)

// LoginEndpoint issues tokens for username/password credentials.
const LoginEndpoint = "auth/login"

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate and store the session",
		Long: `Login exchanges a username and password for a bearer token and stores it,
together with the display name returned by the server, in the session file.

Example:
  backoffice login --username ada --password secret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			return runLogin(cmd, opts, username, password)
		},
	}
	cmd.Flags().StringP("username", "u", "", "Username")
	cmd.Flags().StringP("password", "p", "", "Password")
	return cmd
}

func runLogin(cmd *cobra.Command, opts *rootOptions, username, password string) error {
	if username == "" {
		return errors.New("no username provided. Use --username")
	}
	if password == "" {
		return errors.New("no password provided. Use --password")
	}
	ctx := cmd.Context()

	// Whatever was stored before belongs to someone else now.
	if err := opts.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	raw, err := opts.boundary.Client().Do(ctx, &apiclient.Request{
		Method:   http.MethodPost,
		Endpoint: LoginEndpoint,
		Body:     apiclient.JSONBody(loginRequest{Username: username, Password: password}),
	})
	if errors.Is(err, apiclient.ErrUnauthenticated) {
		return errors.New("login rejected by server")
	}
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}

	token := firstString(raw, "access_token", "token")
	if token == "" {
		return errors.New("login response did not contain a token")
	}
	displayName := firstString(raw, "username", "display_name", "name")
	if displayName == "" {
		displayName = username
	}

	if err := opts.store.Set(ctx, token, displayName); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if opts.jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]string{
			"status":       "success",
			"display_name": displayName,
		})
		return nil
	}
	okLabel.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", displayName)
	return nil
}

func firstString(raw []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(raw, p).String(); v != "" {
			return v
		}
	}
	return ""
}
