// Package cli implements the backoffice command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tansive/backoffice/internal/apiclient"
	"github.com/tansive/backoffice/internal/authboundary"
	"github.com/tansive/backoffice/internal/common/logtrace"
	"github.com/tansive/backoffice/internal/config"
	"github.com/tansive/backoffice/internal/session"
)

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootOptions is shared by every command of one root command tree.
type rootOptions struct {
	jsonOutput bool
	configFile string

	cfg      *config.Config
	store    *session.FileStore
	boundary *authboundary.Boundary
}

// NewRootCmd builds the backoffice command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "backoffice [command] [flags]",
		Short: "Back-office CLI - authenticated access to the dashboard API",
		Long: `Back-office CLI talks to the dashboard API the same way the dashboard does:
every call carries the stored bearer token, JSON bodies are negotiated automatically,
and a rejected session is cleared so you can log in again.

Configuration comes from the environment (or a .env file):
  BACKOFFICE_API_URL       API base URL (default http://localhost:8000)
  BACKOFFICE_SESSION_FILE  where the session is stored
  BACKOFFICE_LOG_LEVEL     trace, debug, info, warn, error
Use --config to read a different env file.

Examples:
  # Log in and store the session
  backoffice login --username ada --password secret

  # Call an endpoint
  backoffice request GET /projects

  # Upload an image and print its URL
  backoffice upload ./avatar.png`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Env file to load instead of ./.env")

	rootCmd.AddCommand(newVersionCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newLoginCmd(opts))
	rootCmd.AddCommand(newLogoutCmd(opts))
	rootCmd.AddCommand(newWhoamiCmd(opts))
	rootCmd.AddCommand(newRequestCmd(opts))
	rootCmd.AddCommand(newUploadCmd(opts))
	return rootCmd
}

// load resolves configuration and wires the session store, API client and
// login boundary for the command about to run.
func (o *rootOptions) load(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if o.configFile != "" {
		cfg, err = config.LoadFile(o.configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	logtrace.InitLogger(cfg.LogLevel)

	store := session.NewFileStore(cfg.SessionFile)
	client, err := apiclient.NewClient(cfg.ServerURL, store, apiclient.WithLogger(log.Logger))
	if err != nil {
		return err
	}
	o.cfg = cfg
	o.store = store
	o.boundary = authboundary.New(client, &loginNotice{w: cmd.ErrOrStderr()})
	return nil
}

// loginNotice is the terminal's version of navigating to the login page.
type loginNotice struct {
	w io.Writer
}

func (n *loginNotice) Navigate(_ context.Context, _ string) {
	errorLabel.Fprintln(n.w, "Session expired or invalid. Run \"backoffice login\" to sign in again.")
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	// The login notice was already printed.
	if errors.Is(err, apiclient.ErrUnauthenticated) {
		os.Exit(1)
	}
	if jsonFlag, _ := rootCmd.PersistentFlags().GetBool("json"); jsonFlag {
		printJSON(os.Stdout, map[string]string{"error": err.Error()})
	} else {
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func newVersionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of the backoffice CLI",
		Run: func(cmd *cobra.Command, args []string) {
			if opts.jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{"version": getCLIVersion()})
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backoffice CLI %s\n", getCLIVersion())
		},
	}
}

// printJSON writes data as indented JSON.
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}

func getCLIVersion() string {
	return "v0.1.0"
}
