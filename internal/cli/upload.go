package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tansive/backoffice/internal/apiclient"
)

func newUploadCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "upload FILE",
		Short: "Upload an image and print its URL",
		Long: `Upload sends an image to the media endpoint and prints the absolute URL
under which the server stored it. Files that are not images are refused before
anything is sent.

Example:
  backoffice upload ./avatar.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, opts, args[0])
		},
	}
}

func runUpload(cmd *cobra.Command, opts *rootOptions, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close()

	url, err := opts.boundary.UploadImage(cmd.Context(), &apiclient.File{
		Name:    filepath.Base(path),
		Content: f,
	})
	if err != nil {
		if errors.Is(err, apiclient.ErrUnauthenticated) {
			return err
		}
		return errors.New(apiclient.UserMessage(err))
	}

	if opts.jsonOutput {
		printJSON(cmd.OutOrStdout(), map[string]string{"url": url})
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), url)
	return nil
}
