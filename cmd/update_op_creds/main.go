package main

import (
	"context"
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	operrors "github.com/systmms/opcredsync/internal/errors"
	"github.com/systmms/opcredsync/internal/logging"
	"github.com/systmms/opcredsync/internal/manifest"
	"github.com/systmms/opcredsync/internal/opcli"
	"github.com/systmms/opcredsync/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := newRootCmd().Execute()

	// wipe credential enclaves before the process exits
	memguard.Purge()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		dryRun  bool
		account string
		debug   bool
		noColor bool
	)

	rootCmd := &cobra.Command{
		Use:   "update_op_creds <manifest> <vault>",
		Short: "Write updated credentials from a TOML manifest into a 1Password vault",
		Long: `update_op_creds reads a TOML credential manifest and, for each named
credential, finds the matching item in the given 1Password vault and
overwrites its secret field via the op CLI.

Items are matched by title: the lowercased issuer name and credential
name, joined by a space, must appear in the item's title. Within the
matched item the tool updates the top-level concealed field named
"credential" (op's API Credential convention), falling back to the first
top-level concealed field, then the first concealed field.

An authenticated op session is required; run 'op signin' first.

Example manifest:

  [[issuers]]
  issuer = "GitLab"

    [[issuers.credentials]]
    name  = "cli PAT"
    value = "glpat-..."`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(debug, noColor)
			manifestPath, vault := args[0], args[1]

			m, err := manifest.Load(manifestPath)
			if err != nil {
				return err
			}

			client := opcli.NewClient(logger)
			client.Account = account

			ctx := context.Background()
			if err := client.Validate(ctx); err != nil {
				return operrors.UserError{
					Message:    "1Password CLI is not ready",
					Details:    err.Error(),
					Suggestion: operrors.OnePasswordSuggestion(err),
					Err:        err,
				}
			}

			if dryRun {
				logger.Warn("dry-run: vault items will not be modified")
			}

			runner := update.NewRunner(client, logger)
			runner.DryRun = dryRun

			return runner.Run(ctx, m, vault)
		},
	}

	rootCmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Run commands without uploading edits")
	rootCmd.Flags().StringVar(&account, "account", "", "1Password account to use (forwarded to op)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return rootCmd
}
