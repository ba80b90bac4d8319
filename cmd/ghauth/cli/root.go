// Package cli implements the ghauth command-line interface using Cobra:
// sign an App assertion, exchange it for an installation token, and wire
// the token into git without persisting it anywhere.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/majorcontext/ghauth/internal/config"
	"github.com/majorcontext/ghauth/internal/lifecycle"
	"github.com/majorcontext/ghauth/internal/log"
)

var (
	cfgPath string
	verbose bool
	jsonOut bool
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "ghauth",
	Short: "Short-lived GitHub App installation credentials for git",
	Long: `ghauth authenticates as a GitHub App installation: it signs a
ten-minute JWT assertion with the App's private key, exchanges it for a
one-hour installation token, validates the identity the provider reports
for that key, and hands the token to git through a repository-scoped
identity and an ephemeral askpass helper.

Every run mints fresh credentials. Nothing is cached, and any failure
stops the process before git is touched.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		retention, err := config.DebugRetentionDays()
		if err != nil {
			return err
		}
		debugDir := filepath.Join(config.Dir(), "debug")
		if err := log.Init(log.Options{
			Verbose:       verbose,
			JSONFormat:    jsonOut,
			DebugDir:      debugDir,
			RetentionDays: retention,
		}); err != nil {
			// Non-fatal: fall back to the default logger.
			cmd.PrintErrf("Warning: failed to initialize debug logging: %v\n", err)
		}
		return nil
	},
}

// Execute runs the root command and returns the process exit code: 0 for
// Ready, a distinct non-zero code per failure class otherwise. The
// diagnostic goes to stderr and never contains key material or tokens.
func Execute() int {
	err := rootCmd.Execute()
	log.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ghauth: %v\n", err)
		return lifecycle.ExitCode(err)
	}
	return lifecycle.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "secrets/config.txt", "path to the KEY=VALUE app config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "log in JSON format")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "network timeout per provider call (default from config, 10s)")
}
