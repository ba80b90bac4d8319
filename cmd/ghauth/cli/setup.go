package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/majorcontext/ghauth/internal/bridge"
	"github.com/majorcontext/ghauth/internal/lifecycle"
	"github.com/majorcontext/ghauth/internal/log"
)

var (
	setupRepo       string
	setupRepos      []string
	setupAskpassDir string
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Mint a token and bridge it into a working tree",
	Long: `Runs the whole lifecycle and ends with git wired up: the bot
committer identity is written into the working tree's repository-local
config, and an ephemeral askpass helper answering git's credential
prompts is installed.

The token itself is never printed. On success stdout carries a single
GIT_ASKPASS export for the calling shell:

  eval "$(ghauth setup --repo .)"
  GIT_ASKPASS=... git push`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}

		required := scopeRepositories(setupRepo, setupRepos, s.cfg.Repositories)

		var askpassPath string
		runner := lifecycle.NewRunner()
		err = runner.Run(ctx, []lifecycle.Stage{
			s.signStage(),
			s.exchangeStage(required),
			s.validateStage(required),
			{
				Name: "bridge",
				To:   lifecycle.StateBridgeInstalled,
				Run: func(ctx context.Context) error {
					name, email := bridge.BotIdentity(s.identity.Slug, s.identity.AppID, s.cfg.Host)
					if err := bridge.ConfigureRepo(setupRepo, name, email); err != nil {
						return err
					}
					log.Debug("committer identity configured", "name", name, "repo", setupRepo)

					path, err := bridge.NewCallback(s.token.Value).Install(setupAskpassDir)
					if err != nil {
						return err
					}
					askpassPath = path
					return nil
				},
			},
		})
		if err != nil {
			return err
		}

		name, _ := bridge.BotIdentity(s.identity.Slug, s.identity.AppID, s.cfg.Host)
		cmd.PrintErrf("Authenticated as %s (app %d)\n", name, s.identity.AppID)
		if len(s.token.GrantedRepositories) > 0 {
			cmd.PrintErrf("Token grants: %s\n", strings.Join(s.token.GrantedRepositories, ", "))
		}
		cmd.PrintErrf("Token expires: %s\n", s.token.ExpiresAt.UTC().Format("2006-01-02 15:04:05 MST"))
		cmd.PrintErrf("Askpass helper: %s (delete after use)\n", askpassPath)

		fmt.Fprintf(cmd.OutOrStdout(), "export GIT_ASKPASS=%s\n", shellQuote(askpassPath))
		return nil
	},
}

// scopeRepositories picks the token scope: an explicit --repos list,
// else the repositories derived from dir's git remotes, else the
// configured default. A failed derivation is not fatal, but it widens
// the token request, so it is logged rather than swallowed.
func scopeRepositories(dir string, flag, fallback []string) []string {
	if len(flag) > 0 {
		return flag
	}
	derived, err := bridge.DeriveRepositories(dir)
	if err != nil {
		log.Warn("could not derive repository scope from git remotes", "dir", dir, "error", err)
		return fallback
	}
	return derived
}

// shellQuote single-quotes s for the eval'd export line.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func init() {
	setupCmd.Flags().StringVar(&setupRepo, "repo", ".", "working tree to configure")
	setupCmd.Flags().StringSliceVar(&setupRepos, "repos", nil, "owner/name repositories to scope the token to (default: derived from git remotes)")
	setupCmd.Flags().StringVar(&setupAskpassDir, "askpass-dir", "", "directory for the askpass helper (default: private temp dir)")
	rootCmd.AddCommand(setupCmd)
}
