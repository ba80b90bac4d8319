package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/majorcontext/ghauth/internal/bridge"
	"github.com/majorcontext/ghauth/internal/lifecycle"
)

var (
	tokenRepos       []string
	tokenDeriveRepos string
)

// tokenOutput is the JSON document printed on success.
type tokenOutput struct {
	Token                  string   `json:"token"`
	ExpiresAt              string   `json:"expires_at"`
	AppID                  int64    `json:"app_id"`
	AppSlug                string   `json:"app_slug"`
	RequiredRepositories   []string `json:"required_repositories,omitempty"`
	GrantedRepositoryCount int      `json:"granted_repository_count"`
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange a fresh assertion for an installation token",
	Long: `Runs the full exchange: signs an assertion, trades it for an
installation access token, validates the App identity the provider
reports for the key, and verifies the token reaches every required
repository. Prints a JSON document with the token and its expiry.

The token is valid for about an hour and is never stored; run the
command again for a fresh one.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := newSession(ctx)
		if err != nil {
			return err
		}

		required, err := requiredRepositories(s)
		if err != nil {
			return err
		}

		runner := lifecycle.NewRunner()
		err = runner.Run(ctx, []lifecycle.Stage{
			s.signStage(),
			s.exchangeStage(required),
			s.validateStage(required),
		})
		if err != nil {
			return err
		}

		out := tokenOutput{
			Token:                  s.token.Value,
			ExpiresAt:              s.token.ExpiresAt.UTC().Format(time.RFC3339),
			AppID:                  s.identity.AppID,
			AppSlug:                s.identity.Slug,
			RequiredRepositories:   required,
			GrantedRepositoryCount: len(s.token.GrantedRepositories),
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		return enc.Encode(out)
	},
}

// requiredRepositories resolves the token scope: --repos wins, then
// --derive-repos (git remotes of a working tree and the tree vendoring
// it), then the config default.
func requiredRepositories(s *session) ([]string, error) {
	if len(tokenRepos) > 0 {
		return tokenRepos, nil
	}
	if tokenDeriveRepos != "" {
		return bridge.DeriveRepositories(tokenDeriveRepos)
	}
	return s.cfg.Repositories, nil
}

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenRepos, "repos", nil, "owner/name repositories to scope the token to")
	tokenCmd.Flags().StringVar(&tokenDeriveRepos, "derive-repos", "", "derive the repository scope from this working tree's git remotes")
	tokenCmd.MarkFlagsMutuallyExclusive("repos", "derive-repos")
	rootCmd.AddCommand(tokenCmd)
}
