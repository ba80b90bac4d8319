package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var jwtCmd = &cobra.Command{
	Use:   "jwt",
	Short: "Sign and print a fresh App assertion (JWT)",
	Long: `Signs a ten-minute JWT assertion with the App's private key and
prints it to stdout, suitable for use in shell scripts:

  curl -H "Authorization: Bearer $(ghauth jwt)" https://api.github.com/app`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.Context())
		if err != nil {
			return err
		}
		assertion, err := s.signer.Sign()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), assertion.Value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jwtCmd)
}
