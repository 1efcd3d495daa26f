package token

import (
	"fmt"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Print an access token for a user",
	Long: `Performs a password grant against the identity provider for the selected
user and prints the resulting bearer token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := selectedUser(cmd.Context())
		if err != nil {
			return err
		}
		client, err := tokenClient(cmd.Context())
		if err != nil {
			return err
		}

		token, err := client.AccessToken(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("failed to get access token for %s: %w", user.Email, err)
		}

		creds := sdk.CredentialsFor(token)
		if creds.IsExpired() {
			pterm.Warning.Printf("Token for %s is already past its exp claim\n", user.Email)
		}
		return printResult(cmd.OutOrStdout(), token, creds)
	},
}
