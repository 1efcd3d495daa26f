package token

import (
	"fmt"

	"github.com/spf13/cobra"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Print the identity provider id of a user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := selectedUser(cmd.Context())
		if err != nil {
			return err
		}
		client, err := tokenClient(cmd.Context())
		if err != nil {
			return err
		}

		id, err := client.UserID(cmd.Context(), user)
		if err != nil {
			return fmt.Errorf("failed to get user id for %s: %w", user.Email, err)
		}

		return printResult(cmd.OutOrStdout(), id, map[string]string{"email": user.Email, "id": id})
	},
}
