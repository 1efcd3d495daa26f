package token

import (
	"fmt"

	"github.com/spf13/cobra"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Lease a service-to-service token",
	Long: `Leases a fresh token for the configured microservice. Service tokens are
never cached, so every invocation calls the lease endpoint.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := tokenClient(cmd.Context())
		if err != nil {
			return err
		}

		token, err := client.ServiceToken(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to lease service token: %w", err)
		}

		return printResult(cmd.OutOrStdout(), token, map[string]string{"service_token": token})
	},
}
