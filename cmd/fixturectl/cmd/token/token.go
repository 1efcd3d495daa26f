package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/internal/config"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/spf13/cobra"
)

var (
	userAlias string
	email     string
	password  string
	asJSON    bool
)

// TokenCmd is the parent command for token operations
var TokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Obtain user and service tokens",
	Long: `Commands for obtaining access tokens, user ids and service tokens.

Users are selected by alias from the "users" config section with --user,
or given explicitly with --email and --password.`,
}

func init() {
	TokenCmd.PersistentFlags().StringVarP(&userAlias, "user", "u", "", "Configured user alias")
	TokenCmd.PersistentFlags().StringVar(&email, "email", "", "User email (overrides --user)")
	TokenCmd.PersistentFlags().StringVar(&password, "password", "", "User password (overrides --user)")
	TokenCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of the bare value")

	TokenCmd.AddCommand(accessCmd)
	TokenCmd.AddCommand(idCmd)
	TokenCmd.AddCommand(serviceCmd)
}

func tokenClient(ctx context.Context) (*sdk.TokenClient, error) {
	cfg := config.MustFromContext(ctx)
	return cfg.ClientProvider.TokenClient()
}

func selectedUser(ctx context.Context) (sdk.UserCredential, error) {
	cfg := config.MustFromContext(ctx)
	return cfg.Settings.ResolveUser(userAlias, email, password)
}

// printResult writes value bare, or v as indented JSON when --json is set.
// Logs go to stderr, so w only ever carries the result.
func printResult(w io.Writer, value string, v any) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, value)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
