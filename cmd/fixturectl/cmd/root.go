package cmd

import (
	"fmt"
	"os"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/cmd/caseops"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/cmd/stub"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/cmd/token"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/internal/client"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/internal/config"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "fixturectl",
	Short: "Test fixture CLI - tokens and cases for end-to-end tests",
	Long: `fixturectl obtains identity and service tokens for configured test users
and drives the case data store to create cases and fire events, so end-to-end
suites can set up their fixtures. "fixturectl stub serve" runs an in-memory
stand-in for all three upstream services.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			settings.Log.Level = logLevel
		}

		log.Init(settings.Log)
		logger := log.L()
		logger.Debug().Str("idam_url", settings.IdamURL).Str("case_data_url", settings.CaseDataURL).Msg("configuration loaded")

		provider := client.NewProvider(settings.TokenClientConfig(), settings.CaseDataURL, settings.HTTPTimeout, logger)
		ctx := config.InjectConfig(cmd.Context(), &config.GlobalConfig{
			Settings:       settings,
			ClientProvider: provider,
		})
		cmd.SetContext(log.IntoContext(ctx, logger))
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default is ./fixturectl.yaml, env FIXTURE_* overrides)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (overrides log.level)")
	rootCmd.AddCommand(token.TokenCmd)
	rootCmd.AddCommand(caseops.CaseCmd)
	rootCmd.AddCommand(stub.StubCmd)
}
