package caseops

import (
	"fmt"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/log"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a case",
	Long: `Starts the creation event for the case type and submits it with the data
from --data. Prints the stored case, including its generated id.`,
	Example: `  fixturectl case create --user dwpResponseWriter --event validAppealCreated --data appeal.json
  fixturectl case create --user dwpResponseWriter --event validAppealCreated --benefit WELSHPIP`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if eventID == "" {
			return fmt.Errorf("--event is required")
		}
		user, err := actingUser(cmd.Context())
		if err != nil {
			return err
		}
		ctx := log.WithUser(cmd.Context(), user.Email)
		logger := log.FromContext(ctx)
		logger.Debug().Str("event", eventID).Str("case_type", caseType).Msg("creating case")
		preset, err := benefitData(benefit)
		if err != nil {
			return err
		}
		data, err := readCaseData(dataFile)
		if err != nil {
			return err
		}
		data = mergeCaseData(preset, data)
		client, err := caseDataClient(ctx)
		if err != nil {
			return err
		}

		details, err := client.CreateCase(ctx, user, sdk.CreateCaseInput{
			Jurisdiction: jurisdiction,
			CaseType:     caseType,
			EventID:      eventID,
			Summary:      summary,
			Description:  description,
			Data:         data,
		})
		if err != nil {
			return fmt.Errorf("failed to create case: %w", err)
		}

		pterm.Success.Printf("Created case %s in state %s\n", details.ID, details.State)
		return printCase(details)
	},
}
