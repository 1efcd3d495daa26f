package caseops

import (
	"fmt"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/log"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var caseID string

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Fire an event on an existing case",
	Long: `Starts the event on the case, merges --data over the case data returned by
the start call and submits the event.`,
	Example: `  fixturectl case event --user dwpResponseWriter --case-id 1700000000000000 --event dwpUploadResponse --data response.json`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if caseID == "" || eventID == "" {
			return fmt.Errorf("--case-id and --event are required")
		}
		user, err := actingUser(cmd.Context())
		if err != nil {
			return err
		}
		ctx := log.WithUser(cmd.Context(), user.Email)
		logger := log.FromContext(ctx)
		logger.Debug().Str("event", eventID).Str("case_id", caseID).Msg("firing event")
		data, err := readCaseData(dataFile)
		if err != nil {
			return err
		}
		client, err := caseDataClient(ctx)
		if err != nil {
			return err
		}

		details, err := client.PerformEvent(ctx, user, sdk.PerformEventInput{
			Jurisdiction: jurisdiction,
			CaseType:     caseType,
			CaseID:       caseID,
			EventID:      eventID,
			Summary:      summary,
			Description:  description,
			Data:         data,
		})
		if err != nil {
			return fmt.Errorf("failed to perform %s on case %s: %w", eventID, caseID, err)
		}

		pterm.Success.Printf("Event %s submitted, case %s is now %s\n", eventID, details.ID, details.State)
		return printCase(details)
	},
}

func init() {
	eventCmd.Flags().StringVar(&caseID, "case-id", "", "Case reference")
}
