package caseops

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/internal/config"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	userAlias    string
	jurisdiction string
	caseType     string
	eventID      string
	summary      string
	description  string
	dataFile     string
	benefit      string
)

// CaseCmd is the parent command for case operations
var CaseCmd = &cobra.Command{
	Use:   "case",
	Short: "Create cases and fire events",
	Long: `Commands for creating cases and firing events on them in the case data store,
acting as a configured test user.`,
}

func init() {
	CaseCmd.PersistentFlags().StringVarP(&userAlias, "user", "u", "", "Configured user alias to act as")
	CaseCmd.PersistentFlags().StringVar(&jurisdiction, "jurisdiction", "SSCS", "Jurisdiction id")
	CaseCmd.PersistentFlags().StringVar(&caseType, "case-type", "Benefit", "Case type id")
	CaseCmd.PersistentFlags().StringVar(&eventID, "event", "", "Event id")
	CaseCmd.PersistentFlags().StringVar(&summary, "summary", "", "Event summary")
	CaseCmd.PersistentFlags().StringVar(&description, "description", "", "Event description")
	CaseCmd.PersistentFlags().StringVar(&dataFile, "data", "", "JSON file holding case data")

	createCmd.Flags().StringVar(&benefit, "benefit", "", "Benefit preset for the new case ("+strings.Join(benefitNames(), ", ")+"); --data is merged over it")

	CaseCmd.AddCommand(createCmd)
	CaseCmd.AddCommand(eventCmd)
}

func caseDataClient(ctx context.Context) (*sdk.CaseDataClient, error) {
	cfg := config.MustFromContext(ctx)
	return cfg.ClientProvider.CaseDataClient()
}

func actingUser(ctx context.Context) (sdk.UserCredential, error) {
	cfg := config.MustFromContext(ctx)
	if userAlias == "" {
		return sdk.UserCredential{}, fmt.Errorf("--user is required (configured: %v)", cfg.Settings.UserAliases())
	}
	return cfg.Settings.User(userAlias)
}

// readCaseData loads a JSON object from path. An empty path yields nil.
func readCaseData(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read case data: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("case data in %s must be a JSON object: %w", path, err)
	}
	return data, nil
}

func printCase(details *sdk.CaseDetails) error {
	pterm.DefaultSection.Println("Case " + details.ID)

	rows := pterm.TableData{
		{"FIELD", "VALUE"},
		{"jurisdiction", details.Jurisdiction},
		{"case type", details.CaseType},
		{"state", details.State},
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(rows).Render(); err != nil {
		return err
	}

	if len(details.Data) == 0 {
		return nil
	}
	keys := make([]string, 0, len(details.Data))
	for k := range details.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data := pterm.TableData{{"KEY", "VALUE"}}
	for _, k := range keys {
		data = append(data, []string{k, fmt.Sprint(details.Data[k])})
	}
	pterm.Println()
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
