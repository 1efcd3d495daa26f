package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/internal/idpstub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommands_AgainstStub(t *testing.T) {
	stub, err := idpstub.New(idpstub.Options{ClientID: "sscs", ClientSecret: "secret", Microservices: []string{"sscs"}})
	require.NoError(t, err)
	stub.AddUser(idpstub.User{ID: 42, Email: "caseworker@example.com", Password: "Pa55word"})
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	configPath := filepath.Join(t.TempDir(), "fixturectl.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
idam_url: %q
service_auth_url: %q
case_data_url: %q
oauth:
  client_id: sscs
  client_secret: secret
microservice: sscs
users:
  caseworker:
    email: caseworker@example.com
    password: Pa55word
`, server.URL, server.URL, server.URL)), 0644))

	out, err := runCLI(t, "--config", configPath, "--log-level", "disabled", "token", "access", "--user", "caseworker")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	assert.Equal(t, 2, strings.Count(token, "."), "stub issues JWTs")

	out, err = runCLI(t, "--config", configPath, "token", "id", "--user", "caseworker", "--json")
	require.NoError(t, err)
	var idOut map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &idOut))
	assert.Equal(t, "42", idOut["id"])
	assert.Equal(t, "caseworker@example.com", idOut["email"])

	_, err = runCLI(t, "--config", configPath, "token", "access", "--user", "judge", "--json=false")
	assert.ErrorContains(t, err, "unknown user")
}

func TestServiceAndCaseCommands_AgainstStub(t *testing.T) {
	stub, err := idpstub.New(idpstub.Options{
		ClientID:      "sscs",
		ClientSecret:  "secret",
		Microservices: []string{"sscs"},
		EventStates: map[string]string{
			"validAppealCreated": "withDwp",
			"dwpUploadResponse":  "responseReceived",
		},
	})
	require.NoError(t, err)
	stub.AddUser(idpstub.User{ID: 9, Email: "dwp.writer@example.com", Password: "Pa55word"})
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	dir := t.TempDir()
	configPath := filepath.Join(dir, "fixturectl.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(fmt.Sprintf(`
idam_url: %q
service_auth_url: %q
case_data_url: %q
oauth:
  client_id: sscs
  client_secret: secret
microservice: sscs
users:
  dwpResponseWriter:
    email: dwp.writer@example.com
    password: Pa55word
`, server.URL, server.URL, server.URL)), 0644))

	appealPath := filepath.Join(dir, "appeal.json")
	require.NoError(t, os.WriteFile(appealPath, []byte(`{"appellantName":"Jane Doe"}`), 0644))
	responsePath := filepath.Join(dir, "response.json")
	require.NoError(t, os.WriteFile(responsePath, []byte(`{"dwpFurtherInfo":"No"}`), 0644))

	out, err := runCLI(t, "--config", configPath, "--log-level", "disabled", "token", "service", "--json=false")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "."), "service tokens are JWTs")
	assert.Equal(t, 1, stub.Calls(idpstub.RouteLease))

	_, err = runCLI(t, "--config", configPath, "--log-level", "disabled",
		"case", "create", "--user", "dwpResponseWriter", "--event", "validAppealCreated", "--benefit", "PIP", "--data", appealPath)
	require.NoError(t, err)

	// A fresh stub numbers cases from 1700000000000000.
	const caseID = int64(1700000000000000)
	state, data, ok := stub.CaseState(caseID)
	require.True(t, ok, "case was created")
	assert.Equal(t, "withDwp", state)
	assert.Equal(t, "Jane Doe", data["appellantName"])
	assert.Equal(t, "002", data["benefitCode"])

	_, err = runCLI(t, "--config", configPath, "--log-level", "disabled",
		"case", "event", "--user", "dwpResponseWriter", "--case-id", strconv.FormatInt(caseID, 10), "--event", "dwpUploadResponse", "--data", responsePath)
	require.NoError(t, err)

	state, data, ok = stub.CaseState(caseID)
	require.True(t, ok)
	assert.Equal(t, "responseReceived", state)
	assert.Equal(t, "No", data["dwpFurtherInfo"])
	assert.Equal(t, "Jane Doe", data["appellantName"], "data from creation is preserved")

	_, err = runCLI(t, "--config", configPath, "--log-level", "disabled",
		"case", "event", "--user", "dwpResponseWriter", "--case-id", "42", "--event", "dwpUploadResponse", "--data", "")
	assert.ErrorContains(t, err, "failed to perform dwpUploadResponse on case 42")
}
