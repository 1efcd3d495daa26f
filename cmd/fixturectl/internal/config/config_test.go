package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixturectl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestLoad_Defaults tests that Load works with no config file present
func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000", cfg.IdamURL)
	assert.Equal(t, "sscs", cfg.OAuth.ClientID)
	assert.Equal(t, "sscs", cfg.Microservice)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Users)
}

// TestLoad_WithConfigFile tests config file loading, including the users map
func TestLoad_WithConfigFile(t *testing.T) {
	path := writeConfig(t, `
idam_url: "https://idam.example.com/"
service_auth_url: "https://s2s.example.com"
case_data_url: "https://ccd.example.com"
microservice: "sscs"
http_timeout: 30s
oauth:
  client_id: "sscs"
  client_secret: "file-secret"
  redirect_uri: "https://sscs.example.com/oauth2"
log:
  level: debug
  pretty: true
users:
  dwpResponseWriter:
    email: "dwp.writer@example.com"
    password: "Pa55word"
  caseworker:
    email: "caseworker@example.com"
    password: "Pa55word"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://idam.example.com/", cfg.IdamURL)
	assert.Equal(t, "file-secret", cfg.OAuth.ClientSecret)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)

	user, err := cfg.User("dwpResponseWriter")
	require.NoError(t, err)
	assert.Equal(t, "dwp.writer@example.com", user.Email)
	assert.Equal(t, "Pa55word", user.Password)

	assert.Equal(t, []string{"caseworker", "dwpresponsewriter"}, cfg.UserAliases())

	_, err = cfg.User("judge")
	assert.ErrorContains(t, err, "unknown user")

	tc := cfg.TokenClientConfig()
	assert.Equal(t, "https://s2s.example.com", tc.ServiceAuthURL)
	assert.Equal(t, "https://sscs.example.com/oauth2", tc.RedirectURI)
}

// TestLoad_EnvironmentOverridesFile tests that FIXTURE_ prefixed variables win
func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
idam_url: "https://file.example.com"
oauth:
  client_secret: "file-secret"
`)
	t.Setenv("FIXTURE_IDAM_URL", "https://env.example.com")
	t.Setenv("FIXTURE_OAUTH_CLIENT_SECRET", "env-secret")
	t.Setenv("FIXTURE_HTTP_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.IdamURL)
	assert.Equal(t, "env-secret", cfg.OAuth.ClientSecret)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "explicit config file must exist")

	path := writeConfig(t, `http_timeout: 0s`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "http_timeout")
}

func TestValidate(t *testing.T) {
	cfg := &Config{HTTPTimeout: time.Second}
	assert.ErrorContains(t, cfg.Validate(), "idam_url")

	cfg.IdamURL = "http://idam"
	assert.NoError(t, cfg.Validate())
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	global := &GlobalConfig{Settings: &Config{IdamURL: "http://idam"}}
	ctx := InjectConfig(context.Background(), global)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, global, got)
	assert.Panics(t, func() { MustFromContext(context.Background()) })
}

func TestResolveUser(t *testing.T) {
	cfg := &Config{Users: map[string]sdk.UserCredential{
		"caseworker": {Email: "caseworker@example.com", Password: "Pa55word"},
	}}

	user, err := cfg.ResolveUser("caseworker", "", "")
	require.NoError(t, err)
	assert.Equal(t, "caseworker@example.com", user.Email)

	user, err = cfg.ResolveUser("caseworker", "other@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, sdk.UserCredential{Email: "other@example.com"}, user, "explicit flags win, even when incomplete")

	_, err = cfg.ResolveUser("", "", "")
	assert.Error(t, err)
}
