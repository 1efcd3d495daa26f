package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/log"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FIXTURE_IDAM_URL.
const EnvPrefix = "FIXTURE"

// Config holds the fixturectl configuration.
type Config struct {
	// Identity provider base URL (password grant and user details)
	IdamURL string `mapstructure:"idam_url"`

	// Service-to-service auth provider base URL
	ServiceAuthURL string `mapstructure:"service_auth_url"`

	// Case data store base URL
	CaseDataURL string `mapstructure:"case_data_url"`

	// OAuth client registration used for the password grant
	OAuth OAuthConfig `mapstructure:"oauth"`

	// Microservice name leased a service token
	Microservice string `mapstructure:"microservice"`

	// Timeout applied to each outbound HTTP request
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`

	Log log.Config `mapstructure:"log"`

	// Test users keyed by alias
	Users map[string]sdk.UserCredential `mapstructure:"users"`
}

// OAuthConfig identifies the OAuth client.
type OAuthConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RedirectURI  string `mapstructure:"redirect_uri"`
}

// Load reads configuration from configFile (optional) and FIXTURE_ prefixed
// environment variables. Environment variables win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("idam_url", "http://localhost:5000")
	v.SetDefault("service_auth_url", "http://localhost:4502")
	v.SetDefault("case_data_url", "http://localhost:4452")
	v.SetDefault("oauth.client_id", "sscs")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.redirect_uri", "https://localhost:3000/authenticated")
	v.SetDefault("microservice", "sscs")
	v.SetDefault("http_timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "fixturectl")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("fixturectl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.IdamURL == "" {
		return fmt.Errorf("idam_url is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

// TokenClientConfig maps the settings onto the SDK token client configuration.
func (c *Config) TokenClientConfig() sdk.TokenClientConfig {
	return sdk.TokenClientConfig{
		IdamURL:        c.IdamURL,
		ServiceAuthURL: c.ServiceAuthURL,
		ClientID:       c.OAuth.ClientID,
		ClientSecret:   c.OAuth.ClientSecret,
		RedirectURI:    c.OAuth.RedirectURI,
		Microservice:   c.Microservice,
	}
}

// User returns the credentials configured under alias.
func (c *Config) User(alias string) (sdk.UserCredential, error) {
	user, ok := c.Users[strings.ToLower(alias)]
	if !ok {
		return sdk.UserCredential{}, fmt.Errorf("unknown user %q (configured: %s)", alias, strings.Join(c.UserAliases(), ", "))
	}
	return user, nil
}

// ResolveUser picks credentials from explicit flags, falling back to alias.
// Explicit credentials are returned as given so that missing fields surface
// as a missing credentials error from the token client.
func (c *Config) ResolveUser(alias, email, password string) (sdk.UserCredential, error) {
	if email != "" || password != "" {
		return sdk.UserCredential{Email: email, Password: password}, nil
	}
	if alias == "" {
		return sdk.UserCredential{}, fmt.Errorf("either --user or --email/--password is required")
	}
	return c.User(alias)
}

// UserAliases returns the configured aliases in sorted order.
func (c *Config) UserAliases() []string {
	aliases := make([]string, 0, len(c.Users))
	for alias := range c.Users {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}
