// pkg/sdk/auth.go
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/log"
	"github.com/rs/zerolog"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath   = "/o/token"
	detailsPath = "/details"
	leasePath   = "/testing-support/lease"

	// ScopeRoles asks the identity provider to include role claims.
	ScopeRoles = "roles"
)

// passwordGrantScopes is sent with every password grant.
var passwordGrantScopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, ScopeRoles}

// TokenClientConfig holds the endpoints and OAuth client registration used to
// obtain tokens. It is read once at startup and never mutated.
type TokenClientConfig struct {
	// IdamURL is the identity provider base URL (password grant and user details).
	IdamURL string
	// ServiceAuthURL is the service-to-service auth provider base URL.
	ServiceAuthURL string
	// ClientID, ClientSecret and RedirectURI identify the OAuth client.
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// Microservice is the service name leased a service token.
	Microservice string
}

// TokenClient resolves access tokens, user ids and service tokens. User tokens
// and ids are served from a TokenCache when possible.
type TokenClient struct {
	cfg    TokenClientConfig
	http   *http.Client
	cache  *TokenCache
	logger zerolog.Logger
	group  singleflight.Group
}

type tokenClientOptions struct {
	httpClient *http.Client
	cache      *TokenCache
	logger     *zerolog.Logger
}

// TokenClientOption mutates TokenClient construction options.
type TokenClientOption func(*tokenClientOptions)

// WithTokenHTTPClient overrides the HTTP client used for identity calls.
func WithTokenHTTPClient(client *http.Client) TokenClientOption {
	return func(o *tokenClientOptions) {
		o.httpClient = client
	}
}

// WithTokenCache supplies the cache shared by user token and id lookups.
func WithTokenCache(cache *TokenCache) TokenClientOption {
	return func(o *tokenClientOptions) {
		o.cache = cache
	}
}

// WithLogger sets the logger. The default discards all output.
func WithLogger(logger zerolog.Logger) TokenClientOption {
	return func(o *tokenClientOptions) {
		o.logger = &logger
	}
}

// NewTokenClient creates a TokenClient. A fresh TokenCache with default bounds
// is created when none is supplied.
func NewTokenClient(cfg TokenClientConfig, optFns ...TokenClientOption) (*TokenClient, error) {
	if cfg.IdamURL == "" {
		return nil, fmt.Errorf("identity provider URL is required")
	}

	opts := tokenClientOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.httpClient == nil {
		opts.httpClient = defaultHTTPClient()
	}
	if opts.cache == nil {
		cache, err := NewTokenCache()
		if err != nil {
			return nil, err
		}
		opts.cache = cache
	}
	logger := zerolog.Nop()
	if opts.logger != nil {
		logger = *opts.logger
	}

	return &TokenClient{
		cfg:    cfg,
		http:   opts.httpClient,
		cache:  opts.cache,
		logger: logger.With().Str("component", "token_client").Logger(),
	}, nil
}

// Cache returns the cache backing this client.
func (c *TokenClient) Cache() *TokenCache {
	return c.cache
}

// AccessToken returns a bearer token for user, performing a password grant
// only when no unexpired token is cached.
func (c *TokenClient) AccessToken(ctx context.Context, user UserCredential) (string, error) {
	if err := c.checkCredentials(user); err != nil {
		return "", err
	}

	key := AccessTokenKey(user.Email)
	if token, ok := c.cache.Get(key); ok {
		c.logger.Debug().Str(log.FieldEmail, user.Email).Msg("access token cache hit")
		return token, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		c.logger.Debug().Str(log.FieldEmail, user.Email).Msg("access token cache miss")
		resp, err := c.passwordGrant(ctx, user)
		if err != nil {
			return "", err
		}
		if ttl, ok := tokenLifetime(resp, c.cache.now()); ok {
			c.cache.SetWithTTL(key, resp.AccessToken, ttl)
		} else {
			c.logger.Warn().Str(log.FieldEmail, user.Email).Msg("access token already expired, not caching")
		}
		return resp.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// UserID returns the identity provider's id for user. On a cold cache it first
// resolves the user's access token, then calls the user details endpoint.
func (c *TokenClient) UserID(ctx context.Context, user UserCredential) (string, error) {
	if err := c.checkCredentials(user); err != nil {
		return "", err
	}

	key := UserIDKey(user.Email)
	if id, ok := c.cache.Get(key); ok {
		c.logger.Debug().Str(log.FieldEmail, user.Email).Msg("user id cache hit")
		return id, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		token, err := c.AccessToken(ctx, user)
		if err != nil {
			return "", err
		}
		id, err := c.userDetails(ctx, token)
		if err != nil {
			return "", err
		}
		c.cache.Set(key, id)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ServiceToken leases a fresh service-to-service token. Service tokens are
// never cached.
func (c *TokenClient) ServiceToken(ctx context.Context) (string, error) {
	if c.cfg.ServiceAuthURL == "" {
		return "", fmt.Errorf("service auth URL is not configured")
	}

	body, err := json.Marshal(map[string]string{"microservice": c.cfg.Microservice})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lease request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.cfg.ServiceAuthURL, leasePath), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create lease request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call service lease endpoint: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read lease response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Str("microservice", c.cfg.Microservice).Msg("service token lease rejected")
		return "", &ServiceTokenError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return strings.TrimSpace(string(payload)), nil
}

// TokenSource adapts AccessToken for use with oauth2.NewClient and oauth2.Transport.
func (c *TokenClient) TokenSource(ctx context.Context, user UserCredential) oauth2.TokenSource {
	return &userTokenSource{ctx: ctx, client: c, user: user}
}

type userTokenSource struct {
	ctx    context.Context
	client *TokenClient
	user   UserCredential
}

func (s *userTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.client.AccessToken(s.ctx, s.user)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

func (c *TokenClient) checkCredentials(user UserCredential) error {
	if user.Valid() {
		return nil
	}
	c.logger.Warn().Str(log.FieldEmail, user.Email).Msg("user credentials are missing an email or password")
	return &MissingCredentialsError{Email: user.Email}
}

// passwordGrant performs a single resource-owner password grant.
func (c *TokenClient) passwordGrant(ctx context.Context, user UserCredential) (*oidc.AccessTokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "password")
	data.Set("client_id", c.cfg.ClientID)
	data.Set("client_secret", c.cfg.ClientSecret)
	data.Set("scope", strings.Join(passwordGrantScopes, " "))
	data.Set("redirect_uri", c.cfg.RedirectURI)
	data.Set("username", user.Email)
	data.Set("password", user.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.cfg.IdamURL, tokenPath), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call token endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Str(log.FieldEmail, user.Email).Msg("password grant rejected")
		return nil, &TokenAcquisitionError{Op: "password grant", StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var tokenResp oidc.AccessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, &TokenAcquisitionError{Op: "password grant", StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	if tokenResp.AccessToken == "" {
		return nil, &TokenAcquisitionError{Op: "password grant", StatusCode: resp.StatusCode, Status: resp.Status, Err: fmt.Errorf("response has no access_token")}
	}

	return &tokenResp, nil
}

// userDetails looks up the id of the user owning token.
func (c *TokenClient) userDetails(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(c.cfg.IdamURL, detailsPath), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create user details request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call user details endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().Int("status", resp.StatusCode).Msg("user details lookup rejected")
		return "", &TokenAcquisitionError{Op: "user details", StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var details struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return "", &TokenAcquisitionError{Op: "user details", StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	id, err := decodeID(details.ID)
	if err != nil {
		return "", &TokenAcquisitionError{Op: "user details", StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}
	return id, nil
}

// decodeID accepts the id as a JSON number or string and renders it as a string.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("response has no id")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", fmt.Errorf("response has an empty id")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("unexpected id %s: %w", string(raw), err)
	}
	return n.String(), nil
}

// tokenLifetime returns how long the token may be cached as of now, zero
// meaning the cache default. expires_in wins over the JWT exp claim. It
// reports false when the exp claim is already past.
func tokenLifetime(resp *oidc.AccessTokenResponse, now time.Time) (time.Duration, bool) {
	if resp.ExpiresIn > 0 {
		return time.Duration(resp.ExpiresIn) * time.Second, true
	}
	if exp, ok := jwtExpiry(resp.AccessToken); ok {
		d := exp.Sub(now)
		if d <= 0 {
			return 0, false
		}
		return d, true
	}
	return 0, true
}

// --- Helper Functions ---

// defaultHTTPClient returns an HTTP client with reasonable timeout for identity calls.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
	}
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
