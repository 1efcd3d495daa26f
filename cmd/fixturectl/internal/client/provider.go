package client

import (
	"net/http"
	"sync"
	"time"

	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/sdk"
	"github.com/rs/zerolog"
)

// Provider lazily builds the SDK clients shared by every command in a run.
// The token client, and so its cache, is created once per process.
type Provider struct {
	tokenCfg    sdk.TokenClientConfig
	caseDataURL string
	timeout     time.Duration
	logger      zerolog.Logger

	tokensOnce sync.Once
	tokens     *sdk.TokenClient
	tokensErr  error

	caseDataOnce sync.Once
	caseData     *sdk.CaseDataClient
	caseDataErr  error
}

// NewProvider constructs a Provider. Nothing is dialled until a client is requested.
func NewProvider(tokenCfg sdk.TokenClientConfig, caseDataURL string, timeout time.Duration, logger zerolog.Logger) *Provider {
	return &Provider{
		tokenCfg:    tokenCfg,
		caseDataURL: caseDataURL,
		timeout:     timeout,
		logger:      logger,
	}
}

// TokenClient returns the shared token client.
func (p *Provider) TokenClient() (*sdk.TokenClient, error) {
	p.tokensOnce.Do(func() {
		p.tokens, p.tokensErr = sdk.NewTokenClient(p.tokenCfg,
			sdk.WithTokenHTTPClient(&http.Client{Timeout: p.timeout}),
			sdk.WithLogger(p.logger),
		)
	})
	return p.tokens, p.tokensErr
}

// CaseDataClient returns the shared case data client, built on TokenClient.
func (p *Provider) CaseDataClient() (*sdk.CaseDataClient, error) {
	p.caseDataOnce.Do(func() {
		tokens, err := p.TokenClient()
		if err != nil {
			p.caseDataErr = err
			return
		}
		p.caseData, p.caseDataErr = sdk.NewCaseDataClient(p.caseDataURL, tokens,
			sdk.WithCaseDataTimeout(p.timeout),
			sdk.WithCaseDataLogger(p.logger),
		)
	})
	return p.caseData, p.caseDataErr
}
