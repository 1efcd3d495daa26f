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

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ServiceAuthorizationHeader carries the service token on case data requests.
const ServiceAuthorizationHeader = "ServiceAuthorization"

// CaseEventRef addresses an event on a case type, or on an existing case when
// CaseID is set.
type CaseEventRef struct {
	UserID       string
	Jurisdiction string
	CaseType     string
	CaseID       string
	EventID      string
}

// EventTrigger is returned when an event is started. Token must be sent back
// with the submission.
type EventTrigger struct {
	Token       string       `json:"token"`
	EventID     string       `json:"event_id"`
	CaseDetails *CaseDetails `json:"case_details,omitempty"`
}

// CaseEvent describes the event being submitted.
type CaseEvent struct {
	ID          string `json:"id"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// CaseDetails is the case data store's view of a case.
type CaseDetails struct {
	ID           string         `json:"-"`
	Jurisdiction string         `json:"jurisdiction"`
	CaseType     string         `json:"case_type_id"`
	State        string         `json:"state"`
	Data         map[string]any `json:"case_data"`
}

// UnmarshalJSON accepts the case id as a JSON number or string.
func (d *CaseDetails) UnmarshalJSON(b []byte) error {
	type alias CaseDetails
	var wire struct {
		alias
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*d = CaseDetails(wire.alias)
	if len(wire.ID) > 0 && string(wire.ID) != "null" {
		id, err := decodeID(wire.ID)
		if err != nil {
			return fmt.Errorf("case id: %w", err)
		}
		d.ID = id
	}
	return nil
}

// MarshalJSON writes the case id alongside the other fields.
func (d CaseDetails) MarshalJSON() ([]byte, error) {
	type alias CaseDetails
	return json.Marshal(struct {
		ID string `json:"id"`
		alias
	}{ID: d.ID, alias: alias(d)})
}

type submitEventRequest struct {
	Event         CaseEvent      `json:"event"`
	EventToken    string         `json:"event_token"`
	Data          map[string]any `json:"data"`
	IgnoreWarning bool           `json:"ignore_warning"`
}

// CreateCaseInput describes a case to create.
type CreateCaseInput struct {
	Jurisdiction string
	CaseType     string
	EventID      string
	Summary      string
	Description  string
	Data         map[string]any
}

// PerformEventInput describes an event fired on an existing case. Data is
// merged over the case data returned when the event is started.
type PerformEventInput struct {
	Jurisdiction string
	CaseType     string
	CaseID       string
	EventID      string
	Summary      string
	Description  string
	Data         map[string]any
}

// CaseDataClient creates cases and fires events against the case data store
// on behalf of test users.
type CaseDataClient struct {
	baseURL string
	tokens  *TokenClient
	base    http.RoundTripper
	timeout time.Duration
	logger  zerolog.Logger
}

// CaseDataOption mutates CaseDataClient construction.
type CaseDataOption func(*CaseDataClient)

// WithCaseDataTransport overrides the round tripper beneath the auth headers.
func WithCaseDataTransport(rt http.RoundTripper) CaseDataOption {
	return func(c *CaseDataClient) {
		c.base = rt
	}
}

// WithCaseDataTimeout bounds each case data request. Non-positive values keep
// the default.
func WithCaseDataTimeout(d time.Duration) CaseDataOption {
	return func(c *CaseDataClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCaseDataLogger sets the logger. The default discards all output.
func WithCaseDataLogger(logger zerolog.Logger) CaseDataOption {
	return func(c *CaseDataClient) {
		c.logger = logger
	}
}

// NewCaseDataClient creates a client for the case data store at baseURL.
func NewCaseDataClient(baseURL string, tokens *TokenClient, optFns ...CaseDataOption) (*CaseDataClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("case data URL is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token client is required")
	}
	c := &CaseDataClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		base:    http.DefaultTransport,
		timeout: defaultHTTPClient().Timeout,
		logger:  zerolog.Nop(),
	}
	for _, fn := range optFns {
		fn(c)
	}
	c.logger = c.logger.With().Str("component", "case_data_client").Logger()
	return c, nil
}

// CreateCase creates a case as user and returns the stored case.
func (c *CaseDataClient) CreateCase(ctx context.Context, user UserCredential, input CreateCaseInput) (*CaseDetails, error) {
	httpClient, userID, err := c.session(ctx, user)
	if err != nil {
		return nil, err
	}

	ref := CaseEventRef{
		UserID:       userID,
		Jurisdiction: input.Jurisdiction,
		CaseType:     input.CaseType,
		EventID:      input.EventID,
	}
	trigger, err := c.startEvent(ctx, httpClient, ref)
	if err != nil {
		return nil, err
	}

	details, err := c.submitEvent(ctx, httpClient, ref, trigger.Token, CaseEvent{
		ID:          input.EventID,
		Summary:     input.Summary,
		Description: input.Description,
	}, input.Data)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("case_id", details.ID).Str("case_type", input.CaseType).Msg("case created")
	return details, nil
}

// PerformEvent starts and submits an event on an existing case as user.
func (c *CaseDataClient) PerformEvent(ctx context.Context, user UserCredential, input PerformEventInput) (*CaseDetails, error) {
	if input.CaseID == "" {
		return nil, fmt.Errorf("case ID is required")
	}

	httpClient, userID, err := c.session(ctx, user)
	if err != nil {
		return nil, err
	}

	ref := CaseEventRef{
		UserID:       userID,
		Jurisdiction: input.Jurisdiction,
		CaseType:     input.CaseType,
		CaseID:       input.CaseID,
		EventID:      input.EventID,
	}
	trigger, err := c.startEvent(ctx, httpClient, ref)
	if err != nil {
		return nil, err
	}

	data := map[string]any{}
	if trigger.CaseDetails != nil {
		for k, v := range trigger.CaseDetails.Data {
			data[k] = v
		}
	}
	for k, v := range input.Data {
		data[k] = v
	}

	details, err := c.submitEvent(ctx, httpClient, ref, trigger.Token, CaseEvent{
		ID:          input.EventID,
		Summary:     input.Summary,
		Description: input.Description,
	}, data)
	if err != nil {
		return nil, err
	}

	c.logger.Info().Str("case_id", input.CaseID).Str("event", input.EventID).Str("state", details.State).Msg("event submitted")
	return details, nil
}

// StartEvent starts the event addressed by ref as user.
func (c *CaseDataClient) StartEvent(ctx context.Context, user UserCredential, ref CaseEventRef) (*EventTrigger, error) {
	httpClient, userID, err := c.session(ctx, user)
	if err != nil {
		return nil, err
	}
	if ref.UserID == "" {
		ref.UserID = userID
	}
	return c.startEvent(ctx, httpClient, ref)
}

// SubmitEvent submits a previously started event as user.
func (c *CaseDataClient) SubmitEvent(ctx context.Context, user UserCredential, ref CaseEventRef, eventToken string, event CaseEvent, data map[string]any) (*CaseDetails, error) {
	httpClient, userID, err := c.session(ctx, user)
	if err != nil {
		return nil, err
	}
	if ref.UserID == "" {
		ref.UserID = userID
	}
	return c.submitEvent(ctx, httpClient, ref, eventToken, event, data)
}

// session resolves the user's id and a client carrying both the user bearer
// token and a freshly leased service token.
func (c *CaseDataClient) session(ctx context.Context, user UserCredential) (*http.Client, string, error) {
	userID, err := c.tokens.UserID(ctx, user)
	if err != nil {
		return nil, "", fmt.Errorf("resolve user id: %w", err)
	}
	serviceToken, err := c.tokens.ServiceToken(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("lease service token: %w", err)
	}

	transport := &oauth2.Transport{
		Source: oauth2.ReuseTokenSource(nil, c.tokens.TokenSource(ctx, user)),
		Base: &serviceAuthTransport{
			token: serviceToken,
			base:  c.base,
		},
	}
	return &http.Client{Transport: transport, Timeout: c.timeout}, userID, nil
}

func (c *CaseDataClient) startEvent(ctx context.Context, httpClient *http.Client, ref CaseEventRef) (*EventTrigger, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}

	path := c.caseTypePath(ref)
	if ref.CaseID != "" {
		path += "/cases/" + url.PathEscape(ref.CaseID)
	}
	path += "/event-triggers/" + url.PathEscape(ref.EventID) + "/token"

	var trigger EventTrigger
	if err := c.do(ctx, httpClient, "start event "+ref.EventID, http.MethodGet, path, nil, &trigger); err != nil {
		return nil, err
	}
	if trigger.Token == "" {
		return nil, fmt.Errorf("start event %s: response has no token", ref.EventID)
	}
	return &trigger, nil
}

func (c *CaseDataClient) submitEvent(ctx context.Context, httpClient *http.Client, ref CaseEventRef, eventToken string, event CaseEvent, data map[string]any) (*CaseDetails, error) {
	if err := ref.validate(); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}

	path := c.caseTypePath(ref) + "/cases"
	if ref.CaseID != "" {
		path += "/" + url.PathEscape(ref.CaseID) + "/events"
	}

	body := submitEventRequest{
		Event:      event,
		EventToken: eventToken,
		Data:       data,
	}

	var details CaseDetails
	if err := c.do(ctx, httpClient, "submit event "+ref.EventID, http.MethodPost, path, body, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

func (c *CaseDataClient) caseTypePath(ref CaseEventRef) string {
	return fmt.Sprintf("/caseworkers/%s/jurisdictions/%s/case-types/%s",
		url.PathEscape(ref.UserID), url.PathEscape(ref.Jurisdiction), url.PathEscape(ref.CaseType))
}

func (c *CaseDataClient) do(ctx context.Context, httpClient *http.Client, op, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().Int("status", resp.StatusCode).Str("op", op).Msg("case data request rejected")
		return &CaseDataError{Op: op, StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(msg))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func (r CaseEventRef) validate() error {
	switch {
	case r.UserID == "":
		return fmt.Errorf("user ID is required")
	case r.Jurisdiction == "":
		return fmt.Errorf("jurisdiction is required")
	case r.CaseType == "":
		return fmt.Errorf("case type is required")
	case r.EventID == "":
		return fmt.Errorf("event ID is required")
	}
	return nil
}

// serviceAuthTransport adds the service token to every request.
type serviceAuthTransport struct {
	token string
	base  http.RoundTripper
}

func (t *serviceAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set(ServiceAuthorizationHeader, "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}
