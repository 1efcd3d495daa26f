// Package idpstub serves an in-memory stand-in for the identity provider,
// the service-to-service auth provider and the case data store. It backs the
// SDK tests and `fixturectl stub serve` for offline runs.
package idpstub

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Route patterns, as reported by Calls.
const (
	RouteToken       = "/o/token"
	RouteDetails     = "/details"
	RouteLease       = "/testing-support/lease"
	RouteStartCreate = "/caseworkers/{uid}/jurisdictions/{jid}/case-types/{ctid}/event-triggers/{eid}/token"
	RouteSubmitCase  = "/caseworkers/{uid}/jurisdictions/{jid}/case-types/{ctid}/cases"
	RouteStartEvent  = "/caseworkers/{uid}/jurisdictions/{jid}/case-types/{ctid}/cases/{cid}/event-triggers/{eid}/token"
	RouteSubmitEvent = "/caseworkers/{uid}/jurisdictions/{jid}/case-types/{ctid}/cases/{cid}/events"
)

const (
	defaultTokenLifetime = 8 * time.Hour
	defaultCreateState   = "created"
	firstCaseID          = int64(1700000000000000)
)

var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
)

// User is an account known to the stub identity provider.
type User struct {
	ID       int64
	Email    string
	Password string
	Forename string
	Surname  string
	Roles    []string
}

// Options configures a Server. The zero value is usable.
type Options struct {
	// ClientID and ClientSecret, when set, must match the password grant.
	ClientID     string
	ClientSecret string
	// Microservices, when set, restricts which services may lease a token.
	Microservices []string
	// TokenLifetime defaults to 8 hours.
	TokenLifetime time.Duration
	// SigningKey signs issued tokens (HS256). A random key is used when empty.
	SigningKey []byte
	// EventStates maps an event id to the case state it moves the case into.
	EventStates map[string]string
	Logger      zerolog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

type storedCase struct {
	id           int64
	jurisdiction string
	caseType     string
	state        string
	data         map[string]any
}

type pendingEvent struct {
	userID  string
	caseID  string
	eventID string
}

// Server is the stub. Handler() exposes it over HTTP.
type Server struct {
	opts   Options
	signer jose.Signer
	key    []byte

	mu         sync.Mutex
	users      map[string]*User
	nextUserID int64
	events     map[string]pendingEvent
	cases      map[int64]*storedCase
	nextCaseID int64
	calls      map[string]int

	router chi.Router
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.TokenLifetime <= 0 {
		opts.TokenLifetime = defaultTokenLifetime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	key := opts.SigningKey
	if len(key) == 0 {
		key = []byte(uuid.NewString() + uuid.NewString())
	}

	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: key},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("create token signer: %w", err)
	}

	s := &Server{
		opts:       opts,
		signer:     signer,
		key:        key,
		users:      make(map[string]*User),
		nextUserID: 1,
		events:     make(map[string]pendingEvent),
		cases:      make(map[int64]*storedCase),
		nextCaseID: firstCaseID,
		calls:      make(map[string]int),
	}
	s.router = s.newRouter()
	return s, nil
}

// Handler returns the HTTP handler serving all stubbed endpoints.
func (s *Server) Handler() http.Handler {
	return s.router
}

// AddUser registers a user, assigning an id when ID is zero.
func (s *Server) AddUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == 0 {
		u.ID = s.nextUserID
	}
	if u.ID >= s.nextUserID {
		s.nextUserID = u.ID + 1
	}
	stored := u
	s.users[u.Email] = &stored
	return stored
}

// Calls returns how many requests matched route, one of the Route constants.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// CaseState returns the state and data of a stored case.
func (s *Server) CaseState(id int64) (string, map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cases[id]
	if !ok {
		return "", nil, false
	}
	data := make(map[string]any, len(c.data))
	for k, v := range c.data {
		data[k] = v
	}
	return c.state, data, true
}

func (s *Server) countCall(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[route]++
}

// issueToken signs a token for subject, returning it with its lifetime.
func (s *Server) issueToken(subject string) (string, error) {
	now := s.opts.Now()
	claims := jwt.Claims{
		ID:       uuid.NewString(),
		Subject:  subject,
		Issuer:   "idpstub",
		IssuedAt: jwt.NewNumericDate(now),
		Expiry:   jwt.NewNumericDate(now.Add(s.opts.TokenLifetime)),
	}
	return jwt.Signed(s.signer).Claims(claims).Serialize()
}

// verifyToken checks signature and expiry and returns the subject.
func (s *Server) verifyToken(raw string) (string, error) {
	parsed, err := jwt.ParseSigned(raw, []jose.SignatureAlgorithm{jose.HS256})
	if err != nil {
		return "", errUnauthorized
	}
	var claims jwt.Claims
	if err := parsed.Claims(s.key, &claims); err != nil {
		return "", errUnauthorized
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Issuer: "idpstub", Time: s.opts.Now()}, 0); err != nil {
		return "", errUnauthorized
	}
	return claims.Subject, nil
}

// userForToken resolves the user owning a bearer token.
func (s *Server) userForToken(raw string) (*User, error) {
	email, err := s.verifyToken(raw)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return nil, errUnauthorized
	}
	return u, nil
}

func (s *Server) microserviceAllowed(name string) bool {
	if len(s.opts.Microservices) == 0 {
		return name != ""
	}
	for _, m := range s.opts.Microservices {
		if m == name {
			return true
		}
	}
	return false
}
