package idpstub

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hmcts/sscs-tribunals-case-api-sub001/pkg/log"
)

const servicePrefix = "service:"

func (s *Server) newRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Post(RouteToken, s.handleToken)
	r.Get(RouteDetails, s.handleDetails)
	r.Post(RouteLease, s.handleLease)

	r.Group(func(r chi.Router) {
		r.Use(s.requireCaseworker)
		r.Get(RouteStartCreate, s.handleStartCreate)
		r.Post(RouteSubmitCase, s.handleSubmitCase)
		r.Get(RouteStartEvent, s.handleStartEvent)
		r.Post(RouteSubmitEvent, s.handleSubmitEvent)
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// requestLogger logs each request and counts it against its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern != "" {
			s.countCall(pattern)
		}

		s.opts.Logger.Debug().
			Str(log.FieldRequestID, middleware.GetReqID(r.Context())).
			Str(log.FieldMethod, r.Method).
			Str(log.FieldPath, r.URL.Path).
			Str("route", pattern).
			Int(log.FieldStatus, ww.Status()).
			Int64(log.FieldLatency, time.Since(start).Milliseconds()).
			Msg("stub request")
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("grant_type") != "password" {
		writeError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}
	if s.opts.ClientID != "" && (r.PostForm.Get("client_id") != s.opts.ClientID || r.PostForm.Get("client_secret") != s.opts.ClientSecret) {
		writeError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	email := r.PostForm.Get("username")
	s.mu.Lock()
	u, ok := s.users[email]
	s.mu.Unlock()
	if !ok || u.Password != r.PostForm.Get("password") {
		writeError(w, http.StatusUnauthorized, "invalid_grant")
		return
	}

	token, err := s.issueToken(email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_in":   int64(s.opts.TokenLifetime / time.Second),
		"scope":        r.PostForm.Get("scope"),
	})
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	u, err := s.userForToken(bearer(r.Header.Get("Authorization")))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       u.ID,
		"email":    u.Email,
		"forename": u.Forename,
		"surname":  u.Surname,
		"roles":    u.Roles,
	})
}

func (s *Server) handleLease(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Microservice string `json:"microservice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid lease request")
		return
	}
	if !s.microserviceAllowed(req.Microservice) {
		writeError(w, http.StatusUnauthorized, "unknown microservice")
		return
	}

	token, err := s.issueToken(servicePrefix + req.Microservice)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(token))
}

// requireCaseworker checks both the user and the service token, and that the
// user id in the path belongs to the bearer.
func (s *Server) requireCaseworker(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := s.verifyToken(bearer(r.Header.Get("ServiceAuthorization")))
		if err != nil || !strings.HasPrefix(subject, servicePrefix) {
			writeError(w, http.StatusUnauthorized, "invalid service token")
			return
		}

		u, err := s.userForToken(bearer(r.Header.Get("Authorization")))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid user token")
			return
		}
		if chi.URLParam(r, "uid") != formatID(u.ID) {
			writeError(w, http.StatusForbidden, errForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
