package idpstub

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type caseResponse struct {
	ID           int64          `json:"id"`
	Jurisdiction string         `json:"jurisdiction"`
	CaseType     string         `json:"case_type_id"`
	State        string         `json:"state"`
	Data         map[string]any `json:"case_data"`
}

type triggerResponse struct {
	Token       string        `json:"token"`
	EventID     string        `json:"event_id"`
	CaseDetails *caseResponse `json:"case_details,omitempty"`
}

type submitRequest struct {
	Event struct {
		ID          string `json:"id"`
		Summary     string `json:"summary"`
		Description string `json:"description"`
	} `json:"event"`
	EventToken string         `json:"event_token"`
	Data       map[string]any `json:"data"`
}

func (s *Server) handleStartCreate(w http.ResponseWriter, r *http.Request) {
	token := s.startEvent(chi.URLParam(r, "uid"), "", chi.URLParam(r, "eid"))
	writeJSON(w, http.StatusOK, triggerResponse{Token: token, EventID: chi.URLParam(r, "eid")})
}

func (s *Server) handleStartEvent(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCase(r)
	if !ok {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	token := s.startEvent(chi.URLParam(r, "uid"), chi.URLParam(r, "cid"), chi.URLParam(r, "eid"))
	writeJSON(w, http.StatusOK, triggerResponse{Token: token, EventID: chi.URLParam(r, "eid"), CaseDetails: &c})
}

func (s *Server) handleSubmitCase(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSubmit(w, r, "")
	if !ok {
		return
	}

	s.mu.Lock()
	id := s.nextCaseID
	s.nextCaseID++
	state := defaultCreateState
	if next, ok := s.opts.EventStates[req.Event.ID]; ok {
		state = next
	}
	c := &storedCase{
		id:           id,
		jurisdiction: chi.URLParam(r, "jid"),
		caseType:     chi.URLParam(r, "ctid"),
		state:        state,
		data:         req.Data,
	}
	if c.data == nil {
		c.data = map[string]any{}
	}
	s.cases[id] = c
	resp := c.response()
	s.mu.Unlock()

	s.opts.Logger.Info().Int64("case_id", id).Str("case_type", c.caseType).Msg("stub case created")
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	cid := chi.URLParam(r, "cid")
	req, ok := s.decodeSubmit(w, r, cid)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(cid, 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "case not found")
		return
	}

	s.mu.Lock()
	c, found := s.cases[id]
	if !found {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "case not found")
		return
	}
	if req.Data != nil {
		c.data = req.Data
	}
	if next, ok := s.opts.EventStates[req.Event.ID]; ok {
		c.state = next
	}
	resp := c.response()
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, resp)
}

// decodeSubmit parses a submission and consumes its event token, which must
// have been issued for the same user, case and event.
func (s *Server) decodeSubmit(w http.ResponseWriter, r *http.Request, caseID string) (*submitRequest, bool) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid event submission")
		return nil, false
	}

	s.mu.Lock()
	pending, ok := s.events[req.EventToken]
	if ok {
		delete(s.events, req.EventToken)
	}
	s.mu.Unlock()

	if !ok || pending.userID != chi.URLParam(r, "uid") || pending.caseID != caseID || pending.eventID != req.Event.ID {
		writeError(w, http.StatusUnprocessableEntity, "invalid event token")
		return nil, false
	}
	return &req, true
}

func (s *Server) startEvent(userID, caseID, eventID string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[token] = pendingEvent{userID: userID, caseID: caseID, eventID: eventID}
	return token
}

func (s *Server) lookupCase(r *http.Request) (caseResponse, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "cid"), 10, 64)
	if err != nil {
		return caseResponse{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cases[id]
	if !ok || c.caseType != chi.URLParam(r, "ctid") || c.jurisdiction != chi.URLParam(r, "jid") {
		return caseResponse{}, false
	}
	return c.response(), true
}

func (c *storedCase) response() caseResponse {
	data := make(map[string]any, len(c.data))
	for k, v := range c.data {
		data[k] = v
	}
	return caseResponse{
		ID:           c.id,
		Jurisdiction: c.jurisdiction,
		CaseType:     c.caseType,
		State:        c.state,
		Data:         data,
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
