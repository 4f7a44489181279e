package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PabloGalante/insight-agent/internal/app/conversation"
	"github.com/PabloGalante/insight-agent/internal/app/dashboard"
	"github.com/PabloGalante/insight-agent/internal/domain"
	"github.com/PabloGalante/insight-agent/internal/observability"
)

type Server struct {
	svc *conversation.Service
}

type Options struct {
	RateLimitPerMin int
	RateLimitBurst  int
}

func NewServer(svc *conversation.Service, opts Options) http.Handler {
	s := &Server{svc: svc}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)

	// /sessions → create session (POST), list a user's sessions (GET)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{id}           →  GET: get session + messages
	// /sessions/{id}/messages  → POST: send message
	// /sessions/{id}/home      → POST: back to the main dashboard
	// /sessions/{id}/dashboard →  GET: current panel, or ?mode= preview
	mux.HandleFunc("/sessions/", s.handleSessionWithID)

	return chainMiddlewares(mux,
		withRequestID,
		withLogging,
		withCORS,
		withRateLimit(opts.RateLimitPerMin, opts.RateLimitBurst),
	)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	UserID string `json:"user_id"`
	Title  string `json:"title,omitempty"`
}

type createSessionResponse struct {
	Session  sessionResponse `json:"session"`
	Greeting string          `json:"greeting"`
}

type pendingResponse struct {
	Target   string `json:"target"`
	Label    string `json:"label"`
	Progress int    `json:"progress"`
}

type sessionResponse struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Mode      string           `json:"mode"`
	Pending   *pendingResponse `json:"pending,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Mode      string    `json:"mode"`
	CreatedAt time.Time `json:"created_at"`
}

type decisionResponse struct {
	Intent         string `json:"intent"`
	NextMode       string `json:"next_mode,omitempty"`
	UsesTransition bool   `json:"uses_transition"`
	LoadingLabel   string `json:"loading_label,omitempty"`
}

type sendMessageRequest struct {
	UserID string `json:"user_id,omitempty"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	UserMessage  messageResponse  `json:"user_message"`
	AgentMessage messageResponse  `json:"agent_message"`
	Decision     decisionResponse `json:"decision"`
	Session      sessionResponse  `json:"session"`
}

type getSessionResponse struct {
	Session  sessionResponse   `json:"session"`
	Messages []messageResponse `json:"messages"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type dashboardResponse struct {
	Session sessionResponse `json:"session"`
	Panel   dashboard.Panel `json:"panel"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// /sessions
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{id}[/messages|/home|/dashboard]
func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	id := parts[0]

	if id == "" || len(parts) > 2 {
		http.NotFound(w, r)
		return
	}
	sessionID := domain.SessionID(id)

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetSession(w, r, sessionID)
		return
	}

	switch parts[1] {
	case "messages":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSendMessage(w, r, sessionID)
	case "home":
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleReturnToMain(w, r, sessionID)
	case "dashboard":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetDashboard(w, r, sessionID)
	default:
		http.NotFound(w, r)
	}
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	out, err := s.svc.StartSession(r.Context(), conversation.StartSessionInput{
		UserID: domain.UserID(req.UserID),
		Title:  req.Title,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		Session:  toSessionResponse(out.Session),
		Greeting: out.Greeting,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		badRequest(w, "user_id is required")
		return
	}

	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	sessions, err := s.svc.ListSessions(r.Context(), domain.UserID(userID), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, sess := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id domain.SessionID) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	session, msgs, err := s.svc.GetSessionTimeline(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, getSessionResponse{
		Session:  toSessionResponse(session),
		Messages: toMessagesResponse(msgs),
	})
}

// Text is not validated: anything the router doesn't recognise gets the
// fallback reply rather than an error.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	out, err := s.svc.Submit(r.Context(), conversation.SendMessageInput{
		SessionID: sessionID,
		UserID:    domain.UserID(req.UserID),
		Text:      req.Text,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		UserMessage:  toMessageResponse(out.UserMessage),
		AgentMessage: toMessageResponse(out.AgentMessage),
		Decision:     toDecisionResponse(out.Decision),
		Session:      toSessionResponse(out.Session),
	})
}

func (s *Server) handleReturnToMain(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	session, err := s.svc.ReturnToMain(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]sessionResponse{"session": toSessionResponse(session)})
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request, sessionID domain.SessionID) {
	out, err := s.svc.GetDashboard(r.Context(), sessionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	// ?mode= previews another panel without switching the session's view
	panel := out.Panel
	if q := r.URL.Query().Get("mode"); q != "" {
		mode, err := domain.ParseViewMode(q)
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("dashboard mode %q: %w", q, err))
			return
		}
		panel = dashboard.PanelFor(mode)
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Session: toSessionResponse(out.Session),
		Panel:   panel,
	})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func toSessionResponse(s *domain.Session) sessionResponse {
	resp := sessionResponse{
		ID:        string(s.ID),
		UserID:    string(s.UserID),
		Title:     s.Title,
		Mode:      string(s.View.Mode),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if p := s.View.Pending; p != nil {
		resp.Pending = &pendingResponse{
			Target:   string(p.Target),
			Label:    p.Label,
			Progress: p.Progress,
		}
	}
	return resp
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:        string(m.ID),
		SessionID: string(m.SessionID),
		Author:    string(m.Author),
		Text:      m.Text,
		Mode:      string(m.Mode),
		CreatedAt: m.CreatedAt,
	}
}

func toMessagesResponse(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

func toDecisionResponse(d domain.Decision) decisionResponse {
	return decisionResponse{
		Intent:         string(d.Intent),
		NextMode:       string(d.Next),
		UsesTransition: d.UsesTransition,
		LoadingLabel:   d.LoadingLabel,
	}
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(w, "limit must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case errors.Is(err, domain.ErrTransitionPending):
		writeJSON(w, http.StatusConflict, map[string]string{"error": domain.ErrTransitionPending.Error()})
	case errors.Is(err, domain.ErrInvalidMode):
		badRequest(w, domain.ErrInvalidMode.Error())
	default:
		observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
