package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/session"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SessionCreator starts dashboard sessions
type SessionCreator interface {
	Create() (*session.Session, error)
}

// TokenIssuer signs bearer tokens for a session ID
type TokenIssuer interface {
	GenerateToken(sessionID string) (string, time.Time, error)
}

type createSessionRequest struct {
	Source string `json:"source"`
}

type createSessionResponse struct {
	SessionID string           `json:"session_id"`
	Token     string           `json:"token"`
	TokenType string           `json:"token_type"`
	ExpiresAt time.Time        `json:"expires_at"`
	Source    provider.Variant `json:"source"`
}

// SessionHandler issues dashboard sessions
type SessionHandler struct {
	sessions SessionCreator
	tokens   TokenIssuer
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionCreator, tokens TokenIssuer, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// RegisterRoutes registers the public session routes
func (h *SessionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sessions", h.CreateSession).Methods(http.MethodPost)
}

// CreateSession handles POST /sessions. The optional body
// {"source": "remote"} selects the session's initial data source.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(h.logger, r)

	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid session body")
		return
	}

	var variant provider.Variant
	if req.Source != "" {
		v, err := provider.ParseVariant(req.Source)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		variant = v
	}

	s, err := h.sessions.Create()
	if err != nil {
		logger.Error("Failed to create session", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	var source provider.Variant
	s.Do(func(sel *provider.Selector) {
		if variant != "" {
			err = sel.SetActive(variant)
		}
		source = sel.ActiveVariant()
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, expiresAt, err := h.tokens.GenerateToken(s.ID.String())
	if err != nil {
		logger.Error("Failed to issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: s.ID.String(),
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		Source:    source,
	})
}
