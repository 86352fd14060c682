package handler

import (
	"encoding/json"
	"net/http"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/auth"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/middleware"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/session"
	"go.uber.org/zap"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 16

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// decodeJSON reads a single JSON object from the request body
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// requireSession returns the authenticated session or answers 401
func requireSession(w http.ResponseWriter, r *http.Request) *session.Session {
	s := auth.SessionFromContext(r.Context())
	if s == nil {
		writeError(w, http.StatusUnauthorized, "Session required")
	}
	return s
}

func requestLogger(logger *zap.Logger, r *http.Request) *zap.Logger {
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}
