package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/session"
	"go.uber.org/zap"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionStore resolves a session ID to a live session
type SessionStore interface {
	Get(id string) (*session.Session, error)
}

// AuthMiddleware resolves the bearer token to a dashboard session
type AuthMiddleware struct {
	jwtManager *JWTManager
	sessions   SessionStore
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *JWTManager, sessions SessionStore, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		sessions:   sessions,
		logger:     logger,
	}
}

// Authenticate rejects requests without a valid session token and stores
// the session in the request context
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Preflight requests carry no credentials
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractToken(r)
		if err != nil {
			writeUnauthorized(w, err.Error())
			return
		}

		claims, err := m.jwtManager.ValidateToken(tokenString)
		if err != nil {
			m.logger.Warn("Invalid token", zap.Error(err))
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		s, err := m.sessions.Get(claims.SessionID)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				m.logger.Error("Session lookup failed", zap.Error(err))
			}
			writeUnauthorized(w, "Session expired or unknown")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// extractToken reads "Authorization: Bearer {token}", falling back to the
// access_token query parameter browsers use for websocket upgrades
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if token := r.URL.Query().Get("access_token"); token != "" {
			return token, nil
		}
		return "", errors.New("authorization header required")
	}

	authParts := strings.Split(authHeader, " ")
	if len(authParts) != 2 || authParts[0] != "Bearer" || authParts[1] == "" {
		return "", errors.New("invalid authorization format")
	}

	return authParts[1], nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// SessionFromContext extracts the session from the request context
func SessionFromContext(ctx context.Context) *session.Session {
	s, ok := ctx.Value(sessionContextKey).(*session.Session)
	if !ok {
		return nil
	}
	return s
}

// WithSession returns a context carrying s
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}
