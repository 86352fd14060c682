package handler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second    // Time allowed to write a message to the peer.
	pongWait       = 60 * time.Second    // Time allowed to read the next pong message from the peer.
	pingPeriod     = (pongWait * 9) / 10 // Must be less than pongWait.
	maxMessageSize = 512                 // Clients only send control frames.
)

// StreamHandler pushes status snapshots over a websocket, one per data
// collection interval of the session's active provider
type StreamHandler struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// interval converts the provider frequency into a push period
	interval func(minutes int) time.Duration
}

// NewStreamHandler creates a stream handler. originAllowed extends the
// same-host origin check; nil allows same-host origins only.
func NewStreamHandler(originAllowed func(origin string) bool, logger *zap.Logger) *StreamHandler {
	h := &StreamHandler{
		logger: logger,
		interval: func(minutes int) time.Duration {
			return time.Duration(minutes) * time.Minute
		},
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
				return true
			}
			return originAllowed != nil && originAllowed(origin)
		},
	}

	return h
}

// RegisterRoutes registers the stream route on an authenticated router
func (h *StreamHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/stream", h.ServeStream).Methods(http.MethodGet)
}

// ServeStream handles GET /stream
func (h *StreamHandler) ServeStream(w http.ResponseWriter, r *http.Request) {
	s := requireSession(w, r)
	if s == nil {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client
		h.logger.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	logger := requestLogger(h.logger, r).With(zap.String("session_id", s.ID.String()))
	logger.Info("Status stream opened", zap.String("remote_addr", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go h.readPump(conn, done, logger)
	h.writePump(r.Context(), conn, s, done, logger)

	logger.Info("Status stream closed")
}

// readPump drains client frames so pong and close messages are processed
func (h *StreamHandler) readPump(conn *websocket.Conn, done chan<- struct{}, logger *zap.Logger) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends a snapshot immediately, then again after every collection
// interval. The interval is re-read after each push so frequency changes
// take effect on the next tick.
func (h *StreamHandler) writePump(ctx context.Context, conn *websocket.Conn, s *session.Session, done <-chan struct{}, logger *zap.Logger) {
	ping := time.NewTicker(pingPeriod)
	push := time.NewTimer(0)
	defer func() {
		ping.Stop()
		push.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return

		case <-push.C:
			var snap StatusResponse
			s.Do(func(sel *provider.Selector) {
				snap = snapshot(ctx, sel)
			})

			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snap); err != nil {
				logger.Warn("WebSocket write error", zap.Error(err))
				return
			}
			push.Reset(h.interval(snap.DataCollectionFrequency))

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn("WebSocket ping error", zap.Error(err))
				return
			}
		}
	}
}
