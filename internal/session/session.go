package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/PierreEmmanuelGoffi/dt-brewers/internal/provider"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Factory builds the provider set a new session owns
type Factory func() (*provider.Selector, error)

// Session is one dashboard's private provider set. All provider access goes
// through Do, which serializes callers.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	mu       sync.Mutex
	selector *provider.Selector

	// guarded by Manager.mu
	lastSeen time.Time
}

// Do runs fn with exclusive access to the session's selector
func (s *Session) Do(fn func(sel *provider.Selector)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.selector)
}

// Manager owns all live sessions and evicts idle ones
type Manager struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session

	factory Factory
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	active  prometheus.Gauge
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the time source used for expiry
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithActiveGauge reports the number of live sessions
func WithActiveGauge(g prometheus.Gauge) Option {
	return func(m *Manager) {
		m.active = g
	}
}

// NewManager creates a session manager. Sessions idle for longer than ttl
// are dropped.
func NewManager(factory Factory, ttl time.Duration, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[uuid.UUID]*Session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Create starts a new session with a fresh provider set
func (m *Manager) Create() (*Session, error) {
	selector, err := m.factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create providers: %w", err)
	}

	now := m.now()
	s := &Session{
		ID:        uuid.New(),
		CreatedAt: now,
		selector:  selector,
		lastSeen:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.updateGauge()
	m.mu.Unlock()

	m.logger.Info("Session created",
		zap.String("session_id", s.ID.String()),
		zap.String("source", string(selector.ActiveVariant())),
	)

	return s, nil
}

// Get looks up a session and marks it as used
func (m *Manager) Get(id string) (*Session, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sid]
	if !ok {
		return nil, ErrNotFound
	}

	now := m.now()
	if m.expired(s, now) {
		delete(m.sessions, sid)
		m.updateGauge()
		return nil, ErrNotFound
	}

	s.lastSeen = now
	return s, nil
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		m.updateGauge()
	}

	return removed
}

// Run sweeps expired sessions every interval until ctx is done
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("Session sweeper started",
		zap.Duration("interval", interval),
		zap.Duration("ttl", m.ttl),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Session sweeper stopped")
			return
		case <-ticker.C:
			if removed := m.Sweep(); removed > 0 {
				m.logger.Info("Expired sessions removed",
					zap.Int("removed", removed),
					zap.Int("remaining", m.Len()),
				)
			}
		}
	}
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.lastSeen) > m.ttl
}

// updateGauge must be called with m.mu held
func (m *Manager) updateGauge() {
	if m.active != nil {
		m.active.Set(float64(len(m.sessions)))
	}
}
