package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/movieshelf/movieshelf/internal/favourites"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// DefaultIdleTimeout is used when the manager is created without one.
const DefaultIdleTimeout = 30 * time.Minute

// Manager owns all live sessions.
type Manager struct {
	provider    Provider
	store       FavouriteStore
	logger      zerolog.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu          sync.RWMutex
	sessions    map[string]*Session
	broadcaster Broadcaster
}

// NewManager creates a session manager.
func NewManager(provider Provider, store FavouriteStore, idleTimeout time.Duration, logger zerolog.Logger) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Manager{
		provider:    provider,
		store:       store,
		logger:      logger.With().Str("component", "session").Logger(),
		idleTimeout: idleTimeout,
		now:         time.Now,
		sessions:    make(map[string]*Session),
	}
}

// SetBroadcaster sets the broadcaster for sessions created afterwards.
func (m *Manager) SetBroadcaster(b Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcaster = b
}

// Create starts a new session with an empty query.
func (m *Manager) Create() *Session {
	id := uuid.New().String()

	m.mu.RLock()
	b := m.broadcaster
	m.mu.RUnlock()

	// Lock order is store before m.mu (see SyncFavourites).
	s := newSession(id, m.provider, m.store, b, m.logger, m.now)

	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info().Str("session", id).Int("active", count).Msg("Session created")
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.close()
	m.logger.Info().Str("session", id).Msg("Session closed")
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ExpireIdle closes sessions idle for longer than the idle timeout and
// returns how many were closed.
func (m *Manager) ExpireIdle(ctx context.Context) (int, error) {
	cutoff := m.now().Add(-m.idleTimeout)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		if err := ctx.Err(); err != nil {
			return len(expired), err
		}
		s.close()
	}

	if len(expired) > 0 {
		m.logger.Info().Int("expired", len(expired)).Msg("Expired idle sessions")
	}
	return len(expired), nil
}

// SyncFavourites pushes a changed favourites collection to every session.
func (m *Manager) SyncFavourites(c favourites.Collection) {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	for _, s := range sessions {
		s.SyncFavourites(c)
	}
}

// Close closes all sessions.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
