// Package session gives every client its own slot store. A session lives
// until it is ended explicitly or stays idle for longer than its TTL.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	parkingerrors "parkly/internal/parking/errors"
	"parkly/internal/parking/store"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

// StoreFactory builds the state of a fresh session.
type StoreFactory func() (*store.Store, error)

type entry struct {
	store     *store.Store
	createdAt time.Time
	lastSeen  time.Time
}

type Manager struct {
	mu            sync.Mutex
	sessions      map[string]*entry
	factory       StoreFactory
	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time
	log           *logger.Logger
	stopCh        chan struct{}
	stopOnce      sync.Once
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) { m.sweepInterval = d }
}

func NewManager(factory StoreFactory, ttl time.Duration, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sweepInterval <= 0 {
		m.sweepInterval = max(ttl/2, time.Second)
	}
	return m
}

// Start runs the idle sweeper until Stop is called.
func (m *Manager) Start() {
	go m.cleanup()
}

func (m *Manager) Create() (model.Session, error) {
	st, err := m.factory()
	if err != nil {
		return model.Session{}, err
	}

	now := m.now()
	id := uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = &entry{store: st, createdAt: now, lastSeen: now}
	active := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("Session created", "session_id", id, "active_sessions", active)

	return model.Session{
		ID:        id,
		CreatedAt: now,
		ExpiresIn: int(m.ttl.Seconds()),
	}, nil
}

// Get returns the store of a live session and refreshes its idle timer.
func (m *Manager) Get(id string) (*store.Store, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, parkingerrors.ErrSessionNotFound
	}
	if now.Sub(e.lastSeen) > m.ttl {
		delete(m.sessions, id)
		return nil, parkingerrors.ErrSessionNotFound
	}
	e.lastSeen = now
	return e.store, nil
}

// Exists reports whether id names a live session without refreshing it.
func (m *Manager) Exists(id string) bool {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	return ok && now.Sub(e.lastSeen) <= m.ttl
}

// End discards a session and its ledger.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return parkingerrors.ErrSessionNotFound
	}
	m.log.Info("Session ended", "session_id", id)
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops every session idle for longer than the TTL and reports how
// many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	removed := 0

	m.mu.Lock()
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.log.Info("Expired idle sessions", "removed", removed)
	}
	return removed
}

func (m *Manager) cleanup() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}
