// Package session provides the in-memory conversation session store.
//
// Sessions are keyed by the user's messaging address. Each session carries a
// TTL; an expired session is replaced on read so an abandoned flow behaves
// like a first contact. Handling for a single address is serialized through
// per-address locks acquired for the whole of one inbound message.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/whatsup-com/whatsup-bot/internal/models"
)

// Default configuration values.
const (
	DefaultTTL           = 30 * time.Minute
	DefaultSweepInterval = 5 * time.Minute
)

// Opts holds configuration options for the session manager.
type Opts struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Option defines a configuration option for the session manager.
type Option func(*Opts)

// WithTTL sets the idle lifetime of a session.
func WithTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.TTL = ttl }
}

// WithSweepInterval sets how often expired sessions are evicted.
func WithSweepInterval(d time.Duration) Option {
	return func(o *Opts) { o.SweepInterval = d }
}

// Manager owns the session map. It is the only writer; flow handlers receive
// sessions from it and mutate them under the address lock.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	ttl      time.Duration

	locksMu sync.Mutex
	locks   map[string]*addressLock

	sweepInterval time.Duration
	done          chan struct{}
	stopOnce      sync.Once
}

// NewManager creates a session manager and starts its background sweeper.
func NewManager(opts ...Option) *Manager {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	m := &Manager{
		sessions:      make(map[string]*models.Session),
		locks:         make(map[string]*addressLock),
		ttl:           cfg.TTL,
		sweepInterval: cfg.SweepInterval,
		done:          make(chan struct{}),
	}
	go m.sweep()

	slog.Debug("session.NewManager: created", "ttl", cfg.TTL, "sweepInterval", cfg.SweepInterval)
	return m
}

// GetOrCreate returns the live session for an address, creating a fresh
// logged-out session on first contact or after expiry. Every call extends
// the session's lifetime.
func (m *Manager) GetOrCreate(address string) *models.Session {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[address]; ok {
		if now.Before(sess.ExpiresAt) {
			sess.UpdatedAt = now
			sess.ExpiresAt = now.Add(m.ttl)
			return sess
		}
		slog.Info("session.GetOrCreate: expired session replaced", "address", address, "expiredAt", sess.ExpiresAt)
	}

	sess := &models.Session{
		Address:   address,
		Data:      make(map[models.DataKey]string),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[address] = sess
	slog.Debug("session.GetOrCreate: created fresh session", "address", address)
	return sess
}

// Peek returns the session for an address without creating or extending one.
// Returns nil if no live session exists.
func (m *Manager) Peek(address string) *models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[address]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil
	}
	return sess
}

// addressLock is a reference-counted serialization lock. The entry lives in
// the lock map only while at least one goroutine holds or waits for it, so
// the map stays bounded regardless of how many distinct addresses write in.
type addressLock struct {
	mu   sync.Mutex
	refs int
}

// Lock acquires the serialization lock for an address. The controller holds
// it across the entire handling of one inbound message, including gateway
// calls, so two rapid messages from the same user cannot interleave.
func (m *Manager) Lock(address string) {
	m.locksMu.Lock()
	l, ok := m.locks[address]
	if !ok {
		l = &addressLock{}
		m.locks[address] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
}

// Unlock releases the serialization lock for an address, dropping the map
// entry once no goroutine holds or waits for it.
func (m *Manager) Unlock(address string) {
	m.locksMu.Lock()
	l, ok := m.locks[address]
	if !ok {
		m.locksMu.Unlock()
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(m.locks, address)
	}
	m.locksMu.Unlock()

	l.mu.Unlock()
}

// Count returns the number of live sessions (for monitoring and tests).
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	count := 0
	for _, sess := range m.sessions {
		if now.Before(sess.ExpiresAt) {
			count++
		}
	}
	return count
}

// Stop terminates the background sweeper.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.done) })
}

// sweep periodically evicts expired sessions so the map stays bounded even
// for addresses that never return.
func (m *Manager) sweep() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictExpired()
		case <-m.done:
			return
		}
	}
}

func (m *Manager) evictExpired() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for address, sess := range m.sessions {
		if now.After(sess.ExpiresAt) {
			delete(m.sessions, address)
			slog.Debug("session.evictExpired: session evicted", "address", address)
		}
	}
}
