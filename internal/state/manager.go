package state

import (
	"context"
	"errors"
	"sync"

	"github.com/apiroute/routing-engine/internal/config"
	"github.com/apiroute/routing-engine/pkg/logger"
)

type connState int

const (
	stateUninitialized connState = iota
	stateInitializing
	stateReady
	stateFailed
)

func (s connState) String() string {
	switch s {
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	}
	return "uninitialized"
}

// Manager owns the single, lazily established connection to the backing
// document store. Initialization is guarded so that racing first users
// trigger exactly one dial and all observe the same outcome; after a
// failure a later call retries. Once ready the handle is read-only for the
// rest of the process lifetime.
type Manager struct {
	backend string
	dial    func(ctx context.Context) (Conn, error)

	mu       sync.Mutex
	state    connState
	conn     Conn
	lastErr  error
	inflight chan struct{}
}

// NewFirestoreManager returns a manager dialing Firestore with the
// configured project and credentials file.
func NewFirestoreManager(cfg config.FirebaseConfig) *Manager {
	return &Manager{
		backend: "firestore",
		dial: func(ctx context.Context) (Conn, error) {
			return dialFirestore(ctx, cfg)
		},
	}
}

// NewMongoManager returns a manager dialing the configured MongoDB
// deployment.
func NewMongoManager(cfg config.MongoConfig) *Manager {
	return &Manager{
		backend: "mongo",
		dial: func(ctx context.Context) (Conn, error) {
			return dialMongo(ctx, cfg)
		},
	}
}

// NewMemoryManager returns a manager backed by an in-process store; used in
// tests and local development.
func NewMemoryManager() *Manager {
	return &Manager{
		backend: "memory",
		dial: func(context.Context) (Conn, error) {
			return newMemoryConn(), nil
		},
	}
}

// Backend names the configured backend ("firestore", "mongo", "memory").
func (m *Manager) Backend() string { return m.backend }

// State reports the current lifecycle state for readiness probes.
func (m *Manager) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.String()
}

// Initialize establishes the connection if it does not exist yet. It is
// idempotent: when already ready it returns nil immediately. A caller
// arriving while another goroutine is dialing waits for that attempt and
// observes its outcome; a sequential call after a failure dials again.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case stateReady:
		m.mu.Unlock()
		logger.Debugf("state: %s store already initialized", m.backend)
		return nil

	case stateInitializing:
		ch := m.inflight
		m.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state == stateReady {
			return nil
		}
		return m.lastErr

	default: // uninitialized or failed: this goroutine dials
		m.state = stateInitializing
		ch := make(chan struct{})
		m.inflight = ch
		m.mu.Unlock()
	}

	conn, err := m.dial(ctx)
	if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
		err = &OpError{Op: "initialize", Kind: ErrInitialization, Err: err}
	}

	m.mu.Lock()
	if err != nil {
		m.state = stateFailed
		m.lastErr = err
	} else {
		m.state = stateReady
		m.conn = conn
		m.lastErr = nil
	}
	close(m.inflight)
	m.mu.Unlock()

	if err != nil {
		logger.Errorf("state: %s store initialization failed: %v", m.backend, err)
		return err
	}
	logger.Infof("state: %s store initialized", m.backend)
	return nil
}

// Handle returns the memoized connection, establishing it first when
// needed. This is the only path by which the Client reaches the store.
func (m *Manager) Handle(ctx context.Context) (Conn, error) {
	m.mu.Lock()
	if m.state == stateReady {
		conn := m.conn
		m.mu.Unlock()
		return conn, nil
	}
	m.mu.Unlock()

	if err := m.Initialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	return conn, nil
}

// Close releases the underlying session. Intended for process teardown
// only; the manager is not reusable afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateReady {
		return nil
	}
	return m.conn.Close()
}
