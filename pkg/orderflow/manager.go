// Package orderflow drives order submission and polling on top of a
// broker.Provider. It owns client token generation, idempotent retry of
// transient submission failures, and the order state machine: states only
// move forward, and terminal states never regress no matter what a later
// poll reports.
package orderflow

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"wbjapi/pkg/broker"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 200 * time.Millisecond
	defaultMaxBackoff     = 3 * time.Second
	defaultPollFailLimit  = 3
	defaultPollInterval   = 500 * time.Millisecond
)

// Manager submits and tracks orders for a single account.
//
// All operations on the same client token are serialized through a keyed
// lock; operations on unrelated tokens proceed independently.
type Manager struct {
	provider  broker.Provider
	accountID string

	clock    func() time.Time
	newToken func() string

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	pollFailLimit  int
	pollInterval   time.Duration

	mu        sync.Mutex
	tokenLock map[string]*sync.Mutex
	pollFails map[string]int
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithTokenGenerator overrides client token generation. Used by tests that
// need deterministic tokens.
func WithTokenGenerator(gen func() string) Option {
	return func(m *Manager) {
		if gen != nil {
			m.newToken = gen
		}
	}
}

// WithMaxAttempts bounds submission attempts per order, transport retries
// included.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithBackoff sets the initial and maximum retry backoff.
func WithBackoff(initial, max time.Duration) Option {
	return func(m *Manager) {
		if initial > 0 {
			m.initialBackoff = initial
		}
		if max > 0 {
			m.maxBackoff = max
		}
	}
}

// WithPollFailureLimit sets how many consecutive poll failures an order
// tolerates before its state is marked unknown.
func WithPollFailureLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.pollFailLimit = n
		}
	}
}

// WithPollInterval sets the delay between polls in PollUntilTerminal.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// NewManager wires a Manager over the given provider and account.
func NewManager(provider broker.Provider, accountID string, opts ...Option) *Manager {
	m := &Manager{
		provider:       provider,
		accountID:      accountID,
		clock:          time.Now,
		newToken:       uuid.NewString,
		maxAttempts:    defaultMaxAttempts,
		initialBackoff: defaultInitialBackoff,
		maxBackoff:     defaultMaxBackoff,
		pollFailLimit:  defaultPollFailLimit,
		pollInterval:   defaultPollInterval,
		tokenLock:      make(map[string]*sync.Mutex),
		pollFails:      make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lockToken returns the mutex guarding a client token, creating it on first
// use. The per-token granularity keeps unrelated orders concurrent.
func (m *Manager) lockToken(token string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.tokenLock[token]
	if !ok {
		lock = &sync.Mutex{}
		m.tokenLock[token] = lock
	}
	return lock
}

func (m *Manager) recordPollFailure(token string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollFails[token]++
	return m.pollFails[token]
}

func (m *Manager) resetPollFailures(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pollFails, token)
}
