package provider

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	connectAttempts       = 3
	connectAttemptTimeout = 30 * time.Second
	probeTimeout          = 5 * time.Second
)

// connectBackoffs is the wait before the second and third connect
// attempts.
var connectBackoffs = []time.Duration{2 * time.Second, 4 * time.Second}

// Transport is a live provider connection the ConnManager can probe and
// release. IMAP adapters back it with an IMAP client; HTTP adapters
// have no long-lived connection and do not use a ConnManager.
type Transport interface {
	// Ping cheaply verifies the connection is still alive.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}

// DialFunc establishes a fresh transport.
type DialFunc func(ctx context.Context) (Transport, error)

// ConnManager caches a single transport and hands it out serially.
// Acquire probes the cached transport first and reconnects only when
// the probe fails, so steady-state syncs reuse one connection instead
// of dialing every time.
type ConnManager struct {
	kind Kind
	dial DialFunc

	mu        sync.Mutex
	transport Transport

	// Overridable in tests to collapse timing.
	attempts       int
	attemptTimeout time.Duration
	probeTimeout   time.Duration
	backoffs       []time.Duration
}

// NewConnManager creates a manager that dials with dial on demand.
func NewConnManager(kind Kind, dial DialFunc) *ConnManager {
	return &ConnManager{
		kind:           kind,
		dial:           dial,
		attempts:       connectAttempts,
		attemptTimeout: connectAttemptTimeout,
		probeTimeout:   probeTimeout,
		backoffs:       connectBackoffs,
	}
}

// Acquire returns a live transport, reusing the cached one when its
// probe succeeds. On probe failure the dead transport is discarded and
// a fresh connect cycle runs: up to three attempts with a backoff
// between them, each attempt bounded by its own timeout. When every
// attempt fails the last error is returned wrapped in a
// *ConnectionError.
func (m *ConnManager) Acquire(ctx context.Context) (Transport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport != nil {
		probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
		err := m.transport.Ping(probeCtx)
		cancel()
		if err == nil {
			return m.transport, nil
		}
		log.Printf("Warning: cached %s connection failed liveness probe, reconnecting: %v", m.kind, err)
		m.dropLocked()
	}

	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		if attempt > 1 {
			wait := m.backoffs[len(m.backoffs)-1]
			if attempt-2 < len(m.backoffs) {
				wait = m.backoffs[attempt-2]
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, m.attemptTimeout)
		transport, err := m.dial(attemptCtx)
		cancel()
		if err == nil {
			m.transport = transport
			return transport, nil
		}

		lastErr = err
		log.Printf("Warning: %s connect attempt %d/%d failed: %v", m.kind, attempt, m.attempts, err)
	}

	return nil, &ConnectionError{Kind: m.kind, Attempts: m.attempts, Err: lastErr}
}

// Invalidate discards the cached transport so the next Acquire dials
// fresh. Call it when an operation on the transport fails in a way
// that suggests the connection died underneath it.
func (m *ConnManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked()
}

// Close releases the cached transport. Safe to call repeatedly.
func (m *ConnManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropLocked()
}

func (m *ConnManager) dropLocked() {
	if m.transport == nil {
		return
	}
	// The transport may already be dead; its close error is not
	// interesting.
	_ = m.transport.Close()
	m.transport = nil
}
