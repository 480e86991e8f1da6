// Package shutdown coordinates teardown of the long-running watch
// session: signal handling, cleanup registration, and bounded waits.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"taskboard/internal/utils"
)

// CleanupFunc performs one piece of teardown. The context is cancelled
// when the shutdown deadline passes.
type CleanupFunc func(ctx context.Context) error

type cleanupEntry struct {
	name string
	fn   CleanupFunc
}

// Manager coordinates graceful shutdown. Cleanups run in LIFO order so
// dependents tear down before the things they depend on.
type Manager struct {
	mu       sync.Mutex
	cleanups []cleanupEntry
	done     bool

	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	log    *utils.Logger
}

// NewManager creates a shutdown manager.
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		log:    utils.GetLogger(),
	}
}

// RegisterCleanup registers a named cleanup step. Last registered runs
// first.
func (m *Manager) RegisterCleanup(name string, fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanups = append(m.cleanups, cleanupEntry{name: name, fn: fn})
}

// HandleSignals starts a goroutine that initiates shutdown on SIGINT or
// SIGTERM.
func (m *Manager) HandleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		m.log.Debug("received signal %v, shutting down", sig)
		m.Shutdown()
	}()
}

// Shutdown initiates shutdown. Safe to call multiple times; only the
// first call has effect.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		m.mu.Lock()
		m.done = true
		m.mu.Unlock()
		m.cancel()
	})
}

// Wait blocks until shutdown has been initiated, then runs the cleanups
// in LIFO order with the given grace period. A cleanup failure is logged
// and does not stop the remaining cleanups.
func (m *Manager) Wait(grace time.Duration) error {
	<-m.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	finished := make(chan struct{})
	go func() {
		m.runCleanups(ctx)
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runCleanups(ctx context.Context) {
	m.mu.Lock()
	cleanups := make([]cleanupEntry, len(m.cleanups))
	copy(cleanups, m.cleanups)
	m.mu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		if err := cleanups[i].fn(ctx); err != nil {
			m.log.Debug("cleanup %s: %v", cleanups[i].name, err)
		}
	}
}

// IsShutdown reports whether shutdown has been initiated.
func (m *Manager) IsShutdown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Context is cancelled when shutdown is initiated. Use it to make
// operations interruptible.
func (m *Manager) Context() context.Context {
	return m.ctx
}
