// Package goroutine runs fire-and-forget work, such as publishing audit
// events, with a concurrency ceiling and a graceful drain on shutdown.
package goroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/shandysiswandi/apex/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// DefaultMaxGoroutine is multiplied by NumCPU when NewManager receives a
// non-positive limit.
const DefaultMaxGoroutine int = 100

var (
	// ErrManagerClosed is returned by Go after Wait has been called.
	ErrManagerClosed = errors.New("goroutine: manager is closed")
	// ErrLimitReached is returned by Go when every slot is busy.
	ErrLimitReached = errors.New("goroutine: maximum goroutine limit reached")
)

// Manager runs functions in goroutines with a bounded number of slots and
// collects their errors.
type Manager struct {
	wg     sync.WaitGroup
	slots  chan struct{}
	closed atomic.Bool
	gate   sync.RWMutex

	errMu sync.Mutex
	errs  []error
}

// NewManager creates a Manager with at most maxGoroutine concurrent tasks.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{slots: make(chan struct{}, maxGoroutine)}
}

// Go schedules f. The task is dropped, with a warning, when the manager is
// closed or saturated; the returned error says which.
func (m *Manager) Go(ctx context.Context, f func(ctx context.Context) error) error {
	if m == nil {
		return ErrManagerClosed
	}

	m.gate.RLock()
	defer m.gate.RUnlock()

	if m.closed.Load() {
		slog.WarnContext(ctx, "goroutine manager is closed, task dropped")
		return ErrManagerClosed
	}

	select {
	case m.slots <- struct{}{}:
	default:
		slog.WarnContext(ctx, "maximum goroutine limit reached, task dropped", "limit", cap(m.slots))
		return ErrLimitReached
	}

	m.wg.Add(1)
	go m.run(ctx, f)

	return nil
}

func (m *Manager) run(ctx context.Context, f func(ctx context.Context) error) {
	defer m.wg.Done()
	defer func() { <-m.slots }()
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			slog.ErrorContext(ctx, "panic occurred in goroutine", "panic", rvr, "stack", stacktrace.InternalPaths(stack))
			m.collect(fmt.Errorf("goroutine: panic: %v", rvr))
		}
	}()

	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "goroutine canceled before start", "because", err)
		return
	}

	if err := f(ctx); err != nil {
		m.collect(err)
	}
}

func (m *Manager) collect(err error) {
	m.errMu.Lock()
	m.errs = append(m.errs, err)
	m.errMu.Unlock()
}

// Wait closes the manager to new work, blocks until running tasks finish and
// returns their joined errors.
func (m *Manager) Wait() error {
	if m == nil {
		return nil
	}

	m.gate.Lock()
	m.closed.Store(true)
	m.gate.Unlock()

	m.wg.Wait()

	m.errMu.Lock()
	defer m.errMu.Unlock()

	return errors.Join(m.errs...)
}
