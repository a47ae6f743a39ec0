package phase

import (
	"sync"
	"time"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
)

// WaitWrapper decorates a Phase with an additional Wait(timeout) that
// completes as soon as the wrapped phase's Run has been entered. Tests and
// coordinators that must synchronize with phase entry (rather than phase
// completion) use this instead of racing the Phaser directly.
type WaitWrapper struct {
	wrapped Phase

	mu      sync.Mutex
	entered bool
	ch      chan struct{}
}

// NewWaitWrapper wraps wrapped in a WaitWrapper.
func NewWaitWrapper(wrapped Phase) *WaitWrapper {
	return &WaitWrapper{wrapped: wrapped, ch: make(chan struct{})}
}

func (w *WaitWrapper) ID() string                             { return w.wrapped.ID() }
func (w *WaitWrapper) Type() string                           { return w.wrapped.Type() }
func (w *WaitWrapper) Name() string                           { return w.wrapped.Name() }
func (w *WaitWrapper) RunState() lifecycle.RunState           { return w.wrapped.RunState() }
func (w *WaitWrapper) StopStatus() lifecycle.TerminationStatus { return w.wrapped.StopStatus() }
func (w *WaitWrapper) Info() lifecycle.PhaseInfo               { return w.wrapped.Info() }

// Wait blocks until Run has been entered, or timeout elapses (a
// non-positive timeout waits forever). It reports whether entry was
// observed before the deadline.
func (w *WaitWrapper) Wait(timeout time.Duration) bool {
	w.mu.Lock()
	if w.entered {
		w.mu.Unlock()
		return true
	}
	ch := w.ch
	w.mu.Unlock()

	if timeout <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Run marks entry, then delegates to the wrapped phase.
func (w *WaitWrapper) Run(ctx RunContext) (Outcome, error) {
	w.mu.Lock()
	if !w.entered {
		w.entered = true
		close(w.ch)
	}
	w.mu.Unlock()

	return w.wrapped.Run(ctx)
}

// Stop delegates to the wrapped phase.
func (w *WaitWrapper) Stop() {
	w.wrapped.Stop()
}
