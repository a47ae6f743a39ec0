package demophase

import (
	"sync"
	"time"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/phase"
)

// SleepPhase advances after Duration has elapsed, or ends early with
// StopStatus if Stop is called first. It models any phase whose work is
// pure wall-clock waiting: a rate limit backoff, a warm-up delay, a
// scheduled gate.
type SleepPhase struct {
	phase.Base
	Duration   time.Duration
	stopStatus lifecycle.TerminationStatus

	mu      sync.Mutex
	stopCh  chan struct{}
	stopped bool
}

// NewSleepPhase constructs a SleepPhase. stopStatus is the termination
// status reported by StopStatus() and used if Stop fires before Run
// returns on its own.
func NewSleepPhase(id, name string, duration time.Duration, stopStatus lifecycle.TerminationStatus) *SleepPhase {
	return &SleepPhase{
		Base:       phase.NewBase(id, "SLEEP", lifecycle.RunStateExecuting, name, "", ""),
		Duration:   duration,
		stopStatus: stopStatus,
		stopCh:     make(chan struct{}),
	}
}

// StopStatus reports the termination status Run signals when Stop
// preempts the sleep.
func (p *SleepPhase) StopStatus() lifecycle.TerminationStatus { return p.stopStatus }

// Run waits for Duration or an earlier Stop, whichever comes first.
func (p *SleepPhase) Run(ctx phase.RunContext) (phase.Outcome, error) {
	timer := time.NewTimer(p.Duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return phase.Advance(), nil
	case <-p.stopCh:
		return phase.Terminate(p.stopStatus), nil
	}
}

// Stop requests early termination. It is idempotent and safe to call
// before, during, or after Run.
func (p *SleepPhase) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	close(p.stopCh)
}
