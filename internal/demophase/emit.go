package demophase

import (
	"fmt"
	"sync"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/phase"
)

// EmitPhase replays a fixed script of output lines through the run's
// output hook, one per Run call iteration, standing in for a phase whose
// real job would stream progress from some external tool. FailAt, if
// positive, is the 1-based line index after which the phase reports a
// failed run instead of advancing; 0 means the phase always advances.
type EmitPhase struct {
	phase.Base
	Lines      []string
	FailAt     int
	stopStatus lifecycle.TerminationStatus

	mu      sync.Mutex
	stopped bool
}

// NewEmitPhase constructs an EmitPhase.
func NewEmitPhase(id, name string, lines []string, failAt int, stopStatus lifecycle.TerminationStatus) *EmitPhase {
	return &EmitPhase{
		Base:       phase.NewBase(id, "EMIT", lifecycle.RunStateExecuting, name, "", ""),
		Lines:      lines,
		FailAt:     failAt,
		stopStatus: stopStatus,
	}
}

// StopStatus reports the termination status Run signals when Stop
// preempts the line script.
func (p *EmitPhase) StopStatus() lifecycle.TerminationStatus { return p.stopStatus }

// Run writes each configured line through ctx.NewOutput in order, checking
// for a pending Stop between lines, then either signals a failed run (if
// FailAt was reached) or advances.
func (p *EmitPhase) Run(ctx phase.RunContext) (phase.Outcome, error) {
	for i, line := range p.Lines {
		if p.isStopped() {
			return phase.Terminate(p.stopStatus), nil
		}

		ctx.NewOutput(line, false)

		if p.FailAt > 0 && i+1 == p.FailAt {
			return phase.Failed(lifecycle.Fault{
				Reason: "emit-fail-at",
				Detail: fmt.Sprintf("configured failure after line %d: %q", i+1, line),
			}), nil
		}
	}

	if p.isStopped() {
		return phase.Terminate(p.stopStatus), nil
	}
	return phase.Advance(), nil
}

func (p *EmitPhase) isStopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Stop requests early termination, observed between emitted lines. It is
// idempotent.
func (p *EmitPhase) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}
