// Package phaser implements the Phaser state machine: the orchestrator
// that primes a phase list, advances through it, classifies each phase's
// outcome, records termination, fires transition/output hooks, and serves
// waiters blocked on WaitForTransition.
package phaser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/phase"
	"github.com/nilsjohansson/phaserun/internal/runctx"
	"github.com/nilsjohansson/phaserun/internal/tracker"
)

// Sentinel errors distinguishing caller misuse from domain outcomes, per
// the error-handling design: duplicate ids, priming twice, running without
// priming, and phase lookup misses/mismatches are all caller errors, never
// lifecycle mutations.
var (
	ErrInvalidState    = errors.New("phaser: invalid state")
	ErrInvalidArgument = errors.New("phaser: invalid argument")
	ErrNotFound        = errors.New("phaser: not found")
)

// ErrInterrupted is the sentinel a phase's Run should wrap (via %w) to
// signal a user interrupt: the phaser classifies it as INTERRUPTED, calls
// the phase's Stop, and re-raises the error after recording termination.
var ErrInterrupted = errors.New("phaser: user interrupt signal")

// ExitError is the error a phase's Run should return to signal a
// process-exit-style termination: COMPLETED if Code is zero, otherwise
// FAILED. The phaser re-raises it after recording termination.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("phaser: process exit signal (code %d)", e.Code)
}

// TransitionHook observes every phase transition with an independent
// lifecycle snapshot: the run before and after the transition (either may
// be nil) and the phase count after it.
type TransitionHook func(previous, current *lifecycle.PhaseRun, phaseCount int)

// OutputHook observes every line a phase emits through its RunContext,
// tagged with that phase's identity snapshot.
type OutputHook func(info lifecycle.PhaseInfo, line string, isErr bool)

// Phaser is the orchestrator described above. The zero value is not
// usable; construct with New.
type Phaser struct {
	phasesByID map[string]phase.Phase
	order      []string

	now            func() time.Time
	transitionHook TransitionHook
	outputHook     OutputHook
	logger         *log.Logger

	mu           sync.Mutex
	lifecycle    lifecycle.Lifecycle
	current      phase.Phase
	stopStatus   lifecycle.TerminationStatus
	abort        bool
	termination  *lifecycle.TerminationInfo
	inRun        bool
	transitionCh chan struct{}
}

// Option configures a Phaser at construction time.
type Option func(*Phaser)

// WithLifecycle seeds the Phaser with a pre-existing Lifecycle instead of
// starting from an empty one.
func WithLifecycle(lc lifecycle.Lifecycle) Option {
	return func(p *Phaser) { p.lifecycle = lc }
}

// WithTimestampFunc overrides the timestamp source (defaults to
// time.Now), primarily for deterministic tests.
func WithTimestampFunc(fn func() time.Time) Option {
	return func(p *Phaser) { p.now = fn }
}

// WithTransitionHook attaches a hook invoked after every phase transition.
func WithTransitionHook(hook TransitionHook) Option {
	return func(p *Phaser) { p.transitionHook = hook }
}

// WithOutputHook attaches a hook invoked for every line a phase emits.
func WithOutputHook(hook OutputHook) Option {
	return func(p *Phaser) { p.outputHook = hook }
}

// WithLogger attaches a logger used for optional diagnostics (e.g. a
// warning on interrupt or a dropped hook panic). Without one, those
// conditions pass silently.
func WithLogger(logger *log.Logger) Option {
	return func(p *Phaser) { p.logger = logger }
}

// New constructs a Phaser over phases. Phase ids must be unique; a
// duplicate fails immediately with a wrapped ErrInvalidArgument.
func New(phases []phase.Phase, opts ...Option) (*Phaser, error) {
	p := &Phaser{
		phasesByID:   make(map[string]phase.Phase, len(phases)),
		now:          time.Now,
		stopStatus:   lifecycle.StatusNone,
		transitionCh: make(chan struct{}),
	}
	for _, ph := range phases {
		if _, exists := p.phasesByID[ph.ID()]; exists {
			return nil, fmt.Errorf("%w: duplicate phase id %q", ErrInvalidArgument, ph.ID())
		}
		p.phasesByID[ph.ID()] = ph
		p.order = append(p.order, ph.ID())
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Prime transitions the Phaser to its Init phase. It must be called
// exactly once, before the first Run.
func (p *Phaser) Prime() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return fmt.Errorf("%w: primed already", ErrInvalidState)
	}
	p.nextPhaseLocked(phase.NewInitPhase())
	return nil
}

// Run requires a prior Prime and walks the configured phases in
// declaration order, installing a RunContext for each, classifying its
// outcome, and transitioning the lifecycle accordingly. Only one Run may
// be in flight at a time.
//
// ctx is checked for cancellation between phases (not inside a phase's own
// Run, which is this package's only suspension point per the concurrency
// model); a cancelled context is treated as an external stop using the
// about-to-run phase's stop status.
func (p *Phaser) Run(ctx context.Context, tr *tracker.Task) error {
	p.mu.Lock()
	if p.current == nil {
		p.mu.Unlock()
		return fmt.Errorf("%w: prime not executed before run", ErrInvalidState)
	}
	if p.inRun {
		p.mu.Unlock()
		return fmt.Errorf("%w: run already in progress", ErrInvalidState)
	}
	p.inRun = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.inRun = false
		p.mu.Unlock()
	}()

	sink := func(info lifecycle.PhaseInfo, line string, isErr bool) {
		p.emitOutput(info, line, isErr)
	}

	for _, id := range p.order {
		ph := p.phasesByID[id]

		p.mu.Lock()
		if p.abort {
			p.mu.Unlock()
			return nil
		}
		if err := ctx.Err(); err != nil {
			p.stopStatus = ph.StopStatus()
			t := p.termInfo(p.stopStatus, nil, nil)
			p.termination = &t
			p.nextPhaseLocked(phase.NewTerminalPhase())
			p.mu.Unlock()
			return err
		}
		p.nextPhaseLocked(ph)
		p.mu.Unlock()

		rc := runctx.New(ph.Info(), tr, sink)
		termInfo, excErr := p.executePhase(ph, rc)

		p.mu.Lock()
		if p.stopStatus != lifecycle.StatusNone {
			t := p.termInfo(p.stopStatus, nil, nil)
			p.termination = &t
		} else if termInfo != nil {
			p.termination = termInfo
		}

		if excErr != nil {
			p.nextPhaseLocked(phase.NewTerminalPhase())
			p.mu.Unlock()
			return excErr
		}
		if p.termination != nil {
			p.nextPhaseLocked(phase.NewTerminalPhase())
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
	}

	p.mu.Lock()
	if p.termination == nil {
		t := p.termInfo(lifecycle.StatusCompleted, nil, nil)
		p.termination = &t
		p.nextPhaseLocked(phase.NewTerminalPhase())
	}
	p.mu.Unlock()
	return nil
}

// Stop requests termination of the current (or not-yet-started) run. The
// first call wins; subsequent calls are no-ops. If the run has not yet
// advanced past Init, termination is synthesized and the Phaser jumps to
// Terminal immediately, without ever visiting the configured phases. In
// either case, the (possibly now-Terminal) current phase's Stop is invoked
// outside the lock as a best-effort, non-blocking nudge.
func (p *Phaser) Stop() {
	p.mu.Lock()
	if p.termination != nil {
		p.mu.Unlock()
		return
	}

	if p.current != nil {
		p.stopStatus = p.current.StopStatus()
	} else {
		p.stopStatus = lifecycle.StatusStopped
	}

	if p.current == nil || p.current.Type() == phase.InitPhaseType {
		p.abort = true
		t := p.termInfo(p.stopStatus, nil, nil)
		p.termination = &t
		p.nextPhaseLocked(phase.NewTerminalPhase())
	}

	current := p.current
	p.mu.Unlock()

	current.Stop()
}

// WaitForTransition blocks until a PhaseRun matching phaseID or runState
// has been recorded, or no transition arrives within timeout (a
// non-positive timeout waits forever). The timeout bounds each wait for the
// next transition, so a series of non-matching transitions extends the
// total wait. With both criteria empty, any transition satisfies the wait.
// It reports whether a matching (or, with no criteria, any) transition was
// observed.
func (p *Phaser) WaitForTransition(phaseID string, runState lifecycle.RunState, timeout time.Duration) bool {
	p.mu.Lock()
	for {
		for _, run := range p.lifecycle.PhaseRuns() {
			if (phaseID != "" && run.PhaseID == phaseID) || (runState != "" && run.RunState == runState) {
				p.mu.Unlock()
				return true
			}
		}

		ch := p.transitionCh
		p.mu.Unlock()

		if timeout <= 0 {
			<-ch
		} else {
			select {
			case <-ch:
			case <-time.After(timeout):
				return false
			}
		}

		if phaseID == "" && runState == "" {
			return true
		}
		p.mu.Lock()
	}
}

// GetPhase looks up a configured phase by id. An absent id fails with
// ErrNotFound; a non-empty phaseType that does not match the found phase's
// type fails with ErrInvalidArgument.
func (p *Phaser) GetPhase(id string, phaseType string) (phase.Phase, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ph, ok := p.phasesByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: no phase found with id %q", ErrNotFound, id)
	}
	if phaseType != "" && ph.Type() != phaseType {
		return nil, fmt.Errorf("%w: phase type mismatch: expected %q, found %q", ErrInvalidArgument, phaseType, ph.Type())
	}
	return ph, nil
}

// CurrentPhase returns the phase the Phaser currently sits on: nil before
// Prime, the Init sentinel after it, the executing phase while Run is in
// flight, and the Terminal sentinel once the run has ended.
func (p *Phaser) CurrentPhase() phase.Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// RunInfo returns a snapshot of the configured phases' identity, an
// independent copy of the lifecycle, and the termination record (nil
// while the run has not yet ended). Repeated calls without intervening
// transitions return equal snapshots.
func (p *Phaser) RunInfo() lifecycle.Run {
	p.mu.Lock()
	defer p.mu.Unlock()

	phases := make([]lifecycle.PhaseInfo, 0, len(p.order))
	for _, id := range p.order {
		phases = append(phases, p.phasesByID[id].Info())
	}
	return lifecycle.Run{
		Phases:      phases,
		Lifecycle:   p.lifecycle.Clone(),
		Termination: p.termination,
	}
}

// nextPhaseLocked transitions to ph. The caller must already hold mu; this
// method never acquires it, which is what lets the exception path in Run
// transition straight to Terminal inside its existing critical section.
func (p *Phaser) nextPhaseLocked(ph phase.Phase) {
	p.current = ph
	p.lifecycle.AddPhaseRun(lifecycle.PhaseRun{
		PhaseID:   ph.ID(),
		RunState:  ph.RunState(),
		StartedAt: p.now(),
	})

	if p.transitionHook != nil {
		snap := p.lifecycle.Clone()
		p.safeTransitionHook(snap)
	}

	close(p.transitionCh)
	p.transitionCh = make(chan struct{})
}

// safeTransitionHook invokes the transition hook with a panic guard: hook
// failures must never disrupt the run.
func (p *Phaser) safeTransitionHook(snap lifecycle.Lifecycle) {
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.Warn("transition hook panicked", "panic", r)
		}
	}()
	p.transitionHook(snap.PreviousRun(), snap.CurrentRun(), snap.PhaseCount())
}

// emitOutput forwards a line to the output hook with the same panic
// sandboxing as the transition hook.
func (p *Phaser) emitOutput(info lifecycle.PhaseInfo, line string, isErr bool) {
	if p.outputHook == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil && p.logger != nil {
			p.logger.Warn("output hook panicked", "panic", r)
		}
	}()
	p.outputHook(info, line, isErr)
}

// termInfo builds a TerminationInfo stamped with the configured timestamp
// source. It does not touch any mutex-guarded state and so may be called
// with or without mu held.
func (p *Phaser) termInfo(status lifecycle.TerminationStatus, failure *lifecycle.Fault, runErr *lifecycle.RunError) lifecycle.TerminationInfo {
	return lifecycle.TerminationInfo{
		Status:     status,
		FinishedAt: p.now(),
		Failure:    failure,
		Error:      runErr,
	}
}

// executePhase runs ph.Run under panic recovery and classifies the result
// per the exception table: a plain Outcome never re-raises; a genuinely
// unexpected error always does, after its TerminationInfo has been
// assembled for the caller to record.
func (p *Phaser) executePhase(ph phase.Phase, rc phase.RunContext) (*lifecycle.TerminationInfo, error) {
	outcome, err := p.safeRun(ph, rc)

	switch {
	case err == nil:
		if outcome.IsAdvance() {
			return nil, nil
		}
		t := p.termInfo(outcome.Status, outcome.Failure, nil)
		return &t, nil

	case errors.Is(err, ErrInterrupted):
		if p.logger != nil {
			p.logger.Warn("keyboard_interruption")
		}
		ph.Stop()
		t := p.termInfo(lifecycle.StatusInterrupted, nil, nil)
		return &t, err

	default:
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			status := lifecycle.StatusCompleted
			if exitErr.Code != 0 {
				status = lifecycle.StatusFailed
			}
			t := p.termInfo(status, nil, nil)
			return &t, err
		}

		t := p.termInfo(lifecycle.StatusError, nil, &lifecycle.RunError{
			Category: fmt.Sprintf("%T", err),
			Message:  err.Error(),
		})
		return &t, err
	}
}

// safeRun calls ph.Run under a recover so a panicking phase is converted
// to an ERROR termination rather than crashing the driver goroutine.
func (p *Phaser) safeRun(ph phase.Phase, rc phase.RunContext) (outcome phase.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("phaser: phase %q panicked: %v", ph.ID(), r)
		}
	}()
	return ph.Run(rc)
}
