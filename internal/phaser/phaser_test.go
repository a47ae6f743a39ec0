package phaser_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/outputtask"
	"github.com/nilsjohansson/phaserun/internal/phase"
	"github.com/nilsjohansson/phaserun/internal/phaser"
	"github.com/nilsjohansson/phaserun/internal/tracker"
)

// stubPhase is a minimal, configurable Phase double used across scenarios.
type stubPhase struct {
	phase.Base
	stopStatus lifecycle.TerminationStatus

	mu      sync.Mutex
	blocked chan struct{} // closed by the test to release a blocking Run
	entered chan struct{} // closed once Run has been entered

	outcome phase.Outcome
	err     error

	stopCalls int
}

func newStub(id string, runState lifecycle.RunState, stopStatus lifecycle.TerminationStatus) *stubPhase {
	return &stubPhase{
		Base:       phase.NewBase(id, "EXEC", runState, id, "", ""),
		stopStatus: stopStatus,
		outcome:    phase.Advance(),
		entered:    make(chan struct{}),
	}
}

func (s *stubPhase) StopStatus() lifecycle.TerminationStatus { return s.stopStatus }

func (s *stubPhase) Run(ctx phase.RunContext) (phase.Outcome, error) {
	close(s.entered)
	if s.blocked != nil {
		<-s.blocked
	}
	return s.outcome, s.err
}

func (s *stubPhase) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalls++
	if s.blocked != nil {
		select {
		case <-s.blocked:
		default:
			close(s.blocked)
		}
	}
}

func newPrimed(t *testing.T, phases []phase.Phase, opts ...phaser.Option) *phaser.Phaser {
	t.Helper()
	ph, err := phaser.New(phases, opts...)
	require.NoError(t, err)
	require.NoError(t, ph.Prime())
	return ph
}

func TestPhaser_HappyPath(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	b := newStub("B", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p := newPrimed(t, []phase.Phase{a, b})

	err := p.Run(context.Background(), nil)
	require.NoError(t, err)

	info := p.RunInfo()
	var ids []string
	for _, run := range info.Lifecycle.PhaseRuns() {
		ids = append(ids, run.PhaseID)
	}
	assert.Equal(t, []string{"Init", "A", "B", "term"}, ids)

	require.NotNil(t, info.Termination)
	assert.Equal(t, lifecycle.StatusCompleted, info.Termination.Status)
}

func TestPhaser_FailedRun(t *testing.T) {
	t.Parallel()

	fault := lifecycle.Fault{Reason: "bad config"}
	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	a.outcome = phase.Failed(fault)
	p := newPrimed(t, []phase.Phase{a})

	err := p.Run(context.Background(), nil)
	require.NoError(t, err, "failed-run is a domain signal, not an error")

	info := p.RunInfo()
	var ids []string
	for _, run := range info.Lifecycle.PhaseRuns() {
		ids = append(ids, run.PhaseID)
	}
	assert.Equal(t, []string{"Init", "A", "term"}, ids)

	require.NotNil(t, info.Termination)
	assert.Equal(t, lifecycle.StatusFailed, info.Termination.Status)
	require.NotNil(t, info.Termination.Failure)
	assert.Equal(t, "bad config", info.Termination.Failure.Reason)
}

func TestPhaser_UnexpectedError_Reraises(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	a.err = boom
	p := newPrimed(t, []phase.Phase{a})

	err := p.Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	info := p.RunInfo()
	var ids []string
	for _, run := range info.Lifecycle.PhaseRuns() {
		ids = append(ids, run.PhaseID)
	}
	assert.Equal(t, []string{"Init", "A", "term"}, ids)

	require.NotNil(t, info.Termination)
	assert.Equal(t, lifecycle.StatusError, info.Termination.Status)
	require.NotNil(t, info.Termination.Error)
	assert.Equal(t, "boom", info.Termination.Error.Message)
}

func TestPhaser_ExternalStopMidPhase(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	a.blocked = make(chan struct{})
	p := newPrimed(t, []phase.Phase{a})

	done := make(chan error, 1)
	go func() {
		done <- p.Run(context.Background(), nil)
	}()

	<-a.entered
	p.Stop()

	err := <-done
	require.NoError(t, err)

	info := p.RunInfo()
	require.NotNil(t, info.Termination)
	assert.Equal(t, lifecycle.StatusStopped, info.Termination.Status)

	runs := info.Lifecycle.PhaseRuns()
	require.NotEmpty(t, runs)
	assert.Equal(t, "term", runs[len(runs)-1].PhaseID)
}

func TestPhaser_OutputToTaskReconciliation(t *testing.T) {
	t.Parallel()

	tr := tracker.New()
	acc := outputtask.New(tr, []outputtask.Parser{outputtask.KVParser})

	a := &scriptedPhase{
		stubPhase: *newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped),
		lines: []string{
			"task=build event=start",
			"operation=compile completed=10 total=100 unit=files",
			"operation=compile completed=100 total=100 unit=files",
			"task=build result=ok",
		},
	}
	p, err := phaser.New([]phase.Phase{a},
		phaser.WithOutputHook(func(_ lifecycle.PhaseInfo, line string, isErr bool) {
			acc.NewOutput(line, isErr)
		}))
	require.NoError(t, err)
	require.NoError(t, p.Prime())
	require.NoError(t, p.Run(context.Background(), tr))

	subtasks := tr.Subtasks()
	require.Len(t, subtasks, 1)
	build := subtasks[0]
	assert.Equal(t, "build", build.Name())
	assert.True(t, build.IsFinished())
	assert.Equal(t, "ok", build.Result())

	ops := build.Operations()
	require.Len(t, ops, 1)
	snap := ops[0].Snapshot()
	assert.Equal(t, "compile", snap.Name)
	assert.Equal(t, 100.0, snap.Completed)
	assert.Equal(t, 100.0, snap.Total)
	assert.Equal(t, "files", snap.Unit)
}

type scriptedPhase struct {
	stubPhase
	lines []string
}

func (s *scriptedPhase) Run(ctx phase.RunContext) (phase.Outcome, error) {
	for _, line := range s.lines {
		ctx.NewOutput(line, false)
	}
	return phase.Advance(), nil
}

func TestPhaser_WaitForTransition(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	a.blocked = make(chan struct{})
	b := newStub("B", lifecycle.RunStateExecuting, lifecycle.StatusStopped)

	p, err := phaser.New([]phase.Phase{a, b})
	require.NoError(t, err)

	waitDone := make(chan bool, 1)
	go func() {
		waitDone <- p.WaitForTransition("B", "", 2*time.Second)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, p.Prime())

	go func() {
		_ = p.Run(context.Background(), nil)
	}()

	<-a.entered
	close(a.blocked)

	select {
	case ok := <-waitDone:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("wait_for_transition never observed B's entry")
	}
}

func TestPhaser_StopBeforePrime_SubsequentRunIsNoOp(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p, err := phaser.New([]phase.Phase{a})
	require.NoError(t, err)

	p.Stop()

	info := p.RunInfo()
	require.NotNil(t, info.Termination)
	assert.Equal(t, lifecycle.StatusStopped, info.Termination.Status)

	runs := info.Lifecycle.PhaseRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, "term", runs[0].PhaseID, "a pre-prime stop jumps straight to Terminal")

	// The Phaser already sits on Terminal, so Prime is a state error; Run is
	// the documented no-op beyond the already-recorded termination.
	assert.ErrorIs(t, p.Prime(), phaser.ErrInvalidState)

	err = p.Run(context.Background(), nil)
	assert.NoError(t, err)

	assert.False(t, isClosed(a.entered), "the configured phase must never run once stop landed before prime")
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestPhaser_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p := newPrimed(t, []phase.Phase{a})

	p.Stop()
	first := p.RunInfo().Termination
	p.Stop()
	second := p.RunInfo().Termination

	assert.Equal(t, first, second)
}

func TestPhaser_RunInfo_IsPure(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p := newPrimed(t, []phase.Phase{a})

	first := p.RunInfo()
	second := p.RunInfo()
	assert.Equal(t, first, second)
}

func TestPhaser_CurrentPhase(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p, err := phaser.New([]phase.Phase{a})
	require.NoError(t, err)

	assert.Nil(t, p.CurrentPhase(), "no current phase before Prime")

	require.NoError(t, p.Prime())
	require.NotNil(t, p.CurrentPhase())
	assert.Equal(t, phase.InitPhaseID, p.CurrentPhase().ID())

	require.NoError(t, p.Run(context.Background(), nil))
	assert.Equal(t, phase.TerminalPhaseID, p.CurrentPhase().ID())
}

func TestPhaser_PrimeTwiceFails(t *testing.T) {
	t.Parallel()

	p, err := phaser.New([]phase.Phase{newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)})
	require.NoError(t, err)
	require.NoError(t, p.Prime())

	err = p.Prime()
	assert.ErrorIs(t, err, phaser.ErrInvalidState)
}

func TestPhaser_RunWithoutPrimeFails(t *testing.T) {
	t.Parallel()

	p, err := phaser.New([]phase.Phase{newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)})
	require.NoError(t, err)

	err = p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, phaser.ErrInvalidState)
}

func TestPhaser_DuplicatePhaseIDFailsConstruction(t *testing.T) {
	t.Parallel()

	a1 := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	a2 := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)

	_, err := phaser.New([]phase.Phase{a1, a2})
	assert.ErrorIs(t, err, phaser.ErrInvalidArgument)
}

func TestPhaser_GetPhase(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p, err := phaser.New([]phase.Phase{a})
	require.NoError(t, err)

	found, err := p.GetPhase("A", "")
	require.NoError(t, err)
	assert.Same(t, a, found)

	_, err = p.GetPhase("missing", "")
	assert.ErrorIs(t, err, phaser.ErrNotFound)

	_, err = p.GetPhase("A", "OTHER")
	assert.ErrorIs(t, err, phaser.ErrInvalidArgument)
}

func TestPhaser_TransitionHookReceivesIndependentSnapshot(t *testing.T) {
	t.Parallel()

	type snap struct {
		prevID, currID string
		count          int
	}
	var mu sync.Mutex
	var seen []snap

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p, err := phaser.New([]phase.Phase{a}, phaser.WithTransitionHook(func(prev, curr *lifecycle.PhaseRun, count int) {
		mu.Lock()
		defer mu.Unlock()
		s := snap{count: count}
		if prev != nil {
			s.prevID = prev.PhaseID
		}
		if curr != nil {
			s.currID = curr.PhaseID
		}
		seen = append(seen, s)
	}))
	require.NoError(t, err)
	require.NoError(t, p.Prime())
	require.NoError(t, p.Run(context.Background(), nil))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Equal(t, snap{prevID: "", currID: "Init", count: 1}, seen[0])
	assert.Equal(t, snap{prevID: "Init", currID: "A", count: 2}, seen[1])
	assert.Equal(t, snap{prevID: "A", currID: "term", count: 3}, seen[2])
}

func TestPhaser_HookPanicDoesNotDisruptRun(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p, err := phaser.New([]phase.Phase{a}, phaser.WithTransitionHook(func(*lifecycle.PhaseRun, *lifecycle.PhaseRun, int) {
		panic("hook exploded")
	}))
	require.NoError(t, err)
	require.NoError(t, p.Prime())

	assert.NotPanics(t, func() {
		err = p.Run(context.Background(), nil)
	})
	assert.NoError(t, err)
}

func TestPhaser_OutputHookReceivesPhaseOutput(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var lines []string

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	p, err := phaser.New([]phase.Phase{a}, phaser.WithOutputHook(func(info lifecycle.PhaseInfo, line string, isErr bool) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, info.ID+":"+line)
	}))
	require.NoError(t, err)
	require.NoError(t, p.Prime())

	// stubPhase does not itself emit output; exercise the hook plumbing via
	// a phase that calls back into its RunContext.
	emitting := &emittingPhase{stubPhase: *newStub("B", lifecycle.RunStateExecuting, lifecycle.StatusStopped)}
	p2, err := phaser.New([]phase.Phase{emitting}, phaser.WithOutputHook(func(info lifecycle.PhaseInfo, line string, isErr bool) {
		mu.Lock()
		defer mu.Unlock()
		lines = append(lines, info.ID+":"+line)
	}))
	require.NoError(t, err)
	require.NoError(t, p2.Prime())
	require.NoError(t, p2.Run(context.Background(), nil))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, lines, "B:hello from phase")
}

type emittingPhase struct {
	stubPhase
}

func (e *emittingPhase) Run(ctx phase.RunContext) (phase.Outcome, error) {
	ctx.NewOutput("hello from phase", false)
	return phase.Advance(), nil
}

func TestPhaser_InterruptedClassification(t *testing.T) {
	t.Parallel()

	a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
	a.err = phaser.ErrInterrupted
	p := newPrimed(t, []phase.Phase{a})

	err := p.Run(context.Background(), nil)
	assert.ErrorIs(t, err, phaser.ErrInterrupted)

	info := p.RunInfo()
	require.NotNil(t, info.Termination)
	assert.Equal(t, lifecycle.StatusInterrupted, info.Termination.Status)
	assert.Equal(t, 1, a.stopCalls, "an interrupt must also call the phase's Stop")
}

func TestPhaser_ExitErrorClassification(t *testing.T) {
	t.Parallel()

	t.Run("zero code completes", func(t *testing.T) {
		t.Parallel()
		a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
		a.err = &phaser.ExitError{Code: 0}
		p := newPrimed(t, []phase.Phase{a})

		err := p.Run(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, lifecycle.StatusCompleted, p.RunInfo().Termination.Status)
	})

	t.Run("nonzero code fails", func(t *testing.T) {
		t.Parallel()
		a := newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)
		a.err = &phaser.ExitError{Code: 1}
		p := newPrimed(t, []phase.Phase{a})

		err := p.Run(context.Background(), nil)
		require.Error(t, err)
		assert.Equal(t, lifecycle.StatusFailed, p.RunInfo().Termination.Status)
	})
}

func TestPhaser_PanicIsClassifiedAsError(t *testing.T) {
	t.Parallel()

	a := &panickingPhase{stubPhase: *newStub("A", lifecycle.RunStateExecuting, lifecycle.StatusStopped)}
	p := newPrimed(t, []phase.Phase{a})

	err := p.Run(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, lifecycle.StatusError, p.RunInfo().Termination.Status)
}

type panickingPhase struct {
	stubPhase
}

func (p *panickingPhase) Run(phase.RunContext) (phase.Outcome, error) {
	panic("phase exploded")
}
