package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
)

// TransitionMsg mirrors a phaser.TransitionHook invocation: the run before
// and after a phase transition (either may be nil) and the phase count
// after it.
type TransitionMsg struct {
	Previous   *lifecycle.PhaseRun
	Current    *lifecycle.PhaseRun
	PhaseCount int
}

// OutputMsg mirrors a phaser.OutputHook invocation: one output line tagged
// with the phase that emitted it.
type OutputMsg struct {
	Info  lifecycle.PhaseInfo
	Line  string
	IsErr bool
}

// DoneMsg is sent once when the job's Run call returns, carrying its final
// termination record (nil if Run itself returned an unexpected error with
// no termination recorded) and that error (nil on ordinary completion,
// stop, or failure, since those are reported through Termination instead).
type DoneMsg struct {
	Termination *lifecycle.TerminationInfo
	Err         error
}

// ErrorMsg reports an out-of-band error (e.g. building the phase list
// failed before a Phaser could even be constructed).
type ErrorMsg struct {
	Detail string
}

// SnapshotMsg carries an authoritative Run snapshot taken by a poller that
// compares Run.Checksum between ticks and only forwards snapshots whose
// content actually changed. It keeps the phase panel honest even if a
// hook-driven message was dropped (the output/transition channels are
// bounded).
type SnapshotMsg struct {
	Run lifecycle.Run
}

// drainTransitions returns a tea.Cmd that reads one TransitionMsg from ch,
// or nil when ch is closed. The App re-invokes this after each delivery to
// keep draining.
func drainTransitions(ch <-chan TransitionMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// drainOutput returns a tea.Cmd that reads one OutputMsg from ch, or nil
// when ch is closed.
func drainOutput(ch <-chan OutputMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// drainSnapshots returns a tea.Cmd that reads one SnapshotMsg from ch, or
// nil when ch is closed.
func drainSnapshots(ch <-chan SnapshotMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// waitForDone returns a tea.Cmd that reads the single DoneMsg a run sends
// when it finishes.
func waitForDone(ch <-chan DoneMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
