// Package phase defines the unit-of-work contract (Phase) that
// internal/phaser drives, the handle (RunContext) phases receive at run
// entry, and the result-sum-type (Outcome) a phase's Run method returns
// instead of raising exceptions for ordinary control flow.
package phase

import (
	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/tracker"
)

// Phase is the contract every step in a Phaser's phase list satisfies.
//
// Run runs to completion, returning either an Outcome describing how the
// phaser should advance/terminate, or an error for anything unexpected
// (internal/phaser classifies that error per its exception table and
// re-raises it after recording termination). Stop is a best-effort,
// asynchronous nudge that may be called from another goroutine while Run
// is in flight; it must be idempotent and safe to call after Run has
// already returned, and it must never block.
type Phase interface {
	ID() string
	Type() string
	Name() string
	RunState() lifecycle.RunState
	StopStatus() lifecycle.TerminationStatus
	Info() lifecycle.PhaseInfo

	Run(ctx RunContext) (Outcome, error)
	Stop()
}

// RunContext is the per-phase handle the Phaser installs before calling
// Phase.Run. A phase must not retain it past its own Run's return.
type RunContext interface {
	// TaskTracker returns the shared tracker, or nil if the caller did not
	// supply one; phases must tolerate a nil tracker.
	TaskTracker() *tracker.Task

	// NewOutput forwards line to the Phaser's output hook, tagged with the
	// current phase's PhaseInfo.
	NewOutput(line string, isErr bool)

	// CreateLoggingHandler returns a log sink that forwards formatted
	// records through NewOutput, with isErr set for records at or above
	// error level.
	CreateLoggingHandler() LoggingHandler
}

// LoggingHandler is the narrow logging sink a RunContext can hand to a
// phase; it exists so internal/runctx's charmbracelet/log wiring has
// somewhere to attach without this package importing a logging library.
type LoggingHandler interface {
	Log(level string, msg string)
}

// OutcomeKind distinguishes the two shapes an Outcome can take.
type OutcomeKind int

const (
	// OutcomeAdvance means the phase completed normally; the phaser
	// proceeds to the next configured phase.
	OutcomeAdvance OutcomeKind = iota
	// OutcomeTerminate means the phase is signalling that the run should
	// end now, with the given TerminationStatus (and, for FAILED, a
	// Fault payload).
	OutcomeTerminate
)

// Outcome is the value a Phase.Run returns for domain-level control flow:
// advance to the next phase, or terminate the run with a status and an
// optional fault. A true Go error return is reserved for genuinely
// unexpected failures, which internal/phaser classifies as ERROR and
// re-raises after recording termination.
type Outcome struct {
	Kind    OutcomeKind
	Status  lifecycle.TerminationStatus
	Failure *lifecycle.Fault
}

// Advance is the normal-completion outcome: the phaser continues to the
// next phase.
func Advance() Outcome {
	return Outcome{Kind: OutcomeAdvance}
}

// Terminate signals that the run should end with the given status (the
// "terminate-run" signal).
func Terminate(status lifecycle.TerminationStatus) Outcome {
	return Outcome{Kind: OutcomeTerminate, Status: status}
}

// Failed signals that the run should end as FAILED with the given fault
// payload (the "failed-run" signal).
func Failed(fault lifecycle.Fault) Outcome {
	return Outcome{Kind: OutcomeTerminate, Status: lifecycle.StatusFailed, Failure: &fault}
}

// IsAdvance reports whether o is a plain advance (no termination).
func (o Outcome) IsAdvance() bool {
	return o.Kind == OutcomeAdvance
}
