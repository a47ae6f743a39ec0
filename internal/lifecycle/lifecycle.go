// Package lifecycle holds the value types that describe a Phaser run: the
// phase-run history (Lifecycle), the terminal classification of a run
// (TerminationStatus/TerminationInfo), and the externally-visible snapshot
// of a run (Run). Nothing here mutates concurrently with itself; the
// phaser package is the only mutator and does so under its own lock.
package lifecycle

import "time"

// RunState is the member of the run-state enumeration a phase occupies
// during its lifetime. Implementations may extend beyond the recognized
// set named here.
type RunState string

const (
	RunStateNone      RunState = "NONE"
	RunStateCreated   RunState = "CREATED"
	RunStateExecuting RunState = "EXECUTING"
	RunStateEnded     RunState = "ENDED"
)

// TerminationStatus is the total classification of how a run ends.
type TerminationStatus string

const (
	StatusNone        TerminationStatus = "NONE"
	StatusCompleted   TerminationStatus = "COMPLETED"
	StatusStopped     TerminationStatus = "STOPPED"
	StatusInterrupted TerminationStatus = "INTERRUPTED"
	StatusFailed      TerminationStatus = "FAILED"
	StatusError       TerminationStatus = "ERROR"
)

// Fault is the structured, domain-level payload a phase attaches to a
// user-signalled failure. Reason is a short machine-checkable code;
// Detail carries whatever context the phase wants to surface to observers.
type Fault struct {
	Reason string
	Detail any
}

// RunError is the (category, message) pair recorded for an uncaught,
// unexpected phase error. Category is typically the Go type name of the
// original error.
type RunError struct {
	Category string
	Message  string
}

// TerminationInfo is the terminal classification of a single run.
type TerminationInfo struct {
	Status     TerminationStatus
	FinishedAt time.Time
	Failure    *Fault
	Error      *RunError
}

// PhaseInfo is a value snapshot of a Phase's identity, produced on demand
// for observers.
type PhaseInfo struct {
	ID                 string
	Type               string
	RunState           RunState
	Name               string
	ProtectionID       string
	LastProtectedPhase string
}

// PhaseRun is a single traversal record, created each time the Phaser
// transitions to a new phase.
type PhaseRun struct {
	PhaseID   string
	RunState  RunState
	StartedAt time.Time
}

// Lifecycle is an append-only sequence of PhaseRun entries. The zero value
// is an empty, usable Lifecycle. Lifecycle is not safe for concurrent use;
// the phaser package serializes all access under its own transition lock.
type Lifecycle struct {
	runs []PhaseRun
}

// AddPhaseRun appends pr to the lifecycle. There is no removal or
// reordering operation: the lifecycle only ever grows.
func (lc *Lifecycle) AddPhaseRun(pr PhaseRun) {
	lc.runs = append(lc.runs, pr)
}

// PhaseRuns returns an independent copy of the full run history, oldest
// first.
func (lc Lifecycle) PhaseRuns() []PhaseRun {
	out := make([]PhaseRun, len(lc.runs))
	copy(out, lc.runs)
	return out
}

// PhaseCount returns the number of recorded phase runs.
func (lc Lifecycle) PhaseCount() int {
	return len(lc.runs)
}

// CurrentRun returns the most recent PhaseRun, or nil if the lifecycle is
// empty.
func (lc Lifecycle) CurrentRun() *PhaseRun {
	if len(lc.runs) == 0 {
		return nil
	}
	r := lc.runs[len(lc.runs)-1]
	return &r
}

// PreviousRun returns the PhaseRun before CurrentRun, or nil if fewer than
// two runs have been recorded.
func (lc Lifecycle) PreviousRun() *PhaseRun {
	if len(lc.runs) < 2 {
		return nil
	}
	r := lc.runs[len(lc.runs)-2]
	return &r
}

// Clone returns a deep-enough copy of lc: appending to the original after
// Clone must not be observable through the returned value. Value types with
// no pointer/slice fields (PhaseRun) make a copied backing slice sufficient.
func (lc Lifecycle) Clone() Lifecycle {
	return Lifecycle{runs: lc.PhaseRuns()}
}

// Run is the full externally-visible snapshot of a Phaser: its configured
// phases' identity, the lifecycle traversed so far, and the termination
// classification once the run has ended (nil while still running).
type Run struct {
	Phases      []PhaseInfo
	Lifecycle   Lifecycle
	Termination *TerminationInfo
}
