package phase

import "github.com/nilsjohansson/phaserun/internal/lifecycle"

// Base implements the identity bookkeeping shared by every Phase
// (id/type/run-state/name/protection fields and Info), leaving Run/Stop to
// the embedding type: concrete phases embed Base and only need to supply
// behavior.
type Base struct {
	id                 string
	typ                string
	runState           lifecycle.RunState
	name               string
	protectionID       string
	lastProtectedPhase string
}

// NewBase constructs a Base with the given identity fields.
func NewBase(id, typ string, runState lifecycle.RunState, name, protectionID, lastProtectedPhase string) Base {
	return Base{
		id:                 id,
		typ:                typ,
		runState:           runState,
		name:               name,
		protectionID:       protectionID,
		lastProtectedPhase: lastProtectedPhase,
	}
}

func (b Base) ID() string                  { return b.id }
func (b Base) Type() string                { return b.typ }
func (b Base) Name() string                { return b.name }
func (b Base) RunState() lifecycle.RunState { return b.runState }

func (b Base) Info() lifecycle.PhaseInfo {
	return lifecycle.PhaseInfo{
		ID:                 b.id,
		Type:               b.typ,
		RunState:           b.runState,
		Name:               b.name,
		ProtectionID:       b.protectionID,
		LastProtectedPhase: b.lastProtectedPhase,
	}
}

// NoOps implements the Run/Stop no-op pair shared by InitPhase and
// TerminalPhase, plus the fixed StopStatus each reports.
type NoOps struct {
	Base
	stopStatus lifecycle.TerminationStatus
}

func (n NoOps) StopStatus() lifecycle.TerminationStatus { return n.stopStatus }

// Run does nothing and advances.
func (NoOps) Run(RunContext) (Outcome, error) { return Advance(), nil }

// Stop does nothing; there is nothing to stop.
func (NoOps) Stop() {}

// InitPhase is the pre-run sentinel every Phaser transitions to on Prime.
// A stop request that lands before any configured phase has started
// carries InitPhase's stop status (STOPPED).
type InitPhase struct {
	NoOps
}

const (
	InitPhaseID   = "Init"
	InitPhaseType = "INIT"
)

// NewInitPhase constructs the built-in Init phase.
func NewInitPhase() *InitPhase {
	return &InitPhase{
		NoOps: NoOps{
			Base:       NewBase(InitPhaseID, InitPhaseType, lifecycle.RunStateCreated, "", "", ""),
			stopStatus: lifecycle.StatusStopped,
		},
	}
}

// TerminalPhase is the post-run sentinel every run ends on, regardless of
// how the run terminated.
type TerminalPhase struct {
	NoOps
}

const (
	TerminalPhaseID   = "term"
	TerminalPhaseType = "TERMINAL"
)

// NewTerminalPhase constructs the built-in Terminal phase.
func NewTerminalPhase() *TerminalPhase {
	return &TerminalPhase{
		NoOps: NoOps{
			Base:       NewBase(TerminalPhaseID, TerminalPhaseType, lifecycle.RunStateEnded, "", "", ""),
			stopStatus: lifecycle.StatusNone,
		},
	}
}
