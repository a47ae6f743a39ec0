package demophase

import (
	"fmt"
	"time"

	"github.com/nilsjohansson/phaserun/internal/config"
	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/phase"
)

// defaultStopStatus maps a config.PhaseSpec's stop_status string onto a
// TerminationStatus, falling back to STOPPED when none (or an unrecognized
// one) is given. config.Validate has already rejected unrecognized phase
// kinds by the time Build runs; an unrecognized stop_status is left to
// this default rather than treated as fatal, since it only affects how a
// stop is classified, not whether the run can proceed.
func defaultStopStatus(name string) lifecycle.TerminationStatus {
	switch lifecycle.TerminationStatus(name) {
	case lifecycle.StatusStopped, lifecycle.StatusInterrupted, lifecycle.StatusFailed, lifecycle.StatusError, lifecycle.StatusCompleted:
		return lifecycle.TerminationStatus(name)
	default:
		return lifecycle.StatusStopped
	}
}

// Build constructs the runtime phase.Phase a config.PhaseSpec describes.
// It returns an error for a Kind this registry does not recognize;
// callers are expected to have already run the PhaseSpec through
// config.Validate, which catches this case earlier with a better error
// message, but Build does not trust that it was.
func Build(ps config.PhaseSpec) (phase.Phase, error) {
	stopStatus := defaultStopStatus(ps.StopStatus)

	switch ps.Kind {
	case "sleep":
		d, err := time.ParseDuration(ps.Duration)
		if err != nil {
			return nil, fmt.Errorf("phase %q: invalid duration %q: %w", ps.ID, ps.Duration, err)
		}
		return NewSleepPhase(ps.ID, ps.Name, d, stopStatus), nil
	case "emit":
		return NewEmitPhase(ps.ID, ps.Name, ps.Lines, ps.FailAt, stopStatus), nil
	default:
		return nil, fmt.Errorf("phase %q: unrecognized kind %q", ps.ID, ps.Kind)
	}
}

// BuildAll constructs every phase.Phase a job's ordered phase list
// describes, preserving order.
func BuildAll(specs []config.PhaseSpec) ([]phase.Phase, error) {
	out := make([]phase.Phase, 0, len(specs))
	for _, ps := range specs {
		p, err := Build(ps)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
