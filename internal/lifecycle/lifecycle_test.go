package lifecycle_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
)

func TestLifecycle_AddPhaseRun_DerivedViews(t *testing.T) {
	t.Parallel()

	var lc lifecycle.Lifecycle
	assert.Nil(t, lc.CurrentRun())
	assert.Nil(t, lc.PreviousRun())
	assert.Equal(t, 0, lc.PhaseCount())

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lc.AddPhaseRun(lifecycle.PhaseRun{PhaseID: "Init", RunState: lifecycle.RunStateCreated, StartedAt: t0})
	require.NotNil(t, lc.CurrentRun())
	assert.Equal(t, "Init", lc.CurrentRun().PhaseID)
	assert.Nil(t, lc.PreviousRun())
	assert.Equal(t, 1, lc.PhaseCount())

	t1 := t0.Add(time.Second)
	lc.AddPhaseRun(lifecycle.PhaseRun{PhaseID: "A", RunState: lifecycle.RunStateExecuting, StartedAt: t1})
	assert.Equal(t, "A", lc.CurrentRun().PhaseID)
	assert.Equal(t, "Init", lc.PreviousRun().PhaseID)
	assert.Equal(t, 2, lc.PhaseCount())
}

func TestLifecycle_Clone_IsIndependent(t *testing.T) {
	t.Parallel()

	var lc lifecycle.Lifecycle
	lc.AddPhaseRun(lifecycle.PhaseRun{PhaseID: "Init", RunState: lifecycle.RunStateCreated})

	snap := lc.Clone()
	lc.AddPhaseRun(lifecycle.PhaseRun{PhaseID: "A", RunState: lifecycle.RunStateExecuting})

	assert.Equal(t, 1, snap.PhaseCount(), "clone must not observe appends made to the original after Clone")
	assert.Equal(t, 2, lc.PhaseCount())
}

func TestLifecycle_PhaseRuns_ReturnsCopy(t *testing.T) {
	t.Parallel()

	var lc lifecycle.Lifecycle
	lc.AddPhaseRun(lifecycle.PhaseRun{PhaseID: "Init"})

	runs := lc.PhaseRuns()
	runs[0].PhaseID = "mutated"

	assert.Equal(t, "Init", lc.CurrentRun().PhaseID, "mutating a returned snapshot must not affect the lifecycle")
}

func TestRun_Checksum_StableAndSensitive(t *testing.T) {
	t.Parallel()

	mkRun := func(status lifecycle.TerminationStatus) lifecycle.Run {
		var lc lifecycle.Lifecycle
		lc.AddPhaseRun(lifecycle.PhaseRun{PhaseID: "Init", RunState: lifecycle.RunStateCreated})
		return lifecycle.Run{
			Phases:    []lifecycle.PhaseInfo{{ID: "A", Type: "EXEC"}},
			Lifecycle: lc,
			Termination: &lifecycle.TerminationInfo{
				Status: status,
			},
		}
	}

	a, err := mkRun(lifecycle.StatusCompleted).Checksum()
	require.NoError(t, err)
	b, err := mkRun(lifecycle.StatusCompleted).Checksum()
	require.NoError(t, err)
	assert.Equal(t, a, b, "identical Run values must hash identically")

	c, err := mkRun(lifecycle.StatusFailed).Checksum()
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "different termination status must change the checksum")

	grown := mkRun(lifecycle.StatusCompleted)
	grown.Lifecycle.AddPhaseRun(lifecycle.PhaseRun{PhaseID: "A", RunState: lifecycle.RunStateExecuting})
	d, err := grown.Checksum()
	require.NoError(t, err)
	assert.NotEqual(t, a, d, "a longer lifecycle must change the checksum")
}
