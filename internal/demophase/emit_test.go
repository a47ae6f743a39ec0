package demophase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nilsjohansson/phaserun/internal/demophase"
	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/runctx"
)

func TestEmitPhase_AdvancesAfterAllLines(t *testing.T) {
	t.Parallel()

	p := demophase.NewEmitPhase("announce", "announce", []string{"a", "b", "c"}, 0, lifecycle.StatusStopped)

	var got []string
	ctx := runctx.New(p.Info(), nil, func(info lifecycle.PhaseInfo, line string, isErr bool) {
		got = append(got, line)
	})

	outcome, err := p.Run(ctx)
	require.NoError(t, err)
	assert.True(t, outcome.IsAdvance())
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestEmitPhase_FailAtSignalsFailure(t *testing.T) {
	t.Parallel()

	p := demophase.NewEmitPhase("announce", "announce", []string{"a", "b", "c"}, 2, lifecycle.StatusStopped)

	var got []string
	ctx := runctx.New(p.Info(), nil, func(info lifecycle.PhaseInfo, line string, isErr bool) {
		got = append(got, line)
	})

	outcome, err := p.Run(ctx)
	require.NoError(t, err)
	assert.False(t, outcome.IsAdvance())
	assert.Equal(t, lifecycle.StatusFailed, outcome.Status)
	require.NotNil(t, outcome.Failure)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestEmitPhase_StoppedBeforeRunTerminatesImmediately(t *testing.T) {
	t.Parallel()

	p := demophase.NewEmitPhase("announce", "announce", []string{"a", "b"}, 0, lifecycle.StatusInterrupted)
	p.Stop()

	var got []string
	ctx := runctx.New(p.Info(), nil, func(info lifecycle.PhaseInfo, line string, isErr bool) {
		got = append(got, line)
	})

	outcome, err := p.Run(ctx)
	require.NoError(t, err)
	assert.False(t, outcome.IsAdvance())
	assert.Equal(t, lifecycle.StatusInterrupted, outcome.Status)
	assert.Empty(t, got)
}
