package phase_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nilsjohansson/phaserun/internal/phase"
)

func TestWaitWrapper_WaitCompletesOnEntry(t *testing.T) {
	t.Parallel()

	inner := newFakePhase("build")
	inner.outcome = phase.Advance()
	w := phase.NewWaitWrapper(inner)

	done := make(chan bool, 1)
	go func() {
		done <- w.Wait(time.Second)
	}()

	// Give the waiter a moment to block, then enter Run.
	time.Sleep(10 * time.Millisecond)
	_, err := w.Run(nil)
	assert.NoError(t, err)

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Wait did not complete after Run was entered")
	}
}

func TestWaitWrapper_WaitTimesOut(t *testing.T) {
	t.Parallel()

	inner := newFakePhase("build")
	w := phase.NewWaitWrapper(inner)

	ok := w.Wait(20 * time.Millisecond)
	assert.False(t, ok, "Wait must time out when Run is never entered")
}

func TestWaitWrapper_DelegatesIdentityAndStop(t *testing.T) {
	t.Parallel()

	inner := newFakePhase("build")
	w := phase.NewWaitWrapper(inner)

	assert.Equal(t, inner.ID(), w.ID())
	assert.Equal(t, inner.Type(), w.Type())
	assert.Equal(t, inner.RunState(), w.RunState())
	assert.Equal(t, inner.StopStatus(), w.StopStatus())

	w.Stop()
	assert.True(t, inner.stopped)
}

func TestWaitWrapper_MultipleWaitersAllReleased(t *testing.T) {
	t.Parallel()

	inner := newFakePhase("build")
	w := phase.NewWaitWrapper(inner)

	var wg sync.WaitGroup
	results := make([]bool, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = w.Wait(time.Second)
		}(i)
	}

	time.Sleep(10 * time.Millisecond)
	_, _ = w.Run(nil)
	wg.Wait()

	for _, ok := range results {
		assert.True(t, ok)
	}
}
