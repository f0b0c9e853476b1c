package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() (*Scheduler, chan timerFired) {
	fires := make(chan timerFired, 64)
	s := newScheduler(func(f timerFired) bool {
		fires <- f
		return true
	})
	return s, fires
}

func nextFire(t *testing.T, fires chan timerFired) timerFired {
	t.Helper()
	select {
	case f := <-fires:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a timer fire")
		return timerFired{}
	}
}

func TestAfterFiresOnceAndRetires(t *testing.T) {
	s, fires := newTestScheduler()
	ran := false
	handle := s.After(time.Millisecond, func() { ran = true })

	f := nextFire(t, fires)
	assert.Equal(t, handle, f.handle)
	require.True(t, s.accept(f))
	f.fn()
	assert.True(t, ran)

	// A duplicate of the same one-shot fire is stale.
	assert.False(t, s.accept(f))
	assert.Empty(t, s.active)
}

func TestCancelDiscardsInFlightFire(t *testing.T) {
	s, fires := newTestScheduler()
	handle := s.After(time.Millisecond, func() {})

	f := nextFire(t, fires)
	s.Cancel(handle)
	assert.False(t, s.accept(f), "a fire racing its own cancellation must be dropped")
}

func TestCancelZeroHandleIsNoop(t *testing.T) {
	s, _ := newTestScheduler()
	s.After(time.Hour, func() {})
	s.Cancel(0)
	assert.Len(t, s.active, 1)
}

func TestEveryRepeatsUntilCancelled(t *testing.T) {
	s, fires := newTestScheduler()
	handle := s.Every(time.Millisecond, func() {})

	first := nextFire(t, fires)
	require.True(t, s.accept(first))
	second := nextFire(t, fires)
	require.True(t, s.accept(second), "repeating entries stay active across fires")
	assert.Equal(t, handle, second.handle)

	s.Cancel(handle)
	assert.Empty(t, s.active)

	// Drain anything that was already in flight; all of it is stale now.
	for {
		select {
		case f := <-fires:
			assert.False(t, s.accept(f))
		case <-time.After(20 * time.Millisecond):
			return
		}
	}
}

func TestCancelAllStopsEverything(t *testing.T) {
	s, _ := newTestScheduler()
	s.After(time.Hour, func() {})
	s.Every(time.Hour, func() {})
	s.After(time.Hour, func() {})
	require.Len(t, s.active, 3)

	s.CancelAll()
	assert.Empty(t, s.active)
}

func TestHandlesAreNeverReused(t *testing.T) {
	s, _ := newTestScheduler()
	a := s.After(time.Hour, func() {})
	b := s.Every(time.Hour, func() {})
	assert.NotEqual(t, a, b)
	assert.NotZero(t, a)
	assert.NotZero(t, b)
}
