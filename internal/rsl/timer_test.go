package rsl

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimersScheduleFires(t *testing.T) {
	timers := NewTimers()
	var fired atomic.Bool
	h := timers.Schedule(10*time.Millisecond, func() { fired.Store(true) })
	require.True(t, h.Pending())

	require.Eventually(t, fired.Load, time.Second, time.Millisecond)
}

func TestTimersCancelBeforeFirePreventsCallback(t *testing.T) {
	timers := NewTimers()
	var fired atomic.Bool
	h := timers.Schedule(30*time.Millisecond, func() { fired.Store(true) })
	timers.Cancel(h)

	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())
	assert.False(t, timers.Pending(h))
}

func TestTimersCancelIsIdempotent(t *testing.T) {
	timers := NewTimers()
	h := timers.Schedule(time.Second, func() {})
	timers.Cancel(h)
	assert.NotPanics(t, func() { timers.Cancel(h) })
}

func TestTimersCancelZeroHandleIsNoop(t *testing.T) {
	timers := NewTimers()
	assert.NotPanics(t, func() { timers.Cancel(TimerHandle{}) })
	assert.False(t, timers.Pending(TimerHandle{}))
}

func TestTimersPendingFalseAfterFire(t *testing.T) {
	timers := NewTimers()
	var fired atomic.Bool
	h := timers.Schedule(10*time.Millisecond, func() { fired.Store(true) })

	require.Eventually(t, fired.Load, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !timers.Pending(h) }, time.Second, time.Millisecond)
}

func TestTimersIndependentHandles(t *testing.T) {
	timers := NewTimers()
	var a, b atomic.Bool
	ha := timers.Schedule(200*time.Millisecond, func() { a.Store(true) })
	timers.Schedule(10*time.Millisecond, func() { b.Store(true) })

	require.Eventually(t, b.Load, time.Second, time.Millisecond)
	timers.Cancel(ha)
	time.Sleep(250 * time.Millisecond)
	assert.False(t, a.Load())
	assert.False(t, timers.Pending(ha))
	assert.True(t, b.Load())
}
