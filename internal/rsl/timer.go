package rsl

import (
	"sync"
	"sync/atomic"
	"time"
)

/*------------------------------------------------------------------
 * Purpose: Scheduled one-shot callbacks with cancel, used pervasively
 * by the lchan state machine, channel request flow, release
 * orchestrator, and paging scheduler.
 *
 * Cancellation is by TimerHandle value (a process-unique, never-reused
 * sequence id; the handle carries no owner index), never by pointer,
 * so a BROKEN lchan whose
 * watchdog is deliberately left pending cannot be accidentally reused
 * or double-freed when a later, stale callback fires.
 *---------------------------------------------------------------*/

// TimerHandle identifies a single scheduled timer. The zero value is
// "no timer scheduled".
type TimerHandle struct {
	id uint64
}

func (h TimerHandle) Pending() bool {
	return h.id != 0
}

// Timers is the event-loop-owned scheduler. time.AfterFunc still fires
// each callback on a runtime-managed goroutine of its own, so every
// fired callback is routed through post — a single-consumer hand-off
// the caller controls with SetPost — before it ever touches lchan/BTS
// state. The default post (set by NewTimers) runs cb inline, which is
// what every test in this package relies on: they call Schedule and
// fire timers without ever starting an event loop.
type Timers struct {
	next atomic.Uint64
	mu   sync.Mutex
	gen  map[uint64]*timerEntry
	post func(func())
}

type timerEntry struct {
	timer     *time.Timer
	cancelled bool
}

// NewTimers constructs an empty scheduler. Fired callbacks run inline
// until SetPost wires in an event loop.
func NewTimers() *Timers {
	return &Timers{gen: make(map[uint64]*timerEntry), post: func(cb func()) { cb() }}
}

// SetPost rewires how fired callbacks are delivered. NewController wires
// this to Controller.Post so that every timer firing, regardless of
// which goroutine time.AfterFunc ran it on, is serialized onto the
// same single event-loop goroutine that handles inbound frames.
func (t *Timers) SetPost(post func(func())) {
	t.post = post
}

// Schedule arms cb to run after delay. Scheduling a new timer does NOT
// automatically cancel a previous one — callers that must guarantee at
// most one timer of a kind call Cancel first; every
// call site in this package that schedules an activation, deactivation,
// T3101, T3109, T3111, or error timer does so.
func (t *Timers) Schedule(delay time.Duration, cb func()) TimerHandle {
	id := t.next.Add(1)
	entry := &timerEntry{}
	entry.timer = time.AfterFunc(delay, func() {
		t.mu.Lock()
		if entry.cancelled {
			t.mu.Unlock()
			return
		}
		delete(t.gen, id)
		t.mu.Unlock()
		t.post(cb)
	})
	t.mu.Lock()
	t.gen[id] = entry
	t.mu.Unlock()
	return TimerHandle{id: id}
}

// Cancel stops h's callback from firing, if it hasn't already. Safe to
// call on an already-fired or already-cancelled handle.
func (t *Timers) Cancel(h TimerHandle) {
	if !h.Pending() {
		return
	}
	t.mu.Lock()
	entry, ok := t.gen[h.id]
	if !ok {
		t.mu.Unlock()
		return
	}
	entry.cancelled = true
	delete(t.gen, h.id)
	t.mu.Unlock()
	entry.timer.Stop()
}

// Pending reports whether h's callback has not yet fired or been cancelled.
func (t *Timers) Pending(h TimerHandle) bool {
	if !h.Pending() {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.gen[h.id]
	return ok
}
