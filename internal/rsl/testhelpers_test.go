package rsl

import (
	"io"

	charmlog "github.com/charmbracelet/log"
)

// testLogger returns a Logger that discards everything, so tests stay
// quiet regardless of the log level a code path exercises.
func testLogger() Logger {
	return NewLogger(io.Discard, charmlog.ErrorLevel)
}

// buildTestTRXAllKinds builds a single-TRX BTS fixture covering the
// SDCCH/4, SDCCH/8, TCH/F and TCH/H kinds of the registry's chan_nr
// decode table: ts0 CCCH+SDCCH/4, ts1 SDCCH/8, ts2 TCH/F, ts3 TCH/H,
// ts4 TCH/F.
func buildTestTRXAllKinds() *TRX {
	bts := &BTS{Nr: 0, Timers: BTSTimers{T3101: 10, T3109: 8, T3111: 2, T3122: 10}}
	trx := &TRX{BTS: bts, Nr: 0, ARFCN: 871, Link: NopLink{}}
	bts.C0 = trx

	layouts := []PChanKind{
		PChanCCCHSDCCH4,
		PChanSDCCH8SACCH8C,
		PChanTCHF,
		PChanTCHH,
		PChanTCHF,
	}
	for i, pchan := range layouts {
		ts := &Timeslot{TRX: trx, Nr: i, PChan: pchan}
		lchansForPChan(ts, pchan)
		trx.Timeslots[i] = ts
	}
	return trx
}

// newTestLchan builds a standalone lchan of the given kind (TCH/F, TCH/H,
// or otherwise SDCCH on an SDCCH/8 timeslot) wired to a fresh
// one-timeslot TRX, for state-machine and release tests that don't
// need a full cell fixture.
func newTestLchan(kind LchanKind) *Lchan {
	bts := &BTS{Nr: 0, Timers: BTSTimers{T3101: 10, T3109: 8, T3111: 2, T3122: 10}}
	trx := &TRX{BTS: bts, Nr: 0, ARFCN: 871, Link: &recordingLink{}}
	bts.C0 = trx

	var pchan PChanKind
	switch kind {
	case LchanTCHF:
		pchan = PChanTCHF
	case LchanTCHH:
		pchan = PChanTCHH
	default:
		pchan = PChanSDCCH8SACCH8C
	}
	ts := &Timeslot{TRX: trx, Nr: 0, PChan: pchan}
	lchansForPChan(ts, pchan)
	trx.Timeslots[0] = ts
	return ts.Lchans[0]
}

// recordingLink is a TransportLink that records every frame it is
// handed, for assertions on what the controller sent.
type recordingLink struct {
	frames [][]byte
}

func (r *recordingLink) Enqueue(frame []byte) error {
	r.frames = append(r.frames, frame)
	return nil
}

// testAllocator is a bare-bones Allocator that hands out the lchans it
// is constructed with and records Release calls.
type testAllocator struct {
	pool     []*Lchan
	released []*Lchan
}

func (a *testAllocator) Acquire(bts *BTS, kind LchanKind, preferAlt bool) *Lchan {
	for i, l := range a.pool {
		if l != nil && l.Kind == kind && l.State == StateNone {
			return a.pool[i]
		}
	}
	return nil
}

func (a *testAllocator) Release(l *Lchan) {
	a.released = append(a.released, l)
}

// discardL3 drops whatever L3 payload it is handed.
type discardL3 struct{}

func (discardL3) Receive(l *Lchan, linkID byte, payload []byte) {}

// recordingL3 captures every payload handed up to layer 3.
type recordingL3 struct {
	received []recordedL3
}

type recordedL3 struct {
	lchan   *Lchan
	linkID  byte
	payload []byte
}

func (r *recordingL3) Receive(l *Lchan, linkID byte, payload []byte) {
	r.received = append(r.received, recordedL3{lchan: l, linkID: linkID, payload: payload})
}
