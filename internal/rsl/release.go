package rsl

import "time"

/*------------------------------------------------------------------
 * Purpose: Release orchestration: the SAPI release sweep,
 * SACCH deactivation, T3109/T3111 sequencing, and the error-path
 * release with local-end semantics. Two initiators: normal
 * (caller-driven, from an L3 REL REQ) and error (CONN FAIL, RLL T200
 * expiry, or a timer lapse — handled in lchan_state.go).
 *---------------------------------------------------------------*/

// ReleaseMode selects how RLL RELEASE REQUEST is sent for each SAPI.
type ReleaseMode int

const (
	ReleaseModeNormal ReleaseMode = iota
	ReleaseModeLocalEnd
)

const sacchLinkIDBit = 0x40

// releaseSAPIsFrom sends RLL RELEASE REQUEST for every SAPI index >=
// start whose state isn't UNUSED, and reports whether any SAPI was
// active. In LOCAL_END mode each swept SAPI is marked UNUSED as soon as
// its request is sent; in NORMAL mode it stays set until REL IND/CONF.
func (c *Controller) releaseSAPIsFrom(l *Lchan, start int, mode ReleaseMode) bool {
	any := false
	for sapi := start; sapi < len(l.SAPIs); sapi++ {
		if l.SAPIs[sapi] == SAPIUnused {
			continue
		}
		any = true
		linkID := byte(sapi)
		if l.Kind == LchanTCHF || l.Kind == LchanTCHH {
			linkID |= sacchLinkIDBit
		}
		c.emitRLLReleaseReq(l, linkID, mode)
		if mode == ReleaseModeLocalEnd {
			l.SAPIs[sapi] = SAPIUnused
		}
	}
	return any
}

// startT3109 schedules the SACCH deactivation watchdog, or reports
// failure if the network disables T3109.
func (c *Controller) startT3109(l *Lchan) bool {
	bts := l.bts()
	if bts == nil || bts.Timers.T3109 == 0 {
		return false
	}
	c.timers.Cancel(l.T3109)
	l.T3109 = c.timers.Schedule(time.Duration(bts.Timers.T3109)*time.Second, func() {
		c.t3109Fired(l)
	})
	return true
}

// directRFRelease sends RF CHAN REL directly, skipping the SAPI sweep,
// for lchans that never had an L3 connection established. It
// fails loudly — but does not block — if any SAPI turns out to be
// non-UNUSED.
func (c *Controller) directRFRelease(l *Lchan) {
	for sapi, s := range l.SAPIs {
		if s != SAPIUnused {
			c.log.Error("directRFRelease called with active SAPI", "lchan", l.Name(), "sapi", sapi)
		}
	}
	c.sendRFChanRel(l, false, false)
}

// ReleaseRequest is the normal, caller-driven release path: L3 asks
// for the lchan to be torn down.
func (c *Controller) ReleaseRequest(l *Lchan, mode ReleaseMode) {
	if l.State != StateActive {
		c.log.Warn("ReleaseRequest on non-ACTIVE lchan", "lchan", l.Name(), "state", l.State)
	}
	any := c.releaseSAPIsFrom(l, 0, mode)
	c.SetLchanState(l, StateRelReq)
	if any {
		c.startT3109(l)
	} else {
		c.directRFRelease(l)
	}
}

// HandleSAPIEstablished marks sapi as established after an RLL EST IND
// (MS-originated) or EST CONF (network-originated), driving the
// UNUSED -> {MS|NET} leg of the per-SAPI lifecycle.
func (c *Controller) HandleSAPIEstablished(l *Lchan, sapi int, origin SAPIState) {
	if sapi < 0 || sapi >= len(l.SAPIs) {
		return
	}
	if l.SAPIs[sapi] != SAPIUnused {
		c.log.Warn("SAPI establishment on non-UNUSED SAPI", "lchan", l.Name(), "sapi", sapi)
	}
	l.SAPIs[sapi] = origin
	l.everUsedL3 = true
}

// HandleSAPIReleased marks sapi UNUSED after an RLL REL IND or REL
// CONF, and — once every SAPI is UNUSED and the lchan is in REL_REQ —
// cancels T3109 and starts T3111.
func (c *Controller) HandleSAPIReleased(l *Lchan, sapi int) {
	if sapi < 0 || sapi >= len(l.SAPIs) {
		return
	}
	l.SAPIs[sapi] = SAPIUnused

	if l.State != StateRelReq {
		return
	}
	for _, s := range l.SAPIs {
		if s != SAPIUnused {
			c.log.Debug("waiting for SAPI release", "lchan", l.Name())
			return
		}
	}

	c.timers.Cancel(l.T3109)
	l.T3109 = TimerHandle{}

	bts := l.bts()
	dur := time.Duration(0)
	if bts != nil {
		dur = time.Duration(bts.Timers.T3111) * time.Second
	}
	c.timers.Cancel(l.T3111)
	l.T3111 = c.timers.Schedule(dur, func() {
		c.t3111Fired(l)
	})
}

func (c *Controller) t3111Fired(l *Lchan) {
	if l.State != StateRelReq {
		return
	}
	l.T3111 = TimerHandle{}
	c.sendRFChanRel(l, false, false)
}

// sendRFChanRel sends RF CHAN REL to the BTS. error requests the error
// path: cancel T3109, optionally DEACTIVATE SACCH, sweep SAPI release
// with LOCAL_END, transition REL_ERR, arm the error_timer, and arm the
// deactivation watchdog. The non-error path only arms the
// deactivation watchdog.
func (c *Controller) sendRFChanRel(l *Lchan, errorPath bool, sacchDeact bool) {
	if l.State == StateRelErr && errorPath {
		c.log.Info("lchan already in REL_ERR, not re-sending release", "lchan", l.Name())
		return
	}

	c.timers.Cancel(l.T3109)
	l.T3109 = TimerHandle{}

	c.emitRFChanRel(l, errorPath)

	if errorPath {
		if sacchDeact {
			c.emitDeactivateSACCH(l)
		}
		c.releaseSAPIsFrom(l, 0, ReleaseModeLocalEnd)
		c.SetLchanState(l, StateRelErr)

		bts := l.bts()
		dur := 2 * time.Second
		if bts != nil {
			dur += time.Duration(bts.Timers.T3111) * time.Second
		}
		c.timers.Cancel(l.ErrorTimer)
		l.ErrorTimer = c.timers.Schedule(dur, func() {
			c.errorTimerFired(l)
		})
	}

	c.startDeactivationWatchdog(l)
}

// finishRelease completes REL_ERR -> NONE or REL_REQ/REL_ERR -> NONE.
func (c *Controller) finishRelease(l *Lchan) {
	if !c.SetLchanState(l, StateNone) {
		return
	}
	if c.alloc != nil {
		c.alloc.Release(l)
	}
}

// HandleRFChanRelAck processes the BTS's acknowledgement that the
// radio channel has been released.
func (c *Controller) HandleRFChanRelAck(l *Lchan) {
	c.timers.Cancel(l.ActDeactTimer)
	l.ActDeactTimer = TimerHandle{}
	c.timers.Cancel(l.T3111)
	l.T3111 = TimerHandle{}

	if l.State == StateBroken {
		c.log.Info("RF CHAN REL ACK on BROKEN lchan, ignored", "lchan", l.Name())
		return
	}

	c.timers.Cancel(l.ErrorTimer)
	l.ErrorTimer = TimerHandle{}

	c.finishRelease(l)
}
