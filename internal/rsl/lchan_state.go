package rsl

import "time"

/*------------------------------------------------------------------
 * Purpose: The lchan session state machine:
 *
 *   NONE --CHAN RQD--> ACT_REQ --CHAN ACTIV ACK--> ACTIVE
 *   ACT_REQ --NACK(!=ALR_ACTV_ALLOC)--> BROKEN
 *   ACT_REQ --NACK(==ALR_ACTV_ALLOC)--> REL_REQ
 *   ACT_REQ --activation watchdog--> BROKEN
 *   ACTIVE --CONN FAIL / T200 / T3109 expiry--> REL_ERR
 *   ACTIVE --normal release request--> REL_REQ
 *   REL_REQ --all SAPIs unused + T3111--> NONE (after ACK)
 *   REL_ERR --error_timer (T3111+2s)--> NONE
 *   REL_ERR / REL_REQ --RF CHAN REL ACK--> NONE
 *   any --deactivation watchdog--> BROKEN
 *   BROKEN --any later ACK--> stays BROKEN, logged only
 *---------------------------------------------------------------*/

const activationWatchdogDuration = 4 * time.Second
const deactivationWatchdogDuration = 4 * time.Second

// SetLchanState is the raw state setter: it only mutates l.State, logs
// the transition, and reports whether a transition actually happened.
// Calling it twice with the same target state is a no-op the second
// time.
func (c *Controller) SetLchanState(l *Lchan, s State) bool {
	if l.State == s {
		return false
	}
	old := l.State
	l.State = s
	c.log.Debug("lchan state transition", "lchan", l.Name(), "from", old, "to", s)
	return true
}

func (l *Lchan) bts() *BTS {
	if l == nil || l.TS == nil || l.TS.TRX == nil {
		return nil
	}
	return l.TS.TRX.BTS
}

// startActivationWatchdog arms the 4s activation guard, cancelling any
// previously scheduled activation/deactivation timer first.
func (c *Controller) startActivationWatchdog(l *Lchan) {
	c.timers.Cancel(l.ActDeactTimer)
	l.ActDeactTimer = c.timers.Schedule(activationWatchdogDuration, func() {
		c.activationWatchdogFired(l)
	})
}

func (c *Controller) startDeactivationWatchdog(l *Lchan) {
	c.timers.Cancel(l.ActDeactTimer)
	l.ActDeactTimer = c.timers.Schedule(deactivationWatchdogDuration, func() {
		c.deactivationWatchdogFired(l)
	})
}

func (c *Controller) activationWatchdogFired(l *Lchan) {
	if l.State != StateActReq {
		return // stale callback; cancellation should have prevented this
	}
	c.log.Error("activation watchdog expired", "lchan", l.Name())
	l.ActDeactTimer = TimerHandle{}
	c.SetLchanState(l, StateBroken)
	if c.alloc != nil {
		c.alloc.Release(l)
	}
}

func (c *Controller) deactivationWatchdogFired(l *Lchan) {
	if l.State == StateNone || l.State == StateBroken {
		return
	}
	c.log.Error("deactivation watchdog expired", "lchan", l.Name())
	l.ActDeactTimer = TimerHandle{}
	c.SetLchanState(l, StateBroken)
}

// HandleChanActivAck processes a CHAN ACTIV ACK. A late ACK on a BROKEN lchan is logged and otherwise
// ignored — BROKEN deliberately leaves watchdog state intact so late
// ACKs are recognised but never acted upon.
func (c *Controller) HandleChanActivAck(l *Lchan) error {
	if l.State == StateBroken {
		c.log.Warn("CHAN ACTIV ACK on BROKEN lchan, ignored", "lchan", l.Name())
		return nil
	}
	if l.State != StateActReq {
		c.log.Warn("unexpected CHAN ACTIV ACK", "lchan", l.Name(), "state", l.State)
		return &ProtocolError{Reason: "CHAN ACTIV ACK outside ACT_REQ"}
	}

	c.timers.Cancel(l.ActDeactTimer)
	l.ActDeactTimer = TimerHandle{}

	if !c.SetLchanState(l, StateActive) {
		return nil
	}

	l.everUsedL3 = false

	if bts := l.bts(); bts != nil && bts.Timers.T3109 > 0 {
		c.startT3109(l)
	}

	if l.RQDRef != nil {
		c.emitImmediateAssign(l)
		l.RQDRef = nil
	}

	c.emit(Signal{Kind: SignalLchanActivateAck, Lchan: l})
	return nil
}

// HandleChanActivNack processes a CHAN ACTIV NACK.
func (c *Controller) HandleChanActivNack(l *Lchan, cause byte) error {
	if l.State == StateBroken {
		c.log.Warn("CHAN ACTIV NACK on BROKEN lchan, ignored", "lchan", l.Name())
		return nil
	}

	l.ErrorCause = cause
	c.timers.Cancel(l.ActDeactTimer)
	l.ActDeactTimer = TimerHandle{}

	c.emit(Signal{Kind: SignalLchanActivateNack, Lchan: l, Cause: cause})

	if cause == CauseALRActvAlloc {
		c.SetLchanState(l, StateRelReq)
		c.directRFRelease(l)
		return &ActivationRejectedError{Cause: cause}
	}

	c.SetLchanState(l, StateBroken)
	if c.alloc != nil {
		c.alloc.Release(l)
	}
	return &ActivationRejectedError{Cause: cause}
}

// errorRelease drives ACTIVE -> REL_ERR for CONN FAIL, RLL T200
// expiry, or T3109 expiry. sacchDeact requests a
// DEACTIVATE SACCH ahead of the SAPI sweep.
func (c *Controller) errorRelease(l *Lchan, sacchDeact bool) {
	if l.State != StateActive {
		c.log.Debug("errorRelease on non-ACTIVE lchan, ignored", "lchan", l.Name(), "state", l.State)
		return
	}
	c.sendRFChanRel(l, true, sacchDeact)
}

// ErrorRelease is the exported entry point for CONN FAIL / T200 expiry handling.
func (c *Controller) ErrorRelease(l *Lchan, cause byte) {
	l.ErrorCause = cause
	c.errorRelease(l, true)
}

func (c *Controller) t3109Fired(l *Lchan) {
	if l.State != StateActive {
		return
	}
	c.log.Error("T3109 (SACCH deactivation watchdog) expired", "lchan", l.Name())
	c.errorRelease(l, false)
}

// errorTimerFired drives REL_ERR -> NONE after T3111+2s.
func (c *Controller) errorTimerFired(l *Lchan) {
	if l.State != StateRelErr {
		return
	}
	l.ErrorTimer = TimerHandle{}
	c.finishRelease(l)
}
