package rsl

import (
	"encoding/binary"
	"time"
)

/*------------------------------------------------------------------
 * Purpose: CHAN RQD ingest and the immediate-assignment path it feeds:
 * parse REQ_REFERENCE/ACCESS_DELAY, derive a channel type and reason
 * from the RA byte, run the allocator's TCH/F fallback ladder for
 * location updates and RA top-nibble 0x3, and on success arm the
 * activation watchdog and send CHAN ACTIV.
 *---------------------------------------------------------------*/

// ChreqReason is the establishment cause derived from the RA byte
// (3GPP TS 04.08 §9.1.8), simplified to the handful of buckets this
// controller's allocator cares about.
type ChreqReason int

const (
	ChreqOther ChreqReason = iota
	ChreqEmergencyCall
	ChreqCallReestablishment
	ChreqLocationUpdate
	ChreqPagingResponse
)

// DeriveChannelRequest maps an RA byte (and the cell's NECI setting)
// to a requested lchan kind and establishment reason. This is a
// representative subset of TS 04.08 Table 9.9, not the full
// operator-tunable table a production BSC would load.
func DeriveChannelRequest(ra byte, neci bool) (LchanKind, ChreqReason) {
	switch {
	case ra&0xf0 == 0x20:
		return LchanTCHF, ChreqEmergencyCall
	case ra&0xf0 == 0x30:
		return LchanTCHF, ChreqCallReestablishment
	case ra&0xe0 == 0x40:
		return LchanSDCCH, ChreqLocationUpdate
	case ra&0xf0 == 0x80, ra&0xf0 == 0x90:
		return LchanTCHF, ChreqPagingResponse
	case ra&0xf0 == 0xa0, ra&0xf0 == 0xb0:
		return LchanSDCCH, ChreqPagingResponse
	default:
		if neci {
			return LchanSDCCH, ChreqOther
		}
		return LchanTCHF, ChreqOther
	}
}

// HandleChanRqd processes a parsed CHAN RQD.
func (c *Controller) HandleChanRqd(bts *BTS, ref RACHRequest) error {
	kind, reason := DeriveChannelRequest(ref.Ref[0], bts.NECI)
	isLU := reason == ChreqLocationUpdate

	bts.Stats.ChreqTotal++

	l := c.alloc.Acquire(bts, kind, false)
	if l == nil && isLU && kind != LchanTCHF {
		c.log.Info("CHAN RQD: no resources, retrying as TCH/F for location update",
			"bts", bts.Nr, "kind", kind, "ra", ref.Ref[0])
		kind = LchanTCHF
		l = c.alloc.Acquire(bts, kind, false)
	}
	if l == nil && ref.Ref[0]&0xf0 == 0x30 {
		c.log.Info("CHAN RQD: no resources, retrying as TCH/F (RA top nibble 0x3)",
			"bts", bts.Nr, "kind", kind, "ra", ref.Ref[0])
		kind = LchanTCHF
		l = c.alloc.Acquire(bts, kind, false)
	}

	if l == nil {
		bts.Stats.ChreqNoChannel++
		c.log.Info("CHAN RQD: no resources available", "bts", bts.Nr, "kind", kind, "ra", ref.Ref[0])
		if bts.Timers.T3122 > 0 {
			c.emitImmAssignReject(bts, ref, byte(bts.Timers.T3122&0xff))
		}
		return nil
	}

	if l.State != StateNone {
		c.log.Info("allocator returned lchan in non-NONE state", "lchan", l.Name(), "state", l.State)
	}

	refCopy := ref
	l.RQDRef = &refCopy
	c.SetLchanState(l, StateActReq)

	l.Encryption = EncryptionInfo{AlgorithmID: 0}
	l.Power = PowerSettings{BSPower: 0, MSPower: bts.MSMaxPower}
	l.RSLCMode = RSLCModeSignalling
	l.TCHMode = TCHModeSign

	c.log.Debug("activating lchan for CHAN RQD", "lchan", l.Name(), "reason", reason, "ra", ref.Ref[0], "ta", ref.TA)

	if err := c.emitChanActiv(l); err != nil {
		return err
	}
	c.startActivationWatchdog(l)
	return nil
}

// emitImmAssignReject sends IMMEDIATE ASSIGN REJECT, replicating ref
// across all four request-reference slots. The GSM 04.08
// body carries the same proto_discr/msg_type/page_mode/l2_plen header
// as IMMEDIATE ASSIGN itself, ahead of the four (ref, wait_indication)
// slots.
func (c *Controller) emitImmAssignReject(bts *BTS, ref RACHRequest, waitIndication byte) {
	if bts.C0 == nil {
		c.log.Error("no C0 TRX, cannot send IMMEDIATE ASSIGN REJECT", "bts", bts.Nr)
		return
	}
	const pageModeSame = 0x00
	const protoDiscrRR = 0x06
	const msgTypeImmAssRej = 0x3a

	body := make([]byte, 0, 3+4*4)
	body = append(body, protoDiscrRR, msgTypeImmAssRej, pageModeSame)
	for i := 0; i < 4; i++ {
		body = append(body, ref.Ref[:]...)
		body = append(body, waitIndication)
	}

	l2plen := (len(body) << 2) | 1
	if l2plen > 0xff {
		c.log.Error("IMMEDIATE ASSIGN REJECT body too long", "bts", bts.Nr, "len", len(body))
		l2plen = 0xff
	}
	macroblock := PadMacroblock(append([]byte{byte(l2plen)}, body...))

	frame := EncodeCommonHeader(DiscCommon, false, MsgImmAssign)
	frame = PutTLV(frame, IEFullImmAssInfo, macroblock)
	if err := bts.C0.Link.Enqueue(frame); err != nil {
		c.log.Error("transport enqueue failed for IMMEDIATE ASSIGN REJECT", "bts", bts.Nr, "err", err)
	}
}

// emitChanActiv builds and sends CHAN ACTIV for l.
func (c *Controller) emitChanActiv(l *Lchan) error {
	bts := l.bts()
	chanNr, err := l.ChanNr()
	if err != nil {
		return err
	}
	mode, err := ChanModeFromLchan(l, bts != nil && bts.DTXEnabled, c.log)
	if err != nil {
		return err
	}

	var vendor VendorProfile
	if bts != nil {
		vendor = bts.Vendor
		if vendor.WantsMRPCI(MsgChanActiv) {
			c.emitSiemensMRPCI(l)
		}
	}

	var ta byte
	if l.RQDRef != nil {
		ta = vendor.EncodeTA(l.RQDRef.TA)
	}

	wb := newWireBuffer(16, 64)
	wb.PushBack(EncodeDChanHeader(chanNr))
	wb.PushBack(PutTLV(nil, IEChanMode, EncodeChanMode(mode)))
	wb.PushBack(PutTLV(nil, IEChanIdent, encodeChannelDescription(l)))
	if l.Encryption.AlgorithmID != 0 {
		wb.PushBack(PutTLV(nil, IEEncrInfo, EncodeEncryptionInfo(l.Encryption)))
	}
	wb.PushBack(PutTV(nil, IEBSPower, l.Power.BSPower))
	wb.PushBack(PutTV(nil, IEMSPower, l.Power.MSPower))
	wb.PushBack(PutTV(nil, IETimingAdvance, ta))

	frame := EncodeCommonHeader(DiscDedicated, false, MsgChanActiv)
	frame = append(frame, wb.Bytes()...)
	c.send(l, frame)
	return nil
}

// encodeChannelDescription packs a minimal GSM 04.08 channel
// description: chan_nr, TRX's ARFCN, and the timeslot number.
func encodeChannelDescription(l *Lchan) []byte {
	chanNr, _ := l.ChanNr()
	var arfcn uint16
	if l.TS != nil && l.TS.TRX != nil {
		arfcn = l.TS.TRX.ARFCN
	}
	out := make([]byte, 3)
	out[0] = chanNr
	binary.BigEndian.PutUint16(out[1:], arfcn)
	return out
}

// emitImmediateAssign is called once an ACT_REQ lchan with a pending
// RQDRef reaches ACTIVE.
func (c *Controller) emitImmediateAssign(l *Lchan) {
	bts := l.bts()
	if bts == nil || l.RQDRef == nil {
		return
	}
	vendor := bts.Vendor

	chanDesc := encodeChannelDescription(l)
	ta := vendor.EncodeTA(l.RQDRef.TA)

	var ma []byte
	if l.TS != nil && l.TS.HoppingEnabled {
		ma = l.TS.MobileAlloc
	}

	const pageModeSame = 0x00
	const protoDiscrRR = 0x06
	const msgTypeImmAss = 0x3f

	body := make([]byte, 0, 16+len(ma))
	body = append(body, protoDiscrRR, msgTypeImmAss, pageModeSame)
	body = append(body, chanDesc...)
	body = append(body, l.RQDRef.Ref[:]...)
	body = append(body, ta)
	body = append(body, byte(len(ma)))
	body = append(body, ma...)

	l2plen := (len(body) << 2) | 1
	if l2plen > 0xff {
		c.log.Error("IMMEDIATE ASSIGN body too long", "lchan", l.Name(), "len", len(body))
		l2plen = 0xff
	}
	macroblock := append([]byte{byte(l2plen)}, body...)

	frame := EncodeCommonHeader(DiscCommon, false, MsgImmAssign)
	switch vendor.PackImmAssign() {
	case FramingInfo:
		frame = PutTLV(frame, IEImmAssInfo, macroblock)
	default:
		frame = PutTLV(frame, IEFullImmAssInfo, PadMacroblock(macroblock))
	}
	c.send(l, frame)

	if bts.Timers.T3101 > 0 {
		c.startT3101(l)
	}
}

// startT3101 arms the immediate-assignment guard timer: on
// expiry, release the channel with the error path and SACCH-deactivate.
func (c *Controller) startT3101(l *Lchan) {
	bts := l.bts()
	if bts == nil {
		return
	}
	c.timers.Cancel(l.T3101)
	l.T3101 = c.timers.Schedule(time.Duration(bts.Timers.T3101)*time.Second, func() {
		c.t3101Fired(l)
	})
}

func (c *Controller) t3101Fired(l *Lchan) {
	if l.State != StateActive {
		return
	}
	c.log.Error("T3101 (immediate assignment) expired", "lchan", l.Name())
	l.ErrorCause = CauseT200Expired
	c.errorRelease(l, true)
}
