package rsl

/*------------------------------------------------------------------
 * Purpose: Vendor-specific wire quirks, as a capability attached per
 * BTS rather than an inline switch on bts.Type scattered through the
 * codec and state machine.
 *---------------------------------------------------------------*/

// ImmAssignFraming selects how IMMEDIATE ASSIGN is wrapped for the air.
type ImmAssignFraming int

const (
	FramingFullInfo ImmAssignFraming = iota // pad to 23 bytes, IE tag FULL_IMM_ASS_INFO
	FramingInfo                             // send the macroblock raw, IE tag IMM_ASS_INFO
)

// TAEncoding selects whether timing-advance fields are sent/read
// normally or pre-shifted left by 2 bits (BS-11, Nokia quirk).
type TAEncoding int

const (
	TANormal TAEncoding = iota
	TAShiftedBy2
)

// VendorProfile is the per-BTS capability record the codec and state
// machine consult instead of switching on the BTS type inline.
type VendorProfile struct {
	btsType BTSType
}

// VendorProfileFor builds the profile for a given BTS type.
func VendorProfileFor(t BTSType) VendorProfile {
	return VendorProfile{btsType: t}
}

// PackImmAssign reports how to wrap the IMMEDIATE ASSIGN macroblock.
func (v VendorProfile) PackImmAssign() ImmAssignFraming {
	if v.btsType == BTSTypeBS11 {
		return FramingInfo
	}
	return FramingFullInfo
}

// txTAEncoding reports whether TA needs the pre-shift when emitting
// CHAN ACTIV/IMMEDIATE ASSIGN: BS-11 only.
func (v VendorProfile) txTAEncoding() TAEncoding {
	if v.btsType == BTSTypeBS11 {
		return TAShiftedBy2
	}
	return TANormal
}

// rxTAEncoding reports whether TA needs the pre-shift undone when
// reading a MEAS RES: BS-11 and Nokia both pre-shift on the air
// side, a separate policy from the BS-11-only TX quirk.
func (v VendorProfile) rxTAEncoding() TAEncoding {
	switch v.btsType {
	case BTSTypeBS11, BTSTypeNokia:
		return TAShiftedBy2
	default:
		return TANormal
	}
}

// EncodeTA applies this vendor's TA encoding when transmitting.
func (v VendorProfile) EncodeTA(ta byte) byte {
	if v.txTAEncoding() == TAShiftedBy2 {
		return ta << 2
	}
	return ta
}

// DecodeTA undoes this vendor's TA encoding when receiving.
func (v VendorProfile) DecodeTA(wire byte) byte {
	if v.rxTAEncoding() == TAShiftedBy2 {
		return wire >> 2
	}
	return wire
}

// WantsMRPCI reports whether the vendor-private MRPCI message must be
// sent ahead of msgType: Siemens BTSs expect one before every channel
// activation.
func (v VendorProfile) WantsMRPCI(msgType byte) bool {
	return v.btsType == BTSTypeSiemens && msgType == MsgChanActiv
}

// WantsSIBracket reports whether system-information reloads on this
// vendor's TRXs must be bracketed by SI BEGIN / SI END (Nokia).
func (v VendorProfile) WantsSIBracket() bool {
	return v.btsType == BTSTypeNokia
}

// MRPCI payload: GSM phase 2 (bits 5-6), power class 1 (bits 0-2), no
// VGCS/VBS capability. A production BSC derives this from the MS
// classmark; at activation time no classmark has been seen yet, so the
// most conservative value goes out.
const siemensMRPCIDefault byte = 0x41

// emitSiemensMRPCI sends the Siemens vendor-private MRPCI message for
// l, carrying the mobile's radio power class information as a TV IE on
// the dedicated-channel discriminator.
func (c *Controller) emitSiemensMRPCI(l *Lchan) {
	chanNr, err := l.ChanNr()
	if err != nil {
		c.log.Error("cannot encode chan_nr for MRPCI", "lchan", l.Name(), "err", err)
		return
	}
	c.log.Debug("siemens MRPCI", "lchan", l.Name())
	frame := EncodeCommonHeader(DiscDedicated, false, MsgSiemensMRPCI)
	frame = append(frame, EncodeDChanHeader(chanNr)...)
	frame = PutTV(frame, IESiemensMRPCI, siemensMRPCIDefault)
	c.send(l, frame)
}

// SendNokiaSIBegin opens a system-information reload bracket on trx.
// A no-op on vendors that don't require the bracket.
func (c *Controller) SendNokiaSIBegin(trx *TRX) error {
	if trx.BTS == nil || !trx.BTS.Vendor.WantsSIBracket() {
		c.log.Debug("SI BEGIN not required for this vendor, skipped", "trx", trx.Nr)
		return nil
	}
	frame := EncodeCommonHeader(DiscTRX, false, MsgNokiaSIBegin)
	return trx.Link.Enqueue(frame)
}

// SendNokiaSIEnd closes a system-information reload bracket on trx,
// carrying the Pagemode Info TV IE the BTS expects with the close.
func (c *Controller) SendNokiaSIEnd(trx *TRX) error {
	if trx.BTS == nil || !trx.BTS.Vendor.WantsSIBracket() {
		c.log.Debug("SI END not required for this vendor, skipped", "trx", trx.Nr)
		return nil
	}
	frame := EncodeCommonHeader(DiscTRX, false, MsgNokiaSIEnd)
	frame = PutTV(frame, IENokiaPagemode, 0x00)
	return trx.Link.Enqueue(frame)
}
