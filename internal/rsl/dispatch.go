package rsl

/*------------------------------------------------------------------
 * Purpose: The top-level dispatch loop: decode the common
 * header, route by the wire discriminator to a per-class handler, and
 * switch on msg_type inside each. Recoverable errors are logged and
 * returned; nothing here blocks or panics.
 *---------------------------------------------------------------*/

// Deliver processes one inbound RSL frame addressed to trx.
func (c *Controller) Deliver(trx *TRX, frame []byte) error {
	hdr, routingDisc, err := DecodeCommonHeader(frame)
	if err != nil {
		c.log.Debug("short RSL frame, dropped", "trx", trx.Nr, "err", err)
		return nil
	}
	body := frame[2:]

	switch Discriminator(routingDisc) {
	case DiscRLL:
		return c.dispatchRLL(trx, hdr.MsgType, body)
	case DiscDedicated:
		return c.dispatchDedicated(trx, hdr.MsgType, body)
	case DiscCommon:
		return c.dispatchCommon(trx, hdr.MsgType, body)
	case DiscTRX:
		return c.dispatchTRX(trx, hdr.MsgType, body)
	case DiscIPAccess:
		return c.dispatchIPAccess(trx, hdr.MsgType, body)
	case DiscLocation:
		c.log.Info("LOCATION discriminator recognised but not implemented", "trx", trx.Nr, "msg_type", hdr.MsgType)
		return nil
	default:
		return &ProtocolError{Reason: "unknown discriminator"}
	}
}

func (c *Controller) lookup(trx *TRX, body []byte) (*Lchan, []byte, error) {
	chanNr, rest, err := DecodeDChanHeader(body)
	if err != nil {
		return nil, nil, &ProtocolError{Reason: err.Error()}
	}
	l := c.reg.Lookup(trx, chanNr)
	if l == nil {
		return nil, nil, &UnknownChannelError{ChanNr: chanNr}
	}
	return l, rest, nil
}

func (c *Controller) dispatchRLL(trx *TRX, msgType byte, body []byte) error {
	chanNr, linkID, rest, err := DecodeRLLHeader(body)
	if err != nil {
		return &ProtocolError{Reason: err.Error()}
	}
	l := c.reg.Lookup(trx, chanNr)
	if l == nil {
		return &UnknownChannelError{ChanNr: chanNr}
	}

	switch msgType {
	case MsgEstInd:
		c.HandleSAPIEstablished(l, int(linkID&0x07), SAPIMS)
		c.l3.Receive(l, linkID, rllL3Payload(rest))
		return nil
	case MsgEstConf:
		c.HandleSAPIEstablished(l, int(linkID&0x07), SAPINet)
		return nil
	case MsgDataInd, MsgUnitDataInd:
		c.l3.Receive(l, linkID, rllL3Payload(rest))
		return nil
	case MsgRelInd, MsgRelConf:
		c.HandleSAPIReleased(l, int(linkID&0x07))
		return nil
	case MsgErrorInd:
		ies, err := ParseTLV(rest, nil)
		if err != nil {
			return &ProtocolError{Reason: "ERROR IND: " + err.Error()}
		}
		cause := byte(0)
		if v, ok := ies[IECauseTag]; ok && len(v.Value) > 0 {
			cause = v.Value[0]
		}
		c.log.Error("RLL ERROR IND", "lchan", l.Name(), "cause", cause)
		if cause == CauseT200Expired {
			c.ErrorRelease(l, cause)
			return &LinkLayerFailureError{Cause: cause}
		}
		c.l3.Receive(l, linkID, rest)
		return nil
	default:
		c.log.Info("unimplemented RLL message type", "msg_type", msgType, "lchan", l.Name())
		return nil
	}
}

// rllL3Payload unwraps the L3_INFO IE an RLL DATA/EST indication
// carries, falling back to the raw trailing bytes when the BTS sends
// the payload bare.
func rllL3Payload(rest []byte) []byte {
	if len(rest) >= 2 && rest[0] == IEL3Info {
		end := 2 + int(rest[1])
		if end <= len(rest) {
			return rest[2:end]
		}
	}
	return rest
}

func (c *Controller) dispatchDedicated(trx *TRX, msgType byte, body []byte) error {
	l, rest, err := c.lookup(trx, body)
	if err != nil {
		return err
	}

	switch msgType {
	case MsgChanActivAck:
		return c.HandleChanActivAck(l)
	case MsgChanActivNack:
		ies, err := ParseTLV(rest, nil)
		if err != nil {
			return &ProtocolError{Reason: "CHAN ACTIV NACK: " + err.Error()}
		}
		cause := byte(0)
		if v, ok := ies[IECauseTag]; ok && len(v.Value) > 0 {
			cause = v.Value[0]
		}
		return c.HandleChanActivNack(l, cause)
	case MsgRFChanRelAck:
		c.HandleRFChanRelAck(l)
		return nil
	case MsgSACCHDeact:
		c.log.Info("unexpected DEACTIVATE SACCH echoed back", "lchan", l.Name())
		return nil
	default:
		c.log.Info("unimplemented DCHAN message type", "msg_type", msgType, "lchan", l.Name())
		return nil
	}
}

func (c *Controller) dispatchCommon(trx *TRX, msgType byte, body []byte) error {
	switch msgType {
	case MsgChanRqd:
		return c.handleChanRqdFrame(trx, body)
	case MsgCCCHLoadInd:
		return c.handleCCCHLoadInd(trx, body)
	default:
		c.log.Info("unimplemented CCHAN message type", "msg_type", msgType, "trx", trx.Nr)
		return nil
	}
}

func (c *Controller) dispatchTRX(trx *TRX, msgType byte, body []byte) error {
	l, rest, err := c.lookup(trx, body)
	if err != nil {
		return err
	}

	switch msgType {
	case MsgMeasRes:
		return c.HandleMeasRes(l, rest)
	case MsgConnFail:
		ies, err := ParseTLV(rest, nil)
		if err != nil {
			return &ProtocolError{Reason: "CONN FAIL: " + err.Error()}
		}
		cause := byte(0)
		if v, ok := ies[IECauseTag]; ok && len(v.Value) > 0 {
			cause = v.Value[0]
		}
		c.log.Error("CONN FAIL", "lchan", l.Name(), "cause", cause)
		c.ErrorRelease(l, cause)
		return nil
	case MsgHandoDet:
		c.emit(Signal{Kind: SignalLchanHandoverDetect, Lchan: l})
		return nil
	default:
		c.log.Info("unimplemented TRX message type", "msg_type", msgType, "lchan", l.Name())
		return nil
	}
}

func (c *Controller) dispatchIPAccess(trx *TRX, msgType byte, body []byte) error {
	l, rest, err := c.lookup(trx, body)
	if err != nil {
		return err
	}

	switch msgType {
	case MsgIpaCRCXAck:
		return c.HandleCRCXAck(l, rest)
	case MsgIpaMDCXAck:
		return c.HandleMDCXAck(l, rest)
	case MsgIpaDLCXInd:
		c.HandleDLCXInd(l)
		return nil
	case MsgIpaCRCXNack, MsgIpaMDCXNack:
		c.log.Error("ip.access connection request rejected", "lchan", l.Name(), "msg_type", msgType)
		return nil
	default:
		c.log.Info("unimplemented IPACCESS message type", "msg_type", msgType, "lchan", l.Name())
		return nil
	}
}

// handleChanRqdFrame parses the CHAN RQD wire layout into a
// RACHRequest and hands off to HandleChanRqd.
func (c *Controller) handleChanRqdFrame(trx *TRX, body []byte) error {
	bts := trx.BTS
	if bts == nil {
		return &ProtocolError{Reason: "CHAN RQD on TRX with no BTS"}
	}
	_, rest, err := DecodeDChanHeader(body)
	if err != nil {
		return &ProtocolError{Reason: "CHAN RQD: " + err.Error()}
	}
	if len(rest) < 6 {
		return &ProtocolError{Reason: "CHAN RQD too short"}
	}
	if rest[0] != IEReqReference {
		return &ProtocolError{Reason: "CHAN RQD missing REQ_REFERENCE"}
	}
	var ref RACHRequest
	copy(ref.Ref[:], rest[1:4])
	if rest[4] != IEAccessDelay {
		return &ProtocolError{Reason: "CHAN RQD missing ACCESS_DELAY"}
	}
	ref.TA = rest[5]

	return c.HandleChanRqd(bts, ref)
}

// handleCCCHLoadInd processes CCCH LOAD IND, including the RACH-load
// variant.
func (c *Controller) handleCCCHLoadInd(trx *TRX, body []byte) error {
	const rachLoadMinLen = 8
	if len(body) < 1 {
		return &ProtocolError{Reason: "CCCH LOAD IND empty"}
	}
	switch body[0] {
	case 0x00: // PCH LOAD variant: IE tag then a 2-byte count
		c.emit(Signal{Kind: SignalCCCHPagingLoad, BTS: trx.BTS})
		return nil
	case 0x01: // RACH LOAD variant
		if len(body) < rachLoadMinLen {
			c.log.Debug("CCCH LOAD IND (RACH) too short, dropped", "trx", trx.Nr, "len", len(body))
			return nil
		}
		c.emit(Signal{Kind: SignalCCCHRachLoad, BTS: trx.BTS, Extra: body[7]})
		return nil
	default:
		c.log.Info("unrecognised CCCH LOAD IND variant", "trx", trx.Nr, "tag", body[0])
		return nil
	}
}
