package rsl

/*------------------------------------------------------------------
 * Purpose: Outbound message assembly shared across the release and
 * channel-request paths — the small DCHAN/RLL frames that don't carry
 * enough IEs to warrant their own file.
 *---------------------------------------------------------------*/

// send hands frame to the lchan's TRX transport link, logging and
// swallowing any transport error — a dead link is diagnosed from its
// own reconnect/backoff logic, not from the signalling layer.
func (c *Controller) send(l *Lchan, frame []byte) {
	if l.TS == nil || l.TS.TRX == nil || l.TS.TRX.Link == nil {
		c.log.Error("no transport link for lchan", "lchan", l.Name())
		return
	}
	if err := l.TS.TRX.Link.Enqueue(frame); err != nil {
		c.log.Error("transport enqueue failed", "lchan", l.Name(), "err", err)
	}
}

// emitRFChanRel sends RF CHAN REL. errorPath only affects
// logging; the wire message is identical either way.
func (c *Controller) emitRFChanRel(l *Lchan, errorPath bool) {
	chanNr, err := l.ChanNr()
	if err != nil {
		c.log.Error("cannot encode chan_nr for RF CHAN REL", "lchan", l.Name(), "err", err)
		return
	}
	c.log.Debug("RF CHAN REL", "lchan", l.Name(), "error_path", errorPath)
	frame := EncodeCommonHeader(DiscDedicated, false, MsgRFChanRel)
	frame = append(frame, EncodeDChanHeader(chanNr)...)
	c.send(l, frame)
}

// emitDeactivateSACCH sends DEACTIVATE SACCH ahead of an error-path release.
func (c *Controller) emitDeactivateSACCH(l *Lchan) {
	chanNr, err := l.ChanNr()
	if err != nil {
		c.log.Error("cannot encode chan_nr for DEACTIVATE SACCH", "lchan", l.Name(), "err", err)
		return
	}
	c.log.Debug("DEACTIVATE SACCH", "lchan", l.Name())
	frame := EncodeCommonHeader(DiscDedicated, false, MsgSACCHDeact)
	frame = append(frame, EncodeDChanHeader(chanNr)...)
	c.send(l, frame)
	l.SACCHDeact = true
}

// emitPagingCmd sends PAGING COMMAND on bts's C0 TRX. It is
// wired into the PagingRegistry's send callback at construction time.
func (c *Controller) emitPagingCmd(bts *BTS, group uint32, mi []byte, chanNeeded byte) {
	if bts.C0 == nil || bts.C0.Link == nil {
		c.log.Error("no C0 transport link, cannot send PAGING COMMAND", "bts", bts.Nr)
		return
	}
	var groupBytes [4]byte
	groupBytes[0] = byte(group >> 24)
	groupBytes[1] = byte(group >> 16)
	groupBytes[2] = byte(group >> 8)
	groupBytes[3] = byte(group)

	frame := EncodeCommonHeader(DiscCommon, false, MsgPagingCmd)
	frame = PutTLV(frame, IEPagingGroup, groupBytes[:])
	frame = PutTLV(frame, IEMSIdentity, mi)
	frame = PutTV(frame, IEChanNeeded, chanNeeded)
	if err := bts.C0.Link.Enqueue(frame); err != nil {
		c.log.Error("transport enqueue failed for PAGING COMMAND", "bts", bts.Nr, "err", err)
	}
}

// SendEncryptionCommand wraps an already-encoded GSM 04.08 ciphering
// payload in an ENCRYPTION COMMAND. The caller sets l.Encryption
// first; the frame is assembled back-to-front around the payload: it
// goes in as a TL16V L3_INFO, then link identifier, encryption info,
// and the DCHAN header are pushed ahead of it.
func (c *Controller) SendEncryptionCommand(l *Lchan, linkID byte, l3Payload []byte) error {
	if l.State != StateActive {
		return &ConfigurationError{Reason: "encryption command on non-ACTIVE lchan"}
	}
	chanNr, err := l.ChanNr()
	if err != nil {
		return err
	}

	wb := newWireBuffer(32, 128)
	wb.PushBack(PutTL16V(nil, IEL3Info, l3Payload))
	wb.PushFront(PutTV(nil, IELinkIdent, linkID))
	wb.PushFront(PutTLV(nil, IEEncrInfo, EncodeEncryptionInfo(l.Encryption)))
	wb.PushFront(EncodeDChanHeader(chanNr))
	wb.PushFront(EncodeCommonHeader(DiscDedicated, false, MsgEncrCmd))

	c.log.Debug("ENCRYPTION COMMAND", "lchan", l.Name(), "algorithm", l.Encryption.AlgorithmID, "link_id", linkID)
	c.send(l, wb.Bytes())
	return nil
}

// emitRLLReleaseReq sends an RLL RELEASE REQUEST for one SAPI.
// The release mode only affects the cause byte the far end sees; both
// modes use the RLL discriminator.
func (c *Controller) emitRLLReleaseReq(l *Lchan, linkID byte, mode ReleaseMode) {
	chanNr, err := l.ChanNr()
	if err != nil {
		c.log.Error("cannot encode chan_nr for RLL RELEASE REQUEST", "lchan", l.Name(), "err", err)
		return
	}
	cause := byte(0)
	if mode == ReleaseModeLocalEnd {
		cause = 1
	}
	c.log.Debug("RLL RELEASE REQUEST", "lchan", l.Name(), "link_id", linkID, "mode", mode)
	frame := EncodeCommonHeader(DiscRLL, false, MsgRelReq)
	frame = append(frame, EncodeRLLHeader(chanNr, linkID)...)
	frame = PutTLV(frame, IECauseTag, []byte{cause})
	c.send(l, frame)
}
