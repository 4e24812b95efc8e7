package rsl

import "encoding/binary"

/*------------------------------------------------------------------
 * Purpose: The ip.access proprietary RTP binding sub-protocol:
 * CRCX/MDCX/DLCX requests, their ACK/NACK/IND responses, and the
 * speech-mode/payload-type lookup tables keyed by (tch_mode, lchan
 * type).
 *---------------------------------------------------------------*/

const (
	ipaSpeechModeRecvOnly byte = 0x10
	ipaSpeechModeBidirect byte = 0x00
)

// IpaSpeechModeFor maps (tch_mode, lchan kind) to the ip.access
// speech-mode low nibble.
func IpaSpeechModeFor(tchMode TCHMode, kind LchanKind) (byte, bool) {
	switch kind {
	case LchanTCHF:
		switch tchMode {
		case TCHModeSpeechV1:
			return 0x00, true
		case TCHModeSpeechEFR:
			return 0x01, true
		case TCHModeSpeechAMR:
			return 0x02, true
		}
	case LchanTCHH:
		switch tchMode {
		case TCHModeSpeechV1:
			return 0x03, true
		case TCHModeSpeechAMR:
			return 0x05, true
		}
	}
	return 0, false
}

// IpaRTPPayloadFor maps the same (tch_mode, kind) pair to the RTP
// payload type.
func IpaRTPPayloadFor(tchMode TCHMode, kind LchanKind) (byte, bool) {
	switch tchMode {
	case TCHModeSpeechV1:
		if kind == LchanTCHH {
			return RTPPayloadGSMHalf, true
		}
		return RTPPayloadGSMFull, true
	case TCHModeSpeechEFR:
		return RTPPayloadGSMEFR, true
	case TCHModeSpeechAMR:
		return RTPPayloadAMR, true
	}
	return 0, false
}

// emitCRCX sends CRCX, requesting a receive-only endpoint.
func (c *Controller) emitCRCX(l *Lchan) error {
	chanNr, err := l.ChanNr()
	if err != nil {
		return err
	}
	smodLow, ok := IpaSpeechModeFor(l.TCHMode, l.Kind)
	if !ok {
		return &ConfigurationError{Reason: "no ip.access speech mode for this tch_mode/kind"}
	}
	rtpPT, _ := IpaRTPPayloadFor(l.TCHMode, l.Kind)
	l.IPAccess.SpeechMode = ipaSpeechModeRecvOnly | smodLow
	l.IPAccess.RTPPayload = rtpPT

	frame := EncodeCommonHeader(DiscIPAccess, false, MsgIpaCRCX)
	frame = append(frame, EncodeDChanHeader(chanNr)...)
	frame = PutTV(frame, IESpeechMode, l.IPAccess.SpeechMode)
	frame = PutTV(frame, IERTPPayload, l.IPAccess.RTPPayload)
	c.send(l, frame)
	return nil
}

// emitMDCX sends MDCX, binding l's RTP connection to the given remote
// endpoint in bidirectional mode.
func (c *Controller) emitMDCX(l *Lchan, remoteIP uint32, remotePort uint16, rtpPayload2 byte) error {
	chanNr, err := l.ChanNr()
	if err != nil {
		return err
	}
	smodLow, ok := IpaSpeechModeFor(l.TCHMode, l.Kind)
	if !ok {
		return &ConfigurationError{Reason: "no ip.access speech mode for this tch_mode/kind"}
	}
	rtpPT, _ := IpaRTPPayloadFor(l.TCHMode, l.Kind)
	l.IPAccess.ConnectIP = remoteIP
	l.IPAccess.ConnectPort = remotePort
	l.IPAccess.SpeechMode = ipaSpeechModeBidirect | smodLow
	l.IPAccess.RTPPayload = rtpPT
	l.IPAccess.RTPPayload2 = rtpPayload2

	var connID [2]byte
	binary.BigEndian.PutUint16(connID[:], l.IPAccess.ConnID)
	var ip [4]byte
	binary.BigEndian.PutUint32(ip[:], remoteIP)
	var port [2]byte
	binary.BigEndian.PutUint16(port[:], remotePort)

	frame := EncodeCommonHeader(DiscIPAccess, false, MsgIpaMDCX)
	frame = append(frame, EncodeDChanHeader(chanNr)...)
	frame = PutTVFixed(frame, IEConnID, connID[:])
	frame = PutTVFixed(frame, IERemoteIP, ip[:])
	frame = PutTVFixed(frame, IERemotePort, port[:])
	frame = PutTV(frame, IESpeechMode, l.IPAccess.SpeechMode)
	frame = PutTV(frame, IERTPPayload, l.IPAccess.RTPPayload)
	if rtpPayload2 != 0 {
		frame = PutTV(frame, IERTPPayload2, rtpPayload2)
	}
	c.send(l, frame)
	return nil
}

// emitDLCX sends DLCX, tearing down l's RTP connection.
func (c *Controller) emitDLCX(l *Lchan) error {
	chanNr, err := l.ChanNr()
	if err != nil {
		return err
	}
	frame := EncodeCommonHeader(DiscIPAccess, false, MsgIpaDLCX)
	frame = append(frame, EncodeDChanHeader(chanNr)...)
	c.send(l, frame)
	return nil
}

var ipaTVTags = map[byte]int{
	IEConnID:      2,
	IELocalIP:     4,
	IELocalPort:   2,
	IERemoteIP:    4,
	IERemotePort:  2,
	IESpeechMode:  1,
	IERTPPayload:  1,
	IERTPPayload2: 1,
}

// HandleCRCXAck parses CRCX ACK's bound endpoint back into l's ip
// record and raises ABISIP_CRCX_ACK.
func (c *Controller) HandleCRCXAck(l *Lchan, data []byte) error {
	ies, err := ParseTLV(data, ipaTVTags)
	if err != nil {
		return &ProtocolError{Reason: "CRCX ACK: " + err.Error()}
	}
	if v, ok := ies[IEConnID]; ok && len(v.Value) >= 2 {
		l.IPAccess.ConnID = binary.BigEndian.Uint16(v.Value)
	}
	if v, ok := ies[IELocalIP]; ok && len(v.Value) >= 4 {
		l.IPAccess.BoundIP = binary.BigEndian.Uint32(v.Value)
	}
	if v, ok := ies[IELocalPort]; ok && len(v.Value) >= 2 {
		l.IPAccess.BoundPort = binary.BigEndian.Uint16(v.Value)
	}
	c.emit(Signal{Kind: SignalAbisipCRCXAck, Lchan: l})
	return nil
}

// HandleMDCXAck parses MDCX ACK and raises ABISIP_MDCX_ACK.
func (c *Controller) HandleMDCXAck(l *Lchan, data []byte) error {
	ies, err := ParseTLV(data, ipaTVTags)
	if err != nil {
		return &ProtocolError{Reason: "MDCX ACK: " + err.Error()}
	}
	if v, ok := ies[IELocalIP]; ok && len(v.Value) >= 4 {
		l.IPAccess.BoundIP = binary.BigEndian.Uint32(v.Value)
	}
	if v, ok := ies[IELocalPort]; ok && len(v.Value) >= 2 {
		l.IPAccess.BoundPort = binary.BigEndian.Uint16(v.Value)
	}
	c.emit(Signal{Kind: SignalAbisipMDCXAck, Lchan: l})
	return nil
}

// HandleDLCXInd raises ABISIP_DLCX_IND: the BTS dropped the RTP
// connection independently of a local DLCX request.
func (c *Controller) HandleDLCXInd(l *Lchan) {
	c.emit(Signal{Kind: SignalAbisipDLCXInd, Lchan: l})
}
