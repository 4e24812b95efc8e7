package rsl

import (
	"encoding/binary"
	"fmt"
)

/*------------------------------------------------------------------
 * Purpose: RSL wire codec — common header, DCHAN/RLL header extensions,
 * TLV primitives, and the handful of fixed-size encodings (macroblock
 * padding, encryption-info packing). Bit-exact: deviations
 * desynchronise a live BTS.
 *---------------------------------------------------------------*/

// Discriminator is the routing class derived from a message type.
type Discriminator byte

const (
	DiscRLL       Discriminator = 0x00
	DiscDedicated Discriminator = 0x08
	DiscCommon    Discriminator = 0x06
	DiscTRX       Discriminator = 0x04
	DiscLocation  Discriminator = 0x0C
	DiscIPAccess  Discriminator = 0x7E // proprietary, distinct from the TS 08.58 table
)

const discTransparentBit = 0x01

// DiscriminatorOf is a best-effort classification of a message type
// into its likely discriminator, for diagnostics and tests. It is not
// used for wire routing: msg_type values are only unique within their
// own discriminator's namespace (MsgRFChanRel and MsgRelConf both use
// 0x0A, in different discriminators), so actual dispatch always routes
// on the wire's own discriminator byte, never on this derivation.
func DiscriminatorOf(msgType byte) Discriminator {
	switch {
	case msgType <= 0x0F:
		return DiscRLL
	case msgType >= 0x19 && msgType <= 0x22:
		return DiscTRX
	case msgType >= 0x10 && msgType <= 0x18:
		return DiscCommon
	case msgType >= 0x20 && msgType <= 0x3F:
		return DiscDedicated
	default:
		return DiscLocation
	}
}

// CommonHeader is the 2-byte header present on every RSL frame.
type CommonHeader struct {
	Discriminator byte
	MsgType       byte
}

const ieChanTag = 0x01

// EncodeCommonHeader writes the 2-byte common header.
func EncodeCommonHeader(disc Discriminator, transparent bool, msgType byte) []byte {
	d := byte(disc)
	if transparent {
		d |= discTransparentBit
	}
	return []byte{d, msgType}
}

// DecodeCommonHeader reads the common header and masks off the
// transparent bit for routing purposes.
func DecodeCommonHeader(b []byte) (hdr CommonHeader, routingDisc byte, err error) {
	if len(b) < 2 {
		return CommonHeader{}, 0, fmt.Errorf("rsl: short common header (%d bytes)", len(b))
	}
	hdr = CommonHeader{Discriminator: b[0], MsgType: b[1]}
	return hdr, b[0] &^ discTransparentBit, nil
}

// EncodeDChanHeader appends the ie_chan tag and chan_nr used by
// dedicated- and common-channel messages.
func EncodeDChanHeader(chanNr byte) []byte {
	return []byte{ieChanTag, chanNr}
}

// EncodeRLLHeader appends the ie_chan/chan_nr DCHAN header plus the
// link_id byte RLL messages additionally carry.
func EncodeRLLHeader(chanNr, linkID byte) []byte {
	return []byte{ieChanTag, chanNr, linkID}
}

// DecodeDChanHeader reads the ie_chan tag and chan_nr, returning the
// remaining bytes as the message's IE stream.
func DecodeDChanHeader(b []byte) (chanNr byte, rest []byte, err error) {
	if len(b) < 2 || b[0] != ieChanTag {
		return 0, nil, fmt.Errorf("rsl: missing or malformed ie_chan header")
	}
	return b[1], b[2:], nil
}

// DecodeRLLHeader reads the ie_chan/chan_nr/link_id DCHAN+RLL header.
func DecodeRLLHeader(b []byte) (chanNr, linkID byte, rest []byte, err error) {
	if len(b) < 3 || b[0] != ieChanTag {
		return 0, 0, nil, fmt.Errorf("rsl: missing or malformed RLL header")
	}
	return b[1], b[2], b[3:], nil
}

// ---- TLV primitives ----

// PutT appends a tag-only IE.
func PutT(buf []byte, tag byte) []byte {
	return append(buf, tag)
}

// PutTV appends a tag + 1-byte-value IE.
func PutTV(buf []byte, tag, value byte) []byte {
	return append(buf, tag, value)
}

// PutTVFixed appends a tag + fixed-length payload IE (no length byte).
func PutTVFixed(buf []byte, tag byte, value []byte) []byte {
	buf = append(buf, tag)
	return append(buf, value...)
}

// PutTLV appends a tag + 1-byte length + payload IE.
func PutTLV(buf []byte, tag byte, value []byte) []byte {
	if len(value) > 0xFF {
		panic(fmt.Sprintf("rsl: TLV payload too long for tag 0x%02x: %d bytes", tag, len(value)))
	}
	buf = append(buf, tag, byte(len(value)))
	return append(buf, value...)
}

// PutTL16V appends a tag + 2-byte big-endian length + payload IE.
func PutTL16V(buf []byte, tag byte, value []byte) []byte {
	buf = append(buf, tag)
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], uint16(len(value)))
	buf = append(buf, lb[:]...)
	return append(buf, value...)
}

// TLVValue is one parsed tag's (length, payload) pair.
type TLVValue struct {
	Tag   byte
	Value []byte
}

// ParseTLV walks a header's trailing bytes and produces a map from tag
// to its parsed value, following the TLV/TL16V length conventions. It
// is permissive about interleaving TV-style single-byte tags only when
// the caller names them in tvTags (fixed-length IEs can't be
// self-delimited without knowing their tag set up front).
func ParseTLV(data []byte, tvTags map[byte]int) (map[byte]TLVValue, error) {
	out := make(map[byte]TLVValue)
	i := 0
	for i < len(data) {
		tag := data[i]
		if n, ok := tvTags[tag]; ok {
			if i+1+n > len(data) {
				return nil, fmt.Errorf("rsl: truncated fixed IE tag 0x%02x", tag)
			}
			out[tag] = TLVValue{Tag: tag, Value: data[i+1 : i+1+n]}
			i += 1 + n
			continue
		}
		if i+1 >= len(data) {
			return nil, fmt.Errorf("rsl: truncated TLV tag 0x%02x", tag)
		}
		length := int(data[i+1])
		start := i + 2
		if start+length > len(data) {
			return nil, fmt.Errorf("rsl: TLV tag 0x%02x length %d overruns buffer", tag, length)
		}
		out[tag] = TLVValue{Tag: tag, Value: data[start : start+length]}
		i = start + length
	}
	return out, nil
}

// ---- macroblock padding ----

const (
	macroblockLen = 23
	macroblockPad = 0x2b
)

// PadMacroblock pads payload with 0x2b to exactly 23 bytes, as required
// when emitting a FULL IMMEDIATE ASSIGN INFO.
func PadMacroblock(payload []byte) []byte {
	out := make([]byte, macroblockLen)
	n := copy(out, payload)
	for i := n; i < macroblockLen; i++ {
		out[i] = macroblockPad
	}
	return out
}

// ---- encryption-info IE ----

// EncodeEncryptionInfo packs algorithm_id followed by the key bytes;
// total IE length is len(key)+1.
func EncodeEncryptionInfo(e EncryptionInfo) []byte {
	out := make([]byte, 0, 1+len(e.Key))
	out = append(out, e.AlgorithmID)
	return append(out, e.Key...)
}

// DecodeEncryptionInfo is the inverse of EncodeEncryptionInfo.
func DecodeEncryptionInfo(b []byte) (EncryptionInfo, error) {
	if len(b) < 1 {
		return EncryptionInfo{}, fmt.Errorf("rsl: empty encryption-info IE")
	}
	key := make([]byte, len(b)-1)
	copy(key, b[1:])
	return EncryptionInfo{AlgorithmID: b[0], Key: key}, nil
}

// ---- two-ended wire buffer ----

// wireBuffer supports building a message back-to-front (the encryption
// command assembles its IEs by prepending) without construction order
// needing to match wire order. headroom/capacity are
// preallocation hints (128 bytes of headroom, 1024 bytes total is
// plenty for any RSL frame); the buffer still grows past them if a
// message is unusually large.
type wireBuffer struct {
	front []byte // held in final (wire) order; PushFront prepends here
	back  []byte // held in final (wire) order; PushBack appends here
}

// newWireBuffer allocates a buffer sized per the headroom/capacity hints.
func newWireBuffer(headroom, capacity int) *wireBuffer {
	return &wireBuffer{
		front: make([]byte, 0, headroom),
		back:  make([]byte, 0, capacity-headroom),
	}
}

// PushBack appends b to the tail.
func (w *wireBuffer) PushBack(b []byte) {
	w.back = append(w.back, b...)
}

// PushFront prepends b to the head.
func (w *wireBuffer) PushFront(b []byte) {
	grown := make([]byte, 0, len(b)+len(w.front))
	grown = append(grown, b...)
	grown = append(grown, w.front...)
	w.front = grown
}

// Len returns the number of bytes currently held.
func (w *wireBuffer) Len() int {
	return len(w.front) + len(w.back)
}

// Bytes returns the held bytes in wire order.
func (w *wireBuffer) Bytes() []byte {
	out := make([]byte, 0, w.Len())
	out = append(out, w.front...)
	out = append(out, w.back...)
	return out
}
