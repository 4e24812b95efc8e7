// Package rsl implements the Radio Signalling Link (RSL) controller of a
// GSM Base Station Controller: the A-bis/RSL wire codec, the per-lchan
// state machine, channel-request and release orchestration, measurement
// ingest, the ip.access RTP binding sub-protocol, and the per-BTS paging
// scheduler. See 3GPP TS 08.58.
package rsl

import "fmt"

// BTSType selects vendor-specific wire quirks.
type BTSType int

const (
	BTSTypeGeneric BTSType = iota
	BTSTypeBS11
	BTSTypeNokia
	BTSTypeSiemens
	BTSTypeIPAccess
)

func (t BTSType) String() string {
	switch t {
	case BTSTypeBS11:
		return "bs11"
	case BTSTypeNokia:
		return "nokia"
	case BTSTypeSiemens:
		return "siemens"
	case BTSTypeIPAccess:
		return "ipaccess"
	default:
		return "generic"
	}
}

// PChanKind is a physical-channel configuration of a timeslot.
type PChanKind int

const (
	PChanNone PChanKind = iota
	PChanCCCH
	PChanCCCHSDCCH4
	PChanSDCCH8SACCH8C
	PChanTCHF
	PChanTCHH
	PChanTCHFPDCH
	PChanPDCH
)

// LchanKind is the logical type of an lchan.
type LchanKind int

const (
	LchanNone LchanKind = iota
	LchanSDCCH
	LchanTCHF
	LchanTCHH
)

func (k LchanKind) String() string {
	switch k {
	case LchanSDCCH:
		return "SDCCH"
	case LchanTCHF:
		return "TCH/F"
	case LchanTCHH:
		return "TCH/H"
	default:
		return "NONE"
	}
}

// State is an lchan session state.
type State int

const (
	StateNone State = iota
	StateActReq
	StateActive
	StateRelReq
	StateRelErr
	StateBroken
)

func (s State) String() string {
	switch s {
	case StateActReq:
		return "ACT_REQ"
	case StateActive:
		return "ACTIVE"
	case StateRelReq:
		return "REL_REQ"
	case StateRelErr:
		return "REL_ERR"
	case StateBroken:
		return "BROKEN"
	default:
		return "NONE"
	}
}

// SAPIState is the session state of one of an lchan's eight SAPIs.
type SAPIState int

const (
	SAPIUnused SAPIState = iota
	SAPIMS
	SAPINet
)

// RSLCMode is the signalling-vs-speech/data mode of an lchan.
type RSLCMode int

const (
	RSLCModeSignalling RSLCMode = iota
	RSLCModeSpeech
	RSLCModeData
)

// TCHMode is the traffic-channel codec/data mode.
type TCHMode int

const (
	TCHModeSign TCHMode = iota
	TCHModeSpeechV1
	TCHModeSpeechEFR
	TCHModeSpeechAMR
	TCHModeDataNT  // non-transparent CSD (with RLP)
	TCHModeDataT   // transparent CSD
)

// CSDMode qualifies TCHModeDataNT/TCHModeDataT with the exact bit rate.
type CSDMode int

const (
	CSDModeNone CSDMode = iota
	CSDModeNT14k5
	CSDModeNT12k0
	CSDModeNT6k0
	CSDModeT32k0
	CSDModeT9k6
	CSDModeT4k8
	CSDModeT2k4
	CSDModeT0k6
)

// EncryptionInfo carries the A5 algorithm id and key.
type EncryptionInfo struct {
	AlgorithmID byte
	Key         []byte
}

// PowerSettings carries BS/MS power levels.
type PowerSettings struct {
	BSPower byte
	MSPower byte
}

// RACHRequest is the captured random-access reference pending an
// IMMEDIATE ASSIGN.
type RACHRequest struct {
	Ref [3]byte // REQ_REFERENCE IE payload, copied verbatim into IMM ASS
	TA  byte    // ACCESS_DELAY
}

// IPAccessRTP is the ip.access RTP endpoint bookkeeping for an lchan.
type IPAccessRTP struct {
	ConnID      uint16
	BoundIP     uint32
	BoundPort   uint16
	ConnectIP   uint32
	ConnectPort uint16
	SpeechMode  byte
	RTPPayload  byte
	RTPPayload2 byte
}

// Lchan is one logical channel. Exactly one instance exists per
// (TRX, timeslot, sub-index) triple for the process lifetime.
type Lchan struct {
	TS    *Timeslot
	Index int // sub-index within the timeslot
	Kind  LchanKind

	State State

	RSLCMode RSLCMode
	TCHMode  TCHMode
	CSDMode  CSDMode

	Encryption EncryptionInfo
	Power      PowerSettings
	AMRConfig  []byte // length-prefixed AMR configuration blob, opaque here

	SAPIs [8]SAPIState

	RQDRef *RACHRequest // non-nil only while an IMMEDIATE ASSIGN is pending

	ActDeactTimer TimerHandle
	T3101         TimerHandle
	T3109         TimerHandle
	T3111         TimerHandle
	ErrorTimer    TimerHandle

	ConnID      any // opaque back-reference to an L3 connection object; owned elsewhere
	IPAccess    IPAccessRTP
	ErrorCause  byte
	SACCHDeact  bool // a DEACTIVATE SACCH has been requested for the current release
	everUsedL3  bool // whether any SAPI was ever driven non-UNUSED this session
}

// Name formats a stable identifier for logs.
func (l *Lchan) Name() string {
	if l == nil || l.TS == nil {
		return "lchan(?)"
	}
	trx := l.TS.TRX
	bts := 0
	trxNr := 0
	if trx != nil {
		trxNr = trx.Nr
		if trx.BTS != nil {
			bts = trx.BTS.Nr
		}
	}
	return fmt.Sprintf("bts%d-trx%d-ts%d-lchan%d", bts, trxNr, l.TS.Nr, l.Index)
}

// ChanNr re-encodes this lchan's (kind, timeslot, sub-index) back into the
// RSL chan_nr byte, the inverse of Registry.Lookup.
func (l *Lchan) ChanNr() (byte, error) {
	ts := byte(l.TS.Nr) & 0x07
	var cbits byte
	switch l.Kind {
	case LchanTCHF:
		cbits = 0x01
	case LchanTCHH:
		cbits = 0x02 | byte(l.Index&0x01)
	case LchanSDCCH:
		switch l.TS.PChan {
		case PChanCCCHSDCCH4:
			cbits = 0x04 | byte(l.Index&0x03)
		case PChanSDCCH8SACCH8C:
			cbits = 0x08 | byte(l.Index&0x07)
		default:
			return 0, fmt.Errorf("rsl: lchan %s: SDCCH on unexpected pchan %v", l.Name(), l.TS.PChan)
		}
	default:
		return 0, fmt.Errorf("rsl: lchan %s: cannot encode chan_nr for kind %v", l.Name(), l.Kind)
	}
	return (cbits << 3) | ts, nil
}

// Timeslot is a physical channel slot on a TRX.
type Timeslot struct {
	TRX   *TRX
	Nr    int
	PChan PChanKind

	HoppingEnabled bool
	MobileAlloc    []byte

	Lchans [8]*Lchan

	PDCHMode bool
}

// TRX is a radio transceiver belonging to a BTS.
type TRX struct {
	BTS       *BTS
	Nr        int
	ARFCN     uint16
	Timeslots [8]*Timeslot
	Link      TransportLink
}

// BTSTimers holds the network-configured guard timer constants.
type BTSTimers struct {
	T3101 int `yaml:"t3101"` // seconds
	T3109 int `yaml:"t3109"`
	T3111 int `yaml:"t3111"`
	T3122 int `yaml:"t3122"` // seconds, wait indication for IMM ASS REJ
}

// CCCHConfig is the cell's common-control-channel layout, as needed by
// the paging scheduler's group computation.
type CCCHConfig struct {
	CCCHConfIdx int `yaml:"ccch_conf_idx"` // BS_CC_CHANS source value (0..7 per TS 05.02)
	BSAGBLKSRes int `yaml:"bs_ag_blks_res"`
	BSPAMFRMS   int `yaml:"bs_pa_mfrms"`
}

// BTS is one cell.
type BTS struct {
	Nr         int
	Type       BTSType
	C0         *TRX
	Timers     BTSTimers
	CCCH       CCCHConfig
	MSMaxPower byte
	NECI       bool
	DTXEnabled bool

	Site *Site // optional surveyed location, see geo.go

	Vendor VendorProfile

	Stats BTSStats
}

// BTSStats tracks channel-request counters.
type BTSStats struct {
	ChreqTotal     uint64
	ChreqNoChannel uint64
}
