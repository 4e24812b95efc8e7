package rsl

import "fmt"

/*------------------------------------------------------------------
 * Purpose: Channel-mode IE encoding. Data-mode (CSD) activations
 * always encode as success: a recognised sub-rate sets the matching
 * CMOD code, an unrecognised one is logged and leaves chan_rate 0.
 * Whether CSD activations should instead be rejected outright is an
 * open point — see DESIGN.md's review note.
 *---------------------------------------------------------------*/

// ChanModeIE is the decoded CHANNEL MODE information element.
type ChanModeIE struct {
	DTXDTU   byte
	SpdInd   RSLCMode
	ChanRT   byte
	ChanRate byte
}

// Channel-rate-and-type codes (TS 08.58 §9.3.6).
const (
	crtSDCCH byte = 0x01
	crtTCHBm byte = 0x08 // TCH/F
	crtTCHLm byte = 0x10 // TCH/H
)

// Channel-rate (CMOD) codes, a representative subset of TS 08.58 §9.3.6.
const (
	cmodSpeechV1   byte = 0x01
	cmodSpeechEFR  byte = 0x05
	cmodSpeechAMR  byte = 0x06
	cmodDataNT14k5 byte = 0x21
	cmodDataNT12k0 byte = 0x22
	cmodDataNT6k0  byte = 0x24
	cmodDataT32k0  byte = 0x30
	cmodDataT9k6   byte = 0x31
	cmodDataT4k8   byte = 0x32
	cmodDataT2k4   byte = 0x33
	cmodDataT0k6   byte = 0x34
)

// ChanModeFromLchan builds the CHANNEL MODE IE for l. The invariant
// that RSLCModeSignalling implies TCHModeSign is checked and logged
// loudly but is not itself fatal.
func ChanModeFromLchan(l *Lchan, dtxNetworkEnabled bool, log Logger) (ChanModeIE, error) {
	if l.RSLCMode == RSLCModeSignalling && l.TCHMode != TCHModeSign {
		log.Error("rsl_cmode SIGN but tch_mode is not SIGN", "lchan", l.Name(), "tch_mode", l.TCHMode)
	}

	mode := ChanModeIE{SpdInd: l.RSLCMode}
	if dtxNetworkEnabled {
		mode.DTXDTU = 0x03
	}

	switch l.Kind {
	case LchanSDCCH:
		mode.ChanRT = crtSDCCH
	case LchanTCHF:
		mode.ChanRT = crtTCHBm
	case LchanTCHH:
		mode.ChanRT = crtTCHLm
	default:
		return ChanModeIE{}, &ConfigurationError{Reason: fmt.Sprintf("unsupported lchan kind %v for channel mode", l.Kind)}
	}

	switch l.TCHMode {
	case TCHModeSign:
		mode.ChanRate = 0
	case TCHModeSpeechV1:
		mode.ChanRate = cmodSpeechV1
	case TCHModeSpeechEFR:
		mode.ChanRate = cmodSpeechEFR
	case TCHModeSpeechAMR:
		mode.ChanRate = cmodSpeechAMR
	case TCHModeDataNT:
		// No failure path for data modes: every CSD activation encodes
		// as success, with chan_rate left 0 for a sub-rate outside the
		// table. See DESIGN.md's review note.
		switch l.CSDMode {
		case CSDModeNT14k5:
			mode.ChanRate = cmodDataNT14k5
		case CSDModeNT12k0:
			mode.ChanRate = cmodDataNT12k0
		case CSDModeNT6k0:
			mode.ChanRate = cmodDataNT6k0
		default:
			log.Warn("unrecognised non-transparent CSD mode, chan_rate left 0", "lchan", l.Name(), "csd_mode", l.CSDMode)
		}
	case TCHModeDataT:
		switch l.CSDMode {
		case CSDModeT32k0:
			mode.ChanRate = cmodDataT32k0
		case CSDModeT9k6:
			mode.ChanRate = cmodDataT9k6
		case CSDModeT4k8:
			mode.ChanRate = cmodDataT4k8
		case CSDModeT2k4:
			mode.ChanRate = cmodDataT2k4
		case CSDModeT0k6:
			mode.ChanRate = cmodDataT0k6
		default:
			log.Warn("unrecognised transparent CSD mode, chan_rate left 0", "lchan", l.Name(), "csd_mode", l.CSDMode)
		}
	default:
		return ChanModeIE{}, &ConfigurationError{Reason: fmt.Sprintf("unsupported tch_mode %v", l.TCHMode)}
	}

	return mode, nil
}

// EncodeChanMode packs a ChanModeIE as TS 08.58 §9.3.6 bytes.
func EncodeChanMode(m ChanModeIE) []byte {
	return []byte{m.DTXDTU, byte(m.SpdInd), m.ChanRT, m.ChanRate}
}
