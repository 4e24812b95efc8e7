package rsl

/*------------------------------------------------------------------
 * Purpose: Look up an lchan by (TRX, chan_nr byte), decoding the
 * channel-kind bits per TS 08.58 §9.3.1. Mismatches between the decoded
 * kind and the timeslot's configured physical channel are logged but
 * non-fatal: BTS authority wins, the lookup still returns the lchan.
 *---------------------------------------------------------------*/

// Lookup decodes chan_nr and returns the addressed lchan, or nil if the
// cbits pattern is not recognised.
func (r *Registry) Lookup(trx *TRX, chanNr byte) *Lchan {
	tsNr := int(chanNr & 0x07)
	cbits := chanNr >> 3

	if tsNr < 0 || tsNr >= len(trx.Timeslots) || trx.Timeslots[tsNr] == nil {
		r.log.Warn("chan_nr addresses unconfigured timeslot", "trx", trx.Nr, "ts", tsNr, "chan_nr", chanNr)
		return nil
	}
	ts := trx.Timeslots[tsNr]

	var kind LchanKind
	var lchIdx int
	var expectPChan []PChanKind

	switch {
	case cbits == 0x01:
		kind, lchIdx = LchanTCHF, 0
		expectPChan = []PChanKind{PChanTCHF, PChanPDCH, PChanTCHFPDCH}
	case cbits&0x1E == 0x02:
		kind, lchIdx = LchanTCHH, int(cbits&0x01)
		expectPChan = []PChanKind{PChanTCHH}
	case cbits&0x1C == 0x04:
		kind, lchIdx = LchanSDCCH, int(cbits&0x03)
		expectPChan = []PChanKind{PChanCCCHSDCCH4}
	case cbits&0x18 == 0x08:
		kind, lchIdx = LchanSDCCH, int(cbits&0x07)
		expectPChan = []PChanKind{PChanSDCCH8SACCH8C}
	case cbits == 0x10 || cbits == 0x11 || cbits == 0x12:
		kind, lchIdx = LchanNone, 0
		expectPChan = []PChanKind{PChanCCCH, PChanCCCHSDCCH4}
	default:
		r.log.Error("unrecognised chan_nr cbits", "trx", trx.Nr, "ts", tsNr, "cbits", cbits)
		return nil
	}

	if !pchanOneOf(ts.PChan, expectPChan) {
		r.log.Warn("chan_nr kind does not match configured physical channel",
			"trx", trx.Nr, "ts", tsNr, "decoded_kind", kind, "configured_pchan", ts.PChan)
	}

	if lchIdx < 0 || lchIdx >= len(ts.Lchans) {
		r.log.Error("lchan index out of range", "ts", tsNr, "idx", lchIdx)
		return nil
	}
	return ts.Lchans[lchIdx]
}

func pchanOneOf(p PChanKind, candidates []PChanKind) bool {
	for _, c := range candidates {
		if p == c {
			return true
		}
	}
	return false
}

// Registry is the thin wrapper around Lookup that carries a logger,
// so chan_nr decode problems are attributed without threading a logger
// argument through every call.
type Registry struct {
	log Logger
}

// NewRegistry constructs a Registry logging through log.
func NewRegistry(log Logger) *Registry {
	return &Registry{log: log}
}
