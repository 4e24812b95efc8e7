package rsl

/*------------------------------------------------------------------
 * Purpose: MEAS RES ingest. Parses the mandatory measurement
 * IEs, applies the BS-11/Nokia timing-advance pre-shift via
 * VendorProfile, and raises MEAS_REP to the handover layer. Neighbour
 * cell parsing is a best-effort subset of GSM 04.08's measurement
 * report: enough structure for a handover layer to act on, not a full
 * re-implementation of the air-interface message.
 *---------------------------------------------------------------*/

// MeasurementResult is the decoded content of one MEAS RES.
type MeasurementResult struct {
	MeasResNr         byte
	DLDTX             bool
	RxLevFull         byte
	RxLevSub          byte
	RxQualFull        byte
	RxQualSub         byte
	HasMSTimingOffset bool
	MSTimingOffset    byte
	HasL1Info         bool
	MSPowerLevel      byte
	TimingAdv         byte
	HasNeighbors      bool
	NumCell           byte
	Neighbors         []NeighborMeasurement
}

// NeighborMeasurement is one neighbour-cell entry from the L3_INFO
// measurement report.
type NeighborMeasurement struct {
	RxLevel byte
	BSIC    byte
}

const measNotValidNumCell = 7

var measTVTags = map[byte]int{
	IEMeasResNr:      1,
	IEMSTimingOffset: 1,
}

// HandleMeasRes processes MEAS RES for l. Drops with a debug
// log unless l is ACTIVE.
func (c *Controller) HandleMeasRes(l *Lchan, data []byte) error {
	if l.State != StateActive {
		c.log.Debug("MEAS RES on non-ACTIVE lchan, dropped", "lchan", l.Name(), "state", l.State)
		return nil
	}

	ies, err := ParseTLV(data, measTVTags)
	if err != nil {
		return &ProtocolError{Reason: "MEAS RES: " + err.Error()}
	}

	resNr, ok := ies[IEMeasResNr]
	if !ok {
		return &ProtocolError{Reason: "MEAS RES missing MEAS_RES_NR"}
	}
	uplink, ok := ies[IEUplinkMeas]
	if !ok || len(uplink.Value) < 3 {
		return &ProtocolError{Reason: "MEAS RES missing or short UPLINK_MEAS"}
	}
	bsPower, ok := ies[IEBSPower]
	if !ok || len(bsPower.Value) < 1 {
		return &ProtocolError{Reason: "MEAS RES missing BS_POWER"}
	}

	m := MeasurementResult{MeasResNr: resNr.Value[0]}
	m.DLDTX = uplink.Value[0]&0x40 != 0
	m.RxLevFull = uplink.Value[0] & 0x3f
	m.RxLevSub = uplink.Value[1] & 0x3f
	m.RxQualFull = (uplink.Value[2] >> 3) & 0x07
	m.RxQualSub = uplink.Value[2] & 0x07

	vendor := VendorProfile{}
	if bts := l.bts(); bts != nil {
		vendor = bts.Vendor
	}

	if to, ok := ies[IEMSTimingOffset]; ok && len(to.Value) >= 1 {
		m.HasMSTimingOffset = true
		m.MSTimingOffset = to.Value[0]
	}

	if l1, ok := ies[IEL1Info]; ok && len(l1.Value) >= 2 {
		m.HasL1Info = true
		m.MSPowerLevel = l1.Value[0]
		m.TimingAdv = vendor.DecodeTA(l1.Value[1])
	}

	if l3, ok := ies[IEL3Info]; ok {
		m.Neighbors, m.NumCell, m.HasNeighbors = parseNeighborMeasurements(l3.Value)
	}

	if m.HasNeighbors && len(m.Neighbors) > 0 {
		c.logNeighborDistances(l)
	}

	c.emit(Signal{Kind: SignalLchanMeasRep, Lchan: l, Extra: m})
	return nil
}

// logNeighborDistances logs the great-circle distance from l's serving
// BTS to every other surveyed BTS this controller knows about, giving
// the handover layer geographic context for the neighbour-cell
// measurements above.
func (c *Controller) logNeighborDistances(l *Lchan) {
	serving := l.bts()
	if serving == nil || serving.Site == nil {
		return
	}
	for nr, other := range c.btss {
		if nr == serving.Nr || other.Site == nil {
			continue
		}
		c.log.Debug("distance to neighbour BTS",
			"lchan", l.Name(), "serving_bts", serving.Nr, "other_bts", other.Nr,
			"distance_m", DistanceMeters(*serving.Site, *other.Site))
	}
}

// parseNeighborMeasurements decodes the neighbour-cell portion of a
// GSM 04.08 measurement report. num_cell==7 marks "not valid" and is
// passed through with no neighbour iteration.
func parseNeighborMeasurements(l3 []byte) (neighbors []NeighborMeasurement, numCell byte, valid bool) {
	if len(l3) == 0 {
		return nil, 0, false
	}
	numCell = l3[0] & 0x07
	if numCell == measNotValidNumCell {
		return nil, numCell, false
	}
	out := make([]NeighborMeasurement, 0, numCell)
	off := 1
	for i := byte(0); i < numCell && off+1 < len(l3); i++ {
		out = append(out, NeighborMeasurement{
			RxLevel: l3[off] & 0x3f,
			BSIC:    l3[off+1] & 0x3f,
		})
		off += 2
	}
	return out, numCell, true
}
