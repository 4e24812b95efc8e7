package rsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatchFixture() (*Controller, *TRX) {
	trx := buildTestTRXAllKinds()
	ctl := NewController(testLogger(), &testAllocator{}, discardL3{})
	return ctl, trx
}

func TestDeliverDropsShortFrame(t *testing.T) {
	ctl, trx := newDispatchFixture()
	assert.NoError(t, ctl.Deliver(trx, []byte{0x00}))
}

func TestDeliverRoutesRLL(t *testing.T) {
	ctl, trx := newDispatchFixture()
	l := trx.Timeslots[1].Lchans[0]
	l.SAPIs[0] = SAPIMS
	ctl.SetLchanState(l, StateRelReq)

	chanNr, _ := l.ChanNr()
	frame := EncodeCommonHeader(DiscRLL, false, MsgRelInd)
	frame = append(frame, EncodeRLLHeader(chanNr, 0)...)

	require.NoError(t, ctl.Deliver(trx, frame))
	assert.Equal(t, SAPIUnused, l.SAPIs[0])
}

// An RLL EST IND marks the SAPI MS-established and hands the wrapped
// L3_INFO payload up to layer 3.
func TestDeliverRLLEstIndMarksSAPIAndFeedsL3(t *testing.T) {
	trx := buildTestTRXAllKinds()
	l3 := &recordingL3{}
	ctl := NewController(testLogger(), &testAllocator{}, l3)
	l := trx.Timeslots[1].Lchans[0]
	ctl.SetLchanState(l, StateActive)

	chanNr, _ := l.ChanNr()
	frame := EncodeCommonHeader(DiscRLL, false, MsgEstInd)
	frame = append(frame, EncodeRLLHeader(chanNr, 0)...)
	frame = PutTLV(frame, IEL3Info, []byte{0x05, 0x24, 0x01})

	require.NoError(t, ctl.Deliver(trx, frame))
	assert.Equal(t, SAPIMS, l.SAPIs[0])
	require.Len(t, l3.received, 1)
	assert.Equal(t, []byte{0x05, 0x24, 0x01}, l3.received[0].payload)
}

// DATA IND forwards its payload to layer 3 without touching SAPI state.
func TestDeliverRLLDataIndFeedsL3(t *testing.T) {
	trx := buildTestTRXAllKinds()
	l3 := &recordingL3{}
	ctl := NewController(testLogger(), &testAllocator{}, l3)
	l := trx.Timeslots[1].Lchans[0]
	ctl.SetLchanState(l, StateActive)
	l.SAPIs[0] = SAPIMS

	chanNr, _ := l.ChanNr()
	frame := EncodeCommonHeader(DiscRLL, false, MsgDataInd)
	frame = append(frame, EncodeRLLHeader(chanNr, 0)...)
	frame = PutTLV(frame, IEL3Info, []byte{0x05, 0x08})

	require.NoError(t, ctl.Deliver(trx, frame))
	assert.Equal(t, SAPIMS, l.SAPIs[0])
	require.Len(t, l3.received, 1)
	assert.Equal(t, []byte{0x05, 0x08}, l3.received[0].payload)
}

// ERROR IND with T200_EXPIRED triggers the error-path release; any
// other cause is logged and handed to layer 3 with the lchan left
// ACTIVE.
func TestDeliverRLLErrorIndCausePolicy(t *testing.T) {
	trx := buildTestTRXAllKinds()
	l3 := &recordingL3{}
	ctl := NewController(testLogger(), &testAllocator{}, l3)
	l := trx.Timeslots[1].Lchans[0]
	ctl.SetLchanState(l, StateActive)

	chanNr, _ := l.ChanNr()
	benign := EncodeCommonHeader(DiscRLL, false, MsgErrorInd)
	benign = append(benign, EncodeRLLHeader(chanNr, 0)...)
	benign = PutTLV(benign, IECauseTag, []byte{0x0F})

	require.NoError(t, ctl.Deliver(trx, benign))
	assert.Equal(t, StateActive, l.State)
	assert.Len(t, l3.received, 1)

	t200 := EncodeCommonHeader(DiscRLL, false, MsgErrorInd)
	t200 = append(t200, EncodeRLLHeader(chanNr, 0)...)
	t200 = PutTLV(t200, IECauseTag, []byte{CauseT200Expired})

	err := ctl.Deliver(trx, t200)
	require.Error(t, err)
	var llErr *LinkLayerFailureError
	assert.ErrorAs(t, err, &llErr)
	assert.Equal(t, StateRelErr, l.State)
}

func TestDeliverRoutesDedicated(t *testing.T) {
	ctl, trx := newDispatchFixture()
	l := trx.Timeslots[1].Lchans[0]
	ctl.SetLchanState(l, StateActReq)

	chanNr, _ := l.ChanNr()
	frame := EncodeCommonHeader(DiscDedicated, false, MsgChanActivAck)
	frame = append(frame, EncodeDChanHeader(chanNr)...)

	require.NoError(t, ctl.Deliver(trx, frame))
	assert.Equal(t, StateActive, l.State)
}

func TestDeliverRoutesCommonChanRqd(t *testing.T) {
	ctl, trx := newDispatchFixture()
	alloc := ctl.alloc.(*testAllocator)
	target := trx.Timeslots[1].Lchans[0]
	alloc.pool = append(alloc.pool, target)

	body := EncodeDChanHeader(0x88)
	body = append(body, IEReqReference, 0x41, 0x02, 0x03)
	body = append(body, IEAccessDelay, 0x05)
	frame := EncodeCommonHeader(DiscCommon, false, MsgChanRqd)
	frame = append(frame, body...)

	require.NoError(t, ctl.Deliver(trx, frame))
	assert.Equal(t, StateActReq, target.State)
}

func TestDeliverLocationDiscriminatorIsNonFatal(t *testing.T) {
	ctl, trx := newDispatchFixture()
	frame := EncodeCommonHeader(DiscLocation, false, 0x01)
	assert.NoError(t, ctl.Deliver(trx, frame))
}

func TestDeliverUnknownDiscriminatorIsProtocolError(t *testing.T) {
	ctl, trx := newDispatchFixture()
	frame := []byte{0x55, 0x01} // 0x55 matches no known discriminator
	err := ctl.Deliver(trx, frame)
	require.Error(t, err)
	var protoErr *ProtocolError
	assert.ErrorAs(t, err, &protoErr)
}

func TestDispatchDedicatedUnimplementedMessageIsLoggedNotFatal(t *testing.T) {
	ctl, trx := newDispatchFixture()
	l := trx.Timeslots[1].Lchans[0]
	chanNr, _ := l.ChanNr()
	frame := EncodeCommonHeader(DiscDedicated, false, 0x7E)
	frame = append(frame, EncodeDChanHeader(chanNr)...)
	assert.NoError(t, ctl.Deliver(trx, frame))
}

func TestHandleCCCHLoadIndPCHVariant(t *testing.T) {
	ctl, trx := newDispatchFixture()
	captured := subscribeCapture(ctl)

	frame := EncodeCommonHeader(DiscCommon, false, MsgCCCHLoadInd)
	frame = append(frame, 0x00, 0x00, 0x03)
	require.NoError(t, ctl.Deliver(trx, frame))

	require.Len(t, *captured, 1)
	assert.Equal(t, SignalCCCHPagingLoad, (*captured)[0].Kind)
}

func TestHandleCCCHLoadIndRachVariantTooShortDropped(t *testing.T) {
	ctl, trx := newDispatchFixture()
	captured := subscribeCapture(ctl)

	frame := EncodeCommonHeader(DiscCommon, false, MsgCCCHLoadInd)
	frame = append(frame, 0x01, 0x00, 0x00) // short of the 8-byte minimum
	require.NoError(t, ctl.Deliver(trx, frame))
	assert.Empty(t, *captured)
}

func TestHandleCCCHLoadIndRachVariantFullLength(t *testing.T) {
	ctl, trx := newDispatchFixture()
	captured := subscribeCapture(ctl)

	body := []byte{0x01, 0, 0, 0, 0, 0, 0, 42}
	frame := EncodeCommonHeader(DiscCommon, false, MsgCCCHLoadInd)
	frame = append(frame, body...)
	require.NoError(t, ctl.Deliver(trx, frame))

	require.Len(t, *captured, 1)
	assert.Equal(t, SignalCCCHRachLoad, (*captured)[0].Kind)
	assert.Equal(t, byte(42), (*captured)[0].Extra)
}
