package rsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// S4: an error release (CONN FAIL) on an ACTIVE SDCCH with SAPI 0
// established sends DEACTIVATE SACCH, an RLL RELEASE REQUEST for SAPI
// 0 with the SACCH link_id bit clear (SDCCH carries no SACCH), and
// transitions to REL_ERR with the error timer armed; the subsequent RF
// CHAN REL ACK completes the release and frees the lchan back to the
// allocator.
func TestErrorReleaseSequence(t *testing.T) {
	l := newTestLchan(LchanSDCCH)
	link := l.TS.TRX.Link.(*recordingLink)
	alloc := &testAllocator{pool: []*Lchan{l}}
	ctl := NewController(testLogger(), alloc, discardL3{})

	ctl.SetLchanState(l, StateActive)
	l.SAPIs[0] = SAPIMS

	ctl.ErrorRelease(l, CauseT200Expired)

	assert.Equal(t, StateRelErr, l.State)
	assert.Equal(t, CauseT200Expired, l.ErrorCause)
	require.True(t, l.ErrorTimer.Pending())
	require.True(t, l.ActDeactTimer.Pending())
	assert.False(t, l.T3109.Pending())
	assert.Equal(t, SAPIUnused, l.SAPIs[0])

	require.Len(t, link.frames, 3)

	relFrame := link.frames[0]
	assert.Equal(t, byte(DiscDedicated), relFrame[0])
	assert.Equal(t, MsgRFChanRel, relFrame[1])

	sacchFrame := link.frames[1]
	assert.Equal(t, byte(DiscDedicated), sacchFrame[0])
	assert.Equal(t, MsgSACCHDeact, sacchFrame[1])
	assert.True(t, l.SACCHDeact)

	rllFrame := link.frames[2]
	assert.Equal(t, byte(DiscRLL), rllFrame[0])
	assert.Equal(t, MsgRelReq, rllFrame[1])
	_, linkID, _, err := DecodeRLLHeader(rllFrame[2:])
	require.NoError(t, err)
	assert.Equal(t, byte(0), linkID&sacchLinkIDBit, "SDCCH release carries no SACCH link_id bit")

	ctl.HandleRFChanRelAck(l)

	assert.Equal(t, StateNone, l.State)
	assert.False(t, l.ErrorTimer.Pending())
	assert.False(t, l.ActDeactTimer.Pending())
	require.Len(t, alloc.released, 1)
	assert.Same(t, l, alloc.released[0])
}

// A second CONN FAIL while already in REL_ERR must not re-send the
// release or re-arm timers.
func TestErrorReleaseIsNotReenteredWhileInRelErr(t *testing.T) {
	l := newTestLchan(LchanSDCCH)
	link := l.TS.TRX.Link.(*recordingLink)
	alloc := &testAllocator{pool: []*Lchan{l}}
	ctl := NewController(testLogger(), alloc, discardL3{})

	ctl.SetLchanState(l, StateActive)
	ctl.ErrorRelease(l, CauseT200Expired)
	require.Equal(t, StateRelErr, l.State)
	framesAfterFirst := len(link.frames)

	// errorRelease only acts on ACTIVE lchans; a second ErrorRelease
	// call while in REL_ERR is a no-op at the state-machine boundary.
	ctl.ErrorRelease(l, CauseT200Expired)
	assert.Equal(t, framesAfterFirst, len(link.frames))
	assert.Equal(t, StateRelErr, l.State)
}

// A normal (L3-driven) release with an established SAPI sweeps the
// SAPI, waits for T3109, and only completes once every SAPI reports
// released.
func TestReleaseRequestNormalPath(t *testing.T) {
	l := newTestLchan(LchanSDCCH)
	link := l.TS.TRX.Link.(*recordingLink)
	alloc := &testAllocator{pool: []*Lchan{l}}
	ctl := NewController(testLogger(), alloc, discardL3{})

	ctl.SetLchanState(l, StateActive)
	l.SAPIs[0] = SAPIMS

	ctl.ReleaseRequest(l, ReleaseModeNormal)

	assert.Equal(t, StateRelReq, l.State)
	require.True(t, l.T3109.Pending())
	require.Len(t, link.frames, 1)
	assert.Equal(t, byte(DiscRLL), link.frames[0][0])

	ctl.HandleSAPIReleased(l, 0)

	assert.False(t, l.T3109.Pending())
	require.True(t, l.T3111.Pending())
	assert.Equal(t, StateRelReq, l.State)

	ctl.t3111Fired(l)
	require.Len(t, link.frames, 2)
	assert.Equal(t, MsgRFChanRel, link.frames[1][1])

	ctl.HandleRFChanRelAck(l)
	assert.Equal(t, StateNone, l.State)
	require.Len(t, alloc.released, 1)
}

// A SAPI traverses UNUSED -> MS -> UNUSED across an establish/release
// cycle, and establishment marks the session as having carried L3.
func TestSAPILifecycleEstablishThenRelease(t *testing.T) {
	l := newTestLchan(LchanSDCCH)
	ctl := NewController(testLogger(), &testAllocator{pool: []*Lchan{l}}, discardL3{})

	ctl.SetLchanState(l, StateActive)
	require.Equal(t, SAPIUnused, l.SAPIs[0])

	ctl.HandleSAPIEstablished(l, 0, SAPIMS)
	assert.Equal(t, SAPIMS, l.SAPIs[0])
	assert.True(t, l.everUsedL3)

	ctl.SetLchanState(l, StateRelReq)
	ctl.HandleSAPIReleased(l, 0)
	assert.Equal(t, SAPIUnused, l.SAPIs[0])
	assert.True(t, l.T3111.Pending())
}

// A release request on an lchan with no active SAPIs skips T3109
// entirely and releases the radio channel directly.
func TestReleaseRequestWithNoActiveSAPIsReleasesDirectly(t *testing.T) {
	l := newTestLchan(LchanSDCCH)
	link := l.TS.TRX.Link.(*recordingLink)
	alloc := &testAllocator{pool: []*Lchan{l}}
	ctl := NewController(testLogger(), alloc, discardL3{})

	ctl.SetLchanState(l, StateActive)

	ctl.ReleaseRequest(l, ReleaseModeNormal)

	assert.False(t, l.T3109.Pending())
	require.Len(t, link.frames, 1)
	assert.Equal(t, MsgRFChanRel, link.frames[0][1])
}
