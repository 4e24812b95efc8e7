package rsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLookupTCHF(t *testing.T) {
	reg := NewRegistry(testLogger())
	trx := buildTestTRXAllKinds()

	l := reg.Lookup(trx, (0x01<<3)|2)
	require.NotNil(t, l)
	assert.Equal(t, LchanTCHF, l.Kind)
	assert.Same(t, trx.Timeslots[2].Lchans[0], l)
}

func TestRegistryLookupSDCCH8Index(t *testing.T) {
	reg := NewRegistry(testLogger())
	trx := buildTestTRXAllKinds()

	l := reg.Lookup(trx, (0x0D<<3)|1) // cbits 0x08|0x05 -> index 5
	require.NotNil(t, l)
	assert.Equal(t, LchanSDCCH, l.Kind)
	assert.Equal(t, 5, l.Index)
}

func TestRegistryLookupTCHHIndex(t *testing.T) {
	reg := NewRegistry(testLogger())
	trx := buildTestTRXAllKinds()

	l := reg.Lookup(trx, (0x03<<3)|3) // cbits 0x02|0x01 -> index 1
	require.NotNil(t, l)
	assert.Equal(t, LchanTCHH, l.Kind)
	assert.Equal(t, 1, l.Index)
}

func TestRegistryLookupUnconfiguredTimeslot(t *testing.T) {
	reg := NewRegistry(testLogger())
	trx := buildTestTRXAllKinds()

	l := reg.Lookup(trx, (0x01<<3)|7) // ts7 never configured
	assert.Nil(t, l)
}

func TestRegistryLookupUnrecognisedCbits(t *testing.T) {
	reg := NewRegistry(testLogger())
	trx := buildTestTRXAllKinds()

	l := reg.Lookup(trx, (0x1F<<3)|0)
	assert.Nil(t, l)
}

func TestRegistryLookupMismatchedPChanStillReturnsLchan(t *testing.T) {
	// ts2 is configured as TCH/F; cbits 0x08 (SDCCH/8 index 0) decodes
	// to an in-range slot, so BTS authority wins: Lookup returns
	// whatever lchan is actually configured there rather than failing,
	// only logging the mismatch.
	reg := NewRegistry(testLogger())
	trx := buildTestTRXAllKinds()

	l := reg.Lookup(trx, (0x08<<3)|2)
	require.NotNil(t, l)
	assert.Same(t, trx.Timeslots[2].Lchans[0], l)
}
