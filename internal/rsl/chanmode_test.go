package rsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChanModeSpeechRates(t *testing.T) {
	cases := []struct {
		tchMode  TCHMode
		wantRate byte
	}{
		{TCHModeSign, 0},
		{TCHModeSpeechV1, cmodSpeechV1},
		{TCHModeSpeechEFR, cmodSpeechEFR},
		{TCHModeSpeechAMR, cmodSpeechAMR},
	}
	for _, tc := range cases {
		l := newTestLchan(LchanTCHF)
		l.RSLCMode = RSLCModeSpeech
		if tc.tchMode == TCHModeSign {
			l.RSLCMode = RSLCModeSignalling
		}
		l.TCHMode = tc.tchMode

		mode, err := ChanModeFromLchan(l, false, testLogger())
		require.NoError(t, err)
		assert.Equal(t, crtTCHBm, mode.ChanRT)
		assert.Equal(t, tc.wantRate, mode.ChanRate)
	}
}

func TestChanModeCSDRecognisedRates(t *testing.T) {
	cases := []struct {
		tchMode  TCHMode
		csdMode  CSDMode
		wantRate byte
	}{
		{TCHModeDataNT, CSDModeNT14k5, cmodDataNT14k5},
		{TCHModeDataNT, CSDModeNT12k0, cmodDataNT12k0},
		{TCHModeDataNT, CSDModeNT6k0, cmodDataNT6k0},
		{TCHModeDataT, CSDModeT32k0, cmodDataT32k0},
		{TCHModeDataT, CSDModeT9k6, cmodDataT9k6},
		{TCHModeDataT, CSDModeT0k6, cmodDataT0k6},
	}
	for _, tc := range cases {
		l := newTestLchan(LchanTCHF)
		l.RSLCMode = RSLCModeData
		l.TCHMode = tc.tchMode
		l.CSDMode = tc.csdMode

		mode, err := ChanModeFromLchan(l, false, testLogger())
		require.NoError(t, err)
		assert.Equal(t, tc.wantRate, mode.ChanRate)
	}
}

// A CSD activation with a sub-rate outside the table still encodes as
// success, with chan_rate left 0.
func TestChanModeCSDUnrecognisedRateSucceedsWithZeroRate(t *testing.T) {
	l := newTestLchan(LchanTCHF)
	l.RSLCMode = RSLCModeData
	l.TCHMode = TCHModeDataNT
	l.CSDMode = CSDModeT9k6 // transparent sub-rate on the non-transparent path

	mode, err := ChanModeFromLchan(l, false, testLogger())
	require.NoError(t, err)
	assert.Equal(t, byte(0), mode.ChanRate)
}

func TestChanModeDTXFlag(t *testing.T) {
	l := newTestLchan(LchanTCHF)
	l.RSLCMode = RSLCModeSpeech
	l.TCHMode = TCHModeSpeechV1

	mode, err := ChanModeFromLchan(l, true, testLogger())
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), mode.DTXDTU)
}

func TestChanModeUnsupportedKindFails(t *testing.T) {
	l := newTestLchan(LchanSDCCH)
	l.Kind = LchanNone

	_, err := ChanModeFromLchan(l, false, testLogger())
	require.Error(t, err)
	var cfgErr *ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
