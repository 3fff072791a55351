package xr872

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeControlFrameNeutral(t *testing.T) {
	frame := EncodeControlFrame(EncodeFrameInput{})

	assert.Equal(t, byte(0x66), frame[0])
	assert.Equal(t, byte(0x14), frame[1])
	assert.Equal(t, byte(128), frame[2], "neutral roll encodes to center byte")
	assert.Equal(t, byte(128), frame[3])
	assert.Equal(t, byte(128), frame[4])
	assert.Equal(t, byte(128), frame[5])
	assert.Equal(t, byte(0x02), frame[7], "mode bit is always set")
	assert.Equal(t, byte(0x99), frame[19])
	require.NoError(t, ValidateControlFrame(frame))
}

func TestEncodeControlFrameAxisExtremes(t *testing.T) {
	frame := EncodeControlFrame(EncodeFrameInput{Roll: 100, Pitch: -100})
	assert.Equal(t, byte(255), frame[2])
	assert.Equal(t, byte(0), frame[3])
}

func TestEncodeControlFrameFlagsByte(t *testing.T) {
	frame := EncodeControlFrame(EncodeFrameInput{Flags: FlagTakeoffOrLand | FlagFlip360})
	assert.Equal(t, byte(FlagTakeoffOrLand|FlagFlip360), frame[6])
}

func TestValidateControlFrameRejectsBadChecksum(t *testing.T) {
	frame := EncodeControlFrame(EncodeFrameInput{})
	frame[18] ^= 0xFF
	err := ValidateControlFrame(frame)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDecode))
	assert.True(t, errors.Is(err, ErrChecksumMismatch))
}

func TestValidateControlFrameRejectsBadHeader(t *testing.T) {
	frame := EncodeControlFrame(EncodeFrameInput{})
	frame[0] = 0x00
	assert.True(t, errors.Is(ValidateControlFrame(frame), ErrBadHeader))
}

func TestValidateControlFrameRejectsBadTail(t *testing.T) {
	frame := EncodeControlFrame(EncodeFrameInput{})
	frame[19] = 0x00
	assert.True(t, errors.Is(ValidateControlFrame(frame), ErrBadTail))
}

func TestBuildCommandTripleChecksums(t *testing.T) {
	triple := BuildCommandTriple(0x05, 0x01)
	for i, pkt := range triple {
		assert.Equal(t, byte(0xCC), pkt[0])
		assert.Equal(t, byte(0x5A), pkt[1])
		assert.Equal(t, byte(i+1), pkt[2])
		assert.Equal(t, xorRange(pkt[:], 2, 5), pkt[6])
	}
}

func TestXorRange(t *testing.T) {
	b := []byte{0x01, 0x02, 0x03, 0x04}
	assert.Equal(t, byte(0x01^0x02^0x03), xorRange(b, 0, 2))
}
