package xr872

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeLongRoundTrip(t *testing.T) {
	want := Telemetry{Kind: TelemetryLong, BatteryPercent: 73, Status: 0x02}
	w := encodeLong(want)
	got, err := decodeLong(w[:])
	require.NoError(t, err)
	assert.Equal(t, want.BatteryPercent, got.BatteryPercent)
	assert.Equal(t, want.Status, got.Status)
	assert.True(t, got.PhotoTriggered)
}

func TestDecodeLongRejectsBadChecksum(t *testing.T) {
	w := encodeLong(Telemetry{BatteryPercent: 50})
	w[13] ^= 0xFF
	_, err := decodeLong(w[:])
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestDecodeShortBatteryPercentFormula(t *testing.T) {
	var w [10]byte
	w[0] = 0x66
	w[1] = 37 // 3.7V
	w[2] = 0x00
	w[9] = xorRange(w[:], 1, 8)

	got, err := decodeShort(w[:])
	require.NoError(t, err)
	assert.InDelta(t, 77, int(got.BatteryPercent), 1)
}

func TestParserFeedRecognizesLongFrameInStream(t *testing.T) {
	var received []Telemetry
	p := NewParser(20, 10, func(t Telemetry) { received = append(received, t) }, nil, nil, nil)

	w := encodeLong(Telemetry{BatteryPercent: 60, Status: 0x00})
	p.Feed(w[:])

	require.Len(t, received, 1)
	assert.Equal(t, uint8(60), received[0].BatteryPercent)
}

func TestParserDerivesLowAndCriticalBattery(t *testing.T) {
	var received []Telemetry
	p := NewParser(20, 10, func(t Telemetry) { received = append(received, t) }, nil, nil, nil)

	w := encodeLong(Telemetry{BatteryPercent: 5})
	p.Feed(w[:])

	require.Len(t, received, 1)
	assert.True(t, received[0].LowBattery)
	assert.True(t, received[0].CriticalBattery)
}

func TestParserScansCmdEcho(t *testing.T) {
	var echoes [][cmdEchoWindow]byte
	p := NewParser(20, 10, nil, nil, nil, func(e [cmdEchoWindow]byte) { echoes = append(echoes, e) })

	triple := BuildCommandTriple(0x05, 0x01)
	p.Feed(triple[0][:])

	require.Len(t, echoes, 1)
	assert.Equal(t, triple[0], echoes[0])
}

func TestParserResetClearsRings(t *testing.T) {
	p := NewParser(20, 10, nil, nil, nil, nil)
	p.Feed([]byte{0x66, 0x0F, 0x01, 0x02})
	p.Reset()
	assert.Empty(t, p.ring)
	assert.Empty(t, p.echoBuf)
}
