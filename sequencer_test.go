package xr872

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu      sync.Mutex
	triples [][3][7]byte
	singles [][7]byte
}

func (f *fakeSender) SendTriple(triple [3][7]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triples = append(f.triples, triple)
	return nil
}

func (f *fakeSender) SendSingle(pkt [7]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, pkt)
	return nil
}

func TestSequencerArmSetsAndAutoClearsBit(t *testing.T) {
	s := NewSequencer(&fakeSender{})
	s.ArmTakeoff()
	assert.NotZero(t, s.CurrentFlags()&FlagTakeoffOrLand)

	require.Eventually(t, func() bool {
		return s.CurrentFlags()&FlagTakeoffOrLand == 0
	}, 2*time.Second, 10*time.Millisecond, "flag should auto-clear after its arm window")
}

func TestSequencerRearmRestartsWindow(t *testing.T) {
	s := NewSequencer(&fakeSender{})
	s.ArmCalibrate()
	time.Sleep(armDuration - 200*time.Millisecond)
	s.ArmCalibrate() // rearm before the first window would have cleared
	time.Sleep(300 * time.Millisecond)
	assert.NotZero(t, s.CurrentFlags()&FlagCalibrate, "rearming should have restarted the 1s window")
}

func TestSequencerIndependentBits(t *testing.T) {
	s := NewSequencer(&fakeSender{})
	s.ArmTakeoff()
	s.ArmFlip()
	flags := s.CurrentFlags()
	assert.NotZero(t, flags&FlagTakeoffOrLand)
	assert.NotZero(t, flags&FlagFlip360)
}

func TestSequencerSendVideoStartStop(t *testing.T) {
	fs := &fakeSender{}
	s := NewSequencer(fs)
	require.NoError(t, s.SendVideoStart())
	require.NoError(t, s.SendVideoStop())
	require.Len(t, fs.singles, 2)
	assert.Equal(t, videoStartCmd, fs.singles[0])
	assert.Equal(t, videoStopCmd, fs.singles[1])
}

func TestSequencerSendCameraRotate(t *testing.T) {
	fs := &fakeSender{}
	s := NewSequencer(fs)
	require.NoError(t, s.SendCameraRotate(true))
	require.Len(t, fs.triples, 1)
	assert.Equal(t, cameraRotateOnTriple, fs.triples[0])
}
