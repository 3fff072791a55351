// Copyright (C) 2018  Steve Merrony

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// sequencer.go

// This file contains the command sequencer (C5): the edge-armed
// CommandFlags bitfield with its 1s auto-clear, and the synchronous
// triple/singleton senders for camera and video commands. Grounded on the
// teacher's toggle-flag idiom (flightCommands.go's Bounce()) generalized
// to an auto-clearing bitfield instead of a sticky boolean.

package xr872

import (
	"sync"
	"sync/atomic"
	"time"
)

const armDuration = 1000 * time.Millisecond

// Sequencer owns the CommandFlags word shared with the encoder and sends
// synchronous triple/singleton commands through the transport's send
// serializer.
type Sequencer struct {
	flags atomic.Uint32

	armedAtMu sync.Mutex
	armedAt   map[CommandFlags]*time.Timer

	sender tripleSender
}

// tripleSender is the subset of Transport the sequencer needs to emit
// command triples and singletons; it is an interface so the sequencer can
// be unit tested without a real socket.
type tripleSender interface {
	SendTriple(triple [3][7]byte) error
	SendSingle(pkt [7]byte) error
}

// NewSequencer returns a Sequencer that sends through the given transport.
func NewSequencer(sender tripleSender) *Sequencer {
	return &Sequencer{
		armedAt: make(map[CommandFlags]*time.Timer),
		sender:  sender,
	}
}

// CurrentFlags returns the flag word to embed in the next control frame.
func (s *Sequencer) CurrentFlags() CommandFlags {
	return CommandFlags(s.flags.Load())
}

// arm sets bit and schedules it to clear after armDuration. Rearming an
// already-armed bit restarts its window, per spec §3.
func (s *Sequencer) arm(bit CommandFlags) {
	s.setBit(bit, true)

	s.armedAtMu.Lock()
	if t, ok := s.armedAt[bit]; ok {
		t.Stop()
	}
	s.armedAt[bit] = time.AfterFunc(armDuration, func() {
		s.setBit(bit, false)
		s.armedAtMu.Lock()
		delete(s.armedAt, bit)
		s.armedAtMu.Unlock()
	})
	s.armedAtMu.Unlock()
}

func (s *Sequencer) setBit(bit CommandFlags, on bool) {
	for {
		old := s.flags.Load()
		var next uint32
		if on {
			next = old | uint32(bit)
		} else {
			next = old &^ uint32(bit)
		}
		if s.flags.CompareAndSwap(old, next) {
			return
		}
	}
}

// ArmTakeoffOrLand arms the shared takeoff/land bit. Per spec §9, the core
// exposes both ArmTakeoff and ArmLand setting the same bit and never
// infers which meaning applies.
func (s *Sequencer) ArmTakeoffOrLand() { s.arm(FlagTakeoffOrLand) }

// ArmTakeoff is an alias for ArmTakeoffOrLand.
func (s *Sequencer) ArmTakeoff() { s.ArmTakeoffOrLand() }

// ArmLand is an alias for ArmTakeoffOrLand.
func (s *Sequencer) ArmLand() { s.ArmTakeoffOrLand() }

// ArmEmergencyStop arms the emergency-stop bit.
func (s *Sequencer) ArmEmergencyStop() { s.arm(FlagEmergencyStop) }

// ArmCalibrate arms the calibrate bit.
func (s *Sequencer) ArmCalibrate() { s.arm(FlagCalibrate) }

// ArmFlip arms the 360-degree flip bit.
func (s *Sequencer) ArmFlip() { s.arm(FlagFlip360) }

// ArmLightToggle arms the light-toggle bit.
func (s *Sequencer) ArmLightToggle() { s.arm(FlagLightToggle) }

// SendCameraRotate synchronously emits the camera-rotate on/off triple.
func (s *Sequencer) SendCameraRotate(on bool) error {
	if on {
		return s.sender.SendTriple(cameraRotateOnTriple)
	}
	return s.sender.SendTriple(cameraRotateOffTriple)
}

// SendCameraSwitch synchronously emits the camera-switch triple.
func (s *Sequencer) SendCameraSwitch() error {
	return s.sender.SendTriple(cameraSwitchTriple)
}

// SendVideoStart synchronously emits the fixed video-start packet.
func (s *Sequencer) SendVideoStart() error {
	return s.sender.SendSingle(videoStartCmd)
}

// SendVideoStop synchronously emits the fixed video-stop packet.
func (s *Sequencer) SendVideoStop() error {
	return s.sender.SendSingle(videoStopCmd)
}
