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

// codec.go

// This file contains the pure packet codec: control-frame encoding, the
// shared XOR checksum, and the fixed command byte strings the sequencer
// sends verbatim. Nothing here touches a socket or holds a lock.

package xr872

import "fmt"

// Structural decode errors, each wrapping ErrDecode so callers can test
// with errors.Is(err, ErrDecode) without caring which specific check
// failed.
var (
	ErrInvalidLength    = fmt.Errorf("%w: invalid length", ErrDecode)
	ErrBadHeader        = fmt.Errorf("%w: bad header", ErrDecode)
	ErrBadTail          = fmt.Errorf("%w: bad tail", ErrDecode)
	ErrChecksumMismatch = fmt.Errorf("%w: checksum mismatch", ErrDecode)
)

// Wire constants for the control frame, per the XR872 control protocol.
const (
	ctlFrameHdr  = 0x66
	ctlFrameLen1 = 0x14
	ctlFrameTail = 0x99

	ctlFrameSize = 20
)

// CommandFlags is the edge-armed bitfield carried in byte 6 of every
// control frame. Bits are set by the sequencer (C5) and cleared 1s after
// arming; the codec only knows how to read the current word.
type CommandFlags uint8

const (
	FlagTakeoffOrLand CommandFlags = 1 << 0
	FlagEmergencyStop CommandFlags = 1 << 1
	FlagCalibrate     CommandFlags = 1 << 2
	FlagFlip360       CommandFlags = 1 << 3
	FlagLightToggle   CommandFlags = 1 << 4
)

// xorRange returns the XOR of b[i..j] inclusive, the checksum primitive
// used by both the control frame and the command triples.
func xorRange(b []byte, i, j int) byte {
	var x byte
	for k := i; k <= j; k++ {
		x ^= b[k]
	}
	return x
}

// encodeAxis maps a stick value in [-100, 100] to the wire byte the drone
// expects, with the center value (0.0) landing on exactly 128.
func encodeAxis(v float64) byte {
	raw := v/100*128 + 128
	return clampByte(roundHalfAway(raw))
}

func roundHalfAway(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// EncodeFrameInput carries everything the encoder needs from a FlightState
// snapshot plus the sequencer's current flag word. It is a plain value so
// the encoder stays pure and testable without a live FlightState or
// CommandFlags instance.
type EncodeFrameInput struct {
	Roll, Pitch, Throttle, Yaw                         float64
	FollowDirX, FollowDirY, FollowAccelX, FollowAccelY float64
	FollowEnabled                                      bool
	Headless                                           bool
	Flags                                              CommandFlags
	CustomPayload                                      [4]byte
}

// EncodeControlFrame builds the 20-byte control frame for one send tick.
// Encoding is total: out-of-range axis values are clamped, never rejected.
func EncodeControlFrame(in EncodeFrameInput) [ctlFrameSize]byte {
	var f [ctlFrameSize]byte

	f[0] = ctlFrameHdr
	f[1] = ctlFrameLen1

	f[2] = encodeAxis(in.Roll)
	f[3] = encodeAxis(in.Pitch)
	f[4] = encodeAxis(in.Throttle)
	f[5] = encodeAxis(in.Yaw)

	f[6] = byte(in.Flags)

	f[7] = 0x02
	if in.Headless {
		f[7] |= 0x01
	}

	if in.FollowEnabled {
		f[8] = 0xFF
		f[9] = 0xFF
	}

	f[10] = encodeAxis(in.FollowDirY)
	f[11] = encodeAxis(in.FollowAccelX)
	f[12] = encodeAxis(in.FollowAccelY)
	f[13] = encodeAxis(in.FollowDirX)

	f[14] = in.CustomPayload[0]
	f[15] = in.CustomPayload[1]
	f[16] = in.CustomPayload[2]
	f[17] = in.CustomPayload[3]

	f[18] = xorRange(f[:], 2, 17)
	f[19] = ctlFrameTail

	return f
}

// ValidateControlFrame checks a frame satisfies the invariants of spec §8:
// fixed header/tail bytes, checksum, and the always-set mode bit.
func ValidateControlFrame(f [ctlFrameSize]byte) error {
	if f[0] != ctlFrameHdr || f[1] != ctlFrameLen1 {
		return ErrBadHeader
	}
	if f[19] != ctlFrameTail {
		return ErrBadTail
	}
	if f[18] != xorRange(f[:], 2, 17) {
		return ErrChecksumMismatch
	}
	if f[7]&0x02 != 0x02 {
		return ErrBadHeader
	}
	return nil
}

// heartbeatByte is the single byte sent every heartbeat interval to keep
// the UDP session alive.
var heartbeatByte = [1]byte{0x00}

// Fixed command byte strings, sent verbatim on the Ctl socket.
var (
	videoStartCmd = [7]byte{0xCC, 0x5A, 0x01, 0x82, 0x02, 0x36, 0xB7}
	videoStopCmd  = [7]byte{0xCC, 0x5A, 0x01, 0x82, 0x02, 0x37, 0xB6}

	cameraRotateOnTriple = [3][7]byte{
		{0xCC, 0x5A, 0x01, 0x01, 0x02, 0x01, 0x03},
		{0xCC, 0x5A, 0x02, 0x01, 0x02, 0x01, 0x00},
		{0xCC, 0x5A, 0x03, 0x01, 0x02, 0x01, 0x01},
	}
	cameraRotateOffTriple = [3][7]byte{
		{0xCC, 0x5A, 0x01, 0x01, 0x02, 0x00, 0x02},
		{0xCC, 0x5A, 0x02, 0x01, 0x02, 0x00, 0x01},
		{0xCC, 0x5A, 0x03, 0x01, 0x02, 0x00, 0x00},
	}
	cameraSwitchTriple = [3][7]byte{
		{0xCC, 0x5A, 0x01, 0x04, 0x02, 0x00, 0x07},
		{0xCC, 0x5A, 0x02, 0x04, 0x02, 0x00, 0x04},
		{0xCC, 0x5A, 0x03, 0x04, 0x02, 0x00, 0x05},
	}
)

// BuildCommandTriple produces the three 7-byte packets for a generic
// (cmdID, param) command, per spec §4.1: sequence bytes 1, 2, 3, each
// checksummed over its own bytes 2..5.
func BuildCommandTriple(cmdID, param byte) [3][7]byte {
	var triple [3][7]byte
	for i := range triple {
		p := &triple[i]
		p[0] = 0xCC
		p[1] = 0x5A
		p[2] = byte(i + 1)
		p[3] = cmdID
		p[4] = 0x02
		p[5] = param
		p[6] = xorRange(p[:], 2, 5)
	}
	return triple
}
