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

// flightstate.go

// This file contains the authoritative, race-free store of current control
// inputs (C6). Setters clamp; Snapshot() is the only place the encode path
// reads from, and it is responsible for applying autopilot override,
// indoor-mode projection and trim — all inside one short critical section.

package xr872

import "sync"

// SpeedLevel is the advisory client-side speed setting. Its wire encoding
// is not confirmed (spec §9 Open Questions), so it never reaches the
// control frame; it exists only for collaborators to read back.
type SpeedLevel uint8

const (
	SpeedLow SpeedLevel = iota
	SpeedMid
	SpeedHigh
)

// FlightState holds the eight stick axes, trim, speed and mode flags that
// together determine the next control frame. All axis fields are clamped
// to [-100, 100] by every setter.
type FlightState struct {
	mu sync.Mutex

	roll, pitch, throttle, yaw                         float64
	followDirX, followDirY, followAccelX, followAccelY float64

	trimRoll, trimPitch, trimThrottle, trimYaw float64

	speedLevel       SpeedLevel
	headless         bool
	lights           bool
	indoorMode       bool
	hoverThrottleCap float64
	customPayload    [4]byte

	override *overrideCell
}

// NewFlightState returns a FlightState with all axes at center, no modes
// set, and the given hover throttle cap (clamped to [0,100]).
func NewFlightState(hoverThrottleCapPct uint8) *FlightState {
	return &FlightState{
		hoverThrottleCap: clamp(float64(hoverThrottleCapPct), 0, 100),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// attachOverride wires the autopilot's single-slot override cell into the
// snapshot path. Called once by the coordinator at construction time.
func (fs *FlightState) attachOverride(c *overrideCell) {
	fs.mu.Lock()
	fs.override = c
	fs.mu.Unlock()
}

// SetStick sets the four primary axes, each clamped to [-100, 100].
func (fs *FlightState) SetStick(roll, pitch, throttle, yaw float64) {
	fs.mu.Lock()
	fs.roll = clamp(roll, -100, 100)
	fs.pitch = clamp(pitch, -100, 100)
	fs.throttle = clamp(throttle, -100, 100)
	fs.yaw = clamp(yaw, -100, 100)
	fs.mu.Unlock()
}

// SetFollow sets the four follow-mode axes, clamped to [-100, 100].
func (fs *FlightState) SetFollow(dirX, dirY, accelX, accelY float64) {
	fs.mu.Lock()
	fs.followDirX = clamp(dirX, -100, 100)
	fs.followDirY = clamp(dirY, -100, 100)
	fs.followAccelX = clamp(accelX, -100, 100)
	fs.followAccelY = clamp(accelY, -100, 100)
	fs.mu.Unlock()
}

// SetTrim sets the four trim offsets, clamped to [-100, 100].
func (fs *FlightState) SetTrim(roll, pitch, throttle, yaw float64) {
	fs.mu.Lock()
	fs.trimRoll = clamp(roll, -100, 100)
	fs.trimPitch = clamp(pitch, -100, 100)
	fs.trimThrottle = clamp(throttle, -100, 100)
	fs.trimYaw = clamp(yaw, -100, 100)
	fs.mu.Unlock()
}

// SetSpeed sets the advisory speed level. Values outside {0,1,2} clamp to
// the nearest valid level.
func (fs *FlightState) SetSpeed(level SpeedLevel) {
	fs.mu.Lock()
	if level > SpeedHigh {
		level = SpeedHigh
	}
	fs.speedLevel = level
	fs.mu.Unlock()
}

// SetHeadless enables or disables headless mode.
func (fs *FlightState) SetHeadless(on bool) {
	fs.mu.Lock()
	fs.headless = on
	fs.mu.Unlock()
}

// SetLights enables or disables the aircraft's lights.
func (fs *FlightState) SetLights(on bool) {
	fs.mu.Lock()
	fs.lights = on
	fs.mu.Unlock()
}

// SetIndoorMode enables or disables indoor mode and sets the throttle cap
// (percent, clamped to [0,100]) applied while it is enabled.
func (fs *FlightState) SetIndoorMode(on bool, capPct uint8) {
	fs.mu.Lock()
	fs.indoorMode = on
	fs.hoverThrottleCap = clamp(float64(capPct), 0, 100)
	fs.mu.Unlock()
}

// SetCustomPayload sets the four reserved bytes (14-17) of the control
// frame verbatim. Their meaning is undocumented upstream (spec §9); the
// core validates only that four bytes were given, never their content.
func (fs *FlightState) SetCustomPayload(payload [4]byte) {
	fs.mu.Lock()
	fs.customPayload = payload
	fs.mu.Unlock()
}

// Snapshot is a by-value copy of the projected flight state, suitable for
// handing straight to EncodeControlFrame. Encoders never touch FlightState
// directly so the mutex is held only for the duration of this copy.
type Snapshot struct {
	Roll, Pitch, Throttle, Yaw                         float64
	FollowDirX, FollowDirY, FollowAccelX, FollowAccelY float64
	SpeedLevel                                         SpeedLevel
	Headless, Lights, IndoorMode                       bool
	HoverThrottleCapPct                                float64
	CustomPayload                                      [4]byte
}

// Snapshot returns the current control inputs with autopilot override,
// indoor-mode projection and trim already applied, per spec §4.6.
func (fs *FlightState) Snapshot() Snapshot {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	roll, pitch, throttle, yaw := fs.roll, fs.pitch, fs.throttle, fs.yaw

	if fs.override != nil {
		if ov, fresh := fs.override.read(); fresh {
			roll, pitch, throttle, yaw = ov.Roll, ov.Pitch, ov.Throttle, ov.Yaw
		}
	}

	roll = clamp(roll+fs.trimRoll, -100, 100)
	pitch = clamp(pitch+fs.trimPitch, -100, 100)
	throttle = clamp(throttle+fs.trimThrottle, -100, 100)
	yaw = clamp(yaw+fs.trimYaw, -100, 100)

	// Trim is applied before the indoor cap rather than after, so positive
	// throttle trim can never push the encoded byte above the §8 invariant
	// throttle <= encode(hover_throttle_cap).
	speed := fs.speedLevel
	if fs.indoorMode {
		if throttle > fs.hoverThrottleCap {
			throttle = fs.hoverThrottleCap
		}
		if throttle < -fs.hoverThrottleCap {
			throttle = -fs.hoverThrottleCap
		}
		speed = SpeedLow
	}

	return Snapshot{
		Roll:                roll,
		Pitch:               pitch,
		Throttle:            throttle,
		Yaw:                 yaw,
		FollowDirX:          fs.followDirX,
		FollowDirY:          fs.followDirY,
		FollowAccelX:        fs.followAccelX,
		FollowAccelY:        fs.followAccelY,
		SpeedLevel:          speed,
		Headless:            fs.headless,
		Lights:              fs.lights,
		IndoorMode:          fs.indoorMode,
		HoverThrottleCapPct: fs.hoverThrottleCap,
		CustomPayload:       fs.customPayload,
	}
}
