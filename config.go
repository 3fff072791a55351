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

package xr872

import "fmt"

// Config is the persisted configuration record read by the coordinator at
// startup. Loading it from disk, flags or environment is a collaborator
// concern (spec Non-goals: configuration loading) — the core only
// validates it and fills in defaults for zero-valued fields.
type Config struct {
	DroneIP             string
	CtlPort             uint16
	VideoPort           uint16
	ControlIntervalMs   uint32
	HeartbeatIntervalMs uint32
	RxTimeoutS          uint32
	HoverThrottleCapPct uint8
	IndoorDefault       bool
	LowBatteryWarnPct   uint8
	LowBatteryLandPct   uint8
}

// DefaultConfig returns the documented default configuration for the
// drone's well-known address and cadence.
func DefaultConfig(droneIP string) Config {
	return Config{
		DroneIP:             droneIP,
		CtlPort:             7080,
		VideoPort:           7070,
		ControlIntervalMs:   140,
		HeartbeatIntervalMs: 1000,
		RxTimeoutS:          3,
		HoverThrottleCapPct: 30,
		IndoorDefault:       true,
		LowBatteryWarnPct:   20,
		LowBatteryLandPct:   10,
	}
}

// withDefaults fills any zero-valued numeric field with its documented
// default, leaving explicit non-zero caller values untouched.
func (c Config) withDefaults() Config {
	d := DefaultConfig(c.DroneIP)
	if c.CtlPort == 0 {
		c.CtlPort = d.CtlPort
	}
	if c.VideoPort == 0 {
		c.VideoPort = d.VideoPort
	}
	if c.ControlIntervalMs == 0 {
		c.ControlIntervalMs = d.ControlIntervalMs
	}
	if c.HeartbeatIntervalMs == 0 {
		c.HeartbeatIntervalMs = d.HeartbeatIntervalMs
	}
	if c.RxTimeoutS == 0 {
		c.RxTimeoutS = d.RxTimeoutS
	}
	if c.HoverThrottleCapPct == 0 {
		c.HoverThrottleCapPct = d.HoverThrottleCapPct
	}
	if c.LowBatteryWarnPct == 0 {
		c.LowBatteryWarnPct = d.LowBatteryWarnPct
	}
	if c.LowBatteryLandPct == 0 {
		c.LowBatteryLandPct = d.LowBatteryLandPct
	}
	return c
}

// Validate checks the configuration is sane enough to connect with.
// Invalid configuration is fatal to Connect, never to the process.
func (c Config) Validate() error {
	if c.DroneIP == "" {
		return fmt.Errorf("%w: drone_ip must not be empty", ErrConfig)
	}
	if c.CtlPort == c.VideoPort {
		return fmt.Errorf("%w: ctl_port and video_port must differ", ErrConfig)
	}
	if c.HoverThrottleCapPct > 100 {
		return fmt.Errorf("%w: hover_throttle_cap must be in [0,100]", ErrConfig)
	}
	if c.LowBatteryLandPct > c.LowBatteryWarnPct {
		return fmt.Errorf("%w: low_battery_land must be <= low_battery_warn", ErrConfig)
	}
	return nil
}
