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

// patterns.go

// This file contains the built-in autopilot patterns: declarative step
// sequences consumed by Autopilot.Start. Values are conservative
// approximations of the named flight shape, not a physically simulated
// trajectory — each step is a held stick input, matching the control
// frame's own granularity.

package xr872

// Patterns is the registry of built-in patterns, keyed by name, used by
// Coordinator.AutopilotStart.
var Patterns = map[string]Pattern{
	"circle":           circlePattern,
	"square":           squarePattern,
	"figure-eight":     figureEightPattern,
	"zigzag":           zigzagPattern,
	"hover-and-rotate": hoverAndRotatePattern,
	"ascend-descend":   ascendDescendPattern,
	"orbit":            orbitPattern,
	"helix":            helixPattern,
	"pendulum":         pendulumPattern,
	"spiral-out":       spiralOutPattern,
}

var circlePattern = Pattern{
	Name: "circle",
	Steps: []FlightStep{
		{Roll: 30, Pitch: 0, DurationMs: 500},
		{Roll: 21, Pitch: 21, DurationMs: 500},
		{Roll: 0, Pitch: 30, DurationMs: 500},
		{Roll: -21, Pitch: 21, DurationMs: 500},
		{Roll: -30, Pitch: 0, DurationMs: 500},
		{Roll: -21, Pitch: -21, DurationMs: 500},
		{Roll: 0, Pitch: -30, DurationMs: 500},
		{Roll: 21, Pitch: -21, DurationMs: 500},
	},
}

var squarePattern = Pattern{
	Name: "square",
	Steps: []FlightStep{
		{Pitch: 40, DurationMs: 1000},
		{Roll: 40, DurationMs: 1000},
		{Pitch: -40, DurationMs: 1000},
		{Roll: -40, DurationMs: 1000},
	},
}

var figureEightPattern = Pattern{
	Name: "figure-eight",
	Steps: []FlightStep{
		{Roll: 30, Pitch: 20, DurationMs: 400},
		{Roll: 30, Pitch: -20, DurationMs: 400},
		{Roll: 0, Pitch: -30, DurationMs: 300},
		{Roll: -30, Pitch: -20, DurationMs: 400},
		{Roll: -30, Pitch: 20, DurationMs: 400},
		{Roll: 0, Pitch: 30, DurationMs: 300},
	},
}

var zigzagPattern = Pattern{
	Name: "zigzag",
	Steps: []FlightStep{
		{Roll: 35, Pitch: 25, DurationMs: 600},
		{Roll: -35, Pitch: 25, DurationMs: 600},
	},
}

var hoverAndRotatePattern = Pattern{
	Name: "hover-and-rotate",
	Steps: []FlightStep{
		{Throttle: 0, Yaw: 40, DurationMs: 2000},
		{Throttle: 0, Yaw: 0, DurationMs: 500},
	},
}

var ascendDescendPattern = Pattern{
	Name: "ascend-descend",
	Steps: []FlightStep{
		{Throttle: 40, DurationMs: 1500},
		{Throttle: 0, DurationMs: 500},
		{Throttle: -40, DurationMs: 1500},
		{Throttle: 0, DurationMs: 500},
	},
}

var orbitPattern = Pattern{
	Name: "orbit",
	Steps: []FlightStep{
		{Roll: 25, Yaw: 15, DurationMs: 450},
		{Roll: 18, Pitch: 18, Yaw: 15, DurationMs: 450},
		{Pitch: 25, Yaw: 15, DurationMs: 450},
		{Roll: -18, Pitch: 18, Yaw: 15, DurationMs: 450},
		{Roll: -25, Yaw: 15, DurationMs: 450},
		{Roll: -18, Pitch: -18, Yaw: 15, DurationMs: 450},
		{Pitch: -25, Yaw: 15, DurationMs: 450},
		{Roll: 18, Pitch: -18, Yaw: 15, DurationMs: 450},
	},
}

var helixPattern = Pattern{
	Name: "helix",
	Steps: []FlightStep{
		{Roll: 25, Throttle: 20, DurationMs: 500},
		{Roll: 0, Pitch: 25, Throttle: 20, DurationMs: 500},
		{Roll: -25, Throttle: 20, DurationMs: 500},
		{Roll: 0, Pitch: -25, Throttle: 20, DurationMs: 500},
	},
}

var pendulumPattern = Pattern{
	Name: "pendulum",
	Steps: []FlightStep{
		{Pitch: 45, DurationMs: 700},
		{Pitch: 0, DurationMs: 300},
		{Pitch: -45, DurationMs: 700},
		{Pitch: 0, DurationMs: 300},
	},
}

var spiralOutPattern = Pattern{
	Name: "spiral-out",
	Steps: []FlightStep{
		{Roll: 15, Pitch: 0, Throttle: 10, DurationMs: 400},
		{Roll: 10, Pitch: 10, Throttle: 10, DurationMs: 400},
		{Roll: 0, Pitch: 20, Throttle: 10, DurationMs: 500},
		{Roll: -15, Pitch: 15, Throttle: 10, DurationMs: 500},
		{Roll: -30, Pitch: 0, Throttle: 10, DurationMs: 600},
		{Roll: -20, Pitch: -20, Throttle: 10, DurationMs: 600},
		{Roll: 0, Pitch: -40, Throttle: 10, DurationMs: 700},
		{Roll: 25, Pitch: -25, Throttle: 10, DurationMs: 700},
	},
}
