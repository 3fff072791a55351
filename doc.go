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

/*Package xr872 provides the real-time protocol engine for a ground-station
controller talking to a consumer quadcopter over Wi-Fi UDP using the XR872
family protocol, reverse-engineered from the vendor's mobile application.

Disclaimer

XR872 is a Wi-Fi SoC family used by several unaffiliated consumer drone
vendors. The author(s) of this package is/are in no way affiliated with any
such vendor. This package was developed by capturing and decoding the UDP
traffic exchanged between the vendor app and the aircraft. It will probably
be extended as more of the protocol is understood.

Use this package at your own risk. The author(s) is/are in no way
responsible for any damage caused either to or by the aircraft when using
this software.

Scope

This package is deliberately just the protocol core: frame encoding, UDP
transport, video reassembly, telemetry decoding, command sequencing,
flight-state storage, a connection watchdog and a time-based autopilot. It
does not render a HUD, poll a keyboard or gamepad, log telemetry to disk,
record video, save snapshots, manage a window, or load configuration from
disk — those are collaborator concerns layered on top of the three event
streams and the public API exposed by the Coordinator.

Concepts

The aircraft offers two independent UDP channels: a control/telemetry
channel carrying 20-byte stick frames out and telemetry/command-echo bytes
back, and a video channel carrying fragmented MJPEG frames. Neither channel
has a session layer, sequence acknowledgements or length-prefixed framing;
timing and byte-exact encoding are what keep the aircraft controllable.

Use NewCoordinator to build a protocol engine, Connect to start it, and
Shutdown to stop it cleanly. Subscribe to telemetry, video and link-state
events with OnTelemetry, OnVideoFrame, OnLinkState or the more general On.
*/
package xr872
