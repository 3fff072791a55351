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

// coordinator.go

// This file contains the protocol coordinator (C9): the single owner of
// every other component, the startup/shutdown sequencing, and the public
// facade a collaborator actually calls. Grounded on the teacher's tello.go
// Tello struct — one owning type wiring a socket, a flight-state struct
// and a set of public control methods together — generalized to the
// multi-component wiring and explicit event streams this protocol needs.

package xr872

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const shutdownGrace = 2 * time.Second

// Coordinator owns the transport, codec-adjacent components, the flight
// state store, the watchdog and the autopilot, and is the only type a
// collaborator needs to construct.
type Coordinator struct {
	cfg    Config
	logger *logrus.Entry

	transport   *Transport
	sequencer   *Sequencer
	state       *FlightState
	reassembler *Reassembler
	parser      *Parser
	watchdog    *Watchdog
	autopilot   *Autopilot
	override    *overrideCell
	bus         *eventBus

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCoordinator validates cfg, fills in defaults, and wires every
// component together. It does not touch the network; call Connect to do
// that.
func NewCoordinator(cfg Config, logger *logrus.Entry) (*Coordinator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	c := &Coordinator{
		cfg:    cfg,
		logger: logger,
		bus:    newEventBus(),
	}

	c.transport = NewTransport(cfg, logger.WithField("component", "transport"))
	c.sequencer = NewSequencer(c.transport)
	c.state = NewFlightState(cfg.HoverThrottleCapPct)
	c.state.SetIndoorMode(cfg.IndoorDefault, cfg.HoverThrottleCapPct)

	c.override = &overrideCell{}
	c.state.attachOverride(c.override)
	c.autopilot = NewAutopilot(c.override, logger.WithField("component", "autopilot"))

	c.reassembler = NewReassembler(func(frame []byte) {
		c.bus.Publish(EventVideoFrame, frame)
	})

	c.parser = NewParser(
		cfg.LowBatteryWarnPct,
		cfg.LowBatteryLandPct,
		func(t Telemetry) { c.bus.Publish(EventTelemetry, t) },
		nil, nil,
		nil,
	)

	c.watchdog = NewWatchdog(cfg, c.transport, c.reassembler, c.parser,
		logger.WithField("component", "watchdog"),
		func(s LinkState) { c.bus.Publish(EventLinkState, s) })

	return c, nil
}

// Connect opens both UDP sockets, starts the receive loops, the heartbeat
// and control senders, and issues the video-start command, per the
// startup sequence: sockets, receivers, heartbeat, control cadence,
// video-start, then Connecting until the first datagram arrives.
func (c *Coordinator) Connect() error {
	if err := c.transport.Bind(); err != nil {
		return err
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.done = make(chan struct{})

	go c.transport.RunCtlReceiver(c.ctx, c.parser.Feed)
	go c.transport.RunVideoReceiver(c.ctx, c.reassembler.Feed)

	go c.watchdog.Run(c.ctx, c.reconnect)
	c.watchdog.MarkConnecting()

	go RunPeriodicSender(c.ctx, time.Duration(c.cfg.HeartbeatIntervalMs)*time.Millisecond,
		c.transport.SendHeartbeat,
		func(err error) { c.logger.WithError(err).Debug("heartbeat send failed") })

	go RunPeriodicSender(c.ctx, time.Duration(c.cfg.ControlIntervalMs)*time.Millisecond,
		c.sendControlTick,
		func(err error) { c.logger.WithError(err).Debug("control send failed") })

	if err := c.sequencer.SendVideoStart(); err != nil {
		c.logger.WithError(err).Warn("video start command failed")
	}

	c.logger.Info("coordinator connected")
	return nil
}

func (c *Coordinator) sendControlTick() error {
	snap := c.state.Snapshot()
	frame := EncodeControlFrame(EncodeFrameInput{
		Roll:          snap.Roll,
		Pitch:         snap.Pitch,
		Throttle:      snap.Throttle,
		Yaw:           snap.Yaw,
		FollowDirX:    snap.FollowDirX,
		FollowDirY:    snap.FollowDirY,
		FollowAccelX:  snap.FollowAccelX,
		FollowAccelY:  snap.FollowAccelY,
		FollowEnabled: false,
		Headless:      snap.Headless,
		Flags:         c.sequencer.CurrentFlags(),
		CustomPayload: snap.CustomPayload,
	})
	return c.transport.SendControl(frame)
}

// reconnect rebinds both sockets. Called by the watchdog; the watchdog
// itself already resets C3/C4 before calling this.
func (c *Coordinator) reconnect(ctx context.Context) error {
	if err := c.transport.Bind(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	return nil
}

// Shutdown sends video-stop, cancels all background work, waits up to the
// shutdown grace window for everything to unwind, then closes both
// sockets regardless of whether the wait timed out.
func (c *Coordinator) Shutdown() error {
	if c.cancel == nil {
		return nil
	}

	var shutdownErr error
	if err := c.sequencer.SendVideoStop(); err != nil {
		shutdownErr = appendErr(shutdownErr, err)
	}

	c.autopilot.Stop()
	c.cancel()

	select {
	case <-time.After(shutdownGrace):
		shutdownErr = appendErr(shutdownErr, ErrShutdownTimeout)
	case <-c.drained():
	}

	shutdownErr = appendErr(shutdownErr, c.transport.Close())
	c.logger.Info("coordinator shut down")
	return shutdownErr
}

// drained returns a channel that closes once the context has been
// canceled for long enough that the periodic senders and receivers have
// had a chance to observe it and return. The senders and receivers here
// poll ctx.Done() at most every 250ms, so a short settle window is
// sufficient without tracking each goroutine with a WaitGroup the
// coordinator would otherwise need to thread through Connect.
func (c *Coordinator) drained() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		time.Sleep(300 * time.Millisecond)
		close(ch)
	}()
	return ch
}

// --- Public control facade (spec §6) ---

func (c *Coordinator) SetStick(roll, pitch, throttle, yaw float64) {
	c.state.SetStick(roll, pitch, throttle, yaw)
}

func (c *Coordinator) SetFollow(dirX, dirY, accelX, accelY float64) {
	c.state.SetFollow(dirX, dirY, accelX, accelY)
}

func (c *Coordinator) SetTrim(roll, pitch, throttle, yaw float64) {
	c.state.SetTrim(roll, pitch, throttle, yaw)
}

func (c *Coordinator) SetSpeed(level SpeedLevel) { c.state.SetSpeed(level) }

func (c *Coordinator) SetHeadless(on bool) { c.state.SetHeadless(on) }

func (c *Coordinator) SetLights(on bool) { c.state.SetLights(on) }

func (c *Coordinator) SetIndoorMode(on bool) {
	c.state.SetIndoorMode(on, c.cfg.HoverThrottleCapPct)
}

// SetCustomPayload sets the four reserved control-frame bytes verbatim.
func (c *Coordinator) SetCustomPayload(payload [4]byte) {
	c.state.SetCustomPayload(payload)
}

func (c *Coordinator) ArmTakeoff() { c.sequencer.ArmTakeoff() }

func (c *Coordinator) ArmLand() { c.sequencer.ArmLand() }

func (c *Coordinator) ArmEmergencyStop() { c.sequencer.ArmEmergencyStop() }

func (c *Coordinator) ArmCalibrate() { c.sequencer.ArmCalibrate() }

func (c *Coordinator) ArmFlip() { c.sequencer.ArmFlip() }

func (c *Coordinator) ArmLightToggle() { c.sequencer.ArmLightToggle() }

func (c *Coordinator) SendCameraSwitch() error { return c.sequencer.SendCameraSwitch() }

func (c *Coordinator) SendCameraRotate(on bool) error { return c.sequencer.SendCameraRotate(on) }

func (c *Coordinator) SendVideoStart() error { return c.sequencer.SendVideoStart() }

func (c *Coordinator) SendVideoStop() error { return c.sequencer.SendVideoStop() }

// AutopilotStart looks up name in Patterns and starts it. It returns an
// error if name is not a registered pattern.
func (c *Coordinator) AutopilotStart(name string) error {
	p, ok := Patterns[name]
	if !ok {
		return fmt.Errorf("xr872: unknown autopilot pattern %q", name)
	}
	c.autopilot.Start(p)
	return nil
}

func (c *Coordinator) AutopilotStop() { c.autopilot.Stop() }

func (c *Coordinator) AutopilotStatus() AutopilotStatus { return c.autopilot.Status() }

func (c *Coordinator) LinkState() LinkState { return c.watchdog.State() }

// --- Event subscription facade ---

// OnTelemetry registers fn to be called with each decoded Telemetry.
func (c *Coordinator) OnTelemetry(fn func(Telemetry)) int {
	return c.bus.On(EventTelemetry, func(data interface{}) { fn(data.(Telemetry)) })
}

// OnVideoFrame registers fn to be called with each reassembled JPEG frame.
func (c *Coordinator) OnVideoFrame(fn func([]byte)) int {
	return c.bus.On(EventVideoFrame, func(data interface{}) { fn(data.([]byte)) })
}

// OnLinkState registers fn to be called on every link state transition.
func (c *Coordinator) OnLinkState(fn func(LinkState)) int {
	return c.bus.On(EventLinkState, func(data interface{}) { fn(data.(LinkState)) })
}

// On registers fn for the named event. Only EventTelemetry,
// EventVideoFrame and EventLinkState are ever published on the bus.
func (c *Coordinator) On(name EventName, fn func(data interface{})) int {
	return c.bus.On(name, fn)
}

// Unsubscribe removes a listener previously registered with On or one of
// the typed On* helpers.
func (c *Coordinator) Unsubscribe(name EventName, id int) {
	c.bus.Unsubscribe(name, id)
}
