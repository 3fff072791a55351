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

// watchdog.go

// This file contains the connection watchdog (C7): a 1Hz sampler of
// Transport's counters driving the link-state machine, plus the
// reconnect orchestration that rebinds sockets and resets C3/C4 state.
// Grounded on the teacher's network.go connection-retry loop
// (ConnectAndDisconnect-style reconnect-on-failure), generalized from a
// single retry-until-success dial into an ongoing FSM with degraded and
// auto-recovery states.

package xr872

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LinkState is the watchdog's externally visible connection state.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkConnected
	LinkDegraded
)

func (s LinkState) String() string {
	switch s {
	case LinkDisconnected:
		return "disconnected"
	case LinkConnecting:
		return "connecting"
	case LinkConnected:
		return "connected"
	case LinkDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

const (
	watchdogSampleInterval    = time.Second
	missedRxExtraToDisconnect = 2
	consecutiveSendFailMax    = 3
	linkHistoryCap            = 32
)

// linkTransition is one entry in the supplemented history ring (spec
// SPEC_FULL.md §3): every LinkState change, timestamped.
type linkTransition struct {
	At    time.Time
	State LinkState
}

// Watchdog samples Transport once a second, derives LinkState, and drives
// reconnection. Reconnect rebinds both sockets, resets the video
// reassembler and clears the telemetry ring, while leaving the command
// sequencer's armed flags untouched (spec §4.7).
type Watchdog struct {
	cfg       Config
	transport *Transport
	video     *Reassembler
	parser    *Parser
	logger    *logrus.Entry

	mu            sync.Mutex
	state         LinkState
	history       []linkTransition
	lastRxCount   uint64
	missedTicks   int
	onStateChange func(LinkState)
}

// NewWatchdog returns a Watchdog for the given components. onStateChange,
// if non-nil, is invoked (off the sampling goroutine's lock) on every
// transition.
func NewWatchdog(cfg Config, transport *Transport, video *Reassembler, parser *Parser, logger *logrus.Entry, onStateChange func(LinkState)) *Watchdog {
	return &Watchdog{
		cfg:           cfg,
		transport:     transport,
		video:         video,
		parser:        parser,
		logger:        logger,
		state:         LinkDisconnected,
		onStateChange: onStateChange,
	}
}

// State returns the current link state.
func (w *Watchdog) State() LinkState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// History returns a copy of the most recent transitions, oldest first.
func (w *Watchdog) History() []linkTransition {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]linkTransition, len(w.history))
	copy(out, w.history)
	return out
}

// MarkConnecting transitions to Connecting. Called by the coordinator
// immediately after sockets are bound, before the first datagram arrives.
func (w *Watchdog) MarkConnecting() {
	w.setState(LinkConnecting)
}

// Run samples Transport once a second until ctx is canceled, transitioning
// LinkState and triggering reconnect as needed.
func (w *Watchdog) Run(ctx context.Context, reconnect func(context.Context) error) {
	ticker := time.NewTicker(watchdogSampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx, reconnect)
		}
	}
}

func (w *Watchdog) tick(ctx context.Context, reconnect func(context.Context) error) {
	counters := w.transport.Snapshot()
	sendFailures := w.transport.ConsecutiveSendFailures()

	w.mu.Lock()
	rxAdvanced := counters.RxCount != w.lastRxCount
	w.lastRxCount = counters.RxCount
	if rxAdvanced {
		w.missedTicks = 0
	} else {
		w.missedTicks++
	}
	missed := w.missedTicks
	current := w.state
	w.mu.Unlock()

	if sendFailures >= consecutiveSendFailMax {
		w.logger.Warn("three consecutive send failures, reconnecting")
		w.setState(LinkDisconnected)
		w.doReconnect(ctx, reconnect)
		return
	}

	degradeAt := w.degradeTicks()
	disconnectAt := degradeAt + missedRxExtraToDisconnect

	switch {
	case current == LinkConnecting:
		if rxAdvanced {
			w.setState(LinkConnected)
		}
	case missed >= disconnectAt:
		w.setState(LinkDisconnected)
		w.doReconnect(ctx, reconnect)
	case missed >= degradeAt:
		w.setState(LinkDegraded)
	default:
		if current != LinkConnecting {
			w.setState(LinkConnected)
		}
	}
}

// degradeTicks translates cfg.RxTimeoutS into a count of 1Hz sample ticks:
// the watchdog degrades once that many consecutive ticks have passed
// without an inbound packet, per spec §4.7's "now - last_rx_at >
// rx_timeout_s". A zero timeout (unconfigured Watchdog in a test) still
// degrades after one missed tick rather than never.
func (w *Watchdog) degradeTicks() int {
	s := int(w.cfg.RxTimeoutS)
	if s <= 0 {
		s = 1
	}
	return s
}

func (w *Watchdog) doReconnect(ctx context.Context, reconnect func(context.Context) error) {
	w.setState(LinkConnecting)
	if w.video != nil {
		w.video.Reset()
	}
	if w.parser != nil {
		w.parser.Reset()
	}
	if reconnect == nil {
		return
	}
	if err := reconnect(ctx); err != nil {
		w.logger.WithError(err).Warn("reconnect attempt failed")
		w.setState(LinkDisconnected)
		return
	}

	w.mu.Lock()
	w.missedTicks = 0
	w.mu.Unlock()
}

func (w *Watchdog) setState(next LinkState) {
	w.mu.Lock()
	prev := w.state
	if prev == next {
		w.mu.Unlock()
		return
	}
	w.state = next
	w.history = append(w.history, linkTransition{At: time.Now(), State: next})
	if len(w.history) > linkHistoryCap {
		w.history = w.history[len(w.history)-linkHistoryCap:]
	}
	w.mu.Unlock()

	w.logger.WithFields(logrus.Fields{"from": prev, "to": next}).Info("link state transition")
	if w.onStateChange != nil {
		w.onStateChange(next)
	}
}
