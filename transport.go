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

// transport.go

// This file contains the transport (C2): two UDP endpoints (Ctl and
// Video), the send/recv primitives, byte-exact heartbeat, a FIFO command
// send serializer, and the periodic control/heartbeat senders. Grounded
// on the teacher's network.go/video.go — ControlConnect/VideoConnect's
// dial-then-listen idiom and the ctrlMu-guarded single-owner socket — but
// the receive loops here hand raw bytes to callbacks instead of decoding
// inline, so C3/C4 own their own framing.

package xr872

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	ctlRecvBufSize   = 2048
	videoRecvBufSize = 2048
	tripleSpacing    = 5 * time.Millisecond
)

// Transport owns the Ctl and Video UDP sockets. All counters are atomic so
// the watchdog can sample them without holding any lock that an I/O wait
// might also hold (spec §5: "this forbids any shared mutex held across
// I/O waits").
type Transport struct {
	cfg    Config
	logger *logrus.Entry

	mu        sync.RWMutex
	ctlConn   *net.UDPConn
	videoConn *net.UDPConn

	sendMu sync.Mutex // FIFO serializer: guarantees (b) of spec §5

	txCount      atomic.Uint64
	rxCount      atomic.Uint64
	videoRxCount atomic.Uint64
	lastTxAtNs   atomic.Int64
	lastRxAtNs   atomic.Int64
	sendFailures atomic.Uint32
}

// NewTransport returns an unbound Transport for cfg. Call Bind before
// sending or receiving.
func NewTransport(cfg Config, logger *logrus.Entry) *Transport {
	return &Transport{cfg: cfg, logger: logger}
}

// Bind opens both UDP sockets, closing any previously bound sockets first.
// Used both at startup and by the watchdog's reconnect.
func (t *Transport) Bind() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked()

	// Local ports are ephemeral: only the drone's well-known ports are
	// fixed. This mirrors the teacher's ControlConnect/VideoConnect, which
	// also binds locally to a different port than the one it dials.
	ctlConn, err := dialUDP(0, t.cfg.DroneIP, t.cfg.CtlPort)
	if err != nil {
		return fmt.Errorf("%w: bind ctl socket: %v", ErrTransportIO, err)
	}
	videoConn, err := dialUDP(0, t.cfg.DroneIP, t.cfg.VideoPort)
	if err != nil {
		ctlConn.Close()
		return fmt.Errorf("%w: bind video socket: %v", ErrTransportIO, err)
	}

	t.ctlConn = ctlConn
	t.videoConn = videoConn
	t.sendFailures.Store(0)
	return nil
}

// dialUDP binds locally to localPort and connects to remoteIP:remotePort
// so Write can be used instead of WriteTo. No socket options are set: in
// particular SO_REUSEADDR is not enabled, so a non-zero localPort that is
// already in use fails to bind.
func dialUDP(localPort uint16, remoteIP string, remotePort uint16) (*net.UDPConn, error) {
	localAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf(":%d", localPort))
	if err != nil {
		return nil, err
	}
	remoteAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", remoteIP, remotePort))
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", localAddr, remoteAddr)
}

// Close closes both sockets. Idempotent.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

func (t *Transport) closeLocked() error {
	var err error
	if t.ctlConn != nil {
		err = appendErr(err, t.ctlConn.Close())
		t.ctlConn = nil
	}
	if t.videoConn != nil {
		err = appendErr(err, t.videoConn.Close())
		t.videoConn = nil
	}
	return err
}

func (t *Transport) ctl() *net.UDPConn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ctlConn
}

func (t *Transport) video() *net.UDPConn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.videoConn
}

// SendControl sends one encoded control frame, fire-and-forget.
func (t *Transport) SendControl(frame [ctlFrameSize]byte) error {
	conn := t.ctl()
	if conn == nil {
		return fmt.Errorf("%w: ctl socket not bound", ErrTransportIO)
	}
	_, err := conn.Write(frame[:])
	t.recordSend(err)
	return t.wrapSendErr(err)
}

// SendHeartbeat sends the single-byte keepalive.
func (t *Transport) SendHeartbeat() error {
	conn := t.ctl()
	if conn == nil {
		return fmt.Errorf("%w: ctl socket not bound", ErrTransportIO)
	}
	_, err := conn.Write(heartbeatByte[:])
	t.recordSend(err)
	return t.wrapSendErr(err)
}

// SendTriple sends three packets back to back on the Ctl socket, sleeping
// tripleSpacing between sends, serialized through sendMu so no
// control frame can be interleaved mid-triple (spec §5 ordering (b)).
func (t *Transport) SendTriple(triple [3][7]byte) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	conn := t.ctl()
	if conn == nil {
		return fmt.Errorf("%w: ctl socket not bound", ErrTransportIO)
	}
	for i, pkt := range triple {
		if _, err := conn.Write(pkt[:]); err != nil {
			t.recordSend(err)
			return t.wrapSendErr(err)
		}
		t.recordSend(nil)
		if i < len(triple)-1 {
			time.Sleep(tripleSpacing)
		}
	}
	return nil
}

// SendSingle sends one fixed-size packet on the Ctl socket, serialized
// with SendTriple so video start/stop cannot interleave with a triple.
func (t *Transport) SendSingle(pkt [7]byte) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	conn := t.ctl()
	if conn == nil {
		return fmt.Errorf("%w: ctl socket not bound", ErrTransportIO)
	}
	_, err := conn.Write(pkt[:])
	t.recordSend(err)
	return t.wrapSendErr(err)
}

func (t *Transport) recordSend(err error) {
	t.lastTxAtNs.Store(time.Now().UnixNano())
	if err != nil {
		t.sendFailures.Add(1)
		return
	}
	t.txCount.Add(1)
	t.sendFailures.Store(0)
}

func (t *Transport) wrapSendErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransportIO, err)
}

// ConsecutiveSendFailures reports how many Ctl-socket writes (control
// frames, heartbeats, triple and single command packets) have failed in a
// row, for the watchdog's three-strikes policy.
func (t *Transport) ConsecutiveSendFailures() uint32 { return t.sendFailures.Load() }

// RunCtlReceiver blocks reading datagrams from the Ctl socket until ctx is
// canceled or no Ctl socket is bound, invoking onPacket for each datagram.
// Other read errors are logged and reading continues on whichever socket
// is bound at the time.
func (t *Transport) RunCtlReceiver(ctx context.Context, onPacket func([]byte)) {
	buf := make([]byte, ctlRecvBufSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn := t.ctl()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			t.logger.WithError(err).Warn("ctl recv error")
			continue
		}
		t.rxCount.Add(1)
		t.lastRxAtNs.Store(time.Now().UnixNano())
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		onPacket(pkt)
	}
}

// RunVideoReceiver blocks reading datagrams from the Video socket until
// ctx is canceled or no Video socket is bound, invoking onFragment for
// each datagram. Other read errors are logged and reading continues on
// whichever socket is bound at the time.
func (t *Transport) RunVideoReceiver(ctx context.Context, onFragment func([]byte)) {
	buf := make([]byte, videoRecvBufSize)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn := t.video()
		if conn == nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			t.logger.WithError(err).Warn("video recv error")
			continue
		}
		t.videoRxCount.Add(1)
		frag := make([]byte, n)
		copy(frag, buf[:n])
		onFragment(frag)
	}
}

// RunPeriodicSender fires send at the given interval until ctx is
// canceled, logging (not panicking) on error so one bad send never kills
// the cadence. The cadence timer itself never blocks on I/O: each send
// call does its own work and returns before the next tick can fire.
func RunPeriodicSender(ctx context.Context, interval time.Duration, send func() error, onErr func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send(); err != nil && onErr != nil {
				onErr(err)
			}
		}
	}
}

// Counters exposes a point-in-time snapshot of transport counters for the
// watchdog and for diagnostics.
type Counters struct {
	TxCount      uint64
	RxCount      uint64
	VideoRxCount uint64
	LastTxAt     time.Time
	LastRxAt     time.Time
}

// Snapshot returns the current counters.
func (t *Transport) Snapshot() Counters {
	return Counters{
		TxCount:      t.txCount.Load(),
		RxCount:      t.rxCount.Load(),
		VideoRxCount: t.videoRxCount.Load(),
		LastTxAt:     nsToTime(t.lastTxAtNs.Load()),
		LastRxAt:     nsToTime(t.lastRxAtNs.Load()),
	}
}

func nsToTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
