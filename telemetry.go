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

// telemetry.go

// This file contains the telemetry parser (C4): a sliding-window byte
// scanner over the Ctl endpoint's receive stream, decoding the two
// telemetry record shapes and scanning for CC 5A command echoes.
// Grounded on the teacher's flog.go parseLogPacket byte-walking loop and
// messages.go's payloadToFlightData bit-level decode, generalized from a
// length-prefixed log record to the XR872's two fixed-shape, checksum-
// terminated records.

package xr872

import "time"

// TelemetryKind distinguishes the two wire shapes described in spec §3.
type TelemetryKind int

const (
	TelemetryShort TelemetryKind = iota
	TelemetryLong
)

// Telemetry is the tagged record C4 emits. Short and Long populate
// different subsets of fields; BatteryPercent and the status bits are
// always normalized regardless of shape.
type Telemetry struct {
	Kind            TelemetryKind
	VoltageRaw      uint8 // Short only; decidecimal volts, e.g. 37 -> 3.7V
	BatteryPercent  uint8
	Status          uint8
	PhotoTriggered  bool
	RecordTriggered bool
	LowBattery      bool
	CriticalBattery bool
}

// decodeShort validates and decodes a 10-byte short-form window, per
// spec §3/§4.4: byte[0]==0x66, byte[1]!=0x0F, xor(1,8)==byte[9].
func decodeShort(w []byte) (Telemetry, error) {
	if len(w) != 10 {
		return Telemetry{}, ErrInvalidLength
	}
	if w[0] != 0x66 || w[1] == 0x0F {
		return Telemetry{}, ErrBadHeader
	}
	if xorRange(w, 1, 8) != w[9] {
		return Telemetry{}, ErrChecksumMismatch
	}
	voltageRaw := w[1]
	status := w[2]
	voltageVolts := float64(voltageRaw) / 10
	pct := voltageVolts*160.7142 - 517.8571
	return Telemetry{
		Kind:            TelemetryShort,
		VoltageRaw:      voltageRaw,
		BatteryPercent:  clampPercent(pct),
		Status:          status,
		PhotoTriggered:  status&0x01 != 0,
		RecordTriggered: status&0x02 != 0,
	}, nil
}

// decodeLong validates and decodes a 15-byte long-form window, per
// spec §3/§4.4: byte[0]==0x66, byte[1]==0x0F, byte[14]==0x99,
// xor(2,12)==byte[13].
func decodeLong(w []byte) (Telemetry, error) {
	if len(w) != 15 {
		return Telemetry{}, ErrInvalidLength
	}
	if w[0] != 0x66 || w[1] != 0x0F {
		return Telemetry{}, ErrBadHeader
	}
	if w[14] != 0x99 {
		return Telemetry{}, ErrBadTail
	}
	if xorRange(w, 2, 12) != w[13] {
		return Telemetry{}, ErrChecksumMismatch
	}
	status := w[4]
	return Telemetry{
		Kind:            TelemetryLong,
		BatteryPercent:  clampPercent(float64(w[3])),
		Status:          status,
		PhotoTriggered:  status&0x02 != 0,
		RecordTriggered: status&0x04 != 0,
	}, nil
}

func clampPercent(v float64) uint8 {
	r := roundHalfAway(v)
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return uint8(r)
}

// encodeLong is the inverse of decodeLong, used only by tests: the
// round-trip property test (spec §8: "decode_long(encode_long(T)) == T")
// and the tests that feed long-form frames to a Parser.
func encodeLong(t Telemetry) [15]byte {
	var w [15]byte
	w[0] = 0x66
	w[1] = 0x0F
	w[3] = t.BatteryPercent
	w[4] = t.Status
	w[13] = xorRange(w[:], 2, 12)
	w[14] = 0x99
	return w
}

const cmdEchoWindow = 7

// Parser scans the Ctl endpoint's byte stream for telemetry records and
// CC 5A command echoes. It is fed one datagram's bytes at a time and owns
// no socket of its own.
type Parser struct {
	ring []byte // up to 15 bytes, most recent last

	echoBuf []byte // up to 7 bytes, for CC 5A scanning

	lowBatteryWarnPct uint8
	lowBatteryLandPct uint8

	lastPhoto   bool
	lastPhotoAt time.Time
	lastRecord  bool
	lastRecAt   time.Time

	onTelemetry func(Telemetry)
	onPhoto     func()
	onRecord    func()
	onCmdEcho   func(echo [cmdEchoWindow]byte)
}

// NewParser returns a Parser that calls the given callbacks as it
// recognizes telemetry records, debounced photo/record triggers, and
// command echoes. Any callback may be nil.
func NewParser(lowBatteryWarnPct, lowBatteryLandPct uint8, onTelemetry func(Telemetry), onPhoto, onRecord func(), onCmdEcho func([cmdEchoWindow]byte)) *Parser {
	return &Parser{
		lowBatteryWarnPct: lowBatteryWarnPct,
		lowBatteryLandPct: lowBatteryLandPct,
		onTelemetry:       onTelemetry,
		onPhoto:           onPhoto,
		onRecord:          onRecord,
		onCmdEcho:         onCmdEcho,
	}
}

// Reset clears all sliding-window state. Called by the watchdog on
// reconnect (spec §4.7: "C4 ring is cleared").
func (p *Parser) Reset() {
	p.ring = p.ring[:0]
	p.echoBuf = p.echoBuf[:0]
}

// Feed appends one datagram's bytes to the scanner, byte by byte, per
// spec §4.4.
func (p *Parser) Feed(data []byte) {
	for _, b := range data {
		p.feedByte(b)
	}
}

func (p *Parser) feedByte(b byte) {
	p.ring = append(p.ring, b)
	if len(p.ring) > 15 {
		p.ring = p.ring[len(p.ring)-15:]
	}

	p.echoBuf = append(p.echoBuf, b)
	if len(p.echoBuf) > cmdEchoWindow {
		p.echoBuf = p.echoBuf[len(p.echoBuf)-cmdEchoWindow:]
	}
	p.scanCmdEcho()

	if len(p.ring) == 15 {
		if t, err := decodeLong(p.ring); err == nil {
			p.emit(t)
			p.ring = p.ring[:0]
			return
		}
	}
	if len(p.ring) >= 10 {
		tail := p.ring[len(p.ring)-10:]
		if t, err := decodeShort(tail); err == nil {
			p.emit(t)
			p.ring = p.ring[:0]
			return
		}
	}
}

func (p *Parser) scanCmdEcho() {
	if len(p.echoBuf) < cmdEchoWindow {
		return
	}
	if p.echoBuf[0] != 0xCC || p.echoBuf[1] != 0x5A {
		return
	}
	var echo [cmdEchoWindow]byte
	copy(echo[:], p.echoBuf)
	if p.onCmdEcho != nil {
		p.onCmdEcho(echo)
	}
	p.echoBuf = p.echoBuf[:0]
}

func (p *Parser) emit(t Telemetry) {
	t.LowBattery = t.BatteryPercent <= p.lowBatteryWarnPct
	t.CriticalBattery = t.BatteryPercent <= p.lowBatteryLandPct

	now := time.Now()
	if t.PhotoTriggered && !p.lastPhoto && now.Sub(p.lastPhotoAt) <= time.Second {
		if p.onPhoto != nil {
			p.onPhoto()
		}
	}
	p.lastPhoto = t.PhotoTriggered
	p.lastPhotoAt = now

	if t.RecordTriggered && !p.lastRecord && now.Sub(p.lastRecAt) <= 2*time.Second {
		if p.onRecord != nil {
			p.onRecord()
		}
	}
	p.lastRecord = t.RecordTriggered
	p.lastRecAt = now

	if p.onTelemetry != nil {
		p.onTelemetry(t)
	}
}
