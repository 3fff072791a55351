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

// video.go

// This file contains the video reassembler (C3): the fragment-ingestion
// state machine that turns a lossy stream of UDP fragments into complete
// JPEG frames. Grounded on the teacher's video.go receive-loop idiom
// (buffer, hand off, never block the reader) but the buffering logic
// itself is new: the teacher forwards raw fragments to its caller, this
// reassembles them per spec §4.3.

package xr872

const (
	videoFragHdrSize  = 4
	videoFullFragSize = 1472
	videoMaxFrameSize = 300_000
)

var jpegSOI = [2]byte{0xFF, 0xD8}
var jpegEOI = [2]byte{0xFF, 0xD9}

// Reassembler holds the growing byte buffer for the frame currently being
// assembled, plus the bookkeeping needed to detect gaps and resync on the
// next frame start. It is single-threaded per endpoint: the coordinator
// feeds it fragments from exactly one goroutine (the video receiver).
type Reassembler struct {
	buf             []byte
	position        int
	currentFrameID  uint8
	lastPacketNum   uint8
	haveFrame       bool // false until the first pnum==1 packet is seen
	aborted         bool // gap detected; ignoring until next pnum==1
	onFrame         func(frame []byte)
}

// NewReassembler returns an empty Reassembler that calls onFrame with a
// copy of each successfully reassembled JPEG.
func NewReassembler(onFrame func(frame []byte)) *Reassembler {
	return &Reassembler{onFrame: onFrame}
}

// Reset clears all in-progress reassembly state. Called by the watchdog on
// reconnect (spec §4.7: "C3 is reset").
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
	r.position = 0
	r.haveFrame = false
	r.aborted = false
}

// Feed ingests one UDP datagram from the video socket, per the algorithm
// of spec §4.3. Malformed or out-of-order fragments are dropped silently;
// this never returns an error because video loss is expected and routine.
func (r *Reassembler) Feed(pkt []byte) {
	if len(pkt) < 5 {
		return
	}

	isLast := pkt[1] == 0x01
	if len(pkt) != videoFullFragSize && !isLast {
		return
	}

	fid := pkt[0]
	pnum := pkt[2]
	payload := pkt[videoFragHdrSize:]

	if pnum == 1 {
		r.buf = append(r.buf[:0], payload...)
		r.position = len(r.buf)
		r.currentFrameID = fid
		r.lastPacketNum = 1
		r.haveFrame = true
		r.aborted = false
	} else {
		if !r.haveFrame || r.aborted {
			return
		}
		expected := r.lastPacketNum + 1 // uint8 wraps at 256 intentionally
		if expected != pnum {
			r.aborted = true
			return
		}
		if fid != r.currentFrameID {
			r.aborted = true
			return
		}
		r.buf = append(r.buf, payload...)
		r.position = len(r.buf)
		r.lastPacketNum = pnum
	}

	if r.position > videoMaxFrameSize {
		r.Reset()
		return
	}

	if isLast {
		r.tryEmit()
	}
}

func (r *Reassembler) tryEmit() {
	if r.position < 2 {
		r.resetFrame()
		return
	}
	if r.buf[0] != jpegSOI[0] || r.buf[1] != jpegSOI[1] {
		r.resetFrame()
		return
	}
	if r.buf[r.position-2] != jpegEOI[0] || r.buf[r.position-1] != jpegEOI[1] {
		r.resetFrame()
		return
	}

	frame := make([]byte, r.position)
	copy(frame, r.buf[:r.position])
	if r.onFrame != nil {
		r.onFrame(frame)
	}
	r.resetFrame()
}

// resetFrame ends the current frame attempt (emitted or not) without
// discarding the haveFrame/currentFrameID bookkeeping needed to detect the
// *next* frame's pnum==1 start.
func (r *Reassembler) resetFrame() {
	r.buf = r.buf[:0]
	r.position = 0
}
