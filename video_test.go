package xr872

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// padBody pads payload to the reassembler's expected full-fragment size
// when it is not the frame's last fragment, matching the real protocol
// where only the last fragment of a frame is short.
func padBody(payload []byte, isLast bool) []byte {
	body := make([]byte, len(payload))
	copy(body, payload)
	if !isLast && len(body) < videoFullFragSize-videoFragHdrSize {
		body = append(body, make([]byte, videoFullFragSize-videoFragHdrSize-len(body))...)
	}
	return body
}

// fragment builds one video datagram from payload, padding it per padBody
// when it is not the frame's last fragment.
func fragment(fid, pnum byte, isLast bool, payload []byte) []byte {
	last := byte(0x00)
	if isLast {
		last = 0x01
	}
	body := padBody(payload, isLast)
	pkt := make([]byte, videoFragHdrSize+len(body))
	pkt[0] = fid
	pkt[1] = last
	pkt[2] = pnum
	pkt[3] = 0x00
	copy(pkt[4:], body)
	return pkt
}

func TestReassemblerSingleFragmentFrame(t *testing.T) {
	var got []byte
	r := NewReassembler(func(frame []byte) { got = frame })

	jpeg := append([]byte{0xFF, 0xD8}, append([]byte("data"), 0xFF, 0xD9)...)
	r.Feed(fragment(1, 1, true, jpeg))

	require.NotNil(t, got)
	assert.Equal(t, jpeg, got)
}

func TestReassemblerMultiFragmentFrame(t *testing.T) {
	var got []byte
	r := NewReassembler(func(frame []byte) { got = frame })

	part1 := append([]byte{0xFF, 0xD8}, []byte("hello ")...)
	part2 := append([]byte("world"), 0xFF, 0xD9)

	r.Feed(fragment(5, 1, false, part1))
	r.Feed(fragment(5, 2, true, part2))

	require.NotNil(t, got)
	assert.Equal(t, append(padBody(part1, false), part2...), got)
}

func TestReassemblerDroppedPacketAbortsFrameAndResyncsOnNext(t *testing.T) {
	var frames [][]byte
	r := NewReassembler(func(frame []byte) { frames = append(frames, frame) })

	// frame_id=5: 22 packets total, packet_num=10 never arrives.
	r.Feed(fragment(5, 1, false, append([]byte{0xFF, 0xD8}, []byte("chunk1")...)))
	for pnum := byte(2); pnum <= 9; pnum++ {
		r.Feed(fragment(5, pnum, false, []byte("chunk")))
	}
	// packet_num 10 dropped; 11 arrives and should be rejected as a gap.
	r.Feed(fragment(5, 11, false, []byte("chunk11")))
	// remaining packets of frame 5 continue to be dropped, including the
	// marked-last one, so no frame is ever emitted for frame_id=5.
	r.Feed(fragment(5, 22, true, append([]byte("tail"), 0xFF, 0xD9)))

	assert.Empty(t, frames, "no frame should be emitted for frame_id=5 once a gap is detected")

	// frame_id=6 starts clean at packet_num=1 and should reassemble normally.
	part1 := append([]byte{0xFF, 0xD8}, []byte("fresh ")...)
	part2 := append([]byte("start"), 0xFF, 0xD9)
	r.Feed(fragment(6, 1, false, part1))
	r.Feed(fragment(6, 2, true, part2))

	require.Len(t, frames, 1)
	assert.Equal(t, append(padBody(part1, false), part2...), frames[0])
}

func TestReassemblerRejectsFrameIDMismatchMidStream(t *testing.T) {
	var frames [][]byte
	r := NewReassembler(func(frame []byte) { frames = append(frames, frame) })

	r.Feed(fragment(1, 1, false, []byte{0xFF, 0xD8, 'a'}))
	r.Feed(fragment(2, 2, true, append([]byte("b"), 0xFF, 0xD9))) // wrong fid mid-stream

	assert.Empty(t, frames)
}

func TestReassemblerAbortsOversizedFrame(t *testing.T) {
	var frames [][]byte
	r := NewReassembler(func(frame []byte) { frames = append(frames, frame) })

	big := make([]byte, videoMaxFrameSize+1)
	r.Feed(fragment(1, 1, true, big))

	assert.Empty(t, frames)
}

func TestReassemblerRejectsBadSOIOrEOI(t *testing.T) {
	var frames [][]byte
	r := NewReassembler(func(frame []byte) { frames = append(frames, frame) })

	r.Feed(fragment(1, 1, true, []byte("not a jpeg")))
	assert.Empty(t, frames)
}

func TestReassemblerResetClearsInProgressFrame(t *testing.T) {
	var frames [][]byte
	r := NewReassembler(func(frame []byte) { frames = append(frames, frame) })

	r.Feed(fragment(1, 1, false, []byte{0xFF, 0xD8, 'a'}))
	r.Reset()
	r.Feed(fragment(1, 2, true, append([]byte("b"), 0xFF, 0xD9)))

	assert.Empty(t, frames, "packet_num=2 after Reset has no pnum==1 start, so it must be dropped")
}
