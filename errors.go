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

import "errors"

// Error kinds, per the protocol's error taxonomy. Decoding errors are
// silently dropped rather than surfaced (the medium is lossy by design)
// and no count of them is kept; transport errors flow into the watchdog; these sentinels
// exist so collaborators and tests can classify with errors.Is.
var (
	// ErrTransportIO marks a socket send/recv or bind failure. Recoverable
	// via watchdog reconnect.
	ErrTransportIO = errors.New("xr872: transport i/o error")

	// ErrDecode marks a packet that failed structural validation (header,
	// tail, length or checksum). Never raised to a collaborator; dropped,
	// uncounted, by the parser that detected it.
	ErrDecode = errors.New("xr872: packet decode error")

	// ErrProtocolStall marks a watchdog-detected RX or TX timeout.
	// Surfaces only as a LinkState transition, never as a returned error.
	ErrProtocolStall = errors.New("xr872: protocol stall")

	// ErrConfig marks an invalid configuration. Fatal to Connect, not to
	// the process.
	ErrConfig = errors.New("xr872: invalid configuration")

	// ErrShutdownTimeout marks tasks that did not join within the 2s
	// shutdown grace window.
	ErrShutdownTimeout = errors.New("xr872: shutdown timed out")
)

// appendErr joins two independent errors, either of which may be nil.
// Shutdown touches two sockets and several timers; any one of them can
// fail without the others, and all failures should be reported.
func appendErr(base, next error) error {
	if next == nil {
		return base
	}
	if base == nil {
		return next
	}
	return errors.Join(base, next)
}
