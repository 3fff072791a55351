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

// events.go

// This file contains the ad-hoc event subscription API (SPEC_FULL.md §3),
// modeled on the eventer pattern from the pack's gobot-derived example:
// named events, per-name listener sets keyed by subscription handle, and
// asynchronous dispatch so a slow subscriber never stalls the publisher.

package xr872

import "sync"

// EventName identifies one of the Coordinator's published event streams.
type EventName string

const (
	EventTelemetry  EventName = "telemetry"
	EventVideoFrame EventName = "video_frame"
	EventLinkState  EventName = "link_state"
)

type listener struct {
	id int
	fn func(data interface{})
}

// eventBus is a minimal named pub/sub bus. Publish never blocks on a
// subscriber: each listener is invoked on its own goroutine.
type eventBus struct {
	mu        sync.Mutex
	listeners map[EventName][]listener
	nextID    int
}

func newEventBus() *eventBus {
	return &eventBus{listeners: make(map[EventName][]listener)}
}

// On registers fn for name and returns a handle usable with Unsubscribe.
func (b *eventBus) On(name EventName, fn func(data interface{})) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[name] = append(b.listeners[name], listener{id: id, fn: fn})
	return id
}

// Unsubscribe removes the listener previously returned by On. It is a
// no-op if id is unknown or already removed.
func (b *eventBus) Unsubscribe(name EventName, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ls := b.listeners[name]
	for i, l := range ls {
		if l.id == id {
			b.listeners[name] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// Publish dispatches data to every current listener of name.
func (b *eventBus) Publish(name EventName, data interface{}) {
	b.mu.Lock()
	ls := make([]listener, len(b.listeners[name]))
	copy(ls, b.listeners[name])
	b.mu.Unlock()

	for _, l := range ls {
		go l.fn(data)
	}
}
