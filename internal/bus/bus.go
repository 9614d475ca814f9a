/*
 * Message bus delivering IRQ, halt, and suspend requests to cores.
 *
 * Copyright 2026, The segcore Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package bus implements the message bus that delivers IRQ, halt, and
// suspend messages to cores running as independent workers.
//
// Built on a goroutine-per-core + "master chan master.Packet" wiring
// (emu/core/core.go), generalized from a fixed Packet/Msg enum to a
// HandleIRQ/HaltCore/SuspendCore message set, FIFO per endpoint, with a
// delivered() acknowledgement the receiver invokes once it has
// actually processed (not merely dequeued) the message.
package bus

import (
	"fmt"
	"sync"
)

// Kind distinguishes the three message shapes the bus carries.
type Kind int

const (
	// KindHandleIRQ carries a hardware IRQ from Source to the core.
	KindHandleIRQ Kind = iota
	// KindHaltCore forces the receiving core to stop at its next loop
	// iteration.
	KindHaltCore
	// KindSuspendCore arms a suspension; the receiving core blocks on
	// Wake at its next check_for_events().
	KindSuspendCore
)

// Message is one bus delivery. Wake is only populated for
// KindSuspendCore.
type Message struct {
	Kind   Kind
	Source uint8
	Wake   chan struct{}

	onDelivered func()
}

// Delivered invokes the message's acknowledgement callback. Receivers
// call this once they have fully processed the message, not merely
// upon dequeuing it from their inbox.
func (m Message) Delivered() {
	if m.onDelivered != nil {
		m.onDelivered()
	}
}

// inboxCapacity bounds how many undelivered messages an endpoint can
// queue before posting to it blocks the sender; FIFO ordering is preserved by
// Go's channel semantics regardless of depth.
const inboxCapacity = 64

// Endpoint is a core's (or any worker's) registered mailbox.
type Endpoint struct {
	id string
	ch chan Message
}

// Receive blocks until a message arrives.
func (e *Endpoint) Receive() Message {
	return <-e.ch
}

// TryReceive returns immediately; ok is false if the inbox was empty.
func (e *Endpoint) TryReceive() (msg Message, ok bool) {
	select {
	case msg = <-e.ch:
		return msg, true
	default:
		return Message{}, false
	}
}

// Bus is a many-to-many delivery mechanism keyed by endpoint id.
type Bus struct {
	mu      sync.RWMutex
	inboxes map[string]chan Message
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{inboxes: make(map[string]chan Message)}
}

// Register creates (or recreates) the inbox for endpoint id and
// returns it for the owner to read from.
func (b *Bus) Register(id string) *Endpoint {
	ch := make(chan Message, inboxCapacity)
	b.mu.Lock()
	b.inboxes[id] = ch
	b.mu.Unlock()
	return &Endpoint{id: id, ch: ch}
}

// Unregister drops an endpoint's inbox. Safe to call after the worker
// has drained and stopped reading from it.
func (b *Bus) Unregister(id string) {
	b.mu.Lock()
	delete(b.inboxes, id)
	b.mu.Unlock()
}

func (b *Bus) post(id string, msg Message) error {
	b.mu.RLock()
	ch, ok := b.inboxes[id]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("bus: unknown endpoint %q", id)
	}
	ch <- msg
	return nil
}

// HandleIRQ posts a hardware IRQ from source to endpoint id.
// onDelivered, if non-nil, is invoked by the receiver once handled.
func (b *Bus) HandleIRQ(id string, source uint8, onDelivered func()) error {
	return b.post(id, Message{Kind: KindHandleIRQ, Source: source, onDelivered: onDelivered})
}

// HaltCore posts a halt request to endpoint id.
func (b *Bus) HaltCore(id string, onDelivered func()) error {
	return b.post(id, Message{Kind: KindHaltCore, onDelivered: onDelivered})
}

// SuspendCore posts a suspend request carrying the event the receiver
// should block on.
func (b *Bus) SuspendCore(id string, wake chan struct{}, onDelivered func()) error {
	return b.post(id, Message{Kind: KindSuspendCore, Wake: wake, onDelivered: onDelivered})
}
