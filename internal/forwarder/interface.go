/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package forwarder bridges two TCP connections. Bytes read from one side
// are held until the other side exists, then handed off to that side's
// writer, which swaps its own data-in/data-out buffer pair and flushes
// them in a single WriteTo call so at most one write is ever in flight on
// a given connection; destruction is deferred until both sides have
// reported closed.
package forwarder

import (
	"net"
	"sync"
)

// Forwarder relays bytes between an inbound connection (known at
// construction) and an outbound one (attached later via SetOutgoing,
// once the proxy's upstream connects).
type Forwarder interface {
	// OnClose registers the observer fired exactly once, after both the
	// inbound and (if ever attached) outbound sides have closed.
	OnClose(fn func())

	// SetOutgoing attaches the outbound side. Any inbound bytes buffered
	// before attachment are flushed immediately. If conn is the same
	// connection the forwarder was created with, the forwarder becomes a
	// loopback: both sides share one writer and its buffer pair.
	SetOutgoing(conn net.Conn)

	// Close closes whichever sides currently exist.
	Close()

	// Closed reports whether the forwarder has already fired OnClose.
	Closed() bool
}

// New creates a Forwarder bound to an already-accepted inbound
// connection and starts relaying it immediately. The outbound side is
// attached later via SetOutgoing.
func New(inbound net.Conn) Forwarder {
	f := &fwd{}
	f.in.conn = inbound
	f.in.present = true
	f.in.writer = newWriter(inbound)
	go f.readLoop(&f.in, true)
	return f
}

// NewLoopback creates a Forwarder whose inbound and outbound sides are the
// same connection: an echo forwarder. Both sides share a single writer and
// buffer pair, so a swap on one side is, in effect, a swap on both —
// mirroring SetOutgoing's own-handle case for a peer attached up front.
func NewLoopback(conn net.Conn) Forwarder {
	f := &fwd{}
	w := newWriter(conn)

	f.in.conn = conn
	f.in.present = true
	f.in.writer = w

	f.out.conn = conn
	f.out.present = true
	f.out.writer = w

	go f.readLoop(&f.in, true)
	return f
}

type side struct {
	conn    net.Conn
	closed  bool
	present bool
	writer  *writer
}

type fwd struct {
	m sync.Mutex

	in  side
	out side

	// pendingOut holds inbound bytes read before the outbound side has
	// been attached; SetOutgoing drains it into the new writer.
	pendingOut []byte

	done      bool
	fired     bool
	onCloseFn func()
}

// sameConn reports whether a and b are the same underlying connection,
// the trigger for the loopback buffer-sharing path in SetOutgoing.
func sameConn(a, b net.Conn) bool {
	return a != nil && a == b
}
