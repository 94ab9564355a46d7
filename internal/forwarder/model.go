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

package forwarder

import "net"

func (f *fwd) OnClose(fn func()) {
	f.m.Lock()
	f.onCloseFn = fn

	fire := f.done && !f.fired
	if fire {
		f.fired = true
	}
	f.m.Unlock()

	if fire {
		fn()
	}
}

// SetOutgoing attaches the outbound side and drains whatever inbound
// bytes arrived before the upstream connected, preserving the "bytes
// are never silently dropped" invariant. When conn is the same
// connection the forwarder was created with, the outbound side becomes
// an alias of the inbound one: they share a writer, so a swap on either
// side drains the one shared buffer pair.
//
// The pending flush runs, and out.present only becomes visible to
// forward, while f.m is still held: otherwise a byte read concurrently
// by the inbound loop could reach the new writer before the backlog
// that arrived ahead of it, reordering the stream.
func (f *fwd) SetOutgoing(conn net.Conn) {
	f.m.Lock()
	if f.done {
		f.m.Unlock()
		_ = conn.Close()
		return
	}

	loopback := f.in.present && sameConn(f.in.conn, conn)

	var w *writer
	if loopback {
		w = f.in.writer
	} else {
		w = newWriter(conn)
	}

	pending := f.pendingOut
	f.pendingOut = nil
	if len(pending) > 0 {
		_ = w.enqueue(pending)
	}

	f.out.conn = conn
	f.out.writer = w
	f.out.present = true
	f.m.Unlock()

	if !loopback {
		go f.readLoop(&f.out, false)
	}
}

func (f *fwd) Close() {
	f.m.Lock()
	in, out := f.in, f.out
	f.m.Unlock()

	if in.present && !in.closed {
		_ = in.conn.Close()
	}
	if out.present && !out.closed {
		_ = out.conn.Close()
	}
}

func (f *fwd) Closed() bool {
	f.m.Lock()
	defer f.m.Unlock()
	return f.done
}

func (f *fwd) readLoop(s *side, fromInbound bool) {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			f.forward(fromInbound, b)
		}
		if err != nil {
			f.onSideClosed(fromInbound)
			return
		}
	}
}

// forward hands bytes read from one side to the peer's writer, which owns
// the actual swap-and-flush; if the peer isn't attached yet, the bytes
// wait in pendingOut until SetOutgoing drains them.
func (f *fwd) forward(fromInbound bool, b []byte) {
	f.m.Lock()

	var dst *writer
	if fromInbound {
		if f.out.present && !f.out.closed {
			dst = f.out.writer
		} else {
			f.pendingOut = append(f.pendingOut, b...)
		}
	} else {
		if f.in.present && !f.in.closed {
			dst = f.in.writer
		}
	}

	f.m.Unlock()

	if dst != nil {
		_ = dst.enqueue(b)
	}
}

// onSideClosed marks one side closed and, per the deferred-destruction
// rule, either cascades the close to a still-open peer or fires the
// forwarder's own OnClose once both sides have reported closed.
func (f *fwd) onSideClosed(fromInbound bool) {
	f.m.Lock()

	var cascade net.Conn
	closing := false

	if fromInbound {
		f.in.closed = true
		if !f.out.present || f.out.closed {
			closing = true
		} else {
			cascade = f.out.conn
		}
	} else {
		f.out.closed = true
		if f.in.closed {
			closing = true
		} else {
			cascade = f.in.conn
		}
	}

	var fn func()
	fire := false
	if closing {
		f.done = true
		if !f.fired {
			f.fired = true
			fire = true
			fn = f.onCloseFn
		}
	}

	f.m.Unlock()

	if cascade != nil {
		_ = cascade.Close()
	}
	if fire && fn != nil {
		fn()
	}
}
