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

import (
	"net"
	"sync"

	"github.com/nexer-proxy/nexer/ioutils/bufferReadCloser"
)

// writer owns every write to a single destination connection. Bytes handed
// to enqueue are appended to dataIn; whichever caller finds no write
// already in flight swaps dataIn and dataOut and flushes dataOut to conn
// in one WriteTo call, then checks dataIn again before releasing the send
// right. That loop keeps exactly one write in flight per connection at a
// time and drains strictly in arrival order, so two goroutines handing
// bytes to the same writer can never race or reorder a conn.Write.
type writer struct {
	conn net.Conn

	m       sync.Mutex
	dataIn  bufferReadCloser.Buffer
	dataOut bufferReadCloser.Buffer
	pending int
	sending bool
}

func newWriter(conn net.Conn) *writer {
	return &writer{
		conn:    conn,
		dataIn:  bufferReadCloser.NewBuffer(nil, nil),
		dataOut: bufferReadCloser.NewBuffer(nil, nil),
	}
}

// enqueue appends b and, if this call is the one that finds the writer
// idle, drives the swap-and-flush loop until dataIn is caught up.
func (w *writer) enqueue(b []byte) error {
	w.m.Lock()
	if len(b) > 0 {
		_, _ = w.dataIn.Write(b)
		w.pending += len(b)
	}
	if w.sending {
		w.m.Unlock()
		return nil
	}
	w.sending = true

	for {
		w.dataIn, w.dataOut = w.dataOut, w.dataIn
		w.pending = 0
		out := w.dataOut
		w.m.Unlock()

		if _, err := out.WriteTo(w.conn); err != nil {
			w.m.Lock()
			w.sending = false
			w.m.Unlock()
			return err
		}

		w.m.Lock()
		if w.pending == 0 {
			break
		}
	}

	w.sending = false
	w.m.Unlock()
	return nil
}
