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

// Package retryconn dials a TCP upstream on a fixed period until it
// succeeds or an overall deadline elapses, tolerating a slow-starting
// process behind the address.
package retryconn

import (
	"context"
	"net"
	"time"
)

// Period is the fixed interval between connect attempts: fast enough to
// notice a just-opened port, slow enough to avoid thrashing a cold start.
const Period = 500 * time.Millisecond

// Connect dials host:port every Period until a connection succeeds or
// overallTimeout elapses. onAttempt, if non-nil, fires once per attempt
// started. onResult fires exactly once with the connected net.Conn, or
// nil if the deadline was reached first.
func Connect(ctx context.Context, host string, port int, overallTimeout time.Duration, onAttempt func(), onResult func(net.Conn)) {
	go run(ctx, host, port, overallTimeout, onAttempt, onResult)
}
