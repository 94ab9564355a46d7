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

package retryconn

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	libticker "github.com/nexer-proxy/nexer/runner/ticker"
)

// run implements the periodic bounded-deadline connect loop: one attempt
// in flight at a time, a fresh attempt per tick, success or deadline
// stop the loop and fire onResult exactly once.
func run(parent context.Context, host string, port int, overallTimeout time.Duration, onAttempt func(), onResult func(net.Conn)) {
	ctx, cancel := context.WithTimeout(parent, overallTimeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", host, port)

	var once sync.Once
	done := make(chan struct{})
	result := func(c net.Conn) {
		once.Do(func() {
			onResult(c)
			close(done)
		})
	}

	var mu sync.Mutex
	inFlight := false

	attempt := func() {
		mu.Lock()
		if inFlight {
			mu.Unlock()
			return
		}
		inFlight = true
		mu.Unlock()

		if onAttempt != nil {
			onAttempt()
		}
		go func() {
			d := net.Dialer{}
			c, err := d.DialContext(ctx, "tcp", addr)

			mu.Lock()
			inFlight = false
			mu.Unlock()

			if err == nil {
				result(c)
			}
		}()
	}

	tk := libticker.New(Period, func(_ context.Context, _ *time.Ticker) error {
		attempt()
		return nil
	})

	attempt()
	_ = tk.Start(ctx)
	defer func() { _ = tk.Stop(context.Background()) }()

	select {
	case <-ctx.Done():
		result(nil)
	case <-done:
	}
}
