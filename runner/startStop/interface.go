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

// Package startStop provides a generic start/stop/restart lifecycle wrapper
// around a pair of functions, tracking running state, uptime and the errors
// they return.
package startStop

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	errpool "github.com/nexer-proxy/nexer/errors/pool"
)

// FuncStart is called, in its own goroutine, when the runner is started.
// It is expected to block for the lifetime of the service and return when
// ctx is cancelled by a call to Stop.
type FuncStart func(ctx context.Context) error

// FuncStop is called synchronously by Stop to trigger the shutdown of the
// service started by FuncStart (e.g. calling http.Server.Shutdown).
type FuncStop func(ctx context.Context) error

// StartStop manages the lifecycle of one asynchronous worker defined by a
// start and a stop function.
type StartStop interface {
	// Start launches the start function in a new goroutine. If the runner
	// is already running, the previous instance is stopped first. Start
	// never blocks on the start function itself.
	Start(ctx context.Context) error

	// Stop triggers the stop function and cancels the context given to the
	// start function. It is idempotent: calling it when not running is a
	// no-op.
	Stop(ctx context.Context) error

	// Restart stops then starts the runner, even if it was not running.
	Restart(ctx context.Context) error

	// IsRunning reports whether the start function is currently executing.
	IsRunning() bool

	// Uptime returns the duration since the last successful Start, or zero
	// if the runner is not running.
	Uptime() time.Duration

	// ErrorsLast returns the most recently recorded error, or nil.
	ErrorsLast() error

	// ErrorsList returns every error recorded since the last Start.
	ErrorsList() []error
}

// New returns a StartStop wrapping the given start and stop functions.
// Either may be nil: invoking the lifecycle then records an "invalid start
// function" / "invalid stop function" error instead of panicking.
func New(start FuncStart, stop FuncStop) StartStop {
	o := &mod{
		fnStart: start,
		fnStop:  stop,
		errs:    errpool.New(),
	}
	o.started.Store(time.Time{})
	o.running.Store(false)
	return o
}

type mod struct {
	m sync.Mutex

	fnStart FuncStart
	fnStop  FuncStop

	cancel context.CancelFunc

	running atomic.Bool
	started atomic.Value // time.Time

	errs errpool.Pool
}
