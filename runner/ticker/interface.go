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

// Package ticker runs a function periodically on a time.Ticker, tracking
// running state, uptime and the errors it returns without interrupting the
// periodic execution.
package ticker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	errpool "github.com/nexer-proxy/nexer/errors/pool"
)

// minDuration is the lowest accepted tick period. Durations below it are
// replaced by defaultDuration.
const minDuration = 1 * time.Millisecond

// defaultDuration is used when the requested duration is not usable.
const defaultDuration = 1 * time.Second

// FuncTick is called on every tick. A returned error is recorded but never
// stops the ticker.
type FuncTick func(ctx context.Context, tck *time.Ticker) error

// Ticker manages the lifecycle of a function run periodically.
type Ticker interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
	IsRunning() bool
	Uptime() time.Duration
	ErrorsLast() error
	ErrorsList() []error
}

// New returns a Ticker invoking fn every d. If d is below minDuration,
// defaultDuration is used instead. fn may be nil, in which case every tick
// records an "invalid function" error.
func New(d time.Duration, fn FuncTick) Ticker {
	if d < minDuration {
		d = defaultDuration
	}

	o := &mod{
		dur: d,
		fn:  fn,
		err: errpool.New(),
	}
	o.started.Store(time.Time{})
	o.running.Store(false)
	return o
}

type mod struct {
	m sync.Mutex

	dur time.Duration
	fn  FuncTick

	cancel context.CancelFunc
	done   chan struct{}

	running atomic.Bool
	started atomic.Value // time.Time

	err errpool.Pool
}
