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

package ticker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

func (o *mod) Start(ctx context.Context) error {
	o.m.Lock()
	defer o.m.Unlock()

	o.stopLocked()
	o.startLocked(ctx)

	return nil
}

func (o *mod) Restart(ctx context.Context) error {
	o.m.Lock()
	defer o.m.Unlock()

	o.stopLocked()
	o.startLocked(ctx)

	return nil
}

func (o *mod) Stop(ctx context.Context) error {
	o.m.Lock()
	defer o.m.Unlock()

	o.stopLocked()
	return nil
}

func (o *mod) startLocked(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.done = make(chan struct{})

	o.err.Clear()
	o.running.Store(true)
	o.started.Store(time.Now())

	go o.run(cctx, o.done)
}

func (o *mod) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			o.err.Add(fmt.Errorf("panic in tick function: %v", r))
		}
		o.running.Store(false)
		o.started.Store(time.Time{})
	}()

	tck := time.NewTicker(o.dur)
	defer tck.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tck.C:
			o.tick(ctx, tck)
		}
	}
}

func (o *mod) tick(ctx context.Context, tck *time.Ticker) {
	defer func() {
		if r := recover(); r != nil {
			o.err.Add(fmt.Errorf("panic in tick function: %v", r))
		}
	}()

	f := o.fn
	if f == nil {
		o.err.Add(errors.New("invalid function"))
		return
	}

	if err := f(ctx, tck); err != nil {
		o.err.Add(err)
	}
}

// stopLocked assumes o.m is held. It is idempotent and waits (bounded) for
// the running goroutine to observe cancellation before returning.
func (o *mod) stopLocked() {
	if !o.running.CompareAndSwap(true, false) {
		return
	}

	cancel := o.cancel
	done := o.done
	o.cancel = nil
	o.done = nil

	if cancel != nil {
		cancel()
	}
	o.started.Store(time.Time{})

	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
}

func (o *mod) IsRunning() bool {
	return o.running.Load()
}

func (o *mod) Uptime() time.Duration {
	t, _ := o.started.Load().(time.Time)
	if t.IsZero() {
		return 0
	}
	return time.Since(t)
}

func (o *mod) ErrorsLast() error {
	return o.err.Last()
}

func (o *mod) ErrorsList() []error {
	return o.err.Slice()
}
