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

package startStop

import (
	"context"
	"errors"
	"fmt"
	"time"
)

func (o *mod) Start(ctx context.Context) error {
	o.m.Lock()
	defer o.m.Unlock()

	o.stopLocked(ctx)
	o.startLocked(ctx)

	return nil
}

func (o *mod) Restart(ctx context.Context) error {
	o.m.Lock()
	defer o.m.Unlock()

	o.stopLocked(ctx)
	o.startLocked(ctx)

	return nil
}

func (o *mod) Stop(ctx context.Context) error {
	o.m.Lock()
	defer o.m.Unlock()

	o.stopLocked(ctx)
	return nil
}

// startLocked assumes o.m is held by the caller.
func (o *mod) startLocked(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	o.errs.Clear()
	o.running.Store(true)
	o.started.Store(time.Now())

	go o.run(cctx)
}

func (o *mod) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.errs.Add(fmt.Errorf("panic in start function: %v", r))
		}
		o.running.Store(false)
		o.started.Store(time.Time{})
	}()

	f := o.fnStart
	if f == nil {
		o.errs.Add(errors.New("invalid start function"))
		return
	}

	if err := f(ctx); err != nil {
		o.errs.Add(err)
	}
}

// stopLocked assumes o.m is held by the caller. It is idempotent: calling it
// when the runner is not running is a no-op.
func (o *mod) stopLocked(ctx context.Context) {
	if !o.running.CompareAndSwap(true, false) {
		return
	}

	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.started.Store(time.Time{})

	o.invokeStop(ctx)
}

func (o *mod) invokeStop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			o.errs.Add(fmt.Errorf("panic in stop function: %v", r))
		}
	}()

	f := o.fnStop
	if f == nil {
		o.errs.Add(errors.New("invalid stop function"))
		return
	}

	if err := f(ctx); err != nil {
		o.errs.Add(err)
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
	return o.errs.Last()
}

func (o *mod) ErrorsList() []error {
	return o.errs.Slice()
}
