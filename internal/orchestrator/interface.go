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

// Package orchestrator wires a loaded configuration into a running process:
// one supervisor, one proxy listener per configured front port and one
// admin endpoint, all stopped together on shutdown.
package orchestrator

import (
	"context"
	"sync"

	liblog "github.com/nexer-proxy/nexer/logger"

	"github.com/nexer-proxy/nexer/config"
	"github.com/nexer-proxy/nexer/internal/admin"
	"github.com/nexer-proxy/nexer/internal/proxy"
	"github.com/nexer-proxy/nexer/internal/supervisor"
)

// Orchestrator owns every long-lived component built from a Root
// configuration document.
type Orchestrator struct {
	cfg *config.Root
	log liblog.FuncLog
	sup *supervisor.Supervisor

	listeners []*proxy.Listener
	admin     *admin.Server

	m    sync.Mutex
	wg   sync.WaitGroup
	done context.CancelFunc
}

// New builds an Orchestrator for cfg. It does not start anything; call
// Run to serve until ctx is cancelled.
func New(cfg *config.Root, log liblog.FuncLog) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		log: log,
		sup: supervisor.New(log),
	}

	for _, p := range cfg.Proxies {
		o.listeners = append(o.listeners, proxy.New(p, o.sup, log))
	}

	return o
}

// Run starts every proxy listener and the admin endpoint, and blocks
// until ctx is cancelled or Shutdown is called. If a proxy listener
// fails to bind its front port, everything is stopped and that error is
// returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	rctx, cancel := context.WithCancel(ctx)

	o.m.Lock()
	o.done = cancel
	o.m.Unlock()

	o.admin = admin.New(o.cfg.Admin, o.log, o.statusSnapshot, cancel)

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		_ = o.admin.Serve(rctx)
	}()

	var (
		errOnce sync.Once
		runErr  error
	)

	for _, l := range o.listeners {
		l := l
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			if err := l.Serve(rctx); err != nil {
				errOnce.Do(func() { runErr = err })
				cancel()
			}
		}()
	}

	<-rctx.Done()
	o.Close()
	o.wg.Wait()
	return runErr
}

// Shutdown requests a graceful stop, equivalent to the admin endpoint's
// own shutdown action.
func (o *Orchestrator) Shutdown() {
	o.m.Lock()
	done := o.done
	o.m.Unlock()

	if done != nil {
		done()
	}
}

func (o *Orchestrator) statusSnapshot() []admin.AppStatus {
	snap := o.sup.Snapshot()
	out := make([]admin.AppStatus, 0, len(snap))
	for _, s := range snap {
		out = append(out, admin.AppStatus{Name: s.Name, Running: s.Running, PID: s.PID})
	}
	return out
}

// Close stops every listener and the admin endpoint without waiting for
// Run's goroutines to drain.
func (o *Orchestrator) Close() {
	for _, l := range o.listeners {
		_ = l.Close()
	}
	if o.admin != nil {
		_ = o.admin.Close()
	}
}
