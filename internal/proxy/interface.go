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

// Package proxy implements the on-demand TCP reverse proxy listener: on
// accept, it makes sure the upstream application is healthy, then
// connects and bridges the two sockets.
package proxy

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	liblog "github.com/nexer-proxy/nexer/logger"
	loglvl "github.com/nexer-proxy/nexer/logger/level"

	"github.com/nexer-proxy/nexer/config"
	"github.com/nexer-proxy/nexer/internal/forwarder"
	"github.com/nexer-proxy/nexer/internal/nexerr"
	"github.com/nexer-proxy/nexer/internal/retryconn"
	"github.com/nexer-proxy/nexer/internal/supervisor"
)

// Listener owns one bound front port and its upstream descriptor.
type Listener struct {
	cfg  config.Proxy
	sup  *supervisor.Supervisor
	log  liblog.FuncLog
	name string

	ln net.Listener

	m      sync.Mutex
	active map[forwarder.Forwarder]struct{}
}

// New builds a Listener for cfg, bound to sup for upstream health checks.
func New(cfg config.Proxy, sup *supervisor.Supervisor, log liblog.FuncLog) *Listener {
	return &Listener{
		cfg:    cfg,
		sup:    sup,
		log:    log,
		name:   fmt.Sprintf("%s:%d", cfg.Upstream.Host, cfg.Upstream.Port),
		active: make(map[forwarder.Forwarder]struct{}),
	}
}

// Serve binds the front port and accepts connections until ctx is
// cancelled or Close is called.
func (l *Listener) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", l.cfg.Listen))
	if err != nil {
		return nexerr.ErrBindFailed.Error(err)
	}

	l.m.Lock()
	l.ln = ln
	l.m.Unlock()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil
		}
		go l.handle(ctx, conn)
	}
}

// Close stops accepting and closes every still-registered forwarder.
func (l *Listener) Close() error {
	l.m.Lock()
	ln := l.ln
	fwds := make([]forwarder.Forwarder, 0, len(l.active))
	for f := range l.active {
		fwds = append(fwds, f)
	}
	l.m.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	for _, f := range fwds {
		f.Close()
	}
	return nil
}

func (l *Listener) register(f forwarder.Forwarder) {
	l.m.Lock()
	l.active[f] = struct{}{}
	l.m.Unlock()
}

func (l *Listener) unregister(f forwarder.Forwarder) {
	l.m.Lock()
	delete(l.active, f)
	l.m.Unlock()
}

func (l *Listener) registered(f forwarder.Forwarder) bool {
	l.m.Lock()
	defer l.m.Unlock()
	_, ok := l.active[f]
	return ok
}

func (l *Listener) connectTimeout() time.Duration {
	ms := l.cfg.Upstream.ConnectTimeout
	if ms <= 0 {
		ms = config.DefaultConnectTimeout
	}
	return time.Duration(ms) * time.Millisecond
}

func (l *Listener) logEntry(lvl loglvl.Level, msg string) {
	if l.log == nil {
		return
	}
	l.log().Entry(lvl, fmt.Sprintf("%s: %s", l.name, msg)).Log()
}
