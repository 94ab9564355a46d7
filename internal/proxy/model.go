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

package proxy

import (
	"context"
	"net"

	loglvl "github.com/nexer-proxy/nexer/logger/level"

	"github.com/nexer-proxy/nexer/internal/childproc"
	"github.com/nexer-proxy/nexer/internal/forwarder"
	"github.com/nexer-proxy/nexer/internal/nexerr"
	"github.com/nexer-proxy/nexer/internal/retryconn"
)

// handle implements the six-step accept sequence: bind a forwarder to
// the inbound socket, require the upstream app healthy, retry-connect,
// then attach or unwind depending on which side won the race.
func (l *Listener) handle(ctx context.Context, inbound net.Conn) {
	f := forwarder.New(inbound)
	l.register(f)
	f.OnClose(func() { l.unregister(f) })

	app := l.cfg.Upstream.ResolvedApp
	if app == nil {
		l.onUpstreamHealthy(ctx, f)
		return
	}

	l.sup.Require(app, func(_ childproc.Process, errCode int) {
		if errCode != 0 {
			l.logEntry(loglvl.ErrorLevel, nexerr.ErrUpstreamUnhealthy.Error(nil).Error())
			if l.registered(f) {
				f.Close()
			}
			return
		}
		l.onUpstreamHealthy(ctx, f)
	})
}

func (l *Listener) onUpstreamHealthy(ctx context.Context, f forwarder.Forwarder) {
	retryconn.Connect(ctx, l.cfg.Upstream.Host, l.cfg.Upstream.Port, l.connectTimeout(),
		func() { l.logEntry(loglvl.DebugLevel, "connecting upstream") },
		func(conn net.Conn) {
			if !l.registered(f) {
				if conn != nil {
					_ = conn.Close()
				}
				return
			}
			if conn != nil {
				f.SetOutgoing(conn)
			} else {
				l.logEntry(loglvl.ErrorLevel, nexerr.ErrConnectTimeout.Error(nil).Error())
				f.Close()
			}
		},
	)
}
