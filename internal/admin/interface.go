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

// Package admin exposes a small gin-backed HTTP surface for operational
// control of the proxy process: a status endpoint reporting the supervised
// applications and a shutdown endpoint triggering graceful termination.
package admin

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	liblog "github.com/nexer-proxy/nexer/logger"
	loglvl "github.com/nexer-proxy/nexer/logger/level"
	libstartstop "github.com/nexer-proxy/nexer/runner/startStop"

	"github.com/nexer-proxy/nexer/config"
	"github.com/nexer-proxy/nexer/internal/nexerr"
)

// StatusProvider supplies the per-application status rows shown at
// GET /status. The orchestrator implements it over its supervisor.
type StatusProvider func() []AppStatus

// AppStatus describes one supervised application for the status endpoint.
type AppStatus struct {
	Name    string `json:"name"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
}

// Server is the admin HTTP surface. Shutdown is wired by the caller to
// whatever should happen when an operator requests termination.
type Server struct {
	cfg      config.Admin
	log      liblog.FuncLog
	status   StatusProvider
	shutdown context.CancelFunc

	m   sync.Mutex
	r   libstartstop.StartStop
	srv *http.Server
}

// New builds an admin Server bound to cfg. shutdown is called once when
// GET /shutdown is hit; status is queried on every GET /status.
func New(cfg config.Admin, log liblog.FuncLog, status StatusProvider, shutdown context.CancelFunc) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		status:   status,
		shutdown: shutdown,
	}
	s.r = libstartstop.New(s.runStart, s.runStop)
	return s
}

// Serve starts the admin listener and blocks until ctx is cancelled. If
// the listener stops on its own first (for instance because the port is
// already bound), Serve returns the error it stopped with.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.r.Start(ctx); err != nil {
		return err
	}

	tk := time.NewTicker(50 * time.Millisecond)
	defer tk.Stop()

	for {
		select {
		case <-ctx.Done():
			return s.r.Stop(context.Background())
		case <-tk.C:
			if !s.r.IsRunning() {
				return s.r.ErrorsLast()
			}
		}
	}
}

// Close stops the admin listener immediately.
func (s *Server) Close() error {
	return s.r.Stop(context.Background())
}

func (s *Server) listen() string {
	port := s.cfg.Listen
	if port <= 0 {
		port = config.DefaultAdminPort
	}
	return fmt.Sprintf(":%d", port)
}

func (s *Server) logEntry(lvl loglvl.Level, msg string) {
	if s.log == nil {
		return
	}
	s.log().Entry(lvl, msg).Log()
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/status", s.handleStatus)
	r.GET("/shutdown", s.handleShutdown)

	return r
}

func (s *Server) runStart(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listen(),
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.m.Lock()
	s.srv = srv
	s.m.Unlock()

	s.logEntry(loglvl.InfoLevel, fmt.Sprintf("admin server listening on %s", s.listen()))

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) runStop(ctx context.Context) error {
	s.m.Lock()
	srv := s.srv
	s.srv = nil
	s.m.Unlock()

	if srv == nil {
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(cctx); err != nil {
		return nexerr.ErrAdminShutdown.Error(err)
	}
	return nil
}
