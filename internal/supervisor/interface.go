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

// Package supervisor guarantees that, by the time a Require completion
// fires, an application is either running and healthy or a nonzero error
// code explains why it is not — coalescing concurrent requests, running
// preamble dependencies, spawning the process and polling its readiness
// checker.
package supervisor

import (
	"sync"
	"time"

	liblog "github.com/nexer-proxy/nexer/logger"
	libticker "github.com/nexer-proxy/nexer/runner/ticker"

	"github.com/nexer-proxy/nexer/config"
	"github.com/nexer-proxy/nexer/internal/childproc"
)

// readinessPeriod is the post-spawn checker poll interval.
const readinessPeriod = 100 * time.Millisecond

// Completion is invoked exactly once per Require call with the app's
// current process (nil if it never reached a live state) and an error
// code: 0 for healthy, negative for a spawn errno, positive for an exit
// code, signal number, or preamble-failure count.
type Completion func(proc childproc.Process, errCode int)

// Supervisor owns one SupervisedApp per distinct *config.Application
// pointer, keyed by address rather than name.
type Supervisor struct {
	m    sync.Mutex
	apps map[*config.Application]*supervisedApp
	log  liblog.FuncLog

	onStart *hub[childproc.Process]
	onError *hub[procError]
	onData  *hub[procData]
	onExit  *hub[procExit]
}

type procError struct {
	Proc childproc.Process
	Code int
}

type procData struct {
	Proc childproc.Process
	Fd   int
	Data []byte
}

type procExit struct {
	Proc childproc.Process
	Exit childproc.Exit
}

// New returns an empty Supervisor. log may be nil, in which case
// diagnostic messages are dropped.
func New(log liblog.FuncLog) *Supervisor {
	return &Supervisor{
		apps:    make(map[*config.Application]*supervisedApp),
		log:     log,
		onStart: &hub[childproc.Process]{},
		onError: &hub[procError]{},
		onData:  &hub[procData]{},
		onExit:  &hub[procExit]{},
	}
}

func (s *Supervisor) OnProcessStart(fn func(childproc.Process)) { s.onStart.Add(fn) }
func (s *Supervisor) OnProcessError(fn func(childproc.Process, int)) {
	s.onError.Add(func(e procError) { fn(e.Proc, e.Code) })
}
func (s *Supervisor) OnProcessData(fn func(childproc.Process, int, []byte)) {
	s.onData.Add(func(e procData) { fn(e.Proc, e.Fd, e.Data) })
}
func (s *Supervisor) OnProcessExit(fn func(childproc.Process, childproc.Exit)) {
	s.onExit.Add(func(e procExit) { fn(e.Proc, e.Exit) })
}

type supervisedApp struct {
	mu sync.Mutex

	cfg  *config.Application
	proc childproc.Process

	callbacks []Completion
	restart   bool

	pendingPreamble int
	errorPreamble   int

	requireStartTime time.Time
	checkerTimer     libticker.Ticker
	checking         bool
}
