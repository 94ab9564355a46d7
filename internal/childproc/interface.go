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

// Package childproc wraps os/exec to give a supervised child process the
// event shape the supervisor expects: data fan-out tagged by file
// descriptor, a single error notification for OS-level spawn failure, and
// exactly one exit notification carrying a folded (code, signal) pair.
package childproc

import (
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/nexer-proxy/nexer/config"
)

const (
	fdStdout = 1
	fdStderr = 2
)

// Exit carries the process' outcome. Signal is the OS signal number that
// terminated the process, or 0 if it exited on its own.
type Exit struct {
	Code   int
	Signal int
}

// Process supervises one child process invocation. All observer
// registration must happen before Start; Start never blocks.
type Process interface {
	// OnData registers a stdout/stderr observer; fd is 1 for stdout, 2 for stderr.
	OnData(fn func(fd int, b []byte)) (handle int)
	// OnError registers an OS-level spawn/IO failure observer.
	OnError(fn func(code int)) (handle int)
	// OnExit registers the exactly-once exit observer.
	OnExit(fn func(e Exit)) (handle int)

	// Start spawns the process. It never blocks; failures are delivered
	// through OnError followed by a synthetic OnExit(-1, -1).
	Start()

	// Input writes to the child's stdin.
	Input(b []byte) error

	// SetTimeout arms a one-shot timer. If the process is still running
	// when it fires, SIGTERM is sent; if Start was never called, a
	// synthetic Exit{-2, 0} is delivered immediately.
	SetTimeout(d time.Duration)

	// Kill sends SIGTERM to the running process, if any.
	Kill() error

	// Pid returns the OS process id, or 0 if the process never started
	// or has already exited.
	Pid() int
}

// New builds a Process from cmd. The parent's environment is captured now
// and merged with cmd.Env at Start time.
func New(cmd config.Command) Process {
	return &proc{
		cmd:     cmd,
		onData:  newHub[dataEvent](),
		onError: newHub[int](),
		onExit:  newHub[Exit](),
	}
}

type dataEvent struct {
	fd int
	b  []byte
}

type proc struct {
	m   sync.Mutex
	cmd config.Command

	onData  *hub[dataEvent]
	onError *hub[int]
	onExit  *hub[Exit]

	exitOnce sync.Once
	timeout  *time.Timer

	execCmd *exec.Cmd
	stdin   io.WriteCloser

	started bool
	exited  bool
}
