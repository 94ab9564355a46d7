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

package childproc

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"
)

func (p *proc) OnData(fn func(fd int, b []byte)) int {
	return p.onData.Add(func(e dataEvent) { fn(e.fd, e.b) })
}

func (p *proc) OnError(fn func(code int)) int {
	return p.onError.Add(fn)
}

func (p *proc) OnExit(fn func(e Exit)) int {
	return p.onExit.Add(fn)
}

func (p *proc) Input(b []byte) error {
	p.m.Lock()
	w := p.stdin
	p.m.Unlock()

	if w == nil {
		return errors.New("process has no stdin")
	}
	_, err := w.Write(b)
	return err
}

func (p *proc) SetTimeout(d time.Duration) {
	p.m.Lock()
	started := p.started
	p.m.Unlock()

	if !started {
		p.fireExitOnce(Exit{Code: -2, Signal: 0})
		return
	}

	p.m.Lock()
	p.timeout = time.AfterFunc(d, func() {
		_ = p.Kill()
	})
	p.m.Unlock()
}

func (p *proc) Kill() error {
	p.m.Lock()
	c := p.execCmd
	p.m.Unlock()

	if c == nil || c.Process == nil {
		return nil
	}
	return c.Process.Signal(syscall.SIGTERM)
}

func (p *proc) Pid() int {
	p.m.Lock()
	defer p.m.Unlock()

	if p.execCmd == nil || p.execCmd.Process == nil || p.exited {
		return 0
	}
	return p.execCmd.Process.Pid
}

// Start spawns the command, wiring the parent's environment (later
// entries win; KEY= clears an inherited value, bare KEY is ignored).
func (p *proc) Start() {
	p.m.Lock()
	args := append([]string{}, p.cmd.Args...)
	env := mergeEnv(os.Environ(), p.cmd.Env)
	cwd := p.cmd.Cwd
	file := p.cmd.File
	p.m.Unlock()

	c := exec.Command(file, args...)
	c.Env = env
	c.Dir = cwd

	stdin, errIn := c.StdinPipe()
	stdout, errOut := c.StdoutPipe()
	stderr, errErr := c.StderrPipe()

	if errIn != nil || errOut != nil || errErr != nil {
		p.spawnFailed(firstNonNil(errIn, errOut, errErr))
		return
	}

	if err := c.Start(); err != nil {
		p.spawnFailed(err)
		return
	}

	p.m.Lock()
	p.started = true
	p.execCmd = c
	p.stdin = stdin
	p.m.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go p.pump(fdStdout, stdout, &wg)
	go p.pump(fdStderr, stderr, &wg)

	go func() {
		wg.Wait()
		err := c.Wait()
		p.reportExit(err)
	}()
}

func (p *proc) pump(fd int, r io.Reader, wg *sync.WaitGroup) {
	defer wg.Done()

	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			b := make([]byte, n)
			copy(b, buf[:n])
			p.onData.Fire(dataEvent{fd: fd, b: b})
		}
		if err != nil {
			return
		}
	}
}

func (p *proc) spawnFailed(err error) {
	code := -1
	var errno syscall.Errno
	if errors.As(err, &errno) {
		code = -int(errno)
	} else if errors.Is(err, exec.ErrNotFound) {
		code = -int(syscall.ENOENT)
	}
	p.onError.Fire(code)
	p.fireExitOnce(Exit{Code: -1, Signal: -1})
}

func (p *proc) reportExit(err error) {
	code, signal := 0, 0

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
			if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				signal = int(ws.Signal())
				// a signalled process has no exit status of its own
				code = 0
			}
		} else {
			code = -1
		}
	}

	if code == 0 {
		code = signal
	}

	p.fireExitOnce(Exit{Code: code, Signal: signal})
}

func (p *proc) fireExitOnce(e Exit) {
	p.exitOnce.Do(func() {
		p.m.Lock()
		p.exited = true
		if p.timeout != nil {
			p.timeout.Stop()
		}
		p.m.Unlock()
		p.onExit.Fire(e)
	})
}

// mergeEnv applies overrides onto base: "KEY=VAL" sets/overrides, "KEY="
// clears the key (keeps it present but empty), a bare "KEY" with no "="
// is ignored, and later overrides win over earlier ones.
func mergeEnv(base, overrides []string) []string {
	idx := make(map[string]int, len(base))
	out := append([]string{}, base...)

	for i, kv := range out {
		if k, _, ok := strings.Cut(kv, "="); ok {
			idx[k] = i
		}
	}

	for _, ov := range overrides {
		k, v, ok := strings.Cut(ov, "=")
		if !ok {
			continue
		}
		entry := k + "=" + v
		if i, exists := idx[k]; exists {
			out[i] = entry
		} else {
			idx[k] = len(out)
			out = append(out, entry)
		}
	}

	return out
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}
