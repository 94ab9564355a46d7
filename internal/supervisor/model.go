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

package supervisor

import (
	"context"
	"syscall"
	"time"

	loglvl "github.com/nexer-proxy/nexer/logger/level"
	libticker "github.com/nexer-proxy/nexer/runner/ticker"

	"github.com/nexer-proxy/nexer/config"
	"github.com/nexer-proxy/nexer/internal/childproc"
	"github.com/nexer-proxy/nexer/internal/nexerr"
)

func (s *Supervisor) logEntry(lvl loglvl.Level, msg string) {
	if s.log == nil {
		return
	}
	s.log().Entry(lvl, msg).Log()
}

// enoent is the negative errno childproc reports for a missing checker
// binary; per the supervisor's tie-break policy this is treated as
// readiness success, not failure.
var enoent = -int(syscall.ENOENT)

func (s *Supervisor) getApp(cfg *config.Application) *supervisedApp {
	s.m.Lock()
	defer s.m.Unlock()

	a, ok := s.apps[cfg]
	if !ok {
		a = &supervisedApp{cfg: cfg}
		s.apps[cfg] = a
	}
	return a
}

// Require is the supervisor's only entry point. cb fires exactly once.
func (s *Supervisor) Require(cfg *config.Application, cb Completion) {
	app := s.getApp(cfg)

	app.mu.Lock()
	app.callbacks = append(app.callbacks, cb)
	first := len(app.callbacks) == 1
	app.mu.Unlock()

	if !first {
		return
	}

	s.check(app, func(errCode int) {
		if errCode == 0 {
			app.mu.Lock()
			healthy := app.cfg.Checker != nil || app.proc != nil
			app.mu.Unlock()

			if healthy {
				s.clearCallbacks(app, 0)
				return
			}

			app.mu.Lock()
			app.requireStartTime = time.Now()
			app.mu.Unlock()
			s.startPath(app)
			return
		}

		app.mu.Lock()
		proc := app.proc
		alive := proc != nil
		if alive {
			app.restart = true
		}
		app.mu.Unlock()

		if alive {
			_ = proc.Kill()
			return
		}

		app.mu.Lock()
		app.requireStartTime = time.Now()
		app.mu.Unlock()
		s.startPath(app)
	})
}

// check runs the app's checker once (no checker configured is treated as
// immediate success) and reports the folded result exactly once.
func (s *Supervisor) check(app *supervisedApp, then func(int)) {
	if app.cfg.Checker == nil {
		then(0)
		return
	}

	p := childproc.New(*app.cfg.Checker)

	fired := false
	fire := func(code int) {
		if fired {
			return
		}
		fired = true
		then(code)
	}

	p.OnData(func(fd int, b []byte) { s.onData.Fire(procData{Proc: p, Fd: fd, Data: b}) })
	p.OnError(func(code int) {
		s.onError.Fire(procError{Proc: p, Code: code})
		fire(code)
	})
	p.OnExit(func(e childproc.Exit) {
		s.onExit.Fire(procExit{Proc: p, Exit: e})
		fire(e.Code)
	})

	p.Start()
	s.onStart.Fire(p)

	if app.cfg.Checker.Timeout > 0 {
		p.SetTimeout(time.Duration(app.cfg.Checker.Timeout) * time.Millisecond)
	}
}

// startPath runs the preamble phase, then spawns the process and arms
// the post-spawn readiness loop.
func (s *Supervisor) startPath(app *supervisedApp) {
	s.checkPreamble(app, func(errCode int) {
		if errCode != 0 {
			s.logEntry(loglvl.ErrorLevel, nexerr.ErrPreambleFailed.Error(nil).Error())
			s.clearCallbacks(app, errCode)
			return
		}
		s.spawn(app)
	})
}

func (s *Supervisor) checkPreamble(app *supervisedApp, then func(int)) {
	app.mu.Lock()
	deps := append([]*config.Application{}, app.cfg.PreambleApps...)
	app.mu.Unlock()

	if len(deps) == 0 {
		then(0)
		return
	}

	app.mu.Lock()
	app.pendingPreamble = len(deps)
	app.errorPreamble = 0
	app.mu.Unlock()

	for _, dep := range deps {
		s.Require(dep, func(_ childproc.Process, err int) {
			app.mu.Lock()
			app.pendingPreamble--
			if err != 0 {
				app.errorPreamble++
			}
			done := app.pendingPreamble == 0
			count := app.errorPreamble
			app.mu.Unlock()

			if done {
				then(count)
			}
		})
	}
}

func (s *Supervisor) spawn(app *supervisedApp) {
	p := childproc.New(app.cfg.Command)

	p.OnData(func(fd int, b []byte) { s.onData.Fire(procData{Proc: p, Fd: fd, Data: b}) })

	p.OnError(func(code int) {
		s.onError.Fire(procError{Proc: p, Code: code})
		s.logEntry(loglvl.ErrorLevel, nexerr.ErrSpawnFailed.Error(nil).Error())
		app.mu.Lock()
		app.proc = nil
		app.mu.Unlock()
		s.clearCallbacks(app, code)
	})

	p.OnExit(func(e childproc.Exit) {
		s.onExit.Fire(procExit{Proc: p, Exit: e})

		app.mu.Lock()
		app.proc = nil
		restart := app.restart
		hasChecker := app.cfg.Checker != nil
		if restart {
			app.restart = false
		}
		app.mu.Unlock()

		if e.Code == 0 {
			return
		}
		if restart {
			s.startPath(app)
		} else if !hasChecker {
			s.clearCallbacks(app, e.Code)
		}
	})

	app.mu.Lock()
	app.proc = p
	app.mu.Unlock()

	if app.cfg.Command.Timeout > 0 {
		p.SetTimeout(time.Duration(app.cfg.Command.Timeout) * time.Millisecond)
	}

	s.armReadinessLoop(app)

	p.Start()
	s.onStart.Fire(p)
}

func (s *Supervisor) armReadinessLoop(app *supervisedApp) {
	tk := libticker.New(readinessPeriod, func(ctx context.Context, _ *time.Ticker) error {
		app.mu.Lock()
		empty := len(app.callbacks) == 0
		checking := app.checking
		if !empty && !checking {
			app.checking = true
		}
		shouldCheck := !empty && !checking
		app.mu.Unlock()

		if empty {
			s.stopReadiness(app)
			return nil
		}
		if !shouldCheck {
			return nil
		}

		s.check(app, func(errCode int) {
			app.mu.Lock()
			elapsed := time.Since(app.requireStartTime)
			maxStart := app.cfg.MaxStartTime
			app.mu.Unlock()

			timeout := maxStart > 0 && elapsed > time.Duration(maxStart)*time.Millisecond

			if timeout && errCode != 0 && errCode != enoent {
				s.logEntry(loglvl.ErrorLevel, nexerr.ErrCheckerTimeout.Error(nil).Error())
			} else if errCode != 0 && errCode != enoent {
				s.logEntry(loglvl.WarnLevel, nexerr.ErrCheckerNonZero.Error(nil).Error())
			}

			if errCode == 0 || errCode == enoent || timeout {
				s.stopReadiness(app)
				s.clearCallbacks(app, errCode)
			}

			app.mu.Lock()
			app.checking = false
			app.mu.Unlock()
		})
		return nil
	})

	app.mu.Lock()
	app.checkerTimer = tk
	app.mu.Unlock()

	_ = tk.Start(context.Background())
}

// stopReadiness stops the readiness ticker asynchronously: calling Stop
// synchronously from within the ticker's own tick function would block
// until its run goroutine observes cancellation, which it cannot do
// until the tick call returns.
func (s *Supervisor) stopReadiness(app *supervisedApp) {
	app.mu.Lock()
	tk := app.checkerTimer
	app.checkerTimer = nil
	app.mu.Unlock()

	if tk != nil {
		go func() { _ = tk.Stop(context.Background()) }()
	}
}

func (s *Supervisor) clearCallbacks(app *supervisedApp, errCode int) {
	app.mu.Lock()
	cbs := app.callbacks
	app.callbacks = nil
	proc := app.proc
	app.mu.Unlock()

	for _, cb := range cbs {
		cb(proc, errCode)
	}
}
