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

// AppStatus is a point-in-time snapshot of one supervised application,
// for reporting over the admin endpoint.
type AppStatus struct {
	Name    string
	Running bool
	PID     int
}

// Snapshot returns the current status of every application the
// supervisor has ever been asked to Require.
func (s *Supervisor) Snapshot() []AppStatus {
	s.m.Lock()
	apps := make([]*supervisedApp, 0, len(s.apps))
	for _, a := range s.apps {
		apps = append(apps, a)
	}
	s.m.Unlock()

	out := make([]AppStatus, 0, len(apps))
	for _, a := range apps {
		a.mu.Lock()
		name := a.cfg.Name
		proc := a.proc
		a.mu.Unlock()

		st := AppStatus{Name: name}
		if proc != nil {
			st.PID = proc.Pid()
			st.Running = st.PID != 0
		}
		out = append(out, st)
	}
	return out
}
