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

package config

import (
	"fmt"

	"github.com/nexer-proxy/nexer/internal/nexerr"
)

// resolveReferences turns apps[].preamble and proxies[].upstream.app name
// strings into pointer references against r.Apps, so the supervisor can
// key its bookkeeping off application identity rather than name. Unknown
// names are a parse-time error — cross-referencing a never-declared app
// is always a configuration mistake, never a runtime condition.
func resolveReferences(r *Root) error {
	byName := make(map[string]*Application, len(r.Apps))
	for i := range r.Apps {
		byName[r.Apps[i].Name] = &r.Apps[i]
	}

	for i := range r.Apps {
		app := &r.Apps[i]
		app.PreambleApps = make([]*Application, 0, len(app.Preamble))
		for _, name := range app.Preamble {
			dep, ok := byName[name]
			if !ok {
				return nexerr.ErrConfigMissingApp.Error(fmt.Errorf("app %q: unknown preamble %q", app.Name, name))
			}
			app.PreambleApps = append(app.PreambleApps, dep)
		}
	}

	for i := range r.Proxies {
		up := &r.Proxies[i].Upstream
		if up.App == "" {
			continue
		}
		dep, ok := byName[up.App]
		if !ok {
			return nexerr.ErrConfigMissingApp.Error(fmt.Errorf("proxy %d: unknown upstream app %q", r.Proxies[i].Listen, up.App))
		}
		up.ResolvedApp = dep
	}

	return nil
}
