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
	"bytes"
	"context"
	"os"
	"regexp"

	loglvl "github.com/nexer-proxy/nexer/logger/level"
	libvpr "github.com/nexer-proxy/nexer/viper"

	"github.com/nexer-proxy/nexer/internal/nexerr"
)

// jsonComment strips // line comments and /* */ block comments so the
// config document can use the JSON-with-comments dialect described in
// the external interface, before handing it to viper's JSON decoder.
var jsonComment = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)

func stripComments(b []byte) []byte {
	return jsonComment.ReplaceAll(b, nil)
}

// Load reads, strips comments from, parses and resolves the
// configuration document at path. Name references in apps[].preamble
// and proxies[].upstream.app are resolved into pointers (ResolvedApp /
// PreambleApps) against apps[] by identity, matching the "identity is
// the address, not the name" rule used for supervisor bookkeeping.
func Load(ctx context.Context, path string) (*Root, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nexerr.ErrConfigParse.Error(err)
	}

	v := libvpr.New(ctx, nil)
	v.Viper().SetConfigType("json")

	if e := v.Viper().ReadConfig(bytes.NewReader(stripComments(raw))); e != nil {
		return nil, nexerr.ErrConfigParse.Error(e)
	}

	r := &Root{}
	if e := v.Unmarshal(r); e != nil {
		return nil, nexerr.ErrConfigParse.Error(e)
	}

	applyDefaults(r)

	if e := resolveReferences(r); e != nil {
		return nil, e
	}

	return r, nil
}

func applyDefaults(r *Root) {
	if r.Admin.Listen == 0 {
		r.Admin.Listen = DefaultAdminPort
	}
	if r.Logger.File == "" {
		r.Logger.File = DefaultLoggerFile
	}
	if r.Logger.Level == "" {
		r.Logger.Level = DefaultLoggerLevel
	}

	for i := range r.Proxies {
		if r.Proxies[i].Upstream.ConnectTimeout == 0 {
			r.Proxies[i].Upstream.ConnectTimeout = DefaultConnectTimeout
		}
	}

	for i := range r.Apps {
		if r.Apps[i].Checker != nil && r.Apps[i].Checker.Timeout == 0 {
			r.Apps[i].Checker.Timeout = DefaultCheckerTimeout
		}
	}
}

// ParseLevel resolves the textual logger.level into a logger/level.Level,
// defaulting to InfoLevel for an unrecognized value.
func ParseLevel(l Logger) loglvl.Level {
	if l.Level == "" {
		return loglvl.InfoLevel
	}
	return loglvl.Parse(l.Level)
}
