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

// Package nexerr registers the structured error codes used to log and
// classify failures raised by the supervisor, forwarder, retry connector
// and configuration loader. These codes are for diagnostics only: the
// numeric outcome of a supervisor Require (errno / exit code / preamble
// count) is carried as a plain int, per spec.
package nexerr

import "github.com/nexer-proxy/nexer/errors"

const (
	ErrConfigParse errors.CodeError = iota + errors.MinAvailable
	ErrConfigMissingApp
	ErrSpawnFailed
	ErrCheckerNonZero
	ErrCheckerTimeout
	ErrPreambleFailed
	ErrConnectTimeout
	ErrUpstreamUnhealthy
	ErrBindFailed
	ErrAdminShutdown
)

func init() {
	errors.RegisterIdFctMessage(ErrConfigParse, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrConfigParse:
		return "cannot parse configuration file"
	case ErrConfigMissingApp:
		return "preamble or upstream references an unknown application name"
	case ErrSpawnFailed:
		return "failed to spawn application process"
	case ErrCheckerNonZero:
		return "readiness checker exited with a non-zero status"
	case ErrCheckerTimeout:
		return "readiness checker timed out"
	case ErrPreambleFailed:
		return "one or more preamble applications failed to become ready"
	case ErrConnectTimeout:
		return "upstream connection attempts exhausted the connect deadline"
	case ErrUpstreamUnhealthy:
		return "upstream application did not become healthy"
	case ErrBindFailed:
		return "failed to bind a listener"
	case ErrAdminShutdown:
		return "admin endpoint shutdown failed"
	}
	return ""
}
