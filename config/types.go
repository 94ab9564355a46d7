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

// Package config models nexer's flat configuration document: the admin
// endpoint, the logger, the proxy listeners and the named application
// pool they reference.
package config

// Command describes a single executable invocation, shared by an
// application's own command and its optional checker.
type Command struct {
	File    string   `mapstructure:"file"`
	Args    []string `mapstructure:"args"`
	Env     []string `mapstructure:"env"`
	Cwd     string   `mapstructure:"cwd"`
	Timeout int      `mapstructure:"timeout"`
}

// Application is a named, supervised process, with an optional readiness
// checker and an optional list of preamble dependencies.
type Application struct {
	Name         string   `mapstructure:"name"`
	Command      Command  `mapstructure:"command"`
	Checker      *Command `mapstructure:"checker"`
	MaxStartTime int      `mapstructure:"max_start_time"`
	Preamble     []string `mapstructure:"preamble"`
	Tags         []string `mapstructure:"tags"`

	// PreambleApps is resolved from Preamble (name references into
	// Root.Apps) after Load; by-address, not by-name, per the
	// supervisor's bookkeeping rule.
	PreambleApps []*Application `mapstructure:"-"`
}

// Upstream is the proxy's backend address plus the optional application
// that must be healthy before the proxy connects to it.
type Upstream struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ConnectTimeout int      `mapstructure:"connect_timeout"`
	App            string   `mapstructure:"app"`
	Tags           []string `mapstructure:"tags"`

	// ResolvedApp is App resolved against Root.Apps after Load.
	ResolvedApp *Application `mapstructure:"-"`
}

// Proxy is a single front-facing TCP listener.
type Proxy struct {
	Listen   int      `mapstructure:"listen"`
	Upstream Upstream `mapstructure:"upstream"`
}

// Admin configures the admin HTTP endpoint.
type Admin struct {
	Listen int `mapstructure:"listen"`
}

// Logger configures the file-backed structured logger.
type Logger struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Root is the top-level configuration document.
type Root struct {
	Admin   Admin         `mapstructure:"admin"`
	Logger  Logger        `mapstructure:"logger"`
	Proxies []Proxy       `mapstructure:"proxies"`
	Apps    []Application `mapstructure:"apps"`
}

const (
	DefaultAdminPort      = 19500
	DefaultLoggerFile     = "nexer.log"
	DefaultLoggerLevel    = "INFO"
	DefaultConnectTimeout = 30000
	DefaultCheckerTimeout = 10000
)
