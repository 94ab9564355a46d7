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

// Package viper is a thin, logger-aware wrapper around spf13/viper used to
// locate, read and unmarshal the application configuration file.
package viper

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/spf13/viper"

	liblog "github.com/nexer-proxy/nexer/logger"
	loglvl "github.com/nexer-proxy/nexer/logger/level"
)

// Viper wraps a *viper.Viper instance with config-file discovery, a
// fallback default config reader and typed getters.
type Viper interface {
	// Viper returns the underlying spf13/viper instance for advanced use.
	Viper() *viper.Viper

	// SetConfigFile sets the path to the config file. An empty path falls
	// back to $HOME/.<base>/<base>.conf, requiring SetHomeBaseName to have
	// been called first.
	SetConfigFile(path string) error

	SetHomeBaseName(name string)
	SetEnvVarsPrefix(prefix string)
	SetDefaultConfig(fct func() io.Reader)

	SetRemoteProvider(provider string)
	SetRemoteEndpoint(endpoint string)
	SetRemotePath(path string)
	SetRemoteSecureKey(key string)
	SetRemoteModel(model interface{})
	SetRemoteReloadFunc(fct func())

	// Config reads the config file into the underlying viper instance,
	// falling back to the default config reader (if any) on failure.
	// lvlKO/lvlOK are used to log the outcome.
	Config(lvlKO, lvlOK loglvl.Level) error

	UnmarshalKey(key string, out interface{}) error
	Unmarshal(out interface{}) error

	GetBool(key string) bool
	GetString(key string) string
	GetInt(key string) int
	GetInt32(key string) int32
	GetInt64(key string) int64
	GetUint(key string) uint
	GetUint16(key string) uint16
	GetUint32(key string) uint32
	GetUint64(key string) uint64
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	GetTime(key string) time.Time
	GetIntSlice(key string) []int
	GetStringSlice(key string) []string
	GetStringMap(key string) map[string]interface{}
	GetStringMapString(key string) map[string]string
	GetStringMapStringSlice(key string) map[string][]string
}

// New returns a Viper bound to ctx and logging through log. log may be nil,
// in which case a default logger is created lazily.
func New(ctx context.Context, log liblog.FuncLog) Viper {
	if log == nil {
		log = func() liblog.Logger {
			return liblog.New(ctx)
		}
	}

	return &mod{
		m:   sync.Mutex{},
		ctx: ctx,
		log: log,
		vpr: viper.New(),
	}
}

type mod struct {
	m sync.Mutex

	ctx context.Context
	log liblog.FuncLog

	vpr *viper.Viper

	path     string
	baseName string
	envPfx   string

	defCfg func() io.Reader

	rmtProvider string
	rmtEndpoint string
	rmtPath     string
	rmtSecure   string
	rmtModel    interface{}
	rmtReload   func()
}
