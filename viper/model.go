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

package viper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	loglvl "github.com/nexer-proxy/nexer/logger/level"
)

func (o *mod) Viper() *viper.Viper {
	return o.vpr
}

func (o *mod) SetHomeBaseName(name string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.baseName = name
}

func (o *mod) SetEnvVarsPrefix(prefix string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.envPfx = prefix
}

func (o *mod) SetDefaultConfig(fct func() io.Reader) {
	o.m.Lock()
	defer o.m.Unlock()
	o.defCfg = fct
}

func (o *mod) SetRemoteProvider(provider string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.rmtProvider = provider
}

func (o *mod) SetRemoteEndpoint(endpoint string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.rmtEndpoint = endpoint
}

func (o *mod) SetRemotePath(path string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.rmtPath = path
}

func (o *mod) SetRemoteSecureKey(key string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.rmtSecure = key
}

func (o *mod) SetRemoteModel(model interface{}) {
	o.m.Lock()
	defer o.m.Unlock()
	o.rmtModel = model
}

func (o *mod) SetRemoteReloadFunc(fct func()) {
	o.m.Lock()
	defer o.m.Unlock()
	o.rmtReload = fct
}

func (o *mod) SetConfigFile(path string) error {
	o.m.Lock()
	defer o.m.Unlock()

	if path == "" {
		if o.baseName == "" {
			return fmt.Errorf("cannot retrieve base config path: no home base name set")
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot retrieve base config path: %w", err)
		}

		path = filepath.Join(home, "."+o.baseName, o.baseName+".conf")
	}

	o.path = path
	o.vpr.SetConfigFile(path)

	return nil
}

// Config reads the configured file into the underlying viper instance. On
// failure, it falls back to the default config reader registered through
// SetDefaultConfig, if any; the original error is still returned so the
// caller can decide whether a fallback to defaults is acceptable.
func (o *mod) Config(lvlKO, lvlOK loglvl.Level) (err error) {
	o.m.Lock()
	path := o.path
	pfx := o.envPfx
	def := o.defCfg
	o.m.Unlock()

	if pfx != "" {
		o.vpr.SetEnvPrefix(pfx)
		o.vpr.AutomaticEnv()
	}

	log := o.log()

	if e := o.vpr.ReadInConfig(); e != nil {
		if def == nil {
			log.Entry(lvlKO, "reading config file").ErrorAdd(true, e).Log()
			return fmt.Errorf("cannot read config file %q: %w", path, e)
		}

		r := def()
		if r == nil {
			log.Entry(lvlKO, "reading config file").ErrorAdd(true, e).Log()
			return fmt.Errorf("cannot read config file %q: %w", path, e)
		}

		if e2 := o.vpr.ReadConfig(r); e2 != nil {
			log.Entry(lvlKO, "reading default config").ErrorAdd(true, e2).Log()
			return fmt.Errorf("cannot read config file %q, and default config failed: %w", path, e2)
		}

		log.Entry(lvlOK, "config file not found, using default config").Log()
		return fmt.Errorf("config file %q not found, using default config: %w", path, e)
	}

	log.Entry(lvlOK, "config file loaded").Log()
	return nil
}

func (o *mod) UnmarshalKey(key string, out interface{}) error {
	return o.vpr.UnmarshalKey(key, out, func(c *mapstructure.DecoderConfig) {
		c.TagName = "mapstructure"
		c.ErrorUnused = false
	})
}

func (o *mod) Unmarshal(out interface{}) error {
	return o.vpr.Unmarshal(out, func(c *mapstructure.DecoderConfig) {
		c.TagName = "mapstructure"
		c.ErrorUnused = false
	})
}

func (o *mod) GetBool(key string) bool     { return o.vpr.GetBool(key) }
func (o *mod) GetString(key string) string { return o.vpr.GetString(key) }
func (o *mod) GetInt(key string) int       { return o.vpr.GetInt(key) }
func (o *mod) GetInt32(key string) int32   { return o.vpr.GetInt32(key) }
func (o *mod) GetInt64(key string) int64   { return o.vpr.GetInt64(key) }
func (o *mod) GetUint(key string) uint     { return o.vpr.GetUint(key) }
func (o *mod) GetUint16(key string) uint16 { return o.vpr.GetUint16(key) }
func (o *mod) GetUint32(key string) uint32 { return o.vpr.GetUint32(key) }
func (o *mod) GetUint64(key string) uint64 { return o.vpr.GetUint64(key) }
func (o *mod) GetFloat64(key string) float64 { return o.vpr.GetFloat64(key) }
func (o *mod) GetDuration(key string) time.Duration { return o.vpr.GetDuration(key) }
func (o *mod) GetTime(key string) time.Time         { return o.vpr.GetTime(key) }
func (o *mod) GetIntSlice(key string) []int         { return o.vpr.GetIntSlice(key) }
func (o *mod) GetStringSlice(key string) []string   { return o.vpr.GetStringSlice(key) }
func (o *mod) GetStringMap(key string) map[string]interface{} {
	return o.vpr.GetStringMap(key)
}
func (o *mod) GetStringMapString(key string) map[string]string {
	return o.vpr.GetStringMapString(key)
}
func (o *mod) GetStringMapStringSlice(key string) map[string][]string {
	return o.vpr.GetStringMapStringSlice(key)
}
