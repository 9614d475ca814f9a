/*
 * Boot configuration loader and device factory registry.
 *
 * Copyright 2026, The segcore Authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package config loads the machine's boot configuration (memory
// layout, CPU/core topology, storage images, ambient settings) through
// viper, against an afero.Fs so tests can supply an in-memory
// filesystem instead of touching disk.
//
// Grounded on config/configparser/configparser.go's RegisterModel
// device-registration hook, generalized from that package's
// hand-rolled line grammar to viper's format-agnostic (YAML/TOML/env)
// unmarshaling: device *construction* keeps the same
// register-a-factory-by-name shape, while document parsing itself is
// delegated to the corpus's config library instead of re-implemented.
package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/segcore/segcore/internal/icache"
	"github.com/segcore/segcore/internal/memctl"
)

// CoreSpec is one core's boot configuration.
type CoreSpec struct {
	ID         string `mapstructure:"id"`
	CS         uint8  `mapstructure:"cs"`
	DS         uint8  `mapstructure:"ds"`
	SP         uint16 `mapstructure:"sp"`
	IP         uint16 `mapstructure:"ip"`
	Privileged bool   `mapstructure:"privileged"`
}

// CPUSpec groups the cores owned by one CPU supervisor.
type CPUSpec struct {
	ID    string     `mapstructure:"id"`
	Cores []CoreSpec `mapstructure:"cores"`
}

// DeviceSpec is one config-driven device: Type selects the registered
// factory (e.g. "storage", "console"), Params are factory-specific.
type DeviceSpec struct {
	Type   string                 `mapstructure:"type"`
	Name   string                 `mapstructure:"name"`
	Params map[string]interface{} `mapstructure:"params"`
}

// MachineSpec is the full document a boot config file unmarshals into.
type MachineSpec struct {
	PageSize       uint32       `mapstructure:"page_size"`
	IntTableAddr   uint32       `mapstructure:"int_table_addr"`
	IRQTableAddr   uint32       `mapstructure:"irq_table_addr"`
	ICacheCapacity int          `mapstructure:"icache_capacity"`
	LogLevel       string       `mapstructure:"log_level"`
	MetricsAddr    string       `mapstructure:"metrics_addr"`
	CPUs           []CPUSpec    `mapstructure:"cpus"`
	Devices        []DeviceSpec `mapstructure:"devices"`
}

// Load reads and unmarshals the config file at path on fs, applying
// the same defaults an inline config parser would apply at parse time
// (page size, cache capacity, log level, metrics address).
func Load(fs afero.Fs, path string) (*MachineSpec, error) {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)

	v.SetDefault("page_size", memctl.DefaultPageSize)
	v.SetDefault("icache_capacity", icache.DefaultCapacity)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":9090")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var spec MachineSpec
	if err := v.Unmarshal(&spec); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &spec, nil
}

// DeviceFactory builds a device from a DeviceSpec's Params and the
// shared afero filesystem. Storage devices satisfy
// internal/machine.Worker; the console does not. Port and virq
// registration is left to the caller.
type DeviceFactory func(fs afero.Fs, params map[string]interface{}) (interface{}, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]DeviceFactory{}
)

// RegisterDeviceFactory binds a device type name to its constructor.
// Intended to be called from each device package's init(), mirroring
// configparser.RegisterModel's "devices register themselves" pattern.
func RegisterDeviceFactory(name string, fn DeviceFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = fn
}

// BuildDevice looks up the factory registered for spec.Type and
// invokes it.
func BuildDevice(fs afero.Fs, spec DeviceSpec) (interface{}, error) {
	factoriesMu.RLock()
	fn, ok := factories[spec.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("config: no device factory registered for type %q", spec.Type)
	}
	return fn(fs, spec.Params)
}

// RegisteredDeviceTypes returns the sorted list of known device type
// names.
func RegisteredDeviceTypes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
