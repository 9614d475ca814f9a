/*
 * segcored - Build a machine from a boot config document.
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

package main

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/segcore/segcore/internal/bus"
	"github.com/segcore/segcore/internal/config"
	"github.com/segcore/segcore/internal/core"
	"github.com/segcore/segcore/internal/icache"
	"github.com/segcore/segcore/internal/machine"
	"github.com/segcore/segcore/internal/memctl"
	"github.com/segcore/segcore/internal/metrics"
	"github.com/segcore/segcore/internal/portbus"
	"github.com/segcore/segcore/internal/storage"
	"github.com/segcore/segcore/internal/vdevice"
)

// paramUint reads an integer-shaped param out of the loosely-typed
// map viper/mapstructure hands back (float64 for YAML/JSON numbers,
// int for some TOML paths), defaulting to 0 if absent.
func paramUint(params map[string]interface{}, key string) uint64 {
	switch v := params[key].(type) {
	case float64:
		return uint64(v)
	case int:
		return uint64(v)
	case int64:
		return uint64(v)
	case uint64:
		return v
	default:
		return 0
	}
}

// buildMachine wires a machine.Machine from a loaded MachineSpec: the
// memory controller, virtual-interrupt registry, port table and bus
// first (boot order begins at the memory controller), then
// config-driven devices, then CPUs and their cores, each core with its
// own instruction cache.
func buildMachine(spec *config.MachineSpec, fs afero.Fs, log *zap.SugaredLogger, met *metrics.Metrics) (*machine.Machine, [][]core.BootState, error) {
	mem := memctl.New(spec.PageSize)
	virq := vdevice.NewRegistry()
	ports := portbus.NewTable()
	b := bus.New()

	m := machine.New(mem, virq, ports, b, log)

	blockIO := vdevice.NewBlockIO()
	blockIOAttached := false

	for _, d := range spec.Devices {
		built, err := config.BuildDevice(fs, d)
		if err != nil {
			return nil, nil, fmt.Errorf("segcored: device %q: %w", d.Name, err)
		}

		switch dev := built.(type) {
		case *storage.FileBackedStorage:
			devID := uint16(paramUint(d.Params, "device_id"))
			blockIO.Attach(devID, dev)
			blockIOAttached = true
			m.AddDevice(dev)
		case *portbus.Console:
			statusPort := uint16(paramUint(d.Params, "status_port"))
			if statusPort == 0 {
				statusPort = portbus.ConsoleStatusPort
			}
			dataPort := uint16(paramUint(d.Params, "data_port"))
			if dataPort == 0 {
				dataPort = portbus.ConsoleDataPort
			}
			ports.Register(statusPort, dev)
			ports.Register(dataPort, dev)
		default:
			return nil, nil, fmt.Errorf("segcored: device %q: unrecognized built type %T", d.Name, built)
		}
	}

	if blockIOAttached {
		virqIndex := uint8(0)
		for _, d := range spec.Devices {
			if d.Type == "storage" {
				virqIndex = uint8(paramUint(d.Params, "virq_index"))
				break
			}
		}
		virq.Register(virqIndex, blockIO)
	}

	var allStates [][]core.BootState
	for _, cpuSpec := range spec.CPUs {
		var cores []*core.Core
		var states []core.BootState
		for _, coreSpec := range cpuSpec.Cores {
			capacity := spec.ICacheCapacity
			if capacity <= 0 {
				capacity = icache.DefaultCapacity
			}
			c := core.New(core.Config{
				ID:           coreSpec.ID,
				Memory:       mem,
				ICache:       icache.New(capacity),
				Ports:        ports,
				VIRQ:         virq,
				Bus:          b,
				Log:          log,
				Metrics:      met,
				IntTableAddr: spec.IntTableAddr,
				IRQTableAddr: spec.IRQTableAddr,
			})
			cores = append(cores, c)
			states = append(states, core.BootState{
				CS:         coreSpec.CS,
				DS:         coreSpec.DS,
				SP:         coreSpec.SP,
				IP:         coreSpec.IP,
				Privileged: coreSpec.Privileged,
			})
		}
		m.AddCPU(machine.NewCPU(cpuSpec.ID, cores))
		allStates = append(allStates, states)
	}

	return m, allStates, nil
}
