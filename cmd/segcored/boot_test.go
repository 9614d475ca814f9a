/*
 * segcored boot wiring test cases.
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
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/segcore/segcore/internal/config"
	"github.com/segcore/segcore/internal/logging"
	"github.com/segcore/segcore/internal/metrics"
	"github.com/segcore/segcore/internal/portbus"
)

func TestParamUintHandlesViperNumberShapes(t *testing.T) {
	params := map[string]interface{}{
		"a": float64(7),
		"b": int(8),
		"c": int64(9),
		"d": uint64(10),
	}
	require.Equal(t, uint64(7), paramUint(params, "a"))
	require.Equal(t, uint64(8), paramUint(params, "b"))
	require.Equal(t, uint64(9), paramUint(params, "c"))
	require.Equal(t, uint64(10), paramUint(params, "d"))
	require.Equal(t, uint64(0), paramUint(params, "missing"))
}

func TestBuildMachineWiresConsoleAndCPU(t *testing.T) {
	fs := afero.NewMemMapFs()

	spec := &config.MachineSpec{
		PageSize:       256,
		ICacheCapacity: 32,
		Devices: []config.DeviceSpec{
			{Type: "console", Name: "tty0", Params: map[string]interface{}{}},
		},
		CPUs: []config.CPUSpec{
			{ID: "cpu0", Cores: []config.CoreSpec{
				{ID: "cpu0-core0", CS: 0, DS: 0, SP: 0x100, IP: 0, Privileged: true},
			}},
		},
	}

	m, states, err := buildMachine(spec, fs, logging.Noop(), metrics.New())
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.Len(t, states[0], 1)
	require.Len(t, m.CPUs(), 1)
	require.Len(t, m.CPUs()[0].Cores(), 1)

	got, err := m.Ports.ReadU8(portbus.ConsoleStatusPort, false)
	require.NoError(t, err)
	require.NotZero(t, got)
}

func TestBuildMachineRejectsUnknownDeviceType(t *testing.T) {
	fs := afero.NewMemMapFs()
	spec := &config.MachineSpec{
		PageSize: 256,
		Devices: []config.DeviceSpec{
			{Type: "does-not-exist", Name: "x"},
		},
	}

	_, _, err := buildMachine(spec, fs, logging.Noop(), metrics.New())
	require.Error(t, err)
}

func TestBuildMachineAttachesStorageAndVIRQ(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/disk.img", make([]byte, 2*1024), 0o644))

	spec := &config.MachineSpec{
		PageSize: 256,
		Devices: []config.DeviceSpec{
			{Type: "storage", Name: "disk0", Params: map[string]interface{}{
				"path":      "/disk.img",
				"device_id": float64(1),
			}},
		},
	}

	m, _, err := buildMachine(spec, fs, logging.Noop(), metrics.New())
	require.NoError(t, err)

	_, ok := m.VIRQ.Lookup(0)
	require.True(t, ok, "storage device should register BlockIO at the default virq index")
}
