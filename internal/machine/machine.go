/*
 * CPU supervisor and top-level machine lifecycle.
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

// Package machine implements the CPU supervisor and the top-level
// Machine that owns the memory controller, the virtual-interrupt
// registry, the port table, the message bus, and one or more CPUs.
//
// Grounded on emu/core/core.go's goroutine-per-core worker with a
// WaitGroup-guarded Stop() (select on a completion channel against a
// timeout), generalized from one fixed CPU to a supervisor owning an
// arbitrary number of cores, and from a single implicit machine to an
// explicit Machine boot/halt lifecycle.
package machine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/segcore/segcore/internal/bus"
	"github.com/segcore/segcore/internal/core"
	"github.com/segcore/segcore/internal/memctl"
	"github.com/segcore/segcore/internal/portbus"
	"github.com/segcore/segcore/internal/vdevice"
)

// haltTimeout bounds how long Halt waits for cores to notice HaltCore
// before giving up and logging a warning.
const haltTimeout = 5 * time.Second

// Worker is anything with a place in the machine's boot/halt ordering:
// storage devices and (indirectly, via CPU) cores. The console device
// has no Boot/Halt methods, so it is not a Worker and takes no part in
// the ordering.
type Worker interface {
	Boot() error
	Halt() error
}

// CPU owns a fixed set of cores and the goroutines that run them.
type CPU struct {
	id    string
	cores []*core.Core
	wg    sync.WaitGroup
}

// NewCPU groups cores under one supervisor.
func NewCPU(id string, cores []*core.Core) *CPU {
	return &CPU{id: id, cores: cores}
}

// ID returns the CPU's supervisor id.
func (cpu *CPU) ID() string { return cpu.id }

// Cores returns the cores owned by this CPU.
func (cpu *CPU) Cores() []*core.Core { return cpu.cores }

// Boot seeds each core's registers with its initial state. len(states)
// must equal len(cpu.cores).
func (cpu *CPU) Boot(states []core.BootState) error {
	if len(states) != len(cpu.cores) {
		return fmt.Errorf("machine: cpu %s: got %d boot states for %d cores", cpu.id, len(states), len(cpu.cores))
	}
	for i, c := range cpu.cores {
		c.Boot(states[i])
	}
	return nil
}

// Run spawns one goroutine per core and returns; it starts no
// supervisor goroutine. Halt and Machine.Wait are what wait for the
// cores to finish.
func (cpu *CPU) Run() {
	for _, c := range cpu.cores {
		cpu.wg.Add(1)
		go func(c *core.Core) {
			defer cpu.wg.Done()
			c.Run()
		}(c)
	}
}

// Halt posts HaltCore to every core on b and waits (up to haltTimeout)
// for their Run loops to return.
func (cpu *CPU) Halt(b *bus.Bus, log *zap.SugaredLogger) {
	for _, c := range cpu.cores {
		_ = b.HaltCore(c.ID(), func() {})
		c.WakeUp()
	}

	done := make(chan struct{})
	go func() {
		cpu.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(haltTimeout):
		if log != nil {
			log.Warnw("timed out waiting for cpu to halt", "cpu", cpu.id)
		}
	}
}

// Machine is the top-level owner of shared resources and the CPUs that
// execute against them.
type Machine struct {
	Memory  *memctl.Controller
	VIRQ    *vdevice.Registry
	Ports   *portbus.Table
	Bus     *bus.Bus
	Log     *zap.SugaredLogger

	cpus    []*CPU
	devices []Worker
}

// New creates an empty Machine. Devices and CPUs are attached with
// AddDevice/AddCPU before Boot is called.
func New(memory *memctl.Controller, virq *vdevice.Registry, ports *portbus.Table, b *bus.Bus, log *zap.SugaredLogger) *Machine {
	return &Machine{
		Memory: memory,
		VIRQ:   virq,
		Ports:  ports,
		Bus:    b,
		Log:    log,
	}
}

// AddDevice registers a boot/halt-ordered device (e.g. FileBackedStorage).
// Devices boot in registration order and halt in reverse.
func (m *Machine) AddDevice(w Worker) {
	m.devices = append(m.devices, w)
}

// AddCPU attaches a CPU supervisor to the machine.
func (m *Machine) AddCPU(cpu *CPU) {
	m.cpus = append(m.cpus, cpu)
}

// CPUs returns the machine's attached CPU supervisors.
func (m *Machine) CPUs() []*CPU { return m.cpus }

// Boot executes the boot order: memory controller (already
// constructed by the caller) → devices → cores → CPUs. states[i] is
// the slice of BootState for m.cpus[i]'s cores.
func (m *Machine) Boot(states [][]core.BootState) error {
	if len(states) != len(m.cpus) {
		return fmt.Errorf("machine: got boot states for %d cpus, have %d", len(states), len(m.cpus))
	}

	for _, d := range m.devices {
		if err := d.Boot(); err != nil {
			return fmt.Errorf("machine: device boot: %w", err)
		}
	}

	for i, cpu := range m.cpus {
		if err := cpu.Boot(states[i]); err != nil {
			return err
		}
	}

	for _, cpu := range m.cpus {
		cpu.Run()
	}

	if m.Log != nil {
		m.Log.Infow("machine booted", "cpus", len(m.cpus), "devices", len(m.devices))
	}
	return nil
}

// Halt executes the reverse of Boot: stop CPUs (each CPU halts its
// cores via HaltCore), then halt devices in reverse registration order
// so pending I/O flushes before halt completes.
func (m *Machine) Halt() error {
	for _, cpu := range m.cpus {
		cpu.Halt(m.Bus, m.Log)
	}

	var firstErr error
	for i := len(m.devices) - 1; i >= 0; i-- {
		if err := m.devices[i].Halt(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("machine: device halt: %w", err)
		}
	}

	if m.Log != nil {
		m.Log.Infow("machine halted")
	}
	return firstErr
}

// Wait blocks until every CPU's cores have all returned from Run,
// without sending HaltCore — used when the caller is waiting for a
// natural HLT/die() stop rather than forcing shutdown.
func (m *Machine) Wait() {
	var wg sync.WaitGroup
	for _, cpu := range m.cpus {
		wg.Add(1)
		go func(cpu *CPU) {
			defer wg.Done()
			cpu.wg.Wait()
		}(cpu)
	}
	wg.Wait()
}
