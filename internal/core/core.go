/*
 * Per-core fetch/decode/execute engine and run loop.
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

// Package core implements the per-core fetch/decode/execute engine:
// register file, flags, stack frame discipline, interrupt entry/exit,
// suspend/wake, and the dense opcode dispatch table.
//
// Grounded on emu/cpu/cpu.go's step/CPU loop and emu/cpu/cpudefs.go's
// table [256]func(*stepInfo) uint16 for the Go idiom, and on
// original_source/src/cpu/__init__.py for the exact register/flag/
// stack/interrupt semantics.
package core

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/segcore/segcore/internal/bus"
	"github.com/segcore/segcore/internal/icache"
	"github.com/segcore/segcore/internal/isa"
	"github.com/segcore/segcore/internal/memctl"
	"github.com/segcore/segcore/internal/portbus"
	"github.com/segcore/segcore/internal/vdevice"
	"github.com/segcore/segcore/internal/vmerrors"
)

// Metrics is the narrow observability surface a core reports into.
// The concrete Prometheus-backed implementation lives in
// internal/metrics; core only depends on this interface.
type Metrics interface {
	InstExecuted(coreID string)
	CacheHit(coreID string)
	CacheMiss(coreID string)
	IRQDelivered(coreID string)
	ExceptionRaised(coreID, kind string)
}

type noopMetrics struct{}

func (noopMetrics) InstExecuted(string)        {}
func (noopMetrics) CacheHit(string)            {}
func (noopMetrics) CacheMiss(string)           {}
func (noopMetrics) IRQDelivered(string)        {}
func (noopMetrics) ExceptionRaised(string, string) {}

// BootState is the initial (CS, DS, SP, IP, privileged) tuple a
// supervisor delivers to a core at boot.
type BootState struct {
	CS         uint8
	DS         uint8
	SP         uint16
	IP         uint16
	Privileged bool
}

// Config wires a Core to the shared machine resources.
type Config struct {
	ID             string
	Memory         *memctl.Controller
	ICache         *icache.Cache
	Ports          *portbus.Table
	VIRQ           *vdevice.Registry
	Bus            *bus.Bus
	Log            *zap.SugaredLogger
	Metrics        Metrics
	IntTableAddr   uint32
	IRQTableAddr   uint32
}

// Core is one independent execution context.
type Core struct {
	id      string
	memory  *memctl.Controller
	icache  *icache.Cache
	ports   *portbus.Table
	virq    *vdevice.Registry
	endpoint *bus.Endpoint
	log     *zap.SugaredLogger
	metrics Metrics

	intTableAddr uint32
	irqTableAddr uint32

	regs   [NumRegisters]uint16
	frames []Frame
	table  [isa.NumOpcodes]func(*Core, isa.Instruction) error

	idle        bool
	keepRunning bool
	exitCode    int

	// suspendMu guards suspendQueue and currentSuspend: a per-core lock
	// covering suspend_events and current_suspend_event.
	suspendMu      sync.Mutex
	suspendQueue   []chan struct{}
	currentSuspend chan struct{}
}

// New creates a Core registered on the bus under cfg.ID.
func New(cfg Config) *Core {
	m := cfg.Metrics
	if m == nil {
		m = noopMetrics{}
	}
	c := &Core{
		id:           cfg.ID,
		memory:       cfg.Memory,
		icache:       cfg.ICache,
		ports:        cfg.Ports,
		virq:         cfg.VIRQ,
		endpoint:     cfg.Bus.Register(cfg.ID),
		log:          cfg.Log,
		metrics:      m,
		intTableAddr: cfg.IntTableAddr,
		irqTableAddr: cfg.IRQTableAddr,
	}
	c.createTable()
	return c
}

// ID returns the core's bus endpoint id.
func (c *Core) ID() string { return c.id }

// ExitCode returns the code set by die(), valid once the core has
// stopped.
func (c *Core) ExitCode() int { return c.exitCode }

// KeepRunning reports the core's run/stop bit, as recorded by a
// CoreDump.
func (c *Core) KeepRunning() bool { return c.keepRunning }

// Memory implements vdevice.Core.
func (c *Core) Memory() vdevice.MemoryAccessor { return c.memory }

// Boot seeds the register file for a fresh run.
func (c *Core) Boot(state BootState) {
	c.resetRegisters()
	c.icache.Reset()
	c.frames = nil
	c.regs[RegCS] = uint16(state.CS)
	c.regs[RegDS] = uint16(state.DS)
	c.regs[RegSP] = state.SP
	c.regs[RegIP] = state.IP
	c.setPrivileged(state.Privileged)
	c.setHwint(true)
	c.idle = false
	c.keepRunning = true
	c.exitCode = 0
}

// Reset clears cached decode state; the next fetch necessarily
// re-decodes from memory.
func (c *Core) Reset() {
	c.icache.Reset()
}

// Run executes the fetch/execute loop until keepRunning is cleared by
// HaltCore or die(). Intended to run as its own goroutine, one per
// core.
func (c *Core) Run() {
	for c.keepRunning {
		c.checkForEvents()
		if !c.keepRunning {
			break
		}
		c.honorPlannedSuspend()
		if !c.keepRunning {
			break
		}
		if err := c.step(); err != nil {
			if ce, ok := err.(*vmerrors.CoreError); ok {
				c.die(ce)
			} else {
				c.die(vmerrors.NewCPUException(err.Error()))
			}
			break
		}
	}
}

func (c *Core) step() error {
	ip := c.regs[RegIP]
	physAddr := c.csAddr(ip)

	inst, hit := c.icache.Get(physAddr)
	if hit {
		c.metrics.CacheHit(c.id)
	} else {
		c.metrics.CacheMiss(c.id)
		word, err := c.memory.ReadU32(physAddr, true)
		if err != nil {
			return err
		}
		inst = isa.Decode(word)
		c.icache.Put(physAddr, inst)
	}

	c.regs[RegIP] = ip + 4

	if int(inst.Opcode) >= len(c.table) {
		return vmerrors.NewInvalidOpcode(uint8(inst.Opcode), ip)
	}
	handler := c.table[inst.Opcode]
	if handler == nil {
		return vmerrors.NewInvalidOpcode(uint8(inst.Opcode), ip)
	}

	err := handler(c, inst)
	if err == nil {
		c.metrics.InstExecuted(c.id)
	}
	return err
}

func (c *Core) die(err *vmerrors.CoreError) {
	c.exitCode = 1
	c.keepRunning = false
	c.metrics.ExceptionRaised(c.id, err.Kind.String())
	if c.log != nil {
		c.log.Errorw("core halted on exception",
			"core", c.id, "kind", err.Kind.String(), "err", err.Error(),
			"cs", c.regs[RegCS], "ip", c.regs[RegIP], "ds", c.regs[RegDS], "sp", c.regs[RegSP])
	}
	c.wakeCurrentSuspend()
}

func (c *Core) dsAddr(logical uint16) uint32 {
	return uint32(c.regs[RegDS])<<16 | uint32(logical)
}

func (c *Core) csAddr(logical uint16) uint32 {
	return uint32(c.regs[RegCS])<<16 | uint32(logical)
}

func accessViolation(format string, a ...interface{}) error {
	return &vmerrors.CoreError{Kind: vmerrors.AccessViolation, Reason: fmt.Sprintf(format, a...)}
}

func cpuException(format string, a ...interface{}) error {
	return vmerrors.NewCPUException(format, a...)
}
