/*
 * Core execution engine test cases.
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

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/segcore/segcore/internal/bus"
	"github.com/segcore/segcore/internal/icache"
	"github.com/segcore/segcore/internal/isa"
	"github.com/segcore/segcore/internal/logging"
	"github.com/segcore/segcore/internal/memctl"
	"github.com/segcore/segcore/internal/portbus"
	"github.com/segcore/segcore/internal/vdevice"
)

func newTestCore(t *testing.T) *Core {
	t.Helper()
	mem := memctl.New(memctl.DefaultPageSize)
	b := bus.New()
	c := New(Config{
		ID:     "core-0",
		Memory: mem,
		ICache: icache.New(64),
		Ports:  portbus.NewTable(),
		VIRQ:   vdevice.NewRegistry(),
		Bus:    b,
		Log:    logging.Noop(),
	})
	mem.AllocPage(0, false, false) // CS 0, DS 0 data/code page
	return c
}

func TestBootSeedsRegistersAndClearsState(t *testing.T) {
	c := newTestCore(t)
	c.Boot(BootState{CS: 1, DS: 2, SP: 0x100, IP: 0x10, Privileged: true})

	require.Equal(t, uint16(1), c.regs[RegCS])
	require.Equal(t, uint16(2), c.regs[RegDS])
	require.Equal(t, uint16(0x100), c.regs[RegSP])
	require.Equal(t, uint16(0x10), c.regs[RegIP])
	require.True(t, c.isPrivileged())
	require.True(t, c.isHwintSet())
	require.True(t, c.keepRunning)
	require.False(t, c.idle)
}

func TestSetRegCheckedRejectsProtectedRegisterWhenUnprivileged(t *testing.T) {
	c := newTestCore(t)
	c.setPrivileged(false)

	err := c.setRegChecked(RegCS, 5)
	require.Error(t, err)

	require.NoError(t, c.setRegChecked(RegFP, 5))
	require.Equal(t, uint16(5), c.regs[RegFP])
}

func TestPushPopRoundTrips(t *testing.T) {
	c := newTestCore(t)
	c.regs[RegDS] = 0
	c.regs[RegSP] = 0x80

	c.regs[0] = 0xAAAA
	c.regs[1] = 0xBBBB
	require.NoError(t, c.push(0, 1))
	require.NoError(t, c.pop(2, 3))

	require.Equal(t, uint16(0xBBBB), c.regs[2])
	require.Equal(t, uint16(0xAAAA), c.regs[3])
	require.Equal(t, uint16(0x80), c.regs[RegSP])
}

func TestCreateAndDestroyFrame(t *testing.T) {
	c := newTestCore(t)
	c.regs[RegSP] = 0x80
	c.regs[RegCS] = 3
	c.regs[RegDS] = 4
	c.memory.AllocPage(4<<16, false, false) // stack page for DS 4

	require.NoError(t, c.createFrame())
	require.Len(t, c.frames, 1)
	require.Equal(t, c.regs[RegSP], c.regs[RegFP])

	require.NoError(t, c.destroyFrame())
	require.Len(t, c.frames, 0)
	require.Equal(t, uint16(0x80), c.regs[RegSP])
}

func TestDestroyFrameWithoutFrameIsCPUException(t *testing.T) {
	c := newTestCore(t)
	err := c.destroyFrame()
	require.Error(t, err)
}

func TestOpADDSetsOverflowFlag(t *testing.T) {
	c := newTestCore(t)
	c.regs[0] = 0xFFFF
	require.NoError(t, c.opADD(isa.Instruction{Reg: 0, IsReg: false, Immediate: 1}))
	require.Equal(t, uint16(0), c.regs[0])
	require.True(t, c.flagO())
	require.True(t, c.flagZ())
}

func TestOpSUBSetsUnderflowSFlag(t *testing.T) {
	c := newTestCore(t)
	c.regs[0] = 1
	require.NoError(t, c.opSUB(isa.Instruction{Reg: 0, IsReg: false, Immediate: 2}))
	require.Equal(t, uint16(0xFFFF), c.regs[0])
	require.True(t, c.flagS())
}

func TestOpCMPSignedVsOpCMPUUnsigned(t *testing.T) {
	c := newTestCore(t)
	c.regs[0] = 0xFFFF // -1 signed, 65535 unsigned
	c.regs[1] = 1

	require.NoError(t, c.opCMP(isa.Instruction{Reg: 0, Ireg: 1, IsReg: true}))
	require.True(t, c.flagS(), "signed: -1 < 1")

	require.NoError(t, c.opCMPU(isa.Instruction{Reg: 0, Ireg: 1, IsReg: true}))
	require.False(t, c.flagS(), "unsigned: 65535 is not < 1")
}

func TestBranchOnEqualTakesBGEButNotBG(t *testing.T) {
	c := newTestCore(t)
	c.regs[0] = 5
	c.regs[1] = 5
	require.NoError(t, c.opCMP(isa.Instruction{Reg: 0, Ireg: 1, IsReg: true}))
	require.True(t, c.flagE())
	require.False(t, c.flagS())

	c.regs[RegIP] = 0x40
	require.NoError(t, c.opBGE(isa.Instruction{IsReg: false, Immediate: 4}))
	require.Equal(t, uint16(0x44), c.regs[RegIP])

	c.regs[RegIP] = 0x40
	require.NoError(t, c.opBG(isa.Instruction{IsReg: false, Immediate: 4}))
	require.Equal(t, uint16(0x40), c.regs[RegIP], "equal operands must not take BG")
}

func TestOpCASSuccessAndFailure(t *testing.T) {
	c := newTestCore(t)
	c.regs[RegDS] = 0
	c.regs[5] = 0x10 // address pointer
	require.NoError(t, c.memory.WriteU16(0x10, 100, false))

	c.regs[0] = 100
	require.NoError(t, c.opCAS(isa.Instruction{Reg: 5, IsReg: false, Immediate: 200}))
	require.True(t, c.flagE())

	c.regs[0] = 999 // stale expectation
	require.NoError(t, c.opCAS(isa.Instruction{Reg: 5, IsReg: false, Immediate: 1}))
	require.False(t, c.flagE())
	require.Equal(t, uint16(200), c.regs[0], "R0 updated to current value on failure")
}

func TestInterruptEntryThenExitRestoresState(t *testing.T) {
	c := newTestCore(t)
	c.memory.AllocPage(0, true, false) // vector table on privileged page
	// vector 0: CS=0, DS=1, IP=0x50
	require.NoError(t, c.memory.WriteU32(0, uint32(0)|uint32(1)<<8|uint32(0x50)<<16, true))
	c.memory.AllocPage(1<<16, false, false)

	c.Boot(BootState{CS: 0, DS: 0, SP: 0x80, IP: 0x10, Privileged: false})
	oldSP, oldDS := c.regs[RegSP], c.regs[RegDS]

	require.NoError(t, c.enterInterrupt(0, 0, true))
	require.True(t, c.isPrivileged())
	require.Equal(t, uint16(0x50), c.regs[RegIP])
	require.Equal(t, uint16(1), c.regs[RegDS])
	require.False(t, c.isHwintSet())

	require.NoError(t, c.exitInterrupt())
	require.Equal(t, oldSP, c.regs[RegSP])
	require.Equal(t, oldDS, c.regs[RegDS])
}

func TestRunExecutesProgramToHalt(t *testing.T) {
	c := newTestCore(t)
	// LI R0, 41 ; INC R0 ; HLT
	prog := []isa.Instruction{
		{Opcode: isa.LI, Reg: 0, IsReg: false, Immediate: 41},
		{Opcode: isa.INC, Reg: 0},
		{Opcode: isa.HLT},
	}
	for i, inst := range prog {
		require.NoError(t, c.memory.WriteU32(uint32(i*4), isa.Encode(inst), true))
	}

	c.Boot(BootState{CS: 0, DS: 0, SP: 0x80, IP: 0, Privileged: true})

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("core did not halt")
	}

	require.Equal(t, uint16(42), c.regs[0])
	require.Equal(t, 0, c.ExitCode())
	require.False(t, c.KeepRunning())
}

func TestRunDiesOnInvalidOpcode(t *testing.T) {
	c := newTestCore(t)
	require.NoError(t, c.memory.WriteU32(0, 0xFF, true)) // opcode 0xFF has no handler
	c.Boot(BootState{CS: 0, DS: 0, SP: 0x80, IP: 0, Privileged: true})

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("core did not halt")
	}
	require.Equal(t, 1, c.ExitCode())
}

func TestHaltCoreMessageStopsRunLoop(t *testing.T) {
	mem := memctl.New(memctl.DefaultPageSize)
	b := bus.New()
	c := New(Config{
		ID:     "core-0",
		Memory: mem,
		ICache: icache.New(64),
		Ports:  portbus.NewTable(),
		VIRQ:   vdevice.NewRegistry(),
		Bus:    b,
		Log:    logging.Noop(),
	})
	mem.AllocPage(0, false, false)

	// IDLE forever
	require.NoError(t, c.memory.WriteU32(0, isa.Encode(isa.Instruction{Opcode: isa.IDLE}), true))
	require.NoError(t, c.memory.WriteU32(4, isa.Encode(isa.Instruction{Opcode: isa.J, Immediate: -4}), true))
	c.Boot(BootState{CS: 0, DS: 0, SP: 0x80, IP: 0, Privileged: true})

	done := make(chan struct{})
	go func() {
		c.Run()
		close(done)
	}()

	// give the core a moment to reach the idle wait, then halt it.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.HaltCore(c.id, nil))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("core did not stop after HaltCore")
	}
}
