/*
 * Interrupt entry/exit and suspend/wake event handling.
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
	"github.com/segcore/segcore/internal/bus"
	"github.com/segcore/segcore/internal/vmerrors"
)

// checkForEvents drains at most one pending bus message. While idle it
// blocks until a message arrives; while running it only polls
// (non-blocking) when hwint is set, so hardware IRQs delivered while
// hwint is clear remain queued until STI/RETINT lowers the mask again.
func (c *Core) checkForEvents() {
	if c.idle {
		msg := c.endpoint.Receive()
		c.handleMessage(msg)
		return
	}
	if c.isHwintSet() {
		if msg, ok := c.endpoint.TryReceive(); ok {
			c.handleMessage(msg)
		}
	}
}

func (c *Core) handleMessage(msg bus.Message) {
	switch msg.Kind {
	case bus.KindHandleIRQ:
		c.metrics.IRQDelivered(c.id)
		if err := c.enterInterrupt(c.irqTableAddr, msg.Source, true); err != nil {
			ce, ok := err.(*vmerrors.CoreError)
			if !ok {
				ce = vmerrors.NewCPUException(err.Error())
			}
			c.die(ce)
		}
		msg.Delivered()
	case bus.KindHaltCore:
		c.keepRunning = false
		msg.Delivered()
	case bus.KindSuspendCore:
		c.armSuspend(msg.Wake)
		msg.Delivered()
	}
}

// armSuspend queues a planned suspend; it is honored at the next
// honorPlannedSuspend() call, which is the top of the fetch loop.
func (c *Core) armSuspend(wake chan struct{}) {
	c.suspendMu.Lock()
	defer c.suspendMu.Unlock()
	c.suspendQueue = append(c.suspendQueue, wake)
}

// honorPlannedSuspend blocks on the oldest queued suspend event, if
// any, making it the current suspend so WakeUp can signal it.
func (c *Core) honorPlannedSuspend() {
	c.suspendMu.Lock()
	if len(c.suspendQueue) == 0 {
		c.suspendMu.Unlock()
		return
	}
	wake := c.suspendQueue[0]
	c.suspendQueue = c.suspendQueue[1:]
	c.currentSuspend = wake
	c.suspendMu.Unlock()

	<-wake

	c.suspendMu.Lock()
	c.currentSuspend = nil
	c.suspendMu.Unlock()
}

// WakeUp signals the current suspension event, if one is armed. A core
// that has die()d calls this itself so any joiner blocked in
// honorPlannedSuspend unblocks.
func (c *Core) WakeUp() {
	c.wakeCurrentSuspend()
}

func (c *Core) wakeCurrentSuspend() {
	c.suspendMu.Lock()
	defer c.suspendMu.Unlock()
	if c.currentSuspend == nil {
		return
	}
	select {
	case <-c.currentSuspend:
		// already closed/signaled
	default:
		close(c.currentSuspend)
	}
}

// Idle reports whether the core is currently blocked awaiting any bus
// message (IDLE instruction sets this).
func (c *Core) Idle() bool { return c.idle }

// enterInterrupt implements interrupt entry. hardware
// additionally masks further IRQs and clears idle.
func (c *Core) enterInterrupt(tableBase uint32, index uint8, hardware bool) error {
	iv, err := c.memory.LoadInterruptVector(tableBase, index)
	if err != nil {
		return err
	}

	newSP := c.memory.AllocStack(iv.DS)
	oldSP := c.regs[RegSP]
	oldDS := c.regs[RegDS]

	c.regs[RegDS] = uint16(iv.DS)
	c.regs[RegSP] = newSP

	if err := c.rawPush(oldDS); err != nil {
		return err
	}
	if err := c.rawPush(oldSP); err != nil {
		return err
	}
	if err := c.push(RegCS, RegFLAGS); err != nil {
		return err
	}
	for r := uint8(0); r < RegisterSpecial; r++ {
		if err := c.rawPush(c.regs[r]); err != nil {
			return err
		}
	}
	if err := c.createFrame(); err != nil {
		return err
	}

	c.setPrivileged(true)
	c.regs[RegCS] = uint16(iv.CS)
	c.regs[RegIP] = iv.IP

	if hardware {
		c.setHwint(false)
		c.idle = false
	}
	return nil
}

// exitInterrupt implements interrupt exit. Privileged-only;
// callers enforce that.
func (c *Core) exitInterrupt() error {
	if err := c.destroyFrame(); err != nil {
		return err
	}
	for i := int(RegisterSpecial) - 1; i >= 0; i-- {
		v, err := c.rawPop()
		if err != nil {
			return err
		}
		c.regs[uint8(i)] = v
	}
	if err := c.pop(RegFLAGS, RegCS); err != nil {
		return err
	}

	stackAddr := c.dsAddr(c.regs[RegSP])

	oldSP, err := c.rawPop()
	if err != nil {
		return err
	}
	oldDS, err := c.rawPop()
	if err != nil {
		return err
	}
	c.memory.FreePageAt(stackAddr)
	c.regs[RegDS] = oldDS
	c.regs[RegSP] = oldSP
	return nil
}
