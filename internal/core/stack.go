/*
 * DS:SP-relative stack push/pop primitives.
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

// rawPush writes v at DS:SP with SP predecremented by 2 first.
func (c *Core) rawPush(v uint16) error {
	c.regs[RegSP] -= 2
	return c.memory.WriteU16(c.dsAddr(c.regs[RegSP]), v, c.isPrivileged())
}

// rawPop reads the half-word at DS:SP, postincrementing SP by 2.
func (c *Core) rawPop() (uint16, error) {
	v, err := c.memory.ReadU16(c.dsAddr(c.regs[RegSP]), c.isPrivileged())
	if err != nil {
		return 0, err
	}
	c.regs[RegSP] += 2
	return v, nil
}

// push pushes the named registers in the given order.
func (c *Core) push(regs ...uint8) error {
	for _, r := range regs {
		if err := c.rawPush(c.regs[r]); err != nil {
			return err
		}
	}
	return nil
}

// pop pops into the named registers in the given order.
func (c *Core) pop(regs ...uint8) error {
	for _, r := range regs {
		v, err := c.rawPop()
		if err != nil {
			return err
		}
		c.regs[r] = v
	}
	return nil
}

// createFrame pushes IP and FP, sets FP=SP, and records a new frame.
func (c *Core) createFrame() error {
	if err := c.push(RegIP, RegFP); err != nil {
		return err
	}
	c.regs[RegFP] = c.regs[RegSP]
	c.pushFrame(Frame{
		CS: uint8(c.regs[RegCS]),
		DS: uint8(c.regs[RegDS]),
		FP: c.regs[RegFP],
	})
	return nil
}

// destroyFrame requires SP==frame.FP, pops FP and IP, and removes the
// frame. Violation is a CPUException.
func (c *Core) destroyFrame() error {
	f, ok := c.topFrame()
	if !ok {
		return cpuException("RET/RETINT with no active frame")
	}
	if f.FP != c.regs[RegSP] {
		return cpuException("leaving frame with wrong SP: saved=0x%04x current=0x%04x", f.FP, c.regs[RegSP])
	}
	if err := c.pop(RegFP, RegIP); err != nil {
		return err
	}
	c.popFrame()
	return nil
}
