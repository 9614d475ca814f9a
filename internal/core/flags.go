/*
 * FLAGS register bit accessors.
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

// FLAGS bitfield layout: privileged(1), hwint(1), E(1), Z(1), O(1),
// S(1), padding.
const (
	flagPrivileged uint16 = 1 << 0
	flagHwint      uint16 = 1 << 1
	flagE          uint16 = 1 << 2
	flagZ          uint16 = 1 << 3
	flagO          uint16 = 1 << 4
	flagS          uint16 = 1 << 5
)

func (c *Core) flag(bit uint16) bool {
	return c.regs[RegFLAGS]&bit != 0
}

func (c *Core) setFlag(bit uint16, v bool) {
	if v {
		c.regs[RegFLAGS] |= bit
	} else {
		c.regs[RegFLAGS] &^= bit
	}
}

func (c *Core) isPrivileged() bool { return c.flag(flagPrivileged) }
func (c *Core) setPrivileged(v bool) { c.setFlag(flagPrivileged, v) }

func (c *Core) isHwintSet() bool  { return c.flag(flagHwint) }
func (c *Core) setHwint(v bool)   { c.setFlag(flagHwint, v) }

func (c *Core) setE(v bool) { c.setFlag(flagE, v) }
func (c *Core) setZ(v bool) { c.setFlag(flagZ, v) }
func (c *Core) setO(v bool) { c.setFlag(flagO, v) }
func (c *Core) setS(v bool) { c.setFlag(flagS, v) }

func (c *Core) flagE() bool { return c.flag(flagE) }
func (c *Core) flagZ() bool { return c.flag(flagZ) }
func (c *Core) flagO() bool { return c.flag(flagO) }
func (c *Core) flagS() bool { return c.flag(flagS) }

// clearArithFlags clears O and S; Z is always set explicitly by the
// caller based on the result.
func (c *Core) clearArithFlags() {
	c.setO(false)
	c.setS(false)
}
