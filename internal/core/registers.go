/*
 * General and special register definitions and accessors.
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

// Register indices. R0..R29 are the 30 general registers; FP/SP/DS
// alias the top three of them as specials, and CS/IP/FLAGS extend the
// array beyond R29.
const (
	RegFP    uint8 = 27
	RegSP    uint8 = 28
	RegDS    uint8 = 29
	RegCS    uint8 = 30
	RegIP    uint8 = 31
	RegFLAGS uint8 = 32

	// RegisterSpecial is the index at which specials begin: pure
	// general-purpose argument registers are R0..RegisterSpecial-1.
	RegisterSpecial uint8 = 27

	// NumRegisters is the full register file size, R0..RegFLAGS.
	NumRegisters = 33
)

// protectedRegisters are writable only in privileged mode. FP/SP/DS
// are excluded: ordinary user code manipulates the stack and segment
// registers directly as part of normal PUSH/POP/CALL/memory-operand
// execution.
var protectedRegisters = map[uint8]bool{
	RegCS:    true,
	RegIP:    true,
	RegFLAGS: true,
}

// isProtectedRegister reports whether writing to reg requires
// privileged mode.
func isProtectedRegister(reg uint8) bool {
	return protectedRegisters[reg]
}

// GetReg reads a register by index. Implements vdevice.Core and
// portbus-adjacent handler contracts.
func (c *Core) GetReg(n uint8) uint16 {
	return c.regs[n]
}

// SetReg writes a register by index, bypassing privilege checks. Used
// by virtual-interrupt handlers (vdevice.Core) to report results in the
// register convention.
func (c *Core) SetReg(n uint8, v uint16) {
	c.regs[n] = v
}

// setRegChecked writes a register honoring the protected-register
// rule; used by user-invocable opcode handlers like MOV.
func (c *Core) setRegChecked(n uint8, v uint16) error {
	if isProtectedRegister(n) && !c.isPrivileged() {
		return accessViolation("write to protected register %d in unprivileged mode", n)
	}
	c.regs[n] = v
	return nil
}

// resetRegisters zeroes the entire register file.
func (c *Core) resetRegisters() {
	for i := range c.regs {
		c.regs[i] = 0
	}
}
