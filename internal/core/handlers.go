/*
 * Opcode handler table and instruction implementations.
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

import "github.com/segcore/segcore/internal/isa"

// riVal resolves the second operand of a two-operand instruction: the
// register named by Ireg if IsReg, otherwise the sign-extended
// Immediate.
func (c *Core) riVal(inst isa.Instruction) uint16 {
	if inst.IsReg {
		return c.regs[inst.Ireg]
	}
	return uint16(inst.Immediate)
}

// offsetAddr resolves a memory operand as DS:[Ireg + Immediate], the
// base+displacement addressing mode used by LW/LB/STW/STB.
func (c *Core) offsetAddr(inst isa.Instruction) uint32 {
	base := c.regs[inst.Ireg]
	logical := uint16(int32(base) + int32(inst.Immediate))
	return c.dsAddr(logical)
}

// branchTo resolves a branch target: absolute via Ireg when IsReg,
// otherwise relative to the (already-advanced) IP via Immediate.
func (c *Core) branchTo(inst isa.Instruction) {
	if inst.IsReg {
		c.regs[RegIP] = c.regs[inst.Ireg]
		return
	}
	c.regs[RegIP] = uint16(int32(c.regs[RegIP]) + int32(inst.Immediate))
}

// getPair reads the 32-bit value packed across the register at lowReg
// and its successor: there is no native 32-bit register, so *L opcodes
// operate on adjacent register pairs.
func (c *Core) getPair(lowReg uint8) uint32 {
	return uint32(c.regs[lowReg]) | uint32(c.regs[lowReg+1])<<16
}

func (c *Core) setPair(lowReg uint8, v uint32) {
	c.regs[lowReg] = uint16(v)
	c.regs[lowReg+1] = uint16(v >> 16)
}

// riVal32 resolves the second operand of a paired-register opcode: the
// pair based at Ireg if IsReg, otherwise Immediate sign-extended to 32
// bits.
func (c *Core) riVal32(inst isa.Instruction) uint32 {
	if inst.IsReg {
		return c.getPair(inst.Ireg)
	}
	return uint32(int32(inst.Immediate))
}

func (c *Core) opNOP(inst isa.Instruction) error { return nil }

func (c *Core) opLW(inst isa.Instruction) error {
	v, err := c.memory.ReadU16(c.offsetAddr(inst), c.isPrivileged())
	if err != nil {
		return err
	}
	return c.setRegChecked(inst.Reg, v)
}

func (c *Core) opLB(inst isa.Instruction) error {
	v, err := c.memory.ReadU8(c.offsetAddr(inst), c.isPrivileged())
	if err != nil {
		return err
	}
	return c.setRegChecked(inst.Reg, uint16(v))
}

func (c *Core) opLI(inst isa.Instruction) error {
	return c.setRegChecked(inst.Reg, c.riVal(inst))
}

func (c *Core) opSTW(inst isa.Instruction) error {
	return c.memory.WriteU16(c.offsetAddr(inst), c.regs[inst.Reg], c.isPrivileged())
}

func (c *Core) opSTB(inst isa.Instruction) error {
	return c.memory.WriteU8(c.offsetAddr(inst), uint8(c.regs[inst.Reg]), c.isPrivileged())
}

func (c *Core) opMOV(inst isa.Instruction) error {
	return c.setRegChecked(inst.Reg, c.riVal(inst))
}

func (c *Core) opSWP(inst isa.Instruction) error {
	a, b := c.regs[inst.Reg], c.regs[inst.Ireg]
	if err := c.setRegChecked(inst.Reg, b); err != nil {
		return err
	}
	return c.setRegChecked(inst.Ireg, a)
}

func (c *Core) opINC(inst isa.Instruction) error {
	res := c.regs[inst.Reg] + 1
	c.regs[inst.Reg] = res
	c.clearArithFlags()
	c.setZ(res == 0)
	return nil
}

func (c *Core) opDEC(inst isa.Instruction) error {
	res := c.regs[inst.Reg] - 1
	c.regs[inst.Reg] = res
	c.clearArithFlags()
	c.setZ(res == 0)
	return nil
}

// opADD sets O on unsigned overflow of the 16-bit sum.
func (c *Core) opADD(inst isa.Instruction) error {
	a, b := c.regs[inst.Reg], c.riVal(inst)
	sum := uint32(a) + uint32(b)
	result := uint16(sum)
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	c.setO(sum > 0xFFFF)
	return nil
}

// opSUB sets S on unsigned underflow (design note: resolved distinct
// from CMP's signed S).
func (c *Core) opSUB(inst isa.Instruction) error {
	a, b := c.regs[inst.Reg], c.riVal(inst)
	result := a - b
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	c.setS(b > a)
	return nil
}

func (c *Core) opMUL(inst isa.Instruction) error {
	a, b := c.regs[inst.Reg], c.riVal(inst)
	result := uint16(uint32(a) * uint32(b))
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opDIV(inst isa.Instruction) error {
	a, b := c.regs[inst.Reg], c.riVal(inst)
	if b == 0 {
		return cpuException("division by zero")
	}
	result := a / b
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opMOD(inst isa.Instruction) error {
	a, b := c.regs[inst.Reg], c.riVal(inst)
	if b == 0 {
		return cpuException("division by zero")
	}
	result := a % b
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opINCL(inst isa.Instruction) error {
	res := c.getPair(inst.Reg) + 1
	c.setPair(inst.Reg, res)
	c.clearArithFlags()
	c.setZ(res == 0)
	return nil
}

func (c *Core) opDECL(inst isa.Instruction) error {
	res := c.getPair(inst.Reg) - 1
	c.setPair(inst.Reg, res)
	c.clearArithFlags()
	c.setZ(res == 0)
	return nil
}

func (c *Core) opADDL(inst isa.Instruction) error {
	a, b := c.getPair(inst.Reg), c.riVal32(inst)
	sum := uint64(a) + uint64(b)
	result := uint32(sum)
	c.setPair(inst.Reg, result)
	c.clearArithFlags()
	c.setZ(result == 0)
	c.setO(sum > 0xFFFFFFFF)
	return nil
}

func (c *Core) opSUBL(inst isa.Instruction) error {
	a, b := c.getPair(inst.Reg), c.riVal32(inst)
	result := a - b
	c.setPair(inst.Reg, result)
	c.clearArithFlags()
	c.setZ(result == 0)
	c.setS(b > a)
	return nil
}

func (c *Core) opMULL(inst isa.Instruction) error {
	a, b := c.getPair(inst.Reg), c.riVal32(inst)
	result := uint32(uint64(a) * uint64(b))
	c.setPair(inst.Reg, result)
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opDIVL(inst isa.Instruction) error {
	a, b := c.getPair(inst.Reg), c.riVal32(inst)
	if b == 0 {
		return cpuException("division by zero")
	}
	result := a / b
	c.setPair(inst.Reg, result)
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opMODL(inst isa.Instruction) error {
	a, b := c.getPair(inst.Reg), c.riVal32(inst)
	if b == 0 {
		return cpuException("division by zero")
	}
	result := a % b
	c.setPair(inst.Reg, result)
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opAND(inst isa.Instruction) error {
	result := c.regs[inst.Reg] & c.riVal(inst)
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opOR(inst isa.Instruction) error {
	result := c.regs[inst.Reg] | c.riVal(inst)
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opXOR(inst isa.Instruction) error {
	result := c.regs[inst.Reg] ^ c.riVal(inst)
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opNOT(inst isa.Instruction) error {
	result := ^c.regs[inst.Reg]
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opSHIFTL(inst isa.Instruction) error {
	amt := c.riVal(inst) & 0xF
	result := c.regs[inst.Reg] << amt
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

func (c *Core) opSHIFTR(inst isa.Instruction) error {
	amt := c.riVal(inst) & 0xF
	result := c.regs[inst.Reg] >> amt
	c.regs[inst.Reg] = result
	c.clearArithFlags()
	c.setZ(result == 0)
	return nil
}

// opCMP compares signed. Sets E, Z, S; leaves O untouched (CMP is not
// an arithmetic overflow producer).
func (c *Core) opCMP(inst isa.Instruction) error {
	a, b := int16(c.regs[inst.Reg]), int16(c.riVal(inst))
	eq := a == b
	c.setE(eq)
	c.setS(a < b)
	c.setZ(eq && a == 0)
	return nil
}

// opCMPU compares unsigned.
func (c *Core) opCMPU(inst isa.Instruction) error {
	a, b := c.regs[inst.Reg], c.riVal(inst)
	eq := a == b
	c.setE(eq)
	c.setS(a < b)
	c.setZ(eq && a == 0)
	return nil
}

func (c *Core) opJ(inst isa.Instruction) error {
	c.branchTo(inst)
	return nil
}

func (c *Core) opBE(inst isa.Instruction) error {
	if c.flagE() {
		c.branchTo(inst)
	}
	return nil
}

func (c *Core) opBNE(inst isa.Instruction) error {
	if !c.flagE() {
		c.branchTo(inst)
	}
	return nil
}

func (c *Core) opBZ(inst isa.Instruction) error {
	if c.flagZ() {
		c.branchTo(inst)
	}
	return nil
}

func (c *Core) opBNZ(inst isa.Instruction) error {
	if !c.flagZ() {
		c.branchTo(inst)
	}
	return nil
}

func (c *Core) opBS(inst isa.Instruction) error {
	if c.flagS() {
		c.branchTo(inst)
	}
	return nil
}

func (c *Core) opBNS(inst isa.Instruction) error {
	if !c.flagS() {
		c.branchTo(inst)
	}
	return nil
}

// opBG: branch if strictly greater, i.e. !S && !E.
func (c *Core) opBG(inst isa.Instruction) error {
	if !c.flagS() && !c.flagE() {
		c.branchTo(inst)
	}
	return nil
}

// opBL: branch if strictly less, i.e. S && !E.
func (c *Core) opBL(inst isa.Instruction) error {
	if c.flagS() && !c.flagE() {
		c.branchTo(inst)
	}
	return nil
}

// opBGE: branch if greater-or-equal, i.e. !S || E.
func (c *Core) opBGE(inst isa.Instruction) error {
	if !c.flagS() || c.flagE() {
		c.branchTo(inst)
	}
	return nil
}

// opBLE: branch if less-or-equal, i.e. S || E.
func (c *Core) opBLE(inst isa.Instruction) error {
	if c.flagS() || c.flagE() {
		c.branchTo(inst)
	}
	return nil
}

func (c *Core) opPUSH(inst isa.Instruction) error {
	return c.push(inst.Reg)
}

func (c *Core) opPOP(inst isa.Instruction) error {
	return c.pop(inst.Reg)
}

// opCALL pushes the return address (current, already-advanced IP) and
// FP via createFrame, then jumps to the target operand.
func (c *Core) opCALL(inst isa.Instruction) error {
	target := c.riVal(inst)
	if err := c.createFrame(); err != nil {
		return err
	}
	c.regs[RegIP] = target
	return nil
}

func (c *Core) opRET(inst isa.Instruction) error {
	return c.destroyFrame()
}

// opINT dispatches to a virtual-interrupt handler if one is registered
// for the index, otherwise takes the real, software interrupt-vector
// path.
func (c *Core) opINT(inst isa.Instruction) error {
	index := uint8(c.riVal(inst))
	if h, ok := c.virq.Lookup(index); ok {
		return h.Run(c)
	}
	return c.enterInterrupt(c.intTableAddr, index, false)
}

func (c *Core) opRETINT(inst isa.Instruction) error {
	if !c.isPrivileged() {
		return accessViolation("RETINT in unprivileged mode")
	}
	return c.exitInterrupt()
}

func (c *Core) opCLI(inst isa.Instruction) error {
	if !c.isPrivileged() {
		return accessViolation("CLI in unprivileged mode")
	}
	c.setHwint(false)
	return nil
}

func (c *Core) opSTI(inst isa.Instruction) error {
	if !c.isPrivileged() {
		return accessViolation("STI in unprivileged mode")
	}
	c.setHwint(true)
	return nil
}

func (c *Core) opIN(inst isa.Instruction) error {
	port := c.riVal(inst)
	v, err := c.ports.ReadU16(port, c.isPrivileged())
	if err != nil {
		return err
	}
	return c.setRegChecked(inst.Reg, v)
}

func (c *Core) opINB(inst isa.Instruction) error {
	port := c.riVal(inst)
	v, err := c.ports.ReadU8(port, c.isPrivileged())
	if err != nil {
		return err
	}
	return c.setRegChecked(inst.Reg, uint16(v))
}

func (c *Core) opOUT(inst isa.Instruction) error {
	port := c.riVal(inst)
	return c.ports.WriteU16(port, c.regs[inst.Reg], c.isPrivileged())
}

func (c *Core) opOUTB(inst isa.Instruction) error {
	port := c.riVal(inst)
	return c.ports.WriteU8(port, uint8(c.regs[inst.Reg]), c.isPrivileged())
}

func (c *Core) opHLT(inst isa.Instruction) error {
	c.keepRunning = false
	return nil
}

// opRST is privileged-only: resets the register file and the decode
// cache, discarding any open call/interrupt frames.
func (c *Core) opRST(inst isa.Instruction) error {
	if !c.isPrivileged() {
		return accessViolation("RST in unprivileged mode")
	}
	c.resetRegisters()
	c.frames = nil
	c.icache.Reset()
	return nil
}

func (c *Core) opIDLE(inst isa.Instruction) error {
	c.idle = true
	return nil
}

// opCAS implements the atomic compare-and-swap primitive. The address
// is DS:[Reg]; the expected value is conventionally carried in R0
// (mirroring the fixed-register convention BlockIO uses for R0..R4,
// since the instruction format has no third operand slot); the
// replacement is the other operand. E is set to whether the swap
// succeeded; on failure R0 is updated to the current value so a retry
// loop can re-read it without a second memory access.
func (c *Core) opCAS(inst isa.Instruction) error {
	addr := c.dsAddr(c.regs[inst.Reg])
	expected := c.regs[0]
	replacement := c.riVal(inst)
	ok, cur, err := c.memory.CasU16(addr, expected, replacement)
	if err != nil {
		return err
	}
	c.setE(ok)
	if !ok {
		c.regs[0] = cur
	}
	return nil
}

// createTable builds the dense opcode dispatch table as a literal
// array assignment (table entries assigned by opcode position, not
// looked up by name or reflection).
func (c *Core) createTable() {
	c.table = [isa.NumOpcodes]func(*Core, isa.Instruction) error{
		isa.NOP: (*Core).opNOP,
		isa.LW:  (*Core).opLW,
		isa.LB:  (*Core).opLB,
		isa.LI:  (*Core).opLI,
		isa.STW: (*Core).opSTW,
		isa.STB: (*Core).opSTB,
		isa.MOV: (*Core).opMOV,
		isa.SWP: (*Core).opSWP,

		isa.INC: (*Core).opINC,
		isa.DEC: (*Core).opDEC,
		isa.ADD: (*Core).opADD,
		isa.SUB: (*Core).opSUB,
		isa.MUL: (*Core).opMUL,
		isa.DIV: (*Core).opDIV,
		isa.MOD: (*Core).opMOD,

		isa.INCL: (*Core).opINCL,
		isa.DECL: (*Core).opDECL,
		isa.ADDL: (*Core).opADDL,
		isa.SUBL: (*Core).opSUBL,
		isa.MULL: (*Core).opMULL,
		isa.DIVL: (*Core).opDIVL,
		isa.MODL: (*Core).opMODL,

		isa.AND:    (*Core).opAND,
		isa.OR:     (*Core).opOR,
		isa.XOR:    (*Core).opXOR,
		isa.NOT:    (*Core).opNOT,
		isa.SHIFTL: (*Core).opSHIFTL,
		isa.SHIFTR: (*Core).opSHIFTR,

		isa.CMP:  (*Core).opCMP,
		isa.CMPU: (*Core).opCMPU,
		isa.J:    (*Core).opJ,
		isa.BE:   (*Core).opBE,
		isa.BNE:  (*Core).opBNE,
		isa.BZ:   (*Core).opBZ,
		isa.BNZ:  (*Core).opBNZ,
		isa.BS:   (*Core).opBS,
		isa.BNS:  (*Core).opBNS,
		isa.BG:   (*Core).opBG,
		isa.BL:   (*Core).opBL,
		isa.BGE:  (*Core).opBGE,
		isa.BLE:  (*Core).opBLE,

		isa.PUSH: (*Core).opPUSH,
		isa.POP:  (*Core).opPOP,
		isa.CALL: (*Core).opCALL,
		isa.RET:  (*Core).opRET,

		isa.INT:    (*Core).opINT,
		isa.RETINT: (*Core).opRETINT,
		isa.CLI:    (*Core).opCLI,
		isa.STI:    (*Core).opSTI,

		isa.IN:   (*Core).opIN,
		isa.INB:  (*Core).opINB,
		isa.OUT:  (*Core).opOUT,
		isa.OUTB: (*Core).opOUTB,

		isa.HLT:  (*Core).opHLT,
		isa.RST:  (*Core).opRST,
		isa.IDLE: (*Core).opIDLE,
		isa.CAS:  (*Core).opCAS,
	}
}
