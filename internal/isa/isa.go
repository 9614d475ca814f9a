/*
 * Instruction word format, opcode table, and decoder.
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

// Package isa defines the instruction word format, the opcode table,
// and the decode function shared by every core.
package isa

// Opcode identifies one of the handlers in the dense dispatch table.
type Opcode uint8

// Opcode values. Numbering is implementation-defined; what matters is
// that it is dense, stable, and matched by the table built in
// internal/core.
const (
	NOP Opcode = iota
	LW
	LB
	LI
	STW
	STB
	MOV
	SWP

	INC
	DEC
	ADD
	SUB
	MUL
	DIV
	MOD

	INCL
	DECL
	ADDL
	SUBL
	MULL
	DIVL
	MODL

	AND
	OR
	XOR
	NOT
	SHIFTL
	SHIFTR

	CMP
	CMPU
	J
	BE
	BNE
	BZ
	BNZ
	BS
	BNS
	BG
	BL
	BGE
	BLE

	PUSH
	POP
	CALL
	RET

	INT
	RETINT
	CLI
	STI

	IN
	INB
	OUT
	OUTB

	HLT
	RST
	IDLE
	CAS

	opcodeCount
)

// NumOpcodes is the size the dense dispatch table must have.
const NumOpcodes = int(opcodeCount)

// Instruction is the decoded form of one 32-bit instruction word.
//
// Layout of the encoded word (bits, LSB first):
//
//	 0..7   opcode
//	 8..12  Reg      (destination / primary register, 0..31)
//	13..17  Ireg     (source register operand, 0..31)
//	18      IsReg    (1: operand is Ireg; 0: operand is Immediate)
//	19..31  Immediate, sign-extended from 13 bits
type Instruction struct {
	Opcode    Opcode
	Reg       uint8
	Ireg      uint8
	IsReg     bool
	Immediate int16
}

const (
	opcodeMask = 0x000000FF
	regShift   = 8
	regMask    = 0x1F
	iregShift  = 13
	iregMask   = 0x1F
	isRegBit   = 18
	immShift   = 19
	immBits    = 13
	immSignBit = 1 << (immBits - 1)
	immMask    = (1 << immBits) - 1
)

// Decode unpacks a 32-bit instruction word.
func Decode(word uint32) Instruction {
	imm := int16((word >> immShift) & immMask)
	if imm&immSignBit != 0 {
		imm |= ^int16(immMask)
	}
	return Instruction{
		Opcode:    Opcode(word & opcodeMask),
		Reg:       uint8((word >> regShift) & regMask),
		Ireg:      uint8((word >> iregShift) & iregMask),
		IsReg:     (word>>isRegBit)&1 != 0,
		Immediate: imm,
	}
}

// Encode packs an Instruction back into a 32-bit word. Used by tests to
// build programs without a separate assembler.
func Encode(inst Instruction) uint32 {
	word := uint32(inst.Opcode) & opcodeMask
	word |= uint32(inst.Reg&regMask) << regShift
	word |= uint32(inst.Ireg&iregMask) << iregShift
	if inst.IsReg {
		word |= 1 << isRegBit
	}
	word |= (uint32(inst.Immediate) & immMask) << immShift
	return word
}
