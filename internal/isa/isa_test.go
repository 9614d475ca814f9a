/*
 * Instruction encode/decode test cases.
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

package isa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segcore/segcore/internal/isa"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []isa.Instruction{
		{Opcode: isa.NOP},
		{Opcode: isa.ADD, Reg: 3, Ireg: 5, IsReg: true},
		{Opcode: isa.MOV, Reg: 12, IsReg: false, Immediate: 42},
		{Opcode: isa.MOV, Reg: 1, IsReg: false, Immediate: -1},
		{Opcode: isa.J, IsReg: false, Immediate: -4096},
		{Opcode: isa.J, IsReg: false, Immediate: 4095},
	}

	for _, want := range cases {
		word := isa.Encode(want)
		got := isa.Decode(word)
		require.Equal(t, want, got)
	}
}

func TestDecodeSignExtendsImmediate(t *testing.T) {
	inst := isa.Decode(isa.Encode(isa.Instruction{Opcode: isa.MOV, Reg: 0, Immediate: -1}))
	require.Equal(t, int16(-1), inst.Immediate)
}

func TestOpcodeTableIsDense(t *testing.T) {
	require.Greater(t, isa.NumOpcodes, 0)
	require.Less(t, int(isa.CAS), isa.NumOpcodes)
}
