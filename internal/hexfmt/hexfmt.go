/*
 * Hex formatting for register and memory dumps.
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

// Package hexfmt formats register files and raw page bytes as hex
// text for CoreDump/MachineDump's String() methods.
//
// Adapted from util/hex/hex.go's FormatHalf/FormatBytes: the same
// streaming strings.Builder + nibble-table approach, repurposed from
// formatting S370 instruction operands to formatting the segmented
// machine's register file and page contents.
package hexfmt

import "strings"

const digits = "0123456789ABCDEF"

// Registers renders a register file as space-separated 4-digit
// half-word values.
func Registers(regs []uint16) string {
	var b strings.Builder
	for i, r := range regs {
		if i > 0 {
			b.WriteByte(' ')
		}
		writeHalf(&b, r)
	}
	return b.String()
}

// Bytes renders a byte slice as space-free pairs of hex digits, useful
// for a compact page dump.
func Bytes(data []byte) string {
	var b strings.Builder
	for _, by := range data {
		b.WriteByte(digits[(by>>4)&0xf])
		b.WriteByte(digits[by&0xf])
	}
	return b.String()
}

func writeHalf(b *strings.Builder, word uint16) {
	for shift := 12; shift >= 0; shift -= 4 {
		b.WriteByte(digits[(word>>uint(shift))&0xf])
	}
}
