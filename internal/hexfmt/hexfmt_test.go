/*
 * Hex formatting test cases.
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

package hexfmt_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segcore/segcore/internal/hexfmt"
)

func TestRegistersFormatsFourDigitHalfWords(t *testing.T) {
	got := hexfmt.Registers([]uint16{0x0, 0xBEEF, 0x1})
	require.Equal(t, "0000 BEEF 0001", got)
}

func TestRegistersEmpty(t *testing.T) {
	require.Equal(t, "", hexfmt.Registers(nil))
}

func TestBytesFormatsWithoutSeparators(t *testing.T) {
	got := hexfmt.Bytes([]byte{0xDE, 0xAD, 0x00, 0x01})
	require.Equal(t, "DEAD0001", got)
}
