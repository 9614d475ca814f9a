/*
 * Instruction cache test cases.
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

package icache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segcore/segcore/internal/icache"
	"github.com/segcore/segcore/internal/isa"
)

func TestGetMissThenHitAfterPut(t *testing.T) {
	c := icache.New(4)

	_, ok := c.Get(0x100)
	require.False(t, ok)

	want := isa.Instruction{Opcode: isa.ADD, Reg: 1}
	c.Put(0x100, want)

	got, ok := c.Get(0x100)
	require.True(t, ok)
	require.Equal(t, want, got)

	stats := c.Stats()
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(1), stats.Misses)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := icache.New(2)
	c.Put(1, isa.Instruction{Opcode: isa.NOP})
	c.Put(2, isa.Instruction{Opcode: isa.NOP})

	// touch 1, making 2 the LRU entry.
	_, _ = c.Get(1)

	c.Put(3, isa.Instruction{Opcode: isa.NOP})

	_, ok := c.Get(2)
	require.False(t, ok, "entry 2 should have been evicted")
	_, ok = c.Get(1)
	require.True(t, ok)
	_, ok = c.Get(3)
	require.True(t, ok)
	require.Equal(t, 2, c.Len())
}

func TestInvalidateDropsEntry(t *testing.T) {
	c := icache.New(4)
	c.Put(5, isa.Instruction{Opcode: isa.NOP})
	c.Invalidate(5)

	_, ok := c.Get(5)
	require.False(t, ok)
}

func TestResetClearsEverything(t *testing.T) {
	c := icache.New(4)
	c.Put(1, isa.Instruction{Opcode: isa.NOP})
	c.Put(2, isa.Instruction{Opcode: isa.NOP})
	c.Reset()
	require.Equal(t, 0, c.Len())
}
