/*
 * Virtual interrupt registry test cases.
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

package vdevice_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segcore/segcore/internal/vdevice"
)

type fakeMemory struct {
	bytes map[uint32]uint8
}

func newFakeMemory() *fakeMemory { return &fakeMemory{bytes: make(map[uint32]uint8)} }

func (m *fakeMemory) ReadU8(addr uint32, _ bool) (uint8, error) {
	return m.bytes[addr], nil
}

func (m *fakeMemory) WriteU8(addr uint32, value uint8, _ bool) error {
	m.bytes[addr] = value
	return nil
}

type fakeCore struct {
	regs [30]uint16
	mem  *fakeMemory
}

func newFakeCore() *fakeCore { return &fakeCore{mem: newFakeMemory()} }

func (c *fakeCore) GetReg(n uint8) uint16     { return c.regs[n] }
func (c *fakeCore) SetReg(n uint8, v uint16)  { c.regs[n] = v }
func (c *fakeCore) Memory() vdevice.MemoryAccessor { return c.mem }

type fakeStorage struct {
	size uint32
	data map[uint16][]byte
}

func newFakeStorage(size uint32) *fakeStorage {
	return &fakeStorage{size: size, data: make(map[uint16][]byte)}
}

func (s *fakeStorage) Size() uint32 { return s.size }

func (s *fakeStorage) ReadBlocks(srcBlock uint16, cnt uint8) ([]byte, error) {
	if err := vdevice.BoundsCheck(s.size, srcBlock, cnt); err != nil {
		return nil, err
	}
	buf := make([]byte, int(cnt)*vdevice.BlockSize)
	copy(buf, s.data[srcBlock])
	return buf, nil
}

func (s *fakeStorage) WriteBlocks(dstBlock uint16, cnt uint8, data []byte) error {
	if err := vdevice.BoundsCheck(s.size, dstBlock, cnt); err != nil {
		return err
	}
	s.data[dstBlock] = append([]byte(nil), data...)
	return nil
}

func TestRegistryLookup(t *testing.T) {
	r := vdevice.NewRegistry()
	_, ok := r.Lookup(3)
	require.False(t, ok)

	blk := vdevice.NewBlockIO()
	r.Register(3, blk)

	h, ok := r.Lookup(3)
	require.True(t, ok)
	require.Same(t, blk, h)
}

func TestBlockIOWriteThenReadRoundTrips(t *testing.T) {
	blk := vdevice.NewBlockIO()
	storage := newFakeStorage(4 * vdevice.BlockSize)
	blk.Attach(7, storage)

	core := newFakeCore()
	for i := 0; i < vdevice.BlockSize; i++ {
		core.mem.bytes[uint32(i)] = byte(i % 251)
	}

	// write: device 7, R1=1, R2=src logical 0, R3=dst block 1, R4=1 block, DS=0
	core.SetReg(0, 7)
	core.SetReg(1, 1)
	core.SetReg(2, 0)
	core.SetReg(3, 1)
	core.SetReg(4, 1)
	core.SetReg(29, 0)

	require.NoError(t, blk.Run(core))
	require.Equal(t, uint16(0), core.GetReg(0))

	// read back into a different logical address (R0 now holds the
	// status, so the device id is loaded again)
	core.SetReg(0, 7)
	core.SetReg(1, 0)
	core.SetReg(2, 1)
	core.SetReg(3, 0x2000)
	require.NoError(t, blk.Run(core))
	require.Equal(t, uint16(0), core.GetReg(0))

	for i := 0; i < vdevice.BlockSize; i++ {
		require.Equal(t, byte(i%251), core.mem.bytes[uint32(0x2000)+uint32(i)])
	}
}

func TestBlockIOUnknownDeviceFails(t *testing.T) {
	blk := vdevice.NewBlockIO()
	core := newFakeCore()
	core.SetReg(0, 99)

	require.NoError(t, blk.Run(core))
	require.Equal(t, uint16(0xFFFF), core.GetReg(0))
}

func TestBlockIOOutOfBoundsFails(t *testing.T) {
	blk := vdevice.NewBlockIO()
	storage := newFakeStorage(1 * vdevice.BlockSize)
	blk.Attach(1, storage)

	core := newFakeCore()
	core.SetReg(0, 1)
	core.SetReg(1, 0)
	core.SetReg(2, 5) // block 5 does not exist on a 1-block device
	core.SetReg(3, 0)
	core.SetReg(4, 1)

	require.NoError(t, blk.Run(core))
	require.Equal(t, uint16(0xFFFF), core.GetReg(0))
}

func TestBoundsCheck(t *testing.T) {
	require.NoError(t, vdevice.BoundsCheck(2*vdevice.BlockSize, 0, 2))
	require.Error(t, vdevice.BoundsCheck(2*vdevice.BlockSize, 1, 2))
}
