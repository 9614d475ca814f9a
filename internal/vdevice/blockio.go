/*
 * Block I/O virtual interrupt handler.
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

package vdevice

import (
	"sync"

	"github.com/segcore/segcore/internal/vmerrors"
)

// BlockSize is the fixed storage I/O transfer unit.
const BlockSize = 1024

// Storage is the block-device contract a BlockIO handler dispatches
// to. Grounded on src/storage.py's Storage/FileBackedStorage split:
// this interface is the part that is in scope (the device façade and
// register convention); concrete storage backends are supplied by
// internal/storage.
type Storage interface {
	// Size reports the device's capacity in bytes.
	Size() uint32
	// ReadBlocks returns cnt*BlockSize bytes starting at block srcBlock.
	ReadBlocks(srcBlock uint16, cnt uint8) ([]byte, error)
	// WriteBlocks writes data (cnt*BlockSize bytes) starting at block
	// dstBlock.
	WriteBlocks(dstBlock uint16, cnt uint8, data []byte) error
}

// BlockIO is the virtual interrupt handler for device-level block
// storage. Register convention: R0=device id, R1=0
// read/1 write, R2/R3 encode source/destination per direction, R4 low
// 8 bits = block count, DS low 8 bits selects the segment for the
// memory-side address. R0 is overwritten with 0 on success or 0xFFFF
// on any failure.
type BlockIO struct {
	mu      sync.RWMutex
	storage map[uint16]Storage
}

// NewBlockIO creates an empty device table.
func NewBlockIO() *BlockIO {
	return &BlockIO{storage: make(map[uint16]Storage)}
}

// Attach registers a storage device under the given device id.
func (b *BlockIO) Attach(id uint16, s Storage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storage[id] = s
}

const (
	regR0 = 0
	regR1 = 1
	regR2 = 2
	regR3 = 3
	regR4 = 4
	regDS = 29
)

// Run implements Handler.
func (b *BlockIO) Run(core Core) error {
	devID := core.GetReg(regR0)

	b.mu.RLock()
	dev, ok := b.storage[devID]
	b.mu.RUnlock()
	if !ok {
		core.SetReg(regR0, 0xFFFF)
		return nil
	}

	write := core.GetReg(regR1) != 0
	cnt := uint8(core.GetReg(regR4))
	segment := uint8(core.GetReg(regDS))

	if write {
		srcLogical := core.GetReg(regR2)
		dstBlock := core.GetReg(regR3)
		srcAddr := uint32(segment)<<16 | uint32(srcLogical)

		data := make([]byte, int(cnt)*BlockSize)
		for i := range data {
			v, err := core.Memory().ReadU8(srcAddr+uint32(i), true)
			if err != nil {
				core.SetReg(regR0, 0xFFFF)
				return nil
			}
			data[i] = v
		}
		if err := dev.WriteBlocks(dstBlock, cnt, data); err != nil {
			core.SetReg(regR0, 0xFFFF)
			return nil
		}
	} else {
		srcBlock := core.GetReg(regR2)
		dstLogical := core.GetReg(regR3)
		dstAddr := uint32(segment)<<16 | uint32(dstLogical)

		data, err := dev.ReadBlocks(srcBlock, cnt)
		if err != nil {
			core.SetReg(regR0, 0xFFFF)
			return nil
		}
		for i, v := range data {
			if err := core.Memory().WriteU8(dstAddr+uint32(i), v, true); err != nil {
				core.SetReg(regR0, 0xFFFF)
				return nil
			}
		}
	}

	core.SetReg(regR0, 0)
	return nil
}

// BoundsCheck mirrors src/storage.py's Storage.read_block/write_block
// guard: (block+cnt)*BlockSize must not exceed the device's size. It is
// exported so concrete Storage implementations (internal/storage) can
// share the exact check the register convention promises.
func BoundsCheck(size uint32, block uint16, cnt uint8) error {
	end := (uint32(block) + uint32(cnt)) * BlockSize
	if end > size {
		return vmerrors.NewStorageAccessError("out of bounds access: device size %d too small for block %d count %d", size, block, cnt)
	}
	return nil
}
