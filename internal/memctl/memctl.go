/*
 * Segmented, paged physical memory controller.
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

// Package memctl implements the segmented, paged physical memory
// controller shared by all cores of a machine.
package memctl

import (
	"sync"

	"github.com/segcore/segcore/internal/vmerrors"
)

// DefaultPageSize matches the page size used by the reference assembler
// and interrupt-vector layout.
const DefaultPageSize = 256

// Page is one fixed-size, page-aligned slice of physical memory.
type Page struct {
	Index      uint32 // physical page number: physAddr / pageSize
	Data       []byte
	Read       bool
	Write      bool
	Execute    bool
	Privileged bool
	Dirty      bool

	mu sync.Mutex
}

// Controller owns every allocated page and arbitrates byte/half/word
// access, privilege checks, and the cross-core CAS primitive.
type Controller struct {
	mu       sync.RWMutex
	pageSize uint32
	pages    map[uint32]*Page

	// segTop tracks, per segment, the next logical page index (counting
	// down from the top of the 16-bit logical space) to hand out for
	// stack allocation, so nested interrupt frames in the same segment
	// don't collide.
	segTop map[uint8]uint32

	// invalidate is called with a physical address whenever a write
	// lands on a page marked Execute, so the instruction cache can drop
	// any stale decode at that address. Nil is a valid "no cache wired
	// yet" state.
	invalidate func(addr uint32)
}

// New creates a Controller with the given page size (must be a power of
// two dividing 0x10000). pageSize<=0 selects DefaultPageSize.
func New(pageSize uint32) *Controller {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		pageSize: pageSize,
		pages:    make(map[uint32]*Page),
		segTop:   make(map[uint8]uint32),
	}
}

// SetInvalidateHook wires a callback invoked on every write to an
// executable page, so the decode cache can be kept coherent with
// self-modifying code. Not called for data-only pages.
func (c *Controller) SetInvalidateHook(fn func(addr uint32)) {
	c.invalidate = fn
}

func (c *Controller) pageIndex(addr uint32) uint32 {
	return addr / c.pageSize
}

func (c *Controller) getPageLocked(index uint32) *Page {
	return c.pages[index]
}

// GetPage returns the page currently backing the given physical page
// index, or nil if unallocated.
func (c *Controller) GetPage(index uint32) *Page {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pages[index]
}

// AllocPage allocates (or replaces) the page at the given physical
// address's page index with the given flags. Returns the page.
func (c *Controller) AllocPage(addr uint32, privileged, execute bool) *Page {
	idx := c.pageIndex(addr)
	c.mu.Lock()
	defer c.mu.Unlock()
	p := &Page{
		Index:      idx,
		Data:       make([]byte, c.pageSize),
		Read:       true,
		Write:      true,
		Execute:    execute,
		Privileged: privileged,
	}
	c.pages[idx] = p
	return p
}

// FreePage releases the page at the given physical page index, if any.
func (c *Controller) FreePage(index uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pages, index)
}

// FreePageAt releases whichever page currently backs the given
// physical address.
func (c *Controller) FreePageAt(addr uint32) {
	c.FreePage(c.pageIndex(addr))
}

// AllocStack allocates a fresh page within the given segment and
// returns the top-of-stack logical address: one past the last usable
// half-word, so the first predecrement-push lands inside the page.
// Successive calls in the same segment (nested interrupt entries) hand
// out distinct pages, counting down from the top of the segment.
func (c *Controller) AllocStack(segment uint8) uint16 {
	pagesPerSeg := uint32(0x10000) / c.pageSize

	c.mu.Lock()
	top, ok := c.segTop[segment]
	if !ok {
		top = pagesPerSeg
	}
	if top == 0 {
		top = pagesPerSeg
	}
	top--
	c.segTop[segment] = top
	c.mu.Unlock()

	logicalBase := top * c.pageSize
	physBase := uint32(segment)<<16 | logicalBase
	c.AllocPage(physBase, false, false)

	// SP is the address one past the last usable half-word; logicalBase
	// + pageSize truncates to 0 exactly when the stack sits at the top
	// of the logical address space, which is the common case and is
	// intentional: predecrement addressing wraps correctly.
	return uint16(logicalBase + c.pageSize)
}

// PageDump is one page's (index, bytes) pair as recorded by a
// MachineDump snapshot.
type PageDump struct {
	Index uint32
	Data  []byte
}

// Snapshot copies every currently allocated page into a PageDump list.
// Intended for test harnesses and the in-memory coredump structs; no
// on-disk serialization is implied.
func (c *Controller) Snapshot() []PageDump {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]PageDump, 0, len(c.pages))
	for idx, p := range c.pages {
		p.mu.Lock()
		data := append([]byte(nil), p.Data...)
		p.mu.Unlock()
		out = append(out, PageDump{Index: idx, Data: data})
	}
	return out
}

func (c *Controller) checkAccess(p *Page, privileged bool) error {
	if p == nil {
		return vmerrors.NewCPUException("access to unallocated page")
	}
	if p.Privileged && !privileged {
		return vmerrors.NewAccessViolation("unprivileged access to privileged page")
	}
	return nil
}

// ReadU8 reads one byte at the given physical address.
func (c *Controller) ReadU8(addr uint32, privileged bool) (uint8, error) {
	c.mu.RLock()
	p := c.getPageLocked(c.pageIndex(addr))
	c.mu.RUnlock()
	if err := c.checkAccess(p, privileged); err != nil {
		return 0, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	off := addr % c.pageSize
	return p.Data[off], nil
}

// ReadU16 reads a little-endian half-word, supporting unaligned access
// by reading the two constituent bytes independently (which may span a
// page boundary).
func (c *Controller) ReadU16(addr uint32, privileged bool) (uint16, error) {
	lo, err := c.ReadU8(addr, privileged)
	if err != nil {
		return 0, err
	}
	hi, err := c.ReadU8(addr+1, privileged)
	if err != nil {
		return 0, err
	}
	return uint16(lo) | uint16(hi)<<8, nil
}

// ReadU32 reads a little-endian word, byte by byte, supporting
// unaligned and cross-page access.
func (c *Controller) ReadU32(addr uint32, privileged bool) (uint32, error) {
	var v uint32
	for i := uint32(0); i < 4; i++ {
		b, err := c.ReadU8(addr+i, privileged)
		if err != nil {
			return 0, err
		}
		v |= uint32(b) << (8 * i)
	}
	return v, nil
}

func (c *Controller) writeByteLocked(addr uint32, value uint8, privileged bool) error {
	c.mu.RLock()
	p := c.getPageLocked(c.pageIndex(addr))
	c.mu.RUnlock()
	if err := c.checkAccess(p, privileged); err != nil {
		return err
	}
	p.mu.Lock()
	off := addr % c.pageSize
	p.Data[off] = value
	p.Dirty = true
	execute := p.Execute
	p.mu.Unlock()

	if execute && c.invalidate != nil {
		c.invalidate(addr)
	}
	return nil
}

// WriteU8 writes one byte at the given physical address.
func (c *Controller) WriteU8(addr uint32, value uint8, privileged bool) error {
	return c.writeByteLocked(addr, value, privileged)
}

// WriteU16 writes a little-endian half-word.
func (c *Controller) WriteU16(addr uint32, value uint16, privileged bool) error {
	if err := c.writeByteLocked(addr, uint8(value), privileged); err != nil {
		return err
	}
	return c.writeByteLocked(addr+1, uint8(value>>8), privileged)
}

// WriteU32 writes a true little-endian word. The source this module was
// adapted from calls the half-word writer here by mistake, truncating
// the top 16 bits; this implementation performs the full 32-bit write.
func (c *Controller) WriteU32(addr uint32, value uint32, privileged bool) error {
	if err := c.WriteU16(addr, uint16(value), privileged); err != nil {
		return err
	}
	return c.WriteU16(addr+2, uint16(value>>16), privileged)
}

// CasU16 atomically compares the half-word at addr to expected and, if
// equal, replaces it with replacement. Returns (true, replacement) on
// success or (false, currentValue) on failure. Atomic with respect to
// other cores via the target page's own lock(s). addr may land on the
// last byte of a page, in which case the half-word spans into the next
// page index; that case locks both pages, always in ascending index
// order, so it can never deadlock against another CAS's lock pair.
func (c *Controller) CasU16(addr uint32, expected, replacement uint16) (bool, uint16, error) {
	off := addr % c.pageSize
	if off == c.pageSize-1 {
		return c.casU16CrossPage(addr, expected, replacement)
	}

	c.mu.RLock()
	p := c.getPageLocked(c.pageIndex(addr))
	c.mu.RUnlock()
	if p == nil {
		return false, 0, vmerrors.NewAccessViolation("cas on unallocated page")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	cur := uint16(p.Data[off]) | uint16(p.Data[off+1])<<8
	if cur != expected {
		return false, cur, nil
	}
	p.Data[off] = uint8(replacement)
	p.Data[off+1] = uint8(replacement >> 8)
	p.Dirty = true
	return true, replacement, nil
}

// casU16CrossPage handles the half-word whose low byte is the last
// byte of its page and whose high byte is the first byte of the next
// page index. lo and hi are always locked low-index-first so that
// concurrent cross-page CAS calls can't form a lock cycle.
func (c *Controller) casU16CrossPage(addr uint32, expected, replacement uint16) (bool, uint16, error) {
	loIdx := c.pageIndex(addr)
	hiIdx := loIdx + 1

	c.mu.RLock()
	lo := c.getPageLocked(loIdx)
	hi := c.getPageLocked(hiIdx)
	c.mu.RUnlock()
	if lo == nil || hi == nil {
		return false, 0, vmerrors.NewAccessViolation("cas spans an unallocated page")
	}

	lo.mu.Lock()
	defer lo.mu.Unlock()
	hi.mu.Lock()
	defer hi.mu.Unlock()

	loOff := c.pageSize - 1
	cur := uint16(lo.Data[loOff]) | uint16(hi.Data[0])<<8
	if cur != expected {
		return false, cur, nil
	}
	lo.Data[loOff] = uint8(replacement)
	hi.Data[0] = uint8(replacement >> 8)
	lo.Dirty = true
	hi.Dirty = true
	return true, replacement, nil
}

// InterruptVector is the packed little-endian {CS, DS, IP} entry stored
// in interrupt and IRQ vector tables.
type InterruptVector struct {
	CS uint8
	DS uint8
	IP uint16
}

// LoadInterruptVector reads the 4-byte vector at tableBase for the
// given index (privileged read; vector tables always live on
// privileged pages).
func (c *Controller) LoadInterruptVector(tableBase uint32, index uint8) (InterruptVector, error) {
	addr := tableBase + uint32(index)*4
	word, err := c.ReadU32(addr, true)
	if err != nil {
		return InterruptVector{}, err
	}
	return InterruptVector{
		CS: uint8(word),
		DS: uint8(word >> 8),
		IP: uint16(word >> 16),
	}, nil
}
