/*
 * Bounded LRU decoded instruction cache.
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

// Package icache implements the bounded, strictly-LRU decoded
// instruction cache keyed by physical address.
//
// No library in the reference corpus provides an LRU cache; this is a
// deliberate stdlib fallback on container/list, the conventional Go
// building block for a manual LRU (see DESIGN.md).
package icache

import (
	"container/list"
	"sync"

	"github.com/segcore/segcore/internal/isa"
)

// DefaultCapacity matches the reference instruction cache size.
const DefaultCapacity = 256

type entry struct {
	addr uint32
	inst isa.Instruction
}

// Stats are exported for the metrics layer.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Cache is a fixed-capacity, address-keyed LRU of decoded instructions.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[uint32]*list.Element

	hits, misses uint64
}

// New creates a Cache with the given capacity (DefaultCapacity if <= 0).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[uint32]*list.Element),
	}
}

// Get returns the decoded instruction for addr and true on a hit,
// touching it as most-recently-used. Returns (zero, false) on a miss.
func (c *Cache) Get(addr uint32) (isa.Instruction, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[addr]; ok {
		c.ll.MoveToFront(elem)
		c.hits++
		return elem.Value.(*entry).inst, true
	}
	c.misses++
	return isa.Instruction{}, false
}

// Put inserts or refreshes the decoded instruction at addr, evicting
// the least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(addr uint32, inst isa.Instruction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[addr]; ok {
		elem.Value.(*entry).inst = inst
		c.ll.MoveToFront(elem)
		return
	}

	elem := c.ll.PushFront(&entry{addr: addr, inst: inst})
	c.index[addr] = elem

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*entry).addr)
		}
	}
}

// Invalidate drops a single cached entry, if present. Its signature
// fits memctl.Controller.SetInvalidateHook; nothing in this module
// installs it there.
func (c *Cache) Invalidate(addr uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.index[addr]; ok {
		c.ll.Remove(elem)
		delete(c.index, addr)
	}
}

// Reset clears the cache wholesale. Called on core reset; the next
// fetch necessarily re-decodes from memory.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.index = make(map[uint32]*list.Element)
}

// Stats returns a snapshot of hit/miss counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses}
}

// Len reports the current number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
