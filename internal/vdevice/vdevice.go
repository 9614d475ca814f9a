/*
 * Virtual interrupt registry and handler interface.
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

// Package vdevice implements the virtual-interrupt registry: a table
// mapping INT index to a handler object that runs synchronously
// against core state, bypassing the real interrupt vector path
// entirely.
//
// Grounded on ducky/blockio.py's VIRTUAL_INTERRUPTS module-level
// registry, turned into a table owned by the machine and initialized
// at boot, not module-global state.
package vdevice

import "sync"

// MemoryAccessor is the narrow memory-controller surface a virtual
// interrupt handler needs.
type MemoryAccessor interface {
	ReadU8(addr uint32, privileged bool) (uint8, error)
	WriteU8(addr uint32, value uint8, privileged bool) error
}

// Core is the narrow core surface a virtual interrupt handler needs:
// register access plus a memory accessor.
type Core interface {
	GetReg(n uint8) uint16
	SetReg(n uint8, v uint16)
	Memory() MemoryAccessor
}

// Handler is a device façade invoked synchronously when its INT index
// is executed.
type Handler interface {
	Run(core Core) error
}

// Registry maps INT index to Handler. Owned by the machine, not
// process-global.
type Registry struct {
	mu       sync.RWMutex
	handlers map[uint8]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[uint8]Handler)}
}

// Register binds index to handler.
func (r *Registry) Register(index uint8, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[index] = handler
}

// Lookup returns the handler bound to index, if any.
func (r *Registry) Lookup(index uint8) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[index]
	return h, ok
}
