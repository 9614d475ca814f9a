/*
 * Port-mapped I/O bus and device table.
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

// Package portbus implements the port-mapped I/O bus: a table of
// devices addressed by 16-bit port number, each exposing u8/u16
// read/write and a protected-port predicate.
//
// Device-table-by-number pattern adapted from channel/device numbers
// to 16-bit ports.
package portbus

import (
	"sync"

	"github.com/segcore/segcore/internal/vmerrors"
)

// Device is a port-mapped peripheral.
type Device interface {
	ReadU8(port uint16) (uint8, error)
	ReadU16(port uint16) (uint16, error)
	WriteU8(port uint16, value uint8) error
	WriteU16(port uint16, value uint16) error
	// IsProtected reports whether access to port requires privileged
	// mode.
	IsProtected(port uint16) bool
}

// Table maps port numbers to the device that owns them.
type Table struct {
	mu      sync.RWMutex
	devices map[uint16]Device
}

// NewTable creates an empty port table.
func NewTable() *Table {
	return &Table{devices: make(map[uint16]Device)}
}

// Register binds a device to a port number. A device may be registered
// under more than one port.
func (t *Table) Register(port uint16, dev Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.devices[port] = dev
}

func (t *Table) lookup(port uint16, privileged bool) (Device, error) {
	t.mu.RLock()
	dev, ok := t.devices[port]
	t.mu.RUnlock()
	if !ok {
		return nil, vmerrors.NewInvalidResource("port", port)
	}
	if dev.IsProtected(port) && !privileged {
		return nil, vmerrors.NewAccessViolation("unprivileged access to protected port")
	}
	return dev, nil
}

// ReadU8 dispatches an INB to the owning device.
func (t *Table) ReadU8(port uint16, privileged bool) (uint8, error) {
	dev, err := t.lookup(port, privileged)
	if err != nil {
		return 0, err
	}
	return dev.ReadU8(port)
}

// ReadU16 dispatches an IN to the owning device.
func (t *Table) ReadU16(port uint16, privileged bool) (uint16, error) {
	dev, err := t.lookup(port, privileged)
	if err != nil {
		return 0, err
	}
	return dev.ReadU16(port)
}

// WriteU8 dispatches an OUTB to the owning device.
func (t *Table) WriteU8(port uint16, value uint8, privileged bool) error {
	dev, err := t.lookup(port, privileged)
	if err != nil {
		return err
	}
	return dev.WriteU8(port, value)
}

// WriteU16 dispatches an OUT to the owning device.
func (t *Table) WriteU16(port uint16, value uint16, privileged bool) error {
	dev, err := t.lookup(port, privileged)
	if err != nil {
		return err
	}
	return dev.WriteU16(port, value)
}
