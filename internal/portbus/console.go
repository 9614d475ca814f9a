/*
 * Console device on the port-mapped I/O bus.
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

package portbus

import "sync"

// Console ports: StatusPort reports whether a byte is available to
// read (bit 0) and whether the output side is ready (bit 1); DataPort
// carries the byte itself. Unprivileged-accessible: the console is not
// a protected device.
const (
	ConsoleStatusPort uint16 = 0x0100
	ConsoleDataPort   uint16 = 0x0101

	consoleRxReady uint8 = 0x01
	consoleTxReady uint8 = 0x02
)

// Console is a minimal port-mapped teletype: a single-byte input queue
// fed by Feed, and output bytes captured into Output for inspection by
// tests or a host terminal.
type Console struct {
	mu     sync.Mutex
	rx     []byte
	Output []byte
}

// NewConsole creates an empty console device.
func NewConsole() *Console {
	return &Console{}
}

// Feed appends input bytes as if typed at the console.
func (c *Console) Feed(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rx = append(c.rx, data...)
}

// IsProtected reports that the console is usable from unprivileged mode.
func (c *Console) IsProtected(_ uint16) bool {
	return false
}

// ReadU16 returns ReadU8's result zero-extended: the status on
// ConsoleStatusPort, the next queued byte on ConsoleDataPort, and 0 for
// any other port.
func (c *Console) ReadU16(port uint16) (uint16, error) {
	b, err := c.ReadU8(port)
	return uint16(b), err
}

// ReadU8 returns the status byte on ConsoleStatusPort or the next
// queued byte on ConsoleDataPort (0 if none queued).
func (c *Console) ReadU8(port uint16) (uint8, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch port {
	case ConsoleStatusPort:
		status := consoleTxReady
		if len(c.rx) > 0 {
			status |= consoleRxReady
		}
		return status, nil
	case ConsoleDataPort:
		if len(c.rx) == 0 {
			return 0, nil
		}
		b := c.rx[0]
		c.rx = c.rx[1:]
		return b, nil
	default:
		return 0, nil
	}
}

// WriteU16 writes the low byte of value to ConsoleDataPort.
func (c *Console) WriteU16(port uint16, value uint16) error {
	return c.WriteU8(port, uint8(value))
}

// WriteU8 appends a byte to Output when written to ConsoleDataPort;
// writes to any other port are ignored.
func (c *Console) WriteU8(port uint16, value uint8) error {
	if port != ConsoleDataPort {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Output = append(c.Output, value)
	return nil
}
