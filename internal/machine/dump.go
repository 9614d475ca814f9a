/*
 * Machine and core snapshot/dump support.
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

package machine

import (
	"fmt"
	"strings"

	"github.com/segcore/segcore/internal/core"
	"github.com/segcore/segcore/internal/hexfmt"
	"github.com/segcore/segcore/internal/memctl"
)

// CoreDump captures one core's full visible state: cpuid, coreid, all
// registers (general + specials, which include FLAGS), exit code, and
// the idle/keep_running bits.
type CoreDump struct {
	CPUID       string
	CoreID      string
	Registers   [core.NumRegisters]uint16
	ExitCode    int
	Idle        bool
	KeepRunning bool
}

// MachineDump is the in-memory snapshot format test harnesses build
// on. There is no on-disk serialization or reader; this is the
// structure a caller serializes however it likes.
type MachineDump struct {
	Cores []CoreDump
	Pages []memctl.PageDump
}

// String renders the dump as a single human-readable line, e.g. for
// die()-adjacent diagnostics or test failure output.
func (d CoreDump) String() string {
	return fmt.Sprintf("cpu=%s core=%s exit=%d idle=%v running=%v regs=[%s]",
		d.CPUID, d.CoreID, d.ExitCode, d.Idle, d.KeepRunning, hexfmt.Registers(d.Registers[:]))
}

// String renders every core's dump plus a one-line-per-page memory
// summary.
func (d MachineDump) String() string {
	var b strings.Builder
	for _, c := range d.Cores {
		b.WriteString(c.String())
		b.WriteByte('\n')
	}
	for _, p := range d.Pages {
		fmt.Fprintf(&b, "page[%d]=%s\n", p.Index, hexfmt.Bytes(p.Data))
	}
	return b.String()
}

// Dump captures the current state of every core on every CPU plus a
// snapshot of every allocated memory page.
func (m *Machine) Dump() MachineDump {
	var cores []CoreDump
	for _, cpu := range m.cpus {
		for _, c := range cpu.Cores() {
			var regs [core.NumRegisters]uint16
			for i := range regs {
				regs[i] = c.GetReg(uint8(i))
			}
			cores = append(cores, CoreDump{
				CPUID:       cpu.ID(),
				CoreID:      c.ID(),
				Registers:   regs,
				ExitCode:    c.ExitCode(),
				Idle:        c.Idle(),
				KeepRunning: c.KeepRunning(),
			})
		}
	}
	return MachineDump{
		Cores: cores,
		Pages: m.Memory.Snapshot(),
	}
}
