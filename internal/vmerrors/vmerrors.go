/*
 * Typed error taxonomy raised by the execution core.
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

// Package vmerrors defines the error taxonomy raised by the execution core.
package vmerrors

import "fmt"

// Kind tags the category of a CoreError so callers can branch on it
// with errors.As without parsing message text.
type Kind int

const (
	// InvalidOpcode is raised when the fetch/decode step hits an opcode
	// with no registered handler.
	InvalidOpcode Kind = iota
	// AccessViolation is raised when a privileged instruction, register,
	// port, or page is touched from unprivileged mode.
	AccessViolation
	// InvalidResource is raised for references to an unknown port.
	InvalidResource
	// CPUException covers stack-frame mismatches and other internal
	// self-consistency failures.
	CPUException
	// StorageAccessError covers out-of-bounds block storage I/O. It is
	// never propagated past a virtual-interrupt handler; callers convert
	// it to the R0=0xFFFF register convention instead.
	StorageAccessError
)

func (k Kind) String() string {
	switch k {
	case InvalidOpcode:
		return "InvalidOpcode"
	case AccessViolation:
		return "AccessViolation"
	case InvalidResource:
		return "InvalidResource"
	case CPUException:
		return "CPUException"
	case StorageAccessError:
		return "StorageAccessError"
	default:
		return "UnknownError"
	}
}

// CoreError is the single concrete error type for everything that can
// terminate a core's step.
type CoreError struct {
	Kind    Kind
	Opcode  uint8  // valid for InvalidOpcode
	IP      uint16 // valid for InvalidOpcode
	Reason  string // valid for AccessViolation
	ResKind string // valid for InvalidResource ("port")
	ResID   uint16 // valid for InvalidResource
	Message string // valid for CPUException and StorageAccessError
}

func (e *CoreError) Error() string {
	switch e.Kind {
	case InvalidOpcode:
		return fmt.Sprintf("invalid opcode 0x%02x at ip=0x%04x", e.Opcode, e.IP)
	case AccessViolation:
		return fmt.Sprintf("access violation: %s", e.Reason)
	case InvalidResource:
		return fmt.Sprintf("invalid resource %s 0x%04x", e.ResKind, e.ResID)
	case CPUException:
		return fmt.Sprintf("cpu exception: %s", e.Message)
	case StorageAccessError:
		return fmt.Sprintf("storage access error: %s", e.Message)
	default:
		return "unknown core error"
	}
}

// NewInvalidOpcode builds an InvalidOpcode CoreError.
func NewInvalidOpcode(opcode uint8, ip uint16) *CoreError {
	return &CoreError{Kind: InvalidOpcode, Opcode: opcode, IP: ip}
}

// NewAccessViolation builds an AccessViolation CoreError.
func NewAccessViolation(reason string) *CoreError {
	return &CoreError{Kind: AccessViolation, Reason: reason}
}

// NewInvalidResource builds an InvalidResource CoreError.
func NewInvalidResource(kind string, id uint16) *CoreError {
	return &CoreError{Kind: InvalidResource, ResKind: kind, ResID: id}
}

// NewCPUException builds a CPUException CoreError.
func NewCPUException(format string, a ...interface{}) *CoreError {
	return &CoreError{Kind: CPUException, Message: fmt.Sprintf(format, a...)}
}

// NewStorageAccessError builds a StorageAccessError CoreError.
func NewStorageAccessError(format string, a ...interface{}) *CoreError {
	return &CoreError{Kind: StorageAccessError, Message: fmt.Sprintf(format, a...)}
}
