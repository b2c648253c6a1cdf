/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package value

import "fmt"

// ErrorKind classifies runtime failures per the error taxonomy (spec §7).
// It is carried on Error, not encoded as distinct Go error types, so callers
// can type-switch once instead of chasing a type hierarchy — matching the
// teacher's flat error-string conventions (scm/scm.go panics with plain
// strings; we upgrade that to a typed-but-flat Error).
type ErrorKind uint8

const (
	ErrType ErrorKind = iota
	ErrBinding
	ErrRuntimeProtocol
	ErrPatternMatch
	ErrCompile
)

func (k ErrorKind) String() string {
	switch k {
	case ErrType:
		return "type error"
	case ErrBinding:
		return "binding error"
	case ErrRuntimeProtocol:
		return "runtime protocol error"
	case ErrPatternMatch:
		return "pattern match failure"
	case ErrCompile:
		return "compile error"
	default:
		return "error"
	}
}

// Frame is one entry of a call-stack report (spec §3.4, §6.4).
type Frame struct {
	FunctionName string
	Location     string
	Depth        int
}

// Error is the engine's runtime error value: a kind, a message, and
// (attached by the outer exec driver, not by the opcode that raised it) a
// call-stack report.
type Error struct {
	Kind      ErrorKind
	Message   string
	CallStack []Frame
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if len(e.CallStack) == 0 {
		return e.Message
	}
	s := e.Message + "\nCall stack:\n"
	for _, f := range e.CallStack {
		loc := f.Location
		if loc == "" {
			loc = "<unknown>"
		}
		s += fmt.Sprintf("  [%d] %s at %s\n", f.Depth, f.FunctionName, loc)
	}
	return s
}

// WithCallStack returns a copy of e with its call-stack report attached,
// read from the current VmContext (spec §4.2.5: "the outer exec_with
// attaches a formatted Call stack report").
func (e *Error) WithCallStack(frames []Frame) *Error {
	cp := *e
	cp.CallStack = frames
	return &cp
}

// Common binding-error constructors (spec §4.3.2, §4.3.3).
func ErrMissingNamedArg(name string) *Error {
	return NewError(ErrBinding, "Missing required named argument: %s", name)
}

func ErrUnknownNamedArg(name string) *Error {
	return NewError(ErrBinding, "Unknown named argument: %s", name)
}

func ErrDuplicateNamedArg(name string) *Error {
	return NewError(ErrBinding, "Duplicate named argument: %s", name)
}
