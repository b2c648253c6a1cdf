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

package vm

import "github.com/lkrlang/lkr/value"

// frame is one activation record: its own register window, the function
// being executed, the program counter, and the captures array visible to
// LoadCapture (spec §4.1.1). Each call gets its own fully-sized register
// slice rather than sharing one global stack — simpler to reason about
// without a compiler, at the cost of an extra allocation per call; grounded
// on scm/scm.go's Eval, which likewise allocates a fresh Env per call rather
// than reusing a shared stack.
type frame struct {
	fn       *value.Function
	regs     []value.V
	captures []value.V
	pc       int
	selfName string
	self     value.V // the closure's own value.V, visible to SelfName lookups
}

func newFrame(fn *value.Function, captures []value.V) *frame {
	return &frame{
		fn:       fn,
		regs:     make([]value.V, fn.NRegs),
		captures: captures,
	}
}

func (f *frame) get(r uint16) value.V { return f.regs[r] }

func (f *frame) set(r uint16, v value.V) { f.regs[r] = v }
