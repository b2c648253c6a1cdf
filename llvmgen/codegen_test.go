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

package llvmgen

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"github.com/lkrlang/lkr/value"
)

func TestLowerFunctionReturnsConstant(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	b := ctx.NewBuilder()
	defer b.Dispose()
	m := ctx.NewModule("lowerfunction_test")

	fn := &value.Function{
		Name:   "answer",
		Consts: []value.V{value.NewInt(42)},
		Code: []value.Op{
			value.OpLoadKOf(0, 0),
			value.OpRetOf(0, 1),
		},
		NRegs: 1,
	}

	llfn, err := LowerFunction(m, b, "answer", fn)
	if err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}
	if llfn.IsNil() {
		t.Fatalf("LowerFunction returned a nil llvm.Value")
	}
	if got := m.NamedFunction("answer"); got.IsNil() {
		t.Fatalf("generated function was not added to the module under its name")
	}
}

func TestLowerFunctionDeclaresRuntimeABI(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	b := ctx.NewBuilder()
	defer b.Dispose()
	m := ctx.NewModule("abi_test")

	fn := &value.Function{
		Consts: []value.V{value.NewInt(1), value.NewInt(2)},
		Code: []value.Op{
			value.OpLoadKOf(0, 0),
			value.OpLoadKOf(1, 1),
			value.OpAddOf(0, 0, 1),
			value.OpRetOf(0, 1),
		},
		NRegs: 2,
	}
	if _, err := LowerFunction(m, b, "sum", fn); err != nil {
		t.Fatalf("LowerFunction: %v", err)
	}
	if decl := m.NamedFunction("lkr_rt_add"); decl.IsNil() {
		t.Fatalf("lkr_rt_add was not declared into the module")
	}
}

func TestLowerFunctionRejectsUnsupportedOpcode(t *testing.T) {
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	b := ctx.NewBuilder()
	defer b.Dispose()
	m := ctx.NewModule("unsupported_test")

	fn := &value.Function{
		Code: []value.Op{
			value.OpMakeClosureOf(0, 0),
			value.OpRetOf(0, 0),
		},
		NRegs: 1,
	}
	_, err := LowerFunction(m, b, "closes_over", fn)
	if err == nil {
		t.Fatalf("expected an UnsupportedOpError for MakeClosure")
	}
	uerr, ok := err.(*UnsupportedOpError)
	if !ok {
		t.Fatalf("error type = %T, want *UnsupportedOpError", err)
	}
	if uerr.Code != value.OpMakeClosure || uerr.Index != 0 {
		t.Fatalf("UnsupportedOpError = %+v, want Code=OpMakeClosure Index=0", uerr)
	}
}

func TestMatchingForRangeStepFindsOwnStep(t *testing.T) {
	fn := &value.Function{
		Code: []value.Op{
			value.OpForRangeLoopOf(0, 1, 2, false, 3), // 0: outer loop guard
			value.OpForRangeLoopOf(3, 4, 5, false, 1), // 1: inner loop guard
			value.OpForRangeStepOf(3, 5, -2),          // 2: inner step
			value.OpForRangeStepOf(0, 2, -4),          // 3: outer step
		},
	}

	if got := matchingForRangeStep(fn, 0); got != 3 {
		t.Fatalf("matchingForRangeStep(outer) = %d, want 3", got)
	}
	if got := matchingForRangeStep(fn, 1); got != 2 {
		t.Fatalf("matchingForRangeStep(inner) = %d, want 2", got)
	}
}

func TestMatchingForRangeStepReportsMalformedCode(t *testing.T) {
	fn := &value.Function{
		Code: []value.Op{
			value.OpForRangeLoopOf(0, 1, 2, false, 1),
			value.OpRetOf(0, 0),
		},
	}
	if got := matchingForRangeStep(fn, 0); got != -1 {
		t.Fatalf("matchingForRangeStep with no closing step = %d, want -1", got)
	}
}
