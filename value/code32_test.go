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

import "testing"

// roundtrip asserts that packing then unpacking op reproduces it exactly,
// per spec §6.2's "every tag decodes to exactly the same logical Op".
func roundtrip(t *testing.T, op Op) {
	t.Helper()
	words := EncodeOp(nil, op)
	if len(words) > 3 {
		t.Fatalf("%v: encoded to %d words, budget is small", op, len(words))
	}
	got, n := DecodeOp(words)
	if n != len(words) {
		t.Fatalf("%v: DecodeOp consumed %d words, encoded %d", op, n, len(words))
	}
	if got != op {
		t.Fatalf("roundtrip mismatch:\n  encoded %v\n  decoded %v", op, got)
	}
}

func TestCode32RoundtripInline(t *testing.T) {
	ops := []Op{
		OpLoadKOf(1, 2),
		OpMoveOf(3, 4),
		OpAddOf(1, 2, 3),
		OpCmpLtOf(0, 1, 2),
		OpJmpOf(5),
		OpJmpOf(-5),
		OpJmpIfNilOf(2, 10),
		OpAddIntImmOf(1, 2, -7),
	}
	for _, op := range ops {
		roundtrip(t, op)
	}
}

func TestCode32RoundtripExtendedWhenOperandsOverflowByte(t *testing.T) {
	ops := []Op{
		OpLoadKOf(1000, 2000),
		OpAddOf(300, 400, 500),
		OpJmpOf(-300),
		OpAddIntImmOf(300, 2, -200),
		OpCmpEqImmOf(1, 2000, 99),
	}
	for _, op := range ops {
		roundtrip(t, op)
	}
}

func TestCode32RoundtripCallShapes(t *testing.T) {
	roundtrip(t, OpCallOf(5, 10, 3, 1))
	roundtrip(t, OpRetOf(2, 1))

	named := OpCallNamedOf(5, 10, 2, 12, 3, 1)
	roundtrip(t, named)
}

func TestCode32RoundtripForRange(t *testing.T) {
	roundtrip(t, OpForRangePrepOf(1, 2, 3, true, false))
	roundtrip(t, OpForRangePrepOf(1, 2, 3, false, true))
	roundtrip(t, OpForRangeLoopOf(1, 2, 3, true, 20))
	roundtrip(t, OpForRangeStepOf(1, 3, -20))
}

func TestCode32RoundtripPatternMatchOrFail(t *testing.T) {
	roundtrip(t, OpPatternMatchOrFailOf(1, 2, 3, true))
	roundtrip(t, OpPatternMatchOrFailOf(1, 2, 3, false))
}

func TestEncodeFunctionDecodeFunction(t *testing.T) {
	ops := []Op{
		OpLoadKOf(0, 0),
		OpLoadKOf(1, 1),
		OpAddOf(2, 0, 1),
		OpRetOf(2, 1),
	}
	words := EncodeFunction(ops)
	decoded := DecodeFunction(words)
	if len(decoded) != len(ops) {
		t.Fatalf("decoded %d ops, want %d", len(decoded), len(ops))
	}
	for i := range ops {
		if decoded[i] != ops[i] {
			t.Fatalf("op %d mismatch: got %v, want %v", i, decoded[i], ops[i])
		}
	}
}

func TestRKHelpers(t *testing.T) {
	reg := RKMakeReg(12)
	if RKIsConst(reg) {
		t.Fatalf("register-form RK should not be flagged as const")
	}
	if RKIndex(reg) != 12 {
		t.Fatalf("RKIndex(reg) = %d, want 12", RKIndex(reg))
	}
	k := RKMakeConst(34)
	if !RKIsConst(k) {
		t.Fatalf("const-form RK should be flagged as const")
	}
	if RKIndex(k) != 34 {
		t.Fatalf("RKIndex(const) = %d, want 34", RKIndex(k))
	}
}
