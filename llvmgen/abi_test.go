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
	"math"
	"testing"
)

func TestSentinelsAreDistinct(t *testing.T) {
	seen := map[int64]string{
		NilValue:         "nil",
		BoolFalseLiteral: "false",
		BoolTrueLiteral:  "true",
		canonicalNaN:     "nan",
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 distinct sentinel bit patterns, collided: %v", seen)
	}
}

func TestEncodeDecodeSmallIntRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, SmallIntMin, SmallIntMax, 12345, -98765} {
		bits, ok := EncodeSmallInt(v)
		if !ok {
			t.Fatalf("EncodeSmallInt(%d) reported out of range", v)
		}
		if got := DecodeSmallInt(bits); got != v {
			t.Fatalf("round-trip %d -> %d", v, got)
		}
		if ClassifyBits(bits) != KindSmallInt {
			t.Fatalf("ClassifyBits(%d) = %v, want KindSmallInt", bits, ClassifyBits(bits))
		}
	}
}

func TestEncodeSmallIntOutOfRange(t *testing.T) {
	for _, v := range []int64{SmallIntMin - 1, SmallIntMax + 1, math.MaxInt64, math.MinInt64} {
		if _, ok := EncodeSmallInt(v); ok {
			t.Fatalf("EncodeSmallInt(%d) should report out of range", v)
		}
	}
}

func TestEncodeDecodeFloatRoundTrip(t *testing.T) {
	for _, f := range []float64{0, -0.0, 1.5, -1.5, math.Inf(1), math.Inf(-1), 3.14159265} {
		bits := EncodeFloat(f)
		if !IsFloatBits(bits) {
			t.Fatalf("IsFloatBits(%v) = false for %v", bits, f)
		}
		if got := DecodeFloat(bits); got != f && !(f == 0 && got == 0) {
			t.Fatalf("round-trip %v -> %v", f, got)
		}
	}
}

func TestNaNCanonicalizes(t *testing.T) {
	a := EncodeFloat(math.NaN())
	b := EncodeFloat(math.Float64frombits(0x7FF8000000000001)) // a different NaN payload
	if a != b {
		t.Fatalf("two distinct NaN payloads must canonicalize to the same bits: %v != %v", a, b)
	}
	if !math.IsNaN(DecodeFloat(a)) {
		t.Fatalf("DecodeFloat of canonical NaN bits did not round-trip to NaN")
	}
}

func TestHandleRoundTripAndSign(t *testing.T) {
	for _, id := range []int64{0, 1, 1000, (1 << 47) - 1} {
		bits := EncodeHandle(id)
		if bits >= 0 {
			t.Fatalf("EncodeHandle(%d) = %d, want a negative int64 per the spec's handle convention", id, bits)
		}
		if !IsHandle(bits) {
			t.Fatalf("IsHandle(%d) = false, want true", bits)
		}
		if got := HandleID(bits); got != id {
			t.Fatalf("HandleID round-trip: got %d, want %d", got, id)
		}
		if ClassifyBits(bits) != KindHandle {
			t.Fatalf("ClassifyBits(%d) = %v, want KindHandle", bits, ClassifyBits(bits))
		}
	}
}

func TestClassifyBitsNilAndBool(t *testing.T) {
	if ClassifyBits(NilValue) != KindNil {
		t.Fatalf("NilValue misclassified")
	}
	if ClassifyBits(BoolTrueLiteral) != KindBool || ClassifyBits(BoolFalseLiteral) != KindBool {
		t.Fatalf("Bool sentinels misclassified")
	}
}

func TestEncodeBool(t *testing.T) {
	if EncodeBool(true) != BoolTrueLiteral || EncodeBool(false) != BoolFalseLiteral {
		t.Fatalf("EncodeBool did not return the bit-exact sentinel literals")
	}
}
