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

	"github.com/lkrlang/lkr/value"
)

func TestHandleTableAllocGet(t *testing.T) {
	ht := NewHandleTable()
	id := ht.Alloc(value.NewStr("hello"))
	v, ok := ht.Get(id)
	if !ok || !v.IsStr() || v.Str() != "hello" {
		t.Fatalf("Get(%d) = (%v, %v), want (\"hello\", true)", id, v, ok)
	}
}

func TestHandleTableReleaseReusesSlot(t *testing.T) {
	ht := NewHandleTable()
	id1 := ht.Alloc(value.NewStr("a"))
	ht.Release(id1)
	id2 := ht.Alloc(value.NewStr("b"))
	if id2 != id1 {
		t.Fatalf("expected Release to free id %d for reuse, got a fresh id %d", id1, id2)
	}
	v, ok := ht.Get(id2)
	if !ok || v.Str() != "b" {
		t.Fatalf("Get(%d) after reuse = (%v, %v)", id2, v, ok)
	}
}

func TestHandleTableGetOutOfRange(t *testing.T) {
	ht := NewHandleTable()
	if _, ok := ht.Get(-1); ok {
		t.Fatalf("Get(-1) should fail")
	}
	if _, ok := ht.Get(0); ok {
		t.Fatalf("Get(0) on an empty table should fail")
	}
}

func TestEncodeDecodeValueScalarsBypassHandleTable(t *testing.T) {
	ht := NewHandleTable()
	for _, v := range []value.V{value.Nil, value.NewBool(true), value.NewBool(false), value.NewInt(42), value.NewFloat(2.5)} {
		bits := EncodeValue(v, ht)
		if IsHandle(bits) {
			t.Fatalf("EncodeValue(%v) unexpectedly allocated a handle", v)
		}
		decoded, err := DecodeValue(bits, ht)
		if err != nil {
			t.Fatalf("DecodeValue: %v", err)
		}
		if !value.Equal(v, decoded) {
			t.Fatalf("round-trip %v -> %v", v, decoded)
		}
	}
}

func TestEncodeDecodeValueHeapKindsUseHandles(t *testing.T) {
	ht := NewHandleTable()
	v := value.NewStr("payload")
	bits := EncodeValue(v, ht)
	if !IsHandle(bits) {
		t.Fatalf("EncodeValue(Str) should allocate a handle")
	}
	decoded, err := DecodeValue(bits, ht)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if !decoded.IsStr() || decoded.Str() != "payload" {
		t.Fatalf("decoded = %v, want Str(\"payload\")", decoded)
	}
}

func TestDecodeValueDanglingHandleErrors(t *testing.T) {
	ht := NewHandleTable()
	id := ht.Alloc(value.NewStr("x"))
	ht.Release(id)
	if _, err := DecodeValue(EncodeHandle(id), ht); err == nil {
		t.Fatalf("expected DecodeValue to error on a released handle")
	}
}

func TestEncodeValueOutOfRangeIntIsBoxed(t *testing.T) {
	ht := NewHandleTable()
	big := value.NewInt(SmallIntMax + 1)
	bits := EncodeValue(big, ht)
	if !IsHandle(bits) {
		t.Fatalf("out-of-range Int should be boxed as a handle")
	}
	decoded, err := DecodeValue(bits, ht)
	if err != nil || decoded.Int() != SmallIntMax+1 {
		t.Fatalf("round-trip of boxed int: got %v, err=%v", decoded, err)
	}
}
