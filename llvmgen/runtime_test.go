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
	"unsafe"

	"github.com/lkrlang/lkr/value"
)

func ptrLen(s string) (int64, int64) {
	b := []byte(s)
	if len(b) == 0 {
		return 0, 0
	}
	return int64(uintptr(unsafe.Pointer(&b[0]))), int64(len(b))
}

func packed(vals ...int64) (int64, int64) {
	if len(vals) == 0 {
		return 0, 0
	}
	return int64(uintptr(unsafe.Pointer(&vals[0]))), int64(len(vals))
}

func newTestABI() *RuntimeABI {
	return NewRuntimeABI(value.NewVmContext(nil))
}

func TestRuntimeABIInternStringDedups(t *testing.T) {
	r := newTestABI()
	p, n := ptrLen("hello")
	h1 := r.InternString(p, n)
	p2, n2 := ptrLen("hello")
	h2 := r.InternString(p2, n2)
	if h1 != h2 {
		t.Fatalf("interning the same string twice produced different handles: %d != %d", h1, h2)
	}
	v, ok := r.handles.Get(HandleID(h1))
	if !ok || v.Str() != "hello" {
		t.Fatalf("interned handle does not resolve to \"hello\": %v, %v", v, ok)
	}
}

func TestRuntimeABIToString(t *testing.T) {
	r := newTestABI()
	bits, _ := EncodeSmallInt(42)
	h := r.ToString(bits)
	v, ok := r.handles.Get(HandleID(h))
	if !ok || v.Str() != "42" {
		t.Fatalf("ToString(42) = %v, want handle to \"42\"", v)
	}
}

func TestRuntimeABIDefineAndLoadGlobal(t *testing.T) {
	r := newTestABI()
	namePtr, nameLen := ptrLen("counter")
	val, _ := EncodeSmallInt(7)
	r.DefineGlobal(namePtr, nameLen, val)

	namePtr2, nameLen2 := ptrLen("counter")
	got := r.LoadGlobal(namePtr2, nameLen2)
	if got != val {
		t.Fatalf("LoadGlobal(\"counter\") = %d, want %d", got, val)
	}
}

func TestRuntimeABILoadGlobalUnbound(t *testing.T) {
	r := newTestABI()
	p, n := ptrLen("nope")
	if got := r.LoadGlobal(p, n); got != NilValue {
		t.Fatalf("LoadGlobal of an unbound name = %d, want NilValue", got)
	}
}

func TestRuntimeABIBuildList(t *testing.T) {
	r := newTestABI()
	a, _ := EncodeSmallInt(1)
	b, _ := EncodeSmallInt(2)
	c, _ := EncodeSmallInt(3)
	base, n := packed(a, b, c)
	h := r.BuildList(base, n)
	v, ok := r.handles.Get(HandleID(h))
	if !ok || !v.IsList() || len(v.List()) != 3 {
		t.Fatalf("BuildList did not produce a 3-element list: %v, %v", v, ok)
	}
	if v.List()[1].Int() != 2 {
		t.Fatalf("BuildList element 1 = %v, want 2", v.List()[1])
	}
}

func TestRuntimeABIBuildMap(t *testing.T) {
	r := newTestABI()
	kp, kn := ptrLen("x")
	keyHandle := r.InternString(kp, kn)
	val, _ := EncodeSmallInt(9)
	base, n := packed(keyHandle, val)
	h := r.BuildMap(base, 1)
	v, ok := r.handles.Get(HandleID(h))
	if !ok || !v.IsMap() {
		t.Fatalf("BuildMap did not produce a map: %v, %v", v, ok)
	}
	if got, present := v.Map()["x"]; !present || got.Int() != 9 {
		t.Fatalf("BuildMap()[\"x\"] = %v, present=%v, want 9", got, present)
	}
}

func TestRuntimeABIArithmetic(t *testing.T) {
	r := newTestABI()
	a, _ := EncodeSmallInt(10)
	b, _ := EncodeSmallInt(3)
	if got := DecodeSmallInt(r.Add(a, b)); got != 13 {
		t.Fatalf("Add(10,3) = %d, want 13", got)
	}
	if got := DecodeSmallInt(r.Sub(a, b)); got != 7 {
		t.Fatalf("Sub(10,3) = %d, want 7", got)
	}
	if got := DecodeSmallInt(r.Mul(a, b)); got != 30 {
		t.Fatalf("Mul(10,3) = %d, want 30", got)
	}
	if got := DecodeSmallInt(r.Mod(a, b)); got != 1 {
		t.Fatalf("Mod(10,3) = %d, want 1", got)
	}
}

func TestRuntimeABIEqualAndCompare(t *testing.T) {
	r := newTestABI()
	a, _ := EncodeSmallInt(5)
	b, _ := EncodeSmallInt(5)
	c, _ := EncodeSmallInt(6)
	if r.Equal(a, b) != BoolTrueLiteral {
		t.Fatalf("Equal(5,5) should be true")
	}
	if r.Equal(a, c) != BoolFalseLiteral {
		t.Fatalf("Equal(5,6) should be false")
	}
	if ord := DecodeSmallInt(r.Compare(a, c)); ord >= 0 {
		t.Fatalf("Compare(5,6) = %d, want negative", ord)
	}
}

func TestRuntimeABILenAndListSlice(t *testing.T) {
	r := newTestABI()
	items := []value.V{value.NewInt(1), value.NewInt(2), value.NewInt(3)}
	h := EncodeHandle(r.handles.Alloc(value.NewList(items)))

	n := DecodeSmallInt(r.Len(h))
	if n != 3 {
		t.Fatalf("Len(list) = %d, want 3", n)
	}

	start, _ := EncodeSmallInt(1)
	tailHandle := r.ListSlice(h, start)
	tail, ok := r.handles.Get(HandleID(tailHandle))
	if !ok || len(tail.List()) != 2 || tail.List()[0].Int() != 2 {
		t.Fatalf("ListSlice(list, 1) = %v, want [2, 3]", tail)
	}
}

func TestRuntimeABIAccessIndexIn(t *testing.T) {
	r := newTestABI()
	obj := value.NewObject("Point", map[string]value.V{"x": value.NewInt(1), "y": value.NewInt(2)})
	objHandle := EncodeHandle(r.handles.Alloc(obj))
	fieldHandle := r.InternString(ptrLenArgs("x"))
	got := r.Access(objHandle, fieldHandle)
	if DecodeSmallInt(got) != 1 {
		t.Fatalf("Access(obj, \"x\") = %d, want 1", DecodeSmallInt(got))
	}

	list := value.NewList([]value.V{value.NewInt(7), value.NewInt(8)})
	listHandle := EncodeHandle(r.handles.Alloc(list))
	idx, _ := EncodeSmallInt(1)
	if got := DecodeSmallInt(r.Index(listHandle, idx)); got != 8 {
		t.Fatalf("Index(list, 1) = %d, want 8", got)
	}

	needle, _ := EncodeSmallInt(7)
	if r.In(needle, listHandle) != BoolTrueLiteral {
		t.Fatalf("In(7, [7,8]) should be true")
	}
}

func ptrLenArgs(s string) (int64, int64) { return ptrLen(s) }

func TestRuntimeABIRaiseSetsLastError(t *testing.T) {
	r := newTestABI()
	msgHandle := r.InternString(ptrLen("boom"))
	result := r.Raise(msgHandle)
	if result != NilValue {
		t.Fatalf("Raise should return NilValue, got %d", result)
	}
	if r.LastError() == nil {
		t.Fatalf("Raise should set LastError")
	}
	r.ClearError()
	if r.LastError() != nil {
		t.Fatalf("ClearError did not clear LastError")
	}
}

func TestRuntimeABIToIter(t *testing.T) {
	r := newTestABI()
	list := value.NewList([]value.V{value.NewInt(1)})
	listHandle := EncodeHandle(r.handles.Alloc(list))
	iterHandle := r.ToIter(listHandle)
	if r.LastError() != nil {
		t.Fatalf("ToIter errored: %v", r.LastError())
	}
	if _, ok := r.handles.Get(HandleID(iterHandle)); !ok {
		t.Fatalf("ToIter did not produce a resolvable handle")
	}
}
