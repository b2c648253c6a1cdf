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

func TestLenByKind(t *testing.T) {
	if n, ok := NewStr("héllo").Len(); !ok || n != 5 {
		t.Fatalf("rune-length of héllo = %d, ok=%v", n, ok)
	}
	if n, ok := NewList([]V{NewInt(1), NewInt(2)}).Len(); !ok || n != 2 {
		t.Fatalf("list length = %d, ok=%v", n, ok)
	}
	if n, ok := NewMap(map[string]V{"a": NewInt(1)}).Len(); !ok || n != 1 {
		t.Fatalf("map length = %d, ok=%v", n, ok)
	}
	if _, ok := NewInt(5).Len(); ok {
		t.Fatalf("Len() on an Int should report ok=false")
	}
}

func TestMapSortedKeysStable(t *testing.T) {
	m := NewMap(map[string]V{"z": NewInt(1), "a": NewInt(2), "m": NewInt(3)})
	keys := m.SortedKeys()
	want := []string{"a", "m", "z"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("SortedKeys() = %v, want %v", keys, want)
		}
	}
}

func TestBoxedRoundtrip(t *testing.T) {
	inner := NewStr("payload")
	boxed := NewBoxed(inner)
	if !boxed.IsBoxed() {
		t.Fatalf("expected IsBoxed() true")
	}
	if !Equal(boxed.Unbox(), inner) {
		t.Fatalf("Unbox() did not return the original value")
	}
}

func TestRetainReleaseDoesNotPanic(t *testing.T) {
	l := NewList([]V{NewInt(1)})
	l.Retain()
	l.Release()
	l.Release() // drops below the initial 1; refcount intentionally unchecked here
}

func TestObjectFields(t *testing.T) {
	o := NewObject("Point", map[string]V{"x": NewInt(1), "y": NewInt(2)})
	if o.ObjectType() != "Point" {
		t.Fatalf("ObjectType() = %q", o.ObjectType())
	}
	if got := o.ObjectFields()["x"]; !Equal(got, NewInt(1)) {
		t.Fatalf("ObjectFields()[x] = %v", got)
	}
}
