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

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    V
		want bool
	}{
		{Nil, false},
		{NewBool(false), false},
		{NewBool(true), true},
		{NewInt(0), true},
		{NewFloat(0), true},
		{NewStr(""), true},
		{NewList(nil), true},
	}
	for _, c := range cases {
		if got := c.v.Truthy(); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v.Kind(), got, c.want)
		}
	}
}

func TestIntFloatRoundtrip(t *testing.T) {
	iv := NewInt(-42)
	if iv.Int() != -42 {
		t.Fatalf("Int roundtrip: got %d", iv.Int())
	}
	fv := NewFloat(3.5)
	if fv.Float() != 3.5 {
		t.Fatalf("Float roundtrip: got %v", fv.Float())
	}
}

func TestIdentityDistinguishesContainers(t *testing.T) {
	a := NewList([]V{NewInt(1)})
	b := NewList([]V{NewInt(1)})
	if a.Identity() == b.Identity() {
		t.Fatalf("expected distinct identities for separately-built lists")
	}
	if !Equal(a, b) {
		t.Fatalf("expected structural equality despite distinct identity")
	}
}

func TestKindString(t *testing.T) {
	if Nil.Kind().String() != "nil" {
		t.Fatalf("Kind.String() = %q", Nil.Kind().String())
	}
	if NewGoFunction(func(args []V, ctx *VmContext) (V, error) { return Nil, nil }).Kind().String() != "function" {
		t.Fatalf("GoFunction kind string mismatch")
	}
}
