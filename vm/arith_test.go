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

import (
	"testing"

	"github.com/lkrlang/lkr/value"
)

func TestGenericModIntAndFloat(t *testing.T) {
	ctx := value.NewVmContext(nil)
	v, err := genericMod(ctx, value.NewInt(7), value.NewInt(3))
	if err != nil || v.Kind() != value.KindInt || v.Int() != 1 {
		t.Fatalf("expected 7%%3=1 (Int), got %v err=%v", v, err)
	}
	v, err = genericMod(ctx, value.NewFloat(7.5), value.NewFloat(2))
	if err != nil || v.Kind() != value.KindFloat || v.Float() != 1.5 {
		t.Fatalf("expected 7.5%%2=1.5 (Float), got %v err=%v", v, err)
	}
}

func TestGenericModIntByZeroRaises(t *testing.T) {
	ctx := value.NewVmContext(nil)
	_, err := genericMod(ctx, value.NewInt(1), value.NewInt(0))
	verr, ok := err.(*value.Error)
	if !ok || verr.Kind != value.ErrRuntimeProtocol {
		t.Fatalf("expected ErrRuntimeProtocol for mod by zero, got %v", err)
	}
}

func TestGenericSubMulTypeMismatchRaises(t *testing.T) {
	ctx := value.NewVmContext(nil)
	_, err := genericSub(ctx, value.NewInt(1), value.NewStr("x"))
	verr, ok := err.(*value.Error)
	if !ok || verr.Kind != value.ErrType {
		t.Fatalf("expected ErrType for Int-Str, got %v", err)
	}
	_, err = genericMul(ctx, value.NewStr("x"), value.NewInt(1))
	verr, ok = err.(*value.Error)
	if !ok || verr.Kind != value.ErrType {
		t.Fatalf("expected ErrType for Str*Int, got %v", err)
	}
}

func TestDivFloatDoesNotTrapOnZeroAndModFloatRemainder(t *testing.T) {
	q := divFloat(value.NewFloat(1), value.NewFloat(0))
	if !isInf(q.Float()) {
		t.Fatalf("expected divFloat(1,0) to be +Inf, got %v", q.Float())
	}
	r := modFloat(value.NewFloat(5), value.NewFloat(2))
	if r.Float() != 1 {
		t.Fatalf("expected modFloat(5,2)=1, got %v", r.Float())
	}
}

func TestGenericAddStrConcatenatesDisplayOfNonString(t *testing.T) {
	ctx := value.NewVmContext(nil)
	v, err := genericAdd(ctx, value.NewStr("n="), value.NewInt(7))
	if err != nil || v.Kind() != value.KindStr || v.Str() != "n=7" {
		t.Fatalf("expected \"n=7\", got %v err=%v", v, err)
	}
	v, err = genericAdd(ctx, value.NewStr("a"), value.NewStr("b"))
	if err != nil || v.Str() != "ab" {
		t.Fatalf("expected \"ab\", got %v err=%v", v, err)
	}
}

func TestGenericAddListAppendsASingleValue(t *testing.T) {
	ctx := value.NewVmContext(nil)
	list := value.NewList([]value.V{value.NewInt(1), value.NewInt(2)})
	v, err := genericAdd(ctx, list, value.NewInt(3))
	if err != nil {
		t.Fatalf("genericAdd: %v", err)
	}
	got := v.List()
	if len(got) != 3 || got[0].Int() != 1 || got[1].Int() != 2 || got[2].Int() != 3 {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
	// the original list is untouched.
	if orig := list.List(); len(orig) != 2 {
		t.Fatalf("input list was mutated: %v", orig)
	}
}

func TestGenericAddListConcatenatesTwoLists(t *testing.T) {
	ctx := value.NewVmContext(nil)
	a := value.NewList([]value.V{value.NewInt(1)})
	b := value.NewList([]value.V{value.NewInt(2), value.NewInt(3)})
	v, err := genericAdd(ctx, a, b)
	if err != nil {
		t.Fatalf("genericAdd: %v", err)
	}
	got := v.List()
	if len(got) != 3 || got[0].Int() != 1 || got[1].Int() != 2 || got[2].Int() != 3 {
		t.Fatalf("expected [1 2 3], got %v", got)
	}
}

func TestGenericAddMapMergesRightWins(t *testing.T) {
	ctx := value.NewVmContext(nil)
	a := value.NewMap(map[string]value.V{"x": value.NewInt(1), "y": value.NewInt(2)})
	b := value.NewMap(map[string]value.V{"y": value.NewInt(20), "z": value.NewInt(3)})
	v, err := genericAdd(ctx, a, b)
	if err != nil {
		t.Fatalf("genericAdd: %v", err)
	}
	got := v.Map()
	if len(got) != 3 || got["x"].Int() != 1 || got["y"].Int() != 20 || got["z"].Int() != 3 {
		t.Fatalf("expected {x:1 y:20 z:3}, got %v", got)
	}
}

func TestGenericSubMapRemovesKey(t *testing.T) {
	ctx := value.NewVmContext(nil)
	m := value.NewMap(map[string]value.V{"a": value.NewInt(1), "b": value.NewInt(2)})
	v, err := genericSub(ctx, m, value.NewStr("a"))
	if err != nil {
		t.Fatalf("genericSub: %v", err)
	}
	got := v.Map()
	if len(got) != 1 || got["b"].Int() != 2 {
		t.Fatalf("expected {b:2}, got %v", got)
	}
	if orig := m.Map(); len(orig) != 2 {
		t.Fatalf("input map was mutated: %v", orig)
	}
}

func TestGenericSubMapRemovingMissingKeyIsANoop(t *testing.T) {
	ctx := value.NewVmContext(nil)
	m := value.NewMap(map[string]value.V{"a": value.NewInt(1)})
	v, err := genericSub(ctx, m, value.NewStr("missing"))
	if err != nil {
		t.Fatalf("genericSub: %v", err)
	}
	if got := v.Map(); len(got) != 1 || got["a"].Int() != 1 {
		t.Fatalf("expected {a:1} unchanged, got %v", got)
	}
}
