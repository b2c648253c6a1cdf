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

func TestIndexByKeyMapMissingKeyReturnsNilNoError(t *testing.T) {
	ctx := value.NewVmContext(nil)
	m := value.NewMap(map[string]value.V{"a": value.NewInt(1)})
	v, err := indexByKey(ctx, m, "missing")
	if err != nil {
		t.Fatalf("expected a forgiving nil for a missing map key, got error %v", err)
	}
	if !v.IsNil() {
		t.Fatalf("expected Nil, got %v", v)
	}
}

func TestIndexValueStringRuneIndexingNegative(t *testing.T) {
	ctx := value.NewVmContext(nil)
	v, err := indexValue(ctx, value.NewStr("hello"), value.NewInt(-1))
	if err != nil {
		t.Fatalf("indexValue: %v", err)
	}
	if v.Str() != "o" {
		t.Fatalf("expected last rune 'o', got %q", v.Str())
	}
}

func TestIndexValueOutOfRangeReturnsNilNoError(t *testing.T) {
	ctx := value.NewVmContext(nil)
	list := value.NewList([]value.V{value.NewInt(1)})
	v, err := indexValue(ctx, list, value.NewInt(5))
	if err != nil {
		t.Fatalf("expected a forgiving nil for an out-of-range list index, got error %v", err)
	}
	if !v.IsNil() {
		t.Fatalf("expected Nil, got %v", v)
	}

	s := value.NewStr("hi")
	v, err = indexValue(ctx, s, value.NewInt(9))
	if err != nil {
		t.Fatalf("expected a forgiving nil for an out-of-range string index, got error %v", err)
	}
	if !v.IsNil() {
		t.Fatalf("expected Nil, got %v", v)
	}
}

func TestContainsValueListMapStr(t *testing.T) {
	ctx := value.NewVmContext(nil)

	list := value.NewList([]value.V{value.NewInt(1), value.NewInt(2)})
	v, err := containsValue(ctx, value.NewInt(2), list)
	if err != nil || !v.Bool() {
		t.Fatalf("expected 2 in [1,2], got %v err=%v", v, err)
	}

	m := value.NewMap(map[string]value.V{"k": value.NewInt(1)})
	v, err = containsValue(ctx, value.NewStr("k"), m)
	if err != nil || !v.Bool() {
		t.Fatalf("expected \"k\" in map, got %v err=%v", v, err)
	}

	s := value.NewStr("hello world")
	v, err = containsValue(ctx, value.NewStr("world"), s)
	if err != nil || !v.Bool() {
		t.Fatalf("expected substring containment to hold, got %v err=%v", v, err)
	}
	v, err = containsValue(ctx, value.NewStr("xyz"), s)
	if err != nil || v.Bool() {
		t.Fatalf("expected substring containment to fail for xyz")
	}
}

func TestAccessFieldWrongKindRaisesTypeError(t *testing.T) {
	ctx := value.NewVmContext(nil)
	_, err := accessField(ctx, value.NewInt(1), "field")
	verr, ok := err.(*value.Error)
	if !ok || verr.Kind != value.ErrType {
		t.Fatalf("expected ErrType, got %v", err)
	}
}

func TestAccessFieldReadsAMapKey(t *testing.T) {
	ctx := value.NewVmContext(nil)
	m := value.NewMap(map[string]value.V{"name": value.NewStr("ok")})
	v, err := accessField(ctx, m, "name")
	if err != nil {
		t.Fatalf("accessField: %v", err)
	}
	if v.Str() != "ok" {
		t.Fatalf("expected \"ok\", got %v", v)
	}
}

func TestAccessFieldMissingMapKeyReturnsNilNoError(t *testing.T) {
	ctx := value.NewVmContext(nil)
	m := value.NewMap(map[string]value.V{"a": value.NewInt(1)})
	v, err := accessField(ctx, m, "missing")
	if err != nil {
		t.Fatalf("expected a forgiving nil for a missing map field, got error %v", err)
	}
	if !v.IsNil() {
		t.Fatalf("expected Nil, got %v", v)
	}
}
