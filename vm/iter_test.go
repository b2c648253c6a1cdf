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

func TestToIterListWalksInOrder(t *testing.T) {
	v, err := toIter(value.NewList([]value.V{value.NewInt(1), value.NewInt(2)}))
	if err != nil {
		t.Fatalf("toIter: %v", err)
	}
	it := v.Iterator()
	first, ok, err := it.Next()
	if err != nil || !ok || first.Int() != 1 {
		t.Fatalf("expected (1,true), got (%v,%v,%v)", first, ok, err)
	}
	second, ok, err := it.Next()
	if err != nil || !ok || second.Int() != 2 {
		t.Fatalf("expected (2,true), got (%v,%v,%v)", second, ok, err)
	}
	_, ok, err = it.Next()
	if err != nil || ok {
		t.Fatalf("expected the iterator to be exhausted")
	}
}

func TestToIterMapWalksSortedKeys(t *testing.T) {
	m := value.NewMap(map[string]value.V{"b": value.NewInt(2), "a": value.NewInt(1)})
	v, err := toIter(m)
	if err != nil {
		t.Fatalf("toIter: %v", err)
	}
	it := v.Iterator()
	first, _, _ := it.Next()
	pair := first.List()
	if pair[0].Str() != "a" || pair[1].Int() != 1 {
		t.Fatalf("expected the first pair to be [a,1] (sorted), got %v", pair)
	}
}

func TestToIterStrWalksRunes(t *testing.T) {
	v, err := toIter(value.NewStr("ab"))
	if err != nil {
		t.Fatalf("toIter: %v", err)
	}
	it := v.Iterator()
	first, _, _ := it.Next()
	if first.Str() != "a" {
		t.Fatalf("expected 'a', got %q", first.Str())
	}
}

func TestToIterPassesThroughExistingIterator(t *testing.T) {
	v, _ := toIter(value.NewList([]value.V{value.NewInt(1)}))
	v2, err := toIter(v)
	if err != nil {
		t.Fatalf("toIter: %v", err)
	}
	if v2.Identity() != v.Identity() {
		t.Fatalf("expected toIter to pass an existing iterator through unchanged")
	}
}

func TestToIterRejectsNonIterableKind(t *testing.T) {
	_, err := toIter(value.NewInt(1))
	if err == nil {
		t.Fatalf("expected an error for a non-iterable kind")
	}
}
