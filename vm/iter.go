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

import "github.com/lkrlang/lkr/value"

// listIter walks a List's elements in order.
type listIter struct {
	items []value.V
	pos   int
}

func (it *listIter) Next() (value.V, bool, error) {
	if it.pos >= len(it.items) {
		return value.Nil, false, nil
	}
	v := it.items[it.pos]
	it.pos++
	return v, true, nil
}

func (it *listIter) SizeHint() (int64, bool) {
	return int64(len(it.items) - it.pos), true
}

// mapIter walks a Map's entries as [key, value] pairs in stable sorted-key
// order (spec §4.2.4: "materialize a stable, sorted list of [key, value]
// pairs once").
type mapIter struct {
	keys []string
	m    map[string]value.V
	pos  int
}

func (it *mapIter) Next() (value.V, bool, error) {
	if it.pos >= len(it.keys) {
		return value.Nil, false, nil
	}
	k := it.keys[it.pos]
	it.pos++
	return value.NewList([]value.V{value.NewStr(k), it.m[k]}), true, nil
}

func (it *mapIter) SizeHint() (int64, bool) {
	return int64(len(it.keys) - it.pos), true
}

// strIter walks a Str's runes, each boxed back into a one-rune Str.
type strIter struct {
	runes []rune
	pos   int
}

func (it *strIter) Next() (value.V, bool, error) {
	if it.pos >= len(it.runes) {
		return value.Nil, false, nil
	}
	r := it.runes[it.pos]
	it.pos++
	return value.NewStr(string(r)), true, nil
}

func (it *strIter) SizeHint() (int64, bool) {
	return int64(len(it.runes) - it.pos), true
}

// toIter implements the ToIter opcode's "produces a value.Iterator either
// way" contract (spec §4.2.4): a List/Map/Str converts to a fresh stateful
// iterator; a value already holding an Iterator passes through untouched.
func toIter(v value.V) (value.V, error) {
	switch v.Kind() {
	case value.KindIterator:
		return v, nil
	case value.KindList:
		return value.NewIterator(&listIter{items: v.List()}), nil
	case value.KindMap:
		return value.NewIterator(&mapIter{keys: v.SortedKeys(), m: v.Map()}), nil
	case value.KindStr:
		return value.NewIterator(&strIter{runes: []rune(v.Str())}), nil
	default:
		return value.Nil, value.NewError(value.ErrType, "value of kind %s is not iterable", v.Kind())
	}
}
