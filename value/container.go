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

import (
	"sort"
	"sync/atomic"
	"unsafe"
)

// Shared container headers. Each carries an atomic refcount: scripts never
// observe mutation (containers are logically immutable, spec §3.1).
// Retain/Release keep the count up to date, but nothing acts on it reaching
// zero: backing memory is reclaimed by the Go GC — grounded on
// scm/scmer_gc_safety_test.go's container lifetime checks.

type strHeader struct {
	refs atomic.Int64
	data string
}

type listHeader struct {
	refs atomic.Int64
	data []V
}

type mapHeader struct {
	refs atomic.Int64
	data map[string]V
}

type objectHeader struct {
	refs atomic.Int64
	typ  string
	data map[string]V
}

// Retain/Release are exposed so storages and MutationGuard commits can
// participate in the refcount protocol explicitly, matching the "reference-
// counted values, no cycles" design note (spec §9).

func (v V) Retain() V {
	switch v.kind {
	case KindStr:
		(*strHeader)(v.ptr).refs.Add(1)
	case KindList:
		(*listHeader)(v.ptr).refs.Add(1)
	case KindMap:
		(*mapHeader)(v.ptr).refs.Add(1)
	case KindObject:
		(*objectHeader)(v.ptr).refs.Add(1)
	}
	return v
}

func (v V) Release() {
	switch v.kind {
	case KindStr:
		(*strHeader)(v.ptr).refs.Add(-1)
	case KindList:
		(*listHeader)(v.ptr).refs.Add(-1)
	case KindMap:
		(*mapHeader)(v.ptr).refs.Add(-1)
	case KindObject:
		(*objectHeader)(v.ptr).refs.Add(-1)
	}
}

// NewStr builds a shared immutable string value. Identity = pointer identity
// of the header (spec §3.1).
func NewStr(s string) V {
	h := &strHeader{data: s}
	h.refs.Store(1)
	return V{kind: KindStr, aux: uint64(len(s)), ptr: unsafe.Pointer(h)}
}

func (v V) Str() string {
	if v.kind != KindStr {
		panic("value: Str() called on non-string V")
	}
	return (*strHeader)(v.ptr).data
}

func (v V) IsStr() bool { return v.kind == KindStr }

// NewList builds a shared immutable list. The slice is taken by reference:
// callers must not mutate it afterward (mirrors scm.NewSlice's contract).
func NewList(items []V) V {
	h := &listHeader{data: items}
	h.refs.Store(1)
	return V{kind: KindList, aux: uint64(len(items)), ptr: unsafe.Pointer(h)}
}

func (v V) List() []V {
	if v.kind != KindList {
		panic("value: List() called on non-list V")
	}
	return (*listHeader)(v.ptr).data
}

func (v V) IsList() bool { return v.kind == KindList }

// NewMap builds a shared immutable map keyed by Str (spec §3.1: "Map(shared
// immutable mapping from Str to V)"). Insertion order is not preserved;
// SortedKeys gives the stable iteration order ToIter needs.
func NewMap(m map[string]V) V {
	h := &mapHeader{data: m}
	h.refs.Store(1)
	return V{kind: KindMap, aux: uint64(len(m)), ptr: unsafe.Pointer(h)}
}

func (v V) Map() map[string]V {
	if v.kind != KindMap {
		panic("value: Map() called on non-map V")
	}
	return (*mapHeader)(v.ptr).data
}

func (v V) IsMap() bool { return v.kind == KindMap }

// SortedKeys returns the map's keys in a stable lexical order, used by ToIter
// to materialize a deterministic iteration sequence (spec §4.2.4: "Map:
// materialize a stable, sorted list of [key, value] pairs once").
func (v V) SortedKeys() []string {
	m := v.Map()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// NewObject builds a shared immutable object: a type name plus a field map
// (spec §3.1: "Object(type name + shared immutable field mapping)").
func NewObject(typ string, fields map[string]V) V {
	h := &objectHeader{typ: typ, data: fields}
	h.refs.Store(1)
	return V{kind: KindObject, ptr: unsafe.Pointer(h)}
}

func (v V) ObjectType() string {
	if v.kind != KindObject {
		panic("value: ObjectType() called on non-object V")
	}
	return (*objectHeader)(v.ptr).typ
}

func (v V) ObjectFields() map[string]V {
	if v.kind != KindObject {
		panic("value: ObjectFields() called on non-object V")
	}
	return (*objectHeader)(v.ptr).data
}

func (v V) IsObject() bool { return v.kind == KindObject }

// Len implements spec §4.2.4's `Len` opcode target kinds.
func (v V) Len() (int64, bool) {
	switch v.kind {
	case KindStr:
		return int64(len([]rune(v.Str()))), true
	case KindList:
		return int64(len(v.List())), true
	case KindMap:
		return int64(len(v.Map())), true
	default:
		return 0, false
	}
}

// NewBoxed wraps a numeric/type-erased payload for typed data flow (spec
// §3.1: "Boxed(V)").
func NewBoxed(inner V) V {
	h := new(V)
	*h = inner
	return V{kind: KindBoxed, ptr: unsafe.Pointer(h)}
}

func (v V) Unbox() V {
	if v.kind != KindBoxed {
		panic("value: Unbox() called on non-boxed V")
	}
	return *(*V)(v.ptr)
}

func (v V) IsBoxed() bool { return v.kind == KindBoxed }
