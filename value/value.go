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
// Package value implements the tagged runtime value V (spec: "Value V"), the
// shared containers it references, and the per-function compiled artifacts
// (Function, ClosureProto, PatternPlan) that travel together with it.
//
// V is a compact tagged value, following the teacher's scm.Scmer design
// (two machine words: a tag-carrying aux field plus a payload pointer) but
// with an explicit Kind byte instead of sentinel-pointer tricks, since those
// can't be safety-checked without compiling. Copy-cheap kinds (Nil, Bool,
// Int, Float) are stored inline in aux; containers share ownership through
// ptr and are logically immutable from the script's point of view.
package value

import (
	"math"
	"unsafe"
)

// Kind identifies which variant of V is populated.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindMap
	KindObject
	KindClosure
	KindGoFunction
	KindGoFunctionNamed
	KindTask
	KindChannel
	KindIterator
	KindMutationGuard
	KindBoxed
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindObject:
		return "object"
	case KindClosure:
		return "closure"
	case KindGoFunction, KindGoFunctionNamed:
		return "function"
	case KindTask:
		return "task"
	case KindChannel:
		return "channel"
	case KindIterator:
		return "iterator"
	case KindMutationGuard:
		return "mutation_guard"
	case KindBoxed:
		return "boxed"
	default:
		return "unknown"
	}
}

// V is the dynamically-typed runtime value. It is intentionally small and
// copied by value everywhere, mirroring scm.Scmer's "never grow this struct"
// contract: aux carries inline data for Nil/Bool/Int/Float, ptr carries an
// identity for shared containers (Str/List/Map/Object/...) and is nil for
// pure-inline kinds.
type V struct {
	kind Kind
	aux  uint64         // Bool/Int/Float payload, or length for Str
	ptr  unsafe.Pointer // shared container / boxed payload identity
}

// Kind reports which variant is populated.
func (v V) Kind() Kind { return v.kind }

// Nil is the shared nil value.
var Nil = V{kind: KindNil}

func NewNil() V { return Nil }

func NewBool(b bool) V {
	var aux uint64
	if b {
		aux = 1
	}
	return V{kind: KindBool, aux: aux}
}

func NewInt(i int64) V {
	return V{kind: KindInt, aux: uint64(i)}
}

func NewFloat(f float64) V {
	return V{kind: KindFloat, aux: math.Float64bits(f)}
}

// Bool reads a Bool value's payload; truthiness uses Truthy instead.
func (v V) Bool() bool { return v.aux != 0 }

// Int reads an Int value's payload.
func (v V) Int() int64 { return int64(v.aux) }

// Float reads a Float value's payload.
func (v V) Float() float64 { return math.Float64frombits(v.aux) }

// Truthy implements spec §3.1: only Nil and Bool(false) are false.
func (v V) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.aux != 0
	default:
		return true
	}
}

// IsNil reports whether v is the Nil value.
func (v V) IsNil() bool { return v.kind == KindNil }

// identity returns the shared container's pointer identity for identity
// comparisons (MutationGuard/Iterator equality, IC keys).
func (v V) identity() unsafe.Pointer { return v.ptr }

// Identity exposes the pointer identity of a container value for use as an
// inline-cache key (spec §4.2.1: "keyed on Arc identity of the receiver").
func (v V) Identity() uintptr { return uintptr(v.ptr) }
