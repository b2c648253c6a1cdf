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
	"fmt"
	"sync"

	"github.com/lkrlang/lkr/value"
)

// HandleTable is the "host-side table" spec §4.5 describes: heap values
// (strings, lists, maps, closures, tasks, channels, ...) that generated code
// only ever touches through a negative-valued handle. Grounded on
// concurrent.Runtime's id-keyed-map-under-a-mutex shape, generalized from a
// monotonic id counter to a free list since handles churn far more often
// than tasks or channels do (every intermediate string/list produced inside
// a hot loop mints one).
type HandleTable struct {
	mu     sync.Mutex
	values []value.V
	free   []int64
}

// NewHandleTable builds an empty table.
func NewHandleTable() *HandleTable {
	return &HandleTable{}
}

// Alloc stores v and returns its host-table index (always >= 0; callers
// wanting the tagged i64 form call EncodeHandle on the result).
func (t *HandleTable) Alloc(v value.V) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.free); n > 0 {
		id := t.free[n-1]
		t.free = t.free[:n-1]
		t.values[id] = v
		return id
	}
	id := int64(len(t.values))
	t.values = append(t.values, v)
	return id
}

// Get resolves a host-table index back to its value.V.
func (t *HandleTable) Get(id int64) (value.V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || int(id) >= len(t.values) {
		return value.Nil, false
	}
	for _, f := range t.free {
		if f == id {
			return value.Nil, false
		}
	}
	return t.values[id], true
}

// Release returns a slot to the free list. Never called by generated code
// directly — the ABI defines no release helper (spec §6.3 lists none) — but
// available to the embedding driver for reclaiming handles between runs of
// short-lived generated modules (e.g. a REPL line evaluated AOT).
func (t *HandleTable) Release(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || int(id) >= len(t.values) {
		return
	}
	t.values[id] = value.Nil
	t.free = append(t.free, id)
}

// EncodeValue packs v into its tagged i64 form, boxing it in handles when it
// is not one of the shapes that carries bit-exact (spec §6.3: Nil, Bool,
// small Int, Float) or falls outside the small-int range.
func EncodeValue(v value.V, handles *HandleTable) int64 {
	switch v.Kind() {
	case value.KindNil:
		return NilValue
	case value.KindBool:
		return EncodeBool(v.Bool())
	case value.KindInt:
		if bits, ok := EncodeSmallInt(v.Int()); ok {
			return bits
		}
		return EncodeHandle(handles.Alloc(v))
	case value.KindFloat:
		return EncodeFloat(v.Float())
	default:
		return EncodeHandle(handles.Alloc(v))
	}
}

// DecodeValue reverses EncodeValue. It fails only when bits denotes a
// handle whose slot has since been released.
func DecodeValue(bits int64, handles *HandleTable) (value.V, error) {
	switch ClassifyBits(bits) {
	case KindNil:
		return value.Nil, nil
	case KindBool:
		return value.NewBool(bits == BoolTrueLiteral), nil
	case KindSmallInt:
		return value.NewInt(DecodeSmallInt(bits)), nil
	case KindFloat:
		return value.NewFloat(DecodeFloat(bits)), nil
	default: // KindHandle
		v, ok := handles.Get(HandleID(bits))
		if !ok {
			return value.Nil, fmt.Errorf("llvmgen: dangling handle %d", HandleID(bits))
		}
		return v, nil
	}
}
