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
	"strings"

	"github.com/lkrlang/lkr/value"
)

// accessField backs Access/AccessK: `.field` navigation into a Map or Object
// (spec §3.1, §4.2.4: "map / object field"). A missing Map key returns Nil,
// matching indexByKey's forgiving-default choice for the same kind.
func accessField(ctx *value.VmContext, base value.V, field string) (value.V, error) {
	switch base.Kind() {
	case value.KindMap:
		v, ok := base.Map()[field]
		if !ok {
			return value.Nil, nil
		}
		return v, nil
	case value.KindObject:
		fields := base.ObjectFields()
		v, ok := fields[field]
		if !ok {
			return value.Nil, ctx.Raise(value.NewError(value.ErrType, "object of type %q has no field %q", base.ObjectType(), field))
		}
		return v, nil
	default:
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "cannot access field %q on a %s", field, base.Kind()))
	}
}

// indexByKey backs IndexK, a literal-string-keyed Index (spec §4.2.4): a Map
// looks the key up directly, an Object treats it as AccessK's equivalent.
func indexByKey(ctx *value.VmContext, base value.V, key string) (value.V, error) {
	switch base.Kind() {
	case value.KindMap:
		v, ok := base.Map()[key]
		if !ok {
			return value.Nil, nil
		}
		return v, nil
	case value.KindObject:
		return accessField(ctx, base, key)
	default:
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "cannot index %s with a string key", base.Kind()))
	}
}

// indexValue backs Index: the index register may hold a Str (Map/Object key)
// or an Int (List element / Str rune, supporting negative indices counted
// from the end, spec §4.2.4). An out-of-range List/Str index returns Nil
// rather than raising — the resolved Open Question (SPEC_FULL.md §9):
// out-of-range Index/IndexK is Nil, the same as the Map missing-key case
// above (an Object's missing field still raises ErrType).
func indexValue(ctx *value.VmContext, base, idx value.V) (value.V, error) {
	if idx.Kind() == value.KindStr {
		return indexByKey(ctx, base, idx.Str())
	}
	if idx.Kind() != value.KindInt {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "index must be an int or string, got %s", idx.Kind()))
	}
	i := idx.Int()
	switch base.Kind() {
	case value.KindList:
		items := base.List()
		if i < 0 {
			i += int64(len(items))
		}
		if i < 0 || i >= int64(len(items)) {
			return value.Nil, nil
		}
		return items[i], nil
	case value.KindStr:
		runes := []rune(base.Str())
		if i < 0 {
			i += int64(len(runes))
		}
		if i < 0 || i >= int64(len(runes)) {
			return value.Nil, nil
		}
		return value.NewStr(string(runes[i])), nil
	default:
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "cannot index a %s with an int", base.Kind()))
	}
}

// containsValue backs the In opcode (spec §4.2.4): membership test whose
// right-hand side shape decides the check — List does an elementwise Equal
// scan, Map checks key presence, Str checks substring containment.
func containsValue(ctx *value.VmContext, needle, haystack value.V) (value.V, error) {
	switch haystack.Kind() {
	case value.KindList:
		for _, item := range haystack.List() {
			if value.Equal(needle, item) {
				return value.NewBool(true), nil
			}
		}
		return value.NewBool(false), nil
	case value.KindMap:
		if needle.Kind() != value.KindStr {
			return value.NewBool(false), nil
		}
		_, ok := haystack.Map()[needle.Str()]
		return value.NewBool(ok), nil
	case value.KindStr:
		if needle.Kind() != value.KindStr {
			return value.Nil, ctx.Raise(value.NewError(value.ErrType, "in: left side of a string membership test must be a string"))
		}
		return value.NewBool(strings.Contains(haystack.Str(), needle.Str())), nil
	default:
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "in: right side must be a list, map, or string, got %s", haystack.Kind()))
	}
}
