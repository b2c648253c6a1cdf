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
	"sort"
	"strconv"
	"strings"

	"github.com/lkrlang/lkr/value"
)

// displayString backs the ToStr opcode (spec §4.2.4). Containers render
// recursively in a script-literal-like shape, the way a REPL would echo a
// value back, rather than Go's %v formatting.
func displayString(v value.V) string {
	switch v.Kind() {
	case value.KindNil:
		return "nil"
	case value.KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case value.KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case value.KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case value.KindStr:
		return v.Str()
	case value.KindList:
		items := v.List()
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = displayString(it)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case value.KindMap:
		keys := v.SortedKeys()
		m := v.Map()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + displayString(m[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case value.KindObject:
		fields := v.ObjectFields()
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + displayString(fields[k])
		}
		return v.ObjectType() + "{" + strings.Join(parts, ", ") + "}"
	case value.KindClosure:
		return "<function " + v.Closure().Name + ">"
	default:
		return "<" + v.Kind().String() + ">"
	}
}
