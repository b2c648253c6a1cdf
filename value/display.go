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
	"strconv"
	"strings"
)

// Display renders v as text, grounded on scm/printer.go's String() tag-switch
// but adapted to the struct-kind V. The ToStr opcode does not use it (that is
// vm.Display): here closures and other handle kinds render in square brackets
// and Object fields follow map iteration order.
func Display(v V) string {
	switch v.Kind() {
	case KindNil:
		return "nil"
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.Int(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case KindStr:
		return v.Str()
	case KindList:
		items := v.List()
		parts := make([]string, len(items))
		for i, x := range items {
			parts[i] = Display(x)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.SortedKeys()
		m := v.Map()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + Display(m[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case KindObject:
		fields := v.ObjectFields()
		parts := make([]string, 0, len(fields))
		for k, fv := range fields {
			parts = append(parts, k+": "+Display(fv))
		}
		return v.ObjectType() + "{" + strings.Join(parts, ", ") + "}"
	case KindClosure:
		return "[closure " + v.Closure().Name + "]"
	case KindGoFunction, KindGoFunctionNamed:
		return "[native function]"
	case KindTask:
		return "[task]"
	case KindChannel:
		return "[channel]"
	case KindIterator:
		return "[iterator]"
	case KindMutationGuard:
		return "[mutation guard]"
	case KindBoxed:
		return Display(v.Unbox())
	default:
		return "<unknown>"
	}
}
