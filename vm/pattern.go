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

// matchPattern walks pat against v, writing matched PatternVar/rest bindings
// directly into fr's registers (the compiler allocated those registers out of
// the same function's frame the plan belongs to, so no extra indirection is
// needed — spec §3.5, §4.2.4). bindings/bindIdx track the plan's flattened
// binding list, consumed in the exact depth-first order compiler/pattern.go's
// lowerPattern produced it in. bound accumulates the values assigned so far,
// in the same order, for PatternGuard's benefit.
func (vm *VM) matchPattern(ctx *value.VmContext, pat *value.Pattern, v value.V, bindings []value.PatternBinding, bindIdx *int, fr *frame, bound *[]value.V) (bool, error) {
	switch pat.Kind {
	case value.PatternLiteral:
		return value.Equal(v, pat.Literal), nil

	case value.PatternWildcard:
		return true, nil

	case value.PatternVar:
		b := bindings[*bindIdx]
		*bindIdx++
		fr.set(b.Reg, v)
		*bound = append(*bound, v)
		return true, nil

	case value.PatternRange:
		loOK, err := compareAtLeast(v, pat.Low)
		if err != nil {
			return false, err
		}
		if !loOK {
			return false, nil
		}
		if pat.Inclusive {
			hiOK, err := compareAtMost(v, pat.High)
			if err != nil {
				return false, err
			}
			return hiOK, nil
		}
		hiOK, err := compareLessThan(v, pat.High)
		if err != nil {
			return false, err
		}
		return hiOK, nil

	case value.PatternList:
		if v.Kind() != value.KindList {
			return false, nil
		}
		items := v.List()
		if pat.Rest == nil {
			if len(items) != len(pat.Elems) {
				return false, nil
			}
		} else if len(items) < len(pat.Elems) {
			return false, nil
		}
		for i := range pat.Elems {
			ok, err := vm.matchPattern(ctx, &pat.Elems[i], items[i], bindings, bindIdx, fr, bound)
			if err != nil || !ok {
				return false, err
			}
		}
		if pat.Rest != nil {
			tail := append([]value.V{}, items[len(pat.Elems):]...)
			b := bindings[*bindIdx]
			*bindIdx++
			restV := value.NewList(tail)
			fr.set(b.Reg, restV)
			*bound = append(*bound, restV)
		}
		return true, nil

	case value.PatternMap:
		if v.Kind() != value.KindMap {
			return false, nil
		}
		m := v.Map()
		matched := make(map[string]bool, len(pat.Entries))
		for _, entry := range pat.Entries {
			val, ok := m[entry.Key]
			if !ok {
				return false, nil
			}
			matched[entry.Key] = true
			ok, err := vm.matchPattern(ctx, entry.Sub, val, bindings, bindIdx, fr, bound)
			if err != nil || !ok {
				return false, err
			}
		}
		if pat.MapRest != nil {
			rest := make(map[string]value.V, len(m)-len(matched))
			for k, val := range m {
				if !matched[k] {
					rest[k] = val
				}
			}
			b := bindings[*bindIdx]
			*bindIdx++
			restV := value.NewMap(rest)
			fr.set(b.Reg, restV)
			*bound = append(*bound, restV)
		}
		return true, nil

	case value.PatternOr:
		for i := range pat.Alts {
			// Alternatives bind no names (spec §3.5), so bindIdx/bound never
			// advance inside this recursion — a save/restore would be a no-op.
			ok, err := vm.matchPattern(ctx, &pat.Alts[i], v, bindings, bindIdx, fr, bound)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case value.PatternGuard:
		ok, err := vm.matchPattern(ctx, pat.Inner, v, bindings, bindIdx, fr, bound)
		if err != nil || !ok {
			return false, err
		}
		if pat.Guard == nil {
			return true, nil
		}
		results, err := vm.callFunction(ctx, pat.Guard, *bound, nil, 1)
		if err != nil {
			return false, err
		}
		return len(results) > 0 && results[0].Truthy(), nil
	}
	return false, nil
}

func compareAtLeast(v, low value.V) (bool, error) {
	ord, err := value.Compare(v, low)
	if err != nil {
		return false, err
	}
	return ord != value.Less, nil
}

func compareAtMost(v, high value.V) (bool, error) {
	ord, err := value.Compare(v, high)
	if err != nil {
		return false, err
	}
	return ord != value.Greater, nil
}

func compareLessThan(v, high value.V) (bool, error) {
	ord, err := value.Compare(v, high)
	if err != nil {
		return false, err
	}
	return ord == value.Less, nil
}

// runPatternPlan evaluates a full plan against v, returning whether it
// matched. On success every PatternBinding's register in fr already holds its
// bound value.
func (vm *VM) runPatternPlan(ctx *value.VmContext, plan *value.PatternPlan, v value.V, fr *frame) (bool, error) {
	idx := 0
	var bound []value.V
	return vm.matchPattern(ctx, &plan.Pattern, v, plan.Bindings, &idx, fr, &bound)
}
