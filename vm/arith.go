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
	"math"

	"github.com/lkrlang/lkr/value"
)

func numeric(v value.V) (float64, bool) {
	switch v.Kind() {
	case value.KindInt:
		return float64(v.Int()), true
	case value.KindFloat:
		return v.Float(), true
	default:
		return 0, false
	}
}

func bothInt(a, b value.V) bool {
	return a.Kind() == value.KindInt && b.Kind() == value.KindInt
}

func typeErr(ctx *value.VmContext, op string, a, b value.V) (value.V, error) {
	return value.Nil, ctx.Raise(value.NewError(value.ErrType, "cannot apply %q to %s and %s", op, a.Kind(), b.Kind()))
}

// genericAdd implements the generic Add opcode (spec §4.2.4): numeric
// addition promoting to Float unless both operands are Int; Str+Any string
// concatenation with display of the non-string operand; List+Val append;
// List+List concat; Map+Map right-wins merge.
func genericAdd(ctx *value.VmContext, a, b value.V) (value.V, error) {
	if a.Kind() == value.KindStr {
		return value.NewStr(a.Str() + displayString(b)), nil
	}
	if a.Kind() == value.KindList {
		src := a.List()
		if b.Kind() == value.KindList {
			bs := b.List()
			out := make([]value.V, 0, len(src)+len(bs))
			out = append(out, src...)
			out = append(out, bs...)
			return value.NewList(out), nil
		}
		out := make([]value.V, 0, len(src)+1)
		out = append(out, src...)
		out = append(out, b)
		return value.NewList(out), nil
	}
	if a.Kind() == value.KindMap && b.Kind() == value.KindMap {
		am, bm := a.Map(), b.Map()
		out := make(map[string]value.V, len(am)+len(bm))
		for k, v := range am {
			out[k] = v
		}
		for k, v := range bm {
			out[k] = v
		}
		return value.NewMap(out), nil
	}
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return typeErr(ctx, "+", a, b)
	}
	if bothInt(a, b) {
		return value.NewInt(a.Int() + b.Int()), nil
	}
	return value.NewFloat(af + bf), nil
}

// genericSub implements the generic Sub opcode: numeric subtraction, plus
// Map-Str key removal (spec §4.2.4).
func genericSub(ctx *value.VmContext, a, b value.V) (value.V, error) {
	if a.Kind() == value.KindMap && b.Kind() == value.KindStr {
		am := a.Map()
		out := make(map[string]value.V, len(am))
		for k, v := range am {
			if k == b.Str() {
				continue
			}
			out[k] = v
		}
		return value.NewMap(out), nil
	}
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return typeErr(ctx, "-", a, b)
	}
	if bothInt(a, b) {
		return value.NewInt(a.Int() - b.Int()), nil
	}
	return value.NewFloat(af - bf), nil
}

func genericMul(ctx *value.VmContext, a, b value.V) (value.V, error) {
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return typeErr(ctx, "*", a, b)
	}
	if bothInt(a, b) {
		return value.NewInt(a.Int() * b.Int()), nil
	}
	return value.NewFloat(af * bf), nil
}

// genericDiv divides, keeping Int/Int division exact and trapping on a zero
// divisor rather than producing Inf the way Float division does (spec
// §4.1.4: "division still traps on zero at runtime" for the Int flavor; the
// generic opcode inherits the same rule whenever both operands are Int).
func genericDiv(ctx *value.VmContext, a, b value.V) (value.V, error) {
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return typeErr(ctx, "/", a, b)
	}
	if bothInt(a, b) {
		if b.Int() == 0 {
			return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "division by zero"))
		}
		return value.NewInt(a.Int() / b.Int()), nil
	}
	return value.NewFloat(af / bf), nil
}

func genericMod(ctx *value.VmContext, a, b value.V) (value.V, error) {
	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return typeErr(ctx, "%", a, b)
	}
	if bothInt(a, b) {
		if b.Int() == 0 {
			return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "division by zero"))
		}
		return value.NewInt(a.Int() % b.Int()), nil
	}
	return value.NewFloat(math.Mod(af, bf)), nil
}

// divFloat backs the specialized DivFloat opcode: always Float division, no
// zero trap (IEEE 754 Inf/NaN, mirroring Rust's f64 semantics the spec is
// grounded on).
func divFloat(a, b value.V) value.V {
	af, _ := numeric(a)
	bf, _ := numeric(b)
	return value.NewFloat(af / bf)
}

func modFloat(a, b value.V) value.V {
	af, _ := numeric(a)
	bf, _ := numeric(b)
	return value.NewFloat(math.Mod(af, bf))
}
