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

package compiler

import "github.com/lkrlang/lkr/value"

// foldConst evaluates a binary operator over two literal values at compile
// time, the same shortcut scm/jit.go takes for constant-folding arithmetic
// before emitting bytecode (there, folding happens during tree rewriting;
// here it happens while lowering ast.Expr, before any Op is appended). ok is
// false when either operand isn't foldable or the operator can trap at
// runtime (e.g. division by a non-zero-checked constant), in which case the
// caller falls back to emitting a real instruction.
func foldConst(op string, l, r value.V) (value.V, bool) {
	switch {
	case l.Kind() == value.KindInt && r.Kind() == value.KindInt:
		return foldIntOp(op, l.Int(), r.Int())
	case isNumeric(l) && isNumeric(r):
		return foldFloatOp(op, asFloat(l), asFloat(r))
	case l.Kind() == value.KindStr && r.Kind() == value.KindStr && op == "+":
		return value.NewStr(l.Str() + r.Str()), true
	case l.Kind() == value.KindBool && r.Kind() == value.KindBool:
		return foldBoolOp(op, l.Bool(), r.Bool())
	}
	return value.Nil, false
}

func isNumeric(v value.V) bool {
	return v.Kind() == value.KindInt || v.Kind() == value.KindFloat
}

func asFloat(v value.V) float64 {
	if v.Kind() == value.KindInt {
		return float64(v.Int())
	}
	return v.Float()
}

func foldIntOp(op string, l, r int64) (value.V, bool) {
	switch op {
	case "+":
		return value.NewInt(l + r), true
	case "-":
		return value.NewInt(l - r), true
	case "*":
		return value.NewInt(l * r), true
	case "/":
		if r == 0 {
			return value.Nil, false // defer to runtime for the division-by-zero error
		}
		return value.NewInt(l / r), true
	case "%":
		if r == 0 {
			return value.Nil, false
		}
		return value.NewInt(l % r), true
	case "==":
		return value.NewBool(l == r), true
	case "!=":
		return value.NewBool(l != r), true
	case "<":
		return value.NewBool(l < r), true
	case "<=":
		return value.NewBool(l <= r), true
	case ">":
		return value.NewBool(l > r), true
	case ">=":
		return value.NewBool(l >= r), true
	}
	return value.Nil, false
}

func foldFloatOp(op string, l, r float64) (value.V, bool) {
	switch op {
	case "+":
		return value.NewFloat(l + r), true
	case "-":
		return value.NewFloat(l - r), true
	case "*":
		return value.NewFloat(l * r), true
	case "/":
		if r == 0 {
			return value.Nil, false
		}
		return value.NewFloat(l / r), true
	case "==":
		return value.NewBool(l == r), true
	case "!=":
		return value.NewBool(l != r), true
	case "<":
		return value.NewBool(l < r), true
	case "<=":
		return value.NewBool(l <= r), true
	case ">":
		return value.NewBool(l > r), true
	case ">=":
		return value.NewBool(l >= r), true
	}
	return value.Nil, false
}

func foldBoolOp(op string, l, r bool) (value.V, bool) {
	switch op {
	case "&&":
		return value.NewBool(l && r), true
	case "||":
		return value.NewBool(l || r), true
	case "==":
		return value.NewBool(l == r), true
	case "!=":
		return value.NewBool(l != r), true
	}
	return value.Nil, false
}

// arithFlavor picks which specialized opcode family applies to a binary
// operator given statically-known operand kinds, per spec §4.1.4's
// "specializes to Int/Float fast paths when operand types are known at
// compile time, falls back to a generic numeric op otherwise" — grounded on
// scm/jit.go's Int/Float/generic dispatch for the same operators.
type arithFlavor uint8

const (
	flavorGeneric arithFlavor = iota
	flavorInt
	flavorFloat
)

func pickFlavor(leftKnown, rightKnown value.Kind, leftOK, rightOK bool) arithFlavor {
	if !leftOK || !rightOK {
		return flavorGeneric
	}
	if leftKnown == value.KindInt && rightKnown == value.KindInt {
		return flavorInt
	}
	if (leftKnown == value.KindInt || leftKnown == value.KindFloat) &&
		(rightKnown == value.KindInt || rightKnown == value.KindFloat) {
		return flavorFloat
	}
	return flavorGeneric
}
