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

// execCmp backs the Cmp family (spec §3.1, §4.2.4): Eq/Ne use structural
// Equal, the four ordering comparisons use Compare and raise on
// incomparable kinds.
func (vm *VM) execCmp(ctx *value.VmContext, code value.OpCode, a, b value.V) (value.V, error) {
	if code == value.OpCmpEq {
		return value.NewBool(value.Equal(a, b)), nil
	}
	if code == value.OpCmpNe {
		return value.NewBool(!value.Equal(a, b)), nil
	}
	ord, err := value.Compare(a, b)
	if err != nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "%v", err))
	}
	switch code {
	case value.OpCmpLt:
		return value.NewBool(ord == value.Less), nil
	case value.OpCmpLe:
		return value.NewBool(ord != value.Greater), nil
	case value.OpCmpGt:
		return value.NewBool(ord == value.Greater), nil
	case value.OpCmpGe:
		return value.NewBool(ord != value.Less), nil
	}
	return value.Nil, ctx.Raise(value.NewError(value.ErrCompile, "unreachable comparison opcode %s", code))
}

// immToPlainCmp maps an *Imm comparison opcode to its register-pair
// equivalent so execCmp has one implementation to maintain.
func immToPlainCmp(code value.OpCode) value.OpCode {
	switch code {
	case value.OpCmpEqImm:
		return value.OpCmpEq
	case value.OpCmpNeImm:
		return value.OpCmpNe
	case value.OpCmpLtImm:
		return value.OpCmpLt
	case value.OpCmpLeImm:
		return value.OpCmpLe
	case value.OpCmpGtImm:
		return value.OpCmpGt
	case value.OpCmpGeImm:
		return value.OpCmpGe
	}
	return code
}
