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

// This file re-exports the handful of dynamic-dispatch helpers the llvmgen
// package's runtime ABI calls back into (spec §4.5's "the LLVM path is a
// compatibility surface: it must produce the same observable result as the
// interpreter for every supported opcode"). Generated code and the
// interpreter share one implementation of Add/Access/Index/In/ToIter/ToStr
// rather than llvmgen re-deriving the same dynamic semantics a second time.

// Add implements the generic Add opcode's semantics (spec §4.2.4).
func Add(ctx *value.VmContext, a, b value.V) (value.V, error) { return genericAdd(ctx, a, b) }

// Sub implements the generic Sub opcode's semantics.
func Sub(ctx *value.VmContext, a, b value.V) (value.V, error) { return genericSub(ctx, a, b) }

// Mul implements the generic Mul opcode's semantics.
func Mul(ctx *value.VmContext, a, b value.V) (value.V, error) { return genericMul(ctx, a, b) }

// Div implements the generic Div opcode's semantics (Int/Int traps on zero).
func Div(ctx *value.VmContext, a, b value.V) (value.V, error) { return genericDiv(ctx, a, b) }

// Mod implements the generic Mod opcode's semantics (Int/Int traps on zero).
func Mod(ctx *value.VmContext, a, b value.V) (value.V, error) { return genericMod(ctx, a, b) }

// Access implements the Access/AccessK opcodes' field-navigation semantics.
func Access(ctx *value.VmContext, base value.V, field string) (value.V, error) {
	return accessField(ctx, base, field)
}

// IndexByKey implements the IndexK opcode's literal-string-key semantics.
func IndexByKey(ctx *value.VmContext, base value.V, key string) (value.V, error) {
	return indexByKey(ctx, base, key)
}

// Index implements the Index opcode's dynamic int-or-string key semantics.
func Index(ctx *value.VmContext, base, idx value.V) (value.V, error) {
	return indexValue(ctx, base, idx)
}

// Contains implements the In opcode's membership-test semantics.
func Contains(ctx *value.VmContext, needle, haystack value.V) (value.V, error) {
	return containsValue(ctx, needle, haystack)
}

// ToIter implements the ToIter opcode's iterator-construction semantics.
func ToIter(v value.V) (value.V, error) { return toIter(v) }

// Display implements the ToStr opcode's rendering semantics.
func Display(v value.V) string { return displayString(v) }
