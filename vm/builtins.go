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

// RegisterBuiltins defines the engine-reserved globals a compiled module can
// call without ever resolving through ctx.Resolver: "$next" backs `for x in
// ...` (compiler/compiler.go's emitForIn), "spawn"/"await" back the Spawn/
// Await expression forms (spec §8), deferring to whatever ConcurrencyHooks
// implementation the embedder wired into vm.Concurrency, and "list_mutate"/
// "map_mutate" plus the guard-dispatch family back spec §5.4's mutation
// guards (vm/mutation.go).
func (vm *VM) RegisterBuiltins(ctx *value.VmContext) {
	ctx.DefineGlobal("$next", value.NewGoFunction(vm.nextBuiltin))
	ctx.DefineGlobal("spawn", value.NewGoFunction(vm.spawnBuiltin))
	ctx.DefineGlobal("await", value.NewGoFunction(vm.awaitBuiltin))

	ctx.DefineGlobal("list_mutate", value.NewGoFunction(vm.listMutateBuiltin))
	ctx.DefineGlobal("map_mutate", value.NewGoFunction(vm.mapMutateBuiltin))
	ctx.DefineGlobal("push", value.NewGoFunction(guardPushBuiltin))
	ctx.DefineGlobal("pop", value.NewGoFunction(guardPopBuiltin))
	ctx.DefineGlobal("replace", value.NewGoFunction(guardReplaceBuiltin))
	ctx.DefineGlobal("remove", value.NewGoFunction(guardRemoveBuiltin))
	ctx.DefineGlobal("insert", value.NewGoFunction(guardInsertBuiltin))
	ctx.DefineGlobal("delete", value.NewGoFunction(guardDeleteBuiltin))
	ctx.DefineGlobal("as_list", value.NewGoFunction(guardAsListBuiltin))
	ctx.DefineGlobal("as_map", value.NewGoFunction(guardAsMapBuiltin))
	ctx.DefineGlobal("commit", value.NewGoFunction(guardCommitBuiltin))
}

// nextBuiltin steps a value.Iterator. Since value.GoFunction returns a single
// V but the compiler's Call site expects two results (value, hasMore) written
// back starting at the call's base register, it returns them packed as a
// two-element List; runFrame's Call handling spreads a List result across a
// multi-return call site that a native function alone could not satisfy.
func (vm *VM) nextBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 1 || args[0].Kind() != value.KindIterator {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "$next expects an iterator"))
	}
	v, hasMore, err := args[0].Iterator().Next()
	if err != nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "iterator failed: %v", err))
	}
	return value.NewList([]value.V{v, value.NewBool(hasMore)}), nil
}

func (vm *VM) spawnBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if vm.Concurrency == nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "spawn: no concurrency runtime attached to this VM"))
	}
	if len(args) != 1 || args[0].Kind() != value.KindClosure {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "spawn expects a zero-argument closure"))
	}
	return vm.Concurrency.Spawn(ctx, args[0])
}

func (vm *VM) awaitBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if vm.Concurrency == nil {
		return value.Nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "await: no concurrency runtime attached to this VM"))
	}
	if len(args) != 1 || args[0].Kind() != value.KindTask {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "await expects a task"))
	}
	return vm.Concurrency.Await(ctx, args[0])
}
