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

// listGuard and mapGuard are the two value.MutationGuard implementations
// backing list_mutate/map_mutate (spec §5.4): each wraps a scratch owned
// copy of the source container, lets push/pop/replace/remove/insert/delete
// mutate only that scratch, and hands the final copy back to the builtin
// that registered the guard once the closure returns or calls commit.
// Ownership is never shared with the outside world during mutation, so the
// container the script still holds a reference to is unaffected (spec §5.4:
// "the input remains unchanged").

type listGuard struct {
	items     []value.V
	committed bool
}

func (g *listGuard) checkOpen() error {
	if g.committed {
		return value.NewError(value.ErrRuntimeProtocol, "mutation guard already committed")
	}
	return nil
}

func (g *listGuard) Push(v value.V) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	g.items = append(g.items, v)
	return nil
}

func (g *listGuard) Pop() (value.V, error) {
	if err := g.checkOpen(); err != nil {
		return value.Nil, err
	}
	if len(g.items) == 0 {
		return value.Nil, value.NewError(value.ErrRuntimeProtocol, "pop from an empty list")
	}
	last := g.items[len(g.items)-1]
	g.items = g.items[:len(g.items)-1]
	return last, nil
}

func (g *listGuard) Replace(idx int64, val value.V) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	if idx < 0 || idx >= int64(len(g.items)) {
		return value.NewError(value.ErrRuntimeProtocol, "replace: index %d out of range (length %d)", idx, len(g.items))
	}
	g.items[idx] = val
	return nil
}

func (g *listGuard) Remove(idx int64) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	if idx < 0 || idx >= int64(len(g.items)) {
		return value.NewError(value.ErrRuntimeProtocol, "remove: index %d out of range (length %d)", idx, len(g.items))
	}
	g.items = append(g.items[:idx], g.items[idx+1:]...)
	return nil
}

func (g *listGuard) Insert(key string, val value.V) error {
	return value.NewError(value.ErrType, "insert is not defined on a list mutation guard")
}

func (g *listGuard) Delete(key string) error {
	return value.NewError(value.ErrType, "delete is not defined on a list mutation guard")
}

func (g *listGuard) AsList() (value.V, error) {
	cp := make([]value.V, len(g.items))
	copy(cp, g.items)
	return value.NewList(cp), nil
}

func (g *listGuard) AsMap() (value.V, error) {
	return value.Nil, value.NewError(value.ErrType, "as_map is not defined on a list mutation guard")
}

func (g *listGuard) Commit() error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	g.committed = true
	return nil
}

type mapGuard struct {
	entries   map[string]value.V
	committed bool
}

func (g *mapGuard) checkOpen() error {
	if g.committed {
		return value.NewError(value.ErrRuntimeProtocol, "mutation guard already committed")
	}
	return nil
}

func (g *mapGuard) Push(v value.V) error {
	return value.NewError(value.ErrType, "push is not defined on a map mutation guard")
}

func (g *mapGuard) Pop() (value.V, error) {
	return value.Nil, value.NewError(value.ErrType, "pop is not defined on a map mutation guard")
}

func (g *mapGuard) Replace(idx int64, val value.V) error {
	return value.NewError(value.ErrType, "replace is not defined on a map mutation guard")
}

func (g *mapGuard) Remove(idx int64) error {
	return value.NewError(value.ErrType, "remove is not defined on a map mutation guard")
}

func (g *mapGuard) Insert(key string, val value.V) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	g.entries[key] = val
	return nil
}

func (g *mapGuard) Delete(key string) error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	delete(g.entries, key)
	return nil
}

func (g *mapGuard) AsList() (value.V, error) {
	return value.Nil, value.NewError(value.ErrType, "as_list is not defined on a map mutation guard")
}

func (g *mapGuard) AsMap() (value.V, error) {
	cp := make(map[string]value.V, len(g.entries))
	for k, v := range g.entries {
		cp[k] = v
	}
	return value.NewMap(cp), nil
}

func (g *mapGuard) Commit() error {
	if err := g.checkOpen(); err != nil {
		return err
	}
	g.committed = true
	return nil
}

// listMutateBuiltin and mapMutateBuiltin implement list_mutate(list, closure)
// / map_mutate(map, closure): build a guard over a scratch copy, call the
// closure once with the guard as its sole argument (per vm.CallValue, the
// same entry point call-site Call opcodes use), then return a fresh
// container built from whatever the scratch holds when the closure returns.
// There is no dot-call syntax in this AST (ast.ExprCall always targets a
// plain callee expression), so the spec's `list.mutate(closure)` spelling is
// realized as an explicit two-argument global, the same way spawn/await are
// globals rather than methods on a task handle.
func (vm *VM) listMutateBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 2 || !args[0].IsList() || args[1].Kind() != value.KindClosure {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "list_mutate expects (list, closure)"))
	}
	src := args[0].List()
	scratch := make([]value.V, len(src))
	copy(scratch, src)
	g := &listGuard{items: scratch}

	if _, err := vm.CallValue(ctx, args[1], []value.V{value.NewMutationGuard(g)}); err != nil {
		return value.Nil, err
	}
	result := make([]value.V, len(g.items))
	copy(result, g.items)
	return value.NewList(result), nil
}

func (vm *VM) mapMutateBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	if len(args) != 2 || !args[0].IsMap() || args[1].Kind() != value.KindClosure {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "map_mutate expects (map, closure)"))
	}
	src := args[0].Map()
	scratch := make(map[string]value.V, len(src))
	for k, v := range src {
		scratch[k] = v
	}
	g := &mapGuard{entries: scratch}

	if _, err := vm.CallValue(ctx, args[1], []value.V{value.NewMutationGuard(g)}); err != nil {
		return value.Nil, err
	}
	result := make(map[string]value.V, len(g.entries))
	for k, v := range g.entries {
		result[k] = v
	}
	return value.NewMap(result), nil
}

// The remaining builtins dispatch straight onto value.MutationGuard, the
// only operations a script can perform on a guard value once it has one
// (spec §5.4: "push/pop/replace/remove/insert/delete mutate the scratch;
// as_list/as_map snapshots it; commit forces a mid-closure commit").

func guardArg(args []value.V, name string) (value.MutationGuard, *value.Error) {
	if len(args) == 0 || args[0].Kind() != value.KindMutationGuard {
		return nil, value.NewError(value.ErrType, "%s expects a mutation guard as its first argument", name)
	}
	return args[0].MutationGuard(), nil
}

func guardPushBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "push")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	if len(args) != 2 {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "push expects (guard, value)"))
	}
	if err := g.Push(args[1]); err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return value.Nil, nil
}

func guardPopBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "pop")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	v, err := g.Pop()
	if err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return v, nil
}

func guardReplaceBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "replace")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	if len(args) != 3 || args[1].Kind() != value.KindInt {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "replace expects (guard, index, value)"))
	}
	if err := g.Replace(args[1].Int(), args[2]); err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return value.Nil, nil
}

func guardRemoveBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "remove")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	if len(args) != 2 || args[1].Kind() != value.KindInt {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "remove expects (guard, index)"))
	}
	if err := g.Remove(args[1].Int()); err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return value.Nil, nil
}

func guardInsertBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "insert")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	if len(args) != 3 || args[1].Kind() != value.KindStr {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "insert expects (guard, key, value)"))
	}
	if err := g.Insert(args[1].Str(), args[2]); err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return value.Nil, nil
}

func guardDeleteBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "delete")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	if len(args) != 2 || args[1].Kind() != value.KindStr {
		return value.Nil, ctx.Raise(value.NewError(value.ErrType, "delete expects (guard, key)"))
	}
	if err := g.Delete(args[1].Str()); err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return value.Nil, nil
}

func guardAsListBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "as_list")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	v, err := g.AsList()
	if err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return v, nil
}

func guardAsMapBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "as_map")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	v, err := g.AsMap()
	if err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return v, nil
}

func guardCommitBuiltin(args []value.V, ctx *value.VmContext) (value.V, error) {
	g, err := guardArg(args, "commit")
	if err != nil {
		return value.Nil, ctx.Raise(err)
	}
	if err := g.Commit(); err != nil {
		return value.Nil, ctx.Raise(toGuardError(err))
	}
	return value.Nil, nil
}

// toGuardError adapts a plain error into *value.Error for ctx.Raise. Every
// error a listGuard/mapGuard method returns is already a *value.Error (they
// only ever build one via value.NewError), so this never needs to invent a
// kind for a foreign error type.
func toGuardError(err error) *value.Error {
	if verr, ok := err.(*value.Error); ok {
		return verr
	}
	return value.NewError(value.ErrRuntimeProtocol, "%v", err)
}
