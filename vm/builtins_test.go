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
	"testing"

	"github.com/lkrlang/lkr/value"
)

func TestNextBuiltinStepsAnIterator(t *testing.T) {
	vm := NewVM()
	ctx := value.NewVmContext(nil)
	it, err := toIter(value.NewList([]value.V{value.NewInt(1), value.NewInt(2)}))
	if err != nil {
		t.Fatalf("toIter: %v", err)
	}
	pair, err := vm.nextBuiltin([]value.V{it}, ctx)
	if err != nil {
		t.Fatalf("nextBuiltin: %v", err)
	}
	items := pair.List()
	if len(items) != 2 || items[0].Int() != 1 || !items[1].Bool() {
		t.Fatalf("expected (1, true), got %v", items)
	}
	pair, err = vm.nextBuiltin([]value.V{it}, ctx)
	if err != nil {
		t.Fatalf("nextBuiltin second step: %v", err)
	}
	items = pair.List()
	if items[0].Int() != 2 || !items[1].Bool() {
		t.Fatalf("expected (2, true), got %v", items)
	}
	pair, err = vm.nextBuiltin([]value.V{it}, ctx)
	if err != nil {
		t.Fatalf("nextBuiltin exhausted step: %v", err)
	}
	items = pair.List()
	if items[1].Bool() {
		t.Fatalf("expected hasMore=false once the iterator is exhausted, got %v", items)
	}
}

func TestNextBuiltinRejectsNonIterator(t *testing.T) {
	vm := NewVM()
	ctx := value.NewVmContext(nil)
	_, err := vm.nextBuiltin([]value.V{value.NewInt(1)}, ctx)
	verr, ok := err.(*value.Error)
	if !ok || verr.Kind != value.ErrType {
		t.Fatalf("expected ErrType, got %v", err)
	}
}

func TestSpawnAndAwaitWithoutConcurrencyRuntimeRaise(t *testing.T) {
	vm := NewVM()
	ctx := value.NewVmContext(nil)
	_, err := vm.spawnBuiltin([]value.V{value.NewClosure(&value.ClosureValue{})}, ctx)
	verr, ok := err.(*value.Error)
	if !ok || verr.Kind != value.ErrRuntimeProtocol {
		t.Fatalf("expected spawn without ConcurrencyHooks to raise ErrRuntimeProtocol, got %v", err)
	}

	_, err = vm.awaitBuiltin([]value.V{value.NewTask(1)}, ctx)
	verr, ok = err.(*value.Error)
	if !ok || verr.Kind != value.ErrRuntimeProtocol {
		t.Fatalf("expected await without ConcurrencyHooks to raise ErrRuntimeProtocol, got %v", err)
	}
}

// stubConcurrency is a minimal ConcurrencyHooks implementation exercising the
// spawn/await call path end to end without a real scheduler.
type stubConcurrency struct{}

func (stubConcurrency) Spawn(ctx *value.VmContext, closure value.V) (value.V, error) {
	return value.NewTask(7), nil
}

func (stubConcurrency) Await(ctx *value.VmContext, task value.V) (value.V, error) {
	return value.NewInt(int64(task.TaskID())), nil
}

func TestSpawnAndAwaitWithConcurrencyHooks(t *testing.T) {
	vm := NewVM()
	vm.Concurrency = stubConcurrency{}
	ctx := value.NewVmContext(nil)

	task, err := vm.spawnBuiltin([]value.V{value.NewClosure(&value.ClosureValue{})}, ctx)
	if err != nil {
		t.Fatalf("spawnBuiltin: %v", err)
	}
	if task.Kind() != value.KindTask || task.TaskID() != 7 {
		t.Fatalf("expected task handle 7, got %v", task)
	}

	result, err := vm.awaitBuiltin([]value.V{task}, ctx)
	if err != nil {
		t.Fatalf("awaitBuiltin: %v", err)
	}
	if result.Int() != 7 {
		t.Fatalf("expected the stub await to echo the task id, got %v", result)
	}
}

func TestRegisterBuiltinsExposesNextSpawnAwait(t *testing.T) {
	vm := NewVM()
	ctx := value.NewVmContext(nil)
	vm.RegisterBuiltins(ctx)
	for _, name := range []string{"$next", "spawn", "await"} {
		if _, ok := ctx.LoadGlobal(name); !ok {
			t.Fatalf("expected %q to be registered as a global", name)
		}
	}
}
