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

package concurrent

import (
	"testing"

	"github.com/lkrlang/lkr/value"
)

func closureReturning(v value.V) value.V {
	body := &value.Function{
		NRegs:  1,
		Consts: []value.V{v},
		Code: []value.Op{
			value.OpLoadKOf(0, 0),
			value.OpRetOf(0, 1),
		},
	}
	return value.NewClosure(&value.ClosureValue{Name: "taskBody", Body: body})
}

func TestSpawnAndJoinReturnsResult(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)

	task, err := rt.Spawn(ctx, closureReturning(value.NewInt(7)))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if task.Kind() != value.KindTask {
		t.Fatalf("expected spawn to return a Task, got kind %v", task.Kind())
	}

	result, err := rt.Join(task)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Int() != 7 {
		t.Fatalf("expected 7, got %v", result)
	}
}

func TestAwaitIsJoinUnderAnotherName(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)

	task, err := rt.Spawn(ctx, closureReturning(value.NewInt(99)))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	result, err := rt.Await(ctx, task)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if result.Int() != 99 {
		t.Fatalf("expected 99, got %v", result)
	}
}

func TestSpawnRejectsNonClosure(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)
	_, err := rt.Spawn(ctx, value.NewInt(1))
	if err == nil {
		t.Fatalf("expected spawn to reject a non-closure argument")
	}
}

func TestJoinUnknownTaskRaises(t *testing.T) {
	rt := NewRuntime()
	_, err := rt.Join(value.NewTask(999))
	if err == nil {
		t.Fatalf("expected join on an unknown task id to raise")
	}
}

func TestCancelUnknownTaskIsNoop(t *testing.T) {
	rt := NewRuntime()
	rt.Cancel(value.NewTask(999)) // must not panic
}

func TestSingleThreadedRuntimeRunsSpawnSynchronously(t *testing.T) {
	t.Setenv("LKR_SINGLE_THREADED_RUNTIME", "1")
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)

	task, err := rt.Spawn(ctx, closureReturning(value.NewInt(3)))
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	// Spawn itself already ran the closure to completion on the calling
	// goroutine in single-threaded mode, so join must not block.
	result, err := rt.Join(task)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Int() != 3 {
		t.Fatalf("expected 3, got %v", result)
	}
}

func TestSpawnTaskClosureCapturesArePreserved(t *testing.T) {
	rt := NewRuntime()
	ctx := value.NewVmContext(nil)

	body := &value.Function{
		NRegs:  1,
		Consts: []value.V{},
		Code: []value.Op{
			value.OpLoadCaptureOf(0, 0),
			value.OpRetOf(0, 1),
		},
	}
	closure := value.NewClosure(&value.ClosureValue{
		Name:     "captureEcho",
		Body:     body,
		Captures: []value.V{value.NewStr("hello")},
	})

	task, err := rt.Spawn(ctx, closure)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	result, err := rt.Join(task)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if result.Str() != "hello" {
		t.Fatalf("expected captured 'hello', got %v", result)
	}
}
