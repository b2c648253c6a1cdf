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
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lkrlang/lkr/value"
	"github.com/lkrlang/lkr/vm"
)

var _ vm.ConcurrencyHooks = (*Runtime)(nil)

// taskEntry is the runtime-private bookkeeping behind a script-visible
// value.TaskHandle; keyed by a monotonic uint64 id in Runtime.tasks (spec
// §3.1's "Task(shared handle { id: u64 })", §5.3's id-keyed task table). uuid
// is carried purely for external correlation/tracing (the domain-stack home
// SPEC_FULL.md gives github.com/google/uuid), never used as the lookup key.
type taskEntry struct {
	uuid   uuid.UUID
	done   chan struct{}
	result value.V
	err    error
	cancel context.CancelFunc
}

// Spawn implements vm.ConcurrencyHooks.Spawn (spec §4.4.1): clone the
// invoking VmContext, box the call as a future, submit to the executor,
// return a Task carrying the allocated id. The spawned closure runs on its
// own fresh *vm.VM so its register file and inline-cache state never
// contends with the spawning VM's (spec §5.1: "distinct Vm instances can
// run in parallel").
func (rt *Runtime) Spawn(ctx *value.VmContext, closure value.V) (value.V, error) {
	if closure.Kind() != value.KindClosure {
		return value.Nil, value.NewError(value.ErrType, "spawn expects a zero-argument closure")
	}

	rt.mu.Lock()
	rt.nextTaskID++
	id := rt.nextTaskID
	taskCtx, cancel := context.WithCancel(context.Background())
	entry := &taskEntry{uuid: uuid.New(), done: make(chan struct{}), cancel: cancel}
	rt.tasks[id] = entry
	rt.mu.Unlock()

	spawnedCtx := ctx.Clone()
	run := func() {
		defer close(entry.done)
		defer func() {
			if r := recover(); r != nil {
				entry.err = value.NewError(value.ErrRuntimeProtocol, "task %d panicked: %v", id, r)
			}
		}()
		if taskCtx.Err() != nil {
			entry.err = value.NewError(value.ErrRuntimeProtocol, "task %d was canceled before it started", id)
			return
		}
		taskVM := vm.NewVM()
		taskVM.Concurrency = rt
		result, err := taskVM.CallValue(spawnedCtx, closure, nil)
		entry.result, entry.err = result, err
	}

	if rt.singleThreaded {
		run()
	} else {
		if err := rt.sem.Acquire(taskCtx, 1); err != nil {
			entry.err = fmt.Errorf("task %d canceled while queued: %w", id, err)
			close(entry.done)
			return value.NewTask(id), nil
		}
		rt.group.Go(func() error {
			defer rt.sem.Release(1)
			run()
			return entry.err
		})
	}
	return value.NewTask(id), nil
}

// Join blocks until the task's closure returns and yields its result (spec
// §4.4.1's join, shared by the `join` builtin and by Await below).
func (rt *Runtime) Join(task value.V) (value.V, error) {
	if task.Kind() != value.KindTask {
		return value.Nil, value.NewError(value.ErrType, "join expects a task")
	}
	rt.mu.Lock()
	entry, ok := rt.tasks[task.TaskID()]
	rt.mu.Unlock()
	if !ok {
		return value.Nil, value.NewError(value.ErrRuntimeProtocol, "join: unknown task id %d", task.TaskID())
	}
	<-entry.done
	if entry.err != nil {
		if verr, ok := entry.err.(*value.Error); ok {
			return value.Nil, verr
		}
		return value.Nil, value.NewError(value.ErrRuntimeProtocol, "task failed: %v", entry.err)
	}
	return entry.result, nil
}

// Await implements vm.ConcurrencyHooks.Await; `await` and `join` are the
// same operation under two names (spec §4.4's `await` expression form vs.
// the `join` builtin both resolve to awaiting the join handle).
func (rt *Runtime) Await(ctx *value.VmContext, task value.V) (value.V, error) {
	return rt.Join(task)
}

// Cancel aborts the join handle if the task has not yet started; a task
// already running inside its own VM receives no language-visible interrupt
// (spec §5.2: "cancellation aborts the underlying join handle but does not
// deliver a language-visible interrupt inside the task's VM"). No-op if the
// id is unknown, per spec §4.4.1.
func (rt *Runtime) Cancel(task value.V) {
	if task.Kind() != value.KindTask {
		return
	}
	rt.mu.Lock()
	entry, ok := rt.tasks[task.TaskID()]
	rt.mu.Unlock()
	if !ok {
		return
	}
	entry.cancel()
}
