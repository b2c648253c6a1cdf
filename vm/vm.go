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

// Package vm executes compiled value.Function bytecode: register windows,
// call frames, the full calling convention (positional, named-with-defaults,
// native Go functions), pattern matching, iteration, and error propagation
// with call-stack reporting (spec §4, §6).
package vm

import (
	"github.com/jtolds/gls"

	"github.com/lkrlang/lkr/value"
)

// ConcurrencyHooks lets the concurrent package plug spawn/await intrinsics
// into the VM without vm importing concurrent (concurrency stays a separate
// package; the VM only needs these two verbs to run `spawn`/`await`
// expressions end to end, while the channel builtins are globals the
// concurrent package registers itself).
type ConcurrencyHooks interface {
	Spawn(ctx *value.VmContext, closure value.V) (value.V, error)
	Await(ctx *value.VmContext, task value.V) (value.V, error)
}

// VM is the register-machine interpreter. It is safe to reuse across
// top-level Run calls but not to share across goroutines without external
// synchronization on globals (VmContext already takes its own lock).
type VM struct {
	Concurrency ConcurrencyHooks

	// glsMgr propagates the active VmContext across goroutine boundaries
	// created by spawned tasks, grounded on the teacher having no
	// goroutine-local state of its own — adopted per SPEC_FULL §2.2 since
	// every other pack repo that spawns workers threads explicit state
	// through function arguments instead; jtolds/gls is the concrete
	// library named for this concern.
	glsMgr *gls.ContextManager
}

var glsContextKey = "lkr_vm_context"

// NewVM builds a VM. The standard builtin globals (spec §4.4's
// `spawn`/`await`, and the internal `$next` iterator-step helper the
// compiler emits for `for .. in` loops) are not registered here: Run and
// CallValue register them into their VmContext through RegisterBuiltins.
func NewVM() *VM {
	return &VM{glsMgr: gls.NewContextManager()}
}

// RunWithContext pushes ctx onto the goroutine-local stack for the duration
// of fn, so nested native calls (including ones running on a spawned
// goroutine) can recover it via CurrentContext without threading it through
// every signature.
func (vm *VM) RunWithContext(ctx *value.VmContext, fn func()) {
	vm.glsMgr.SetValues(gls.Values{glsContextKey: ctx}, fn)
}

// CurrentContext recovers the VmContext set by the innermost RunWithContext
// on this goroutine's call chain, or nil if none is active.
func (vm *VM) CurrentContext() *value.VmContext {
	v, ok := vm.glsMgr.GetValue(glsContextKey)
	if !ok {
		return nil
	}
	ctx, _ := v.(*value.VmContext)
	return ctx
}

// Run invokes fn with args in a fresh frame and returns its positional
// return values (spec §4.3.1). ctx supplies globals, the module resolver,
// and the call-stack diagnostic sink.
func (vm *VM) Run(fn *value.Function, args []value.V, ctx *value.VmContext) ([]value.V, error) {
	vm.RegisterBuiltins(ctx)
	var result []value.V
	var err error
	vm.RunWithContext(ctx, func() {
		result, err = vm.callFunction(ctx, fn, args, nil, 1)
	})
	return result, err
}
