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
	"github.com/lkrlang/lkr/value"
)

// resolveCaptures evaluates a set of value.CaptureSpec against the frame
// that is capturing them (either MakeClosure's enclosing frame, or — for a
// named parameter's default-value thunk — the callee frame under
// construction), producing the concrete captured-by-value array (spec
// §3.3, §4.3.2). Both call sites share this helper since the semantics are
// identical: "Register" reads a source register, "Const" reads a source
// constant, "Global" reads a global by name.
func resolveCaptures(specs []value.CaptureSpec, enclosing *frame, ctx *value.VmContext) ([]value.V, error) {
	out := make([]value.V, len(specs))
	for i, spec := range specs {
		switch spec.Kind {
		case value.CaptureRegister:
			out[i] = enclosing.get(spec.Src)
		case value.CaptureConst:
			out[i] = enclosing.fn.Consts[spec.Kidx]
		case value.CaptureGlobal:
			v, _ := ctx.LoadGlobal(spec.Name)
			out[i] = v
		}
	}
	return out, nil
}

// bindSelf writes a named closure's own value into register 0 of its fresh
// frame: compiler/funclit.go allocates the self-binding register first, ahead
// of every parameter, specifically so it always lands at index 0 and the VM
// never has to carry that register index around on ClosureProto (spec §3.3's
// named self-recursion).
func bindSelf(fr *frame, cv *value.ClosureValue) {
	if cv.SelfName == "" {
		return
	}
	self := value.NewClosure(cv)
	fr.self = self
	fr.set(0, self)
}

// callFunction invokes a compiled Function directly (used for the module
// entry point and for named-parameter default thunks, which have no
// ClosureValue wrapper of their own).
func (vm *VM) callFunction(ctx *value.VmContext, fn *value.Function, args []value.V, captures []value.V, retc int) ([]value.V, error) {
	ctx.PushFrame(fn.Name, fn.Location)
	defer ctx.PopFrame()

	fr := newFrame(fn, captures)
	for i, reg := range fn.ParamRegs {
		if i < len(args) {
			fr.set(reg, args[i])
		}
	}
	return vm.runFrame(ctx, fr, retc)
}

// callClosure binds positional-only arguments to a ClosureValue and runs it
// (spec §4.3.1's fast path). Named parameters with defaults still receive
// their default value, evaluated via their thunk.
func (vm *VM) callClosure(ctx *value.VmContext, cv *value.ClosureValue, args []value.V, retc int) ([]value.V, error) {
	ctx.PushFrame(cv.Name, cv.Location)
	defer ctx.PopFrame()

	fr := newFrame(cv.Body, cv.Captures)
	bindSelf(fr, cv)
	for i, reg := range cv.Body.ParamRegs {
		if i < len(args) {
			fr.set(reg, args[i])
		}
	}
	if err := vm.bindNamedDefaults(ctx, cv, fr, nil); err != nil {
		return nil, err
	}
	return vm.runFrame(ctx, fr, retc)
}

// callClosureNamed binds positional and named arguments (spec §4.3.2,
// §4.3.3): every named parameter must end up bound, either from a supplied
// NamedArg, or — if omitted — from evaluating its default thunk, or else
// the call fails with ErrMissingNamedArg. An unrecognized name fails with
// ErrUnknownNamedArg; a name supplied twice is the caller's responsibility
// to reject before reaching here (CallNamed's positional/named windows
// don't allow duplicates to be expressed in the first place).
func (vm *VM) callClosureNamed(ctx *value.VmContext, cv *value.ClosureValue, pos []value.V, named []value.NamedArg, retc int) ([]value.V, error) {
	ctx.PushFrame(cv.Name, cv.Location)
	defer ctx.PopFrame()

	fr := newFrame(cv.Body, cv.Captures)
	bindSelf(fr, cv)
	for i, reg := range cv.Body.ParamRegs {
		if i < len(pos) {
			fr.set(reg, pos[i])
		}
	}
	if err := vm.bindNamedDefaults(ctx, cv, fr, named); err != nil {
		return nil, err
	}
	return vm.runFrame(ctx, fr, retc)
}

// bindNamedDefaults resolves every declared named parameter against the
// caller-supplied named array, falling back to a compiled default thunk
// when present.
func (vm *VM) bindNamedDefaults(ctx *value.VmContext, cv *value.ClosureValue, fr *frame, named []value.NamedArg) error {
	seen := make(map[string]bool, len(named))
	for _, na := range named {
		seen[na.Name] = true
	}
	for _, na := range named {
		found := false
		for i, pname := range cv.NamedParamNames {
			if pname == na.Name {
				fr.set(cv.Body.NamedParamRegs[i], na.Value)
				found = true
				break
			}
		}
		if !found {
			return ctx.Raise(value.ErrUnknownNamedArg(na.Name))
		}
	}
	for i, pname := range cv.NamedParamNames {
		if seen[pname] {
			continue
		}
		thunk := cv.DefaultThunks[i]
		if thunk == nil {
			return ctx.Raise(value.ErrMissingNamedArg(pname))
		}
		capVals, err := resolveCaptures(thunk.Captures, fr, ctx)
		if err != nil {
			return err
		}
		results, err := vm.callFunction(ctx, thunk, nil, capVals, 1)
		if err != nil {
			return err
		}
		var result value.V
		if len(results) > 0 {
			result = results[0]
		}
		fr.set(cv.Body.NamedParamRegs[i], result)
	}
	return nil
}

// CallValue is the exported entry point the concurrent package uses to run a
// spawned closure's body to completion on a task's own VM instance, without
// needing access to the unexported calling-convention internals (spec
// §4.4.1's "box the call as a future"). retc is 1: a spawned closure's
// result is always a single value handed back through join.
func (vm *VM) CallValue(ctx *value.VmContext, callee value.V, args []value.V) (value.V, error) {
	vm.RegisterBuiltins(ctx)
	var result value.V
	var err error
	vm.RunWithContext(ctx, func() {
		var results []value.V
		results, err = vm.callValue(ctx, callee, args, 1)
		if len(results) > 0 {
			result = results[0]
		}
	})
	return result, err
}

// callValue dispatches on the callee's runtime kind (spec §4.3.4: closures,
// native Go functions, and native Go functions that accept named args all
// share one call site shape).
func (vm *VM) callValue(ctx *value.VmContext, callee value.V, args []value.V, retc int) ([]value.V, error) {
	switch callee.Kind() {
	case value.KindClosure:
		return vm.callClosure(ctx, callee.Closure(), args, retc)
	case value.KindGoFunction:
		result, err := callee.GoFunction()(args, ctx)
		if err != nil {
			return nil, err
		}
		return []value.V{result}, nil
	case value.KindGoFunctionNamed:
		result, err := callee.GoFunctionNamed()(args, nil, ctx)
		if err != nil {
			return nil, err
		}
		return []value.V{result}, nil
	default:
		return nil, ctx.Raise(value.NewError(value.ErrType, "value of kind %s is not callable", callee.Kind()))
	}
}

func (vm *VM) callValueNamed(ctx *value.VmContext, callee value.V, pos []value.V, named []value.NamedArg, retc int) ([]value.V, error) {
	switch callee.Kind() {
	case value.KindClosure:
		return vm.callClosureNamed(ctx, callee.Closure(), pos, named, retc)
	case value.KindGoFunctionNamed:
		result, err := callee.GoFunctionNamed()(pos, named, ctx)
		if err != nil {
			return nil, err
		}
		return []value.V{result}, nil
	case value.KindGoFunction:
		if len(named) != 0 {
			return nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "function does not accept named arguments"))
		}
		result, err := callee.GoFunction()(pos, ctx)
		if err != nil {
			return nil, err
		}
		return []value.V{result}, nil
	default:
		return nil, ctx.Raise(value.NewError(value.ErrType, "value of kind %s is not callable", callee.Kind()))
	}
}
