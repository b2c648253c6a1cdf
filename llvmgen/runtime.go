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

package llvmgen

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/lkrlang/lkr/value"
	"github.com/lkrlang/lkr/vm"
)

// RuntimeABI is the Go-side implementation of the lkr_rt_* functions spec
// §4.5/§6.3 requires generated LLVM IR to call back into. Every exported
// method here corresponds to one extern "C" declaration codegen.go emits
// into the generated module; arguments and results are always tagged i64s
// (see abi.go), with raw pointer/length pairs used only where a helper needs
// to read a packed array out of the generated function's stack frame.
//
// Arithmetic, field access, indexing, membership and iteration all delegate
// to vm.Add/Access/Index/Contains/ToIter — the same interpreter logic the
// bytecode VM itself dispatches through — so the AOT path can
// never silently diverge from the interpreter's observable behavior.
type RuntimeABI struct {
	ctx     *value.VmContext
	handles *HandleTable
	vm      *vm.VM

	mu       sync.Mutex
	interned map[string]int64

	lastErr error
}

// NewRuntimeABI builds a fresh ABI instance bound to ctx. One RuntimeABI is
// meant to back one generated module invocation; its handle table and
// intern cache are not shared across unrelated compilations.
func NewRuntimeABI(ctx *value.VmContext) *RuntimeABI {
	return &RuntimeABI{
		ctx:      ctx,
		handles:  NewHandleTable(),
		vm:       vm.NewVM(),
		interned: make(map[string]int64),
	}
}

// Handles exposes the backing table, mainly so an embedding driver can
// Release handles between REPL evaluations of short-lived generated code.
func (r *RuntimeABI) Handles() *HandleTable { return r.handles }

// LastError returns the error, if any, set by the most recent helper call
// that failed. The ABI has no i64-native error channel (spec §6.3 defines
// none), so a failing helper returns llvmgen.NilValue and records the real
// error here for the embedding driver to check once the generated function
// returns — the driver is expected to poll LastError after every call that
// can fail script-level operations (lkr_rt_call, lkr_rt_add, ...).
func (r *RuntimeABI) LastError() error { return r.lastErr }

// ClearError resets LastError, for drivers that reuse one RuntimeABI across
// multiple independent generated-module invocations.
func (r *RuntimeABI) ClearError() { r.lastErr = nil }

func (r *RuntimeABI) fail(err error) int64 {
	r.lastErr = err
	return NilValue
}

func (r *RuntimeABI) decode(bits int64) (value.V, error) {
	return DecodeValue(bits, r.handles)
}

func (r *RuntimeABI) encode(v value.V) int64 {
	return EncodeValue(v, r.handles)
}

func readBytes(ptr, length int64) []byte {
	if length == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), int(length))
}

func readTagged(ptr, count int64) []int64 {
	if count == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(uintptr(ptr))), int(count))
}

// InternString implements lkr_rt_intern_string(ptr, length) -> handle. Equal
// byte contents always yield the same handle for the lifetime of this ABI,
// so generated code can compare interned string handles by identity for
// literal-vs-literal equality the way the interpreter compares Str values by
// content (spec §4.5: "string literals are interned once per module load").
func (r *RuntimeABI) InternString(ptr, length int64) int64 {
	s := string(readBytes(ptr, length))
	r.mu.Lock()
	if h, ok := r.interned[s]; ok {
		r.mu.Unlock()
		return h
	}
	r.mu.Unlock()

	h := EncodeHandle(r.handles.Alloc(value.NewStr(s)))
	r.mu.Lock()
	r.interned[s] = h
	r.mu.Unlock()
	return h
}

// ToString implements lkr_rt_to_string(v) -> handle to its rendered Str,
// via the same display logic the interpreter's ToStr opcode uses.
func (r *RuntimeABI) ToString(v int64) int64 {
	dv, err := r.decode(v)
	if err != nil {
		return r.fail(err)
	}
	return EncodeHandle(r.handles.Alloc(value.NewStr(vm.Display(dv))))
}

// LoadGlobal implements lkr_rt_load_global(namePtr, nameLen) -> tagged
// value, yielding NilValue for an unbound name (spec §3.4's resolver chain:
// local globals, then the module resolver, then builtins).
func (r *RuntimeABI) LoadGlobal(namePtr, nameLen int64) int64 {
	name := string(readBytes(namePtr, nameLen))
	v, ok := r.ctx.LoadGlobal(name)
	if !ok {
		return NilValue
	}
	return r.encode(v)
}

// DefineGlobal implements lkr_rt_define_global(namePtr, nameLen, value) ->
// value, defining name in the current VmContext's writable global frame.
func (r *RuntimeABI) DefineGlobal(namePtr, nameLen, val int64) int64 {
	dv, err := r.decode(val)
	if err != nil {
		return r.fail(err)
	}
	name := string(readBytes(namePtr, nameLen))
	r.ctx.DefineGlobal(name, dv)
	return val
}

// BuildList implements lkr_rt_build_list(basePtr, length) -> handle to a new
// List, where basePtr points to length packed tagged i64s (spec §4.5's
// BuildList/BuildListK opcodes' generated-code counterpart).
func (r *RuntimeABI) BuildList(basePtr, length int64) int64 {
	raw := readTagged(basePtr, length)
	items := make([]value.V, len(raw))
	for i, bits := range raw {
		dv, err := r.decode(bits)
		if err != nil {
			return r.fail(err)
		}
		items[i] = dv
	}
	return EncodeHandle(r.handles.Alloc(value.NewList(items)))
}

// BuildMap implements lkr_rt_build_map(basePtr, pairCount) -> handle to a
// new Map. basePtr points to 2*pairCount packed tagged i64s, alternating a
// string-handle key and its value (spec §4.5's BuildMap opcode).
func (r *RuntimeABI) BuildMap(basePtr, pairCount int64) int64 {
	raw := readTagged(basePtr, 2*pairCount)
	m := make(map[string]value.V, pairCount)
	for i := int64(0); i < pairCount; i++ {
		kv, err := r.decode(raw[2*i])
		if err != nil {
			return r.fail(err)
		}
		if !kv.IsStr() {
			return r.fail(fmt.Errorf("llvmgen: map key has kind %s, not Str", kv.Kind()))
		}
		vv, err := r.decode(raw[2*i+1])
		if err != nil {
			return r.fail(err)
		}
		m[kv.Str()] = vv
	}
	return EncodeHandle(r.handles.Alloc(value.NewMap(m)))
}

// Call implements lkr_rt_call(callee, argsBasePtr, argc) -> tagged result,
// dispatching through vm.VM.CallValue so a closure invoked from generated
// code runs under the exact same calling convention a Call opcode would use
// inside the interpreter (spec §4.5's "the LLVM path ... calls back into
// the interpreter for anything not lowered directly").
func (r *RuntimeABI) Call(callee, argsBasePtr, argc int64) int64 {
	cv, err := r.decode(callee)
	if err != nil {
		return r.fail(err)
	}
	if !cv.IsCallable() {
		return r.fail(fmt.Errorf("llvmgen: cannot call value of kind %s", cv.Kind()))
	}
	raw := readTagged(argsBasePtr, argc)
	args := make([]value.V, len(raw))
	for i, bits := range raw {
		av, err := r.decode(bits)
		if err != nil {
			return r.fail(err)
		}
		args[i] = av
	}
	result, err := r.vm.CallValue(r.ctx, cv, args)
	if err != nil {
		return r.fail(err)
	}
	return r.encode(result)
}

// Add implements lkr_rt_add(a, b) -> tagged result (generic AddAny opcode
// fallback when the fast int/float paths don't apply).
func (r *RuntimeABI) Add(a, b int64) int64 { return r.binop(a, b, vm.Add) }

// Sub implements lkr_rt_sub(a, b) -> tagged result.
func (r *RuntimeABI) Sub(a, b int64) int64 { return r.binop(a, b, vm.Sub) }

// Mul implements lkr_rt_mul(a, b) -> tagged result.
func (r *RuntimeABI) Mul(a, b int64) int64 { return r.binop(a, b, vm.Mul) }

// Div implements lkr_rt_div(a, b) -> tagged result.
func (r *RuntimeABI) Div(a, b int64) int64 { return r.binop(a, b, vm.Div) }

// Mod implements lkr_rt_mod(a, b) -> tagged result.
func (r *RuntimeABI) Mod(a, b int64) int64 { return r.binop(a, b, vm.Mod) }

func (r *RuntimeABI) binop(a, b int64, op func(*value.VmContext, value.V, value.V) (value.V, error)) int64 {
	av, err := r.decode(a)
	if err != nil {
		return r.fail(err)
	}
	bv, err := r.decode(b)
	if err != nil {
		return r.fail(err)
	}
	res, err := op(r.ctx, av, bv)
	if err != nil {
		return r.fail(err)
	}
	return r.encode(res)
}

// Access implements lkr_rt_access(base, fieldNameHandle) -> tagged result,
// for object/closure-capture field navigation (spec's Access/AccessK).
func (r *RuntimeABI) Access(base, fieldNameHandle int64) int64 {
	bv, err := r.decode(base)
	if err != nil {
		return r.fail(err)
	}
	fv, err := r.decode(fieldNameHandle)
	if err != nil {
		return r.fail(err)
	}
	if !fv.IsStr() {
		return r.fail(fmt.Errorf("llvmgen: field name has kind %s, not Str", fv.Kind()))
	}
	res, err := vm.Access(r.ctx, bv, fv.Str())
	if err != nil {
		return r.fail(err)
	}
	return r.encode(res)
}

// Index implements lkr_rt_index(base, idx) -> tagged result, for the
// dynamic int-or-string-key Index opcode.
func (r *RuntimeABI) Index(base, idx int64) int64 {
	bv, err := r.decode(base)
	if err != nil {
		return r.fail(err)
	}
	iv, err := r.decode(idx)
	if err != nil {
		return r.fail(err)
	}
	res, err := vm.Index(r.ctx, bv, iv)
	if err != nil {
		return r.fail(err)
	}
	return r.encode(res)
}

// In implements lkr_rt_in(needle, haystack) -> tagged Bool result.
func (r *RuntimeABI) In(needle, haystack int64) int64 {
	nv, err := r.decode(needle)
	if err != nil {
		return r.fail(err)
	}
	hv, err := r.decode(haystack)
	if err != nil {
		return r.fail(err)
	}
	res, err := vm.Contains(r.ctx, nv, hv)
	if err != nil {
		return r.fail(err)
	}
	return r.encode(res)
}

// Len implements lkr_rt_len(v) -> tagged small-int length, matching the
// interpreter's Len opcode's supported-kinds set (Str, List, Map).
func (r *RuntimeABI) Len(v int64) int64 {
	dv, err := r.decode(v)
	if err != nil {
		return r.fail(err)
	}
	n, ok := dv.Len()
	if !ok {
		return r.fail(fmt.Errorf("llvmgen: value of kind %s has no length", dv.Kind()))
	}
	return r.encode(value.NewInt(n))
}

// ListSlice implements lkr_rt_list_slice(src, start) -> handle to a new List
// holding src[start:], clamping start into [0, len(src)] the way the
// interpreter's ListSlice opcode does for its open-ended "rest" form.
func (r *RuntimeABI) ListSlice(src, start int64) int64 {
	sv, err := r.decode(src)
	if err != nil {
		return r.fail(err)
	}
	if !sv.IsList() {
		return r.fail(fmt.Errorf("llvmgen: list_slice on value of kind %s, not List", sv.Kind()))
	}
	iv, err := r.decode(start)
	if err != nil {
		return r.fail(err)
	}
	lst := sv.List()
	s := int(iv.Int())
	if s < 0 {
		s += len(lst)
	}
	if s < 0 {
		s = 0
	}
	if s > len(lst) {
		s = len(lst)
	}
	tail := append([]value.V{}, lst[s:]...)
	return EncodeHandle(r.handles.Alloc(value.NewList(tail)))
}

// Equal implements lkr_rt_equal(a, b) -> tagged Bool, backing CmpEq/CmpNe
// (spec's ABI enumeration lists no comparison helper explicitly; this and
// Compare are a pragmatic addition, since ordering needs the same dynamic
// per-kind dispatch Add does and the interpreter already exposes it as
// value.Equal/value.Compare).
func (r *RuntimeABI) Equal(a, b int64) int64 {
	av, err := r.decode(a)
	if err != nil {
		return r.fail(err)
	}
	bv, err := r.decode(b)
	if err != nil {
		return r.fail(err)
	}
	return r.encode(value.NewBool(value.Equal(av, bv)))
}

// Compare implements lkr_rt_compare(a, b) -> tagged small-int in {-1,0,1},
// backing CmpLt/CmpLe/CmpGt/CmpGe. Incomparable kinds fail the same way the
// interpreter's Cmp opcodes raise a type error.
func (r *RuntimeABI) Compare(a, b int64) int64 {
	av, err := r.decode(a)
	if err != nil {
		return r.fail(err)
	}
	bv, err := r.decode(b)
	if err != nil {
		return r.fail(err)
	}
	ord, err := value.Compare(av, bv)
	if err != nil {
		return r.fail(err)
	}
	return r.encode(value.NewInt(int64(ord)))
}

// Raise implements lkr_rt_raise(messageHandle) -> NilValue, always setting
// LastError (spec §4.2.5's Raise opcode: the message constant is user-
// authored text rendered straight into an ErrRuntimeProtocol error, matching
// the interpreter's treatment of an explicit `raise` statement).
func (r *RuntimeABI) Raise(messageHandle int64) int64 {
	dv, err := r.decode(messageHandle)
	if err != nil {
		return r.fail(err)
	}
	return r.fail(value.NewError(value.ErrRuntimeProtocol, "%s", vm.Display(dv)))
}

// ToIter implements lkr_rt_to_iter(v) -> handle to an Iterator, backing the
// ToIter opcode and for-range loop lowering.
func (r *RuntimeABI) ToIter(v int64) int64 {
	dv, err := r.decode(v)
	if err != nil {
		return r.fail(err)
	}
	it, err := vm.ToIter(dv)
	if err != nil {
		return r.fail(err)
	}
	return EncodeHandle(r.handles.Alloc(it))
}
