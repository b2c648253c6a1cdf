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

// Package compiler lowers a parsed ast.Expr/ast.Stmt tree into a compiled
// value.Function: free-variable capture analysis, scoped register
// allocation, constant folding, arithmetic flavor selection, named
// parameters and default thunks, and pattern plan emission (spec §4.1). No
// SSA lowering or escape analysis is run: Function.Analysis is never set.
package compiler

import "github.com/lkrlang/lkr/value"

// binding is one name visible in a Scope: its destination register and
// whether it was declared `const` (spec §7: "assignment to a const binding"
// is a binding error).
type binding struct {
	reg      uint16
	isConst  bool
}

// Scope is one lexical block's variable table, chained to its parent the
// way scm/scm.go's Env.FindRead/FindWrite walks Env.Outer — generalized
// here from a runtime environment chain to a compile-time name resolver
// that never holds values, only register assignments.
type Scope struct {
	parent *Scope
	vars   map[string]binding
	fn     *FuncScope // the enclosing function-level scope (register allocator owner)
}

// FuncScope owns the register allocator and free-variable set for one
// compiled Function. Nested closures get their own FuncScope linked to the
// parent via Scope.parent, so a name not found locally walks outward across
// function boundaries and becomes a capture instead of a local.
type FuncScope struct {
	parent    *FuncScope
	nextReg   uint16
	maxReg    uint16
	consts    *value.ConstPool
	protos    []value.ClosureProto
	patterns  []value.PatternPlan
	freeVars  map[string]uint16 // name -> capture index already recorded on this function
	captures  []value.CaptureSpec

	loopStack []*loopContext
}

// loopContext tracks the fixup sites for Break/Continue inside the loop
// currently being compiled (spec's Open Question: loops use an explicit
// context stack rather than unwinding by exception).
type loopContext struct {
	breakFixups    []int // indices into code needing their Ofs patched to loop end
	continueFixups []int // indices into code needing their Ofs patched to the loop's re-test (its ForRangeStep in a for-range loop)
}

func newFuncScope(parent *FuncScope) *FuncScope {
	return &FuncScope{
		parent:   parent,
		consts:   value.NewConstPool(),
		freeVars: make(map[string]uint16),
	}
}

// allocReg returns the next free register in this function.
func (f *FuncScope) allocReg() uint16 {
	r := f.nextReg
	f.nextReg++
	if f.nextReg > f.maxReg {
		f.maxReg = f.nextReg
	}
	return r
}

// allocRegs returns n consecutive fresh registers, for BuildList/BuildMap/
// Call argument staging which require a contiguous base..base+n window.
func (f *FuncScope) allocRegs(n int) uint16 {
	base := f.nextReg
	f.nextReg += uint16(n)
	if f.nextReg > f.maxReg {
		f.maxReg = f.nextReg
	}
	return base
}

// releaseTo resets the register cursor, freeing temporaries allocated after
// mark for reuse by sibling expressions (stack-discipline allocation,
// grounded on scm/jit.go's register-reuse comment in OptimizeForValues).
func (f *FuncScope) releaseTo(mark uint16) {
	f.nextReg = mark
}

func newScope(parent *Scope) *Scope {
	s := &Scope{parent: parent, vars: make(map[string]binding)}
	if parent != nil {
		s.fn = parent.fn
	}
	return s
}

func newFunctionScope(parent *Scope) *Scope {
	s := newScope(parent)
	var parentFn *FuncScope
	if parent != nil {
		parentFn = parent.fn
	}
	s.fn = newFuncScope(parentFn)
	return s
}

// declare introduces name in this scope, bound to reg.
func (s *Scope) declare(name string, reg uint16, isConst bool) {
	s.vars[name] = binding{reg: reg, isConst: isConst}
}

// resolveKind is the result of resolving a name: where it lives relative to
// the function currently being compiled.
type resolveKind uint8

const (
	resolveLocal resolveKind = iota
	resolveCapture
	resolveGlobal
)

type resolution struct {
	kind resolveKind
	reg  uint16 // resolveLocal: register; resolveCapture: capture index
	isConst bool
}

// resolve walks this scope and its lexical parents. If the name is found in
// an enclosing function's scope rather than the current one, it is recorded
// as a capture (spec §4.1.1) and a LoadCapture slot is reserved.
func (s *Scope) resolve(name string) (resolution, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			if cur.fn == s.fn {
				return resolution{kind: resolveLocal, reg: b.reg, isConst: b.isConst}, true
			}
			return resolution{kind: resolveCapture, reg: s.fn.captureIndex(name, cur, b)}, true
		}
	}
	return resolution{kind: resolveGlobal}, false
}

// captureIndex returns the stable capture-slot index for name on the
// current function, recording a Register CaptureSpec against the defining
// scope's register the first time name is captured (spec §3.3: "Register {
// name, src } — copy from a parent's register at MakeClosure").
func (f *FuncScope) captureIndex(name string, definedIn *Scope, b binding) uint16 {
	if idx, ok := f.freeVars[name]; ok {
		return idx
	}
	idx := uint16(len(f.captures))
	f.captures = append(f.captures, value.CaptureSpec{
		Kind: value.CaptureRegister,
		Name: name,
		Src:  b.reg,
	})
	f.freeVars[name] = idx
	return idx
}

// pushLoop starts tracking Break/Continue fixup sites for a new loop.
func (f *FuncScope) pushLoop() *loopContext {
	lc := &loopContext{}
	f.loopStack = append(f.loopStack, lc)
	return lc
}

func (f *FuncScope) popLoop() {
	f.loopStack = f.loopStack[:len(f.loopStack)-1]
}

func (f *FuncScope) currentLoop() *loopContext {
	if len(f.loopStack) == 0 {
		return nil
	}
	return f.loopStack[len(f.loopStack)-1]
}
