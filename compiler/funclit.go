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

package compiler

import (
	"github.com/lkrlang/lkr/ast"
	"github.com/lkrlang/lkr/value"
)

// emitFuncLit compiles a nested function literal into a value.ClosureProto
// appended to the enclosing function's Protos table, then emits MakeClosure
// to instantiate it at the current point (spec §3.3, §4.1.1). Captures are
// discovered lazily as the body resolves free names against the parent
// Scope chain (see Scope.resolve / FuncScope.captureIndex).
func (c *Compiler) emitFuncLit(e *ast.Expr) (uint16, error) {
	inner := newFunctionScope(c.scope)
	ic := &Compiler{scope: inner, name: "<closure>", loc: e.Location}

	if e.SelfName != "" {
		// The self-reference binds to a reserved capture-free local; the VM
		// patches it to the closure's own value.ClosureValue at call time
		// (spec §3.3's named self-recursion without a separate Y-combinator).
		selfReg := ic.fn().allocReg()
		inner.declare(e.SelfName, selfReg, true)
	}

	paramRegs := make([]uint16, len(e.Params))
	for i, p := range e.Params {
		r := ic.fn().allocReg()
		paramRegs[i] = r
		inner.declare(p, r, false)
	}

	var namedDecls []value.NamedParamDecl
	var defaultFuncs []*value.Function
	namedRegs := make([]uint16, len(e.NamedParams))
	nameKidx := make([]uint16, len(e.NamedParams))
	for i, np := range e.NamedParams {
		r := ic.fn().allocReg()
		namedRegs[i] = r
		inner.declare(np.Name, r, false)
		nameKidx[i] = ic.fn().consts.Intern(value.NewStr(np.Name))
		hasDefault := np.Default != nil
		namedDecls = append(namedDecls, value.NamedParamDecl{Name: np.Name, HasDefault: hasDefault})
		if hasDefault {
			thunk, err := compileDefaultThunk(inner, np.Default)
			if err != nil {
				return 0, err
			}
			defaultFuncs = append(defaultFuncs, thunk)
		}
	}

	if err := ic.emitStmt(e.Body); err != nil {
		return 0, err
	}
	ic.code = append(ic.code, value.OpRetOf(0, 0))

	body := ic.build()
	body.ParamRegs = paramRegs
	body.NamedParamRegs = namedRegs

	var layout []value.NamedParamLayoutEntry
	defaultIdx := uint16(0)
	for i, np := range e.NamedParams {
		entry := value.NamedParamLayoutEntry{
			NameConstIdx: nameKidx[i],
			DestReg:      namedRegs[i],
		}
		if np.Default != nil {
			idx := defaultIdx
			entry.DefaultIndex = &idx
			defaultIdx++
		}
		layout = append(layout, entry)
	}
	body.NamedParamLayout = layout

	var selfName *string
	if e.SelfName != "" {
		selfName = &e.SelfName
	}

	proto := value.ClosureProto{
		SelfName:     selfName,
		Params:       e.Params,
		NamedParams:  namedDecls,
		DefaultFuncs: defaultFuncs,
		Body:         body,
		Captures:     inner.fn.captures,
		Location:     e.Location,
	}
	protoIdx := uint16(len(c.fn().protos))
	c.fn().protos = append(c.fn().protos, proto)

	dst := c.fn().allocReg()
	c.emit(value.OpMakeClosureOf(dst, protoIdx))
	return dst, nil
}

// compileDefaultThunk compiles a named parameter's default-value expression
// as a standalone zero-argument Function, called lazily only when the
// caller omitted that argument (spec §4.3.2). It shares the enclosing
// Scope so a default expression may reference earlier parameters.
func compileDefaultThunk(enclosing *Scope, expr *ast.Expr) (*value.Function, error) {
	inner := newFunctionScope(enclosing)
	tc := &Compiler{scope: inner, name: "<default>", loc: expr.Location}
	reg, err := tc.emitExpr(expr)
	if err != nil {
		return nil, err
	}
	tc.emit(value.OpRetOf(reg, 1))
	return tc.build(), nil
}
