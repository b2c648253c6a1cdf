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
	"fmt"

	"github.com/lkrlang/lkr/ast"
	"github.com/lkrlang/lkr/value"
)

// Compiler lowers one function body (top-level program or a FuncLit) into a
// value.Function. Nested FuncLits recurse into a fresh Compiler sharing the
// parent's Scope chain, the way scm/scm.go's Eval recurses into a child Env
// for a lambda body — generalized here to compile time instead of eval time.
type Compiler struct {
	scope *Scope
	code  []value.Op
	name  string
	loc   string
}

// CompileProgram lowers a top-level statement list into the module's entry
// Function. name/location populate the Function's diagnostic fields (spec
// §6.4's call-stack frames).
func CompileProgram(stmts []ast.Stmt, name, location string) (*value.Function, error) {
	root := newFunctionScope(nil)
	c := &Compiler{scope: root, name: name, loc: location}
	for i := range stmts {
		if err := c.emitStmt(&stmts[i]); err != nil {
			return nil, err
		}
	}
	c.code = append(c.code, value.OpRetOf(0, 0))
	return c.build(), nil
}

func (c *Compiler) fn() *FuncScope { return c.scope.fn }

func (c *Compiler) build() *value.Function {
	f := &value.Function{
		Consts:       c.fn().consts.Values(),
		Code:         c.code,
		NRegs:        c.fn().maxReg,
		Protos:       c.fn().protos,
		PatternPlans: c.fn().patterns,
		Captures:     c.fn().captures,
		Name:         c.name,
		Location:     c.loc,
	}
	f.BuildCode32()
	return f
}

func (c *Compiler) emit(op value.Op) int {
	c.code = append(c.code, op)
	return len(c.code) - 1
}

// patchToHere rewrites the Ofs field of a previously emitted jump-family op so it
// lands on the instruction about to be emitted next (relative to the word
// following the jump, per spec §6.2).
func (c *Compiler) patchToHere(idx int) {
	target := int16(len(c.code) - idx - 1)
	op := c.code[idx]
	op.Ofs = target
	c.code[idx] = op
}

func (c *Compiler) patchBackTo(idx, target int) {
	op := c.code[idx]
	op.Ofs = int16(target - idx - 1)
	c.code[idx] = op
}

// ---- statements ----

func (c *Compiler) emitStmt(s *ast.Stmt) error {
	switch s.Kind {
	case ast.StmtExpr:
		mark := c.fn().nextReg
		if _, err := c.emitExpr(s.Expr); err != nil {
			return err
		}
		c.fn().releaseTo(mark)
		return nil

	case ast.StmtLet:
		mark := c.fn().nextReg
		reg, err := c.emitExpr(s.Value)
		if err != nil {
			return err
		}
		// Promote the value's register to a permanent binding slot so later
		// statements don't reclaim it as a temporary.
		dst := c.fn().allocReg()
		c.emit(value.OpMoveOf(dst, reg))
		c.fn().releaseTo(mark)
		if dst >= mark {
			c.fn().nextReg = dst + 1
		}
		c.scope.declare(s.Name, dst, s.Const)
		return nil

	case ast.StmtLetPattern:
		mark := c.fn().nextReg
		reg, err := c.emitExpr(s.Value)
		if err != nil {
			return err
		}
		bindings, err := c.emitPatternBindOrRaise(s.Pattern, reg)
		if err != nil {
			return err
		}
		for _, b := range bindings {
			c.scope.declare(b.Name, b.Reg, false)
		}
		c.fn().releaseTo(mark)
		for _, b := range bindings {
			if b.Reg >= c.fn().nextReg {
				c.fn().nextReg = b.Reg + 1
			}
		}
		return nil

	case ast.StmtAssign:
		return c.emitAssign(s.Target, s.Expr)

	case ast.StmtBlock:
		child := newScope(c.scope)
		saved := c.scope
		c.scope = child
		mark := c.fn().nextReg
		for i := range s.Stmts {
			if err := c.emitStmt(&s.Stmts[i]); err != nil {
				c.scope = saved
				return err
			}
		}
		c.fn().releaseTo(mark)
		c.scope = saved
		return nil

	case ast.StmtIf:
		return c.emitIf(s)

	case ast.StmtWhile:
		return c.emitWhile(s)

	case ast.StmtForRange:
		return c.emitForRange(s)

	case ast.StmtForIn:
		return c.emitForIn(s)

	case ast.StmtReturn:
		mark := c.fn().nextReg
		if s.Expr == nil {
			c.emit(value.OpRetOf(0, 0))
			return nil
		}
		reg, err := c.emitExpr(s.Expr)
		if err != nil {
			return err
		}
		c.emit(value.OpRetOf(reg, 1))
		c.fn().releaseTo(mark)
		return nil

	case ast.StmtBreak:
		lc := c.fn().currentLoop()
		if lc == nil {
			return fmt.Errorf("compiler: break outside of a loop")
		}
		idx := c.emit(value.OpBreakOf(0))
		lc.breakFixups = append(lc.breakFixups, idx)
		return nil

	case ast.StmtContinue:
		lc := c.fn().currentLoop()
		if lc == nil {
			return fmt.Errorf("compiler: continue outside of a loop")
		}
		idx := c.emit(value.OpContinueOf(0))
		lc.continueFixups = append(lc.continueFixups, idx)
		return nil

	case ast.StmtRaise:
		// OpRaise carries a constant-pool message index rather than a
		// register (spec's Raise opcode shape): a literal string message
		// interns directly, any other expression still evaluates (for its
		// side effects / to surface a compile-time type error upstream) and
		// raises under a fixed diagnostic message.
		mark := c.fn().nextReg
		if s.Expr.Kind == ast.ExprLiteral && s.Expr.Literal.Kind() == value.KindStr {
			kidx := c.fn().consts.Intern(s.Expr.Literal)
			c.emit(value.OpRaiseOf(kidx))
			return nil
		}
		if _, err := c.emitExpr(s.Expr); err != nil {
			return err
		}
		kidx := c.fn().consts.Intern(value.NewStr("raise"))
		c.emit(value.OpRaiseOf(kidx))
		c.fn().releaseTo(mark)
		return nil
	}
	return fmt.Errorf("compiler: unhandled statement kind %d", s.Kind)
}

func (c *Compiler) emitAssign(target *ast.Expr, rhs *ast.Expr) error {
	mark := c.fn().nextReg
	reg, err := c.emitExpr(rhs)
	if err != nil {
		return err
	}
	defer c.fn().releaseTo(mark)

	switch target.Kind {
	case ast.ExprIdent:
		res, found := c.scope.resolve(target.Name)
		if !found {
			kidx := c.fn().consts.Intern(value.NewStr(target.Name))
			c.emit(value.OpDefineGlobalOf(kidx, reg))
			return nil
		}
		if res.isConst {
			return fmt.Errorf("compiler: cannot assign to const binding %q", target.Name)
		}
		switch res.kind {
		case resolveLocal:
			c.emit(value.OpMoveOf(res.reg, reg))
			return nil
		case resolveGlobal:
			kidx := c.fn().consts.Intern(value.NewStr(target.Name))
			c.emit(value.OpDefineGlobalOf(kidx, reg))
			return nil
		default:
			return fmt.Errorf("compiler: cannot assign to captured binding %q; captures are by value", target.Name)
		}
	default:
		return fmt.Errorf("compiler: assignment target must be an identifier (containers are immutable; use a mutation guard)")
	}
}

func (c *Compiler) emitIf(s *ast.Stmt) error {
	mark := c.fn().nextReg
	cond, err := c.emitExpr(s.Cond)
	if err != nil {
		return err
	}
	jf := c.emit(value.OpJmpFalseOf(cond, 0))
	c.fn().releaseTo(mark)

	if err := c.emitStmt(s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		c.patchToHere(jf)
		return nil
	}
	jend := c.emit(value.OpJmpOf(0))
	c.patchToHere(jf)
	if err := c.emitStmt(s.Else); err != nil {
		return err
	}
	c.patchToHere(jend)
	return nil
}

func (c *Compiler) emitWhile(s *ast.Stmt) error {
	lc := c.fn().pushLoop()
	defer c.fn().popLoop()

	head := len(c.code)
	mark := c.fn().nextReg
	cond, err := c.emitExpr(s.Cond)
	if err != nil {
		return err
	}
	jf := c.emit(value.OpJmpFalseOf(cond, 0))
	c.fn().releaseTo(mark)

	if err := c.emitStmt(s.Body); err != nil {
		return err
	}
	back := c.emit(value.OpJmpOf(0))
	c.patchBackTo(back, head)
	c.patchToHere(jf)

	for _, idx := range lc.continueFixups {
		c.patchBackTo(idx, head)
	}
	for _, idx := range lc.breakFixups {
		c.patchToHere(idx)
	}
	return nil
}

// emitForRange lowers `for i in lo..hi [step s]` using the dedicated
// ForRangePrep/ForRangeLoop/ForRangeStep triad (spec §4.2.4).
func (c *Compiler) emitForRange(s *ast.Stmt) error {
	mark := c.fn().nextReg
	lo, err := c.emitExpr(s.RangeLow)
	if err != nil {
		return err
	}
	hi, err := c.emitExpr(s.RangeHigh)
	if err != nil {
		return err
	}
	explicit := s.RangeStep != nil
	var step uint16
	if explicit {
		step, err = c.emitExpr(s.RangeStep)
		if err != nil {
			return err
		}
	} else {
		step = c.fn().allocReg()
		kidx := c.fn().consts.Intern(value.NewInt(1))
		c.emit(value.OpLoadKOf(step, kidx))
	}
	idx := c.fn().allocReg()
	c.emit(value.OpMoveOf(idx, lo))
	c.emit(value.OpForRangePrepOf(idx, hi, step, s.Inclusive, explicit))

	lc := c.fn().pushLoop()
	defer c.fn().popLoop()

	child := newScope(c.scope)
	saved := c.scope
	c.scope = child
	itReg := c.fn().allocReg()
	c.emit(value.OpMoveOf(itReg, idx))
	child.declare(s.IterVar, itReg, false)

	head := len(c.code)
	loopCheck := c.emit(value.OpForRangeLoopOf(idx, hi, step, s.Inclusive, 0))
	c.emit(value.OpMoveOf(itReg, idx))

	if err := c.emitStmt(s.Body); err != nil {
		c.scope = saved
		return err
	}
	c.scope = saved

	backIdx := c.emit(value.OpForRangeStepOf(idx, step, 0))
	c.patchBackTo(backIdx, head)
	c.patchToHere(loopCheck)

	for _, fix := range lc.continueFixups {
		c.patchBackTo(fix, backIdx)
	}
	for _, fix := range lc.breakFixups {
		c.patchToHere(fix)
	}
	c.fn().releaseTo(mark)
	return nil
}

// emitForIn lowers `for x in collection` through ToIter plus a call to the
// engine-reserved "$next" global, which wraps the collection's
// value.Iterator (spec §4.2.4: ToIter "produces a value.Iterator either way"
// — no dedicated iterator-step opcode exists, so stepping is expressed as an
// ordinary two-return Call rather than a new instruction).
func (c *Compiler) emitForIn(s *ast.Stmt) error {
	mark := c.fn().nextReg
	coll, err := c.emitExpr(s.IterExpr)
	if err != nil {
		return err
	}
	iter := c.fn().allocReg()
	c.emit(value.OpToIterOf(iter, coll))

	lc := c.fn().pushLoop()
	defer c.fn().popLoop()

	head := len(c.code)
	base := c.fn().allocRegs(2)
	c.emit(value.OpMoveOf(base, iter))
	nextFn := c.fn().allocReg()
	nameK := c.fn().consts.Intern(value.NewStr("$next"))
	c.emit(value.OpLoadGlobalOf(nextFn, nameK))
	c.emit(value.OpCallOf(nextFn, base, 1, 2)) // base, base+1 = value, hasMore

	hasMore := base + 1
	jf := c.emit(value.OpJmpFalseOf(hasMore, 0))

	child := newScope(c.scope)
	saved := c.scope
	c.scope = child
	child.declare(s.IterVar, base, false)
	if err := c.emitStmt(s.Body); err != nil {
		c.scope = saved
		return err
	}
	c.scope = saved

	back := c.emit(value.OpJmpOf(0))
	c.patchBackTo(back, head)
	c.patchToHere(jf)

	for _, fix := range lc.continueFixups {
		c.patchBackTo(fix, back)
	}
	for _, fix := range lc.breakFixups {
		c.patchToHere(fix)
	}
	c.fn().releaseTo(mark)
	return nil
}
