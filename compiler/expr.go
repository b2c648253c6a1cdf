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

// emitExpr lowers e and returns the register holding its result. Temporaries
// are allocated with stack discipline (FuncScope.allocReg / releaseTo): a
// caller that no longer needs sub-expression registers resets the cursor
// rather than tracking a free list, the same trick scm/jit.go's register
// allocator uses for straight-line expression trees.
func (c *Compiler) emitExpr(e *ast.Expr) (uint16, error) {
	switch e.Kind {
	case ast.ExprLiteral:
		dst := c.fn().allocReg()
		kidx := c.fn().consts.Intern(e.Literal)
		c.emit(value.OpLoadKOf(dst, kidx))
		return dst, nil

	case ast.ExprIdent:
		return c.emitIdent(e.Name)

	case ast.ExprBinary:
		return c.emitBinary(e)

	case ast.ExprUnary:
		return c.emitUnary(e)

	case ast.ExprTernary:
		return c.emitTernary(e)

	case ast.ExprNullishCoalesce:
		return c.emitNullishCoalesce(e)

	case ast.ExprAccess:
		base, err := c.emitExpr(e.Base)
		if err != nil {
			return 0, err
		}
		dst := c.fn().allocReg()
		kidx := c.fn().consts.Intern(value.NewStr(e.Name))
		c.emit(value.OpAccessKOf(dst, base, kidx))
		return dst, nil

	case ast.ExprIndex:
		base, err := c.emitExpr(e.Base)
		if err != nil {
			return 0, err
		}
		if e.Index.Kind == ast.ExprLiteral && e.Index.Literal.Kind() == value.KindStr {
			dst := c.fn().allocReg()
			kidx := c.fn().consts.Intern(e.Index.Literal)
			c.emit(value.OpIndexKOf(dst, base, kidx))
			return dst, nil
		}
		idx, err := c.emitExpr(e.Index)
		if err != nil {
			return 0, err
		}
		dst := c.fn().allocReg()
		c.emit(value.OpIndexOf(dst, base, idx))
		return dst, nil

	case ast.ExprCall:
		return c.emitCall(e)

	case ast.ExprNamedCall:
		return c.emitNamedCall(e)

	case ast.ExprList:
		return c.emitListLit(e)

	case ast.ExprMap:
		return c.emitMapLit(e)

	case ast.ExprFuncLit:
		return c.emitFuncLit(e)

	case ast.ExprMatch:
		return c.emitMatch(e)

	case ast.ExprSpawn:
		return c.emitIntrinsicCall1("spawn", e.Inner)

	case ast.ExprAwait:
		return c.emitIntrinsicCall1("await", e.Inner)
	}
	return 0, fmt.Errorf("compiler: unhandled expression kind %d", e.Kind)
}

func (c *Compiler) emitIdent(name string) (uint16, error) {
	res, found := c.scope.resolve(name)
	if !found {
		dst := c.fn().allocReg()
		kidx := c.fn().consts.Intern(value.NewStr(name))
		c.emit(value.OpLoadGlobalOf(dst, kidx))
		return dst, nil
	}
	switch res.kind {
	case resolveLocal:
		return res.reg, nil
	case resolveCapture:
		dst := c.fn().allocReg()
		c.emit(value.OpLoadCaptureOf(dst, res.reg))
		return dst, nil
	default:
		dst := c.fn().allocReg()
		kidx := c.fn().consts.Intern(value.NewStr(name))
		c.emit(value.OpLoadGlobalOf(dst, kidx))
		return dst, nil
	}
}

// staticLiteralKind reports the statically-known Kind of e when e is itself
// a literal, letting the caller pick a specialized arithmetic opcode without
// a full type system (spec §4.1.4).
func staticLiteralKind(e *ast.Expr) (value.Kind, bool) {
	if e.Kind == ast.ExprLiteral {
		return e.Literal.Kind(), true
	}
	return 0, false
}

func (c *Compiler) emitBinary(e *ast.Expr) (uint16, error) {
	if e.Op == "&&" {
		return c.emitShortCircuit(e, true)
	}
	if e.Op == "||" {
		return c.emitShortCircuit(e, false)
	}

	if e.Left.Kind == ast.ExprLiteral && e.Right.Kind == ast.ExprLiteral {
		if folded, ok := foldConst(e.Op, e.Left.Literal, e.Right.Literal); ok {
			dst := c.fn().allocReg()
			kidx := c.fn().consts.Intern(folded)
			c.emit(value.OpLoadKOf(dst, kidx))
			return dst, nil
		}
	}

	lhs, err := c.emitExpr(e.Left)
	if err != nil {
		return 0, err
	}
	rhs, err := c.emitExpr(e.Right)
	if err != nil {
		return 0, err
	}
	dst := c.fn().allocReg()

	lk, lok := staticLiteralKind(e.Left)
	rk, rok := staticLiteralKind(e.Right)
	flavor := pickFlavor(lk, rk, lok, rok)

	switch e.Op {
	case "+":
		c.emit(addOpFor(flavor)(dst, lhs, rhs))
	case "-":
		c.emit(subOpFor(flavor)(dst, lhs, rhs))
	case "*":
		c.emit(mulOpFor(flavor)(dst, lhs, rhs))
	case "/":
		if flavor == flavorInt {
			c.emit(value.OpDivOf(dst, lhs, rhs)) // Int division still traps on zero at runtime
		} else {
			c.emit(value.OpDivFloatOf(dst, lhs, rhs))
		}
	case "%":
		switch flavor {
		case flavorFloat:
			c.emit(value.OpModFloatOf(dst, lhs, rhs))
		case flavorInt:
			c.emit(value.OpModIntOf(dst, lhs, rhs))
		default:
			c.emit(value.OpModOf(dst, lhs, rhs))
		}
	case "==":
		c.emit(value.OpCmpEqOf(dst, lhs, rhs))
	case "!=":
		c.emit(value.OpCmpNeOf(dst, lhs, rhs))
	case "<":
		c.emit(value.OpCmpLtOf(dst, lhs, rhs))
	case "<=":
		c.emit(value.OpCmpLeOf(dst, lhs, rhs))
	case ">":
		c.emit(value.OpCmpGtOf(dst, lhs, rhs))
	case ">=":
		c.emit(value.OpCmpGeOf(dst, lhs, rhs))
	case "in":
		c.emit(value.OpInOf(dst, lhs, rhs))
	default:
		return 0, fmt.Errorf("compiler: unknown binary operator %q", e.Op)
	}
	return dst, nil
}

type opOf func(dst, a, b uint16) value.Op

func addOpFor(f arithFlavor) opOf {
	switch f {
	case flavorInt:
		return value.OpAddIntOf
	case flavorFloat:
		return value.OpAddFloatOf
	default:
		return value.OpAddOf
	}
}
func subOpFor(f arithFlavor) opOf {
	switch f {
	case flavorInt:
		return value.OpSubIntOf
	case flavorFloat:
		return value.OpSubFloatOf
	default:
		return value.OpSubOf
	}
}
func mulOpFor(f arithFlavor) opOf {
	switch f {
	case flavorInt:
		return value.OpMulIntOf
	case flavorFloat:
		return value.OpMulFloatOf
	default:
		return value.OpMulOf
	}
}

// emitShortCircuit lowers && / || using JmpFalseSet / JmpTrueSet, which
// evaluate their right-hand side only when the left side didn't already
// decide the result (spec §4.2.4's fused branch-and-set shape).
func (c *Compiler) emitShortCircuit(e *ast.Expr, isAnd bool) (uint16, error) {
	lhs, err := c.emitExpr(e.Left)
	if err != nil {
		return 0, err
	}
	dst := c.fn().allocReg()
	var fix int
	if isAnd {
		fix = c.emit(value.OpJmpFalseSetOf(lhs, dst, 0))
	} else {
		fix = c.emit(value.OpJmpTrueSetOf(lhs, dst, 0))
	}
	rhs, err := c.emitExpr(e.Right)
	if err != nil {
		return 0, err
	}
	c.emit(value.OpMoveOf(dst, rhs))
	c.patchToHere(fix)
	return dst, nil
}

func (c *Compiler) emitUnary(e *ast.Expr) (uint16, error) {
	src, err := c.emitExpr(e.Left)
	if err != nil {
		return 0, err
	}
	dst := c.fn().allocReg()
	switch e.Op {
	case "!":
		c.emit(value.OpNotOf(dst, src))
	case "-":
		zero := c.fn().allocReg()
		kidx := c.fn().consts.Intern(value.NewInt(0))
		c.emit(value.OpLoadKOf(zero, kidx))
		c.emit(value.OpSubOf(dst, zero, src))
	default:
		return 0, fmt.Errorf("compiler: unknown unary operator %q", e.Op)
	}
	return dst, nil
}

func (c *Compiler) emitTernary(e *ast.Expr) (uint16, error) {
	cond, err := c.emitExpr(e.Cond)
	if err != nil {
		return 0, err
	}
	dst := c.fn().allocReg()
	jf := c.emit(value.OpJmpFalseOf(cond, 0))
	thenReg, err := c.emitExpr(e.Then)
	if err != nil {
		return 0, err
	}
	c.emit(value.OpMoveOf(dst, thenReg))
	jend := c.emit(value.OpJmpOf(0))
	c.patchToHere(jf)
	elseReg, err := c.emitExpr(e.Else)
	if err != nil {
		return 0, err
	}
	c.emit(value.OpMoveOf(dst, elseReg))
	c.patchToHere(jend)
	return dst, nil
}

func (c *Compiler) emitNullishCoalesce(e *ast.Expr) (uint16, error) {
	lhs, err := c.emitExpr(e.Left)
	if err != nil {
		return 0, err
	}
	dst := c.fn().allocReg()
	fix := c.emit(value.OpNullishPickOf(lhs, dst, 0))
	rhs, err := c.emitExpr(e.Right)
	if err != nil {
		return 0, err
	}
	c.emit(value.OpMoveOf(dst, rhs))
	c.patchToHere(fix)
	return dst, nil
}

func (c *Compiler) emitCall(e *ast.Expr) (uint16, error) {
	callee, err := c.emitExpr(e.Callee)
	if err != nil {
		return 0, err
	}
	base := c.fn().allocRegs(len(e.Args))
	for i := range e.Args {
		reg, err := c.emitExpr(&e.Args[i])
		if err != nil {
			return 0, err
		}
		c.emit(value.OpMoveOf(base+uint16(i), reg))
	}
	dst := c.fn().allocReg()
	c.emit(value.OpCallOf(callee, base, uint8(len(e.Args)), 1))
	c.emit(value.OpMoveOf(dst, base))
	return dst, nil
}

// emitNamedCall lowers f(pos..., name: value, ...) (spec §4.3.3). Positional
// and named argument registers occupy two separate contiguous windows so the
// VM can validate/bind them independently of evaluation order.
func (c *Compiler) emitNamedCall(e *ast.Expr) (uint16, error) {
	callee, err := c.emitExpr(e.Callee)
	if err != nil {
		return 0, err
	}
	basePos := c.fn().allocRegs(len(e.Args))
	for i := range e.Args {
		reg, err := c.emitExpr(&e.Args[i])
		if err != nil {
			return 0, err
		}
		c.emit(value.OpMoveOf(basePos+uint16(i), reg))
	}
	baseNamed := c.fn().allocRegs(2 * len(e.NamedArgs))
	for i, na := range e.NamedArgs {
		nameK := c.fn().consts.Intern(value.NewStr(na.Name))
		nameReg := baseNamed + uint16(2*i)
		c.emit(value.OpLoadKOf(nameReg, nameK))
		reg, err := c.emitExpr(&na.Value)
		if err != nil {
			return 0, err
		}
		c.emit(value.OpMoveOf(nameReg+1, reg))
	}
	dst := c.fn().allocReg()
	c.emit(value.OpCallNamedOf(callee, basePos, uint8(len(e.Args)), baseNamed, uint8(len(e.NamedArgs)), 1))
	c.emit(value.OpMoveOf(dst, basePos))
	return dst, nil
}

func (c *Compiler) emitIntrinsicCall1(global string, inner *ast.Expr) (uint16, error) {
	fn, err := c.emitIdent(global)
	if err != nil {
		return 0, err
	}
	base := c.fn().allocRegs(1)
	arg, err := c.emitExpr(inner)
	if err != nil {
		return 0, err
	}
	c.emit(value.OpMoveOf(base, arg))
	dst := c.fn().allocReg()
	c.emit(value.OpCallOf(fn, base, 1, 1))
	c.emit(value.OpMoveOf(dst, base))
	return dst, nil
}

func (c *Compiler) emitListLit(e *ast.Expr) (uint16, error) {
	base := c.fn().allocRegs(len(e.Elems))
	for i := range e.Elems {
		reg, err := c.emitExpr(&e.Elems[i])
		if err != nil {
			return 0, err
		}
		c.emit(value.OpMoveOf(base+uint16(i), reg))
	}
	dst := c.fn().allocReg()
	c.emit(value.OpBuildListOf(dst, base, uint16(len(e.Elems))))
	return dst, nil
}

// emitMapLit lowers a {k: v, ...} literal. Each entry occupies two
// consecutive registers (key, value); BuildMap's length operand counts
// entries, not registers, so the VM reads base..base+2*length-1.
func (c *Compiler) emitMapLit(e *ast.Expr) (uint16, error) {
	base := c.fn().allocRegs(2 * len(e.Entries))
	for i, entry := range e.Entries {
		kreg, err := c.emitExpr(&entry.Key)
		if err != nil {
			return 0, err
		}
		c.emit(value.OpMoveOf(base+uint16(2*i), kreg))
		vreg, err := c.emitExpr(&entry.Value)
		if err != nil {
			return 0, err
		}
		c.emit(value.OpMoveOf(base+uint16(2*i)+1, vreg))
	}
	dst := c.fn().allocReg()
	c.emit(value.OpBuildMapOf(dst, base, uint16(len(e.Entries))))
	return dst, nil
}
