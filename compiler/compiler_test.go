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
	"testing"

	"github.com/lkrlang/lkr/ast"
	"github.com/lkrlang/lkr/value"
)

func lit(v value.V) *ast.Expr { return &ast.Expr{Kind: ast.ExprLiteral, Literal: v} }

func TestCompileConstantFoldedBinary(t *testing.T) {
	prog := []ast.Stmt{
		{Kind: ast.StmtReturn, Expr: &ast.Expr{
			Kind: ast.ExprBinary, Op: "+", Left: lit(value.NewInt(2)), Right: lit(value.NewInt(3)),
		}},
	}
	fn, err := CompileProgram(prog, "main", "test")
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	foundLoadK := false
	for _, op := range fn.Code {
		if op.Code == value.OpLoadK && value.Equal(fn.Consts[op.B], value.NewInt(5)) {
			foundLoadK = true
		}
		if op.Code == value.OpAdd || op.Code == value.OpAddInt {
			t.Fatalf("expected constant folding to eliminate the add instruction, got %v", op)
		}
	}
	if !foundLoadK {
		t.Fatalf("expected a LoadK of the folded constant 5 in %v", fn.Code)
	}
}

func TestCompileLetAndIdentLookup(t *testing.T) {
	prog := []ast.Stmt{
		{Kind: ast.StmtLet, Name: "x", Value: lit(value.NewInt(41))},
		{Kind: ast.StmtReturn, Expr: &ast.Expr{
			Kind: ast.ExprBinary, Op: "+", Left: &ast.Expr{Kind: ast.ExprIdent, Name: "x"}, Right: lit(value.NewInt(1)),
		}},
	}
	fn, err := CompileProgram(prog, "main", "test")
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	if len(fn.Code) == 0 {
		t.Fatalf("expected non-empty bytecode")
	}
}

func TestCompileIfElse(t *testing.T) {
	prog := []ast.Stmt{
		{Kind: ast.StmtIf,
			Cond: &ast.Expr{Kind: ast.ExprBinary, Op: "<", Left: lit(value.NewInt(1)), Right: &ast.Expr{Kind: ast.ExprIdent, Name: "unbound"}},
			Then: &ast.Stmt{Kind: ast.StmtReturn, Expr: lit(value.NewInt(1))},
			Else: &ast.Stmt{Kind: ast.StmtReturn, Expr: lit(value.NewInt(2))},
		},
	}
	fn, err := CompileProgram(prog, "main", "test")
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	sawJmpFalse, sawJmp := false, false
	for _, op := range fn.Code {
		if op.Code == value.OpJmpFalse {
			sawJmpFalse = true
		}
		if op.Code == value.OpJmp {
			sawJmp = true
		}
	}
	if !sawJmpFalse || !sawJmp {
		t.Fatalf("expected both a JmpFalse and a Jmp for if/else, got %v", fn.Code)
	}
}

func TestCompileWhileBreak(t *testing.T) {
	prog := []ast.Stmt{
		{Kind: ast.StmtWhile,
			Cond: lit(value.NewBool(true)),
			Body: &ast.Stmt{Kind: ast.StmtBlock, Stmts: []ast.Stmt{
				{Kind: ast.StmtBreak},
			}},
		},
	}
	fn, err := CompileProgram(prog, "main", "test")
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	for _, op := range fn.Code {
		if op.Code == value.OpBreak && op.Ofs == 0 {
			t.Fatalf("break fixup left unpatched: %v", fn.Code)
		}
	}
}

func TestCompileBreakOutsideLoopErrors(t *testing.T) {
	prog := []ast.Stmt{{Kind: ast.StmtBreak}}
	if _, err := CompileProgram(prog, "main", "test"); err == nil {
		t.Fatalf("expected an error compiling break outside a loop")
	}
}

func TestCompileLetPattern(t *testing.T) {
	prog := []ast.Stmt{
		{Kind: ast.StmtLetPattern,
			Pattern: &ast.Pattern{Kind: ast.PatternVar, Name: "x"},
			Value:   lit(value.NewInt(7)),
		},
		{Kind: ast.StmtReturn, Expr: &ast.Expr{Kind: ast.ExprIdent, Name: "x"}},
	}
	fn, err := CompileProgram(prog, "main", "test")
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	foundPatternOp := false
	for _, op := range fn.Code {
		if op.Code == value.OpPatternMatchOrFail {
			foundPatternOp = true
		}
	}
	if !foundPatternOp {
		t.Fatalf("expected a PatternMatchOrFail instruction, got %v", fn.Code)
	}
	if len(fn.PatternPlans) != 1 {
		t.Fatalf("expected one registered pattern plan, got %d", len(fn.PatternPlans))
	}
}

func TestCompileFuncLitWithCapture(t *testing.T) {
	outer := []ast.Stmt{
		{Kind: ast.StmtLet, Name: "n", Value: lit(value.NewInt(10))},
		{Kind: ast.StmtReturn, Expr: &ast.Expr{
			Kind: ast.ExprFuncLit,
			Body: &ast.Stmt{Kind: ast.StmtReturn, Expr: &ast.Expr{Kind: ast.ExprIdent, Name: "n"}},
		}},
	}
	fn, err := CompileProgram(outer, "main", "test")
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	if len(fn.Protos) != 1 {
		t.Fatalf("expected one closure prototype, got %d", len(fn.Protos))
	}
	if len(fn.Protos[0].Captures) != 1 {
		t.Fatalf("expected the inner function to capture n, got %d captures", len(fn.Protos[0].Captures))
	}
	if fn.Protos[0].Captures[0].Name != "n" {
		t.Fatalf("expected capture of n, got %q", fn.Protos[0].Captures[0].Name)
	}
}

func TestCompileNamedParamsWithDefault(t *testing.T) {
	fl := &ast.Expr{
		Kind: ast.ExprFuncLit,
		NamedParams: []ast.NamedParamExpr{
			{Name: "scale", Default: lit(value.NewInt(1))},
		},
		Body: &ast.Stmt{Kind: ast.StmtReturn, Expr: &ast.Expr{Kind: ast.ExprIdent, Name: "scale"}},
	}
	prog := []ast.Stmt{{Kind: ast.StmtReturn, Expr: fl}}
	fn, err := CompileProgram(prog, "main", "test")
	if err != nil {
		t.Fatalf("CompileProgram: %v", err)
	}
	if len(fn.Protos) != 1 {
		t.Fatalf("expected one closure prototype")
	}
	proto := fn.Protos[0]
	if len(proto.NamedParams) != 1 || !proto.NamedParams[0].HasDefault {
		t.Fatalf("expected one named param with a default, got %+v", proto.NamedParams)
	}
	if len(proto.DefaultFuncs) != 1 {
		t.Fatalf("expected one compiled default thunk")
	}
	if len(proto.Body.NamedParamLayout) != 1 || proto.Body.NamedParamLayout[0].DefaultIndex == nil {
		t.Fatalf("expected the named param layout entry to reference the default thunk")
	}
}
