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

package main

import (
	"github.com/lkrlang/lkr/ast"
	"github.com/lkrlang/lkr/value"
)

// demoProgram is one named entry of the gallery: a human-readable one-liner
// plus a builder for its ast.Stmt tree (rebuilt fresh per run/lower command
// since CompileProgram doesn't mutate its input, but a fresh tree keeps each
// invocation independent all the same).
type demoProgram struct {
	doc   string
	stmts func() []ast.Stmt
}

func lit(v value.V) *ast.Expr { return &ast.Expr{Kind: ast.ExprLiteral, Literal: v} }
func ident(name string) *ast.Expr { return &ast.Expr{Kind: ast.ExprIdent, Name: name} }
func binary(op string, l, r *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBinary, Op: op, Left: l, Right: r}
}

var gallery = map[string]demoProgram{
	"arithmetic": {
		doc:   "(2 + 3) * 4 - 1",
		stmts: arithmeticDemo,
	},
	"fib": {
		doc:   "recursive fibonacci(10) via a self-named closure",
		stmts: fibDemo,
	},
	"sumrange": {
		doc:   "sum of 1..10 via a for-range loop and assignment",
		stmts: sumRangeDemo,
	},
	"concurrency": {
		doc:   "spawn two tasks, await both, sum their results",
		stmts: concurrencyDemo,
	},
	"match": {
		doc:   "list destructuring via let [x, y] = [...] (PatternMatchOrFail — not AOT-lowerable)",
		stmts: matchDemo,
	},
}

func arithmeticDemo() []ast.Stmt {
	sum := binary("+", lit(value.NewInt(2)), lit(value.NewInt(3)))
	product := binary("*", sum, lit(value.NewInt(4)))
	result := binary("-", product, lit(value.NewInt(1)))
	return []ast.Stmt{
		{Kind: ast.StmtReturn, Expr: result},
	}
}

func fibDemo() []ast.Stmt {
	base := binary("<", ident("n"), lit(value.NewInt(2)))
	recurse := &ast.Expr{
		Kind: ast.ExprBinary, Op: "+",
		Left: &ast.Expr{
			Kind:   ast.ExprCall,
			Callee: ident("fib"),
			Args:   []ast.Expr{*binary("-", ident("n"), lit(value.NewInt(1)))},
		},
		Right: &ast.Expr{
			Kind:   ast.ExprCall,
			Callee: ident("fib"),
			Args:   []ast.Expr{*binary("-", ident("n"), lit(value.NewInt(2)))},
		},
	}
	body := &ast.Stmt{Kind: ast.StmtBlock, Stmts: []ast.Stmt{
		{
			Kind: ast.StmtIf,
			Cond: base,
			Then: &ast.Stmt{Kind: ast.StmtReturn, Expr: ident("n")},
			Else: &ast.Stmt{Kind: ast.StmtReturn, Expr: recurse},
		},
	}}
	fibLit := &ast.Expr{Kind: ast.ExprFuncLit, SelfName: "fib", Params: []string{"n"}, Body: body}
	return []ast.Stmt{
		{Kind: ast.StmtLet, Name: "fib", Value: fibLit},
		{Kind: ast.StmtReturn, Expr: &ast.Expr{
			Kind:   ast.ExprCall,
			Callee: ident("fib"),
			Args:   []ast.Expr{*lit(value.NewInt(10))},
		}},
	}
}

func sumRangeDemo() []ast.Stmt {
	loopBody := &ast.Stmt{Kind: ast.StmtBlock, Stmts: []ast.Stmt{
		{Kind: ast.StmtAssign, Target: ident("sum"), Expr: binary("+", ident("sum"), ident("i"))},
	}}
	return []ast.Stmt{
		{Kind: ast.StmtLet, Name: "sum", Value: lit(value.NewInt(0))},
		{
			Kind:      ast.StmtForRange,
			IterVar:   "i",
			RangeLow:  lit(value.NewInt(1)),
			RangeHigh: lit(value.NewInt(10)),
			Inclusive: true,
			Body:      loopBody,
		},
		{Kind: ast.StmtReturn, Expr: ident("sum")},
	}
}

func concurrencyDemo() []ast.Stmt {
	spawnConst := func(n int64) *ast.Expr {
		return &ast.Expr{Kind: ast.ExprSpawn, Inner: &ast.Expr{
			Kind: ast.ExprFuncLit,
			Body: &ast.Stmt{Kind: ast.StmtReturn, Expr: lit(value.NewInt(n))},
		}}
	}
	await := func(name string) *ast.Expr {
		return &ast.Expr{Kind: ast.ExprAwait, Inner: ident(name)}
	}
	return []ast.Stmt{
		{Kind: ast.StmtLet, Name: "a", Value: spawnConst(21)},
		{Kind: ast.StmtLet, Name: "b", Value: spawnConst(21)},
		{Kind: ast.StmtReturn, Expr: binary("+", await("a"), await("b"))},
	}
}

func matchDemo() []ast.Stmt {
	pattern := &ast.Pattern{
		Kind: ast.PatternList,
		Elems: []ast.Pattern{
			{Kind: ast.PatternVar, Name: "x"},
			{Kind: ast.PatternVar, Name: "y"},
		},
	}
	listLit := &ast.Expr{Kind: ast.ExprList, Elems: []ast.Expr{
		*lit(value.NewInt(10)),
		*lit(value.NewInt(20)),
	}}
	return []ast.Stmt{
		{Kind: ast.StmtLetPattern, Pattern: pattern, Value: listLit},
		{Kind: ast.StmtReturn, Expr: binary("+", ident("x"), ident("y"))},
	}
}
