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

// lowerPattern resolves an ast.Pattern's PatternVar names to fresh registers
// in the current scope, producing the register-bound value.Pattern/bindings
// pair the VM's PatternMatch family of opcodes consumes (spec §3.5). It does
// not declare the bindings into c.scope — callers do that only after a
// successful match, since a failed alternative inside PatternOr must not
// leak names.
func (c *Compiler) lowerPattern(p *ast.Pattern) (value.Pattern, []value.PatternBinding, error) {
	switch p.Kind {
	case ast.PatternLiteral:
		return value.Pattern{Kind: value.PatternLiteral, Literal: p.Literal}, nil, nil

	case ast.PatternWildcard:
		return value.Pattern{Kind: value.PatternWildcard}, nil, nil

	case ast.PatternVar:
		reg := c.fn().allocReg()
		return value.Pattern{Kind: value.PatternVar}, []value.PatternBinding{{Name: p.Name, Reg: reg}}, nil

	case ast.PatternRange:
		return value.Pattern{Kind: value.PatternRange, Low: p.Low, High: p.High, Inclusive: p.Inclusive}, nil, nil

	case ast.PatternList:
		out := value.Pattern{Kind: value.PatternList}
		var bindings []value.PatternBinding
		for i := range p.Elems {
			sub, subBindings, err := c.lowerPattern(&p.Elems[i])
			if err != nil {
				return value.Pattern{}, nil, err
			}
			out.Elems = append(out.Elems, sub)
			bindings = append(bindings, subBindings...)
		}
		if p.HasRest {
			rest := p.Rest
			out.Rest = &rest
			reg := c.fn().allocReg()
			bindings = append(bindings, value.PatternBinding{Name: p.Rest, Reg: reg})
		}
		return out, bindings, nil

	case ast.PatternMap:
		out := value.Pattern{Kind: value.PatternMap}
		var bindings []value.PatternBinding
		for _, entry := range p.Entries {
			sub, subBindings, err := c.lowerPattern(&entry.Sub)
			if err != nil {
				return value.Pattern{}, nil, err
			}
			out.Entries = append(out.Entries, value.MapPatternEntry{Key: entry.Key, Sub: &sub})
			bindings = append(bindings, subBindings...)
		}
		if p.HasMapRest {
			rest := p.MapRest
			out.MapRest = &rest
			reg := c.fn().allocReg()
			bindings = append(bindings, value.PatternBinding{Name: p.MapRest, Reg: reg})
		}
		return out, bindings, nil

	case ast.PatternOr:
		out := value.Pattern{Kind: value.PatternOr}
		for i := range p.Alts {
			sub, _, err := c.lowerPattern(&p.Alts[i])
			if err != nil {
				return value.Pattern{}, nil, err
			}
			out.Alts = append(out.Alts, sub)
		}
		// PatternOr alternatives must bind no names (spec §3.5's "all
		// alternatives of an or-pattern must bind the same set of names" is
		// satisfied trivially by forbidding bindings inside them here).
		return out, nil, nil
	}
	return value.Pattern{}, nil, fmt.Errorf("compiler: unhandled pattern kind %d", p.Kind)
}

// registerPatternPlan interns plan into the current function's PatternPlans
// table and returns its index, deduplication is not attempted since plans
// are register-specific to the call site that produced them.
func (c *Compiler) registerPatternPlan(pat value.Pattern, bindings []value.PatternBinding) uint16 {
	idx := uint16(len(c.fn().patterns))
	c.fn().patterns = append(c.fn().patterns, value.PatternPlan{Pattern: pat, Bindings: bindings})
	return idx
}

// emitPatternBindOrRaise lowers `let pattern = value` (spec §3.5.1): on
// match failure it raises a pattern-match error rather than falling through,
// since there is no alternative arm to try.
func (c *Compiler) emitPatternBindOrRaise(p *ast.Pattern, srcReg uint16) ([]value.PatternBinding, error) {
	pat, bindings, err := c.lowerPattern(p)
	if err != nil {
		return nil, err
	}
	planIdx := c.registerPatternPlan(pat, bindings)
	errKidx := c.fn().consts.Intern(value.NewStr("pattern match failed in let binding"))
	c.emit(value.OpPatternMatchOrFailOf(srcReg, planIdx, errKidx, true))
	return bindings, nil
}

// emitMatch lowers a `match subject { arm... }` expression (spec §3.5) into
// a chain of PatternMatch probes: on failure, fall through to the next arm;
// on success, bind names into a child scope, evaluate an optional guard
// (falling through on a false guard too), then the arm body.
func (c *Compiler) emitMatch(e *ast.Expr) (uint16, error) {
	mark := c.fn().nextReg
	subject, err := c.emitExpr(e.Subject)
	if err != nil {
		return 0, err
	}
	dst := c.fn().allocReg()

	var endJumps []int
	var nextArmFixups []int

	for i := range e.Arms {
		arm := &e.Arms[i]
		for _, fix := range nextArmFixups {
			c.patchToHere(fix)
		}
		nextArmFixups = nil

		pat, bindings, err := c.lowerPattern(&arm.Pattern)
		if err != nil {
			return 0, err
		}
		planIdx := c.registerPatternPlan(pat, bindings)
		matched := c.fn().allocReg()
		c.emit(value.OpPatternMatchOf(matched, subject, planIdx))
		fail := c.emit(value.OpJmpFalseOf(matched, 0))
		nextArmFixups = append(nextArmFixups, fail)

		child := newScope(c.scope)
		saved := c.scope
		c.scope = child
		for _, b := range bindings {
			child.declare(b.Name, b.Reg, false)
		}

		if arm.Guard != nil {
			guardReg, err := c.emitExpr(arm.Guard)
			if err != nil {
				c.scope = saved
				return 0, err
			}
			gfail := c.emit(value.OpJmpFalseOf(guardReg, 0))
			nextArmFixups = append(nextArmFixups, gfail)
		}

		bodyReg, err := c.emitExpr(&arm.Body)
		if err != nil {
			c.scope = saved
			return 0, err
		}
		c.emit(value.OpMoveOf(dst, bodyReg))
		c.scope = saved
		endJumps = append(endJumps, c.emit(value.OpJmpOf(0)))
	}

	for _, fix := range nextArmFixups {
		c.patchToHere(fix)
	}
	// No arm matched: raise, matching spec §3.5's "match without a
	// wildcard/catch-all that fails to match every arm raises a pattern
	// match error" behavior.
	errKidx := c.fn().consts.Intern(value.NewStr("no match arm matched"))
	c.emit(value.OpRaiseOf(errKidx))

	for _, fix := range endJumps {
		c.patchToHere(fix)
	}
	c.fn().releaseTo(mark)
	if dst >= c.fn().nextReg {
		c.fn().nextReg = dst + 1
	}
	return dst, nil
}
