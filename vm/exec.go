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

import "github.com/lkrlang/lkr/value"

// runFrame is the instruction-dispatch loop (spec §4.2, §6.2): a plain
// switch over the logical Op stream, grounded on scm/scm.go's Eval switch
// but operating on a flat register file instead of recursing through an AST.
// The packed code32 fast path (spec §6.2's "decode once, dispatch from an
// array of function pointers") is left to a follow-up optimization pass;
// this loop is the correctness baseline every opcode must agree with.
func (vm *VM) runFrame(ctx *value.VmContext, fr *frame, retc int) ([]value.V, error) {
	code := fr.fn.Code
	for {
		if fr.pc >= len(code) {
			return nil, nil
		}
		op := code[fr.pc]

		switch op.Code {
		case value.OpLoadK:
			fr.set(op.A, fr.fn.Consts[op.B])
			fr.pc++

		case value.OpMove:
			fr.set(op.A, fr.get(op.B))
			fr.pc++

		case value.OpNot:
			fr.set(op.A, value.NewBool(!fr.get(op.B).Truthy()))
			fr.pc++

		case value.OpToStr:
			fr.set(op.A, value.NewStr(displayString(fr.get(op.B))))
			fr.pc++

		case value.OpToBool:
			fr.set(op.A, value.NewBool(fr.get(op.B).Truthy()))
			fr.pc++

		case value.OpJmpIfNil:
			if fr.get(op.A).IsNil() {
				fr.pc += 1 + int(op.Ofs)
			} else {
				fr.pc++
			}

		case value.OpJmpIfNotNil:
			if !fr.get(op.A).IsNil() {
				fr.pc += 1 + int(op.Ofs)
			} else {
				fr.pc++
			}

		case value.OpNullishPick:
			l := fr.get(op.A)
			if !l.IsNil() {
				fr.set(op.B, l)
				fr.pc += 1 + int(op.Ofs)
			} else {
				fr.pc++
			}

		case value.OpJmpFalseSet:
			l := fr.get(op.A)
			if !l.Truthy() {
				fr.set(op.B, l)
				fr.pc += 1 + int(op.Ofs)
			} else {
				fr.pc++
			}

		case value.OpJmpTrueSet:
			l := fr.get(op.A)
			if l.Truthy() {
				fr.set(op.B, l)
				fr.pc += 1 + int(op.Ofs)
			} else {
				fr.pc++
			}

		case value.OpAdd:
			v, err := genericAdd(ctx, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpSub:
			v, err := genericSub(ctx, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpMul:
			v, err := genericMul(ctx, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpDiv:
			v, err := genericDiv(ctx, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpMod:
			v, err := genericMod(ctx, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpAddInt:
			fr.set(op.A, value.NewInt(fr.get(op.B).Int()+fr.get(op.C).Int()))
			fr.pc++

		case value.OpAddFloat:
			fr.set(op.A, value.NewFloat(asFloat(fr.get(op.B))+asFloat(fr.get(op.C))))
			fr.pc++

		case value.OpAddIntImm:
			fr.set(op.A, value.NewInt(fr.get(op.B).Int()+int64(op.Imm)))
			fr.pc++

		case value.OpSubInt:
			fr.set(op.A, value.NewInt(fr.get(op.B).Int()-fr.get(op.C).Int()))
			fr.pc++

		case value.OpSubFloat:
			fr.set(op.A, value.NewFloat(asFloat(fr.get(op.B))-asFloat(fr.get(op.C))))
			fr.pc++

		case value.OpMulInt:
			fr.set(op.A, value.NewInt(fr.get(op.B).Int()*fr.get(op.C).Int()))
			fr.pc++

		case value.OpMulFloat:
			fr.set(op.A, value.NewFloat(asFloat(fr.get(op.B))*asFloat(fr.get(op.C))))
			fr.pc++

		case value.OpDivFloat:
			fr.set(op.A, divFloat(fr.get(op.B), fr.get(op.C)))
			fr.pc++

		case value.OpModInt:
			b := fr.get(op.C).Int()
			if b == 0 {
				return nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "division by zero"))
			}
			fr.set(op.A, value.NewInt(fr.get(op.B).Int()%b))
			fr.pc++

		case value.OpModFloat:
			fr.set(op.A, modFloat(fr.get(op.B), fr.get(op.C)))
			fr.pc++

		case value.OpCmpEq, value.OpCmpNe, value.OpCmpLt, value.OpCmpLe, value.OpCmpGt, value.OpCmpGe:
			v, err := vm.execCmp(ctx, op.Code, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpCmpEqImm, value.OpCmpNeImm, value.OpCmpLtImm, value.OpCmpLeImm, value.OpCmpGtImm, value.OpCmpGeImm:
			v, err := vm.execCmp(ctx, immToPlainCmp(op.Code), fr.get(op.B), value.NewInt(int64(op.Imm)))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpIn:
			v, err := containsValue(ctx, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpLoadLocal:
			// LoadLocal/StoreLocal address the same register file as every
			// other op; they exist as a distinct mnemonic for persistent
			// locals that outlive a single straight-line expression, but the
			// frame model here keeps every local in fr.regs uniformly, so
			// executing them is identical to Move (spec §4.2.4).
			fr.set(op.A, fr.get(op.B))
			fr.pc++

		case value.OpStoreLocal:
			fr.set(op.A, fr.get(op.B))
			fr.pc++

		case value.OpLoadGlobal:
			name := fr.fn.Consts[op.B].Str()
			v, ok := ctx.LoadGlobal(name)
			if !ok {
				return nil, ctx.Raise(value.NewError(value.ErrBinding, "undefined global: %s", name))
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpDefineGlobal:
			name := fr.fn.Consts[op.A].Str()
			ctx.DefineGlobal(name, fr.get(op.B))
			fr.pc++

		case value.OpLoadCapture:
			fr.set(op.A, fr.captures[op.B])
			fr.pc++

		case value.OpAccess:
			v, err := accessField(ctx, fr.get(op.B), fr.get(op.C).Str())
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpAccessK:
			v, err := accessField(ctx, fr.get(op.B), fr.fn.Consts[op.C].Str())
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpIndexK:
			v, err := indexByKey(ctx, fr.get(op.B), fr.fn.Consts[op.C].Str())
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpLen:
			n, ok := fr.get(op.B).Len()
			if !ok {
				return nil, ctx.Raise(value.NewError(value.ErrType, "%s has no length", fr.get(op.B).Kind()))
			}
			fr.set(op.A, value.NewInt(n))
			fr.pc++

		case value.OpIndex:
			v, err := indexValue(ctx, fr.get(op.B), fr.get(op.C))
			if err != nil {
				return nil, err
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpPatternMatch:
			plan := &fr.fn.PatternPlans[op.C]
			matched, err := vm.runPatternPlan(ctx, plan, fr.get(op.B), fr)
			if err != nil {
				return nil, err
			}
			fr.set(op.A, value.NewBool(matched))
			fr.pc++

		case value.OpPatternMatchOrFail:
			plan := &fr.fn.PatternPlans[op.B]
			matched, err := vm.runPatternPlan(ctx, plan, fr.get(op.A), fr)
			if err != nil {
				return nil, err
			}
			if !matched {
				msg := patternFailMessage(fr, op)
				return nil, ctx.Raise(value.NewError(value.ErrPatternMatch, "%s", msg))
			}
			fr.pc++

		case value.OpRaise:
			return nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "%s", fr.fn.Consts[op.A].Str()))

		case value.OpToIter:
			v, err := toIter(fr.get(op.B))
			if err != nil {
				return nil, ctx.Raise(err.(*value.Error))
			}
			fr.set(op.A, v)
			fr.pc++

		case value.OpBuildList:
			length := int(op.C)
			items := make([]value.V, length)
			copy(items, fr.regs[op.B:int(op.B)+length])
			fr.set(op.A, value.NewList(items))
			fr.pc++

		case value.OpBuildMap:
			length := int(op.C)
			m := make(map[string]value.V, length)
			for i := 0; i < length; i++ {
				k := fr.get(op.B + uint16(2*i)).Str()
				v := fr.get(op.B + uint16(2*i) + 1)
				m[k] = v
			}
			fr.set(op.A, value.NewMap(m))
			fr.pc++

		case value.OpListSlice:
			lst := fr.get(op.B).List()
			start := int(fr.get(op.C).Int())
			if start < 0 {
				start += len(lst)
			}
			if start < 0 {
				start = 0
			}
			if start > len(lst) {
				start = len(lst)
			}
			tail := append([]value.V{}, lst[start:]...)
			fr.set(op.A, value.NewList(tail))
			fr.pc++

		case value.OpMakeClosure:
			cv, err := vm.makeClosure(ctx, fr, op.B)
			if err != nil {
				return nil, err
			}
			fr.set(op.A, value.NewClosure(cv))
			fr.pc++

		case value.OpJmp:
			fr.pc += 1 + int(op.Ofs)

		case value.OpJmpFalse:
			if !fr.get(op.A).Truthy() {
				fr.pc += 1 + int(op.Ofs)
			} else {
				fr.pc++
			}

		case value.OpCall:
			callee := fr.get(op.A)
			args := append([]value.V{}, fr.regs[op.B:int(op.B)+int(op.Argc)]...)
			results, err := vm.callValue(ctx, callee, args, int(op.Retc))
			if err != nil {
				return nil, err
			}
			writeResults(fr, op.B, int(op.Retc), results)
			fr.pc++

		case value.OpCallNamed:
			callee := fr.get(op.A)
			pos := append([]value.V{}, fr.regs[op.B:int(op.B)+int(op.Posc)]...)
			named := make([]value.NamedArg, op.Namedc)
			for i := 0; i < int(op.Namedc); i++ {
				nameReg := op.C + uint16(2*i)
				named[i] = value.NamedArg{Name: fr.get(nameReg).Str(), Value: fr.get(nameReg + 1)}
			}
			results, err := vm.callValueNamed(ctx, callee, pos, named, int(op.Retc))
			if err != nil {
				return nil, err
			}
			writeResults(fr, op.B, int(op.Retc), results)
			fr.pc++

		case value.OpRet:
			retn := int(op.Retc)
			out := make([]value.V, retn)
			for i := 0; i < retn; i++ {
				out[i] = fr.get(op.A + uint16(i))
			}
			return out, nil

		case value.OpForRangePrep:
			step := fr.get(op.C).Int()
			if step == 0 {
				return nil, ctx.Raise(value.NewError(value.ErrRuntimeProtocol, "For-range step cannot be zero"))
			}
			if !op.Explicit {
				lo := fr.get(op.A).Int()
				hi := fr.get(op.B).Int()
				if hi < lo {
					fr.set(op.C, value.NewInt(-step))
				}
			}
			fr.pc++

		case value.OpForRangeLoop:
			idx := fr.get(op.A).Int()
			lim := fr.get(op.B).Int()
			step := fr.get(op.C).Int()
			ok := forRangeContinues(idx, lim, step, op.Inclusive)
			if !ok {
				fr.pc += 1 + int(op.Ofs)
			} else {
				fr.pc++
			}

		case value.OpForRangeStep:
			fr.set(op.A, value.NewInt(fr.get(op.A).Int()+fr.get(op.B).Int()))
			fr.pc += 1 + int(op.Ofs)

		case value.OpBreak, value.OpContinue:
			// Both are fully resolved at compile time into plain jumps
			// (compiler/compiler.go patches Break to the loop's exit and
			// Continue to its re-test/step site), so at runtime they carry
			// no semantics of their own beyond an unconditional jump.
			fr.pc += 1 + int(op.Ofs)

		default:
			return nil, ctx.Raise(value.NewError(value.ErrCompile, "unimplemented opcode %s", op.Code))
		}
	}
}

func asFloat(v value.V) float64 {
	if v.Kind() == value.KindInt {
		return float64(v.Int())
	}
	return v.Float()
}

func forRangeContinues(idx, lim, step int64, inclusive bool) bool {
	if step > 0 {
		if inclusive {
			return idx <= lim
		}
		return idx < lim
	}
	if inclusive {
		return idx >= lim
	}
	return idx > lim
}

// writeResults lands a call's return values starting at base, matching the
// compiler's convention of overwriting the argument window in place
// (compiler/expr.go's emitCall/emitNamedCall). A native builtin can only
// produce one Go value, so a multi-return call site (retc>1) whose sole
// result is an exactly-sized List is spread across the window instead —
// the convention vm/builtins.go's "$next" relies on to report (value,
// hasMore) without a dedicated multi-return GoFunction shape.
func writeResults(fr *frame, base uint16, retc int, results []value.V) {
	if retc > 1 && len(results) == 1 && results[0].Kind() == value.KindList {
		items := results[0].List()
		if len(items) == retc {
			for i, v := range items {
				fr.set(base+uint16(i), v)
			}
			return
		}
	}
	for i := 0; i < retc; i++ {
		if i < len(results) {
			fr.set(base+uint16(i), results[i])
		} else {
			fr.set(base+uint16(i), value.Nil)
		}
	}
}

func patternFailMessage(fr *frame, op value.Op) string {
	if op.IsConst {
		return fr.fn.Consts[op.C].Str()
	}
	return fr.get(op.C).Str()
}

// makeClosure instantiates a ClosureProto into a runtime ClosureValue,
// resolving its captures against the enclosing frame (spec §3.3, §4.1.1).
func (vm *VM) makeClosure(ctx *value.VmContext, fr *frame, protoIdx uint16) (*value.ClosureValue, error) {
	proto := &fr.fn.Protos[protoIdx]
	caps, err := resolveCaptures(proto.Captures, fr, ctx)
	if err != nil {
		return nil, err
	}
	namedNames := make([]string, len(proto.NamedParams))
	for i, np := range proto.NamedParams {
		namedNames[i] = np.Name
	}
	name := proto.Body.Name
	if name == "" {
		name = "<closure>"
	}
	var selfName string
	if proto.SelfName != nil {
		selfName = *proto.SelfName
	}
	return &value.ClosureValue{
		Name:            name,
		Location:        proto.Location,
		ParamNames:      proto.Params,
		NamedParamNames: namedNames,
		DefaultThunks:   proto.DefaultFuncs,
		Captures:        caps,
		Body:            proto.Body,
		SelfName:        selfName,
	}, nil
}
