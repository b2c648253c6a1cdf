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

	"tinygo.org/x/go-llvm"

	"github.com/lkrlang/lkr/value"
)

// target resolves a jump offset relative to instruction index i to one of
// cc.labels, matching the interpreter's pc += ofs (spec §6.1's offsets are
// relative to the instruction after the jump, i.e. the usual "ofs=0 means
// fall through to the next instruction" convention).
func (cc *codegenContext) target(i int, ofs int16) llvm.BasicBlock {
	return cc.labels[i+1+int(ofs)]
}

// truthy tests whether v (a tagged i64) is anything but NilValue or
// BoolFalseLiteral — spec §3.1's "every value but Nil and false is truthy".
// Handles and Floats are always truthy, which the plain "!= false_literal
// && != nil_literal" bit test already gets right since neither sentinel
// pattern can alias a handle or a finite/NaN float bit pattern.
func (cc *codegenContext) truthy(v llvm.Value, label string) llvm.Value {
	notNil := cc.b.CreateICmp(llvm.IntNE, v, llvm.ConstInt(i64Type, uint64(NilValue), true), label+"_nn")
	notFalse := cc.b.CreateICmp(llvm.IntNE, v, llvm.ConstInt(i64Type, uint64(BoolFalseLiteral), true), label+"_nf")
	return cc.b.CreateAnd(notNil, notFalse, label)
}

func (cc *codegenContext) unsupported(i int, op value.Op) error {
	return &UnsupportedOpError{Func: cc.srcName, Index: i, Code: op.Code}
}

// emit lowers one logical instruction, appending IR to the current insert
// block (cc.labels[i], already selected by the caller). Most opcodes fall
// through to labels[i+1] automatically (codegen.go's blockHasTerminator
// check); only the control-flow opcodes below emit their own terminator.
func (cc *codegenContext) emit(i int, op value.Op, fn *value.Function) error {
	switch op.Code {
	case value.OpLoadK:
		v, err := cc.constValue(fn, op.B, fmt.Sprintf("k%d", op.B))
		if err != nil {
			return err
		}
		cc.store(op.A, v)

	case value.OpMove:
		cc.store(op.A, cc.load(op.B))

	case value.OpNot:
		t := cc.truthy(cc.load(op.B), "not_in")
		f := cc.b.CreateSelect(t,
			llvm.ConstInt(i64Type, uint64(BoolFalseLiteral), true),
			llvm.ConstInt(i64Type, uint64(BoolTrueLiteral), true), "not_out")
		cc.store(op.A, f)

	case value.OpToBool:
		t := cc.truthy(cc.load(op.B), "tobool_in")
		f := cc.b.CreateSelect(t,
			llvm.ConstInt(i64Type, uint64(BoolTrueLiteral), true),
			llvm.ConstInt(i64Type, uint64(BoolFalseLiteral), true), "tobool_out")
		cc.store(op.A, f)

	case value.OpToStr:
		cc.store(op.A, cc.callABI("lkr_rt_to_string", []llvm.Value{cc.load(op.B)}, "tostr"))

	case value.OpAdd, value.OpAddInt, value.OpAddFloat:
		cc.store(op.A, cc.callABI("lkr_rt_add", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "add"))
	case value.OpSub, value.OpSubInt, value.OpSubFloat:
		cc.store(op.A, cc.callABI("lkr_rt_sub", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "sub"))
	case value.OpMul, value.OpMulInt, value.OpMulFloat:
		cc.store(op.A, cc.callABI("lkr_rt_mul", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "mul"))
	case value.OpDiv, value.OpDivFloat:
		cc.store(op.A, cc.callABI("lkr_rt_div", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "div"))
	case value.OpMod, value.OpModInt, value.OpModFloat:
		cc.store(op.A, cc.callABI("lkr_rt_mod", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "mod"))

	case value.OpAddIntImm:
		imm, _ := EncodeSmallInt(int64(op.Imm))
		cc.store(op.A, cc.callABI("lkr_rt_add",
			[]llvm.Value{cc.load(op.B), llvm.ConstInt(i64Type, uint64(imm), true)}, "addimm"))

	case value.OpCmpEq:
		cc.store(op.A, cc.callABI("lkr_rt_equal", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "eq"))
	case value.OpCmpNe:
		eq := cc.callABI("lkr_rt_equal", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "eq")
		cc.store(op.A, cc.negateBool(eq))
	case value.OpCmpLt, value.OpCmpLe, value.OpCmpGt, value.OpCmpGe:
		if err := cc.emitOrderedCmp(op.Code, op.A, cc.load(op.B), cc.load(op.C)); err != nil {
			return err
		}
	case value.OpCmpEqImm, value.OpCmpNeImm, value.OpCmpLtImm, value.OpCmpLeImm, value.OpCmpGtImm, value.OpCmpGeImm:
		imm, ok := EncodeSmallInt(int64(op.Imm))
		if !ok {
			return fmt.Errorf("llvmgen: %s: comparison immediate %d out of small-int range", cc.srcName, op.Imm)
		}
		immVal := llvm.ConstInt(i64Type, uint64(imm), true)
		switch op.Code {
		case value.OpCmpEqImm:
			cc.store(op.A, cc.callABI("lkr_rt_equal", []llvm.Value{cc.load(op.B), immVal}, "eqimm"))
		case value.OpCmpNeImm:
			eq := cc.callABI("lkr_rt_equal", []llvm.Value{cc.load(op.B), immVal}, "eqimm")
			cc.store(op.A, cc.negateBool(eq))
		default:
			if err := cc.emitOrderedCmp(baseCmpOf(op.Code), op.A, cc.load(op.B), immVal); err != nil {
				return err
			}
		}

	case value.OpIn:
		cc.store(op.A, cc.callABI("lkr_rt_in", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "in"))

	case value.OpLoadLocal:
		cc.store(op.A, cc.load(op.B))
	case value.OpStoreLocal:
		cc.store(op.A, cc.load(op.B))

	case value.OpLoadGlobal:
		if op.B >= uint16(len(fn.Consts)) || !fn.Consts[op.B].IsStr() {
			return fmt.Errorf("llvmgen: %s: LoadGlobal name constant %d is not a string", cc.srcName, op.B)
		}
		name := fn.Consts[op.B].Str()
		g := cc.b.CreateGlobalStringPtr(name, fmt.Sprintf("g%d", op.B))
		n := llvm.ConstInt(i64Type, uint64(len(name)), false)
		cc.store(op.A, cc.callABI("lkr_rt_load_global", []llvm.Value{g, n}, "ldglobal"))
	case value.OpDefineGlobal:
		if op.A >= uint16(len(fn.Consts)) || !fn.Consts[op.A].IsStr() {
			return fmt.Errorf("llvmgen: %s: DefineGlobal name constant %d is not a string", cc.srcName, op.A)
		}
		name := fn.Consts[op.A].Str()
		g := cc.b.CreateGlobalStringPtr(name, fmt.Sprintf("g%d", op.A))
		n := llvm.ConstInt(i64Type, uint64(len(name)), false)
		cc.callABI("lkr_rt_define_global", []llvm.Value{g, n, cc.load(op.B)}, "defglobal")

	case value.OpAccess:
		cc.store(op.A, cc.callABI("lkr_rt_access", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "access"))
	case value.OpAccessK:
		k, err := cc.constValue(fn, op.C, fmt.Sprintf("k%d", op.C))
		if err != nil {
			return err
		}
		cc.store(op.A, cc.callABI("lkr_rt_access", []llvm.Value{cc.load(op.B), k}, "accessk"))
	case value.OpIndexK:
		k, err := cc.constValue(fn, op.C, fmt.Sprintf("k%d", op.C))
		if err != nil {
			return err
		}
		cc.store(op.A, cc.callABI("lkr_rt_index", []llvm.Value{cc.load(op.B), k}, "indexk"))
	case value.OpIndex:
		cc.store(op.A, cc.callABI("lkr_rt_index", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "index"))
	case value.OpLen:
		cc.store(op.A, cc.callABI("lkr_rt_len", []llvm.Value{cc.load(op.B)}, "len"))
	case value.OpListSlice:
		cc.store(op.A, cc.callABI("lkr_rt_list_slice", []llvm.Value{cc.load(op.B), cc.load(op.C)}, "listslice"))
	case value.OpToIter:
		cc.store(op.A, cc.callABI("lkr_rt_to_iter", []llvm.Value{cc.load(op.B)}, "toiter"))

	case value.OpBuildList:
		cc.emitBuildPacked(op.A, op.B, op.C, "lkr_rt_build_list", "buildlist")
	case value.OpBuildMap:
		cc.emitBuildPacked(op.A, op.B, 2*op.C, "lkr_rt_build_map", "buildmap")

	case value.OpJmp:
		cc.b.CreateBr(cc.target(i, op.Ofs))
	case value.OpJmpFalse:
		t := cc.truthy(cc.load(op.A), "jf")
		cc.b.CreateCondBr(t, cc.labels[i+1], cc.target(i, op.Ofs))
	case value.OpJmpIfNil:
		isNil := cc.b.CreateICmp(llvm.IntEQ, cc.load(op.A), llvm.ConstInt(i64Type, uint64(NilValue), true), "isnil")
		cc.b.CreateCondBr(isNil, cc.target(i, op.Ofs), cc.labels[i+1])
	case value.OpJmpIfNotNil:
		isNil := cc.b.CreateICmp(llvm.IntEQ, cc.load(op.A), llvm.ConstInt(i64Type, uint64(NilValue), true), "isnil")
		cc.b.CreateCondBr(isNil, cc.labels[i+1], cc.target(i, op.Ofs))
	case value.OpNullishPick:
		v := cc.load(op.A)
		isNil := cc.b.CreateICmp(llvm.IntEQ, v, llvm.ConstInt(i64Type, uint64(NilValue), true), "nullish_nil")
		taken := llvm.AddBasicBlock(cc.fn, fmt.Sprintf("nullish_taken_%d", i))
		cc.b.CreateCondBr(isNil, cc.labels[i+1], taken)
		cc.b.SetInsertPointAtEnd(taken)
		cc.store(op.B, v)
		cc.b.CreateBr(cc.target(i, op.Ofs))
	case value.OpJmpFalseSet:
		v := cc.load(op.A)
		t := cc.truthy(v, "jfs")
		taken := llvm.AddBasicBlock(cc.fn, fmt.Sprintf("jmpfalseset_%d", i))
		cc.b.CreateCondBr(t, cc.labels[i+1], taken)
		cc.b.SetInsertPointAtEnd(taken)
		cc.store(op.B, v)
		cc.b.CreateBr(cc.target(i, op.Ofs))
	case value.OpJmpTrueSet:
		v := cc.load(op.A)
		t := cc.truthy(v, "jts")
		taken := llvm.AddBasicBlock(cc.fn, fmt.Sprintf("jmptrueset_%d", i))
		cc.b.CreateCondBr(t, taken, cc.labels[i+1])
		cc.b.SetInsertPointAtEnd(taken)
		cc.store(op.B, v)
		cc.b.CreateBr(cc.target(i, op.Ofs))

	case value.OpCall:
		if err := cc.emitCall(op.A, op.B, op.Argc, op.Retc); err != nil {
			return err
		}
	case value.OpCallNamed:
		// Known gap: only the positional argument window (basePos..+Posc)
		// is forwarded to lkr_rt_call; the named-argument window
		// (baseNamed..+Namedc) is dropped. Exact for call sites compiled
		// with no named arguments (Namedc == 0); a call site that actually
		// passes named arguments diverges from the interpreter here and
		// should be left uncompiled by the embedding driver (spec's
		// compatibility surface does not require AOT parity for every
		// opcode, only for the ones this package does lower).
		if err := cc.emitCall(op.A, op.B, op.Posc, op.Retc); err != nil {
			return err
		}

	case value.OpRet:
		if op.Retc == 0 {
			cc.b.CreateRet(llvm.ConstInt(i64Type, uint64(NilValue), true))
		} else {
			cc.b.CreateRet(cc.load(op.A))
		}

	case value.OpRaise:
		k, err := cc.constValue(fn, op.A, fmt.Sprintf("k%d", op.A))
		if err != nil {
			return err
		}
		cc.callABI("lkr_rt_raise", []llvm.Value{k}, "raise")
		cc.b.CreateRet(llvm.ConstInt(i64Type, uint64(NilValue), true))

	case value.OpForRangePrep:
		// Bounds/step normalization happens once up front; ForRangeLoop
		// re-checks the guard every iteration (spec's split between "prep
		// once" and "loop re-entrant guard" mirrors a classic canonical
		// loop induction-variable lowering). Nothing to materialize yet
		// beyond what LoadLocal/Move already placed into idx/limit/step.

	case value.OpForRangeLoop:
		guard, err := cc.emitRangeGuard(op)
		if err != nil {
			return err
		}
		body := llvm.AddBasicBlock(cc.fn, fmt.Sprintf("forguard_cont_%d", i))
		cc.b.CreateCondBr(guard, body, cc.target(i, op.Ofs))
		cc.b.SetInsertPointAtEnd(body)
		stepIdx := matchingForRangeStep(fn, i)
		if stepIdx < 0 {
			return fmt.Errorf("llvmgen: %s: ForRangeLoop at %d has no matching ForRangeStep", cc.srcName, i)
		}
		cc.loops = append(cc.loops, loopLabels{breakTo: cc.target(i, op.Ofs), continueTo: cc.labels[stepIdx]})
		cc.b.CreateBr(cc.labels[i+1])

	case value.OpForRangeStep:
		next := llvm.AddBasicBlock(cc.fn, fmt.Sprintf("forstep_next_%d", i))
		cc.b.CreateBr(next)
		cc.b.SetInsertPointAtEnd(next)
		idx := cc.load(op.A)
		step := cc.load(op.B)
		sum := cc.callABI("lkr_rt_add", []llvm.Value{idx, step}, "forstep_sum")
		cc.store(op.A, sum)
		if n := len(cc.loops); n > 0 {
			cc.loops = cc.loops[:n-1]
		}
		cc.b.CreateBr(cc.target(i, op.Ofs))

	case value.OpBreak:
		if n := len(cc.loops); n > 0 {
			cc.b.CreateBr(cc.loops[n-1].breakTo)
		} else {
			cc.b.CreateBr(cc.target(i, op.Ofs))
		}
	case value.OpContinue:
		if n := len(cc.loops); n > 0 {
			cc.b.CreateBr(cc.loops[n-1].continueTo)
		} else {
			cc.b.CreateBr(cc.target(i, op.Ofs))
		}

	case value.OpLoadCapture, value.OpMakeClosure, value.OpPatternMatch, value.OpPatternMatchOrFail:
		return cc.unsupported(i, op)

	default:
		return cc.unsupported(i, op)
	}
	return nil
}

// matchingForRangeStep scans forward from a ForRangeLoop at index start to
// find the ForRangeStep instruction that closes it, tracking nesting depth
// so an inner for-range loop's own ForRangeStep doesn't get mistaken for the
// outer one's. Returns -1 if the code stream is malformed.
func matchingForRangeStep(fn *value.Function, start int) int {
	depth := 0
	for j := start; j < len(fn.Code); j++ {
		switch fn.Code[j].Code {
		case value.OpForRangeLoop:
			depth++
		case value.OpForRangeStep:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func (cc *codegenContext) negateBool(v llvm.Value) llvm.Value {
	isTrue := cc.b.CreateICmp(llvm.IntEQ, v, llvm.ConstInt(i64Type, uint64(BoolTrueLiteral), true), "isTrue")
	return cc.b.CreateSelect(isTrue,
		llvm.ConstInt(i64Type, uint64(BoolFalseLiteral), true),
		llvm.ConstInt(i64Type, uint64(BoolTrueLiteral), true), "negated")
}

// baseCmpOf maps an *Imm ordering opcode to its register-pair form, mirrored
// from vm/cmp.go's immToPlainCmp so codegen and the interpreter share one
// naming of "which comparison does this Imm variant perform".
func baseCmpOf(code value.OpCode) value.OpCode {
	switch code {
	case value.OpCmpLtImm:
		return value.OpCmpLt
	case value.OpCmpLeImm:
		return value.OpCmpLe
	case value.OpCmpGtImm:
		return value.OpCmpGt
	case value.OpCmpGeImm:
		return value.OpCmpGe
	}
	return code
}

// emitOrderedCmp calls lkr_rt_compare and turns its {-1,0,1} small-int
// result into the requested ordering predicate, storing a Bool into dst.
func (cc *codegenContext) emitOrderedCmp(code value.OpCode, dst uint16, a, b llvm.Value) error {
	ord := cc.callABI("lkr_rt_compare", []llvm.Value{a, b}, "cmp")
	zero := llvm.ConstInt(i64Type, uint64(func() int64 { v, _ := EncodeSmallInt(0); return v }()), true)
	var pred llvm.IntPredicate
	switch code {
	case value.OpCmpLt:
		pred = llvm.IntSLT
	case value.OpCmpLe:
		pred = llvm.IntSLE
	case value.OpCmpGt:
		pred = llvm.IntSGT
	case value.OpCmpGe:
		pred = llvm.IntSGE
	default:
		return fmt.Errorf("llvmgen: %s: unexpected ordering opcode %s", cc.srcName, code)
	}
	cmp := cc.b.CreateICmp(pred, ord, zero, "ord")
	result := cc.b.CreateSelect(cmp,
		llvm.ConstInt(i64Type, uint64(BoolTrueLiteral), true),
		llvm.ConstInt(i64Type, uint64(BoolFalseLiteral), true), "ordbool")
	cc.store(dst, result)
	return nil
}

// emitBuildPacked spills count registers starting at base into a stack
// buffer and calls the named runtime helper over it, backing BuildList
// (count=length) and BuildMap (count=2*length, alternating key/value).
func (cc *codegenContext) emitBuildPacked(dst, base, count uint16, helper, label string) {
	buf := cc.b.CreateArrayAlloca(i64Type, llvm.ConstInt(i64Type, uint64(count), false), label+"_buf")
	for k := uint16(0); k < count; k++ {
		idx := llvm.ConstInt(i64Type, uint64(k), false)
		elemPtr := cc.b.CreateGEP(buf, []llvm.Value{idx}, fmt.Sprintf("%s_e%d", label, k))
		cc.b.CreateStore(cc.load(base+k), elemPtr)
	}
	asBytes := cc.b.CreateBitCast(buf, i8Ptr, label+"_bytes")
	n := llvm.ConstInt(i64Type, uint64(count), false)
	if helper == "lkr_rt_build_map" {
		// lkr_rt_build_map's length argument is the pair count, not the
		// packed element count passed to it here.
		n = llvm.ConstInt(i64Type, uint64(count/2), false)
	}
	cc.store(dst, cc.callABI(helper, []llvm.Value{asBytes, n}, label))
}

// emitCall spills argc registers starting at base into a stack buffer and
// calls lkr_rt_call with the callee register's value, writing the result
// back into base (spec's Call opcode: A holds the callee, the argument
// window and the result window both start at B — matching the interpreter's
// writeResults(fr, op.B, ...) in vm/exec.go). lkr_rt_call returns a single
// i64, so only retc<=1 round-trips; a multi-value return is a known AOT gap
// (documented in DESIGN.md) since the fixed ABI has no multi-result helper.
func (cc *codegenContext) emitCall(calleeReg, base uint16, argc, retc uint8) error {
	buf := cc.b.CreateArrayAlloca(i64Type, llvm.ConstInt(i64Type, uint64(argc), false), "callargs")
	for k := uint8(0); k < argc; k++ {
		idx := llvm.ConstInt(i64Type, uint64(k), false)
		elemPtr := cc.b.CreateGEP(buf, []llvm.Value{idx}, fmt.Sprintf("callarg_e%d", k))
		cc.b.CreateStore(cc.load(base+uint16(k)), elemPtr)
	}
	asBytes := cc.b.CreateBitCast(buf, i8Ptr, "callargs_bytes")
	n := llvm.ConstInt(i64Type, uint64(argc), false)
	result := cc.callABI("lkr_rt_call", []llvm.Value{cc.load(calleeReg), asBytes, n}, "call")
	switch {
	case retc == 0:
	case retc == 1:
		cc.store(base, result)
	default:
		return fmt.Errorf("llvmgen: %s: call with %d return values has no AOT lowering", cc.srcName, retc)
	}
	return nil
}

// emitRangeGuard builds the bool test ForRangeLoop re-checks every
// iteration: idx <= limit (Inclusive) or idx < limit, both via the ordering
// runtime helper so Int/Float for-range bounds share the interpreter's
// exact comparison semantics.
func (cc *codegenContext) emitRangeGuard(op value.Op) (llvm.Value, error) {
	ord := cc.callABI("lkr_rt_compare", []llvm.Value{cc.load(op.A), cc.load(op.B)}, "forguard_cmp")
	zero := llvm.ConstInt(i64Type, uint64(func() int64 { v, _ := EncodeSmallInt(0); return v }()), true)
	pred := llvm.IntSLT
	if op.Inclusive {
		pred = llvm.IntSLE
	}
	return cc.b.CreateICmp(pred, ord, zero, "forguard"), nil
}
