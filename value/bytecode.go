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
package value

import "fmt"

// OpCode enumerates the logical instruction set (spec §6.1). Names match the
// spec's authoritative inventory one-to-one.
type OpCode uint8

const (
	OpLoadK OpCode = iota
	OpMove
	OpNot
	OpToStr
	OpToBool
	OpJmpIfNil
	OpJmpIfNotNil
	OpNullishPick
	OpJmpFalseSet
	OpJmpTrueSet
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpAddInt
	OpAddFloat
	OpAddIntImm
	OpSubInt
	OpSubFloat
	OpMulInt
	OpMulFloat
	OpDivFloat
	OpModInt
	OpModFloat
	OpCmpEq
	OpCmpNe
	OpCmpLt
	OpCmpLe
	OpCmpGt
	OpCmpGe
	OpCmpEqImm
	OpCmpNeImm
	OpCmpLtImm
	OpCmpLeImm
	OpCmpGtImm
	OpCmpGeImm
	OpIn
	OpLoadLocal
	OpStoreLocal
	OpLoadGlobal
	OpDefineGlobal
	OpLoadCapture
	OpAccess
	OpAccessK
	OpIndexK
	OpLen
	OpIndex
	OpPatternMatch
	OpPatternMatchOrFail
	OpRaise
	OpToIter
	OpBuildList
	OpBuildMap
	OpListSlice
	OpMakeClosure
	OpJmp
	OpJmpFalse
	OpCall
	OpCallNamed
	OpRet
	OpForRangePrep
	OpForRangeLoop
	OpForRangeStep
	OpBreak
	OpContinue
	opCodeCount
)

var opNames = [opCodeCount]string{
	OpLoadK: "LoadK", OpMove: "Move", OpNot: "Not", OpToStr: "ToStr", OpToBool: "ToBool",
	OpJmpIfNil: "JmpIfNil", OpJmpIfNotNil: "JmpIfNotNil", OpNullishPick: "NullishPick",
	OpJmpFalseSet: "JmpFalseSet", OpJmpTrueSet: "JmpTrueSet",
	OpAdd: "Add", OpSub: "Sub", OpMul: "Mul", OpDiv: "Div", OpMod: "Mod",
	OpAddInt: "AddInt", OpAddFloat: "AddFloat", OpAddIntImm: "AddIntImm",
	OpSubInt: "SubInt", OpSubFloat: "SubFloat", OpMulInt: "MulInt", OpMulFloat: "MulFloat",
	OpDivFloat: "DivFloat", OpModInt: "ModInt", OpModFloat: "ModFloat",
	OpCmpEq: "CmpEq", OpCmpNe: "CmpNe", OpCmpLt: "CmpLt", OpCmpLe: "CmpLe", OpCmpGt: "CmpGt", OpCmpGe: "CmpGe",
	OpCmpEqImm: "CmpEqImm", OpCmpNeImm: "CmpNeImm", OpCmpLtImm: "CmpLtImm",
	OpCmpLeImm: "CmpLeImm", OpCmpGtImm: "CmpGtImm", OpCmpGeImm: "CmpGeImm",
	OpIn: "In", OpLoadLocal: "LoadLocal", OpStoreLocal: "StoreLocal",
	OpLoadGlobal: "LoadGlobal", OpDefineGlobal: "DefineGlobal", OpLoadCapture: "LoadCapture",
	OpAccess: "Access", OpAccessK: "AccessK", OpIndexK: "IndexK",
	OpLen: "Len", OpIndex: "Index", OpPatternMatch: "PatternMatch",
	OpPatternMatchOrFail: "PatternMatchOrFail", OpRaise: "Raise", OpToIter: "ToIter",
	OpBuildList: "BuildList", OpBuildMap: "BuildMap", OpListSlice: "ListSlice",
	OpMakeClosure: "MakeClosure", OpJmp: "Jmp", OpJmpFalse: "JmpFalse",
	OpCall: "Call", OpCallNamed: "CallNamed", OpRet: "Ret",
	OpForRangePrep: "ForRangePrep", OpForRangeLoop: "ForRangeLoop", OpForRangeStep: "ForRangeStep",
	OpBreak: "Break", OpContinue: "Continue",
}

func (c OpCode) String() string {
	if c < opCodeCount {
		return opNames[c]
	}
	return fmt.Sprintf("OpCode(%d)", uint8(c))
}

// Op is the logical instruction representation (spec §4.2.3, §6.1). Go lacks
// Rust's payload-carrying enum, so every operand field lives on one struct;
// only the fields meaningful for Code are populated, following the teacher's
// flat-struct style for its AST nodes (scm/parser.go).
//
// Field roles by instruction shape:
//
//	two-register (dst, src):        A=dst, B=src
//	three-register (dst, a, b):     A=dst, B=lhs, C=rhs
//	dst + constant index:           A=dst, B=kidx
//	dst + imm:                      A=dst, B=lhs, Imm=rhs
//	register + jump offset:         A=r, Ofs=ofs
//	fused branch-and-set:           A=r, B=dst, Ofs=ofs (NullishPick uses A=l)
//	Call/CallNamed/Ret/ForRange*/PatternMatch*: see dedicated constructors
type Op struct {
	Code OpCode

	A, B, C uint16
	Ofs     int16
	Imm     int16

	IsConst   bool // PatternMatchOrFail: err_kidx is a constant ref vs. register
	Inclusive bool // ForRangePrep/ForRangeLoop: ..= vs ..
	Explicit  bool // ForRangePrep: caller supplied an explicit step

	Argc, Retc, Posc, Namedc uint8
}

func OpLoadKOf(dst, kidx uint16) Op    { return Op{Code: OpLoadK, A: dst, B: kidx} }
func OpMoveOf(dst, src uint16) Op      { return Op{Code: OpMove, A: dst, B: src} }
func OpNotOf(dst, src uint16) Op       { return Op{Code: OpNot, A: dst, B: src} }
func OpToStrOf(dst, src uint16) Op     { return Op{Code: OpToStr, A: dst, B: src} }
func OpToBoolOf(dst, src uint16) Op    { return Op{Code: OpToBool, A: dst, B: src} }
func OpJmpIfNilOf(r uint16, ofs int16) Op    { return Op{Code: OpJmpIfNil, A: r, Ofs: ofs} }
func OpJmpIfNotNilOf(r uint16, ofs int16) Op { return Op{Code: OpJmpIfNotNil, A: r, Ofs: ofs} }

func OpNullishPickOf(l, dst uint16, ofs int16) Op {
	return Op{Code: OpNullishPick, A: l, B: dst, Ofs: ofs}
}
func OpJmpFalseSetOf(r, dst uint16, ofs int16) Op {
	return Op{Code: OpJmpFalseSet, A: r, B: dst, Ofs: ofs}
}
func OpJmpTrueSetOf(r, dst uint16, ofs int16) Op {
	return Op{Code: OpJmpTrueSet, A: r, B: dst, Ofs: ofs}
}

func op3(code OpCode, dst, a, b uint16) Op { return Op{Code: code, A: dst, B: a, C: b} }

func OpAddOf(dst, a, b uint16) Op      { return op3(OpAdd, dst, a, b) }
func OpSubOf(dst, a, b uint16) Op      { return op3(OpSub, dst, a, b) }
func OpMulOf(dst, a, b uint16) Op      { return op3(OpMul, dst, a, b) }
func OpDivOf(dst, a, b uint16) Op      { return op3(OpDiv, dst, a, b) }
func OpModOf(dst, a, b uint16) Op      { return op3(OpMod, dst, a, b) }
func OpAddIntOf(dst, a, b uint16) Op   { return op3(OpAddInt, dst, a, b) }
func OpAddFloatOf(dst, a, b uint16) Op { return op3(OpAddFloat, dst, a, b) }
func OpAddIntImmOf(dst, a uint16, imm int16) Op {
	return Op{Code: OpAddIntImm, A: dst, B: a, Imm: imm}
}
func OpSubIntOf(dst, a, b uint16) Op   { return op3(OpSubInt, dst, a, b) }
func OpSubFloatOf(dst, a, b uint16) Op { return op3(OpSubFloat, dst, a, b) }
func OpMulIntOf(dst, a, b uint16) Op   { return op3(OpMulInt, dst, a, b) }
func OpMulFloatOf(dst, a, b uint16) Op { return op3(OpMulFloat, dst, a, b) }
func OpDivFloatOf(dst, a, b uint16) Op { return op3(OpDivFloat, dst, a, b) }
func OpModIntOf(dst, a, b uint16) Op   { return op3(OpModInt, dst, a, b) }
func OpModFloatOf(dst, a, b uint16) Op { return op3(OpModFloat, dst, a, b) }

func OpCmpEqOf(dst, a, b uint16) Op { return op3(OpCmpEq, dst, a, b) }
func OpCmpNeOf(dst, a, b uint16) Op { return op3(OpCmpNe, dst, a, b) }
func OpCmpLtOf(dst, a, b uint16) Op { return op3(OpCmpLt, dst, a, b) }
func OpCmpLeOf(dst, a, b uint16) Op { return op3(OpCmpLe, dst, a, b) }
func OpCmpGtOf(dst, a, b uint16) Op { return op3(OpCmpGt, dst, a, b) }
func OpCmpGeOf(dst, a, b uint16) Op { return op3(OpCmpGe, dst, a, b) }

func opCmpImm(code OpCode, dst, a uint16, imm int16) Op {
	return Op{Code: code, A: dst, B: a, Imm: imm}
}

func OpCmpEqImmOf(dst, a uint16, imm int16) Op { return opCmpImm(OpCmpEqImm, dst, a, imm) }
func OpCmpNeImmOf(dst, a uint16, imm int16) Op { return opCmpImm(OpCmpNeImm, dst, a, imm) }
func OpCmpLtImmOf(dst, a uint16, imm int16) Op { return opCmpImm(OpCmpLtImm, dst, a, imm) }
func OpCmpLeImmOf(dst, a uint16, imm int16) Op { return opCmpImm(OpCmpLeImm, dst, a, imm) }
func OpCmpGtImmOf(dst, a uint16, imm int16) Op { return opCmpImm(OpCmpGtImm, dst, a, imm) }
func OpCmpGeImmOf(dst, a uint16, imm int16) Op { return opCmpImm(OpCmpGeImm, dst, a, imm) }

func OpInOf(dst, a, b uint16) Op { return op3(OpIn, dst, a, b) }

func OpLoadLocalOf(dst, idx uint16) Op    { return Op{Code: OpLoadLocal, A: dst, B: idx} }
func OpStoreLocalOf(idx, src uint16) Op   { return Op{Code: OpStoreLocal, A: idx, B: src} }
func OpLoadGlobalOf(dst, nameK uint16) Op { return Op{Code: OpLoadGlobal, A: dst, B: nameK} }
func OpDefineGlobalOf(nameK, src uint16) Op {
	return Op{Code: OpDefineGlobal, A: nameK, B: src}
}
func OpLoadCaptureOf(dst, idx uint16) Op { return Op{Code: OpLoadCapture, A: dst, B: idx} }

func OpAccessOf(dst, base, field uint16) Op  { return op3(OpAccess, dst, base, field) }
func OpAccessKOf(dst, base, kidx uint16) Op  { return op3(OpAccessK, dst, base, kidx) }
func OpIndexKOf(dst, base, kidx uint16) Op   { return op3(OpIndexK, dst, base, kidx) }
func OpLenOf(dst, src uint16) Op             { return Op{Code: OpLen, A: dst, B: src} }
func OpIndexOf(dst, base, idx uint16) Op     { return op3(OpIndex, dst, base, idx) }

func OpPatternMatchOf(dst, src, plan uint16) Op { return op3(OpPatternMatch, dst, src, plan) }

func OpPatternMatchOrFailOf(src, plan, errKidx uint16, isConst bool) Op {
	return Op{Code: OpPatternMatchOrFail, A: src, B: plan, C: errKidx, IsConst: isConst}
}

func OpRaiseOf(errKidx uint16) Op { return Op{Code: OpRaise, A: errKidx} }

func OpToIterOf(dst, src uint16) Op { return Op{Code: OpToIter, A: dst, B: src} }

func OpBuildListOf(dst, base, length uint16) Op { return op3(OpBuildList, dst, base, length) }
func OpBuildMapOf(dst, base, length uint16) Op  { return op3(OpBuildMap, dst, base, length) }

func OpListSliceOf(dst, src, start uint16) Op { return op3(OpListSlice, dst, src, start) }

func OpMakeClosureOf(dst, proto uint16) Op { return Op{Code: OpMakeClosure, A: dst, B: proto} }

func OpJmpOf(ofs int16) Op               { return Op{Code: OpJmp, Ofs: ofs} }
func OpJmpFalseOf(r uint16, ofs int16) Op { return Op{Code: OpJmpFalse, A: r, Ofs: ofs} }

func OpCallOf(f, base uint16, argc, retc uint8) Op {
	return Op{Code: OpCall, A: f, B: base, Argc: argc, Retc: retc}
}

func OpCallNamedOf(f, basePos uint16, posc uint8, baseNamed uint16, namedc, retc uint8) Op {
	return Op{Code: OpCallNamed, A: f, B: basePos, C: baseNamed, Posc: posc, Namedc: namedc, Retc: retc}
}

func OpRetOf(base uint16, retc uint8) Op { return Op{Code: OpRet, A: base, Retc: retc} }

func OpForRangePrepOf(idx, limit, step uint16, inclusive, explicit bool) Op {
	return Op{Code: OpForRangePrep, A: idx, B: limit, C: step, Inclusive: inclusive, Explicit: explicit}
}
func OpForRangeLoopOf(idx, limit, step uint16, inclusive bool, ofs int16) Op {
	return Op{Code: OpForRangeLoop, A: idx, B: limit, C: step, Inclusive: inclusive, Ofs: ofs}
}
func OpForRangeStepOf(idx, step uint16, backOfs int16) Op {
	return Op{Code: OpForRangeStep, A: idx, B: step, Ofs: backOfs}
}

func OpBreakOf(ofs int16) Op    { return Op{Code: OpBreak, Ofs: ofs} }
func OpContinueOf(ofs int16) Op { return Op{Code: OpContinue, Ofs: ofs} }

// String renders a disassembly-style line, grounded on the teacher's
// scm/jit_writer.go textual IR dump.
func (op Op) String() string {
	switch op.Code {
	case OpLoadK:
		return fmt.Sprintf("LoadK r%d, k%d", op.A, op.B)
	case OpJmp:
		return fmt.Sprintf("Jmp %d", op.Ofs)
	case OpCall:
		return fmt.Sprintf("Call r%d, base=%d, argc=%d, retc=%d", op.A, op.B, op.Argc, op.Retc)
	case OpCallNamed:
		return fmt.Sprintf("CallNamed r%d, base_pos=%d, posc=%d, base_named=%d, namedc=%d, retc=%d",
			op.A, op.B, op.Posc, op.C, op.Namedc, op.Retc)
	case OpRet:
		return fmt.Sprintf("Ret base=%d, retc=%d", op.A, op.Retc)
	default:
		return fmt.Sprintf("%s r%d, r%d, r%d ofs=%d imm=%d", op.Code, op.A, op.B, op.C, op.Ofs, op.Imm)
	}
}

// RK-operand convention (spec §6.1): a 16-bit operand whose top bit flags
// "is constant" and whose low 15 bits index either a register or a constant.
const (
	RKConstBit  uint16 = 1 << 15
	RKIndexMask uint16 = RKConstBit - 1
)

func RKIsConst(rk uint16) bool  { return rk&RKConstBit != 0 }
func RKIndex(rk uint16) uint16  { return rk & RKIndexMask }
func RKMakeConst(kidx uint16) uint16 { return kidx | RKConstBit }
func RKMakeReg(reg uint16) uint16    { return reg &^ RKConstBit }
