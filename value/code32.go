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

// Packed 32-bit bytecode encoding (spec §6.2). Each logical Op decodes from
// one, two or three 32-bit words:
//
//   - inline form: tag byte (top bit clear) in bits 31-24, then up to three
//     8-bit operand slots in bits 23-16, 15-8, 7-0. Used when every operand
//     the instruction needs fits in a signed/unsigned byte — the common case
//     for small functions with few registers and few constants.
//   - extended form: tag byte with the top bit set (tag | extendedBit) in
//     bits 31-24, flags (Argc/Retc/Posc/Namedc/Inclusive/Explicit/IsConst,
//     whichever the instruction uses) packed into the low 24 bits of word0,
//     and a second word carrying two full 16-bit operands (hi16, lo16).
//     Instructions with a third operand, an immediate or an offset beyond
//     the first two (three-register ops, *Imm ops, the fused branch-and-set
//     ops, PatternMatchOrFail, ForRangePrep/Loop/Step) take a third word
//     holding it in its high 16 bits (ForRangeLoop also puts Ofs in the low
//     16 bits). CallNamed's base_named is never stored: the compiler always
//     lays named pairs immediately after the positional args, so decode
//     recomputes it as base_pos + posc rather than spending a third word on it.
//
// Every tag decodes to exactly the same logical Op; every logical Op encodes
// to at most three words; register/constant indices fit in 16 bits; jump
// offsets are relative to the word after the instruction (tracked by the
// caller, not encoded here).
const extendedBit uint8 = 0x80

func fitsInt8(v int16) bool  { return v >= -128 && v <= 127 }
func fitsUint8(v uint16) bool { return v <= 255 }

func packWord(tag uint8, a, b, c uint8) uint32 {
	return uint32(tag)<<24 | uint32(a)<<16 | uint32(b)<<8 | uint32(c)
}

func packExtHead(tag uint8, flags uint32) uint32 {
	return uint32(tag|extendedBit)<<24 | (flags & 0x00FFFFFF)
}

func packWide(hi, lo uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

func boolBit(b bool, bit uint32) uint32 {
	if b {
		return bit
	}
	return 0
}

// EncodeOp appends op's packed words to dst and returns the extended slice.
func EncodeOp(dst []uint32, op Op) []uint32 {
	tag := uint8(op.Code)
	switch op.Code {
	case OpJmp:
		if fitsInt8(op.Ofs) {
			return append(dst, packWord(tag, uint8(int8(op.Ofs)), 0, 0))
		}
		return append(dst, packExtHead(tag, 0), packWide(uint16(op.Ofs), 0))

	case OpRaise:
		if fitsUint8(op.A) {
			return append(dst, packWord(tag, uint8(op.A), 0, 0))
		}
		return append(dst, packExtHead(tag, 0), packWide(op.A, 0))

	case OpJmpIfNil, OpJmpIfNotNil, OpJmpFalse, OpBreak, OpContinue:
		if fitsUint8(op.A) && fitsInt8(op.Ofs) {
			return append(dst, packWord(tag, uint8(op.A), uint8(int8(op.Ofs)), 0))
		}
		return append(dst, packExtHead(tag, 0), packWide(op.A, uint16(op.Ofs)))

	case OpLoadK, OpMove, OpNot, OpToStr, OpToBool, OpLoadLocal, OpStoreLocal,
		OpLoadGlobal, OpDefineGlobal, OpLoadCapture, OpLen, OpMakeClosure, OpToIter:
		if fitsUint8(op.A) && fitsUint8(op.B) {
			return append(dst, packWord(tag, uint8(op.A), uint8(op.B), 0))
		}
		return append(dst, packExtHead(tag, 0), packWide(op.A, op.B))

	case OpNullishPick, OpJmpFalseSet, OpJmpTrueSet:
		if fitsUint8(op.A) && fitsUint8(op.B) && fitsInt8(op.Ofs) {
			return append(dst, packWord(tag, uint8(op.A), uint8(op.B), uint8(int8(op.Ofs))))
		}
		return append(dst, packExtHead(tag, 0), packWide(op.A, op.B), packWide(uint16(op.Ofs), 0))

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpAddInt, OpAddFloat, OpSubInt, OpSubFloat,
		OpMulInt, OpMulFloat, OpDivFloat, OpModInt, OpModFloat,
		OpCmpEq, OpCmpNe, OpCmpLt, OpCmpLe, OpCmpGt, OpCmpGe, OpIn,
		OpAccess, OpAccessK, OpIndexK, OpIndex, OpPatternMatch, OpBuildList, OpBuildMap, OpListSlice:
		if fitsUint8(op.A) && fitsUint8(op.B) && fitsUint8(op.C) {
			return append(dst, packWord(tag, uint8(op.A), uint8(op.B), uint8(op.C)))
		}
		return append(dst, packExtHead(tag, 0), packWide(op.A, op.B), packWide(op.C, 0))

	case OpAddIntImm, OpCmpEqImm, OpCmpNeImm, OpCmpLtImm, OpCmpLeImm, OpCmpGtImm, OpCmpGeImm:
		if fitsUint8(op.A) && fitsUint8(op.B) && fitsInt8(op.Imm) {
			return append(dst, packWord(tag, uint8(op.A), uint8(op.B), uint8(int8(op.Imm))))
		}
		return append(dst, packExtHead(tag, 0), packWide(op.A, op.B), packWide(uint16(op.Imm), 0))

	case OpPatternMatchOrFail:
		flags := boolBit(op.IsConst, 1)
		return append(dst, packExtHead(tag, flags), packWide(op.A, op.B), packWide(op.C, 0))

	case OpCall:
		flags := uint32(op.Argc)<<8 | uint32(op.Retc)
		return append(dst, packExtHead(tag, flags), packWide(op.A, op.B))

	case OpCallNamed:
		flags := uint32(op.Posc)<<16 | uint32(op.Namedc)<<8 | uint32(op.Retc)
		return append(dst, packExtHead(tag, flags), packWide(op.A, op.B))

	case OpRet:
		flags := uint32(op.Retc)
		return append(dst, packExtHead(tag, flags), packWide(op.A, 0))

	case OpForRangePrep:
		flags := boolBit(op.Inclusive, 1) | boolBit(op.Explicit, 2)
		return append(dst, packExtHead(tag, flags), packWide(op.A, op.B), packWide(op.C, 0))

	case OpForRangeLoop:
		flags := boolBit(op.Inclusive, 1)
		return append(dst, packExtHead(tag, flags), packWide(op.A, op.B), packWide(op.C, uint16(op.Ofs)))

	case OpForRangeStep:
		return append(dst, packExtHead(tag, 0), packWide(op.A, op.B), packWide(uint16(op.Ofs), 0))

	default:
		return append(dst, packExtHead(tag, 0), packWide(op.A, op.B), packWide(op.C, uint16(op.Ofs)))
	}
}

// DecodeOp decodes the instruction starting at words[0] and reports how many
// words it consumed (1, 2 or 3).
func DecodeOp(words []uint32) (Op, int) {
	w0 := words[0]
	rawTag := uint8(w0 >> 24)
	extended := rawTag&extendedBit != 0
	code := OpCode(rawTag &^ extendedBit)

	if !extended {
		a := uint8(w0 >> 16)
		b := uint8(w0 >> 8)
		c := uint8(w0)
		switch code {
		case OpJmp:
			return Op{Code: code, Ofs: int16(int8(a))}, 1
		case OpRaise:
			return Op{Code: code, A: uint16(a)}, 1
		case OpJmpIfNil, OpJmpIfNotNil, OpJmpFalse, OpBreak, OpContinue:
			return Op{Code: code, A: uint16(a), Ofs: int16(int8(b))}, 1
		case OpLoadK, OpMove, OpNot, OpToStr, OpToBool, OpLoadLocal, OpStoreLocal,
			OpLoadGlobal, OpDefineGlobal, OpLoadCapture, OpLen, OpMakeClosure, OpToIter:
			return Op{Code: code, A: uint16(a), B: uint16(b)}, 1
		case OpNullishPick, OpJmpFalseSet, OpJmpTrueSet:
			return Op{Code: code, A: uint16(a), B: uint16(b), Ofs: int16(int8(c))}, 1
		case OpAddIntImm, OpCmpEqImm, OpCmpNeImm, OpCmpLtImm, OpCmpLeImm, OpCmpGtImm, OpCmpGeImm:
			return Op{Code: code, A: uint16(a), B: uint16(b), Imm: int16(int8(c))}, 1
		default:
			return Op{Code: code, A: uint16(a), B: uint16(b), C: uint16(c)}, 1
		}
	}

	flags := w0 & 0x00FFFFFF
	switch code {
	case OpJmp:
		w1 := words[1]
		return Op{Code: code, Ofs: int16(uint16(w1 >> 16))}, 2
	case OpRaise:
		w1 := words[1]
		return Op{Code: code, A: uint16(w1 >> 16)}, 2
	case OpJmpIfNil, OpJmpIfNotNil, OpJmpFalse, OpBreak, OpContinue:
		w1 := words[1]
		return Op{Code: code, A: uint16(w1 >> 16), Ofs: int16(uint16(w1))}, 2
	case OpLoadK, OpMove, OpNot, OpToStr, OpToBool, OpLoadLocal, OpStoreLocal,
		OpLoadGlobal, OpDefineGlobal, OpLoadCapture, OpLen, OpMakeClosure, OpToIter:
		w1 := words[1]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1)}, 2
	case OpNullishPick, OpJmpFalseSet, OpJmpTrueSet:
		w1, w2 := words[1], words[2]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1), Ofs: int16(uint16(w2 >> 16))}, 3
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpAddInt, OpAddFloat, OpSubInt, OpSubFloat,
		OpMulInt, OpMulFloat, OpDivFloat, OpModInt, OpModFloat,
		OpCmpEq, OpCmpNe, OpCmpLt, OpCmpLe, OpCmpGt, OpCmpGe, OpIn,
		OpAccess, OpAccessK, OpIndexK, OpIndex, OpPatternMatch, OpBuildList, OpBuildMap, OpListSlice:
		w1, w2 := words[1], words[2]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1), C: uint16(w2 >> 16)}, 3
	case OpAddIntImm, OpCmpEqImm, OpCmpNeImm, OpCmpLtImm, OpCmpLeImm, OpCmpGtImm, OpCmpGeImm:
		w1, w2 := words[1], words[2]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1), Imm: int16(uint16(w2 >> 16))}, 3
	case OpPatternMatchOrFail:
		w1, w2 := words[1], words[2]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1), C: uint16(w2 >> 16), IsConst: flags&1 != 0}, 3
	case OpCall:
		w1 := words[1]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1), Argc: uint8(flags >> 8), Retc: uint8(flags)}, 2
	case OpCallNamed:
		w1 := words[1]
		posc := uint8(flags >> 16)
		basePos := uint16(w1)
		return Op{
			Code: code, A: uint16(w1 >> 16), B: basePos,
			C:      basePos + uint16(posc),
			Posc:   posc,
			Namedc: uint8(flags >> 8),
			Retc:   uint8(flags),
		}, 2
	case OpRet:
		w1 := words[1]
		return Op{Code: code, A: uint16(w1 >> 16), Retc: uint8(flags)}, 2
	case OpForRangePrep:
		w1, w2 := words[1], words[2]
		return Op{
			Code: code, A: uint16(w1 >> 16), B: uint16(w1), C: uint16(w2 >> 16),
			Inclusive: flags&1 != 0, Explicit: flags&2 != 0,
		}, 3
	case OpForRangeLoop:
		w1, w2 := words[1], words[2]
		return Op{
			Code: code, A: uint16(w1 >> 16), B: uint16(w1), C: uint16(w2 >> 16),
			Ofs: int16(uint16(w2)), Inclusive: flags&1 != 0,
		}, 3
	case OpForRangeStep:
		w1, w2 := words[1], words[2]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1), Ofs: int16(uint16(w2 >> 16))}, 3
	default:
		w1, w2 := words[1], words[2]
		return Op{Code: code, A: uint16(w1 >> 16), B: uint16(w1), C: uint16(w2 >> 16), Ofs: int16(uint16(w2))}, 3
	}
}

// EncodeFunction packs every op of ops into a flat code32 stream.
func EncodeFunction(ops []Op) []uint32 {
	var out []uint32
	for _, op := range ops {
		out = EncodeOp(out, op)
	}
	return out
}

// DecodeFunction unpacks a code32 stream back into logical ops.
func DecodeFunction(words []uint32) []Op {
	var ops []Op
	for i := 0; i < len(words); {
		op, n := DecodeOp(words[i:])
		ops = append(ops, op)
		i += n
	}
	return ops
}
