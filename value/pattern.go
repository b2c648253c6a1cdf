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

import (
	"math"
	"strconv"

	"github.com/google/btree"
)

// PatternKind tags the shape of a Pattern node (spec §3.5: "literal,
// variable, wildcard, list [..rest], map {..rest}, or-, guard, range").
type PatternKind uint8

const (
	PatternLiteral PatternKind = iota
	PatternVar
	PatternWildcard
	PatternList
	PatternMap
	PatternOr
	PatternGuard
	PatternRange
)

// MapPatternEntry binds one key to a sub-pattern inside a PatternMap node.
type MapPatternEntry struct {
	Key     string
	Sub     *Pattern
}

// Pattern is the compiled (already-resolved, no parsing left to do) shape of
// a destructuring pattern, grounded on scm/match.go's match() recursion but
// restructured as data so the compiler can walk it ahead-of-time to allocate
// binding registers instead of matching directly against live Scmer values.
type Pattern struct {
	Kind PatternKind

	// PatternLiteral
	Literal V

	// PatternVar: name is carried in the owning PatternBinding, not here.

	// PatternList
	Elems []Pattern
	Rest  *string // name bound to the remaining tail, nil if no `..rest`

	// PatternMap
	Entries  []MapPatternEntry
	MapRest  *string

	// PatternOr
	Alts []Pattern

	// PatternGuard: inner pattern plus a condition thunk compiled to receive
	// the bindings accumulated so far (in plan.Bindings order) as positional
	// arguments and return a Bool.
	Inner     *Pattern
	Guard     *Function

	// PatternRange
	Low       V
	High      V
	Inclusive bool
}

// NamedParamLayoutEntry binds one named parameter's constant-pool name index
// to its destination register and optional default-thunk index (spec §3.2).
type NamedParamLayoutEntry struct {
	NameConstIdx uint16
	DestReg      uint16
	DefaultIndex *uint16 // index into ClosureProto.DefaultFuncs; nil = required
}

// PatternBinding names one register introduced by a successful match.
type PatternBinding struct {
	Name string
	Reg  uint16
}

// PatternPlan is the precompiled destructuring plan referenced by
// PatternMatch/PatternMatchOrFail (spec §3.5).
type PatternPlan struct {
	Pattern  Pattern
	Bindings []PatternBinding
}

// CaptureKind tags how a free variable is captured by a closure (spec §3.3).
type CaptureKind uint8

const (
	CaptureRegister CaptureKind = iota
	CaptureConst
	CaptureGlobal
)

// CaptureSpec describes one free variable captured into a ClosureProto.
type CaptureSpec struct {
	Kind CaptureKind
	Name string
	Src  uint16 // CaptureRegister: source register in the enclosing function
	Kidx uint16 // CaptureConst: constant-pool index in the enclosing function
}

// NamedParamDecl is a named parameter's static declaration (name plus
// whether a default expression was supplied; the default itself compiles
// into ClosureProto.DefaultFuncs, aligned by index).
type NamedParamDecl struct {
	Name       string
	HasDefault bool
}

// ClosureProto is embedded in a parent Function and instantiated into a
// ClosureValue by MakeClosure (spec §3.3).
type ClosureProto struct {
	SelfName     *string
	Params       []string
	NamedParams  []NamedParamDecl
	DefaultFuncs []*Function // aligned with NamedParams; nil entry = required
	Body         *Function
	Captures     []CaptureSpec
	Location     string
}

// FunctionAnalysis is the optional SSA/escape/region diagnostic payload a
// Function can carry (spec §4.1.5). The compiler in this module never
// computes it, so Function.Analysis stays nil.
// It never changes runtime semantics; the VM is free to ignore it entirely.
type FunctionAnalysis struct {
	SSA           *SSAForm
	EscapeSummary map[uint16]EscapeClass // register -> classification
	RegionPlan    map[uint16]RegionKind  // register -> suggested allocation region
}

// EscapeClass classifies a register's lifetime for the escape analysis pass.
type EscapeClass uint8

const (
	EscapeTrivial EscapeClass = iota // never stored past the instruction that produced it
	EscapeLocal                      // lives only for the enclosing call's duration
	EscapeEscapes                    // may outlive the call (captured, returned, stored)
)

// RegionKind is the allocation-region hint derived from EscapeClass; it is
// advisory only (spec §4.1.5: "a diagnostic hint, never load-bearing").
type RegionKind uint8

const (
	RegionThreadLocal RegionKind = iota
	RegionArena
	RegionHeap
)

// SSAForm is a minimal single-static-assignment view of a Function's
// register flow, built for the escape analysis pass to consume (spec
// §4.1.5). It is not itself executed; the VM always runs the register-based
// Op/code32 stream.
type SSAForm struct {
	Defs  map[uint16][]int // register -> instruction indices that define it
	Uses  map[uint16][]int // register -> instruction indices that use it
	Phis  []SSAPhi
}

// SSAPhi records a control-flow merge point where a register's reaching
// definition differs by incoming edge.
type SSAPhi struct {
	Reg     uint16
	FromIdx []int // predecessor instruction indices
}

// Function is a compiled unit (spec §3.2): constants, the logical opcode
// stream, register frame size, parameter layout, pattern plans, nested
// closure prototypes, optional packed encoding, and optional analysis.
type Function struct {
	Consts           []V
	Code             []Op
	NRegs            uint16
	Protos           []ClosureProto
	ParamRegs        []uint16
	NamedParamRegs   []uint16
	NamedParamLayout []NamedParamLayoutEntry
	PatternPlans     []PatternPlan

	Code32 []uint32 // packed encoding; nil until BuildCode32 is called

	Analysis *FunctionAnalysis

	// Captures describes this Function's own free variables when it is
	// compiled as a capturing unit that is never wrapped in a ClosureProto
	// of its own — currently only named-parameter default-value thunks
	// (spec §4.3.2), which the VM invokes directly rather than through
	// MakeClosure. Ordinary closure bodies carry the same information on
	// their owning ClosureProto.Captures instead.
	Captures []CaptureSpec

	Name     string // empty for expression/statement wrappers
	Location string
}

// BuildCode32 populates f.Code32 from f.Code, enabling the packed-dispatch
// loop (spec §4.2.3, §6.2). Safe to call more than once; always re-derives
// from the authoritative logical stream.
func (f *Function) BuildCode32() {
	f.Code32 = EncodeFunction(f.Code)
}

// constEntry is one node of the dedup index: the Equal-bucket key a constant
// falls into, plus its assigned index. Ordered by (key, idx) so diagnostic
// dumps of a Function's constant pool come out in a stable, reproducible
// order instead of Go map iteration order.
type constEntry struct {
	key string
	idx int
}

func constEntryLess(a, b constEntry) bool {
	if a.key != b.key {
		return a.key < b.key
	}
	return a.idx < b.idx
}

// ConstPool deduplicates V insertions by structural equality, assigning each
// distinct value a stable kidx the first time it is seen (spec §3.2:
// "deduplicated on insert"). Grounded on scm/declare.go's declarations_hash
// dedup map, generalized from Scmer identity to value.Equal structural
// comparison since constants must dedup by value, not by container identity.
// The dedup index itself is a btree.BTreeG rather than a plain map, matching
// the teacher's table.go use of google/btree for ordered scans.
type ConstPool struct {
	values []V
	index  *btree.BTreeG[constEntry]
}

func NewConstPool() *ConstPool {
	return &ConstPool{index: btree.NewG(32, constEntryLess)}
}

// Intern returns the kidx for v, inserting it if this exact value has not
// been seen before.
func (p *ConstPool) Intern(v V) uint16 {
	key := constBucketKey(v)
	found := uint16(0)
	hit := false
	p.index.AscendRange(constEntry{key: key}, constEntry{key: key + "\x00"}, func(e constEntry) bool {
		if Equal(p.values[e.idx], v) {
			found, hit = uint16(e.idx), true
			return false
		}
		return true
	})
	if hit {
		return found
	}
	idx := len(p.values)
	p.values = append(p.values, v)
	p.index.ReplaceOrInsert(constEntry{key: key, idx: idx})
	return uint16(idx)
}

func (p *ConstPool) Values() []V { return p.values }

// OrderedKeys returns the dedup-bucket keys in sorted order, useful for
// golden-test dumps of a compiled Function's constant pool.
func (p *ConstPool) OrderedKeys() []string {
	var keys []string
	p.index.Ascend(func(e constEntry) bool {
		keys = append(keys, e.key)
		return true
	})
	return keys
}

func constBucketKey(v V) string {
	switch v.Kind() {
	case KindNil:
		return "n"
	case KindBool:
		if v.Bool() {
			return "b1"
		}
		return "b0"
	case KindInt:
		return "i:" + strconv.FormatInt(v.Int(), 10)
	case KindFloat:
		return "f:" + strconv.FormatUint(math.Float64bits(v.Float()), 10)
	case KindStr:
		return "s:" + v.Str()
	default:
		return "o"
	}
}
