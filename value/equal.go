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
	"fmt"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// strCollator gives Str ordering a stable default collation instead of raw
// byte compare (spec §3.1's "Str (lexical)"), matching the teacher's
// golang.org/x/text dependency. A Collator is not safe for concurrent use,
// and Str comparisons can run from multiple spawned tasks at once, so every
// call goes through collatorMu.
var (
	collatorMu sync.Mutex
	strCollator = collate.New(language.Und)
)

func compareStr(a, b string) Ordering {
	collatorMu.Lock()
	n := strCollator.CompareString(a, b)
	collatorMu.Unlock()
	switch {
	case n < 0:
		return Less
	case n > 0:
		return Greater
	default:
		return EqualOrd
	}
}

// Equal implements spec §3.1's structural equality: primitives and
// containers compare elementwise; Iterator and MutationGuard compare by
// identity. Grounded on scm/compare.go's tag-switch shape.
func Equal(a, b V) bool {
	if a.kind == KindNil || b.kind == KindNil {
		return a.kind == b.kind
	}
	if a.kind != b.kind {
		// Mixed numeric kinds still compare by value, matching the
		// teacher's Int/Float cross-kind equality in scm/compare.go.
		if a.kind == KindInt && b.kind == KindFloat {
			return float64(a.Int()) == b.Float()
		}
		if a.kind == KindFloat && b.kind == KindInt {
			return a.Float() == float64(b.Int())
		}
		return false
	}
	switch a.kind {
	case KindBool:
		return a.Bool() == b.Bool()
	case KindInt:
		return a.Int() == b.Int()
	case KindFloat:
		return a.Float() == b.Float()
	case KindStr:
		return a.Str() == b.Str()
	case KindList:
		as, bs := a.List(), b.List()
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !Equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	case KindMap:
		am, bm := a.Map(), b.Map()
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindObject:
		if a.ObjectType() != b.ObjectType() {
			return false
		}
		af, bf := a.ObjectFields(), b.ObjectFields()
		if len(af) != len(bf) {
			return false
		}
		for k, av := range af {
			bv, ok := bf[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case KindIterator, KindMutationGuard:
		return a.identity() == b.identity()
	case KindClosure:
		return a.identity() == b.identity()
	case KindTask:
		return a.TaskID() == b.TaskID()
	case KindChannel:
		return a.ChannelID() == b.ChannelID()
	default:
		return a.identity() == b.identity()
	}
}

// Ordering is the result of Compare.
type Ordering int

const (
	Less Ordering = iota - 1
	EqualOrd
	Greater
)

// ErrIncomparable is returned by Compare when the two kinds have no defined
// order between them (spec §3.1: "mixed kinds are incomparable").
type ErrIncomparable struct {
	A, B Kind
}

func (e ErrIncomparable) Error() string {
	return fmt.Sprintf("incomparable kinds: %s and %s", e.A, e.B)
}

// Compare implements spec §3.1's ordering: Int/Float (mixed via promotion),
// Str (lexical), List (lexical, elementwise).
func Compare(a, b V) (Ordering, error) {
	numeric := func(v V) (float64, bool) {
		switch v.kind {
		case KindInt:
			return float64(v.Int()), true
		case KindFloat:
			return v.Float(), true
		default:
			return 0, false
		}
	}
	if an, ok := numeric(a); ok {
		if bn, ok2 := numeric(b); ok2 {
			switch {
			case an < bn:
				return Less, nil
			case an > bn:
				return Greater, nil
			default:
				return EqualOrd, nil
			}
		}
		return 0, ErrIncomparable{a.kind, b.kind}
	}
	if a.kind == KindStr && b.kind == KindStr {
		return compareStr(a.Str(), b.Str()), nil
	}
	if a.kind == KindList && b.kind == KindList {
		as, bs := a.List(), b.List()
		n := len(as)
		if len(bs) < n {
			n = len(bs)
		}
		for i := 0; i < n; i++ {
			ord, err := Compare(as[i], bs[i])
			if err != nil {
				return 0, err
			}
			if ord != EqualOrd {
				return ord, nil
			}
		}
		switch {
		case len(as) < len(bs):
			return Less, nil
		case len(as) > len(bs):
			return Greater, nil
		default:
			return EqualOrd, nil
		}
	}
	return 0, ErrIncomparable{a.kind, b.kind}
}
