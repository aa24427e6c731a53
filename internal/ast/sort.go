// Package ast implements the concrete Theory/Formula/Term AST that
// spec §1 treats as an external collaborator ("specified only through
// the visitor contract it must support"). Nothing downstream
// (fobdd, propagate, generate, ground) can be built or tested without
// some concrete syntax tree, so idpgo owns one here, generalized from
// github.com/google/mangle/ast's Datalog atoms to full FO(.) formulas.
package ast

import (
	"fmt"
	"math"
	"sort"

	mast "github.com/google/mangle/ast"
)

// DomainElement is an atomic value. Reused directly from mangle's
// ast.Constant (SPEC_FULL §3) rather than reinvented: both are a
// tagged union over Number/Float/String/Name constants, exactly what
// spec's DomainElement needs.
type DomainElement = mast.Constant

// Sort is a type: a name plus a backing SortTable. Sorts are value
// types (compared by Name) so two Sort values naming the same
// vocabulary entry are interchangeable; the Vocabulary is the single
// owner of the canonical *Sort for each name.
type Sort struct {
	Name  string
	Table SortTable
}

func (s *Sort) String() string { return s.Name }

// SortTable is the interpretation of a Sort: an enumeration, a
// natural range, a union of other tables, or one of the built-ins.
// Finiteness may be approximate for infinite built-in sorts (spec §3).
type SortTable interface {
	// Contains reports whether e belongs to the table.
	Contains(e DomainElement) bool

	// Finite reports whether the table is known to be finite. The
	// second return is false when finiteness itself is unknown
	// (approximate, per spec §3).
	Finite() (finite bool, known bool)

	// Size returns the number of elements, or (0, false) if infinite
	// or unknown.
	Size() (n int, known bool)

	// Iterate calls visit once per element in a stable order,
	// stopping early if visit returns false. Iterate must not be
	// called on an infinite table without a caller-imposed bound.
	Iterate(visit func(DomainElement) bool)
}

// EnumTable is a finite SortTable backed by an explicit element list.
type EnumTable struct {
	elems []DomainElement
	index map[string]int
}

// NewEnumTable builds an EnumTable from elems, deduplicating and
// fixing an iteration order (insertion order, first occurrence wins).
func NewEnumTable(elems ...DomainElement) *EnumTable {
	t := &EnumTable{index: make(map[string]int, len(elems))}
	for _, e := range elems {
		k := e.String()
		if _, ok := t.index[k]; ok {
			continue
		}
		t.index[k] = len(t.elems)
		t.elems = append(t.elems, e)
	}
	return t
}

func (t *EnumTable) Contains(e DomainElement) bool {
	_, ok := t.index[e.String()]
	return ok
}

func (t *EnumTable) Finite() (bool, bool) { return true, true }

func (t *EnumTable) Size() (int, bool) { return len(t.elems), true }

func (t *EnumTable) Iterate(visit func(DomainElement) bool) {
	for _, e := range t.elems {
		if !visit(e) {
			return
		}
	}
}

// RangeTable is a finite SortTable over a contiguous integer range
// [Lo, Hi], matching IDP's natural-range sort tables.
type RangeTable struct {
	Lo, Hi int64
}

func (t *RangeTable) Contains(e DomainElement) bool {
	n, ok := asInt(e)
	if !ok {
		return false
	}
	return n >= t.Lo && n <= t.Hi
}

// asInt extracts the integer value of a NumberType constant.
func asInt(e DomainElement) (int64, bool) {
	if e.Type != mast.NumberType {
		return 0, false
	}
	return e.NumValue, true
}

// asFloat extracts the float64 value of a Float64Type constant, which
// mangle stores bit-packed in NumValue.
func asFloat(e DomainElement) (float64, bool) {
	if e.Type != mast.Float64Type {
		return 0, false
	}
	return math.Float64frombits(uint64(e.NumValue)), true
}

func (t *RangeTable) Finite() (bool, bool) { return true, true }

func (t *RangeTable) Size() (int, bool) {
	if t.Hi < t.Lo {
		return 0, true
	}
	return int(t.Hi-t.Lo) + 1, true
}

func (t *RangeTable) Iterate(visit func(DomainElement) bool) {
	for v := t.Lo; v <= t.Hi; v++ {
		if !visit(mast.Number(v)) {
			return
		}
	}
}

// UnionTable is the union of a set of component tables, matching
// spec §3's "union" sort table kind.
type UnionTable struct {
	Components []SortTable
}

func (t *UnionTable) Contains(e DomainElement) bool {
	for _, c := range t.Components {
		if c.Contains(e) {
			return true
		}
	}
	return false
}

func (t *UnionTable) Finite() (bool, bool) {
	for _, c := range t.Components {
		finite, known := c.Finite()
		if !known {
			return false, false
		}
		if !finite {
			return false, true
		}
	}
	return true, true
}

func (t *UnionTable) Size() (int, bool) {
	total := 0
	seen := make(map[string]bool)
	for _, c := range t.Components {
		finite, known := c.Finite()
		if !known || !finite {
			return 0, false
		}
		c.Iterate(func(e DomainElement) bool {
			k := e.String()
			if !seen[k] {
				seen[k] = true
				total++
			}
			return true
		})
	}
	return total, true
}

func (t *UnionTable) Iterate(visit func(DomainElement) bool) {
	seen := make(map[string]bool)
	for _, c := range t.Components {
		stop := false
		c.Iterate(func(e DomainElement) bool {
			k := e.String()
			if seen[k] {
				return true
			}
			seen[k] = true
			if !visit(e) {
				stop = true
				return false
			}
			return true
		})
		if stop {
			return
		}
	}
}

// InfiniteTable represents a built-in infinite sort (Int, Nat, Float,
// String, Char universes) whose membership test is a type predicate
// rather than an enumeration. Finiteness is reported as known-false;
// Size and Iterate are unusable and exist only to satisfy SortTable.
type InfiniteTable struct {
	Name    string
	Member  func(DomainElement) bool
}

func (t *InfiniteTable) Contains(e DomainElement) bool { return t.Member(e) }

func (t *InfiniteTable) Finite() (bool, bool) { return false, true }

func (t *InfiniteTable) Size() (int, bool) { return 0, false }

func (t *InfiniteTable) Iterate(func(DomainElement) bool) {
	panic(fmt.Sprintf("ast: cannot Iterate over infinite sort table %q", t.Name))
}

// Built-in infinite sorts, shared across vocabularies.
var (
	SortInt = &Sort{Name: "int", Table: &InfiniteTable{
		Name: "int",
		Member: func(e DomainElement) bool { _, ok := asInt(e); return ok },
	}}
	SortFloat = &Sort{Name: "float", Table: &InfiniteTable{
		Name: "float",
		Member: func(e DomainElement) bool { _, ok := asFloat(e); return ok },
	}}
	SortString = &Sort{Name: "string", Table: &InfiniteTable{
		Name: "string",
		Member: func(e DomainElement) bool { return e.Type == mast.StringType },
	}}
)

// SortIsSubsort reports whether child's table is known to be a
// subset of parent's table, used by the generator factory's
// EQUAL/PARENT/CHILD/UNKNOWN classification (spec §4.4).
func SortIsSubsort(child, parent *Sort) bool {
	if child == parent || child.Name == parent.Name {
		return true
	}
	if u, ok := parent.Table.(*UnionTable); ok {
		for _, c := range u.Components {
			if c == child.Table {
				return true
			}
		}
	}
	return false
}

// sortedNames is a small helper used by Vocabulary.String for
// deterministic output.
func sortedNames(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
