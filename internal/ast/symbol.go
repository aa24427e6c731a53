package ast

import (
	"fmt"

	mast "github.com/google/mangle/ast"
)

// PredicateSym and FunctionSym are mangle's untyped symbol types,
// reused directly rather than reinvented: generate and ground both
// hand predicates to github.com/google/mangle/engine, which only
// knows these.
type PredicateSym = mast.PredicateSym
type FunctionSym = mast.FunctionSym

// DerivedKind tags a Predicate as either an ordinary vocabulary symbol
// (NONE) or one of the four three-valued bound predicates (CT/CF/PT/PF)
// that propagate.go and ground/lazy introduce to track certain-true,
// certain-false, possibly-true and possibly-false tuples of a parent
// predicate (spec §3, §4.3).
type DerivedKind int

const (
	// NONE marks an ordinary, user-declared predicate.
	NONE DerivedKind = iota
	// CT marks the certain-true bound predicate of its Parent.
	CT
	// CF marks the certain-false bound predicate of its Parent.
	CF
	// PT marks the possibly-true bound predicate of its Parent.
	PT
	// PF marks the possibly-false bound predicate of its Parent.
	PF
)

func (k DerivedKind) String() string {
	switch k {
	case NONE:
		return "NONE"
	case CT:
		return "CT"
	case CF:
		return "CF"
	case PT:
		return "PT"
	case PF:
		return "PF"
	default:
		return fmt.Sprintf("DerivedKind(%d)", int(k))
	}
}

// Predicate is a vocabulary predicate symbol: a name, an argument sort
// list fixing its arity, and an optional link back to the parent
// symbol it was derived from.
//
// Name is kept distinct from mangle's ast.PredicateSym: a Predicate
// additionally carries typed Sorts (mangle predicates are untyped at
// the ast layer, typed only via Decl), and the DerivedKind/Parent pair
// propagate.go needs. Symbol converts to the mangle form at the
// generate/ground boundary, where an untyped PredicateSym is what the
// engine package actually consumes.
type Predicate struct {
	Name  string
	Sorts []*Sort

	Kind   DerivedKind
	Parent *Predicate
}

// Arity is the number of arguments Sorts fixes.
func (p *Predicate) Arity() int { return len(p.Sorts) }

func (p *Predicate) String() string { return p.Name }

// Symbol returns the untyped mangle predicate symbol equivalent to p,
// for use at the generate/ground boundary.
func (p *Predicate) Symbol() PredicateSym {
	return PredicateSym{Symbol: p.Name, Arity: p.Arity()}
}

// derivedName builds the conventional name IDP uses for a derived
// bound predicate, e.g. "ct_edge" for the CT bound of "edge".
func derivedName(kind DerivedKind, parent *Predicate) string {
	prefix := map[DerivedKind]string{CT: "ct_", CF: "cf_", PT: "pt_", PF: "pf_"}[kind]
	return prefix + parent.Name
}

// NewDerivedPredicate builds the kind-bound predicate of parent,
// sharing parent's sort list (the bound predicate has the same
// arguments as the predicate it bounds).
func NewDerivedPredicate(kind DerivedKind, parent *Predicate) *Predicate {
	return &Predicate{
		Name:   derivedName(kind, parent),
		Sorts:  parent.Sorts,
		Kind:   kind,
		Parent: parent,
	}
}

// Function is a vocabulary function symbol: argument sorts, a result
// sort, and whether it is partial (may be undefined on some inputs in
// its domain, spec §3's "(partial)" annotation).
type Function struct {
	Name    string
	Args    []*Sort
	Result  *Sort
	Partial bool
}

// Arity is the number of arguments Args fixes.
func (f *Function) Arity() int { return len(f.Args) }

func (f *Function) String() string { return f.Name }

// Symbol returns the untyped mangle function symbol equivalent to f.
func (f *Function) Symbol() FunctionSym {
	return FunctionSym{Symbol: f.Name, Arity: f.Arity()}
}

// AsPredicate views f as a (Arity()+1)-ary predicate relating
// arguments to results, the standard functions-as-predicates encoding
// used throughout grounding (spec §4.9, §4.10).
func (f *Function) AsPredicate() *Predicate {
	sorts := make([]*Sort, 0, f.Arity()+1)
	sorts = append(sorts, f.Args...)
	sorts = append(sorts, f.Result)
	return &Predicate{Name: f.Name, Sorts: sorts}
}
