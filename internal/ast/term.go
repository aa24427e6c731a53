package ast

import (
	"fmt"
	"strings"

	mast "github.com/google/mangle/ast"
)

// Term is any FO(.) term: a Variable, a DomainElement, a function
// application, an aggregate term, or a set term (spec §3's term
// grammar). The visitor contract (visitor.go) is the only thing
// downstream packages may depend on; switching on the concrete type
// is reserved for fobdd/visit and ground, which must exhaustively
// handle every case.
type Term interface {
	fmt.Stringer
	Sort() *Sort
	isTerm()
}

// Variable is a bound or free first-order variable. Variables are
// compared by pointer identity, not Name, so alpha-renaming during
// BDD construction (spec §4.1's de Bruijn indices) never confuses two
// variables that happen to share a name.
type Variable struct {
	Name    string
	VarSort *Sort
}

func NewVariable(name string, sort *Sort) *Variable { return &Variable{Name: name, VarSort: sort} }

func (v *Variable) String() string { return v.Name }
func (v *Variable) Sort() *Sort    { return v.VarSort }
func (*Variable) isTerm()          {}

// domainElementSort maps a DomainElement's mangle ConstantType to the
// built-in Sort that classifies it. Structure-declared enumerated
// sorts are assigned at the call site (term construction from a
// parsed literal does not know the intended sort), so this is only
// ever a default.
func domainElementSort(e DomainElement) *Sort {
	switch e.Type {
	case mast.NumberType:
		return SortInt
	case mast.Float64Type:
		return SortFloat
	default:
		return SortString
	}
}

// constTerm wraps a DomainElement so it satisfies Term.
type constTerm struct {
	Value DomainElement
	CSort *Sort
}

// NewConstTerm builds the term for a literal domain element. If sort
// is nil, the element's natural built-in sort is inferred.
func NewConstTerm(e DomainElement, sort *Sort) Term {
	if sort == nil {
		sort = domainElementSort(e)
	}
	return &constTerm{Value: e, CSort: sort}
}

func (c *constTerm) String() string { return c.Value.String() }
func (c *constTerm) Sort() *Sort    { return c.CSort }
func (*constTerm) isTerm()          {}

// AsConst reports whether t is a ground constant term, and its value
// if so. Exists because constTerm is unexported: packages outside ast
// that need to tell a constant apart from a Variable/FuncApp (e.g.
// propagate's leaf seeding, ground's AtomGrounder) go through this
// rather than a type assertion to an unexported type.
func AsConst(t Term) (DomainElement, bool) {
	c, ok := t.(*constTerm)
	if !ok {
		return DomainElement{}, false
	}
	return c.Value, true
}

// IndexTerm is a De Bruijn-indexed bound variable reference used only
// inside fobdd.Kernel arguments: index 0 is the variable bound by the
// nearest enclosing quantification kernel, 1 the next, and so on
// (spec §4.1's "de Bruijn indices" requirement). It lives in this
// package, rather than fobdd, because Term's marker method is
// unexported and can only be implemented here.
type IndexTerm struct {
	Index     int
	IndexSort *Sort
}

func (t *IndexTerm) String() string { return fmt.Sprintf("$%d", t.Index) }
func (t *IndexTerm) Sort() *Sort    { return t.IndexSort }
func (*IndexTerm) isTerm()          {}

// FuncApp is a function application term f(args...), spec §3's
// "function applications (total or, for partial functions, only
// within their domain)".
type FuncApp struct {
	Func *Function
	Args []Term
}

func (f *FuncApp) String() string {
	parts := make([]string, len(f.Args))
	for i, a := range f.Args {
		parts[i] = a.String()
	}
	return f.Func.Name + "(" + strings.Join(parts, ",") + ")"
}
func (f *FuncApp) Sort() *Sort { return f.Func.Result }
func (*FuncApp) isTerm()       {}

// AggFunction names the aggregate function an AggTerm computes, per
// spec §3's "cardinality, sum, product, min, max" list.
type AggFunction int

const (
	AggCard AggFunction = iota
	AggSum
	AggProd
	AggMin
	AggMax
)

func (f AggFunction) String() string {
	return [...]string{"card", "sum", "prod", "min", "max"}[f]
}

// AggTerm is an aggregate term: a function applied to the multiset of
// values a SetTerm ranges over (spec §3, §4.9's "aggregate
// expressions").
type AggTerm struct {
	Function AggFunction
	Set      *SetTerm
}

func (a *AggTerm) String() string { return fmt.Sprintf("%s(%s)", a.Function, a.Set) }
func (a *AggTerm) Sort() *Sort {
	if a.Function == AggCard {
		return SortInt
	}
	return a.Set.Weight.Sort()
}
func (*AggTerm) isTerm() {}

// SetTerm is a quantified or enumerated set of (tuple, weight) pairs
// underlying an AggTerm: { Vars : Condition : Weight }, spec §3's set
// term grammar covering both quantified sets and explicit
// enumerations (the enumerated case has an empty Vars/Condition and a
// fixed Elements list instead).
type SetTerm struct {
	Vars      []*Variable
	Condition Formula
	Weight    Term

	// Elements holds the explicit (tuple, weight) pairs of an
	// enumerated set term; nil for a quantified set term.
	Elements []SetElement
}

// SetElement is one (tuple, weight) pair of an enumerated SetTerm.
type SetElement struct {
	Tuple  []Term
	Weight Term
}

func (s *SetTerm) String() string {
	if s.Elements != nil {
		return fmt.Sprintf("{...%d elements...}", len(s.Elements))
	}
	names := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		names[i] = v.Name
	}
	return fmt.Sprintf("{%s : %s : %s}", strings.Join(names, ","), s.Condition, s.Weight)
}
