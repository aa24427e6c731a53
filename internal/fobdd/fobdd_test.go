package fobdd

import (
	"testing"

	mast "github.com/google/mangle/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iast "idpgo/internal/ast"
)

func TestManagerLeaves(t *testing.T) {
	m := NewManager()
	assert.True(t, m.True().IsTrue())
	assert.True(t, m.False().IsFalse())
	assert.NotSame(t, m.True(), m.False())
}

func TestFromAtomHashConsing(t *testing.T) {
	m := NewManager()
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable()}
	x := iast.NewVariable("x", node)
	p := &iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "P", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}}
	negP := &iast.Atom{Sign: iast.Neg, Pred: p.Pred, Args: []iast.Term{x}}

	n1 := m.FromAtom(p)
	n2 := m.FromAtom(p)
	assert.Same(t, n1, n2, "identical atoms must hash-cons to the same node")

	k1 := m.AtomKernel(p)
	k2 := m.AtomKernel(negP)
	assert.Same(t, k1, k2, "sign must be canonicalized out of kernel identity")

	neg := m.FromAtom(negP)
	assert.Same(t, m.Negate(n1), neg)
}

func TestNegateInvolution(t *testing.T) {
	m := NewManager()
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable()}
	x := iast.NewVariable("x", node)
	p := &iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "P", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}}
	n := m.FromAtom(p)
	assert.Same(t, n, m.Negate(m.Negate(n)))
	assert.Same(t, m.False(), m.Negate(m.True()))
	assert.Same(t, m.True(), m.Negate(m.False()))
}

func TestConjunctionDisjunction(t *testing.T) {
	m := NewManager()
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable()}
	x := iast.NewVariable("x", node)
	p := m.FromAtom(&iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "P", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}})
	q := m.FromAtom(&iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "Q", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}})

	assert.Same(t, m.True(), m.Conjunction(m.True(), m.True()))
	assert.Same(t, m.False(), m.Conjunction(p, m.False()))
	assert.Same(t, p, m.Conjunction(p, m.True()))
	assert.Same(t, m.True(), m.Disjunction(p, m.Negate(p)), "p | ~p is a tautology")
	assert.Same(t, m.False(), m.Conjunction(p, m.Negate(p)), "p & ~p is unsatisfiable")

	// Conjunction/Disjunction must be commutative up to hash-consing.
	assert.Same(t, m.Conjunction(p, q), m.Conjunction(q, p))
	assert.Same(t, m.Disjunction(p, q), m.Disjunction(q, p))
}

func TestConjunctionAllDisjunctionAllEmpty(t *testing.T) {
	m := NewManager()
	assert.Same(t, m.True(), m.ConjunctionAll())
	assert.Same(t, m.False(), m.DisjunctionAll())
}

func TestIfThenElse(t *testing.T) {
	m := NewManager()
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable()}
	x := iast.NewVariable("x", node)
	cond := m.FromAtom(&iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "P", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}})
	assert.Same(t, m.True(), m.IfThenElse(cond, m.True(), m.True()))
	assert.Same(t, cond, m.IfThenElse(cond, m.True(), m.False()))
}

func TestFromFormulaAtomAndBoolForm(t *testing.T) {
	m := NewManager()
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable()}
	// FromFormula takes closed formulas only, so the atoms are over a constant.
	a := iast.NewConstTerm(mast.String("a"), node)
	pPred := &iast.Predicate{Name: "P", Sorts: []*iast.Sort{node}}
	qPred := &iast.Predicate{Name: "Q", Sorts: []*iast.Sort{node}}
	pAtom := &iast.Atom{Sign: iast.Pos, Pred: pPred, Args: []iast.Term{a}}
	qAtom := &iast.Atom{Sign: iast.Pos, Pred: qPred, Args: []iast.Term{a}}

	conj := &iast.BoolForm{Sign: iast.Pos, Op: iast.Conj, Subforms: []iast.Formula{pAtom, qAtom}}
	n, err := m.FromFormula(conj)
	require.NoError(t, err)
	assert.Same(t, n, m.Conjunction(m.FromAtom(pAtom), m.FromAtom(qAtom)))

	negConj := &iast.BoolForm{Sign: iast.Neg, Op: iast.Conj, Subforms: []iast.Formula{pAtom, qAtom}}
	n2, err := m.FromFormula(negConj)
	require.NoError(t, err)
	assert.Same(t, m.Negate(n), n2)
}
