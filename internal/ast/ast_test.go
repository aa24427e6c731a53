package ast

import (
	"testing"

	mast "github.com/google/mangle/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumTable(t *testing.T) {
	tbl := NewEnumTable(mast.String("red"), mast.String("blue"), mast.String("red"))
	assert.True(t, tbl.Contains(mast.String("red")))
	assert.False(t, tbl.Contains(mast.String("green")))
	finite, known := tbl.Finite()
	assert.True(t, finite)
	assert.True(t, known)
	n, known := tbl.Size()
	assert.True(t, known)
	assert.Equal(t, 2, n, "duplicate element must be deduplicated")

	var seen []string
	tbl.Iterate(func(e DomainElement) bool {
		seen = append(seen, e.String())
		return true
	})
	assert.Len(t, seen, 2)
}

func TestRangeTable(t *testing.T) {
	tbl := &RangeTable{Lo: 0, Hi: 3}
	assert.True(t, tbl.Contains(mast.Number(0)))
	assert.True(t, tbl.Contains(mast.Number(3)))
	assert.False(t, tbl.Contains(mast.Number(4)))
	assert.False(t, tbl.Contains(mast.String("x")))
	n, known := tbl.Size()
	assert.True(t, known)
	assert.Equal(t, 4, n)

	var count int
	tbl.Iterate(func(DomainElement) bool { count++; return true })
	assert.Equal(t, 4, count)

	empty := &RangeTable{Lo: 5, Hi: 2}
	n, _ = empty.Size()
	assert.Equal(t, 0, n)
}

func TestUnionTable(t *testing.T) {
	a := NewEnumTable(mast.String("a"), mast.String("b"))
	b := NewEnumTable(mast.String("b"), mast.String("c"))
	u := &UnionTable{Components: []SortTable{a, b}}
	assert.True(t, u.Contains(mast.String("a")))
	assert.True(t, u.Contains(mast.String("c")))
	assert.False(t, u.Contains(mast.String("z")))
	n, known := u.Size()
	assert.True(t, known)
	assert.Equal(t, 3, n, "shared element b must not be double-counted")
}

func TestInfiniteTable(t *testing.T) {
	assert.True(t, SortInt.Table.Contains(mast.Number(5)))
	assert.False(t, SortInt.Table.Contains(mast.String("x")))
	finite, known := SortInt.Table.Finite()
	assert.False(t, finite)
	assert.True(t, known)
	_, known = SortInt.Table.Size()
	assert.False(t, known)
	assert.Panics(t, func() { SortInt.Table.Iterate(func(DomainElement) bool { return true }) })
}

func TestSortIsSubsort(t *testing.T) {
	nodeSort := &Sort{Name: "Node", Table: NewEnumTable(mast.String("n1"))}
	assert.True(t, SortIsSubsort(nodeSort, nodeSort))

	child := &Sort{Name: "Child", Table: NewEnumTable(mast.String("c1"))}
	union := &Sort{Name: "Parent", Table: &UnionTable{Components: []SortTable{child.Table}}}
	assert.True(t, SortIsSubsort(child, union))

	other := &Sort{Name: "Other", Table: NewEnumTable(mast.String("o1"))}
	assert.False(t, SortIsSubsort(other, union))
}

func TestVocabulary(t *testing.T) {
	v := NewVocabulary("V")
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"), mast.String("b"))}
	require.NoError(t, v.AddSort(node))
	assert.Error(t, v.AddSort(&Sort{Name: "Node", Table: NewEnumTable(mast.String("c"))}), "duplicate sort name must be rejected")

	got, ok := v.Sort("Node")
	require.True(t, ok)
	assert.Same(t, node, got)

	_, ok = v.Sort("Missing")
	assert.False(t, ok)

	edge := &Predicate{Name: "Edge", Sorts: []*Sort{node, node}}
	require.NoError(t, v.AddPredicate(edge))
	assert.Error(t, v.AddPredicate(&Predicate{Name: "Edge", Sorts: []*Sort{node}}))

	next := &Function{Name: "Next", Args: []*Sort{node}, Result: node}
	require.NoError(t, v.AddFunction(next))
	assert.Error(t, v.AddFunction(&Function{Name: "Next", Args: []*Sort{node}, Result: node}))

	gotPred, ok := v.Predicate("Edge")
	require.True(t, ok)
	assert.Same(t, edge, gotPred)

	gotFunc, ok := v.Function("Next")
	require.True(t, ok)
	assert.Same(t, next, gotFunc)

	assert.Len(t, v.Predicates(), 1)
	assert.Len(t, v.Functions(), 1)
}

func TestPredicateAndFunction(t *testing.T) {
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"))}
	edge := &Predicate{Name: "Edge", Sorts: []*Sort{node, node}}
	assert.Equal(t, 2, edge.Arity())
	assert.Equal(t, "Edge", edge.String())
	assert.Equal(t, "Edge", edge.Symbol().Symbol)
	assert.Equal(t, 2, edge.Symbol().Arity)

	next := &Function{Name: "Next", Args: []*Sort{node}, Result: node}
	assert.Equal(t, 1, next.Arity())
	fp := next.AsPredicate()
	assert.Equal(t, next.Arity()+1, fp.Arity(), "function-as-predicate must carry one extra column for the result")
}

func TestNewDerivedPredicate(t *testing.T) {
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"))}
	edge := &Predicate{Name: "Edge", Sorts: []*Sort{node, node}}
	ct := NewDerivedPredicate(CT, edge)
	assert.Equal(t, edge.Arity(), ct.Arity())
	assert.NotEqual(t, edge.Name, ct.Name)
}

func TestTermConstruction(t *testing.T) {
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"))}
	x := NewVariable("x", node)
	assert.Equal(t, "x", x.String())
	assert.Same(t, node, x.Sort())

	ct := NewConstTerm(mast.String("a"), node)
	v, ok := AsConst(ct)
	require.True(t, ok)
	assert.Equal(t, mast.String("a"), v)

	_, ok = AsConst(x)
	assert.False(t, ok, "a variable is not a constant term")
}

func TestFuncAppSort(t *testing.T) {
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"))}
	next := &Function{Name: "Next", Args: []*Sort{node}, Result: node}
	x := NewVariable("x", node)
	app := &FuncApp{Func: next, Args: []Term{x}}
	assert.Same(t, node, app.Sort())
}

func TestFormulaSignAndString(t *testing.T) {
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"))}
	edge := &Predicate{Name: "Edge", Sorts: []*Sort{node, node}}
	x := NewVariable("x", node)
	y := NewVariable("y", node)

	atom := &Atom{Sign: Pos, Pred: edge, Args: []Term{x, y}}
	assert.Equal(t, "Edge(x,y)", atom.String())
	assert.Equal(t, Neg, Pos.Flip())

	neg := &Atom{Sign: Neg, Pred: edge, Args: []Term{x, y}}
	assert.Equal(t, "~Edge(x,y)", neg.String())

	conj := &BoolForm{Sign: Pos, Op: Conj, Subforms: []Formula{atom, neg}}
	assert.Contains(t, conj.String(), "&")

	q := &Quantified{Sign: Pos, Quant: Forall, Vars: []*Variable{x}, Subform: atom}
	assert.Contains(t, q.String(), "!x")
}

func TestTheory(t *testing.T) {
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"))}
	v := NewVocabulary("V")
	require.NoError(t, v.AddSort(node))
	edge := &Predicate{Name: "Edge", Sorts: []*Sort{node, node}}
	require.NoError(t, v.AddPredicate(edge))

	th := NewTheory("T", v)
	x := NewVariable("x", node)
	y := NewVariable("y", node)
	atom := &Atom{Sign: Pos, Pred: edge, Args: []Term{x, y}}
	th.AddSentence(atom)
	assert.Len(t, th.Sentences(), 1)

	def := &Definition{ID: 1, Rules: []*Rule{{Head: atom, Body: nil}}}
	th.AddDefinition(def)
	assert.Len(t, th.Definitions(), 1)
	assert.Contains(t, def.DefinedPredicates(), edge)
}

func TestIsArithFunc(t *testing.T) {
	node := &Sort{Name: "Node", Table: NewEnumTable(mast.String("a"))}
	plain := &Function{Name: "Next", Args: []*Sort{node}, Result: node}
	assert.False(t, IsArithFunc(plain))
}

func TestPredForCompareOp(t *testing.T) {
	p := PredForCompareOp(CmpLT)
	require.NotNil(t, p)
	assert.Equal(t, "<", p.Name)
	assert.Same(t, PredEquals, PredForCompareOp(CmpEQ))
}
