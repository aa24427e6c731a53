package generate

import (
	"testing"

	mast "github.com/google/mangle/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iast "idpgo/internal/ast"
	"idpgo/internal/fobdd"
	"idpgo/internal/fobdd/cost"
	"idpgo/internal/structure"
)

func TestClassifySortEqual(t *testing.T) {
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable()}
	assert.Equal(t, RelEqual, classifySort(node, node))
}

// TestClassifySortParent exercises a symbol declared over a union
// sort whose domain admits more than the generation-site variable's
// own (sub)sort — GeneratorFactory::create's PARENT case.
func TestClassifySortParent(t *testing.T) {
	child := &iast.Sort{Name: "Child", Table: iast.NewEnumTable(mast.String("a"))}
	parent := &iast.Sort{Name: "Parent", Table: &iast.UnionTable{Components: []iast.SortTable{child.Table}}}
	assert.Equal(t, RelParent, classifySort(parent, child))
}

func TestClassifySortChild(t *testing.T) {
	child := &iast.Sort{Name: "Child", Table: iast.NewEnumTable(mast.String("a"))}
	parent := &iast.Sort{Name: "Parent", Table: &iast.UnionTable{Components: []iast.SortTable{child.Table}}}
	assert.Equal(t, RelChild, classifySort(child, parent))
}

func TestClassifySortUnknown(t *testing.T) {
	a := &iast.Sort{Name: "A", Table: iast.NewEnumTable()}
	b := &iast.Sort{Name: "B", Table: iast.NewEnumTable()}
	assert.Equal(t, RelUnknown, classifySort(a, b))
}

// TestForAtomKernelWrapsParentSort confirms ForAtomKernel wraps the
// output variable of an atom whose declared sort is a strict parent of
// the generation-site variable's own sort with a SortChecker filter,
// so values outside the narrower sort never escape.
func TestForAtomKernelWrapsParentSort(t *testing.T) {
	child := &iast.Sort{Name: "Child", Table: iast.NewEnumTable(mast.String("a"), mast.String("b"))}
	parent := &iast.Sort{Name: "Parent", Table: &iast.UnionTable{Components: []iast.SortTable{child.Table}}}

	pred := &iast.Predicate{Name: "P", Sorts: []*iast.Sort{parent}}
	pi := structure.NewPredicateInterpretation(pred)
	pi.SetCT([]iast.DomainElement{mast.String("a")})
	pi.SetCT([]iast.DomainElement{mast.String("c")}) // outside child's own domain

	x := iast.NewVariable("x", child)
	atom := &iast.Atom{Sign: iast.Pos, Pred: pred, Args: []iast.Term{x}}

	st := structure.NewStructure(iast.NewVocabulary("test"))
	st.Predicates[pred.Name] = pi
	f := NewFactory(st)

	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Output}, func(int) *iast.Variable { return x })
	b := Bindings{}
	gen.Reset(b)
	var got []string
	for gen.Next(b) {
		got = append(got, b[x].String())
	}
	assert.Equal(t, []string{"a"}, got, "the out-of-child-domain tuple must be filtered by the SortChecker wrap")
}

// TestOrderByCostSortsAscending confirms OrderByCost ranks a
// single-atom BDD ahead of a conjunction of two atoms: EstimateCostAll
// scales with the BDD's own node count, so the smaller diagram must
// sort first regardless of node order on input.
func TestOrderByCostSortsAscending(t *testing.T) {
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable(mast.String("a"), mast.String("b"))}
	x := iast.NewVariable("x", node)
	pSorts := []*iast.Sort{node}
	p := &iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "P", Sorts: pSorts}, Args: []iast.Term{x}}
	q := &iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "Q", Sorts: pSorts}, Args: []iast.Term{x}}

	m := fobdd.NewManager()
	small := m.FromAtom(p)
	big := m.Conjunction(m.FromAtom(p), m.FromAtom(q))

	st := structure.NewStructure(iast.NewVocabulary("test"))
	st.Predicates[p.Pred.Name] = structure.NewPredicateInterpretation(p.Pred)
	st.Predicates[q.Pred.Name] = structure.NewPredicateInterpretation(q.Pred)

	f := NewFactory(st)
	f.Estimator = cost.NewEstimator(st, m)

	nodes := []*fobdd.Node{big, small}
	f.OrderByCost(nodes, 10, 1)
	assert.Same(t, small, nodes[0], "the smaller BDD must sort first")
}

func TestOrderByCostNilEstimatorNoop(t *testing.T) {
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable(mast.String("a"))}
	x := iast.NewVariable("x", node)
	p := &iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "P", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}}
	m := fobdd.NewManager()
	pNode := m.FromAtom(p)
	nodes := []*fobdd.Node{pNode, pNode}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	f.OrderByCost(nodes, 1, 1)
	assert.Same(t, pNode, nodes[0])
}

func intVar(name string) *iast.Variable { return iast.NewVariable(name, iast.SortInt) }

func indexOf(vars ...*iast.Variable) func(int) *iast.Variable {
	return func(i int) *iast.Variable { return vars[i] }
}

// TestForPlainComparisonVarVsConstOutput exercises "x < 5" with x
// free: a ComparisonGenerator restricted to SortInt's matches.
func TestForPlainComparisonVarVsConstOutput(t *testing.T) {
	x := intVar("x")
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredForCompareOp(iast.CmpLT),
		Args: []iast.Term{&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt}, iast.NewConstTerm(mast.Number(5), iast.SortInt)}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Output, Input}, indexOf(x))
	require.NotNil(t, gen)

	cg, ok := gen.(*ComparisonGenerator)
	require.True(t, ok, "expected a bare ComparisonGenerator, got %T", gen)
	assert.Equal(t, iast.CmpLT, cg.Op)
	assert.Equal(t, x, cg.Var)
}

// TestForPlainComparisonBoundVsConst exercises "x < 5" with x already
// bound: a checkerFilter testing the bound value instead.
func TestForPlainComparisonBoundVsConst(t *testing.T) {
	x := intVar("x")
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredForCompareOp(iast.CmpLT),
		Args: []iast.Term{&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt}, iast.NewConstTerm(mast.Number(5), iast.SortInt)}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Input, Input}, indexOf(x))

	b := Bindings{x: mast.Number(3)}
	gen.Reset(b)
	assert.True(t, gen.Next(b))

	b2 := Bindings{x: mast.Number(7)}
	gen2 := gen.Clone()
	gen2.Reset(b2)
	assert.False(t, gen2.Next(b2))
}

// TestForPlainComparisonBothOutput exercises "x < y" with both free:
// a FullGenerator over x nested with a boundComparisonGenerator over y.
func TestForPlainComparisonBothOutput(t *testing.T) {
	sort := &iast.Sort{Name: "Small", Table: iast.NewEnumTable(mast.Number(1), mast.Number(2), mast.Number(3))}
	x := iast.NewVariable("x", sort)
	y := iast.NewVariable("y", sort)
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredForCompareOp(iast.CmpLT),
		Args: []iast.Term{&iast.IndexTerm{Index: 0, IndexSort: sort}, &iast.IndexTerm{Index: 1, IndexSort: sort}}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Output, Output}, indexOf(x, y))
	b := Bindings{}
	gen.Reset(b)
	var pairs [][2]int64
	for gen.Next(b) {
		pairs = append(pairs, [2]int64{b[x].NumValue, b[y].NumValue})
	}
	for _, p := range pairs {
		assert.Less(t, p[0], p[1])
	}
	assert.NotEmpty(t, pairs)
}

// TestForPlainComparisonVarVsVarBothBound exercises "x < y" with both
// already bound: a checkerFilter wrapping varCompareChecker.
func TestForPlainComparisonVarVsVarBothBound(t *testing.T) {
	x, y := intVar("x"), intVar("y")
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredForCompareOp(iast.CmpLT),
		Args: []iast.Term{&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt}, &iast.IndexTerm{Index: 1, IndexSort: iast.SortInt}}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Input, Input}, indexOf(x, y))

	b := Bindings{x: mast.Number(1), y: mast.Number(2)}
	gen.Reset(b)
	assert.True(t, gen.Next(b))

	b2 := Bindings{x: mast.Number(5), y: mast.Number(2)}
	gen2 := gen.Clone()
	gen2.Reset(b2)
	assert.False(t, gen2.Next(b2))
}

// TestForFuncEqualityForward exercises "y = x + 3" with y the sole
// output: SimpleFuncGenerator reached through the preset-constant path.
func TestForFuncEqualityForward(t *testing.T) {
	x, y := intVar("x"), intVar("y")
	sum := &iast.FuncApp{Func: iast.FuncPlus, Args: []iast.Term{
		&iast.IndexTerm{Index: 1, IndexSort: iast.SortInt},
		iast.NewConstTerm(mast.Number(3), iast.SortInt),
	}}
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredEquals,
		Args: []iast.Term{&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt}, sum}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Output, Input}, indexOf(y, x))

	b := Bindings{x: mast.Number(4)}
	gen.Reset(b)
	require.True(t, gen.Next(b))
	assert.Equal(t, int64(7), b[y].NumValue)
}

// TestForFuncEqualityInverseMinus exercises "y - 3 = z" with y free
// and z bound: MinusGenerator inverting to y = z + 3.
func TestForFuncEqualityInverseMinus(t *testing.T) {
	y, z := intVar("y"), intVar("z")
	diff := &iast.FuncApp{Func: iast.FuncMinus, Args: []iast.Term{
		&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt},
		iast.NewConstTerm(mast.Number(3), iast.SortInt),
	}}
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredEquals,
		Args: []iast.Term{diff, &iast.IndexTerm{Index: 1, IndexSort: iast.SortInt}}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Output, Input}, indexOf(y, z))

	b := Bindings{z: mast.Number(4)}
	gen.Reset(b)
	require.True(t, gen.Next(b))
	assert.Equal(t, int64(7), b[y].NumValue)
}

// TestForFuncEqualityNestedFuncAppIsEmpty confirms an atom nesting a
// function application more than one level deep falls back to
// EmptyGenerator rather than being mishandled.
func TestForFuncEqualityNestedFuncAppIsEmpty(t *testing.T) {
	x, y := intVar("x"), intVar("y")
	inner := &iast.FuncApp{Func: iast.FuncAbs, Args: []iast.Term{&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt}}}
	outer := &iast.FuncApp{Func: iast.FuncPlus, Args: []iast.Term{inner, iast.NewConstTerm(mast.Number(1), iast.SortInt)}}
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredEquals,
		Args: []iast.Term{&iast.IndexTerm{Index: 1, IndexSort: iast.SortInt}, outer}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Output, Input}, indexOf(y, x))
	_, isEmpty := gen.(*EmptyGenerator)
	assert.True(t, isEmpty)
}

// TestForFuncEqualityFullyBound exercises "x + y = z" with all three
// variables already bound: the fully-bound PlusChecker path rather
// than either generator direction.
func TestForFuncEqualityFullyBound(t *testing.T) {
	x, y, z := intVar("x"), intVar("y"), intVar("z")
	sum := &iast.FuncApp{Func: iast.FuncPlus, Args: []iast.Term{
		&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt},
		&iast.IndexTerm{Index: 1, IndexSort: iast.SortInt},
	}}
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredEquals,
		Args: []iast.Term{&iast.IndexTerm{Index: 2, IndexSort: iast.SortInt}, sum}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Input, Input, Input}, indexOf(x, y, z))

	ok := Bindings{x: mast.Number(2), y: mast.Number(3), z: mast.Number(5)}
	gen.Reset(ok)
	assert.True(t, gen.Next(ok), "2+3=5 must check out")

	bad := Bindings{x: mast.Number(2), y: mast.Number(3), z: mast.Number(6)}
	gen2 := gen.Clone()
	gen2.Reset(bad)
	assert.False(t, gen2.Next(bad), "2+3=6 must fail the check")
}

// TestForComparisonAtomNonEqualityFuncSideIsEmpty confirms a
// non-equality comparison with a function-application operand ("x+y <
// 5") is out of scope and yields EmptyGenerator.
func TestForComparisonAtomNonEqualityFuncSideIsEmpty(t *testing.T) {
	x, y := intVar("x"), intVar("y")
	sum := &iast.FuncApp{Func: iast.FuncPlus, Args: []iast.Term{
		&iast.IndexTerm{Index: 0, IndexSort: iast.SortInt},
		&iast.IndexTerm{Index: 1, IndexSort: iast.SortInt},
	}}
	atom := &iast.Atom{Sign: iast.Pos, Pred: iast.PredForCompareOp(iast.CmpLT),
		Args: []iast.Term{sum, iast.NewConstTerm(mast.Number(5), iast.SortInt)}}

	f := NewFactory(structure.NewStructure(iast.NewVocabulary("test")))
	m := fobdd.NewManager()
	k := m.AtomKernel(atom)

	gen := f.ForAtomKernel(k, Pattern{Input, Input}, indexOf(x, y))
	_, isEmpty := gen.(*EmptyGenerator)
	assert.True(t, isEmpty)
}
