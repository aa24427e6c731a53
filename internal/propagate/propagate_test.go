package propagate

import (
	"testing"

	mast "github.com/google/mangle/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iast "idpgo/internal/ast"
	"idpgo/internal/fobdd"
	"idpgo/internal/idperr"
	"idpgo/internal/structure"
)

func TestBoolConnectorConjunction(t *testing.T) {
	p := NewLeafConnector(&fobdd.AtomKernel{})
	q := NewLeafConnector(&fobdd.AtomKernel{})
	conj := NewBoolConnector(true, p, q)

	assert.Equal(t, Unknown, conj.PropagateUp())
	p.SetBound(True)
	assert.Equal(t, Unknown, conj.PropagateUp(), "one unknown child keeps a conjunction unknown")
	q.SetBound(True)
	assert.Equal(t, True, conj.PropagateUp())

	r := NewLeafConnector(&fobdd.AtomKernel{})
	s := NewLeafConnector(&fobdd.AtomKernel{})
	conj2 := NewBoolConnector(true, r, s)
	r.SetBound(False)
	assert.Equal(t, False, conj2.PropagateUp(), "any false child makes a conjunction false regardless of the rest")
}

func TestBoolConnectorDisjunction(t *testing.T) {
	p := NewLeafConnector(&fobdd.AtomKernel{})
	q := NewLeafConnector(&fobdd.AtomKernel{})
	disj := NewBoolConnector(false, p, q)

	assert.Equal(t, Unknown, disj.PropagateUp())
	p.SetBound(True)
	assert.Equal(t, True, disj.PropagateUp(), "any true child makes a disjunction true")

	r := NewLeafConnector(&fobdd.AtomKernel{})
	s := NewLeafConnector(&fobdd.AtomKernel{})
	disj2 := NewBoolConnector(false, r, s)
	r.SetBound(False)
	s.SetBound(False)
	assert.Equal(t, False, disj2.PropagateUp())
}

func TestBoolConnectorPropagateDown(t *testing.T) {
	p := NewLeafConnector(&fobdd.AtomKernel{})
	q := NewLeafConnector(&fobdd.AtomKernel{})
	conj := NewBoolConnector(true, p, q)
	conj.SetBound(True)
	conj.PropagateDown()
	assert.Equal(t, True, p.Bound())
	assert.Equal(t, True, q.Bound())

	r := NewLeafConnector(&fobdd.AtomKernel{})
	s := NewLeafConnector(&fobdd.AtomKernel{})
	disj := NewBoolConnector(false, r, s)
	disj.SetBound(False)
	disj.PropagateDown()
	assert.Equal(t, False, r.Bound())
	assert.Equal(t, False, s.Bound())
}

func TestSetBoundNoopReturnsFalse(t *testing.T) {
	lc := NewLeafConnector(&fobdd.AtomKernel{})
	assert.True(t, lc.SetBound(True))
	assert.False(t, lc.SetBound(True), "re-setting the same bound must report no change")
}

func TestSchedulerPropagatesToFixpoint(t *testing.T) {
	p := NewLeafConnector(&fobdd.AtomKernel{})
	q := NewLeafConnector(&fobdd.AtomKernel{})
	conj := NewBoolConnector(true, p, q)
	p.SetBound(True)
	q.SetBound(True)

	sched := NewScheduler([]Connector{conj, p, q})
	steps, conflict := sched.Run(0)
	assert.False(t, conflict)
	assert.Greater(t, steps, 0)
	assert.Equal(t, True, conj.Bound())
}

func testStructureForPropagate(t *testing.T) (*iast.Vocabulary, *structure.Structure, *iast.Predicate, *iast.Variable) {
	t.Helper()
	v := iast.NewVocabulary("V")
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable(mast.String("a"), mast.String("b"))}
	require.NoError(t, v.AddSort(node))
	edge := &iast.Predicate{Name: "Edge", Sorts: []*iast.Sort{node, node}}
	require.NoError(t, v.AddPredicate(edge))
	s := structure.NewStructure(v)
	x := iast.NewVariable("x", node)
	return v, s, edge, x
}

func TestBuildAndPropagateSeedsFromStructure(t *testing.T) {
	_, s, edge, _ := testStructureForPropagate(t)

	pi, _ := s.Predicate("Edge")
	pi.SetCT([]iast.DomainElement{mast.String("a"), mast.String("b")})

	m := fobdd.NewManager()
	ground := &iast.Atom{Sign: iast.Pos, Pred: edge, Args: []iast.Term{
		iast.NewConstTerm(mast.String("a"), edge.Sorts[0]),
		iast.NewConstTerm(mast.String("b"), edge.Sorts[1]),
	}}
	n := m.FromAtom(ground)

	root, leaves := Build(n, s)
	assert.Len(t, leaves, 1)
	for _, lc := range leaves {
		assert.Equal(t, True, lc.Bound(), "leaf must be seeded true from the structure's recorded ct fact")
	}
	assert.Equal(t, True, root.PropagateUp())
}

func TestPropagateWritesBackAndReportsUnsat(t *testing.T) {
	_, s, edge, _ := testStructureForPropagate(t)
	pi, _ := s.Predicate("Edge")
	pi.SetCT([]iast.DomainElement{mast.String("a"), mast.String("b")})

	m := fobdd.NewManager()
	ground := &iast.Atom{Sign: iast.Pos, Pred: edge, Args: []iast.Term{
		iast.NewConstTerm(mast.String("a"), edge.Sorts[0]),
		iast.NewConstTerm(mast.String("b"), edge.Sorts[1]),
	}}
	n := m.FromAtom(ground)
	require.NoError(t, Propagate(n, s, 0))
	assert.True(t, pi.IsCT([]iast.DomainElement{mast.String("a"), mast.String("b")}))

	negGround := &iast.Atom{Sign: iast.Neg, Pred: edge, Args: []iast.Term{
		iast.NewConstTerm(mast.String("a"), edge.Sorts[0]),
		iast.NewConstTerm(mast.String("b"), edge.Sorts[1]),
	}}
	n2 := m.FromAtom(negGround)
	err := Propagate(n2, s, 0)
	require.Error(t, err)
	assert.True(t, idperr.IsUnsat(err))
}
