package ground

import (
	"testing"

	mast "github.com/google/mangle/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iast "idpgo/internal/ast"
	"idpgo/internal/ecnf"
	"idpgo/internal/structure"
)

func testGroundVocab(t *testing.T) (*iast.Vocabulary, *iast.Predicate, *iast.Sort) {
	t.Helper()
	v := iast.NewVocabulary("V")
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable(mast.String("a"), mast.String("b"))}
	require.NoError(t, v.AddSort(node))
	edge := &iast.Predicate{Name: "Edge", Sorts: []*iast.Sort{node, node}}
	require.NoError(t, v.AddPredicate(edge))
	return v, edge, node
}

func TestGroundAtomKnownCT(t *testing.T) {
	v, edge, node := testGroundVocab(t)
	s := structure.NewStructure(v)
	pi, _ := s.Predicate("Edge")
	pi.SetCT([]iast.DomainElement{mast.String("a"), mast.String("b")})

	theory := ecnf.NewGroundTheory()
	ctx := NewContext(s, theory)
	atom := &iast.Atom{Sign: iast.Pos, Pred: edge, Args: []iast.Term{
		iast.NewConstTerm(mast.String("a"), node), iast.NewConstTerm(mast.String("b"), node),
	}}
	lit, err := ctx.GroundFormula(atom, nil)
	require.NoError(t, err)
	assert.False(t, lit.Negated(), "a known-ct atom grounds to the shared true literal, positively")
}

func TestGroundAtomUnknownMintsFreshAtom(t *testing.T) {
	v, edge, node := testGroundVocab(t)
	s := structure.NewStructure(v)

	theory := ecnf.NewGroundTheory()
	ctx := NewContext(s, theory)
	atom := &iast.Atom{Sign: iast.Pos, Pred: edge, Args: []iast.Term{
		iast.NewConstTerm(mast.String("a"), node), iast.NewConstTerm(mast.String("b"), node),
	}}
	lit1, err := ctx.GroundFormula(atom, nil)
	require.NoError(t, err)

	lit2, err := ctx.GroundFormula(atom, nil)
	require.NoError(t, err)
	assert.Equal(t, lit1, lit2, "grounding the same atom twice must reuse the same Tseitin atom")

	info, ok := ctx.AtomTuples[lit1.Atom()]
	require.True(t, ok)
	assert.Equal(t, edge, info.Pred)
}

func TestGroundComparison(t *testing.T) {
	s := structure.NewStructure(iast.NewVocabulary("V"))
	theory := ecnf.NewGroundTheory()
	ctx := NewContext(s, theory)

	cmp := &iast.Comparison{Sign: iast.Pos, Op: iast.CmpLT, Left: iast.NewConstTerm(mast.Number(1), iast.SortInt), Right: iast.NewConstTerm(mast.Number(2), iast.SortInt)}
	lit, err := ctx.GroundFormula(cmp, nil)
	require.NoError(t, err)
	assert.False(t, lit.Negated())

	falseCmp := &iast.Comparison{Sign: iast.Pos, Op: iast.CmpGT, Left: iast.NewConstTerm(mast.Number(1), iast.SortInt), Right: iast.NewConstTerm(mast.Number(2), iast.SortInt)}
	lit2, err := ctx.GroundFormula(falseCmp, nil)
	require.NoError(t, err)
	assert.Equal(t, lit.Negate(), lit2, "a false ground comparison grounds to the negation of the shared true literal")
}

func TestGroundTopLevelUnsat(t *testing.T) {
	v, edge, node := testGroundVocab(t)
	th := iast.NewTheory("T", v)
	atom := &iast.Atom{Sign: iast.Neg, Pred: edge, Args: []iast.Term{
		iast.NewConstTerm(mast.String("a"), node), iast.NewConstTerm(mast.String("b"), node),
	}}
	th.AddSentence(atom)

	s := structure.NewStructure(v)
	pi, _ := s.Predicate("Edge")
	pi.SetCT([]iast.DomainElement{mast.String("a"), mast.String("b")})

	theory, err := Ground(th, s)
	require.NoError(t, err)
	assert.True(t, theory.IsTriviallyUnsat(), "grounding ~Edge(a,b) against a structure where Edge(a,b) is ct must be unsat")
}

// TestGroundQuantifiedOverInfiniteSortDoesNotPanic exercises spec §8
// scenario 6 end to end: grounding !x[int] Age(x,...)-style
// quantification must never call int's InfiniteTable.Iterate, and
// must still ground every instance the structure already witnesses.
func TestGroundQuantifiedOverInfiniteSortDoesNotPanic(t *testing.T) {
	v := iast.NewVocabulary("V")
	age := &iast.Predicate{Name: "Age", Sorts: []*iast.Sort{iast.SortInt}}
	require.NoError(t, v.AddPredicate(age))

	s := structure.NewStructure(v)
	pi, _ := s.Predicate("Age")
	pi.SetCT([]iast.DomainElement{mast.Number(1)})
	pi.SetCT([]iast.DomainElement{mast.Number(2)})

	theory := ecnf.NewGroundTheory()
	ctx := NewContext(s, theory)

	x := iast.NewVariable("x", iast.SortInt)
	body := &iast.Atom{Sign: iast.Pos, Pred: age, Args: []iast.Term{x}}
	q := &iast.Quantified{Sign: iast.Pos, Quant: iast.Forall, Vars: []*iast.Variable{x}, Subform: body}

	require.NotPanics(t, func() {
		_, err := ctx.GroundFormula(q, nil)
		require.NoError(t, err)
	})

	var found ecnf.Implication
	for _, impl := range theory.Implications {
		if len(impl.Lits) == 2 {
			found = impl
		}
	}
	assert.Len(t, found.Lits, 2, "must ground one instance per active-domain element of the infinite sort, without enumerating it")
}

// TestGroundQuantifiedOverInfiniteSortPicksUpLaterLiterals confirms
// watchLazyInstances folds a later-discovered element of an infinite
// sort into the quantifier's already-built implication.
func TestGroundQuantifiedOverInfiniteSortPicksUpLaterLiterals(t *testing.T) {
	v := iast.NewVocabulary("V")
	age := &iast.Predicate{Name: "Age", Sorts: []*iast.Sort{iast.SortInt}}
	require.NoError(t, v.AddPredicate(age))
	other := &iast.Predicate{Name: "Other", Sorts: []*iast.Sort{iast.SortInt}}
	require.NoError(t, v.AddPredicate(other))

	s := structure.NewStructure(v)
	pi, _ := s.Predicate("Age")
	pi.SetCT([]iast.DomainElement{mast.Number(1)})

	theory := ecnf.NewGroundTheory()
	ctx := NewContext(s, theory)

	x := iast.NewVariable("x", iast.SortInt)
	body := &iast.Atom{Sign: iast.Pos, Pred: age, Args: []iast.Term{x}}
	q := &iast.Quantified{Sign: iast.Pos, Quant: iast.Forall, Vars: []*iast.Variable{x}, Subform: body}

	_, err := ctx.GroundFormula(q, nil)
	require.NoError(t, err)

	// A later atom over Age itself, with a new argument value,
	// notifies the delay watching Age and must extend the existing
	// implication rather than leaving the new instance ungrounded.
	atom := &iast.Atom{Sign: iast.Pos, Pred: age, Args: []iast.Term{iast.NewConstTerm(mast.Number(2), iast.SortInt)}}
	_, err = ctx.GroundFormula(atom, nil)
	require.NoError(t, err)
	require.NoError(t, ctx.Lazy.Drain())

	var total int
	for _, impl := range theory.Implications {
		total += len(impl.Lits)
	}
	assert.GreaterOrEqual(t, total, 2, "a later-minted literal over the watched sort must grow the quantifier's implication")
}

func TestGroundTopLevelSat(t *testing.T) {
	v, edge, node := testGroundVocab(t)
	th := iast.NewTheory("T", v)
	atom := &iast.Atom{Sign: iast.Pos, Pred: edge, Args: []iast.Term{
		iast.NewConstTerm(mast.String("a"), node), iast.NewConstTerm(mast.String("b"), node),
	}}
	th.AddSentence(atom)

	s := structure.NewStructure(v)
	theory, err := Ground(th, s)
	require.NoError(t, err)
	assert.False(t, theory.IsTriviallyUnsat())
	assert.Len(t, theory.Clauses, 1)
}
