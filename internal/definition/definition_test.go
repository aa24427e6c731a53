package definition

import (
	"testing"

	mast "github.com/google/mangle/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idpgo/internal/ast"
	"idpgo/internal/ecnf"
	"idpgo/internal/structure"
)

func testReachVocab(t *testing.T) (*ast.Vocabulary, *ast.Predicate, *ast.Predicate, *ast.Sort) {
	t.Helper()
	v := ast.NewVocabulary("V")
	node := &ast.Sort{Name: "Node", Table: ast.NewEnumTable(mast.String("a"), mast.String("b"), mast.String("c"))}
	require.NoError(t, v.AddSort(node))
	edge := &ast.Predicate{Name: "Edge", Sorts: []*ast.Sort{node, node}}
	require.NoError(t, v.AddPredicate(edge))
	reach := &ast.Predicate{Name: "Reach", Sorts: []*ast.Sort{node, node}}
	require.NoError(t, v.AddPredicate(reach))
	return v, edge, reach, node
}

func TestOpens(t *testing.T) {
	_, edge, reach, node := testReachVocab(t)
	x := ast.NewVariable("x", node)
	y := ast.NewVariable("y", node)

	head := &ast.Atom{Sign: ast.Pos, Pred: reach, Args: []ast.Term{x, y}}
	body := &ast.Atom{Sign: ast.Pos, Pred: edge, Args: []ast.Term{x, y}}
	def := &ast.Definition{ID: 1, Rules: []*ast.Rule{{Head: head, Body: body}}}

	opens := Opens([]*ast.Definition{def})
	assert.Contains(t, opens[def], edge)
	assert.NotContains(t, opens[def], reach, "the defined predicate itself must not count as open")
}

func TestEvalLitAndEvalBody(t *testing.T) {
	vals := map[int]triState{1: isTrue, 2: isFalse}
	assert.Equal(t, isTrue, evalLit(ecnf.Literal(1), vals))
	assert.Equal(t, isFalse, evalLit(ecnf.Literal(-1), vals))
	assert.Equal(t, unknown, evalLit(ecnf.Literal(3), vals))

	assert.Equal(t, isFalse, evalBody([]ecnf.Literal{1, 2}, true, vals), "a conjunct must make a conjunction false")
	assert.Equal(t, isTrue, evalBody([]ecnf.Literal{1, 2}, false, vals), "a true disjunct must make a disjunction true")
	assert.Equal(t, unknown, evalBody([]ecnf.Literal{3}, true, vals))
	assert.Equal(t, isTrue, evalBody(nil, true, vals), "an empty conjunctive body is vacuously true")
}

func TestEvaluateGroundRulesFixpoint(t *testing.T) {
	// reach(a) <- edge(a).  (edge(a) is a known fact, seeded in)
	// reach(b) <- reach(a). (derived via the fixpoint)
	rules := []ecnf.Rule{
		{DefID: 1, Head: ecnf.Literal(10), Body: []ecnf.Literal{1}, Type: ecnf.RuleConj},
		{DefID: 1, Head: ecnf.Literal(11), Body: []ecnf.Literal{10}, Type: ecnf.RuleConj},
	}
	vals := evaluateGroundRules(rules, map[int]triState{1: isTrue})
	assert.Equal(t, isTrue, vals[10])
	assert.Equal(t, isTrue, vals[11])
}

func TestEvaluateGroundRulesClosesOffUnreachable(t *testing.T) {
	rules := []ecnf.Rule{
		{DefID: 1, Head: ecnf.Literal(10), Body: []ecnf.Literal{1}, Type: ecnf.RuleConj},
	}
	vals := evaluateGroundRules(rules, map[int]triState{1: isFalse})
	assert.Equal(t, isFalse, vals[10], "no rule can derive the head true, so it closes off false")
}

func TestUnitFacts(t *testing.T) {
	g := ecnf.NewGroundTheory()
	g.AddClause(ecnf.Clause{5})
	g.AddClause(ecnf.Clause{-6})
	g.AddClause(ecnf.Clause{7, 8}) // not a unit clause, ignored

	facts := unitFacts(g)
	assert.Equal(t, isTrue, facts[5])
	assert.Equal(t, isFalse, facts[6])
	assert.NotContains(t, facts, 7)
	assert.NotContains(t, facts, 8)
}

func TestCalculateKnownDefinitionsEndToEnd(t *testing.T) {
	v, edge, reach, node := testReachVocab(t)
	x := ast.NewVariable("x", node)
	y := ast.NewVariable("y", node)

	head := &ast.Atom{Sign: ast.Pos, Pred: reach, Args: []ast.Term{x, y}}
	body := &ast.Atom{Sign: ast.Pos, Pred: edge, Args: []ast.Term{x, y}}
	def := &ast.Definition{ID: 1, Rules: []*ast.Rule{{Head: head, Body: body}}}

	th := ast.NewTheory("T", v)
	th.AddDefinition(def)

	s := structure.NewStructure(v)
	edgePI, _ := s.Predicate("Edge")
	for _, x := range []string{"a", "b", "c"} {
		for _, y := range []string{"a", "b", "c"} {
			edgePI.SetCF([]ast.DomainElement{mast.String(x), mast.String(y)})
		}
	}
	edgePI.SetCT([]ast.DomainElement{mast.String("a"), mast.String("b")})

	require.NoError(t, CalculateKnownDefinitions(th, s, false))

	reachPI, _ := s.Predicate("Reach")
	assert.True(t, reachPI.IsCT([]ast.DomainElement{mast.String("a"), mast.String("b")}))
	assert.True(t, reachPI.IsCF([]ast.DomainElement{mast.String("b"), mast.String("c")}))
}
