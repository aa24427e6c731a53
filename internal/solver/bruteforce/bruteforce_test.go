package bruteforce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idpgo/internal/ecnf"
	"idpgo/internal/runctl"
)

func TestSolveTriviallyUnsat(t *testing.T) {
	g := ecnf.NewGroundTheory()
	g.MakeUnsat()
	models, unsat, _, err := New().Solve(context.Background(), g, Options{})
	require.NoError(t, err)
	assert.True(t, unsat)
	assert.Empty(t, models)
}

func TestSolveSimpleClause(t *testing.T) {
	g := ecnf.NewGroundTheory()
	a := g.FreshAtom("a")
	b := g.FreshAtom("b")
	g.AddClause(ecnf.Clause{a, b})

	models, unsat, _, err := New().Solve(context.Background(), g, Options{})
	require.NoError(t, err)
	assert.False(t, unsat)
	require.Len(t, models, 3)
	m := models[0]
	assert.True(t, m[a.Atom()] || m[b.Atom()], "the satisfying model must make at least one disjunct true")
}

func TestSolveMaxModels(t *testing.T) {
	g := ecnf.NewGroundTheory()
	g.FreshAtom("a")
	g.FreshAtom("b")
	// no clauses at all: every one of the 4 assignments is a model.
	models, unsat, _, err := New().Solve(context.Background(), g, Options{MaxModels: 2})
	require.NoError(t, err)
	assert.False(t, unsat)
	assert.Len(t, models, 2)
}

func TestSolveUnsatNoModels(t *testing.T) {
	g := ecnf.NewGroundTheory()
	a := g.FreshAtom("a")
	g.AddClause(ecnf.Clause{a})
	g.AddClause(ecnf.Clause{a.Negate()})

	_, unsat, _, err := New().Solve(context.Background(), g, Options{})
	require.NoError(t, err)
	assert.True(t, unsat)
}

func TestSolveRespectsRuleSufficiency(t *testing.T) {
	// head <- body (RuleConj): body true must force head true.
	g := ecnf.NewGroundTheory()
	head := g.FreshAtom("head")
	body := g.FreshAtom("body")
	g.AddClause(ecnf.Clause{body}) // force body true
	g.AddRule(ecnf.Rule{DefID: 1, Head: head, Body: []ecnf.Literal{body}, Type: ecnf.RuleConj})

	models, unsat, _, err := New().Solve(context.Background(), g, Options{})
	require.NoError(t, err)
	require.False(t, unsat)
	for _, m := range models {
		assert.True(t, m[head.Atom()], "rule sufficiency must force head true whenever body holds")
	}
}

func TestSolveRespectsImplicationEQ(t *testing.T) {
	g := ecnf.NewGroundTheory()
	tseitin := g.FreshAtom("t")
	l1 := g.FreshAtom("l1")
	l2 := g.FreshAtom("l2")
	g.AddImplication(ecnf.Implication{Tseitin: tseitin, Sem: ecnf.TsEQ, Lits: []ecnf.Literal{l1, l2}, Conjunctive: true})

	models, unsat, _, err := New().Solve(context.Background(), g, Options{})
	require.NoError(t, err)
	require.False(t, unsat)
	for _, m := range models {
		want := m[l1.Atom()] && m[l2.Atom()]
		assert.Equal(t, want, m[tseitin.Atom()], "tseitin must equal the conjunction of its literals")
	}
}

func TestSolveAssumptionsForceLiteralsTrue(t *testing.T) {
	g := ecnf.NewGroundTheory()
	a := g.FreshAtom("a")
	g.FreshAtom("b")

	models, unsat, _, err := New().Solve(context.Background(), g, Options{Assumptions: []ecnf.Literal{a}})
	require.NoError(t, err)
	require.False(t, unsat)
	for _, m := range models {
		assert.True(t, m[a.Atom()], "every returned model must honour the forced assumption")
	}
}

func TestSolveContradictoryAssumptionsAreUnsat(t *testing.T) {
	g := ecnf.NewGroundTheory()
	a := g.FreshAtom("a")
	g.AddClause(ecnf.Clause{a})

	_, unsat, _, err := New().Solve(context.Background(), g, Options{Assumptions: []ecnf.Literal{a.Negate()}})
	require.NoError(t, err)
	assert.True(t, unsat)
}

func TestSolveOutputVocDedupesModelsAgreeingOnIt(t *testing.T) {
	g := ecnf.NewGroundTheory()
	a := g.FreshAtom("a")
	g.FreshAtom("b") // free, not in OutputVoc

	models, unsat, _, err := New().Solve(context.Background(), g, Options{OutputVoc: map[int]bool{a.Atom(): true}})
	require.NoError(t, err)
	require.False(t, unsat)
	// Without a voc restriction all 4 assignments of a,b are models;
	// restricted to {a} only two distinct projections exist.
	assert.Len(t, models, 2)
}

func TestSolveMinimizeAggReturnsOnlyOptimalModels(t *testing.T) {
	g := ecnf.NewGroundTheory()
	a := g.FreshAtom("a")
	b := g.FreshAtom("b")
	g.AddSet(ecnf.WeightedSet{ID: 1, Tuples: []ecnf.WeightedTuple{
		{Lit: a, Weight: 3},
		{Lit: b, Weight: 5},
	}})

	models, unsat, optimum, err := New().Solve(context.Background(), g, Options{
		Minimize: &ecnf.Objective{Kind: ecnf.ObjMinimizeAgg, SetID: 1, AggKind: ecnf.AggSum},
	})
	require.NoError(t, err)
	require.False(t, unsat)
	require.NotNil(t, optimum)
	assert.Equal(t, 0.0, *optimum, "the empty-set assignment (both a,b false) minimizes the weighted sum")
	for _, m := range models {
		assert.False(t, m[a.Atom()])
		assert.False(t, m[b.Atom()])
	}
}

func TestSolveTokenCancellation(t *testing.T) {
	g := ecnf.NewGroundTheory()
	g.FreshAtom("a")
	g.FreshAtom("b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := runctl.NewMonitor(runctl.Limits{})
	_, _, _, err := New().Solve(ctx, g, Options{Token: m.NewToken()})
	assert.ErrorIs(t, err, context.Canceled)
}
