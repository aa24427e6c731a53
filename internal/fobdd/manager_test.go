package fobdd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	iast "idpgo/internal/ast"
)

func twoAtomKernels(m *Manager) (k1, k2 Kernel) {
	node := &iast.Sort{Name: "Node", Table: iast.NewEnumTable()}
	x := iast.NewVariable("x", node)
	p := &iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "P", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}}
	q := &iast.Atom{Sign: iast.Pos, Pred: &iast.Predicate{Name: "Q", Sorts: []*iast.Sort{node}}, Args: []iast.Term{x}}
	return m.AtomKernel(p), m.AtomKernel(q)
}

// TestMoveDownSwapsAgreeingBranches exercises the single-level swap
// BddVariableOrder reordering builds on: both of k1's branches read k2
// next, so the whole node can be re-rooted at k2 instead.
func TestMoveDownSwapsAgreeingBranches(t *testing.T) {
	m := NewManager()
	k1, k2 := twoAtomKernels(m)

	tb := m.Ite(k2, m.True(), m.False())
	fb := m.Ite(k2, m.False(), m.True())
	n := m.Ite(k1, tb, fb)

	swapped, ok := m.moveDown(n)
	assert.True(t, ok)
	assert.Same(t, k2, swapped.Kernel())
	assert.Same(t, k1, swapped.TrueBranch().Kernel())
	assert.Same(t, k1, swapped.FalseBranch().Kernel())
}

// TestMoveDownRejectsDisagreeingBranches confirms the precondition: a
// node whose branches read different kernels below it cannot be swapped.
func TestMoveDownRejectsDisagreeingBranches(t *testing.T) {
	m := NewManager()
	k1, k2 := twoAtomKernels(m)

	tb := m.Ite(k2, m.True(), m.False())
	n := m.Ite(k1, tb, m.False())

	_, ok := m.moveDown(n)
	assert.False(t, ok)
}

func TestMoveUpIsMoveDownsInverse(t *testing.T) {
	m := NewManager()
	k1, k2 := twoAtomKernels(m)

	tb := m.Ite(k2, m.True(), m.False())
	fb := m.Ite(k2, m.False(), m.True())
	n := m.Ite(k1, tb, fb)

	down, ok := m.moveDown(n)
	assert.True(t, ok)
	up, ok := m.moveUp(down)
	assert.True(t, ok)
	assert.Same(t, n, up)
}

func countNodes(n *Node) int {
	if n.IsLeaf() {
		return 1
	}
	return 1 + countNodes(n.TrueBranch()) + countNodes(n.FalseBranch())
}

// TestOptimizeQueryAppliesBeneficialSwap drives OptimizeQuery with a
// cost function that prefers k2 rooted above k1, and confirms it
// performs the swap moveDown offers.
func TestOptimizeQueryAppliesBeneficialSwap(t *testing.T) {
	m := NewManager()
	k1, k2 := twoAtomKernels(m)

	tb := m.Ite(k2, m.True(), m.False())
	fb := m.Ite(k2, m.False(), m.True())
	n := m.Ite(k1, tb, fb)

	costOf := func(cand *Node) float64 {
		if cand.Kernel() == k2 {
			return 0
		}
		return 1
	}

	opt := m.OptimizeQuery(n, costOf)
	assert.Same(t, k2, opt.Kernel())
}

// TestOptimizeQueryLeavesNodeWhenNoSwapHelps confirms a cost function
// that never prefers the swap leaves the diagram untouched.
func TestOptimizeQueryLeavesNodeWhenNoSwapHelps(t *testing.T) {
	m := NewManager()
	k1, k2 := twoAtomKernels(m)

	tb := m.Ite(k2, m.True(), m.False())
	fb := m.Ite(k2, m.False(), m.True())
	n := m.Ite(k1, tb, fb)

	costOf := func(cand *Node) float64 { return float64(countNodes(cand)) }

	opt := m.OptimizeQuery(n, costOf)
	assert.Same(t, n, opt)
}

func TestOptimizeQueryNilCostIsNoop(t *testing.T) {
	m := NewManager()
	k1, k2 := twoAtomKernels(m)
	tb := m.Ite(k2, m.True(), m.False())
	fb := m.Ite(k2, m.False(), m.True())
	n := m.Ite(k1, tb, fb)

	assert.Same(t, n, m.OptimizeQuery(n, nil))
}
