package propagate

import (
	iast "idpgo/internal/ast"
	"idpgo/internal/fobdd"
	"idpgo/internal/idperr"
	"idpgo/internal/structure"
)

// Build compiles n into a propagation graph: one LeafConnector per
// distinct AtomKernel, wired through nested BoolConnectors that
// mirror n's own conjunction/disjunction shape, seeded from s's
// recorded ct/cf facts wherever a leaf's atom is already exact in s.
func Build(n *fobdd.Node, s *structure.Structure) (root Connector, leaves map[*fobdd.AtomKernel]*LeafConnector) {
	leaves = make(map[*fobdd.AtomKernel]*LeafConnector)
	var build func(*fobdd.Node) Connector
	build = func(cur *fobdd.Node) Connector {
		if cur.IsTrue() {
			return constConnector{bound: True}
		}
		if cur.IsFalse() {
			return constConnector{bound: False}
		}
		ak, ok := cur.Kernel().(*fobdd.AtomKernel)
		if !ok {
			// Quantification/aggregate kernels are opaque leaves to
			// propagate at this level; definition.go and ground.go
			// handle their internals separately.
			return build(cur.TrueBranch())
		}
		lc, exists := leaves[ak]
		if !exists {
			lc = NewLeafConnector(ak)
			leaves[ak] = lc
			seedFromStructure(lc, s)
		}
		t := build(cur.TrueBranch())
		f := build(cur.FalseBranch())
		// cur is semantically: (ak & t) | (~ak & f). When t is True and
		// f is False this collapses to exactly lc; the common case a
		// BDD built straight from a single atom produces.
		if isConst(t, True) && isConst(f, False) {
			return lc
		}
		conj := NewBoolConnector(true, lc, t)
		negLeaf := negatedView{lc}
		disjOther := NewBoolConnector(true, negLeaf, f)
		return NewBoolConnector(false, conj, disjOther)
	}
	root = build(n)
	return root, leaves
}

// constConnector is a fixed True/False connector for BDD leaves.
type constConnector struct{ bound Bound }

func (c constConnector) Bound() Bound        { return c.bound }
func (c constConnector) SetBound(Bound) bool { return false }
func (c constConnector) Parents() []Connector  { return nil }
func (c constConnector) Children() []Connector { return nil }
func (c constConnector) PropagateUp() Bound    { return c.bound }
func (c constConnector) PropagateDown()        {}

func isConst(c Connector, b Bound) bool {
	cc, ok := c.(constConnector)
	return ok && cc.bound == b
}

// negatedView flips a LeafConnector's reported bound without
// allocating a second kernel, used when building the ~ak branch of
// the ite decomposition in Build.
type negatedView struct{ *LeafConnector }

func (n negatedView) Bound() Bound {
	switch n.LeafConnector.Bound() {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}
func (n negatedView) PropagateUp() Bound { return n.Bound() }

// groundTuple returns atom's arguments as a domain-element tuple, and
// false if any argument is not yet a constant (still a Variable,
// IndexTerm or FuncApp) — propagation only seeds a leaf from the
// structure once its atom is fully ground, which is the common case
// once generate.go has instantiated the formula's free variables.
func groundTuple(atom *iast.Atom) ([]iast.DomainElement, bool) {
	tuple := make([]iast.DomainElement, len(atom.Args))
	for i, arg := range atom.Args {
		ct, ok := iast.AsConst(arg)
		if !ok {
			return nil, false
		}
		tuple[i] = ct
	}
	return tuple, true
}

func seedFromStructure(lc *LeafConnector, s *structure.Structure) {
	pi, ok := s.Predicate(lc.Kernel.Atom.Pred.Name)
	if !ok {
		return
	}
	tuple, ok := groundTuple(lc.Kernel.Atom)
	if !ok {
		return
	}
	if pi.IsCT(tuple) {
		lc.SetBound(True)
	} else if pi.IsCF(tuple) {
		lc.SetBound(False)
	}
}

// Propagate runs the full bounds-propagation pass of spec §4.3 over n
// against s: build the connector graph, seed leaves from s, run the
// FIFO scheduler to a fixpoint (or maxSteps), then write every
// resolved leaf's bound back into s as a ct or cf fact. Returns
// idperr.ErrUnsat if the root connector resolves to False (the
// formula is unsatisfiable in s).
func Propagate(n *fobdd.Node, s *structure.Structure, maxSteps int) error {
	root, leaves := Build(n, s)
	all := make([]Connector, 0, len(leaves)+1)
	all = append(all, root)
	for _, lc := range leaves {
		all = append(all, lc)
	}
	sched := NewScheduler(all)
	sched.Run(maxSteps)

	if root.Bound() == False {
		return idperr.ErrUnsat
	}
	for _, lc := range leaves {
		pi, ok := s.Predicate(lc.Kernel.Atom.Pred.Name)
		if !ok {
			continue
		}
		tuple, ok := groundTuple(lc.Kernel.Atom)
		if !ok {
			continue
		}
		switch lc.Bound() {
		case True:
			pi.SetCT(tuple)
		case False:
			pi.SetCF(tuple)
		}
	}
	return nil
}
