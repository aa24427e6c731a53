// Formula-to-BDD compilation (spec §4.1): translate a closed FO(.)
// sentence into the Node a Manager hash-conses, the step
// idpgo/propagate's entry point needs before it has anything to seed
// bounds propagation with.
//
// Grounded on original_source/src/fobdds/FoBddFactory.cpp's visitor:
// each Formula case builds the same BDD shape FOBDDFactory::visit
// does (PredForm/BoolForm/EquivForm/QuantForm/EqChainForm/AggForm),
// reimplemented as a type switch over iast.Formula instead of a
// double-dispatch visitor, matching how fobdd/visit already prefers a
// type switch to a parallel visitor hierarchy.
package fobdd

import (
	"idpgo/internal/idperr"

	iast "idpgo/internal/ast"
)

// FromFormula compiles the closed formula f into a Node. f must not
// have any free variable outside of its own Quantified binders — spec
// §3's sentences are closed by construction, and FromFormula is only
// ever called on a Theory's top-level sentences (idpgo/propagate.Build
// compiles one sentence at a time).
func (m *Manager) FromFormula(f iast.Formula) (*Node, error) {
	return m.fromFormula(f, nil)
}

// fromFormula walks f with env as the De Bruijn binder stack: env[i]
// is the variable bound at index i, innermost first.
func (m *Manager) fromFormula(f iast.Formula, env []*iast.Variable) (*Node, error) {
	switch n := f.(type) {
	case *iast.Atom:
		return m.fromAtomFormula(n, env)
	case *iast.Comparison:
		return m.fromComparison(n, env)
	case *iast.BoolForm:
		return m.fromBoolForm(n, env)
	case *iast.Quantified:
		return m.fromQuantified(n, env)
	case *iast.Equiv:
		return m.fromEquiv(n, env)
	case *iast.AggComparison:
		return m.fromAggComparison(n, env)
	default:
		return nil, idperr.Internal("fobdd: unhandled formula node %T", f)
	}
}

// indexTerm rewrites t's Variable (and the Variable arguments nested
// inside a FuncApp) to the IndexTerm env says it stands for. Terms
// without a Variable — constants, IndexTerms already produced by an
// outer call, aggregate terms — pass through unchanged: an AggTerm's
// own set variables are local to that set and carry no outer De
// Bruijn meaning into the kernel (AggKernel wraps the whole
// AggComparison opaquely, matching its ContainsDeBruijnIndex always
// reporting false).
func (m *Manager) indexTerm(t iast.Term, env []*iast.Variable) (iast.Term, error) {
	switch n := t.(type) {
	case *iast.Variable:
		for i, v := range env {
			if v == n {
				return &iast.IndexTerm{Index: i, IndexSort: n.VarSort}, nil
			}
		}
		return nil, idperr.Internal("fobdd: variable %s not bound by an enclosing quantifier", n.Name)
	case *iast.FuncApp:
		args := make([]iast.Term, len(n.Args))
		for i, a := range n.Args {
			rewritten, err := m.indexTerm(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = rewritten
		}
		built := iast.Term(&iast.FuncApp{Func: n.Func, Args: args})
		if m.TermSimplify != nil {
			built = m.TermSimplify(built)
		}
		return built, nil
	default:
		return t, nil
	}
}

func (m *Manager) indexAtom(a *iast.Atom, env []*iast.Variable) (*iast.Atom, error) {
	args := make([]iast.Term, len(a.Args))
	for i, arg := range a.Args {
		rewritten, err := m.indexTerm(arg, env)
		if err != nil {
			return nil, err
		}
		args[i] = rewritten
	}
	return &iast.Atom{Sign: a.Sign, Pred: a.Pred, Args: args}, nil
}

func (m *Manager) fromAtomFormula(a *iast.Atom, env []*iast.Variable) (*Node, error) {
	indexed, err := m.indexAtom(a, env)
	if err != nil {
		return nil, err
	}
	return m.FromAtom(indexed), nil
}

// fromComparison reifies cmp as an atom over the matching built-in
// comparison predicate (ast.PredForCompareOp), the same reification
// idpgo/ground's groundAtom path would need if a Comparison ever
// reached it directly rather than being evaluated eagerly — here it
// can't be evaluated eagerly, since the BDD is built before a
// Structure exists to evaluate against.
func (m *Manager) fromComparison(cmp *iast.Comparison, env []*iast.Variable) (*Node, error) {
	left, err := m.indexTerm(cmp.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := m.indexTerm(cmp.Right, env)
	if err != nil {
		return nil, err
	}
	pred := iast.PredForCompareOp(cmp.Op)
	atom := &iast.Atom{Sign: cmp.Sign, Pred: pred, Args: []iast.Term{left, right}}
	return m.FromAtom(atom), nil
}

func (m *Manager) fromBoolForm(b *iast.BoolForm, env []*iast.Variable) (*Node, error) {
	var acc *Node
	if b.Op == iast.Conj {
		acc = m.True()
	} else {
		acc = m.False()
	}
	for _, sub := range b.Subforms {
		n, err := m.fromFormula(sub, env)
		if err != nil {
			return nil, err
		}
		if b.Op == iast.Conj {
			acc = m.Conjunction(acc, n)
		} else {
			acc = m.Disjunction(acc, n)
		}
	}
	if b.Sign == iast.Neg {
		acc = m.Negate(acc)
	}
	return acc, nil
}

func (m *Manager) fromEquiv(e *iast.Equiv, env []*iast.Variable) (*Node, error) {
	left, err := m.fromFormula(e.Left, env)
	if err != nil {
		return nil, err
	}
	right, err := m.fromFormula(e.Right, env)
	if err != nil {
		return nil, err
	}
	var n *Node
	switch e.Op {
	case iast.EquivImpl:
		// left => right: ~left | right
		n = m.Disjunction(m.Negate(left), right)
	case iast.EquivRImpl:
		// right => left
		n = m.Disjunction(left, m.Negate(right))
	default:
		both := m.Conjunction(left, right)
		neither := m.Conjunction(m.Negate(left), m.Negate(right))
		n = m.Disjunction(both, neither)
	}
	if e.Sign == iast.Neg {
		n = m.Negate(n)
	}
	return n, nil
}

// fromQuantified decomposes a (possibly multi-variable) quantified
// formula into nested single-variable QuantKernels, one Quantify call
// per variable, innermost (last of q.Vars) first — matching
// FOBDDFactory::visit(QuantForm*)'s call into
// FOBDDManager::{univ,exists}quantify, generalised here since Manager
// only ever quantifies one variable per kernel.
func (m *Manager) fromQuantified(q *iast.Quantified, env []*iast.Variable) (*Node, error) {
	inner := make([]*iast.Variable, len(q.Vars))
	for i, v := range q.Vars {
		inner[len(q.Vars)-1-i] = v
	}
	bodyEnv := append(append([]*iast.Variable{}, inner...), env...)

	body, err := m.fromFormula(q.Subform, bodyEnv)
	if err != nil {
		return nil, err
	}

	// Quantify consumes whichever variable currently sits at De Bruijn
	// index 0 — the last of q.Vars, per bodyEnv above — and each
	// wrapping step then exposes the next one at index 0 in turn
	// (QuantKernel.ContainsDeBruijnIndex's index+1 relation), so this
	// loop must run q.Vars back to front.
	n := body
	for i := len(q.Vars) - 1; i >= 0; i-- {
		v := q.Vars[i]
		if q.Quant == iast.Forall {
			n = m.Negate(m.Quantify(v.VarSort, m.Negate(n)))
		} else {
			n = m.Quantify(v.VarSort, n)
		}
	}
	if q.Sign == iast.Neg {
		n = m.Negate(n)
	}
	return n, nil
}

// fromAggComparison reifies an aggregate comparison as a single
// AggKernel leaf, matching FOBDDFactory::visit(AggForm*); nested
// aggregates (an AggTerm whose bound is itself non-ground) are not
// supported, mirroring the original's own NDEBUG assertion that the
// bound must be a domain term or variable.
func (m *Manager) fromAggComparison(a *iast.AggComparison, env []*iast.Variable) (*Node, error) {
	bound, err := m.indexTerm(a.Bound, env)
	if err != nil {
		return nil, err
	}
	indexed := &iast.AggComparison{Sign: iast.Pos, Op: a.Op, Bound: bound, Agg: a.Agg}
	k := m.AggKernel(indexed)
	if a.Sign == iast.Neg {
		return m.Ite(k, m.falseNode, m.trueNode), nil
	}
	return m.Ite(k, m.trueNode, m.falseNode), nil
}
