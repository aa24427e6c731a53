package ast

// FormulaVisitor is the read-only traversal contract over Formula,
// the one spec §1 requires fobdd/propagate/generate/ground to depend
// on instead of switching on concrete Formula types directly. Visit
// methods return false to stop descending into a subform's children.
type FormulaVisitor interface {
	VisitAtom(*Atom) bool
	VisitComparison(*Comparison) bool
	VisitBoolForm(*BoolForm) bool
	VisitQuantified(*Quantified) bool
	VisitEquiv(*Equiv) bool
	VisitAggComparison(*AggComparison) bool
}

// WalkFormula dispatches f to the matching FormulaVisitor method, and
// recurses into children when it returns true.
func WalkFormula(f Formula, v FormulaVisitor) {
	switch n := f.(type) {
	case *Atom:
		v.VisitAtom(n)
	case *Comparison:
		v.VisitComparison(n)
	case *BoolForm:
		if v.VisitBoolForm(n) {
			for _, sub := range n.Subforms {
				WalkFormula(sub, v)
			}
		}
	case *Quantified:
		if v.VisitQuantified(n) {
			WalkFormula(n.Subform, v)
		}
	case *Equiv:
		if v.VisitEquiv(n) {
			WalkFormula(n.Left, v)
			WalkFormula(n.Right, v)
		}
	case *AggComparison:
		v.VisitAggComparison(n)
	}
}

// FormulaTransformer rewrites a Formula bottom-up, the contract
// fobdd/visit's rewrite passes (PUSHNEGATIONS, removeNesting,
// distributivity) implement instead of hand-rolled recursion at each
// call site.
type FormulaTransformer interface {
	TransformAtom(*Atom) Formula
	TransformComparison(*Comparison) Formula
	TransformBoolForm(*BoolForm) Formula
	TransformQuantified(*Quantified) Formula
	TransformEquiv(*Equiv) Formula
	TransformAggComparison(*AggComparison) Formula
}

// TransformFormula rewrites f's children first, then applies the
// matching TransformX method to the (already-rewritten) node.
func TransformFormula(f Formula, t FormulaTransformer) Formula {
	switch n := f.(type) {
	case *Atom:
		return t.TransformAtom(n)
	case *Comparison:
		return t.TransformComparison(n)
	case *BoolForm:
		rewritten := make([]Formula, len(n.Subforms))
		for i, sub := range n.Subforms {
			rewritten[i] = TransformFormula(sub, t)
		}
		return t.TransformBoolForm(&BoolForm{Sign: n.Sign, Op: n.Op, Subforms: rewritten})
	case *Quantified:
		return t.TransformQuantified(&Quantified{
			Sign: n.Sign, Quant: n.Quant, Vars: n.Vars,
			Subform: TransformFormula(n.Subform, t),
		})
	case *Equiv:
		return t.TransformEquiv(&Equiv{
			Sign: n.Sign, Op: n.Op,
			Left:  TransformFormula(n.Left, t),
			Right: TransformFormula(n.Right, t),
		})
	case *AggComparison:
		return t.TransformAggComparison(n)
	default:
		return f
	}
}

// TermVisitor is the read-only traversal contract over Term.
type TermVisitor interface {
	VisitVariable(*Variable) bool
	VisitConst(Term) bool
	VisitFuncApp(*FuncApp) bool
	VisitAggTerm(*AggTerm) bool
}

// WalkTerm dispatches t to the matching TermVisitor method.
func WalkTerm(t Term, v TermVisitor) {
	switch n := t.(type) {
	case *Variable:
		v.VisitVariable(n)
	case *constTerm:
		v.VisitConst(n)
	case *FuncApp:
		if v.VisitFuncApp(n) {
			for _, a := range n.Args {
				WalkTerm(a, v)
			}
		}
	case *AggTerm:
		v.VisitAggTerm(n)
	}
}

// FreeVariables collects the distinct free variables of f, descending
// through subterms of atoms/comparisons and excluding each
// Quantified's own bound Vars from the variables collected in its
// Subform (spec §3's ordinary capture-avoiding scoping).
func FreeVariables(f Formula) []*Variable {
	seen := make(map[*Variable]bool)
	var order []*Variable
	add := func(v *Variable) {
		if !seen[v] {
			seen[v] = true
			order = append(order, v)
		}
	}
	var walkTerm func(Term)
	walkTerm = func(t Term) {
		switch n := t.(type) {
		case *Variable:
			add(n)
		case *FuncApp:
			for _, a := range n.Args {
				walkTerm(a)
			}
		case *AggTerm:
			walkSet(n.Set, walkTerm, add)
		}
	}
	var walk func(Formula, map[*Variable]bool)
	walk = func(f Formula, bound map[*Variable]bool) {
		switch n := f.(type) {
		case *Atom:
			for _, t := range n.Args {
				walkBoundTerm(t, bound, walkTerm, add)
			}
		case *Comparison:
			walkBoundTerm(n.Left, bound, walkTerm, add)
			walkBoundTerm(n.Right, bound, walkTerm, add)
		case *BoolForm:
			for _, sub := range n.Subforms {
				walk(sub, bound)
			}
		case *Quantified:
			inner := make(map[*Variable]bool, len(bound)+len(n.Vars))
			for k := range bound {
				inner[k] = true
			}
			for _, v := range n.Vars {
				inner[v] = true
			}
			walk(n.Subform, inner)
		case *Equiv:
			walk(n.Left, bound)
			walk(n.Right, bound)
		case *AggComparison:
			walkBoundTerm(n.Bound, bound, walkTerm, add)
			walkBoundTerm(n.Agg, bound, walkTerm, add)
		}
	}
	walk(f, map[*Variable]bool{})
	return order
}

func walkBoundTerm(t Term, bound map[*Variable]bool, walkTerm func(Term), add func(*Variable)) {
	if v, ok := t.(*Variable); ok {
		if !bound[v] {
			add(v)
		}
		return
	}
	if fa, ok := t.(*FuncApp); ok {
		for _, a := range fa.Args {
			walkBoundTerm(a, bound, walkTerm, add)
		}
		return
	}
	if at, ok := t.(*AggTerm); ok {
		walkSet(at.Set, walkTerm, func(v *Variable) {
			if !bound[v] {
				add(v)
			}
		})
		return
	}
	walkTerm(t)
}

func walkSet(s *SetTerm, walkTerm func(Term), add func(*Variable)) {
	bound := make(map[*Variable]bool, len(s.Vars))
	for _, v := range s.Vars {
		bound[v] = true
	}
	if s.Weight != nil {
		walkBoundTerm(s.Weight, bound, walkTerm, add)
	}
	for _, el := range s.Elements {
		for _, t := range el.Tuple {
			walkBoundTerm(t, bound, walkTerm, add)
		}
		if el.Weight != nil {
			walkBoundTerm(el.Weight, bound, walkTerm, add)
		}
	}
}
