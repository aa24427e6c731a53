package generate

import (
	"math"
	"sort"

	iast "idpgo/internal/ast"
	"idpgo/internal/fobdd"
	"idpgo/internal/fobdd/cost"
	"idpgo/internal/structure"
)

// Factory assembles Generators for the atoms of a BDD against one
// Structure, the spec §4.4 "generator factory" that chooses between
// FullGenerator/TableGenerator/InverseTableGenerator/
// ComparisonGenerator for a given atom and argument Pattern.
type Factory struct {
	Structure *structure.Structure

	// Estimator, if set, lets OrderByCost rank candidate BDD branches
	// by EstimateCostAll before a caller commits to a generation order
	// (GeneratorFactory::create's cost-driven kernel choice). Left nil,
	// OrderByCost is a no-op and the caller's own order is kept.
	Estimator *cost.Estimator
}

func NewFactory(s *structure.Structure) *Factory {
	return &Factory{Structure: s}
}

// OrderByCost sorts nodes ascending by f.Estimator.EstimateCostAll,
// cheapest candidate generation plan first — the same heuristic
// GeneratorFactory::create applies when choosing which of several
// equally-valid kernel orderings to compile a query's generator tree
// from. A nil Estimator leaves nodes untouched.
func (f *Factory) OrderByCost(nodes []*fobdd.Node, domainSize, longestBranch int) {
	if f.Estimator == nil || len(nodes) < 2 {
		return
	}
	sort.SliceStable(nodes, func(i, j int) bool {
		return f.Estimator.EstimateCostAll(nodes[i], domainSize, longestBranch) <
			f.Estimator.EstimateCostAll(nodes[j], domainSize, longestBranch)
	})
}

// Relation classifies how a predicate/function symbol's declared sort
// at some argument position relates to the sort the generation-site
// variable itself carries — GeneratorFactory.cpp's Relation enum,
// which decides whether a symbol's table can be trusted as-is or
// needs an extra SortChecker wrap.
type Relation int

const (
	RelEqual Relation = iota
	RelParent
	RelChild
	RelUnknown
)

// classifySort reports symbolSort's Relation to varSort: EQUAL if
// they're literally the same Sort, PARENT if varSort is (strictly) a
// subsort of symbolSort — meaning the symbol's table may contain
// values outside varSort's own domain — CHILD if symbolSort is a
// subsort of varSort (the table is already at least as narrow as
// varSort, so no extra check is needed), UNKNOWN otherwise.
func classifySort(symbolSort, varSort *iast.Sort) Relation {
	if symbolSort == varSort {
		return RelEqual
	}
	if iast.SortIsSubsort(varSort, symbolSort) {
		return RelParent
	}
	if iast.SortIsSubsort(symbolSort, varSort) {
		return RelChild
	}
	return RelUnknown
}

// ForAtomKernel builds the generator for k's atom under pattern,
// binding varOf(i) as the Variable occupying argument position i (nil
// for a position already holding a ground constant). Built-in
// comparison/arithmetic-equality atoms (ast.PredEquals and friends,
// which declare no Sorts and so never have a PredicateInterpretation
// to look up) are routed to forComparisonAtom instead of the
// plain-predicate table path below.
func (f *Factory) ForAtomKernel(k *fobdd.AtomKernel, pattern Pattern, varOf func(i int) *iast.Variable) Generator {
	atom := k.Atom
	if op, ok := iast.CompareOpForPred(atom.Pred); ok {
		return f.forComparisonAtom(atom, op, pattern, varOf)
	}

	argVars := make([]*iast.Variable, len(atom.Args))
	for i := range atom.Args {
		argVars[i] = varOf(i)
	}

	pi, ok := f.Structure.Predicate(atom.Pred.Name)
	if !ok {
		pi = structure.NewPredicateInterpretation(atom.Pred)
	}

	var gen Generator
	if atom.Sign == iast.Neg {
		inner := NewTableGenerator(atom.Pred, pattern, argVars, pi)
		if len(argVars) == 1 && argVars[0] != nil {
			full := NewFullGenerator(argVars[0], argVars[0].Sort())
			gen = NewInverseTableGenerator(inner, full)
		} else {
			gen = inner
		}
	} else {
		gen = NewTableGenerator(atom.Pred, pattern, argVars, pi)
	}
	return f.wrapSortChecks(gen, atom, pattern, argVars)
}

// wrapSortChecks restricts gen's output variables to their own
// declared sort whenever the predicate's symbol sort at that position
// could admit a broader or unrelated domain (GeneratorFactory::create's
// PARENT/UNKNOWN cases; CHILD and EQUAL need no extra check, since the
// symbol's table is already at least as narrow as the variable's own
// sort).
func (f *Factory) wrapSortChecks(gen Generator, atom *iast.Atom, pattern Pattern, argVars []*iast.Variable) Generator {
	for i, v := range argVars {
		if v == nil || i >= len(pattern) || pattern[i] != Output || i >= len(atom.Pred.Sorts) {
			continue
		}
		switch classifySort(atom.Pred.Sorts[i], v.Sort()) {
		case RelParent, RelUnknown:
			gen = NewOneChildGenerator(gen, &checkerFilter{Checker: &SortChecker{Var: v, Sort: v.Sort()}})
		}
	}
	return gen
}

// checkerFilter adapts a Checker to Generator's restartable-cursor
// interface: it binds no output variables and succeeds exactly once,
// iff Check holds over whatever is already in Bindings when Reset
// runs — the "Checker as a degenerate zero-output Generator" shape
// spec §4.4 describes, letting OneChildGenerator fold a plain
// condition test into a conjunction alongside real generators.
type checkerFilter struct {
	Checker Checker
	ok      bool
	done    bool
}

func (g *checkerFilter) Vars() []*iast.Variable { return nil }

func (g *checkerFilter) Reset(bindings Bindings) {
	g.done = false
	g.ok = g.Checker.Check(bindings)
}

func (g *checkerFilter) Next(Bindings) bool {
	if g.done || !g.ok {
		return false
	}
	g.done = true
	return true
}

func (g *checkerFilter) IsAtEnd() bool   { return g.done || !g.ok }
func (g *checkerFilter) Clone() Generator { cp := *g; return &cp }

// termShape classifies one side of a comparison/function-equality
// atom after fobdd's De Bruijn indexing: a ground constant, the
// variable an IndexTerm stands for (resolved through varOf), or a
// single-level function application. Deeper nesting (a FuncApp whose
// own argument is itself a FuncApp) is outside forComparisonAtom's
// scope — the arithmetic simplification pipeline
// (idpgo/fobdd/visit.Simplify) normalises most such terms to this
// shape already; what survives unnormalised falls through to
// EmptyGenerator below rather than being silently mishandled.
type termShape struct {
	isConst bool
	konst   iast.DomainElement
	v       *iast.Variable
	fn      *iast.FuncApp
}

func (f *Factory) describeTerm(t iast.Term, varOf func(int) *iast.Variable) termShape {
	if c, ok := iast.AsConst(t); ok {
		return termShape{isConst: true, konst: c}
	}
	switch n := t.(type) {
	case *iast.IndexTerm:
		return termShape{v: varOf(n.Index)}
	case *iast.FuncApp:
		return termShape{fn: n}
	default:
		return termShape{}
	}
}

// asVar returns t's Variable, or — when t is a constant — a freshly
// synthesized Variable pre-bound to that constant via preset, so a
// catalogue generator that only knows how to read an argument out of
// Bindings (SimpleFuncGenerator, MinusGenerator, ...) can still be
// reused when one operand is a literal rather than a free variable.
func (t termShape) asVar(preset map[*iast.Variable]iast.DomainElement, sort *iast.Sort) *iast.Variable {
	if t.v != nil {
		return t.v
	}
	synth := iast.NewVariable("_const", sort)
	preset[synth] = t.konst
	return synth
}

// presetGenerator seeds bindings with a fixed set of (variable,value)
// pairs before delegating to inner — the glue asVar's synthetic
// constant-holding variables need so a wrapped catalogue generator
// sees them as already bound, the same role a TableGenerator's bound
// INPUT columns play for an ordinary atom.
type presetGenerator struct {
	inner  Generator
	preset map[*iast.Variable]iast.DomainElement
}

func presetWrap(gen Generator, preset map[*iast.Variable]iast.DomainElement) Generator {
	if len(preset) == 0 {
		return gen
	}
	return &presetGenerator{inner: gen, preset: preset}
}

func (g *presetGenerator) Vars() []*iast.Variable { return g.inner.Vars() }

func (g *presetGenerator) Reset(bindings Bindings) {
	for v, val := range g.preset {
		bindings[v] = val
	}
	g.inner.Reset(bindings)
}

func (g *presetGenerator) Next(bindings Bindings) bool { return g.inner.Next(bindings) }
func (g *presetGenerator) IsAtEnd() bool               { return g.inner.IsAtEnd() }
func (g *presetGenerator) Clone() Generator {
	return &presetGenerator{inner: g.inner.Clone(), preset: g.preset}
}

// negateCompareOp returns op's negation, the relation a negated
// comparison atom (~x<y) actually tests.
func negateCompareOp(op iast.CompareOp) iast.CompareOp {
	switch op {
	case iast.CmpEQ:
		return iast.CmpNE
	case iast.CmpNE:
		return iast.CmpEQ
	case iast.CmpLT:
		return iast.CmpGE
	case iast.CmpLE:
		return iast.CmpGT
	case iast.CmpGT:
		return iast.CmpLE
	case iast.CmpGE:
		return iast.CmpLT
	}
	return op
}

// flipCompareOp returns the operator that holds when op's two
// operands are swapped (a<b becomes b>a), needed whenever the free
// variable of a var/const comparison sits on the right.
func flipCompareOp(op iast.CompareOp) iast.CompareOp {
	switch op {
	case iast.CmpLT:
		return iast.CmpGT
	case iast.CmpLE:
		return iast.CmpGE
	case iast.CmpGT:
		return iast.CmpLT
	case iast.CmpGE:
		return iast.CmpLE
	}
	return op
}

// constBoolChecker is a Checker that ignores Bindings and always
// reports a fixed verdict — forPlainComparison's degenerate case of
// two already-equal/unequal constants.
type constBoolChecker bool

func (c constBoolChecker) Check(Bindings) bool { return bool(c) }

// boundConstChecker checks Var's bound value against a fixed Const
// under Op — the atom-compiler's equivalent of arithChecker, but for
// a unary comparison against a literal rather than a second variable.
type boundConstChecker struct {
	Var   *iast.Variable
	Op    iast.CompareOp
	Const iast.DomainElement
}

func (c *boundConstChecker) Check(bindings Bindings) bool {
	return compareHolds(bindings[c.Var], c.Op, c.Const)
}

// varCompareChecker checks two already-bound variables against each
// other under Op.
type varCompareChecker struct {
	Left, Right *iast.Variable
	Op          iast.CompareOp
}

func (c *varCompareChecker) Check(bindings Bindings) bool {
	return compareHolds(bindings[c.Left], c.Op, bindings[c.Right])
}

// boundComparisonGenerator wraps a ComparisonGenerator whose Bound is
// re-read from Bindings at every Reset instead of fixed at
// construction time — letting one free variable be compared against
// another variable's runtime value (rather than a literal), the
// common shape of "x < y" with y already bound by an earlier
// generator in the same conjunction.
type boundComparisonGenerator struct {
	inner   *ComparisonGenerator
	boundBy *iast.Variable
}

func (g *boundComparisonGenerator) Vars() []*iast.Variable { return g.inner.Vars() }

func (g *boundComparisonGenerator) Reset(bindings Bindings) {
	g.inner.Bound = bindings[g.boundBy]
	g.inner.Reset(bindings)
}

func (g *boundComparisonGenerator) Next(bindings Bindings) bool { return g.inner.Next(bindings) }
func (g *boundComparisonGenerator) IsAtEnd() bool               { return g.inner.IsAtEnd() }
func (g *boundComparisonGenerator) Clone() Generator {
	return &boundComparisonGenerator{inner: g.inner.Clone().(*ComparisonGenerator), boundBy: g.boundBy}
}

// forComparisonAtom compiles an atom over one of the built-in
// comparison predicates (ast.PredEquals and friends). These carry no
// Sorts and so never resolve to a PredicateInterpretation
// (original_source's BDDBasedGeneratorFactory routes them through
// BuiltinInternalPredTable rather than the ordinary atom-table path);
// idpgo dispatches them to the catalogue's arithmetic/comparison
// generators instead of falling through to the plain TableGenerator
// path, which would silently produce zero rows for every such atom.
func (f *Factory) forComparisonAtom(atom *iast.Atom, op iast.CompareOp, pattern Pattern, varOf func(i int) *iast.Variable) Generator {
	if atom.Sign == iast.Neg {
		op = negateCompareOp(op)
	}
	left := f.describeTerm(atom.Args[0], varOf)
	right := f.describeTerm(atom.Args[1], varOf)
	leftMode, rightMode := Input, Input
	if len(pattern) > 0 {
		leftMode = pattern[0]
	}
	if len(pattern) > 1 {
		rightMode = pattern[1]
	}

	if left.fn == nil && right.fn == nil {
		return f.forPlainComparison(op, left, leftMode, right, rightMode)
	}

	if op != iast.CmpEQ {
		// Inverting an arithmetic function under a non-equality
		// comparison ("x+y<5" with x free) has no preimage generator
		// in the catalogue — only function-application equality is
		// inverted below.
		return &EmptyGenerator{}
	}

	if left.fn != nil && right.fn != nil {
		return &EmptyGenerator{} // a function application on both sides isn't invertible without first solving one side
	}
	fnSide, fnMode, otherSide, otherMode := left, leftMode, right, rightMode
	if fnSide.fn == nil {
		fnSide, fnMode, otherSide, otherMode = right, rightMode, left, leftMode
	}
	return f.forFuncEquality(fnSide.fn, fnMode, otherSide, otherMode, varOf)
}

// forPlainComparison compiles a comparison between two terms neither
// of which is a function application — each is either a constant or
// the variable an IndexTerm stands for.
func (f *Factory) forPlainComparison(op iast.CompareOp, left termShape, leftMode Mode, right termShape, rightMode Mode) Generator {
	switch {
	case left.isConst && right.isConst:
		return &checkerFilter{Checker: constBoolChecker(compareHolds(left.konst, op, right.konst))}

	case left.v != nil && right.isConst:
		return f.varVsConst(left.v, leftMode, op, right.konst)

	case left.isConst && right.v != nil:
		return f.varVsConst(right.v, rightMode, flipCompareOp(op), left.konst)

	case left.v != nil && right.v != nil:
		switch {
		case leftMode == Output && rightMode == Output:
			inner := &ComparisonGenerator{Var: right.v, Sort: right.v.Sort(), Op: flipCompareOp(op)}
			return NewOneChildGenerator(NewFullGenerator(left.v, left.v.Sort()), &boundComparisonGenerator{inner: inner, boundBy: left.v})
		case leftMode == Output:
			return &boundComparisonGenerator{inner: &ComparisonGenerator{Var: left.v, Sort: left.v.Sort(), Op: op}, boundBy: right.v}
		case rightMode == Output:
			return &boundComparisonGenerator{inner: &ComparisonGenerator{Var: right.v, Sort: right.v.Sort(), Op: flipCompareOp(op)}, boundBy: left.v}
		default:
			return &checkerFilter{Checker: &varCompareChecker{Left: left.v, Right: right.v, Op: op}}
		}
	}
	return &EmptyGenerator{}
}

// varVsConst compiles "v op konst": a ComparisonGenerator when v is
// still free, a Checker against v's already-bound value otherwise.
func (f *Factory) varVsConst(v *iast.Variable, mode Mode, op iast.CompareOp, konst iast.DomainElement) Generator {
	if mode == Output {
		return &ComparisonGenerator{Var: v, Sort: v.Sort(), Bound: konst, Op: op}
	}
	return &checkerFilter{Checker: &boundConstChecker{Var: v, Op: op, Const: konst}}
}

// forFuncEquality compiles "fn(args...) = other", the function
// application side of an equality atom. The forward direction (fn's
// arguments all known, fn's value is the thing being produced)
// dispatches to SimpleFuncGenerator; the inverse direction (fn's
// value already known via other, exactly one of fn's own arguments is
// still free) dispatches to the matching named inverse generator; the
// fully-bound direction (every argument and other already known)
// dispatches to PlusChecker/TimesChecker/ModChecker or a generic
// arithChecker/unaryArithChecker, verifying rather than generating.
// Anything needing more than one free argument, or a nested function
// application inside fn's own arguments, is conservatively out of
// scope and yields EmptyGenerator rather than under-generating.
func (f *Factory) forFuncEquality(fn *iast.FuncApp, fnMode Mode, other termShape, otherMode Mode, varOf func(i int) *iast.Variable) Generator {
	args := make([]termShape, len(fn.Args))
	for i, a := range fn.Args {
		shape := f.describeTerm(a, varOf)
		if shape.fn != nil {
			return &EmptyGenerator{} // nested function application: out of scope
		}
		args[i] = shape
	}

	preset := map[*iast.Variable]iast.DomainElement{}

	if fnMode == Input && otherMode == Output && other.v != nil {
		argVars := make([]*iast.Variable, len(args))
		for i, a := range args {
			sort := iast.SortInt
			if i < len(fn.Func.Args) {
				sort = fn.Func.Args[i]
			}
			argVars[i] = a.asVar(preset, sort)
		}
		gen := &SimpleFuncGenerator{Func: fn.Func, Out: other.v, ArgVars: argVars}
		if !iast.IsArithFunc(fn.Func) {
			fi, ok := f.Structure.Functions[fn.Func.Name]
			if !ok {
				return &EmptyGenerator{}
			}
			gen.FI = fi
		}
		return presetWrap(gen, preset)
	}

	if fnMode == Output && otherMode == Input && other.v != nil {
		switch len(args) {
		case 1:
			if args[0].v == nil {
				return &EmptyGenerator{}
			}
			switch fn.Func {
			case iast.FuncAbs:
				return &InverseAbsValueGenerator{Out: args[0].v, Result: other.v}
			case iast.FuncUnaryMinus:
				return &UnaryMinusGenerator{Out: args[0].v, Result: other.v}
			}
			return &EmptyGenerator{}
		case 2:
			freeIdx := -1
			for i, a := range args {
				if a.isConst {
					continue
				}
				if a.v == nil || freeIdx != -1 {
					return &EmptyGenerator{}
				}
				freeIdx = i
			}
			if freeIdx == -1 {
				return &EmptyGenerator{}
			}
			knownIdx := 1 - freeIdx
			knownVar := args[knownIdx].asVar(preset, fn.Func.Args[knownIdx])
			knownIsLeft := freeIdx == 1
			float := fn.Func == iast.FuncMinusFloat || fn.Func == iast.FuncDivFloat
			var gen Generator
			switch fn.Func {
			case iast.FuncMinus, iast.FuncMinusFloat:
				gen = NewMinusGenerator(knownVar, args[freeIdx].v, other.v, knownIsLeft, float)
			case iast.FuncDiv, iast.FuncDivFloat:
				gen = NewDivGenerator(knownVar, args[freeIdx].v, other.v, knownIsLeft, float)
			default:
				// +, *, % inversion with one free argument has no
				// dedicated generator in the catalogue: the original's
				// per-InternalFuncTable split never names a ninth,
				// commutative-op inverse type.
				return &EmptyGenerator{}
			}
			return presetWrap(gen, preset)
		}
	}

	if fnMode == Input && otherMode == Input {
		resultVar := other.asVar(preset, fn.Func.Result)
		switch len(args) {
		case 1:
			if fn.Func != iast.FuncAbs && fn.Func != iast.FuncUnaryMinus {
				return &EmptyGenerator{}
			}
			argVar := args[0].asVar(preset, fn.Func.Args[0])
			return presetWrap(&checkerFilter{Checker: &unaryArithChecker{Fn: fn.Func, Arg: argVar, Result: resultVar}}, preset)
		case 2:
			lVar := args[0].asVar(preset, fn.Func.Args[0])
			rVar := args[1].asVar(preset, fn.Func.Args[1])
			float := fn.Func == iast.FuncPlusFloat || fn.Func == iast.FuncMinusFloat ||
				fn.Func == iast.FuncTimesFloat || fn.Func == iast.FuncDivFloat
			var checker Checker
			switch fn.Func {
			case iast.FuncPlus, iast.FuncPlusFloat:
				checker = NewPlusChecker(lVar, rVar, resultVar, float)
			case iast.FuncTimes, iast.FuncTimesFloat:
				checker = NewTimesChecker(lVar, rVar, resultVar, float)
			case iast.FuncMod:
				checker = NewModChecker(lVar, rVar, resultVar)
			default:
				// Minus/Div have no named Checker type (only their
				// inverse Generator above is named in the catalogue),
				// but arithChecker's evaluator is generic over Fn.
				checker = &arithChecker{Fn: fn.Func, L: lVar, R: rVar, Result: resultVar}
			}
			return presetWrap(&checkerFilter{Checker: checker}, preset)
		}
	}
	return &EmptyGenerator{}
}

// unaryArithChecker verifies a fully-bound unary arithmetic relation
// fn(Arg) = Result — the abs/unary-minus analogue of arithChecker's
// binary case, needed because PlusChecker/TimesChecker/ModChecker only
// cover the catalogue's binary functions.
type unaryArithChecker struct {
	Fn     *iast.Function
	Arg    *iast.Variable
	Result *iast.Variable
}

func (c *unaryArithChecker) Check(bindings Bindings) bool {
	arg, aok := arithValue(bindings[c.Arg])
	res, rok := arithValue(bindings[c.Result])
	if !aok || !rok {
		return false
	}
	var want float64
	switch c.Fn {
	case iast.FuncAbs:
		want = math.Abs(arg)
	case iast.FuncUnaryMinus:
		want = -arg
	default:
		return false
	}
	return want == res
}

