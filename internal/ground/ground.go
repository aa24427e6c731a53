// Package ground implements the grounder tree (spec §4.9/§4.10):
// walking a Theory's formulas with a Structure's generators to
// produce propositional clauses, definition rules, and aggregate/CP
// reifications into an ecnf.GroundTheory.
//
// Grounded on internal/mangle/engine.go's RecomputeRules/
// EvalProgramWithStats pattern (evaluate against a fact store,
// walking rule bodies left to right instantiating variables one at a
// time) and original_source/src/groundtheories/IDP2ECNF.hpp (the
// concrete ground constructs a grounder tree must produce, already
// mirrored in package ecnf).
package ground

import (
	"math"

	mast "github.com/google/mangle/ast"
	iast "idpgo/internal/ast"
	"idpgo/internal/ecnf"
	"idpgo/internal/generate"
	"idpgo/internal/ground/lazy"
	"idpgo/internal/idperr"
	"idpgo/internal/logging"
	"idpgo/internal/structure"
)

// weightOf extracts a WeightedSet tuple's numeric weight from a
// ground DomainElement, mirroring engine.go's ConstantToString case
// decoding of NumberType/Float64Type (Float64Type packs its bits into
// NumValue, per mangle's ast.Float64 constructor).
func weightOf(e iast.DomainElement) float64 {
	if e.Type == mast.Float64Type {
		return math.Float64frombits(uint64(e.NumValue))
	}
	return float64(e.NumValue)
}

// Context carries the shared state a Grounder needs: the structure
// being grounded against, the output ground theory, and the Tseitin
// atom cache so re-grounding an already-seen subformula reuses its
// atom instead of duplicating it.
type Context struct {
	Structure *structure.Structure
	Theory    *ecnf.GroundTheory
	Factory   *generate.Factory

	// Lazy is the spec §4.7 delay/watch scheduler. Every Context owns
	// one: groundQuantified always registers it against a quantified
	// variable whose sort cannot be safely enumerated (the built-in
	// infinite sorts, or any sort table reporting unknown finiteness),
	// so further instances keep arriving as new literals over that
	// sort are minted instead of this package ever calling
	// SortTable.Iterate on an infinite table.
	Lazy *lazy.Manager

	tseitins map[string]ecnf.Literal

	// AtomTuples maps a fresh atom id minted for a predicate atom back
	// to the predicate and argument tuple it stands for, so a reader
	// of the finished GroundTheory (idpgo/definition's write-back,
	// idpgo/ground/lazy's NotifyNewLiteral) can recover it without
	// reparsing AtomNames.
	AtomTuples map[int]AtomInfo

	// inLazyCallback is true while re-grounding a quantifier instance
	// from inside a watchLazyInstances delay callback, so groundAtom
	// can tell the GroundTheory apart from the initial active-domain
	// pass (spec §6's `LazyAtom` wire directive).
	inLazyCallback bool
}

// AtomInfo records which predicate application a ground atom id stands
// for.
type AtomInfo struct {
	Pred  *iast.Predicate
	Tuple []iast.DomainElement
}

// NewContext builds a grounding Context writing into theory.
func NewContext(s *structure.Structure, theory *ecnf.GroundTheory) *Context {
	return &Context{
		Structure:  s,
		Theory:     theory,
		Factory:    generate.NewFactory(s),
		Lazy:       lazy.NewManager(),
		tseitins:   make(map[string]ecnf.Literal),
		AtomTuples: make(map[int]AtomInfo),
	}
}

func (c *Context) internTseitin(key string, make_ func() ecnf.Literal) ecnf.Literal {
	if l, ok := c.tseitins[key]; ok {
		return l
	}
	l := make_()
	c.tseitins[key] = l
	return l
}

// GroundFormula grounds f under the (possibly partial) variable
// binding bindings, returning the ground literal that stands for f's
// truth value. A fully ground atom becomes (or reuses) its own atom
// id; a formula with remaining free variables is an error — callers
// must first enumerate bindings via a Generator (spec §4.9's
// "grounding instantiates every free variable before reifying").
func (c *Context) GroundFormula(f iast.Formula, bindings generate.Bindings) (ecnf.Literal, error) {
	switch n := f.(type) {
	case *iast.Atom:
		return c.groundAtom(n, bindings)
	case *iast.Comparison:
		return c.groundComparison(n, bindings)
	case *iast.BoolForm:
		return c.groundBoolForm(n, bindings)
	case *iast.Quantified:
		return c.groundQuantified(n, bindings)
	case *iast.Equiv:
		return c.groundEquiv(n, bindings)
	case *iast.AggComparison:
		return c.groundAggComparison(n, bindings)
	default:
		return 0, idperr.Internal("ground: unhandled formula node %T", f)
	}
}

func substitute(t iast.Term, bindings generate.Bindings) (iast.DomainElement, bool) {
	if v, ok := t.(*iast.Variable); ok {
		e, ok := bindings[v]
		return e, ok
	}
	return iast.AsConst(t)
}

func (c *Context) groundAtom(a *iast.Atom, bindings generate.Bindings) (ecnf.Literal, error) {
	tuple := make([]iast.DomainElement, len(a.Args))
	for i, arg := range a.Args {
		e, ok := substitute(arg, bindings)
		if !ok {
			return 0, idperr.Internal("ground: atom %s has unbound argument %d", a, i)
		}
		tuple[i] = e
	}
	pi, ok := c.Structure.Predicate(a.Pred.Name)
	if ok {
		if pi.IsCT(tuple) {
			return litSign(c.trueLit(), a.Sign), nil
		}
		if pi.IsCF(tuple) {
			return litSign(c.falseLit(), a.Sign), nil
		}
	}
	key := a.Pred.Name + "(" + tupleKey(tuple) + ")"
	lit := c.internTseitin(key, func() ecnf.Literal {
		l := c.Theory.FreshAtom(key)
		c.AtomTuples[l.Atom()] = AtomInfo{Pred: a.Pred, Tuple: tuple}
		if c.inLazyCallback {
			c.Theory.DeclareLazyAtom(l.Atom(), key)
		}
		// A fresh atom over a.Pred is exactly the "newly minted ground
		// literal" event spec §4.7's lazy manager watches for: any
		// delay registered against a.Pred (groundQuantified's
		// infinite-sort watches, or a Definition's own delay) may now
		// be satisfiable.
		c.Lazy.NotifyNewLiteral(a.Pred, tuple, l, true)
		return l
	})
	return litSign(lit, a.Sign), nil
}

func tupleKey(tuple []iast.DomainElement) string {
	key := ""
	for _, e := range tuple {
		key += e.String() + "\x00"
	}
	return key
}

func litSign(l ecnf.Literal, sign iast.Sign) ecnf.Literal {
	if sign == iast.Neg {
		return l.Negate()
	}
	return l
}

func (c *Context) trueLit() ecnf.Literal {
	return c.internTseitin("$true", func() ecnf.Literal {
		l := c.Theory.FreshAtom("$true")
		c.Theory.AddClause(ecnf.Clause{l})
		return l
	})
}

func (c *Context) falseLit() ecnf.Literal {
	return c.trueLit().Negate()
}

func (c *Context) groundComparison(cmp *iast.Comparison, bindings generate.Bindings) (ecnf.Literal, error) {
	left, lok := substitute(cmp.Left, bindings)
	right, rok := substitute(cmp.Right, bindings)
	if !lok || !rok {
		return 0, idperr.Internal("ground: comparison %s has unbound argument", cmp)
	}
	holds := compareHolds(left, cmp.Op, right)
	if cmp.Sign == iast.Neg {
		holds = !holds
	}
	if holds {
		return c.trueLit(), nil
	}
	return c.falseLit(), nil
}

func compareHolds(left iast.DomainElement, op iast.CompareOp, right iast.DomainElement) bool {
	if left.Type != right.Type {
		return op == iast.CmpNE
	}
	l, r := weightOf(left), weightOf(right)
	switch op {
	case iast.CmpEQ:
		return left.String() == right.String()
	case iast.CmpNE:
		return left.String() != right.String()
	case iast.CmpLT:
		return l < r
	case iast.CmpLE:
		return l <= r
	case iast.CmpGT:
		return l > r
	case iast.CmpGE:
		return l >= r
	}
	return false
}

func (c *Context) groundBoolForm(b *iast.BoolForm, bindings generate.Bindings) (ecnf.Literal, error) {
	lits := make([]ecnf.Literal, len(b.Subforms))
	for i, sub := range b.Subforms {
		l, err := c.GroundFormula(sub, bindings)
		if err != nil {
			return 0, err
		}
		lits[i] = l
	}
	key := b.String()
	tseitin := c.internTseitin(key, func() ecnf.Literal { return c.Theory.FreshAtom(key) })
	if b.Op == iast.Conj {
		c.Theory.AddImplication(ecnf.Implication{Tseitin: tseitin, Sem: ecnf.TsEQ, Lits: lits, Conjunctive: true})
	} else {
		c.Theory.AddImplication(ecnf.Implication{Tseitin: tseitin, Sem: ecnf.TsEQ, Lits: lits, Conjunctive: false})
	}
	return litSign(tseitin, b.Sign), nil
}

func (c *Context) groundEquiv(e *iast.Equiv, bindings generate.Bindings) (ecnf.Literal, error) {
	l, err := c.GroundFormula(e.Left, bindings)
	if err != nil {
		return 0, err
	}
	r, err := c.GroundFormula(e.Right, bindings)
	if err != nil {
		return 0, err
	}
	key := e.String()
	tseitin := c.internTseitin(key, func() ecnf.Literal { return c.Theory.FreshAtom(key) })
	sem := ecnf.TsEQ
	switch e.Op {
	case iast.EquivImpl:
		sem = ecnf.TsImpl
	case iast.EquivRImpl:
		sem = ecnf.TsRImpl
	}
	c.Theory.AddImplication(ecnf.Implication{Tseitin: tseitin, Sem: sem, Lits: []ecnf.Literal{l, r}, Conjunctive: true})
	return litSign(tseitin, e.Sign), nil
}

// groundQuantified grounds a quantified formula by enumerating the
// quantified variable's sort (eagerly for a sort whose table is
// known-finite; over the structure's currently-observed active
// domain, plus a standing watch for more, for any sort — chiefly the
// built-in int/float/string — whose table cannot be safely iterated
// at all). This is spec §4.7's lazy grounding: a quantifier over an
// infinite sort is never fully expanded, only the instances already
// witnessed by some ground atom, with further instances folded in
// as c.Lazy observes new ones (see watchLazyInstances).
func (c *Context) groundQuantified(q *iast.Quantified, bindings generate.Bindings) (ecnf.Literal, error) {
	var instances []ecnf.Literal
	var innerErr error
	c.enumerate(q.Vars, bindings, func(extended generate.Bindings) bool {
		l, err := c.GroundFormula(q.Subform, extended)
		if err != nil {
			innerErr = err
			return false
		}
		instances = append(instances, l)
		return true
	})
	if innerErr != nil {
		return 0, innerErr
	}
	conj := q.Quant == iast.Forall
	// A false instance decides a universal and a true one an
	// existential: the quantifier then grounds to that constant.
	if t, ok := c.tseitins["$true"]; ok {
		decided := t
		if conj {
			decided = t.Negate()
		}
		for _, l := range instances {
			if l == decided {
				return litSign(decided, q.Sign), nil
			}
		}
	}
	key := q.String()
	tseitin := c.internTseitin(key, func() ecnf.Literal { return c.Theory.FreshAtom(key) })

	var lazyVars []*iast.Variable
	for _, v := range q.Vars {
		if !safeToEnumerate(v.Sort()) {
			lazyVars = append(lazyVars, v)
		}
	}
	c.Theory.AddImplication(ecnf.Implication{Tseitin: tseitin, Sem: ecnf.TsEQ, Lits: instances, Conjunctive: conj, Lazy: len(lazyVars) > 0})

	for _, v := range lazyVars {
		c.watchLazyInstances(q, bindings, tseitin, v)
	}
	return litSign(tseitin, q.Sign), nil
}

// safeToEnumerate reports whether sort's table may be passed to
// Iterate: only a table that reports itself both known and finite
// qualifies — anything else (the built-in infinite sorts, or a sort
// table of genuinely unknown size) must instead go through
// sortElements' active-domain fallback.
func safeToEnumerate(sort *iast.Sort) bool {
	finite, known := sort.Table.Finite()
	return known && finite
}

// sortElements lists the DomainElements grounding currently knows
// belong to sort: every element of sort's own table when that table
// is safe to Iterate, or the structure's active domain of sort
// (every element already observed in that argument position of some
// predicate's ct/cf facts) otherwise. Never calls Iterate on a table
// that isn't known-finite (spec §4.7's reason the lazy manager
// exists at all: a built-in infinite sort has no enumerable table).
func (c *Context) sortElements(sort *iast.Sort) []iast.DomainElement {
	if safeToEnumerate(sort) {
		var out []iast.DomainElement
		sort.Table.Iterate(func(e iast.DomainElement) bool {
			out = append(out, e)
			return true
		})
		return out
	}
	return c.activeDomain(sort)
}

// activeDomain collects every DomainElement the structure already
// witnesses as belonging to sort, by scanning every predicate's
// ct/cf facts for a value at an argument position typed with sort.
func (c *Context) activeDomain(sort *iast.Sort) []iast.DomainElement {
	seen := make(map[string]bool)
	var out []iast.DomainElement
	add := func(e iast.DomainElement) {
		k := e.String()
		if !seen[k] {
			seen[k] = true
			out = append(out, e)
		}
	}
	for _, pred := range c.Structure.Vocab.Predicates() {
		pi, ok := c.Structure.Predicate(pred.Name)
		if !ok {
			continue
		}
		for i, s := range pred.Sorts {
			if s != sort {
				continue
			}
			i := i
			pi.CTFacts(func(tuple []iast.DomainElement) { add(tuple[i]) })
			pi.CFFacts(func(tuple []iast.DomainElement) { add(tuple[i]) })
		}
	}
	return out
}

// watchLazyInstances registers one self-perpetuating delay per
// predicate mentioning sort, so that every later-minted literal over
// a predicate argument of that sort folds a fresh instance of q into
// tseitin's implication (spec §4.7/§8 scenario 6: grounding a
// quantifier over an infinite sort must terminate without ever
// enumerating the sort, yet still pick up instances discovered after
// the initial active-domain pass).
func (c *Context) watchLazyInstances(q *iast.Quantified, bindings generate.Bindings, tseitin ecnf.Literal, v *iast.Variable) {
	sort := v.Sort()
	seen := make(map[string]bool)
	for _, e := range c.sortElements(sort) {
		seen[e.String()] = true
	}

	for _, pred := range c.Structure.Vocab.Predicates() {
		positions := sortPositions(pred, sort)
		if len(positions) == 0 {
			continue
		}
		pred, positions := pred, positions

		var register func()
		register = func() {
			watch := lazy.Watch{Pred: pred, Args: make([]*iast.DomainElement, len(pred.Sorts)), Wants: true}
			c.Lazy.Delay([]lazy.Watch{watch}, func() error {
				pi, ok := c.Structure.Predicate(pred.Name)
				if !ok {
					register()
					return nil
				}
				var newInstances []ecnf.Literal
				var innerErr error
				visit := func(tuple []iast.DomainElement) {
					for _, pos := range positions {
						e := tuple[pos]
						if seen[e.String()] {
							continue
						}
						seen[e.String()] = true
						extended := make(generate.Bindings, len(bindings)+1)
						for k, val := range bindings {
							extended[k] = val
						}
						extended[v] = e
						c.inLazyCallback = true
						l, err := c.GroundFormula(q.Subform, extended)
						c.inLazyCallback = false
						if err != nil {
							innerErr = err
							continue
						}
						newInstances = append(newInstances, l)
					}
				}
				pi.CTFacts(visit)
				pi.CFFacts(visit)
				for _, info := range c.AtomTuples {
					if info.Pred == pred {
						visit(info.Tuple)
					}
				}
				if len(newInstances) > 0 {
					c.Theory.ExtendImplication(tseitin, newInstances...)
				}
				register()
				return innerErr
			})
		}
		register()
	}
}

// sortPositions lists the argument indices of pred typed with sort.
func sortPositions(pred *iast.Predicate, sort *iast.Sort) []int {
	var out []int
	for i, s := range pred.Sorts {
		if s == sort {
			out = append(out, i)
		}
	}
	return out
}

// enumerate calls visit once per complete extension of bindings over
// vars' sorts, depth-first, stopping early if visit returns false.
// Each variable's candidate elements come from sortElements, never
// from calling the sort's own table.Iterate directly, so quantifying
// over a built-in infinite sort can never panic.
func (c *Context) enumerate(vars []*iast.Variable, bindings generate.Bindings, visit func(generate.Bindings) bool) {
	if len(vars) == 0 {
		visit(bindings)
		return
	}
	v := vars[0]
	rest := vars[1:]
	for _, e := range c.sortElements(v.Sort()) {
		extended := make(generate.Bindings, len(bindings)+1)
		for k, val := range bindings {
			extended[k] = val
		}
		extended[v] = e
		cont := true
		c.enumerate(rest, extended, func(b generate.Bindings) bool {
			cont = visit(b)
			return cont
		})
		if !cont {
			return
		}
	}
}

func (c *Context) groundAggComparison(a *iast.AggComparison, bindings generate.Bindings) (ecnf.Literal, error) {
	bound, ok := substitute(a.Bound, bindings)
	if !ok {
		return 0, idperr.Internal("ground: aggregate comparison %s has unbound bound", a)
	}
	setID := c.Theory.NextAtomID
	c.Theory.NextAtomID++
	var tuples []ecnf.WeightedTuple
	var innerErr error
	c.enumerate(a.Agg.Set.Vars, bindings, func(extended generate.Bindings) bool {
		condLit, err := c.GroundFormula(a.Agg.Set.Condition, extended)
		if err != nil {
			innerErr = err
			return false
		}
		weight, ok := substitute(a.Agg.Set.Weight, extended)
		if !ok {
			innerErr = idperr.Internal("ground: set term weight unbound")
			return false
		}
		tuples = append(tuples, ecnf.WeightedTuple{Lit: condLit, Weight: weightOf(weight)})
		return true
	})
	if innerErr != nil {
		return 0, innerErr
	}
	c.Theory.AddSet(ecnf.WeightedSet{ID: setID, Tuples: tuples})

	key := a.String()
	head := c.internTseitin(key, func() ecnf.Literal { return c.Theory.FreshAtom(key) })
	kind := aggKindOf(a.Agg.Function)
	lowerBound := a.Op == iast.CmpGE || a.Op == iast.CmpGT
	c.Theory.AddAggregate(ecnf.Aggregate{
		Head: litSign(head, a.Sign), SetID: setID, Bound: float64(bound.NumValue),
		LowerBound: lowerBound, Kind: kind, Sem: ecnf.TsEQ,
	})
	return litSign(head, a.Sign), nil
}

func aggKindOf(f iast.AggFunction) ecnf.AggKind {
	switch f {
	case iast.AggSum:
		return ecnf.AggSum
	case iast.AggProd:
		return ecnf.AggProd
	case iast.AggMin:
		return ecnf.AggMin
	case iast.AggMax:
		return ecnf.AggMax
	default:
		return ecnf.AggCard
	}
}

// groundRuleBody grounds a rule body into the flat literal list
// ecnf.Rule expects, reading a top-level conjunction/disjunction's
// direct children as separate literals (instead of collapsing them
// through a Tseitin first, the one case IDP2ECNF.hpp's add(DefId,
// PCGroundRule) short-circuits for) and falling back to a single
// literal for anything else.
func groundRuleBody(f iast.Formula, bindings generate.Bindings, c *Context) ([]ecnf.Literal, ecnf.RuleType, error) {
	if b, ok := f.(*iast.BoolForm); ok && b.Sign == iast.Pos {
		lits := make([]ecnf.Literal, len(b.Subforms))
		for i, sub := range b.Subforms {
			l, err := c.GroundFormula(sub, bindings)
			if err != nil {
				return nil, 0, err
			}
			lits[i] = l
		}
		rt := ecnf.RuleConj
		if b.Op == iast.Disj {
			rt = ecnf.RuleDisj
		}
		return lits, rt, nil
	}
	l, err := c.GroundFormula(f, bindings)
	if err != nil {
		return nil, 0, err
	}
	return []ecnf.Literal{l}, ecnf.RuleConj, nil
}

// GroundRule grounds one definition rule: enumerate every free
// variable of head/body not already bound, and for each instance emit
// one ecnf.Rule tagged defID.
func (c *Context) GroundRule(r *iast.Rule, defID int, bindings generate.Bindings) error {
	vars := freeRuleVars(r, bindings)
	var innerErr error
	c.enumerate(vars, bindings, func(extended generate.Bindings) bool {
		headLit, err := c.groundAtom(r.Head, extended)
		if err != nil {
			innerErr = err
			return false
		}
		var body []ecnf.Literal
		var rt ecnf.RuleType
		if r.Body != nil {
			body, rt, err = groundRuleBody(r.Body, extended, c)
			if err != nil {
				innerErr = err
				return false
			}
		}
		c.Theory.AddRule(ecnf.Rule{DefID: defID, Head: headLit, Body: body, Type: rt})
		return true
	})
	return innerErr
}

func freeRuleVars(r *iast.Rule, bindings generate.Bindings) []*iast.Variable {
	seen := make(map[*iast.Variable]bool, len(bindings))
	for v := range bindings {
		seen[v] = true
	}
	var out []*iast.Variable
	add := func(vs []*iast.Variable) {
		for _, v := range vs {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	for _, arg := range r.Head.Args {
		if v, ok := arg.(*iast.Variable); ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	if r.Body != nil {
		add(iast.FreeVariables(r.Body))
	}
	return out
}

// GroundDefinition grounds every rule of d under defID d.ID.
func (c *Context) GroundDefinition(d *iast.Definition) error {
	for _, r := range d.Rules {
		if err := c.GroundRule(r, d.ID, nil); err != nil {
			return err
		}
	}
	return nil
}

// Ground grounds every component of t (standalone sentences as
// top-level unit clauses, Definitions rule by rule) against s,
// returning the resulting GroundTheory. A grounding-time
// unsatisfiability (a sentence collapsing to the false literal at the
// top level) replaces the whole theory with the single
// empty clause, per spec §4.10/§7.
func Ground(t *iast.Theory, s *structure.Structure) (*ecnf.GroundTheory, error) {
	theory := ecnf.NewGroundTheory()
	ctx := NewContext(s, theory)
	groundLog.Debugw("grounding theory", "name", t.Name, "components", len(t.Components))

	for _, f := range t.Sentences() {
		lit, err := ctx.GroundFormula(f, nil)
		if err != nil {
			return nil, err
		}
		if lit == ctx.falseLit() {
			theory.MakeUnsat()
			return theory, nil
		}
		theory.AddClause(ecnf.Clause{lit})
	}
	for _, d := range t.Definitions() {
		if err := ctx.GroundDefinition(d); err != nil {
			return nil, err
		}
	}
	groundLog.Debugw("grounding complete", "atoms", theory.NextAtomID-1, "clauses", len(theory.Clauses))
	return theory, nil
}

var groundLog = logging.For(logging.LayerGround)
