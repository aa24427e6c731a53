// Package definition implements definition evaluation (spec §4.7's
// "external collaborator, briefly", promoted to a full component):
// repeatedly pick a definition whose open symbols are all two-valued,
// ground it alone, run a direct fixpoint evaluator over its ground
// rules, and write the result back into the structure.
//
// Grounded on original_source/src/inferences/definitionevaluation/
// CalculateDefinitions.cpp's calculateKnownDefinitions loop, minus the
// XSB and external-solver branches: idpgo has no XSB or incremental
// SAT backend, so "ground the definition, run a single-model
// evaluator, write back" becomes a direct well-founded fixpoint
// computed in-process instead of a call out to a solver process.
package definition

import (
	"idpgo/internal/ast"
	"idpgo/internal/ecnf"
	"idpgo/internal/ground"
	"idpgo/internal/idperr"
	"idpgo/internal/logging"
	"idpgo/internal/structure"
)

// Opens returns, for each definition in defs, the set of predicates
// its rules read but do not themselves define (DefinitionUtils::opens).
func Opens(defs []*ast.Definition) map[*ast.Definition]map[*ast.Predicate]bool {
	out := make(map[*ast.Definition]map[*ast.Predicate]bool, len(defs))
	for _, d := range defs {
		defined := make(map[*ast.Predicate]bool)
		for _, p := range d.DefinedPredicates() {
			defined[p] = true
		}
		opens := make(map[*ast.Predicate]bool)
		for _, r := range d.Rules {
			if r.Body == nil {
				continue
			}
			ast.WalkFormula(r.Body, collector{opens: opens, defined: defined})
		}
		out[d] = opens
	}
	return out
}

type collector struct {
	opens   map[*ast.Predicate]bool
	defined map[*ast.Predicate]bool
}

func (c collector) VisitAtom(a *ast.Atom) bool {
	if !c.defined[a.Pred] {
		c.opens[a.Pred] = true
	}
	return true
}
func (c collector) VisitComparison(*ast.Comparison) bool         { return true }
func (c collector) VisitBoolForm(*ast.BoolForm) bool             { return true }
func (c collector) VisitQuantified(*ast.Quantified) bool         { return true }
func (c collector) VisitEquiv(*ast.Equiv) bool                   { return true }
func (c collector) VisitAggComparison(*ast.AggComparison) bool    { return true }

// approxTwoValuedOpens returns the subset of opens already exact
// (two-valued) in s.
func approxTwoValuedOpens(opens map[*ast.Predicate]bool, s *structure.Structure) []*ast.Predicate {
	var out []*ast.Predicate
	for p := range opens {
		pi, ok := s.Predicates[p.Name]
		if ok && pi.IsExact() {
			out = append(out, p)
		}
	}
	return out
}

// edge is one dependency-graph edge of a definition: rule r's head
// predicate depends on an occurrence of to, negatively if neg.
type edge struct {
	from, to *ast.Predicate
	neg      bool
}

func dependencyEdges(d *ast.Definition) []edge {
	var edges []edge
	for _, r := range d.Rules {
		if r.Body == nil {
			continue
		}
		ast.WalkFormula(r.Body, edgeCollector{head: r.Head.Pred, edges: &edges})
	}
	return edges
}

type edgeCollector struct {
	head  *ast.Predicate
	edges *[]edge
}

func (c edgeCollector) VisitAtom(a *ast.Atom) bool {
	*c.edges = append(*c.edges, edge{from: c.head, to: a.Pred, neg: a.Sign == ast.Neg})
	return true
}
func (c edgeCollector) VisitComparison(*ast.Comparison) bool      { return true }
func (c edgeCollector) VisitBoolForm(*ast.BoolForm) bool          { return true }
func (c edgeCollector) VisitQuantified(*ast.Quantified) bool      { return true }
func (c edgeCollector) VisitEquiv(*ast.Equiv) bool                { return true }
func (c edgeCollector) VisitAggComparison(*ast.AggComparison) bool { return true }

// hasRecursionOverNegation reports whether d's dependency graph has a
// cycle crossing a negative edge (DefinitionUtils::hasRecursionOverNegation).
func hasRecursionOverNegation(d *ast.Definition) bool {
	edges := dependencyEdges(d)
	adj := make(map[*ast.Predicate][]*ast.Predicate)
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
	}
	reaches := func(from, to *ast.Predicate) bool {
		seen := map[*ast.Predicate]bool{from: true}
		queue := []*ast.Predicate{from}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur == to {
				return true
			}
			for _, n := range adj[cur] {
				if !seen[n] {
					seen[n] = true
					queue = append(queue, n)
				}
			}
		}
		return false
	}
	for _, e := range edges {
		if e.neg && reaches(e.to, e.from) {
			return true
		}
	}
	return false
}

// triState is the classic three-valued lattice used while evaluating
// one definition's ground rules to a fixpoint.
type triState int

const (
	unknown triState = iota
	isTrue
	isFalse
)

func evalLit(l ecnf.Literal, vals map[int]triState) triState {
	v := vals[l.Atom()]
	if l.Negated() {
		switch v {
		case isTrue:
			return isFalse
		case isFalse:
			return isTrue
		}
	}
	return v
}

func evalBody(lits []ecnf.Literal, conj bool, vals map[int]triState) triState {
	if len(lits) == 0 {
		return isTrue
	}
	sawUnknown := false
	for _, l := range lits {
		v := evalLit(l, vals)
		if conj {
			if v == isFalse {
				return isFalse
			}
			if v == unknown {
				sawUnknown = true
			}
		} else {
			if v == isTrue {
				return isTrue
			}
			if v == unknown {
				sawUnknown = true
			}
		}
	}
	if sawUnknown {
		return unknown
	}
	if conj {
		return isTrue
	}
	return isFalse
}

// unitFacts reads the fixed truth value every unit clause of theory
// asserts, keyed by atom id. A definition's rule bodies reference
// atoms already resolved by the surrounding structure (the ct/cf
// literal the grounder shares for every already-exact atom) only as
// unit clauses, never as a rule of their own, so the fixpoint below
// must seed from these before it can see past them.
func unitFacts(theory *ecnf.GroundTheory) map[int]triState {
	facts := make(map[int]triState)
	for _, cl := range theory.Clauses {
		if len(cl) != 1 {
			continue
		}
		lit := cl[0]
		if lit.Negated() {
			facts[lit.Atom()] = isFalse
		} else {
			facts[lit.Atom()] = isTrue
		}
	}
	return facts
}

// evaluateGroundRules runs the Kripke-Kleene well-founded fixpoint of
// spec §4.9 over rules (all belonging to one DefID): iterate the
// immediate-consequence operator to derive every true atom, then
// close off every head no rule can still derive as false. seed
// carries every atom already known from outside the definition's own
// rules (unitFacts above).
func evaluateGroundRules(rules []ecnf.Rule, seed map[int]triState) map[int]triState {
	vals := make(map[int]triState, len(seed))
	for atom, v := range seed {
		vals[atom] = v
	}
	changed := true
	for changed {
		changed = false
		for _, r := range rules {
			if vals[r.Head.Atom()] == isTrue {
				continue
			}
			if evalBody(r.Body, r.Type == ecnf.RuleConj, vals) == isTrue {
				vals[r.Head.Atom()] = isTrue
				changed = true
			}
		}
	}
	byHead := make(map[int][]ecnf.Rule)
	for _, r := range rules {
		byHead[r.Head.Atom()] = append(byHead[r.Head.Atom()], r)
	}
	for head, hrules := range byHead {
		if vals[head] == isTrue {
			continue
		}
		allFalse := true
		for _, r := range hrules {
			if evalBody(r.Body, r.Type == ecnf.RuleConj, vals) != isFalse {
				allFalse = false
				break
			}
		}
		if allFalse {
			vals[head] = isFalse
		}
	}
	return vals
}

// CalculateKnownDefinitions repeatedly evaluates every definition of t
// whose open symbols are all two-valued in s, writing each result
// back into s, until no further definition becomes eligible. stable
// selects §6's STABLESEMANTICS behaviour: definitions with recursion
// over negation are skipped (with a warning) rather than evaluated,
// since totality cannot be checked by this evaluator.
func CalculateKnownDefinitions(t *ast.Theory, s *structure.Structure, stable bool) error {
	defs := t.Definitions()
	opens := Opens(defs)
	if stable {
		for _, d := range defs {
			if hasRecursionOverNegation(d) {
				defLog.Warnw("ignoring definition with recursion over negation under stable semantics", "defID", d.ID)
				delete(opens, d)
			}
		}
	}

	remaining := make(map[*ast.Definition]bool, len(opens))
	for d := range opens {
		remaining[d] = true
	}

	fixpoint := false
	for !fixpoint {
		fixpoint = true
		for d := range remaining {
			current := opens[d]
			for _, p := range approxTwoValuedOpens(current, s) {
				delete(current, p)
			}
			if len(current) > 0 {
				continue
			}
			if err := calculateDefinition(d, s); err != nil {
				return err
			}
			delete(remaining, d)
			fixpoint = false
		}
	}
	return nil
}

// calculateDefinition grounds d alone and writes its well-founded
// fixpoint back into s.
func calculateDefinition(d *ast.Definition, s *structure.Structure) error {
	defLog.Debugw("evaluating definition", "defID", d.ID, "rules", len(d.Rules))
	theory := ecnf.NewGroundTheory()
	ctx := ground.NewContext(s, theory)
	if err := ctx.GroundDefinition(d); err != nil {
		return idperr.Wrap(err, "definition: ground definition %d", d.ID)
	}

	var rules []ecnf.Rule
	for _, r := range theory.Rules {
		if r.DefID == d.ID {
			rules = append(rules, r)
		}
	}
	vals := evaluateGroundRules(rules, unitFacts(theory))

	defined := make(map[*ast.Predicate]bool)
	for _, p := range d.DefinedPredicates() {
		defined[p] = true
	}
	for atomID, info := range ctx.AtomTuples {
		if !defined[info.Pred] {
			continue
		}
		pi, ok := s.Predicate(info.Pred.Name)
		if !ok {
			continue
		}
		switch vals[atomID] {
		case isTrue:
			pi.SetCT(info.Tuple)
		case isFalse:
			pi.SetCF(info.Tuple)
		}
	}
	return nil
}

var defLog = logging.For(logging.LayerDefinition)
