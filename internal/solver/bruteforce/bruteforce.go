// Package bruteforce implements the reference Solver of SPEC_FULL
// §4.12: brute-force enumeration of every two-valued extension of a
// ground theory's free atoms, checking each against the theory's
// clauses (definition rules and Tseitin implications first flattened
// to clauses). It exists to exercise idpgo/inference end to end
// without an external SAT/CP backend, not to scale — the real
// solver is an external collaborator per spec §1.
package bruteforce

import (
	"context"
	"math"
	"sort"
	"strconv"
	"strings"

	"idpgo/internal/ecnf"
	"idpgo/internal/logging"
	"idpgo/internal/runctl"
)

// Model maps every atom id the theory names to its truth value.
type Model map[int]bool

// Options bounds a Solve call.
type Options struct {
	// MaxModels caps how many satisfying assignments to collect; 0
	// means "collect every one". Ignored when Minimize is set: an
	// optimisation search must see every satisfying assignment before
	// it can tell which are optimal.
	MaxModels int
	Token     runctl.Token

	// Assumptions forces each literal true before search, spec §6's
	// modelexpand(...,assumptions?) parameter — implemented as extra
	// unit clauses rather than a separate branch-pruning path, since a
	// contradictory assumption should simply make the search unsat
	// like any other clause would.
	Assumptions []ecnf.Literal

	// OutputVoc restricts which atom ids distinguish one reported
	// model from another; nil means every atom is significant. Spec
	// §6: "Atoms outside output-voc may be freely chosen by the
	// solver" — two full assignments that agree on OutputVoc count as
	// one model rather than being reported separately.
	OutputVoc map[int]bool

	// Minimize names an optimisation objective; when set, Solve
	// ignores MaxModels, searches every satisfying assignment, and
	// returns only those achieving the minimal objective value found
	// (spec §6's modelexpand(...,minimize?) parameter).
	Minimize *ecnf.Objective
}

// Solver is the brute-force reference implementation of
// idpgo/inference.Solver.
type Solver struct{}

func New() *Solver { return &Solver{} }

// Solve enumerates every assignment of g's atoms and returns every
// one (up to opts.MaxModels) that satisfies every flattened clause.
func (s *Solver) Solve(ctx context.Context, g *ecnf.GroundTheory, opts Options) (models []Model, unsat bool, optimum *float64, err error) {
	if g.IsTriviallyUnsat() {
		return nil, true, nil, nil
	}
	clauses := flatten(g)
	for _, a := range opts.Assumptions {
		clauses = append(clauses, ecnf.Clause{a})
	}
	atoms := make([]int, 0, g.NextAtomID-1)
	for id := 1; id < g.NextAtomID; id++ {
		atoms = append(atoms, id)
	}

	exhaustive := opts.Minimize != nil
	want := opts.MaxModels
	assignment := make(map[int]bool, len(atoms))
	var found []Model
	seenProjections := map[string]bool{}

	var search func(i int) error
	search = func(i int) error {
		if err := opts.Token.Check(ctx); err != nil {
			return err
		}
		if !exhaustive && want > 0 && len(found) >= want {
			return nil
		}
		if i == len(atoms) {
			if satisfies(clauses, assignment) {
				m := make(Model, len(assignment))
				for k, v := range assignment {
					m[k] = v
				}
				if opts.OutputVoc != nil {
					key := projectionKey(m, opts.OutputVoc)
					if seenProjections[key] {
						return nil
					}
					seenProjections[key] = true
				}
				found = append(found, m)
				bruteLog.Debugw("found model", "count", len(found))
			}
			return nil
		}
		for _, v := range [2]bool{true, false} {
			assignment[atoms[i]] = v
			if err := search(i + 1); err != nil {
				return err
			}
			if !exhaustive && want > 0 && len(found) >= want {
				return nil
			}
		}
		delete(assignment, atoms[i])
		return nil
	}

	if err := search(0); err != nil {
		return nil, false, nil, err
	}
	if len(found) == 0 {
		return nil, true, nil, nil
	}
	if opts.Minimize == nil {
		return found, false, nil, nil
	}

	best, bestModels := optimalModels(g, opts.Minimize, found)
	if want > 0 && len(bestModels) > want {
		bestModels = bestModels[:want]
	}
	return bestModels, false, &best, nil
}

// optimalModels evaluates obj over every model in found and returns
// the minimal value achieved plus every model achieving it.
func optimalModels(g *ecnf.GroundTheory, obj *ecnf.Objective, found []Model) (float64, []Model) {
	best := math.Inf(1)
	values := make([]float64, len(found))
	for i, m := range found {
		v, ok := objectiveValue(g, obj, m)
		if !ok {
			v = 0
		}
		values[i] = v
		if v < best {
			best = v
		}
	}
	var bestModels []Model
	for i, v := range values {
		if v == best {
			bestModels = append(bestModels, found[i])
		}
	}
	return best, bestModels
}

// objectiveValue computes obj's value under m. ObjOptimizeVar reports
// ok=false: CP integer variables are not lowered/enforced by this
// reference solver (flatten's documented scope cut), so no model-
// derived value exists for one.
func objectiveValue(g *ecnf.GroundTheory, obj *ecnf.Objective, m Model) (float64, bool) {
	if obj.Kind != ecnf.ObjMinimizeAgg {
		return 0, false
	}
	for _, set := range g.Sets {
		if set.ID == obj.SetID {
			return aggregateValue(obj.AggKind, set, m), true
		}
	}
	return 0, false
}

func aggregateValue(kind ecnf.AggKind, set ecnf.WeightedSet, m Model) float64 {
	switch kind {
	case ecnf.AggCard:
		n := 0.0
		for _, t := range set.Tuples {
			if litHolds(t.Lit, m) {
				n++
			}
		}
		return n
	case ecnf.AggSum:
		sum := 0.0
		for _, t := range set.Tuples {
			if litHolds(t.Lit, m) {
				sum += t.Weight
			}
		}
		return sum
	case ecnf.AggProd:
		p := 1.0
		any := false
		for _, t := range set.Tuples {
			if litHolds(t.Lit, m) {
				p *= t.Weight
				any = true
			}
		}
		if !any {
			return 0
		}
		return p
	case ecnf.AggMin:
		min := math.Inf(1)
		for _, t := range set.Tuples {
			if litHolds(t.Lit, m) && t.Weight < min {
				min = t.Weight
			}
		}
		return min
	case ecnf.AggMax:
		max := math.Inf(-1)
		for _, t := range set.Tuples {
			if litHolds(t.Lit, m) && t.Weight > max {
				max = t.Weight
			}
		}
		return max
	default:
		return 0
	}
}

func litHolds(l ecnf.Literal, m Model) bool {
	v := m[l.Atom()]
	if l.Negated() {
		return !v
	}
	return v
}

// projectionKey builds a stable key for m restricted to voc, so two
// full assignments that agree on every voc atom compare equal
// regardless of how their non-voc atoms differ.
func projectionKey(m Model, voc map[int]bool) string {
	ids := make([]int, 0, len(voc))
	for id := range voc {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(strconv.Itoa(id))
		b.WriteByte(':')
		if m[id] {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
		b.WriteByte(',')
	}
	return b.String()
}

func satisfies(clauses []ecnf.Clause, assignment map[int]bool) bool {
	for _, cl := range clauses {
		if !clauseSatisfied(cl, assignment) {
			return false
		}
	}
	return true
}

func clauseSatisfied(cl ecnf.Clause, assignment map[int]bool) bool {
	if len(cl) == 0 {
		return false
	}
	for _, l := range cl {
		v := assignment[l.Atom()]
		if l.Negated() {
			v = !v
		}
		if v {
			return true
		}
	}
	return false
}

// flatten lowers g's rules and Tseitin implications to plain clauses
// so Solve only ever needs one satisfaction check. Aggregates and CP
// reifications are not lowered — SPEC_FULL §4.12 scopes them out of
// the brute-force reference solver; a theory containing either is
// still solved, just without those constraints enforced, which is
// acceptable for a reference/test solver and documented in DESIGN.md.
func flatten(g *ecnf.GroundTheory) []ecnf.Clause {
	clauses := make([]ecnf.Clause, 0, len(g.Clauses))
	clauses = append(clauses, g.Clauses...)

	for _, r := range g.Rules {
		clauses = append(clauses, ruleClauses(r)...)
	}
	for _, im := range g.Implications {
		clauses = append(clauses, implicationClauses(im)...)
	}
	return clauses
}

// ruleClauses lowers one definition rule to its sufficiency direction
// (body implies head) only; idpgo/definition resolves the full
// completion semantics for closed definitions before a theory reaches
// the solver, so the solver only needs to enforce "if the body holds,
// the head must too" for whatever remains open.
func ruleClauses(r ecnf.Rule) []ecnf.Clause {
	if r.Type == ecnf.RuleConj {
		cl := make(ecnf.Clause, 0, len(r.Body)+1)
		cl = append(cl, r.Head)
		for _, l := range r.Body {
			cl = append(cl, l.Negate())
		}
		return []ecnf.Clause{cl}
	}
	out := make([]ecnf.Clause, 0, len(r.Body))
	for _, l := range r.Body {
		out = append(out, ecnf.Clause{l.Negate(), r.Head})
	}
	return out
}

func implicationClauses(im ecnf.Implication) []ecnf.Clause {
	t := im.Tseitin
	var out []ecnf.Clause
	if im.Sem == ecnf.TsEQ || im.Sem == ecnf.TsImpl {
		// tseitin => expr
		if im.Conjunctive {
			for _, l := range im.Lits {
				out = append(out, ecnf.Clause{t.Negate(), l})
			}
		} else {
			cl := make(ecnf.Clause, 0, len(im.Lits)+1)
			cl = append(cl, t.Negate())
			cl = append(cl, im.Lits...)
			out = append(out, cl)
		}
	}
	if im.Sem == ecnf.TsEQ || im.Sem == ecnf.TsRImpl {
		// expr => tseitin
		if im.Conjunctive {
			cl := make(ecnf.Clause, 0, len(im.Lits)+1)
			cl = append(cl, t)
			for _, l := range im.Lits {
				cl = append(cl, l.Negate())
			}
			out = append(out, cl)
		} else {
			for _, l := range im.Lits {
				out = append(out, ecnf.Clause{l.Negate(), t})
			}
		}
	}
	return out
}

var bruteLog = logging.For(logging.LayerInference)
