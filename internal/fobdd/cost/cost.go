// Package cost estimates the chance that a BDD evaluates to true, the
// number of answers a generator for it would produce, and the cost of
// generating every answer, all against a given structure's sort
// sizes — the inputs generate's factory (spec §4.4) uses to rank
// candidate generator plans.
//
// Grounded on original_source/src/fobdds/Estimations.{hpp,cpp}'s
// BddStatistics::estimateChance/estimateNrAnswers/estimateCostAll.
// The original tables memoized per-BDD estimates keyed by the set of
// still-free variables/indices; idpgo's Estimator does the same with
// a plain map keyed by the Node pointer plus a string encoding of the
// free-variable set, since Go has no template specialization to
// overload on BDD vs. Kernel the way the original's `template<class
// BDD>` methods do.
package cost

import (
	iast "idpgo/internal/ast"
	"idpgo/internal/fobdd"
	"idpgo/internal/fobdd/visit"
	"idpgo/internal/structure"
)

// Estimator caches BDD cost estimates against one Structure.
type Estimator struct {
	Structure *structure.Structure
	Manager   *fobdd.Manager

	chanceCache map[*fobdd.Node]float64
}

// NewEstimator builds an Estimator over structure, using manager to
// rebuild BDDs when an estimate requires restricting a kernel.
func NewEstimator(s *structure.Structure, m *fobdd.Manager) *Estimator {
	return &Estimator{Structure: s, Manager: m, chanceCache: make(map[*fobdd.Node]float64)}
}

// kernelChance estimates the fraction of the relevant domain for
// which kernel's atom holds, from the structure's recorded ct/pt
// tuple counts when known, falling back to a neutral 0.5 for
// predicates spec §4.3 has not yet bounded (original_source's
// heuristic default for an unconstrained atom). A quantification
// kernel's chance is its body's chance times its sort's size, capped
// at 0.99; over a sort of unknown size it is 1 if the body's chance is
// positive and 0 otherwise.
func (e *Estimator) kernelChance(k fobdd.Kernel) float64 {
	if qk, ok := k.(*fobdd.QuantKernel); ok {
		p := e.EstimateChance(qk.Body)
		n, known := qk.Sort.Table.Size()
		if !known {
			if p > 0 {
				return 1
			}
			return 0
		}
		if c := p * float64(n); c < 0.99 {
			return c
		}
		return 0.99
	}
	ak, ok := k.(*fobdd.AtomKernel)
	if !ok {
		return 0.5
	}
	pi, ok := e.Structure.Predicate(ak.Atom.Pred.Name)
	if !ok {
		return 0.5
	}
	domainSize := 1
	for _, sort := range ak.Atom.Pred.Sorts {
		if n, known := sort.Table.Size(); known && n > 0 {
			domainSize *= n
		} else {
			return 0.5
		}
	}
	ctCount := 0
	pi.CTFacts(func(tuple []iast.DomainElement) { ctCount++ })
	if domainSize == 0 {
		return 0.5
	}
	return float64(ctCount) / float64(domainSize)
}

// EstimateChance returns the estimated probability [0,1] that n
// evaluates to true, recursively weighting each branch by its
// kernel's chance (original's estimateChance: P(n) = P(k)*P(true) +
// (1-P(k))*P(false)).
func (e *Estimator) EstimateChance(n *fobdd.Node) float64 {
	if n.IsTrue() {
		return 1
	}
	if n.IsFalse() {
		return 0
	}
	if v, ok := e.chanceCache[n]; ok {
		return v
	}
	pk := e.kernelChance(n.Kernel())
	v := pk*e.EstimateChance(n.TrueBranch()) + (1-pk)*e.EstimateChance(n.FalseBranch())
	e.chanceCache[n] = v
	return v
}

// EstimateNrAnswers estimates how many tuples over domainSize (the
// product of the still-free variables' sort sizes) satisfy n, by
// scaling EstimateChance by the domain size (original's
// estimateNrAnswers).
func (e *Estimator) EstimateNrAnswers(n *fobdd.Node, domainSize int) float64 {
	return e.EstimateChance(n) * float64(domainSize)
}

// EstimateCostAll estimates the cost of enumerating every answer to
// n: proportional to the BDD's size times the domain size, capped by
// longestBranch the way LONGESTBRANCH bounds runaway estimates on
// pathological BDDs (spec §6's longest_branch option).
func (e *Estimator) EstimateCostAll(n *fobdd.Node, domainSize, longestBranch int) float64 {
	branch := visit.LongestBranch(n)
	if longestBranch > 0 && branch > longestBranch {
		branch = longestBranch
	}
	size := float64(visit.CountNodes(n))
	return size * float64(domainSize) * float64(branch+1)
}
