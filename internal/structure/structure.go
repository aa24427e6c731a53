// Package structure implements three-valued interpretations of a
// vocabulary: per predicate, a certain-true and certain-false tuple
// set (their complements give possibly-true/possibly-false, spec
// §3's "ct/cf/pt/pf" four-way split), and per function, a mapping
// from argument tuples to a result or "unknown".
//
// Grounded on internal/mangle/engine.go's use of
// factstore.ConcurrentFactStore as the only fact-storage abstraction
// the pack offers: a ct-table IS a fact store, so each table here is
// one, with cf stored as a second store rather than a bespoke B-tree.
package structure

import (
	mast "github.com/google/mangle/ast"
	"github.com/google/mangle/factstore"

	iast "idpgo/internal/ast"
)

// PredicateInterpretation is the three-valued interpretation of one
// predicate: a certain-true store and a certain-false store. A tuple
// absent from both is unknown (possibly true AND possibly false).
type PredicateInterpretation struct {
	Pred *iast.Predicate
	ct   factstore.FactStoreWithRemove
	cf   factstore.FactStoreWithRemove
}

// NewPredicateInterpretation builds an empty (fully unknown)
// interpretation for pred.
func NewPredicateInterpretation(pred *iast.Predicate) *PredicateInterpretation {
	return &PredicateInterpretation{
		Pred: pred,
		ct:   factstore.NewSimpleInMemoryStore(),
		cf:   factstore.NewSimpleInMemoryStore(),
	}
}

func tupleAtom(sym mast.PredicateSym, tuple []iast.DomainElement) mast.Atom {
	args := make([]mast.BaseTerm, len(tuple))
	for i, e := range tuple {
		args[i] = e
	}
	return mast.NewAtom(sym.Symbol, args...)
}

// SetCT marks tuple certainly true, removing it from cf if present
// (spec §3's "ct and cf are disjoint" invariant).
func (p *PredicateInterpretation) SetCT(tuple []iast.DomainElement) {
	atom := tupleAtom(p.Pred.Symbol(), tuple)
	p.cf.Remove(atom)
	p.ct.Add(atom)
}

// SetCF marks tuple certainly false, removing it from ct if present.
func (p *PredicateInterpretation) SetCF(tuple []iast.DomainElement) {
	atom := tupleAtom(p.Pred.Symbol(), tuple)
	p.ct.Remove(atom)
	p.cf.Add(atom)
}

// storeHasExact reports whether store contains exactly atom, by
// running atom itself (all-constant arguments) as the query: every
// fact store in the pack is queried this way in engine.go via
// GetFacts(query, cb), so a fully-ground query atom serves as a
// point lookup with no separate Contains method needed.
func storeHasExact(store factstore.FactStoreWithRemove, atom mast.Atom) bool {
	found := false
	_ = store.GetFacts(atom, func(mast.Atom) error {
		found = true
		return nil
	})
	return found
}

// IsCT reports whether tuple is certainly true.
func (p *PredicateInterpretation) IsCT(tuple []iast.DomainElement) bool {
	return storeHasExact(p.ct, tupleAtom(p.Pred.Symbol(), tuple))
}

// IsCF reports whether tuple is certainly false.
func (p *PredicateInterpretation) IsCF(tuple []iast.DomainElement) bool {
	return storeHasExact(p.cf, tupleAtom(p.Pred.Symbol(), tuple))
}

// IsPT reports whether tuple is possibly true (not certainly false).
func (p *PredicateInterpretation) IsPT(tuple []iast.DomainElement) bool {
	return !p.IsCF(tuple)
}

// IsPF reports whether tuple is possibly false (not certainly true).
func (p *PredicateInterpretation) IsPF(tuple []iast.DomainElement) bool {
	return !p.IsCT(tuple)
}

// IsExact reports whether ct and cf together cover the predicate's
// entire finite domain, i.e. the predicate is two-valued (spec §3's
// "exact" interpretation used as grounding input once propagation has
// stabilized). Returns false conservatively whenever any argument
// sort is infinite or of unknown size, since exactness then cannot be
// confirmed by counting.
func (p *PredicateInterpretation) IsExact() bool {
	domainSize := 1
	for _, sort := range p.Pred.Sorts {
		n, known := sort.Table.Size()
		if !known {
			return false
		}
		domainSize *= n
	}
	count := 0
	_ = p.ct.GetFacts(mast.NewQuery(p.Pred.Symbol()), func(mast.Atom) error {
		count++
		return nil
	})
	_ = p.cf.GetFacts(mast.NewQuery(p.Pred.Symbol()), func(mast.Atom) error {
		count++
		return nil
	})
	return count >= domainSize
}

// CTFacts calls visit once per certainly-true tuple.
func (p *PredicateInterpretation) CTFacts(visit func(tuple []iast.DomainElement)) {
	_ = p.ct.GetFacts(mast.NewQuery(p.Pred.Symbol()), func(atom mast.Atom) error {
		visit(atomTuple(atom))
		return nil
	})
}

// CFFacts calls visit once per certainly-false tuple.
func (p *PredicateInterpretation) CFFacts(visit func(tuple []iast.DomainElement)) {
	_ = p.cf.GetFacts(mast.NewQuery(p.Pred.Symbol()), func(atom mast.Atom) error {
		visit(atomTuple(atom))
		return nil
	})
}

func atomTuple(atom mast.Atom) []iast.DomainElement {
	tuple := make([]iast.DomainElement, len(atom.Args))
	for i, a := range atom.Args {
		if c, ok := a.(mast.Constant); ok {
			tuple[i] = c
		}
	}
	return tuple
}

// FunctionInterpretation is a (partial) map from argument tuples to a
// single result value, spec §3's function interpretation; unmapped
// tuples are outside the function's domain.
type FunctionInterpretation struct {
	Func  *iast.Function
	graph map[string]functionEntry
}

type functionEntry struct {
	args   []iast.DomainElement
	result iast.DomainElement
}

// NewFunctionInterpretation builds an empty interpretation for f.
func NewFunctionInterpretation(f *iast.Function) *FunctionInterpretation {
	return &FunctionInterpretation{Func: f, graph: make(map[string]functionEntry)}
}

func tupleKey(tuple []iast.DomainElement) string {
	key := ""
	for _, e := range tuple {
		key += e.String() + "\x00"
	}
	return key
}

// Set maps args to result.
func (f *FunctionInterpretation) Set(args []iast.DomainElement, result iast.DomainElement) {
	f.graph[tupleKey(args)] = functionEntry{args: args, result: result}
}

// Get returns the result mapped to args, if any.
func (f *FunctionInterpretation) Get(args []iast.DomainElement) (iast.DomainElement, bool) {
	e, ok := f.graph[tupleKey(args)]
	return e.result, ok
}

// ForEach calls visit once per (args, result) pair of the
// interpretation's graph, in unspecified order — used to build a
// reverse lookup, e.g. generate.InverseUNAFuncGenerator's
// unique-names-assumption inverse.
func (f *FunctionInterpretation) ForEach(visit func(args []iast.DomainElement, result iast.DomainElement)) {
	for _, e := range f.graph {
		visit(e.args, e.result)
	}
}

// Structure interprets a Vocabulary: one PredicateInterpretation per
// predicate and one FunctionInterpretation per function, plus the
// sort tables the vocabulary's own Sort values already carry.
type Structure struct {
	Vocab      *iast.Vocabulary
	Predicates map[string]*PredicateInterpretation
	Functions  map[string]*FunctionInterpretation
}

// NewStructure builds a fully-unknown structure over vocab, with one
// empty interpretation per declared predicate and function.
func NewStructure(vocab *iast.Vocabulary) *Structure {
	s := &Structure{
		Vocab:      vocab,
		Predicates: make(map[string]*PredicateInterpretation),
		Functions:  make(map[string]*FunctionInterpretation),
	}
	for _, p := range vocab.Predicates() {
		s.Predicates[p.Name] = NewPredicateInterpretation(p)
	}
	for _, f := range vocab.Functions() {
		s.Functions[f.Name] = NewFunctionInterpretation(f)
	}
	return s
}

// Predicate returns the interpretation of the named predicate,
// creating one lazily if the vocabulary declared it but Structure
// hadn't yet (covers predicates added to Vocab after NewStructure).
func (s *Structure) Predicate(name string) (*PredicateInterpretation, bool) {
	if pi, ok := s.Predicates[name]; ok {
		return pi, true
	}
	p, ok := s.Vocab.Predicate(name)
	if !ok {
		return nil, false
	}
	pi := NewPredicateInterpretation(p)
	s.Predicates[name] = pi
	return pi, true
}

// IsTwoValued reports whether every predicate interpretation is
// exact, the precondition ground.GroundTheory emission assumes for a
// final structure (spec §4.10).
func (s *Structure) IsTwoValued() bool {
	for _, pi := range s.Predicates {
		if !pi.IsExact() {
			return false
		}
	}
	return true
}
