package textfmt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/mangle/analysis"
	mast "github.com/google/mangle/ast"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	iast "idpgo/internal/ast"
	"idpgo/internal/structure"
)

// ParseStructure reads a ct/cf interpretation of vocab's predicates and
// functions out of src, a genuine github.com/google/mangle Datalog
// program: one fact or rule per line, each vocabulary symbol spelled
// with its first letter lower-cased, certain-false tuples asserted
// under the "cf_" + predicate name convention ast.NewDerivedPredicate
// already uses for the bound predicates propagate introduces (spec
// §3's ct/cf split), e.g.:
//
//	Decl edge(X, Y).
//	Decl cf_edge(X, Y).
//
//	edge("a", "b").
//	edge("b", "c").
//	cf_edge("a", "a").
//	edge(X, Y) :- edge(Y, X).
//
// Grounded on internal/mangle/synth/compile.go's
// parse.Unit -> analysis.AnalyzeOneUnit -> engine.EvalProgramWithStats
// pipeline: src is evaluated to a fixpoint exactly as that pipeline
// evaluates a synthesized program, so a structure's facts may
// themselves be the product of Datalog rules rather than a bare tuple
// list. Function graphs are read the same way, as facts over the
// (Arity()+1)-ary predicate Function.AsPredicate names.
func ParseStructure(vocab *iast.Vocabulary, src string) (*structure.Structure, error) {
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("textfmt: structure parse: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("textfmt: structure analysis: %w", err)
	}
	store := factstore.NewSimpleInMemoryStore()
	if _, err := engine.EvalProgramWithStats(programInfo, store); err != nil {
		return nil, fmt.Errorf("textfmt: structure evaluation: %w", err)
	}

	// A mangle predicate name starts with a lower-case letter, so a
	// vocabulary symbol is read under its name with the first letter
	// lower-cased (Edge from edge, its certain-false tuples from cf_edge).
	datalogName := func(name string) string {
		r, size := utf8.DecodeRuneInString(name)
		return string(unicode.ToLower(r)) + name[size:]
	}
	s := structure.NewStructure(vocab)
	for _, p := range vocab.Predicates() {
		pi, _ := s.Predicate(p.Name)
		ctSym := mast.PredicateSym{Symbol: datalogName(p.Name), Arity: p.Arity()}
		if err := loadTuples(store, ctSym, func(tuple []iast.DomainElement) { pi.SetCT(tuple) }); err != nil {
			return nil, err
		}
		cfSym := mast.PredicateSym{Symbol: "cf_" + datalogName(p.Name), Arity: p.Arity()}
		if err := loadTuples(store, cfSym, func(tuple []iast.DomainElement) { pi.SetCF(tuple) }); err != nil {
			return nil, err
		}
	}
	for _, f := range vocab.Functions() {
		fi := s.Functions[f.Name]
		sym := f.AsPredicate().Symbol()
		sym.Symbol = datalogName(sym.Symbol)
		err := loadTuples(store, sym, func(tuple []iast.DomainElement) {
			fi.Set(tuple[:len(tuple)-1], tuple[len(tuple)-1])
		})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func loadTuples(store factstore.FactStoreWithRemove, sym mast.PredicateSym, visit func([]iast.DomainElement)) error {
	return store.GetFacts(mast.NewQuery(sym), func(atom mast.Atom) error {
		tuple := make([]iast.DomainElement, len(atom.Args))
		for i, a := range atom.Args {
			c, ok := a.(mast.Constant)
			if !ok {
				return fmt.Errorf("textfmt: non-constant argument in fact %v", atom)
			}
			tuple[i] = c
		}
		visit(tuple)
		return nil
	})
}
