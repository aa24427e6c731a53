package fobdd

import (
	"fmt"

	iast "idpgo/internal/ast"
)

// AtomKernel wraps a predicate atom or equality/comparison, the most
// common FOBDDKernel kind (original_source/src/fobdds/FoBddAtomKernel
// is the standard-category kernel for ordinary atoms).
type AtomKernel struct {
	order KernelOrder
	Atom  *iast.Atom
}

func (k *AtomKernel) String() string { return k.Atom.String() }
func (k *AtomKernel) Order() KernelOrder { return k.order }
func (k *AtomKernel) ContainsDeBruijnIndex(index int) bool {
	for _, arg := range k.Atom.Args {
		if termContainsIndex(arg, index) {
			return true
		}
	}
	return false
}

// termContainsIndex recurses into a FuncApp's arguments, since a
// comparison or arithmetic-equality atom's term may nest the quantified
// variable inside a function application (e.g. ~x = y + z) rather than
// holding it as a bare top-level argument.
func termContainsIndex(t iast.Term, index int) bool {
	switch n := t.(type) {
	case *iast.IndexTerm:
		return n.Index == index
	case *iast.FuncApp:
		for _, a := range n.Args {
			if termContainsIndex(a, index) {
				return true
			}
		}
	}
	return false
}
func (*AtomKernel) isKernel() {}

// QuantKernel wraps a quantified subformula reduced to a single BDD,
// the FOBDDQuantKernel equivalent. Quantification kernels always sort
// after every standard kernel (spec §4.1's category ordering), since
// a quantified subformula may itself mention standard kernels that
// must already be ordered before it is introduced.
type QuantKernel struct {
	order KernelOrder
	Sort  *iast.Sort
	Body  *Node
}

func (k *QuantKernel) String() string { return fmt.Sprintf("?[%s]%s", k.Sort, k.Body) }
func (k *QuantKernel) Order() KernelOrder { return k.order }
func (k *QuantKernel) ContainsDeBruijnIndex(index int) bool {
	return k.Body.ContainsDeBruijnIndex(index + 1)
}
func (*QuantKernel) isKernel() {}

// AggKernel wraps an aggregate comparison, the FOBDDAggKernel
// equivalent; these sort strictly after quantification kernels.
type AggKernel struct {
	order KernelOrder
	Agg   *iast.AggComparison
}

func (k *AggKernel) String() string { return k.Agg.String() }
func (k *AggKernel) Order() KernelOrder { return k.order }
func (k *AggKernel) ContainsDeBruijnIndex(int) bool { return false }
func (*AggKernel) isKernel() {}
