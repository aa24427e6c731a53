// Package fobdd implements first-order binary decision diagrams:
// hash-consed, ordered, De Bruijn-indexed decision diagrams over FO(.)
// formulas (spec §4.1). Construction always goes through a Manager,
// never through a node literal, so that two logically identical BDDs
// are always the same *Node value (hash-consing, spec §4.1's
// "canonical" invariant).
//
// Grounded on original_source/src/fobdds/FoBdd.hpp and FoBddKernel.hpp:
// a Node is the FOBDD class (kernel + true/false branches, with the
// constant True/False nodes as the two fixed leaves), a Kernel is the
// FOBDDKernel class (an ordered, hash-consed atomic condition). Go has
// no pointer-identity caveat C++'s shared_ptr<FOBDDManager> backrefs
// guard against, so Node/Kernel drop the manager backreference and
// parse-info field entirely; every construction function instead
// takes the owning *Manager explicitly.
package fobdd

import "fmt"

// KernelCategory orders kernels into the strata construction must
// respect: standard kernels before quantification kernels before
// aggregate kernels, mirroring IDP's KernelOrderCategory so a BDD
// never nests a lower-category kernel below a higher one.
type KernelCategory int

const (
	CategoryStandard KernelCategory = iota
	CategoryQuant
	CategoryAgg
	CategoryTrueFalse
)

// KernelOrder totally orders kernels within a Manager: first by
// Category, then by Number, the monotonically increasing index a
// Manager assigns each kernel the first time it is hash-consed.
type KernelOrder struct {
	Category KernelCategory
	Number   int
}

// Less reports whether o sorts before other, the ordering Node
// construction uses to decide which of two kernels may appear above
// the other (spec §4.1's BDD variable order). Within a category, the
// order is reversed on Number: a freshly interned (higher-numbered)
// kernel sorts ABOVE an older one, so quantification and other
// operations that constantly mint new intermediate kernels don't
// force a reorder of the whole BDD every time one is created.
func (o KernelOrder) Less(other KernelOrder) bool {
	if o.Category != other.Category {
		return o.Category < other.Category
	}
	return o.Number > other.Number
}

// Kernel is an atomic condition labelling a Node's branch point: an
// atom, a comparison, a quantified subformula reduced to a single
// boolean, or an aggregate comparison. Concrete kernel kinds
// implement Kernel; visit.KernelVisitor is how code outside this
// package inspects one without a type switch on an unexported type.
type Kernel interface {
	fmt.Stringer
	Order() KernelOrder
	// ContainsDeBruijnIndex reports whether the free De Bruijn index
	// `index` occurs in this kernel, used by quantification to decide
	// whether a subformula still depends on the variable being
	// quantified out (spec §4.1).
	ContainsDeBruijnIndex(index int) bool
	isKernel()
}

// Node is a hash-consed FOBDD: either one of the two fixed leaves
// (True/False) or a branch on a Kernel with a true-branch and
// false-branch Node. Node values are only ever produced by a
// Manager's construction methods, which guarantees two Nodes with
// equal (Kernel, True, False) are the identical *Node (spec §4.1).
type Node struct {
	kernel      Kernel
	trueBranch  *Node
	falseBranch *Node
}

// leafKernel is the shared, manager-local kernel underlying both
// leaves; it carries no real condition and exists only so True/False
// satisfy the Node{kernel, true, false} shape uniformly.
type leafKernel struct {
	value bool
}

func (k *leafKernel) String() string {
	if k.value {
		return "true"
	}
	return "false"
}
func (k *leafKernel) Order() KernelOrder                  { return KernelOrder{Category: CategoryTrueFalse} }
func (k *leafKernel) ContainsDeBruijnIndex(int) bool      { return false }
func (*leafKernel) isKernel()                             {}

// IsTrue reports whether n is the manager's True leaf.
func (n *Node) IsTrue() bool { return n.trueBranch == nil && n.falseBranch == nil && n.kernel.(*leafKernel).value }

// IsFalse reports whether n is the manager's False leaf.
func (n *Node) IsFalse() bool {
	return n.trueBranch == nil && n.falseBranch == nil && !n.kernel.(*leafKernel).value
}

// IsLeaf reports whether n is True or False.
func (n *Node) IsLeaf() bool { return n.trueBranch == nil && n.falseBranch == nil }

// Kernel returns n's branch kernel; undefined on a leaf.
func (n *Node) Kernel() Kernel { return n.kernel }

// TrueBranch returns the subdiagram taken when Kernel holds;
// undefined on a leaf.
func (n *Node) TrueBranch() *Node { return n.trueBranch }

// FalseBranch returns the subdiagram taken when Kernel does not hold;
// undefined on a leaf.
func (n *Node) FalseBranch() *Node { return n.falseBranch }

func (n *Node) String() string {
	if n.IsTrue() {
		return "true"
	}
	if n.IsFalse() {
		return "false"
	}
	return fmt.Sprintf("(%s ? %s : %s)", n.kernel, n.trueBranch, n.falseBranch)
}

// ContainsDeBruijnIndex reports whether index occurs anywhere in n:
// in its own kernel, or in either branch.
func (n *Node) ContainsDeBruijnIndex(index int) bool {
	if n.IsLeaf() {
		return false
	}
	return n.kernel.ContainsDeBruijnIndex(index) ||
		n.trueBranch.ContainsDeBruijnIndex(index) ||
		n.falseBranch.ContainsDeBruijnIndex(index)
}
