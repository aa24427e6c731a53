// Package visit implements the BDD rewrite passes spec §4.1 and §4.2
// describe as building blocks for normalization: substitution,
// De Bruijn index collection, symbol/variable collection, and the
// arithmetic simplification pipeline (distributivity, rewrite-minus,
// order-terms).
//
// Grounded on original_source/src/fobdds/FoBddVisitor.{hpp,cpp} (the
// visitor base every rewrite pass subclasses) and
// original_source/src/fobdds/FoBddManager.cpp's
// simplify/distributivity/order helper functions, reimplemented here
// as ordinary functions over *fobdd.Manager/*fobdd.Node rather than a
// virtual-dispatch visitor hierarchy, since Go's type switch plays
// the same role without the boilerplate of a separate Visit* method
// per concrete kernel type.
package visit

import (
	"math"
	"sort"

	mast "github.com/google/mangle/ast"

	iast "idpgo/internal/ast"
	"idpgo/internal/fobdd"
)

// CollectAtomKernels returns every distinct AtomKernel reachable from
// n, in no particular order, for diagnostics and propagate's
// leaf-connector construction (spec §4.3).
func CollectAtomKernels(n *fobdd.Node) []*fobdd.AtomKernel {
	seen := make(map[*fobdd.AtomKernel]bool)
	var out []*fobdd.AtomKernel
	var walk func(*fobdd.Node)
	walk = func(cur *fobdd.Node) {
		if cur.IsLeaf() {
			return
		}
		if ak, ok := cur.Kernel().(*fobdd.AtomKernel); ok && !seen[ak] {
			seen[ak] = true
			out = append(out, ak)
		}
		walk(cur.TrueBranch())
		walk(cur.FalseBranch())
	}
	walk(n)
	return out
}

// CountNodes returns the number of distinct Node values reachable from
// n (its DAG size, not its tree size), the basic statistic
// fobdd/cost's cost model starts from.
func CountNodes(n *fobdd.Node) int {
	seen := make(map[*fobdd.Node]bool)
	var walk func(*fobdd.Node)
	walk = func(cur *fobdd.Node) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		if !cur.IsLeaf() {
			walk(cur.TrueBranch())
			walk(cur.FalseBranch())
		}
	}
	walk(n)
	return len(seen)
}

// LongestBranch returns the length of the longest root-to-leaf path
// in n, the quantity fobdd's LongestBranch option (spec §6) caps
// before a cost estimate gives up and returns a conservative answer.
func LongestBranch(n *fobdd.Node) int {
	if n.IsLeaf() {
		return 0
	}
	t := LongestBranch(n.TrueBranch())
	f := LongestBranch(n.FalseBranch())
	if t > f {
		return t + 1
	}
	return f + 1
}

// Substitute rebuilds n with every occurrence of kernel's condition
// replaced by replacement (true/false), folding a kernel whose
// definite truth value is known out of a BDD that still branches on
// it.
func Substitute(m *fobdd.Manager, n *fobdd.Node, kernel fobdd.Kernel, value bool) *fobdd.Node {
	seen := make(map[*fobdd.Node]*fobdd.Node)
	var rewrite func(*fobdd.Node) *fobdd.Node
	rewrite = func(cur *fobdd.Node) *fobdd.Node {
		if cur.IsLeaf() {
			return cur
		}
		if out, ok := seen[cur]; ok {
			return out
		}
		var out *fobdd.Node
		if cur.Kernel() == kernel {
			if value {
				out = rewrite(cur.TrueBranch())
			} else {
				out = rewrite(cur.FalseBranch())
			}
		} else {
			t := rewrite(cur.TrueBranch())
			f := rewrite(cur.FalseBranch())
			out = m.Ite(cur.Kernel(), t, f)
		}
		seen[cur] = out
		return out
	}
	return rewrite(n)
}

// EstimatedSize counts the kernels along every path from root to
// leaf, used as the "ground size" heuristic lazy grounding compares
// against LazySizeThreshold (spec §4.7, §6): a node reachable via K
// distinct top-to-bottom paths is charged once per path, so diamond
// sharing is not double counted beyond what CountNodes already
// reports as a DAG, but the branching factor along taken paths is.
func EstimatedSize(n *fobdd.Node) int {
	if n.IsLeaf() {
		return 1
	}
	return 1 + EstimatedSize(n.TrueBranch()) + EstimatedSize(n.FalseBranch())
}

// Arithmetic term simplification (spec §8's "x + (-x) reduces to 0"
// and "2x - 2y + (y - x) normalizes the same as x - y" scenarios),
// grounded on original_source/src/fobdds/FoBddManager.cpp's
// simplify/rewriteMinus/ungraphFunctions/applyDistributivity/
// orderTerms/addMultSimplifier/combineConstsOfMults/termsToLeft
// family: a small fixpoint term rewriter that normalizes a FuncApp
// tree over the built-in arithmetic functions so two arithmetically
// equal expressions intern to the identical kernel once rewritten.

func constValue(t iast.Term) (float64, bool) {
	e, ok := iast.AsConst(t)
	if !ok {
		return 0, false
	}
	switch e.Type {
	case mast.NumberType:
		return float64(e.NumValue), true
	case mast.Float64Type:
		return math.Float64frombits(uint64(e.NumValue)), true
	default:
		return 0, false
	}
}

func makeConstTerm(v float64, sort *iast.Sort) iast.Term {
	if sort == iast.SortFloat {
		return iast.NewConstTerm(mast.Float64(v), sort)
	}
	return iast.NewConstTerm(mast.Number(int64(v)), sort)
}

func isPlus(f *iast.Function) bool  { return f == iast.FuncPlus || f == iast.FuncPlusFloat }
func isMinus(f *iast.Function) bool { return f == iast.FuncMinus || f == iast.FuncMinusFloat }
func isTimes(f *iast.Function) bool { return f == iast.FuncTimes || f == iast.FuncTimesFloat }

func plusFuncFor(sort *iast.Sort) *iast.Function {
	if sort == iast.SortFloat {
		return iast.FuncPlusFloat
	}
	return iast.FuncPlus
}

func timesFuncFor(sort *iast.Sort) *iast.Function {
	if sort == iast.SortFloat {
		return iast.FuncTimesFloat
	}
	return iast.FuncTimes
}

// negate builds -t: the dedicated FuncUnaryMinus for an int term,
// since builtins.go has no float unary-minus symbol, (-1.)*t for a
// float one.
func negate(t iast.Term) iast.Term {
	if t.Sort() == iast.SortFloat {
		return &iast.FuncApp{Func: iast.FuncTimesFloat, Args: []iast.Term{makeConstTerm(-1, iast.SortFloat), t}}
	}
	return &iast.FuncApp{Func: iast.FuncUnaryMinus, Args: []iast.Term{t}}
}

func mapArgs(f *iast.FuncApp, rewrite func(iast.Term) iast.Term) *iast.FuncApp {
	args := make([]iast.Term, len(f.Args))
	for i, a := range f.Args {
		args[i] = rewrite(a)
	}
	return &iast.FuncApp{Func: f.Func, Args: args}
}

// RewriteMinus rewrites every a - b subterm into a + (-b), so every
// later pass only has to reason about Plus/Times/UnaryMinus instead of
// a separate Minus operator.
func RewriteMinus(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	rewritten := mapArgs(f, RewriteMinus)
	if isMinus(rewritten.Func) {
		return &iast.FuncApp{Func: plusFuncFor(rewritten.Func.Result), Args: []iast.Term{rewritten.Args[0], negate(rewritten.Args[1])}}
	}
	return rewritten
}

// UngraphFunctions would rewrite a function's predicate-graph
// representation (GraphF(args..., result)) back into an ordinary
// function application term. idpgo never builds that representation —
// fobdd/formula.go's indexAtom keeps function applications nested
// inside Atom.Args directly, never lifted into a separate graph
// atom — so this walks the tree unchanged; it stays a named pipeline
// stage so a future graph representation has somewhere to hook in.
func UngraphFunctions(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	return mapArgs(f, UngraphFunctions)
}

// ApplyDistributivity pushes a constant multiplication into a sum:
// c*(a+b) rewrites to c*a + c*b (and the symmetric (a+b)*c), so like
// terms on either side of the sum become visible to
// CombineConstsOfMults/AddMultSimplifier.
func ApplyDistributivity(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	r := mapArgs(f, ApplyDistributivity)
	if !isTimes(r.Func) {
		return r
	}
	c, x := r.Args[0], r.Args[1]
	if sum, ok := x.(*iast.FuncApp); ok && isPlus(sum.Func) {
		return &iast.FuncApp{Func: plusFuncFor(r.Func.Result), Args: []iast.Term{
			&iast.FuncApp{Func: r.Func, Args: []iast.Term{c, sum.Args[0]}},
			&iast.FuncApp{Func: r.Func, Args: []iast.Term{c, sum.Args[1]}},
		}}
	}
	if sum, ok := c.(*iast.FuncApp); ok && isPlus(sum.Func) {
		return &iast.FuncApp{Func: plusFuncFor(r.Func.Result), Args: []iast.Term{
			&iast.FuncApp{Func: r.Func, Args: []iast.Term{sum.Args[0], x}},
			&iast.FuncApp{Func: r.Func, Args: []iast.Term{sum.Args[1], x}},
		}}
	}
	return r
}

// CombineConstsOfMults folds nested constant multiplications: c1*(c2*x)
// collapses to (c1*c2)*x, and a bare c1*c2 collapses to their product.
func CombineConstsOfMults(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	r := mapArgs(f, CombineConstsOfMults)
	if !isTimes(r.Func) {
		return r
	}
	c1, sort, ok1 := constValueWithSort(r.Args[0])
	if !ok1 {
		return r
	}
	if c2, _, ok2 := constValueWithSort(r.Args[1]); ok2 {
		return makeConstTerm(c1*c2, sort)
	}
	if inner, ok := r.Args[1].(*iast.FuncApp); ok && isTimes(inner.Func) {
		if c2, _, ok2 := constValueWithSort(inner.Args[0]); ok2 {
			return &iast.FuncApp{Func: r.Func, Args: []iast.Term{makeConstTerm(c1*c2, sort), inner.Args[1]}}
		}
	}
	return r
}

func constValueWithSort(t iast.Term) (float64, *iast.Sort, bool) {
	v, ok := constValue(t)
	if !ok {
		return 0, nil, false
	}
	return v, t.Sort(), true
}

// coeffOf decomposes an additive summand into a (coefficient, base
// term) pair: x itself (1, x), -x (-1, x), or c*x (c, x) — the shape
// AddMultSimplifier needs to recognise two summands as like terms.
func coeffOf(t iast.Term) (float64, iast.Term) {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return 1, t
	}
	if f.Func == iast.FuncUnaryMinus {
		c, base := coeffOf(f.Args[0])
		return -c, base
	}
	if isTimes(f.Func) {
		if c, ok := constValue(f.Args[0]); ok {
			c2, base := coeffOf(f.Args[1])
			return c * c2, base
		}
		if c, ok := constValue(f.Args[1]); ok {
			c2, base := coeffOf(f.Args[0])
			return c * c2, base
		}
	}
	return 1, t
}

// AddMultSimplifier combines two additive summands that share the
// same base term into one scaled term: x + x becomes 2*x, 2*x + 3*x
// becomes 5*x, and x + (-x) becomes the zero constant.
func AddMultSimplifier(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	r := mapArgs(f, AddMultSimplifier)
	if !isPlus(r.Func) {
		return r
	}
	c1, b1 := coeffOf(r.Args[0])
	c2, b2 := coeffOf(r.Args[1])
	if b1.String() != b2.String() {
		return r
	}
	sum := c1 + c2
	resultSort := r.Func.Result
	if sum == 0 {
		return makeConstTerm(0, resultSort)
	}
	if sum == 1 {
		return b1
	}
	return &iast.FuncApp{Func: timesFuncFor(resultSort), Args: []iast.Term{makeConstTerm(sum, resultSort), b1}}
}

// OrderTerms canonicalises the operand order of a commutative Plus or
// Times so logically identical expressions built with operands in a
// different order become syntactically identical — the property
// fobdd kernel interning relies on to recognise two atoms as the same
// kernel.
func OrderTerms(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	r := mapArgs(f, OrderTerms)
	if (isPlus(r.Func) || isTimes(r.Func)) && r.Args[0].String() > r.Args[1].String() {
		r.Args[0], r.Args[1] = r.Args[1], r.Args[0]
	}
	return r
}

// TermsToLeft pushes a Plus node's constant operand, if any, to the
// right, so a normalized sum always reads "terms + constant" rather
// than either order.
func TermsToLeft(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	r := mapArgs(f, TermsToLeft)
	if isPlus(r.Func) {
		_, leftConst := constValue(r.Args[0])
		_, rightConst := constValue(r.Args[1])
		if leftConst && !rightConst {
			r.Args[0], r.Args[1] = r.Args[1], r.Args[0]
		}
	}
	return r
}

// flattenSum collects every additive leaf of t's Plus spine,
// recursing through nested Pluses regardless of tree shape — the
// associativity reassociation a strictly-binary Plus representation
// needs before same-base terms buried in different subtrees (e.g. 2x
// in "(2x - 2y) + (y - x)") can be recognised as like terms by
// AddMultSimplifier's pairwise-sibling rule.
func flattenSum(t iast.Term) []iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok || !isPlus(f.Func) {
		return []iast.Term{t}
	}
	return append(flattenSum(f.Args[0]), flattenSum(f.Args[1])...)
}

// rebuildSum folds terms into a right-leaning Plus chain, or the zero
// constant of sort if terms is empty.
func rebuildSum(terms []iast.Term, sort *iast.Sort) iast.Term {
	if len(terms) == 0 {
		return makeConstTerm(0, sort)
	}
	acc := terms[len(terms)-1]
	for i := len(terms) - 2; i >= 0; i-- {
		acc = &iast.FuncApp{Func: plusFuncFor(sort), Args: []iast.Term{terms[i], acc}}
	}
	return acc
}

// combineFlatTerms merges every flattened additive leaf of t sharing
// the same base (via coeffOf) into a single scaled term, folding all
// constants into one, regardless of how deeply nested the original
// Plus tree was — the n-ary generalisation of AddMultSimplifier's
// single-Plus-node rule that a recursive RewriteMinus'd tree like
// "2x - 2y + (y - x)" needs to fully reduce to "x - y".
func combineFlatTerms(t iast.Term) iast.Term {
	f, ok := t.(*iast.FuncApp)
	if !ok {
		return t
	}
	r := mapArgs(f, combineFlatTerms)
	if !isPlus(r.Func) {
		return r
	}
	resultSort := r.Func.Result
	leaves := flattenSum(r)
	var constSum float64
	order := make([]string, 0, len(leaves))
	coeffs := make(map[string]float64)
	bases := make(map[string]iast.Term)
	for _, leaf := range leaves {
		if v, ok := constValue(leaf); ok {
			constSum += v
			continue
		}
		c, base := coeffOf(leaf)
		key := base.String()
		if _, seen := coeffs[key]; !seen {
			order = append(order, key)
			bases[key] = base
		}
		coeffs[key] += c
	}
	sort.Strings(order)
	var terms []iast.Term
	for _, key := range order {
		c := coeffs[key]
		if c == 0 {
			continue
		}
		base := bases[key]
		switch c {
		case 1:
			terms = append(terms, base)
		case -1:
			terms = append(terms, negate(base))
		default:
			terms = append(terms, &iast.FuncApp{Func: timesFuncFor(resultSort), Args: []iast.Term{makeConstTerm(c, resultSort), base}})
		}
	}
	if constSum != 0 || len(terms) == 0 {
		terms = append(terms, makeConstTerm(constSum, resultSort))
	}
	return rebuildSum(terms, resultSort)
}

// Simplify runs the full arithmetic normalization pipeline to a
// fixpoint: RewriteMinus and UngraphFunctions first put t into the
// canonical Plus/Times/UnaryMinus shape the remaining passes assume;
// ApplyDistributivity and CombineConstsOfMults then expose like terms
// a constant multiplication was hiding; combineFlatTerms (the n-ary
// close of AddMultSimplifier) and OrderTerms/TermsToLeft fold and
// canonicalise what's left. Iterates until a pass changes nothing,
// covering "x + (-x) reduces to 0" and "2x - 2y + (y - x) normalizes
// to the same term as x - y".
func Simplify(t iast.Term) iast.Term {
	cur := UngraphFunctions(RewriteMinus(t))
	for i := 0; i < 8; i++ {
		next := TermsToLeft(OrderTerms(combineFlatTerms(AddMultSimplifier(CombineConstsOfMults(ApplyDistributivity(cur))))))
		if next.String() == cur.String() {
			return next
		}
		cur = next
	}
	return cur
}
