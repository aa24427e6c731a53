package ast

// Built-in function symbols over int/float, spec §3's "the usual
// arithmetic operators and unary minus are built-in functions of the
// vocabulary, not user symbols."
var (
	FuncPlus   = &Function{Name: "+", Args: []*Sort{SortInt, SortInt}, Result: SortInt}
	FuncMinus  = &Function{Name: "-", Args: []*Sort{SortInt, SortInt}, Result: SortInt}
	FuncTimes  = &Function{Name: "*", Args: []*Sort{SortInt, SortInt}, Result: SortInt}
	FuncDiv    = &Function{Name: "/", Args: []*Sort{SortInt, SortInt}, Result: SortInt, Partial: true}
	FuncMod    = &Function{Name: "%", Args: []*Sort{SortInt, SortInt}, Result: SortInt, Partial: true}
	FuncUnaryMinus = &Function{Name: "-/1", Args: []*Sort{SortInt}, Result: SortInt}
	FuncAbs    = &Function{Name: "abs", Args: []*Sort{SortInt}, Result: SortInt}
	FuncExp    = &Function{Name: "^", Args: []*Sort{SortFloat, SortFloat}, Result: SortFloat}

	FuncPlusFloat  = &Function{Name: "+.", Args: []*Sort{SortFloat, SortFloat}, Result: SortFloat}
	FuncMinusFloat = &Function{Name: "-.", Args: []*Sort{SortFloat, SortFloat}, Result: SortFloat}
	FuncTimesFloat = &Function{Name: "*.", Args: []*Sort{SortFloat, SortFloat}, Result: SortFloat}
	FuncDivFloat   = &Function{Name: "/.", Args: []*Sort{SortFloat, SortFloat}, Result: SortFloat, Partial: true}
)

// arithFuncs indexes the built-in arithmetic functions by name, used
// by fobdd/visit's arithmetic simplification pipeline to recognise
// FuncApp nodes worth folding.
var arithFuncs = map[string]*Function{
	FuncPlus.Name: FuncPlus, FuncMinus.Name: FuncMinus, FuncTimes.Name: FuncTimes,
	FuncDiv.Name: FuncDiv, FuncMod.Name: FuncMod, FuncUnaryMinus.Name: FuncUnaryMinus,
	FuncAbs.Name: FuncAbs, FuncExp.Name: FuncExp,
	FuncPlusFloat.Name: FuncPlusFloat, FuncMinusFloat.Name: FuncMinusFloat,
	FuncTimesFloat.Name: FuncTimesFloat, FuncDivFloat.Name: FuncDivFloat,
}

// IsArithFunc reports whether f is one of the built-in arithmetic
// functions above (as opposed to a user-declared Function).
func IsArithFunc(f *Function) bool {
	found, ok := arithFuncs[f.Name]
	return ok && found == f
}

// Built-in comparison predicates, used wherever a Comparison term
// needs to become an ordinary atom instead of being evaluated
// directly — an equality between non-variable terms that must be
// reified rather than unified away (spec §4.9, §4.10), or any
// Comparison at all once it reaches fobdd.FromFormula, which has only
// one kernel category (atoms) to build BDD leaves from.
var (
	PredEquals  = &Predicate{Name: "="}
	PredNEquals = &Predicate{Name: "~="}
	PredLT      = &Predicate{Name: "<"}
	PredLE      = &Predicate{Name: "=<"}
	PredGT      = &Predicate{Name: ">"}
	PredGE      = &Predicate{Name: ">="}
)

// compareOpPreds indexes the built-in comparison predicates by the
// CompareOp they stand for.
var compareOpPreds = map[CompareOp]*Predicate{
	CmpEQ: PredEquals, CmpNE: PredNEquals,
	CmpLT: PredLT, CmpLE: PredLE, CmpGT: PredGT, CmpGE: PredGE,
}

// PredForCompareOp returns the built-in predicate standing for op.
func PredForCompareOp(op CompareOp) *Predicate { return compareOpPreds[op] }

// CompareOpForPred returns the CompareOp a built-in comparison
// predicate stands for, the reverse of PredForCompareOp — used by
// generate's atom compiler to recognise a comparison atom (one of
// these predicates, which declare no Sorts and so never have a
// PredicateInterpretation) instead of routing it through the
// plain-predicate table path.
func CompareOpForPred(p *Predicate) (CompareOp, bool) {
	for op, pred := range compareOpPreds {
		if pred == p {
			return op, true
		}
	}
	return 0, false
}
