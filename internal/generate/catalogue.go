// Arithmetic and lookup generators/checkers (spec §4.4's generator
// catalogue): SortGenerator/SortChecker for plain sort membership,
// TableChecker for a fully-bound predicate test, EnumLookupGenerator/
// SimpleFuncGenerator for function application, and the eight named
// arithmetic generators inverting the built-in +/-/*//%/abs/unary
// minus functions.
//
// Grounded on
// original_source/src/generators/TableCheckerAndGenerators.{hpp,cpp}
// (TableChecker) and original_source/src/generators/
// SortGenAndChecker.hpp (SortGenerator/SortChecker); the arithmetic
// generators are grounded on GeneratorFactory.hpp's per-InternalFuncTable
// visit methods (PlusInternalFuncTable, MinusInternalFuncTable, ...),
// which are all the same "invert a binary or unary built-in arithmetic
// function, given all but one argument bound" shape — idpgo shares one
// evaluator (binOp and arithInverseGenerator below) across the named types
// rather than hand-duplicating eight near-identical switches.
package generate

import (
	"math"

	mast "github.com/google/mangle/ast"

	iast "idpgo/internal/ast"
	"idpgo/internal/structure"
)

// SortGenerator instantiates a variable with every value of a sort —
// spec §4.4's name for exactly the FullGenerator role already defined
// above; kept as an alias instead of a duplicate implementation.
type SortGenerator = FullGenerator

func NewSortGenerator(v *iast.Variable, sort *iast.Sort) *SortGenerator { return NewFullGenerator(v, sort) }

// SortChecker reports whether a bound variable's current value
// belongs to Sort, spec §4.4's degenerate Checker case of
// SortGenerator.
type SortChecker struct {
	Var  *iast.Variable
	Sort *iast.Sort
}

func (c *SortChecker) Check(bindings Bindings) bool {
	v, ok := bindings[c.Var]
	return ok && c.Sort.Table.Contains(v)
}

// TableChecker reports whether a fully-bound tuple of ArgVars is
// certainly true in PI, spec §4.4's generator for a positive atom
// whose arguments are all already bound by an enclosing generator.
type TableChecker struct {
	Pred    *iast.Predicate
	ArgVars []*iast.Variable
	PI      *structure.PredicateInterpretation
}

func (c *TableChecker) Check(bindings Bindings) bool {
	tuple := make([]iast.DomainElement, len(c.ArgVars))
	for i, v := range c.ArgVars {
		tuple[i] = bindings[v]
	}
	return c.PI.IsCT(tuple)
}

// EnumLookupGenerator produces the single result a FunctionInterpretation
// maps bound ArgVars to, spec §4.4's generator for a function
// application whose range is the sole output variable.
type EnumLookupGenerator struct {
	Out     *iast.Variable
	ArgVars []*iast.Variable
	FI      *structure.FunctionInterpretation
	done    bool
}

func (g *EnumLookupGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Out} }
func (g *EnumLookupGenerator) Reset(Bindings)         { g.done = false }

func (g *EnumLookupGenerator) Next(bindings Bindings) bool {
	if g.done {
		return false
	}
	g.done = true
	args := make([]iast.DomainElement, len(g.ArgVars))
	for i, v := range g.ArgVars {
		args[i] = bindings[v]
	}
	res, ok := g.FI.Get(args)
	if !ok {
		return false
	}
	bindings[g.Out] = res
	return true
}

func (g *EnumLookupGenerator) IsAtEnd() bool   { return g.done }
func (g *EnumLookupGenerator) Clone() Generator { cp := *g; return &cp }

// arithValue extracts e's numeric value as a float64, covering both
// NumberType (int64) and Float64Type (bit-packed into NumValue, per
// mangle's ast.Float64 constructor) — the same decoding
// ground.weightOf and visit's constValue already rely on.
func arithValue(e iast.DomainElement) (float64, bool) {
	switch e.Type {
	case mast.NumberType:
		return float64(e.NumValue), true
	case mast.Float64Type:
		return math.Float64frombits(uint64(e.NumValue)), true
	default:
		return 0, false
	}
}

// numElement builds the DomainElement for v under sort: a float
// constant if sort is the float sort, an integer constant otherwise.
func numElement(v float64, sort *iast.Sort) iast.DomainElement {
	if sort == iast.SortFloat {
		return mast.Float64(v)
	}
	return mast.Number(int64(v))
}

// binOp evaluates fn(l, r), the forward direction every arithmetic
// checker/generator below needs to verify or invert.
func binOp(fn *iast.Function, l, r float64) (float64, bool) {
	switch fn {
	case iast.FuncPlus, iast.FuncPlusFloat:
		return l + r, true
	case iast.FuncMinus, iast.FuncMinusFloat:
		return l - r, true
	case iast.FuncTimes, iast.FuncTimesFloat:
		return l * r, true
	case iast.FuncDiv, iast.FuncDivFloat:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case iast.FuncMod:
		if r == 0 {
			return 0, false
		}
		return math.Mod(l, r), true
	default:
		return 0, false
	}
}

// SimpleFuncGenerator generates the single value a function maps
// bound ArgVars to: the built-in arithmetic evaluator for one of
// ast.IsArithFunc's functions, or FI.Get for a user-declared one —
// spec §4.4's "if the range is an output variable, the simple func
// generator suffices regardless of function kind" case.
type SimpleFuncGenerator struct {
	Func    *iast.Function
	Out     *iast.Variable
	ArgVars []*iast.Variable
	FI      *structure.FunctionInterpretation // nil for a built-in arithmetic function
	done    bool
}

func (g *SimpleFuncGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Out} }
func (g *SimpleFuncGenerator) Reset(Bindings)         { g.done = false }

func (g *SimpleFuncGenerator) Next(bindings Bindings) bool {
	if g.done {
		return false
	}
	g.done = true
	args := make([]iast.DomainElement, len(g.ArgVars))
	for i, v := range g.ArgVars {
		args[i] = bindings[v]
	}
	if iast.IsArithFunc(g.Func) {
		if len(args) == 1 {
			l, ok := arithValue(args[0])
			if !ok {
				return false
			}
			var v float64
			switch g.Func {
			case iast.FuncUnaryMinus:
				v = -l
			case iast.FuncAbs:
				v = math.Abs(l)
			default:
				return false
			}
			bindings[g.Out] = numElement(v, g.Func.Result)
			return true
		}
		if len(args) == 2 {
			l, lok := arithValue(args[0])
			r, rok := arithValue(args[1])
			if !lok || !rok {
				return false
			}
			v, ok := binOp(g.Func, l, r)
			if !ok {
				return false
			}
			bindings[g.Out] = numElement(v, g.Func.Result)
			return true
		}
		return false
	}
	if g.FI == nil {
		return false
	}
	res, ok := g.FI.Get(args)
	if !ok {
		return false
	}
	bindings[g.Out] = res
	return true
}

func (g *SimpleFuncGenerator) IsAtEnd() bool   { return g.done }
func (g *SimpleFuncGenerator) Clone() Generator { cp := *g; return &cp }

// arithChecker verifies a fully-bound binary arithmetic relation
// L op R = Result, shared by PlusChecker/TimesChecker/ModChecker.
type arithChecker struct {
	Fn            *iast.Function
	L, R, Result  *iast.Variable
}

func (c *arithChecker) Check(bindings Bindings) bool {
	l, lok := arithValue(bindings[c.L])
	r, rok := arithValue(bindings[c.R])
	res, rok2 := arithValue(bindings[c.Result])
	if !lok || !rok || !rok2 {
		return false
	}
	v, ok := binOp(c.Fn, l, r)
	return ok && v == res
}

// PlusChecker checks L + R = Result (original_source's
// PlusInternalFuncTable used as a checker, all arguments bound).
type PlusChecker struct{ arithChecker }

func NewPlusChecker(l, r, result *iast.Variable, float bool) *PlusChecker {
	fn := iast.FuncPlus
	if float {
		fn = iast.FuncPlusFloat
	}
	return &PlusChecker{arithChecker{Fn: fn, L: l, R: r, Result: result}}
}

// TimesChecker checks L * R = Result.
type TimesChecker struct{ arithChecker }

func NewTimesChecker(l, r, result *iast.Variable, float bool) *TimesChecker {
	fn := iast.FuncTimes
	if float {
		fn = iast.FuncTimesFloat
	}
	return &TimesChecker{arithChecker{Fn: fn, L: l, R: r, Result: result}}
}

// ModChecker checks L % R = Result.
type ModChecker struct{ arithChecker }

func NewModChecker(l, r, result *iast.Variable) *ModChecker {
	return &ModChecker{arithChecker{Fn: iast.FuncMod, L: l, R: r, Result: result}}
}

// arithInverseGenerator generates the single value of a free
// binary-operation argument given the other argument and the result
// are bound — the shape MinusGenerator and DivGenerator share:
// Out = invert(Known, Result).
type arithInverseGenerator struct {
	Fn          *iast.Function
	Known, Out  *iast.Variable
	Result      *iast.Variable
	knownIsLeft bool // whether Known occupies the left (first) argument position
	done        bool
}

func (g *arithInverseGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Out} }
func (g *arithInverseGenerator) Reset(Bindings)         { g.done = false }

func (g *arithInverseGenerator) Next(bindings Bindings) bool {
	if g.done {
		return false
	}
	g.done = true
	known, kok := arithValue(bindings[g.Known])
	result, rok := arithValue(bindings[g.Result])
	if !kok || !rok {
		return false
	}
	var out float64
	var ok bool
	switch g.Fn {
	case iast.FuncMinus, iast.FuncMinusFloat:
		if g.knownIsLeft {
			out, ok = known-result, true // known - out = result
		} else {
			out, ok = result+known, true // out - known = result
		}
	case iast.FuncDiv, iast.FuncDivFloat:
		if g.knownIsLeft {
			if result == 0 {
				return false
			}
			out, ok = known/result, true // known / out = result
		} else {
			if known == 0 {
				return false
			}
			out, ok = result*known, true // out / known = result
		}
	}
	if !ok {
		return false
	}
	bindings[g.Out] = numElement(out, g.Result.Sort())
	return true
}

func (g *arithInverseGenerator) IsAtEnd() bool   { return g.done }
func (g *arithInverseGenerator) Clone() Generator { cp := *g; return &cp }

// MinusGenerator generates the free operand of L - R = Result given
// the other operand and Result are bound (original's
// MinusInternalFuncTable inverse).
type MinusGenerator struct{ arithInverseGenerator }

func NewMinusGenerator(known, out, result *iast.Variable, knownIsLeft, float bool) *MinusGenerator {
	fn := iast.FuncMinus
	if float {
		fn = iast.FuncMinusFloat
	}
	return &MinusGenerator{arithInverseGenerator{Fn: fn, Known: known, Out: out, Result: result, knownIsLeft: knownIsLeft}}
}

// DivGenerator generates the free operand of L / R = Result given the
// other operand and Result are bound (original's DivInternalFuncTable
// inverse).
type DivGenerator struct{ arithInverseGenerator }

func NewDivGenerator(known, out, result *iast.Variable, knownIsLeft, float bool) *DivGenerator {
	fn := iast.FuncDiv
	if float {
		fn = iast.FuncDivFloat
	}
	return &DivGenerator{arithInverseGenerator{Fn: fn, Known: known, Out: out, Result: result, knownIsLeft: knownIsLeft}}
}

// InverseAbsValueGenerator generates the (up to two) values x for
// which abs(x) = Result holds, given Result is bound: Result and
// -Result (original's AbsInternalFuncTable inverse, which is the one
// arithmetic generator in the catalogue with more than one answer).
type InverseAbsValueGenerator struct {
	Out, Result *iast.Variable
	candidates  []iast.DomainElement
	pos         int
}

func NewInverseAbsValueGenerator(out, result *iast.Variable) *InverseAbsValueGenerator {
	return &InverseAbsValueGenerator{Out: out, Result: result}
}

func (g *InverseAbsValueGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Out} }

func (g *InverseAbsValueGenerator) Reset(bindings Bindings) {
	g.candidates = g.candidates[:0]
	g.pos = 0
	res, ok := arithValue(bindings[g.Result])
	if !ok || res < 0 {
		return
	}
	g.candidates = append(g.candidates, numElement(res, g.Out.Sort()))
	if res != 0 {
		g.candidates = append(g.candidates, numElement(-res, g.Out.Sort()))
	}
}

func (g *InverseAbsValueGenerator) Next(bindings Bindings) bool {
	if g.pos >= len(g.candidates) {
		return false
	}
	bindings[g.Out] = g.candidates[g.pos]
	g.pos++
	return true
}

func (g *InverseAbsValueGenerator) IsAtEnd() bool { return g.pos >= len(g.candidates) }

func (g *InverseAbsValueGenerator) Clone() Generator {
	cp := *g
	cp.candidates = append([]iast.DomainElement(nil), g.candidates...)
	return &cp
}

// UnaryMinusGenerator generates the single value x for which -x =
// Result holds, given Result is bound: x = -Result.
type UnaryMinusGenerator struct {
	Out, Result *iast.Variable
	done        bool
}

func NewUnaryMinusGenerator(out, result *iast.Variable) *UnaryMinusGenerator {
	return &UnaryMinusGenerator{Out: out, Result: result}
}

func (g *UnaryMinusGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Out} }
func (g *UnaryMinusGenerator) Reset(Bindings)         { g.done = false }

func (g *UnaryMinusGenerator) Next(bindings Bindings) bool {
	if g.done {
		return false
	}
	g.done = true
	res, ok := arithValue(bindings[g.Result])
	if !ok {
		return false
	}
	bindings[g.Out] = numElement(-res, g.Out.Sort())
	return true
}

func (g *UnaryMinusGenerator) IsAtEnd() bool   { return g.done }
func (g *UnaryMinusGenerator) Clone() Generator { cp := *g; return &cp }

// InverseUNAFuncGenerator generates the argument tuple a user-declared
// function maps to a bound result, under the unique-names assumption
// (every result has at most one preimage) the original's
// UNAInternalFuncTable relies on: a reverse lookup built once from
// FI's forward graph.
type InverseUNAFuncGenerator struct {
	Out    *iast.Variable
	Result *iast.Variable
	FI     *structure.FunctionInterpretation

	reverse map[string]iast.DomainElement
	done    bool
}

func NewInverseUNAFuncGenerator(out, result *iast.Variable, fi *structure.FunctionInterpretation) *InverseUNAFuncGenerator {
	return &InverseUNAFuncGenerator{Out: out, Result: result, FI: fi}
}

func (g *InverseUNAFuncGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Out} }

func (g *InverseUNAFuncGenerator) Reset(Bindings) {
	g.done = false
	if g.reverse == nil {
		g.reverse = make(map[string]iast.DomainElement)
		g.FI.ForEach(func(args []iast.DomainElement, result iast.DomainElement) {
			if len(args) == 1 {
				g.reverse[result.String()] = args[0]
			}
		})
	}
}

func (g *InverseUNAFuncGenerator) Next(bindings Bindings) bool {
	if g.done {
		return false
	}
	g.done = true
	res, ok := bindings[g.Result]
	if !ok {
		return false
	}
	arg, ok := g.reverse[res.String()]
	if !ok {
		return false
	}
	bindings[g.Out] = arg
	return true
}

func (g *InverseUNAFuncGenerator) IsAtEnd() bool   { return g.done }
func (g *InverseUNAFuncGenerator) Clone() Generator { cp := *g; return &cp }
