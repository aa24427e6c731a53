// Package generate implements the Generator/Checker framework (spec
// §4.4): restartable cursors over tuple streams that enumerate the
// solutions of a formula given some arguments bound (INPUT) and
// others free (OUTPUT), plus a catalogue of concrete generators
// (full/empty/sort/table/inverse-table/comparison/union/two-child)
// the generator factory assembles from a BDD.
//
// Grounded on github.com/google/mangle/engine's QueryContext.EvalQuery
// (other_examples/8ea8833e_google-mangle__engine-topdown.go.go): the
// same INPUT/OUTPUT argument-mode contract, the same per-predicate
// rule/fact lookup, and unionfind-style variable binding, generalized
// from Datalog's single backtracking search to IDP's explicit
// restartable-cursor Generator interface (spec §4.4 requires reset/
// next/clone/isAtEnd as a standalone object, not a callback-driven
// search).
package generate

import (
	iast "idpgo/internal/ast"
	"idpgo/internal/structure"
)

// Pattern is a generator's INPUT/OUTPUT mode per argument, matching
// mangle's ast.ArgMode (ArgModeInput/ArgModeOutput) but kept local so
// generate does not need to depend on mangle's engine package
// directly — only ast/factstore are shared substrate.
type Pattern []Mode

type Mode int

const (
	Input Mode = iota
	Output
)

// Bindings is the (partial) variable assignment a Generator reads
// its INPUT arguments from and writes its OUTPUT arguments into.
type Bindings map[*iast.Variable]iast.DomainElement

// Generator is a restartable cursor over the tuples satisfying some
// condition, spec §4.4's core abstraction. Vars lists, in order, the
// free variables whose Pattern entry is Output — Next fills their
// Bindings entry with the next tuple.
type Generator interface {
	// Vars returns the output variables this generator binds, in the
	// order Next produces values for them.
	Vars() []*iast.Variable
	// Reset restarts the cursor at its first tuple (or immediately
	// exhausted, if there are none), reading any INPUT variables from
	// bindings.
	Reset(bindings Bindings)
	// Next advances to the next tuple, writing OUTPUT variables into
	// bindings and reporting whether a tuple was produced.
	Next(bindings Bindings) bool
	// IsAtEnd reports whether the cursor is exhausted.
	IsAtEnd() bool
	// Clone returns an independent copy of the generator at its
	// current position, so a caller can fork a search without
	// restarting (spec §4.4's "clone" operation).
	Clone() Generator
}

// Checker is a Generator specialised to the zero-output-variable
// case: it only tests whether a fully-bound tuple satisfies the
// condition (spec §4.4's "Checker" degenerate case of Generator).
type Checker interface {
	// Check reports whether bindings currently satisfies the
	// condition.
	Check(bindings Bindings) bool
}

// FullGenerator enumerates every element of Sort as the sole output
// variable Var, spec §4.4's "FullGenerator" for an unconstrained
// variable.
type FullGenerator struct {
	Var   *iast.Variable
	Sort  *iast.Sort
	elems []iast.DomainElement
	pos   int
}

func NewFullGenerator(v *iast.Variable, sort *iast.Sort) *FullGenerator {
	return &FullGenerator{Var: v, Sort: sort}
}

func (g *FullGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Var} }

func (g *FullGenerator) Reset(Bindings) {
	g.elems = g.elems[:0]
	g.Sort.Table.Iterate(func(e iast.DomainElement) bool {
		g.elems = append(g.elems, e)
		return true
	})
	g.pos = 0
}

func (g *FullGenerator) Next(bindings Bindings) bool {
	if g.pos >= len(g.elems) {
		return false
	}
	bindings[g.Var] = g.elems[g.pos]
	g.pos++
	return true
}

func (g *FullGenerator) IsAtEnd() bool { return g.pos >= len(g.elems) }

func (g *FullGenerator) Clone() Generator {
	cp := *g
	cp.elems = append([]iast.DomainElement(nil), g.elems...)
	return &cp
}

// EmptyGenerator produces no tuples, spec §4.4's generator for a
// provably-unsatisfiable condition.
type EmptyGenerator struct{ OutVars []*iast.Variable }

func (g *EmptyGenerator) Vars() []*iast.Variable { return g.OutVars }
func (g *EmptyGenerator) Reset(Bindings)         {}
func (g *EmptyGenerator) Next(Bindings) bool     { return false }
func (g *EmptyGenerator) IsAtEnd() bool          { return true }
func (g *EmptyGenerator) Clone() Generator       { return &EmptyGenerator{OutVars: g.OutVars} }

// TableGenerator enumerates the ct tuples of a predicate
// interpretation, projecting out the output-variable columns and
// filtering on bound input columns — the workhorse generator behind
// almost every atom in a grounded formula (spec §4.4).
type TableGenerator struct {
	Pred    *iast.Predicate
	Pattern Pattern
	ArgVars []*iast.Variable // one per argument position; nil entries are bound input constants handled elsewhere
	PI      *structure.PredicateInterpretation

	rows []( []iast.DomainElement )
	pos  int
}

func NewTableGenerator(pred *iast.Predicate, pattern Pattern, argVars []*iast.Variable, pi *structure.PredicateInterpretation) *TableGenerator {
	return &TableGenerator{Pred: pred, Pattern: pattern, ArgVars: argVars, PI: pi}
}

func (g *TableGenerator) Vars() []*iast.Variable {
	var out []*iast.Variable
	for i, m := range g.Pattern {
		if m == Output && g.ArgVars[i] != nil {
			out = append(out, g.ArgVars[i])
		}
	}
	return out
}

func (g *TableGenerator) Reset(bindings Bindings) {
	g.rows = g.rows[:0]
	g.PI.CTFacts(func(tuple []iast.DomainElement) {
		for i, m := range g.Pattern {
			if m == Input && g.ArgVars[i] != nil {
				bound, ok := bindings[g.ArgVars[i]]
				if !ok || bound.String() != tuple[i].String() {
					return
				}
			}
		}
		g.rows = append(g.rows, tuple)
	})
	g.pos = 0
}

func (g *TableGenerator) Next(bindings Bindings) bool {
	if g.pos >= len(g.rows) {
		return false
	}
	tuple := g.rows[g.pos]
	for i, m := range g.Pattern {
		if m == Output && g.ArgVars[i] != nil {
			bindings[g.ArgVars[i]] = tuple[i]
		}
	}
	g.pos++
	return true
}

func (g *TableGenerator) IsAtEnd() bool { return g.pos >= len(g.rows) }

func (g *TableGenerator) Clone() Generator {
	cp := *g
	cp.rows = append([][]iast.DomainElement(nil), g.rows...)
	return &cp
}

// InverseTableGenerator enumerates the tuples NOT in a predicate's ct
// table, restricted to each output variable's sort — spec §4.4's
// generator for a negated atom whose variable is otherwise
// unconstrained.
type InverseTableGenerator struct {
	Inner *TableGenerator
	full  *FullGenerator
	seen  map[string]bool
}

func NewInverseTableGenerator(inner *TableGenerator, full *FullGenerator) *InverseTableGenerator {
	return &InverseTableGenerator{Inner: inner, full: full}
}

func (g *InverseTableGenerator) Vars() []*iast.Variable { return g.full.Vars() }

func (g *InverseTableGenerator) Reset(bindings Bindings) {
	g.Inner.Reset(bindings)
	g.seen = make(map[string]bool, len(g.Inner.rows))
	for _, row := range g.Inner.rows {
		g.seen[tupleKey(row)] = true
	}
	g.full.Reset(bindings)
}

func tupleKey(tuple []iast.DomainElement) string {
	key := ""
	for _, e := range tuple {
		key += e.String() + "\x00"
	}
	return key
}

func (g *InverseTableGenerator) Next(bindings Bindings) bool {
	for g.full.Next(bindings) {
		vars := g.full.Vars()
		tuple := make([]iast.DomainElement, len(vars))
		for i, v := range vars {
			tuple[i] = bindings[v]
		}
		if !g.seen[tupleKey(tuple)] {
			return true
		}
	}
	return false
}

func (g *InverseTableGenerator) IsAtEnd() bool { return g.full.IsAtEnd() }

func (g *InverseTableGenerator) Clone() Generator {
	return &InverseTableGenerator{Inner: g.Inner, full: g.full.Clone().(*FullGenerator), seen: g.seen}
}

// ComparisonGenerator generates tuples of an output variable
// satisfying an arithmetic comparison against a bound value, drawn
// from Sort's table (spec §4.4's generator for "x < 5" style atoms
// with x free).
type ComparisonGenerator struct {
	Var   *iast.Variable
	Sort  *iast.Sort
	Bound iast.DomainElement
	Op    iast.CompareOp

	matches []iast.DomainElement
	pos     int
}

func (g *ComparisonGenerator) Vars() []*iast.Variable { return []*iast.Variable{g.Var} }

func (g *ComparisonGenerator) Reset(Bindings) {
	g.matches = g.matches[:0]
	g.Sort.Table.Iterate(func(e iast.DomainElement) bool {
		if compareHolds(e, g.Op, g.Bound) {
			g.matches = append(g.matches, e)
		}
		return true
	})
	g.pos = 0
}

func compareHolds(left iast.DomainElement, op iast.CompareOp, right iast.DomainElement) bool {
	l, lok := left.NumValue, left.Type == right.Type
	r := right.NumValue
	if !lok {
		return left.String() == right.String() && op == iast.CmpEQ
	}
	switch op {
	case iast.CmpEQ:
		return l == r
	case iast.CmpNE:
		return l != r
	case iast.CmpLT:
		return l < r
	case iast.CmpLE:
		return l <= r
	case iast.CmpGT:
		return l > r
	case iast.CmpGE:
		return l >= r
	}
	return false
}

func (g *ComparisonGenerator) Next(bindings Bindings) bool {
	if g.pos >= len(g.matches) {
		return false
	}
	bindings[g.Var] = g.matches[g.pos]
	g.pos++
	return true
}

func (g *ComparisonGenerator) IsAtEnd() bool { return g.pos >= len(g.matches) }

func (g *ComparisonGenerator) Clone() Generator {
	cp := *g
	cp.matches = append([]iast.DomainElement(nil), g.matches...)
	return &cp
}

// UnionGenerator concatenates several generators sharing the same
// output variables, spec §4.4's generator for a disjunction of atoms
// over the same free variable. A tuple already produced by component
// j is skipped when it recurs in component i>j ("skip tuples already
// accepted by check_j for some j<i", spec §4.4) — every tuple is
// emitted at most once (spec §8), the same seen-set approach
// InverseTableGenerator uses against its Inner table.
type UnionGenerator struct {
	Components []Generator
	idx        int
	seen       map[string]bool
}

func (g *UnionGenerator) Vars() []*iast.Variable {
	if len(g.Components) == 0 {
		return nil
	}
	return g.Components[0].Vars()
}

func (g *UnionGenerator) Reset(bindings Bindings) {
	g.idx = 0
	g.seen = make(map[string]bool)
	for _, c := range g.Components {
		c.Reset(bindings)
	}
}

func (g *UnionGenerator) Next(bindings Bindings) bool {
	vars := g.Vars()
	for g.idx < len(g.Components) {
		if !g.Components[g.idx].Next(bindings) {
			g.idx++
			continue
		}
		tuple := make([]iast.DomainElement, len(vars))
		for i, v := range vars {
			tuple[i] = bindings[v]
		}
		key := tupleKey(tuple)
		if g.seen[key] {
			continue
		}
		g.seen[key] = true
		return true
	}
	return false
}

func (g *UnionGenerator) IsAtEnd() bool { return g.idx >= len(g.Components) }

func (g *UnionGenerator) Clone() Generator {
	clones := make([]Generator, len(g.Components))
	for i, c := range g.Components {
		clones[i] = c.Clone()
	}
	seen := make(map[string]bool, len(g.seen))
	for k, v := range g.seen {
		seen[k] = v
	}
	return &UnionGenerator{Components: clones, idx: g.idx, seen: seen}
}

// OneChildGenerator sequences two generators where the second's INPUT
// bindings depend on the first's OUTPUT (a nested loop): for each
// tuple Generator produces, Child is reset and run to exhaustion
// before Generator advances again. Spec §4.4's generator for "and" —
// a conjunction of two sub-BDDs sharing a variable, grounded on
// original_source/src/generators/TreeInstGenerator.cpp's
// OneChildGenerator::next.
type OneChildGenerator struct {
	Generator, Child Generator
	started          bool
}

func NewOneChildGenerator(generator, child Generator) *OneChildGenerator {
	return &OneChildGenerator{Generator: generator, Child: child}
}

func (g *OneChildGenerator) Vars() []*iast.Variable {
	return append(append([]*iast.Variable{}, g.Generator.Vars()...), g.Child.Vars()...)
}

func (g *OneChildGenerator) Reset(bindings Bindings) {
	g.Generator.Reset(bindings)
	g.started = false
}

func (g *OneChildGenerator) Next(bindings Bindings) bool {
	for {
		if !g.started {
			if !g.Generator.Next(bindings) {
				return false
			}
			g.Child.Reset(bindings)
			g.started = true
		}
		if g.Child.Next(bindings) {
			return true
		}
		g.started = false
	}
}

func (g *OneChildGenerator) IsAtEnd() bool { return g.Generator.IsAtEnd() && !g.started }

func (g *OneChildGenerator) Clone() Generator {
	return &OneChildGenerator{Generator: g.Generator.Clone(), Child: g.Child.Clone(), started: g.started}
}

// TwoChildGenerator is the generator for a general BDD node (spec
// §4.4): Generator enumerates the universe for the branch kernel's
// own variables, Checker tests the kernel's condition at each
// tuple, and depending on the outcome either TrueBranch or
// FalseBranch is reset and driven to exhaustion before Generator
// advances again. Grounded on
// original_source/src/generators/TreeInstGenerator.cpp's
// TwoChildGenerator::next.
type TwoChildGenerator struct {
	Checker                 Checker
	Generator               Generator
	TrueBranch, FalseBranch Generator

	started    bool
	lastResult bool
}

func NewTwoChildGenerator(checker Checker, generator, trueBranch, falseBranch Generator) *TwoChildGenerator {
	return &TwoChildGenerator{Checker: checker, Generator: generator, TrueBranch: trueBranch, FalseBranch: falseBranch}
}

func (g *TwoChildGenerator) Vars() []*iast.Variable {
	vars := append([]*iast.Variable{}, g.Generator.Vars()...)
	vars = append(vars, g.TrueBranch.Vars()...)
	vars = append(vars, g.FalseBranch.Vars()...)
	return vars
}

func (g *TwoChildGenerator) Reset(bindings Bindings) {
	g.Generator.Reset(bindings)
	g.started = false
}

func (g *TwoChildGenerator) branch() Generator {
	if g.lastResult {
		return g.TrueBranch
	}
	return g.FalseBranch
}

func (g *TwoChildGenerator) Next(bindings Bindings) bool {
	for {
		if !g.started {
			if !g.Generator.Next(bindings) {
				return false
			}
			g.lastResult = g.Checker.Check(bindings)
			g.branch().Reset(bindings)
			g.started = true
		}
		if g.branch().Next(bindings) {
			return true
		}
		g.started = false
	}
}

func (g *TwoChildGenerator) IsAtEnd() bool { return g.Generator.IsAtEnd() && !g.started }

func (g *TwoChildGenerator) Clone() Generator {
	return &TwoChildGenerator{
		Checker:     g.Checker,
		Generator:   g.Generator.Clone(),
		TrueBranch:  g.TrueBranch.Clone(),
		FalseBranch: g.FalseBranch.Clone(),
		started:     g.started,
		lastResult:  g.lastResult,
	}
}
