// Package inference wires idpgo/fobdd, idpgo/propagate,
// idpgo/definition, idpgo/ground and a solver collaborator behind the
// three public operations spec §6 names: Propagate, ModelExpand,
// Ground. It is the one package `cmd/idpgo` calls into.
//
// Grounded on cmd/nerd/main.go's command-to-package wiring (each
// cobra subcommand builds one request value and hands it to exactly
// one internal package's entry point) and on design note §9's request
// to replace the global GlobalData/Options singleton with an explicit
// value threaded through the call — here, *config.Config plus
// *ast.Theory/*structure.Structure passed directly to each function
// rather than stashed on a package-level Context.
package inference

import (
	"context"

	"idpgo/internal/ast"
	"idpgo/internal/config"
	"idpgo/internal/definition"
	"idpgo/internal/ecnf"
	"idpgo/internal/fobdd"
	"idpgo/internal/fobdd/visit"
	"idpgo/internal/ground"
	"idpgo/internal/idperr"
	"idpgo/internal/logging"
	"idpgo/internal/propagate"
	"idpgo/internal/runctl"
	"idpgo/internal/solver/bruteforce"
	"idpgo/internal/structure"
)

// Model maps every ground atom id a theory names to its truth value
// in one solution, independent of which Solver produced it.
type Model map[int]bool

// SolveOptions bounds a single Solver.Solve call.
type SolveOptions struct {
	// MaxModels caps how many models to search for; 0 means "every
	// model the solver is willing to enumerate" (spec §6's NBMODELS=0
	// meaning "all").
	MaxModels int
	Token     runctl.Token

	// Assumptions forces each literal true before search, spec §6's
	// modelexpand(...,assumptions?) parameter.
	Assumptions []ecnf.Literal

	// OutputVoc restricts which atom ids distinguish one reported
	// model from another (spec §6's modelexpand(...,output-voc?)
	// parameter); nil means every atom is significant.
	OutputVoc map[int]bool

	// Minimize names an optimisation objective (spec §6's
	// modelexpand(...,minimize?) parameter); nil runs a plain
	// satisfiability search.
	Minimize *ecnf.Objective
}

// ModelExpandRequest carries spec §6's modelexpand(...) parameters
// beyond the theory/structure pair and the options already threaded
// through config.Options (MaxModels, time/memory budget come from
// config; these three are per-call).
type ModelExpandRequest struct {
	OutputVoc   map[int]bool
	Minimize    *ecnf.Objective
	Assumptions []ecnf.Literal
}

// Solver is the external-collaborator slot ModelExpand hands a ground
// theory to (spec §1's "specified only through the ECNF wire
// interface"); idpgo/solver/bruteforce is the only implementation
// shipped in-tree, used by tests and by the CLI's modelexpand command
// rather than as a production SAT/CP backend.
type Solver interface {
	Solve(ctx context.Context, g *ecnf.GroundTheory, opts SolveOptions) (models []Model, unsat bool, optimum *float64, err error)
}

// BruteForce adapts idpgo/solver/bruteforce.Solver to the Solver
// interface above, translating its Model/Options types one-for-one.
type BruteForce struct {
	inner *bruteforce.Solver
}

// NewBruteForce returns the in-tree reference Solver.
func NewBruteForce() *BruteForce { return &BruteForce{inner: bruteforce.New()} }

func (b *BruteForce) Solve(ctx context.Context, g *ecnf.GroundTheory, opts SolveOptions) ([]Model, bool, *float64, error) {
	raw, unsat, optimum, err := b.inner.Solve(ctx, g, bruteforce.Options{
		MaxModels:   opts.MaxModels,
		Token:       opts.Token,
		Assumptions: opts.Assumptions,
		OutputVoc:   opts.OutputVoc,
		Minimize:    opts.Minimize,
	})
	if err != nil {
		return nil, false, nil, err
	}
	models := make([]Model, len(raw))
	for i, m := range raw {
		models[i] = Model(m)
	}
	return models, unsat, optimum, nil
}

// Propagate runs spec §4.3's bounds-propagation pass over every
// sentence of t against s: compile each sentence to a BDD (one shared
// Manager, so repeated atoms across sentences hash-cons to the same
// kernel and a later sentence's seeding sees an earlier sentence's
// derived bounds), then run propagate.Propagate to a fixpoint or the
// configured step budget. Definitions are left untouched — definition
// evaluation is a separate operation (idpgo/definition), since a
// definition's completion semantics do not reduce to a BDD the way a
// standalone sentence's do.
func Propagate(opts config.Options, t *ast.Theory, s *structure.Structure) error {
	m := fobdd.NewManager()
	m.TermSimplify = visit.Simplify
	sentences := t.Sentences()

	nodes := make([]*fobdd.Node, 0, len(sentences))
	for _, f := range sentences {
		n, err := m.FromFormula(f)
		if err != nil {
			return idperr.Wrap(err, "inference: compile sentence to bdd")
		}
		nodes = append(nodes, n)
	}

	steps := opts.NrPropSteps
	if opts.RelativePropagationSteps {
		total := 0
		for _, n := range nodes {
			total += visit.CountNodes(n)
		}
		if total > 0 {
			steps *= total
		}
	}

	for _, n := range nodes {
		if err := propagate.Propagate(n, s, steps); err != nil {
			return err
		}
	}
	inferLog.Debugw("propagation complete", "sentences", len(sentences), "steps", steps)
	return nil
}

// Ground runs spec §6's GROUNDWITHBOUNDS pipeline: optionally
// propagate first, then resolve every definition whose opens are
// already two-valued (idpgo/definition), then hand the whole theory to
// idpgo/ground and return the resulting GroundTheory.
func Ground(opts config.Options, t *ast.Theory, s *structure.Structure) (*ecnf.GroundTheory, error) {
	if opts.GroundWithBounds {
		if err := Propagate(opts, t, s); err != nil {
			return nil, err
		}
	}
	if err := definition.CalculateKnownDefinitions(t, s, opts.StableSemantics); err != nil {
		return nil, idperr.Wrap(err, "inference: evaluate known definitions")
	}
	theory, err := ground.Ground(t, s)
	if err != nil {
		return nil, err
	}
	inferLog.Debugw("grounding complete", "atoms", theory.NextAtomID-1, "clauses", len(theory.Clauses))
	return theory, nil
}

// ModelExpand runs spec §6's full inference pipeline: Ground (which
// itself may propagate and evaluate definitions first), then hand the
// resulting GroundTheory to solver under the resource limits opts
// names (spec §5's watchdog), collecting up to opts.NbModels models
// (0 meaning every model the solver is willing to enumerate). req
// carries the output-voc/minimize/assumptions parameters of spec §6's
// modelexpand(...) signature; its zero value runs a plain search.
func ModelExpand(ctx context.Context, opts config.Options, t *ast.Theory, s *structure.Structure, solver Solver, req ModelExpandRequest) (models []Model, unsat bool, optimum *float64, err error) {
	theory, err := Ground(opts, t, s)
	if err != nil {
		if idperr.IsUnsat(err) {
			return nil, true, nil, nil
		}
		return nil, false, nil, err
	}
	if theory.IsTriviallyUnsat() {
		return nil, true, nil, nil
	}

	monitor := runctl.NewMonitor(runctl.Limits{Time: opts.MxTimeout, Memory: uint64(opts.MxMemoryOut)})
	var result []Model
	var solverUnsat bool
	var solverOptimum *float64
	runErr := monitor.Run(ctx, func(runCtx context.Context, tok runctl.Token) error {
		result, solverUnsat, solverOptimum, err = solver.Solve(runCtx, theory, SolveOptions{
			MaxModels:   opts.NbModels,
			Token:       tok,
			Assumptions: req.Assumptions,
			OutputVoc:   req.OutputVoc,
			Minimize:    req.Minimize,
		})
		return err
	})
	if runErr != nil {
		return nil, false, nil, runErr
	}
	inferLog.Debugw("model expansion complete", "models", len(result), "unsat", solverUnsat)
	return result, solverUnsat, solverOptimum, nil
}

var inferLog = logging.For(logging.LayerInference)
