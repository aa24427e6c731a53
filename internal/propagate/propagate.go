// Package propagate implements three-valued bounds propagation over a
// formula (spec §4.3): given a BDD-shaped formula and a structure, it
// tightens each sub-kernel's ct/cf bound and pushes the resulting
// tightening both up and down the formula tree until a fixpoint, or
// until a configured step budget runs out.
//
// Grounded on internal/mangle/differential.go's incremental
// evaluator: a FIFO change queue drains "what changed" entries,
// recomputes dependents, and re-enqueues anything that in turn
// changed (the same shape differential.go's ApplyDelta/stratum
// recompute uses for Datalog fixpoint evaluation, generalized here
// from Datalog's single ct-direction to propagate's symmetric
// up/down, ct/cf bound lattice).
package propagate

import (
	"idpgo/internal/fobdd"
)

// Bound is one sub-kernel's current three-valued status: Unknown
// until propagation learns it is definitely true or false.
type Bound int

const (
	Unknown Bound = iota
	True
	False
)

// Connector is one node in the propagation dependency graph: either a
// LeafConnector wrapping a single fobdd.Kernel, or an internal
// connector wrapping a Node's boolean combination of its children.
// Scheduler only depends on this interface, never on concrete BDD
// shapes, matching spec §1's "propagate depends only on the BDD
// visitor/algebra contract".
type Connector interface {
	// Bound returns the connector's current three-valued status.
	Bound() Bound
	// SetBound tightens the connector's status, reporting whether the
	// value actually changed (a no-op set must not re-trigger
	// propagation, or the FIFO scheduler would never reach a
	// fixpoint).
	SetBound(Bound) bool
	// Parents lists the connectors that depend on this one (upward
	// propagation targets).
	Parents() []Connector
	// Children lists the connectors this one depends on (downward
	// propagation targets).
	Children() []Connector
	// PropagateUp recomputes this connector's bound from its
	// children's current bounds, returning the new bound.
	PropagateUp() Bound
	// PropagateDown pushes this connector's own bound down onto its
	// children where doing so is sound (e.g. a true conjunction makes
	// every conjunct true).
	PropagateDown()
}

// LeafConnector wraps a single fobdd.AtomKernel, seeding propagation
// from a structure's recorded ct/cf facts (spec §4.3's "leaf
// connectors" read their bound directly off the structure).
type LeafConnector struct {
	Kernel  *fobdd.AtomKernel
	bound   Bound
	parents []Connector
}

func NewLeafConnector(k *fobdd.AtomKernel) *LeafConnector { return &LeafConnector{Kernel: k} }

func (c *LeafConnector) Bound() Bound { return c.bound }
func (c *LeafConnector) SetBound(b Bound) bool {
	if c.bound == b {
		return false
	}
	// A change from True to False or vice versa is a conflicting
	// bound: a correctly-grounded theory never reaches this, but the
	// caller (Propagate in entry.go) treats a root connector resolved
	// to False as the unsatisfiability signal
	// rather than panicking here.
	c.bound = b
	return true
}
func (c *LeafConnector) Parents() []Connector  { return c.parents }
func (c *LeafConnector) Children() []Connector { return nil }
func (c *LeafConnector) PropagateUp() Bound     { return c.bound }
func (c *LeafConnector) PropagateDown()         {}
func (c *LeafConnector) AddParent(p Connector)  { c.parents = append(c.parents, p) }

// BoolConnector wraps a conjunction or disjunction of child
// connectors.
type BoolConnector struct {
	IsConj   bool
	children []Connector
	parents  []Connector
	bound    Bound
}

func NewBoolConnector(isConj bool, children ...Connector) *BoolConnector {
	c := &BoolConnector{IsConj: isConj, children: children}
	for _, ch := range children {
		if lc, ok := ch.(*LeafConnector); ok {
			lc.AddParent(c)
		} else if bc, ok := ch.(*BoolConnector); ok {
			bc.parents = append(bc.parents, c)
		}
	}
	return c
}

func (c *BoolConnector) Bound() Bound { return c.bound }
func (c *BoolConnector) SetBound(b Bound) bool {
	if c.bound == b {
		return false
	}
	c.bound = b
	return true
}
func (c *BoolConnector) Parents() []Connector  { return c.parents }
func (c *BoolConnector) Children() []Connector { return c.children }

func (c *BoolConnector) PropagateUp() Bound {
	allTrue, anyFalse, anyUnknown := true, false, false
	anyTrue, allFalse := false, true
	for _, ch := range c.children {
		switch ch.Bound() {
		case True:
			anyTrue = true
			allFalse = false
		case False:
			anyFalse = true
			allTrue = false
		default:
			anyUnknown = true
			allTrue = false
			allFalse = false
		}
	}
	if c.IsConj {
		if anyFalse {
			return False
		}
		if allTrue {
			return True
		}
		return Unknown
	}
	if anyTrue {
		return True
	}
	if allFalse && !anyUnknown {
		return False
	}
	return Unknown
}

func (c *BoolConnector) PropagateDown() {
	switch {
	case c.IsConj && c.bound == True:
		for _, ch := range c.children {
			ch.SetBound(True)
		}
	case !c.IsConj && c.bound == False:
		for _, ch := range c.children {
			ch.SetBound(False)
		}
	}
}

// Scheduler runs the FIFO fixpoint loop over a set of connectors
// until no connector's bound changes, or until the step budget (spec
// §6's nr_prop_steps / relative_propagation_steps options) is
// exhausted.
type Scheduler struct {
	queue  []Connector
	queued map[Connector]bool
}

// NewScheduler builds a Scheduler seeded with every connector in all.
func NewScheduler(all []Connector) *Scheduler {
	s := &Scheduler{queued: make(map[Connector]bool)}
	for _, c := range all {
		s.enqueue(c)
	}
	return s
}

func (s *Scheduler) enqueue(c Connector) {
	if s.queued[c] {
		return
	}
	s.queued[c] = true
	s.queue = append(s.queue, c)
}

// Run drains the FIFO queue, recomputing each connector's upward
// bound and pushing any change both to its parents (re-enqueued for
// upward recompute) and down to its children (which may themselves
// re-enqueue their own parents). maxSteps <= 0 means unbounded,
// matching spec §6's nr_prop_steps default.
func (s *Scheduler) Run(maxSteps int) (steps int, conflict bool) {
	for len(s.queue) > 0 {
		if maxSteps > 0 && steps >= maxSteps {
			return steps, false
		}
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.queued[c] = false
		steps++

		newBound := c.PropagateUp()
		if newBound == Unknown {
			continue
		}
		if c.SetBound(newBound) {
			c.PropagateDown()
			for _, p := range c.Parents() {
				s.enqueue(p)
			}
			for _, ch := range c.Children() {
				s.enqueue(ch)
			}
		}
	}
	return steps, false
}
