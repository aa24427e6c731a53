// Package lazy implements the lazy grounding manager of spec §4.7: a
// scheduler that defers grounding a sentence until a solver-observed
// event (a newly minted ground literal, or that literal's solver
// value becoming known) satisfies the sentence's delay condition.
//
// Grounded on internal/mangle/differential.go's incremental-recompute
// queue: DifferentialEngine.ApplyDelta enqueues a unit of work per
// newly derived fact and drains the queue to a fixpoint rather than
// re-running the whole evaluation; Manager.NotifyNewLiteral/
// NotifyBecameTrue play the same role here, one dispatch per observed
// solver event instead of a full re-ground.
package lazy

import (
	"sync"

	"github.com/google/uuid"

	iast "idpgo/internal/ast"
	"idpgo/internal/ecnf"
	"idpgo/internal/logging"
)

// Watch is one (predicate, watched-value) pair a Delay is pending on
// — spec §4.7's ContainerAtom, minus the per-argument container slot
// machinery of FormulaUtils::findDelay's full meta-optimisation, which
// SPEC_FULL scopes out in favor of the simpler "wildcard or exact
// constant" argument pattern below.
type Watch struct {
	Pred  *iast.Predicate
	Args  []*iast.DomainElement // nil at index i means wildcard
	Wants bool                  // the watched truth value this delay fires on
}

func (w Watch) matches(args []iast.DomainElement, becameTrue bool) bool {
	if w.Wants != becameTrue {
		return false
	}
	if len(args) != len(w.Args) {
		return false
	}
	for i, want := range w.Args {
		if want == nil {
			continue // wildcard slot
		}
		if want.String() != args[i].String() {
			return false
		}
	}
	return true
}

// Delay is one pending grounder, registered against a conjunction of
// Watches. Ground is invoked once every watch has fired (spec §4.7's
// "the grounder is re-instantiated with the captured container
// bindings").
type Delay struct {
	ID      uuid.UUID
	Watches []Watch
	fired   map[int]bool
	Ground  func() error
}

func newDelay(watches []Watch, ground func() error) *Delay {
	return &Delay{ID: uuid.New(), Watches: watches, fired: make(map[int]bool), Ground: ground}
}

func (d *Delay) satisfied() bool {
	for i := range d.Watches {
		if !d.fired[i] {
			return false
		}
	}
	return true
}

// Manager owns the queues of spec §4.7: pending grounders not yet
// triggered, and the FIFO of grounders ready to run now. A single
// Manager serves one inference call.
type Manager struct {
	mu sync.Mutex

	pending     map[uuid.UUID]*Delay
	byPredicate map[*iast.Predicate][]*Delay
	toGround    []*Delay

	seenLits map[uuid.UUID]map[ecnf.Literal]bool
}

func NewManager() *Manager {
	return &Manager{
		pending:     make(map[uuid.UUID]*Delay),
		byPredicate: make(map[*iast.Predicate][]*Delay),
		toGround:    nil,
		seenLits:    make(map[uuid.UUID]map[ecnf.Literal]bool),
	}
}

// Delay registers ground to run once every watch in watches has
// fired, returning the Delay's id for diagnostics.
func (m *Manager) Delay(watches []Watch, ground func() error) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := newDelay(watches, ground)
	m.pending[d.ID] = d
	for _, w := range watches {
		m.byPredicate[w.Pred] = append(m.byPredicate[w.Pred], d)
	}
	lazyLog.Debugw("registered delay", "id", d.ID, "watches", len(watches))
	return d.ID
}

// NotifyNewLiteral is the GroundTranslator callback of spec §4.7:
// whenever a fresh ground atom is minted for pred(args), every
// pending delay whose watch matches is checked off, enqueuing its
// grounder once all of its watches have fired. lit deduplicates
// repeated notifications for the same (delay, lit) pair.
func (m *Manager) NotifyNewLiteral(pred *iast.Predicate, args []iast.DomainElement, lit ecnf.Literal, becameTrue bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byPredicate[pred] {
		seen := m.seenLits[d.ID]
		if seen == nil {
			seen = make(map[ecnf.Literal]bool)
			m.seenLits[d.ID] = seen
		}
		if seen[lit] {
			continue
		}
		for i, w := range d.Watches {
			if w.Pred == pred && w.matches(args, becameTrue) {
				seen[lit] = true
				d.fired[i] = true
			}
		}
		if d.satisfied() {
			delete(m.pending, d.ID)
			m.toGround = append(m.toGround, d)
		}
	}
}

// NotifyBecameTrue is the solver-value-notification path of spec
// §4.7: a literal's truth value decided during search is translated
// into the same NotifyNewLiteral dispatch lazy-Tseitin/lazy-atom
// adapters use.
func (m *Manager) NotifyBecameTrue(pred *iast.Predicate, args []iast.DomainElement, lit ecnf.Literal) {
	m.NotifyNewLiteral(pred, args, lit, true)
}

// Drain runs every delay whose watches have all fired, in FIFO order,
// until none remain ready. Grounding a delay may itself register new
// delays or fire new notifications, so Drain keeps going until the
// queue is empty rather than taking one fixed pass.
func (m *Manager) Drain() error {
	for {
		m.mu.Lock()
		if len(m.toGround) == 0 {
			m.mu.Unlock()
			return nil
		}
		d := m.toGround[0]
		m.toGround = m.toGround[1:]
		m.mu.Unlock()

		if err := d.Ground(); err != nil {
			return err
		}
	}
}

// Pending reports how many delays are still waiting on at least one
// unfired watch, for diagnostics and the termination test of spec
// §8's scenario 6.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

var lazyLog = logging.For(logging.LayerLazy)
