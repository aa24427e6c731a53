package ast

// Component is one top-level element of a Theory: either a standalone
// sentence or a Definition block (spec §1's "T is a set of sentences
// and definitions").
type Component interface {
	isComponent()
}

// Sentence is a top-level formula component.
type Sentence struct {
	Formula Formula
}

func (*Sentence) isComponent() {}

// Rule is one if-then-else-free definition rule: Head holds iff Body
// holds, modelled after mangle's ast.Clause (head + premises)
// generalized to a full FO(.) body per SPEC_FULL §3.
type Rule struct {
	Head *Atom
	Body Formula
}

func (r *Rule) String() string {
	if r.Body == nil {
		return r.Head.String() + "."
	}
	return r.Head.String() + " <- " + r.Body.String() + "."
}

// Definition is a named set of Rules sharing a set of defined
// predicates, evaluated together by idpgo/definition's fixpoint
// operator (spec §4.7/§4.9).
type Definition struct {
	ID    int
	Rules []*Rule
}

func (*Definition) isComponent() {}

// DefinedPredicates returns the distinct predicates any rule in d
// derives, in first-seen order.
func (d *Definition) DefinedPredicates() []*Predicate {
	var out []*Predicate
	seen := make(map[*Predicate]bool)
	for _, r := range d.Rules {
		if !seen[r.Head.Pred] {
			seen[r.Head.Pred] = true
			out = append(out, r.Head.Pred)
		}
	}
	return out
}

// Theory is an ordered list of Components over one Vocabulary, the T
// of spec §1.
type Theory struct {
	Name       string
	Vocabulary *Vocabulary
	Components []Component
}

func NewTheory(name string, vocab *Vocabulary) *Theory {
	return &Theory{Name: name, Vocabulary: vocab}
}

func (t *Theory) AddSentence(f Formula) {
	t.Components = append(t.Components, &Sentence{Formula: f})
}

func (t *Theory) AddDefinition(d *Definition) {
	t.Components = append(t.Components, d)
}

// Sentences returns every standalone-sentence component's formula, in
// order, skipping Definitions.
func (t *Theory) Sentences() []Formula {
	var out []Formula
	for _, c := range t.Components {
		if s, ok := c.(*Sentence); ok {
			out = append(out, s.Formula)
		}
	}
	return out
}

// Definitions returns every Definition component, in order.
func (t *Theory) Definitions() []*Definition {
	var out []*Definition
	for _, c := range t.Components {
		if d, ok := c.(*Definition); ok {
			out = append(out, d)
		}
	}
	return out
}
