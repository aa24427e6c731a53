package ast

import "fmt"

// Vocabulary is the single owner of the canonical Sort, Predicate and
// Function values named in a theory: spec §3 requires looking up a
// symbol by name to always yield the same value, so fobdd's
// hash-consing and propagate's CT/CF/PT/PF bookkeeping can compare
// symbols by pointer identity.
type Vocabulary struct {
	Name string

	sorts      map[string]*Sort
	predicates map[string]*Predicate
	functions  map[string]*Function
}

// NewVocabulary builds an empty vocabulary, pre-seeded with the
// built-in sorts int/float/string.
func NewVocabulary(name string) *Vocabulary {
	v := &Vocabulary{
		Name:       name,
		sorts:      make(map[string]*Sort),
		predicates: make(map[string]*Predicate),
		functions:  make(map[string]*Function),
	}
	for _, s := range []*Sort{SortInt, SortFloat, SortString} {
		v.sorts[s.Name] = s
	}
	return v
}

// AddSort registers s under its Name, rejecting a redeclaration under
// a different *Sort value (spec §3's "declared exactly once").
func (v *Vocabulary) AddSort(s *Sort) error {
	if existing, ok := v.sorts[s.Name]; ok && existing != s {
		return fmt.Errorf("ast: sort %q already declared in vocabulary %q", s.Name, v.Name)
	}
	v.sorts[s.Name] = s
	return nil
}

// Sort looks up a previously-added sort by name.
func (v *Vocabulary) Sort(name string) (*Sort, bool) {
	s, ok := v.sorts[name]
	return s, ok
}

// AddPredicate registers p under its Name.
func (v *Vocabulary) AddPredicate(p *Predicate) error {
	if existing, ok := v.predicates[p.Name]; ok && existing != p {
		return fmt.Errorf("ast: predicate %q already declared in vocabulary %q", p.Name, v.Name)
	}
	v.predicates[p.Name] = p
	return nil
}

// Predicate looks up a previously-added predicate by name.
func (v *Vocabulary) Predicate(name string) (*Predicate, bool) {
	p, ok := v.predicates[name]
	return p, ok
}

// AddFunction registers f under its Name.
func (v *Vocabulary) AddFunction(f *Function) error {
	if existing, ok := v.functions[f.Name]; ok && existing != f {
		return fmt.Errorf("ast: function %q already declared in vocabulary %q", f.Name, v.Name)
	}
	v.functions[f.Name] = f
	return nil
}

// Function looks up a previously-added function by name.
func (v *Vocabulary) Function(name string) (*Function, bool) {
	f, ok := v.functions[name]
	return f, ok
}

// Predicates returns every declared predicate, in no particular order.
func (v *Vocabulary) Predicates() []*Predicate {
	out := make([]*Predicate, 0, len(v.predicates))
	for _, p := range v.predicates {
		out = append(out, p)
	}
	return out
}

// Functions returns every declared function, in no particular order.
func (v *Vocabulary) Functions() []*Function {
	out := make([]*Function, 0, len(v.functions))
	for _, f := range v.functions {
		out = append(out, f)
	}
	return out
}

func (v *Vocabulary) String() string { return fmt.Sprintf("vocabulary(%s)", v.Name) }
