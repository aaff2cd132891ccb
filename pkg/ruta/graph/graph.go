// Package graph is a small in-memory triple store for the road ontology.
package graph

import (
	"fmt"
	"strconv"

	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// TermKind tells IRIs from typed literals.
type TermKind uint8

const (
	KindIRI TermKind = iota
	KindString
	KindFloat
	KindInt
	KindBool
)

var kindNames = [...]string{"iri", "string", "float", "int", "bool"}

func (k TermKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// ParseTermKind is the inverse of TermKind.String.
func ParseTermKind(s string) (TermKind, error) {
	for i, name := range kindNames {
		if name == s {
			return TermKind(i), nil
		}
	}
	return 0, fmt.Errorf("term kind %q: %w", s, internalerr.ErrInvalidInput)
}

// Term is the object of a triple. Literal values are kept in canonical
// string form so terms stay comparable.
type Term struct {
	Kind  TermKind
	Value string
}

func IRI(v string) Term    { return Term{Kind: KindIRI, Value: v} }
func String(v string) Term { return Term{Kind: KindString, Value: v} }
func Float(v float64) Term { return Term{Kind: KindFloat, Value: strconv.FormatFloat(v, 'g', -1, 64)} }
func Int(v int) Term       { return Term{Kind: KindInt, Value: strconv.Itoa(v)} }
func Bool(v bool) Term     { return Term{Kind: KindBool, Value: strconv.FormatBool(v)} }

// AsFloat reads a numeric literal.
func (t Term) AsFloat() (float64, error) {
	if t.Kind != KindFloat && t.Kind != KindInt {
		return 0, t.mismatch("number")
	}
	return strconv.ParseFloat(t.Value, 64)
}

// AsInt reads an integer literal.
func (t Term) AsInt() (int, error) {
	if t.Kind != KindInt {
		return 0, t.mismatch("int")
	}
	return strconv.Atoi(t.Value)
}

// AsBool reads a boolean literal.
func (t Term) AsBool() (bool, error) {
	if t.Kind != KindBool {
		return false, t.mismatch("bool")
	}
	return strconv.ParseBool(t.Value)
}

// AsString reads a string literal.
func (t Term) AsString() (string, error) {
	if t.Kind != KindString {
		return "", t.mismatch("string")
	}
	return t.Value, nil
}

func (t Term) mismatch(want string) error {
	return fmt.Errorf("%s %q is not a %s: %w", t.Kind, t.Value, want, internalerr.ErrInvalidInput)
}

func (t Term) String() string {
	if t.Kind == KindIRI {
		return t.Value
	}
	return strconv.Quote(t.Value) + "^^" + t.Kind.String()
}

// Triple is one statement.
type Triple struct {
	Subject   string
	Predicate string
	Object    Term
}

// Graph is a set of triples that remembers insertion order.
type Graph struct {
	triples   []Triple
	seen      map[Triple]struct{}
	bySubject map[string][]int
	subjects  []string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		seen:      make(map[Triple]struct{}),
		bySubject: make(map[string][]int),
	}
}

// Add inserts a triple and reports whether it was new.
func (g *Graph) Add(subject, predicate string, object Term) bool {
	t := Triple{Subject: subject, Predicate: predicate, Object: object}
	if _, ok := g.seen[t]; ok {
		return false
	}
	g.seen[t] = struct{}{}
	if _, ok := g.bySubject[subject]; !ok {
		g.subjects = append(g.subjects, subject)
	}
	g.bySubject[subject] = append(g.bySubject[subject], len(g.triples))
	g.triples = append(g.triples, t)
	return true
}

// AddAll inserts triples in order.
func (g *Graph) AddAll(ts []Triple) {
	for _, t := range ts {
		g.Add(t.Subject, t.Predicate, t.Object)
	}
}

// Len returns the number of triples.
func (g *Graph) Len() int { return len(g.triples) }

// Triples returns a copy of all triples in insertion order.
func (g *Graph) Triples() []Triple {
	return append([]Triple(nil), g.triples...)
}

// Subjects returns subjects in order of first appearance.
func (g *Graph) Subjects() []string {
	return append([]string(nil), g.subjects...)
}

// About returns the triples of a subject in insertion order.
func (g *Graph) About(subject string) []Triple {
	idx := g.bySubject[subject]
	out := make([]Triple, len(idx))
	for i, j := range idx {
		out[i] = g.triples[j]
	}
	return out
}

// Objects returns the objects of subject's predicate in insertion order.
func (g *Graph) Objects(subject, predicate string) []Term {
	var out []Term
	for _, j := range g.bySubject[subject] {
		if g.triples[j].Predicate == predicate {
			out = append(out, g.triples[j].Object)
		}
	}
	return out
}

// Has reports whether the triple is present.
func (g *Graph) Has(subject, predicate string, object Term) bool {
	_, ok := g.seen[Triple{Subject: subject, Predicate: predicate, Object: object}]
	return ok
}

// SuperClasses returns the transitive rdfs:subClassOf closure of class,
// including class itself.
func (g *Graph) SuperClasses(class string) []string {
	out := []string{class}
	seen := map[string]bool{class: true}
	for i := 0; i < len(out); i++ {
		for _, o := range g.Objects(out[i], SubClassOf) {
			if o.Kind == KindIRI && !seen[o.Value] {
				seen[o.Value] = true
				out = append(out, o.Value)
			}
		}
	}
	return out
}

// List reads the rdf list starting at head.
func (g *Graph) List(head string) ([]Term, error) {
	var out []Term
	seen := make(map[string]bool)
	for cell := head; cell != Nil; {
		if seen[cell] {
			return nil, fmt.Errorf("list %s: cycle at %s: %w", head, cell, internalerr.ErrInvalidInput)
		}
		seen[cell] = true

		first := g.Objects(cell, First)
		rest := g.Objects(cell, Rest)
		if len(first) != 1 || len(rest) != 1 || rest[0].Kind != KindIRI {
			return nil, fmt.Errorf("list %s: malformed cell %s: %w", head, cell, internalerr.ErrInvalidInput)
		}
		out = append(out, first[0])
		cell = rest[0].Value
	}
	return out, nil
}
