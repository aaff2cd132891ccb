package inference

import (
	"github.com/cognicore/ruta/pkg/ruta/facts"
)

// Pattern is one condition of a rule.
//
// A positive pattern binds a fact of Kind to Var. A negated pattern holds
// while no fact of Kind satisfies it. When Key is set the candidate is found
// through the identity index (an O(1) join on previously bound facts);
// otherwise every fact of the kind is scanned in declaration order.
type Pattern struct {
	Kind    facts.Kind
	Var     string
	Negated bool

	// Key computes the identity the fact must have, from earlier bindings.
	Key func(b Binding) string

	// keyOf names the bound variable whose identity Key returns. It lets the
	// engine go from a retracted key back to the bindings it unblocks.
	keyOf string

	// Test filters candidates. It may read earlier bindings.
	Test func(f facts.Fact, b Binding) bool
}

// Match binds a fact of kind to name.
func Match(kind facts.Kind, name string) Pattern {
	return Pattern{Kind: kind, Var: name}
}

// Not holds while no fact of kind satisfies the pattern.
func Not(kind facts.Kind) Pattern {
	return Pattern{Kind: kind, Negated: true}
}

// Keyed joins the pattern on the identity index.
func (p Pattern) Keyed(key func(b Binding) string) Pattern {
	p.Key = key
	p.keyOf = ""
	return p
}

// KeyOf joins the pattern on the identity of the fact bound to name.
// Negations keyed this way are rematched for one binding, not the whole rule,
// when a matching fact is retracted.
func (p Pattern) KeyOf(name string) Pattern {
	p.Key = func(b Binding) string { return b.Fact(name).Key() }
	p.keyOf = name
	return p
}

// Where adds a test to the pattern.
func (p Pattern) Where(test func(f facts.Fact, b Binding) bool) Pattern {
	p.Test = test
	return p
}

func (p Pattern) accepts(f facts.Fact, b Binding) bool {
	if p.Key != nil && f.Key() != p.Key(b) {
		return false
	}
	return p.Test == nil || p.Test(f, b)
}

// Action is the right-hand side of a rule.
type Action func(ctx *Context, b Binding) error

// Rule is a production: when all patterns hold, the action may fire.
// Negated patterns must come after the positive patterns they reference.
type Rule struct {
	Name     string
	Salience int
	When     []Pattern
	Then     Action
}

type bound struct {
	name   string
	handle Handle
	fact   facts.Fact
}

// Binding maps pattern variables to the facts they matched.
type Binding struct {
	entries []bound
}

// Fact returns the fact bound to name.
func (b Binding) Fact(name string) facts.Fact {
	for _, e := range b.entries {
		if e.name == name {
			return e.fact
		}
	}
	return nil
}

// Handle returns the handle bound to name.
func (b Binding) Handle(name string) Handle {
	for _, e := range b.entries {
		if e.name == name {
			return e.handle
		}
	}
	return 0
}

// Handles returns the matched handles in pattern order.
func (b Binding) Handles() []Handle {
	out := make([]Handle, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.handle
	}
	return out
}

func (b Binding) with(name string, h Handle, f facts.Fact) Binding {
	entries := make([]bound, len(b.entries), len(b.entries)+1)
	copy(entries, b.entries)
	return Binding{entries: append(entries, bound{name: name, handle: h, fact: f})}
}

// As returns the fact bound to name as a concrete fact type.
// It panics when the binding does not hold a T, which is a rule authoring bug.
func As[T facts.Fact](b Binding, name string) T {
	return b.Fact(name).(T)
}
