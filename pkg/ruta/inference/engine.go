package inference

import (
	"fmt"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// Firing describes one rule execution, in firing order.
type Firing struct {
	Seq      int
	Rule     string
	Salience int
	Handles  []Handle
}

// Options configures an Engine.
type Options struct {
	// MaxFirings bounds a run; 0 means unlimited.
	MaxFirings int

	// OnFire is called before each action runs.
	OnFire func(Firing)
}

// Engine is a forward-chaining production system with salience-then-recency
// conflict resolution. It keeps the agenda in step with working memory as
// facts are declared, retracted and modified.
type Engine struct {
	mem     *Memory
	rules   []Rule
	agenda  *agenda
	opts    Options
	firings int
	tests   int
	ctx     *Context

	// Patterns by kind, built once so a mutation only visits the rules
	// that can react to it.
	positive map[facts.Kind][]patternRef
	keyedNot map[facts.Kind][]patternRef
	scanNot  map[facts.Kind][]patternRef
}

// patternRef locates a pattern. For a negation joined with KeyOf, seed is
// the position of the positive pattern that binds the key; otherwise -1.
type patternRef struct {
	rule, pat, seed int
}

// New creates an engine with a fixed rule set.
func New(rules []Rule, opts Options) (*Engine, error) {
	e := &Engine{
		mem:      NewMemory(),
		rules:    rules,
		agenda:   newAgenda(rules),
		opts:     opts,
		positive: make(map[facts.Kind][]patternRef),
		keyedNot: make(map[facts.Kind][]patternRef),
		scanNot:  make(map[facts.Kind][]patternRef),
	}

	seen := make(map[string]bool, len(rules))
	for i := range rules {
		r := &rules[i]
		if r.Name == "" || r.Then == nil {
			return nil, fmt.Errorf("rule %d: name and action required: %w", i, internalerr.ErrInvalidInput)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("rule %q: %w", r.Name, internalerr.ErrDuplicate)
		}
		seen[r.Name] = true
		if err := e.compile(i); err != nil {
			return nil, err
		}
	}

	e.ctx = &Context{engine: e}
	e.mem.Subscribe(e)
	return e, nil
}

// compile checks a rule's patterns and files them by kind.
func (e *Engine) compile(ri int) error {
	r := &e.rules[ri]
	if len(r.When) == 0 {
		return fmt.Errorf("rule %q: no patterns: %w", r.Name, internalerr.ErrInvalidInput)
	}
	if r.When[0].Negated {
		return fmt.Errorf("rule %q: first pattern must be positive: %w", r.Name, internalerr.ErrInvalidInput)
	}

	vars := make(map[string]int)
	for pi, p := range r.When {
		ref := patternRef{rule: ri, pat: pi, seed: -1}
		if !p.Negated {
			if _, dup := vars[p.Var]; p.Var == "" || dup {
				return fmt.Errorf("rule %q: pattern variable %q must be unique and non-empty: %w",
					r.Name, p.Var, internalerr.ErrInvalidInput)
			}
			vars[p.Var] = pi
			e.positive[p.Kind] = append(e.positive[p.Kind], ref)
			continue
		}
		if p.Key == nil {
			e.scanNot[p.Kind] = append(e.scanNot[p.Kind], ref)
			continue
		}
		if p.keyOf != "" {
			seed, ok := vars[p.keyOf]
			if !ok {
				return fmt.Errorf("rule %q: negation keyed on unbound variable %q: %w",
					r.Name, p.keyOf, internalerr.ErrInvalidInput)
			}
			ref.seed = seed
		}
		e.keyedNot[p.Kind] = append(e.keyedNot[p.Kind], ref)
	}
	return nil
}

// Memory exposes the working memory, e.g. for observers and inspection.
func (e *Engine) Memory() *Memory { return e.mem }

// Declare adds facts to working memory.
func (e *Engine) Declare(fs ...facts.Fact) error {
	for _, f := range fs {
		if _, err := e.mem.Declare(f); err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the number of activations on the agenda.
func (e *Engine) Pending() int { return e.agenda.len() }

// Firings returns the number of actions executed so far.
func (e *Engine) Firings() int { return e.firings }

// Run fires activations until none remain.
func (e *Engine) Run() error {
	for {
		act, ok := e.agenda.next()
		if !ok {
			return nil
		}
		if e.opts.MaxFirings > 0 && e.firings >= e.opts.MaxFirings {
			return fmt.Errorf("after %d firings: %w", e.firings, internalerr.ErrFiringLimit)
		}

		rule := &e.rules[act.rule]
		e.firings++
		if e.opts.OnFire != nil {
			e.opts.OnFire(Firing{
				Seq:      e.firings,
				Rule:     rule.Name,
				Salience: rule.Salience,
				Handles:  act.binding.Handles(),
			})
		}
		if err := rule.Then(e.ctx, act.binding); err != nil {
			return fmt.Errorf("rule %s: %w", rule.Name, err)
		}
	}
}

// Tests returns the number of pattern tests and identity lookups made so
// far. It grows with the facts touched, not with the size of memory.
func (e *Engine) Tests() int { return e.tests }

// Asserted implements Observer.
func (e *Engine) Asserted(h Handle, f facts.Fact) {
	e.invalidateNegations(f)
	e.activate(h, f)
}

// Retracted implements Observer.
func (e *Engine) Retracted(h Handle, f facts.Fact) {
	e.agenda.dropHandle(h)
	e.rematchNegations(f, false)
}

// Modified implements Observer.
func (e *Engine) Modified(old, new Handle, before, after facts.Fact) {
	e.agenda.dropHandle(old)
	e.rematchNegations(before, true)
	e.invalidateNegations(after)
	e.activate(new, after)
}

// invalidateNegations drops pending activations whose negated patterns
// are now satisfied by f. Keyed negations are found through the guard
// index; only unkeyed ones scan the rule's pending activations.
func (e *Engine) invalidateNegations(f facts.Fact) {
	for _, act := range e.agenda.guardedBy(identity{f.Kind(), f.Key()}) {
		for _, p := range e.rules[act.rule].When {
			if p.Negated && p.Key != nil && p.Kind == f.Kind() && e.accepts(p, f, act.binding) {
				e.agenda.remove(act)
				break
			}
		}
	}
	for _, ref := range e.scanNot[f.Kind()] {
		p := e.rules[ref.rule].When[ref.pat]
		for _, act := range e.agenda.forRule(ref.rule) {
			if e.accepts(p, f, act.binding) {
				e.agenda.remove(act)
			}
		}
	}
}

// rematchNegations schedules bindings that may have become satisfied
// because f went away. A negation joined with KeyOf is rematched from the
// one fact sharing f's key; other negations rematch the whole rule. On
// modify the identity slot is refilled at once, so keyed patterns without
// a test cannot change.
func (e *Engine) rematchNegations(f facts.Fact, modified bool) {
	var full map[int]bool
	rematchAll := func(ri int) {
		if full == nil {
			full = make(map[int]bool)
		}
		if !full[ri] {
			full[ri] = true
			e.match(ri, -1, 0, nil)
		}
	}

	for _, ref := range e.keyedNot[f.Kind()] {
		p := e.rules[ref.rule].When[ref.pat]
		if modified && p.Test == nil {
			continue
		}
		if ref.seed < 0 {
			rematchAll(ref.rule)
			continue
		}
		seed := e.rules[ref.rule].When[ref.seed]
		e.tests++
		if sf, sh, ok := e.mem.Get(seed.Kind, f.Key()); ok {
			e.match(ref.rule, ref.seed, sh, sf)
		}
	}
	for _, ref := range e.scanNot[f.Kind()] {
		rematchAll(ref.rule)
	}
}

// activate adds activations in which f fills a positive pattern.
func (e *Engine) activate(h Handle, f facts.Fact) {
	for _, ref := range e.positive[f.Kind()] {
		e.match(ref.rule, ref.pat, h, f)
	}
}

func (e *Engine) accepts(p Pattern, f facts.Fact, b Binding) bool {
	e.tests++
	return p.accepts(f, b)
}

// match enumerates complete bindings of a rule and schedules them. When
// fixed >= 0 the pattern at that position only accepts the given fact.
func (e *Engine) match(ri, fixed int, fh Handle, ff facts.Fact) {
	r := &e.rules[ri]

	var walk func(i int, b Binding)
	walk = func(i int, b Binding) {
		if i == len(r.When) {
			e.agenda.add(ri, b)
			return
		}
		p := r.When[i]

		if p.Negated {
			if !e.exists(p, b) {
				walk(i+1, b)
			}
			return
		}

		if i == fixed {
			if e.accepts(p, ff, b) {
				walk(i+1, b.with(p.Var, fh, ff))
			}
			return
		}

		e.candidates(p, b, func(h Handle, f facts.Fact) {
			walk(i+1, b.with(p.Var, h, f))
		})
	}
	walk(0, Binding{})
}

// candidates yields the facts accepted by a positive pattern.
func (e *Engine) candidates(p Pattern, b Binding, yield func(Handle, facts.Fact)) {
	e.tests++
	if p.Key != nil {
		f, h, ok := e.mem.Get(p.Kind, p.Key(b))
		if ok && (p.Test == nil || p.Test(f, b)) {
			yield(h, f)
		}
		return
	}

	// Snapshot: yield may not mutate memory, but the slice is shared.
	var hs []Handle
	var fs []facts.Fact
	e.mem.Each(p.Kind, func(h Handle, f facts.Fact) bool {
		e.tests++
		if p.Test == nil || p.Test(f, b) {
			hs = append(hs, h)
			fs = append(fs, f)
		}
		return true
	})
	for i := range hs {
		yield(hs[i], fs[i])
	}
}

// exists reports whether any fact satisfies a negated pattern.
func (e *Engine) exists(p Pattern, b Binding) bool {
	e.tests++
	if p.Key != nil {
		f, _, ok := e.mem.Get(p.Kind, p.Key(b))
		return ok && (p.Test == nil || p.Test(f, b))
	}
	found := false
	e.mem.Each(p.Kind, func(_ Handle, f facts.Fact) bool {
		e.tests++
		if p.Test == nil || p.Test(f, b) {
			found = true
			return false
		}
		return true
	})
	return found
}
