package inference

import (
	"fmt"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// Context is what a rule action sees of the engine.
type Context struct {
	engine *Engine
}

// Declare adds a fact.
func (c *Context) Declare(f facts.Fact) (Handle, error) {
	return c.engine.mem.Declare(f)
}

// Modify replaces the fact behind h.
func (c *Context) Modify(h Handle, f facts.Fact) (Handle, error) {
	return c.engine.mem.Modify(h, f)
}

// Retract removes the fact behind h.
func (c *Context) Retract(h Handle) error {
	return c.engine.mem.Retract(h)
}

// Get looks a fact up by identity.
func (c *Context) Get(kind facts.Kind, key string) (facts.Fact, Handle, bool) {
	return c.engine.mem.Get(kind, key)
}

// Must looks a fact up by identity and reports a consistency error when it
// is missing. Rule ordering guarantees the facts a rule body dereferences.
func (c *Context) Must(kind facts.Kind, key string) (facts.Fact, Handle, error) {
	f, h, ok := c.engine.mem.Get(kind, key)
	if !ok {
		return nil, 0, fmt.Errorf("%s %q missing: %w", kind, key, internalerr.ErrInconsistent)
	}
	return f, h, nil
}

// RetractKey removes the fact with the given identity if it exists.
func (c *Context) RetractKey(kind facts.Kind, key string) (bool, error) {
	_, h, ok := c.engine.mem.Get(kind, key)
	if !ok {
		return false, nil
	}
	return true, c.engine.mem.Retract(h)
}

// Each iterates the facts of a kind in declaration order.
func (c *Context) Each(kind facts.Kind, fn func(Handle, facts.Fact) bool) {
	c.engine.mem.Each(kind, fn)
}

// Pending returns the number of activations still on the agenda.
func (c *Context) Pending() int {
	return c.engine.agenda.len()
}
