package inference

import (
	"fmt"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// Handle identifies one version of a fact. Handles increase monotonically
// and are never reused, so a larger handle is a more recent fact.
type Handle uint64

// Observer receives working-memory changes synchronously.
type Observer interface {
	Asserted(h Handle, f facts.Fact)
	Retracted(h Handle, f facts.Fact)
	Modified(old, new Handle, before, after facts.Fact)
}

type identity struct {
	kind facts.Kind
	key  string
}

// Memory is the working memory of the engine: an arena of fact versions
// with an identity index per kind.
type Memory struct {
	nextHandle Handle
	facts      map[Handle]facts.Fact
	index      map[identity]Handle
	byKind     map[facts.Kind][]Handle // ascending, may hold retracted handles
	dead       map[facts.Kind]int      // retracted handles still in byKind
	observers  []Observer
}

// NewMemory creates an empty working memory.
func NewMemory() *Memory {
	return &Memory{
		nextHandle: 1,
		facts:      make(map[Handle]facts.Fact),
		index:      make(map[identity]Handle),
		byKind:     make(map[facts.Kind][]Handle),
		dead:       make(map[facts.Kind]int),
	}
}

// Subscribe registers an observer. Observers are notified in
// subscription order.
func (m *Memory) Subscribe(o Observer) {
	m.observers = append(m.observers, o)
}

// Declare adds a fact and returns its handle.
func (m *Memory) Declare(f facts.Fact) (Handle, error) {
	if err := facts.Validate(f); err != nil {
		return 0, err
	}
	id := identity{f.Kind(), f.Key()}
	if _, exists := m.index[id]; exists {
		return 0, fmt.Errorf("declare %s %q: %w", id.kind, id.key, internalerr.ErrDuplicate)
	}

	h := m.insert(id, f)
	for _, o := range m.observers {
		o.Asserted(h, f)
	}
	return h, nil
}

// Retract removes the fact with the given handle.
func (m *Memory) Retract(h Handle) error {
	f, ok := m.facts[h]
	if !ok {
		return fmt.Errorf("retract %d: %w", h, internalerr.ErrStaleHandle)
	}

	m.remove(h, f)
	for _, o := range m.observers {
		o.Retracted(h, f)
	}
	return nil
}

// Modify replaces the fact behind h with f and returns the new handle.
// The replacement must keep the same kind and key; h becomes stale.
func (m *Memory) Modify(h Handle, f facts.Fact) (Handle, error) {
	before, ok := m.facts[h]
	if !ok {
		return 0, fmt.Errorf("modify %d: %w", h, internalerr.ErrStaleHandle)
	}
	if err := facts.Validate(f); err != nil {
		return 0, err
	}
	if before.Kind() != f.Kind() || before.Key() != f.Key() {
		return 0, fmt.Errorf("modify %s %q -> %s %q: %w",
			before.Kind(), before.Key(), f.Kind(), f.Key(), internalerr.ErrIdentityChanged)
	}

	m.remove(h, before)
	nh := m.insert(identity{f.Kind(), f.Key()}, f)
	for _, o := range m.observers {
		o.Modified(h, nh, before, f)
	}
	return nh, nil
}

// Get returns the current version of the fact with the given identity.
func (m *Memory) Get(kind facts.Kind, key string) (facts.Fact, Handle, bool) {
	h, ok := m.index[identity{kind, key}]
	if !ok {
		return nil, 0, false
	}
	return m.facts[h], h, true
}

// Fact returns the fact behind a handle, if it is still current.
func (m *Memory) Fact(h Handle) (facts.Fact, bool) {
	f, ok := m.facts[h]
	return f, ok
}

// Each calls fn for every fact of a kind in declaration order.
// Iteration stops when fn returns false. fn must not mutate the memory.
func (m *Memory) Each(kind facts.Kind, fn func(Handle, facts.Fact) bool) {
	for _, h := range m.byKind[kind] {
		f, ok := m.facts[h]
		if !ok {
			continue
		}
		if !fn(h, f) {
			return
		}
	}
}

// Len returns the number of facts of a kind.
func (m *Memory) Len(kind facts.Kind) int {
	return len(m.byKind[kind]) - m.dead[kind]
}

// Size returns the total number of facts.
func (m *Memory) Size() int {
	return len(m.facts)
}

func (m *Memory) insert(id identity, f facts.Fact) Handle {
	h := m.nextHandle
	m.nextHandle++
	m.facts[h] = f
	m.index[id] = h
	m.byKind[id.kind] = append(m.byKind[id.kind], h)
	return h
}

// remove leaves h in byKind as a tombstone and compacts the list once
// tombstones outnumber live handles.
func (m *Memory) remove(h Handle, f facts.Fact) {
	delete(m.facts, h)
	delete(m.index, identity{f.Kind(), f.Key()})

	kind := f.Kind()
	m.dead[kind]++
	list := m.byKind[kind]
	if 2*m.dead[kind] <= len(list) {
		return
	}
	live := list[:0]
	for _, x := range list {
		if _, ok := m.facts[x]; ok {
			live = append(live, x)
		}
	}
	clear(list[len(live):])
	m.byKind[kind] = live
	m.dead[kind] = 0
}
