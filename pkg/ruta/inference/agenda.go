package inference

import (
	"container/heap"
	"strconv"
	"strings"
)

// Activation is a rule whose conditions hold for a binding.
type Activation struct {
	rule    int
	binding Binding
	key     string
	recency Handle     // newest matched fact
	guards  []identity // identities whose assertion would block it
	seq     uint64     // creation order
	index   int        // heap position, -1 once removed
}

func activationKey(rule int, b Binding) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(rule))
	sb.WriteByte(':')
	for i, e := range b.entries {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(e.handle), 10))
	}
	return sb.String()
}

// agenda orders pending activations by salience, then recency, then LIFO.
type agenda struct {
	rules    []Rule
	queue    activationQueue
	pending  map[string]*Activation
	byHandle map[Handle]map[string]*Activation
	byRule   map[int]map[string]*Activation
	byGuard  map[identity]map[string]*Activation
	fired    map[string]struct{}
	seq      uint64
}

func newAgenda(rules []Rule) *agenda {
	a := &agenda{
		rules:    rules,
		pending:  make(map[string]*Activation),
		byHandle: make(map[Handle]map[string]*Activation),
		byRule:   make(map[int]map[string]*Activation),
		byGuard:  make(map[identity]map[string]*Activation),
		fired:    make(map[string]struct{}),
	}
	a.queue.rules = rules
	return a
}

// add schedules an activation unless it is already pending or has fired.
func (a *agenda) add(rule int, b Binding) {
	key := activationKey(rule, b)
	if _, ok := a.pending[key]; ok {
		return
	}
	if _, ok := a.fired[key]; ok {
		return
	}

	a.seq++
	act := &Activation{rule: rule, binding: b, key: key, seq: a.seq}
	for _, e := range b.entries {
		if e.handle > act.recency {
			act.recency = e.handle
		}
		index(a.byHandle, e.handle, act)
	}
	for _, p := range a.rules[rule].When {
		if p.Negated && p.Key != nil {
			id := identity{p.Kind, p.Key(b)}
			act.guards = append(act.guards, id)
			index(a.byGuard, id, act)
		}
	}
	if a.byRule[rule] == nil {
		a.byRule[rule] = make(map[string]*Activation)
	}
	a.byRule[rule][key] = act
	a.pending[key] = act
	heap.Push(&a.queue, act)
}

// remove drops a pending activation.
func (a *agenda) remove(act *Activation) {
	if _, ok := a.pending[act.key]; !ok {
		return
	}
	delete(a.pending, act.key)
	delete(a.byRule[act.rule], act.key)
	for _, e := range act.binding.entries {
		unindex(a.byHandle, e.handle, act)
	}
	for _, id := range act.guards {
		unindex(a.byGuard, id, act)
	}
	if act.index >= 0 {
		heap.Remove(&a.queue, act.index)
	}
}

func index[K comparable](m map[K]map[string]*Activation, k K, act *Activation) {
	set := m[k]
	if set == nil {
		set = make(map[string]*Activation)
		m[k] = set
	}
	set[act.key] = act
}

func unindex[K comparable](m map[K]map[string]*Activation, k K, act *Activation) {
	if set := m[k]; set != nil {
		delete(set, act.key)
		if len(set) == 0 {
			delete(m, k)
		}
	}
}

func snapshot(set map[string]*Activation) []*Activation {
	out := make([]*Activation, 0, len(set))
	for _, act := range set {
		out = append(out, act)
	}
	return out
}

// dropHandle removes every pending activation that matched h.
func (a *agenda) dropHandle(h Handle) {
	for _, act := range snapshot(a.byHandle[h]) {
		a.remove(act)
	}
}

// guardedBy returns the pending activations with a keyed negation on id.
func (a *agenda) guardedBy(id identity) []*Activation {
	return snapshot(a.byGuard[id])
}

// forRule returns the pending activations of a rule.
func (a *agenda) forRule(rule int) []*Activation {
	return snapshot(a.byRule[rule])
}

// next pops the highest-priority activation and marks it fired.
func (a *agenda) next() (*Activation, bool) {
	if a.queue.Len() == 0 {
		return nil, false
	}
	act := heap.Pop(&a.queue).(*Activation)
	a.remove(act)
	a.fired[act.key] = struct{}{}
	return act, true
}

func (a *agenda) len() int {
	return a.queue.Len()
}

type activationQueue struct {
	rules []Rule
	items []*Activation
}

func (q activationQueue) Len() int { return len(q.items) }

func (q activationQueue) Less(i, j int) bool {
	x, y := q.items[i], q.items[j]
	sx, sy := q.rules[x.rule].Salience, q.rules[y.rule].Salience
	if sx != sy {
		return sx > sy
	}
	if x.recency != y.recency {
		return x.recency > y.recency
	}
	return x.seq > y.seq
}

func (q activationQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *activationQueue) Push(x interface{}) {
	act := x.(*Activation)
	act.index = len(q.items)
	q.items = append(q.items, act)
}

func (q *activationQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	act := old[n-1]
	old[n-1] = nil
	act.index = -1
	q.items = old[:n-1]
	return act
}
