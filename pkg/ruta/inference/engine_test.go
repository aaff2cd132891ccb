package inference

import (
	"errors"
	"strconv"
	"testing"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

const (
	kindItem facts.Kind = "item"
	kindMark facts.Kind = "mark"
)

type item struct {
	name string
	n    int
}

func (i item) Kind() facts.Kind { return kindItem }
func (i item) Key() string      { return i.name }

type mark struct{ name string }

func (m mark) Kind() facts.Kind { return kindMark }
func (m mark) Key() string      { return m.name }

func itemName(b Binding) string { return As[item](b, "i").name }

func firedRules(t *testing.T, rules []Rule, setup func(e *Engine)) []string {
	t.Helper()
	var fired []string
	e, err := New(rules, Options{OnFire: func(f Firing) { fired = append(fired, f.Rule) }})
	if err != nil {
		t.Fatal(err)
	}
	setup(e)
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	return fired
}

func noop(*Context, Binding) error { return nil }

func TestEngine_SalienceOrder(t *testing.T) {
	rules := []Rule{
		{Name: "low", Salience: 1, When: []Pattern{Match(kindItem, "i")}, Then: noop},
		{Name: "high", Salience: 10, When: []Pattern{Match(kindItem, "i")}, Then: noop},
		{Name: "mid", Salience: 5, When: []Pattern{Match(kindItem, "i")}, Then: noop},
	}
	fired := firedRules(t, rules, func(e *Engine) {
		e.Declare(item{name: "a"})
	})

	want := []string{"high", "mid", "low"}
	if len(fired) != 3 {
		t.Fatalf("fired %v", fired)
	}
	for i := range want {
		if fired[i] != want[i] {
			t.Errorf("firing %d = %s, want %s", i, fired[i], want[i])
		}
	}
}

func TestEngine_RecencyBreaksTies(t *testing.T) {
	var order []string
	rules := []Rule{{
		Name: "visit", When: []Pattern{Match(kindItem, "i")},
		Then: func(ctx *Context, b Binding) error {
			order = append(order, itemName(b))
			return nil
		},
	}}
	firedRules(t, rules, func(e *Engine) {
		e.Declare(item{name: "first"}, item{name: "second"}, item{name: "third"})
	})

	want := []string{"third", "second", "first"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestEngine_NegationGuardsFiresOnce(t *testing.T) {
	count := 0
	rules := []Rule{{
		Name: "mark-once",
		When: []Pattern{
			Match(kindItem, "i"),
			Not(kindMark).Keyed(itemName),
		},
		Then: func(ctx *Context, b Binding) error {
			count++
			_, err := ctx.Declare(mark{name: itemName(b)})
			return err
		},
	}}
	firedRules(t, rules, func(e *Engine) {
		e.Declare(item{name: "a"}, item{name: "b"}, mark{name: "c"}, item{name: "c"})
	})
	if count != 2 {
		t.Errorf("expected 2 firings (c already marked), got %d", count)
	}
}

func TestEngine_NegationBecomingTrueActivates(t *testing.T) {
	var fired []string
	rules := []Rule{
		{
			Name: "unblock", Salience: 10,
			When: []Pattern{Match(kindMark, "m")},
			Then: func(ctx *Context, b Binding) error {
				fired = append(fired, "unblock")
				return ctx.Retract(b.Handle("m"))
			},
		},
		{
			Name: "work",
			When: []Pattern{Match(kindItem, "i"), Not(kindMark).Keyed(itemName)},
			Then: func(ctx *Context, b Binding) error {
				fired = append(fired, "work:"+itemName(b))
				return nil
			},
		},
	}
	firedRules(t, rules, func(e *Engine) {
		e.Declare(mark{name: "a"}, item{name: "a"})
	})
	if len(fired) != 2 || fired[0] != "unblock" || fired[1] != "work:a" {
		t.Errorf("fired = %v", fired)
	}
}

func TestEngine_RetractInvalidatesPendingActivations(t *testing.T) {
	var fired []string
	rules := []Rule{
		{
			Name: "remove-b", Salience: 10,
			When: []Pattern{Match(kindItem, "i").Where(func(f facts.Fact, _ Binding) bool {
				return f.Key() == "b"
			})},
			Then: func(ctx *Context, b Binding) error {
				fired = append(fired, "remove-b")
				return ctx.Retract(b.Handle("i"))
			},
		},
		{
			Name: "use", When: []Pattern{Match(kindItem, "i")},
			Then: func(ctx *Context, b Binding) error {
				fired = append(fired, "use:"+itemName(b))
				return nil
			},
		},
	}
	firedRules(t, rules, func(e *Engine) {
		e.Declare(item{name: "a"}, item{name: "b"})
	})

	for _, f := range fired {
		if f == "use:b" {
			t.Fatalf("activation on retracted fact fired: %v", fired)
		}
	}
	if len(fired) != 2 {
		t.Errorf("fired = %v", fired)
	}
}

func TestEngine_ModifyReactivatesUntilGuarded(t *testing.T) {
	rules := []Rule{{
		Name: "count-to-three",
		When: []Pattern{Match(kindItem, "i").Where(func(f facts.Fact, _ Binding) bool {
			return f.(item).n < 3
		})},
		Then: func(ctx *Context, b Binding) error {
			it := As[item](b, "i")
			it.n++
			_, err := ctx.Modify(b.Handle("i"), it)
			return err
		},
	}}

	e, err := New(rules, Options{})
	if err != nil {
		t.Fatal(err)
	}
	e.Declare(item{name: "x"})
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	f, _, _ := e.Memory().Get(kindItem, "x")
	if f.(item).n != 3 {
		t.Errorf("n = %d, want 3", f.(item).n)
	}
	if e.Firings() != 3 {
		t.Errorf("firings = %d, want 3", e.Firings())
	}
}

func TestEngine_JoinOnKey(t *testing.T) {
	var pairs []string
	rules := []Rule{{
		Name: "pair",
		When: []Pattern{
			Match(kindItem, "i"),
			Match(kindMark, "m").Keyed(itemName),
		},
		Then: func(ctx *Context, b Binding) error {
			pairs = append(pairs, itemName(b)+"/"+As[mark](b, "m").name)
			return nil
		},
	}}
	firedRules(t, rules, func(e *Engine) {
		e.Declare(item{name: "a"}, item{name: "b"}, mark{name: "b"}, mark{name: "z"})
	})
	if len(pairs) != 1 || pairs[0] != "b/b" {
		t.Errorf("pairs = %v", pairs)
	}
}

func TestEngine_ActionErrorAbortsRun(t *testing.T) {
	rules := []Rule{{
		Name: "broken", When: []Pattern{Match(kindItem, "i")},
		Then: func(ctx *Context, b Binding) error {
			_, _, err := ctx.Must(facts.KindWay, "missing")
			return err
		},
	}}
	e, _ := New(rules, Options{})
	e.Declare(item{name: "a"})
	err := e.Run()
	if !errors.Is(err, internalerr.ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestEngine_FiringLimit(t *testing.T) {
	rules := []Rule{{
		Name: "spin", When: []Pattern{Match(kindItem, "i")},
		Then: func(ctx *Context, b Binding) error {
			it := As[item](b, "i")
			it.n++
			_, err := ctx.Modify(b.Handle("i"), it)
			return err
		},
	}}
	e, _ := New(rules, Options{MaxFirings: 10})
	e.Declare(item{name: "a"})
	if err := e.Run(); !errors.Is(err, internalerr.ErrFiringLimit) {
		t.Fatalf("expected ErrFiringLimit, got %v", err)
	}
}

func TestNew_RejectsBadRules(t *testing.T) {
	bad := [][]Rule{
		{{Name: "", When: []Pattern{Match(kindItem, "i")}, Then: noop}},
		{{Name: "x", When: []Pattern{Not(kindItem)}, Then: noop}},
		{{Name: "x", When: []Pattern{Match(kindItem, "i"), Match(kindMark, "i")}, Then: noop}},
		{{Name: "x", When: []Pattern{Match(kindItem, "i"), Not(kindMark).KeyOf("m")}, Then: noop}},
		{
			{Name: "dup", When: []Pattern{Match(kindItem, "i")}, Then: noop},
			{Name: "dup", When: []Pattern{Match(kindItem, "i")}, Then: noop},
		},
	}
	for i, rules := range bad {
		if _, err := New(rules, Options{}); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestEngine_KeyOfRematchesRetractedKey(t *testing.T) {
	var fired []string
	rules := []Rule{
		{
			Name: "unblock", Salience: 10,
			When: []Pattern{Match(kindMark, "m").Where(func(f facts.Fact, _ Binding) bool {
				return f.Key() == "a"
			})},
			Then: func(ctx *Context, b Binding) error {
				return ctx.Retract(b.Handle("m"))
			},
		},
		{
			Name: "work",
			When: []Pattern{Match(kindItem, "i"), Not(kindMark).KeyOf("i")},
			Then: func(ctx *Context, b Binding) error {
				fired = append(fired, itemName(b))
				return nil
			},
		},
	}
	firedRules(t, rules, func(e *Engine) {
		e.Declare(mark{name: "a"}, mark{name: "b"}, item{name: "a"}, item{name: "b"}, item{name: "c"})
	})
	if len(fired) != 2 || fired[0] != "c" || fired[1] != "a" {
		t.Errorf("fired = %v, want [c a]", fired)
	}
}

// guarded declares n items behind a keyed negation and returns the engine
// before running it.
func guarded(t *testing.T, n int) *Engine {
	t.Helper()
	e, err := New([]Rule{{
		Name: "work",
		When: []Pattern{Match(kindItem, "i"), Not(kindMark).KeyOf("i")},
		Then: noop,
	}}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < n; i++ {
		if err := e.Declare(item{name: strconv.Itoa(i)}); err != nil {
			t.Fatal(err)
		}
	}
	return e
}

func TestEngine_NegationUpdatesTouchOneKey(t *testing.T) {
	const n = 1000
	e := guarded(t, n)
	if e.Pending() != n {
		t.Fatalf("pending = %d, want %d", e.Pending(), n)
	}

	before := e.Tests()
	h, err := e.Memory().Declare(mark{name: "7"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Pending() != n-1 {
		t.Errorf("after mark: pending = %d, want %d", e.Pending(), n-1)
	}
	if d := e.Tests() - before; d > 4 {
		t.Errorf("declaring one guard made %d pattern tests", d)
	}

	before = e.Tests()
	if err := e.Memory().Retract(h); err != nil {
		t.Fatal(err)
	}
	if e.Pending() != n {
		t.Errorf("after retract: pending = %d, want %d", e.Pending(), n)
	}
	if d := e.Tests() - before; d > 4 {
		t.Errorf("retracting one guard made %d pattern tests", d)
	}
}
