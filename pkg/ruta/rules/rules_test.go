package rules

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/fuzzy"
	"github.com/cognicore/ruta/pkg/ruta/inference"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

type fixedFlow facts.FlowLevel

func (f fixedFlow) Evaluate(_, _, _ float64) facts.FlowLevel { return facts.FlowLevel(f) }

func landmark(name string, reaches ...string) facts.Node {
	return facts.Node{Type: facts.NodeLandmark, Name: name, Reaches: reaches}
}

func intersection(id string, ways ...string) facts.Node {
	return facts.Node{ID: id, Type: facts.NodeIntersection, Ways: ways}
}

func way(name string, km, speed float64) facts.Way {
	return facts.Way{Name: name, Category: facts.CategoryStreet, Length: km, AvgSpeed: speed}
}

func route(id int, ways []string, inters ...string) facts.Route {
	return facts.Route{
		ID:            id,
		Ways:          ways,
		Intersections: inters,
		Origin:        inters[0],
		Destination:   inters[len(inters)-1],
	}
}

// network: Home reaches 1, Work reaches 3.
//
//	route 1: 1 -A-> 2 -B-> 3
//	route 2: 1 -C-> 3
//	route 3: 4 -D-> 3 (does not start at Home)
func network() []facts.Fact {
	return []facts.Fact{
		landmark("Home", "1"),
		landmark("Work", "3"),
		intersection("1", "A", "C"),
		intersection("2", "A", "B"),
		intersection("3", "B", "C", "D"),
		intersection("4", "D"),
		way("A", 10, 50),
		way("B", 5, 50),
		way("C", 10, 40),
		way("D", 2, 50),
		route(1, []string{"A", "B"}, "1", "2", "3"),
		route(2, []string{"C"}, "1", "3"),
		route(3, []string{"D"}, "4", "3"),
		facts.Goal{From: "Home", To: "Work"},
	}
}

type run struct {
	set     *Set
	engine  *inference.Engine
	firings []inference.Firing
}

func runRules(t *testing.T, eval FlowEvaluator, seed uint64, fs []facts.Fact) *run {
	t.Helper()
	s, err := New(DefaultConfig(), eval, seed)
	if err != nil {
		t.Fatal(err)
	}
	r := &run{set: s}
	e, err := s.Install(inference.Options{
		MaxFirings: FiringBudget(len(fs)),
		OnFire:     func(f inference.Firing) { r.firings = append(r.firings, f) },
	})
	if err != nil {
		t.Fatal(err)
	}
	r.engine = e
	if err := e.Declare(fs...); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	return r
}

func (r *run) has(kind facts.Kind, key string) bool {
	_, _, ok := r.engine.Memory().Get(kind, key)
	return ok
}

func (r *run) count(rule string) int {
	n := 0
	for _, f := range r.firings {
		if f.Rule == rule {
			n++
		}
	}
	return n
}

func TestTotalClosureCascade(t *testing.T) {
	fs := append(network(), facts.Event{Type: "obra", Way: "A", TotalClosure: true})
	r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, fs)

	if r.has(facts.KindWay, "A") {
		t.Error("closed way A survived")
	}
	for _, k := range []facts.Kind{facts.KindFlow, facts.KindWayTime} {
		if r.has(k, "A") {
			t.Errorf("%s of closed way A survived", k)
		}
	}
	if r.has(facts.KindRoute, "1") {
		t.Error("route 1 through A survived")
	}
	if ids := r.set.index.routes("A"); len(ids) != 0 {
		t.Errorf("index still lists routes for A: %v", ids)
	}

	rec, ok := r.set.Result()
	if !ok || !rec.Found || rec.RouteID != 2 {
		t.Errorf("recommendation = %+v (fired %v), want route 2", rec, ok)
	}
}

func TestClosureByAffectedEventType(t *testing.T) {
	fs := network()
	for i, f := range fs {
		if w, ok := f.(facts.Way); ok && w.Name == "C" {
			w.AffectedBy = []string{"manifestacion"}
			fs[i] = w
		}
	}
	fs = append(fs, facts.Event{Type: "manifestacion", TotalClosure: true})
	r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, fs)

	if r.has(facts.KindWay, "C") || r.has(facts.KindRoute, "2") {
		t.Error("way C and route 2 should be removed")
	}
	if rec, _ := r.set.Result(); rec.RouteID != 1 {
		t.Errorf("route = %d, want 1", rec.RouteID)
	}
}

func TestEndpointFiltering(t *testing.T) {
	r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, network())

	if r.has(facts.KindRoute, "3") {
		t.Error("route 3 does not start at Home and should be removed")
	}
	for _, id := range []string{"1", "2"} {
		if !r.has(facts.KindRoute, id) {
			t.Errorf("route %s should survive", id)
		}
	}
	if r.count(RuleOriginMismatch) != 1 || r.count(RuleDestinationMismatch) != 0 {
		t.Errorf("origin filter fired %d, destination filter fired %d",
			r.count(RuleOriginMismatch), r.count(RuleDestinationMismatch))
	}
}

func TestDestinationFiltering(t *testing.T) {
	fs := append(network(), route(4, []string{"A"}, "1", "2"))
	r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, fs)
	if r.has(facts.KindRoute, "4") {
		t.Error("route 4 does not end at Work and should be removed")
	}
}

func TestTimeAggregation(t *testing.T) {
	fs := []facts.Fact{
		landmark("Home", "1"),
		landmark("Work", "2"),
		intersection("1", "W"),
		intersection("2", "W"),
		way("W", 10, 50),
		route(1, []string{"W"}, "1", "2"),
		facts.Goal{From: "Home", To: "Work"},
	}
	r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, fs)

	f, _, ok := r.engine.Memory().Get(facts.KindRouteTime, "1")
	if !ok {
		t.Fatal("route time missing")
	}
	if got := f.(facts.RouteTime).Hours; math.Abs(got-0.22) > 1e-9 {
		t.Errorf("route time = %v, want 0.22", got)
	}
	rec, _ := r.set.Result()
	if rec.Minutes != 13.2 || rec.DistanceKm != 10 {
		t.Errorf("recommendation = %+v", rec)
	}
}

func TestAdjustmentsApplyOnce(t *testing.T) {
	x := way("X", 6, 60)
	x.Bidirectional = true
	x.AffectedBy = []string{"obra"}
	fs := []facts.Fact{
		landmark("Home", "1"),
		landmark("Work", "2"),
		intersection("1", "X"),
		intersection("2", "X"),
		x,
		facts.TrafficLight{Way: "X", Wait: 36},
		facts.Event{Type: "choque", Way: "X", Duration: 6},
		facts.Event{Type: "obra", Duration: 12},
		facts.Flow{Way: "X", Level: facts.FlowGood},
		route(1, []string{"X"}, "1", "2"),
		facts.Goal{From: "Home", To: "Work"},
	}
	r := runRules(t, fixedFlow(facts.FlowVeryBad), 1, fs)

	for _, rule := range []string{RuleLightWait, RuleEventDelay, RuleFlowFactor, RuleBidirectional} {
		if n := r.count(rule); n != 1 {
			t.Errorf("%s fired %d times, want 1", rule, n)
		}
	}
	if n := r.count(RuleFlowWithLight) + r.count(RuleFlowWithoutLight); n != 0 {
		t.Errorf("flow rules fired %d times for a way with a known flow", n)
	}

	f, _, _ := r.engine.Memory().Get(facts.KindWayTime, "X")
	wt := f.(facts.WayTime)
	// (0.1 + 36/3600 + 18/60) * 0.9 * 0.9
	if math.Abs(wt.Hours-0.3321) > 1e-9 {
		t.Errorf("way time = %v, want 0.3321", wt.Hours)
	}
	if !wt.LightApplied || !wt.EventApplied || !wt.FlowApplied || !wt.BidirectionalApplied {
		t.Errorf("flags not all set: %+v", wt)
	}
}

func TestNullFlowRemovesWay(t *testing.T) {
	fs := append(network(), facts.Flow{Way: "C", Level: facts.FlowNull})
	r := runRules(t, fixedFlow(facts.FlowGood), 1, fs)

	if r.has(facts.KindWay, "C") || r.has(facts.KindRoute, "2") {
		t.Error("null flow should remove way C and route 2")
	}
	if r.count(RuleNullFlow) != 1 {
		t.Errorf("null-flow fired %d times", r.count(RuleNullFlow))
	}
	if rec, _ := r.set.Result(); rec.RouteID != 1 {
		t.Errorf("route = %d, want 1", rec.RouteID)
	}
}

func TestNoSurvivingRoute(t *testing.T) {
	fs := append(network(),
		facts.Event{Type: "obra", Way: "A", TotalClosure: true},
		facts.Event{Type: "choque", Way: "C", TotalClosure: true},
	)
	r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, fs)

	rec, fired := r.set.Result()
	if !fired {
		t.Fatal("terminal rule did not fire")
	}
	if rec.Found {
		t.Errorf("expected no route, got %+v", rec)
	}
	if r.engine.Memory().Len(facts.KindRoute) != 0 {
		t.Errorf("%d routes survived", r.engine.Memory().Len(facts.KindRoute))
	}
}

func TestRoutePruning(t *testing.T) {
	fs := append(network(),
		way("E", 40, 120),
		route(5, []string{"E"}, "1", "3"),
	)
	r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, fs)

	// Shortest surviving distance is 10 km (route 2); route 5 is 40 km.
	if r.has(facts.KindRoute, "5") {
		t.Error("route 5 longer than 3x the shortest should be pruned")
	}
	if !r.has(facts.KindRoute, "1") {
		t.Error("route 1 (15 km) should survive pruning")
	}
}

func TestDeterministicGivenSeed(t *testing.T) {
	fs := append(network(),
		facts.TrafficLight{Way: "A", Wait: 60},
		facts.TrafficLight{Way: "C", Wait: 90},
	)
	ctrl := fuzzy.NewController()
	a := runRules(t, ctrl, 42, fs)
	b := runRules(t, ctrl, 42, fs)

	ra, _ := a.set.Result()
	rb, _ := b.set.Result()
	if !reflect.DeepEqual(ra, rb) {
		t.Errorf("recommendations differ:\n%+v\n%+v", ra, rb)
	}
	if !reflect.DeepEqual(a.firings, b.firings) {
		t.Error("firing sequences differ for the same seed")
	}
}

func TestPriorityRespected(t *testing.T) {
	fs := append(network(),
		facts.Event{Type: "obra", Way: "B", TotalClosure: true},
		facts.TrafficLight{Way: "C", Wait: 90},
		facts.Event{Type: "choque", Way: "C", Duration: 5},
	)
	r := runRules(t, fuzzy.NewController(), 7, fs)

	if len(r.firings) == 0 {
		t.Fatal("nothing fired")
	}
	last := r.firings[len(r.firings)-1]
	if last.Rule != RuleRecommend {
		t.Errorf("last firing = %s, want %s", last.Rule, RuleRecommend)
	}
	for i := 1; i < len(r.firings); i++ {
		if r.firings[i].Salience > r.firings[i-1].Salience {
			t.Errorf("firing %d (%s, %d) after lower salience %s (%d)", i,
				r.firings[i].Rule, r.firings[i].Salience, r.firings[i-1].Rule, r.firings[i-1].Salience)
		}
	}
}

type routeWatch struct {
	t      *testing.T
	routes int
}

func (w *routeWatch) Asserted(_ inference.Handle, f facts.Fact) {
	if f.Kind() == facts.KindRoute {
		w.t.Errorf("route %s declared during the run", f.Key())
	}
}

func (w *routeWatch) Retracted(_ inference.Handle, f facts.Fact) {
	if f.Kind() == facts.KindRoute {
		w.routes--
	}
}

func (w *routeWatch) Modified(_, _ inference.Handle, before, _ facts.Fact) {
	if before.Kind() == facts.KindRoute {
		w.t.Errorf("route %s modified during the run", before.Key())
	}
}

func TestRoutesOnlyShrink(t *testing.T) {
	s, err := New(DefaultConfig(), fixedFlow(facts.FlowAcceptable), 3)
	if err != nil {
		t.Fatal(err)
	}
	e, err := s.Install(inference.Options{})
	if err != nil {
		t.Fatal(err)
	}
	fs := append(network(), facts.Event{Type: "obra", Way: "A", TotalClosure: true})
	if err := e.Declare(fs...); err != nil {
		t.Fatal(err)
	}

	w := &routeWatch{t: t, routes: e.Memory().Len(facts.KindRoute)}
	e.Memory().Subscribe(w)
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if w.routes != e.Memory().Len(facts.KindRoute) {
		t.Errorf("route count %d does not match memory %d", w.routes, e.Memory().Len(facts.KindRoute))
	}
	if w.routes != 1 {
		t.Errorf("%d routes survived, want 1", w.routes)
	}
}

func TestMissingWayIsInconsistent(t *testing.T) {
	fs := []facts.Fact{
		landmark("Home", "1"),
		landmark("Work", "2"),
		route(1, []string{"ghost"}, "1", "2"),
		facts.Goal{From: "Home", To: "Work"},
	}
	s, _ := New(DefaultConfig(), fixedFlow(facts.FlowAcceptable), 1)
	e, _ := s.Install(inference.Options{})
	if err := e.Declare(fs...); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); !errors.Is(err, internalerr.ErrInconsistent) {
		t.Fatalf("expected ErrInconsistent, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := []func(*Config){
		func(c *Config) { c.PruneFactor = 0.5 },
		func(c *Config) { c.CongestionMin = 80; c.CongestionMax = 20 },
		func(c *Config) { c.LightWaitMin = -1 },
		func(c *Config) { c.BidirectionalFactor = 0 },
	}
	for i, mut := range bad {
		cfg := DefaultConfig()
		mut(&cfg)
		if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("case %d: expected ErrInvalidConfig, got %v", i, err)
		}
	}
	if _, err := New(DefaultConfig(), nil, 1); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("nil evaluator: got %v", err)
	}
}

// parallel builds n single-way routes between the same two intersections.
// Way i is 1 + i%7 km long, so route 1 is the shortest and the longest
// routes are pruned.
func parallel(n int) []facts.Fact {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("W%d", i)
	}
	fs := []facts.Fact{
		landmark("Home", "1"),
		landmark("Work", "2"),
		intersection("1", names...),
		intersection("2", names...),
	}
	for i, name := range names {
		fs = append(fs, way(name, float64(1+i%7), 50))
	}
	for i, name := range names {
		fs = append(fs, route(i+1, []string{name}, "1", "2"))
	}
	return append(fs, facts.Goal{From: "Home", To: "Work"})
}

func TestLargeNetworkWorkIsLinear(t *testing.T) {
	const small, large = 500, 2000
	var tests [2]int
	for i, n := range []int{small, large} {
		r := runRules(t, fixedFlow(facts.FlowAcceptable), 1, parallel(n))

		rec, ok := r.set.Result()
		if !ok || !rec.Found || rec.RouteID != 1 {
			t.Fatalf("n=%d: recommendation = %+v", n, rec)
		}
		// flow, way time and flow factor per way; time, distance and prune
		// per route; one recommendation.
		if got, want := r.engine.Firings(), 6*n+1; got != want {
			t.Errorf("n=%d: %d firings, want %d", n, got, want)
		}
		if pruned := n - r.engine.Memory().Len(facts.KindRoute); pruned == 0 {
			t.Errorf("n=%d: nothing pruned", n)
		}
		tests[i] = r.engine.Tests()
	}

	// Four times the facts must cost about four times the pattern tests.
	if ratio := float64(tests[1]) / float64(tests[0]); ratio > 5 {
		t.Errorf("pattern tests grew %.1fx for %dx the facts (%d -> %d)",
			ratio, large/small, tests[0], tests[1])
	}
}

func BenchmarkEngine_Run(b *testing.B) {
	for _, n := range []int{1000, 4000} {
		fs := parallel(n)
		b.Run(fmt.Sprintf("ways=%d", n), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				s, err := New(DefaultConfig(), fixedFlow(facts.FlowAcceptable), 1)
				if err != nil {
					b.Fatal(err)
				}
				e, err := s.Install(inference.Options{MaxFirings: FiringBudget(len(fs))})
				if err != nil {
					b.Fatal(err)
				}
				if err := e.Declare(fs...); err != nil {
					b.Fatal(err)
				}
				if err := e.Run(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
