package ruta

import (
	"context"
	"crypto/rand"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/ruta/pkg/ruta/config"
	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/fuzzy"
	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/inference"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/paths"
	"github.com/cognicore/ruta/pkg/ruta/recommend"
	"github.com/cognicore/ruta/pkg/ruta/rules"
	"github.com/cognicore/ruta/pkg/ruta/store"
	"github.com/cognicore/ruta/pkg/ruta/translate"
)

// Planner is the route recommender facade
type Planner struct {
	cfg    *config.Config
	store  store.Store
	eval   rules.FlowEvaluator
	onFire func(inference.Firing)
	now    func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Planner
type Options struct {
	Config    *config.Config         // defaults to config.Default()
	Store     store.Store            // optional; runs are recorded when set
	Evaluator rules.FlowEvaluator    // defaults to the fuzzy controller
	OnFire    func(inference.Firing) // optional trace hook
	Now       func() time.Time
}

// New creates a Planner with the given dependencies
func New(opts Options) (*Planner, error) {
	p := &Planner{
		cfg:     opts.Config,
		store:   opts.Store,
		eval:    opts.Evaluator,
		onFire:  opts.OnFire,
		now:     opts.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	if p.cfg == nil {
		p.cfg = config.Default()
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, err
	}
	if p.eval == nil {
		p.eval = fuzzy.NewController()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Close releases the store.
func (p *Planner) Close() error {
	if p.store == nil {
		return nil
	}
	return p.store.Close()
}

func (p *Planner) requireStore() error {
	if p.store == nil {
		return fmt.Errorf("no store configured: %w", internalerr.ErrStoreUnavailable)
	}
	return nil
}

// Import validates a network graph and saves it under name.
func (p *Planner) Import(ctx context.Context, name string, g *graph.Graph) error {
	if err := p.requireStore(); err != nil {
		return err
	}
	if _, err := translate.Translate(g); err != nil {
		return fmt.Errorf("import %s: %w", name, err)
	}
	return p.store.SaveGraph(ctx, name, g.Triples())
}

// Graph loads a stored network graph.
func (p *Planner) Graph(ctx context.Context, name string) (*graph.Graph, error) {
	if err := p.requireStore(); err != nil {
		return nil, err
	}
	triples, err := p.store.LoadGraph(ctx, name)
	if err != nil {
		return nil, err
	}
	g := graph.New()
	g.AddAll(triples)
	return g, nil
}

// Graphs lists stored network graphs.
func (p *Planner) Graphs(ctx context.Context) ([]store.GraphInfo, error) {
	if err := p.requireStore(); err != nil {
		return nil, err
	}
	return p.store.ListGraphs(ctx)
}

// Runs lists recorded runs, newest first.
func (p *Planner) Runs(ctx context.Context, graphName string, limit int) ([]store.Run, error) {
	if err := p.requireStore(); err != nil {
		return nil, err
	}
	return p.store.ListRuns(ctx, graphName, limit)
}

// Run returns one recorded run.
func (p *Planner) Run(ctx context.Context, id string) (store.Run, error) {
	if err := p.requireStore(); err != nil {
		return store.Run{}, err
	}
	return p.store.GetRun(ctx, id)
}

// Landmarks returns the landmark names of a network, sorted.
func Landmarks(g *graph.Graph) ([]string, error) {
	fs, err := translate.Translate(g)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, f := range fs {
		if n, ok := f.(facts.Node); ok && n.IsLandmark() {
			names = append(names, n.Name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Request asks for the fastest route between two landmarks of a network,
// given inline or by stored graph name.
type Request struct {
	Graph   string
	Network *graph.Graph
	From    string
	To      string
	Seed    uint64 // zero uses the configured seed
}

// Result is the outcome of a recommendation run.
type Result struct {
	RunID          string
	Seed           uint64
	Firings        int
	Recommendation recommend.Recommendation
}

// Recommend runs the rule engine over the network and returns the fastest
// surviving route. Finding no route is a result, not an error.
func (p *Planner) Recommend(ctx context.Context, req Request) (*Result, error) {
	g := req.Network
	if g == nil {
		if req.Graph == "" {
			return nil, fmt.Errorf("no network given: %w", internalerr.ErrInvalidInput)
		}
		var err error
		if g, err = p.Graph(ctx, req.Graph); err != nil {
			return nil, err
		}
	}

	fs, err := translate.Translate(g)
	if err != nil {
		return nil, err
	}
	if err := checkLandmarks(fs, req.From, req.To); err != nil {
		return nil, err
	}
	if p.cfg.Routes.Generate {
		if fs, err = p.generateRoutes(fs, req.From, req.To); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seed := req.Seed
	if seed == 0 {
		seed = p.cfg.Seed
	}
	set, err := rules.New(p.cfg.RuleConfig(), p.eval, seed)
	if err != nil {
		return nil, err
	}
	limit := p.cfg.Rules.MaxFirings
	if limit == 0 {
		limit = rules.FiringBudget(len(fs) + 1)
	}
	engine, err := set.Install(inference.Options{MaxFirings: limit, OnFire: p.onFire})
	if err != nil {
		return nil, err
	}
	if err := engine.Declare(fs...); err != nil {
		return nil, err
	}
	if err := engine.Declare(facts.Goal{From: req.From, To: req.To}); err != nil {
		return nil, err
	}
	if err := engine.Run(); err != nil {
		return nil, err
	}
	rec, ok := set.Result()
	if !ok {
		return nil, fmt.Errorf("run ended without a recommendation: %w", internalerr.ErrInconsistent)
	}

	res := &Result{RunID: p.newID(), Seed: seed, Firings: engine.Firings(), Recommendation: rec}
	if p.store != nil {
		run := store.Run{
			ID:         res.RunID,
			Graph:      req.Graph,
			From:       req.From,
			To:         req.To,
			Seed:       seed,
			Found:      rec.Found,
			RouteID:    rec.RouteID,
			Minutes:    rec.Minutes,
			DistanceKm: rec.DistanceKm,
			Ways:       rec.Ways,
			Firings:    res.Firings,
			CreatedAt:  p.now(),
		}
		if err := p.store.RecordRun(ctx, run); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}
	return res, nil
}

func (p *Planner) newID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(p.now()), p.entropy).String()
}

// generateRoutes replaces the network's routes with enumerated candidates.
func (p *Planner) generateRoutes(fs []facts.Fact, from, to string) ([]facts.Fact, error) {
	var (
		nodes []facts.Node
		ways  []facts.Way
		out   []facts.Fact
	)
	for _, f := range fs {
		switch v := f.(type) {
		case facts.Route:
			continue
		case facts.Node:
			nodes = append(nodes, v)
		case facts.Way:
			ways = append(ways, v)
		}
		out = append(out, f)
	}
	routes, err := paths.Enumerate(nodes, ways, from, to, p.cfg.Limits())
	if err != nil {
		return nil, err
	}
	for _, r := range routes {
		out = append(out, r)
	}
	return out, nil
}

func checkLandmarks(fs []facts.Fact, from, to string) error {
	known := make(map[string]bool)
	for _, f := range fs {
		if n, ok := f.(facts.Node); ok && n.IsLandmark() {
			known[n.Name] = true
		}
	}
	if !known[from] {
		return fmt.Errorf("origin %q: %w", from, internalerr.ErrUnknownLandmark)
	}
	if !known[to] {
		return fmt.Errorf("destination %q: %w", to, internalerr.ErrUnknownLandmark)
	}
	return nil
}
