// Package rules holds the fixed production rules of the route recommender.
//
// Rules fire in salience order so every derived value is stable before it is
// consumed: closures and endpoint filters shrink the network, flows and way
// times are computed and adjusted once per way, routes are aggregated and
// pruned, and the recommendation is taken last.
package rules

import (
	"fmt"
	"math/rand/v2"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/inference"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/recommend"
)

// Rule names.
const (
	RuleTotalClosure        = "total-closure"
	RuleOriginMismatch      = "origin-mismatch"
	RuleDestinationMismatch = "destination-mismatch"
	RuleFlowWithLight       = "flow-with-light"
	RuleFlowWithoutLight    = "flow-without-light"
	RuleNullFlow            = "null-flow"
	RuleWayTime             = "way-time"
	RuleLightWait           = "light-wait"
	RuleEventDelay          = "event-delay"
	RuleFlowFactor          = "flow-factor"
	RuleBidirectional       = "bidirectional-bonus"
	RuleRouteTime           = "route-time"
	RuleRouteDistance       = "route-distance"
	RuleRoutePrune          = "route-length-prune"
	RuleRecommend           = "recommend"
)

// Saliences. Higher fires first.
const (
	SalienceClosure     = 30
	SalienceOrigin      = 25
	SalienceDestination = 22
	SalienceFlow        = 20
	SalienceNullFlow    = 15
	SalienceWayTime     = 10
	SalienceAdditive    = 6
	SalienceFactor      = 5
	SalienceAggregate   = 2
	SaliencePrune       = 1
	SalienceRecommend   = 0
)

// Config holds the tunable constants of the rule set.
type Config struct {
	// PruneFactor removes routes longer than this multiple of the shortest
	// surviving route.
	PruneFactor float64

	// Congestion is drawn uniformly from [CongestionMin, CongestionMax].
	CongestionMin float64
	CongestionMax float64

	// Light wait in seconds is drawn uniformly from [LightWaitMin, LightWaitMax].
	LightWaitMin float64
	LightWaitMax float64

	// BidirectionalFactor scales the time of two-way roads.
	BidirectionalFactor float64
}

// DefaultConfig returns the standard constants.
func DefaultConfig() Config {
	return Config{
		PruneFactor:         3,
		CongestionMin:       0,
		CongestionMax:       100,
		LightWaitMin:        30,
		LightWaitMax:        120,
		BidirectionalFactor: 0.9,
	}
}

// Validate checks the constants.
func (c Config) Validate() error {
	switch {
	case c.PruneFactor < 1:
		return fmt.Errorf("prune factor %v below 1: %w", c.PruneFactor, internalerr.ErrInvalidConfig)
	case c.CongestionMin < 0 || c.CongestionMin > c.CongestionMax:
		return fmt.Errorf("congestion range [%v, %v]: %w", c.CongestionMin, c.CongestionMax, internalerr.ErrInvalidConfig)
	case c.LightWaitMin < 0 || c.LightWaitMin > c.LightWaitMax:
		return fmt.Errorf("light wait range [%v, %v]: %w", c.LightWaitMin, c.LightWaitMax, internalerr.ErrInvalidConfig)
	case c.BidirectionalFactor <= 0 || c.BidirectionalFactor > 1:
		return fmt.Errorf("bidirectional factor %v: %w", c.BidirectionalFactor, internalerr.ErrInvalidConfig)
	}
	return nil
}

// FiringsPerFact bounds the firings of a run relative to the facts it
// starts from. Each way fires at most eight rules and each route five.
const FiringsPerFact = 16

// FiringBudget returns the firing limit for a run over n declared facts.
func FiringBudget(n int) int {
	return FiringsPerFact * (n + 1)
}

// FlowEvaluator labels the flow of a way.
type FlowEvaluator interface {
	Evaluate(congestion, speed, wait float64) facts.FlowLevel
}

// Set is one run's instance of the rule set. It owns the random source
// used by the flow rules and the way to routes index.
type Set struct {
	cfg   Config
	eval  FlowEvaluator
	rng   *rand.Rand
	index *routeIndex
	floor *distanceFloor

	result recommend.Recommendation
	done   bool
}

// New creates a rule set seeded for one run.
func New(cfg Config, eval FlowEvaluator, seed uint64) (*Set, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, fmt.Errorf("flow evaluator required: %w", internalerr.ErrInvalidConfig)
	}
	return &Set{
		cfg:   cfg,
		eval:  eval,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		index: newRouteIndex(),
		floor: &distanceFloor{},
	}, nil
}

// Install builds an engine running this rule set. The route index and the
// distance floor are subscribed to the engine's memory before any fact is
// declared.
func (s *Set) Install(opts inference.Options) (*inference.Engine, error) {
	e, err := inference.New(s.Rules(), opts)
	if err != nil {
		return nil, err
	}
	e.Memory().Subscribe(s.index)
	e.Memory().Subscribe(s.floor)
	return e, nil
}

// Rules returns the productions bound to this set.
func (s *Set) Rules() []inference.Rule {
	var rs []inference.Rule
	rs = append(rs, s.networkRules()...)
	rs = append(rs, s.timeRules()...)
	rs = append(rs, s.routeRules()...)
	return rs
}

// Result returns the recommendation and whether the terminal rule fired.
func (s *Set) Result() (recommend.Recommendation, bool) {
	return s.result, s.done
}

// uniform draws from [lo, hi].
func (s *Set) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// removeWay retracts a way with its derived facts and every route using it.
func (s *Set) removeWay(ctx *inference.Context, h inference.Handle, name string) error {
	if err := ctx.Retract(h); err != nil {
		return err
	}
	if _, err := ctx.RetractKey(facts.KindFlow, name); err != nil {
		return err
	}
	if _, err := ctx.RetractKey(facts.KindWayTime, name); err != nil {
		return err
	}
	for _, id := range s.index.routes(name) {
		if err := s.removeRoute(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// removeRoute retracts a route and its aggregates.
func (s *Set) removeRoute(ctx *inference.Context, id int) error {
	key := facts.RouteKey(id)
	_, h, err := ctx.Must(facts.KindRoute, key)
	if err != nil {
		return err
	}
	if err := ctx.Retract(h); err != nil {
		return err
	}
	if _, err := ctx.RetractKey(facts.KindRouteTime, key); err != nil {
		return err
	}
	_, err = ctx.RetractKey(facts.KindRouteDistance, key)
	return err
}
