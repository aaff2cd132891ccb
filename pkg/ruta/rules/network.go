package rules

import (
	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/inference"
)

func wayName(b inference.Binding) string  { return inference.As[facts.Way](b, "w").Name }
func goalFrom(b inference.Binding) string { return inference.As[facts.Goal](b, "g").From }
func goalTo(b inference.Binding) string   { return inference.As[facts.Goal](b, "g").To }

func closing(f facts.Fact, _ inference.Binding) bool { return f.(facts.Event).TotalClosure }

// networkRules shrink the network and derive way flows.
func (s *Set) networkRules() []inference.Rule {
	return []inference.Rule{
		{
			Name:     RuleTotalClosure,
			Salience: SalienceClosure,
			When: []inference.Pattern{
				inference.Match(facts.KindEvent, "e").Where(closing),
				inference.Match(facts.KindWay, "w").Where(func(f facts.Fact, b inference.Binding) bool {
					return inference.As[facts.Event](b, "e").Affects(f.(facts.Way))
				}),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				return s.removeWay(ctx, b.Handle("w"), wayName(b))
			},
		},
		{
			Name:     RuleOriginMismatch,
			Salience: SalienceOrigin,
			When: []inference.Pattern{
				inference.Match(facts.KindGoal, "g"),
				inference.Match(facts.KindNode, "l").Keyed(goalFrom),
				inference.Match(facts.KindRoute, "r").Where(func(f facts.Fact, b inference.Binding) bool {
					return !inference.As[facts.Node](b, "l").ReachesIntersection(f.(facts.Route).Origin)
				}),
			},
			Then: s.dropRoute,
		},
		{
			Name:     RuleDestinationMismatch,
			Salience: SalienceDestination,
			When: []inference.Pattern{
				inference.Match(facts.KindGoal, "g"),
				inference.Match(facts.KindNode, "l").Keyed(goalTo),
				inference.Match(facts.KindRoute, "r").Where(func(f facts.Fact, b inference.Binding) bool {
					return !inference.As[facts.Node](b, "l").ReachesIntersection(f.(facts.Route).Destination)
				}),
			},
			Then: s.dropRoute,
		},
		{
			Name:     RuleFlowWithLight,
			Salience: SalienceFlow,
			When: []inference.Pattern{
				inference.Match(facts.KindWay, "w"),
				inference.Match(facts.KindTrafficLight, "l").Keyed(wayName),
				inference.Not(facts.KindFlow).KeyOf("w"),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				congestion := s.uniform(s.cfg.CongestionMin, s.cfg.CongestionMax)
				wait := s.uniform(s.cfg.LightWaitMin, s.cfg.LightWaitMax)
				return s.declareFlow(ctx, inference.As[facts.Way](b, "w"), congestion, wait)
			},
		},
		{
			Name:     RuleFlowWithoutLight,
			Salience: SalienceFlow,
			When: []inference.Pattern{
				inference.Match(facts.KindWay, "w"),
				inference.Not(facts.KindTrafficLight).KeyOf("w"),
				inference.Not(facts.KindFlow).KeyOf("w"),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				congestion := s.uniform(s.cfg.CongestionMin, s.cfg.CongestionMax)
				return s.declareFlow(ctx, inference.As[facts.Way](b, "w"), congestion, 0)
			},
		},
		{
			Name:     RuleNullFlow,
			Salience: SalienceNullFlow,
			When: []inference.Pattern{
				inference.Match(facts.KindFlow, "f").Where(func(f facts.Fact, _ inference.Binding) bool {
					return f.(facts.Flow).Level == facts.FlowNull
				}),
				inference.Match(facts.KindWay, "w").Keyed(func(b inference.Binding) string {
					return inference.As[facts.Flow](b, "f").Way
				}),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				return s.removeWay(ctx, b.Handle("w"), wayName(b))
			},
		},
	}
}

func (s *Set) dropRoute(ctx *inference.Context, b inference.Binding) error {
	return s.removeRoute(ctx, inference.As[facts.Route](b, "r").ID)
}

func (s *Set) declareFlow(ctx *inference.Context, w facts.Way, congestion, wait float64) error {
	level := s.eval.Evaluate(congestion, w.AvgSpeed, wait)
	_, err := ctx.Declare(facts.Flow{Way: w.Name, Level: level})
	return err
}
