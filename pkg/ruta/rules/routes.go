package rules

import (
	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/inference"
	"github.com/cognicore/ruta/pkg/ruta/recommend"
)

func distanceRoute(b inference.Binding) string {
	return inference.As[facts.RouteDistance](b, "d").Key()
}

// routeRules aggregate, prune and finally pick a route.
func (s *Set) routeRules() []inference.Rule {
	return []inference.Rule{
		{
			Name:     RuleRouteTime,
			Salience: SalienceAggregate,
			When: []inference.Pattern{
				inference.Match(facts.KindRoute, "r"),
				inference.Not(facts.KindRouteTime).KeyOf("r"),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				r := inference.As[facts.Route](b, "r")
				var hours float64
				for _, way := range r.Ways {
					f, _, err := ctx.Must(facts.KindWayTime, way)
					if err != nil {
						return err
					}
					hours += f.(facts.WayTime).Hours
				}
				_, err := ctx.Declare(facts.RouteTime{Route: r.ID, Hours: hours})
				return err
			},
		},
		{
			Name:     RuleRouteDistance,
			Salience: SalienceAggregate,
			When: []inference.Pattern{
				inference.Match(facts.KindRoute, "r"),
				inference.Not(facts.KindRouteDistance).KeyOf("r"),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				r := inference.As[facts.Route](b, "r")
				var km float64
				for _, way := range r.Ways {
					f, _, err := ctx.Must(facts.KindWay, way)
					if err != nil {
						return err
					}
					km += f.(facts.Way).Length
				}
				_, err := ctx.Declare(facts.RouteDistance{Route: r.ID, Km: km})
				return err
			},
		},
		{
			// The threshold depends on every surviving distance, so it is
			// evaluated when the activation fires rather than in a test.
			Name:     RuleRoutePrune,
			Salience: SaliencePrune,
			When: []inference.Pattern{
				inference.Match(facts.KindRouteDistance, "d"),
				inference.Match(facts.KindRoute, "r").Keyed(distanceRoute),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				d := inference.As[facts.RouteDistance](b, "d")
				if d.Km > s.cfg.PruneFactor*s.floor.shortest(ctx) {
					return s.removeRoute(ctx, d.Route)
				}
				return nil
			},
		},
		{
			Name:     RuleRecommend,
			Salience: SalienceRecommend,
			When: []inference.Pattern{
				inference.Match(facts.KindGoal, "g"),
			},
			Then: s.extract,
		},
	}
}

// extract runs at quiescence and reads the surviving routes in
// declaration order.
func (s *Set) extract(ctx *inference.Context, b inference.Binding) error {
	var views []recommend.RouteView
	var err error
	ctx.Each(facts.KindRoute, func(_ inference.Handle, f facts.Fact) bool {
		r := f.(facts.Route)
		var t, d facts.Fact
		if t, _, err = ctx.Must(facts.KindRouteTime, r.Key()); err != nil {
			return false
		}
		if d, _, err = ctx.Must(facts.KindRouteDistance, r.Key()); err != nil {
			return false
		}
		views = append(views, recommend.RouteView{
			Route: r,
			Hours: t.(facts.RouteTime).Hours,
			Km:    d.(facts.RouteDistance).Km,
		})
		return true
	})
	if err != nil {
		return err
	}

	nodes := make(map[string]facts.Node)
	ctx.Each(facts.KindNode, func(_ inference.Handle, f facts.Fact) bool {
		if n := f.(facts.Node); !n.IsLandmark() {
			nodes[n.ID] = n
		}
		return true
	})

	goal := inference.As[facts.Goal](b, "g")
	s.result = recommend.Extract(views, nodes)
	s.result.From, s.result.To = goal.From, goal.To
	s.done = true
	return nil
}
