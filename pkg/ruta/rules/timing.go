package rules

import (
	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/inference"
)

func timeWay(b inference.Binding) string { return inference.As[facts.WayTime](b, "t").Way }

// pending matches way times whose adjustment has not been applied yet.
func pending(applied func(facts.WayTime) bool) inference.Pattern {
	return inference.Match(facts.KindWayTime, "t").Where(func(f facts.Fact, _ inference.Binding) bool {
		return !applied(f.(facts.WayTime))
	})
}

// timeRules compute the travel time of each way and adjust it once per
// adjustment. Additive adjustments run before multiplicative ones.
func (s *Set) timeRules() []inference.Rule {
	return []inference.Rule{
		{
			Name:     RuleWayTime,
			Salience: SalienceWayTime,
			When: []inference.Pattern{
				inference.Match(facts.KindWay, "w"),
				inference.Not(facts.KindWayTime).KeyOf("w"),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				w := inference.As[facts.Way](b, "w")
				_, err := ctx.Declare(facts.WayTime{Way: w.Name, Hours: w.Length / w.AvgSpeed})
				return err
			},
		},
		{
			Name:     RuleLightWait,
			Salience: SalienceAdditive,
			When: []inference.Pattern{
				pending(func(t facts.WayTime) bool { return t.LightApplied }),
				inference.Match(facts.KindTrafficLight, "l").Keyed(timeWay),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				t := inference.As[facts.WayTime](b, "t")
				t.Hours += inference.As[facts.TrafficLight](b, "l").Wait / 3600
				t.LightApplied = true
				_, err := ctx.Modify(b.Handle("t"), t)
				return err
			},
		},
		{
			Name:     RuleEventDelay,
			Salience: SalienceAdditive,
			When: []inference.Pattern{
				pending(func(t facts.WayTime) bool { return t.EventApplied }),
				inference.Match(facts.KindWay, "w").Keyed(timeWay),
				inference.Match(facts.KindEvent, "e").Where(func(f facts.Fact, b inference.Binding) bool {
					e := f.(facts.Event)
					return !e.TotalClosure && e.Affects(inference.As[facts.Way](b, "w"))
				}),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				w := inference.As[facts.Way](b, "w")
				t := inference.As[facts.WayTime](b, "t")

				// Every delaying event is added here; the flag then retires the
				// activations of the other events on this way.
				var minutes float64
				ctx.Each(facts.KindEvent, func(_ inference.Handle, f facts.Fact) bool {
					if e := f.(facts.Event); !e.TotalClosure && e.Affects(w) {
						minutes += e.Duration
					}
					return true
				})
				t.Hours += minutes / 60
				t.EventApplied = true
				_, err := ctx.Modify(b.Handle("t"), t)
				return err
			},
		},
		{
			Name:     RuleFlowFactor,
			Salience: SalienceFactor,
			When: []inference.Pattern{
				pending(func(t facts.WayTime) bool { return t.FlowApplied }),
				inference.Match(facts.KindFlow, "f").Keyed(timeWay).Where(func(f facts.Fact, _ inference.Binding) bool {
					_, ok := f.(facts.Flow).Level.Factor()
					return ok
				}),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				t := inference.As[facts.WayTime](b, "t")
				factor, _ := inference.As[facts.Flow](b, "f").Level.Factor()
				t.Hours *= factor
				t.FlowApplied = true
				_, err := ctx.Modify(b.Handle("t"), t)
				return err
			},
		},
		{
			Name:     RuleBidirectional,
			Salience: SalienceFactor,
			When: []inference.Pattern{
				pending(func(t facts.WayTime) bool { return t.BidirectionalApplied }),
				inference.Match(facts.KindWay, "w").Keyed(timeWay).Where(func(f facts.Fact, _ inference.Binding) bool {
					return f.(facts.Way).Bidirectional
				}),
			},
			Then: func(ctx *inference.Context, b inference.Binding) error {
				t := inference.As[facts.WayTime](b, "t")
				t.Hours *= s.cfg.BidirectionalFactor
				t.BidirectionalApplied = true
				_, err := ctx.Modify(b.Handle("t"), t)
				return err
			},
		},
	}
}
