package fuzzy

import (
	"math"
	"slices"

	"github.com/cognicore/ruta/pkg/ruta/facts"
)

// Universes of the controller variables.
const (
	CongestionMax = 100.0
	SpeedMax      = 60.0
	WaitMax       = 180.0
	flowMax       = 100.0
)

// inputs holds the membership degrees of one evaluation.
type inputs struct {
	congLow, congMedium, congHigh, congVeryHigh float64
	slow, normal, fast, roughlyNormal           float64
	waitShort, waitLong                         float64
}

type rule struct {
	strength func(in inputs) float64
	output   int // index into Controller.outputs
}

// Controller is a Mamdani controller that labels the flow of a way from its
// congestion (0-100), average speed (km/h) and traffic-light wait (s).
//
// Every set is sampled on the integer points of its universe and read by
// linear interpolation, and the output is defuzzified with a piecewise
// linear centroid, so scores agree with scikit-fuzzy near the label
// thresholds.
type Controller struct {
	congestion map[string]sampled
	speed      map[string]sampled
	wait       map[string]sampled
	outputs    []sampled
	rules      []rule
}

// NewController builds the controller with the standard sets and rules.
func NewController() *Controller {
	c := &Controller{
		congestion: map[string]sampled{
			"low":       sample(Tri(0, 0, 40), CongestionMax),
			"medium":    sample(Trap(30, 45, 55, 70), CongestionMax),
			"high":      sample(Gauss(80, 8), CongestionMax),
			"very_high": sample(Very(Gauss(80, 8)), CongestionMax),
		},
		speed: map[string]sampled{
			"slow":           sample(Gauss(10, 4), SpeedMax),
			"normal":         sample(Tri(15, 30, 45), SpeedMax),
			"fast":           sample(Trap(40, 45, 60, 60), SpeedMax),
			"roughly_normal": sample(MoreOrLess(Tri(15, 30, 45)), SpeedMax),
		},
		wait: map[string]sampled{
			"short": sample(Trap(0, 0, 11, 22), WaitMax),
			"long":  sample(Gauss(67, 8), WaitMax),
		},
	}

	const (
		veryBad = iota
		bad
		acceptable
		good
		veryGood
	)
	c.outputs = []sampled{
		veryBad:    sample(Tri(5, 15, 25), flowMax),
		bad:        sample(Tri(20, 35, 50), flowMax),
		acceptable: sample(Tri(45, 55, 65), flowMax),
		good:       sample(Tri(60, 75, 85), flowMax),
		veryGood:   sample(Tri(80, 100, 100), flowMax),
	}

	c.rules = []rule{
		{func(in inputs) float64 { return math.Min(in.congHigh, in.slow) }, bad},
		{func(in inputs) float64 { return in.congVeryHigh }, veryBad},
		{func(in inputs) float64 { return math.Min(in.congLow, in.fast) }, good},
		{func(in inputs) float64 { return max3(in.waitLong, in.congHigh, in.congVeryHigh) }, bad},
		{func(in inputs) float64 {
			return math.Min(1-math.Max(in.congHigh, in.congVeryHigh), in.normal)
		}, acceptable},
		{func(in inputs) float64 {
			return math.Min(math.Max(in.congLow, in.congMedium), in.waitShort)
		}, good},
		{func(in inputs) float64 { return min3(in.congLow, in.waitShort, in.fast) }, veryGood},
		{func(in inputs) float64 { return in.roughlyNormal }, acceptable},
		{func(in inputs) float64 { return math.Min(in.fast, in.waitShort) }, good},
	}
	return c
}

// Evaluate returns the flow label for the given inputs. Inputs outside their
// universe are clipped.
func (c *Controller) Evaluate(congestion, speed, wait float64) facts.FlowLevel {
	return Label(c.Score(congestion, speed, wait))
}

// Score returns the defuzzified flow value in [0,100].
func (c *Controller) Score(congestion, speed, wait float64) float64 {
	congestion = clip(congestion, 0, CongestionMax)
	speed = clip(speed, 0, SpeedMax)
	wait = clip(wait, 0, WaitMax)

	in := inputs{
		congLow:       c.congestion["low"].at(congestion),
		congMedium:    c.congestion["medium"].at(congestion),
		congHigh:      c.congestion["high"].at(congestion),
		congVeryHigh:  c.congestion["very_high"].at(congestion),
		slow:          c.speed["slow"].at(speed),
		normal:        c.speed["normal"].at(speed),
		fast:          c.speed["fast"].at(speed),
		roughlyNormal: c.speed["roughly_normal"].at(speed),
		waitShort:     c.wait["short"].at(wait),
		waitLong:      c.wait["long"].at(wait),
	}

	// Rules sharing a consequent are OR-ed into one cut level.
	cuts := make([]float64, len(c.outputs))
	for _, r := range c.rules {
		cuts[r.output] = math.Max(cuts[r.output], r.strength(in))
	}

	xs := cutPoints(c.outputs, cuts)
	mus := make([]float64, len(xs))
	for i, x := range xs {
		for o, set := range c.outputs {
			mus[i] = math.Max(mus[i], math.Min(cuts[o], set.at(x)))
		}
	}
	v, ok := centroid(xs, mus)
	if !ok {
		return 50
	}
	return v
}

// cutPoints returns the integer points of the output universe plus every
// point where a consequent crosses its cut level, in ascending order.
func cutPoints(outputs []sampled, cuts []float64) []float64 {
	xs := make([]float64, 0, int(flowMax)+1)
	for i := 0; i <= int(flowMax); i++ {
		xs = append(xs, float64(i))
	}
	for o, set := range outputs {
		cut := cuts[o]
		if cut <= 0 || cut >= 1 {
			continue
		}
		for i := 0; i+1 < len(set); i++ {
			y1, y2 := set[i], set[i+1]
			if (y1 < cut) != (y2 < cut) && y1 != y2 {
				xs = append(xs, float64(i)+(cut-y1)/(y2-y1))
			}
		}
	}
	slices.Sort(xs)
	return slices.Compact(xs)
}

// centroid integrates the piecewise linear function through (xs, mus).
// It reports false when the area is zero.
func centroid(xs, mus []float64) (float64, bool) {
	var moments, area float64
	for i := 1; i < len(xs); i++ {
		x1, x2, y1, y2 := xs[i-1], xs[i], mus[i-1], mus[i]
		if (y1 == 0 && y2 == 0) || x1 == x2 {
			continue
		}
		var m, a float64
		switch {
		case y1 == y2:
			m, a = (x1+x2)/2, (x2-x1)*y1
		case y1 == 0:
			m, a = x1+2*(x2-x1)/3, (x2-x1)*y2/2
		case y2 == 0:
			m, a = x1+(x2-x1)/3, (x2-x1)*y1/2
		default:
			m = x1 + 2*(x2-x1)*(y2+y1/2)/(3*(y1+y2))
			a = (x2 - x1) * (y1 + y2) / 2
		}
		moments += m * a
		area += a
	}
	if area == 0 {
		return 0, false
	}
	return moments / area, true
}

// Label maps a defuzzified value to the flow scale.
func Label(v float64) facts.FlowLevel {
	switch {
	case v < 10:
		return facts.FlowNull
	case v < 20:
		return facts.FlowVeryBad
	case v < 40:
		return facts.FlowBad
	case v < 60:
		return facts.FlowAcceptable
	case v < 80:
		return facts.FlowGood
	default:
		return facts.FlowVeryGood
	}
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func max3(a, b, c float64) float64 { return math.Max(a, math.Max(b, c)) }
func min3(a, b, c float64) float64 { return math.Min(a, math.Min(b, c)) }
