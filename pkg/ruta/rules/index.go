package rules

import (
	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/inference"
)

// routeIndex maps way names to the routes that use them, in declaration
// order. It follows working memory as an observer, so a retracted route
// leaves every entry in the same call.
type routeIndex struct {
	byWay map[string][]int
}

func newRouteIndex() *routeIndex {
	return &routeIndex{byWay: make(map[string][]int)}
}

// routes returns a copy of the route ids that use way.
func (x *routeIndex) routes(way string) []int {
	return append([]int(nil), x.byWay[way]...)
}

func (x *routeIndex) Asserted(_ inference.Handle, f facts.Fact) {
	if r, ok := f.(facts.Route); ok {
		x.add(r)
	}
}

func (x *routeIndex) Retracted(_ inference.Handle, f facts.Fact) {
	if r, ok := f.(facts.Route); ok {
		x.remove(r)
	}
}

func (x *routeIndex) Modified(_, _ inference.Handle, before, after facts.Fact) {
	if r, ok := before.(facts.Route); ok {
		x.remove(r)
	}
	if r, ok := after.(facts.Route); ok {
		x.add(r)
	}
}

func (x *routeIndex) add(r facts.Route) {
	seen := make(map[string]bool, len(r.Ways))
	for _, w := range r.Ways {
		if seen[w] {
			continue
		}
		seen[w] = true
		x.byWay[w] = append(x.byWay[w], r.ID)
	}
}

func (x *routeIndex) remove(r facts.Route) {
	for _, w := range r.Ways {
		ids := x.byWay[w]
		for i, id := range ids {
			if id == r.ID {
				ids = append(ids[:i], ids[i+1:]...)
				break
			}
		}
		if len(ids) == 0 {
			delete(x.byWay, w)
		} else {
			x.byWay[w] = ids
		}
	}
}

// distanceFloor follows the shortest route distance in memory. Retracting
// the current minimum marks it stale; the next read rescans.
type distanceFloor struct {
	km    float64
	n     int
	stale bool
}

func (x *distanceFloor) shortest(ctx *inference.Context) float64 {
	if x.stale {
		x.km, x.stale = 0, false
		first := true
		ctx.Each(facts.KindRouteDistance, func(_ inference.Handle, f facts.Fact) bool {
			if km := f.(facts.RouteDistance).Km; first || km < x.km {
				x.km, first = km, false
			}
			return true
		})
	}
	if x.n == 0 {
		return -1
	}
	return x.km
}

func (x *distanceFloor) Asserted(_ inference.Handle, f facts.Fact) {
	if d, ok := f.(facts.RouteDistance); ok {
		x.add(d.Km)
	}
}

func (x *distanceFloor) Retracted(_ inference.Handle, f facts.Fact) {
	if d, ok := f.(facts.RouteDistance); ok {
		x.drop(d.Km)
	}
}

func (x *distanceFloor) Modified(_, _ inference.Handle, before, after facts.Fact) {
	if d, ok := before.(facts.RouteDistance); ok {
		x.drop(d.Km)
	}
	if d, ok := after.(facts.RouteDistance); ok {
		x.add(d.Km)
	}
}

func (x *distanceFloor) add(km float64) {
	x.n++
	if !x.stale && (x.n == 1 || km < x.km) {
		x.km = km
	}
}

func (x *distanceFloor) drop(km float64) {
	x.n--
	if km <= x.km {
		x.stale = true
	}
}
