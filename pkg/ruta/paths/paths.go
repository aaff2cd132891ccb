// Package paths enumerates candidate routes between two landmarks over the
// intersection graph described by translated facts.
package paths

import (
	"fmt"
	"slices"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// Limits bound the enumeration.
type Limits struct {
	MaxHops   int // ways per route
	MaxRoutes int
}

// DefaultLimits returns the limits used when a field is zero.
func DefaultLimits() Limits {
	return Limits{MaxHops: 8, MaxRoutes: 20}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxHops <= 0 {
		l.MaxHops = d.MaxHops
	}
	if l.MaxRoutes <= 0 {
		l.MaxRoutes = d.MaxRoutes
	}
	return l
}

// Edge leads from one intersection to another along a way.
type Edge struct {
	From string
	To   string
	Way  string
}

// Graph is the directed intersection graph.
type Graph struct {
	Edges     map[string][]Edge
	landmarks map[string]facts.Node
}

// NewGraph builds the intersection graph. An edge A→B exists when B is in
// A.Intersects and one of A's ways reaches B; the way chosen is the
// lexicographically first such way.
func NewGraph(nodes []facts.Node, ways []facts.Way) *Graph {
	reaches := make(map[string][]string, len(ways))
	for _, w := range ways {
		reaches[w.Name] = w.ConnectsTo
	}

	g := &Graph{Edges: make(map[string][]Edge), landmarks: make(map[string]facts.Node)}
	for _, n := range nodes {
		if n.IsLandmark() {
			g.landmarks[n.Name] = n
			continue
		}
		candidates := slices.Clone(n.Ways)
		slices.Sort(candidates)
		seen := make(map[string]bool)
		for _, to := range n.Intersects {
			if seen[to] || to == n.ID {
				continue
			}
			seen[to] = true
			for _, way := range candidates {
				if slices.Contains(reaches[way], to) {
					g.Edges[n.ID] = append(g.Edges[n.ID], Edge{From: n.ID, To: to, Way: way})
					break
				}
			}
		}
	}
	return g
}

type partial struct {
	stops []string
	ways  []string
}

func (p partial) visited(id string) bool {
	return slices.Contains(p.stops, id)
}

// Routes returns simple paths from any intersection the origin landmark
// reaches to any the destination landmark reaches, shortest first. Routes
// are numbered from 1 in the order found.
func (g *Graph) Routes(from, to string, lim Limits) ([]facts.Route, error) {
	lim = lim.withDefaults()
	origin, ok := g.landmarks[from]
	if !ok {
		return nil, fmt.Errorf("origin %q: %w", from, internalerr.ErrUnknownLandmark)
	}
	dest, ok := g.landmarks[to]
	if !ok {
		return nil, fmt.Errorf("destination %q: %w", to, internalerr.ErrUnknownLandmark)
	}

	var queue []partial
	for _, start := range origin.Reaches {
		queue = append(queue, partial{stops: []string{start}})
	}

	var out []facts.Route
	for len(queue) > 0 && len(out) < lim.MaxRoutes {
		p := queue[0]
		queue = queue[1:]

		last := p.stops[len(p.stops)-1]
		if len(p.ways) > 0 && dest.ReachesIntersection(last) {
			out = append(out, facts.Route{
				ID:            len(out) + 1,
				Ways:          p.ways,
				Intersections: p.stops,
				Origin:        p.stops[0],
				Destination:   last,
			})
		}
		if len(p.ways) >= lim.MaxHops {
			continue
		}
		for _, e := range g.Edges[last] {
			if p.visited(e.To) {
				continue
			}
			queue = append(queue, partial{
				stops: append(slices.Clone(p.stops), e.To),
				ways:  append(slices.Clone(p.ways), e.Way),
			})
		}
	}
	return out, nil
}

// Enumerate builds the graph from nodes and ways and lists routes from the
// landmark named from to the landmark named to.
func Enumerate(nodes []facts.Node, ways []facts.Way, from, to string, lim Limits) ([]facts.Route, error) {
	return NewGraph(nodes, ways).Routes(from, to, lim)
}
