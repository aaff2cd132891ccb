package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// Network is the YAML description of a road network.
type Network struct {
	Landmarks     []LandmarkEntry `yaml:"landmarks"`
	Intersections []int           `yaml:"intersections"`
	Ways          []WayEntry      `yaml:"ways"`
	Segments      []SegmentEntry  `yaml:"segments"`
	Lights        []LightEntry    `yaml:"lights"`
	Events        []EventEntry    `yaml:"events"`
	Routes        []RouteEntry    `yaml:"routes"`
}

// LandmarkEntry is a named place reaching some intersections.
type LandmarkEntry struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Reaches []int  `yaml:"reaches"`
}

// WayEntry describes a way.
type WayEntry struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Category      string   `yaml:"category"`
	Speed         float64  `yaml:"speed"`
	Length        float64  `yaml:"length"`
	Bidirectional bool     `yaml:"bidirectional"`
	Flow          string   `yaml:"flow"`
	AffectedBy    []string `yaml:"affected_by"`
}

// SegmentEntry says intersection From meets To along Way.
type SegmentEntry struct {
	From int    `yaml:"from"`
	To   int    `yaml:"to"`
	Way  string `yaml:"way"`
}

// LightEntry is the traffic light of a way.
type LightEntry struct {
	ID   string  `yaml:"id"`
	Way  string  `yaml:"way"`
	Wait float64 `yaml:"wait"`
}

// EventEntry describes an event.
type EventEntry struct {
	ID       string  `yaml:"id"`
	Type     string  `yaml:"type"`
	Way      string  `yaml:"way"`
	Closure  bool    `yaml:"closure"`
	Duration float64 `yaml:"duration"`
}

// RouteEntry is an explicit candidate route.
type RouteEntry struct {
	Number int      `yaml:"number"`
	Ways   []string `yaml:"ways"`
	Stops  []int    `yaml:"stops"`
}

// LoadNetwork reads a YAML network file into a graph.
func LoadNetwork(path string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseNetwork(data)
}

// ParseNetwork decodes a YAML network and builds its graph.
func ParseNetwork(data []byte) (*graph.Graph, error) {
	var n Network
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("parse network: %v: %w", err, internalerr.ErrInvalidInput)
	}
	return n.Graph()
}

func iri(id string) string { return graph.Ruta + id }

func intersectionIRI(n int) string { return graph.Ruta + "I" + strconv.Itoa(n) }

// Graph builds the ontology graph of the network. References to undeclared
// ways, events or intersections are rejected.
func (n *Network) Graph() (*graph.Graph, error) {
	if err := n.check(); err != nil {
		return nil, err
	}

	b := graph.NewBuilder()
	for _, num := range n.Intersections {
		b.Intersection(intersectionIRI(num), num)
	}
	for _, l := range n.Landmarks {
		reaches := make([]string, len(l.Reaches))
		for i, r := range l.Reaches {
			reaches[i] = intersectionIRI(r)
		}
		name := l.Name
		if name == "" {
			name = l.ID
		}
		b.Landmark(iri(l.ID), name, reaches...)
	}
	for _, e := range n.Events {
		spec := graph.EventSpec{Type: e.Type, TotalClosure: e.Closure, Duration: e.Duration}
		if spec.Type == "" {
			spec.Type = e.ID
		}
		if e.Way != "" {
			spec.Way = iri(e.Way)
		}
		b.Event(iri(e.ID), spec)
	}
	for _, w := range n.Ways {
		name := w.Name
		if name == "" {
			name = w.ID
		}
		b.Way(iri(w.ID), graph.WaySpec{
			Name:          name,
			Category:      w.Category,
			Speed:         w.Speed,
			Length:        w.Length,
			Bidirectional: w.Bidirectional,
			Flow:          w.Flow,
		})
		for _, ev := range w.AffectedBy {
			b.AffectedBy(iri(w.ID), iri(ev))
		}
	}
	for _, s := range n.Segments {
		b.Intersect(intersectionIRI(s.From), intersectionIRI(s.To), iri(s.Way))
	}
	for _, l := range n.Lights {
		b.Light(iri(l.ID), iri(l.Way), l.Wait)
	}
	for _, r := range n.Routes {
		ways := make([]string, len(r.Ways))
		for i, w := range r.Ways {
			ways[i] = iri(w)
		}
		stops := make([]string, len(r.Stops))
		for i, s := range r.Stops {
			stops[i] = intersectionIRI(s)
		}
		b.Route(iri("R"+strconv.Itoa(r.Number)), r.Number, ways, stops)
	}
	return b.Graph(), nil
}

func (n *Network) check() error {
	ways := make(map[string]bool, len(n.Ways))
	for _, w := range n.Ways {
		if w.ID == "" {
			return fmt.Errorf("way without id: %w", internalerr.ErrInvalidInput)
		}
		if ways[w.ID] {
			return fmt.Errorf("way %s: %w", w.ID, internalerr.ErrDuplicate)
		}
		ways[w.ID] = true
	}
	events := make(map[string]bool, len(n.Events))
	for _, e := range n.Events {
		if e.ID == "" {
			return fmt.Errorf("event without id: %w", internalerr.ErrInvalidInput)
		}
		events[e.ID] = true
	}
	nodes := make(map[int]bool, len(n.Intersections))
	for _, num := range n.Intersections {
		nodes[num] = true
	}

	needWay := func(ctx, id string) error {
		if !ways[id] {
			return fmt.Errorf("%s: unknown way %q: %w", ctx, id, internalerr.ErrNotFound)
		}
		return nil
	}
	needNode := func(ctx string, num int) error {
		if !nodes[num] {
			return fmt.Errorf("%s: unknown intersection %d: %w", ctx, num, internalerr.ErrNotFound)
		}
		return nil
	}

	for _, l := range n.Landmarks {
		for _, r := range l.Reaches {
			if err := needNode("landmark "+l.ID, r); err != nil {
				return err
			}
		}
	}
	for _, w := range n.Ways {
		for _, ev := range w.AffectedBy {
			if !events[ev] {
				return fmt.Errorf("way %s: unknown event %q: %w", w.ID, ev, internalerr.ErrNotFound)
			}
		}
	}
	for _, s := range n.Segments {
		ctx := fmt.Sprintf("segment %d-%d", s.From, s.To)
		if err := needWay(ctx, s.Way); err != nil {
			return err
		}
		if err := needNode(ctx, s.From); err != nil {
			return err
		}
		if err := needNode(ctx, s.To); err != nil {
			return err
		}
	}
	for _, l := range n.Lights {
		if err := needWay("light "+l.ID, l.Way); err != nil {
			return err
		}
	}
	for _, e := range n.Events {
		if e.Way != "" {
			if err := needWay("event "+e.ID, e.Way); err != nil {
				return err
			}
		}
	}
	for _, r := range n.Routes {
		ctx := fmt.Sprintf("route %d", r.Number)
		for _, w := range r.Ways {
			if err := needWay(ctx, w); err != nil {
				return err
			}
		}
		for _, s := range r.Stops {
			if err := needNode(ctx, s); err != nil {
				return err
			}
		}
	}
	return nil
}
