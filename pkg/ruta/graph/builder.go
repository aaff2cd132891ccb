package graph

import "strconv"

// WaySpec describes a way instance.
type WaySpec struct {
	Name          string
	Category      string  // calle, avenida, autopista, carrera, transversal
	Speed         float64 // km/h
	Length        float64 // km
	Bidirectional bool
	Flow          string // optional known flow level
}

// EventSpec describes an event instance.
type EventSpec struct {
	Type         string
	Way          string // optional IRI of the affected way
	TotalClosure bool
	Duration     float64 // minutes
}

// Builder writes road-network instances into a graph that already holds
// the ontology schema.
type Builder struct {
	g *Graph
}

// NewBuilder starts a graph with the schema declared.
func NewBuilder() *Builder {
	b := &Builder{g: New()}
	b.schema()
	return b
}

// Graph returns the built graph.
func (b *Builder) Graph() *Graph { return b.g }

func (b *Builder) schema() {
	classes := []string{
		ClassWay, ClassNode, ClassLight, ClassEvent, ClassRoute, ClassIntersection, ClassLandmark,
		ClassStreet, ClassAvenue, ClassHighway, ClassCarrera, ClassTransversal,
	}
	for _, c := range classes {
		b.g.Add(c, Type, IRI(Class))
	}
	b.g.Add(ClassIntersection, SubClassOf, IRI(ClassNode))
	b.g.Add(ClassLandmark, SubClassOf, IRI(ClassNode))
	for _, c := range []string{ClassStreet, ClassAvenue, ClassHighway, ClassCarrera, ClassTransversal} {
		b.g.Add(c, SubClassOf, IRI(ClassWay))
	}

	props := []struct{ name, domain string }{
		{WayName, ClassWay},
		{WayFlow, ClassWay},
		{WayHasLight, ClassWay},
		{WayLight, ClassWay},
		{WayAffectedBy, ClassWay},
		{WaySpeed, ClassWay},
		{WayBidirectional, ClassWay},
		{WayLength, ClassWay},
		{WayReaches, ClassWay},
		{LightWait, ClassLight},
		{LightOn, ClassLight},
		{EventType, ClassEvent},
		{EventDuration, ClassEvent},
		{EventClosure, ClassEvent},
		{EventWay, ClassEvent},
		{NodeNumber, ClassNode},
		{NodeIntersects, ClassIntersection},
		{NodeConnects, ClassNode},
		{LandmarkName, ClassLandmark},
		{RouteWays, ClassRoute},
		{RouteStops, ClassRoute},
		{RouteDistance, ClassRoute},
		{RouteEstimated, ClassRoute},
	}
	for _, p := range props {
		b.g.Add(p.name, Type, IRI(Property))
		b.g.Add(p.name, Domain, IRI(p.domain))
	}
}

// ClassFor returns the way class of a category, ruta:Via when unknown.
func ClassFor(category string) string {
	for class, c := range WayClasses {
		if c == category {
			return class
		}
	}
	return ClassWay
}

// Landmark adds a named landmark that reaches the given intersections.
func (b *Builder) Landmark(iri, name string, reaches ...string) *Builder {
	b.g.Add(iri, Type, IRI(ClassLandmark))
	b.g.Add(iri, LandmarkName, String(name))
	for _, r := range reaches {
		b.g.Add(iri, NodeConnects, IRI(r))
	}
	return b
}

// Intersection adds a numbered intersection.
func (b *Builder) Intersection(iri string, number int) *Builder {
	b.g.Add(iri, Type, IRI(ClassIntersection))
	b.g.Add(iri, NodeNumber, Int(number))
	return b
}

// Way adds a way.
func (b *Builder) Way(iri string, w WaySpec) *Builder {
	b.g.Add(iri, Type, IRI(ClassFor(w.Category)))
	b.g.Add(iri, WayName, String(w.Name))
	b.g.Add(iri, WaySpeed, Float(w.Speed))
	b.g.Add(iri, WayLength, Float(w.Length))
	b.g.Add(iri, WayBidirectional, Bool(w.Bidirectional))
	if w.Flow != "" {
		b.g.Add(iri, WayFlow, String(w.Flow))
	}
	return b
}

// Intersect records that from meets to through way: from connects to the
// way and the way leads to to.
func (b *Builder) Intersect(from, to, way string) *Builder {
	b.g.Add(from, NodeIntersects, IRI(to))
	b.g.Add(from, NodeConnects, IRI(way))
	b.g.Add(way, WayReaches, IRI(to))
	return b
}

// Light adds the traffic light of a way.
func (b *Builder) Light(iri, way string, wait float64) *Builder {
	b.g.Add(iri, Type, IRI(ClassLight))
	b.g.Add(iri, LightWait, Float(wait))
	b.g.Add(iri, LightOn, IRI(way))
	b.g.Add(way, WayLight, IRI(iri))
	b.g.Add(way, WayHasLight, Bool(true))
	return b
}

// Event adds an event.
func (b *Builder) Event(iri string, e EventSpec) *Builder {
	b.g.Add(iri, Type, IRI(ClassEvent))
	b.g.Add(iri, EventType, String(e.Type))
	b.g.Add(iri, EventDuration, Float(e.Duration))
	b.g.Add(iri, EventClosure, Bool(e.TotalClosure))
	if e.Way != "" {
		b.g.Add(iri, EventWay, IRI(e.Way))
	}
	return b
}

// AffectedBy marks a way as affected by events of the given event's type.
func (b *Builder) AffectedBy(way, event string) *Builder {
	b.g.Add(way, WayAffectedBy, IRI(event))
	return b
}

// Route adds a candidate route. stops lists the intersections in travel
// order and has one more element than ways.
func (b *Builder) Route(iri string, number int, ways, stops []string) *Builder {
	b.g.Add(iri, Type, IRI(ClassRoute))
	b.g.Add(iri, RouteNumber, Int(number))
	b.g.Add(iri, RouteWays, IRI(b.list(iri+"#ways", ways)))
	b.g.Add(iri, RouteStops, IRI(b.list(iri+"#stops", stops)))
	return b
}

// list writes items as an rdf list and returns its head.
func (b *Builder) list(prefix string, items []string) string {
	if len(items) == 0 {
		return Nil
	}
	cell := func(i int) string { return prefix + "-" + strconv.Itoa(i) }
	for i, item := range items {
		b.g.Add(cell(i), First, IRI(item))
		next := Nil
		if i+1 < len(items) {
			next = cell(i + 1)
		}
		b.g.Add(cell(i), Rest, IRI(next))
	}
	return cell(0)
}
