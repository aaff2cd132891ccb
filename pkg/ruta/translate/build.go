package translate

import (
	"fmt"
	"strconv"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

func (t *translator) build(in *instance) ([]facts.Fact, error) {
	switch in.kind {
	case kindWay:
		return t.way(in)
	case kindIntersection:
		return t.intersection(in)
	case kindLandmark:
		return t.landmark(in)
	case kindLight:
		return t.light(in)
	case kindEvent:
		return t.event(in)
	case kindRoute:
		return t.route(in)
	}
	return nil, fmt.Errorf("%s: %w", in.iri, internalerr.ErrUnknownType)
}

func (t *translator) way(in *instance) ([]facts.Fact, error) {
	w := facts.Way{Category: in.category}
	var err error
	if w.Name, err = stringOr(in, graph.WayName, graph.LocalName(in.iri)); err != nil {
		return nil, err
	}
	if w.AvgSpeed, err = number(in, graph.WaySpeed, true); err != nil {
		return nil, err
	}
	if w.Length, err = number(in, graph.WayLength, true); err != nil {
		return nil, err
	}
	if v, ok := in.one(graph.WayBidirectional); ok {
		if w.Bidirectional, err = v.AsBool(); err != nil {
			return nil, fmt.Errorf("%s %s: %w", in.iri, graph.WayBidirectional, err)
		}
	}
	if w.AffectedBy, err = t.refs(in, graph.WayAffectedBy, kindEvent); err != nil {
		return nil, err
	}
	if w.ConnectsTo, err = t.refs(in, graph.WayReaches, kindIntersection); err != nil {
		return nil, err
	}
	if v, ok := in.one(graph.WayLight); ok {
		if _, err := t.ref(in, graph.WayLight, v, kindLight); err != nil {
			return nil, err
		}
	}

	out := []facts.Fact{w}
	if v, ok := in.one(graph.WayFlow); ok {
		s, err := v.AsString()
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", in.iri, graph.WayFlow, err)
		}
		level, err := facts.ParseFlowLevel(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in.iri, err)
		}
		out = append(out, facts.Flow{Way: w.Name, Level: level})
	}
	return out, nil
}

func (t *translator) intersection(in *instance) ([]facts.Fact, error) {
	id, err := t.key(in)
	if err != nil {
		return nil, err
	}
	n := facts.Node{Type: facts.NodeIntersection, ID: id}
	if n.Ways, err = t.refs(in, graph.NodeConnects, kindWay); err != nil {
		return nil, err
	}
	if n.Intersects, err = t.refs(in, graph.NodeIntersects, kindIntersection); err != nil {
		return nil, err
	}
	return []facts.Fact{n}, nil
}

func (t *translator) landmark(in *instance) ([]facts.Fact, error) {
	n := facts.Node{Type: facts.NodeLandmark}
	var err error
	if n.Name, err = stringOr(in, graph.LandmarkName, graph.LocalName(in.iri)); err != nil {
		return nil, err
	}
	if n.Reaches, err = t.refs(in, graph.NodeConnects, kindIntersection); err != nil {
		return nil, err
	}
	return []facts.Fact{n}, nil
}

func (t *translator) light(in *instance) ([]facts.Fact, error) {
	wait, err := number(in, graph.LightWait, true)
	if err != nil {
		return nil, err
	}
	v, ok := in.one(graph.LightOn)
	if !ok {
		return nil, missing(in, graph.LightOn)
	}
	way, err := t.ref(in, graph.LightOn, v, kindWay)
	if err != nil {
		return nil, err
	}
	return []facts.Fact{facts.TrafficLight{Way: way, Wait: wait}}, nil
}

func (t *translator) event(in *instance) ([]facts.Fact, error) {
	e := facts.Event{}
	var err error
	if e.Type, err = stringOr(in, graph.EventType, graph.LocalName(in.iri)); err != nil {
		return nil, err
	}
	if e.Duration, err = number(in, graph.EventDuration, false); err != nil {
		return nil, err
	}
	if v, ok := in.one(graph.EventClosure); ok {
		if e.TotalClosure, err = v.AsBool(); err != nil {
			return nil, fmt.Errorf("%s %s: %w", in.iri, graph.EventClosure, err)
		}
	}
	if v, ok := in.one(graph.EventWay); ok {
		if e.Way, err = t.ref(in, graph.EventWay, v, kindWay); err != nil {
			return nil, err
		}
	}
	return []facts.Fact{e}, nil
}

func (t *translator) route(in *instance) ([]facts.Fact, error) {
	v, ok := in.one(graph.RouteNumber)
	if !ok {
		return nil, missing(in, graph.RouteNumber)
	}
	id, err := v.AsInt()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", in.iri, graph.RouteNumber, err)
	}
	r := facts.Route{ID: id}
	if r.Ways, err = t.list(in, graph.RouteWays, kindWay); err != nil {
		return nil, err
	}
	if r.Intersections, err = t.list(in, graph.RouteStops, kindIntersection); err != nil {
		return nil, err
	}
	if len(r.Intersections) > 0 {
		r.Origin = r.Intersections[0]
		r.Destination = r.Intersections[len(r.Intersections)-1]
	}
	return []facts.Fact{r}, nil
}

// list resolves an rdf list of references.
func (t *translator) list(in *instance, pred string, want kind) ([]string, error) {
	head, ok := in.one(pred)
	if !ok {
		return nil, missing(in, pred)
	}
	if head.Kind != graph.KindIRI {
		return nil, fmt.Errorf("%s %s: list head %s is a literal: %w", in.iri, pred, head, internalerr.ErrInvalidInput)
	}
	items, err := t.g.List(head.Value)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", in.iri, pred, err)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		key, err := t.ref(in, pred, item, want)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

// refs resolves every value of a repeated reference predicate.
func (t *translator) refs(in *instance, pred string, want kind) ([]string, error) {
	var out []string
	for _, v := range in.values[pred] {
		key, err := t.ref(in, pred, v, want)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

// ref resolves a reference to the identity key of the target fact.
func (t *translator) ref(in *instance, pred string, v graph.Term, want kind) (string, error) {
	if v.Kind != graph.KindIRI {
		return "", fmt.Errorf("%s %s: %s is not a reference: %w", in.iri, pred, v, internalerr.ErrInvalidInput)
	}
	target, ok := t.byIRI[v.Value]
	if !ok || target.kind != want {
		return "", fmt.Errorf("%s %s: no %s %s: %w", in.iri, pred, kindNames[want], v.Value, internalerr.ErrNotFound)
	}
	return t.key(target)
}

// key computes the identity a target instance will have as a fact.
func (t *translator) key(in *instance) (string, error) {
	switch in.kind {
	case kindWay:
		return stringOr(in, graph.WayName, graph.LocalName(in.iri))
	case kindEvent:
		return stringOr(in, graph.EventType, graph.LocalName(in.iri))
	case kindLandmark:
		return stringOr(in, graph.LandmarkName, graph.LocalName(in.iri))
	case kindIntersection:
		if v, ok := in.one(graph.NodeNumber); ok {
			num, err := v.AsInt()
			if err != nil {
				return "", fmt.Errorf("%s %s: %w", in.iri, graph.NodeNumber, err)
			}
			return strconv.Itoa(num), nil
		}
		return graph.LocalName(in.iri), nil
	}
	return in.iri, nil
}

func stringOr(in *instance, pred, fallback string) (string, error) {
	v, ok := in.one(pred)
	if !ok {
		return fallback, nil
	}
	s, err := v.AsString()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", in.iri, pred, err)
	}
	return s, nil
}

func number(in *instance, pred string, required bool) (float64, error) {
	v, ok := in.one(pred)
	if !ok {
		if required {
			return 0, missing(in, pred)
		}
		return 0, nil
	}
	f, err := v.AsFloat()
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", in.iri, pred, err)
	}
	return f, nil
}

func missing(in *instance, pred string) error {
	return fmt.Errorf("%s %s: missing %s: %w", kindNames[in.kind], in.iri, pred, internalerr.ErrInvalidInput)
}
