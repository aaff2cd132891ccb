// Package translate turns a road-ontology graph into typed facts.
//
// Translation is strict: an instance of an unknown class, an unknown
// predicate on a known instance, or two values for a single-valued
// predicate abort the whole translation.
package translate

import (
	"fmt"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

type kind int

const (
	kindWay kind = iota + 1
	kindIntersection
	kindLandmark
	kindLight
	kindEvent
	kindRoute
)

var kindNames = map[kind]string{
	kindWay:          "way",
	kindIntersection: "intersection",
	kindLandmark:     "landmark",
	kindLight:        "traffic light",
	kindEvent:        "event",
	kindRoute:        "route",
}

// ignoredTypes mark schema subjects rather than instances.
var ignoredTypes = map[string]bool{
	graph.Class:    true,
	graph.Property: true,
	graph.Resource: true,
}

// predicates lists what each kind may carry and whether it repeats.
var predicates = map[kind]map[string]bool{
	kindWay: {
		graph.WayName:          false,
		graph.WayFlow:          false,
		graph.WayHasLight:      false,
		graph.WayLight:         false,
		graph.WayAffectedBy:    true,
		graph.WaySpeed:         false,
		graph.WayBidirectional: false,
		graph.WayLength:        false,
		graph.WayReaches:       true,
	},
	kindIntersection: {
		graph.NodeNumber:     false,
		graph.NodeIntersects: true,
		graph.NodeConnects:   true,
	},
	kindLandmark: {
		graph.LandmarkName: false,
		graph.NodeConnects: true,
	},
	kindLight: {
		graph.LightWait: false,
		graph.LightOn:   false,
	},
	kindEvent: {
		graph.EventType:     false,
		graph.EventDuration: false,
		graph.EventClosure:  false,
		graph.EventWay:      false,
	},
	kindRoute: {
		graph.RouteNumber:    false,
		graph.RouteWays:      false,
		graph.RouteStops:     false,
		graph.RouteDistance:  false,
		graph.RouteEstimated: false,
	},
}

// instance is one typed subject with its values grouped by predicate.
type instance struct {
	iri      string
	kind     kind
	category string
	values   map[string][]graph.Term
}

func (in *instance) one(pred string) (graph.Term, bool) {
	vs := in.values[pred]
	if len(vs) == 0 {
		return graph.Term{}, false
	}
	return vs[0], true
}

type translator struct {
	g         *graph.Graph
	instances []*instance
	byIRI     map[string]*instance
}

// Translate maps the instances of g to facts, in order of first appearance
// of their subjects. A way with a known flow is followed by its Flow fact.
func Translate(g *graph.Graph) ([]facts.Fact, error) {
	t := &translator{g: g, byIRI: make(map[string]*instance)}
	if err := t.collect(); err != nil {
		return nil, err
	}

	var out []facts.Fact
	lights := make(map[string]string)
	nodes := make(map[string]string)
	for _, in := range t.instances {
		fs, err := t.build(in)
		if err != nil {
			return nil, err
		}
		for _, f := range fs {
			if l, ok := f.(facts.TrafficLight); ok {
				if prev, dup := lights[l.Way]; dup {
					return nil, fmt.Errorf("way %q has lights %s and %s: %w", l.Way, prev, in.iri, internalerr.ErrMultiValued)
				}
				lights[l.Way] = in.iri
			}
			// Landmark names and intersection numbers share one identity space.
			if n, ok := f.(facts.Node); ok {
				if prev, dup := nodes[n.Key()]; dup {
					return nil, fmt.Errorf("%s and %s are both node %q: %w", prev, in.iri, n.Key(), internalerr.ErrDuplicate)
				}
				nodes[n.Key()] = in.iri
			}
			if err := facts.Validate(f); err != nil {
				return nil, fmt.Errorf("%s: %w", in.iri, err)
			}
		}
		out = append(out, fs...)
	}
	return out, nil
}

// collect classifies subjects and groups their values.
func (t *translator) collect() error {
	for _, subject := range t.g.Subjects() {
		k, category, err := t.classify(subject)
		if err != nil {
			return err
		}
		if k == 0 {
			continue
		}

		in := &instance{iri: subject, kind: k, category: category, values: make(map[string][]graph.Term)}
		allowed := predicates[k]
		for _, tr := range t.g.About(subject) {
			if tr.Predicate == graph.Type {
				continue
			}
			repeated, ok := allowed[tr.Predicate]
			if !ok {
				return fmt.Errorf("%s %s: predicate %s: %w", kindNames[k], subject, tr.Predicate, internalerr.ErrUnknownPredicate)
			}
			if !repeated && len(in.values[tr.Predicate]) > 0 {
				return fmt.Errorf("%s %s: predicate %s has values %s and %s: %w", kindNames[k], subject,
					tr.Predicate, in.values[tr.Predicate][0], tr.Object, internalerr.ErrMultiValued)
			}
			in.values[tr.Predicate] = append(in.values[tr.Predicate], tr.Object)
		}
		t.instances = append(t.instances, in)
		t.byIRI[subject] = in
	}
	return nil
}

// classify maps the rdf:type values of a subject to a kind through the
// class hierarchy. Subjects with no instance type yield kind 0.
func (t *translator) classify(subject string) (kind, string, error) {
	var (
		found    kind
		category string
	)
	for _, typ := range t.g.Objects(subject, graph.Type) {
		if typ.Kind != graph.KindIRI {
			return 0, "", fmt.Errorf("%s: rdf:type %s is a literal: %w", subject, typ, internalerr.ErrUnknownType)
		}
		if ignoredTypes[typ.Value] {
			continue
		}
		k, cat := kindOf(t.g.SuperClasses(typ.Value))
		if k == 0 {
			return 0, "", fmt.Errorf("%s: type %s: %w", subject, typ.Value, internalerr.ErrUnknownType)
		}
		if found != 0 && found != k {
			return 0, "", fmt.Errorf("%s is both %s and %s: %w", subject, kindNames[found], kindNames[k], internalerr.ErrMultiValued)
		}
		found = k
		if cat != "" {
			if category != "" && category != cat {
				return 0, "", fmt.Errorf("%s has categories %s and %s: %w", subject, category, cat, internalerr.ErrMultiValued)
			}
			category = cat
		}
	}
	return found, category, nil
}

func kindOf(classes []string) (kind, string) {
	var category string
	for _, c := range classes {
		if cat, ok := graph.WayClasses[c]; ok && category == "" {
			category = cat
		}
	}
	for _, c := range classes {
		switch c {
		case graph.ClassWay:
			return kindWay, category
		case graph.ClassIntersection:
			return kindIntersection, ""
		case graph.ClassLandmark:
			return kindLandmark, ""
		case graph.ClassLight:
			return kindLight, ""
		case graph.ClassEvent:
			return kindEvent, ""
		case graph.ClassRoute:
			return kindRoute, ""
		}
	}
	return 0, ""
}
