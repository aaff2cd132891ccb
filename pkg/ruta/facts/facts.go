package facts

import "strconv"

// Kind names a fact type. Each kind has exactly one identity field.
type Kind string

const (
	KindWay           Kind = "way"
	KindNode          Kind = "node"
	KindTrafficLight  Kind = "traffic_light"
	KindEvent         Kind = "event"
	KindRoute         Kind = "route"
	KindFlow          Kind = "flow"
	KindWayTime       Kind = "way_time"
	KindRouteTime     Kind = "route_time"
	KindRouteDistance Kind = "route_distance"
	KindGoal          Kind = "goal"
)

// Fact is a typed record held in working memory.
// Facts are values; updating one means declaring a replacement.
type Fact interface {
	Kind() Kind
	// Key is the identity of the fact within its kind.
	Key() string
}

// Way categories
const (
	CategoryStreet      = "calle"
	CategoryAvenue      = "avenida"
	CategoryHighway     = "autopista"
	CategoryCarrera     = "carrera"
	CategoryTransversal = "transversal"
)

// Way is a road that cars drive along.
type Way struct {
	Name          string
	Category      string
	AvgSpeed      float64 // km/h
	Length        float64 // km
	Bidirectional bool
	AffectedBy    []string // event types
	ConnectsTo    []string // intersections reached through this way
}

func (w Way) Kind() Kind  { return KindWay }
func (w Way) Key() string { return w.Name }

// NodeType distinguishes landmarks from intersections.
type NodeType string

const (
	NodeLandmark     NodeType = "landmark"
	NodeIntersection NodeType = "intersection"
)

// Node is either a named landmark or a numbered intersection.
type Node struct {
	ID   string // intersection number, empty for landmarks
	Type NodeType
	Name string // landmark name

	// Reaches lists the intersections directly reachable from a landmark.
	Reaches []string

	// Ways and Intersects describe an intersection's connections.
	Ways       []string
	Intersects []string
}

func (n Node) Kind() Kind { return KindNode }

func (n Node) Key() string {
	if n.Type == NodeLandmark {
		return n.Name
	}
	return n.ID
}

// IsLandmark reports whether the node is a landmark.
func (n Node) IsLandmark() bool { return n.Type == NodeLandmark }

// ReachesIntersection reports whether a landmark reaches the given intersection.
func (n Node) ReachesIntersection(id string) bool {
	return contains(n.Reaches, id)
}

// TrafficLight is the single light of a way.
type TrafficLight struct {
	Way  string
	Wait float64 // seconds
}

func (l TrafficLight) Kind() Kind  { return KindTrafficLight }
func (l TrafficLight) Key() string { return l.Way }

// Event is something happening on the road network.
type Event struct {
	Type         string
	Way          string // affected way, optional
	TotalClosure bool
	Duration     float64 // minutes
}

func (e Event) Kind() Kind  { return KindEvent }
func (e Event) Key() string { return e.Type }

// Affects reports whether the event applies to the way.
func (e Event) Affects(w Way) bool {
	if e.Way != "" && e.Way == w.Name {
		return true
	}
	return contains(w.AffectedBy, e.Type)
}

// Route is an ordered sequence of ways joining intersections.
// Intersections has one more element than Ways.
type Route struct {
	ID            int
	Ways          []string
	Intersections []string
	Origin        string
	Destination   string
}

func (r Route) Kind() Kind  { return KindRoute }
func (r Route) Key() string { return RouteKey(r.ID) }

// Uses reports whether the route goes through the way.
func (r Route) Uses(way string) bool {
	return contains(r.Ways, way)
}

// RouteKey formats a route number as an identity key.
func RouteKey(id int) string { return strconv.Itoa(id) }

// Flow is the qualitative traffic flow of a way.
type Flow struct {
	Way   string
	Level FlowLevel
}

func (f Flow) Kind() Kind  { return KindFlow }
func (f Flow) Key() string { return f.Way }

// WayTime is the running travel-time estimate of a way.
// The Applied flags record which adjustments have been made.
type WayTime struct {
	Way   string
	Hours float64

	LightApplied         bool
	EventApplied         bool
	FlowApplied          bool
	BidirectionalApplied bool
}

func (t WayTime) Kind() Kind  { return KindWayTime }
func (t WayTime) Key() string { return t.Way }

// RouteTime is the aggregate time of a route.
type RouteTime struct {
	Route int
	Hours float64
}

func (t RouteTime) Kind() Kind  { return KindRouteTime }
func (t RouteTime) Key() string { return RouteKey(t.Route) }

// RouteDistance is the aggregate length of a route.
type RouteDistance struct {
	Route int
	Km    float64
}

func (d RouteDistance) Kind() Kind  { return KindRouteDistance }
func (d RouteDistance) Key() string { return RouteKey(d.Route) }

// GoalKey is the identity of the singleton Goal fact.
const GoalKey = "goal"

// Goal is what the user asked for.
type Goal struct {
	From string
	To   string
}

func (g Goal) Kind() Kind  { return KindGoal }
func (g Goal) Key() string { return GoalKey }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
