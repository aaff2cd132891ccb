package recommend

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
)

// NoRoute is the message rendered when nothing survives a run.
const NoRoute = "no route found"

// Output formats accepted by Render.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// RouteView is a surviving route with its aggregates.
type RouteView struct {
	Route facts.Route
	Hours float64
	Km    float64
}

// Stop is one intersection of the recommended route. Ways starts with the
// way the route arrives by.
type Stop struct {
	Intersection string   `json:"intersection"`
	Ways         []string `json:"ways"`
}

// Recommendation is the result of a run.
type Recommendation struct {
	Found      bool     `json:"found"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	RouteID    int      `json:"route,omitempty"`
	Hours      float64  `json:"hours,omitempty"`
	Minutes    float64  `json:"minutes,omitempty"`
	DistanceKm float64  `json:"distance_km,omitempty"`
	Ways       []string `json:"ways,omitempty"`
	Stops      []Stop   `json:"stops,omitempty"`
}

// MarshalJSON writes the route fields exactly when a route was found, so
// route 0 or a zero-length route keeps its values.
func (r Recommendation) MarshalJSON() ([]byte, error) {
	type view struct {
		Found      bool     `json:"found"`
		From       string   `json:"from,omitempty"`
		To         string   `json:"to,omitempty"`
		RouteID    *int     `json:"route,omitempty"`
		Hours      *float64 `json:"hours,omitempty"`
		Minutes    *float64 `json:"minutes,omitempty"`
		DistanceKm *float64 `json:"distance_km,omitempty"`
		Ways       []string `json:"ways,omitempty"`
		Stops      []Stop   `json:"stops,omitempty"`
	}
	v := view{Found: r.Found, From: r.From, To: r.To}
	if r.Found {
		v.RouteID, v.Hours, v.Minutes, v.DistanceKm = &r.RouteID, &r.Hours, &r.Minutes, &r.DistanceKm
		v.Ways, v.Stops = r.Ways, r.Stops
	}
	return json.Marshal(v)
}

// Extract picks the fastest route. The first route with the minimum time
// wins. nodes resolves intersection ids to their connected ways; a missing
// intersection yields a stop with only the route's own ways.
func Extract(routes []RouteView, nodes map[string]facts.Node) Recommendation {
	best := -1
	for i, rv := range routes {
		if best < 0 || rv.Hours < routes[best].Hours {
			best = i
		}
	}
	if best < 0 {
		return Recommendation{}
	}

	rv := routes[best]
	rec := Recommendation{
		Found:      true,
		RouteID:    rv.Route.ID,
		Hours:      rv.Hours,
		Minutes:    round2(rv.Hours * 60),
		DistanceKm: round2(rv.Km),
		Ways:       append([]string(nil), rv.Route.Ways...),
	}
	for i, id := range rv.Route.Intersections {
		rec.Stops = append(rec.Stops, Stop{
			Intersection: id,
			Ways:         arrivalFirst(nodes[id].Ways, arrivalWay(rv.Route, i)),
		})
	}
	return rec
}

// arrivalWay is the way that leads into the i-th intersection. The first
// intersection has no arrival, so the way leaving it is used.
func arrivalWay(r facts.Route, i int) string {
	if len(r.Ways) == 0 {
		return ""
	}
	if i == 0 {
		return r.Ways[0]
	}
	return r.Ways[i-1]
}

func arrivalFirst(ways []string, arrival string) []string {
	out := make([]string, 0, len(ways)+1)
	if arrival != "" {
		out = append(out, arrival)
	}
	for _, w := range ways {
		if w != arrival {
			out = append(out, w)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Render writes rec in the given format.
func Render(w io.Writer, rec Recommendation, format string) error {
	switch format {
	case "", FormatText:
		return renderText(w, rec)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	default:
		return fmt.Errorf("unknown format %q: %w", format, internalerr.ErrInvalidInput)
	}
}

func renderText(w io.Writer, rec Recommendation) error {
	if !rec.Found {
		_, err := fmt.Fprintln(w, NoRoute)
		return err
	}

	var sb strings.Builder
	if rec.From != "" || rec.To != "" {
		fmt.Fprintf(&sb, "%s -> %s\n", rec.From, rec.To)
	}
	fmt.Fprintf(&sb, "route %d: %.2f min, %.2f km\n", rec.RouteID, rec.Minutes, rec.DistanceKm)
	fmt.Fprintf(&sb, "ways: %s\n", strings.Join(rec.Ways, " -> "))
	sb.WriteString("stops:\n")
	for _, s := range rec.Stops {
		fmt.Fprintf(&sb, "  %s: %s\n", s.Intersection, strings.Join(s.Ways, ", "))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
