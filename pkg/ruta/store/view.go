package store

import "time"

// RunView is the JSON form of a Run. Route fields are present exactly when
// a route was found, so a real zero survives encoding.
type RunView struct {
	ID         string   `json:"id"`
	Graph      string   `json:"graph"`
	From       string   `json:"from"`
	To         string   `json:"to"`
	Seed       uint64   `json:"seed"`
	Found      bool     `json:"found"`
	RouteID    *int     `json:"route_id,omitempty"`
	Minutes    *float64 `json:"minutes,omitempty"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	Ways       []string `json:"ways,omitempty"`
	Firings    int      `json:"firings"`
	CreatedAt  string   `json:"created_at"`
}

// View converts a run for JSON output.
func (r Run) View() RunView {
	v := RunView{
		ID:        r.ID,
		Graph:     r.Graph,
		From:      r.From,
		To:        r.To,
		Seed:      r.Seed,
		Found:     r.Found,
		Firings:   r.Firings,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
	if r.Found {
		v.RouteID, v.Minutes, v.DistanceKm = &r.RouteID, &r.Minutes, &r.DistanceKm
		v.Ways = r.Ways
	}
	return v
}

// GraphView is the JSON form of a GraphInfo.
type GraphView struct {
	Name      string `json:"name"`
	Triples   int    `json:"triples"`
	UpdatedAt string `json:"updated_at"`
}

// View converts graph metadata for JSON output.
func (g GraphInfo) View() GraphView {
	return GraphView{Name: g.Name, Triples: g.Triples, UpdatedAt: g.UpdatedAt.Format(time.RFC3339)}
}
