package store

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestRunViewKeepsZeroRouteFields(t *testing.T) {
	created := time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	found := Run{ID: "r1", Found: true, RouteID: 0, DistanceKm: 0, Ways: []string{"A"}, CreatedAt: created}
	data, err := json.Marshal(found.View())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"route_id":0`, `"minutes":0`, `"distance_km":0`, `"created_at":"2026-05-04T08:00:00Z"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("%s missing from %s", want, data)
		}
	}

	data, err = json.Marshal(Run{ID: "r2", RouteID: 3, Minutes: 9}.View())
	if err != nil {
		t.Fatal(err)
	}
	for _, field := range []string{"route_id", "minutes", "distance_km", "ways"} {
		if strings.Contains(string(data), field) {
			t.Errorf("run without a route carries %s: %s", field, data)
		}
	}
}

func TestGraphView(t *testing.T) {
	v := GraphInfo{Name: "demo", Triples: 12, UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}.View()
	if v.Name != "demo" || v.Triples != 12 || v.UpdatedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("view = %+v", v)
	}
}
