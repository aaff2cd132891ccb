// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("GraphRoundTrip", func(t *testing.T) { testGraphRoundTrip(t, open(t)) })
	t.Run("GraphReplace", func(t *testing.T) { testGraphReplace(t, open(t)) })
	t.Run("GraphMissing", func(t *testing.T) { testGraphMissing(t, open(t)) })
	t.Run("RunRoundTrip", func(t *testing.T) { testRunRoundTrip(t, open(t)) })
	t.Run("RunOrderAndFilter", func(t *testing.T) { testRunOrderAndFilter(t, open(t)) })
	t.Run("RunDuplicate", func(t *testing.T) { testRunDuplicate(t, open(t)) })
}

func sampleTriples() []graph.Triple {
	b := graph.NewBuilder()
	b.Landmark("ruta:UNAL", "Universidad Nacional", "ruta:I5")
	b.Intersection("ruta:I5", 5)
	b.Way("ruta:Calle55", graph.WaySpec{Name: "Calle 55", Category: "calle", Speed: 30, Length: 1.25, Bidirectional: true})
	b.Route("ruta:R1", 1, []string{"ruta:Calle55"}, []string{"ruta:I5", "ruta:I6"})
	return b.Graph().Triples()
}

func testGraphRoundTrip(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()
	want := sampleTriples()

	if err := s.SaveGraph(ctx, "medellin", want); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadGraph(ctx, "medellin")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip lost triples or order: got %d, want %d", len(got), len(want))
	}

	infos, err := s.ListGraphs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 1 || infos[0].Name != "medellin" || infos[0].Triples != len(want) {
		t.Errorf("graphs = %+v", infos)
	}
	if infos[0].UpdatedAt.IsZero() {
		t.Error("updated_at not set")
	}
}

func testGraphReplace(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	if err := s.SaveGraph(ctx, "g", sampleTriples()); err != nil {
		t.Fatal(err)
	}
	small := []graph.Triple{{Subject: "ruta:A", Predicate: graph.WayName, Object: graph.String("A")}}
	if err := s.SaveGraph(ctx, "g", small); err != nil {
		t.Fatal(err)
	}
	got, err := s.LoadGraph(ctx, "g")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, small) {
		t.Errorf("replace: got %v", got)
	}

	if err := s.DeleteGraph(ctx, "g"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadGraph(ctx, "g"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("after delete: %v", err)
	}
}

func testGraphMissing(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	if _, err := s.LoadGraph(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("load: %v", err)
	}
	if err := s.DeleteGraph(ctx, "nope"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("delete: %v", err)
	}
	if err := s.SaveGraph(ctx, " ", nil); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("blank name: %v", err)
	}
}

func testRunRoundTrip(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	want := store.Run{
		ID:         "01J0000000000000000000000A",
		Graph:      "medellin",
		From:       "Universidad Nacional",
		To:         "Estadio",
		Seed:       1<<63 + 5,
		Found:      true,
		RouteID:    3,
		Minutes:    13.2,
		DistanceKm: 4.5,
		Ways:       []string{"Calle 55", "Carrera 65"},
		Firings:    41,
		CreatedAt:  time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}
	if err := s.RecordRun(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRun(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("run = %+v\nwant %+v", got, want)
	}

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("missing run: %v", err)
	}
}

func testRunOrderAndFilter(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	ids := []string{"01J000000000000000000000A1", "01J000000000000000000000A3", "01J000000000000000000000A2"}
	graphs := []string{"a", "b", "a"}
	for i, id := range ids {
		if err := s.RecordRun(ctx, store.Run{ID: id, Graph: graphs[i], From: "x", To: "y"}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != ids[1] || all[2].ID != ids[0] {
		t.Errorf("order = %v", runIDs(all))
	}
	if all[0].CreatedAt.IsZero() {
		t.Error("created_at not defaulted")
	}

	onlyA, _ := s.ListRuns(ctx, "a", 0)
	if len(onlyA) != 2 || onlyA[0].ID != ids[2] {
		t.Errorf("filtered = %v", runIDs(onlyA))
	}
	limited, _ := s.ListRuns(ctx, "", 1)
	if len(limited) != 1 {
		t.Errorf("limit 1 returned %d runs", len(limited))
	}
}

func testRunDuplicate(t *testing.T, s store.Store) {
	defer s.Close()
	ctx := context.Background()

	r := store.Run{ID: "01J000000000000000000000B1", Graph: "g"}
	if err := s.RecordRun(ctx, r); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordRun(ctx, r); !errors.Is(err, internalerr.ErrDuplicate) {
		t.Errorf("duplicate: %v", err)
	}
	if err := s.RecordRun(ctx, store.Run{}); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("empty id: %v", err)
	}
}

func runIDs(rs []store.Run) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
