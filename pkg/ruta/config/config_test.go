package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/ruta/pkg/ruta/facts"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/rules"
	"github.com/cognicore/ruta/pkg/ruta/translate"
)

const sampleNetwork = `
landmarks:
  - id: UNAL
    name: Universidad Nacional
    reaches: [1]
  - id: ESTADIO
    reaches: [3]
intersections: [1, 2, 3]
events:
  - id: ObraMenor
    type: Obra Menor
    duration: 360
ways:
  - id: Calle55
    name: Calle 55
    category: calle
    speed: 30
    length: 1.5
    bidirectional: true
    flow: Aceptable
    affected_by: [ObraMenor]
  - id: Carrera65
    name: Carrera 65
    category: carrera
    speed: 30
    length: 2
segments:
  - {from: 1, to: 2, way: Calle55}
  - {from: 2, to: 3, way: Carrera65}
lights:
  - {id: S1, way: Calle55, wait: 45}
routes:
  - number: 1
    ways: [Calle55, Carrera65]
    stops: [1, 2, 3]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.RuleConfig() != rules.DefaultConfig() {
		t.Errorf("rule config = %+v, want defaults", cfg.RuleConfig())
	}
	if cfg.Rules.MaxFirings != 0 {
		t.Errorf("max firings = %d, want 0 so the cap scales with the network", cfg.Rules.MaxFirings)
	}
	if cfg.Store.Driver != "memory" || cfg.Output.Format != "text" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "ruta.yaml", `
seed: 42
rules:
  prune_factor: 2.5
routes:
  generate: true
  max_routes: 5
store:
  driver: sqlite
  dsn: ruta.db
output:
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Seed != 42 || cfg.Rules.PruneFactor != 2.5 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Rules.LightWaitMax != 120 || cfg.Routes.MaxHops != 8 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !cfg.Routes.Generate || cfg.Limits().MaxRoutes != 5 {
		t.Errorf("routes = %+v", cfg.Routes)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"inverted congestion", "rules: {congestion_min: 80, congestion_max: 10}"},
		{"unknown driver", "store: {driver: mongo}"},
		{"sqlite without dsn", "store: {driver: sqlite}"},
		{"unknown format", "output: {format: xml}"},
		{"negative hops", "routes: {max_hops: -1}"},
		{"negative firing cap", "rules: {max_firings: -5}"},
		{"malformed", "rules: [1, 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/ruta.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestNetworkTranslates(t *testing.T) {
	g, err := ParseNetwork([]byte(sampleNetwork))
	if err != nil {
		t.Fatal(err)
	}
	fs, err := translate.Translate(g)
	if err != nil {
		t.Fatal(err)
	}

	counts := make(map[facts.Kind]int)
	var route facts.Route
	var calle facts.Way
	for _, f := range fs {
		counts[f.Kind()]++
		switch v := f.(type) {
		case facts.Route:
			route = v
		case facts.Way:
			if v.Name == "Calle 55" {
				calle = v
			}
		}
	}
	want := map[facts.Kind]int{
		facts.KindNode:         5,
		facts.KindWay:          2,
		facts.KindFlow:         1,
		facts.KindTrafficLight: 1,
		facts.KindEvent:        1,
		facts.KindRoute:        1,
	}
	for k, n := range want {
		if counts[k] != n {
			t.Errorf("%s facts = %d, want %d", k, counts[k], n)
		}
	}
	if route.Origin != "1" || route.Destination != "3" || len(route.Ways) != 2 {
		t.Errorf("route = %+v", route)
	}
	if calle.Category != facts.CategoryStreet || len(calle.AffectedBy) != 1 || calle.AffectedBy[0] != "Obra Menor" {
		t.Errorf("way = %+v", calle)
	}
}

func TestNetworkRejectsDanglingReferences(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"segment way", "intersections: [1, 2]\nsegments: [{from: 1, to: 2, way: Nope}]", internalerr.ErrNotFound},
		{"segment node", "intersections: [1]\nways: [{id: W, speed: 30, length: 1}]\nsegments: [{from: 1, to: 9, way: W}]", internalerr.ErrNotFound},
		{"light way", "lights: [{id: S, way: Nope, wait: 10}]", internalerr.ErrNotFound},
		{"landmark reach", "landmarks: [{id: L, reaches: [4]}]", internalerr.ErrNotFound},
		{"affected by", "ways: [{id: W, speed: 30, length: 1, affected_by: [Lluvia]}]", internalerr.ErrNotFound},
		{"duplicate way", "ways: [{id: W, speed: 30, length: 1}, {id: W, speed: 20, length: 1}]", internalerr.ErrDuplicate},
		{"malformed", "ways: {", internalerr.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseNetwork([]byte(tt.yaml)); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoader(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("empty loader should succeed: %v", err)
	}
	if comp.Config == nil || comp.Network != nil {
		t.Errorf("empty loader = %+v", comp)
	}

	loader := Loader{
		ConfigPath:  writeFile(t, "ruta.yaml", "seed: 7\n"),
		NetworkPath: writeFile(t, "network.yaml", sampleNetwork),
	}
	comp, err = loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if comp.Config.Seed != 7 || comp.Network == nil || comp.Network.Len() == 0 {
		t.Errorf("loaded = %+v", comp)
	}

	if _, err := (&Loader{NetworkPath: "/nonexistent/network.yaml"}).Load(); err == nil {
		t.Error("expected error for missing network")
	}
}
