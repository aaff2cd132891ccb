package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cognicore/ruta/pkg/ruta/recommend"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

const sampleNetwork = "../../data/medellin.yaml"

func run(t *testing.T, args ...string) string {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("ruta %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestImportRecommendRuns(t *testing.T) {
	t.Setenv("RUTA_SEED", "")
	db := filepath.Join(t.TempDir(), "ruta.db")

	out := run(t, "import", "medellin", sampleNetwork, "--db", db)
	if !strings.HasPrefix(out, "imported medellin:") {
		t.Errorf("import output = %q", out)
	}

	out = run(t, "graphs", "--db", db)
	if !strings.HasPrefix(out, "medellin\t") {
		t.Errorf("graphs output = %q", out)
	}

	out = run(t, "recommend", "--db", db, "--graph", "medellin",
		"--from", "Universidad Nacional", "--to", "Estadio Atanasio Girardot", "--seed", "42", "-o", "json")
	var rec recommend.Recommendation
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("recommend json: %v\n%s", err, out)
	}
	if rec.From != "Universidad Nacional" || rec.To != "Estadio Atanasio Girardot" {
		t.Errorf("recommendation = %+v", rec)
	}

	out = run(t, "runs", "--db", db, "-o", "json")
	var runs []store.RunView
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("runs json: %v\n%s", err, out)
	}
	if len(runs) != 1 || runs[0].Graph != "medellin" || runs[0].Seed != 42 || runs[0].Found != rec.Found {
		t.Fatalf("runs = %+v", runs)
	}
	if rec.Found && (runs[0].RouteID == nil || *runs[0].RouteID != rec.RouteID) {
		t.Errorf("run route = %v, want %d", runs[0].RouteID, rec.RouteID)
	}
}

func TestRecommendFromFile(t *testing.T) {
	out := run(t, "recommend", "--network", sampleNetwork, "--from", "Universidad Nacional", "--to", "Estadio Atanasio Girardot")
	if !strings.HasPrefix(out, "Universidad Nacional -> Estadio Atanasio Girardot") {
		t.Errorf("text output = %q", out)
	}
}

func TestLandmarks(t *testing.T) {
	out := run(t, "landmarks", "--network", sampleNetwork)
	names := strings.Split(strings.TrimSpace(out), "\n")
	if len(names) != 7 || names[0] != "Biblioteca Publica Piloto" {
		t.Errorf("landmarks = %v", names)
	}
}

func TestRecommendUnknownLandmarkFails(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"recommend", "--network", sampleNetwork, "--from", "Nowhere", "--to", "Estadio Atanasio Girardot"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for unknown landmark")
	}
}

func TestStoreFor(t *testing.T) {
	if sc := storeFor("postgres://u@localhost/ruta"); sc.Driver != "postgres" {
		t.Errorf("postgres url -> %+v", sc)
	}
	if sc := storeFor("ruta.db"); sc.Driver != "sqlite" || sc.DSN != "ruta.db" {
		t.Errorf("file path -> %+v", sc)
	}
}

func TestVersion(t *testing.T) {
	if out := run(t, "version"); out != "ruta dev\n" {
		t.Errorf("version = %q", out)
	}
}
