package store

import (
	"context"
	"time"

	"github.com/cognicore/ruta/pkg/ruta/graph"
)

// Store persists road-network graphs and the history of recommendation runs.
type Store interface {
	Close() error

	// Graphs
	SaveGraph(ctx context.Context, name string, triples []graph.Triple) error
	LoadGraph(ctx context.Context, name string) ([]graph.Triple, error)
	ListGraphs(ctx context.Context) ([]GraphInfo, error)
	DeleteGraph(ctx context.Context, name string) error

	// Runs
	RecordRun(ctx context.Context, r Run) error
	GetRun(ctx context.Context, id string) (Run, error)
	ListRuns(ctx context.Context, graphName string, limit int) ([]Run, error)
}

// GraphInfo summarizes a stored graph.
type GraphInfo struct {
	Name      string
	Triples   int
	UpdatedAt time.Time
}

// Run is one recommendation request and its outcome.
type Run struct {
	ID         string // ULID
	Graph      string
	From       string
	To         string
	Seed       uint64
	Found      bool
	RouteID    int
	Minutes    float64
	DistanceKm float64
	Ways       []string
	Firings    int
	CreatedAt  time.Time
}

// DefaultRunLimit is used when ListRuns gets a non-positive limit.
const DefaultRunLimit = 20
