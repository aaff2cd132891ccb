package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

type storedGraph struct {
	triples   []graph.Triple
	updatedAt time.Time
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]storedGraph
	runs   map[string]store.Run
	now    func() time.Time
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		graphs: make(map[string]storedGraph),
		runs:   make(map[string]store.Run),
		now:    time.Now,
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SaveGraph replaces the graph stored under name.
func (s *Store) SaveGraph(ctx context.Context, name string, triples []graph.Triple) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("graph name: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.graphs[name] = storedGraph{triples: slices.Clone(triples), updatedAt: s.now().UTC()}
	return nil
}

// LoadGraph returns the triples of a stored graph in insertion order.
func (s *Store) LoadGraph(ctx context.Context, name string) ([]graph.Triple, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.graphs[name]
	if !ok {
		return nil, fmt.Errorf("graph %q: %w", name, internalerr.ErrNotFound)
	}
	return slices.Clone(g.triples), nil
}

// ListGraphs returns all stored graphs ordered by name.
func (s *Store) ListGraphs(ctx context.Context) ([]store.GraphInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.GraphInfo, 0, len(s.graphs))
	for name, g := range s.graphs {
		out = append(out, store.GraphInfo{Name: name, Triples: len(g.triples), UpdatedAt: g.updatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteGraph removes a stored graph. Runs that reference it are kept.
func (s *Store) DeleteGraph(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graphs[name]; !ok {
		return fmt.Errorf("graph %q: %w", name, internalerr.ErrNotFound)
	}
	delete(s.graphs, name)
	return nil
}

// RecordRun stores a run. IDs must be unique.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id: %w", internalerr.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[r.ID]; ok {
		return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrDuplicate)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	s.runs[r.ID] = copyRun(r)
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return store.Run{}, fmt.Errorf("run %s: %w", id, internalerr.ErrNotFound)
	}
	return copyRun(r), nil
}

// ListRuns returns the newest runs first, optionally for one graph only.
func (s *Store) ListRuns(ctx context.Context, graphName string, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = store.DefaultRunLimit
	}

	var out []store.Run
	for _, r := range s.runs {
		if graphName != "" && r.Graph != graphName {
			continue
		}
		out = append(out, copyRun(r))
	}
	// ULIDs sort by creation time.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyRun(r store.Run) store.Run {
	r.Ways = slices.Clone(r.Ways)
	return r
}
