package sqlstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/cognicore/ruta/pkg/ruta/graph"
	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

// SaveGraph replaces the graph stored under name.
func (s *sqlStore) SaveGraph(ctx context.Context, name string, triples []graph.Triple) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("graph name: %w", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsert = `
INSERT INTO graphs (name, updated_at) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET updated_at=excluded.updated_at`
	if _, err := s.exec(ctx, tx, upsert, name, formatTime(s.now())); err != nil {
		return fmt.Errorf("save graph %s: %w", name, err)
	}
	if _, err := s.exec(ctx, tx, `DELETE FROM triples WHERE graph = ?`, name); err != nil {
		return fmt.Errorf("save graph %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		`INSERT INTO triples (graph, pos, subject, predicate, kind, value) VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range triples {
		if _, err := stmt.ExecContext(ctx, name, i, t.Subject, t.Predicate, t.Object.Kind.String(), t.Object.Value); err != nil {
			return fmt.Errorf("save graph %s triple %d: %w", name, i, err)
		}
	}
	return tx.Commit()
}

// LoadGraph returns the triples of a stored graph in insertion order.
func (s *sqlStore) LoadGraph(ctx context.Context, name string) ([]graph.Triple, error) {
	var updated string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT updated_at FROM graphs WHERE name = ?`), name).Scan(&updated)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("graph %q", name))
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT subject, predicate, kind, value FROM triples WHERE graph = ? ORDER BY pos`), name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []graph.Triple
	for rows.Next() {
		var (
			t    graph.Triple
			kind string
		)
		if err := rows.Scan(&t.Subject, &t.Predicate, &kind, &t.Object.Value); err != nil {
			return nil, err
		}
		if t.Object.Kind, err = graph.ParseTermKind(kind); err != nil {
			return nil, fmt.Errorf("graph %q: %w", name, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListGraphs returns all stored graphs ordered by name.
func (s *sqlStore) ListGraphs(ctx context.Context) ([]store.GraphInfo, error) {
	const query = `
SELECT g.name, g.updated_at, COUNT(t.pos)
FROM graphs g LEFT JOIN triples t ON t.graph = g.name
GROUP BY g.name, g.updated_at
ORDER BY g.name`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.GraphInfo
	for rows.Next() {
		var (
			info    store.GraphInfo
			updated string
		)
		if err := rows.Scan(&info.Name, &updated, &info.Triples); err != nil {
			return nil, err
		}
		if info.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("graph %q updated_at: %w", info.Name, err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// DeleteGraph removes a stored graph and its triples.
func (s *sqlStore) DeleteGraph(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.exec(ctx, tx, `DELETE FROM triples WHERE graph = ?`, name); err != nil {
		return err
	}
	res, err := s.exec(ctx, tx, `DELETE FROM graphs WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("graph %q: %w", name, internalerr.ErrNotFound)
	}
	return tx.Commit()
}
