package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

const runColumns = `id, graph, origin, destination, seed, found, route_id, minutes, distance_km, ways, firings, created_at`

// RecordRun stores a run. IDs must be unique.
func (s *sqlStore) RecordRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return fmt.Errorf("run id: %w", internalerr.ErrInvalidInput)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	ways, err := json.Marshal(r.Ways)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM runs WHERE id = ?`), r.ID).Scan(&one)
	switch {
	case err == nil:
		return fmt.Errorf("run %s: %w", r.ID, internalerr.ErrDuplicate)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	const stmt = `INSERT INTO runs (` + runColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.exec(ctx, tx, stmt,
		r.ID,
		r.Graph,
		r.From,
		r.To,
		strconv.FormatUint(r.Seed, 10),
		r.Found,
		r.RouteID,
		r.Minutes,
		r.DistanceKm,
		string(ways),
		r.Firings,
		formatTime(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return tx.Commit()
}

// GetRun returns a run by ID.
func (s *sqlStore) GetRun(ctx context.Context, id string) (store.Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)
	r, err := scanRun(row)
	if err != nil {
		return store.Run{}, notFound(err, "run "+id)
	}
	return r, nil
}

// ListRuns returns the newest runs first, optionally for one graph only.
func (s *sqlStore) ListRuns(ctx context.Context, graphName string, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = store.DefaultRunLimit
	}

	var (
		rows *sql.Rows
		err  error
	)
	// ULIDs sort by creation time.
	if graphName == "" {
		rows, err = s.db.QueryContext(ctx, s.rebind(
			`SELECT `+runColumns+` FROM runs ORDER BY id DESC LIMIT ?`), limit)
	} else {
		rows, err = s.db.QueryContext(ctx, s.rebind(
			`SELECT `+runColumns+` FROM runs WHERE graph = ? ORDER BY id DESC LIMIT ?`), graphName, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (store.Run, error) {
	var (
		r       store.Run
		seed    string
		ways    string
		created string
	)
	err := row.Scan(&r.ID, &r.Graph, &r.From, &r.To, &seed, &r.Found, &r.RouteID,
		&r.Minutes, &r.DistanceKm, &ways, &r.Firings, &created)
	if err != nil {
		return store.Run{}, err
	}
	if r.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return store.Run{}, fmt.Errorf("run %s seed: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(ways), &r.Ways); err != nil {
		return store.Run{}, fmt.Errorf("run %s ways: %w", r.ID, err)
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return store.Run{}, fmt.Errorf("run %s created_at: %w", r.ID, err)
	}
	return r, nil
}
