// Package sqlstore implements store.Store over database/sql, on SQLite
// (modernc.org/sqlite) or PostgreSQL (pgx).
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/cognicore/ruta/pkg/ruta/internalerr"
	"github.com/cognicore/ruta/pkg/ruta/store"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// sqlStore implements the Store interface over a SQL database.
type sqlStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// Open opens a store for driver "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (store.Store, error) {
	switch driver {
	case "sqlite":
		return OpenSQLite(ctx, dsn)
	case "postgres":
		return OpenPostgres(ctx, dsn)
	}
	return nil, fmt.Errorf("store driver %q: %w", driver, internalerr.ErrInvalidConfig)
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite %s: %v: %w", path, err, internalerr.ErrStoreUnavailable)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	return newStore(ctx, db, dialectSQLite)
}

// OpenPostgres connects to PostgreSQL through the pgx stdlib driver.
func OpenPostgres(ctx context.Context, databaseURL string) (store.Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify postgres connection: %v: %w", err, internalerr.ErrStoreUnavailable)
	}

	return newStore(ctx, db, dialectPostgres)
}

func newStore(ctx context.Context, db *sql.DB, d dialect) (store.Store, error) {
	s := &sqlStore{db: db, dialect: d, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS graphs (
	name TEXT PRIMARY KEY,
	updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS triples (
	graph TEXT NOT NULL,
	pos INTEGER NOT NULL,
	subject TEXT NOT NULL,
	predicate TEXT NOT NULL,
	kind TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY(graph, pos),
	FOREIGN KEY(graph) REFERENCES graphs(name) ON DELETE CASCADE
)`,
	`CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	graph TEXT NOT NULL,
	origin TEXT NOT NULL,
	destination TEXT NOT NULL,
	seed TEXT NOT NULL,
	found BOOLEAN NOT NULL,
	route_id INTEGER NOT NULL,
	minutes DOUBLE PRECISION NOT NULL,
	distance_km DOUBLE PRECISION NOT NULL,
	ways TEXT NOT NULL,
	firings INTEGER NOT NULL,
	created_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS runs_graph ON runs(graph)`,
}

// initSchema creates tables if they don't exist
func (s *sqlStore) initSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *sqlStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) exec(ctx context.Context, q execer, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, internalerr.ErrNotFound)
	}
	return err
}
