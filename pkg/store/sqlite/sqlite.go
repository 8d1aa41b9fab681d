// Package sqlite provides a [store.KV] in a local SQLite file, using the pure
// Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/gulley/versify/pkg/store"
)

// DriverName is the database/sql driver the store opens.
const DriverName = "sqlite"

const ddlEntries = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key         TEXT     PRIMARY KEY,
    value       TEXT     NOT NULL,
    updated_at  INTEGER  NOT NULL DEFAULT (unixepoch())
)`

var _ store.KV = (*Store)(nil)

// Store is a [store.KV] over a single SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %s: %w", path, err)
	}
	// One writer at a time; this also keeps ":memory:" to a single database.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA busy_timeout = 5000", ddlEntries} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite store: init %s: %w", path, err)
		}
	}
	return &Store{db: db}, nil
}

// Get implements [store.KV].
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite store: get %q: %w", key, wrap(err))
	}
	return v, true, nil
}

// Set implements [store.KV].
func (s *Store) Set(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES (?, ?, unixepoch())
		ON CONFLICT (key) DO UPDATE
		    SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("sqlite store: set %q: %w", key, wrap(err))
	}
	return nil
}

// Delete implements [store.KV].
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("sqlite store: delete %q: %w", key, wrap(err))
	}
	return nil
}

// Keys implements [store.KV].
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_entries WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: keys %q: %w", prefix, wrap(err))
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("sqlite store: scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Len implements [store.KV].
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM kv_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite store: count: %w", wrap(err))
	}
	return n, nil
}

// Ping implements [store.KV].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite store: ping: %w", wrap(err))
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// wrap marks a closed database as unavailable.
func wrap(err error) error {
	if errors.Is(err, sql.ErrConnDone) || err.Error() == "sql: database is closed" {
		return errors.Join(err, store.ErrUnavailable)
	}
	return err
}
