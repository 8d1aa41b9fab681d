package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gulley/versify/pkg/store"
)

var _ store.KV = (*Store)(nil)

// Store is a [store.KV] over a PostgreSQL connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, pings it and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", wrapConn(err))
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Get implements [store.KV].
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres store: get %q: %w", key, wrapConn(err))
	}
	return v, true, nil
}

// Set implements [store.KV].
func (s *Store) Set(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		    SET value = EXCLUDED.value, updated_at = now()`
	if _, err := s.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("postgres store: set %q: %w", key, wrapConn(err))
	}
	return nil
}

// Delete implements [store.KV].
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		return fmt.Errorf("postgres store: delete %q: %w", key, wrapConn(err))
	}
	return nil
}

// Keys implements [store.KV]. The prefix is compared literally; LIKE
// wildcards in it carry no meaning.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	const q = `
		SELECT key FROM kv_entries
		WHERE left(key, char_length($1)) = $1
		ORDER BY key`
	rows, err := s.pool.Query(ctx, q, prefix)
	if err != nil {
		return nil, fmt.Errorf("postgres store: keys %q: %w", prefix, wrapConn(err))
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan keys: %w", err)
	}
	return keys, nil
}

// Len implements [store.KV].
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM kv_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres store: count: %w", wrapConn(err))
	}
	return n, nil
}

// Ping implements [store.KV].
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres store: ping: %w", wrapConn(err))
	}
	return nil
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// wrapConn marks connection-level failures with [store.ErrUnavailable].
// Errors reported by the server itself (constraint violations, syntax) are
// returned unchanged.
func wrapConn(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "53100" { // disk_full
			return errors.Join(err, store.ErrQuotaExceeded)
		}
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(err, store.ErrUnavailable)
}
