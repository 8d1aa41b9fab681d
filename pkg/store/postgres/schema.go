// Package postgres provides a PostgreSQL-backed [store.KV].
//
// Every key lives in a single table, kv_entries, created by [Migrate]. The
// store holds one [pgxpool.Pool] and is safe for concurrent use.
//
// Usage:
//
//	kv, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer kv.Close()
//
//	svc := store.New(kv)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlEntries = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key         TEXT         PRIMARY KEY,
    value       TEXT         NOT NULL,
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_kv_entries_key_pattern
    ON kv_entries (key text_pattern_ops);
`

// Migrate creates the kv_entries table if it does not exist. It is idempotent
// and safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlEntries); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}
