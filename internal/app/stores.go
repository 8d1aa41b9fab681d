package app

import (
	"context"
	"io"

	"github.com/gulley/versify/internal/config"
	"github.com/gulley/versify/pkg/store"
	"github.com/gulley/versify/pkg/store/memstore"
	"github.com/gulley/versify/pkg/store/postgres"
	"github.com/gulley/versify/pkg/store/sqlite"
)

// closerFunc adapts a func() to [io.Closer].
type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}

// RegisterStores wires the built-in store backends into reg.
func RegisterStores(reg *config.Registry) {
	reg.RegisterStore(config.StoreMemory, func(context.Context, config.StoreConfig) (store.KV, io.Closer, error) {
		return memstore.New(), nil, nil
	})
	reg.RegisterStore(config.StorePostgres, func(ctx context.Context, cfg config.StoreConfig) (store.KV, io.Closer, error) {
		s, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, closerFunc(s.Close), nil
	})
	reg.RegisterStore(config.StoreSQLite, func(ctx context.Context, cfg config.StoreConfig) (store.KV, io.Closer, error) {
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	})
}
