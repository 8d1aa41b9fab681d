package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/gulley/versify/pkg/store"
)

// ErrBackendNotRegistered is returned by [Registry.CreateStore] when no
// factory has been registered under the requested backend name.
var ErrBackendNotRegistered = errors.New("config: store backend not registered")

// StoreFactory opens a key-value backend from cfg. The returned closer
// releases the backend's resources and may be nil.
type StoreFactory func(ctx context.Context, cfg StoreConfig) (store.KV, io.Closer, error)

// Registry maps store backend names to their constructor functions. It is
// safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	stores map[StoreBackend]StoreFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{stores: make(map[StoreBackend]StoreFactory)}
}

// RegisterStore registers a backend factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterStore(name StoreBackend, factory StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stores[name] = factory
}

// Backends returns the registered backend names in sorted order.
func (r *Registry) Backends() []StoreBackend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]StoreBackend, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// CreateStore opens the backend named by cfg.Backend.
// Returns [ErrBackendNotRegistered] if no factory is registered for it.
func (r *Registry) CreateStore(ctx context.Context, cfg StoreConfig) (store.KV, io.Closer, error) {
	r.mu.RLock()
	f, ok := r.stores[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrBackendNotRegistered, cfg.Backend)
	}
	kv, closer, err := f(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("config: open %s store: %w", cfg.Backend, err)
	}
	return kv, closer, nil
}
