// Package memstore is an in-process [store.KV]. It is the default backend and
// the one used in tests.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/gulley/versify/pkg/store"
)

var _ store.KV = (*Store)(nil)

// Option configures a [Store].
type Option func(*Store)

// WithMaxEntries caps the number of keys. A Set that would add a key beyond
// the cap fails with [store.ErrQuotaExceeded]; overwriting is always allowed.
func WithMaxEntries(n int) Option {
	return func(s *Store) { s.max = n }
}

// Store is a map guarded by a read-write mutex. The zero value is not usable;
// call [New].
type Store struct {
	mu   sync.RWMutex
	data map[string]string
	max  int
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{data: make(map[string]string)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get implements [store.KV].
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

// Set implements [store.KV].
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; !exists && s.max > 0 && len(s.data) >= s.max {
		return fmt.Errorf("memstore: set %q: %w", key, store.ErrQuotaExceeded)
	}
	s.data[key] = value
	return nil
}

// Delete implements [store.KV].
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Keys implements [store.KV].
func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Len implements [store.KV].
func (s *Store) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data), nil
}

// Ping implements [store.KV]. It always succeeds.
func (s *Store) Ping(context.Context) error { return nil }
