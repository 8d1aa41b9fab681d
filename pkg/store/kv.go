// Package store is the persistent key-value layer of Versify.
//
// [KV] is the raw contract implemented by the backends in the memstore,
// postgres and sqlite sub-packages: an opaque string-to-string map. [Service]
// sits on top of a KV and provides the typed operations the rest of the
// application uses (last practiced timestamps, progress documents, user
// settings) under a fixed key prefix.
//
// The service never returns storage errors to its callers. Every read
// degrades to a zero value and every write to false when the backend is
// unreachable, and the failure is logged instead. A practice session must
// keep working when the database does not.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable reports that the backend cannot currently serve requests.
// Backends wrap it around connection-level failures; a [Breaker] returns it
// while open.
var ErrUnavailable = errors.New("store: unavailable")

// ErrQuotaExceeded reports that the backend refused a write for lack of space.
var ErrQuotaExceeded = errors.New("store: quota exceeded")

// KV is an opaque string key-value store. Implementations must be safe for
// concurrent use.
type KV interface {
	// Get returns the value stored under key. ok is false when the key does
	// not exist.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every key starting with prefix, in ascending order. An empty
	// prefix lists all keys.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Len returns the total number of keys, regardless of prefix.
	Len(ctx context.Context) (int, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}
