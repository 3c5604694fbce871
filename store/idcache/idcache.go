// Package idcache provides the distributed id allocator and blob cache the
// asset store uses to keep multiple store processes pointed at the same
// backend coherent: a monotonic next-id counter, and an optional cache of
// serialized asset blobs to spare a backend round-trip on a hot id.
package idcache

import "context"

// Cache is implemented by every id-cache backend (in-memory, Redis).
type Cache interface {
	// NextID atomically increments and returns the shared counter.
	NextID(ctx context.Context) (int64, error)

	// Peek returns the counter's current value without incrementing it,
	// for persisting the next-id frontier alongside the directory.
	Peek(ctx context.Context) (int64, error)

	// SeedNextID initializes the counter to at least n, without
	// decreasing it if a higher value is already stored (idempotent
	// across repeated Load() calls from the same or different
	// processes).
	SeedNextID(ctx context.Context, n int64) error

	// GetBlob returns a cached serialized asset, if present.
	GetBlob(ctx context.Context, key string) ([]byte, bool, error)

	// PutBlob caches a serialized asset under key.
	PutBlob(ctx context.Context, key string, data []byte) error

	// InvalidateBlob drops a cached entry, e.g. after a store/remove.
	InvalidateBlob(ctx context.Context, key string) error

	// Close releases any held resources (connections, timers).
	Close() error
}
