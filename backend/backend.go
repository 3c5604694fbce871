// Package backend defines the pluggable object-blob storage contract the
// asset store persists serialized Asset records through: a flat
// id-to-bytes map, independent of the directory tree the store layers on
// top of it.
package backend

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when id has no stored blob.
var ErrNotFound = errors.New("backend: object not found")

// Backend is implemented by each concrete storage driver (local files,
// bbolt, S3). Ids are opaque strings chosen by the caller (the store
// allocates them); backends never interpret their structure.
type Backend interface {
	// Get returns the raw bytes stored under id, or ErrNotFound.
	Get(ctx context.Context, id string) ([]byte, error)

	// Put stores data under id, overwriting any prior value.
	Put(ctx context.Context, id string, data []byte) error

	// Delete removes id. Deleting a missing id is not an error.
	Delete(ctx context.Context, id string) error

	// List returns every id currently stored, in no particular order.
	List(ctx context.Context) ([]string, error)

	// Close releases any resources (file handles, connections) held by
	// the backend.
	Close() error
}
