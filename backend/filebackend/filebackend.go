// Package filebackend implements backend.Backend over the local
// filesystem: each id maps to one file, named by a URL-safe escaping of
// the id, directly under a base directory.
package filebackend

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"assetstore.evalgo.org/backend"
)

// Backend stores each object as an individual file under dir.
type Backend struct {
	dir string
}

// New returns a Backend rooted at dir, creating it if necessary.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("filebackend: creating %s: %w", dir, err)
	}
	return &Backend{dir: dir}, nil
}

func (b *Backend) pathFor(id string) string {
	return filepath.Join(b.dir, url.QueryEscape(id)+".json")
}

// Get implements backend.Backend.
func (b *Backend) Get(_ context.Context, id string) ([]byte, error) {
	data, err := os.ReadFile(b.pathFor(id))
	if os.IsNotExist(err) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filebackend: reading %s: %w", id, err)
	}
	return data, nil
}

// Put implements backend.Backend.
func (b *Backend) Put(_ context.Context, id string, data []byte) error {
	if err := os.WriteFile(b.pathFor(id), data, 0644); err != nil {
		return fmt.Errorf("filebackend: writing %s: %w", id, err)
	}
	return nil
}

// Delete implements backend.Backend.
func (b *Backend) Delete(_ context.Context, id string) error {
	err := os.Remove(b.pathFor(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("filebackend: deleting %s: %w", id, err)
	}
	return nil
}

// List implements backend.Backend.
func (b *Backend) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, fmt.Errorf("filebackend: listing %s: %w", b.dir, err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if ext != ".json" {
			continue
		}
		id, err := url.QueryUnescape(name[:len(name)-len(ext)])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close is a no-op: the filesystem needs no teardown.
func (b *Backend) Close() error { return nil }
