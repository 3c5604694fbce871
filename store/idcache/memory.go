package idcache

import (
	"context"
	"sync"
)

// Memory is a single-process Cache backed by a mutex-guarded counter and
// map; it implements the distributed-cache contract degenerately (no
// cross-process sharing), for standalone deployments or tests.
type Memory struct {
	mu      sync.Mutex
	counter int64
	blobs   map[string][]byte
}

// NewMemory returns a Memory cache with its counter starting at start.
func NewMemory(start int64) *Memory {
	return &Memory{counter: start, blobs: map[string][]byte{}}
}

// NextID implements Cache.
func (m *Memory) NextID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return m.counter, nil
}

// Peek implements Cache.
func (m *Memory) Peek(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter, nil
}

// SeedNextID implements Cache.
func (m *Memory) SeedNextID(_ context.Context, n int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > m.counter {
		m.counter = n
	}
	return nil
}

// GetBlob implements Cache.
func (m *Memory) GetBlob(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// PutBlob implements Cache.
func (m *Memory) PutBlob(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = append([]byte(nil), data...)
	return nil
}

// InvalidateBlob implements Cache.
func (m *Memory) InvalidateBlob(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

// Close implements Cache; Memory holds no resources to release.
func (m *Memory) Close() error { return nil }
