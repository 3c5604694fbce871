// Package boltbackend implements backend.Backend over a single bbolt
// database file, storing every object as a key/value pair in one bucket.
package boltbackend

import (
	"context"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"assetstore.evalgo.org/backend"
)

const objectsBucket = "objects"

// Backend stores objects in a bbolt bucket.
type Backend struct {
	db *bolt.DB
}

// Open opens (or creates) a bbolt database at path and ensures the
// objects bucket exists.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltbackend: opening %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(objectsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltbackend: creating bucket: %w", err)
	}
	return &Backend{db: db}, nil
}

// Get implements backend.Backend.
func (b *Backend) Get(_ context.Context, id string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(objectsBucket))
		v := bucket.Get([]byte(id))
		if v == nil {
			return backend.ErrNotFound
		}
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Put implements backend.Backend.
func (b *Backend) Put(_ context.Context, id string, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(objectsBucket))
		return bucket.Put([]byte(id), data)
	})
}

// Delete implements backend.Backend.
func (b *Backend) Delete(_ context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(objectsBucket))
		return bucket.Delete([]byte(id))
	})
}

// List implements backend.Backend.
func (b *Backend) List(_ context.Context) ([]string, error) {
	var ids []string
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(objectsBucket))
		return bucket.ForEach(func(k, _ []byte) error {
			ids = append(ids, string(k))
			return nil
		})
	})
	return ids, err
}

// Close implements backend.Backend.
func (b *Backend) Close() error {
	return b.db.Close()
}
