// Package boltdb implements the storage interfaces on top of a single
// bbolt file, one bucket per concern.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketBaseline = []byte("baseline")
	bucketMappings = []byte("mappings")
	bucketAuth     = []byte("auth")
	bucketMetadata = []byte("metadata")
)

// Storage is the BoltDB-backed implementation of the storage interfaces.
type Storage struct {
	db *bbolt.DB
}

// New opens (or creates) the database file at dbPath and ensures all
// buckets exist. The file is created with 0600 permissions because it
// holds CalDAV credentials.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBaseline, bucketMappings, bucketAuth, bucketMetadata} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
