package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

// GetMapping retrieves the identifier mapping for a uid.
func (s *Storage) GetMapping(ctx context.Context, uid string) (*storage.Mapping, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var mapping *storage.Mapping

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMappings)
		if bucket == nil {
			return storage.ErrMappingNotFound
		}

		data := bucket.Get([]byte(uid))
		if data == nil {
			return storage.ErrMappingNotFound
		}

		mapping = &storage.Mapping{}
		if err := json.Unmarshal(data, mapping); err != nil {
			return fmt.Errorf("failed to unmarshal mapping: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return mapping, nil
}

// SaveMapping stores or replaces the mapping keyed by mapping.UID.
func (s *Storage) SaveMapping(ctx context.Context, mapping *storage.Mapping) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if mapping.UID == "" {
		return fmt.Errorf("mapping has empty uid")
	}

	data, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(bucketMappings)
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		if err := bucket.Put([]byte(mapping.UID), data); err != nil {
			return fmt.Errorf("failed to save mapping: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// DeleteMapping removes the mapping for a uid; unknown uids are a no-op.
func (s *Storage) DeleteMapping(ctx context.Context, uid string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMappings)
		if bucket == nil {
			return nil
		}
		if err := bucket.Delete([]byte(uid)); err != nil {
			return fmt.Errorf("failed to delete mapping: %w", err)
		}
		return nil
	})
}

// ListMappings returns all stored mappings.
func (s *Storage) ListMappings(ctx context.Context) ([]*storage.Mapping, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var mappings []*storage.Mapping

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMappings)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			mapping := &storage.Mapping{}
			if err := json.Unmarshal(v, mapping); err != nil {
				return fmt.Errorf("failed to unmarshal mapping %s: %w", k, err)
			}
			mappings = append(mappings, mapping)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}

	return mappings, nil
}
