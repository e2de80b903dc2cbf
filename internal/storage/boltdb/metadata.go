package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

const keyLastSyncTime = "last_sync_time"

// SaveLastSyncTime records when the last successful cycle finished.
func (s *Storage) SaveLastSyncTime(ctx context.Context, t time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data, err := t.UTC().MarshalText()
		if err != nil {
			return fmt.Errorf("failed to marshal timestamp: %w", err)
		}

		if err := bucket.Put([]byte(keyLastSyncTime), data); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}
		return nil
	})
}

// GetLastSyncTime returns the time of the last successful cycle, or the
// zero time if nothing has synced yet.
func (s *Storage) GetLastSyncTime(ctx context.Context) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var last time.Time

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		data := bucket.Get([]byte(keyLastSyncTime))
		if data == nil {
			return nil
		}
		return last.UnmarshalText(data)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return last, nil
}
