package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

// GetBaseline returns all tasks of the persisted baseline. The order is
// the bucket's key order; baseline consumers index by uid anyway.
func (s *Storage) GetBaseline(ctx context.Context) ([]models.Task, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var tasks []models.Task

	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketBaseline)
		if bucket == nil {
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			var task models.Task
			if err := json.Unmarshal(v, &task); err != nil {
				return fmt.Errorf("failed to unmarshal baseline task %s: %w", k, err)
			}
			tasks = append(tasks, task)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read baseline: %w", err)
	}

	return tasks, nil
}

// SaveBaseline replaces the stored baseline wholesale: the bucket is
// dropped and rewritten in one transaction so a cycle never observes a
// half-written baseline.
func (s *Storage) SaveBaseline(ctx context.Context, tasks []models.Task) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketBaseline); err != nil && err != bbolt.ErrBucketNotFound {
			return fmt.Errorf("failed to drop baseline bucket: %w", err)
		}

		bucket, err := tx.CreateBucket(bucketBaseline)
		if err != nil {
			return fmt.Errorf("failed to recreate baseline bucket: %w", err)
		}

		for i := range tasks {
			data, err := json.Marshal(&tasks[i])
			if err != nil {
				return fmt.Errorf("failed to marshal baseline task %s: %w", tasks[i].UID, err)
			}
			if err := bucket.Put([]byte(tasks[i].UID), data); err != nil {
				return fmt.Errorf("failed to save baseline task %s: %w", tasks[i].UID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
