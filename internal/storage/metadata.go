package storage

import (
	"context"
	"time"
)

//go:generate moq -out metadata_mock.go . MetadataStorage

// MetadataStorage stores small bookkeeping values that survive between
// sync cycles.
type MetadataStorage interface {
	// SaveLastSyncTime records when the last successful cycle finished.
	SaveLastSyncTime(ctx context.Context, t time.Time) error

	// GetLastSyncTime returns the time of the last successful cycle.
	// Returns the zero time if no cycle has completed yet.
	GetLastSyncTime(ctx context.Context) (time.Time, error)
}
