// Package storage defines the persistence interfaces the sync engine
// depends on. Implementations live in subpackages; the engine itself
// never touches a storage format directly.
package storage

import (
	"context"
	"time"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

//go:generate moq -out baseline_mock.go . BaselineStorage
//go:generate moq -out mapping_mock.go . MappingStorage

// BaselineStorage persists the last task collection both sides are known
// to have agreed on. The baseline is replaced wholesale after each
// successful cycle and never partially mutated mid-cycle.
type BaselineStorage interface {
	// GetBaseline returns the persisted baseline. An empty slice (not an
	// error) means no sync has completed yet.
	GetBaseline(ctx context.Context) ([]models.Task, error)

	// SaveBaseline replaces the baseline with the given collection.
	SaveBaseline(ctx context.Context, tasks []models.Task) error
}

// Mapping associates a task's local identifier with its remote object
// location. The two sides mint identifiers independently, so the mapping
// is what lets both snapshots be normalized onto the same uid space.
// The four timestamps back the surrounding change-detection logic.
type Mapping struct {
	UID                string    `json:"uid"`
	LocalID            string    `json:"local_id"`
	RemoteHref         string    `json:"remote_href"`
	ETag               string    `json:"etag,omitempty"`
	LastSyncedLocal    time.Time `json:"last_synced_local,omitzero"`
	LastSyncedRemote   time.Time `json:"last_synced_remote,omitzero"`
	LastModifiedLocal  time.Time `json:"last_modified_local,omitzero"`
	LastModifiedRemote time.Time `json:"last_modified_remote,omitzero"`
}

// MappingStorage persists the local-id<->remote-id associations.
type MappingStorage interface {
	// GetMapping returns the mapping for a uid.
	// Returns ErrMappingNotFound if the task has never been mapped.
	GetMapping(ctx context.Context, uid string) (*Mapping, error)

	// SaveMapping stores or replaces the mapping for mapping.UID.
	SaveMapping(ctx context.Context, mapping *Mapping) error

	// DeleteMapping removes the mapping for a uid. Deleting a uid that
	// was never mapped is not an error.
	DeleteMapping(ctx context.Context, uid string) error

	// ListMappings returns all known mappings.
	ListMappings(ctx context.Context) ([]*Mapping, error)
}
