// Package remote adapts the CalDAV collaborator to the neutral task
// model: it turns the collection's VTODO objects into Tasks for diffing
// and applies the engine's change list back through the client, keeping
// the identifier mapping current as objects are created and deleted.
package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/caldav"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/ical"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

// Client is the transport surface the adapter needs; *caldav.Client
// implements it.
type Client interface {
	FetchAll(ctx context.Context) ([]caldav.Object, error)
	Put(ctx context.Context, href, ics, etag string) (string, error)
	Delete(ctx context.Context, href string) error
	ObjectHref(remoteUID string) string
}

// Adapter is the remote side of the sync engine.
type Adapter struct {
	client   Client
	mappings storage.MappingStorage
	logger   *slog.Logger

	// objects caches href and etag per uid from the last Fetch, so the
	// write path of the same cycle can address objects without another
	// round-trip.
	objects map[string]caldav.Object
}

// New creates a remote adapter.
func New(client Client, mappings storage.MappingStorage, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:   client,
		mappings: mappings,
		logger:   logger,
		objects:  make(map[string]caldav.Object),
	}
}

// Fetch downloads the collection and decodes every VTODO into a Task.
// Objects whose VTODO lacks a UID are logged, counted and skipped; they
// never abort the batch.
func (a *Adapter) Fetch(ctx context.Context) (tasks []models.Task, skipped int, err error) {
	objects, err := a.client.FetchAll(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch remote tasks: %w", err)
	}

	a.objects = make(map[string]caldav.Object, len(objects))

	for _, obj := range objects {
		task, err := ical.Decode(obj.Data)
		if err != nil {
			if errors.Is(err, ical.ErrMissingUID) {
				a.logger.Warn("skipping malformed calendar object", "href", obj.Href, "error", err)
				skipped++
				continue
			}
			return nil, 0, fmt.Errorf("failed to decode %s: %w", obj.Href, err)
		}

		a.objects[task.UID] = obj
		tasks = append(tasks, *task)
	}

	return tasks, skipped, nil
}

// Create uploads a task as a new VTODO object and records its mapping.
func (a *Adapter) Create(ctx context.Context, task models.Task) error {
	href := a.client.ObjectHref(task.UID)

	etag, err := a.client.Put(ctx, href, ical.Encode(&task, task.UID), "")
	if err != nil {
		return fmt.Errorf("failed to create remote task %s: %w", task.UID, err)
	}

	a.saveMapping(ctx, task.UID, href, etag)
	return nil
}

// Update rewrites the existing VTODO object of a task. The stored etag
// guards the write, so an interleaved edit on the server surfaces as a
// failed change instead of being silently overwritten.
func (a *Adapter) Update(ctx context.Context, task models.Task) error {
	href, etag := a.resolve(ctx, task.UID)
	if href == "" {
		return fmt.Errorf("no remote object known for task %s", task.UID)
	}

	newETag, err := a.client.Put(ctx, href, ical.Encode(&task, task.UID), etag)
	if err != nil {
		return fmt.Errorf("failed to update remote task %s: %w", task.UID, err)
	}

	a.saveMapping(ctx, task.UID, href, newETag)
	return nil
}

// Delete removes a task's remote object and drops its mapping.
func (a *Adapter) Delete(ctx context.Context, uid string) error {
	href, _ := a.resolve(ctx, uid)
	if href == "" {
		// Never mapped and not seen in this cycle: nothing to remove.
		return nil
	}

	if err := a.client.Delete(ctx, href); err != nil {
		return fmt.Errorf("failed to delete remote task %s: %w", uid, err)
	}

	if err := a.mappings.DeleteMapping(ctx, uid); err != nil {
		a.logger.Warn("failed to delete identifier mapping", "uid", uid, "error", err)
	}
	delete(a.objects, uid)
	return nil
}

// resolve returns the href and etag for a uid, preferring the objects
// seen by the current cycle's Fetch over the persisted mapping.
func (a *Adapter) resolve(ctx context.Context, uid string) (href, etag string) {
	if obj, ok := a.objects[uid]; ok {
		return obj.Href, obj.ETag
	}

	mapping, err := a.mappings.GetMapping(ctx, uid)
	if err != nil {
		return "", ""
	}
	return mapping.RemoteHref, mapping.ETag
}

func (a *Adapter) saveMapping(ctx context.Context, uid, href, etag string) {
	now := time.Now().UTC()

	mapping, err := a.mappings.GetMapping(ctx, uid)
	if err != nil {
		mapping = &storage.Mapping{UID: uid, LocalID: uid}
	}
	mapping.RemoteHref = href
	mapping.ETag = etag
	mapping.LastSyncedRemote = now
	mapping.LastModifiedRemote = now

	if err := a.mappings.SaveMapping(ctx, mapping); err != nil {
		// The mapping can be rebuilt from the next fetch; the write
		// itself succeeded, so this is not a failed change.
		a.logger.Warn("failed to save identifier mapping", "uid", uid, "error", err)
	}
	a.objects[uid] = caldav.Object{Href: href, ETag: etag}
}
