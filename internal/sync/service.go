// Package sync runs one reconciliation cycle: snapshot both sides,
// three-way diff against the persisted baseline, apply the resulting
// change lists and persist the new agreed state. The service owns no
// ambient state; every collaborator is injected, and the caller must
// guarantee at most one cycle in flight at a time.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/diff"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

//go:generate moq -out localstore_mock.go . LocalStore
//go:generate moq -out remotestore_mock.go . RemoteStore

// LocalStore is the local-side collaborator (the Markdown vault).
type LocalStore interface {
	// Normalize snapshots the local side as neutral tasks, injecting
	// missing local identifiers as a side effect.
	Normalize(ctx context.Context) ([]models.Task, error)

	Create(ctx context.Context, task models.Task) error
	Update(ctx context.Context, task models.Task) error
	Delete(ctx context.Context, uid string) error
}

// RemoteStore is the remote-side collaborator (the CalDAV adapter).
type RemoteStore interface {
	// Fetch snapshots the remote side. skipped counts malformed records
	// that were dropped without aborting the batch.
	Fetch(ctx context.Context) (tasks []models.Task, skipped int, err error)

	Create(ctx context.Context, task models.Task) error
	Update(ctx context.Context, task models.Task) error
	Delete(ctx context.Context, uid string) error
}

// Service orchestrates sync cycles.
type Service struct {
	local     LocalStore
	remote    RemoteStore
	baselines storage.BaselineStorage
	metadata  storage.MetadataStorage
	strategy  diff.Strategy
	logger    *slog.Logger
}

// NewService creates a sync service. All dependencies are explicit; the
// service never reaches for globals.
func NewService(
	local LocalStore,
	remote RemoteStore,
	baselines storage.BaselineStorage,
	metadata storage.MetadataStorage,
	strategy diff.Strategy,
	logger *slog.Logger,
) *Service {
	return &Service{
		local:     local,
		remote:    remote,
		baselines: baselines,
		metadata:  metadata,
		strategy:  strategy,
		logger:    logger,
	}
}

// Options tunes one cycle.
type Options struct {
	// DryRun computes and reports the changeset without applying any
	// change or persisting any state.
	DryRun bool
}

// Result is the structured outcome of one cycle. It is returned even
// when the cycle fails, with zeroed counts and Success false.
type Result struct {
	Success bool
	DryRun  bool
	Message string

	CreatedLocal  int
	UpdatedLocal  int
	DeletedLocal  int
	CreatedRemote int
	UpdatedRemote int
	DeletedRemote int

	Conflicts     int // double edits detected, resolved per strategy
	SkippedRemote int // malformed remote records dropped during fetch
	FailedChanges int // individual changes rejected by a side

	Changeset diff.Changeset
}

// Sync runs one complete cycle. A failure reaching the remote side or
// loading state aborts the cycle with nothing applied and nothing
// persisted. A failure applying one individual change is logged and
// counted but does not stop the remaining changes.
func (s *Service) Sync(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{DryRun: opts.DryRun}

	s.logger.Info("starting sync cycle", "strategy", string(s.strategy), "dry_run", opts.DryRun)

	remoteTasks, skipped, err := s.remote.Fetch(ctx)
	if err != nil {
		result.Message = fmt.Sprintf("remote fetch failed: %v", err)
		return result, fmt.Errorf("remote fetch failed: %w", err)
	}
	result.SkippedRemote = skipped

	localTasks, err := s.local.Normalize(ctx)
	if err != nil {
		result.Message = fmt.Sprintf("local snapshot failed: %v", err)
		return result, fmt.Errorf("local snapshot failed: %w", err)
	}

	baseline, err := s.baselines.GetBaseline(ctx)
	if err != nil {
		result.Message = fmt.Sprintf("failed to load baseline: %v", err)
		return result, fmt.Errorf("failed to load baseline: %w", err)
	}

	s.logger.Info("snapshots taken",
		"local", len(localTasks),
		"remote", len(remoteTasks),
		"baseline", len(baseline),
		"skipped_remote", skipped)

	changeset := diff.Diff(localTasks, remoteTasks, baseline, s.strategy)
	result.Changeset = changeset
	result.Conflicts = len(changeset.Conflicts)

	for _, conflict := range changeset.Conflicts {
		s.logger.Warn("conflict detected",
			"uid", conflict.UID,
			"local_title", conflict.Local.Title,
			"remote_title", conflict.Remote.Title,
			"first_sync_overlap", conflict.Base == nil)
	}

	if opts.DryRun {
		result.Success = true
		result.Message = "dry run: no changes applied"
		return result, nil
	}

	applied := s.apply(ctx, result, changeset)

	newBaseline := nextBaseline(localTasks, remoteTasks, baseline, changeset, applied)
	if err := s.baselines.SaveBaseline(ctx, newBaseline); err != nil {
		result.Message = fmt.Sprintf("failed to persist baseline: %v", err)
		return result, fmt.Errorf("failed to persist baseline: %w", err)
	}

	if err := s.metadata.SaveLastSyncTime(ctx, time.Now().UTC()); err != nil {
		// The timestamp is informational; the cycle itself succeeded.
		s.logger.Warn("failed to save last sync time", "error", err)
	}

	result.Success = true
	result.Message = "sync completed"
	s.logger.Info("sync cycle completed",
		"to_local", len(changeset.ToLocal),
		"to_remote", len(changeset.ToRemote),
		"conflicts", result.Conflicts,
		"failed_changes", result.FailedChanges)

	return result, nil
}

// apply walks both change lists strictly sequentially and returns the
// set of uids whose changes all succeeded. Side adapters are not safe
// under concurrent mutation, so there is deliberately no parallelism
// here.
func (s *Service) apply(ctx context.Context, result *Result, changeset diff.Changeset) map[string]bool {
	applied := make(map[string]bool)

	for _, change := range changeset.ToLocal {
		if err := s.applyChange(ctx, s.local.Create, s.local.Update, s.local.Delete, change); err != nil {
			s.logger.Warn("failed to apply local change",
				"type", string(change.Type), "uid", change.Task.UID, "error", err)
			result.FailedChanges++
			applied[change.Task.UID] = false
			continue
		}
		applied[change.Task.UID] = true
		switch change.Type {
		case diff.ChangeCreate:
			result.CreatedLocal++
		case diff.ChangeUpdate:
			result.UpdatedLocal++
		case diff.ChangeDelete:
			result.DeletedLocal++
		}
	}

	for _, change := range changeset.ToRemote {
		if err := s.applyChange(ctx, s.remote.Create, s.remote.Update, s.remote.Delete, change); err != nil {
			s.logger.Warn("failed to apply remote change",
				"type", string(change.Type), "uid", change.Task.UID, "error", err)
			result.FailedChanges++
			applied[change.Task.UID] = false
			continue
		}
		applied[change.Task.UID] = true
		switch change.Type {
		case diff.ChangeCreate:
			result.CreatedRemote++
		case diff.ChangeUpdate:
			result.UpdatedRemote++
		case diff.ChangeDelete:
			result.DeletedRemote++
		}
	}

	return applied
}

func (s *Service) applyChange(
	ctx context.Context,
	create func(context.Context, models.Task) error,
	update func(context.Context, models.Task) error,
	del func(context.Context, string) error,
	change diff.Change,
) error {
	switch change.Type {
	case diff.ChangeCreate:
		return create(ctx, change.Task)
	case diff.ChangeUpdate:
		return update(ctx, change.Task)
	case diff.ChangeDelete:
		return del(ctx, change.Task.UID)
	default:
		return fmt.Errorf("unknown change type %q", change.Type)
	}
}

// nextBaseline computes the post-apply union of both snapshots. For a
// uid whose change failed, the previous baseline entry is kept (or the
// uid stays unknown), so the next cycle re-detects and retries the same
// change instead of considering it agreed.
func nextBaseline(local, remote, oldBaseline []models.Task, changeset diff.Changeset, applied map[string]bool) []models.Task {
	localAfter := indexTasks(local)
	remoteAfter := indexTasks(remote)
	oldIdx := indexTasks(oldBaseline)

	applyInMemory(localAfter, changeset.ToLocal, applied)
	applyInMemory(remoteAfter, changeset.ToRemote, applied)

	seen := make(map[string]bool)
	var next []models.Task

	appendUID := func(uid string) {
		if seen[uid] {
			return
		}
		seen[uid] = true

		lv, lok := localAfter[uid]
		rv, rok := remoteAfter[uid]

		switch {
		case lok && rok && lv.Equal(&rv):
			next = append(next, lv)
		case lok || rok:
			// Sides still disagree (a change failed, or one side is
			// missing the task): keep the old agreement if any, so the
			// next diff sees the divergence again.
			if old, ok := oldIdx[uid]; ok {
				next = append(next, old)
			}
		}
	}

	for _, task := range local {
		appendUID(task.UID)
	}
	for _, task := range remote {
		appendUID(task.UID)
	}
	for _, change := range changeset.ToLocal {
		appendUID(change.Task.UID)
	}

	return next
}

// applyInMemory mirrors the successfully applied changes onto a
// snapshot index.
func applyInMemory(idx map[string]models.Task, changes []diff.Change, applied map[string]bool) {
	for _, change := range changes {
		if !applied[change.Task.UID] {
			continue
		}
		switch change.Type {
		case diff.ChangeCreate, diff.ChangeUpdate:
			idx[change.Task.UID] = change.Task
		case diff.ChangeDelete:
			delete(idx, change.Task.UID)
		}
	}
}

func indexTasks(tasks []models.Task) map[string]models.Task {
	idx := make(map[string]models.Task, len(tasks))
	for _, task := range tasks {
		idx[task.UID] = task
	}
	return idx
}
