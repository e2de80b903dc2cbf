package cli

import (
	"context"
	"time"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/iocli"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage/history"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/sync"
)

// RunSync runs one cycle, records it in the history store and prints a
// summary. The cycle row is written even when the cycle fails; a
// history write failure is reported but never masks the sync outcome.
func RunSync(ctx context.Context, io iocli.IO, syncer Syncer, hist HistoryStore, strategy string, dryRun bool) error {
	if dryRun {
		io.Println("=== Sync (dry run) ===")
	} else {
		io.Println("=== Sync ===")
	}
	io.Println()

	startedAt := time.Now().UTC()
	result, syncErr := syncer.Sync(ctx, sync.Options{DryRun: dryRun})
	finishedAt := time.Now().UTC()

	if hist != nil && result != nil {
		recordCycle(ctx, io, hist, result, strategy, startedAt, finishedAt)
	}

	if result != nil {
		printResult(io, result)
	}

	return syncErr
}

func recordCycle(ctx context.Context, io iocli.IO, hist HistoryStore, result *sync.Result, strategy string, startedAt, finishedAt time.Time) {
	cycle := &history.Cycle{
		StartedAt:     startedAt,
		FinishedAt:    finishedAt,
		Success:       result.Success,
		DryRun:        result.DryRun,
		Strategy:      strategy,
		Message:       result.Message,
		CreatedLocal:  result.CreatedLocal,
		UpdatedLocal:  result.UpdatedLocal,
		DeletedLocal:  result.DeletedLocal,
		CreatedRemote: result.CreatedRemote,
		UpdatedRemote: result.UpdatedRemote,
		DeletedRemote: result.DeletedRemote,
		Conflicts:     result.Conflicts,
		SkippedRemote: result.SkippedRemote,
		FailedChanges: result.FailedChanges,
	}

	conflicts := make([]history.Conflict, 0, len(result.Changeset.Conflicts))
	for _, c := range result.Changeset.Conflicts {
		conflicts = append(conflicts, history.Conflict{
			UID:         c.UID,
			LocalTitle:  c.Local.Title,
			RemoteTitle: c.Remote.Title,
			Resolution:  strategy,
			FirstSync:   c.Base == nil,
		})
	}

	if err := hist.RecordCycle(ctx, cycle, conflicts); err != nil {
		io.Printf("Warning: failed to record sync history: %v\n", err)
	}
}

func printResult(io iocli.IO, result *sync.Result) {
	if !result.Success {
		io.Printf("✗ %s\n", result.Message)
		return
	}

	if result.DryRun {
		cs := result.Changeset
		if cs.Empty() {
			io.Println("Nothing to do; both sides are in sync.")
			return
		}
		io.Printf("Would apply %d local and %d remote change(s):\n", len(cs.ToLocal), len(cs.ToRemote))
		for _, change := range cs.ToLocal {
			io.Printf("  local  %-6s %s\n", change.Type, change.Task.Title)
		}
		for _, change := range cs.ToRemote {
			io.Printf("  remote %-6s %s\n", change.Type, change.Task.Title)
		}
		printConflicts(io, result)
		return
	}

	io.Println("✓ Sync completed")
	io.Printf("  local:  %d created, %d updated, %d deleted\n",
		result.CreatedLocal, result.UpdatedLocal, result.DeletedLocal)
	io.Printf("  remote: %d created, %d updated, %d deleted\n",
		result.CreatedRemote, result.UpdatedRemote, result.DeletedRemote)
	if result.SkippedRemote > 0 {
		io.Printf("  skipped %d malformed remote record(s)\n", result.SkippedRemote)
	}
	if result.FailedChanges > 0 {
		io.Printf("  %d change(s) failed and will be retried next cycle\n", result.FailedChanges)
	}
	printConflicts(io, result)
}

func printConflicts(io iocli.IO, result *sync.Result) {
	if result.Conflicts == 0 {
		return
	}
	io.Printf("  %d conflict(s) resolved:\n", result.Conflicts)
	for _, c := range result.Changeset.Conflicts {
		io.Printf("    %s: local %q vs remote %q\n", c.UID, c.Local.Title, c.Remote.Title)
	}
}
