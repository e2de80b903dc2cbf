package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/iocli"
)

// RunHistory prints the most recent sync cycles, newest first, with
// the conflicts each one recorded.
func RunHistory(ctx context.Context, io iocli.IO, hist HistoryStore, limit int) error {
	cycles, err := hist.ListCycles(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(cycles) == 0 {
		io.Println("No sync cycles recorded yet.")
		return nil
	}

	for _, cycle := range cycles {
		status := "ok"
		if !cycle.Success {
			status = "failed"
		}
		if cycle.DryRun {
			status += " (dry run)"
		}

		io.Printf("#%d  %s  %s  %s\n",
			cycle.ID,
			cycle.StartedAt.Format(time.RFC3339),
			status,
			cycle.Strategy)
		io.Printf("    local %d/%d/%d  remote %d/%d/%d (created/updated/deleted)\n",
			cycle.CreatedLocal, cycle.UpdatedLocal, cycle.DeletedLocal,
			cycle.CreatedRemote, cycle.UpdatedRemote, cycle.DeletedRemote)
		if cycle.SkippedRemote > 0 || cycle.FailedChanges > 0 {
			io.Printf("    skipped %d, failed %d\n", cycle.SkippedRemote, cycle.FailedChanges)
		}
		if !cycle.Success && cycle.Message != "" {
			io.Printf("    %s\n", cycle.Message)
		}

		if cycle.Conflicts > 0 {
			conflicts, err := hist.ListConflicts(ctx, cycle.ID)
			if err != nil {
				return fmt.Errorf("failed to list conflicts for cycle %d: %w", cycle.ID, err)
			}
			for _, c := range conflicts {
				marker := ""
				if c.FirstSync {
					marker = " (first sync)"
				}
				io.Printf("    conflict %s: local %q vs remote %q -> %s%s\n",
					c.UID, c.LocalTitle, c.RemoteTitle, c.Resolution, marker)
			}
		}
	}

	return nil
}
