package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/config"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/iocli"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/storage"
)

// RunStatus shows the effective configuration, whether credentials are
// stored and when the last cycle completed.
func RunStatus(
	ctx context.Context,
	io iocli.IO,
	cfg *config.Config,
	auth storage.AuthStorage,
	metadata storage.MetadataStorage,
	mappings storage.MappingStorage,
) error {
	io.Println("=== Status ===")
	io.Println()
	io.Printf("Vault:    %s\n", cfg.VaultDir())
	io.Printf("Server:   %s\n", cfg.Server.URL)
	io.Printf("Calendar: %s\n", cfg.Server.CalendarPath)
	io.Printf("Strategy: %s\n", cfg.Sync.Strategy)
	io.Println()

	creds, err := auth.GetCredentials(ctx)
	switch {
	case errors.Is(err, storage.ErrAuthNotFound):
		io.Println("Credentials: not stored")
		io.Println("Run 'tasksync login' to authenticate.")
	case err != nil:
		return fmt.Errorf("failed to read credentials: %w", err)
	default:
		io.Printf("Credentials: stored for %s\n", creds.Username)
	}

	lastSync, err := metadata.GetLastSyncTime(ctx)
	if err != nil {
		return fmt.Errorf("failed to read last sync time: %w", err)
	}
	if lastSync.IsZero() {
		io.Println("Last sync:   never")
	} else {
		io.Printf("Last sync:   %s (%s ago)\n",
			lastSync.Format(time.RFC3339),
			time.Since(lastSync).Round(time.Second))
	}

	tracked, err := mappings.ListMappings(ctx)
	if err != nil {
		return fmt.Errorf("failed to list mappings: %w", err)
	}
	io.Printf("Tracked:     %d task(s)\n", len(tracked))

	return nil
}
