package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/config"
	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/iocli"
)

const configTemplate = `# tasksync configuration

# Where sync state (baseline, id mappings, credentials) is kept.
#state_path = "~/.tasksync/state.db"

# Where the sync audit trail is kept.
#history_path = "~/.tasksync/history.db"

# One of: debug, info, warn, error
#log_level = "info"

[vault]
# Root of the Markdown vault. Every .md file under it is scanned.
dir = "~/vault"

# File, relative to the vault root, that receives tasks created on the
# server.
#inbox_file = "Inbox.md"

[server]
# CalDAV server base URL.
url = "https://dav.example.com"

# Collection holding the VTODO objects.
calendar_path = "/calendars/me/tasks/"

[sync]
# Which side wins a double edit: "local_wins" or "remote_wins".
#strategy = "local_wins"
`

// RunInit writes a starter config file at path (or the default location
// when path is empty). Refuses to overwrite an existing file.
func RunInit(io iocli.IO, path string) error {
	if path == "" {
		path = config.DefaultConfigFile
	}
	path = config.ExpandPath(path)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	io.Printf("Created %s\n", path)
	io.Println()
	io.Println("Edit it to point at your vault and CalDAV server, then run")
	io.Println("'tasksync login' to store credentials.")

	return nil
}
