// Package config loads the tasksync configuration: defaults first, then
// an optional TOML file on top. Credentials never live here; they go
// through the state database after `tasksync login`.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/diff"
)

// Default values applied before the config file is read.
const (
	DefaultConfigFile = "~/.tasksync/config.toml"
	DefaultStatePath  = "~/.tasksync/state.db"
	DefaultHistory    = "~/.tasksync/history.db"
	DefaultInboxFile  = "Inbox.md"
	DefaultStrategy   = string(diff.StrategyLocalWins)
	DefaultLogLevel   = "info"
)

// Config is the full tasksync configuration.
type Config struct {
	Vault  VaultConfig  `toml:"vault"`
	Server ServerConfig `toml:"server"`
	Sync   SyncConfig   `toml:"sync"`

	// StatePath is the BoltDB file holding baseline, mappings and
	// credentials.
	StatePath string `toml:"state_path"`

	// HistoryPath is the SQLite file holding the sync audit trail.
	HistoryPath string `toml:"history_path"`

	LogLevel string `toml:"log_level"`
}

// VaultConfig describes the local Markdown vault.
type VaultConfig struct {
	// Dir is the vault root; every .md file under it is scanned.
	Dir string `toml:"dir"`

	// InboxFile, relative to Dir, receives tasks created remotely.
	InboxFile string `toml:"inbox_file"`
}

// ServerConfig describes the CalDAV endpoint.
type ServerConfig struct {
	URL string `toml:"url"`

	// CalendarPath is the collection holding the VTODO objects,
	// e.g. "/calendars/alice/tasks/".
	CalendarPath string `toml:"calendar_path"`
}

// SyncConfig tunes the reconciliation itself.
type SyncConfig struct {
	// Strategy is "local_wins" or "remote_wins".
	Strategy string `toml:"strategy"`
}

// Load reads the config file at path, or the default location when path
// is empty. A missing file at the default location is not an error; a
// missing file at an explicit path is.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	path = ExpandPath(path)

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Vault: VaultConfig{
			InboxFile: DefaultInboxFile,
		},
		Sync: SyncConfig{
			Strategy: DefaultStrategy,
		},
		StatePath:   DefaultStatePath,
		HistoryPath: DefaultHistory,
		LogLevel:    DefaultLogLevel,
	}
}

// Validate checks that the fields needed to run a sync are present and
// consistent. Returns all problems joined, not just the first one.
func (c *Config) Validate() error {
	var errs []error

	if c.Vault.Dir == "" {
		errs = append(errs, errors.New("vault.dir is required"))
	}
	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	}
	if c.Server.CalendarPath == "" {
		errs = append(errs, errors.New("server.calendar_path is required"))
	}
	if !diff.Strategy(c.Sync.Strategy).Valid() {
		errs = append(errs, fmt.Errorf("sync.strategy must be %q or %q, got %q",
			diff.StrategyLocalWins, diff.StrategyRemoteWins, c.Sync.Strategy))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel))
	}

	return errors.Join(errs...)
}

// VaultDir returns the vault directory with ~ expanded.
func (c *Config) VaultDir() string {
	return ExpandPath(c.Vault.Dir)
}

// StateFile returns the state database path with ~ expanded, creating
// the parent directory if needed.
func (c *Config) StateFile() (string, error) {
	return ensureParent(ExpandPath(c.StatePath))
}

// HistoryFile returns the history database path with ~ expanded,
// creating the parent directory if needed.
func (c *Config) HistoryFile() (string, error) {
	return ensureParent(ExpandPath(c.HistoryPath))
}

// Strategy returns the configured conflict strategy.
func (c *Config) Strategy() diff.Strategy {
	return diff.Strategy(c.Sync.Strategy)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

func ensureParent(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return path, nil
}
