package vault

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

// Store reads and writes task lines across the .md files of one vault
// directory. It is not safe for concurrent use; the sync engine drives
// it strictly sequentially.
type Store struct {
	dir    string
	inbox  string
	logger *slog.Logger

	// files maps uid to the file that contained the task at the last
	// Normalize. Write operations re-locate the line by its sync marker
	// inside that file, so earlier edits in the same cycle cannot
	// invalidate the reference.
	files map[string]string
}

// NewStore creates a vault store rooted at dir. Tasks created by the
// remote side are appended to inbox (a path relative to dir), which is
// created on first use.
func NewStore(dir, inbox string, logger *slog.Logger) *Store {
	return &Store{
		dir:    dir,
		inbox:  inbox,
		logger: logger,
		files:  make(map[string]string),
	}
}

// Normalize walks the vault and returns every task line as a neutral
// Task. Task lines without a sync marker get a freshly minted uid
// written back into the file as a side effect, so the identifier is
// stable from the first snapshot on.
func (s *Store) Normalize(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	s.files = make(map[string]string)

	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories (.obsidian, .trash, ...) are not notes.
			if name := d.Name(); name != "." && strings.HasPrefix(name, ".") && path != s.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		fileTasks, err := s.loadFile(path)
		if err != nil {
			return err
		}
		for _, task := range fileTasks {
			s.files[task.UID] = path
			tasks = append(tasks, task)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan vault: %w", err)
	}

	return tasks, nil
}

// loadFile parses one file's task lines, injecting missing sync markers
// and rewriting the file if any were added.
func (s *Store) loadFile(path string) ([]models.Task, error) {
	lines, mode, err := readLines(path)
	if err != nil {
		return nil, err
	}

	var tasks []models.Task
	dirty := false

	for i := 0; i < len(lines); i++ {
		parsed, ok := parseLine(lines[i])
		if !ok {
			continue
		}

		if parsed.Task.UID == "" {
			parsed.Task.UID = uuid.NewString()
			lines[i] = lines[i] + " %%sync:" + parsed.Task.UID + "%%"
			dirty = true
			s.logger.Debug("injected sync id", "file", path, "uid", parsed.Task.UID)
		}

		notes, span := collectNotes(lines, i, parsed.Indent)
		parsed.Task.Notes = notes
		i += span

		tasks = append(tasks, parsed.Task)
	}

	if dirty {
		if err := writeLines(path, lines, mode); err != nil {
			return nil, err
		}
	}

	return tasks, nil
}

// Create appends a task to the inbox file.
func (s *Store) Create(ctx context.Context, task models.Task) error {
	path := filepath.Join(s.dir, s.inbox)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}

	lines, mode, err := readLines(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		mode = 0o644
	}

	lines = append(lines, renderTask(&task, ""))
	if err := writeLines(path, lines, mode); err != nil {
		return err
	}

	s.files[task.UID] = path
	return nil
}

// Update rewrites the line (and notes block) of an existing task,
// located by its sync marker.
func (s *Store) Update(ctx context.Context, task models.Task) error {
	path, lines, idx, mode, err := s.locate(task.UID)
	if err != nil {
		return err
	}

	parsed, _ := parseLine(lines[idx])
	_, span := collectNotes(lines, idx, parsed.Indent)

	replacement := strings.Split(renderTask(&task, parsed.Indent), "\n")
	lines = append(lines[:idx], append(replacement, lines[idx+1+span:]...)...)

	return writeLines(path, lines, mode)
}

// Delete removes a task line and its notes block.
func (s *Store) Delete(ctx context.Context, uid string) error {
	path, lines, idx, mode, err := s.locate(uid)
	if err != nil {
		return err
	}

	parsed, _ := parseLine(lines[idx])
	_, span := collectNotes(lines, idx, parsed.Indent)

	lines = append(lines[:idx], lines[idx+1+span:]...)
	delete(s.files, uid)

	return writeLines(path, lines, mode)
}

// locate finds the current line of a task by uid. The file recorded at
// Normalize time is tried first; as a fallback every vault file is
// scanned, so a cycle survives notes being moved between files.
func (s *Store) locate(uid string) (path string, lines []string, idx int, mode fs.FileMode, err error) {
	marker := "%%sync:" + uid + "%%"

	if known, ok := s.files[uid]; ok {
		lines, mode, err = readLines(known)
		if err == nil {
			for i, l := range lines {
				if strings.Contains(l, marker) {
					return known, lines, i, mode, nil
				}
			}
		}
	}

	err = filepath.WalkDir(s.dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return walkErr
		}
		fileLines, fileMode, readErr := readLines(p)
		if readErr != nil {
			return readErr
		}
		for i, l := range fileLines {
			if strings.Contains(l, marker) {
				path, lines, idx, mode = p, fileLines, i, fileMode
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, 0, 0, fmt.Errorf("failed to scan vault: %w", err)
	}
	if path == "" {
		return "", nil, 0, 0, fmt.Errorf("task %s not found in vault", uid)
	}
	s.files[uid] = path
	return path, lines, idx, mode, nil
}

// renderTask renders the task line plus its notes block.
func renderTask(task *models.Task, indent string) string {
	out := renderLine(task, indent)
	if task.Notes == "" {
		return out
	}
	for _, noteLine := range strings.Split(task.Notes, "\n") {
		out += "\n" + indent + "  " + noteLine
	}
	return out
}

// collectNotes gathers the indented continuation lines directly under
// the task line at idx, returning the joined notes text and how many
// lines the block spans.
func collectNotes(lines []string, idx int, indent string) (string, int) {
	var notes []string
	span := 0

	for i := idx + 1; i < len(lines); i++ {
		l := lines[i]
		if strings.TrimSpace(l) == "" {
			break
		}
		if !strings.HasPrefix(l, indent+" ") && !strings.HasPrefix(l, indent+"\t") {
			break
		}
		if _, isTask := parseLine(l); isTask {
			break
		}

		trimmed := strings.TrimPrefix(l, indent+"  ")
		if trimmed == l {
			trimmed = strings.TrimLeft(l, " \t")
		}
		notes = append(notes, trimmed)
		span++
	}

	return strings.Join(notes, "\n"), span
}

func readLines(path string) ([]string, fs.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	lines := strings.Split(content, "\n")
	// A trailing newline produces one empty trailing element; drop it so
	// writeLines can re-add it without growing the file on each pass.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, info.Mode(), nil
}

func writeLines(path string, lines []string, mode fs.FileMode) error {
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
