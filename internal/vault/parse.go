// Package vault is the local-side collaborator: tasks live as Markdown
// checkbox lines inside the .md files of a vault directory. The package
// converts between those lines and the neutral task model, and applies
// the engine's change lists back to the files.
//
// Line shape (all parts after the title optional):
//
//	- [ ] Call the bank #errands ⏫ 🔁 FREQ=WEEKLY 🛫 2024-05-01 ⏳ 2024-05-10 📅 2024-05-15 ✅ 2024-05-14 %%sync:uid%%
//
// The %%sync:...%% marker carries the stable identifier; Obsidian hides
// %%...%% comments, so the marker does not show up when the note is
// rendered. Notes attach as indented continuation lines under the task.
package vault

import (
	"regexp"
	"sort"
	"strings"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

var (
	taskLineRe = regexp.MustCompile(`^(\s*)- \[(.)\] (.*)$`)
	syncIDRe   = regexp.MustCompile(`\s*%%sync:([^%]+)%%`)
)

// Date and recurrence markers, following the Tasks-plugin emoji format.
const (
	markerDue       = "📅"
	markerStart     = "🛫"
	markerScheduled = "⏳"
	markerCompleted = "✅"
	markerRecur     = "🔁"
)

var priorityMarkers = map[string]models.Priority{
	"🔺": models.PriorityHighest,
	"⏫": models.PriorityHigh,
	"🔼": models.PriorityMedium,
	"🔽": models.PriorityLow,
	"⏬": models.PriorityLowest,
}

var statusChars = map[byte]models.Status{
	' ': models.StatusTodo,
	'/': models.StatusInProgress,
	'x': models.StatusDone,
	'X': models.StatusDone,
	'-': models.StatusCancelled,
}

var statusToChar = map[models.Status]string{
	models.StatusTodo:       " ",
	models.StatusInProgress: "/",
	models.StatusDone:       "x",
	models.StatusCancelled:  "-",
}

// line holds one parsed task line. Indent is preserved so rewrites keep
// the surrounding list structure intact.
type line struct {
	Task   models.Task
	Indent string
}

// parseLine parses one Markdown line. ok is false when the line is not
// a task checkbox line at all. Task.UID is empty when the line has no
// sync marker yet.
func parseLine(raw string) (parsed line, ok bool) {
	m := taskLineRe.FindStringSubmatch(raw)
	if m == nil {
		return line{}, false
	}

	status, known := statusChars[m[2][0]]
	if !known {
		return line{}, false
	}

	parsed.Indent = m[1]
	parsed.Task.Status = status
	parsed.Task.Priority = models.PriorityNone

	body := m[3]

	if idm := syncIDRe.FindStringSubmatch(body); idm != nil {
		parsed.Task.UID = strings.TrimSpace(idm[1])
		body = syncIDRe.ReplaceAllString(body, "")
	}

	parseBody(body, &parsed.Task)
	return parsed, true
}

type occurrence struct {
	idx    int
	marker string
}

// parseBody splits the line body into the title segment and marker
// segments, filling the task in place.
func parseBody(body string, task *models.Task) {
	markers := []string{markerDue, markerStart, markerScheduled, markerCompleted, markerRecur}
	for m := range priorityMarkers {
		markers = append(markers, m)
	}

	var occs []occurrence
	for _, marker := range markers {
		offset := 0
		rest := body
		for {
			i := strings.Index(rest, marker)
			if i < 0 {
				break
			}
			occs = append(occs, occurrence{idx: offset + i, marker: marker})
			advance := i + len(marker)
			offset += advance
			rest = rest[advance:]
		}
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].idx < occs[j].idx })

	titleEnd := len(body)
	if len(occs) > 0 {
		titleEnd = occs[0].idx
	}
	task.Title, task.Tags = splitTags(body[:titleEnd])

	for i, occ := range occs {
		start := occ.idx + len(occ.marker)
		end := len(body)
		if i+1 < len(occs) {
			end = occs[i+1].idx
		}
		value := strings.TrimSpace(body[start:end])

		if priority, ok := priorityMarkers[occ.marker]; ok {
			task.Priority = priority
			continue
		}

		switch occ.marker {
		case markerRecur:
			task.Recurrence = value
		case markerDue:
			task.Due = parseMarkerDate(value)
		case markerStart:
			task.Start = parseMarkerDate(value)
		case markerScheduled:
			task.Scheduled = parseMarkerDate(value)
		case markerCompleted:
			task.Completed = parseMarkerDate(value)
		}
	}
}

// splitTags separates #tag tokens from the title words, keeping tag
// order of appearance.
func splitTags(segment string) (title string, tags []string) {
	var words []string
	for _, field := range strings.Fields(segment) {
		if len(field) > 1 && strings.HasPrefix(field, "#") {
			tags = append(tags, field[1:])
			continue
		}
		words = append(words, field)
	}
	return strings.Join(words, " "), tags
}

// parseMarkerDate reads the leading date token of a marker value.
// Malformed dates leave the field unset rather than failing the line.
func parseMarkerDate(value string) models.Date {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return models.Date{}
	}
	date, err := models.ParseDate(fields[0])
	if err != nil {
		return models.Date{}
	}
	return date
}

// renderLine writes a task back as a Markdown line, markers in the
// canonical order parseBody expects.
func renderLine(task *models.Task, indent string) string {
	var b strings.Builder
	b.WriteString(indent)
	b.WriteString("- [")
	b.WriteString(statusToChar[task.Status])
	b.WriteString("] ")
	b.WriteString(task.Title)

	for _, tag := range task.Tags {
		b.WriteString(" #")
		b.WriteString(tag)
	}
	if task.Priority != models.PriorityNone {
		b.WriteString(" ")
		b.WriteString(priorityMarker(task.Priority))
	}
	if task.Recurrence != "" {
		b.WriteString(" " + markerRecur + " ")
		b.WriteString(task.Recurrence)
	}
	if !task.Start.IsZero() {
		b.WriteString(" " + markerStart + " ")
		b.WriteString(task.Start.String())
	}
	if !task.Scheduled.IsZero() {
		b.WriteString(" " + markerScheduled + " ")
		b.WriteString(task.Scheduled.String())
	}
	if !task.Due.IsZero() {
		b.WriteString(" " + markerDue + " ")
		b.WriteString(task.Due.String())
	}
	if !task.Completed.IsZero() {
		b.WriteString(" " + markerCompleted + " ")
		b.WriteString(task.Completed.String())
	}
	b.WriteString(" %%sync:")
	b.WriteString(task.UID)
	b.WriteString("%%")

	return b.String()
}

func priorityMarker(p models.Priority) string {
	for marker, priority := range priorityMarkers {
		if priority == p {
			return marker
		}
	}
	return ""
}
