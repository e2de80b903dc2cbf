// Package ical converts between the CalDAV wire representation of a task
// (a VCALENDAR text block holding one VTODO component) and the neutral
// task model. Both directions are pure: Decode never mutates shared state
// and Encode is total over structurally valid tasks.
package ical

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/josecoelho/obsidian-tasks-caldav-sub000/internal/models"
)

// ErrMissingUID is returned by Decode when the VTODO lacks its mandatory
// UID property. Callers skip such records instead of aborting the batch.
var ErrMissingUID = errors.New("vtodo has no UID property")

const prodID = "-//tasksync//obsidian-tasks-caldav//EN"

// maxLineOctets is the folding width for encoded output, per RFC 5545.
const maxLineOctets = 75

// statusToIcal maps the four neutral statuses onto VTODO STATUS values.
var statusToIcal = map[models.Status]string{
	models.StatusTodo:       "NEEDS-ACTION",
	models.StatusInProgress: "IN-PROCESS",
	models.StatusDone:       "COMPLETED",
	models.StatusCancelled:  "CANCELLED",
}

// statusFromIcal is the exact inverse of statusToIcal.
var statusFromIcal = map[string]models.Status{
	"NEEDS-ACTION": models.StatusTodo,
	"IN-PROCESS":   models.StatusInProgress,
	"COMPLETED":    models.StatusDone,
	"CANCELLED":    models.StatusCancelled,
}

// priorityToCode is the 1:1 encode table: six levels, six numeric codes.
var priorityToCode = map[models.Priority]int{
	models.PriorityNone:    0,
	models.PriorityHighest: 1,
	models.PriorityHigh:    3,
	models.PriorityMedium:  5,
	models.PriorityLow:     7,
	models.PriorityLowest:  9,
}

// priorityFromCode collapses the 0-9 numeric space onto the six levels.
// The mapping is banded, not the inverse of priorityToCode, but every
// code produced by priorityToCode decodes back to the level it encoded,
// so decode->encode->decode is stable.
func priorityFromCode(code int) models.Priority {
	switch {
	case code == 1 || code == 2:
		return models.PriorityHighest
	case code == 3 || code == 4:
		return models.PriorityHigh
	case code == 5:
		return models.PriorityMedium
	case code == 6 || code == 7:
		return models.PriorityLow
	case code == 8 || code == 9:
		return models.PriorityLowest
	default:
		return models.PriorityNone
	}
}

// Decode parses one VCALENDAR/VTODO block into a Task. Missing optional
// properties simply leave their fields empty; only a missing UID is an
// error (ErrMissingUID). Input may use CRLF or bare LF line endings and
// may fold long lines per RFC 5545.
func Decode(raw string) (*models.Task, error) {
	task := &models.Task{
		Status:   models.StatusTodo,
		Priority: models.PriorityNone,
	}

	inTodo := false
	found := false

loop:
	for _, line := range unfold(raw) {
		name, value, ok := splitProperty(line)
		if !ok {
			continue
		}

		switch name {
		case "BEGIN":
			if strings.EqualFold(value, "VTODO") {
				inTodo = true
			}
			continue
		case "END":
			// Only the first VTODO counts; anything after it would
			// otherwise merge into the same task.
			if strings.EqualFold(value, "VTODO") && inTodo {
				break loop
			}
			continue
		}

		if !inTodo {
			continue
		}

		switch name {
		case "UID":
			task.UID = value
			found = true
		case "SUMMARY":
			task.Title = unescapeText(value)
		case "STATUS":
			if status, ok := statusFromIcal[strings.ToUpper(value)]; ok {
				task.Status = status
			}
		case "DUE":
			task.Due = parseDateValue(value)
		case "DTSTART":
			task.Start = parseDateValue(value)
		case "COMPLETED":
			task.Completed = parseDateValue(value)
		case "PRIORITY":
			if code, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				task.Priority = priorityFromCode(code)
			}
		case "CATEGORIES":
			// Repeated CATEGORIES lines union into one ordered list.
			task.Tags = append(task.Tags, splitList(value)...)
		case "RRULE":
			task.Recurrence = value
		case "DESCRIPTION":
			task.Notes = unescapeText(value)
		case "LAST-MODIFIED", "DTSTAMP", "CREATED":
			// Recognized but not part of the neutral model.
		}
	}

	if !found || task.UID == "" {
		return nil, ErrMissingUID
	}
	return task, nil
}

// Encode renders a Task as a VCALENDAR block holding one VTODO, folded
// and CRLF-terminated per RFC 5545. The uid parameter is the remote-side
// identifier to write; it may differ from task.UID when the identifier
// mapping assigns a separate remote id.
func Encode(task *models.Task, uid string) string {
	var b strings.Builder

	writeLine(&b, "BEGIN:VCALENDAR")
	writeLine(&b, "VERSION:2.0")
	writeLine(&b, "PRODID:"+prodID)
	writeLine(&b, "BEGIN:VTODO")
	writeLine(&b, "UID:"+uid)
	writeLine(&b, "SUMMARY:"+escapeText(task.Title))
	writeLine(&b, "STATUS:"+statusToIcal[task.Status])
	writeLine(&b, "PRIORITY:"+strconv.Itoa(priorityToCode[task.Priority]))
	if !task.Due.IsZero() {
		writeLine(&b, "DUE;VALUE=DATE:"+formatDate(task.Due))
	}
	if !task.Start.IsZero() {
		writeLine(&b, "DTSTART;VALUE=DATE:"+formatDate(task.Start))
	}
	if !task.Completed.IsZero() {
		writeLine(&b, "COMPLETED;VALUE=DATE:"+formatDate(task.Completed))
	}
	if len(task.Tags) > 0 {
		escaped := make([]string, len(task.Tags))
		for i, tag := range task.Tags {
			escaped[i] = escapeText(tag)
		}
		writeLine(&b, "CATEGORIES:"+strings.Join(escaped, ","))
	}
	if task.Recurrence != "" {
		writeLine(&b, "RRULE:"+task.Recurrence)
	}
	if task.Notes != "" {
		writeLine(&b, "DESCRIPTION:"+escapeText(task.Notes))
	}
	writeLine(&b, "END:VTODO")
	writeLine(&b, "END:VCALENDAR")

	return b.String()
}

// unfold normalizes line endings and joins folded continuation lines.
// A continuation starts with a single space or tab; its marker character
// is stripped and the remainder concatenated with no separator.
func unfold(raw string) []string {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")

	var logical []string
	for _, line := range strings.Split(normalized, "\n") {
		if line == "" {
			continue
		}
		if (line[0] == ' ' || line[0] == '\t') && len(logical) > 0 {
			logical[len(logical)-1] += line[1:]
			continue
		}
		logical = append(logical, line)
	}
	return logical
}

// splitProperty splits a logical line into its uppercased property name
// and value. Parameters between name and value are dropped: the value is
// everything after the first colon outside of double quotes, so values
// that themselves contain colons stay intact.
func splitProperty(line string) (name, value string, ok bool) {
	inQuotes := false
	sep := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ':':
			if !inQuotes {
				sep = i
			}
		}
		if sep >= 0 {
			break
		}
	}
	if sep < 0 {
		return "", "", false
	}

	name = line[:sep]
	if idx := strings.IndexByte(name, ';'); idx >= 0 {
		name = name[:idx]
	}
	return strings.ToUpper(strings.TrimSpace(name)), line[sep+1:], true
}

// parseDateValue extracts the calendar date from a DATE or DATE-TIME
// value. Time-of-day and timezone information is truncated, never
// converted: "20240601T230000Z" and "20240601" both yield 2024-06-01.
// Malformed values yield the zero date.
func parseDateValue(value string) models.Date {
	value = strings.TrimSpace(value)
	if len(value) < 8 {
		return models.Date{}
	}
	t, err := time.Parse("20060102", value[:8])
	if err != nil {
		return models.Date{}
	}
	return models.NewDate(t.Year(), t.Month(), t.Day())
}

func formatDate(d models.Date) string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, int(d.Month), d.Day)
}

// escapeText backslash-escapes the four characters that are structural
// in iCalendar text values: backslash, semicolon, comma and newline.
// Backslash goes first so already-escaped output never double-escapes
// after a decode.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	return s
}

// unescapeText reverses escapeText exactly.
func unescapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n', 'N':
			b.WriteByte('\n')
		case '\\', ';', ',':
			b.WriteByte(s[i])
		default:
			// Unknown escape, keep it verbatim.
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// splitList splits a CATEGORIES value on unescaped commas and unescapes
// each element, preserving order.
func splitList(value string) []string {
	var items []string
	var current strings.Builder

	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\\':
			current.WriteByte(value[i])
			if i+1 < len(value) {
				i++
				current.WriteByte(value[i])
			}
		case ',':
			items = append(items, unescapeText(current.String()))
			current.Reset()
		default:
			current.WriteByte(value[i])
		}
	}
	if current.Len() > 0 {
		items = append(items, unescapeText(current.String()))
	}
	return items
}

// writeLine folds a content line at the RFC 5545 width and terminates it
// with CRLF. Folding never splits a UTF-8 sequence.
func writeLine(b *strings.Builder, line string) {
	width := 0
	for _, r := range line {
		size := len(string(r))
		if width+size > maxLineOctets {
			b.WriteString("\r\n ")
			// The leading fold space counts against the next line.
			width = 1
		}
		b.WriteString(string(r))
		width += size
	}
	b.WriteString("\r\n")
}
