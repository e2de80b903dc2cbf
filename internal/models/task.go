package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusDone       Status = "DONE"
	StatusCancelled  Status = "CANCELLED"
)

// Priority is one of six task priority levels.
type Priority string

const (
	PriorityNone    Priority = "none"
	PriorityLowest  Priority = "lowest"
	PriorityLow     Priority = "low"
	PriorityMedium  Priority = "medium"
	PriorityHigh    Priority = "high"
	PriorityHighest Priority = "highest"
)

// Date is a calendar date with no time-of-day and no timezone.
// The zero value means "not set".
type Date struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses an ISO date in the form "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats the date as "2006-01-02", or "" when unset.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty string
// unmarshals to the zero date.
func (d *Date) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Task is the neutral task model both sides are normalized onto before
// diffing. It is a pure value: two Tasks with equal fields are
// interchangeable, and nothing outside the listed fields takes part in
// synchronization.
type Task struct {
	UID        string   `json:"uid"`                  // UID stable identifier, shared by both sides
	Title      string   `json:"title"`                // Title single-line display text, no sync metadata
	Status     Status   `json:"status"`               // Status one of the four lifecycle states
	Priority   Priority `json:"priority"`             // Priority one of the six levels
	Recurrence string   `json:"recurrence,omitempty"` // Recurrence opaque recurrence rule, "" when none
	Notes      string   `json:"notes,omitempty"`      // Notes free-form multi-line text
	Tags       []string `json:"tags,omitempty"`       // Tags ordered list, order significant for equality
	Due        Date     `json:"due,omitzero"`
	Start      Date     `json:"start,omitzero"`
	Scheduled  Date     `json:"scheduled,omitzero"`
	Completed  Date     `json:"completed,omitzero"`
}

// Equal reports whether two tasks have identical field values.
// Tag order is significant: a reorder counts as a change.
func (t *Task) Equal(other *Task) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.UID != other.UID ||
		t.Title != other.Title ||
		t.Status != other.Status ||
		t.Priority != other.Priority ||
		t.Recurrence != other.Recurrence ||
		t.Notes != other.Notes ||
		t.Due != other.Due ||
		t.Start != other.Start ||
		t.Scheduled != other.Scheduled ||
		t.Completed != other.Completed {
		return false
	}
	if len(t.Tags) != len(other.Tags) {
		return false
	}
	for i := range t.Tags {
		if t.Tags[i] != other.Tags[i] {
			return false
		}
	}
	return true
}

// Clone creates a deep copy of the task.
func (t *Task) Clone() *Task {
	clone := *t
	if t.Tags != nil {
		clone.Tags = make([]string, len(t.Tags))
		copy(clone.Tags, t.Tags)
	}
	return &clone
}
