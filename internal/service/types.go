package service

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of Task.DueDate.
const DateLayout = "2006-01-02"

// ErrInvalidPriority is returned for a priority outside high/medium/low.
var ErrInvalidPriority = errors.New("invalid priority")

// Priority ranks a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight orders priorities: high=3, medium=2, low=1, anything else 0.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	return p.Weight() > 0
}

// ParsePriority parses a priority name (case-insensitive, trimmed).
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// Task represents a single task record.
type Task struct {
	ID        string
	Text      string
	DueDate   string // YYYY-MM-DD
	Priority  Priority
	Completed bool
	IsDeleted bool
	CreatedAt time.Time // zero until the server assigns it
	DeletedAt time.Time
}

// NewTask holds the user-supplied fields of a task being created.
type NewTask struct {
	Text     string
	DueDate  string
	Priority Priority
}

// TaskUpdate holds the user-editable fields to merge into a task.
// Nil fields are left unchanged.
type TaskUpdate struct {
	Text      *string
	DueDate   *string
	Priority  *Priority
	Completed *bool
}

// Fields returns the wire fields set in u.
func (u TaskUpdate) Fields() map[string]any {
	fields := make(map[string]any)
	if u.Text != nil {
		fields["text"] = *u.Text
	}
	if u.DueDate != nil {
		fields["dueDate"] = *u.DueDate
	}
	if u.Priority != nil {
		fields["priority"] = string(*u.Priority)
	}
	if u.Completed != nil {
		fields["completed"] = *u.Completed
	}
	return fields
}
