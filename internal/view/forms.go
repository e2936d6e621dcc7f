package view

import (
	"strings"
	"time"

	"livetask/internal/service"
)

// AddForm holds the add-task input slots.
type AddForm struct {
	Text     string
	DueDate  string
	Priority string
}

// EditForm holds the edit modal input slots.
type EditForm struct {
	ID       string
	Text     string
	DueDate  string
	Priority string
}

// NormalizeDueDate returns s as a YYYY-MM-DD date. RFC 3339 timestamps are
// cut to their date. Anything else is replaced by today's UTC date and ok
// is false.
func NormalizeDueDate(s string, now time.Time) (date string, ok bool) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(service.DateLayout, s); err == nil {
		return d.Format(service.DateLayout), true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.Format(service.DateLayout), true
	}
	return now.UTC().Format(service.DateLayout), false
}

// parseFormPriority defaults an empty priority to medium.
func parseFormPriority(s string) (service.Priority, error) {
	if strings.TrimSpace(s) == "" {
		return service.PriorityMedium, nil
	}
	return service.ParsePriority(s)
}
