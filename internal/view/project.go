package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"livetask/internal/service"
)

// SortMode selects the ordering of the projection.
type SortMode string

const (
	SortNone     SortMode = ""
	SortDate     SortMode = "date"
	SortPriority SortMode = "priority"
	SortName     SortMode = "name"
)

// ParseSortMode parses a sort mode. "" and "none" mean no sorting.
func ParseSortMode(s string) (SortMode, error) {
	switch m := strings.ToLower(strings.TrimSpace(s)); m {
	case "", "none":
		return SortNone, nil
	case string(SortDate), string(SortPriority), string(SortName):
		return SortMode(m), nil
	}
	return "", fmt.Errorf("invalid sort mode: %s", s)
}

// ParsePriorityFilter parses a priority filter. "" and "none" select every
// priority and return the empty Priority.
func ParsePriorityFilter(s string) (service.Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "all":
		return "", nil
	}
	return service.ParsePriority(s)
}

// Criteria are the user-selected search, filter and sort settings.
type Criteria struct {
	Search   string
	Priority service.Priority // empty = no priority filter
	Sort     SortMode
}

// Project filters and sorts tasks. It never modifies its input:
//  1. case-insensitive substring match of the trimmed search on the text
//  2. exact priority match when a filter is set
//  3. stable sort by the selected mode
func Project(tasks []service.Task, c Criteria, locale language.Tag) []service.Task {
	query := strings.ToLower(strings.TrimSpace(c.Search))

	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsDeleted {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Text), query) {
			continue
		}
		if c.Priority != "" && t.Priority != c.Priority {
			continue
		}
		out = append(out, t)
	}

	switch c.Sort {
	case SortDate:
		slices.SortStableFunc(out, compareDueDate)
	case SortPriority:
		slices.SortStableFunc(out, func(a, b service.Task) int {
			return b.Priority.Weight() - a.Priority.Weight()
		})
	case SortName:
		col := collate.New(locale)
		slices.SortStableFunc(out, func(a, b service.Task) int {
			return col.CompareString(a.Text, b.Text)
		})
	}
	return out
}

// compareDueDate orders chronologically; unparsable dates go last.
func compareDueDate(a, b service.Task) int {
	da, errA := time.Parse(service.DateLayout, a.DueDate)
	db, errB := time.Parse(service.DateLayout, b.DueDate)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	return da.Compare(db)
}
