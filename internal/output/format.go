// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"livetask/internal/service"
)

// EmptyPlaceholder is shown instead of an empty list.
const EmptyPlaceholder = "no tasks found"

// FormatTask formats one task line.
// Format: "{N:>4}  [x] {TEXT}  ({PRIORITY}, due {DATE})\n"
func FormatTask(w io.Writer, num int, task service.Task) {
	mark := " "
	if task.Completed {
		mark = "x"
	}
	fmt.Fprintf(w, "%4d  [%s] %s  (%s, due %s)\n", num, mark, normalizeText(task.Text), task.Priority, task.DueDate)
}

// RenderList formats each task numbered from 1, or the placeholder line.
func RenderList(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, EmptyPlaceholder)
		return
	}
	for i, task := range tasks {
		FormatTask(w, i+1, task)
	}
}

// FormatTaskDetail formats a task with its id, for edit prompts and logs.
func FormatTaskDetail(w io.Writer, task service.Task) {
	fmt.Fprintf(w, "id:       %s\n", task.ID)
	fmt.Fprintf(w, "text:     %s\n", normalizeText(task.Text))
	fmt.Fprintf(w, "due:      %s\n", task.DueDate)
	fmt.Fprintf(w, "priority: %s\n", task.Priority)
	fmt.Fprintf(w, "done:     %t\n", task.Completed)
}

// normalizeText normalizes task text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
