package shell

import (
	"bytes"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"
)

var commandNames = []string{
	"add", "due", "prio", "search", "clear", "filter", "sort",
	"toggle", "rm", "edit", "show", "ls", "help", "quit",
}

// Terminal is a LineReader on the controlling terminal. History is read
// from historyPath on open and written back on Close.
type Terminal struct {
	*liner.State
	historyPath string
}

// OpenTerminal puts the terminal in line-editing mode.
func OpenTerminal(historyPath string) *Terminal {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	state.SetCompleter(complete)

	if f, err := os.Open(historyPath); err == nil {
		_, _ = state.ReadHistory(f)
		f.Close()
	}
	return &Terminal{State: state, historyPath: historyPath}
}

// Close saves the history and restores the terminal.
func (t *Terminal) Close() error {
	var buf bytes.Buffer
	if _, err := t.WriteHistory(&buf); err == nil && t.historyPath != "" {
		_ = atomic.WriteFile(t.historyPath, &buf)
	}
	return t.State.Close()
}

func complete(line string) []string {
	var out []string
	for _, name := range commandNames {
		if strings.HasPrefix(name, strings.ToLower(line)) {
			out = append(out, name)
		}
	}
	return out
}
