package commands

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/service"
	"livetask/internal/store"
	"livetask/internal/view"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	due      string
	priority string

	// now is the clock used for the default due date.
	now func() time.Time
}

// SetForm sets the due date and priority flags (for testing).
func (c *AddCmd) SetForm(due, priority string) {
	c.due = due
	c.priority = priority
}

// SetClock sets the clock used for the default due date (for testing).
func (c *AddCmd) SetClock(now func() time.Time) {
	c.now = now
}

func (c *AddCmd) Name() string        { return "add" }
func (c *AddCmd) Aliases() []string   { return []string{"create"} }
func (c *AddCmd) Synopsis() string    { return "Create a task" }
func (c *AddCmd) NeedsDatabase() bool { return true }

func (c *AddCmd) Usage() string {
	return "livetask add [--due <YYYY-MM-DD>] [--priority <p>] <text...>"
}

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.due, "due", "d", "", "")
	fs.StringVarP(&c.priority, "priority", "p", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return fail(streams.ErrOut, nil, store.ErrEmptyText)
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	due := c.due
	if due == "" {
		due = now().UTC().Format(service.DateLayout)
	}

	surface := newSurface(streams, cfg)
	v := view.New(store.New(db), surface, view.WithClock(now))
	if _, err := v.Add(ctx, view.AddForm{Text: text, DueDate: due, Priority: c.priority}); err != nil {
		return fail(streams.ErrOut, surface, err)
	}

	ok(cfg, streams.Out)
	return exitcode.Success
}
