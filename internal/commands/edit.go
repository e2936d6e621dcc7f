package commands

import (
	"context"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Fields without a flag keep their
// current value.
type EditCmd struct {
	criteria criteriaFlags

	text     string
	due      string
	priority string
}

// SetFields sets the edit flags (for testing).
func (c *EditCmd) SetFields(text, due, priority string) {
	c.text = text
	c.due = due
	c.priority = priority
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a task's text, due date or priority" }
func (c *EditCmd) Usage() string {
	return "livetask edit [criteria flags] [--text <text>] [--due <YYYY-MM-DD>] [--priority <p>] <ref>"
}
func (c *EditCmd) NeedsDatabase() bool { return true }

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.criteria.register(fs, "filter")
	fs.StringVarP(&c.text, "text", "t", "", "")
	fs.StringVarP(&c.due, "due", "d", "", "")
	fs.StringVarP(&c.priority, "priority", "p", "", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return usage(streams.ErrOut, err)
	}
	criteria, err := c.criteria.criteria()
	if err != nil {
		return usage(streams.ErrOut, err)
	}

	surface := newSurface(streams, cfg)
	s, err := openSession(ctx, cfg, db, criteria, surface)
	if err != nil {
		return fail(streams.ErrOut, surface, err)
	}
	task, err := s.resolve(ref)
	if err != nil {
		return fail(streams.ErrOut, surface, err)
	}

	form, err := s.view.OpenEdit(task.ID)
	if err != nil {
		return fail(streams.ErrOut, surface, err)
	}
	defer s.view.CloseEdit()

	if c.text != "" {
		form.Text = c.text
	}
	if c.due != "" {
		form.DueDate = c.due
	}
	if c.priority != "" {
		form.Priority = c.priority
	}

	if err := s.view.SubmitEdit(ctx, form); err != nil {
		return fail(streams.ErrOut, surface, err)
	}

	ok(cfg, streams.Out)
	return exitcode.Success
}
