package commands

import (
	"context"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. It toggles, so running it on a
// completed task reopens it.
type DoneCmd struct {
	criteria criteriaFlags
}

func (c *DoneCmd) Name() string        { return "done" }
func (c *DoneCmd) Aliases() []string   { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string    { return "Toggle a task's completion" }
func (c *DoneCmd) Usage() string       { return "livetask done [criteria flags] <ref>" }
func (c *DoneCmd) NeedsDatabase() bool { return true }

func (c *DoneCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.criteria.register(fs, "priority")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
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

	if err := s.view.Toggle(ctx, task.ID); err != nil {
		return fail(streams.ErrOut, surface, err)
	}

	ok(cfg, streams.Out)
	return exitcode.Success
}
