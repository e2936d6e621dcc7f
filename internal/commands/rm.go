package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/service"
	"livetask/internal/view"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command. Tasks are soft-deleted: the record stays
// in the database flagged as deleted and is never listed again.
type RmCmd struct {
	criteria criteriaFlags
	force    bool
}

// SetForce sets the force flag (for testing).
func (c *RmCmd) SetForce(force bool) {
	c.force = force
}

func (c *RmCmd) Name() string        { return "rm" }
func (c *RmCmd) Aliases() []string   { return []string{"delete"} }
func (c *RmCmd) Synopsis() string    { return "Delete a task" }
func (c *RmCmd) Usage() string       { return "livetask rm [criteria flags] [--force] <ref>" }
func (c *RmCmd) NeedsDatabase() bool { return true }

func (c *RmCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.criteria.register(fs, "priority")
	fs.BoolVarP(&c.force, "force", "f", false, "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return usage(streams.ErrOut, err)
	}
	criteria, err := c.criteria.criteria()
	if err != nil {
		return usage(streams.ErrOut, err)
	}

	surface := newSurface(streams, cfg)
	surface.force = c.force
	s, err := openSession(ctx, cfg, db, criteria, surface)
	if err != nil {
		return fail(streams.ErrOut, surface, err)
	}
	task, err := s.resolve(ref)
	if err != nil {
		return fail(streams.ErrOut, surface, err)
	}

	err = s.view.Delete(ctx, task.ID)
	if errors.Is(err, view.ErrCancelled) {
		if !cfg.Quiet {
			fmt.Fprintln(streams.Out, "cancelled")
		}
		return exitcode.Success
	}
	if err != nil {
		return fail(streams.ErrOut, surface, err)
	}

	ok(cfg, streams.Out)
	return exitcode.Success
}
