package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/service"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `livetask` (no args) and `livetask list [criteria flags]`.
type ListCmd struct {
	criteria criteriaFlags
}

// SetCriteria sets the criteria flags (for testing).
func (c *ListCmd) SetCriteria(search, priority, sort string) {
	c.criteria = criteriaFlags{search: search, priority: priority, sort: sort}
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "livetask list [--search <text>] [--priority <p>] [--sort <date|priority|name>]"
}
func (c *ListCmd) NeedsDatabase() bool { return true }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.criteria.register(fs, "priority")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	if len(args) > 0 {
		fmt.Fprintf(streams.ErrOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	criteria, err := c.criteria.criteria()
	if err != nil {
		return usage(streams.ErrOut, err)
	}

	surface := newSurface(streams, cfg)
	surface.render = true
	if _, err := openSession(ctx, cfg, db, criteria, surface); err != nil {
		return fail(streams.ErrOut, surface, err)
	}
	return exitcode.Success
}
