package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/service"
	"livetask/internal/store"
	"livetask/internal/view"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: the list is printed again every
// time the database pushes a change, until interrupted.
type WatchCmd struct {
	criteria criteriaFlags
}

// SetCriteria sets the criteria flags (for testing).
func (c *WatchCmd) SetCriteria(search, priority, sort string) {
	c.criteria = criteriaFlags{search: search, priority: priority, sort: sort}
}

func (c *WatchCmd) Name() string        { return "watch" }
func (c *WatchCmd) Aliases() []string   { return nil }
func (c *WatchCmd) Synopsis() string    { return "Print the list on every change" }
func (c *WatchCmd) Usage() string       { return "livetask watch [criteria flags]" }
func (c *WatchCmd) NeedsDatabase() bool { return true }

func (c *WatchCmd) RegisterFlags(fs *pflag.FlagSet) {
	c.criteria.register(fs, "priority")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	if len(args) > 0 {
		fmt.Fprintf(streams.ErrOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	criteria, err := c.criteria.criteria()
	if err != nil {
		return usage(streams.ErrOut, err)
	}

	st := store.New(db)
	if code := checkConnection(ctx, st, streams); code != exitcode.Success {
		return code
	}

	surface := newSurface(streams, cfg)
	surface.render = true
	surface.separate = true

	v := view.New(st, surface, view.WithCriteria(criteria), view.WithLocale(cfg.LocaleTag()))
	v.Attach(ctx)
	<-ctx.Done()
	return exitcode.Success
}

// checkConnection probes the database before a long-running command
// attaches its listener.
func checkConnection(ctx context.Context, st *store.Store, streams IO) int {
	probeCtx, cancel := context.WithTimeout(ctx, SnapshotTimeout)
	defer cancel()
	if err := st.CheckConnection(probeCtx); err != nil {
		return fail(streams.ErrOut, nil, fmt.Errorf("database connection failed: %w", err))
	}
	return exitcode.Success
}
