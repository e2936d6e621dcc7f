package commands

import (
	"context"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/service"
	"livetask/internal/shell"
	"livetask/internal/store"
)

func init() {
	Register(&ShellCmd{})
}

// ShellCmd implements the shell command.
type ShellCmd struct {
	reader shell.LineReader
}

// SetReader replaces the terminal line reader (for testing).
func (c *ShellCmd) SetReader(lr shell.LineReader) {
	c.reader = lr
}

func (c *ShellCmd) Name() string        { return "shell" }
func (c *ShellCmd) Aliases() []string   { return []string{"sh"} }
func (c *ShellCmd) Synopsis() string    { return "Interactive task list" }
func (c *ShellCmd) Usage() string       { return "livetask shell [common flags]" }
func (c *ShellCmd) NeedsDatabase() bool { return true }

func (c *ShellCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	st := store.New(db)
	if code := checkConnection(ctx, st, streams); code != exitcode.Success {
		return code
	}

	lr := c.reader
	if lr == nil {
		_ = cfg.EnsureDir()
		term := shell.OpenTerminal(cfg.HistoryPath())
		defer term.Close()
		lr = term
	}

	sh := shell.New(st, lr, streams.Out, shell.WithLocale(cfg.LocaleTag()))
	if err := sh.Run(ctx); err != nil {
		return fail(streams.ErrOut, nil, err)
	}
	return exitcode.Success
}
