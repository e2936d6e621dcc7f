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
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string        { return "logout" }
func (c *LogoutCmd) Aliases() []string   { return nil }
func (c *LogoutCmd) Synopsis() string    { return "Remove stored credentials" }
func (c *LogoutCmd) Usage() string       { return "livetask logout [common flags]" }
func (c *LogoutCmd) NeedsDatabase() bool { return false }

func (c *LogoutCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	if !cfg.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(streams.Out, "not logged in")
		}
		return exitcode.Success
	}

	// Only the token goes; oauth_client.json and config.json stay.
	if err := cfg.RemoveToken(); err != nil {
		fmt.Fprintf(streams.ErrOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}

	ok(cfg, streams.Out)
	return exitcode.Success
}
