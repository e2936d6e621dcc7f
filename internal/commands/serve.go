package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/httpapi"
	"livetask/internal/service"
	"livetask/internal/store"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command.
type ServeCmd struct {
	addr string
}

// SetAddr sets the listen address (for testing).
func (c *ServeCmd) SetAddr(addr string) {
	c.addr = addr
}

func (c *ServeCmd) Name() string        { return "serve" }
func (c *ServeCmd) Aliases() []string   { return nil }
func (c *ServeCmd) Synopsis() string    { return "Serve the JSON API" }
func (c *ServeCmd) Usage() string       { return "livetask serve [--addr <host:port>]" }
func (c *ServeCmd) NeedsDatabase() bool { return true }

func (c *ServeCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	st := store.New(db)
	if code := checkConnection(ctx, st, streams); code != exitcode.Success {
		return code
	}

	addr := c.addr
	if addr == "" {
		addr = cfg.ListenAddr
	}
	if addr == "" {
		addr = config.DefaultListenAddr
	}
	if !cfg.Quiet {
		fmt.Fprintf(streams.ErrOut, "listening on %s\n", addr)
	}

	srv := httpapi.New(st, httpapi.WithLocale(cfg.LocaleTag()))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		fmt.Fprintf(streams.ErrOut, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
