// Package cli parses the command line and dispatches to commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"livetask/internal/backend"
	"livetask/internal/commands"
	"livetask/internal/config"
	"livetask/internal/exitcode"
	"livetask/internal/logging"
	"livetask/internal/service"
)

// DatabaseFactory opens the database a command runs against.
type DatabaseFactory func(ctx context.Context, cfg *config.Config) (service.Database, error)

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  DatabaseFactory
}

// NewDispatcher creates a dispatcher. A nil factory opens the backend named
// in config.
func NewDispatcher(registry *commands.Registry, factory DatabaseFactory) *Dispatcher {
	if factory == nil {
		factory = backend.Open
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	streams := commands.IO{In: in, Out: out, ErrOut: errOut}

	// No args -> list everything
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, streams)
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], streams)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, streams commands.IO) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(streams.ErrOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, streams)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, streams commands.IO) int {
	errOut := streams.ErrOut

	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(streams.Out, "Usage: %s\n", cmd.Usage())
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := logging.New(debug, errOut)
	defer func() { _ = logger.Sync() }()

	if err := cfg.Load(); err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.AuthError
	}

	var db service.Database
	if cmd.NeedsDatabase() {
		db, err = d.factory(ctx, cfg)
		if err != nil {
			code := exitcode.ForError(err)
			if code != exitcode.AuthError {
				code = exitcode.BackendError
			}
			fmt.Fprintf(errOut, "error: %s\n", err)
			return code
		}
		if c, ok := db.(io.Closer); ok {
			defer c.Close()
		}
	}

	return cmd.Run(ctx, cfg, db, fs.Args(), streams)
}
