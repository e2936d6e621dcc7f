// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"livetask/internal/config"
	"livetask/internal/service"
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsDatabase returns true if the command reads or writes tasks.
	// Commands like help, version, login, logout return false.
	NeedsDatabase() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// db is nil if NeedsDatabase() returns false.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, io IO) int
}

// IO bundles the standard streams a command talks to.
type IO struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}
