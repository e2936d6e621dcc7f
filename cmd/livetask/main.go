// Package main is the entry point for the livetask CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"livetask/internal/cli"
	"livetask/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	// A nil factory opens the backend named in config.
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
