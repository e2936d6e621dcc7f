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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string        { return "help" }
func (c *HelpCmd) Aliases() []string   { return nil }
func (c *HelpCmd) Synopsis() string    { return "Print usage" }
func (c *HelpCmd) Usage() string       { return "livetask help" }
func (c *HelpCmd) NeedsDatabase() bool { return false }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, db service.Database, args []string, streams IO) int {
	fmt.Fprint(streams.Out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  livetask                                   List all tasks
  livetask list [criteria flags]             List tasks
  livetask add [--due <date>] [--priority <p>] <text...>
  livetask done [criteria flags] <ref>       Toggle completion
  livetask edit [--text <t>] [--due <date>] [--priority <p>]
                [--search <q>] [--filter <p>] [--sort <mode>] <ref>
  livetask rm [criteria flags] [--force] <ref>
  livetask watch [criteria flags]            Print the list on every change
  livetask shell                             Interactive task list
  livetask serve [--addr <host:port>]        Serve the JSON API
  livetask login [common flags]
  livetask logout [common flags]
  livetask help
  livetask version

Criteria flags:
  -s, --search <text>      Show tasks whose text contains text
  --priority <p>           Show only high, medium or low tasks
  --sort <mode>            date, priority, name or none

A <ref> is a number from the list printed with the same criteria, or a
task id. Ids starting with "-" must follow "--".

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
