package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global carries state shared across subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI is the root command definition with global flags.
type CLI struct {
	Config  string           `short:"c" help:"Pipeline configuration file path" default:"distbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Run the build pipeline once"`
	Init    InitCmd    `cmd:"" help:"Initialize a new pipeline configuration file"`
	Plan    PlanCmd    `cmd:"" help:"Show the resolved stages without running them"`
	History HistoryCmd `cmd:"" help:"Show recent runs from the history database"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild continuously when watched paths change"`
}

// AfterApply runs after flag parsing; setup logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}
