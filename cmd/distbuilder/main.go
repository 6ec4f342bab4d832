package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/distbuilder/cmd/distbuilder/commands"
	"git.home.luguber.info/inful/distbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("distbuilder"),
		kong.Description("Multi-stage desktop distribution build pipeline"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{Logger: slog.Default()}); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(commands.ExitCode(err))
	}
}
