package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docship/cmd/docship/commands"
	"git.home.luguber.info/inful/docship/internal/version"
)

func main() {
	var cli commands.CLI
	// AfterApply has installed the default logger by the time Parse returns.
	ctx := kong.Parse(&cli,
		kong.Name("docship"),
		kong.Description("Build, verify and ship documentation sites."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	err := ctx.Run(&commands.Global{Logger: slog.Default()}, &cli)
	ctx.FatalIfErrorf(err)
}
