// Package commands contains the docship CLI command implementations.
package commands

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
)

// Global context passed to subcommands if we need to share global state later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Generate the static documentation site"`
	Preview PreviewCmd `cmd:"" help:"Serve the site locally and rebuild on docs changes"`
	Verify  VerifyCmd  `cmd:"" help:"Run verification checks (manifests, emoji, links, matrix)"`
	Lock    LockCmd    `cmd:"" help:"Compile requirement manifests into pinned lock files"`
	Run     RunCmd     `cmd:"" help:"Execute the CI matrix locally"`
	Deploy  DeployCmd  `cmd:"" help:"Publish the site to the pages repository and dispatch the workflow"`
	Daemon  DaemonCmd  `cmd:"" help:"Run scheduled matrix runs with metrics and history"`
	History HistoryCmd `cmd:"" help:"List recorded run events from the history store"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}
