package commands

import (
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output string `short:"o" help:"Output directory for the generated site (overrides config)"`
	Clean  bool   `help:"Clean the output directory before building"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if b.Output != "" {
		cfg.Output.Directory = b.Output
	}
	if b.Clean {
		cfg.Output.Clean = true
	}

	slog.Info("Starting site build",
		logfields.Path(cfg.Site.DocsDir),
		slog.String("output", cfg.Output.Directory))

	report, err := site.NewGenerator(cfg.Site, cfg.Output).Build()
	if err != nil {
		return err
	}

	slog.Info("Site built",
		slog.Int("pages", len(report.Pages)),
		slog.Int("assets", report.Assets),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	fmt.Printf("Built %d pages into %s\n", len(report.Pages), report.OutputDir)
	return nil
}
