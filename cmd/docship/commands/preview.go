package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/preview"
)

// PreviewCmd serves the generated site locally, rebuilding on docs changes.
type PreviewCmd struct {
	DocsDir string `short:"d" name:"docs-dir" help:"Docs directory to watch (overrides config)"`
	Output  string `short:"o" name:"output" help:"Output directory for the generated site (defaults to temp)"`
	Port    int    `name:"port" default:"0" help:"Server port; 0 picks a random free port"`
}

func (p *PreviewCmd) Run(_ *Global, root *CLI) error {
	sigctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if p.DocsDir != "" {
		cfg.Site.DocsDir = p.DocsDir
	}

	// Preview builds into a temp dir by default so it never clobbers a
	// real build output.
	outDir := p.Output
	if outDir == "" {
		tmp, err := os.MkdirTemp("", "docship-preview-*")
		if err != nil {
			return fmt.Errorf("create temp output: %w", err)
		}
		defer func() { _ = os.RemoveAll(tmp) }()
		outDir = tmp
		slog.Info("Using temporary output directory for preview", "output", outDir)
	}
	cfg.Output.Directory = outDir
	cfg.Output.Clean = true

	return preview.New(cfg, p.Port).Serve(sigctx)
}
