package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/matrix"
	"git.home.luguber.info/inful/docship/internal/runner"
)

// RunCmd executes the CI matrix locally.
type RunCmd struct {
	Tag         string `help:"Release tag of this run; enables tag-gated lanes"`
	Event       string `default:"push" help:"Event type of this run (push, tag, cron, ...)"`
	MaxParallel int    `name:"max-parallel" help:"Concurrent lanes per stage (overrides config)"`
	Dir         string `short:"C" help:"Working directory for lane steps" default:"."`
}

func (r *RunCmd) Run(_ *Global, root *CLI) error {
	sigctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	m, err := matrix.Load(cfg.Matrix.File)
	if err != nil {
		return err
	}

	maxParallel := cfg.Matrix.MaxParallel
	if r.MaxParallel > 0 {
		maxParallel = r.MaxParallel
	}

	report, err := runner.New(m, runner.Options{
		Tag:         r.Tag,
		Event:       r.Event,
		MaxParallel: maxParallel,
		Dir:         r.Dir,
		Output:      os.Stdout,
	}).Run(sigctx)
	if err != nil {
		return err
	}

	passed, failed, skipped := 0, 0, 0
	for _, result := range report.Results {
		switch result.Status {
		case runner.StatusPassed:
			passed++
		case runner.StatusFailed:
			failed++
		case runner.StatusSkipped:
			skipped++
		}
	}
	fmt.Printf("Run %s: %d passed, %d failed, %d skipped\n", report.RunID, passed, failed, skipped)

	if report.Failed() {
		return fmt.Errorf("matrix run failed")
	}
	return nil
}
