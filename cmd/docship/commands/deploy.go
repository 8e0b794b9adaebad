package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/deploy"
	"git.home.luguber.info/inful/docship/internal/forge"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/retry"
)

// DeployCmd publishes the built site to the pages repository and dispatches
// the downstream workflow.
type DeployCmd struct {
	Version string `help:"Version being released (defaults to $VERSION)"`
	Token   string `help:"Forge API token (defaults to $GITHUB_TOKEN)"`
	SiteDir string `short:"s" help:"Built site directory (overrides config output)"`
}

func (d *DeployCmd) Run(_ *Global, root *CLI) error {
	sigctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token := d.Token
	if token == "" {
		token = config.TokenFromEnv()
	}
	if token == "" {
		return fmt.Errorf("no token: set --token or GITHUB_TOKEN")
	}
	version := d.Version
	if version == "" {
		version = config.VersionFromEnv()
	}
	if version == "" {
		return fmt.Errorf("no version: set --version or VERSION")
	}

	siteDir := cfg.Output.Directory
	if d.SiteDir != "" {
		siteDir = d.SiteDir
	}

	var dispatcher deploy.Dispatcher
	if cfg.Deploy.Workflow != "" {
		client, err := forge.NewGitHubClient(cfg.Deploy.APIURL, token)
		if err != nil {
			return err
		}
		dispatcher = client
	}

	result, err := deploy.New(deploy.Options{
		Repository:  cfg.Deploy.Repository,
		Remote:      cfg.Deploy.Remote,
		Branch:      cfg.Deploy.Branch,
		Workflow:    cfg.Deploy.Workflow,
		Ref:         cfg.Deploy.Ref,
		Version:     version,
		Token:       token,
		SiteDir:     siteDir,
		AuthorName:  cfg.Deploy.AuthorName,
		AuthorEmail: cfg.Deploy.AuthorMail,
		Retry:       retry.FromConfig(cfg.Deploy.Retry),
	}, dispatcher).Deploy(sigctx)
	if err != nil {
		return err
	}

	slog.Info("Deployment finished",
		logfields.Branch(result.Branch),
		logfields.Version(version),
		slog.Bool("committed", result.Committed),
		slog.Bool("dispatched", result.Dispatched))
	if result.Committed {
		fmt.Printf("Pushed %s to %s\n", result.Commit, result.Branch)
	} else {
		fmt.Println("Site already up to date")
	}
	return nil
}
