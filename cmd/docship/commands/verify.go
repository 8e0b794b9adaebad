package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/emoji"
	"git.home.luguber.info/inful/docship/internal/linkverify"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/manifest"
	"git.home.luguber.info/inful/docship/internal/matrix"
)

// VerifyCmd groups the verification lanes.
type VerifyCmd struct {
	Manifests VerifyManifestsCmd `cmd:"" help:"Check that every requirement manifest parses"`
	Emoji     VerifyEmojiCmd     `cmd:"" help:"Check the custom emoji mapping and its assets"`
	Links     VerifyLinksCmd     `cmd:"" help:"Check internal links in the built site"`
	Matrix    VerifyMatrixCmd    `cmd:"" help:"Check the CI matrix definition"`
	All       VerifyAllCmd       `cmd:"" default:"1" help:"Run every verification"`
}

// VerifyManifestsCmd parses every manifest under the requirements directory.
type VerifyManifestsCmd struct{}

func (v *VerifyManifestsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return verifyManifests(cfg)
}

// VerifyEmojiCmd validates the emoji mapping file.
type VerifyEmojiCmd struct{}

func (v *VerifyEmojiCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return verifyEmoji(cfg)
}

// VerifyLinksCmd checks internal links in the built site.
type VerifyLinksCmd struct {
	SiteDir string `short:"s" help:"Built site directory (overrides config output)"`
}

func (v *VerifyLinksCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if v.SiteDir != "" {
		cfg.Output.Directory = v.SiteDir
	}
	return verifyLinks(cfg)
}

// VerifyMatrixCmd validates the CI matrix definition.
type VerifyMatrixCmd struct{}

func (v *VerifyMatrixCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return verifyMatrix(cfg)
}

// VerifyAllCmd runs every verification that is configured.
type VerifyAllCmd struct{}

func (v *VerifyAllCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	checks := []struct {
		name string
		fn   func(*config.Config) error
	}{
		{"manifests", verifyManifests},
		{"emoji", verifyEmoji},
		{"links", verifyLinks},
		{"matrix", verifyMatrix},
	}

	failed := 0
	for _, check := range checks {
		if err := check.fn(cfg); err != nil {
			slog.Error("Verification failed", logfields.Name(check.name), logfields.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d verifications failed", failed, len(checks))
	}
	fmt.Println("All verifications passed")
	return nil
}

func verifyManifests(cfg *config.Config) error {
	paths, err := manifestFiles(cfg.Requirements.Dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no requirement manifests found under %s", cfg.Requirements.Dir)
	}

	bad := 0
	for _, path := range paths {
		m, err := manifest.ParseFile(path)
		if err != nil {
			slog.Error("Manifest failed to parse", logfields.Manifest(path), logfields.Error(err))
			bad++
			continue
		}
		slog.Info("Manifest ok", logfields.Manifest(path), slog.Int("requirements", len(m.Requirements)))
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d manifests failed to parse", bad, len(paths))
	}
	return nil
}

func verifyEmoji(cfg *config.Config) error {
	if cfg.Emoji.Mapping == "" {
		slog.Info("No emoji mapping configured; skipping")
		return nil
	}
	mapping, err := emoji.Load(cfg.Emoji.Mapping)
	if err != nil {
		return err
	}
	issues := mapping.Verify(cfg.Emoji.AssetsDir)
	for _, issue := range issues {
		slog.Error("Emoji mapping issue", slog.String("issue", issue.String()))
	}
	if len(issues) > 0 {
		return fmt.Errorf("emoji mapping has %d issues", len(issues))
	}
	slog.Info("Emoji mapping ok", slog.Int("entries", len(mapping.Entries)))
	return nil
}

func verifyLinks(cfg *config.Config) error {
	issues, err := linkverify.VerifySite(cfg.Output.Directory, cfg.Site.BaseURL)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		slog.Error("Broken link", slog.String("issue", issue.String()))
	}
	if len(issues) > 0 {
		return fmt.Errorf("site has %d broken internal links", len(issues))
	}
	slog.Info("Site links ok")
	return nil
}

func verifyMatrix(cfg *config.Config) error {
	m, err := matrix.Load(cfg.Matrix.File)
	if err != nil {
		return err
	}
	jobs, err := m.Expand()
	if err != nil {
		return err
	}
	slog.Info("Matrix ok", slog.Int("stages", len(m.Stages)), slog.Int("lanes", len(jobs)))
	return nil
}

// manifestFiles lists *.in and *.txt manifests directly under dir.
func manifestFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read requirements dir: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".in") || strings.HasSuffix(name, ".txt") {
			paths = append(paths, filepath.Join(dir, name))
		}
	}
	return paths, nil
}
