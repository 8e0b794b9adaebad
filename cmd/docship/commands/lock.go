package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/manifest"
)

// LockCmd compiles *.in manifests into pinned *.txt lock files.
type LockCmd struct {
	Index string `help:"Version index file (overrides config)"`
	Check bool   `help:"Verify existing lock files are current instead of writing"`
}

func (l *LockCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	indexPath := cfg.Requirements.Index
	if l.Index != "" {
		indexPath = l.Index
	}

	var idx manifest.VersionIndex
	if indexPath != "" {
		idx, err = manifest.LoadIndex(indexPath)
		if err != nil {
			return err
		}
	}

	entries, err := os.ReadDir(cfg.Requirements.Dir)
	if err != nil {
		return fmt.Errorf("read requirements dir: %w", err)
	}

	locked := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".in") {
			continue
		}
		inPath := filepath.Join(cfg.Requirements.Dir, entry.Name())
		lockPath := strings.TrimSuffix(inPath, ".in") + ".txt"

		m, err := manifest.ParseFile(inPath)
		if err != nil {
			return err
		}
		pinned, err := manifest.Compile([]*manifest.Manifest{m}, idx)
		if err != nil {
			return fmt.Errorf("%s: %w", inPath, err)
		}

		if l.Check {
			if err := checkLockCurrent(lockPath, pinned); err != nil {
				return err
			}
			slog.Info("Lock file current", logfields.Manifest(lockPath))
			continue
		}

		if err := manifest.WriteLock(lockPath, pinned); err != nil {
			return err
		}
		slog.Info("Lock file written",
			logfields.Manifest(lockPath), slog.Int("requirements", len(pinned)))
		locked++
	}

	if !l.Check {
		fmt.Printf("Compiled %d lock files\n", locked)
	}
	return nil
}

// checkLockCurrent re-parses the existing lock and compares the pin set.
func checkLockCurrent(lockPath string, pinned []manifest.PinnedRequirement) error {
	existing, err := manifest.ParseFile(lockPath)
	if err != nil {
		return fmt.Errorf("lock file missing or unreadable, run lock first: %w", err)
	}

	current := map[string]string{}
	for _, p := range pinned {
		current[p.Name] = p.Version.String()
	}
	onDisk := map[string]string{}
	for _, r := range existing.Requirements {
		if !r.Pinned() {
			return fmt.Errorf("%s: %s is not pinned", lockPath, r.Name)
		}
		onDisk[r.Name] = r.Specifiers[0].Version
	}

	for name, v := range current {
		if onDisk[name] != v {
			return fmt.Errorf("%s is stale: %s should be %s, found %q", lockPath, name, v, onDisk[name])
		}
	}
	for name := range onDisk {
		if _, ok := current[name]; !ok {
			return fmt.Errorf("%s is stale: %s no longer required", lockPath, name)
		}
	}
	return nil
}
