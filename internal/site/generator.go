// Package site generates the static documentation site from a local markdown
// tree. Rendering is done in-process; there is no external site generator to
// install or shell out to.
package site

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/logfields"
)

// Report summarizes a completed build.
type Report struct {
	OutputDir string
	Pages     []Page
	Assets    int
	Hash      string // content hash over all rendered pages
	Duration  time.Duration
}

// Generator builds the site described by a SiteConfig.
type Generator struct {
	cfg       config.SiteConfig
	outputDir string
	clean     bool
}

// NewGenerator creates a generator writing into outputDir.
func NewGenerator(cfg config.SiteConfig, output config.OutputConfig) *Generator {
	outDir := output.Directory
	if outDir == "" {
		outDir = "./public"
	}
	return &Generator{cfg: cfg, outputDir: outDir, clean: output.Clean}
}

// Build renders every markdown file under the docs dir and copies all other
// files through as assets.
func (g *Generator) Build() (*Report, error) {
	start := time.Now()

	if _, err := os.Stat(g.cfg.DocsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("docs directory does not exist: %s", g.cfg.DocsDir)
	}
	if g.clean {
		if err := os.RemoveAll(g.outputDir); err != nil {
			return nil, fmt.Errorf("clean output directory: %w", err)
		}
	}
	if err := os.MkdirAll(g.outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	pages, assets, err := g.discover()
	if err != nil {
		return nil, err
	}
	slog.Info("Discovered documentation sources",
		slog.Int("pages", len(pages)), slog.Int("assets", len(assets)), logfields.Path(g.cfg.DocsDir))

	nav := buildNav(pages)
	r := newRenderer(g.cfg.Title, g.cfg.Description, baseURL(g.cfg.BaseURL))
	hash := newSiteHash()

	for _, page := range pages {
		source, err := os.ReadFile(filepath.Join(g.cfg.DocsDir, page.SourcePath))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", page.SourcePath, err)
		}
		rendered, err := r.renderPage(page, source, nav)
		if err != nil {
			return nil, err
		}
		outPath := filepath.Join(g.outputDir, filepath.FromSlash(page.OutputPath))
		if err := writeFile(outPath, rendered); err != nil {
			return nil, err
		}
		hash.add(page.OutputPath, rendered)
	}

	for _, asset := range assets {
		src := filepath.Join(g.cfg.DocsDir, asset)
		dst := filepath.Join(g.outputDir, asset)
		if err := copyFile(src, dst); err != nil {
			return nil, fmt.Errorf("copy asset %s: %w", asset, err)
		}
	}

	if err := g.writeSupportFiles(); err != nil {
		return nil, err
	}

	report := &Report{
		OutputDir: g.outputDir,
		Pages:     pages,
		Assets:    len(assets),
		Hash:      hash.sum(),
		Duration:  time.Since(start),
	}
	slog.Info("Site build finished",
		logfields.Path(g.outputDir),
		slog.Int("pages", len(pages)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return report, nil
}

// discover walks the docs tree collecting markdown pages and asset paths,
// both relative with forward slashes.
func (g *Generator) discover() ([]Page, []string, error) {
	var pages []Page
	var assets []string

	err := filepath.WalkDir(g.cfg.DocsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != g.cfg.DocsDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(g.cfg.DocsDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.EqualFold(filepath.Ext(name), ".md") {
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			pages = append(pages, Page{
				SourcePath: rel,
				OutputPath: outputPathFor(rel),
				Title:      titleFor(rel, content),
			})
			return nil
		}
		assets = append(assets, rel)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walk docs directory: %w", err)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].OutputPath < pages[j].OutputPath })
	sort.Strings(assets)
	return pages, assets, nil
}

// buildNav fills in hrefs and puts the index page first.
func buildNav(pages []Page) []Page {
	nav := make([]Page, len(pages))
	copy(nav, pages)
	for i := range nav {
		nav[i].Href = "/" + nav[i].OutputPath
	}
	sort.SliceStable(nav, func(i, j int) bool {
		if (nav[i].OutputPath == "index.html") != (nav[j].OutputPath == "index.html") {
			return nav[i].OutputPath == "index.html"
		}
		return nav[i].OutputPath < nav[j].OutputPath
	})
	return nav
}

func (g *Generator) writeSupportFiles() error {
	// Pages hosting must not run the output through Jekyll.
	if err := writeFile(filepath.Join(g.outputDir, ".nojekyll"), nil); err != nil {
		return err
	}
	return writeFile(filepath.Join(g.outputDir, "assets", "site.css"), []byte(defaultCSS))
}

func baseURL(u string) string {
	if u == "" {
		return "/"
	}
	if !strings.HasSuffix(u, "/") {
		return u + "/"
	}
	return u
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.Create(filepath.Clean(dst))
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	_, err = io.Copy(out, in)
	return err
}

const defaultCSS = `body { display: flex; margin: 0; font-family: sans-serif; }
nav.sidebar { min-width: 14rem; padding: 1rem; background: #f4f4f4; }
nav.sidebar ul { list-style: none; padding-left: 0; }
main { padding: 1rem 2rem; max-width: 50rem; }
pre { background: #f4f4f4; padding: 0.5rem; overflow-x: auto; }
`
