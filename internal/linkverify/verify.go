// Package linkverify checks the generated site for broken links: every
// internal href/src must resolve to a file in the output tree.
package linkverify

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docship/internal/logfields"
)

// Issue is one broken link finding.
type Issue struct {
	File   string // HTML file the link was found in, relative to the site root
	Link   string // the raw destination
	Target string // resolved site-relative path that did not exist
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: broken link %q (resolved to %s)", i.File, i.Link, i.Target)
}

// VerifySite walks every HTML file under siteDir and reports internal links
// whose targets do not exist. External links are not contacted.
func VerifySite(siteDir, baseURL string) ([]Issue, error) {
	var issues []Issue

	err := filepath.WalkDir(siteDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		rel, err := filepath.Rel(siteDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		links, err := ExtractLinks(p, baseURL)
		if err != nil {
			return fmt.Errorf("extract links from %s: %w", rel, err)
		}
		for _, link := range links {
			if !link.IsInternal {
				continue
			}
			target, ok := resolveTarget(rel, link.URL)
			if !ok {
				continue
			}
			if !targetExists(siteDir, target) {
				issues = append(issues, Issue{File: rel, Link: link.URL, Target: target})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(issues) > 0 {
		slog.Warn("Broken internal links found", slog.Int("count", len(issues)), logfields.Path(siteDir))
	}
	return issues, nil
}

// resolveTarget maps a link destination to a site-relative path. Fragments
// and query-only links resolve to the current document and are not checked.
func resolveTarget(fromFile, dest string) (string, bool) {
	u, err := url.Parse(dest)
	if err != nil {
		return "", false
	}
	if u.Path == "" {
		return "", false // fragment or query on the same page
	}
	p := u.Path
	if !strings.HasPrefix(p, "/") {
		p = path.Join(path.Dir(fromFile), p)
	}
	return strings.TrimPrefix(p, "/"), true
}

func targetExists(siteDir, target string) bool {
	full := filepath.Join(siteDir, filepath.FromSlash(target))
	info, err := os.Stat(full)
	if err == nil && !info.IsDir() {
		return true
	}
	// Directory links resolve to their index page.
	if err == nil && info.IsDir() {
		_, err := os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	// A trailing-slash style link without the directory present.
	if strings.HasSuffix(target, "/") {
		_, err := os.Stat(filepath.Join(full, "index.html"))
		return err == nil
	}
	return false
}
