package site

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Page is one markdown source mapped to an output HTML file.
type Page struct {
	SourcePath string // relative to the docs dir
	OutputPath string // relative to the output dir
	Title      string
	Href       string // site-absolute link, baseURL applied
}

var titleCaser = cases.Title(language.English)

// outputPathFor maps a markdown path to its HTML output path. README.md and
// index.md become the directory index.
func outputPathFor(relPath string) string {
	dir := path.Dir(relPath)
	base := strings.TrimSuffix(path.Base(relPath), ".md")
	if strings.EqualFold(base, "readme") || strings.EqualFold(base, "index") {
		base = "index"
	}
	if dir == "." {
		return base + ".html"
	}
	return path.Join(dir, base+".html")
}

// titleFor derives a page title from the first level-1 heading, falling back
// to the title-cased file name.
func titleFor(relPath string, content []byte) string {
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(after)
		}
	}
	base := strings.TrimSuffix(path.Base(relPath), ".md")
	if strings.EqualFold(base, "readme") || strings.EqualFold(base, "index") {
		base = path.Base(path.Dir(relPath))
		if base == "." || base == "/" {
			base = "home"
		}
	}
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return titleCaser.String(base)
}
