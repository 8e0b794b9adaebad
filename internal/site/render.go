package site

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} - {{.SiteTitle}}</title>
{{- if .Description}}
<meta name="description" content="{{.Description}}">
{{- end}}
<link rel="stylesheet" href="{{.BaseURL}}assets/site.css">
</head>
<body>
<nav class="sidebar">
<p class="site-title"><a href="{{.BaseURL}}">{{.SiteTitle}}</a></p>
<ul>
{{- range .Nav}}
<li><a href="{{.Href}}">{{.Title}}</a></li>
{{- end}}
</ul>
</nav>
<main>
{{.Content}}
</main>
</body>
</html>
`))

type pageData struct {
	Title       string
	SiteTitle   string
	Description string
	BaseURL     string
	Nav         []Page
	Content     template.HTML
}

// renderer converts markdown bodies into full HTML documents.
type renderer struct {
	md        goldmark.Markdown
	siteTitle string
	desc      string
	baseURL   string
}

func newRenderer(siteTitle, description, baseURL string) *renderer {
	return &renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		siteTitle: siteTitle,
		desc:      description,
		baseURL:   baseURL,
	}
}

// renderPage converts one markdown source into a complete HTML page.
func (r *renderer) renderPage(page Page, source []byte, nav []Page) ([]byte, error) {
	var body bytes.Buffer
	if err := r.md.Convert(rewriteMarkdownLinks(source), &body); err != nil {
		return nil, fmt.Errorf("render %s: %w", page.SourcePath, err)
	}

	var out bytes.Buffer
	data := pageData{
		Title:     page.Title,
		SiteTitle: r.siteTitle,
		BaseURL:   r.baseURL,
		Nav:       nav,
		Content:   template.HTML(body.String()), //nolint:gosec // goldmark output of our own docs tree
	}
	if page.OutputPath == "index.html" {
		data.Description = r.desc
	}
	if err := pageTemplate.Execute(&out, data); err != nil {
		return nil, fmt.Errorf("template %s: %w", page.SourcePath, err)
	}
	return out.Bytes(), nil
}

// mdLinkPattern matches relative markdown link destinations; anything with a
// scheme (the ':') is left alone.
var mdLinkPattern = regexp.MustCompile(`\]\(([^):#]+)\.md(#[^)]*)?\)`)

// rewriteMarkdownLinks rewrites relative .md link targets to their .html
// outputs so intra-site links keep working after rendering.
func rewriteMarkdownLinks(source []byte) []byte {
	return mdLinkPattern.ReplaceAll(source, []byte(`]($1.html$2)`))
}
