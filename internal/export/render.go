package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"

	"github.com/Denis-Joly/QuickScript/internal/domain"
	"github.com/Denis-Joly/QuickScript/internal/media"
	"github.com/Denis-Joly/QuickScript/internal/metrics"
)

// Renderer derives txt and pdf exports from a canonical markdown artifact.
// Derived files are cached next to the source; a render for a given target
// runs at most once even under concurrent requests.
type Renderer struct {
	wkhtmltopdfBin string
	runner         media.CommandRunner

	mu sync.Mutex
}

// NewRenderer builds the production renderer.
func NewRenderer(wkhtmltopdfBin string) *Renderer {
	return &Renderer{wkhtmltopdfBin: wkhtmltopdfBin, runner: &media.ExecRunner{}}
}

// NewRendererForTests builds a renderer with an injectable runner.
func NewRendererForTests(wkhtmltopdfBin string, runner media.CommandRunner) *Renderer {
	return &Renderer{wkhtmltopdfBin: wkhtmltopdfBin, runner: runner}
}

// Render produces (or returns the cached) export of mdPath in the given
// format and returns its path.
func (r *Renderer) Render(ctx context.Context, mdPath string, format domain.Format) (string, error) {
	if format == domain.FormatMarkdown {
		return mdPath, nil
	}

	target := strings.TrimSuffix(mdPath, ".md") + "." + string(format)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(target); err == nil {
		return target, nil
	}

	content, err := os.ReadFile(mdPath)
	if err != nil {
		return "", fmt.Errorf("reading markdown artifact: %w", err)
	}

	switch format {
	case domain.FormatText:
		if err := os.WriteFile(target, []byte(stripMarkdown(string(content))), 0o644); err != nil {
			return "", fmt.Errorf("writing txt export: %w", err)
		}
	case domain.FormatPDF:
		if err := r.renderPDF(ctx, string(content), mdPath, target); err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("%w: unsupported export format: %s", domain.ErrInvalidInput, format)
	}

	metrics.ExportsRenderedTotal.WithLabelValues(string(format)).Inc()
	return target, nil
}

// renderPDF converts markdown to HTML and shells out to wkhtmltopdf.
func (r *Renderer) renderPDF(ctx context.Context, markdown, mdPath, target string) error {
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &html); err != nil {
		return fmt.Errorf("rendering markdown to HTML: %w", err)
	}

	htmlPath := strings.TrimSuffix(mdPath, ".md") + ".html"
	if err := os.WriteFile(htmlPath, []byte(htmlShell(html.String())), 0o644); err != nil {
		return fmt.Errorf("writing HTML shell: %w", err)
	}
	defer os.Remove(htmlPath)

	result, err := r.runner.Run(ctx, r.wkhtmltopdfBin, htmlPath, target)
	if err != nil {
		return fmt.Errorf("wkhtmltopdf failed (exit=%d): %w", result.ExitCode, err)
	}
	if _, err := os.Stat(target); err != nil {
		return fmt.Errorf("wkhtmltopdf completed but pdf is missing: %w", err)
	}
	return nil
}

var (
	headerRe = regexp.MustCompile(`(?m)^#+\s+`)
	boldRe   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicRe = regexp.MustCompile(`\*(.*?)\*`)
	linkRe   = regexp.MustCompile(`\[(.*?)\]\(.*?\)`)
	bulletRe = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
)

// stripMarkdown reduces markdown to plain text.
func stripMarkdown(content string) string {
	out := headerRe.ReplaceAllString(content, "")
	out = boldRe.ReplaceAllString(out, "$1")
	out = italicRe.ReplaceAllString(out, "$1")
	out = linkRe.ReplaceAllString(out, "$1")
	out = bulletRe.ReplaceAllString(out, "")
	return out
}

// htmlShell wraps rendered HTML in a minimal styled document.
func htmlShell(body string) string {
	return `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
body { font-family: Arial, sans-serif; margin: 40px; }
h1 { color: #333; }
h2 { color: #444; }
code { background-color: #f4f4f4; padding: 2px 5px; }
pre { background-color: #f4f4f4; padding: 10px; }
</style>
</head>
<body>
` + body + `
</body>
</html>
`
}
