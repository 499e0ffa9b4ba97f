// internal/markdown/markdown.go
// Package markdown prepares chat text for display. Normalize is a plain text
// transform used when records are stored; Renderer draws markdown in a terminal.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order. Later rules see the output of earlier ones.
var rules = []rule{
	{regexp.MustCompile(`\*\*(.*?)\*\*`), "**$1**"},
	{regexp.MustCompile(`__(.*?)__`), "**$1**"},
	{regexp.MustCompile(`\*(.*?)\*`), "*$1*"},
	{regexp.MustCompile(`_(.*?)_`), "*$1*"},
	{regexp.MustCompile(`~~(.*?)~~`), "~~$1~~"},
	{regexp.MustCompile(`(?m)^#\s+(.*?)$`), "📌 $1"},
	{regexp.MustCompile(`(?m)^##\s+(.*?)$`), "📍 $1"},
	{regexp.MustCompile(`(?m)^###\s+(.*?)$`), "📎 $1"},
	{regexp.MustCompile("(?s)```(.*?)```"), "\n💻 Code:\n$1\n"},
	{regexp.MustCompile("`(.*?)`"), "`$1`"},
	{regexp.MustCompile(`\[(.*?)\]\((.*?)\)`), "🔗 $1: $2"},
}

// Normalize rewrites markdown into a flat display form: emphasis markers are
// unified, headers and code fences become labelled lines, and links are
// spelled out. Blank input is returned unchanged.
func Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	out := text
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	return out
}

// Renderer renders markdown for a terminal of a given width. The glamour
// renderer is rebuilt only when the width changes.
type Renderer struct {
	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

// NewRenderer returns a Renderer that wraps at width columns.
func NewRenderer(width int) *Renderer {
	return &Renderer{width: width}
}

// SetWidth changes the wrap width for subsequent renders.
func (r *Renderer) SetWidth(width int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width != r.width {
		r.width = width
		r.renderer = nil
	}
}

// Render draws text as styled terminal output.
func (r *Renderer) Render(text string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.renderer == nil {
		tr, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(r.width),
		)
		if err != nil {
			return "", fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		r.renderer = tr
	}
	out, err := r.renderer.Render(text)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// RenderOrPlain renders text and falls back to the input on failure.
func (r *Renderer) RenderOrPlain(text string) string {
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
