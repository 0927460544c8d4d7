package ui

import (
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer interface {
	Render(in string) (string, error)
}

// NewMarkdownRenderer builds a glamour renderer matching the theme. It
// returns nil when glamour cannot be initialised; callers then print plain
// text.
func NewMarkdownRenderer(theme Theme, width int) Renderer {
	if width < 20 {
		width = 20
	}
	style := glamour.WithStandardStyle("light")
	if theme.IsDark {
		style = glamour.WithStandardStyle("dark")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	return r
}

// SafeRenderMarkdown renders markdown with panic recovery, falling back to
// the input text.
func SafeRenderMarkdown(r Renderer, content string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			result = content
		}
	}()

	if r == nil || content == "" {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
