package main

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	colorPrimary = lipgloss.Color("#2196F3") // Blue
	colorSuccess = lipgloss.Color("#8BC34A") // Lime Green
	colorWarning = lipgloss.Color("#FFC107") // Yellow
	colorError   = lipgloss.Color("#e53935") // Red
	colorMuted   = lipgloss.Color("#6b7785")
)

// styles holds the styled components used by the CLI.
type styles struct {
	Banner  lipgloss.Style
	Title   lipgloss.Style
	Heading lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Panel   lipgloss.Style
}

func newStyles() styles {
	return styles{
		Banner: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorPrimary).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(0, 2),
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
		Heading: lipgloss.NewStyle().Bold(true).Foreground(colorPrimary),
		Success: lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(colorWarning),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(colorError),
		Muted:   lipgloss.NewStyle().Faint(true).Foreground(colorMuted),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSuccess).
			Padding(0, 1),
	}
}

// renderer turns tutor Markdown into terminal output.
type renderer struct {
	styles styles
	md     *glamour.TermRenderer
}

// newRenderer builds a renderer. With plain set, Markdown is printed as-is.
func newRenderer(plain bool) *renderer {
	r := &renderer{styles: newStyles()}
	if plain {
		return r
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err == nil {
		r.md = md
	}
	return r
}

// Markdown renders text, falling back to the raw text on error.
func (r *renderer) Markdown(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// Panel draws body in a bordered box under a title.
func (r *renderer) Panel(title, body string) string {
	return r.styles.Heading.Render(title) + "\n" + r.styles.Panel.Render(body)
}

func (r *renderer) Banner(text string) string {
	return r.styles.Banner.Render(text)
}
