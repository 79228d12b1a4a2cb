// Package theme holds the terminal styles used by the CLI output.
package theme

import (
	"strings"
	"sync/atomic"

	"charm.land/lipgloss/v2"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Warning   = lipgloss.Color("#EAB308") // Amber
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Key = lipgloss.NewStyle().
		Foreground(TextDim)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Routing labels and topic states
var (
	Label = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	Confirm = lipgloss.NewStyle().
		Foreground(Warning)

	Degraded = lipgloss.NewStyle().
			Foreground(Accent)

	Mastered = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	Struggling = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Normal = lipgloss.NewStyle()
)

// Components
var (
	BarFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	BarEmpty = lipgloss.NewStyle().
			Foreground(Border)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

var plain atomic.Bool

// SetPlain disables styling, for output that is not a terminal.
func SetPlain(v bool) { plain.Store(v) }

// Plain reports whether styling is disabled.
func Plain() bool { return plain.Load() }

// Paint renders s with style unless styling is disabled.
func Paint(style lipgloss.Style, s string) string {
	if plain.Load() {
		return s
	}
	return style.Render(s)
}

// Boxed renders s inside Card, or as-is when styling is disabled.
func Boxed(s string) string {
	if plain.Load() {
		return s
	}
	return Card.Render(s)
}

// Bar draws a fixed-width progress bar for v in [0,1].
func Bar(v float64, width int) string {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	filled := min(int(v*float64(width)+0.5), width)
	return Paint(BarFilled, strings.Repeat("█", filled)) +
		Paint(BarEmpty, strings.Repeat("░", width-filled))
}
