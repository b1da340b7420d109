package render

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	replyColor   = lipgloss.Color("#3B82F6") // Blue
	errorColor   = lipgloss.Color("#EF4444") // Red
	warningColor = lipgloss.Color("#F59E0B") // Amber
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// styles holds the table-format styles. With color disabled every style
// renders text unchanged.
type styles struct {
	title   lipgloss.Style
	command lipgloss.Style
	reply   lipgloss.Style
	chunk   lipgloss.Style
	fail    lipgloss.Style
	warning lipgloss.Style
	muted   lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{plain, plain, plain, plain, plain, plain, plain}
	}
	return styles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		command: lipgloss.NewStyle().Bold(true),
		reply:   lipgloss.NewStyle().Foreground(replyColor),
		chunk:   lipgloss.NewStyle().Foreground(mutedColor),
		fail:    lipgloss.NewStyle().Bold(true).Foreground(errorColor),
		warning: lipgloss.NewStyle().Foreground(warningColor),
		muted:   lipgloss.NewStyle().Foreground(mutedColor),
	}
}
