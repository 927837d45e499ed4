// Package tui provides the Bubble Tea shell for the holonet CLI.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor = lipgloss.Color("#7C3AED") // Purple
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// Styles for shell components.
var (
	// TitleStyle for the shell header.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// SuccessStyle for completed lookups and the connected badge.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for in-flight lookups.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for failed lookups and the disconnected badge.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// EntryStyle frames one lookup in the history.
	EntryStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// StatusStyle returns a style for a transaction status.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "complete":
		return SuccessStyle
	case "new":
		return WarningStyle
	case "failed":
		return ErrorStyle
	default:
		return lipgloss.NewStyle()
	}
}
