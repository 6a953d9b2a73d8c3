package tui

import "github.com/charmbracelet/lipgloss"

var (
	// HeaderStyle styles the column header row.
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	// TitleStyle styles the line above the table.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	statusStyles = map[string]lipgloss.Style{
		// Terminal states
		StatusDone:   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusVoiced: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		StatusCached: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),

		// Active states
		StatusRunning: lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
		StatusTrying:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),

		// Degraded
		StatusClipped: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		StatusSilent:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),

		// Error
		StatusFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		// Pending
		StatusPending: lipgloss.NewStyle().Faint(true),
	}
)

// Row statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusTrying  = "trying"
	StatusDone    = "done"
	StatusVoiced  = "voiced"
	StatusCached  = "cached"
	StatusClipped = "clipped"
	StatusSilent  = "silent"
	StatusFailed  = "failed"
)

var terminalStatuses = map[string]bool{
	StatusDone:    true,
	StatusVoiced:  true,
	StatusCached:  true,
	StatusClipped: true,
	StatusSilent:  true,
	StatusFailed:  true,
}

// StatusStyle returns the lipgloss style for the given status string.
func StatusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
