package ui

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.AdaptiveColor{Light: "#0056b3", Dark: "#4da3ff"}
	Muted   = lipgloss.AdaptiveColor{Light: "#6c757d", Dark: "#8a8f98"}
	Success = lipgloss.AdaptiveColor{Light: "#1e7e34", Dark: "#3fb950"}
	Danger  = lipgloss.AdaptiveColor{Light: "#b02a37", Dark: "#f85149"}
)

// Styles holds the panel's lipgloss styles.
type Styles struct {
	Header   lipgloss.Style
	Section  lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Selected lipgloss.Style
	Muted    lipgloss.Style
	On       lipgloss.Style
	Off      lipgloss.Style
	Success  lipgloss.Style
	Error    lipgloss.Style
	Box      lipgloss.Style
}

// DefaultStyles returns the panel styles.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Background(Primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true),
		Section: lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			MarginTop(1),
		Label: lipgloss.NewStyle().Width(16),
		Value: lipgloss.NewStyle(),
		Selected: lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true),
		Muted:   lipgloss.NewStyle().Foreground(Muted),
		On:      lipgloss.NewStyle().Foreground(Success).Bold(true),
		Off:     lipgloss.NewStyle().Foreground(Muted),
		Success: lipgloss.NewStyle().Foreground(Success),
		Error:   lipgloss.NewStyle().Foreground(Danger),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Muted).
			Padding(0, 1),
	}
}
