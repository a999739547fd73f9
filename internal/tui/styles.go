package tui

import "github.com/charmbracelet/lipgloss"

// Static styles for content elements
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	MultiplierStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#96CEB4"))

	CrashedStyle = MultiplierStyle.
			Foreground(lipgloss.Color("#FF6B6B")).
			BorderForeground(lipgloss.Color("#FF6B6B"))

	CrashLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	HistoryLowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	HistoryHighStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#96CEB4")).
				Bold(true)

	FeedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)
