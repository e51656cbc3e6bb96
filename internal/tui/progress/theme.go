// Package progress renders a live view of one navigation goal: its pose,
// the dispatcher phase, a distance progress bar and the latest events.
package progress

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the progress view.
type Theme struct {
	Reached  lipgloss.Style
	Active   lipgloss.Style
	Failed   lipgloss.Style
	Waiting  lipgloss.Style
	Border   lipgloss.Style
	Title    lipgloss.Style
	Dim      lipgloss.Style
	Emphasis lipgloss.Style
	Spinner  lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		Reached: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		Active:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")),
		Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Waiting: lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Emphasis: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		Spinner:  lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
	}
}
