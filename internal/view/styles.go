// Package view renders session state for the terminal. Every function is a
// pure projection of its arguments.
package view

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/curious-containers/cc-jupyter-cli/internal/alerts"
	"github.com/curious-containers/cc-jupyter-cli/internal/models"
)

var (
	highlight = lipgloss.AdaptiveColor{Light: "#5A4FCF", Dark: "#9F97FF"}
	subtle    = lipgloss.AdaptiveColor{Light: "#8A8A8A", Dark: "#6C6C6C"}
	green     = lipgloss.AdaptiveColor{Light: "#1E7B34", Dark: "#5FD787"}
	yellow    = lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#FFD75F"}
	red       = lipgloss.AdaptiveColor{Light: "#B00020", Dark: "#FF5F5F"}
	blue      = lipgloss.AdaptiveColor{Light: "#005CC5", Dark: "#5FAFFF"}

	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	SectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	LabelStyle   = lipgloss.NewStyle().Foreground(subtle)
	MutedStyle   = lipgloss.NewStyle().Foreground(subtle).Italic(true)
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 1)
	CellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// StatusStyle colors a process status.
func StatusStyle(s models.ProcessStatus) lipgloss.Style {
	switch s {
	case models.StatusSuccess:
		return lipgloss.NewStyle().Foreground(green)
	case models.StatusFailure:
		return lipgloss.NewStyle().Foreground(red)
	case models.StatusProcessing:
		return lipgloss.NewStyle().Foreground(yellow)
	default:
		return lipgloss.NewStyle().Foreground(subtle)
	}
}

// AlertStyle colors an alert level.
func AlertStyle(l alerts.Level) lipgloss.Style {
	switch l {
	case alerts.LevelSuccess:
		return lipgloss.NewStyle().Foreground(green)
	case alerts.LevelWarning:
		return lipgloss.NewStyle().Foreground(yellow)
	case alerts.LevelDanger:
		return lipgloss.NewStyle().Foreground(red).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(blue)
	}
}
