package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/starford/weave/internal/models"
)

// Color palette.
const (
	red     = "#ff5555"
	orange  = "#ffb86c"
	cyan    = "#8be9fd"
	green   = "#50fa7b"
	comment = "#6272a4"
)

var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(red)).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(orange))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(cyan))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(green))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(comment))
	fileStyle    = lipgloss.NewStyle().Bold(true).Underline(true)
)

// severityMark renders the icon of a diagnostic severity.
func severityMark(s models.Severity) string {
	switch s {
	case models.SeverityError:
		return errorStyle.Render("✗")
	case models.SeverityWarning:
		return warningStyle.Render("⚠")
	default:
		return infoStyle.Render("ℹ")
	}
}
