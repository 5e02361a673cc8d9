package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for reports.
type Styles struct {
	Error   lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
	LineNo  lipgloss.Style
}

// NewStyles creates styles bound to a lipgloss renderer, so its color
// profile decides whether they emit escape sequences.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Error:   lr.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Warning: lr.NewStyle().Foreground(lipgloss.Color("11")),
		Success: lr.NewStyle().Foreground(lipgloss.Color("10")),
		Info:    lr.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:   lr.NewStyle().Foreground(lipgloss.Color("8")),
		Bold:    lr.NewStyle().Bold(true),
		LineNo:  lr.NewStyle().Foreground(lipgloss.Color("8")),
	}
}
