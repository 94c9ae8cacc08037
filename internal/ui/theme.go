package ui

import "github.com/charmbracelet/lipgloss"

// ResearchHub blue. Each view carries its own style set; these are the
// app-level ones shared by the root model.
var (
	rhBlue = lipgloss.Color("#3971FF")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	MetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#828282"))

	ScoreStyle = lipgloss.NewStyle().
			Foreground(rhBlue)

	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)
