package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Border styles
var (
	StyleFocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62"))

	StyleUnfocusedBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))
)

// Entry styles
var (
	StyleTaskEntry = lipgloss.NewStyle().
			Foreground(lipgloss.Color("green"))

	StyleStepEntry = lipgloss.NewStyle().
			Foreground(lipgloss.Color("cyan"))

	StyleWaitEntry = lipgloss.NewStyle().
			Foreground(lipgloss.Color("yellow"))

	StyleFixedEntry = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	StyleConflict = lipgloss.NewStyle().
			Foreground(lipgloss.Color("red")).
			Bold(true)
)

// UI element styles
var (
	StyleTitle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	StyleDate = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	StyleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
