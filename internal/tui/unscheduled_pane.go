package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/tempo/internal/sched"
)

// UnscheduledPaneModel lists items the engine could not place, with their
// reasons, plus any conflicts the run produced.
type UnscheduledPaneModel struct {
	viewport    viewport.Model
	unscheduled []sched.Unplaced
	conflicts   []string
	focused     bool
	width       int
	height      int
}

// NewUnscheduledPaneModel creates an empty unscheduled pane.
func NewUnscheduledPaneModel() UnscheduledPaneModel {
	return UnscheduledPaneModel{viewport: viewport.New(0, 0)}
}

// SetResult replaces the pane's content with a fresh scheduling result.
func (m *UnscheduledPaneModel) SetResult(res *sched.Result) {
	m.unscheduled = res.Unscheduled
	m.conflicts = res.Conflicts
	m.viewport.SetContent(m.render())
}

// SetSize updates the pane dimensions.
func (m *UnscheduledPaneModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 2
	m.viewport.Height = height - 3
	m.viewport.SetContent(m.render())
}

// SetFocused toggles the focus highlight.
func (m *UnscheduledPaneModel) SetFocused(focused bool) {
	m.focused = focused
}

// Update delegates scrolling to the viewport.
func (m UnscheduledPaneModel) Update(msg tea.Msg) (UnscheduledPaneModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the pane.
func (m UnscheduledPaneModel) View() string {
	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	title := StyleTitle.Render(fmt.Sprintf("Unscheduled (%d)", len(m.unscheduled)))
	body := m.viewport.View()
	return style.Width(m.width - 2).Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func (m *UnscheduledPaneModel) render() string {
	if len(m.unscheduled) == 0 && len(m.conflicts) == 0 {
		return "Everything fits."
	}

	var b strings.Builder
	for _, u := range m.unscheduled {
		b.WriteString(fmt.Sprintf("  %s - %s", u.Name, u.Reason))
		if u.Detail != "" {
			b.WriteString(": " + u.Detail)
		}
		b.WriteString("\n")
	}
	if len(m.conflicts) > 0 {
		b.WriteString("\n")
		b.WriteString(StyleConflict.Render("Conflicts"))
		b.WriteString("\n")
		for _, c := range m.conflicts {
			b.WriteString("  " + c + "\n")
		}
	}
	return b.String()
}
