package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/tempo/internal/display"
	"github.com/aristath/tempo/internal/sched"
)

// SchedulePaneModel renders the day-by-day timeline of the current
// schedule inside a scrollable viewport.
type SchedulePaneModel struct {
	viewport viewport.Model
	days     []display.DayGroup
	focused  bool
	width    int
	height   int
}

// NewSchedulePaneModel creates an empty schedule pane.
func NewSchedulePaneModel() SchedulePaneModel {
	return SchedulePaneModel{viewport: viewport.New(0, 0)}
}

// SetResult replaces the pane's content with a fresh scheduling result.
func (m *SchedulePaneModel) SetResult(res *sched.Result) {
	m.days = display.GroupByDay(res)
	m.viewport.SetContent(m.renderDays())
}

// SetSize updates the pane dimensions.
func (m *SchedulePaneModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width - 2   // borders
	m.viewport.Height = height - 3 // borders + title
	m.viewport.SetContent(m.renderDays())
}

// SetFocused toggles the focus highlight.
func (m *SchedulePaneModel) SetFocused(focused bool) {
	m.focused = focused
}

// Update delegates scrolling to the viewport.
func (m SchedulePaneModel) Update(msg tea.Msg) (SchedulePaneModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the pane.
func (m SchedulePaneModel) View() string {
	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	title := StyleTitle.Render("Schedule")
	body := m.viewport.View()
	return style.Width(m.width - 2).Height(m.height - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body))
}

func (m *SchedulePaneModel) renderDays() string {
	if len(m.days) == 0 {
		return "No scheduled items. Press 'r' to recompute."
	}

	var b strings.Builder
	for _, day := range m.days {
		b.WriteString(StyleDate.Render(day.Date))
		b.WriteString("\n")
		for _, e := range day.Entries {
			line := fmt.Sprintf("  %s-%s  %s",
				e.Start.Format("15:04"), e.End.Format("15:04"), e.Name)
			switch e.Kind {
			case display.KindTask:
				line = StyleTaskEntry.Render(line + categorySuffix(e.Category))
			case display.KindStep:
				line = StyleStepEntry.Render(line + categorySuffix(e.Category))
			case display.KindAsyncWait:
				line = StyleWaitEntry.Render(line)
			default:
				line = StyleFixedEntry.Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func categorySuffix(category string) string {
	if category == "" {
		return ""
	}
	return " [" + category + "]"
}
