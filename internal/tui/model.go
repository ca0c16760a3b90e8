package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/tempo/internal/display"
	"github.com/aristath/tempo/internal/events"
	"github.com/aristath/tempo/internal/sched"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneSchedule PaneID = iota
	PaneUnscheduled
)

// Recomputer is the slice of the recompute service the TUI needs.
type Recomputer interface {
	Trigger()
	Last() *sched.Result
	LastCapacity() int
	CycleMode() string
}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	schedulePane    SchedulePaneModel
	unscheduledPane UnscheduledPaneModel
	focusedPane     PaneID
	eventSub        <-chan events.Event
	recomputer      Recomputer
	status          string
	width           int
	height          int
	quitting        bool
}

// New creates the TUI model, subscribed to all bus events.
func New(bus *events.Bus, recomputer Recomputer) Model {
	return Model{
		schedulePane:    NewSchedulePaneModel(),
		unscheduledPane: NewUnscheduledPaneModel(),
		focusedPane:     PaneSchedule,
		eventSub:        bus.SubscribeAll(256),
		recomputer:      recomputer,
	}
}

// Init triggers the first recompute and starts listening for events.
func (m Model) Init() tea.Cmd {
	m.recomputer.Trigger()
	return waitForEvent(m.eventSub)
}

// waitForEvent returns a command that waits for the next bus event.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeyTab, KeyShiftTab:
			if m.focusedPane == PaneSchedule {
				m.focusedPane = PaneUnscheduled
			} else {
				m.focusedPane = PaneSchedule
			}
			m.updateFocusStates()

		case KeyRecompute:
			m.status = "recomputing..."
			m.recomputer.Trigger()

		case KeyMode:
			mode := m.recomputer.CycleMode()
			m.status = fmt.Sprintf("mode: %s, recomputing...", mode)
			m.recomputer.Trigger()

		default:
			switch m.focusedPane {
			case PaneSchedule:
				var cmd tea.Cmd
				m.schedulePane, cmd = m.schedulePane.Update(msg)
				cmds = append(cmds, cmd)
			case PaneUnscheduled:
				var cmd tea.Cmd
				m.unscheduledPane, cmd = m.unscheduledPane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()

	case events.ScheduleRecomputedEvent:
		m.status = fmt.Sprintf("%d scheduled, %d unscheduled, %d conflicts (%.0fms)",
			msg.Scheduled, msg.Unscheduled, len(msg.Conflicts),
			float64(msg.Elapsed.Microseconds())/1000)
		if res := m.recomputer.Last(); res != nil {
			m.schedulePane.SetResult(res)
			m.unscheduledPane.SetResult(res)
			met := display.ComputeMetrics(res, m.recomputer.LastCapacity())
			m.status += fmt.Sprintf(" | %d/%d min, %.0f%% utilized, %.0f%% efficient, avg priority %.0f",
				met.WorkMinutes, met.CapacityMinutes,
				met.Utilization*100, met.Efficiency*100, met.AveragePriority)
		}
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.RecomputeFailedEvent:
		m.status = StyleConflict.Render("recompute failed: " + msg.Reason)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.TaskChangedEvent, events.PatternChangedEvent, events.SettingsChangedEvent:
		// Input changes funnel through the recompute service; the TUI
		// just keeps listening.
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	left := m.schedulePane.View()
	right := m.unscheduledPane.View()
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	statusLine := StyleHelp.Render(m.status)
	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusLine, HelpView())
}

// computeLayout recalculates pane dimensions.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 60) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 2

	m.schedulePane.SetSize(leftWidth, availableHeight)
	m.unscheduledPane.SetSize(rightWidth, availableHeight)
	m.updateFocusStates()
}

// updateFocusStates updates the focus state of both panes.
func (m *Model) updateFocusStates() {
	m.schedulePane.SetFocused(m.focusedPane == PaneSchedule)
	m.unscheduledPane.SetFocused(m.focusedPane == PaneUnscheduled)
}
