package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// MaxEventLogEntries is the maximum number of entries retained in the event
// log. When the buffer is full the oldest entry is evicted to make room.
const MaxEventLogEntries = 500

// EventCategory classifies an event log entry for colour-coded display.
type EventCategory int

const (
	EventInfo EventCategory = iota
	EventSuccess
	EventWarning
	EventError
)

// EventEntry is a single entry in the event log ring buffer.
type EventEntry struct {
	Timestamp time.Time
	Category  EventCategory
	Message   string
}

// EventLogModel is the Bubble Tea sub-model for the scrollable event log
// panel: every phase transition and output line the dashboard observes is
// appended here as it arrives.
type EventLogModel struct {
	theme      Theme
	width      int
	height     int
	focused    bool
	entries    []EventEntry
	viewport   viewport.Model
	autoScroll bool
}

// NewEventLogModel creates an EventLogModel with auto-scroll enabled and an
// empty entry buffer.
func NewEventLogModel(theme Theme) EventLogModel {
	return EventLogModel{
		theme:      theme,
		autoScroll: true,
		viewport:   viewport.New(0, 0),
	}
}

// SetDimensions updates the panel width and height and resizes the internal
// viewport, reserving one row for the panel header.
func (el *EventLogModel) SetDimensions(width, height int) {
	el.width = width
	el.height = height

	vpHeight := height - 1
	if vpHeight < 0 {
		vpHeight = 0
	}
	el.viewport.Width = width
	el.viewport.Height = vpHeight

	el.rebuildContent()
}

// SetFocused sets whether the event log panel currently holds keyboard focus.
func (el *EventLogModel) SetFocused(focused bool) {
	el.focused = focused
}

// AddEntry appends a new EventEntry to the log, evicting the oldest entry
// once the buffer exceeds MaxEventLogEntries.
func (el *EventLogModel) AddEntry(category EventCategory, message string) {
	el.entries = append(el.entries, EventEntry{
		Timestamp: time.Now(),
		Category:  category,
		Message:   message,
	})

	if len(el.entries) > MaxEventLogEntries {
		el.entries = el.entries[len(el.entries)-MaxEventLogEntries:]
	}

	el.rebuildContent()
}

func (el *EventLogModel) rebuildContent() {
	if len(el.entries) == 0 {
		el.viewport.SetContent("")
		return
	}

	lines := make([]string, len(el.entries))
	for i, e := range el.entries {
		lines[i] = el.formatEntry(e)
	}
	el.viewport.SetContent(strings.Join(lines, "\n"))

	if el.autoScroll {
		el.viewport.GotoBottom()
	}
}

func (el EventLogModel) formatEntry(entry EventEntry) string {
	ts := el.theme.EventTimestamp.Render(entry.Timestamp.Format("15:04:05"))
	msg := el.categoryStyle(entry.Category).Render(entry.Message)
	return ts + " " + msg
}

func (el EventLogModel) categoryStyle(cat EventCategory) lipgloss.Style {
	switch cat {
	case EventSuccess:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case EventWarning:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	case EventError:
		return lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	default: // EventInfo
		return el.theme.EventMessage
	}
}

// Update processes incoming tea.Msg values and returns the updated model and
// any follow-up command.
func (el EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	switch m := msg.(type) {
	case TransitionMsg:
		el.AddEntry(classifyTransition(m))

	case OutputMsg:
		el.AddEntry(classifyOutput(m))

	case DoneMsg:
		el.AddEntry(classifyDone(m))

	case ErrorMsg:
		el.AddEntry(EventError, m.Detail)

	case tea.KeyMsg:
		if el.focused {
			return el.handleKey(m)
		}
	}

	return el, nil
}

func (el EventLogModel) handleKey(msg tea.KeyMsg) (EventLogModel, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		el.viewport.ScrollUp(1)
		el.autoScroll = false
	case tea.KeyDown:
		el.viewport.ScrollDown(1)
		if el.viewport.AtBottom() {
			el.autoScroll = true
		}
	case tea.KeyPgUp:
		el.viewport.PageUp()
		el.autoScroll = false
	case tea.KeyPgDown:
		el.viewport.PageDown()
		if el.viewport.AtBottom() {
			el.autoScroll = true
		}
	case tea.KeyEnd:
		el.viewport.GotoBottom()
		el.autoScroll = true
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "k":
			el.viewport.ScrollUp(1)
			el.autoScroll = false
		case "j":
			el.viewport.ScrollDown(1)
			if el.viewport.AtBottom() {
				el.autoScroll = true
			}
		case "g":
			el.viewport.GotoTop()
			el.autoScroll = false
		case "G":
			el.viewport.GotoBottom()
			el.autoScroll = true
		}
	}

	return el, nil
}

// View renders the event log panel as a string.
func (el EventLogModel) View() string {
	if el.width <= 0 || el.height <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(el.theme.PhaseHeader.Render("Event Log"))
	sb.WriteString("\n")

	if len(el.entries) == 0 {
		sb.WriteString(lipgloss.NewStyle().Foreground(ColorMuted).Render("No events yet"))
	} else {
		sb.WriteString(el.viewport.View())
	}

	containerStyle := el.theme.EventContainer
	if el.focused {
		containerStyle = containerStyle.BorderForeground(ColorPrimary)
	}

	return containerStyle.Width(el.width).Render(sb.String())
}

func classifyTransition(m TransitionMsg) (EventCategory, string) {
	if m.Current == nil {
		return EventInfo, "transition"
	}
	return EventInfo, fmt.Sprintf("-> %s (%s)", m.Current.PhaseID, m.Current.RunState)
}

func classifyOutput(m OutputMsg) (EventCategory, string) {
	cat := EventInfo
	if m.IsErr {
		cat = EventWarning
	}
	return cat, fmt.Sprintf("[%s] %s", m.Info.ID, m.Line)
}

func classifyDone(m DoneMsg) (EventCategory, string) {
	if m.Err != nil {
		return EventError, fmt.Sprintf("run error: %v", m.Err)
	}
	if m.Termination == nil {
		return EventInfo, "run finished"
	}
	switch m.Termination.Status {
	case "COMPLETED":
		return EventSuccess, "run completed"
	case "FAILED", "ERROR":
		return EventError, fmt.Sprintf("run ended: %s", m.Termination.Status)
	default:
		return EventWarning, fmt.Sprintf("run ended: %s", m.Termination.Status)
	}
}
