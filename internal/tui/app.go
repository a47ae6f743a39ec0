package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
	"github.com/nilsjohansson/phaserun/internal/logging"
)

// AppConfig holds what a single job run needs to drive the dashboard: its
// declared phase list (for the static panel) plus the channels that feed it
// as the run progresses: transitions and outputs from a phaser.Phaser's
// hooks, Run snapshots from a poller, and the run's final DoneMsg.
type AppConfig struct {
	Version string
	JobName string
	Phases  []lifecycle.PhaseInfo

	Transitions <-chan TransitionMsg
	Outputs     <-chan OutputMsg
	Snapshots   <-chan SnapshotMsg
	Done        <-chan DoneMsg

	// Cancel, when non-nil, is called on user quit so the driving goroutine
	// can Stop() the Phaser instead of leaving it to run unobserved.
	Cancel context.CancelFunc
}

// App is the top-level Bubble Tea model for the phaserun dashboard: a
// title bar, a phase-list panel showing declared phases and the current
// one, and a scrolling event log fed by the run's transition and output
// hooks.
type App struct {
	config AppConfig

	width  int
	height int
	ready  bool
	quitting bool

	current     *lifecycle.PhaseRun
	phaseCount  int
	termination *lifecycle.TerminationInfo

	eventLog EventLogModel
	theme    Theme
}

// NewApp constructs an App ready to run.
func NewApp(cfg AppConfig) App {
	theme := DefaultTheme()
	return App{
		config:   cfg,
		eventLog: NewEventLogModel(theme),
		theme:    theme,
	}
}

// Init starts draining the configured channels. A nil channel is treated as
// "nothing to drain" (drainTransitions/drainOutput/waitForDone return a cmd
// that would block forever on a nil channel read, so they are only queued
// when the channel is present).
func (a App) Init() tea.Cmd {
	var cmds []tea.Cmd
	if a.config.Transitions != nil {
		cmds = append(cmds, drainTransitions(a.config.Transitions))
	}
	if a.config.Outputs != nil {
		cmds = append(cmds, drainOutput(a.config.Outputs))
	}
	if a.config.Snapshots != nil {
		cmds = append(cmds, drainSnapshots(a.config.Snapshots))
	}
	if a.config.Done != nil {
		cmds = append(cmds, waitForDone(a.config.Done))
	}
	return tea.Batch(cmds...)
}

// Update dispatches incoming messages.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		return a.handleWindowSize(m)

	case tea.KeyMsg:
		return a.handleKey(m)

	case TransitionMsg:
		a.current = m.Current
		a.phaseCount = m.PhaseCount
		var cmd tea.Cmd
		a.eventLog, cmd = a.eventLog.Update(m)
		return a, tea.Batch(cmd, drainTransitions(a.config.Transitions))

	case OutputMsg:
		var cmd tea.Cmd
		a.eventLog, cmd = a.eventLog.Update(m)
		return a, tea.Batch(cmd, drainOutput(a.config.Outputs))

	case SnapshotMsg:
		a.current = m.Run.Lifecycle.CurrentRun()
		a.phaseCount = m.Run.Lifecycle.PhaseCount()
		if m.Run.Termination != nil {
			a.termination = m.Run.Termination
		}
		return a, drainSnapshots(a.config.Snapshots)

	case DoneMsg:
		a.termination = m.Termination
		var cmd tea.Cmd
		a.eventLog, cmd = a.eventLog.Update(m)
		return a, cmd

	case ErrorMsg:
		var cmd tea.Cmd
		a.eventLog, cmd = a.eventLog.Update(m)
		return a, cmd
	}

	return a, nil
}

func (a App) handleWindowSize(m tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	a.width = m.Width
	a.height = m.Height
	a.ready = true

	logHeight := a.height - phasePanelHeight(a.config.Phases) - 1
	if logHeight < 3 {
		logHeight = 3
	}
	a.eventLog.SetDimensions(a.width, logHeight)

	return a, nil
}

func (a App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.String() {
	case "q", "ctrl+c":
		a.quitting = true
		if a.config.Cancel != nil {
			a.config.Cancel()
		}
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.eventLog, cmd = a.eventLog.Update(m)
	return a, cmd
}

// View renders the complete dashboard.
func (a App) View() string {
	if a.quitting {
		return ""
	}
	if !a.ready {
		return "Initializing phaserun dashboard..."
	}

	title := fmt.Sprintf("phaserun v%s — %s", a.config.Version, a.config.JobName)
	titleBar := a.theme.TitleBar.Width(a.width).Render(title)

	return lipgloss.JoinVertical(lipgloss.Left, titleBar, a.renderPhasePanel(), a.eventLog.View())
}

func (a App) renderPhasePanel() string {
	var body string
	body += a.theme.PhaseHeader.Render("Phases") + "\n"
	for _, info := range a.config.Phases {
		marker := "  "
		style := a.theme.PhasePast
		if a.current != nil && a.current.PhaseID == info.ID {
			marker = "> "
			style = a.theme.PhaseCurrent
		}
		body += marker + style.Render(fmt.Sprintf("%s (%s)", info.ID, info.Type)) + "\n"
	}

	status := lifecycle.StatusNone
	if a.termination != nil {
		status = a.termination.Status
	}
	body += fmt.Sprintf("\n%s %s", a.theme.StatusIndicator(status), status)

	return a.theme.PhaseContainer.Width(a.width).Render(body)
}

// phasePanelHeight estimates the phase panel's rendered line count so the
// event log can be sized to fill the remaining terminal height.
func phasePanelHeight(phases []lifecycle.PhaseInfo) int {
	return len(phases) + 5
}

// RunTUI builds an App from cfg and runs it full-screen until the user
// quits or the run's Done channel closes and the user quits manually (the
// dashboard does not auto-exit on job completion, so the final state stays
// visible for inspection).
func RunTUI(cfg AppConfig) error {
	logger := logging.New("tui")
	logger.Info("starting dashboard", "version", cfg.Version, "job", cfg.JobName)

	p := tea.NewProgram(NewApp(cfg), tea.WithAltScreen())
	_, err := p.Run()
	if err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
