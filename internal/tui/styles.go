package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nilsjohansson/phaserun/internal/lifecycle"
)

// ---------------------------------------------------------------------------
// Color Palette
// ---------------------------------------------------------------------------

// ColorPrimary is the main brand/accent color used for titles and highlights.
var ColorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7B78FF"}

// ColorAccent is a green-teal accent for positive indicators and active states.
var ColorAccent = lipgloss.AdaptiveColor{Light: "#10B981", Dark: "#34D399"}

// ColorSuccess represents successful operations (green).
var ColorSuccess = lipgloss.AdaptiveColor{Light: "#16A34A", Dark: "#4ADE80"}

// ColorWarning represents cautionary states such as a stopped or interrupted
// run (amber/yellow).
var ColorWarning = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// ColorError represents failures and error states (red).
var ColorError = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}

// ColorMuted is a subdued foreground color for secondary text.
var ColorMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}

// ColorSubtle provides very low-contrast borders and dividers.
var ColorSubtle = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}

// ColorBorder is the standard panel border color.
var ColorBorder = lipgloss.AdaptiveColor{Light: "#E5E7EB", Dark: "#374151"}

// ---------------------------------------------------------------------------
// Theme
// ---------------------------------------------------------------------------

// Theme holds all Lipgloss styles for the phaserun dashboard. Every field is
// a pre-built lipgloss.Style value; Width/Height are applied dynamically at
// render time, not stored here.
type Theme struct {
	TitleBar lipgloss.Style

	PhaseContainer lipgloss.Style
	PhaseHeader    lipgloss.Style
	PhaseCurrent   lipgloss.Style
	PhasePast      lipgloss.Style

	EventContainer lipgloss.Style
	EventTimestamp lipgloss.Style
	EventMessage   lipgloss.Style

	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style

	StatusRunning   lipgloss.Style
	StatusCompleted lipgloss.Style
	StatusFailed    lipgloss.Style
	StatusWaiting   lipgloss.Style

	ErrorText lipgloss.Style
}

// DefaultTheme returns the default phaserun dashboard theme with adaptive
// colors for light/dark terminal support.
func DefaultTheme() Theme {
	return Theme{
		TitleBar: lipgloss.NewStyle().
			Bold(true).
			Background(ColorPrimary).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1),

		PhaseContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1),

		PhaseHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1),

		PhaseCurrent: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent),

		PhasePast: lipgloss.NewStyle().
			Foreground(ColorMuted),

		EventContainer: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1),

		EventTimestamp: lipgloss.NewStyle().
			Foreground(ColorMuted),

		EventMessage: lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#111827", Dark: "#F9FAFB"}),

		ProgressFilled: lipgloss.NewStyle().
			Foreground(ColorAccent),

		ProgressEmpty: lipgloss.NewStyle().
			Foreground(ColorSubtle),

		StatusRunning: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent),

		StatusCompleted: lipgloss.NewStyle().
			Foreground(ColorSuccess),

		StatusFailed: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),

		StatusWaiting: lipgloss.NewStyle().
			Foreground(ColorWarning),

		ErrorText: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError),
	}
}

// StatusIndicator returns a styled Unicode symbol for the given termination
// status. lifecycle.StatusNone is rendered as "still running" since the
// dashboard shows it while no termination has been recorded.
func (t Theme) StatusIndicator(status lifecycle.TerminationStatus) string {
	switch status {
	case lifecycle.StatusCompleted:
		return t.StatusCompleted.Render("✓")
	case lifecycle.StatusFailed, lifecycle.StatusError:
		return t.StatusFailed.Render("!")
	case lifecycle.StatusStopped, lifecycle.StatusInterrupted:
		return t.StatusWaiting.Render("×")
	default: // StatusNone: the run has not ended
		return t.StatusRunning.Render("●")
	}
}

// ProgressBar renders a text-based progress bar of the given total width.
// filled is clamped to [0.0, 1.0]; width <= 0 returns an empty string. Uses
// U+2588 (FULL BLOCK) for filled cells and U+2591 (LIGHT SHADE) for empty
// cells.
func (t Theme) ProgressBar(filled float64, width int) string {
	if width <= 0 {
		return ""
	}
	if filled < 0.0 {
		filled = 0.0
	}
	if filled > 1.0 {
		filled = 1.0
	}

	filledCount := int(filled * float64(width))
	emptyCount := width - filledCount

	var sb strings.Builder
	if filledCount > 0 {
		sb.WriteString(t.ProgressFilled.Render(strings.Repeat("█", filledCount)))
	}
	if emptyCount > 0 {
		sb.WriteString(t.ProgressEmpty.Render(strings.Repeat("░", emptyCount)))
	}
	return sb.String()
}
