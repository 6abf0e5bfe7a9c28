package logs

import "github.com/charmbracelet/lipgloss"

// Style is the display style of a status.
type Style int

const (
	StyleSuccess Style = iota
	StyleError
)

// StyleFor returns the display style for o. Handled and unhandled errors
// share one style.
func StyleFor(o Outcome) Style {
	if _, ok := o.(Success); ok {
		return StyleSuccess
	}
	return StyleError
}

var (
	colorSuccess = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34d399"}
	colorError   = lipgloss.AdaptiveColor{Light: "#dc2626", Dark: "#f87171"}
	colorBright  = lipgloss.AdaptiveColor{Light: "#0f172a", Dark: "#f1f5f9"}
)

var (
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleBright  = lipgloss.NewStyle().Foreground(colorBright)
)

func (s Style) style() lipgloss.Style {
	if s == StyleSuccess {
		return styleSuccess
	}
	return styleError
}
