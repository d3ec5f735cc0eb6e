package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/romflash"
)

// Catppuccin Mocha palette
var (
	Base     = lipgloss.Color("#1e1e2e")
	Surface0 = lipgloss.Color("#313244")
	Surface1 = lipgloss.Color("#45475a")
	Surface2 = lipgloss.Color("#585b70")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8")
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4")

	Blue   = lipgloss.Color("#89b4fa")
	Teal   = lipgloss.Color("#94e2d5")
	Green  = lipgloss.Color("#a6e3a1")
	Yellow = lipgloss.Color("#f9e2af")
	Peach  = lipgloss.Color("#fab387")
	Red    = lipgloss.Color("#f38ba8")
	Mauve  = lipgloss.Color("#cba6f7")
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Mauve).
			Background(Surface0).
			Padding(0, 1)

	// Status line under the header
	StatusTextStyle = lipgloss.NewStyle().
				Foreground(Text).
				Padding(0, 1)

	// Log pane
	LogBorderStyle = lipgloss.NewStyle().
				BorderTop(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(Surface1)

	LogLineStyle = lipgloss.NewStyle().
			Foreground(Subtext0)

	// Alert box
	AlertStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Red).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Red).
			Padding(0, 1)

	// Port tables
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Mauve)

	TableHighlightStyle = lipgloss.NewStyle().
				Foreground(Text).
				Background(Surface1)

	TableBaseStyle = lipgloss.NewStyle().
				Foreground(Subtext1).
				BorderForeground(Surface2).
				Align(lipgloss.Left)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Overlay0)
)

// ProgressGradient is the start and end colour of the write progress bar.
var ProgressGradient = [2]string{"#89b4fa", "#a6e3a1"}

// StateColor maps session states to the status indicator colour.
func StateColor(s romflash.State) lipgloss.Color {
	switch s {
	case romflash.StateConnected:
		return Green
	case romflash.StateFailed:
		return Red
	case romflash.StateRebinding:
		return Peach
	case romflash.StateIdle:
		return Overlay0
	default:
		return Yellow
	}
}

// StateBadge renders the state as a bold block, like a vim mode indicator.
func StateBadge(s romflash.State) string {
	return lipgloss.NewStyle().
		Foreground(Base).
		Background(StateColor(s)).
		Bold(true).
		Padding(0, 1).
		Render(strings.ToUpper(s.String()))
}
