package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/romflash"
	"github.com/allbin/romflash/internal/tui/styles"
)

// StatusBar is the bottom line of the flash view: session state, port,
// chip and image.
type StatusBar struct {
	port  string
	chip  string
	image string
	state romflash.State
	err   error
	width int
}

func NewStatusBar(port string) *StatusBar {
	if port == "" {
		port = "no port"
	}
	return &StatusBar{port: port}
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetPort(port string) {
	sb.port = port
}

func (sb *StatusBar) SetChip(chip string) {
	sb.chip = chip
}

func (sb *StatusBar) SetImage(image string) {
	sb.image = image
}

func (sb *StatusBar) SetState(state romflash.State, err error) {
	sb.state = state
	sb.err = err
}

func (sb *StatusBar) View(elapsed time.Duration) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	mode := styles.StateBadge(sb.state)

	portStyle := lipgloss.NewStyle().
		Foreground(styles.Mauve).
		Bold(true).
		Padding(0, 1)
	port := portStyle.Render(sb.port)

	indicator := "○"
	switch {
	case sb.err != nil:
		indicator = "✗"
	case sb.state == romflash.StateConnected:
		indicator = "●"
	}
	connIndicator := lipgloss.NewStyle().Foreground(styles.StateColor(sb.state)).Render(indicator)

	divider := lipgloss.NewStyle().
		Foreground(styles.Surface2).
		Padding(0, 1).
		Render("│")

	details := "⚡ " + fmt.Sprintf("%d baud", romflash.BaudRate)
	if sb.chip != "" {
		details = "⚡ " + sb.chip
	}
	if sb.image != "" {
		details += " · " + sb.image
	}
	connectionDetails := lipgloss.NewStyle().
		Foreground(styles.Subtext0).
		Padding(0, 1).
		Render(details)

	clock := lipgloss.NewStyle().
		Foreground(styles.Subtext1).
		Padding(0, 1).
		Render(elapsed.Truncate(100 * time.Millisecond).String())

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, connIndicator, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, connectionDetails, divider, clock)

	spacerWidth := max(terminalWidth-lipgloss.Width(leftSide)-lipgloss.Width(rightSide), 1)
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	statusBarStyle := lipgloss.NewStyle().
		Foreground(styles.Text).
		Background(styles.Surface0).
		Width(terminalWidth)

	return statusBarStyle.Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
