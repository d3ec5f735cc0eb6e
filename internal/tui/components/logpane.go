package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/allbin/romflash/internal/tui/styles"
)

// DefaultLogLines is how many log lines the pane keeps.
const DefaultLogLines = 500

// LogPane shows the tail of the session log. It follows new lines unless the
// user scrolled up.
type LogPane struct {
	viewport viewport.Model
	lines    []string
	limit    int
}

func NewLogPane(width, height int) *LogPane {
	return &LogPane{
		viewport: viewport.New(width, height),
		limit:    DefaultLogLines,
	}
}

func (lp *LogPane) SetSize(width, height int) {
	lp.viewport.Width = width
	lp.viewport.Height = height
	lp.refresh(lp.viewport.AtBottom())
}

// Append adds one or more newline-separated lines.
func (lp *LogPane) Append(text string) {
	follow := lp.viewport.AtBottom()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		lp.lines = append(lp.lines, line)
	}
	if over := len(lp.lines) - lp.limit; over > 0 {
		lp.lines = lp.lines[over:]
	}
	lp.refresh(follow)
}

func (lp *LogPane) Lines() []string {
	return lp.lines
}

func (lp *LogPane) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	lp.viewport, cmd = lp.viewport.Update(msg)
	return cmd
}

func (lp *LogPane) View() string {
	return styles.LogBorderStyle.Render(lp.viewport.View())
}

func (lp *LogPane) refresh(follow bool) {
	lp.viewport.SetContent(styles.LogLineStyle.Render(strings.Join(lp.lines, "\n")))
	if follow {
		lp.viewport.GotoBottom()
	}
}
