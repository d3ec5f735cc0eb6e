package models

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/allbin/romflash"
	"github.com/allbin/romflash/firmware"
	"github.com/allbin/romflash/internal/tui/components"
	"github.com/allbin/romflash/internal/tui/keys"
	"github.com/allbin/romflash/internal/tui/styles"
)

type (
	StatusMsg   string
	ProgressMsg int
	AlertMsg    string
	LogMsg      string
	tickMsg     time.Time
)

// DoneMsg ends a flash view run.
type DoneMsg struct {
	Chip   string
	Result *firmware.Result
	Err    error
}

// Relay forwards session events into a running program. Events sent before
// Attach, or after the program exits, are dropped.
type Relay struct {
	program atomic.Pointer[tea.Program]
}

func (r *Relay) Attach(p *tea.Program) {
	r.program.Store(p)
}

func (r *Relay) Send(msg tea.Msg) {
	if p := r.program.Load(); p != nil {
		p.Send(msg)
	}
}

func (r *Relay) Status(text string)   { r.Send(StatusMsg(text)) }
func (r *Relay) Progress(percent int) { r.Send(ProgressMsg(percent)) }
func (r *Relay) Alert(message string) { r.Send(AlertMsg(message)) }

var _ romflash.Observer = (*Relay)(nil)

// LogWriter formats zerolog JSON events as console lines for the log pane.
func LogWriter(r *Relay) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        relayWriter{r},
		NoColor:    true,
		TimeFormat: "15:04:05",
	}
}

type relayWriter struct{ r *Relay }

func (w relayWriter) Write(p []byte) (int, error) {
	w.r.Send(LogMsg(string(p)))
	return len(p), nil
}

// FlashConfig describes one run of the flash view.
type FlashConfig struct {
	Title string
	Port  string
	Image string
	// State is polled for the status bar.
	State func() romflash.State
	// Run does the work. It must return once ctx is done.
	Run func(ctx context.Context) DoneMsg
}

// FlashModel shows status, write progress and the session log while Run
// executes.
type FlashModel struct {
	cfg       FlashConfig
	ctx       context.Context
	cancel    context.CancelFunc
	status    string
	percent   float64
	alerts    []string
	progress  progress.Model
	spinner   spinner.Model
	statusbar *components.StatusBar
	logpane   *components.LogPane
	keys      keys.FlashKeys
	help      help.Model
	showLog   bool
	started   time.Time
	elapsed   time.Duration
	quitting  bool
	done      *DoneMsg
	width     int
}

func NewFlashModel(ctx context.Context, cfg FlashConfig) FlashModel {
	ctx, cancel := context.WithCancel(ctx)

	sb := components.NewStatusBar(cfg.Port)
	sb.SetImage(cfg.Image)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(styles.Mauve)

	return FlashModel{
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		status:    "Starting...",
		progress:  progress.New(progress.WithGradient(styles.ProgressGradient[0], styles.ProgressGradient[1])),
		spinner:   sp,
		statusbar: sb,
		logpane:   components.NewLogPane(80, 8),
		keys:      keys.NewFlashKeys(),
		help:      help.New(),
		showLog:   true,
		started:   time.Now(),
	}
}

func (m FlashModel) Init() tea.Cmd {
	run, ctx := m.cfg.Run, m.ctx
	return tea.Batch(
		m.spinner.Tick,
		tick(),
		func() tea.Msg { return run(ctx) },
	)
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m FlashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if m.done != nil {
				return m, tea.Quit
			}
			m.quitting = true
			m.status = "Cancelling..."
			m.cancel()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.ToggleLog):
			m.showLog = !m.showLog
			return m, nil
		case key.Matches(msg, m.keys.ScrollUp), key.Matches(msg, m.keys.ScrollDown):
			return m, m.logpane.Update(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-4, 10)
		m.statusbar.SetWidth(msg.Width)
		m.logpane.SetSize(msg.Width, max(msg.Height-10, 3))
		return m, nil

	case StatusMsg:
		m.status = string(msg)
		return m, nil

	case ProgressMsg:
		m.percent = float64(msg) / 100
		return m, nil

	case AlertMsg:
		m.alerts = append(m.alerts, string(msg))
		return m, nil

	case LogMsg:
		m.logpane.Append(string(msg))
		return m, nil

	case tickMsg:
		if m.done != nil {
			return m, nil
		}
		m.elapsed = time.Since(m.started)
		if m.cfg.State != nil {
			m.statusbar.SetState(m.cfg.State(), nil)
		}
		return m, tick()

	case DoneMsg:
		m.done = &msg
		m.elapsed = time.Since(m.started)
		if m.cfg.State != nil {
			m.statusbar.SetState(m.cfg.State(), msg.Err)
		}
		if msg.Chip != "" {
			m.statusbar.SetChip(msg.Chip)
		}
		m.cancel()
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m FlashModel) View() string {
	var b strings.Builder

	title := m.cfg.Title
	if title == "" {
		title = "romflash"
	}
	b.WriteString(styles.TitleStyle.Render(title))
	b.WriteString("\n\n")

	status := m.status
	if m.done == nil {
		status = m.spinner.View() + " " + status
	}
	b.WriteString(styles.StatusTextStyle.Render(status))
	b.WriteString("\n")
	b.WriteString("  " + m.progress.ViewAs(m.percent))
	b.WriteString("\n")

	for _, a := range m.alerts {
		b.WriteString(styles.AlertStyle.Render(a))
		b.WriteString("\n")
	}

	if m.showLog {
		b.WriteString(m.logpane.View())
		b.WriteString("\n")
	}

	b.WriteString(m.statusbar.View(m.elapsed))
	if m.done == nil {
		b.WriteString("\n")
		b.WriteString(m.help.View(m.keys))
	}
	b.WriteString("\n")
	return b.String()
}

// Outcome returns the result of Run, or an error if the view exited first.
func (m FlashModel) Outcome() DoneMsg {
	if m.done == nil {
		return DoneMsg{Err: fmt.Errorf("flash view closed: %w", context.Canceled)}
	}
	return *m.done
}
