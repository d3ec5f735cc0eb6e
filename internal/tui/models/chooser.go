package models

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/romflash/internal/tui/keys"
	"github.com/allbin/romflash/internal/tui/styles"
	"github.com/allbin/romflash/link"
)

const (
	columnPath    = "path"
	columnDevice  = "device"
	columnVIDPID  = "vidpid"
	columnSerial  = "serial"
	chooserHeight = 10
)

// PortsMsg carries a fresh port scan into the chooser.
type PortsMsg struct {
	Ports []link.PortInfo
	Err   error
}

// ChooserModel lets the user pick one serial port from a table.
type ChooserModel struct {
	table     table.Model
	ports     []link.PortInfo
	keys      keys.ChooserKeys
	help      help.Model
	rescan    func() ([]link.PortInfo, error)
	chosen    string
	cancelled bool
	err       error
}

// NewChooser builds a chooser over ports. rescan may be nil.
func NewChooser(ports []link.PortInfo, rescan func() ([]link.PortInfo, error)) ChooserModel {
	t := table.New([]table.Column{
		table.NewColumn(columnPath, "Port", 16),
		table.NewColumn(columnDevice, "Device", 30),
		table.NewColumn(columnVIDPID, "VID:PID", 10),
		table.NewColumn(columnSerial, "Serial", 18),
	}).
		Focused(true).
		WithPageSize(chooserHeight).
		HeaderStyle(styles.TableHeaderStyle).
		HighlightStyle(styles.TableHighlightStyle).
		WithBaseStyle(styles.TableBaseStyle).
		BorderRounded()

	m := ChooserModel{
		table:  t,
		keys:   keys.NewChooserKeys(),
		help:   help.New(),
		rescan: rescan,
	}
	m.setPorts(ports)
	return m
}

func (m *ChooserModel) setPorts(ports []link.PortInfo) {
	m.ports = ports
	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		device := p.Product
		if device == "" {
			device = p.Description
		}
		vidpid := ""
		if p.VendorID != "" {
			vidpid = p.VendorID + ":" + p.ProductID
		}
		rows = append(rows, table.NewRow(table.RowData{
			columnPath:   p.Path,
			columnDevice: device,
			columnVIDPID: vidpid,
			columnSerial: p.SerialNumber,
		}))
	}
	m.table = m.table.WithRows(rows)
}

func (m ChooserModel) Init() tea.Cmd {
	return nil
}

func (m ChooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Select):
			if len(m.ports) == 0 {
				return m, nil
			}
			if path, ok := m.table.HighlightedRow().Data[columnPath].(string); ok {
				m.chosen = path
				return m, tea.Quit
			}
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, m.scan()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}

	case PortsMsg:
		m.err = msg.Err
		if msg.Err == nil {
			m.setPorts(msg.Ports)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m ChooserModel) scan() tea.Cmd {
	if m.rescan == nil {
		return nil
	}
	rescan := m.rescan
	return func() tea.Msg {
		ports, err := rescan()
		return PortsMsg{Ports: ports, Err: err}
	}
}

func (m ChooserModel) View() string {
	title := styles.TitleStyle.Render("Select a serial port")

	body := m.table.View()
	if len(m.ports) == 0 {
		body = styles.MutedStyle.Render("No serial ports found. Plug in a device and press r.")
	}

	parts := []string{title, "", body}
	if m.err != nil {
		parts = append(parts, styles.AlertStyle.Render(fmt.Sprintf("Scan failed: %v", m.err)))
	}
	parts = append(parts, "", m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Chosen returns the selected path, or link.ErrSelectionCancelled.
func (m ChooserModel) Chosen() (string, error) {
	if m.cancelled || m.chosen == "" {
		return "", link.ErrSelectionCancelled
	}
	return m.chosen, nil
}

// Chooser is a link.Chooser that asks the user on the terminal.
func Chooser(ctx context.Context, ports []link.PortInfo) (string, error) {
	m := NewChooser(ports, link.ListPortInfos)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) {
			return "", link.ErrSelectionCancelled
		}
		return "", fmt.Errorf("port chooser: %w", err)
	}
	return final.(ChooserModel).Chosen()
}

var _ link.Chooser = Chooser
