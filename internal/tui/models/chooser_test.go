package models

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allbin/romflash/link"
)

var testPorts = []link.PortInfo{
	{Path: "/dev/ttyACM0", Product: "ESP32-S2", VendorID: "303a", ProductID: "0002"},
	{Path: "/dev/ttyUSB0", Description: "USB Serial Adapter"},
}

func press(m tea.Model, k string) (tea.Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return m.Update(msg)
}

func TestChooserSelectsHighlightedPort(t *testing.T) {
	m, cmd := press(NewChooser(testPorts, nil), "enter")
	require.NotNil(t, cmd)

	path, err := m.(ChooserModel).Chosen()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", path)
}

func TestChooserMovesDown(t *testing.T) {
	m, _ := press(NewChooser(testPorts, nil), "down")
	m, _ = press(m, "enter")

	path, err := m.(ChooserModel).Chosen()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", path)
}

func TestChooserCancel(t *testing.T) {
	for _, k := range []string{"esc", "q"} {
		m, cmd := press(NewChooser(testPorts, nil), k)
		require.NotNil(t, cmd, k)

		_, err := m.(ChooserModel).Chosen()
		assert.ErrorIs(t, err, link.ErrSelectionCancelled, k)
	}
}

func TestChooserEmptyIgnoresSelect(t *testing.T) {
	m, cmd := press(NewChooser(nil, nil), "enter")
	assert.Nil(t, cmd)

	_, err := m.(ChooserModel).Chosen()
	assert.ErrorIs(t, err, link.ErrSelectionCancelled)
	assert.Contains(t, m.View(), "No serial ports found")
}

func TestChooserRescan(t *testing.T) {
	rescanned := []link.PortInfo{{Path: "/dev/ttyACM1", Product: "ESP32-S3"}}
	m, cmd := press(NewChooser(nil, func() ([]link.PortInfo, error) { return rescanned, nil }), "r")
	require.NotNil(t, cmd)

	m, _ = m.Update(cmd())
	m, _ = press(m, "enter")
	path, err := m.(ChooserModel).Chosen()
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", path)
}

func TestChooserRescanError(t *testing.T) {
	m, _ := NewChooser(testPorts, nil).Update(PortsMsg{Err: errors.New("permission denied")})
	assert.Contains(t, m.View(), "permission denied")
}
