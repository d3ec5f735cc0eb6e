package keys

import "github.com/charmbracelet/bubbles/key"

// Common key bindings used across TUI views
type CommonKeys struct {
	Quit key.Binding
	Help key.Binding
}

func NewCommonKeys() CommonKeys {
	return CommonKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ChooserKeys drive the port chooser
type ChooserKeys struct {
	CommonKeys
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Cancel  key.Binding
	Refresh key.Binding
}

func NewChooserKeys() ChooserKeys {
	common := NewCommonKeys()
	common.Quit.SetEnabled(false)
	return ChooserKeys{
		CommonKeys: common,
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select port"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "q", "ctrl+c"),
			key.WithHelp("esc/q", "cancel"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rescan"),
		),
	}
}

func (k ChooserKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Refresh, k.Cancel, k.Help}
}

func (k ChooserKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Refresh, k.Cancel, k.Help},
	}
}

// FlashKeys drive the connect and flash view
type FlashKeys struct {
	CommonKeys
	ToggleLog  key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
}

func NewFlashKeys() FlashKeys {
	return FlashKeys{
		CommonKeys: NewCommonKeys(),
		ToggleLog: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "toggle log"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll log up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll log down"),
		),
	}
}

func (k FlashKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleLog, k.Help, k.Quit}
}

func (k FlashKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.ToggleLog, k.ScrollUp, k.ScrollDown},
		{k.Help, k.Quit},
	}
}
