package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the results view.
type KeyMap struct {
	Refresh  key.Binding
	Cancel   key.Binding
	Download key.Binding
	Dismiss  key.Binding
	Up       key.Binding
	Down     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

var keys = KeyMap{
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Cancel:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel job")),
	Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
	Dismiss:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss alerts")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Refresh, k.Cancel, k.Download, k.Dismiss, k.Quit, k.Help}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Refresh, k.Cancel, k.Download},
		{k.Dismiss, k.Help, k.Quit},
	}
}
