package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Toggle   key.Binding
	Decrease key.Binding
	Increase key.Binding
	Power    key.Binding
	Reset    key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Toggle:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle/edit")),
		Decrease: key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/-", "less")),
		Increase: key.NewBinding(key.WithKeys("right", "l", "+"), key.WithHelp("→/+", "more")),
		Power:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "on/off")),
		Reset:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset stats")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Decrease, k.Increase, k.Power, k.Reset, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
