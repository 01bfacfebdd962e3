package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NewOrder key.Binding
	Close    key.Binding
	Next     key.Binding
	Prev     key.Binding
	Picker   key.Binding
	Collapse key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		NewOrder: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "new order")),
		Close:    key.NewBinding(key.WithKeys("ctrl+w"), key.WithHelp("ctrl+w", "close tab")),
		Next:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "next")),
		Prev:     key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "prev")),
		Picker:   key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "tabs")),
		Collapse: key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "collapse")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewOrder, k.Close, k.Next, k.Prev, k.Picker, k.Collapse, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
