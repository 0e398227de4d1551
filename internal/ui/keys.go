package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the key layout of the issue confirmation prompt.
type KeyMap struct {
	Yes      key.Binding
	No       key.Binding
	Toggle   key.Binding
	Enter    key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
}

var Keys = KeyMap{
	Yes:      key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "file issue")),
	No:       key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n/esc", "skip")),
	Toggle:   key.NewBinding(key.WithKeys("tab", "left", "right", "h", "l"), key.WithHelp("tab", "toggle")),
	Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "scroll up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "scroll down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "abort")),
}

// ShortHelp lists the bindings shown under the prompt.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Yes, k.No, k.Toggle, k.Down, k.Up}
}

// FullHelp satisfies help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Enter, k.PageUp, k.PageDown, k.Quit}}
}
