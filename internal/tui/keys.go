package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Start    key.Binding
	Complete key.Binding
	Skip     key.Binding
	Reset    key.Binding
	Delete   key.Binding
	Pause    key.Binding
	Generate key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up"), key.WithHelp("↑/↓", "navigate")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↑/↓", "navigate")),
		Start:    key.NewBinding(key.WithKeys("s", "enter"), key.WithHelp("s", "start")),
		Complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Skip:     key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "skip")),
		Reset:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reset")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Pause:    key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		Generate: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate plan")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Complete, k.Skip, k.Pause, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Start, k.Complete, k.Skip},
		{k.Reset, k.Delete, k.Pause},
		{k.Generate, k.Refresh, k.Help, k.Quit},
	}
}
