package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds every key binding used by the UI.
type KeyMap struct {
	Quit       key.Binding
	ForceQuit  key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Up         key.Binding
	Down       key.Binding
	Enter      key.Binding
	Escape     key.Binding
	Bell       key.Binding
	Filter     key.Binding
	Ack        key.Binding
	Thresholds key.Binding
	Refresh    key.Binding
	Logout     key.Binding
	NextPage   key.Binding
	PrevPage   key.Binding
	Status     key.Binding
	Machine    key.Binding
	Dates      key.Binding
	Dismiss    key.Binding
	History    key.Binding
	Users      key.Binding
	Search     key.Binding
	Sort       key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		ShiftTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous view")),
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Bell:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "alerts feed")),
		Filter:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Ack:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "acknowledge")),
		Thresholds: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "thresholds")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Logout:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		NextPage:   key.NewBinding(key.WithKeys("right", "]"), key.WithHelp("→/]", "next page")),
		PrevPage:   key.NewBinding(key.WithKeys("left", "["), key.WithHelp("←/[", "previous page")),
		Status:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
		Machine:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "machine filter")),
		Dates:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "date range")),
		Dismiss:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss toast")),
		History:    key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "full history")),
		Users:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "users")),
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Sort:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort order")),
	}
}
