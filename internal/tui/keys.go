package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keybindings for the TUI.
type keyMap struct {
	Quit     key.Binding
	Help     key.Binding
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Add      key.Binding
	Delete   key.Binding
	Purge    key.Binding
	Reset    key.Binding
	Install  key.Binding
	Settings key.Binding
	Filter   key.Binding
	Edit     key.Binding
	Retry    key.Binding
	Toggle   key.Binding
	Save     key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("k/up", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("j/down", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab", "right", "l"),
		key.WithHelp("tab", "next category"),
	),
	ShiftTab: key.NewBinding(
		key.WithKeys("shift+tab", "left", "h"),
		key.WithHelp("shift+tab", "prev category"),
	),
	Add: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add link"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d", "delete"),
		key.WithHelp("d", "remove"),
	),
	Purge: key.NewBinding(
		key.WithKeys("D"),
		key.WithHelp("D", "remove + delete files"),
	),
	Reset: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reset catalog"),
	),
	Install: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "install"),
	),
	Settings: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "settings"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit URL"),
	),
	Retry: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "retry"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "x"),
		key.WithHelp("space/x", "change"),
	),
	Save: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "save"),
	),
}

// ---------------------------------------------------------------------------
// Per-view help keymaps for the help.Model component.
// Each implements help.KeyMap (ShortHelp + FullHelp).
// ---------------------------------------------------------------------------

// catalogHelpKeyMap is shown in the catalog view.
type catalogHelpKeyMap struct {
	adding bool
}

func (k catalogHelpKeyMap) ShortHelp() []key.Binding {
	if k.adding {
		return []key.Binding{keys.Enter, keys.Back}
	}
	return []key.Binding{
		keys.Tab, keys.Up, keys.Down, keys.Filter,
		keys.Add, keys.Delete, keys.Install, keys.Settings, keys.Quit,
	}
}

func (k catalogHelpKeyMap) FullHelp() [][]key.Binding {
	if k.adding {
		return [][]key.Binding{k.ShortHelp()}
	}
	return [][]key.Binding{
		{keys.Tab, keys.ShiftTab, keys.Up, keys.Down, keys.Filter},
		{keys.Add, keys.Delete, keys.Purge, keys.Reset},
		{keys.Install, keys.Settings, keys.Help, keys.Quit},
	}
}

// settingsHelpKeyMap is shown in the settings view.
type settingsHelpKeyMap struct {
	editing bool
}

func (k settingsHelpKeyMap) ShortHelp() []key.Binding {
	if k.editing {
		return []key.Binding{keys.Enter, keys.Back}
	}
	return []key.Binding{
		keys.Up, keys.Down, keys.Enter, keys.Toggle, keys.Save, keys.Back,
	}
}

func (k settingsHelpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// runHelpKeyMap is shown while a run is in progress or finished.
type runHelpKeyMap struct {
	running bool
}

func (k runHelpKeyMap) ShortHelp() []key.Binding {
	if k.running {
		return []key.Binding{keys.Up, keys.Down}
	}
	return []key.Binding{keys.Up, keys.Down, keys.Back, keys.Quit}
}

func (k runHelpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// gitErrorHelpKeyMap is shown in the git error overlay.
type gitErrorHelpKeyMap struct {
	editing bool
}

func (k gitErrorHelpKeyMap) ShortHelp() []key.Binding {
	if k.editing {
		return []key.Binding{keys.Enter, keys.Back}
	}
	return []key.Binding{keys.Edit, keys.Retry, keys.Back}
}

func (k gitErrorHelpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
