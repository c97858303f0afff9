package dashboard

import "github.com/charmbracelet/bubbles/key"

// browseKeys holds key bindings for browse mode.
type browseKeys struct {
	Up          key.Binding
	Down        key.Binding
	Select      key.Binding
	Toggle      key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	NewChild    key.Binding
	NewRoot     key.Binding
	Delete      key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Refresh     key.Binding
	ShiftUp     key.Binding
	ShiftDown   key.Binding
	Cut         key.Binding
	Paste       key.Binding
	PasteRoot   key.Binding
	Focus       key.Binding
	AddSource   key.Binding
	Tab         key.Binding
	Quit        key.Binding
}

// ShortHelp returns the browse mode bindings for the help bar.
func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Toggle, k.NewChild, k.Delete, k.Cut, k.Paste, k.Tab, k.Quit}
}

// FullHelp returns the browse mode bindings grouped for expanded help.
func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Toggle, k.Expand, k.Collapse},
		{k.NewChild, k.NewRoot, k.Delete, k.Refresh},
		{k.ShiftUp, k.ShiftDown, k.Cut, k.Paste, k.PasteRoot},
		{k.ExpandAll, k.CollapseAll, k.Focus, k.AddSource, k.Tab, k.Quit},
	}
}

// confirmKeys holds key bindings for the confirmation overlay.
type confirmKeys struct {
	Switch  key.Binding
	Accept  key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns the confirm mode bindings for the help bar.
func (k confirmKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Accept, k.Confirm, k.Cancel}
}

// FullHelp returns the confirm mode bindings grouped for expanded help.
func (k confirmKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Switch, k.Accept}, {k.Confirm, k.Cancel}}
}

// createKeys holds key bindings for the creation overlay.
type createKeys struct {
	Submit key.Binding
	Cancel key.Binding
}

// ShortHelp returns the create mode bindings for the help bar.
func (k createKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Cancel}
}

// FullHelp returns the create mode bindings grouped for expanded help.
func (k createKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.Cancel}}
}

// BrowseKeyMap returns the key bindings for browse mode.
func BrowseKeyMap() browseKeys {
	return browseKeys{
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
			key.WithHelp("enter", "open"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Expand: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "expand"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse"),
		),
		NewChild: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new sub-project"),
		),
		NewRoot: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "new project"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		ExpandAll: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "expand all"),
		),
		CollapseAll: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "collapse all"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		ShiftUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K", "move up"),
		),
		ShiftDown: key.NewBinding(
			key.WithKeys("J"),
			key.WithHelp("J", "move down"),
		),
		Cut: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "cut"),
		),
		Paste: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "paste into"),
		),
		PasteRoot: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "paste at top"),
		),
		Focus: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "focus"),
		),
		AddSource: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add source"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ConfirmKeyMap returns the key bindings for the confirmation overlay.
func ConfirmKeyMap() confirmKeys {
	return confirmKeys{
		Switch: key.NewBinding(
			key.WithKeys("left", "right", "tab", "h", "l"),
			key.WithHelp("←/→", "choose"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "accept"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "delete"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "n"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// CreateKeyMap returns the key bindings for the creation overlay.
func CreateKeyMap() createKeys {
	return createKeys{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "create"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
