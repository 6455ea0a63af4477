package components

import "github.com/charmbracelet/bubbles/key"

func binding(help, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(help, desc))
}

// DocumentListKeyMap covers cursor movement and the inline filter of a
// document list. Enter and Escape only act while the filter is open; the
// model owns enter otherwise.
type DocumentListKeyMap struct {
	Up, Down         key.Binding
	Home, End        key.Binding
	HalfUp, HalfDown key.Binding
	PageUp, PageDown key.Binding
	Filter           key.Binding
	Escape, Enter    key.Binding
}

// SearchModalKeyMap moves through ranked search results. Letters go to the
// query input, so navigation stays on arrows and control keys.
type SearchModalKeyMap struct {
	Up, Down      key.Binding
	Enter, Escape key.Binding
}

var (
	DocumentListKeys = DocumentListKeyMap{
		Up:       binding("k/↑", "previous document", "k", "up"),
		Down:     binding("j/↓", "next document", "j", "down"),
		Home:     binding("g", "first document", "g", "home"),
		End:      binding("G", "last document", "G", "end"),
		HalfUp:   binding("C-u", "half page up", "ctrl+u"),
		HalfDown: binding("C-d", "half page down", "ctrl+d"),
		PageUp:   binding("PgUp", "page up", "pgup"),
		PageDown: binding("PgDn", "page down", "pgdown"),
		Filter:   binding("/", "filter loaded page", "/"),
		Escape:   binding("esc", "drop filter", "esc"),
		Enter:    binding("enter", "keep filter", "enter"),
	}

	SearchModalKeys = SearchModalKeyMap{
		Up:     binding("↑/S-tab", "previous match", "up", "ctrl+p", "shift+tab"),
		Down:   binding("↓/tab", "next match", "down", "ctrl+n", "tab"),
		Enter:  binding("enter", "watch document", "enter"),
		Escape: binding("esc", "close search", "esc"),
	}
)
