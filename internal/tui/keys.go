package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	up, down, left, right key.Binding
	edit, commit, cancel  key.Binding
	next, prev            key.Binding
	moveLeft, moveRight   key.Binding
	resetOrder            key.Binding
	addRow, deleteRow     key.Binding
	save, reload, base    key.Binding
	yank                  key.Binding
	toggleHelp, quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "left"),
		),
		right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "right"),
		),
		edit: key.NewBinding(
			key.WithKeys("enter", "e"),
			key.WithHelp("enter", "edit cell"),
		),
		commit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "commit"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel edit"),
		),
		next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next cell"),
		),
		prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous cell"),
		),
		moveLeft: key.NewBinding(
			key.WithKeys("<", "shift+left"),
			key.WithHelp("<", "move column left"),
		),
		moveRight: key.NewBinding(
			key.WithKeys(">", "shift+right"),
			key.WithHelp(">", "move column right"),
		),
		resetOrder: key.NewBinding(
			key.WithKeys("0"),
			key.WithHelp("0", "reset columns"),
		),
		addRow: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add row"),
		),
		deleteRow: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete row"),
		),
		save: key.NewBinding(
			key.WithKeys("s", "ctrl+s"),
			key.WithHelp("s", "save"),
		),
		reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		base: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle KRW"),
		),
		yank: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy cell"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.edit, k.moveLeft, k.moveRight, k.addRow, k.save, k.toggleHelp, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right},
		{k.edit, k.cancel, k.next, k.prev},
		{k.moveLeft, k.moveRight, k.resetOrder},
		{k.addRow, k.deleteRow, k.save, k.reload, k.base, k.yank},
		{k.toggleHelp, k.quit},
	}
}
