package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit        key.Binding
	Back        key.Binding
	Help        key.Binding
	Enter       key.Binding
	Refresh     key.Binding
	Login       key.Binding
	Notify      key.Binding
	Upvote      key.Binding
	Reply       key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Comment     key.Binding
	Review      key.Binding
	LoadReplies key.Binding
	Sort        key.Binding
	Bounties    key.Binding
	Watch       key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Home        key.Binding
	End         key.Binding
	Collapse    key.Binding
	Parent      key.Binding
	NextSib     key.Binding
	Tab1        key.Binding
	Tab2        key.Binding
	Tab3        key.Binding
	Tab4        key.Binding
	Tab5        key.Binding
}

var Keys = KeyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Refresh:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh")),
	Login:       key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "login")),
	Notify:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notifications")),
	Upvote:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upvote")),
	Reply:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reply")),
	Edit:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Comment:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "comment")),
	Review:      key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "review")),
	LoadReplies: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "more replies")),
	Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
	Bounties:    key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bounty filter")),
	Watch:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "watch replies")),
	Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/up", "up")),
	Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/down", "down")),
	PageUp:      key.NewBinding(key.WithKeys("ctrl+u", "pgup"), key.WithHelp("ctrl+u", "page up")),
	PageDown:    key.NewBinding(key.WithKeys("ctrl+d", "pgdown"), key.WithHelp("ctrl+d", "page down")),
	Home:        key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
	End:         key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
	Collapse:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "collapse")),
	Parent:      key.NewBinding(key.WithKeys("["), key.WithHelp("[", "parent")),
	NextSib:     key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next sibling")),
	Tab1:        key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "trending")),
	Tab2:        key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "latest")),
	Tab3:        key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "bounties")),
	Tab4:        key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "grants")),
	Tab5:        key.NewBinding(key.WithKeys("5"), key.WithHelp("5", "reviews")),
}
