// Package ui is the root bubbletea application: view routing, global
// keys, and the status bar.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/auth"
	"github.com/margin-sh/margin/internal/cache"
	"github.com/margin-sh/margin/internal/comments"
	"github.com/margin-sh/margin/internal/config"
	"github.com/margin-sh/margin/internal/monitor"
	"github.com/margin-sh/margin/internal/ui/compose"
	"github.com/margin-sh/margin/internal/ui/feedlist"
	"github.com/margin-sh/margin/internal/ui/login"
	"github.com/margin-sh/margin/internal/ui/messages"
	"github.com/margin-sh/margin/internal/ui/notifications"
	"github.com/margin-sh/margin/internal/ui/statusbar"
	"github.com/margin-sh/margin/internal/ui/threadview"
)

// ViewType identifies the active view.
type ViewType int

const (
	ViewFeed ViewType = iota
	ViewThread
	ViewLogin
	ViewCompose
	ViewNotifications
)

// App is the root Bubble Tea model.
type App struct {
	activeView    ViewType
	previousViews []ViewType
	helpVisible   bool

	feedList      feedlist.Model
	threadView    threadview.Model
	hasThread     bool
	loginForm     login.Model
	composeForm   compose.Model
	notifications notifications.Model
	statusBar     statusbar.Model

	cfg         config.Config
	client      *api.Client
	cache       *cache.DB
	bus         *comments.Bus
	session     *auth.Session
	monitor     *monitor.Monitor
	log         *zap.Logger
	unreadCount int

	width  int
	height int

	program *tea.Program
}

// NewApp creates the root application model.
func NewApp(cfg config.Config, client *api.Client, db *cache.DB, log *zap.Logger) *App {
	session := auth.NewSession(client, cfg.SessionPath)
	bus := comments.NewBus(log)
	mon := monitor.New(cfg, client, db, bus, log)

	return &App{
		activeView:    ViewFeed,
		feedList:      feedlist.New(cfg, client, db),
		statusBar:     statusbar.New(),
		notifications: notifications.New(db),
		cfg:           cfg,
		client:        client,
		cache:         db,
		bus:           bus,
		session:       session,
		monitor:       mon,
		log:           log,
	}
}

// SetProgram stores the tea.Program reference for the background monitor.
func (a *App) SetProgram(p *tea.Program) {
	a.program = p
}

// Init starts the application.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.feedList.Init(), a.tryRestoreSession())
}

func (a *App) tryRestoreSession() tea.Cmd {
	session := a.session
	return func() tea.Msg {
		if session.Load(context.Background()) {
			return messages.SessionRestoredMsg{Name: session.Viewer.Author.Name}
		}
		return nil
	}
}

// Update handles all messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		contentHeight := msg.Height - 1 // one line for the status bar
		a.feedList.SetSize(msg.Width, contentHeight)
		a.statusBar.SetSize(msg.Width)
		if a.hasThread {
			a.threadView.SetSize(msg.Width, contentHeight)
		}
		switch a.activeView {
		case ViewLogin:
			a.loginForm.SetSize(msg.Width, contentHeight)
		case ViewCompose:
			a.composeForm.SetSize(msg.Width, contentHeight)
		case ViewNotifications:
			a.notifications.SetSize(msg.Width, contentHeight)
		}
		return a, nil

	case tea.KeyMsg:
		// Global keys, except in text input views.
		if a.activeView != ViewLogin && a.activeView != ViewCompose {
			if a.helpVisible {
				a.helpVisible = false
				return a, nil
			}
			switch msg.String() {
			case "?":
				a.helpVisible = true
				return a, nil
			case "ctrl+c":
				a.shutdown()
				return a, tea.Quit
			case "q":
				if a.activeView == ViewFeed {
					a.shutdown()
					return a, tea.Quit
				}
				return a, a.goBack()
			case "esc":
				if len(a.previousViews) > 0 {
					return a, a.goBack()
				}
				if a.activeView != ViewFeed {
					a.leaveThread()
					a.activeView = ViewFeed
					return a, nil
				}
			case "tab":
				return a, a.nextTab()
			case "shift+tab":
				return a, a.prevTab()
			case "1":
				return a, a.switchTab(api.FeedTrending)
			case "2":
				return a, a.switchTab(api.FeedLatest)
			case "3":
				return a, a.switchTab(api.FeedBounties)
			case "4":
				return a, a.switchTab(api.FeedGrants)
			case "5":
				return a, a.switchTab(api.FeedReviews)
			case "L":
				if !a.session.LoggedIn {
					a.pushView(ViewLogin)
					a.loginForm = login.New(a.session)
					a.loginForm.SetSize(a.width, a.height-1)
				}
				return a, nil
			case "n":
				a.pushView(ViewNotifications)
				a.notifications.Load()
				a.notifications.SetSize(a.width, a.height-1)
				return a, nil
			}
		} else {
			if msg.String() == "ctrl+c" {
				a.shutdown()
				return a, tea.Quit
			}
			if msg.String() == "esc" && a.activeView == ViewLogin {
				return a, a.goBack()
			}
			// Compose handles esc itself so it can save the draft.
		}

	case messages.OpenDocumentMsg:
		a.leaveThread()
		a.pushView(ViewThread)
		a.threadView = threadview.New(msg.ContentType, msg.DocumentID, a.cfg,
			a.client, a.cache, a.bus, a.monitor, a.session.Viewer.Author)
		a.hasThread = true
		a.threadView.SetSize(a.width, a.height-1)
		return a, a.threadView.Init()

	case messages.GoBackMsg:
		return a, a.goBack()

	case messages.OpenComposeMsg:
		if !a.session.LoggedIn {
			a.pushView(ViewLogin)
			a.loginForm = login.New(a.session)
			a.loginForm.SetSize(a.width, a.height-1)
			return a, nil
		}
		if !a.hasThread {
			return a, nil
		}
		a.pushView(ViewCompose)
		a.composeForm = compose.New(msg, a.threadView.Store(), a.cache)
		a.composeForm.SetSize(a.width, a.height-1)
		return a, nil

	case messages.SessionRestoredMsg:
		a.statusBar.SetUser(msg.Name)
		if a.program != nil {
			a.monitor.Start(a.program)
		}
		return a, nil

	case messages.LoginResultMsg:
		if msg.Err == nil {
			a.statusBar.SetUser(msg.Name)
			if a.program != nil {
				a.monitor.Start(a.program)
			}
			return a, a.goBack()
		}
		// Let the login form show the error.

	case messages.ComposeResultMsg:
		if msg.Err == nil {
			cmds = append(cmds, a.goBack())
			docID := msg.DocumentID
			cmds = append(cmds, func() tea.Msg {
				return messages.ThreadChangedMsg{DocumentID: docID}
			})
			a.statusBar.SetStatus("Posted", false)
		}
		// Errors stay in the composer.

	case messages.NewNotificationMsg:
		a.unreadCount = msg.UnreadCount
		a.statusBar.SetUnread(msg.UnreadCount)
		// The monitor also published the replies on the bus; repaint the
		// open thread so they show up.
		if a.hasThread {
			docID := a.threadView.DocumentID()
			cmds = append(cmds, func() tea.Msg {
				return messages.ThreadChangedMsg{DocumentID: docID}
			})
		}

	case messages.StatusMsg:
		a.statusBar.SetStatus(msg.Text, msg.IsError)
	}

	// Route to views. The thread view gets messages even when covered by
	// the composer so background loads keep landing.
	var cmd tea.Cmd
	switch a.activeView {
	case ViewFeed:
		a.feedList, cmd = a.feedList.Update(msg)
		cmds = append(cmds, cmd)
		a.statusBar.SetActiveTab(a.feedList.FeedView())
	case ViewThread:
		a.threadView, cmd = a.threadView.Update(msg)
		cmds = append(cmds, cmd)
	case ViewLogin:
		a.loginForm, cmd = a.loginForm.Update(msg)
		cmds = append(cmds, cmd)
	case ViewCompose:
		a.composeForm, cmd = a.composeForm.Update(msg)
		cmds = append(cmds, cmd)
		if a.hasThread {
			if _, ok := msg.(tea.KeyMsg); !ok {
				a.threadView, cmd = a.threadView.Update(msg)
				cmds = append(cmds, cmd)
			}
		}
	case ViewNotifications:
		a.notifications, cmd = a.notifications.Update(msg)
		cmds = append(cmds, cmd)
	}

	a.statusBar, cmd = a.statusBar.Update(msg)
	cmds = append(cmds, cmd)

	return a, tea.Batch(cmds...)
}

// View renders the application.
func (a *App) View() string {
	if a.helpVisible {
		return lipgloss.JoinVertical(lipgloss.Left, a.renderHelp(), a.statusBar.View())
	}
	var content string
	switch a.activeView {
	case ViewFeed:
		content = a.feedList.View()
	case ViewThread:
		content = a.threadView.View()
	case ViewLogin:
		content = a.loginForm.View()
	case ViewCompose:
		content = a.composeForm.View()
	case ViewNotifications:
		content = a.notifications.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, content, a.statusBar.View())
}

func (a *App) renderHelp() string {
	section := func(title string, bindings ...key.Binding) string {
		var sb strings.Builder
		sb.WriteString(TitleStyle.Render(title))
		sb.WriteString("\n")
		for _, b := range bindings {
			h := b.Help()
			sb.WriteString(fmt.Sprintf("  %s %s\n",
				ScoreStyle.Render(fmt.Sprintf("%-8s", h.Key)),
				MetaStyle.Render(h.Desc)))
		}
		return sb.String()
	}

	left := section("Navigation",
		Keys.Up, Keys.Down, Keys.PageUp, Keys.PageDown, Keys.Home, Keys.End,
		Keys.Collapse, Keys.Parent, Keys.NextSib) +
		"\n" + section("Feeds",
		Keys.Tab1, Keys.Tab2, Keys.Tab3, Keys.Tab4, Keys.Tab5, Keys.Refresh)

	right := section("Comments",
		Keys.Comment, Keys.Review, Keys.Reply, Keys.Edit, Keys.Delete,
		Keys.Upvote, Keys.LoadReplies, Keys.Sort, Keys.Bounties, Keys.Watch) +
		"\n" + section("Account",
		Keys.Login, Keys.Notify, Keys.Back, Keys.Quit)

	columns := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().MarginRight(6).Render(left), right)
	body := lipgloss.JoinVertical(lipgloss.Left, columns,
		DimStyle.Render("press any key to close"))
	return lipgloss.Place(a.width, a.height-1, lipgloss.Center, lipgloss.Center, body)
}

func (a *App) pushView(v ViewType) {
	a.previousViews = append(a.previousViews, a.activeView)
	a.activeView = v
}

func (a *App) goBack() tea.Cmd {
	if len(a.previousViews) > 0 {
		leaving := a.activeView
		a.activeView = a.previousViews[len(a.previousViews)-1]
		a.previousViews = a.previousViews[:len(a.previousViews)-1]
		if leaving == ViewThread && a.activeView != ViewThread {
			a.leaveThread()
		}
	}
	return nil
}

// leaveThread closes the mounted store so it unsubscribes from the bus.
func (a *App) leaveThread() {
	if a.hasThread {
		a.threadView.Close()
		a.hasThread = false
	}
}

func (a *App) shutdown() {
	a.monitor.Stop()
	a.leaveThread()
}

var tabOrder = []api.FeedView{
	api.FeedTrending, api.FeedLatest, api.FeedBounties,
	api.FeedGrants, api.FeedReviews,
}

func (a *App) nextTab() tea.Cmd {
	current := a.feedList.FeedView()
	for i, v := range tabOrder {
		if v == current {
			return a.switchTab(tabOrder[(i+1)%len(tabOrder)])
		}
	}
	return a.switchTab(tabOrder[0])
}

func (a *App) prevTab() tea.Cmd {
	current := a.feedList.FeedView()
	for i, v := range tabOrder {
		if v == current {
			return a.switchTab(tabOrder[(i-1+len(tabOrder))%len(tabOrder)])
		}
	}
	return a.switchTab(tabOrder[0])
}

func (a *App) switchTab(v api.FeedView) tea.Cmd {
	if a.activeView != ViewFeed {
		a.leaveThread()
		a.activeView = ViewFeed
		a.previousViews = nil
	}
	m, cmd := a.feedList.Update(messages.SwitchFeedMsg{View: v})
	a.feedList = m
	a.statusBar.SetActiveTab(v)
	return cmd
}
