package feedlist

import (
	"context"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/cache"
	"github.com/margin-sh/margin/internal/config"
	"github.com/margin-sh/margin/internal/ui/messages"
)

// Model is the document feed view.
type Model struct {
	list    list.Model
	view    api.FeedView
	client  *api.Client
	cache   *cache.DB
	cfg     config.Config
	loading bool
	width   int
	height  int
}

// New creates a feed list model.
func New(cfg config.Config, client *api.Client, db *cache.DB) Model {
	delegate := Delegate{}
	l := list.New(nil, delegate, 0, 0)
	l.Title = "ResearchHub"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)

	return Model{
		list:   l,
		view:   api.FeedTrending,
		client: client,
		cache:  db,
		cfg:    cfg,
	}
}

// Init loads the initial feed.
func (m Model) Init() tea.Cmd {
	return m.loadFeed(false)
}

// SetSize updates the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case messages.FeedLoadedMsg:
		if msg.Err != nil {
			m.list.Title = "Error: " + msg.Err.Error()
			m.loading = false
			return m, nil
		}
		if msg.View != m.view {
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.Docs))
		for i, doc := range msg.Docs {
			if doc != nil {
				items = append(items, DocItem{Document: doc, Index: i})
			}
		}
		m.list.SetItems(items)
		m.list.Title = feedTitle(m.view)
		m.loading = false
		return m, nil

	case messages.SwitchFeedMsg:
		m.view = msg.View
		m.list.Title = feedTitle(m.view) + " (loading...)"
		m.loading = true
		return m, m.loadFeed(false)

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(DocItem); ok {
				return m, func() tea.Msg {
					return messages.OpenDocumentMsg{
						ContentType: item.Document.ContentType,
						DocumentID:  item.Document.ID,
					}
				}
			}
		case "R", "ctrl+r":
			m.loading = true
			m.list.Title = feedTitle(m.view) + " (refreshing...)"
			return m, m.loadFeed(true)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the feed list.
func (m Model) View() string {
	return m.list.View()
}

// FeedView returns the current feed view.
func (m Model) FeedView() api.FeedView {
	return m.view
}

func (m Model) loadFeed(force bool) tea.Cmd {
	view := m.view
	client := m.client
	db := m.cache
	cfg := m.cfg

	return func() tea.Msg {
		if force {
			db.InvalidateFeedList(string(view))
		} else {
			refs, fresh, _ := db.GetFeedList(string(view), cfg.FeedTTL)
			if fresh && len(refs) > 0 {
				if docs, ok := loadFromCache(refs, db, cfg); ok {
					return messages.FeedLoadedMsg{View: view, Docs: docs}
				}
			}
		}
		return fetchAndCache(view, client, db, cfg)
	}
}

// loadFromCache hydrates a feed from cached documents. Reports false when
// any document is missing so the caller falls back to the network.
func loadFromCache(refs []api.DocRef, db *cache.DB, cfg config.Config) ([]*api.Document, bool) {
	docs := make([]*api.Document, 0, len(refs))
	for _, ref := range refs {
		doc, _, err := db.GetDocument(ref.ContentType, ref.ID, cfg.FeedTTL)
		if err != nil || doc == nil {
			return nil, false
		}
		docs = append(docs, doc)
	}
	return docs, true
}

func fetchAndCache(view api.FeedView, client *api.Client, db *cache.DB, cfg config.Config) messages.FeedLoadedMsg {
	ctx := context.Background()
	fetched, err := client.FetchFeed(ctx, view, 1, cfg.FeedPageSize)
	if err != nil {
		// Fall back to stale cache if the network is down.
		refs, _, _ := db.GetFeedList(string(view), cfg.FeedTTL)
		if docs, ok := loadFromCache(refs, db, cfg); ok {
			return messages.FeedLoadedMsg{View: view, Docs: docs}
		}
		return messages.FeedLoadedMsg{View: view, Err: err}
	}

	refs := make([]api.DocRef, 0, len(fetched))
	docs := make([]*api.Document, 0, len(fetched))
	for i := range fetched {
		doc := &fetched[i]
		refs = append(refs, api.DocRef{ContentType: doc.ContentType, ID: doc.ID})
		docs = append(docs, doc)
		db.PutDocument(doc)
	}
	db.PutFeedList(string(view), refs)
	return messages.FeedLoadedMsg{View: view, Docs: docs}
}

func feedTitle(view api.FeedView) string {
	switch view {
	case api.FeedTrending:
		return "Trending"
	case api.FeedLatest:
		return "Latest"
	case api.FeedBounties:
		return "Bounties"
	case api.FeedGrants:
		return "Grants"
	case api.FeedReviews:
		return "Peer Reviews"
	default:
		return "ResearchHub"
	}
}
