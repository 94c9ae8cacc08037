// Package compose is the comment composer, shared by new comments,
// replies, reviews, and edits.
package compose

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/margin-sh/margin/internal/cache"
	"github.com/margin-sh/margin/internal/comments"
	"github.com/margin-sh/margin/internal/ui/messages"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3971FF")).Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#828282"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	ratingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
)

// Model is the composer view.
type Model struct {
	textarea textarea.Model
	store    *comments.Store
	db       *cache.DB

	documentID  int64
	contentType string
	parentID    comments.ID
	editID      comments.ID
	kind        comments.Kind
	localID     comments.ID
	rating      int

	err        string
	submitting bool
	width      int
	height     int
}

// New creates a composer from an open request. The store must be the one
// mounted on the same document.
func New(msg messages.OpenComposeMsg, store *comments.Store, db *cache.DB) Model {
	ta := textarea.New()
	ta.Placeholder = placeholder(msg)
	ta.SetValue(msg.Initial)
	ta.Focus()
	ta.SetWidth(80)
	ta.SetHeight(10)

	rating := 0
	if msg.Kind == comments.KindReview {
		rating = 7
	}

	return Model{
		textarea:    ta,
		store:       store,
		db:          db,
		documentID:  msg.DocumentID,
		contentType: msg.ContentType,
		parentID:    msg.ParentID,
		editID:      msg.EditID,
		kind:        msg.Kind,
		localID:     comments.NewLocalID(),
		rating:      rating,
	}
}

func placeholder(msg messages.OpenComposeMsg) string {
	switch {
	case !msg.EditID.IsZero():
		return "Edit your comment..."
	case !msg.ParentID.IsZero():
		return "Write your reply..."
	case msg.Kind == comments.KindReview:
		return "Write your peer review..."
	default:
		return "Join the discussion..."
	}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
	tw := w - 4
	if tw > 100 {
		tw = 100
	}
	m.textarea.SetWidth(tw)
	th := h - 10
	if th < 5 {
		th = 5
	}
	m.textarea.SetHeight(th)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.saveDraft()
			m.store.SetEditingID(comments.ID{})
			m.store.SetReplyingToID(comments.ID{})
			return m, func() tea.Msg { return messages.GoBackMsg{} }

		case "shift+up":
			if m.kind == comments.KindReview && m.rating < 10 {
				m.rating++
			}
			return m, nil

		case "shift+down":
			if m.kind == comments.KindReview && m.rating > 1 {
				m.rating--
			}
			return m, nil

		case "ctrl+s":
			text := strings.TrimSpace(m.textarea.Value())
			if text == "" {
				m.err = "Comment cannot be empty"
				return m, nil
			}
			if m.submitting {
				return m, nil
			}
			m.submitting = true
			m.err = ""
			return m, m.submit(text)
		}

	case messages.ComposeResultMsg:
		m.submitting = false
		if msg.Err != nil {
			m.err = msg.Err.Error()
			return m, nil
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) submit(text string) tea.Cmd {
	store := m.store
	db := m.db
	docID := m.documentID
	contentType := m.contentType
	parentID := m.parentID
	editID := m.editID
	kind := m.kind
	localID := m.localID
	rating := m.rating
	content := comments.PlainContent(text)

	return func() tea.Msg {
		ctx := context.Background()
		result := messages.ComposeResultMsg{
			DocumentID: docID,
			ParentID:   parentID,
			EditID:     editID,
		}

		defer func() {
			if result.Err == nil {
				store.SetEditingID(comments.ID{})
				store.SetReplyingToID(comments.ID{})
			}
		}()

		switch {
		case !editID.IsZero():
			if !store.Update(ctx, editID, content) {
				result.Err = store.Err()
			}
			// Edits never touch the draft table.
			return result
		case !parentID.IsZero():
			// The parent may have been a placeholder that got confirmed
			// while typing; follow its draft over to the server key.
			resolved := store.ResolveID(parentID)
			if resolved != parentID {
				db.RekeyDraft(docID, contentType, parentID.String(), resolved.String())
				parentID = resolved
			}
			if store.CreateReply(ctx, parentID, content, comments.CreateOpts{LocalID: localID}) == nil {
				result.Err = store.Err()
				return result
			}
		default:
			opts := comments.CreateOpts{Kind: kind, LocalID: localID}
			if kind == comments.KindReview {
				opts.ReviewScore = rating
			}
			if store.Create(ctx, content, opts) == nil {
				result.Err = store.Err()
				return result
			}
		}

		db.DeleteDraft(docID, contentType, draftKey(parentID))
		return result
	}
}

func (m Model) saveDraft() {
	if !m.editID.IsZero() {
		return
	}
	m.db.PutDraft(m.documentID, m.contentType, draftKey(m.parentID), m.textarea.Value())
}

func draftKey(parentID comments.ID) string {
	if parentID.IsZero() {
		return ""
	}
	return parentID.String()
}

// View renders the composer.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render(m.title()))
	sb.WriteString("\n")
	if m.kind == comments.KindReview && m.editID.IsZero() {
		sb.WriteString(ratingStyle.Render(fmt.Sprintf("Rating: %d/10", m.rating)))
		sb.WriteString(hintStyle.Render("  (shift+up/down to adjust)"))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n\n")

	if m.err != "" {
		sb.WriteString(errorStyle.Render(m.err))
		sb.WriteString("\n")
	}

	if m.submitting {
		sb.WriteString("Posting...")
	} else {
		sb.WriteString(hintStyle.Render("Ctrl+S to post | Esc to cancel (draft is kept)"))
	}

	content := sb.String()
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) title() string {
	switch {
	case !m.editID.IsZero():
		return "Edit Comment"
	case !m.parentID.IsZero():
		return "Reply"
	case m.kind == comments.KindReview:
		return "Peer Review"
	default:
		return "New Comment"
	}
}
