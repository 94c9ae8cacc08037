package notifications

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/margin-sh/margin/internal/cache"
	"github.com/margin-sh/margin/internal/render"
	"github.com/margin-sh/margin/internal/ui/messages"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#3971FF")).Bold(true).Padding(1, 0)
	notifStyle     = lipgloss.NewStyle().Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Background(lipgloss.Color("#333333")).Padding(0, 1)
	authorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3971FF")).Bold(true)
	unreadDotStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	previewStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
)

// Model is the notifications view.
type Model struct {
	notifications []cache.Notification
	selectedIdx   int
	db            *cache.DB
	width         int
	height        int
}

// New creates a new notifications model.
func New(db *cache.DB) Model {
	return Model{db: db}
}

// SetSize sets the viewport dimensions.
func (m *Model) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Load refreshes the notification list from the database.
func (m *Model) Load() {
	m.notifications, _ = m.db.Notifications()
	if m.selectedIdx >= len(m.notifications) {
		m.selectedIdx = 0
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			if m.selectedIdx < len(m.notifications)-1 {
				m.selectedIdx++
			}
		case "k", "up":
			if m.selectedIdx > 0 {
				m.selectedIdx--
			}
		case "a":
			m.db.MarkAllNotificationsRead()
			for i := range m.notifications {
				m.notifications[i].Read = true
			}
		case "enter":
			if m.selectedIdx >= 0 && m.selectedIdx < len(m.notifications) {
				n := m.notifications[m.selectedIdx]
				m.db.MarkNotificationRead(n.ID)
				m.notifications[m.selectedIdx].Read = true
				if n.DocumentID != 0 {
					return m, func() tea.Msg {
						return messages.OpenDocumentMsg{
							ContentType: n.ContentType,
							DocumentID:  n.DocumentID,
						}
					}
				}
			}
		}
	}
	return m, nil
}

// View renders the notifications list.
func (m Model) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Notifications"))
	sb.WriteString("\n")

	if len(m.notifications) == 0 {
		sb.WriteString("\n  No notifications yet. Watch a comment with w to get reply alerts.\n")
		return sb.String()
	}

	for i, n := range m.notifications {
		var line strings.Builder

		if !n.Read {
			line.WriteString(unreadDotStyle.Render("* "))
		} else {
			line.WriteString("  ")
		}

		line.WriteString(authorStyle.Render(n.Author))
		line.WriteString(metaStyle.Render(fmt.Sprintf(" replied %s", render.TimeAgo(n.CreatedAt))))
		line.WriteString("\n")
		if n.Preview != "" {
			preview := n.Preview
			if len(preview) > 80 {
				preview = preview[:80] + "..."
			}
			line.WriteString("  " + previewStyle.Render(preview))
		}

		entry := line.String()
		if i == m.selectedIdx {
			entry = selectedStyle.Render(entry)
		} else {
			entry = notifStyle.Render(entry)
		}
		sb.WriteString(entry + "\n")
	}

	sb.WriteString("\n" + metaStyle.Render("enter:open thread  a:mark all read  esc:back"))
	return sb.String()
}

// UnreadCount returns the number of unread notifications.
func (m Model) UnreadCount() int {
	count := 0
	for _, n := range m.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}
