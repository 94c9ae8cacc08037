package feedlist

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	descStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#828282"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#3971FF"))

	selectedDescStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#CCCCCC"))

	indexStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3971FF")).
			Width(4).
			Align(lipgloss.Right)

	grantBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFD700")).
			Bold(true)

	bountyBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#000000")).
				Background(lipgloss.Color("#32CD32")).
				Bold(true)

	discussionBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#CCCCCC")).
				Background(lipgloss.Color("#555555"))

	openAccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#32CD32")).
			Bold(true)
)

type Delegate struct{}

func (d Delegate) Height() int                             { return 2 }
func (d Delegate) Spacing() int                            { return 1 }
func (d Delegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d Delegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(DocItem)
	if !ok {
		return
	}

	idx := indexStyle.Render(fmt.Sprintf("%d.", item.Index+1))

	var title, desc string
	if index == m.Index() {
		title = selectedTitleStyle.Render(item.Title())
		desc = selectedDescStyle.Render(item.Description())
	} else {
		title = titleStyle.Render(item.Title())
		desc = descStyle.Render(item.Description())
	}

	if badge := docTypeBadge(item.Document.DocumentType); badge != "" {
		title += " " + badge
	}
	if item.Document.IsOpenAccess {
		title += " " + openAccessStyle.Render("[OA]")
	}

	fmt.Fprintf(w, "%s %s\n   %s", idx, title, desc)
}

// docTypeBadge marks the non-paper document types so grants and bounty
// posts stand out in a mixed feed. Plain papers carry no badge.
func docTypeBadge(docType string) string {
	switch docType {
	case "GRANT":
		return grantBadgeStyle.Render(" GRANT ")
	case "BOUNTY":
		return bountyBadgeStyle.Render(" BOUNTY ")
	case "DISCUSSION", "QUESTION":
		return discussionBadgeStyle.Render(" DISCUSSION ")
	default:
		return ""
	}
}
