package feedlist

import (
	"fmt"
	"strings"

	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/render"
)

// DocItem wraps a document for the bubbles list.
type DocItem struct {
	*api.Document
	Index int
}

func (d DocItem) Title() string {
	if d.Document.Title != "" {
		return d.Document.Title
	}
	return fmt.Sprintf("[%s]", strings.ToLower(d.Document.DocumentType))
}

func (d DocItem) Description() string {
	parts := make([]string, 0, 5)

	if d.Document.Score != 0 {
		parts = append(parts, fmt.Sprintf("%d points", d.Document.Score))
	}
	if len(d.Document.Authors) > 0 {
		authors := d.Document.Authors[0]
		if len(d.Document.Authors) > 1 {
			authors += " et al."
		}
		parts = append(parts, authors)
	}
	if !d.Document.CreatedAt.IsZero() {
		parts = append(parts, render.TimeAgo(d.Document.CreatedAt))
	}
	if d.Document.CommentCount > 0 {
		parts = append(parts, fmt.Sprintf("%d comments", d.Document.CommentCount))
	}

	desc := strings.Join(parts, " | ")
	if d.Document.Hub != "" {
		desc += "  (" + d.Document.Hub + ")"
	}
	return desc
}

func (d DocItem) FilterValue() string {
	return d.Document.Title + " " + strings.Join(d.Document.Authors, " ") + " " + d.Document.Hub
}
