package api

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/margin-sh/margin/internal/comments"
)

// Wire DTOs for the ResearchHub JSON API. Conversion to the domain types
// is isolated here; a malformed record converts to a zero-ish comment and
// is skipped by callers rather than failing the whole page.

type pagedResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type authorDTO struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Headline     string `json:"headline"`
	ProfileImage string `json:"profile_image"`
}

type userDTO struct {
	ID            int64      `json:"id"`
	AuthorProfile *authorDTO `json:"author_profile"`
}

type voteDTO struct {
	VoteType int `json:"vote_type"` // 1 = upvote, 0 = neutral
}

type bountyDTO struct {
	Amount         float64 `json:"amount"`
	AwardedAmount  float64 `json:"awarded_amount"`
	ExpirationDate string  `json:"expiration_date"`
	Status         string  `json:"status"`
}

type reviewDTO struct {
	Score int `json:"score"`
}

type purchaseDTO struct {
	Amount string `json:"amount"`
}

type commentDTO struct {
	ID                 int64           `json:"id"`
	CommentContentJSON json.RawMessage `json:"comment_content_json"`
	CommentContentType string          `json:"comment_content_type"`
	CommentType        string          `json:"comment_type"`
	CreatedBy          *userDTO        `json:"created_by"`
	CreatedDate        string          `json:"created_date"`
	UpdatedDate        string          `json:"updated_date"`
	Score              int             `json:"score"`
	UserVote           *voteDTO        `json:"user_vote"`
	Children           []commentDTO    `json:"children"`
	ChildrenCount      int             `json:"children_count"`
	IsPublic           bool            `json:"is_public"`
	IsRemoved          bool            `json:"is_removed"`
	Bounties           []bountyDTO     `json:"bounties"`
	Review             *reviewDTO      `json:"review"`
	Purchases          []purchaseDTO   `json:"purchases"`
}

func parseAPITime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000000"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// toComment converts a wire comment to the domain type, children included.
func (d commentDTO) toComment() *comments.Comment {
	c := &comments.Comment{
		ID: comments.RemoteID(d.ID),
		Content: comments.Content{
			Format: comments.ContentFormat(d.CommentContentType),
			Raw:    d.CommentContentJSON,
		},
		Score:      d.Score,
		UserVote:   comments.VoteNeutral,
		Kind:       commentKind(d.CommentType),
		CreatedAt:  parseAPITime(d.CreatedDate),
		UpdatedAt:  parseAPITime(d.UpdatedDate),
		ChildCount: d.ChildrenCount,
		IsPublic:   d.IsPublic,
		IsRemoved:  d.IsRemoved,
	}
	if c.Content.Format == "" {
		c.Content.Format = comments.FormatQuill
	}
	if d.UserVote != nil && d.UserVote.VoteType == 1 {
		c.UserVote = comments.VoteUp
	}
	if d.CreatedBy != nil {
		c.Author = comments.Author{ID: d.CreatedBy.ID}
		if p := d.CreatedBy.AuthorProfile; p != nil {
			c.Author.Name = strings.TrimSpace(p.FirstName + " " + p.LastName)
			c.Author.Headline = p.Headline
			c.Author.AvatarURL = p.ProfileImage
		}
	}
	if len(d.Bounties) > 0 {
		b := d.Bounties[0]
		c.Bounty = &comments.Bounty{
			Amount:         b.Amount,
			AwardedAmount:  b.AwardedAmount,
			ExpirationDate: parseAPITime(b.ExpirationDate),
		}
	}
	if d.Review != nil {
		c.ReviewScore = d.Review.Score
	}
	for _, p := range d.Purchases {
		c.TipTotal += parseAmount(p.Amount)
	}
	for _, child := range d.Children {
		if child.ID == 0 {
			continue // skip malformed records, keep the rest of the page
		}
		c.Replies = append(c.Replies, child.toComment())
	}
	if c.ChildCount < len(c.Replies) {
		c.ChildCount = len(c.Replies)
	}
	return c
}

func parseAmount(s string) float64 {
	var f float64
	if s == "" {
		return 0
	}
	if err := json.Unmarshal([]byte(s), &f); err != nil {
		return 0
	}
	return f
}

func commentKind(s string) comments.Kind {
	switch s {
	case "REVIEW":
		return comments.KindReview
	case "BOUNTY":
		return comments.KindBounty
	case "AUTHOR_UPDATE":
		return comments.KindAuthorUpdate
	default:
		return comments.KindComment
	}
}

// Document is one entry of the unified feed (paper, post, or grant).
type Document struct {
	ID            int64
	ContentType   string // "paper" or "researchhubpost"
	Title         string
	Slug          string
	Abstract      string
	Authors       []string
	Hub           string
	Score         int
	CommentCount  int
	CreatedAt     time.Time
	IsOpenAccess  bool
	DocumentType  string // PAPER, DISCUSSION, GRANT, BOUNTY, ...
}

type hubDTO struct {
	Name string `json:"name"`
}

type documentDTO struct {
	ID              int64       `json:"id"`
	ContentType     string      `json:"content_type"`
	DocumentType    string      `json:"document_type"`
	Title           string      `json:"title"`
	Slug            string      `json:"slug"`
	Abstract        string      `json:"abstract"`
	Authors         []authorDTO `json:"authors"`
	Hub             *hubDTO     `json:"hub"`
	Score           int         `json:"score"`
	DiscussionCount int         `json:"discussion_count"`
	CreatedDate     string      `json:"created_date"`
	IsOpenAccess    bool        `json:"is_open_access"`
}

func (d documentDTO) toDocument() Document {
	doc := Document{
		ID:           d.ID,
		ContentType:  d.ContentType,
		DocumentType: d.DocumentType,
		Title:        d.Title,
		Slug:         d.Slug,
		Abstract:     d.Abstract,
		Score:        d.Score,
		CommentCount: d.DiscussionCount,
		CreatedAt:    parseAPITime(d.CreatedDate),
		IsOpenAccess: d.IsOpenAccess,
	}
	if doc.ContentType == "" {
		doc.ContentType = "paper"
	}
	if d.Hub != nil {
		doc.Hub = d.Hub.Name
	}
	for _, a := range d.Authors {
		name := strings.TrimSpace(a.FirstName + " " + a.LastName)
		if name != "" {
			doc.Authors = append(doc.Authors, name)
		}
	}
	return doc
}
