// Package comments holds the client-side state for a document's discussion
// thread: the in-memory comment forest, optimistic mutations with rollback,
// reconciliation of locally created comments with server truth, reply
// pagination, and the event bus that keeps multiple mounted views in sync.
package comments

import (
	"encoding/json"
	"time"
)

// Kind is the comment variant as reported by the platform.
type Kind string

const (
	KindComment      Kind = "GENERIC_COMMENT"
	KindReview       Kind = "REVIEW"
	KindBounty       Kind = "BOUNTY"
	KindAuthorUpdate Kind = "AUTHOR_UPDATE"
)

// Vote is the viewer's vote on a comment. Only upvote/neutral is modeled;
// the platform has no comment downvotes.
type Vote string

const (
	VoteNeutral Vote = "NEUTRAL"
	VoteUp      Vote = "UPVOTE"
)

// Sort orders for a thread.
type Sort string

const (
	SortBest   Sort = "BEST"
	SortNewest Sort = "CREATED_DATE"
	SortOldest Sort = "OLDEST"
	SortTop    Sort = "TOP"
)

// ContentFormat tags the rich-text payload format.
type ContentFormat string

const (
	FormatQuill  ContentFormat = "QUILL_EDITOR"
	FormatTipTap ContentFormat = "TIPTAP"
)

// Content is an opaque rich-text payload. Raw is the serialized editor
// document (Quill delta ops or TipTap/HTML); rendering lives elsewhere.
type Content struct {
	Format ContentFormat
	Raw    json.RawMessage
}

// PlainContent wraps a plain string as a Quill delta with a single insert.
func PlainContent(text string) Content {
	raw, _ := json.Marshal(map[string]any{
		"ops": []map[string]any{{"insert": text + "\n"}},
	})
	return Content{Format: FormatQuill, Raw: raw}
}

// Author is a denormalized snapshot of the comment's author, captured at
// creation time and replaced wholesale when server data arrives.
type Author struct {
	ID        int64
	Name      string
	Headline  string
	AvatarURL string
}

// Bounty carries the bounty fields attached to a KindBounty comment.
type Bounty struct {
	Amount         float64
	AwardedAmount  float64
	ExpirationDate time.Time
}

// Open reports whether the bounty is still open: not expired and not yet
// awarded. A zero expiration date counts as unexpired.
func (b Bounty) Open(now time.Time) bool {
	if b.AwardedAmount > 0 {
		return false
	}
	return b.ExpirationDate.IsZero() || b.ExpirationDate.After(now)
}

// Meta is client-side reconciliation bookkeeping. It never comes from the
// server and is dropped when the comment is replaced with server truth.
type Meta struct {
	// Pending marks a locally created comment awaiting first confirmation.
	Pending bool
	// PendingEdit marks a confirmed comment with an optimistic edit applied.
	PendingEdit bool
	// OriginalContent holds the pre-edit content for rollback.
	OriginalContent *Content
}

// Comment is one node in the thread forest. Replies are owned by their
// parent; there are no back-pointers.
type Comment struct {
	ID         ID
	Author     Author
	Content    Content
	Score      int
	UserVote   Vote
	Kind       Kind
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Replies    []*Comment
	// ChildCount is the server-declared total number of children, which may
	// exceed len(Replies) until all pages are loaded.
	ChildCount int
	IsRemoved  bool
	IsPublic   bool

	Bounty      *Bounty
	ReviewScore int
	TipTotal    float64

	Meta *Meta
}

// FullyLoaded reports whether every declared child has been fetched.
func (c *Comment) FullyLoaded() bool {
	return len(c.Replies) >= c.ChildCount
}

// clone returns a shallow copy of the comment with its own replies slice.
// The replies still point at the original children.
func (c *Comment) clone() *Comment {
	cp := *c
	cp.Replies = make([]*Comment, len(c.Replies))
	copy(cp.Replies, c.Replies)
	return &cp
}
