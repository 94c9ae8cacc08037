package comments

import "context"

// FetchRequest asks for one page of top-level comments on a document.
type FetchRequest struct {
	DocumentID  int64
	ContentType string
	Sort        Sort
	Filter      Kind // empty = all kinds
	Page        int
	PageSize    int
}

// RepliesRequest asks for one page of replies under a comment.
type RepliesRequest struct {
	CommentID   int64
	DocumentID  int64
	ContentType string
	Page        int
	PageSize    int
	Sort        Sort
}

// FetchResult is a page of comments plus the server-side total.
type FetchResult struct {
	Comments []*Comment
	Count    int
}

// CreateRequest creates a top-level comment or, with ParentID set, a reply.
type CreateRequest struct {
	DocumentID  int64
	ContentType string
	Content     Content
	Kind        Kind
	ParentID    int64 // 0 for top-level
	ReviewScore int   // 1-10, reviews only
}

// UpdateRequest edits an existing comment's content.
type UpdateRequest struct {
	CommentID   int64
	DocumentID  int64
	ContentType string
	Content     Content
}

// DeleteRequest removes a comment.
type DeleteRequest struct {
	CommentID   int64
	DocumentID  int64
	ContentType string
}

// VoteRequest casts or clears the viewer's vote on a comment.
type VoteRequest struct {
	CommentID   int64
	DocumentID  int64
	ContentType string
	Vote        Vote
}

// Service is the remote comment API the store talks to. The store treats
// it as an opaque boundary returning normalized comments; transport,
// retries, and wire format live behind it.
type Service interface {
	FetchComments(ctx context.Context, req FetchRequest) (FetchResult, error)
	FetchReplies(ctx context.Context, req RepliesRequest) (FetchResult, error)
	Create(ctx context.Context, req CreateRequest) (*Comment, error)
	Update(ctx context.Context, req UpdateRequest) (*Comment, error)
	Delete(ctx context.Context, req DeleteRequest) error
	Vote(ctx context.Context, req VoteRequest) error
}
