package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/margin-sh/margin/internal/comments"
)

// Client implements comments.Service.
var _ comments.Service = (*Client)(nil)

// FetchComments loads one page of top-level comments on a document.
func (c *Client) FetchComments(ctx context.Context, req comments.FetchRequest) (comments.FetchResult, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(req.Page))
	q.Set("page_size", fmt.Sprint(req.PageSize))
	q.Set("ordering", string(req.Sort))
	q.Set("parent__isnull", "true")
	if req.Filter != "" {
		q.Set("filtering", string(req.Filter))
	}
	u := fmt.Sprintf("%s/%s/%d/comments/?%s", c.base, req.ContentType, req.DocumentID, q.Encode())

	var resp pagedResponse[commentDTO]
	if err := c.get(ctx, u, &resp); err != nil {
		return comments.FetchResult{}, err
	}
	return toResult(resp), nil
}

// FetchReplies loads one page of replies under a comment.
func (c *Client) FetchReplies(ctx context.Context, req comments.RepliesRequest) (comments.FetchResult, error) {
	q := url.Values{}
	q.Set("page", fmt.Sprint(req.Page))
	q.Set("page_size", fmt.Sprint(req.PageSize))
	q.Set("ordering", string(req.Sort))
	u := fmt.Sprintf("%s/%s/%d/comments/%d/replies/?%s",
		c.base, req.ContentType, req.DocumentID, req.CommentID, q.Encode())

	var resp pagedResponse[commentDTO]
	if err := c.get(ctx, u, &resp); err != nil {
		return comments.FetchResult{}, err
	}
	return toResult(resp), nil
}

func toResult(resp pagedResponse[commentDTO]) comments.FetchResult {
	out := comments.FetchResult{Count: resp.Count}
	for _, d := range resp.Results {
		if d.ID == 0 {
			continue // one bad record must not blank the page
		}
		out.Comments = append(out.Comments, d.toComment())
	}
	return out
}

type createCommentBody struct {
	CommentContentJSON json.RawMessage `json:"comment_content_json"`
	CommentContentType string          `json:"comment_content_type"`
	CommentType        string          `json:"comment_type"`
	ParentID           int64           `json:"parent_id,omitempty"`
	ReviewScore        int             `json:"review_score,omitempty"`
}

// Create posts a new comment (or reply, when ParentID is set) and returns
// the server's confirmed record.
func (c *Client) Create(ctx context.Context, req comments.CreateRequest) (*comments.Comment, error) {
	u := fmt.Sprintf("%s/%s/%d/comments/create_rh_comment/", c.base, req.ContentType, req.DocumentID)
	body := createCommentBody{
		CommentContentJSON: req.Content.Raw,
		CommentContentType: string(req.Content.Format),
		CommentType:        string(req.Kind),
		ParentID:           req.ParentID,
		ReviewScore:        req.ReviewScore,
	}
	var dto commentDTO
	if err := c.post(ctx, u, body, &dto); err != nil {
		return nil, err
	}
	if dto.ID == 0 {
		return nil, fmt.Errorf("create comment: server returned no id")
	}
	return dto.toComment(), nil
}

type updateCommentBody struct {
	CommentContentJSON json.RawMessage `json:"comment_content_json"`
	CommentContentType string          `json:"comment_content_type"`
}

// Update edits a comment's content and returns the confirmed record.
func (c *Client) Update(ctx context.Context, req comments.UpdateRequest) (*comments.Comment, error) {
	u := fmt.Sprintf("%s/%s/%d/comments/%d/update_rh_comment/",
		c.base, req.ContentType, req.DocumentID, req.CommentID)
	body := updateCommentBody{
		CommentContentJSON: req.Content.Raw,
		CommentContentType: string(req.Content.Format),
	}
	var dto commentDTO
	if err := c.patch(ctx, u, body, &dto); err != nil {
		return nil, err
	}
	if dto.ID == 0 {
		return nil, fmt.Errorf("update comment %d: server returned no id", req.CommentID)
	}
	return dto.toComment(), nil
}

// Delete removes a comment.
func (c *Client) Delete(ctx context.Context, req comments.DeleteRequest) error {
	u := fmt.Sprintf("%s/%s/%d/comments/%d/", c.base, req.ContentType, req.DocumentID, req.CommentID)
	return c.do(ctx, http.MethodDelete, u, nil, nil)
}

// Vote casts or clears the viewer's vote on a comment.
func (c *Client) Vote(ctx context.Context, req comments.VoteRequest) error {
	action := "neutralvote"
	if req.Vote == comments.VoteUp {
		action = "upvote"
	}
	u := fmt.Sprintf("%s/%s/%d/comments/%d/%s/", c.base, req.ContentType, req.DocumentID, req.CommentID, action)
	return c.post(ctx, u, nil, nil)
}
