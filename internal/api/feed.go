package api

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FeedView selects which slice of the unified document feed to browse.
type FeedView string

const (
	FeedTrending FeedView = "hot"
	FeedLatest   FeedView = "latest"
	FeedBounties FeedView = "bounty"
	FeedGrants   FeedView = "grant"
	FeedReviews  FeedView = "review"
)

// FetchFeed loads one page of the unified document feed.
func (c *Client) FetchFeed(ctx context.Context, view FeedView, page, pageSize int) ([]Document, error) {
	q := url.Values{}
	q.Set("type", string(view))
	q.Set("page", fmt.Sprint(page))
	q.Set("page_size", fmt.Sprint(pageSize))
	u := fmt.Sprintf("%s/researchhub_unified_document/get_unified_documents/?%s", c.base, q.Encode())

	var resp pagedResponse[documentDTO]
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetching %s feed: %w", view, err)
	}
	docs := make([]Document, 0, len(resp.Results))
	for _, d := range resp.Results {
		if d.ID == 0 {
			continue
		}
		docs = append(docs, d.toDocument())
	}
	return docs, nil
}

// FetchDocument loads a single document by content type and ID.
func (c *Client) FetchDocument(ctx context.Context, contentType string, id int64) (*Document, error) {
	u := fmt.Sprintf("%s/%s/%d/", c.base, contentType, id)
	var dto documentDTO
	if err := c.get(ctx, u, &dto); err != nil {
		return nil, err
	}
	doc := dto.toDocument()
	if doc.ID == 0 {
		doc.ID = id
	}
	doc.ContentType = contentType
	return &doc, nil
}

// DocRef names a document to hydrate.
type DocRef struct {
	ContentType string
	ID          int64
}

// BatchFetchDocuments hydrates documents concurrently with a concurrency
// limit. Results keep input order; individual failures leave a nil slot.
func (c *Client) BatchFetchDocuments(ctx context.Context, refs []DocRef) ([]*Document, error) {
	results := make([]*Document, len(refs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			doc, err := c.FetchDocument(ctx, ref.ContentType, ref.ID)
			if err != nil {
				// Non-fatal: individual documents can fail.
				return nil
			}
			mu.Lock()
			results[i] = doc
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
