package comments_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-sh/margin/internal/comments"
)

func bountyComment(id int64, b *comments.Bounty) *comments.Comment {
	node := c(id)
	node.Kind = comments.KindBounty
	node.Bounty = b
	return node
}

func TestBountyOpen(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		bounty comments.Bounty
		want   bool
	}{
		{"future expiry", comments.Bounty{Amount: 100, ExpirationDate: now.Add(time.Hour)}, true},
		{"no expiry", comments.Bounty{Amount: 100}, true},
		{"expired", comments.Bounty{Amount: 100, ExpirationDate: now.Add(-time.Hour)}, false},
		{"awarded", comments.Bounty{Amount: 100, AwardedAmount: 100, ExpirationDate: now.Add(time.Hour)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bounty.Open(now))
		})
	}
}

func TestFilteredCommentsBountyFilter(t *testing.T) {
	open := bountyComment(1, &comments.Bounty{Amount: 50, ExpirationDate: time.Now().Add(time.Hour)})
	closed := bountyComment(2, &comments.Bounty{Amount: 50, ExpirationDate: time.Now().Add(-time.Hour)})

	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{open, closed}, Count: 2}, nil
		},
	}
	s := newStore(svc, comments.Options{Filter: comments.KindBounty})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	assert.Len(t, s.FilteredComments(), 2)

	s.SetBountyFilter(comments.BountyOpen)
	got := s.FilteredComments()
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID.Remote)

	s.SetBountyFilter(comments.BountyClosed)
	got = s.FilteredComments()
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID.Remote)

	s.SetBountyFilter(comments.BountyAll)
	assert.Len(t, s.FilteredComments(), 2)
}

func TestFilteredCommentsBountyFilterWithoutKindFilter(t *testing.T) {
	// A mixed thread loaded without a server-side kind filter still
	// narrows its bounty comments; other kinds stay visible.
	open := bountyComment(1, &comments.Bounty{Amount: 50, ExpirationDate: time.Now().Add(time.Hour)})
	expired := bountyComment(2, &comments.Bounty{Amount: 50, ExpirationDate: time.Now().Add(-time.Hour)})
	plain := c(3)

	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{open, expired, plain}, Count: 3}, nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	s.SetBountyFilter(comments.BountyOpen)
	got := s.FilteredComments()
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID.Remote)
	assert.Equal(t, int64(3), got[1].ID.Remote)

	s.SetBountyFilter(comments.BountyClosed)
	got = s.FilteredComments()
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID.Remote)
	assert.Equal(t, int64(3), got[1].ID.Remote)
}

func TestFilteredCommentsPassThroughWithoutBountyFilter(t *testing.T) {
	// A non-bounty thread ignores the bounty filter entirely.
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1), c(2)}, Count: 2}, nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	s.SetBountyFilter(comments.BountyOpen)
	assert.Len(t, s.FilteredComments(), 2)
}
