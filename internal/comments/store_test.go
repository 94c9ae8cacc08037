package comments_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/margin-sh/margin/internal/comments"
)

// fakeService scripts the remote side of the store.
type fakeService struct {
	fetch   func(comments.FetchRequest) (comments.FetchResult, error)
	replies func(comments.RepliesRequest) (comments.FetchResult, error)
	create  func(comments.CreateRequest) (*comments.Comment, error)
	update  func(comments.UpdateRequest) (*comments.Comment, error)
	delete  func(comments.DeleteRequest) error
	vote    func(comments.VoteRequest) error
}

func (f *fakeService) FetchComments(_ context.Context, req comments.FetchRequest) (comments.FetchResult, error) {
	if f.fetch == nil {
		return comments.FetchResult{}, nil
	}
	return f.fetch(req)
}

func (f *fakeService) FetchReplies(_ context.Context, req comments.RepliesRequest) (comments.FetchResult, error) {
	if f.replies == nil {
		return comments.FetchResult{}, nil
	}
	return f.replies(req)
}

func (f *fakeService) Create(_ context.Context, req comments.CreateRequest) (*comments.Comment, error) {
	if f.create == nil {
		return nil, errors.New("unexpected create")
	}
	return f.create(req)
}

func (f *fakeService) Update(_ context.Context, req comments.UpdateRequest) (*comments.Comment, error) {
	if f.update == nil {
		return nil, errors.New("unexpected update")
	}
	return f.update(req)
}

func (f *fakeService) Delete(_ context.Context, req comments.DeleteRequest) error {
	if f.delete == nil {
		return errors.New("unexpected delete")
	}
	return f.delete(req)
}

func (f *fakeService) Vote(_ context.Context, req comments.VoteRequest) error {
	if f.vote == nil {
		return errors.New("unexpected vote")
	}
	return f.vote(req)
}

func newStore(svc comments.Service, opts comments.Options) *comments.Store {
	if opts.DocumentID == 0 {
		opts.DocumentID = 100
	}
	if opts.ContentType == "" {
		opts.ContentType = "paper"
	}
	return comments.New(svc, opts)
}

func TestLoadReplacesForest(t *testing.T) {
	svc := &fakeService{
		fetch: func(req comments.FetchRequest) (comments.FetchResult, error) {
			assert.Equal(t, 1, req.Page)
			return comments.FetchResult{
				Comments: []*comments.Comment{c(1), c(2)},
				Count:    8,
			}, nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))
	assert.Len(t, s.Comments(), 2)
	assert.Equal(t, 8, s.Count())
	assert.Equal(t, 1, s.Page())
	assert.False(t, s.Loading())
	assert.NoError(t, s.Err())
}

func TestLoadFailureKeepsForest(t *testing.T) {
	calls := 0
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			calls++
			if calls == 1 {
				return comments.FetchResult{Comments: []*comments.Comment{c(1)}, Count: 1}, nil
			}
			return comments.FetchResult{}, errors.New("network down")
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))
	require.Error(t, s.ForceRefresh(context.Background()))

	// Stale data beats a blank thread.
	assert.Len(t, s.Comments(), 1)
	assert.Error(t, s.Err())
}

func TestLoadMoreAppendsAndDeduplicates(t *testing.T) {
	svc := &fakeService{
		fetch: func(req comments.FetchRequest) (comments.FetchResult, error) {
			if req.Page == 1 {
				return comments.FetchResult{Comments: []*comments.Comment{c(1), c(2)}, Count: 4}, nil
			}
			// Page two overlaps with page one, as happens when a new comment
			// shifted the window.
			return comments.FetchResult{Comments: []*comments.Comment{c(2), c(3), c(4)}, Count: 4}, nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()

	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.LoadMore(context.Background()))

	forest := s.Comments()
	require.Len(t, forest, 4)
	assert.Equal(t, 2, s.Page())
}

func TestCreateConfirmThenShow(t *testing.T) {
	var s *comments.Store
	var forestDuringCall int
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1)}, Count: 1}, nil
		},
		create: func(req comments.CreateRequest) (*comments.Comment, error) {
			forestDuringCall = len(s.Comments())
			confirmed := c(501)
			confirmed.Content = req.Content
			return confirmed, nil
		},
	}
	s = newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	created := s.Create(context.Background(), comments.PlainContent("hello"), comments.CreateOpts{})
	require.NotNil(t, created)
	assert.Equal(t, int64(501), created.ID.Remote)

	// No placeholder entered the forest while the call was in flight.
	assert.Equal(t, 1, forestDuringCall)
	assert.Len(t, s.Comments(), 2)
	assert.Equal(t, 2, s.Count())
}

func TestCreateFailureLeavesForestAlone(t *testing.T) {
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1)}, Count: 1}, nil
		},
		create: func(comments.CreateRequest) (*comments.Comment, error) {
			return nil, errors.New("rejected")
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	created := s.Create(context.Background(), comments.PlainContent("hello"), comments.CreateOpts{})
	assert.Nil(t, created)
	assert.Len(t, s.Comments(), 1)
	assert.Equal(t, 1, s.Count())
	assert.Error(t, s.Err())
}

func TestCreateRecordsLocalID(t *testing.T) {
	svc := &fakeService{
		create: func(comments.CreateRequest) (*comments.Comment, error) {
			return c(501), nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()

	local := comments.NewLocalID()
	created := s.Create(context.Background(), comments.PlainContent("x"), comments.CreateOpts{LocalID: local})
	require.NotNil(t, created)

	resolved := s.ResolveID(local)
	assert.Equal(t, int64(501), resolved.Remote)
	assert.False(t, resolved.Pending())
}

func TestCreateReplyUnderParent(t *testing.T) {
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1)}, Count: 1}, nil
		},
		create: func(req comments.CreateRequest) (*comments.Comment, error) {
			assert.Equal(t, int64(1), req.ParentID)
			return c(502), nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	reply := s.CreateReply(context.Background(), comments.RemoteID(1), comments.PlainContent("re"), comments.CreateOpts{})
	require.NotNil(t, reply)

	parent := comments.Find(s.Comments(), comments.RemoteID(1))
	require.Len(t, parent.Replies, 1)
	assert.Equal(t, 1, parent.ChildCount)
	// Top-level count unchanged for replies.
	assert.Equal(t, 1, s.Count())
}

func TestCreateReplyToPendingParentRefused(t *testing.T) {
	s := newStore(&fakeService{}, comments.Options{})
	defer s.Close()

	reply := s.CreateReply(context.Background(), comments.NewLocalID(), comments.PlainContent("re"), comments.CreateOpts{})
	assert.Nil(t, reply)
	assert.ErrorIs(t, s.Err(), comments.ErrPendingParent)
}

func TestUpdateOptimisticThenConfirmed(t *testing.T) {
	confirmed := c(1)
	confirmed.Content = comments.PlainContent("after")
	confirmed.Score = 3

	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			before := c(1, c(2))
			before.Content = comments.PlainContent("before")
			return comments.FetchResult{Comments: []*comments.Comment{before}, Count: 1}, nil
		},
		update: func(req comments.UpdateRequest) (*comments.Comment, error) {
			return confirmed, nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	ok := s.Update(context.Background(), comments.RemoteID(1), comments.PlainContent("after"))
	require.True(t, ok)

	got := comments.Find(s.Comments(), comments.RemoteID(1))
	assert.Equal(t, 3, got.Score)
	assert.Nil(t, got.Meta)
	// Locally loaded replies survive reconciliation even though the
	// mutation response did not carry them.
	assert.Len(t, got.Replies, 1)
}

func TestUpdateRollbackRestoresContent(t *testing.T) {
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			before := c(1)
			before.Content = comments.PlainContent("before")
			return comments.FetchResult{Comments: []*comments.Comment{before}, Count: 1}, nil
		},
		update: func(comments.UpdateRequest) (*comments.Comment, error) {
			return nil, errors.New("rejected")
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	ok := s.Update(context.Background(), comments.RemoteID(1), comments.PlainContent("after"))
	assert.False(t, ok)

	got := comments.Find(s.Comments(), comments.RemoteID(1))
	assert.Equal(t, comments.PlainContent("before"), got.Content)
	assert.Nil(t, got.Meta)
	assert.Error(t, s.Err())
}

func TestDeleteRootDecrementsCount(t *testing.T) {
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1), c(2)}, Count: 2}, nil
		},
		delete: func(comments.DeleteRequest) error { return nil },
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.True(t, s.Delete(context.Background(), comments.RemoteID(1)))
	assert.Len(t, s.Comments(), 1)
	assert.Equal(t, 1, s.Count())
}

func TestDeleteRollbackReinsertsAtPosition(t *testing.T) {
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1), c(2), c(3)}, Count: 3}, nil
		},
		delete: func(comments.DeleteRequest) error { return errors.New("rejected") },
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	assert.False(t, s.Delete(context.Background(), comments.RemoteID(2)))

	forest := s.Comments()
	require.Len(t, forest, 3)
	assert.Equal(t, int64(2), forest[1].ID.Remote, "rollback lost the original position")
	assert.Equal(t, 3, s.Count())
}

func TestVoteAppliesDelta(t *testing.T) {
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			node := c(1)
			node.Score = 4
			return comments.FetchResult{Comments: []*comments.Comment{node}, Count: 1}, nil
		},
		vote: func(req comments.VoteRequest) error {
			assert.Equal(t, comments.VoteUp, req.Vote)
			return nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.True(t, s.Vote(context.Background(), comments.RemoteID(1), comments.VoteUp))
	got := comments.Find(s.Comments(), comments.RemoteID(1))
	assert.Equal(t, 5, got.Score)
	assert.Equal(t, comments.VoteUp, got.UserVote)

	// Clearing the vote takes the point back.
	require.True(t, s.Vote(context.Background(), comments.RemoteID(1), comments.VoteNeutral))
	got = comments.Find(s.Comments(), comments.RemoteID(1))
	assert.Equal(t, 4, got.Score)
	assert.Equal(t, comments.VoteNeutral, got.UserVote)
}

func TestVoteSameValueIsNoop(t *testing.T) {
	calls := 0
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1)}, Count: 1}, nil
		},
		vote: func(comments.VoteRequest) error {
			calls++
			return nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.True(t, s.Vote(context.Background(), comments.RemoteID(1), comments.VoteNeutral))
	assert.Zero(t, calls)
}

func TestVoteRollback(t *testing.T) {
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			node := c(1)
			node.Score = 4
			return comments.FetchResult{Comments: []*comments.Comment{node}, Count: 1}, nil
		},
		vote: func(comments.VoteRequest) error { return errors.New("rejected") },
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	assert.False(t, s.Vote(context.Background(), comments.RemoteID(1), comments.VoteUp))
	got := comments.Find(s.Comments(), comments.RemoteID(1))
	assert.Equal(t, 4, got.Score)
	assert.Equal(t, comments.VoteNeutral, got.UserVote)
}

func TestLoadMoreReplies(t *testing.T) {
	// Parent 1 declares 25 children with 10 loaded; the next page brings
	// ten more, one of which is already present.
	loaded := make([]*comments.Comment, 10)
	for i := range loaded {
		loaded[i] = c(int64(10 + i))
	}
	parent := c(1)
	parent.Replies = loaded
	parent.ChildCount = 25

	var gotReq comments.RepliesRequest
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{parent}, Count: 1}, nil
		},
		replies: func(req comments.RepliesRequest) (comments.FetchResult, error) {
			gotReq = req
			page := make([]*comments.Comment, 10)
			page[0] = c(19) // overlap
			for i := 1; i < 10; i++ {
				page[i] = c(int64(19 + i))
			}
			return comments.FetchResult{Comments: page, Count: 25}, nil
		},
	}
	s := newStore(svc, comments.Options{ReplyPageSize: 10})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.LoadMoreReplies(context.Background(), comments.RemoteID(1)))

	assert.Equal(t, 2, gotReq.Page)
	got := comments.Find(s.Comments(), comments.RemoteID(1))
	assert.Len(t, got.Replies, 19)
	assert.Equal(t, 25, got.ChildCount)

	seen := map[int64]bool{}
	for _, r := range got.Replies {
		assert.False(t, seen[r.ID.Remote], "duplicate reply %d", r.ID.Remote)
		seen[r.ID.Remote] = true
	}
}

func TestLoadMoreRepliesFullyLoadedNoop(t *testing.T) {
	calls := 0
	svc := &fakeService{
		fetch: func(comments.FetchRequest) (comments.FetchResult, error) {
			return comments.FetchResult{Comments: []*comments.Comment{c(1, c(2))}, Count: 1}, nil
		},
		replies: func(comments.RepliesRequest) (comments.FetchResult, error) {
			calls++
			return comments.FetchResult{}, nil
		},
	}
	s := newStore(svc, comments.Options{})
	defer s.Close()
	require.NoError(t, s.Load(context.Background()))

	require.NoError(t, s.LoadMoreReplies(context.Background(), comments.RemoteID(1)))
	assert.Zero(t, calls)
}

func TestLoadMoreRepliesUnknownComment(t *testing.T) {
	s := newStore(&fakeService{}, comments.Options{})
	defer s.Close()

	err := s.LoadMoreReplies(context.Background(), comments.RemoteID(9))
	assert.ErrorIs(t, err, comments.ErrNotFound)
}

func TestEditingAndReplyFocusExclusive(t *testing.T) {
	s := newStore(&fakeService{}, comments.Options{})
	defer s.Close()

	s.SetEditingID(comments.RemoteID(1))
	assert.Equal(t, comments.RemoteID(1), s.EditingID())

	s.SetReplyingToID(comments.RemoteID(2))
	assert.True(t, s.EditingID().IsZero())
	assert.Equal(t, comments.RemoteID(2), s.ReplyingToID())

	s.SetEditingID(comments.RemoteID(3))
	assert.True(t, s.ReplyingToID().IsZero())
}

func TestBusSyncsTwoStores(t *testing.T) {
	bus := comments.NewBus(nil)

	fetchOne := func(comments.FetchRequest) (comments.FetchResult, error) {
		node := c(1)
		node.Score = 2
		return comments.FetchResult{Comments: []*comments.Comment{node}, Count: 1}, nil
	}

	svcA := &fakeService{
		fetch: fetchOne,
		create: func(comments.CreateRequest) (*comments.Comment, error) {
			return c(501), nil
		},
		vote:   func(comments.VoteRequest) error { return nil },
		delete: func(comments.DeleteRequest) error { return nil },
	}
	a := newStore(svcA, comments.Options{Bus: bus})
	defer a.Close()
	b := newStore(&fakeService{fetch: fetchOne}, comments.Options{Bus: bus})
	defer b.Close()

	require.NoError(t, a.Load(context.Background()))
	require.NoError(t, b.Load(context.Background()))

	// Create in A shows up in B exactly once.
	require.NotNil(t, a.Create(context.Background(), comments.PlainContent("x"), comments.CreateOpts{}))
	assert.Len(t, b.Comments(), 2)
	assert.Equal(t, 2, b.Count())
	// And not twice in A (its own event is skipped by origin).
	assert.Len(t, a.Comments(), 2)

	// Vote in A reconciles B's copy.
	require.True(t, a.Vote(context.Background(), comments.RemoteID(1), comments.VoteUp))
	gotB := comments.Find(b.Comments(), comments.RemoteID(1))
	assert.Equal(t, 3, gotB.Score)

	// Delete in A removes from B.
	require.True(t, a.Delete(context.Background(), comments.RemoteID(501)))
	assert.Len(t, b.Comments(), 1)
	assert.Equal(t, 1, b.Count())
}

func TestBusScopedToDocument(t *testing.T) {
	bus := comments.NewBus(nil)

	svcA := &fakeService{
		create: func(comments.CreateRequest) (*comments.Comment, error) { return c(501), nil },
	}
	a := newStore(svcA, comments.Options{DocumentID: 100, Bus: bus})
	defer a.Close()
	other := newStore(&fakeService{}, comments.Options{DocumentID: 200, Bus: bus})
	defer other.Close()

	require.NotNil(t, a.Create(context.Background(), comments.PlainContent("x"), comments.CreateOpts{}))
	assert.Empty(t, other.Comments(), "event leaked across documents")
}

func TestClosedStoreIgnoresEvents(t *testing.T) {
	bus := comments.NewBus(nil)

	a := newStore(&fakeService{
		create: func(comments.CreateRequest) (*comments.Comment, error) { return c(501), nil },
	}, comments.Options{Bus: bus})
	defer a.Close()
	b := newStore(&fakeService{}, comments.Options{Bus: bus})

	b.Close()
	require.NotNil(t, a.Create(context.Background(), comments.PlainContent("x"), comments.CreateOpts{}))
	assert.Empty(t, b.Comments())
}
