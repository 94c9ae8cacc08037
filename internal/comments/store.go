package comments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means the targeted comment is absent from the forest.
	ErrNotFound = errors.New("comment not found in thread")
	// ErrPendingParent means the target is a local placeholder whose server
	// ID is not known yet.
	ErrPendingParent = errors.New("parent comment not yet confirmed")
)

const (
	defaultPageSize      = 15
	defaultReplyPageSize = 10
)

// Options configures a Store for one mounted thread.
type Options struct {
	DocumentID  int64
	ContentType string // "paper", "researchhubpost", ...
	// Viewer is the author snapshot stamped onto optimistic mutations.
	Viewer Author
	// Bus, when set, keeps this store in sync with other mounts of the
	// same document. Optional.
	Bus    *Bus
	Logger *zap.Logger

	Sort          Sort
	Filter        Kind // empty = all kinds
	PageSize      int
	ReplyPageSize int
}

// Store owns the comment forest for a single document view. All public
// methods are safe for concurrent use; the forest itself is only swapped
// under the store's lock, and every tree transform is persistent, so
// readers holding a Comments() result keep a consistent snapshot.
type Store struct {
	svc    Service
	bus    *Bus
	sub    *Subscription
	log    *zap.Logger
	ids    *IDMap
	origin string

	documentID  int64
	contentType string
	viewer      Author

	mu           sync.Mutex
	forest       []*Comment
	count        int
	page         int
	sort         Sort
	filter       Kind
	bountyFilter BountyFilter
	loading      bool
	err          error
	editingID    ID
	replyingToID ID

	pageSize      int
	replyPageSize int

	// Fetch responses are stamped with a monotonic sequence so a slow page
	// fetch cannot overwrite state written by a newer one.
	fetchSeq   uint64
	appliedSeq uint64

	replySeq   uint64
	replyLoads map[ID]replyLoad

	closed bool
}

type replyLoad struct {
	cancel context.CancelFunc
	seq    uint64
}

// New creates a store for one document thread and subscribes it to the
// bus (if any). Call Close when the view unmounts.
func New(svc Service, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{
		svc:           svc,
		bus:           opts.Bus,
		log:           log,
		ids:           NewIDMap(),
		origin:        uuid.NewString(),
		documentID:    opts.DocumentID,
		contentType:   opts.ContentType,
		viewer:        opts.Viewer,
		sort:          opts.Sort,
		filter:        opts.Filter,
		bountyFilter:  BountyAll,
		pageSize:      opts.PageSize,
		replyPageSize: opts.ReplyPageSize,
		replyLoads:    make(map[ID]replyLoad),
	}
	if s.sort == "" {
		s.sort = SortBest
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultPageSize
	}
	if s.replyPageSize <= 0 {
		s.replyPageSize = defaultReplyPageSize
	}
	if s.bus != nil {
		s.sub = s.bus.Subscribe(s.documentID, s.contentType, s.handleEvent)
	}
	return s
}

// Close unsubscribes from the bus and cancels outstanding reply loads.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, rl := range s.replyLoads {
		rl.cancel()
	}
	s.replyLoads = make(map[ID]replyLoad)
	if s.sub != nil {
		s.sub.Cancel()
	}
}

// Load fetches the first page, replacing the forest.
func (s *Store) Load(ctx context.Context) error {
	return s.fetchPage(ctx, 1)
}

// Refresh resets to page one and refetches. If a fetch is already
// in flight it is left to win or lose by sequence; use ForceRefresh to
// guarantee a clean replace.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.fetchPage(ctx, 1)
}

// ForceRefresh refetches page one unconditionally. Any response from an
// earlier in-flight fetch is dropped once this one lands, so the forest
// ends up a clean replica of server state. Used to resolve divergence
// after an external mutation.
func (s *Store) ForceRefresh(ctx context.Context) error {
	return s.fetchPage(ctx, 1)
}

// LoadMore fetches the next page of top-level comments and appends it.
func (s *Store) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	page := s.page + 1
	s.mu.Unlock()
	return s.fetchPage(ctx, page)
}

func (s *Store) fetchPage(ctx context.Context, page int) error {
	s.mu.Lock()
	s.loading = true
	s.err = nil
	s.fetchSeq++
	seq := s.fetchSeq
	req := FetchRequest{
		DocumentID:  s.documentID,
		ContentType: s.contentType,
		Sort:        s.sort,
		Filter:      s.filter,
		Page:        page,
		PageSize:    s.pageSize,
	}
	s.mu.Unlock()

	res, err := s.svc.FetchComments(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.appliedSeq {
		// A newer fetch already applied; this response is stale.
		s.log.Debug("dropping stale comment page",
			zap.Uint64("seq", seq), zap.Uint64("applied", s.appliedSeq))
		return nil
	}
	s.loading = false
	if err != nil {
		// Keep whatever is loaded; stale data beats a blank thread.
		s.err = fmt.Errorf("fetching comments page %d: %w", page, err)
		s.log.Warn("comment fetch failed", zap.Int("page", page), zap.Error(err))
		return s.err
	}
	s.appliedSeq = seq
	if page <= 1 {
		s.forest = res.Comments
	} else {
		for _, c := range res.Comments {
			if !Contains(s.forest, c.ID) {
				s.forest = append(s.forest, c)
			}
		}
	}
	s.count = res.Count
	s.page = page
	return nil
}

// LoadMoreReplies fetches the next page of replies under the given
// comment, wherever it sits in the tree, and merges in only the replies
// not already present. A second call for the same comment cancels the
// first; replies already fully loaded are a no-op.
func (s *Store) LoadMoreReplies(ctx context.Context, id ID) error {
	id = s.ids.Resolve(id)
	if id.Pending() {
		return s.softFail("load replies", ErrPendingParent)
	}

	s.mu.Lock()
	target := Find(s.forest, id)
	if target == nil {
		s.mu.Unlock()
		return s.softFail("load replies", fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	if target.FullyLoaded() {
		s.mu.Unlock()
		return nil
	}
	page := len(target.Replies)/s.replyPageSize + 1
	if prev, ok := s.replyLoads[id]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.replySeq++
	rl := replyLoad{cancel: cancel, seq: s.replySeq}
	s.replyLoads[id] = rl
	req := RepliesRequest{
		CommentID:   id.Remote,
		DocumentID:  s.documentID,
		ContentType: s.contentType,
		Page:        page,
		PageSize:    s.replyPageSize,
		Sort:        s.sort,
	}
	s.mu.Unlock()

	res, err := s.svc.FetchReplies(ctx, req)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.replyLoads[id]; ok && cur.seq == rl.seq {
		delete(s.replyLoads, id)
	} else if err == nil {
		// Superseded by a newer load for the same comment.
		return nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		s.err = fmt.Errorf("fetching replies for %s: %w", id, err)
		s.log.Warn("reply fetch failed", zap.String("comment", id.String()), zap.Error(err))
		return s.err
	}
	s.forest, _ = MergeReplies(s.forest, id, res.Comments, res.Count)
	return nil
}

// CreateOpts carries the optional fields of a new comment.
type CreateOpts struct {
	Kind        Kind
	ReviewScore int
	// LocalID, when set, is recorded against the confirmed server ID so
	// callers that keyed state (drafts, focus) by the placeholder can still
	// resolve it. Mint one with NewLocalID.
	LocalID ID
}

// Create posts a new top-level comment. Creation is confirm-then-show:
// the node enters the forest only after the server confirms, so a bus
// echo of the same comment can never race a placeholder into a duplicate.
// Edits, deletes, and votes are the opposite (show-then-confirm).
// Returns nil when the call fails; the error lands in Err.
func (s *Store) Create(ctx context.Context, content Content, opts CreateOpts) *Comment {
	return s.create(ctx, content, ID{}, opts)
}

// CreateReply posts a reply under parentID, which may be a placeholder ID
// already resolved by an earlier create. Confirm-then-show, like Create.
func (s *Store) CreateReply(ctx context.Context, parentID ID, content Content, opts CreateOpts) *Comment {
	parentID = s.ids.Resolve(parentID)
	if parentID.Pending() {
		s.softFail("create reply", ErrPendingParent)
		return nil
	}
	return s.create(ctx, content, parentID, opts)
}

func (s *Store) create(ctx context.Context, content Content, parentID ID, opts CreateOpts) *Comment {
	kind := opts.Kind
	if kind == "" {
		kind = KindComment
	}
	req := CreateRequest{
		DocumentID:  s.documentID,
		ContentType: s.contentType,
		Content:     content,
		Kind:        kind,
		ParentID:    parentID.Remote,
		ReviewScore: opts.ReviewScore,
	}

	var created *Comment
	ok := s.mutate(ctx, "create", nil,
		func(ctx context.Context) error {
			c, err := s.svc.Create(ctx, req)
			if err != nil {
				return err
			}
			created = c
			return nil
		},
		func() {
			if opts.LocalID.Pending() {
				s.ids.Record(opts.LocalID.Local, created.ID.Remote)
			}
			// The bus may have delivered this comment already.
			if Contains(s.forest, created.ID) {
				return
			}
			if parentID.IsZero() {
				s.forest = append(s.forest, created)
				s.count++
			} else if next, found := AddReply(s.forest, parentID, created); found {
				s.forest = next
			} else {
				s.log.Warn("reply confirmed but parent left the thread",
					zap.String("parent", parentID.String()))
			}
		},
		nil)
	if !ok {
		return nil
	}
	s.publish(Event{Name: EventCreated, Comment: created, ParentID: parentID})
	return created
}

// Update applies an optimistic edit, then confirms it with the server.
// On failure the node's original content is restored.
func (s *Store) Update(ctx context.Context, id ID, content Content) bool {
	id = s.ids.Resolve(id)

	var original Content
	var confirmed *Comment
	ok := s.mutate(ctx, "update",
		func() error {
			target := Find(s.forest, id)
			if target == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			original = target.Content
			optimistic := target.clone()
			optimistic.Content = content
			optimistic.UpdatedAt = time.Now()
			optimistic.Meta = &Meta{PendingEdit: true, OriginalContent: &original}
			s.forest, _ = Replace(s.forest, optimistic)
			return nil
		},
		func(ctx context.Context) error {
			c, err := s.svc.Update(ctx, UpdateRequest{
				CommentID:   id.Remote,
				DocumentID:  s.documentID,
				ContentType: s.contentType,
				Content:     content,
			})
			if err != nil {
				return err
			}
			confirmed = c
			return nil
		},
		func() {
			s.reconcileNode(id, confirmed)
		},
		func() {
			target := Find(s.forest, id)
			if target == nil {
				return
			}
			reverted := target.clone()
			reverted.Content = original
			reverted.Meta = nil
			s.forest, _ = Replace(s.forest, reverted)
		})
	if !ok {
		return false
	}
	s.publish(Event{Name: EventUpdated, Comment: confirmed})
	return true
}

// Delete removes the comment optimistically and confirms with the server.
// On failure the node is reinserted at its original position.
func (s *Store) Delete(ctx context.Context, id ID) bool {
	id = s.ids.Resolve(id)

	var removed *Comment
	var parentID ID
	var index int
	ok := s.mutate(ctx, "delete",
		func() error {
			var found bool
			parentID, index, found = Locate(s.forest, id)
			if !found {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			s.forest, removed = Remove(s.forest, id)
			if parentID.IsZero() {
				s.count--
			}
			return nil
		},
		func(ctx context.Context) error {
			return s.svc.Delete(ctx, DeleteRequest{
				CommentID:   id.Remote,
				DocumentID:  s.documentID,
				ContentType: s.contentType,
			})
		},
		nil,
		func() {
			s.forest, _ = InsertAt(s.forest, parentID, index, removed)
			if parentID.IsZero() {
				s.count++
			}
		})
	if !ok {
		return false
	}
	s.publish(Event{Name: EventDeleted, CommentID: id, ParentID: parentID})
	return true
}

// Vote casts or clears the viewer's vote. The score delta (+1 into an
// upvote, -1 out of one, otherwise 0) is applied immediately; on failure
// the previous score and vote are restored.
func (s *Store) Vote(ctx context.Context, id ID, vote Vote) bool {
	id = s.ids.Resolve(id)

	s.mu.Lock()
	target := Find(s.forest, id)
	if target != nil && target.UserVote == vote {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	var prevVote Vote
	var delta int
	var voted *Comment
	ok := s.mutate(ctx, "vote",
		func() error {
			target := Find(s.forest, id)
			if target == nil {
				return fmt.Errorf("%w: %s", ErrNotFound, id)
			}
			prevVote = target.UserVote
			delta = voteDelta(prevVote, vote)
			optimistic := target.clone()
			optimistic.Score += delta
			optimistic.UserVote = vote
			s.forest, _ = Replace(s.forest, optimistic)
			voted = optimistic
			return nil
		},
		func(ctx context.Context) error {
			return s.svc.Vote(ctx, VoteRequest{
				CommentID:   id.Remote,
				DocumentID:  s.documentID,
				ContentType: s.contentType,
				Vote:        vote,
			})
		},
		nil,
		func() {
			target := Find(s.forest, id)
			if target == nil {
				return
			}
			reverted := target.clone()
			reverted.Score -= delta
			reverted.UserVote = prevVote
			s.forest, _ = Replace(s.forest, reverted)
		})
	if !ok {
		return false
	}
	s.publish(Event{Name: EventVoted, Comment: voted})
	return true
}

func voteDelta(from, to Vote) int {
	switch {
	case to == VoteUp && from != VoteUp:
		return 1
	case to != VoteUp && from == VoteUp:
		return -1
	default:
		return 0
	}
}

// mutate is the shared optimistic-call sequence: apply the local change,
// run the remote call, then reconcile or roll back. Create supplies a nil
// apply (confirm-then-show); the others apply first (show-then-confirm).
// Failures never propagate as panics or half-applied state: the error is
// recorded and the caller observes false.
func (s *Store) mutate(ctx context.Context, op string, apply func() error, call func(context.Context) error, reconcile, rollback func()) bool {
	if apply != nil {
		s.mu.Lock()
		if err := apply(); err != nil {
			s.err = err
			s.mu.Unlock()
			s.log.Warn("comment mutation skipped", zap.String("op", op), zap.Error(err))
			return false
		}
		s.mu.Unlock()
	}

	err := call(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if rollback != nil {
			rollback()
		}
		s.err = fmt.Errorf("%s comment: %w", op, err)
		s.log.Warn("comment mutation failed", zap.String("op", op), zap.Error(err))
		return false
	}
	if reconcile != nil {
		reconcile()
	}
	s.err = nil
	return true
}

// reconcileNode replaces the node's fields with server truth while keeping
// the locally loaded reply subtree, which mutation responses do not carry.
func (s *Store) reconcileNode(id ID, confirmed *Comment) {
	if confirmed == nil {
		return
	}
	current := Find(s.forest, id)
	if current == nil {
		return
	}
	merged := confirmed.clone()
	merged.Replies = current.Replies
	if current.ChildCount > merged.ChildCount {
		merged.ChildCount = current.ChildCount
	}
	merged.Meta = nil
	s.forest, _ = ReplaceID(s.forest, id, merged)
}

func (s *Store) publish(ev Event) {
	if s.bus == nil {
		return
	}
	ev.DocumentID = s.documentID
	ev.ContentType = s.contentType
	ev.Origin = s.origin
	s.bus.Publish(ev)
}

// handleEvent folds a mutation made by another store instance (or the
// reply monitor) into this forest. Inserts are deduplicated by ID so a
// direct response and a bus echo can never produce two copies.
func (s *Store) handleEvent(ev Event) {
	if ev.Origin == s.origin {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch ev.Name {
	case EventCreated:
		if ev.Comment == nil || Contains(s.forest, ev.Comment.ID) {
			return
		}
		if ev.ParentID.IsZero() {
			s.forest = append(s.forest[:len(s.forest):len(s.forest)], ev.Comment)
			s.count++
		} else if next, ok := AddReply(s.forest, ev.ParentID, ev.Comment); ok {
			s.forest = next
		}
		// A reply under an unloaded parent is dropped; it will arrive with
		// the parent's next reply page.

	case EventUpdated, EventVoted:
		if ev.Comment == nil {
			return
		}
		s.reconcileNode(ev.Comment.ID, ev.Comment)

	case EventDeleted:
		if next, removed := Remove(s.forest, ev.CommentID); removed != nil {
			s.forest = next
			if ev.ParentID.IsZero() {
				s.count--
			}
		}
	}
}

func (s *Store) softFail(op string, err error) error {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.log.Warn("comment operation aborted", zap.String("op", op), zap.Error(err))
	return err
}

// SetEditingID marks a comment as being edited, clearing any reply focus.
// A zero ID clears the edit focus.
func (s *Store) SetEditingID(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editingID = id
	if !id.IsZero() {
		s.replyingToID = ID{}
	}
}

// SetReplyingToID marks a comment as being replied to, clearing any edit
// focus. A zero ID clears the reply focus.
func (s *Store) SetReplyingToID(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replyingToID = id
	if !id.IsZero() {
		s.editingID = ID{}
	}
}

// SetSort changes the thread ordering. Callers refetch afterwards.
func (s *Store) SetSort(sort Sort) {
	s.mu.Lock()
	s.sort = sort
	s.mu.Unlock()
}

// SetBountyFilter narrows FilteredComments for bounty threads.
func (s *Store) SetBountyFilter(f BountyFilter) {
	s.mu.Lock()
	s.bountyFilter = f
	s.mu.Unlock()
}

// ResolveID maps a placeholder ID to its confirmed form, if known.
func (s *Store) ResolveID(id ID) ID { return s.ids.Resolve(id) }

// Comments returns the current forest snapshot. The returned nodes are
// immutable; a later mutation swaps in new copies rather than editing
// these in place.
func (s *Store) Comments() []*Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forest
}

// Count is the server-declared number of top-level comments.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Loading reports whether a page fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the most recent operation error, or nil.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Page is the last loaded top-level page.
func (s *Store) Page() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Sort returns the current thread ordering.
func (s *Store) Sort() Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// EditingID returns the comment being edited, or a zero ID.
func (s *Store) EditingID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// ReplyingToID returns the comment being replied to, or a zero ID.
func (s *Store) ReplyingToID() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replyingToID
}
