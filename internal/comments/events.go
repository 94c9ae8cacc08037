package comments

import (
	"sync"

	"go.uber.org/zap"
)

// EventName identifies what happened to a comment.
type EventName string

const (
	EventCreated EventName = "comment_created"
	EventUpdated EventName = "comment_updated"
	EventDeleted EventName = "comment_deleted"
	EventVoted   EventName = "comment_voted"
)

// Event is broadcast on the bus whenever a store (or the reply monitor)
// confirms a comment mutation, so other mounted views of the same document
// stay consistent without refetching.
type Event struct {
	Name        EventName
	DocumentID  int64
	ContentType string
	// Comment carries the confirmed node for created/updated/voted events.
	Comment *Comment
	// CommentID identifies the target for deleted events.
	CommentID ID
	// ParentID is set for created replies; zero for top-level comments.
	ParentID ID
	// Origin tags the publishing store so it can skip its own events.
	Origin string
}

type subscription struct {
	documentID  int64
	contentType string
	fn          func(Event)
}

// Bus is a process-wide publish/subscribe channel for comment events.
// It is constructed once at startup and injected; publishing is
// synchronous and fire-and-forget. A panicking subscriber is recovered
// and logged so it cannot block the others.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]subscription
	log    *zap.Logger
}

// NewBus creates an event bus. A nil logger is replaced with a nop logger.
func NewBus(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bus{subs: make(map[int]subscription), log: log}
}

// Subscription is a handle for unsubscribing.
type Subscription struct {
	bus *Bus
	id  int
}

// Cancel removes the listener. Safe to call more than once.
func (s *Subscription) Cancel() {
	if s == nil || s.bus == nil {
		return
	}
	s.bus.mu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.mu.Unlock()
	s.bus = nil
}

// Subscribe registers fn for events scoped to the given document. fn runs
// synchronously on the publisher's goroutine.
func (b *Bus) Subscribe(documentID int64, contentType string, fn func(Event)) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[id] = subscription{documentID: documentID, contentType: contentType, fn: fn}
	return &Subscription{bus: b, id: id}
}

// Publish delivers ev to every subscriber whose scope matches.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	matched := make([]func(Event), 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.documentID == ev.DocumentID && sub.contentType == ev.ContentType {
			matched = append(matched, sub.fn)
		}
	}
	b.mu.RUnlock()

	for _, fn := range matched {
		b.deliver(fn, ev)
	}
}

func (b *Bus) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("comment event subscriber panicked",
				zap.String("event", string(ev.Name)),
				zap.Any("panic", r))
		}
	}()
	fn(ev)
}
