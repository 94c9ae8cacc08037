// Package monitor polls the user's comments for new replies in the
// background and records notifications for them.
package monitor

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/cache"
	"github.com/margin-sh/margin/internal/comments"
	"github.com/margin-sh/margin/internal/config"
	"github.com/margin-sh/margin/internal/render"
	"github.com/margin-sh/margin/internal/ui/messages"
)

const previewWidth = 200

// Monitor polls for new replies to the user's comments.
type Monitor struct {
	client  *api.Client
	cache   *cache.DB
	cfg     config.Config
	bus     *comments.Bus
	log     *zap.Logger
	program *tea.Program
	stopCh  chan struct{}
	started bool
}

// New creates a background monitor. The bus may be nil; when set, newly
// discovered replies are published on it so open threads pick them up.
func New(cfg config.Config, client *api.Client, db *cache.DB, bus *comments.Bus, log *zap.Logger) *Monitor {
	return &Monitor{
		client: client,
		cache:  db,
		cfg:    cfg,
		bus:    bus,
		log:    log,
		stopCh: make(chan struct{}),
	}
}

// Start begins the background polling loop. Calling Start again on a
// running monitor is a no-op.
func (m *Monitor) Start(program *tea.Program) {
	if m.started {
		return
	}
	m.started = true
	m.program = program
	go m.loop()
}

// Stop halts the background polling.
func (m *Monitor) Stop() {
	select {
	case <-m.stopCh:
	default:
		close(m.stopCh)
	}
}

// Watch adds a comment to the monitoring list, seeded with the replies
// already visible so they are not reported as new.
func (m *Monitor) Watch(c *comments.Comment, documentID int64, contentType string) {
	if c == nil || c.ID.Pending() {
		return
	}
	known := make([]int64, 0, len(c.Replies))
	for _, r := range c.Replies {
		if !r.ID.Pending() {
			known = append(known, r.ID.Remote)
		}
	}
	if err := m.cache.MonitorComment(c.ID.Remote, documentID, contentType, known); err != nil {
		m.log.Warn("monitoring comment", zap.Int64("comment", c.ID.Remote), zap.Error(err))
	}
}

// Unwatch removes a comment from the monitoring list.
func (m *Monitor) Unwatch(commentID int64) {
	if err := m.cache.UnmonitorComment(commentID); err != nil {
		m.log.Warn("unmonitoring comment", zap.Int64("comment", commentID), zap.Error(err))
	}
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.cfg.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.poll()
		}
	}
}

func (m *Monitor) poll() {
	watched, err := m.cache.MonitoredComments(m.cfg.MonitorMax)
	if err != nil || len(watched) == 0 {
		return
	}

	ctx := context.Background()
	found := false
	for _, mc := range watched {
		select {
		case <-m.stopCh:
			return
		default:
		}

		if m.check(ctx, mc) {
			found = true
		}
	}

	if found && m.program != nil {
		unread, err := m.cache.UnreadCount()
		if err != nil {
			return
		}
		m.program.Send(messages.NewNotificationMsg{UnreadCount: unread})
	}
}

// check fetches the current replies under one watched comment and
// records any it has not seen before. Reports whether new replies were
// found.
func (m *Monitor) check(ctx context.Context, mc cache.MonitoredComment) bool {
	res, err := m.client.FetchReplies(ctx, comments.RepliesRequest{
		CommentID:   mc.CommentID,
		DocumentID:  mc.DocumentID,
		ContentType: mc.ContentType,
		Page:        1,
		PageSize:    m.cfg.ReplyPageSize,
	})
	if err != nil {
		m.log.Debug("checking replies", zap.Int64("comment", mc.CommentID), zap.Error(err))
		m.cache.TouchMonitored(mc.CommentID)
		return false
	}

	knownSet := make(map[int64]bool, len(mc.KnownChildren))
	for _, id := range mc.KnownChildren {
		knownSet[id] = true
	}

	current := make([]int64, 0, len(res.Comments))
	found := false
	for _, reply := range res.Comments {
		id := reply.ID.Remote
		current = append(current, id)
		if knownSet[id] {
			continue
		}
		found = true
		m.record(mc, reply)
	}

	// Keep IDs that fell off the first page so they are not re-reported
	// if sorting brings them back.
	for _, id := range mc.KnownChildren {
		if !containsID(current, id) {
			current = append(current, id)
		}
	}
	m.cache.UpdateMonitoredChildren(mc.CommentID, current)
	return found
}

func (m *Monitor) record(mc cache.MonitoredComment, reply *comments.Comment) {
	preview := render.Truncate(render.ContentToText(reply.Content, previewWidth), previewWidth)
	err := m.cache.AddNotification(cache.Notification{
		CommentID:   reply.ID.Remote,
		ParentID:    mc.CommentID,
		DocumentID:  mc.DocumentID,
		ContentType: mc.ContentType,
		Author:      reply.Author.Name,
		Preview:     preview,
	})
	if err != nil {
		m.log.Warn("recording notification", zap.Int64("comment", reply.ID.Remote), zap.Error(err))
		return
	}

	if m.bus != nil {
		m.bus.Publish(comments.Event{
			Name:        comments.EventCreated,
			DocumentID:  mc.DocumentID,
			ContentType: mc.ContentType,
			Comment:     reply,
			ParentID:    comments.RemoteID(mc.CommentID),
		})
	}
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
