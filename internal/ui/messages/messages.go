// Package messages defines the bubbletea messages passed between views.
package messages

import (
	"github.com/margin-sh/margin/internal/api"
	"github.com/margin-sh/margin/internal/comments"
)

// View transition messages.
type (
	OpenDocumentMsg struct {
		ContentType string
		DocumentID  int64
	}
	GoBackMsg     struct{}
	SwitchFeedMsg struct{ View api.FeedView }

	// OpenComposeMsg opens the composer. ParentID is zero for a top-level
	// comment; EditID is set when editing an existing comment.
	OpenComposeMsg struct {
		DocumentID  int64
		ContentType string
		ParentID    comments.ID
		EditID      comments.ID
		Kind        comments.Kind
		Initial     string
	}
)

// Data messages.
type (
	FeedLoadedMsg struct {
		View api.FeedView
		Docs []*api.Document
		Err  error
	}

	DocumentLoadedMsg struct {
		Doc *api.Document
		Err error
	}

	// ThreadChangedMsg reports that a store operation finished and the
	// comment forest may have changed.
	ThreadChangedMsg struct {
		DocumentID int64
	}

	LoginResultMsg struct {
		Name string
		Err  error
	}

	ComposeResultMsg struct {
		DocumentID int64
		ParentID   comments.ID
		EditID     comments.ID
		Err        error
	}

	NewNotificationMsg struct {
		UnreadCount int
	}

	StatusMsg struct {
		Text    string
		IsError bool
	}

	SessionRestoredMsg struct {
		Name string
	}
)
