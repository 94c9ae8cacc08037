package cache

import (
	"time"
)

// Notification records a new reply found by the monitor.
type Notification struct {
	ID          int64
	CommentID   int64
	ParentID    int64
	DocumentID  int64
	ContentType string
	Author      string
	Preview     string
	CreatedAt   time.Time
	Read        bool
}

// AddNotification records a reply notification. Duplicate comment IDs are
// silently ignored so the monitor can re-report the same reply safely.
func (d *DB) AddNotification(n Notification) error {
	_, err := d.db.Exec(`INSERT OR IGNORE INTO notifications
		(comment_id, parent_id, document_id, content_type, author, preview, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.CommentID, n.ParentID, n.DocumentID, nullStr(n.ContentType),
		nullStr(n.Author), nullStr(n.Preview), time.Now().Unix())
	return err
}

// UnreadCount returns the number of unread notifications.
func (d *DB) UnreadCount() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM notifications WHERE read = 0`).Scan(&count)
	return count, err
}

// Notifications returns all notifications, newest first.
func (d *DB) Notifications() ([]Notification, error) {
	rows, err := d.db.Query(`SELECT id, comment_id, parent_id,
		COALESCE(document_id, 0), COALESCE(content_type, ''),
		COALESCE(author, ''), COALESCE(preview, ''), created_at, read
		FROM notifications ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var createdAt int64
		var read int
		if err := rows.Scan(&n.ID, &n.CommentID, &n.ParentID, &n.DocumentID,
			&n.ContentType, &n.Author, &n.Preview, &createdAt, &read); err != nil {
			return nil, err
		}
		n.CreatedAt = time.Unix(createdAt, 0)
		n.Read = read != 0
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func (d *DB) MarkNotificationRead(id int64) error {
	_, err := d.db.Exec(`UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return err
}

// MarkAllNotificationsRead marks every notification as read.
func (d *DB) MarkAllNotificationsRead() error {
	_, err := d.db.Exec(`UPDATE notifications SET read = 1 WHERE read = 0`)
	return err
}
