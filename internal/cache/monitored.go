package cache

import (
	"database/sql"
	"encoding/json"
	"time"
)

// MonitoredComment is a comment the user authored and wants watched for
// new replies. KnownChildren holds the reply IDs already seen.
type MonitoredComment struct {
	CommentID     int64
	DocumentID    int64
	ContentType   string
	KnownChildren []int64
	LastChecked   time.Time
	CreatedAt     time.Time
}

// MonitorComment starts watching a comment. Re-monitoring an existing
// comment keeps its known-children set.
func (d *DB) MonitorComment(commentID, documentID int64, contentType string, children []int64) error {
	if children == nil {
		children = []int64{}
	}
	raw, err := json.Marshal(children)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	_, err = d.db.Exec(`INSERT INTO monitored_comments
		(comment_id, document_id, content_type, known_children, last_checked, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
		ON CONFLICT(comment_id) DO NOTHING`,
		commentID, documentID, contentType, string(raw), now)
	return err
}

// UnmonitorComment stops watching a comment.
func (d *DB) UnmonitorComment(commentID int64) error {
	_, err := d.db.Exec(`DELETE FROM monitored_comments WHERE comment_id = ?`, commentID)
	return err
}

// MonitoredComments returns watched comments, least recently checked
// first, capped at max.
func (d *DB) MonitoredComments(max int) ([]MonitoredComment, error) {
	rows, err := d.db.Query(`SELECT comment_id, document_id, content_type,
		known_children, last_checked, created_at
		FROM monitored_comments ORDER BY last_checked ASC LIMIT ?`, max)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonitoredComment
	for rows.Next() {
		var m MonitoredComment
		var children string
		var lastChecked, createdAt int64
		if err := rows.Scan(&m.CommentID, &m.DocumentID, &m.ContentType,
			&children, &lastChecked, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(children), &m.KnownChildren); err != nil {
			m.KnownChildren = nil
		}
		if lastChecked != 0 {
			m.LastChecked = time.Unix(lastChecked, 0)
		}
		m.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMonitoredChildren records the reply set seen on the latest check.
func (d *DB) UpdateMonitoredChildren(commentID int64, children []int64) error {
	if children == nil {
		children = []int64{}
	}
	raw, err := json.Marshal(children)
	if err != nil {
		return err
	}
	res, err := d.db.Exec(`UPDATE monitored_comments
		SET known_children = ?, last_checked = ? WHERE comment_id = ?`,
		string(raw), time.Now().Unix(), commentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchMonitored bumps last_checked without changing the children set,
// used when a check fails so one dead comment does not starve the rest.
func (d *DB) TouchMonitored(commentID int64) error {
	_, err := d.db.Exec(`UPDATE monitored_comments SET last_checked = ?
		WHERE comment_id = ?`, time.Now().Unix(), commentID)
	return err
}
