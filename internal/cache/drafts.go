package cache

import (
	"database/sql"
	"time"
)

// GetDraft returns the saved composer text for a document, or "" if none.
// parentKey is "" for a top-level comment, the parent comment's ID string
// for a reply, or a local pending token while the parent is unconfirmed.
func (d *DB) GetDraft(documentID int64, contentType, parentKey string) (string, error) {
	row := d.db.QueryRow(`SELECT body FROM drafts
		WHERE document_id = ? AND content_type = ? AND parent_key = ?`,
		documentID, contentType, parentKey)

	var body string
	err := row.Scan(&body)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return body, nil
}

// PutDraft saves composer text. Empty body removes the draft.
func (d *DB) PutDraft(documentID int64, contentType, parentKey, body string) error {
	if body == "" {
		return d.DeleteDraft(documentID, contentType, parentKey)
	}
	_, err := d.db.Exec(`INSERT OR REPLACE INTO drafts
		(document_id, content_type, parent_key, body, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		documentID, contentType, parentKey, body, time.Now().Unix())
	return err
}

// DeleteDraft removes a saved draft, usually after a successful post.
func (d *DB) DeleteDraft(documentID int64, contentType, parentKey string) error {
	_, err := d.db.Exec(`DELETE FROM drafts
		WHERE document_id = ? AND content_type = ? AND parent_key = ?`,
		documentID, contentType, parentKey)
	return err
}

// RekeyDraft moves a draft from one parent key to another. Used when a
// pending parent comment is confirmed and its local token gets a server ID.
func (d *DB) RekeyDraft(documentID int64, contentType, oldKey, newKey string) error {
	_, err := d.db.Exec(`UPDATE OR REPLACE drafts SET parent_key = ?
		WHERE document_id = ? AND content_type = ? AND parent_key = ?`,
		newKey, documentID, contentType, oldKey)
	return err
}
