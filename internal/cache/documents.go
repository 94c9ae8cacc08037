package cache

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/margin-sh/margin/internal/api"
)

// GetDocument retrieves a cached document. Returns (doc, isFresh, error);
// doc is nil on a cache miss.
func (d *DB) GetDocument(contentType string, id int64, ttl time.Duration) (*api.Document, bool, error) {
	row := d.db.QueryRow(`SELECT id, content_type, document_type, title, slug, abstract,
		authors, hub, score, comment_count, created_unix, open_access, fetched_at
		FROM documents WHERE id = ? AND content_type = ?`, id, contentType)

	var doc api.Document
	var docType, title, slug, abstract, authors, hub sql.NullString
	var createdUnix, fetchedAt int64
	var openAccess int

	err := row.Scan(&doc.ID, &doc.ContentType, &docType, &title, &slug, &abstract,
		&authors, &hub, &doc.Score, &doc.CommentCount, &createdUnix, &openAccess, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	doc.DocumentType = docType.String
	doc.Title = title.String
	doc.Slug = slug.String
	doc.Abstract = abstract.String
	doc.Hub = hub.String
	doc.IsOpenAccess = openAccess != 0
	if createdUnix != 0 {
		doc.CreatedAt = time.Unix(createdUnix, 0)
	}
	if authors.Valid && authors.String != "" {
		json.Unmarshal([]byte(authors.String), &doc.Authors)
	}

	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return &doc, isFresh, nil
}

// PutDocument stores a document in the cache.
func (d *DB) PutDocument(doc *api.Document) error {
	authors, _ := json.Marshal(doc.Authors)
	var openAccess int
	if doc.IsOpenAccess {
		openAccess = 1
	}
	var createdUnix int64
	if !doc.CreatedAt.IsZero() {
		createdUnix = doc.CreatedAt.Unix()
	}

	_, err := d.db.Exec(`INSERT OR REPLACE INTO documents
		(id, content_type, document_type, title, slug, abstract, authors, hub,
		score, comment_count, created_unix, open_access, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.ContentType, nullStr(doc.DocumentType), nullStr(doc.Title),
		nullStr(doc.Slug), nullStr(doc.Abstract), string(authors), nullStr(doc.Hub),
		doc.Score, doc.CommentCount, createdUnix, openAccess, time.Now().Unix())
	return err
}

// GetFeedList returns the cached document refs for a feed view.
func (d *DB) GetFeedList(view string, ttl time.Duration) ([]api.DocRef, bool, error) {
	row := d.db.QueryRow(`SELECT refs, fetched_at FROM feed_lists WHERE view = ?`, view)

	var refsJSON string
	var fetchedAt int64
	err := row.Scan(&refsJSON, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var refs []api.DocRef
	if err := json.Unmarshal([]byte(refsJSON), &refs); err != nil {
		return nil, false, err
	}
	isFresh := time.Since(time.Unix(fetchedAt, 0)) < ttl
	return refs, isFresh, nil
}

// PutFeedList stores the document refs for a feed view.
func (d *DB) PutFeedList(view string, refs []api.DocRef) error {
	raw, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	_, err = d.db.Exec(`INSERT OR REPLACE INTO feed_lists (view, refs, fetched_at)
		VALUES (?, ?, ?)`, view, string(raw), time.Now().Unix())
	return err
}

// InvalidateFeedList drops the cached list for a view.
func (d *DB) InvalidateFeedList(view string) error {
	_, err := d.db.Exec(`DELETE FROM feed_lists WHERE view = ?`, view)
	return err
}
