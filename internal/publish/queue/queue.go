// Package queue is the local durable staging area for CMS drafts: converted
// articles wait here until flush-drafts uploads them, so a failed upload
// never loses a converted draft.
package queue

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	digest TEXT NOT NULL DEFAULT '',
	content_html TEXT NOT NULL,
	source_url TEXT NOT NULL DEFAULT '',
	thumb_path TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'sent')),
	created_at_utc_ns INTEGER NOT NULL,
	sent_at_utc_ns INTEGER,
	sent_media_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_drafts_status_created ON drafts(status, created_at_utc_ns);
`

// Draft is one staged CMS article.
type Draft struct {
	ID          string
	Title       string
	Author      string
	Digest      string
	ContentHTML string
	SourceURL   string
	ThumbPath   string
	Status      string
	CreatedAt   time.Time
}

// Store is the sqlite-backed draft queue.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the queue database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir queue dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("queue pragma: %w", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("queue schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Enqueue stages one draft and returns its id.
func (s *Store) Enqueue(ctx context.Context, d Draft) (string, error) {
	id := d.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := d.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO drafts(id, title, author, digest, content_html, source_url, thumb_path, status, created_at_utc_ns)
VALUES(?, ?, ?, ?, ?, ?, ?, 'pending', ?)`,
		id, d.Title, d.Author, d.Digest, d.ContentHTML, d.SourceURL, d.ThumbPath, createdAt.UTC().UnixNano())
	if err != nil {
		return "", fmt.Errorf("enqueue draft: %w", err)
	}
	return id, nil
}

// Pending returns drafts not yet uploaded, oldest first.
func (s *Store) Pending(ctx context.Context) ([]Draft, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, title, author, digest, content_html, source_url, thumb_path, status, created_at_utc_ns
FROM drafts
WHERE status = 'pending'
ORDER BY created_at_utc_ns ASC`)
	if err != nil {
		return nil, fmt.Errorf("query pending drafts: %w", err)
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		var d Draft
		var createdNs int64
		if err := rows.Scan(&d.ID, &d.Title, &d.Author, &d.Digest, &d.ContentHTML, &d.SourceURL, &d.ThumbPath, &d.Status, &createdNs); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		d.CreatedAt = time.Unix(0, createdNs).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkSent records a successful upload. Already-sent drafts are untouched,
// so a retried flush cannot double-mark.
func (s *Store) MarkSent(ctx context.Context, id, mediaID string, sentAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE drafts
SET status='sent', sent_at_utc_ns=?, sent_media_id=?
WHERE id=? AND status='pending'`,
		sentAt.UTC().UnixNano(), mediaID, id)
	if err != nil {
		return fmt.Errorf("mark draft sent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark draft sent: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("draft %s not pending", id)
	}
	return nil
}
