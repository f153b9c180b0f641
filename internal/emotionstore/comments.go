package emotionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RawComment is one scraped comment awaiting or past analysis.
type RawComment struct {
	ID          int64
	VideoID     string
	CommentID   string
	Text        string
	AuthorName  string
	LikeCount   int64
	PublishedAt string
	ScrapedAt   time.Time
	Processed   bool
	Language    string
	IsReply     bool
	ParentID    string
}

// SaveComments inserts comments for one video in a single transaction.
// Already known comment ids are ignored. It returns the number of new rows.
func (s *Store) SaveComments(ctx context.Context, videoID string, comments []RawComment) (int, error) {
	if len(comments) == 0 {
		return 0, nil
	}
	inserted := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inserted = 0
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO raw_comments (
                video_id, comment_id, comment_text, author_name, like_count, published_at,
                scraped_at, processed, language, is_reply, parent_id
            ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare insert comment: %w", err)
		}
		defer stmt.Close()

		now := nowString()
		for _, c := range comments {
			res, err := stmt.ExecContext(ctx,
				videoID, c.CommentID, c.Text, nullableString(c.AuthorName), max(c.LikeCount, 0),
				nullableString(c.PublishedAt), now, nullableString(c.Language),
				boolToInt(c.IsReply), nullableString(c.ParentID),
			)
			if err != nil {
				return fmt.Errorf("insert comment %s: %w", c.CommentID, err)
			}
			if n, err := res.RowsAffected(); err == nil {
				inserted += int(n)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("save comments for %s: %w", videoID, err)
	}
	return inserted, nil
}

// PendingComments returns up to limit unprocessed comments in insertion order.
func (s *Store) PendingComments(ctx context.Context, limit int) ([]RawComment, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, video_id, comment_id, comment_text, COALESCE(author_name, ''), like_count,
                COALESCE(published_at, ''), scraped_at, processed, COALESCE(language, ''),
                is_reply, COALESCE(parent_id, '')
         FROM raw_comments WHERE processed = 0 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending comments: %w", err)
	}
	defer rows.Close()

	var out []RawComment
	for rows.Next() {
		var (
			c                  RawComment
			scraped            string
			processed, isReply int
		)
		if err := rows.Scan(&c.ID, &c.VideoID, &c.CommentID, &c.Text, &c.AuthorName, &c.LikeCount,
			&c.PublishedAt, &scraped, &processed, &c.Language, &isReply, &c.ParentID); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.ScrapedAt = parseTime(scraped)
		c.Processed = processed != 0
		c.IsReply = isReply != 0
		out = append(out, c)
	}
	return out, rows.Err()
}

// CommentCount returns how many raw comments are stored for a video.
func (s *Store) CommentCount(ctx context.Context, videoID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_comments WHERE video_id = ?`, videoID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}
