package emotionstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ProgressStatus is the scraping state of one video.
type ProgressStatus string

const (
	StatusPending    ProgressStatus = "pending"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
	StatusFailed     ProgressStatus = "failed"
	StatusError      ProgressStatus = "error"
)

// Progress is the scraping_progress row of one video.
type Progress struct {
	VideoID         string
	Status          ProgressStatus
	CommentsScraped int
	TargetComments  int
	QuotaUsed       int
	StartedAt       *time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
}

// MarkPending registers videos that have not started yet. Existing rows are kept.
func (s *Store) MarkPending(ctx context.Context, videoIDs []string, target int) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := nowString()
		for _, id := range videoIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO scraping_progress (video_id, status, target_comments, updated_at)
                 VALUES (?, 'pending', ?, ?)`, id, target, now); err != nil {
				return fmt.Errorf("mark pending %s: %w", id, err)
			}
		}
		return nil
	})
}

// StartProgress moves a video to in_progress and resets its counters.
func (s *Store) StartProgress(ctx context.Context, videoID string, target int) error {
	now := nowString()
	err := s.exec(ctx,
		`INSERT INTO scraping_progress (video_id, status, comments_scraped, target_comments, quota_used, started_at, updated_at)
         VALUES (?, 'in_progress', 0, ?, 0, ?, ?)
         ON CONFLICT(video_id) DO UPDATE SET
            status = 'in_progress', comments_scraped = 0, target_comments = excluded.target_comments,
            quota_used = 0, started_at = excluded.started_at, updated_at = excluded.updated_at,
            completed_at = NULL, error_message = NULL`,
		videoID, target, now, now)
	if err != nil {
		return fmt.Errorf("start progress %s: %w", videoID, err)
	}
	return nil
}

// UpdateProgress records counters after a page of comments.
func (s *Store) UpdateProgress(ctx context.Context, videoID string, scraped, quota int) error {
	err := s.exec(ctx,
		`UPDATE scraping_progress SET comments_scraped = ?, quota_used = ?, updated_at = ? WHERE video_id = ?`,
		scraped, quota, nowString(), videoID)
	if err != nil {
		return fmt.Errorf("update progress %s: %w", videoID, err)
	}
	return nil
}

// FinishProgress records the terminal state of a video.
func (s *Store) FinishProgress(ctx context.Context, videoID string, status ProgressStatus, scraped, quota int, message string) error {
	now := nowString()
	err := s.exec(ctx,
		`UPDATE scraping_progress SET status = ?, comments_scraped = ?, quota_used = ?,
            updated_at = ?, completed_at = ?, error_message = ?
         WHERE video_id = ?`,
		string(status), scraped, quota, now, now, nullableString(message), videoID)
	if err != nil {
		return fmt.Errorf("finish progress %s: %w", videoID, err)
	}
	return nil
}

// GetProgress returns the progress row of a video, or nil, nil.
func (s *Store) GetProgress(ctx context.Context, videoID string) (*Progress, error) {
	var (
		p                             Progress
		status                        string
		started, completed, errorText sql.NullString
		updated                       string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT video_id, status, comments_scraped, target_comments, quota_used, started_at,
                updated_at, completed_at, error_message
         FROM scraping_progress WHERE video_id = ?`, videoID,
	).Scan(&p.VideoID, &status, &p.CommentsScraped, &p.TargetComments, &p.QuotaUsed,
		&started, &updated, &completed, &errorText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get progress: %w", err)
	}
	p.Status = ProgressStatus(status)
	p.UpdatedAt = parseTime(updated)
	if started.Valid {
		t := parseTime(started.String)
		p.StartedAt = &t
	}
	if completed.Valid {
		t := parseTime(completed.String)
		p.CompletedAt = &t
	}
	p.ErrorMessage = errorText.String
	return &p, nil
}

// CompletedVideoIDs returns the set of videos whose scrape completed.
func (s *Store) CompletedVideoIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT video_id FROM scraping_progress WHERE status = 'completed'`)
	if err != nil {
		return nil, fmt.Errorf("completed videos: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed video: %w", err)
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

// RecordQuota appends units spent on one API call for videoID to the quota
// ledger. Ledger rows are never rewritten, so re-scraping a video keeps earlier
// spend inside the rolling window.
func (s *Store) RecordQuota(ctx context.Context, videoID string, units int) error {
	if units <= 0 {
		return nil
	}
	if err := s.exec(ctx,
		`INSERT INTO quota_ledger (video_id, units, spent_at) VALUES (?, ?, ?)`,
		videoID, units, nowString(),
	); err != nil {
		return fmt.Errorf("record quota for %s: %w", videoID, err)
	}
	return nil
}

// QuotaUsedSince sums ledger units spent at or after since.
func (s *Store) QuotaUsedSince(ctx context.Context, since time.Time) (int, error) {
	var used int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(units), 0) FROM quota_ledger WHERE spent_at >= ?`,
		since.UTC().Format(timeLayout),
	).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("quota used: %w", err)
	}
	return used, nil
}

// ScrapingStats summarizes scraping progress across videos.
type ScrapingStats struct {
	ByStatus        map[ProgressStatus]int `json:"by_status"`
	Videos          int                    `json:"videos"`
	CommentsScraped int                    `json:"comments_scraped"`
	QuotaUsed       int                    `json:"quota_used"`
	RawComments     int                    `json:"raw_comments"`
}

// ScrapingStats reports per-status counts and totals.
func (s *Store) ScrapingStats(ctx context.Context) (ScrapingStats, error) {
	stats := ScrapingStats{ByStatus: make(map[ProgressStatus]int)}
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(comments_scraped), 0), COALESCE(SUM(quota_used), 0)
         FROM scraping_progress GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("scraping stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status               string
			count, scraped, used int
		)
		if err := rows.Scan(&status, &count, &scraped, &used); err != nil {
			return stats, fmt.Errorf("scan scraping stats: %w", err)
		}
		stats.ByStatus[ProgressStatus(status)] = count
		stats.Videos += count
		stats.CommentsScraped += scraped
		stats.QuotaUsed += used
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_comments`).Scan(&stats.RawComments); err != nil {
		return stats, fmt.Errorf("count raw comments: %w", err)
	}
	return stats, nil
}
