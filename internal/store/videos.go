package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ytanalyzer/internal/taxonomy"
)

const videoColumns = "id, concurrent_id, video_id, title, description, url, thumbnail_url, published_at, youtube_published_at, duration_seconds, duration_text, view_count, like_count, comment_count, is_short, category, classification_source, is_human_validated, classification_confidence, classification_date, beauty_score, created_at, last_updated"

// machineWritable guards every automated classification write.
const machineWritable = "classification_source IS NOT 'human' AND is_human_validated = 0"

func scanVideo(scanner interface{ Scan(dest ...any) error }) (*Video, error) {
	var (
		v                                          Video
		desc, url, thumb, published, ytPublished   sql.NullString
		durationText, category, source, classified sql.NullString
		views                                      sql.NullInt64
		isShort, humanValidated                    int
		confidence, beauty                         sql.NullFloat64
		createdRaw, updatedRaw                     string
	)
	if err := scanner.Scan(
		&v.ID, &v.CompetitorID, &v.VideoID, &v.Title, &desc, &url, &thumb, &published,
		&ytPublished, &v.DurationSeconds, &durationText, &views, &v.LikeCount,
		&v.CommentCount, &isShort, &category, &source, &humanValidated, &confidence,
		&classified, &beauty, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	v.Description = desc.String
	v.URL = url.String
	v.ThumbnailURL = thumb.String
	v.PublishedAt = published.String
	v.YouTubePublishedAt = ytPublished.String
	v.DurationText = durationText.String
	v.ViewCount = views.Int64
	v.IsShort = isShort != 0
	v.Category = taxonomy.CategoryFromDB(category.String)
	v.Source = taxonomy.SourceFromDB(source.String)
	v.HumanValidated = humanValidated != 0
	v.Confidence = confidence.Float64
	v.ClassificationDate = parseNullTime(classified)
	if beauty.Valid {
		score := beauty.Float64
		v.BeautyScore = &score
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		v.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		v.LastUpdated = t
	}
	return &v, nil
}

// GetVideo fetches a video by its YouTube id. Missing rows return nil, nil.
func (s *Store) GetVideo(ctx context.Context, videoID string) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM video WHERE video_id = ?`, videoID)
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	return v, nil
}

// FindVideoByTitle returns the most recent video whose title matches exactly.
func (s *Store) FindVideoByTitle(ctx context.Context, title string) (*Video, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM video WHERE title = ? ORDER BY id DESC LIMIT 1`,
		strings.TrimSpace(title))
	v, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find video by title: %w", err)
	}
	return v, nil
}

// ListVideos returns a competitor's videos, newest first. A zero id lists every video.
func (s *Store) ListVideos(ctx context.Context, competitorID int64) ([]*Video, error) {
	query := `SELECT ` + videoColumns + ` FROM video`
	var args []any
	if competitorID > 0 {
		query += ` WHERE concurrent_id = ?`
		args = append(args, competitorID)
	}
	query += ` ORDER BY COALESCE(youtube_published_at, published_at) DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var out []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// VideoIDsByRecency returns YouTube ids ordered by publication date, newest
// first. limit <= 0 returns every id.
func (s *Store) VideoIDsByRecency(ctx context.Context, limit int) ([]string, error) {
	query := `SELECT video_id FROM video ORDER BY COALESCE(youtube_published_at, published_at) DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list video ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan video id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplyMachineLabel writes an automated classification unless the video
// carries a human label. It reports whether the row changed.
func (s *Store) ApplyMachineLabel(ctx context.Context, videoID string, category taxonomy.Category, source taxonomy.Source, confidence float64) (bool, error) {
	if !category.Valid() {
		return false, fmt.Errorf("machine label: invalid category %q", category)
	}
	if !source.IsMachine() {
		return false, fmt.Errorf("machine label: %s is not a machine source", source)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE video SET category = ?, classification_source = ?, classification_confidence = ?,
            classification_date = ?
         WHERE video_id = ? AND `+machineWritable,
		string(category), string(source), confidence, nowString(), videoID,
	)
	if err != nil {
		return false, fmt.Errorf("apply machine label: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetHumanVideoCategory records a human label on a video and appends a
// human_correction feedback row carrying the previous category. It returns
// nil, nil when the video does not exist.
func (s *Store) SetHumanVideoCategory(ctx context.Context, videoID string, category taxonomy.Category, notes string) (*Video, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("human label: invalid category %q", category)
	}
	var updated *Video
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanVideo(tx.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM video WHERE video_id = ?`, videoID))
		if errors.Is(err, sql.ErrNoRows) {
			updated = nil
			return nil
		}
		if err != nil {
			return err
		}
		now := nowString()
		if _, err := tx.ExecContext(ctx,
			`UPDATE video SET category = ?, classification_source = 'human', is_human_validated = 1,
                classification_confidence = 100, classification_date = ?
             WHERE id = ?`,
			string(category), now, current.ID,
		); err != nil {
			return fmt.Errorf("update video label: %w", err)
		}
		if err := insertFeedback(ctx, tx, &Feedback{
			VideoRowID:        current.ID,
			Title:             current.Title,
			Description:       current.Description,
			OriginalCategory:  current.Category,
			CorrectedCategory: category,
			Type:              FeedbackHumanCorrection,
			Notes:             notes,
		}); err != nil {
			return err
		}
		updated, err = scanVideo(tx.QueryRowContext(ctx, `SELECT `+videoColumns+` FROM video WHERE id = ?`, current.ID))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set human video category: %w", err)
	}
	return updated, nil
}

// SetBeautyScore stores a thumbnail quality score in [0, 10].
func (s *Store) SetBeautyScore(ctx context.Context, videoID string, score float64) error {
	score = min(max(score, 0), 10)
	_, err := s.execWithRetry(ctx, `UPDATE video SET beauty_score = ? WHERE video_id = ?`, score, videoID)
	if err != nil {
		return fmt.Errorf("set beauty score: %w", err)
	}
	return nil
}

// VideoContexts joins competitor context onto the given YouTube ids.
func (s *Store) VideoContexts(ctx context.Context, videoIDs []string) (map[string]VideoContext, error) {
	out := make(map[string]VideoContext, len(videoIDs))
	const chunk = 500
	for start := 0; start < len(videoIDs); start += chunk {
		part := videoIDs[start:min(start+chunk, len(videoIDs))]
		rows, err := s.db.QueryContext(ctx,
			`SELECT v.video_id, v.title, COALESCE(v.thumbnail_url, ''), c.name, COALESCE(c.country, ''),
                    COALESCE(v.view_count, 0), v.like_count, v.comment_count,
                    COALESCE(v.youtube_published_at, v.published_at, '')
             FROM video v JOIN concurrent c ON c.id = v.concurrent_id
             WHERE v.video_id IN (`+makePlaceholders(len(part))+`)`,
			stringsToArgs(part)...,
		)
		if err != nil {
			return nil, fmt.Errorf("video contexts: %w", err)
		}
		for rows.Next() {
			var vc VideoContext
			if err := rows.Scan(&vc.VideoID, &vc.Title, &vc.ThumbnailURL, &vc.CompetitorName, &vc.Country,
				&vc.ViewCount, &vc.LikeCount, &vc.CommentCount, &vc.PublishedAt); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan video context: %w", err)
			}
			out[vc.VideoID] = vc
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ClassificationCounts reports how many videos carry each source.
func (s *Store) ClassificationCounts(ctx context.Context) (map[taxonomy.Source]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(classification_source, ''), COUNT(*) FROM video GROUP BY 1`)
	if err != nil {
		return nil, fmt.Errorf("classification counts: %w", err)
	}
	defer rows.Close()

	out := make(map[taxonomy.Source]int)
	for rows.Next() {
		var (
			source string
			count  int
		)
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("scan classification count: %w", err)
		}
		out[taxonomy.SourceFromDB(source)] += count
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
