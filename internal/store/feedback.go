package store

import (
	"context"
	"database/sql"
	"fmt"

	"ytanalyzer/internal/taxonomy"
)

func insertFeedback(ctx context.Context, tx *sql.Tx, fb *Feedback) error {
	var videoRef any
	if fb.VideoRowID > 0 {
		videoRef = fb.VideoRowID
	}
	var original any
	if fb.OriginalCategory.Valid() {
		original = string(fb.OriginalCategory)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO classification_feedback (
            video_id, title, description, original_category, corrected_category, feedback_type, notes, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		videoRef, nullableString(fb.Title), nullableString(fb.Description), original,
		string(fb.CorrectedCategory), fb.Type, nullableString(fb.Notes), nowString(),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// AddFeedback appends a correction to the feedback log.
func (s *Store) AddFeedback(ctx context.Context, fb Feedback) error {
	if !fb.CorrectedCategory.Valid() {
		return fmt.Errorf("feedback: invalid category %q", fb.CorrectedCategory)
	}
	if fb.Type == "" {
		fb.Type = FeedbackCorrection
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertFeedback(ctx, tx, &fb)
	})
}

// ListFeedback returns the feedback log, newest first.
func (s *Store) ListFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	query := `SELECT id, COALESCE(video_id, 0), COALESCE(title, ''), COALESCE(description, ''),
                     COALESCE(original_category, ''), corrected_category, feedback_type,
                     COALESCE(notes, ''), created_at
              FROM classification_feedback ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	var out []Feedback
	for rows.Next() {
		var (
			fb                  Feedback
			original, corrected string
			created             string
		)
		if err := rows.Scan(&fb.ID, &fb.VideoRowID, &fb.Title, &fb.Description, &original,
			&corrected, &fb.Type, &fb.Notes, &created); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		fb.OriginalCategory = taxonomy.CategoryFromDB(original)
		fb.CorrectedCategory = taxonomy.CategoryFromDB(corrected)
		if t, err := parseTimeString(created); err == nil {
			fb.CreatedAt = t
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}
