package store

import (
	"context"
	"fmt"
	"strings"

	"ytanalyzer/internal/taxonomy"
)

// humanVideoExampleLimit caps the human-labelled videos read per training run.
const humanVideoExampleLimit = 500

// HumanExamples collects every human-labelled text: human playlists, feedback
// rows joined to their video, and human videos not already covered by feedback.
func (s *Store) HumanExamples(ctx context.Context) ([]LabelledText, error) {
	var out []LabelledText

	playlists, err := s.collectExamples(ctx, OriginPlaylist,
		`SELECT name, COALESCE(description, ''), category, concurrent_id FROM playlist
         WHERE (classification_source = 'human' OR human_verified = 1)
           AND category IN ('hero', 'hub', 'help')
         ORDER BY id`)
	if err != nil {
		return nil, err
	}
	out = append(out, playlists...)

	feedback, err := s.collectExamples(ctx, OriginFeedback,
		`SELECT COALESCE(v.title, f.title, ''), COALESCE(v.description, f.description, ''),
                f.corrected_category, COALESCE(v.concurrent_id, 0)
         FROM classification_feedback f
         LEFT JOIN video v ON v.id = f.video_id
         WHERE f.feedback_type IN ('correction', 'human_correction')
         ORDER BY f.id`)
	if err != nil {
		return nil, err
	}
	seenTitles := make(map[string]struct{}, len(feedback))
	for _, ex := range feedback {
		if strings.TrimSpace(ex.Title) == "" {
			continue
		}
		seenTitles[ex.Title] = struct{}{}
		out = append(out, ex)
	}

	videos, err := s.collectExamples(ctx, OriginVideo,
		fmt.Sprintf(`SELECT title, COALESCE(description, ''), category, concurrent_id FROM video
         WHERE (classification_source = 'human' OR is_human_validated = 1)
           AND category IN ('hero', 'hub', 'help')
         ORDER BY classification_date DESC, id DESC
         LIMIT %d`, humanVideoExampleLimit))
	if err != nil {
		return nil, err
	}
	for _, ex := range videos {
		if _, dup := seenTitles[ex.Title]; dup {
			continue
		}
		out = append(out, ex)
	}
	return out, nil
}

func (s *Store) collectExamples(ctx context.Context, origin, query string) ([]LabelledText, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("collect %s examples: %w", origin, err)
	}
	defer rows.Close()

	var out []LabelledText
	for rows.Next() {
		var (
			ex       LabelledText
			category string
		)
		if err := rows.Scan(&ex.Title, &ex.Description, &category, &ex.CompetitorID); err != nil {
			return nil, fmt.Errorf("scan %s example: %w", origin, err)
		}
		ex.Category = taxonomy.CategoryFromDB(category)
		if !ex.Category.Valid() {
			continue
		}
		ex.Origin = origin
		out = append(out, ex)
	}
	return out, rows.Err()
}
