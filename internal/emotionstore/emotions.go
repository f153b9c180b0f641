package emotionstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EmotionType is one of the three sentiment classes.
type EmotionType string

const (
	EmotionPositive EmotionType = "positive"
	EmotionNegative EmotionType = "negative"
	EmotionNeutral  EmotionType = "neutral"
)

// EmotionTypes lists the classes in tie-break order.
var EmotionTypes = []EmotionType{EmotionPositive, EmotionNeutral, EmotionNegative}

// Valid reports whether e is a known class.
func (e EmotionType) Valid() bool {
	switch e {
	case EmotionPositive, EmotionNegative, EmotionNeutral:
		return true
	}
	return false
}

// Emotion is the analysed sentiment of one comment.
type Emotion struct {
	Type          EmotionType
	Confidence    float64
	WeightedScore float64
	AnalyzedAt    time.Time
}

// WeightedScore boosts confidence by 10% per like.
func WeightedScore(confidence float64, likes int64) float64 {
	return confidence * (1 + 0.1*float64(max(likes, 0)))
}

// Outcome is the analysis result of one raw comment. A nil Emotion marks the
// comment processed without writing an emotion row.
type Outcome struct {
	Comment  RawComment
	Language string
	Emotion  *Emotion
}

// RecordOutcomes marks each comment processed and writes its emotion in the
// same transaction, committing every commitEvery outcomes.
func (s *Store) RecordOutcomes(ctx context.Context, outcomes []Outcome, commitEvery int) error {
	if commitEvery <= 0 {
		commitEvery = 10
	}
	for start := 0; start < len(outcomes); start += commitEvery {
		end := min(start+commitEvery, len(outcomes))
		chunk := outcomes[start:end]
		if err := s.withTx(ctx, func(tx *sql.Tx) error {
			return recordChunk(ctx, tx, chunk)
		}); err != nil {
			return fmt.Errorf("record outcomes: %w", err)
		}
	}
	return nil
}

func recordChunk(ctx context.Context, tx *sql.Tx, chunk []Outcome) error {
	for _, o := range chunk {
		if _, err := tx.ExecContext(ctx,
			`UPDATE raw_comments SET processed = 1, language = COALESCE(?, language) WHERE id = ?`,
			nullableString(o.Language), o.Comment.ID,
		); err != nil {
			return fmt.Errorf("mark processed %s: %w", o.Comment.CommentID, err)
		}
		if o.Emotion == nil {
			continue
		}
		analyzed := o.Emotion.AnalyzedAt
		if analyzed.IsZero() {
			analyzed = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO comment_emotions (
                comment_id, video_id, emotion_type, confidence, language, like_count,
                weighted_score, published_at, author_name, analyzed_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.Comment.CommentID, o.Comment.VideoID, string(o.Emotion.Type), o.Emotion.Confidence,
			nullableString(o.Language), max(o.Comment.LikeCount, 0), o.Emotion.WeightedScore,
			nullableString(o.Comment.PublishedAt), nullableString(o.Comment.AuthorName),
			analyzed.UTC().Format(timeLayout),
		); err != nil {
			return fmt.Errorf("insert emotion %s: %w", o.Comment.CommentID, err)
		}
	}
	return nil
}

// GlobalStats mirrors the emotion_global_stats view.
type GlobalStats struct {
	TotalComments     int     `json:"total_comments"`
	PositiveCount     int     `json:"positive_count"`
	NegativeCount     int     `json:"negative_count"`
	NeutralCount      int     `json:"neutral_count"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgWeightedScore  float64 `json:"avg_weighted_score"`
	VideosAnalyzed    int     `json:"videos_analyzed"`
	LanguagesDetected int     `json:"languages_detected"`
}

// GlobalStats reads the aggregate view.
func (s *Store) GlobalStats(ctx context.Context) (GlobalStats, error) {
	var g GlobalStats
	err := s.db.QueryRowContext(ctx,
		`SELECT total_comments, positive_count, negative_count, neutral_count, avg_confidence,
                avg_weighted_score, videos_analyzed, languages_detected
         FROM emotion_global_stats`,
	).Scan(&g.TotalComments, &g.PositiveCount, &g.NegativeCount, &g.NeutralCount,
		&g.AvgConfidence, &g.AvgWeightedScore, &g.VideosAnalyzed, &g.LanguagesDetected)
	if err != nil {
		return g, fmt.Errorf("global stats: %w", err)
	}
	return g, nil
}

// EmotionBreakdown is one row of emotion_detailed_stats.
type EmotionBreakdown struct {
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	TotalLikes    int64   `json:"total_likes"`
}

// Stats reports raw and processed totals with per-emotion and per-language breakdowns.
type Stats struct {
	RawComments       int                              `json:"raw_comments"`
	ProcessedComments int                              `json:"processed_comments"`
	PendingComments   int                              `json:"pending_comments"`
	Emotions          map[EmotionType]EmotionBreakdown `json:"emotions"`
	Languages         map[string]int                   `json:"languages"`
	Global            GlobalStats                      `json:"global"`
}

// Stats gathers analyser statistics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{Emotions: make(map[EmotionType]EmotionBreakdown), Languages: make(map[string]int)}
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(processed), 0) FROM raw_comments`,
	).Scan(&st.RawComments, &st.ProcessedComments); err != nil {
		return st, fmt.Errorf("count comments: %w", err)
	}
	st.PendingComments = st.RawComments - st.ProcessedComments

	rows, err := s.db.QueryContext(ctx,
		`SELECT emotion_type, count, avg_confidence, COALESCE(total_likes, 0) FROM emotion_detailed_stats`)
	if err != nil {
		return st, fmt.Errorf("detailed stats: %w", err)
	}
	for rows.Next() {
		var (
			kind string
			b    EmotionBreakdown
		)
		if err := rows.Scan(&kind, &b.Count, &b.AvgConfidence, &b.TotalLikes); err != nil {
			rows.Close()
			return st, fmt.Errorf("scan detailed stats: %w", err)
		}
		st.Emotions[EmotionType(kind)] = b
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return st, err
	}

	langRows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(language, 'unknown'), COUNT(*) FROM comment_emotions GROUP BY 1`)
	if err != nil {
		return st, fmt.Errorf("language stats: %w", err)
	}
	defer langRows.Close()
	for langRows.Next() {
		var (
			lang  string
			count int
		)
		if err := langRows.Scan(&lang, &count); err != nil {
			return st, fmt.Errorf("scan language stats: %w", err)
		}
		st.Languages[lang] = count
	}
	if err := langRows.Err(); err != nil {
		return st, err
	}

	global, err := s.GlobalStats(ctx)
	if err != nil {
		return st, err
	}
	st.Global = global
	return st, nil
}
