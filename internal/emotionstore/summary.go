package emotionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Origin enriches a summary with data held by the primary store.
type Origin struct {
	Competitor string
	Country    string
}

// Summary is the per-video emotion aggregate.
type Summary struct {
	VideoID              string         `json:"video_id"`
	DominantEmotion      EmotionType    `json:"dominant_emotion"`
	DiversityScore       float64        `json:"emotion_diversity_score"`
	AvgConfidence        float64        `json:"avg_confidence"`
	TotalComments        int            `json:"total_comments"`
	PositiveCount        int            `json:"positive_count"`
	NegativeCount        int            `json:"negative_count"`
	NeutralCount         int            `json:"neutral_count"`
	PositiveRatio        float64        `json:"positive_ratio"`
	NegativeRatio        float64        `json:"negative_ratio"`
	NeutralRatio         float64        `json:"neutral_ratio"`
	LanguageDistribution map[string]int `json:"language_distribution"`
	Country              string         `json:"country,omitempty"`
	Competitor           string         `json:"competitor,omitempty"`
	LastUpdated          time.Time      `json:"last_updated"`
}

// Dominant returns the class with the highest count. Ties resolve in
// positive, neutral, negative order.
func Dominant(positive, neutral, negative int) EmotionType {
	best, bestCount := EmotionPositive, positive
	if neutral > bestCount {
		best, bestCount = EmotionNeutral, neutral
	}
	if negative > bestCount {
		best = EmotionNegative
	}
	return best
}

const summaryChunk = 500

// RegenerateSummaries rebuilds the summaries of the given videos from
// comment_emotions. Videos left without emotions lose their summary.
// It returns the number of summaries written.
func (s *Store) RegenerateSummaries(ctx context.Context, videoIDs []string, origins map[string]Origin) (int, error) {
	written := 0
	for start := 0; start < len(videoIDs); start += summaryChunk {
		chunk := videoIDs[start:min(start+summaryChunk, len(videoIDs))]
		summaries, err := s.aggregate(ctx, chunk)
		if err != nil {
			return written, err
		}
		for i := range summaries {
			if o, ok := origins[summaries[i].VideoID]; ok {
				summaries[i].Competitor = o.Competitor
				summaries[i].Country = o.Country
			}
		}
		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM video_emotion_summary WHERE video_id IN (`+placeholders(len(chunk))+`)`,
				stringArgs(chunk)...); err != nil {
				return fmt.Errorf("clear summaries: %w", err)
			}
			for _, sum := range summaries {
				if err := insertSummary(ctx, tx, sum); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return written, fmt.Errorf("regenerate summaries: %w", err)
		}
		written += len(summaries)
	}
	return written, nil
}

// RegenerateAll rebuilds the summary of every video with emotions.
func (s *Store) RegenerateAll(ctx context.Context, origins map[string]Origin) (int, error) {
	ids, err := s.AnalyzedVideoIDs(ctx)
	if err != nil {
		return 0, err
	}
	return s.RegenerateSummaries(ctx, ids, origins)
}

// AnalyzedVideoIDs lists videos having at least one emotion row.
func (s *Store) AnalyzedVideoIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT video_id FROM comment_emotions ORDER BY video_id`)
	if err != nil {
		return nil, fmt.Errorf("analyzed videos: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan analyzed video: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// aggregate computes the summaries of videoIDs in one grouped query: counts
// per language first, folded into per-video totals and a JSON language map.
func (s *Store) aggregate(ctx context.Context, videoIDs []string) ([]Summary, error) {
	if len(videoIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`WITH per_language AS (
             SELECT video_id, COALESCE(language, 'unknown') AS lang, COUNT(*) AS n,
                    SUM(emotion_type = 'positive') AS pos, SUM(emotion_type = 'negative') AS neg,
                    SUM(emotion_type = 'neutral') AS neu, SUM(confidence) AS conf
             FROM comment_emotions
             WHERE video_id IN (`+placeholders(len(videoIDs))+`)
             GROUP BY video_id, lang
         )
         SELECT video_id, SUM(n), SUM(pos), SUM(neg), SUM(neu), SUM(conf) / SUM(n),
                (SUM(pos) > 0) + (SUM(neg) > 0) + (SUM(neu) > 0),
                json_group_object(lang, n)
         FROM per_language
         GROUP BY video_id
         ORDER BY video_id`, stringArgs(videoIDs)...)
	if err != nil {
		return nil, fmt.Errorf("aggregate emotions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	now := time.Now().UTC()
	for rows.Next() {
		var (
			sum      Summary
			distinct int
			langs    string
		)
		if err := rows.Scan(&sum.VideoID, &sum.TotalComments, &sum.PositiveCount, &sum.NegativeCount,
			&sum.NeutralCount, &sum.AvgConfidence, &distinct, &langs); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		if err := json.Unmarshal([]byte(langs), &sum.LanguageDistribution); err != nil {
			return nil, fmt.Errorf("decode language aggregate for %s: %w", sum.VideoID, err)
		}
		total := float64(sum.TotalComments)
		sum.PositiveRatio = round4(float64(sum.PositiveCount) / total)
		sum.NegativeRatio = round4(float64(sum.NegativeCount) / total)
		sum.NeutralRatio = round4(float64(sum.NeutralCount) / total)
		sum.AvgConfidence = round4(sum.AvgConfidence)
		sum.DominantEmotion = Dominant(sum.PositiveCount, sum.NeutralCount, sum.NegativeCount)
		sum.DiversityScore = float64(distinct)
		sum.LastUpdated = now
		out = append(out, sum)
	}
	return out, rows.Err()
}

func insertSummary(ctx context.Context, tx *sql.Tx, sum Summary) error {
	langs, err := json.Marshal(sum.LanguageDistribution)
	if err != nil {
		return fmt.Errorf("encode language distribution: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO video_emotion_summary (
            video_id, dominant_emotion, emotion_diversity_score, avg_confidence, total_comments,
            positive_count, negative_count, neutral_count, positive_ratio, negative_ratio,
            neutral_ratio, language_distribution, country, competitor, last_updated
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sum.VideoID, string(sum.DominantEmotion), sum.DiversityScore, sum.AvgConfidence, sum.TotalComments,
		sum.PositiveCount, sum.NegativeCount, sum.NeutralCount, sum.PositiveRatio, sum.NegativeRatio,
		sum.NeutralRatio, string(langs), nullableString(sum.Country), nullableString(sum.Competitor),
		sum.LastUpdated.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert summary %s: %w", sum.VideoID, err)
	}
	return nil
}

const summaryColumns = `video_id, dominant_emotion, emotion_diversity_score, avg_confidence, total_comments,
    positive_count, negative_count, neutral_count, positive_ratio, negative_ratio, neutral_ratio,
    language_distribution, COALESCE(country, ''), COALESCE(competitor, ''), last_updated`

func scanSummary(scanner interface{ Scan(dest ...any) error }) (*Summary, error) {
	var (
		sum             Summary
		dominant, langs string
		updated         string
	)
	if err := scanner.Scan(&sum.VideoID, &dominant, &sum.DiversityScore, &sum.AvgConfidence, &sum.TotalComments,
		&sum.PositiveCount, &sum.NegativeCount, &sum.NeutralCount, &sum.PositiveRatio, &sum.NegativeRatio,
		&sum.NeutralRatio, &langs, &sum.Country, &sum.Competitor, &updated); err != nil {
		return nil, err
	}
	sum.DominantEmotion = EmotionType(dominant)
	sum.LastUpdated = parseTime(updated)
	sum.LanguageDistribution = make(map[string]int)
	if langs != "" {
		if err := json.Unmarshal([]byte(langs), &sum.LanguageDistribution); err != nil {
			return nil, fmt.Errorf("decode language distribution: %w", err)
		}
	}
	return &sum, nil
}

// GetSummary returns the summary of a video, or nil, nil.
func (s *Store) GetSummary(ctx context.Context, videoID string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM video_emotion_summary WHERE video_id = ?`, videoID)
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}
	return sum, nil
}

// ListSummaries returns every summary, most commented first.
func (s *Store) ListSummaries(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM video_emotion_summary ORDER BY total_comments DESC, video_id`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, *sum)
	}
	return out, rows.Err()
}

func round4(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10000) / 10000
}
