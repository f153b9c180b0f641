package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/logging"
)

const (
	// Videos with fewer analysed comments are left out of the ranking.
	minVideoComments = 5
	maxVideos        = 100
)

type videoRow struct {
	VideoID       string          `db:"video_id"`
	Total         int             `db:"total"`
	Positive      int             `db:"positive"`
	Negative      int             `db:"negative"`
	Neutral       int             `db:"neutral"`
	AvgConfidence sql.NullFloat64 `db:"avg_confidence"`
}

type competitorRow struct {
	Competitor string `db:"competitor"`
	Positive   int    `db:"positive"`
	Negative   int    `db:"negative"`
	Neutral    int    `db:"neutral"`
	Total      int    `db:"total"`
}

type countryRow struct {
	Country  string `db:"country"`
	Positive int    `db:"positive"`
	Negative int    `db:"negative"`
	Neutral  int    `db:"neutral"`
}

type temporalRow struct {
	Period   string `db:"period"`
	Positive int    `db:"positive"`
	Negative int    `db:"negative"`
	Neutral  int    `db:"neutral"`
}

// Live builds a snapshot from the emotions store, enriched with video
// metadata from the primary store when one is configured.
func (s *Service) Live(ctx context.Context) (*Snapshot, error) {
	if s.emotions == nil {
		return nil, fmt.Errorf("emotions store not configured")
	}
	global, err := s.emotions.GlobalStats(ctx)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{
		ExportInfo: ExportInfo{
			ExportDate: s.now().UTC().Format(time.RFC3339),
			Source:     "live_database",
			Version:    exportVersion,
		},
		Stats: Stats{
			TotalVideosAnalyzed:   global.VideosAnalyzed,
			TotalCommentsAnalyzed: global.TotalComments,
			PositiveCount:         global.PositiveCount,
			NegativeCount:         global.NegativeCount,
			NeutralCount:          global.NeutralCount,
			PositivePercentage:    percentage(global.PositiveCount, global.TotalComments),
			NegativePercentage:    percentage(global.NegativeCount, global.TotalComments),
			NeutralPercentage:     percentage(global.NeutralCount, global.TotalComments),
			AvgConfidence:         round(global.AvgConfidence, 3),
		},
		ChartsData: Charts{
			GlobalDistribution: Distribution{
				Positive: global.PositiveCount,
				Negative: global.NegativeCount,
				Neutral:  global.NeutralCount,
			},
		},
	}
	if global.TotalComments == 0 {
		snap.normalize()
		return snap, nil
	}

	db := sqlx.NewDb(s.emotions.DB(), "sqlite")
	if snap.Videos, err = s.rankedVideos(ctx, db); err != nil {
		return nil, err
	}
	snap.ExportInfo.TotalVideos = len(snap.Videos)
	snap.Stats.EngagementCorrelation = engagementCorrelation(snap.Videos)
	if err := s.charts(ctx, db, &snap.ChartsData); err != nil {
		return nil, err
	}
	snap.normalize()
	return snap, nil
}

func (s *Service) rankedVideos(ctx context.Context, db *sqlx.DB) ([]Video, error) {
	var rows []videoRow
	err := db.SelectContext(ctx, &rows, `
        SELECT video_id,
               COUNT(*) AS total,
               SUM(CASE WHEN emotion_type = 'positive' THEN 1 ELSE 0 END) AS positive,
               SUM(CASE WHEN emotion_type = 'negative' THEN 1 ELSE 0 END) AS negative,
               SUM(CASE WHEN emotion_type = 'neutral' THEN 1 ELSE 0 END) AS neutral,
               AVG(confidence) AS avg_confidence
        FROM comment_emotions
        GROUP BY video_id
        HAVING COUNT(*) >= ?
        ORDER BY positive DESC, video_id
        LIMIT ?`, minVideoComments, maxVideos)
	if err != nil {
		return nil, fmt.Errorf("ranked videos: %w", err)
	}

	videos := make([]Video, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for i, r := range rows {
		videos = append(videos, Video{
			VideoID:            r.VideoID,
			TotalComments:      r.Total,
			PositiveCount:      r.Positive,
			NegativeCount:      r.Negative,
			NeutralCount:       r.Neutral,
			AvgConfidence:      math.Round(r.AvgConfidence.Float64 * 100),
			DominantSentiment:  string(emotionstore.Dominant(r.Positive, r.Neutral, r.Negative)),
			PositivePercentage: percentage(r.Positive, r.Total),
			Title:              "Title not available",
			CompetitorName:     "Unknown",
			Rank:               i + 1,
		})
		ids = append(ids, r.VideoID)
	}
	if s.primary == nil || len(ids) == 0 {
		return videos, nil
	}
	contexts, err := s.primary.VideoContexts(ctx, ids)
	if err != nil {
		logging.WarnWithContext(s.logger, "video metadata unavailable for snapshot", "snapshot_enrich_failed",
			logging.Error(err),
			logging.Impact("snapshot rows lack titles and view counts"),
		)
		return videos, nil
	}
	for i := range videos {
		vc, ok := contexts[videos[i].VideoID]
		if !ok {
			continue
		}
		if vc.Title != "" {
			videos[i].Title = vc.Title
		}
		if vc.CompetitorName != "" {
			videos[i].CompetitorName = vc.CompetitorName
		}
		videos[i].ThumbnailURL = vc.ThumbnailURL
		videos[i].ViewCount = vc.ViewCount
		videos[i].LikeCount = vc.LikeCount
		videos[i].OriginalCommentCount = vc.CommentCount
		videos[i].PublishedAt = vc.PublishedAt
	}
	return videos, nil
}

func (s *Service) charts(ctx context.Context, db *sqlx.DB, charts *Charts) error {
	var competitors []competitorRow
	err := db.SelectContext(ctx, &competitors, `
        SELECT competitor,
               SUM(positive_count) AS positive,
               SUM(negative_count) AS negative,
               SUM(neutral_count) AS neutral,
               SUM(total_comments) AS total
        FROM video_emotion_summary
        WHERE competitor IS NOT NULL AND competitor <> ''
        GROUP BY competitor
        ORDER BY total DESC, competitor`)
	if err != nil {
		return fmt.Errorf("competitor sentiment: %w", err)
	}
	for _, r := range competitors {
		charts.CompetitorSentimentData = append(charts.CompetitorSentimentData, CompetitorSentiment{
			Competitor:   r.Competitor,
			Distribution: Distribution{Positive: r.Positive, Negative: r.Negative, Neutral: r.Neutral},
			Total:        r.Total,
		})
	}

	var countries []countryRow
	err = db.SelectContext(ctx, &countries, `
        SELECT country,
               SUM(positive_count) AS positive,
               SUM(negative_count) AS negative,
               SUM(neutral_count) AS neutral
        FROM video_emotion_summary
        WHERE country IS NOT NULL AND country <> ''
        GROUP BY country`)
	if err != nil {
		return fmt.Errorf("country sentiment: %w", err)
	}
	charts.CountrySentimentData = make(map[string]Distribution, len(countries))
	for _, r := range countries {
		charts.CountrySentimentData[r.Country] = Distribution{Positive: r.Positive, Negative: r.Negative, Neutral: r.Neutral}
	}

	var periods []temporalRow
	err = db.SelectContext(ctx, &periods, `
        SELECT substr(published_at, 1, 7) AS period,
               SUM(CASE WHEN emotion_type = 'positive' THEN 1 ELSE 0 END) AS positive,
               SUM(CASE WHEN emotion_type = 'negative' THEN 1 ELSE 0 END) AS negative,
               SUM(CASE WHEN emotion_type = 'neutral' THEN 1 ELSE 0 END) AS neutral
        FROM comment_emotions
        WHERE published_at IS NOT NULL AND length(published_at) >= 7
        GROUP BY period
        ORDER BY period`)
	if err != nil {
		return fmt.Errorf("temporal sentiment: %w", err)
	}
	for _, r := range periods {
		charts.TemporalSentimentData = append(charts.TemporalSentimentData, TemporalPoint{
			Period:       r.Period,
			Distribution: Distribution{Positive: r.Positive, Negative: r.Negative, Neutral: r.Neutral},
		})
	}
	return nil
}

// engagementCorrelation is the Pearson correlation between the positive
// share of a video and its like count. Fewer than three videos yield zero.
func engagementCorrelation(videos []Video) float64 {
	if len(videos) < 3 {
		return 0
	}
	n := float64(len(videos))
	var sumX, sumY float64
	for _, v := range videos {
		sumX += v.PositivePercentage
		sumY += float64(v.LikeCount)
	}
	meanX, meanY := sumX/n, sumY/n
	var cov, varX, varY float64
	for _, v := range videos {
		dx := v.PositivePercentage - meanX
		dy := float64(v.LikeCount) - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return round(cov/math.Sqrt(varX*varY), 2)
}

func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return round(float64(part)/float64(total)*100, 1)
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
