package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Above this rate the publication dates are assumed to be import stamps.
const maxPlausibleVideosPerWeek = 50

const dateLayout = "2006-01-02"

type lengthRow struct {
	Total  int             `db:"total"`
	Avg    sql.NullFloat64 `db:"avg_minutes"`
	Min    sql.NullFloat64 `db:"min_minutes"`
	Max    sql.NullFloat64 `db:"max_minutes"`
	Shorts int             `db:"shorts"`
}

func (s *Service) videoLength(ctx context.Context, sc scope) (VideoLength, error) {
	where, arg := sc.where("v")
	var row lengthRow
	err := s.db.GetContext(ctx, &row, `
        SELECT COUNT(*) AS total,
               AVG(v.duration_seconds / 60.0) AS avg_minutes,
               MIN(v.duration_seconds / 60.0) AS min_minutes,
               MAX(v.duration_seconds / 60.0) AS max_minutes,
               COUNT(CASE WHEN v.duration_seconds <= 60 THEN 1 END) AS shorts
        FROM video v JOIN concurrent c ON c.id = v.concurrent_id
        WHERE `+where+` AND v.duration_seconds > 0`, arg)
	if err != nil {
		return VideoLength{}, fmt.Errorf("video length: %w", err)
	}
	if row.Total == 0 {
		return VideoLength{}, nil
	}
	return VideoLength{
		TotalVideos:        row.Total,
		AvgDurationMinutes: round1(row.Avg.Float64),
		MinDurationMinutes: round1(row.Min.Float64),
		MaxDurationMinutes: round1(row.Max.Float64),
		ShortsCount:        row.Shorts,
		ShortsPercentage:   percentage(row.Shorts, row.Total),
	}, nil
}

type frequencyRow struct {
	Total        int            `db:"total"`
	First        sql.NullString `db:"first_date"`
	Last         sql.NullString `db:"last_date"`
	YouTubeDates int            `db:"youtube_dates"`
}

func (s *Service) videoFrequency(ctx context.Context, sc scope) (VideoFrequency, error) {
	where, arg := sc.where("v")
	var row frequencyRow
	err := s.db.GetContext(ctx, &row, `
        SELECT COUNT(*) AS total,
               MIN(DATE(COALESCE(v.youtube_published_at, v.published_at))) AS first_date,
               MAX(DATE(COALESCE(v.youtube_published_at, v.published_at))) AS last_date,
               COUNT(v.youtube_published_at) AS youtube_dates
        FROM video v JOIN concurrent c ON c.id = v.concurrent_id
        WHERE `+where+` AND (v.youtube_published_at IS NOT NULL OR v.published_at IS NOT NULL)`, arg)
	if err != nil {
		return VideoFrequency{}, fmt.Errorf("video frequency: %w", err)
	}
	return frequencyFrom(row), nil
}

func frequencyFrom(row frequencyRow) VideoFrequency {
	freq := VideoFrequency{
		TotalVideos:       row.Total,
		FirstVideoDate:    row.First.String,
		LastVideoDate:     row.Last.String,
		YouTubeDatesCount: row.YouTubeDates,
	}
	if row.Total == 0 || !row.First.Valid || !row.Last.Valid {
		return freq
	}
	if row.YouTubeDates == 0 && row.First.String == row.Last.String {
		freq.SuspectDates = true
		return freq
	}
	first, err1 := time.Parse(dateLayout, row.First.String)
	last, err2 := time.Parse(dateLayout, row.Last.String)
	if err1 != nil || err2 != nil {
		return freq
	}
	days := int(last.Sub(first).Hours()/24) + 1
	perWeek := float64(row.Total) * 7 / float64(days)
	if perWeek > maxPlausibleVideosPerWeek {
		freq.SuspectDates = true
		return freq
	}
	freq.DaysActive = days
	freq.VideosPerWeek = round1(perWeek)
	freq.ConsistencyScore = round1(min(10, freq.VideosPerWeek*2))
	return freq
}

type topicRow struct {
	Title      string         `db:"title"`
	VideoID    string         `db:"video_id"`
	Views      sql.NullInt64  `db:"views"`
	Likes      int64          `db:"likes"`
	Comments   int64          `db:"comments"`
	Engagement int64          `db:"engagement"`
	Category   sql.NullString `db:"category"`
}

func (s *Service) mostLikedTopics(ctx context.Context, sc scope) ([]Topic, error) {
	where, arg := sc.where("v")
	var rows []topicRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT v.title AS title,
               v.video_id AS video_id,
               v.view_count AS views,
               COALESCE(v.like_count, 0) AS likes,
               COALESCE(v.comment_count, 0) AS comments,
               COALESCE(v.like_count, 0) + COALESCE(v.comment_count, 0) AS engagement,
               v.category AS category
        FROM video v JOIN concurrent c ON c.id = v.concurrent_id
        WHERE `+where+` AND COALESCE(v.like_count, 0) + COALESCE(v.comment_count, 0) > 0
        ORDER BY engagement DESC, v.id ASC
        LIMIT 5`, arg)
	if err != nil {
		return nil, fmt.Errorf("most liked topics: %w", err)
	}
	topics := make([]Topic, 0, len(rows))
	for _, r := range rows {
		topics = append(topics, Topic{
			Topic:           r.Title,
			VideoID:         r.VideoID,
			Views:           r.Views.Int64,
			Likes:           r.Likes,
			Comments:        r.Comments,
			EngagementScore: r.Engagement,
			Category:        r.Category.String,
		})
	}
	return topics, nil
}

type splitRow struct {
	Organic int `db:"organic"`
	Paid    int `db:"paid"`
	Total   int `db:"total"`
}

func (r splitRow) split(threshold int) OrganicPaid {
	return OrganicPaid{
		OrganicCount:      r.Organic,
		PaidCount:         r.Paid,
		TotalCount:        r.Total,
		OrganicPercentage: percentage(r.Organic, r.Total),
		PaidPercentage:    percentage(r.Paid, r.Total),
		PaidThreshold:     threshold,
	}
}

func (s *Service) organicVsPaid(ctx context.Context, sc scope, threshold int) (OrganicPaid, error) {
	where, arg := sc.where("v")
	var row splitRow
	err := s.db.GetContext(ctx, &row, `
        SELECT COUNT(CASE WHEN v.view_count <= ? THEN 1 END) AS organic,
               COUNT(CASE WHEN v.view_count > ? THEN 1 END) AS paid,
               COUNT(*) AS total
        FROM video v JOIN concurrent c ON c.id = v.concurrent_id
        WHERE `+where+` AND v.view_count IS NOT NULL`, threshold, threshold, arg)
	if err != nil {
		return OrganicPaid{PaidThreshold: threshold}, fmt.Errorf("organic vs paid: %w", err)
	}
	return row.split(threshold), nil
}

type hhhRow struct {
	Hero        int `db:"hero"`
	Hub         int `db:"hub"`
	Help        int `db:"help"`
	Categorized int `db:"categorized"`
	Total       int `db:"total"`
}

func (s *Service) hhhDistribution(ctx context.Context, sc scope) (HHHDistribution, error) {
	where, arg := sc.where("v")
	var row hhhRow
	err := s.db.GetContext(ctx, &row, `
        SELECT COUNT(CASE WHEN v.category = 'hero' THEN 1 END) AS hero,
               COUNT(CASE WHEN v.category = 'hub' THEN 1 END) AS hub,
               COUNT(CASE WHEN v.category = 'help' THEN 1 END) AS help,
               COUNT(CASE WHEN v.category IN ('hero', 'hub', 'help') THEN 1 END) AS categorized,
               COUNT(*) AS total
        FROM video v JOIN concurrent c ON c.id = v.concurrent_id
        WHERE `+where, arg)
	if err != nil {
		return HHHDistribution{}, fmt.Errorf("hhh distribution: %w", err)
	}
	playlistWhere, playlistArg := sc.where("p")
	var playlists int
	err = s.db.GetContext(ctx, &playlists, `
        SELECT COUNT(*) FROM playlist p JOIN concurrent c ON c.id = p.concurrent_id
        WHERE `+playlistWhere, playlistArg)
	if err != nil {
		return HHHDistribution{}, fmt.Errorf("playlist count: %w", err)
	}

	dist := HHHDistribution{
		HeroCount:          row.Hero,
		HubCount:           row.Hub,
		HelpCount:          row.Help,
		CategorizedVideos:  row.Categorized,
		UncategorizedCount: row.Total - row.Categorized,
		TotalVideos:        row.Total,
		PlaylistCount:      playlists,
	}
	if row.Categorized == 0 {
		dist.HumanClassificationRequired = true
		return dist, nil
	}
	dist.HeroPercentage = percentage(row.Hero, row.Categorized)
	dist.HubPercentage = percentage(row.Hub, row.Categorized)
	dist.HelpPercentage = percentage(row.Help, row.Categorized)
	return dist, nil
}

type thumbnailRow struct {
	Total          int             `db:"total"`
	WithThumbnails int             `db:"with_thumbnails"`
	AvgBeauty      sql.NullFloat64 `db:"avg_beauty"`
}

func (s *Service) thumbnailConsistency(ctx context.Context, sc scope) (ThumbnailConsistency, error) {
	where, arg := sc.where("v")
	var row thumbnailRow
	err := s.db.GetContext(ctx, &row, `
        SELECT COUNT(*) AS total,
               COUNT(CASE WHEN v.thumbnail_url IS NOT NULL AND v.thumbnail_url <> '' THEN 1 END) AS with_thumbnails,
               AVG(COALESCE(v.beauty_score, 5)) AS avg_beauty
        FROM video v JOIN concurrent c ON c.id = v.concurrent_id
        WHERE `+where, arg)
	if err != nil {
		return ThumbnailConsistency{}, fmt.Errorf("thumbnail consistency: %w", err)
	}
	if row.Total == 0 {
		return ThumbnailConsistency{}, nil
	}
	return ThumbnailConsistency{
		TotalVideos:      row.Total,
		WithThumbnails:   row.WithThumbnails,
		ConsistencyScore: max(0, min(10, round1(row.AvgBeauty.Float64))),
	}, nil
}

func shortsDistribution(length VideoLength) ShortsDistribution {
	if length.TotalVideos == 0 {
		return ShortsDistribution{}
	}
	regular := length.TotalVideos - length.ShortsCount
	return ShortsDistribution{
		TotalVideos:       length.TotalVideos,
		ShortsCount:       length.ShortsCount,
		RegularCount:      regular,
		ShortsPercentage:  percentage(length.ShortsCount, length.TotalVideos),
		RegularPercentage: percentage(regular, length.TotalVideos),
	}
}
