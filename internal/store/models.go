package store

import (
	"time"

	"ytanalyzer/internal/taxonomy"
)

// Competitor is one tracked YouTube channel.
type Competitor struct {
	ID              int64
	Name            string
	ChannelID       string
	ChannelURL      string
	ThumbnailURL    string
	BannerURL       string
	Description     string
	SubscriberCount int64
	ViewCount       int64
	VideoCount      int64
	Country         string
	Language        string
	CreatedAt       time.Time
	LastUpdated     time.Time
}

// Video is one upload belonging to a competitor.
type Video struct {
	ID                 int64
	CompetitorID       int64
	VideoID            string
	Title              string
	Description        string
	URL                string
	ThumbnailURL       string
	PublishedAt        string
	YouTubePublishedAt string
	DurationSeconds    int
	DurationText       string
	ViewCount          int64
	LikeCount          int64
	CommentCount       int64
	IsShort            bool
	Category           taxonomy.Category
	Source             taxonomy.Source
	HumanValidated     bool
	Confidence         float64
	ClassificationDate *time.Time
	BeautyScore        *float64
	CreatedAt          time.Time
	LastUpdated        time.Time
}

// Label returns the stored classification of the video.
func (v *Video) Label() taxonomy.Label {
	return taxonomy.Label{Category: v.Category, Source: v.Source, HumanValidated: v.HumanValidated}
}

// Playlist is a channel playlist with its own classification.
type Playlist struct {
	ID                 int64
	CompetitorID       int64
	PlaylistID         string
	Name               string
	Description        string
	ThumbnailURL       string
	VideoCount         int64
	Category           taxonomy.Category
	Source             taxonomy.Source
	HumanVerified      bool
	HumanValidated     bool
	Confidence         float64
	ClassificationDate *time.Time
}

// Label returns the stored classification of the playlist.
func (p *Playlist) Label() taxonomy.Label {
	return taxonomy.Label{Category: p.Category, Source: p.Source, HumanValidated: p.HumanValidated || p.HumanVerified}
}

// VideoInput is a freshly fetched video handed to ingest or refresh.
type VideoInput struct {
	VideoID            string `json:"video_id"`
	URL                string `json:"url"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	ThumbnailURL       string `json:"thumbnail_url"`
	PublishedAt        string `json:"published_at"`
	YouTubePublishedAt string `json:"youtube_published_at"`
	DurationSeconds    int    `json:"duration_seconds"`
	Duration           string `json:"duration"`
	ViewCount          int64  `json:"view_count"`
	ViewCountText      string `json:"view_count_text"`
	LikeCount          int64  `json:"like_count"`
	CommentCount       int64  `json:"comment_count"`
}

// PlaylistInput is a playlist fetched alongside a channel.
type PlaylistInput struct {
	PlaylistID   string   `json:"playlist_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ThumbnailURL string   `json:"thumbnail_url"`
	VideoIDs     []string `json:"video_ids"`
}

// ChannelInfo carries optional channel metadata.
type ChannelInfo struct {
	Name            string          `json:"name"`
	ChannelID       string          `json:"channel_id"`
	Description     string          `json:"description"`
	ThumbnailURL    string          `json:"thumbnail_url"`
	BannerURL       string          `json:"banner_url"`
	SubscriberCount int64           `json:"subscriber_count"`
	ViewCount       int64           `json:"view_count"`
	VideoCount      int64           `json:"video_count"`
	Country         string          `json:"country"`
	Language        string          `json:"language"`
	Playlists       []PlaylistInput `json:"playlists"`
}

// Refresh actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
)

// RefreshStats summarizes one refresh transaction.
type RefreshStats struct {
	Action        string `json:"action"`
	CompetitorID  int64  `json:"competitor_id"`
	NewVideos     int    `json:"new_videos"`
	UpdatedVideos int    `json:"updated_videos"`
	TotalVideos   int    `json:"total_videos"`
	Playlists     int    `json:"playlists"`
}

// Feedback types.
const (
	FeedbackCorrection      = "correction"
	FeedbackHumanCorrection = "human_correction"
)

// Feedback is one immutable human correction.
type Feedback struct {
	ID                int64
	VideoRowID        int64
	Title             string
	Description       string
	OriginalCategory  taxonomy.Category
	CorrectedCategory taxonomy.Category
	Type              string
	Notes             string
	CreatedAt         time.Time
}

// LabelledText is one human-labelled training example.
type LabelledText struct {
	Title        string
	Description  string
	Category     taxonomy.Category
	Origin       string
	CompetitorID int64
}

// Training example origins.
const (
	OriginPlaylist = "playlist"
	OriginFeedback = "feedback"
	OriginVideo    = "video"
)

// VideoContext is the primary-store context joined onto emotion summaries and snapshots.
type VideoContext struct {
	VideoID        string
	Title          string
	ThumbnailURL   string
	CompetitorName string
	Country        string
	ViewCount      int64
	LikeCount      int64
	CommentCount   int64
	PublishedAt    string
}

// DuplicateGroup lists competitors sharing a lowercased name and channel id.
type DuplicateGroup struct {
	Name      string  `json:"name"`
	ChannelID string  `json:"channel_id"`
	IDs       []int64 `json:"ids"`
}

// CountryCount pairs a country with its number of competitors.
type CountryCount struct {
	Country     string `json:"country"`
	Competitors int    `json:"competitors"`
}

// AnalysisResult is a cached KPI bundle.
type AnalysisResult struct {
	Key           string
	AnalysisDate  time.Time
	PaidThreshold int
	MetricsJSON   string
}

// ClassifierState is the persisted training outcome for one semantic variant.
type ClassifierState struct {
	Variant            string
	TrainedAt          time.Time
	ExamplesUsed       int
	CategoryCountsJSON string
	ValidationJSON     string
	PrototypesJSON     string
}
