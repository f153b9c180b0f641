package api

import (
	"time"

	"ytanalyzer/internal/classify"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/taxonomy"
)

// Competitor is the transport representation of a stored channel.
type Competitor struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ChannelID       string `json:"channel_id,omitempty"`
	ChannelURL      string `json:"channel_url"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	Description     string `json:"description,omitempty"`
	SubscriberCount int64  `json:"subscriber_count"`
	ViewCount       int64  `json:"view_count"`
	VideoCount      int64  `json:"video_count"`
	Country         string `json:"country,omitempty"`
	Language        string `json:"language,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	LastUpdated     string `json:"last_updated,omitempty"`
}

// Video is the transport representation of a stored video and its label.
type Video struct {
	VideoID              string            `json:"video_id"`
	CompetitorID         int64             `json:"competitor_id"`
	Title                string            `json:"title"`
	URL                  string            `json:"url,omitempty"`
	ViewCount            int64             `json:"view_count"`
	LikeCount            int64             `json:"like_count"`
	CommentCount         int64             `json:"comment_count"`
	IsShort              bool              `json:"is_short"`
	Category             taxonomy.Category `json:"category,omitempty"`
	ClassificationSource taxonomy.Source   `json:"classification_source,omitempty"`
	HumanValidated       bool              `json:"human_validated"`
	Confidence           float64           `json:"confidence"`
	ClassificationDate   string            `json:"classification_date,omitempty"`
}

// Ingested is the payload of IngestChannel.
type Ingested struct {
	CompetitorID int64             `json:"competitor_id"`
	Stats        store.RefreshStats `json:"refresh_stats"`
}

// Feedback is the payload of SubmitFeedback.
type Feedback struct {
	Title             string            `json:"title"`
	MatchedVideo      bool              `json:"matched_video"`
	OriginalCategory  taxonomy.Category `json:"original_category,omitempty"`
	CorrectedCategory taxonomy.Category `json:"corrected_category"`
	Type              string            `json:"feedback_type"`
	CreatedAt         string            `json:"created_at"`
}

// TrainRequest tunes TrainClassifier.
type TrainRequest struct {
	// NonInteractive skips the Confirm callback.
	NonInteractive bool
	// Confirm is asked before training when NonInteractive is false. A nil
	// Confirm accepts.
	Confirm  func(TrainingPreview) bool
	TestSize int
	Seed     uint64
}

// TrainingPreview summarises the examples a training run would use.
type TrainingPreview struct {
	Examples       int                       `json:"examples"`
	CategoryCounts map[taxonomy.Category]int `json:"category_counts"`
	Origins        map[string]int            `json:"origins"`
}

// ScrapeRequest configures StartScrapeBatch. All overrides Size.
type ScrapeRequest struct {
	Size    int  `json:"size"`
	All     bool `json:"all"`
	Resume  bool `json:"resume"`
	Massive bool `json:"massive"`
}

// Settings is the payload of UpdateSettings.
type Settings struct {
	PaidThreshold int `json:"paid_threshold"`
}

// Deleted is the payload of DeleteCompetitor.
type Deleted struct {
	CompetitorID int64 `json:"competitor_id"`
	Deleted      bool  `json:"deleted"`
}

// ClassificationStatus pairs the last training run with label counts.
type ClassificationStatus struct {
	Training classify.TrainingMetadata `json:"training"`
	Sources  map[taxonomy.Source]int   `json:"sources"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FromCompetitor converts a stored competitor.
func FromCompetitor(c *store.Competitor) Competitor {
	if c == nil {
		return Competitor{}
	}
	return Competitor{
		ID:              c.ID,
		Name:            c.Name,
		ChannelID:       c.ChannelID,
		ChannelURL:      c.ChannelURL,
		ThumbnailURL:    c.ThumbnailURL,
		Description:     c.Description,
		SubscriberCount: c.SubscriberCount,
		ViewCount:       c.ViewCount,
		VideoCount:      c.VideoCount,
		Country:         c.Country,
		Language:        c.Language,
		CreatedAt:       formatTime(c.CreatedAt),
		LastUpdated:     formatTime(c.LastUpdated),
	}
}

// FromCompetitors converts a slice of stored competitors, skipping nils.
func FromCompetitors(items []*store.Competitor) []Competitor {
	out := make([]Competitor, 0, len(items))
	for _, c := range items {
		if c == nil {
			continue
		}
		out = append(out, FromCompetitor(c))
	}
	return out
}

// FromVideo converts a stored video.
func FromVideo(v *store.Video) Video {
	if v == nil {
		return Video{}
	}
	dto := Video{
		VideoID:              v.VideoID,
		CompetitorID:         v.CompetitorID,
		Title:                v.Title,
		URL:                  v.URL,
		ViewCount:            v.ViewCount,
		LikeCount:            v.LikeCount,
		CommentCount:         v.CommentCount,
		IsShort:              v.IsShort,
		Category:             v.Category,
		ClassificationSource: v.Source,
		HumanValidated:       v.HumanValidated,
		Confidence:           v.Confidence,
	}
	if v.ClassificationDate != nil {
		dto.ClassificationDate = formatTime(*v.ClassificationDate)
	}
	return dto
}

// FromFeedback converts a stored feedback row.
func FromFeedback(fb *store.Feedback) Feedback {
	if fb == nil {
		return Feedback{}
	}
	return Feedback{
		Title:             fb.Title,
		MatchedVideo:      fb.VideoRowID != 0,
		OriginalCategory:  fb.OriginalCategory,
		CorrectedCategory: fb.CorrectedCategory,
		Type:              fb.Type,
		CreatedAt:         formatTime(fb.CreatedAt),
	}
}
