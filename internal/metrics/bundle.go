package metrics

import "time"

// Scope kinds.
const (
	ScopeCompetitor = "competitor"
	ScopeCountry    = "country"
)

// Data quality flags.
const (
	FlagSuspectDates                = "suspect_dates"
	FlagHumanClassificationRequired = "human_classification_required"
	FlagNoVideos                    = "no_videos"
	FlagQueryFailed                 = "query_failed"
	FlagSettingsUnreadable          = "settings_unreadable"
)

// Dominant tones.
const (
	ToneFamily    = "Family"
	ToneAdventure = "Adventure"
	ToneNeutral   = "Neutral"
)

type VideoLength struct {
	TotalVideos        int     `json:"total_videos"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
	MinDurationMinutes float64 `json:"min_duration_minutes"`
	MaxDurationMinutes float64 `json:"max_duration_minutes"`
	ShortsCount        int     `json:"shorts_count"`
	ShortsPercentage   float64 `json:"shorts_percentage"`
}

type VideoFrequency struct {
	TotalVideos       int     `json:"total_videos"`
	FirstVideoDate    string  `json:"first_video_date,omitempty"`
	LastVideoDate     string  `json:"last_video_date,omitempty"`
	YouTubeDatesCount int     `json:"youtube_dates_count"`
	DaysActive        int     `json:"days_active"`
	VideosPerWeek     float64 `json:"videos_per_week"`
	ConsistencyScore  float64 `json:"consistency_score"`
	SuspectDates      bool    `json:"suspect_dates"`
}

// Topic is one of the most engaging videos in scope.
type Topic struct {
	Topic           string `json:"topic"`
	VideoID         string `json:"video_id"`
	Views           int64  `json:"views"`
	Likes           int64  `json:"likes"`
	Comments        int64  `json:"comments"`
	EngagementScore int64  `json:"engagement_score"`
	Category        string `json:"category,omitempty"`
}

type OrganicPaid struct {
	OrganicCount      int     `json:"organic_count"`
	PaidCount         int     `json:"paid_count"`
	TotalCount        int     `json:"total_count"`
	OrganicPercentage float64 `json:"organic_percentage"`
	PaidPercentage    float64 `json:"paid_percentage"`
	PaidThreshold     int     `json:"paid_threshold"`
}

type HHHDistribution struct {
	HeroCount                   int     `json:"hero_count"`
	HubCount                    int     `json:"hub_count"`
	HelpCount                   int     `json:"help_count"`
	HeroPercentage              float64 `json:"hero_percentage"`
	HubPercentage               float64 `json:"hub_percentage"`
	HelpPercentage              float64 `json:"help_percentage"`
	CategorizedVideos           int     `json:"categorized_videos"`
	UncategorizedCount          int     `json:"uncategorized_count"`
	TotalVideos                 int     `json:"total_videos"`
	PlaylistCount               int     `json:"playlist_count"`
	HumanClassificationRequired bool    `json:"human_classification_required"`
}

type ThumbnailConsistency struct {
	TotalVideos      int     `json:"total_videos"`
	WithThumbnails   int     `json:"with_thumbnails"`
	ConsistencyScore float64 `json:"consistency_score"`
}

type ToneOfVoice struct {
	TitlesAnalyzed int      `json:"titles_analyzed"`
	EmotionalWords int      `json:"emotional_words"`
	ActionWords    int      `json:"action_words"`
	AvgTitleLength float64  `json:"avg_title_length"`
	TopKeywords    []string `json:"top_keywords"`
	DominantTone   string   `json:"dominant_tone"`
}

type ShortsDistribution struct {
	TotalVideos       int     `json:"total_videos"`
	ShortsCount       int     `json:"shorts_count"`
	RegularCount      int     `json:"regular_count"`
	ShortsPercentage  float64 `json:"shorts_percentage"`
	RegularPercentage float64 `json:"regular_percentage"`
}

// DataQuality explains zeroed or suppressed KPIs.
type DataQuality struct {
	OK       bool     `json:"ok"`
	Flags    []string `json:"flags"`
	Warnings []string `json:"warnings"`
}

func (q *DataQuality) flag(name, warning string) {
	for _, existing := range q.Flags {
		if existing == name {
			return
		}
	}
	q.Flags = append(q.Flags, name)
	if warning != "" {
		q.Warnings = append(q.Warnings, warning)
	}
	q.OK = false
}

// Has reports whether flag is set.
func (q DataQuality) Has(flag string) bool {
	for _, existing := range q.Flags {
		if existing == flag {
			return true
		}
	}
	return false
}

// CompetitorRef names a competitor included in a country bundle.
type CompetitorRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Bundle is the full KPI set for one scope.
type Bundle struct {
	Scope                string               `json:"scope"`
	CompetitorID         int64                `json:"competitor_id,omitempty"`
	Country              string               `json:"country,omitempty"`
	Competitors          []CompetitorRef      `json:"competitors,omitempty"`
	PaidThreshold        int                  `json:"paid_threshold"`
	ComputedAt           time.Time            `json:"computed_at"`
	VideoLength          VideoLength          `json:"video_length"`
	VideoFrequency       VideoFrequency       `json:"video_frequency"`
	MostLikedTopics      []Topic              `json:"most_liked_topics"`
	OrganicVsPaid        OrganicPaid          `json:"organic_vs_paid"`
	HHHDistribution      HHHDistribution      `json:"hhh_distribution"`
	ThumbnailConsistency ThumbnailConsistency `json:"thumbnail_consistency"`
	ToneOfVoice          ToneOfVoice          `json:"tone_of_voice"`
	ShortsDistribution   ShortsDistribution   `json:"shorts_distribution"`
	DataQuality          DataQuality          `json:"data_quality"`
}

// zero resets every KPI, keeping the scope identity.
func (b *Bundle) zero() {
	threshold := b.PaidThreshold
	*b = Bundle{
		Scope:         b.Scope,
		CompetitorID:  b.CompetitorID,
		Country:       b.Country,
		Competitors:   b.Competitors,
		PaidThreshold: threshold,
		ComputedAt:    b.ComputedAt,
		DataQuality:   b.DataQuality,
	}
	b.MostLikedTopics = []Topic{}
	b.OrganicVsPaid.PaidThreshold = threshold
	b.ToneOfVoice = ToneOfVoice{TopKeywords: []string{}, DominantTone: ToneNeutral}
}

// SplitCheck compares the service split with a direct count.
type SplitCheck struct {
	CompetitorID  int64       `json:"competitor_id"`
	PaidThreshold int         `json:"paid_threshold"`
	Service       OrganicPaid `json:"service"`
	Direct        OrganicPaid `json:"direct"`
	MaxDelta      float64     `json:"max_delta"`
	Consistent    bool        `json:"consistent"`
}
