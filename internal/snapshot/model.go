package snapshot

// Data sources reported in ExportInfo.DataSourceUsed.
const (
	SourceDatabase     = "database"
	SourceUploadedJSON = "uploaded_json"
	SourceLastBackup   = "last_backup"
	SourceEmptyStub    = "empty_stub"
)

const (
	// ProductionFile is the uploaded export under the static directory.
	ProductionFile = "sentiment_analysis_production.json"
	// BackupFile is the last known good export under the static directory.
	BackupFile    = "sentiment_analysis_last_backup.json"
	exportVersion = "1.0"
)

type ExportInfo struct {
	ExportDate       string   `json:"export_date"`
	Source           string   `json:"source"`
	Version          string   `json:"version"`
	TotalVideos      int      `json:"total_videos"`
	DataSourceUsed   string   `json:"data_source_used,omitempty"`
	AvailableSources []string `json:"available_sources,omitempty"`
	Error            string   `json:"error,omitempty"`
}

type Stats struct {
	TotalVideosAnalyzed   int     `json:"total_videos_analyzed"`
	TotalCommentsAnalyzed int     `json:"total_comments_analyzed"`
	PositiveCount         int     `json:"positive_count"`
	NegativeCount         int     `json:"negative_count"`
	NeutralCount          int     `json:"neutral_count"`
	PositivePercentage    float64 `json:"positive_percentage"`
	NegativePercentage    float64 `json:"negative_percentage"`
	NeutralPercentage     float64 `json:"neutral_percentage"`
	AvgConfidence         float64 `json:"avg_confidence"`
	EngagementCorrelation float64 `json:"engagement_correlation"`
}

// Video is one ranked row of the snapshot. AvgConfidence is a percentage.
type Video struct {
	VideoID              string  `json:"video_id"`
	TotalComments        int     `json:"total_comments"`
	PositiveCount        int     `json:"positive_count"`
	NegativeCount        int     `json:"negative_count"`
	NeutralCount         int     `json:"neutral_count"`
	AvgConfidence        float64 `json:"avg_confidence"`
	DominantSentiment    string  `json:"dominant_sentiment"`
	PositivePercentage   float64 `json:"positive_percentage"`
	Title                string  `json:"title"`
	ThumbnailURL         string  `json:"thumbnail_url"`
	CompetitorName       string  `json:"competitor_name"`
	ViewCount            int64   `json:"view_count"`
	LikeCount            int64   `json:"like_count"`
	OriginalCommentCount int64   `json:"original_comment_count"`
	PublishedAt          string  `json:"published_at"`
	Rank                 int     `json:"rank"`
}

type Distribution struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

type CompetitorSentiment struct {
	Competitor string `json:"competitor"`
	Distribution
	Total int `json:"total"`
}

type TemporalPoint struct {
	Period string `json:"period"`
	Distribution
}

type Charts struct {
	GlobalDistribution      Distribution            `json:"global_distribution"`
	CountrySentimentData    map[string]Distribution `json:"country_sentiment_data"`
	CompetitorSentimentData []CompetitorSentiment   `json:"competitor_sentiment_data"`
	TemporalSentimentData   []TemporalPoint         `json:"temporal_sentiment_data"`
}

// Snapshot is the export document.
type Snapshot struct {
	ExportInfo ExportInfo `json:"export_info"`
	Stats      Stats      `json:"stats"`
	Videos     []Video    `json:"videos"`
	ChartsData Charts     `json:"charts_data"`
}

func (s *Snapshot) empty() bool {
	return s == nil || (s.Stats.TotalCommentsAnalyzed == 0 && len(s.Videos) == 0)
}

// normalize replaces nil collections so the JSON shape stays stable.
func (s *Snapshot) normalize() {
	if s.Videos == nil {
		s.Videos = []Video{}
	}
	if s.ChartsData.CountrySentimentData == nil {
		s.ChartsData.CountrySentimentData = map[string]Distribution{}
	}
	if s.ChartsData.CompetitorSentimentData == nil {
		s.ChartsData.CompetitorSentimentData = []CompetitorSentiment{}
	}
	if s.ChartsData.TemporalSentimentData == nil {
		s.ChartsData.TemporalSentimentData = []TemporalPoint{}
	}
}
