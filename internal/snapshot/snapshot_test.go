package snapshot_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/snapshot"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/testsupport"
)

func export(date string, comments int) snapshot.Snapshot {
	return snapshot.Snapshot{
		ExportInfo: snapshot.ExportInfo{ExportDate: date, Source: "export", Version: "1.0", TotalVideos: 1},
		Stats:      snapshot.Stats{TotalVideosAnalyzed: 1, TotalCommentsAnalyzed: comments, PositiveCount: comments},
		Videos:     []snapshot.Video{{VideoID: "v1", TotalComments: comments, PositiveCount: comments, Rank: 1}},
	}
}

func writeExports(t *testing.T, cfg *config.Config, production, backup *snapshot.Snapshot) {
	t.Helper()
	if production != nil {
		testsupport.WriteStaticExport(t, cfg, snapshot.ProductionFile, production)
	}
	if backup != nil {
		testsupport.WriteStaticExport(t, cfg, snapshot.BackupFile, backup)
	}
}

func seedEmotions(t *testing.T, st *emotionstore.Store, videoID string, kinds []emotionstore.EmotionType) {
	t.Helper()
	ctx := context.Background()
	raw := make([]emotionstore.RawComment, len(kinds))
	for i := range kinds {
		raw[i] = emotionstore.RawComment{
			CommentID:   fmt.Sprintf("%s-%d", videoID, i),
			Text:        "Un séjour vraiment magnifique",
			PublishedAt: "2025-06-1" + fmt.Sprint(i%10) + "T10:00:00Z",
		}
	}
	_, err := st.SaveComments(ctx, videoID, raw)
	require.NoError(t, err)
	pending, err := st.PendingComments(ctx, 1000)
	require.NoError(t, err)

	var outcomes []emotionstore.Outcome
	for i, c := range pending {
		if c.VideoID != videoID {
			continue
		}
		outcomes = append(outcomes, emotionstore.Outcome{
			Comment:  c,
			Language: "fr",
			Emotion:  &emotionstore.Emotion{Type: kinds[i%len(kinds)], Confidence: 0.8, WeightedScore: 0.8},
		})
	}
	require.NoError(t, st.RecordOutcomes(ctx, outcomes, 10))
}

func TestNewerExportWinsWhenLiveIsEmpty(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithML())
	emotions := testsupport.MustOpenEmotionStore(t, cfg)

	old, recent := export("2025-01-10T08:00:00Z", 10), export("2025-02-01T08:00:00Z", 20)
	writeExports(t, cfg, &old, &recent)

	snap := snapshot.NewService(cfg, emotions, nil, nil).Get(context.Background())
	assert.Equal(t, snapshot.SourceLastBackup, snap.ExportInfo.DataSourceUsed)
	assert.Equal(t, 20, snap.Stats.TotalCommentsAnalyzed)
	assert.Equal(t, []string{snapshot.SourceLastBackup, snapshot.SourceUploadedJSON}, snap.ExportInfo.AvailableSources)

	writeExports(t, cfg, &recent, &old)
	snap = snapshot.NewService(cfg, emotions, nil, nil).Get(context.Background())
	assert.Equal(t, snapshot.SourceUploadedJSON, snap.ExportInfo.DataSourceUsed)
}

func TestExportDatesWithoutZone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	production, backup := export("2025-03-01T09:30:00.123456", 5), export("2025-02-28T23:00:00", 7)
	writeExports(t, cfg, &production, &backup)

	snap := snapshot.NewService(cfg, nil, nil, nil).Get(context.Background())
	assert.Equal(t, snapshot.SourceUploadedJSON, snap.ExportInfo.DataSourceUsed)
}

func TestEmptyStubWhenNothingAvailable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	snap := snapshot.NewService(cfg, nil, nil, nil).Get(context.Background())
	assert.Equal(t, snapshot.SourceEmptyStub, snap.ExportInfo.DataSourceUsed)
	assert.NotNil(t, snap.Videos)
	assert.NotNil(t, snap.ChartsData.CountrySentimentData)
	assert.Zero(t, snap.Stats.TotalCommentsAnalyzed)
}

func TestLiveStoreWinsWithML(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithML())
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	primary := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustRefresh(t, primary, "https://youtube.com/@Parks", []store.VideoInput{
		{VideoID: "v1", Title: "Lake cottages", ViewCount: 1200, LikeCount: 30},
	}, &store.ChannelInfo{Name: "Parks", Country: "FR"})
	seedEmotions(t, emotions, "v1", []emotionstore.EmotionType{
		emotionstore.EmotionPositive, emotionstore.EmotionPositive, emotionstore.EmotionPositive,
		emotionstore.EmotionNeutral, emotionstore.EmotionNegative,
	})
	_, err := emotions.RegenerateSummaries(ctx, []string{"v1"}, map[string]emotionstore.Origin{"v1": {Competitor: "Parks", Country: "FR"}})
	require.NoError(t, err)

	newer := export("2099-01-01T00:00:00Z", 99)
	writeExports(t, cfg, &newer, nil)

	snap := snapshot.NewService(cfg, emotions, primary, nil).Get(ctx)
	assert.Equal(t, snapshot.SourceDatabase, snap.ExportInfo.DataSourceUsed)
	assert.Equal(t, []string{snapshot.SourceDatabase, snapshot.SourceUploadedJSON}, snap.ExportInfo.AvailableSources)
	assert.Equal(t, 5, snap.Stats.TotalCommentsAnalyzed)
	assert.Equal(t, 60.0, snap.Stats.PositivePercentage)
	require.Len(t, snap.Videos, 1)
	video := snap.Videos[0]
	assert.Equal(t, "Lake cottages", video.Title)
	assert.Equal(t, "Parks", video.CompetitorName)
	assert.Equal(t, "positive", video.DominantSentiment)
	assert.Equal(t, 80.0, video.AvgConfidence)
	assert.Equal(t, 1, video.Rank)
	assert.Equal(t, snapshot.Distribution{Positive: 3, Negative: 1, Neutral: 1}, snap.ChartsData.GlobalDistribution)
	assert.Equal(t, snapshot.Distribution{Positive: 3, Negative: 1, Neutral: 1}, snap.ChartsData.CountrySentimentData["FR"])
	require.Len(t, snap.ChartsData.CompetitorSentimentData, 1)
	assert.Equal(t, 5, snap.ChartsData.CompetitorSentimentData[0].Total)
	require.Len(t, snap.ChartsData.TemporalSentimentData, 1)
	assert.Equal(t, "2025-06", snap.ChartsData.TemporalSentimentData[0].Period)
}

func TestLiveIgnoredWithoutML(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	seedEmotions(t, emotions, "v9", []emotionstore.EmotionType{emotionstore.EmotionNegative})

	snap := snapshot.NewService(cfg, emotions, nil, nil).Get(context.Background())
	assert.Equal(t, snapshot.SourceEmptyStub, snap.ExportInfo.DataSourceUsed)
}

func TestCorruptExportIsSkipped(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	backup := export("2024-05-05T00:00:00Z", 3)
	writeExports(t, cfg, nil, &backup)
	testsupport.WriteStaticExport(t, cfg, snapshot.ProductionFile, []int{1, 2})

	snap := snapshot.NewService(cfg, nil, nil, nil).Get(context.Background())
	assert.Equal(t, snapshot.SourceLastBackup, snap.ExportInfo.DataSourceUsed)
}
