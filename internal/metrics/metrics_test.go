package metrics_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/metrics"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/taxonomy"
	"ytanalyzer/internal/testsupport"
)

func ingest(t *testing.T, st *store.Store, url string, videos []store.VideoInput, info *store.ChannelInfo) int64 {
	t.Helper()
	return testsupport.MustRefresh(t, st, url, videos, info).CompetitorID
}

func TestBrandMetricsFollowsSettingsThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPaidThreshold(10000))
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	id := ingest(t, st, "https://youtube.com/@X", []store.VideoInput{
		{VideoID: "v1", Title: "Cottage tour", ViewCount: 500, YouTubePublishedAt: "2024-01-01T10:00:00Z"},
		{VideoID: "v2", Title: "Summer launch", ViewCount: 20000, YouTubePublishedAt: "2024-01-15T10:00:00Z"},
	}, nil)

	svc := metrics.NewService(cfg, st, nil)
	bundle, err := svc.BrandMetrics(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 10000, bundle.PaidThreshold)
	assert.Equal(t, 1, bundle.OrganicVsPaid.OrganicCount)
	assert.Equal(t, 1, bundle.OrganicVsPaid.PaidCount)
	assert.Equal(t, 50.0, bundle.OrganicVsPaid.OrganicPercentage)
	assert.Equal(t, 50.0, bundle.OrganicVsPaid.PaidPercentage)

	require.NoError(t, cfg.SettingsStore().Save(config.Settings{PaidThreshold: 25000}))
	bundle, err = svc.BrandMetrics(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 25000, bundle.PaidThreshold)
	assert.Equal(t, 2, bundle.OrganicVsPaid.OrganicCount)
	assert.Equal(t, 0, bundle.OrganicVsPaid.PaidCount)
}

func TestOrganicCountIsMonotonicInThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	var videos []store.VideoInput
	for i, views := range []int64{0, 10, 999, 1000, 5000, 10000, 10001, 250000} {
		videos = append(videos, store.VideoInput{VideoID: fmt.Sprintf("m%d", i), Title: "clip", ViewCount: views})
	}
	id := ingest(t, st, "https://youtube.com/@Mono", videos, nil)
	svc := metrics.NewService(cfg, st, nil)

	prevOrganic, prevPaid := -1, len(videos)+1
	for _, threshold := range []int{0, 10, 1000, 9999, 10000, 10001, 1000000} {
		bundle, err := svc.BrandMetrics(context.Background(), id, metrics.WithPaidThreshold(threshold))
		require.NoError(t, err)
		split := bundle.OrganicVsPaid
		assert.GreaterOrEqual(t, split.OrganicCount, prevOrganic, "threshold %d", threshold)
		assert.LessOrEqual(t, split.PaidCount, prevPaid, "threshold %d", threshold)
		assert.Equal(t, len(videos), split.OrganicCount+split.PaidCount)
		prevOrganic, prevPaid = split.OrganicCount, split.PaidCount
	}
}

func TestHHHPercentagesSumToHundred(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	labels := []taxonomy.Category{taxonomy.Hero, taxonomy.Hub, taxonomy.Hub, taxonomy.Help, taxonomy.Help, taxonomy.Help, taxonomy.None}
	var videos []store.VideoInput
	for i := range labels {
		videos = append(videos, store.VideoInput{VideoID: fmt.Sprintf("h%d", i), Title: "Episode", ViewCount: 100})
	}
	id := ingest(t, st, "https://youtube.com/@Thirds", videos, nil)
	for i, category := range labels {
		if category == taxonomy.None {
			continue
		}
		_, err := st.SetHumanVideoCategory(ctx, fmt.Sprintf("h%d", i), category, "")
		require.NoError(t, err)
	}

	bundle, err := metrics.NewService(cfg, st, nil).BrandMetrics(ctx, id)
	require.NoError(t, err)
	hhh := bundle.HHHDistribution
	assert.Equal(t, 6, hhh.CategorizedVideos)
	assert.Equal(t, 1, hhh.UncategorizedCount)
	assert.Equal(t, 16.7, hhh.HeroPercentage)
	assert.Equal(t, 33.3, hhh.HubPercentage)
	assert.Equal(t, 50.0, hhh.HelpPercentage)
	assert.InDelta(t, 100, hhh.HeroPercentage+hhh.HubPercentage+hhh.HelpPercentage, 0.1)
	assert.False(t, bundle.DataQuality.Has(metrics.FlagHumanClassificationRequired))
}

func TestUncategorisedScopeRequiresHumanClassification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	id := ingest(t, st, "https://youtube.com/@Blank", []store.VideoInput{{VideoID: "b1", Title: "Trailer", ViewCount: 1}}, nil)

	bundle, err := metrics.NewService(cfg, st, nil).BrandMetrics(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, bundle.HHHDistribution.HumanClassificationRequired)
	assert.Zero(t, bundle.HHHDistribution.HeroPercentage+bundle.HHHDistribution.HubPercentage+bundle.HHHDistribution.HelpPercentage)
	assert.True(t, bundle.DataQuality.Has(metrics.FlagHumanClassificationRequired))
	assert.False(t, bundle.DataQuality.OK)
}

func TestFrequencySafeguardOnImportedDates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	var videos []store.VideoInput
	for i := range 12 {
		videos = append(videos, store.VideoInput{VideoID: fmt.Sprintf("d%d", i), Title: "Imported", PublishedAt: "2025-03-04T08:00:00Z"})
	}
	id := ingest(t, st, "https://youtube.com/@Imported", videos, nil)

	bundle, err := metrics.NewService(cfg, st, nil).BrandMetrics(context.Background(), id)
	require.NoError(t, err)
	freq := bundle.VideoFrequency
	assert.Equal(t, 12, freq.TotalVideos)
	assert.Zero(t, freq.VideosPerWeek)
	assert.Zero(t, freq.DaysActive)
	assert.Zero(t, freq.ConsistencyScore)
	assert.True(t, freq.SuspectDates)
	assert.True(t, bundle.DataQuality.Has(metrics.FlagSuspectDates))
}

func TestFrequencyFromYouTubeDates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	id := ingest(t, st, "https://youtube.com/@Weekly", []store.VideoInput{
		{VideoID: "w1", Title: "Week one", YouTubePublishedAt: "2024-03-01T09:00:00Z"},
		{VideoID: "w2", Title: "Week two", YouTubePublishedAt: "2024-03-08T09:00:00Z"},
		{VideoID: "w3", Title: "Week three", YouTubePublishedAt: "2024-03-14T09:00:00Z"},
	}, nil)

	bundle, err := metrics.NewService(cfg, st, nil).BrandMetrics(context.Background(), id)
	require.NoError(t, err)
	freq := bundle.VideoFrequency
	assert.Equal(t, "2024-03-01", freq.FirstVideoDate)
	assert.Equal(t, "2024-03-14", freq.LastVideoDate)
	assert.Equal(t, 14, freq.DaysActive)
	assert.Equal(t, 1.5, freq.VideosPerWeek)
	assert.Equal(t, 3.0, freq.ConsistencyScore)
	assert.False(t, freq.SuspectDates)
}

func TestLengthShortsTopicsAndThumbnails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	id := ingest(t, st, "https://youtube.com/@Mixed", []store.VideoInput{
		{VideoID: "s1", Title: "Quick peek", DurationSeconds: 30, LikeCount: 10, CommentCount: 2, ThumbnailURL: "https://i.ytimg.com/s1.jpg"},
		{VideoID: "s2", Title: "Full tour", DurationSeconds: 600, LikeCount: 50, CommentCount: 5},
		{VideoID: "s3", Title: "Long walk", DurationSeconds: 1200},
	}, nil)
	require.NoError(t, st.SetBeautyScore(ctx, "s1", 9))

	bundle, err := metrics.NewService(cfg, st, nil).BrandMetrics(ctx, id)
	require.NoError(t, err)

	length := bundle.VideoLength
	assert.Equal(t, 3, length.TotalVideos)
	assert.Equal(t, 10.2, length.AvgDurationMinutes)
	assert.Equal(t, 0.5, length.MinDurationMinutes)
	assert.Equal(t, 20.0, length.MaxDurationMinutes)
	assert.Equal(t, 1, length.ShortsCount)
	assert.Equal(t, 33.3, length.ShortsPercentage)

	assert.Equal(t, metrics.ShortsDistribution{TotalVideos: 3, ShortsCount: 1, RegularCount: 2, ShortsPercentage: 33.3, RegularPercentage: 66.7}, bundle.ShortsDistribution)

	require.Len(t, bundle.MostLikedTopics, 2)
	assert.Equal(t, "s2", bundle.MostLikedTopics[0].VideoID)
	assert.Equal(t, int64(55), bundle.MostLikedTopics[0].EngagementScore)

	thumbs := bundle.ThumbnailConsistency
	assert.Equal(t, 3, thumbs.TotalVideos)
	assert.Equal(t, 1, thumbs.WithThumbnails)
	assert.Equal(t, 6.3, thumbs.ConsistencyScore)
}

func TestCountryMetricsAggregatesCompetitors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ingest(t, st, "https://youtube.com/@FrOne", []store.VideoInput{{VideoID: "f1", Title: "Visit the beautiful lake", ViewCount: 50}}, &store.ChannelInfo{Name: "Fr One", Country: "FR"})
	ingest(t, st, "https://youtube.com/@FrTwo", []store.VideoInput{{VideoID: "f2", Title: "Explore the forest", ViewCount: 50000}}, &store.ChannelInfo{Name: "Fr Two", Country: "FR"})
	ingest(t, st, "https://youtube.com/@Be", []store.VideoInput{{VideoID: "b1", Title: "Other", ViewCount: 1}}, &store.ChannelInfo{Name: "Be", Country: "BE"})

	svc := metrics.NewService(cfg, st, nil)
	bundle, err := svc.CountryMetrics(context.Background(), "FR")
	require.NoError(t, err)
	assert.Equal(t, metrics.ScopeCountry, bundle.Scope)
	assert.Len(t, bundle.Competitors, 2)
	assert.Equal(t, 2, bundle.OrganicVsPaid.TotalCount)
	assert.Equal(t, 1, bundle.OrganicVsPaid.OrganicCount)
	assert.Equal(t, 2, bundle.ToneOfVoice.TitlesAnalyzed)

	_, err = svc.CountryMetrics(context.Background(), "  ")
	require.ErrorIs(t, err, services.ErrValidation)

	countries, err := svc.Countries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []store.CountryCount{{Country: "BE", Competitors: 1}, {Country: "FR", Competitors: 2}}, countries)
}

func TestBrandMetricsUnknownCompetitor(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	_, err := metrics.NewService(cfg, st, nil).BrandMetrics(context.Background(), 404)
	require.ErrorIs(t, err, services.ErrNotFound)
}

func TestQueryFailureReturnsZeroedBundle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	id := ingest(t, st, "https://youtube.com/@Broken", []store.VideoInput{{VideoID: "x1", Title: "Clip", ViewCount: 5, DurationSeconds: 90}}, nil)
	_, err := st.DB().ExecContext(ctx, `DROP TABLE playlist_video`)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, `DROP TABLE playlist`)
	require.NoError(t, err)

	bundle, err := metrics.NewService(cfg, st, nil).BrandMetrics(ctx, id)
	require.NoError(t, err)
	assert.True(t, bundle.DataQuality.Has(metrics.FlagQueryFailed))
	assert.NotEmpty(t, bundle.DataQuality.Warnings)
	assert.Zero(t, bundle.VideoLength.TotalVideos)
	assert.Zero(t, bundle.OrganicVsPaid.OrganicCount)
	assert.Equal(t, metrics.ToneNeutral, bundle.ToneOfVoice.DominantTone)
	assert.NotNil(t, bundle.MostLikedTopics)
}

func TestVerifySplitAndPersist(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPaidThreshold(1000))
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	id := ingest(t, st, "https://youtube.com/@Split", []store.VideoInput{
		{VideoID: "p1", Title: "a", ViewCount: 10},
		{VideoID: "p2", Title: "b", ViewCount: 1000},
		{VideoID: "p3", Title: "c", ViewCount: 1001},
	}, nil)
	svc := metrics.NewService(cfg, st, nil)

	check, err := svc.VerifySplit(ctx, id)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, 1000, check.PaidThreshold)
	assert.Equal(t, 66.7, check.Direct.OrganicPercentage)
	assert.Equal(t, check.Direct, check.Service)

	bundle, err := svc.BrandMetrics(ctx, id)
	require.NoError(t, err)
	require.NoError(t, svc.Persist(ctx, bundle))
	cached, err := st.CompetitorAnalysis(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, 1000, cached.PaidThreshold)
	assert.Contains(t, cached.MetricsJSON, `"organic_vs_paid"`)
}
