package store_test

import (
	"context"
	"errors"
	"testing"

	"ytanalyzer/internal/store"
	"ytanalyzer/internal/taxonomy"
	"ytanalyzer/internal/testsupport"
)

const channelX = "https://youtube.com/@X"

func sampleVideos() []store.VideoInput {
	return []store.VideoInput{
		{VideoID: "v1", Title: "Family weekend at the lake", ViewCount: 500, LikeCount: 10, CommentCount: 2, Duration: "PT4M10S"},
		{VideoID: "v2", Title: "Grand opening of our new resort", ViewCount: 20000, LikeCount: 300, CommentCount: 40, DurationSeconds: 45},
	}
}

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := st.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)
	if reopened.Path() != cfg.Paths.PrimaryDB {
		t.Fatalf("unexpected path %q", reopened.Path())
	}
}

func TestRefreshCreatesCompetitorAndVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stats := testsupport.MustRefresh(t, st, channelX, sampleVideos(), nil)
	if stats.Action != store.ActionCreated || stats.NewVideos != 2 || stats.UpdatedVideos != 0 || stats.TotalVideos != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	competitors, err := st.ListCompetitors(ctx)
	if err != nil {
		t.Fatalf("ListCompetitors: %v", err)
	}
	if len(competitors) != 1 {
		t.Fatalf("expected one competitor, got %d", len(competitors))
	}
	if competitors[0].ChannelID != "@X" || competitors[0].Name != "X" {
		t.Fatalf("unexpected competitor %+v", competitors[0])
	}

	v2, err := st.GetVideo(ctx, "v2")
	if err != nil || v2 == nil {
		t.Fatalf("GetVideo: %v %v", v2, err)
	}
	if !v2.IsShort || v2.DurationSeconds != 45 {
		t.Fatalf("expected v2 to be a short, got %+v", v2)
	}
	v1, _ := st.GetVideo(ctx, "v1")
	if v1.DurationSeconds != 250 || v1.IsShort {
		t.Fatalf("unexpected v1 duration %+v", v1)
	}
	if v1.PublishedAt == "" || v1.YouTubePublishedAt != "" {
		t.Fatalf("expected import-time published_at only, got %+v", v1)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustRefresh(t, st, channelX, sampleVideos(), nil)
	first, err := st.ListVideos(ctx, 0)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}

	stats := testsupport.MustRefresh(t, st, channelX, sampleVideos(), nil)
	if stats.Action != store.ActionUpdated || stats.NewVideos != 0 || stats.UpdatedVideos != 2 {
		t.Fatalf("unexpected second refresh stats %+v", stats)
	}
	second, err := st.ListVideos(ctx, 0)
	if err != nil {
		t.Fatalf("ListVideos: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("row count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := *first[i], *second[i]
		if a.VideoID != b.VideoID || a.Title != b.Title || a.ViewCount != b.ViewCount ||
			a.LikeCount != b.LikeCount || a.CommentCount != b.CommentCount ||
			a.PublishedAt != b.PublishedAt || a.DurationSeconds != b.DurationSeconds || a.IsShort != b.IsShort {
			t.Fatalf("row changed between refreshes:\n%+v\n%+v", a, b)
		}
	}
}

func TestRefreshNeverRegressesCounters(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustRefresh(t, st, channelX, sampleVideos(), &store.ChannelInfo{SubscriberCount: 5000})
	lower := []store.VideoInput{
		{VideoID: "v1", Title: "Family weekend at the lake (updated)", ViewCount: 100, LikeCount: 50, CommentCount: 0, YouTubePublishedAt: "2024-03-01T10:00:00Z"},
	}
	testsupport.MustRefresh(t, st, channelX, lower, &store.ChannelInfo{SubscriberCount: 10})

	v1, err := st.GetVideo(ctx, "v1")
	if err != nil {
		t.Fatalf("GetVideo: %v", err)
	}
	if v1.ViewCount != 500 || v1.LikeCount != 50 || v1.CommentCount != 2 {
		t.Fatalf("counters regressed: %+v", v1)
	}
	if v1.Title != "Family weekend at the lake (updated)" || v1.YouTubePublishedAt != "2024-03-01T10:00:00Z" {
		t.Fatalf("textual fields not refreshed: %+v", v1)
	}
	if v1.DurationSeconds != 250 {
		t.Fatalf("duration should survive a refresh without one, got %d", v1.DurationSeconds)
	}
	competitors, _ := st.ListCompetitors(ctx)
	if competitors[0].SubscriberCount != 5000 {
		t.Fatalf("subscriber count regressed: %d", competitors[0].SubscriberCount)
	}
}

func TestRefreshKeepsHumanLabels(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.MustRefresh(t, st, channelX, sampleVideos(), nil)
	if _, err := st.SetHumanVideoCategory(ctx, "v1", taxonomy.Help, ""); err != nil {
		t.Fatalf("SetHumanVideoCategory: %v", err)
	}
	testsupport.MustRefresh(t, st, channelX, sampleVideos(), nil)

	v1, _ := st.GetVideo(ctx, "v1")
	if v1.Category != taxonomy.Help || v1.Source != taxonomy.SourceHuman || !v1.HumanValidated {
		t.Fatalf("human label lost on refresh: %+v", v1)
	}
}

func TestRefreshTruncatesLongTitles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	long := make([]rune, 250)
	for i := range long {
		long[i] = 'é'
	}
	testsupport.MustRefresh(t, st, channelX, []store.VideoInput{{VideoID: "v9", Title: string(long)}}, nil)
	v, _ := st.GetVideo(context.Background(), "v9")
	if got := len([]rune(v.Title)); got != 200 {
		t.Fatalf("expected 200 runes, got %d", got)
	}
}

func TestMachineLabelGuard(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	testsupport.MustRefresh(t, st, channelX, sampleVideos(), nil)

	changed, err := st.ApplyMachineLabel(ctx, "v2", taxonomy.Hero, taxonomy.SourceSemantic, 80)
	if err != nil || !changed {
		t.Fatalf("expected machine label on unlabelled video: %v %v", changed, err)
	}
	changed, err = st.ApplyMachineLabel(ctx, "v2", taxonomy.Hub, taxonomy.SourceKeyword, 60)
	if err != nil || !changed {
		t.Fatalf("expected machine re-run to be allowed: %v %v", changed, err)
	}

	if _, err := st.SetHumanVideoCategory(ctx, "v1", taxonomy.Help, "checked"); err != nil {
		t.Fatalf("SetHumanVideoCategory: %v", err)
	}
	changed, err = st.ApplyMachineLabel(ctx, "v1", taxonomy.Hero, taxonomy.SourceSemantic, 97)
	if err != nil {
		t.Fatalf("ApplyMachineLabel: %v", err)
	}
	if changed {
		t.Fatal("machine label overwrote a human label")
	}
	v1, _ := st.GetVideo(ctx, "v1")
	if v1.Category != taxonomy.Help || v1.Source != taxonomy.SourceHuman || v1.Confidence != 100 {
		t.Fatalf("unexpected v1 label %+v", v1)
	}

	if _, err := st.ApplyMachineLabel(ctx, "v2", taxonomy.Hero, taxonomy.SourceHuman, 50); err == nil {
		t.Fatal("expected human source to be rejected on the machine path")
	}

	feedback, err := st.ListFeedback(ctx, 0)
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(feedback) != 1 || feedback[0].Type != store.FeedbackHumanCorrection || feedback[0].CorrectedCategory != taxonomy.Help {
		t.Fatalf("unexpected feedback %+v", feedback)
	}
}

func TestSetHumanVideoCategoryMissingVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	v, err := st.SetHumanVideoCategory(context.Background(), "nope", taxonomy.Hub, "")
	if err != nil || v != nil {
		t.Fatalf("expected nil, nil for missing video, got %v %v", v, err)
	}
}

func TestDuplicateDetection(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	created, err := st.CreateCompetitor(ctx, "https://www.youtube.com/channel/UC123", &store.ChannelInfo{Name: "Center Parcs"})
	if err != nil {
		t.Fatalf("CreateCompetitor: %v", err)
	}
	if created.ChannelID != "UC123" {
		t.Fatalf("expected channel id extraction, got %q", created.ChannelID)
	}

	dup, err := st.CreateCompetitor(ctx, "https://youtube.com/channel/UC123/videos", &store.ChannelInfo{Name: "center parcs"})
	if !errors.Is(err, store.ErrDuplicateCompetitor) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if dup == nil || dup.ID != created.ID {
		t.Fatalf("expected existing competitor to be returned, got %+v", dup)
	}

	stats := testsupport.MustRefresh(t, st, "https://youtube.com/channel/UC123/videos", nil, nil)
	if stats.Action != store.ActionUpdated || stats.CompetitorID != created.ID {
		t.Fatalf("refresh should reuse duplicate: %+v", stats)
	}

	groups, err := st.FindDuplicateCompetitors(ctx)
	if err != nil {
		t.Fatalf("FindDuplicateCompetitors: %v", err)
	}
	if len(groups) != 0 {
		t.Fatalf("expected no duplicate groups, got %+v", groups)
	}
}

func TestDeleteCompetitorCascades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	info := &store.ChannelInfo{Playlists: []store.PlaylistInput{{PlaylistID: "PL1", Name: "Tips", VideoIDs: []string{"v1", "v2"}}}}
	stats := testsupport.MustRefresh(t, st, channelX, sampleVideos(), info)

	ok, err := st.DeleteCompetitor(ctx, stats.CompetitorID)
	if err != nil || !ok {
		t.Fatalf("DeleteCompetitor: %v %v", ok, err)
	}
	videos, _ := st.ListVideos(ctx, 0)
	playlists, _ := st.ListPlaylists(ctx, 0)
	if len(videos) != 0 || len(playlists) != 0 {
		t.Fatalf("expected cascade, got %d videos %d playlists", len(videos), len(playlists))
	}
	var links int
	if err := st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM playlist_video`).Scan(&links); err != nil {
		t.Fatalf("count links: %v", err)
	}
	if links != 0 {
		t.Fatalf("expected playlist links to cascade, got %d", links)
	}
	if ok, _ := st.DeleteCompetitor(ctx, stats.CompetitorID); ok {
		t.Fatal("expected second delete to report missing row")
	}
}

func TestPlaylistHumanLabelPropagates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	info := &store.ChannelInfo{Playlists: []store.PlaylistInput{{PlaylistID: "PL1", Name: "How to pack", VideoIDs: []string{"v1", "v2"}}}}
	testsupport.MustRefresh(t, st, channelX, sampleVideos(), info)
	if _, err := st.SetHumanVideoCategory(ctx, "v2", taxonomy.Hero, ""); err != nil {
		t.Fatalf("SetHumanVideoCategory: %v", err)
	}

	n, err := st.SetHumanPlaylistCategory(ctx, "PL1", taxonomy.Help)
	if err != nil {
		t.Fatalf("SetHumanPlaylistCategory: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one propagated video, got %d", n)
	}
	v1, _ := st.GetVideo(ctx, "v1")
	if v1.Category != taxonomy.Help || v1.Source != taxonomy.SourcePropagated {
		t.Fatalf("expected propagated help on v1, got %+v", v1)
	}
	v2, _ := st.GetVideo(ctx, "v2")
	if v2.Category != taxonomy.Hero || v2.Source != taxonomy.SourceHuman {
		t.Fatalf("human video changed by propagation: %+v", v2)
	}

	// A later human change on the playlist re-propagates.
	if _, err := st.SetHumanPlaylistCategory(ctx, "PL1", taxonomy.Hub); err != nil {
		t.Fatalf("SetHumanPlaylistCategory: %v", err)
	}
	v1, _ = st.GetVideo(ctx, "v1")
	if v1.Category != taxonomy.Hub {
		t.Fatalf("expected re-propagation to hub, got %s", v1.Category)
	}

	cats, err := st.HumanPlaylistCategories(ctx)
	if err != nil {
		t.Fatalf("HumanPlaylistCategories: %v", err)
	}
	if cats["v1"] != taxonomy.Hub {
		t.Fatalf("unexpected playlist categories %v", cats)
	}
	if n, _ := st.SetHumanPlaylistCategory(ctx, "missing", taxonomy.Hub); n != -1 {
		t.Fatalf("expected -1 for missing playlist, got %d", n)
	}
}

func TestHumanExamples(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	info := &store.ChannelInfo{Playlists: []store.PlaylistInput{{PlaylistID: "PL1", Name: "Weekly vlog", Description: "every friday"}}}
	testsupport.MustRefresh(t, st, channelX, sampleVideos(), info)
	if _, err := st.SetHumanPlaylistCategory(ctx, "PL1", taxonomy.Hub); err != nil {
		t.Fatalf("SetHumanPlaylistCategory: %v", err)
	}
	if _, err := st.SetHumanVideoCategory(ctx, "v1", taxonomy.Help, ""); err != nil {
		t.Fatalf("SetHumanVideoCategory: %v", err)
	}
	if err := st.AddFeedback(ctx, store.Feedback{Title: "Orphan tutorial", CorrectedCategory: taxonomy.Help}); err != nil {
		t.Fatalf("AddFeedback: %v", err)
	}

	examples, err := st.HumanExamples(ctx)
	if err != nil {
		t.Fatalf("HumanExamples: %v", err)
	}
	origins := map[string]int{}
	for _, ex := range examples {
		origins[ex.Origin]++
	}
	// v1 appears once: through its human_correction feedback row, not again as a video.
	if origins[store.OriginPlaylist] != 1 || origins[store.OriginFeedback] != 2 || origins[store.OriginVideo] != 0 {
		t.Fatalf("unexpected example origins %v", origins)
	}
}

func TestCountriesAndAnalysisCache(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	stats := testsupport.MustRefresh(t, st, channelX, nil, &store.ChannelInfo{Country: "FR"})
	testsupport.MustRefresh(t, st, "https://youtube.com/@Y", nil, &store.ChannelInfo{Country: "FR"})
	testsupport.MustRefresh(t, st, "https://youtube.com/@Z", nil, &store.ChannelInfo{Country: "DE"})

	countries, err := st.Countries(ctx)
	if err != nil {
		t.Fatalf("Countries: %v", err)
	}
	if len(countries) != 2 || countries[0].Country != "DE" || countries[1].Competitors != 2 {
		t.Fatalf("unexpected countries %+v", countries)
	}

	if err := st.SaveCompetitorAnalysis(ctx, stats.CompetitorID, 10000, `{"ok":true}`, testTime()); err != nil {
		t.Fatalf("SaveCompetitorAnalysis: %v", err)
	}
	if err := st.SaveCompetitorAnalysis(ctx, stats.CompetitorID, 25000, `{"ok":false}`, testTime()); err != nil {
		t.Fatalf("SaveCompetitorAnalysis: %v", err)
	}
	cached, err := st.CompetitorAnalysis(ctx, stats.CompetitorID)
	if err != nil || cached == nil {
		t.Fatalf("CompetitorAnalysis: %v %v", cached, err)
	}
	if cached.PaidThreshold != 25000 || cached.MetricsJSON != `{"ok":false}` {
		t.Fatalf("expected replaced bundle, got %+v", cached)
	}
	if missing, _ := st.CountryAnalysis(ctx, "NL"); missing != nil {
		t.Fatalf("expected nil for missing country analysis, got %+v", missing)
	}
}
