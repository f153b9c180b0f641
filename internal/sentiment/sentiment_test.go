package sentiment_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/retry"
	"ytanalyzer/internal/sentiment"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/testsupport"
	"ytanalyzer/internal/youtube"
)

// fakeSource serves canned pages per video; a video without pages reports
// comments disabled.
type fakeSource struct {
	mu     sync.Mutex
	pages  map[string][]youtube.Page
	errs   map[string]error
	called map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{pages: map[string][]youtube.Page{}, errs: map[string]error{}, called: map[string]int{}}
}

func (f *fakeSource) CommentThreads(_ context.Context, videoID, pageToken string, _ int) (youtube.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called[videoID]++
	if err, ok := f.errs[videoID]; ok {
		return youtube.Page{}, err
	}
	pages, ok := f.pages[videoID]
	if !ok {
		return youtube.Page{}, services.Wrap(services.ErrCommentsDisabled, "youtube", "comment threads", videoID, nil)
	}
	index := 0
	if pageToken != "" {
		fmt.Sscanf(pageToken, "p%d", &index)
	}
	return pages[index], nil
}

func (f *fakeSource) calls(videoID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.called[videoID]
}

func commentsPage(videoID string, from, n int, next string) youtube.Page {
	page := youtube.Page{NextPageToken: next, QuotaCost: 1}
	for i := from; i < from+n; i++ {
		page.Comments = append(page.Comments, youtube.Comment{
			CommentID: fmt.Sprintf("%s-c%d", videoID, i),
			Text:      "Super séjour en famille, merci !",
			LikeCount: int64(i % 3),
		})
	}
	return page
}

func TestScrapeVideoPagesUntilTarget(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	source := newFakeSource()
	source.pages["v1"] = []youtube.Page{commentsPage("v1", 0, 15, "p1"), commentsPage("v1", 15, 15, "p2"), commentsPage("v1", 30, 15, "")}
	scraper := sentiment.NewScraperWithSource(cfg, emotions, source, nil)
	ctx := context.Background()

	result := scraper.ScrapeVideo(ctx, "v1", 20)
	if result.Err != nil || result.Status != emotionstore.StatusCompleted {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Fetched != 20 || result.QuotaUsed != 2 || source.calls("v1") != 2 {
		t.Fatalf("expected two pages trimmed to 20 comments, got %+v after %d calls", result, source.calls("v1"))
	}
	progress, err := emotions.GetProgress(ctx, "v1")
	if err != nil || progress == nil {
		t.Fatalf("GetProgress: %v %v", progress, err)
	}
	if progress.Status != emotionstore.StatusCompleted || progress.CommentsScraped != 20 || progress.QuotaUsed != 2 || progress.CompletedAt == nil {
		t.Fatalf("unexpected progress %+v", progress)
	}

	again := scraper.ScrapeVideo(ctx, "v1", 20)
	if again.NewComments != 0 || again.Fetched != 20 {
		t.Fatalf("expected duplicate comments to be ignored, got %+v", again)
	}
	if n, _ := emotions.CommentCount(ctx, "v1"); n != 20 {
		t.Fatalf("expected 20 stored comments, got %d", n)
	}
}

func TestScrapeVideoCommentsDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	scraper := sentiment.NewScraperWithSource(cfg, emotions, newFakeSource(), nil)
	ctx := context.Background()

	result := scraper.ScrapeVideo(ctx, "quiet", 20)
	if result.Err != nil || result.Status != emotionstore.StatusCompleted || result.Fetched != 0 || result.QuotaUsed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	progress, _ := emotions.GetProgress(ctx, "quiet")
	if progress.Status != emotionstore.StatusCompleted || progress.QuotaUsed != 1 || progress.CommentsScraped != 0 {
		t.Fatalf("unexpected progress %+v", progress)
	}
}

func TestScrapeVideoRecordsErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	source := newFakeSource()
	source.errs["gone"] = services.Wrap(services.ErrNotFound, "youtube", "comment threads", "video gone", nil)
	scraper := sentiment.NewScraperWithSource(cfg, emotions, source, nil)
	ctx := context.Background()

	result := scraper.ScrapeVideo(ctx, "gone", 20)
	if result.Status != emotionstore.StatusError || !errors.Is(result.Err, services.ErrNotFound) {
		t.Fatalf("unexpected result %+v", result)
	}
	progress, _ := emotions.GetProgress(ctx, "gone")
	if progress.Status != emotionstore.StatusError || progress.ErrorMessage == "" {
		t.Fatalf("expected error row, got %+v", progress)
	}
}

func TestRunResumeSkipsCompletedVideos(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scraper.VideoDelayMillis = 0
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	source := newFakeSource()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("v%02d", i)
		ids = append(ids, id)
		source.pages[id] = []youtube.Page{commentsPage(id, 0, 5, "")}
	}
	if err := emotions.MarkPending(ctx, ids, 20); err != nil {
		t.Fatalf("MarkPending: %v", err)
	}
	for _, id := range ids[:5] {
		if err := emotions.FinishProgress(ctx, id, emotionstore.StatusCompleted, 5, 1, ""); err != nil {
			t.Fatalf("FinishProgress: %v", err)
		}
	}

	scraper := sentiment.NewScraperWithSource(cfg, emotions, source, nil)
	var (
		mu   sync.Mutex
		seen []string
	)
	report, err := scraper.Run(ctx, ids, sentiment.RunOptions{Resume: true, Workers: 3, OnVideo: func(r sentiment.VideoResult) {
		mu.Lock()
		seen = append(seen, r.VideoID)
		mu.Unlock()
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Skipped != 5 || report.Attempted != 5 || report.Completed != 5 || report.CommentsScraped != 25 {
		t.Fatalf("unexpected report %+v", report)
	}
	sort.Strings(seen)
	if fmt.Sprint(seen) != fmt.Sprint(ids[5:]) {
		t.Fatalf("expected the pending half only, got %v", seen)
	}
	for _, id := range ids[:5] {
		if source.calls(id) != 0 {
			t.Fatalf("completed video %s was scraped again", id)
		}
	}
}

func TestRunStopsAtDailyQuota(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scraper.VideoDelayMillis = 0
	cfg.YouTube.DailyQuota = 3
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	source := newFakeSource()
	var ids []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("q%d", i)
		ids = append(ids, id)
		source.pages[id] = []youtube.Page{commentsPage(id, 0, 2, "")}
	}
	scraper := sentiment.NewScraperWithSource(cfg, emotions, source, nil)

	report, err := scraper.Run(context.Background(), ids, sentiment.RunOptions{Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.QuotaExceeded || report.Attempted != 3 || report.QuotaUsed != 3 {
		t.Fatalf("expected the run to stop after three units, got %+v", report)
	}
}

func TestRunCountsQuotaFromEarlierScrapesOfSameVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scraper.VideoDelayMillis = 0
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	source := newFakeSource()
	source.pages["v1"] = []youtube.Page{commentsPage("v1", 0, 15, "p1"), commentsPage("v1", 15, 15, "p2"), commentsPage("v1", 30, 15, "")}
	scraper := sentiment.NewScraperWithSource(cfg, emotions, source, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		report, err := scraper.Run(ctx, []string{"v1"}, sentiment.RunOptions{Target: 45, Workers: 1})
		if err != nil || report.QuotaUsed != 3 {
			t.Fatalf("run %d: expected three pages of quota, got %+v (%v)", i, report, err)
		}
	}
	if source.calls("v1") != 9 {
		t.Fatalf("expected nine API calls, got %d", source.calls("v1"))
	}
	used, err := emotions.QuotaUsedSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil || used != 9 {
		t.Fatalf("expected every call counted in the window, got %d (%v)", used, err)
	}

	cfg.YouTube.DailyQuota = 9
	capped := sentiment.NewScraperWithSource(cfg, emotions, source, nil)
	report, err := capped.Run(ctx, []string{"v1"}, sentiment.RunOptions{Target: 45, Workers: 1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.QuotaExceeded || report.Attempted != 0 {
		t.Fatalf("expected the spent window to block another scrape, got %+v", report)
	}
}

func TestRunHonoursStopPredicate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Scraper.VideoDelayMillis = 0
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	source := newFakeSource()
	scraper := sentiment.NewScraperWithSource(cfg, emotions, source, nil)

	polls := 0
	report, err := scraper.Run(context.Background(), []string{"a", "b", "c"}, sentiment.RunOptions{Workers: 1, Stop: func() bool {
		polls++
		return polls > 1
	}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Stopped || report.Attempted != 1 {
		t.Fatalf("expected one video before stop, got %+v", report)
	}
}

type scriptedModel struct {
	predictions map[string]sentiment.Prediction
	fail        bool
}

func (m scriptedModel) Name() string { return "scripted" }

func (m scriptedModel) Predict(_ context.Context, texts []string) ([]sentiment.Prediction, error) {
	if m.fail {
		return nil, errors.New("endpoint down")
	}
	out := make([]sentiment.Prediction, len(texts))
	for i, text := range texts {
		out[i] = m.predictions[text]
	}
	return out, nil
}

func TestAnalyzerBuildsSummaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	primary := testsupport.MustOpenStore(t, cfg)
	testsupport.MustRefresh(t, primary, "https://youtube.com/@X", []store.VideoInput{{VideoID: "v1", Title: "Weekend au lac"}},
		&store.ChannelInfo{Name: "Brand X", Country: "FR"})
	ctx := context.Background()

	texts := []string{
		"Super séjour, les enfants ont adoré",
		"Très belle découverte pour nous",
		"Magnifique endroit pour les enfants",
		"Trop cher pour ce que c'est",
		"ok",
	}
	var raw []emotionstore.RawComment
	for i, text := range texts {
		raw = append(raw, emotionstore.RawComment{CommentID: fmt.Sprintf("c%d", i), Text: text, LikeCount: int64(i)})
	}
	if _, err := emotions.SaveComments(ctx, "v1", raw); err != nil {
		t.Fatalf("SaveComments: %v", err)
	}
	model := scriptedModel{predictions: map[string]sentiment.Prediction{
		texts[0]: {Emotion: emotionstore.EmotionPositive, Confidence: 0.9},
		texts[1]: {Emotion: emotionstore.EmotionPositive, Confidence: 0.8},
		texts[2]: {Emotion: emotionstore.EmotionPositive, Confidence: 0.85},
		texts[3]: {Emotion: emotionstore.EmotionNegative, Confidence: 0.7},
	}}
	analyzer := sentiment.NewAnalyzerWithModel(cfg, emotions, primary, model, nil)

	report, err := analyzer.Run(ctx, sentiment.AnalyzeOptions{BatchSize: 2, Workers: 2})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 5 || report.Analyzed != 4 || report.Skipped != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Emotions[emotionstore.EmotionPositive] != 3 || report.VideosSummarised != 1 || report.Model != "scripted" {
		t.Fatalf("unexpected report %+v", report)
	}

	summary, err := emotions.GetSummary(ctx, "v1")
	if err != nil || summary == nil {
		t.Fatalf("GetSummary: %v %v", summary, err)
	}
	if summary.TotalComments != 4 || summary.PositiveRatio != 0.75 || summary.NegativeRatio != 0.25 ||
		summary.NeutralRatio != 0 || summary.DominantEmotion != emotionstore.EmotionPositive {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Competitor != "Brand X" || summary.Country != "FR" || summary.LanguageDistribution["fr"] != 4 {
		t.Fatalf("expected enrichment and french distribution, got %+v", summary)
	}
	if n, _ := emotions.ProcessingLogCount(ctx); n != 1 {
		t.Fatalf("expected one processing log row, got %d", n)
	}

	second, err := analyzer.Run(ctx, sentiment.AnalyzeOptions{})
	if err != nil || second.Processed != 0 {
		t.Fatalf("expected nothing left to process, got %+v %v", second, err)
	}
}

func TestAnalyzerMarksFailedPredictionsProcessed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	emotions := testsupport.MustOpenEmotionStore(t, cfg)
	ctx := context.Background()
	if _, err := emotions.SaveComments(ctx, "v9", []emotionstore.RawComment{{CommentID: "x1", Text: "A perfectly long comment"}}); err != nil {
		t.Fatalf("SaveComments: %v", err)
	}
	analyzer := sentiment.NewAnalyzerWithModel(cfg, emotions, nil, scriptedModel{fail: true}, nil)

	report, err := analyzer.Run(ctx, sentiment.AnalyzeOptions{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Processed != 1 || report.Failed != 1 || report.Analyzed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	pending, _ := emotions.PendingComments(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected the comment to be marked processed, got %d pending", len(pending))
	}
}

func TestLexiconModel(t *testing.T) {
	model := sentiment.NewLexiconModel()
	predictions, err := model.Predict(context.Background(), []string{
		"Super séjour, merci !",
		"Vraiment décevant et trop cher",
		"I do not love this place",
		"Nous y sommes allés en juillet",
		"😍😍",
	})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := []emotionstore.EmotionType{
		emotionstore.EmotionPositive,
		emotionstore.EmotionNegative,
		emotionstore.EmotionNegative,
		emotionstore.EmotionNeutral,
		emotionstore.EmotionPositive,
	}
	for i, w := range want {
		if predictions[i].Emotion != w {
			t.Fatalf("prediction %d: got %s want %s", i, predictions[i].Emotion, w)
		}
		if predictions[i].Confidence <= 0 || predictions[i].Confidence > 0.95 {
			t.Fatalf("prediction %d confidence out of range: %v", i, predictions[i].Confidence)
		}
	}
}

func TestInferenceModelMapsLabels(t *testing.T) {
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth, gotPath = r.Header.Get("Authorization"), r.URL.Path
		var body struct {
			Inputs []string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Inputs) != 2 {
			t.Errorf("unexpected body %v %v", body, err)
		}
		w.Write([]byte(`[[{"label":"LABEL_2","score":0.91},{"label":"LABEL_0","score":0.04}],[{"label":"negative","score":0.8},{"label":"neutral","score":0.2}]]`))
	}))
	defer server.Close()

	model := sentiment.NewInferenceModel(sentiment.InferenceConfig{BaseURL: server.URL, Token: "hf"})
	predictions, err := model.Predict(context.Background(), []string{"great", "awful"})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if gotAuth != "Bearer hf" || gotPath != "/cardiffnlp/twitter-xlm-roberta-base-sentiment" {
		t.Fatalf("unexpected request auth=%q path=%q", gotAuth, gotPath)
	}
	if predictions[0].Emotion != emotionstore.EmotionPositive || predictions[0].Confidence != 0.91 {
		t.Fatalf("unexpected first prediction %+v", predictions[0])
	}
	if predictions[1].Emotion != emotionstore.EmotionNegative {
		t.Fatalf("unexpected second prediction %+v", predictions[1])
	}
}

func TestInferenceModelUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	model := sentiment.NewInferenceModel(sentiment.InferenceConfig{BaseURL: server.URL},
		sentiment.WithInferenceRetry(retry.Policy{Attempts: 2, Sleeper: func(time.Duration) {}}))
	if _, err := model.Predict(context.Background(), []string{"x"}); !errors.Is(err, services.ErrModelUnavailable) {
		t.Fatalf("expected model_unavailable, got %v", err)
	}
}

func TestNewModelFallsBackToLexicon(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithML())
	if got := sentiment.NewModel(cfg, nil).Name(); got != sentiment.LexiconModelName {
		t.Fatalf("expected lexicon without token, got %s", got)
	}
	cfg.Analyzer.InferenceToken = "hf"
	if got := sentiment.NewModel(cfg, nil).Name(); got != cfg.Analyzer.Model {
		t.Fatalf("expected inference model, got %s", got)
	}
}
