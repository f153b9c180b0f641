package classify_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"ytanalyzer/internal/classify"
	"ytanalyzer/internal/config"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/taxonomy"
	"ytanalyzer/internal/testsupport"
)

// axisEmbedder maps each text onto three keyword axes plus a small bias.
type axisEmbedder struct {
	calls int
}

func (e *axisEmbedder) Name() string { return "axis" }

func (e *axisEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		out[i] = []float64{
			float64(strings.Count(lower, "launch")),
			float64(strings.Count(lower, "weekly")),
			float64(strings.Count(lower, "tutorial")),
			0.01,
		}
	}
	return out, nil
}

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }

func (failingEmbedder) Embed(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("embeddings endpoint unreachable")
}

func trainingSet() []classify.Example {
	return []classify.Example{
		{Text: "Big launch of the summer collection", Category: taxonomy.Hero},
		{Text: "Exclusive launch event", Category: taxonomy.Hero},
		{Text: "Our weekly family vlog", Category: taxonomy.Hub},
		{Text: "Weekly behind the scenes", Category: taxonomy.Hub},
		{Text: "Tutorial: booking your cottage", Category: taxonomy.Help},
		{Text: "Step by step tutorial", Category: taxonomy.Help},
	}
}

func TestDenseClassifiesNearestPrototype(t *testing.T) {
	ctx := context.Background()
	model := classify.NewDense(&axisEmbedder{})
	if err := model.Train(ctx, trainingSet()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	result, err := model.Classify(ctx, "Launch day recap")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Category != taxonomy.Hero || result.Variant != classify.VariantDense {
		t.Fatalf("expected dense hero, got %+v", result)
	}
	if result.Confidence < 45 || result.Confidence > 98 {
		t.Fatalf("confidence out of range: %v", result.Confidence)
	}
	if _, err := model.Classify(ctx, ""); !errors.Is(err, classify.ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal for empty text, got %v", err)
	}
}

func TestQuantizedAgreesWithDense(t *testing.T) {
	ctx := context.Background()
	dense := classify.NewDense(&axisEmbedder{})
	quantized := classify.NewQuantized(&axisEmbedder{})
	for _, m := range []classify.Semantic{dense, quantized} {
		if err := m.Train(ctx, trainingSet()); err != nil {
			t.Fatalf("%s Train: %v", m.Variant(), err)
		}
	}
	for _, query := range []string{"Launch party", "Weekly recap", "Tutorial for beginners", "Launch tutorial tutorial"} {
		d, err := dense.Classify(ctx, query)
		if err != nil {
			t.Fatalf("dense %q: %v", query, err)
		}
		q, err := quantized.Classify(ctx, query)
		if err != nil {
			t.Fatalf("quantized %q: %v", query, err)
		}
		if d.Category != q.Category {
			t.Fatalf("variants disagree on %q: %s vs %s", query, d.Category, q.Category)
		}
	}
}

func TestDenseRestoreReencodesLazily(t *testing.T) {
	ctx := context.Background()
	trained := classify.NewDense(&axisEmbedder{})
	if err := trained.Train(ctx, trainingSet()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	embedder := &axisEmbedder{}
	restored := classify.NewDense(embedder)
	if err := restored.Restore(ctx, trained.State()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if embedder.calls != 0 {
		t.Fatalf("expected no encoding on restore, got %d calls", embedder.calls)
	}
	result, err := restored.Classify(ctx, "Weekly episode")
	if err != nil || result.Category != taxonomy.Hub {
		t.Fatalf("expected hub after restore, got %+v %v", result, err)
	}
	if embedder.calls != 2 {
		t.Fatalf("expected prototype and query encodings, got %d", embedder.calls)
	}
}

func TestTFIDFUsesTrainedProfiles(t *testing.T) {
	ctx := context.Background()
	model := classify.NewTFIDF()
	if err := model.Train(ctx, trainingSet()); err != nil {
		t.Fatalf("Train: %v", err)
	}
	result, err := model.Classify(ctx, "cottage booking tutorial")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if result.Category != taxonomy.Help {
		t.Fatalf("expected help, got %+v", result)
	}
	if _, err := model.Classify(ctx, "zzzz qqqq"); !errors.Is(err, classify.ErrNoSignal) {
		t.Fatalf("expected ErrNoSignal without overlap, got %v", err)
	}
}

func TestShortTitleInheritsPlaylistCategory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := classify.NewEngine(classify.NewProvider(cfg, nil), nil)
	ctx := context.Background()

	got := engine.ClassifyText(ctx, "Vlog #3", "", taxonomy.Help)
	if got.Category != taxonomy.Help || got.Confidence != 50 || got.Method != classify.MethodShortTitle {
		t.Fatalf("expected inherited help, got %+v", got)
	}
	got = engine.ClassifyText(ctx, "Vlog #3", "", taxonomy.None)
	if got.Category != taxonomy.Hub || got.Confidence != 40 {
		t.Fatalf("expected hub default, got %+v", got)
	}
	if got.Source() != taxonomy.SourceKeyword {
		t.Fatalf("expected keyword source, got %s", got.Source())
	}
}

func TestProviderUsesTFIDFWhenMLDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	provider := classify.NewProviderWithEmbedder(cfg, nil, &axisEmbedder{})
	if provider.Model().Variant() != classify.VariantTFIDF {
		t.Fatalf("expected tfidf, got %s", provider.Model().Variant())
	}
	if !errors.Is(provider.Degraded(), services.ErrModelUnavailable) {
		t.Fatalf("expected model_unavailable, got %v", provider.Degraded())
	}
}

func TestEngineDegradesOnEmbeddingFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithML())
	provider := classify.NewProviderWithEmbedder(cfg, nil, failingEmbedder{})
	if provider.Model().Variant() != classify.VariantDense {
		t.Fatalf("expected dense before the failure, got %s", provider.Model().Variant())
	}
	engine := classify.NewEngine(provider, nil)

	got := engine.ClassifyText(context.Background(), "Tutoriel complet pour réserver votre séjour", "", taxonomy.None)
	if got.Category != taxonomy.Help {
		t.Fatalf("expected help, got %+v", got)
	}
	if provider.Model().Variant() != classify.VariantTFIDF {
		t.Fatalf("expected degraded tfidf model, got %s", provider.Model().Variant())
	}
	if !errors.Is(provider.Degraded(), services.ErrModelUnavailable) {
		t.Fatalf("expected model_unavailable, got %v", provider.Degraded())
	}
}

func TestProviderQuantizedVariant(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithML())
	cfg.Classifier.Variant = config.VariantQuantized
	provider := classify.NewProviderWithEmbedder(cfg, nil, &axisEmbedder{})
	if provider.Model().Variant() != classify.VariantQuantized {
		t.Fatalf("expected quantized, got %s", provider.Model().Variant())
	}
	if provider.Degraded() != nil {
		t.Fatalf("unexpected degraded state %v", provider.Degraded())
	}
}

func seedChannel(t *testing.T, st *store.Store) {
	t.Helper()
	videos := []store.VideoInput{
		{VideoID: "v1", Title: "Tutoriel : comment réserver votre cottage", ViewCount: 100},
		{VideoID: "v2", Title: "Grand opening of our new resort", ViewCount: 200},
		{VideoID: "v3", Title: "Balade en forêt avec les enfants", ViewCount: 300},
	}
	info := &store.ChannelInfo{
		Name: "X",
		Playlists: []store.PlaylistInput{
			{PlaylistID: "PL1", Name: "Nos guides pratiques", VideoIDs: []string{"v2", "v3"}},
		},
	}
	testsupport.MustRefresh(t, st, "https://youtube.com/@X", videos, info)
}

func TestHumanLabelSurvivesBatchClassification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedChannel(t, st)
	svc := classify.NewService(cfg, st, nil)
	ctx := context.Background()

	if _, err := svc.SetVideoCategory(ctx, "v1", "hero", "brand launch"); err != nil {
		t.Fatalf("SetVideoCategory: %v", err)
	}
	report, err := svc.ClassifyVideos(ctx, 0)
	if err != nil {
		t.Fatalf("ClassifyVideos: %v", err)
	}
	if report.Total != 3 || report.Human != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	v1, _ := st.GetVideo(ctx, "v1")
	if v1.Category != taxonomy.Hero || v1.Source != taxonomy.SourceHuman || !v1.HumanValidated {
		t.Fatalf("human label was overwritten: %+v", v1)
	}

	items, err := svc.BatchClassify(ctx, []classify.Item{{VideoID: "v1"}, {Title: "Comment planifier vos vacances en famille"}})
	if err != nil {
		t.Fatalf("BatchClassify: %v", err)
	}
	if items[0].Method != classify.MethodHuman || items[0].Category != taxonomy.Hero || items[0].Updated {
		t.Fatalf("expected stored human label, got %+v", items[0])
	}
	if items[1].Stored || !items[1].Category.Valid() {
		t.Fatalf("expected ad-hoc classification, got %+v", items[1])
	}
}

func TestPlaylistLabelPropagates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedChannel(t, st)
	svc := classify.NewService(cfg, st, nil)
	ctx := context.Background()

	label, err := svc.SetPlaylistCategory(ctx, "PL1", "help")
	if err != nil {
		t.Fatalf("SetPlaylistCategory: %v", err)
	}
	if label.Propagated != 2 {
		t.Fatalf("expected two propagated videos, got %+v", label)
	}
	report, err := svc.ClassifyVideos(ctx, 0)
	if err != nil {
		t.Fatalf("ClassifyVideos: %v", err)
	}
	if report.Propagated != 2 {
		t.Fatalf("expected propagation to win over the engine, got %+v", report)
	}
	v2, _ := st.GetVideo(ctx, "v2")
	if v2.Category != taxonomy.Help || v2.Source != taxonomy.SourcePropagated || v2.Confidence != store.PropagatedConfidence {
		t.Fatalf("unexpected propagated video %+v", v2)
	}

	if _, err := svc.SetPlaylistCategory(ctx, "missing", "help"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestShortVideoTitleInheritsMachinePlaylistLabel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	videos := []store.VideoInput{
		{VideoID: "s1", Title: "Vlog #3", ViewCount: 10},
		{VideoID: "s2", Title: "Vlog #4", ViewCount: 20},
	}
	info := &store.ChannelInfo{
		Name:      "Y",
		Playlists: []store.PlaylistInput{{PlaylistID: "PLH", Name: "Guides", VideoIDs: []string{"s1"}}},
	}
	testsupport.MustRefresh(t, st, "https://youtube.com/@Y", videos, info)
	svc := classify.NewService(cfg, st, nil)
	ctx := context.Background()

	if _, err := st.ApplyMachinePlaylistLabel(ctx, "PLH", taxonomy.Help, taxonomy.SourceKeyword, 70); err != nil {
		t.Fatalf("ApplyMachinePlaylistLabel: %v", err)
	}
	report, err := svc.ClassifyVideos(ctx, 0)
	if err != nil {
		t.Fatalf("ClassifyVideos: %v", err)
	}
	if report.Propagated != 0 {
		t.Fatalf("machine playlist labels must not propagate, got %+v", report)
	}
	s1, _ := st.GetVideo(ctx, "s1")
	if s1.Category != taxonomy.Help || s1.Confidence != 50 {
		t.Fatalf("expected help at 50 from the playlist, got %+v", s1)
	}
	s2, _ := st.GetVideo(ctx, "s2")
	if s2.Category != taxonomy.Hub || s2.Confidence != 40 {
		t.Fatalf("expected hub default outside playlists, got %+v", s2)
	}

	items, err := svc.BatchClassify(ctx, []classify.Item{{VideoID: "s1"}})
	if err != nil {
		t.Fatalf("BatchClassify: %v", err)
	}
	if items[0].Category != taxonomy.Help || items[0].Method != classify.MethodShortTitle {
		t.Fatalf("expected inherited help in batch, got %+v", items[0])
	}
}

func TestLabelValidation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedChannel(t, st)
	svc := classify.NewService(cfg, st, nil)
	ctx := context.Background()

	if _, err := svc.SetVideoCategory(ctx, "v1", "viral", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.SetVideoCategory(ctx, "nope", "hub", ""); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.ClassifyItem(ctx, "   ", "desc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty title, got %v", err)
	}
}

func TestSubmitFeedbackResolvesVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	seedChannel(t, st)
	svc := classify.NewService(cfg, st, nil)
	ctx := context.Background()

	fb, err := svc.SubmitFeedback(ctx, "Grand opening of our new resort", "", "hero", "launch video")
	if err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	if fb.VideoRowID == 0 || fb.Type != store.FeedbackCorrection {
		t.Fatalf("expected resolved correction, got %+v", fb)
	}
	rows, err := st.ListFeedback(ctx, 10)
	if err != nil || len(rows) != 1 || rows[0].CorrectedCategory != taxonomy.Hero {
		t.Fatalf("unexpected feedback log %+v %v", rows, err)
	}
}

func TestTrainWithoutExamples(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	svc := classify.NewService(cfg, st, nil)

	_, err := svc.Train(context.Background(), classify.TrainOptions{})
	if !errors.Is(err, services.ErrValidation) || !strings.Contains(err.Error(), "no human examples") {
		t.Fatalf("expected no human examples error, got %v", err)
	}
}

func TestTrainPersistsStateAndReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	titles := map[taxonomy.Category][]string{
		taxonomy.Hero: {"Lancement exclusif collection", "Grande ouverture du village", "Annonce du festival d'été"},
		taxonomy.Hub:  {"Vlog hebdomadaire en famille", "Balade nature hebdomadaire", "Coulisses de la semaine"},
		taxonomy.Help: {"Tutoriel réservation cottage", "Guide pratique arrivée", "Astuces pour préparer le séjour"},
	}
	var videos []store.VideoInput
	for _, category := range taxonomy.Categories {
		for i, title := range titles[category] {
			videos = append(videos, store.VideoInput{VideoID: fmt.Sprintf("%s%d", category, i), Title: title})
		}
	}
	testsupport.MustRefresh(t, st, "https://youtube.com/@X", videos, nil)

	svc := classify.NewService(cfg, st, nil)
	for _, v := range videos {
		category := taxonomy.Category(strings.TrimRight(v.VideoID, "0123456789"))
		if _, err := svc.SetVideoCategory(ctx, v.VideoID, string(category), ""); err != nil {
			t.Fatalf("SetVideoCategory %s: %v", v.VideoID, err)
		}
	}

	report, err := svc.Train(ctx, classify.TrainOptions{TestSize: 2, Seed: 7})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if report.ExamplesUsed != 9 || report.Variant != classify.VariantTFIDF {
		t.Fatalf("unexpected report %+v", report)
	}
	if report.Validation == nil || report.Validation.Tested != 6 || len(report.Validation.Categories) != 3 {
		t.Fatalf("unexpected validation %+v", report.Validation)
	}
	if !report.Quality.Balanced || report.Quality.Competitors != 1 {
		t.Fatalf("unexpected quality %+v", report.Quality)
	}
	if len(report.Quality.Recommendations) != 2 {
		t.Fatalf("expected size and single-competitor recommendations, got %v", report.Quality.Recommendations)
	}

	meta, err := svc.TrainingMetadata(ctx)
	if err != nil {
		t.Fatalf("TrainingMetadata: %v", err)
	}
	if !meta.Trained || meta.ExamplesUsed != 9 || meta.CategoryCounts[taxonomy.Hub] != 3 || meta.ValidationAccuracy == nil {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	fresh := classify.NewService(cfg, st, nil)
	got, err := fresh.ClassifyItem(ctx, "Vlog hebdomadaire au bord du lac", "")
	if err != nil {
		t.Fatalf("ClassifyItem: %v", err)
	}
	if got.Category != taxonomy.Hub {
		t.Fatalf("expected restored prototypes to classify hub, got %+v", got)
	}
}
