package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/taxonomy"
)

const (
	defaultTestSize     = 10
	maxSamplesPerClass  = 3
	balancedMinShare    = 0.20
	balancedMaxShare    = 0.50
	imbalanceShare      = 0.60
	recommendedExamples = 50
)

// TrainOptions tunes a training run.
type TrainOptions struct {
	// TestSize is the number of held-out examples per category.
	TestSize int
	// Seed fixes the holdout selection. Zero picks a time-based seed.
	Seed uint64
}

// SampleResult is one held-out prediction kept for the report.
type SampleResult struct {
	Text      string            `json:"text"`
	Expected  taxonomy.Category `json:"expected"`
	Predicted taxonomy.Category `json:"predicted"`
	Correct   bool              `json:"correct"`
}

// CategoryValidation is the holdout accuracy of one category.
type CategoryValidation struct {
	Tested   int            `json:"tested"`
	Correct  int            `json:"correct"`
	Accuracy float64        `json:"accuracy"`
	Samples  []SampleResult `json:"samples,omitempty"`
}

// ValidationReport summarises the holdout run.
type ValidationReport struct {
	Variant    string                                          `json:"variant"`
	Tested     int                                             `json:"tested"`
	Correct    int                                             `json:"correct"`
	Accuracy   float64                                         `json:"accuracy"`
	Categories map[taxonomy.Category]*CategoryValidation       `json:"categories"`
	Confusion  map[taxonomy.Category]map[taxonomy.Category]int `json:"confusion_matrix"`
	Skipped    []taxonomy.Category                             `json:"skipped_categories,omitempty"`
}

// QualityReport describes the training set.
type QualityReport struct {
	Distribution    map[taxonomy.Category]float64 `json:"distribution"`
	Balanced        bool                          `json:"balanced"`
	Competitors     int                           `json:"competitors"`
	Recommendations []string                      `json:"recommendations"`
}

// TrainingReport is returned by Train.
type TrainingReport struct {
	Variant        string                    `json:"variant"`
	TrainedAt      time.Time                 `json:"trained_at"`
	ExamplesUsed   int                       `json:"examples_used"`
	CategoryCounts map[taxonomy.Category]int `json:"category_counts"`
	Origins        map[string]int            `json:"origins"`
	Validation     *ValidationReport         `json:"validation,omitempty"`
	Quality        QualityReport             `json:"quality"`
	Degraded       string                    `json:"degraded,omitempty"`
}

// TrainingMetadata is the persisted summary of the last training run.
type TrainingMetadata struct {
	Trained            bool                      `json:"trained"`
	Variant            string                    `json:"variant,omitempty"`
	TrainedAt          *time.Time                `json:"trained_at,omitempty"`
	ExamplesUsed       int                       `json:"examples_used"`
	CategoryCounts     map[taxonomy.Category]int `json:"category_counts,omitempty"`
	ValidationAccuracy *float64                  `json:"validation_accuracy,omitempty"`
}

// Train rebuilds the semantic model from every human label, validates it on
// a per-category holdout and persists the result.
func (s *Service) Train(ctx context.Context, opts TrainOptions) (*TrainingReport, error) {
	if opts.TestSize <= 0 {
		opts.TestSize = defaultTestSize
	}
	if opts.Seed == 0 {
		opts.Seed = uint64(time.Now().UnixNano())
	}
	logger := logging.WithContext(ctx, s.logger)

	labelled, err := s.store.HumanExamples(ctx)
	if err != nil {
		return nil, err
	}
	examples, origins, competitors := trainingExamples(labelled)
	if len(examples) == 0 {
		return nil, services.Wrap(services.ErrValidation, "classifier", "train", "no human examples", nil)
	}
	counts := make(map[taxonomy.Category]int, len(taxonomy.Categories))
	for _, ex := range examples {
		counts[ex.Category]++
	}
	logger.Info("training started",
		logging.Int("examples", len(examples)),
		logging.Int("hero", counts[taxonomy.Hero]),
		logging.Int("hub", counts[taxonomy.Hub]),
		logging.Int("help", counts[taxonomy.Help]),
	)

	validation, err := s.validate(ctx, examples, opts)
	if err != nil {
		return nil, err
	}

	model := s.provider.Model()
	if err := model.Train(ctx, examples); err != nil {
		model = s.provider.Degrade(ctx, err)
		if err := model.Train(ctx, examples); err != nil {
			return nil, services.Wrap(services.ErrInternal, "classifier", "train", "train model", err)
		}
	}

	report := &TrainingReport{
		Variant:        model.Variant(),
		TrainedAt:      time.Now().UTC(),
		ExamplesUsed:   len(examples),
		CategoryCounts: counts,
		Origins:        origins,
		Validation:     validation,
		Quality:        qualityReport(counts, len(examples), competitors),
	}
	if degraded := s.provider.Degraded(); degraded != nil {
		report.Degraded = services.Describe(degraded)
	}
	if err := s.persist(ctx, model, report); err != nil {
		return nil, err
	}

	attrs := []logging.Attr{
		logging.String("variant", report.Variant),
		logging.Int("examples", report.ExamplesUsed),
		logging.Bool("balanced", report.Quality.Balanced),
	}
	if validation != nil {
		attrs = append(attrs, logging.Float64("accuracy", validation.Accuracy))
	}
	logger.Info("training finished", logging.Args(attrs...)...)
	return report, nil
}

func trainingExamples(labelled []store.LabelledText) ([]Example, map[string]int, int) {
	examples := make([]Example, 0, len(labelled))
	origins := make(map[string]int)
	competitors := make(map[int64]struct{})
	for _, item := range labelled {
		text := strings.TrimSpace(strings.TrimSpace(item.Title) + " " + strings.TrimSpace(item.Description))
		if text == "" || !item.Category.Valid() {
			continue
		}
		examples = append(examples, Example{Text: text, Category: item.Category})
		origins[item.Origin]++
		if item.CompetitorID > 0 {
			competitors[item.CompetitorID] = struct{}{}
		}
	}
	return examples, origins, len(competitors)
}

// validate trains a scratch model on all but a random holdout per category
// and scores the holdout. It returns nil when no category is large enough.
func (s *Service) validate(ctx context.Context, examples []Example, opts TrainOptions) (*ValidationReport, error) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	grouped := make(map[taxonomy.Category][]Example, len(taxonomy.Categories))
	for _, ex := range examples {
		grouped[ex.Category] = append(grouped[ex.Category], ex)
	}

	var train, test []Example
	var skipped []taxonomy.Category
	for _, category := range taxonomy.Categories {
		items := append([]Example(nil), grouped[category]...)
		if len(items) < opts.TestSize+1 {
			skipped = append(skipped, category)
			train = append(train, items...)
			continue
		}
		rng.Shuffle(len(items), func(i, j int) { items[i], items[j] = items[j], items[i] })
		test = append(test, items[:opts.TestSize]...)
		train = append(train, items[opts.TestSize:]...)
	}
	if len(test) == 0 {
		s.logger.Info("validation skipped", logging.Int("test_size", opts.TestSize))
		return nil, nil
	}

	report, err := s.scoreHoldout(ctx, s.provider.NewModel(), train, test)
	if err != nil && !errors.Is(err, ErrNoSignal) {
		s.provider.Degrade(ctx, err)
		report, err = s.scoreHoldout(ctx, s.provider.NewModel(), train, test)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "classifier", "validate", "holdout scoring", err)
	}
	report.Skipped = skipped
	return report, nil
}

func (s *Service) scoreHoldout(ctx context.Context, model Semantic, train, test []Example) (*ValidationReport, error) {
	if err := model.Train(ctx, train); err != nil {
		return nil, err
	}
	report := &ValidationReport{
		Variant:    model.Variant(),
		Categories: make(map[taxonomy.Category]*CategoryValidation),
		Confusion:  make(map[taxonomy.Category]map[taxonomy.Category]int),
	}
	for _, ex := range test {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		predicted := taxonomy.None
		result, err := model.Classify(ctx, ex.Text)
		switch {
		case err == nil:
			predicted = result.Category
		case !errors.Is(err, ErrNoSignal):
			return nil, err
		}
		stats := report.Categories[ex.Category]
		if stats == nil {
			stats = &CategoryValidation{}
			report.Categories[ex.Category] = stats
		}
		row := report.Confusion[ex.Category]
		if row == nil {
			row = make(map[taxonomy.Category]int)
			report.Confusion[ex.Category] = row
		}
		correct := predicted == ex.Category
		row[predicted]++
		stats.Tested++
		report.Tested++
		if correct {
			stats.Correct++
			report.Correct++
		}
		if len(stats.Samples) < maxSamplesPerClass {
			stats.Samples = append(stats.Samples, SampleResult{Text: ex.Text, Expected: ex.Category, Predicted: predicted, Correct: correct})
		}
	}
	for _, stats := range report.Categories {
		stats.Accuracy = ratio(stats.Correct, stats.Tested)
	}
	report.Accuracy = ratio(report.Correct, report.Tested)
	return report, nil
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(d)*10000) / 10000
}

func qualityReport(counts map[taxonomy.Category]int, total, competitors int) QualityReport {
	q := QualityReport{
		Distribution: make(map[taxonomy.Category]float64, len(taxonomy.Categories)),
		Balanced:     true,
		Competitors:  competitors,
	}
	for _, category := range taxonomy.Categories {
		share := float64(counts[category]) / float64(total)
		q.Distribution[category] = math.Round(share*10000) / 10000
		if share < balancedMinShare || share > balancedMaxShare {
			q.Balanced = false
		}
		if share > imbalanceShare {
			q.Recommendations = append(q.Recommendations,
				fmt.Sprintf("%s holds %.0f%% of the examples; label more videos of the other categories", category, share*100))
		}
	}
	if total < recommendedExamples {
		q.Recommendations = append(q.Recommendations,
			fmt.Sprintf("only %d examples; label at least %d for stable prototypes", total, recommendedExamples))
	}
	if competitors == 1 {
		q.Recommendations = append(q.Recommendations, "all examples come from one competitor; label other channels too")
	}
	return q
}

func (s *Service) persist(ctx context.Context, model Semantic, report *TrainingReport) error {
	countsJSON, err := json.Marshal(report.CategoryCounts)
	if err != nil {
		return fmt.Errorf("encode category counts: %w", err)
	}
	prototypesJSON, err := json.Marshal(model.State())
	if err != nil {
		return fmt.Errorf("encode prototypes: %w", err)
	}
	var validationJSON []byte
	if report.Validation != nil {
		if validationJSON, err = json.Marshal(report.Validation); err != nil {
			return fmt.Errorf("encode validation: %w", err)
		}
	}
	return s.store.SaveClassifierState(ctx, store.ClassifierState{
		Variant:            model.Variant(),
		TrainedAt:          report.TrainedAt,
		ExamplesUsed:       report.ExamplesUsed,
		CategoryCountsJSON: string(countsJSON),
		ValidationJSON:     string(validationJSON),
		PrototypesJSON:     string(prototypesJSON),
	})
}

// TrainingMetadata reports the last persisted training run of the active
// variant, falling back to the most recent run of any variant.
func (s *Service) TrainingMetadata(ctx context.Context) (TrainingMetadata, error) {
	state, err := s.store.ClassifierState(ctx, s.provider.Model().Variant())
	if err == nil && state == nil {
		state, err = s.store.ClassifierState(ctx, "")
	}
	if err != nil || state == nil {
		return TrainingMetadata{}, err
	}
	meta := TrainingMetadata{
		Trained:      true,
		Variant:      state.Variant,
		ExamplesUsed: state.ExamplesUsed,
	}
	if !state.TrainedAt.IsZero() {
		at := state.TrainedAt
		meta.TrainedAt = &at
	}
	if err := json.Unmarshal([]byte(state.CategoryCountsJSON), &meta.CategoryCounts); err != nil {
		s.logger.Debug("category counts unreadable", logging.Error(err))
	}
	if state.ValidationJSON != "" {
		var v ValidationReport
		if err := json.Unmarshal([]byte(state.ValidationJSON), &v); err == nil {
			acc := v.Accuracy
			meta.ValidationAccuracy = &acc
		}
	}
	return meta, nil
}

// SortedCategories returns the keys of a per-category map in taxonomy order
// followed by any others alphabetically.
func SortedCategories[V any](m map[taxonomy.Category]V) []taxonomy.Category {
	out := make([]taxonomy.Category, 0, len(m))
	for _, c := range taxonomy.Categories {
		if _, ok := m[c]; ok {
			out = append(out, c)
		}
	}
	var rest []taxonomy.Category
	for c := range m {
		if !c.Valid() {
			rest = append(rest, c)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	return append(out, rest...)
}
