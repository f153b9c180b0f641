package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/language"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/store"
	"ytanalyzer/internal/textutil"
)

const (
	minCommentChars = 10
	maxCommentRunes = 512
	predictChunk    = 32
)

// Analyzer labels pending comments and maintains the per-video summaries.
type Analyzer struct {
	emotions *emotionstore.Store
	primary  *store.Store
	model    Model
	logger   *slog.Logger

	batchSize   int
	workers     int
	commitEvery int
}

// NewAnalyzer builds an analyser with the configured sentiment model.
// primary may be nil; summaries then carry no competitor or country.
func NewAnalyzer(cfg *config.Config, emotions *emotionstore.Store, primary *store.Store, logger *slog.Logger) *Analyzer {
	return NewAnalyzerWithModel(cfg, emotions, primary, NewModel(cfg, logger), logger)
}

// NewAnalyzerWithModel allows injecting the model (used in tests).
func NewAnalyzerWithModel(cfg *config.Config, emotions *emotionstore.Store, primary *store.Store, model Model, logger *slog.Logger) *Analyzer {
	a := &Analyzer{
		emotions:    emotions,
		primary:     primary,
		model:       model,
		logger:      logging.NewComponentLogger(logger, "analyzer"),
		batchSize:   1000,
		workers:     4,
		commitEvery: 10,
	}
	if cfg != nil {
		if cfg.Analyzer.BatchSize > 0 {
			a.batchSize = cfg.Analyzer.BatchSize
		}
		if cfg.Analyzer.Workers > 0 {
			a.workers = cfg.Analyzer.Workers
		}
		if cfg.Analyzer.CommitEvery > 0 {
			a.commitEvery = cfg.Analyzer.CommitEvery
		}
	}
	return a
}

// AnalyzeOptions overrides the configured batch size and worker count.
type AnalyzeOptions struct {
	BatchSize int
	Workers   int
}

// AnalysisReport summarises one analyser pass.
type AnalysisReport struct {
	Processed        int                              `json:"processed"`
	Analyzed         int                              `json:"analyzed"`
	Skipped          int                              `json:"skipped"`
	Failed           int                              `json:"failed"`
	Emotions         map[emotionstore.EmotionType]int `json:"emotions"`
	VideosSummarised int                              `json:"videos_summarised"`
	Duration         time.Duration                    `json:"duration"`
	Rate             float64                          `json:"comments_per_second"`
	Model            string                           `json:"model"`
}

// Run drains unprocessed comments batch by batch, then regenerates the
// summary of every video it touched and logs the pass.
func (a *Analyzer) Run(ctx context.Context, opts AnalyzeOptions) (AnalysisReport, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = a.batchSize
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = a.workers
	}
	logger := logging.WithContext(ctx, a.logger)
	started := time.Now()
	report := AnalysisReport{
		Emotions: make(map[emotionstore.EmotionType]int, len(emotionstore.EmotionTypes)),
		Model:    a.model.Name(),
	}
	touched := make(map[string]struct{})
	var failures []string

	var runErr error
	for ctx.Err() == nil {
		batch, err := a.emotions.PendingComments(ctx, batchSize)
		if err != nil {
			runErr = err
			break
		}
		if len(batch) == 0 {
			break
		}
		outcomes, predictErr := a.analyzeBatch(ctx, batch, workers)
		if predictErr != nil {
			failures = append(failures, predictErr.Error())
		}
		if err := a.emotions.RecordOutcomes(ctx, outcomes, a.commitEvery); err != nil {
			runErr = err
			break
		}
		for _, o := range outcomes {
			touched[o.Comment.VideoID] = struct{}{}
			report.Processed++
			switch {
			case o.Emotion != nil:
				report.Analyzed++
				report.Emotions[o.Emotion.Type]++
			case o.Language == "":
				report.Skipped++
			default:
				report.Failed++
			}
		}
		logger.Debug("batch analysed", logging.Int("comments", len(batch)), logging.Int("processed", report.Processed))
	}

	// Summaries and the pass log are written even when ctx ended mid-run.
	finishCtx := context.WithoutCancel(ctx)
	if len(touched) > 0 {
		ids := make([]string, 0, len(touched))
		for id := range touched {
			ids = append(ids, id)
		}
		n, err := a.emotions.RegenerateSummaries(finishCtx, ids, a.origins(finishCtx, ids))
		if err != nil && runErr == nil {
			runErr = err
		}
		report.VideosSummarised = n
	}

	report.Duration = time.Since(started)
	if secs := report.Duration.Seconds(); secs > 0 {
		report.Rate = math.Round(float64(report.Processed)/secs*100) / 100
	}
	entry := emotionstore.ProcessingLog{
		StartedAt:          started,
		FinishedAt:         time.Now(),
		CommentsProcessed:  report.Processed,
		SuccessfulAnalyses: report.Analyzed,
		Skipped:            report.Skipped,
		Failed:             report.Failed,
		BatchSize:          batchSize,
		ProcessingRate:     report.Rate,
		ModelName:          report.Model,
	}
	if runErr != nil {
		failures = append(failures, runErr.Error())
	}
	if len(failures) > 0 {
		entry.ErrorDetails = strings.Join(failures, "; ")
	}
	if err := a.emotions.InsertProcessingLog(finishCtx, entry); err != nil {
		logger.Warn("processing log not written", logging.Error(err))
	}

	logger.Info("emotion analysis finished",
		logging.Int("processed", report.Processed),
		logging.Int("analyzed", report.Analyzed),
		logging.Int("skipped", report.Skipped),
		logging.Int("failed", report.Failed),
		logging.Int("videos", report.VideosSummarised),
		logging.Duration("duration", report.Duration),
		logging.String("model", report.Model),
	)
	if runErr != nil {
		return report, runErr
	}
	return report, ctx.Err()
}

type pendingText struct {
	index int
	text  string
}

// analyzeBatch builds one outcome per comment. Short comments get neither a
// language nor an emotion; comments whose prediction failed keep their
// language only.
func (a *Analyzer) analyzeBatch(ctx context.Context, batch []emotionstore.RawComment, workers int) ([]emotionstore.Outcome, error) {
	outcomes := make([]emotionstore.Outcome, len(batch))
	var pending []pendingText
	for i, c := range batch {
		outcomes[i].Comment = c
		if utf8.RuneCountInString(strings.TrimSpace(c.Text)) < minCommentChars {
			continue
		}
		cleaned := textutil.Truncate(textutil.CollapseSpace(c.Text), maxCommentRunes)
		outcomes[i].Language = string(language.Detect(cleaned))
		pending = append(pending, pendingText{index: i, text: cleaned})
	}

	var (
		mu       sync.Mutex
		firstErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(pending); start += predictChunk {
		chunk := pending[start:min(start+predictChunk, len(pending))]
		g.Go(func() error {
			texts := make([]string, len(chunk))
			for i, p := range chunk {
				texts[i] = p.text
			}
			predictions, err := a.model.Predict(gctx, texts)
			if err == nil && len(predictions) != len(texts) {
				err = fmt.Errorf("%s returned %d predictions for %d texts", a.model.Name(), len(predictions), len(texts))
			}
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return nil
			}
			now := time.Now().UTC()
			for i, p := range chunk {
				pred := predictions[i]
				if !pred.Emotion.Valid() {
					continue
				}
				outcomes[p.index].Emotion = &emotionstore.Emotion{
					Type:          pred.Emotion,
					Confidence:    pred.Confidence,
					WeightedScore: emotionstore.WeightedScore(pred.Confidence, outcomes[p.index].Comment.LikeCount),
					AnalyzedAt:    now,
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	if firstErr != nil {
		logging.WarnWithContext(a.logger, "sentiment prediction failed", "prediction_failed",
			logging.Error(firstErr),
			logging.Impact("affected comments marked processed without emotion"),
		)
	}
	return outcomes, firstErr
}

func (a *Analyzer) origins(ctx context.Context, videoIDs []string) map[string]emotionstore.Origin {
	if a.primary == nil {
		return nil
	}
	contexts, err := a.primary.VideoContexts(ctx, videoIDs)
	if err != nil {
		a.logger.Warn("video context lookup failed", logging.Error(err))
		return nil
	}
	out := make(map[string]emotionstore.Origin, len(contexts))
	for id, vc := range contexts {
		out[id] = emotionstore.Origin{Competitor: vc.CompetitorName, Country: vc.Country}
	}
	return out
}
