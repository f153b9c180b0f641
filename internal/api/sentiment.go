package api

import (
	"context"

	"ytanalyzer/internal/batch"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/sentiment"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/snapshot"
)

// StartScrapeBatch launches a background scrape over the most recent videos.
// Only one batch may be active at a time.
func (c *Core) StartScrapeBatch(ctx context.Context, req ScrapeRequest) Result[batch.Job] {
	return invoke(ctx, c, "start_scrape_batch", func(ctx context.Context) (batch.Job, error) {
		size := req.Size
		if req.All {
			size = 0
		} else if size <= 0 {
			return batch.Job{}, services.Wrap(services.ErrValidation, "api", "start scrape batch", "batch size must be positive or all", nil)
		}
		return c.batches.Start(ctx, batch.Options{Size: size, Resume: req.Resume, Massive: req.Massive})
	})
}

// BatchStatus returns the progress record of a batch.
func (c *Core) BatchStatus(ctx context.Context, id string) Result[batch.Job] {
	return invoke(ctx, c, "batch_status", func(ctx context.Context) (batch.Job, error) {
		return c.batches.Status(id)
	})
}

// StopBatch asks a batch to stop after its in-flight videos.
func (c *Core) StopBatch(ctx context.Context, id string) Result[batch.Job] {
	return invoke(ctx, c, "stop_batch", func(ctx context.Context) (batch.Job, error) {
		return c.batches.Stop(id)
	})
}

// WaitBatch blocks until a batch reaches a terminal status or ctx ends.
func (c *Core) WaitBatch(ctx context.Context, id string) Result[batch.Job] {
	return invoke(ctx, c, "wait_batch", func(ctx context.Context) (batch.Job, error) {
		return c.batches.Wait(ctx, id)
	})
}

// ListBatches returns every batch of this process, newest first.
func (c *Core) ListBatches(ctx context.Context) Result[[]batch.Job] {
	return invoke(ctx, c, "list_batches", func(context.Context) ([]batch.Job, error) {
		return c.batches.List(), nil
	})
}

// RunEmotionAnalysis analyses every pending comment and regenerates the
// per-video summaries it touched.
func (c *Core) RunEmotionAnalysis(ctx context.Context, batchSize, workers int) Result[sentiment.AnalysisReport] {
	return invoke(ctx, c, "run_emotion_analysis", func(ctx context.Context) (sentiment.AnalysisReport, error) {
		if batchSize < 0 || workers < 0 {
			return sentiment.AnalysisReport{}, services.Wrap(services.ErrValidation, "api", "run emotion analysis", "batch size and workers must not be negative", nil)
		}
		return c.analyzer.Run(ctx, sentiment.AnalyzeOptions{BatchSize: batchSize, Workers: workers})
	})
}

// EmotionStats is the payload of EmotionStats.
type EmotionStats struct {
	Analysis emotionstore.Stats         `json:"analysis"`
	Scraping emotionstore.ScrapingStats `json:"scraping"`
}

// EmotionStats reports analyser and scraper totals.
func (c *Core) EmotionStats(ctx context.Context) Result[EmotionStats] {
	return invoke(ctx, c, "emotion_stats", func(ctx context.Context) (EmotionStats, error) {
		analysis, err := c.emotions.Stats(ctx)
		if err != nil {
			return EmotionStats{}, err
		}
		scraping, err := c.scraper.Stats(ctx)
		if err != nil {
			return EmotionStats{}, err
		}
		return EmotionStats{Analysis: analysis, Scraping: scraping}, nil
	})
}

// GetSentimentSnapshot returns the dashboard snapshot. It always succeeds,
// falling back to exported files and finally an empty stub.
func (c *Core) GetSentimentSnapshot(ctx context.Context) Result[*snapshot.Snapshot] {
	return invoke(ctx, c, "get_sentiment_snapshot", func(ctx context.Context) (*snapshot.Snapshot, error) {
		return c.snapshots.Get(ctx), nil
	})
}
