package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ytanalyzer/internal/batch"
	"ytanalyzer/internal/classify"
	"ytanalyzer/internal/config"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/metrics"
	"ytanalyzer/internal/sentiment"
	"ytanalyzer/internal/services"
	"ytanalyzer/internal/snapshot"
	"ytanalyzer/internal/store"
)

const closeGrace = 5 * time.Second

// Core wires the stores and services behind the facade operations.
type Core struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	emotions *emotionstore.Store

	classifier *classify.Service
	metrics    *metrics.Service
	snapshots  *snapshot.Service
	scraper    *sentiment.Scraper
	analyzer   *sentiment.Analyzer
	batches    *batch.Manager
}

// Option customises Open.
type Option func(*options)

type options struct {
	source       sentiment.CommentSource
	model        sentiment.Model
	provider     *classify.Provider
	emotionsPath string
}

// WithCommentSource replaces the YouTube client used by the scraper.
func WithCommentSource(source sentiment.CommentSource) Option {
	return func(o *options) { o.source = source }
}

// WithSentimentModel replaces the sentiment model used by the analyzer.
func WithSentimentModel(model sentiment.Model) Option {
	return func(o *options) { o.model = model }
}

// WithClassifierProvider replaces the semantic model provider.
func WithClassifierProvider(provider *classify.Provider) Option {
	return func(o *options) { o.provider = provider }
}

// WithEmotionsPath opens a different emotions database, such as the
// configured fast store.
func WithEmotionsPath(path string) Option {
	return func(o *options) { o.emotionsPath = strings.TrimSpace(path) }
}

// Open creates the data directories, opens both stores, and builds the
// services on top of them.
func Open(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Core, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "open", "config is required", nil)
	}
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.emotionsPath == "" {
		o.emotionsPath = cfg.Paths.EmotionsDB
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "api", "open", "prepare directories", err)
	}

	primary, err := store.Open(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrInternal, "api", "open", "primary store", err)
	}
	emotions, err := emotionstore.Open(o.emotionsPath)
	if err != nil {
		primary.Close()
		return nil, services.Wrap(services.ErrInternal, "api", "open", "emotions store", err)
	}

	c := &Core{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "api"),
		store:    primary,
		emotions: emotions,
	}
	if o.provider != nil {
		c.classifier = classify.NewServiceWithProvider(cfg, primary, logger, o.provider)
	} else {
		c.classifier = classify.NewService(cfg, primary, logger)
	}
	if o.source != nil {
		c.scraper = sentiment.NewScraperWithSource(cfg, emotions, o.source, logger)
	} else {
		c.scraper = sentiment.NewScraper(cfg, emotions, logger)
	}
	if o.model != nil {
		c.analyzer = sentiment.NewAnalyzerWithModel(cfg, emotions, primary, o.model, logger)
	} else {
		c.analyzer = sentiment.NewAnalyzer(cfg, emotions, primary, logger)
	}
	c.metrics = metrics.NewService(cfg, primary, logger)
	c.snapshots = snapshot.NewService(cfg, emotions, primary, logger)
	c.batches = batch.NewManager(cfg, primary, c.scraper, logger)
	return c, nil
}

// Close stops a running batch, waits briefly for it, and releases both stores.
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	if c.batches != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
		for _, job := range c.batches.List() {
			if job.Status.Terminal() {
				continue
			}
			if _, err := c.batches.Stop(job.ID); err == nil {
				_, _ = c.batches.Wait(ctx, job.ID)
			}
		}
		cancel()
	}
	var errs []error
	if c.emotions != nil {
		errs = append(errs, c.emotions.Close())
	}
	if c.store != nil {
		errs = append(errs, c.store.Close())
	}
	return errors.Join(errs...)
}

// Config returns the configuration the core was opened with.
func (c *Core) Config() *config.Config { return c.cfg }
