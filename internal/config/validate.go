package config

import (
	"errors"
	"fmt"
	"sort"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEnvironment(); err != nil {
		return err
	}
	if err := c.validateYouTube(); err != nil {
		return err
	}
	if err := c.validateWorkers(); err != nil {
		return err
	}
	if err := c.validateClassifier(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateEnvironment() error {
	switch c.Environment.Name {
	case EnvironmentDevelopment, EnvironmentProduction:
		return nil
	default:
		return fmt.Errorf("environment.name: unsupported value %q (want development or production)", c.Environment.Name)
	}
}

func (c *Config) validateYouTube() error {
	if c.YouTube.DailyQuota <= 0 {
		return errors.New("youtube.daily_quota must be positive")
	}
	if c.YouTube.RequestTimeout <= 0 {
		return errors.New("youtube.request_timeout must be positive (seconds)")
	}
	if c.YouTube.MaxRetries < 0 {
		return errors.New("youtube.max_retries must not be negative")
	}
	return nil
}

func (c *Config) validateWorkers() error {
	if err := ensurePositiveMap(map[string]int{
		"scraper.comments_per_video": c.Scraper.CommentsPerVideo,
		"scraper.massive_comments":   c.Scraper.MassiveComments,
		"scraper.workers":            c.Scraper.Workers,
		"analyzer.batch_size":        c.Analyzer.BatchSize,
		"analyzer.workers":           c.Analyzer.Workers,
		"analyzer.commit_every":      c.Analyzer.CommitEvery,
	}); err != nil {
		return err
	}
	if c.Scraper.VideoDelayMillis < 0 {
		return errors.New("scraper.video_delay_ms must not be negative")
	}
	return nil
}

func (c *Config) validateClassifier() error {
	switch c.Classifier.Variant {
	case VariantAuto, VariantDense, VariantQuantized, VariantTFIDF:
	default:
		return fmt.Errorf("classifier.variant: unsupported value %q", c.Classifier.Variant)
	}
	if c.Classifier.TestSize <= 0 {
		return errors.New("classifier.test_size must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
