package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvOverrides()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEnvironment()
	c.normalizeYouTube()
	c.normalizeScraper()
	c.normalizeAnalyzer()
	c.normalizeClassifier()
	c.normalizeLogging()
	return nil
}

// applyEnvOverrides lets deployment variables win over file values for the
// environment switches and store location. Credentials only fill blanks.
func (c *Config) applyEnvOverrides() {
	if value, ok := lookupEnvTrimmed("YTA_ENVIRONMENT"); ok {
		c.Environment.Name = value
	}
	if value, ok := lookupEnvTrimmed("YTA_ENABLE_ML"); ok {
		if enabled, valid := parseBool(value); valid {
			c.Environment.EnableML = enabled
		}
	}
	if value, ok := lookupEnvTrimmed("YTA_DB_PATH"); ok {
		c.Paths.PrimaryDB = value
	}
	if value, ok := lookupEnvTrimmed("YTA_EMOTIONS_DB_PATH"); ok {
		c.Paths.EmotionsDB = value
	}
	if value, ok := lookupEnvTrimmed("YTA_LOG_LEVEL"); ok {
		c.Logging.Level = value
	}
	if strings.TrimSpace(c.YouTube.APIKey) == "" {
		if value, ok := lookupEnvTrimmed("YOUTUBE_API_KEY"); ok {
			c.YouTube.APIKey = value
		}
	}
	if strings.TrimSpace(c.Classifier.OpenAIAPIKey) == "" {
		if value, ok := lookupEnvTrimmed("OPENAI_API_KEY"); ok {
			c.Classifier.OpenAIAPIKey = value
		}
	}
	if strings.TrimSpace(c.Analyzer.InferenceToken) == "" {
		if value, ok := lookupEnvTrimmed("HF_API_TOKEN"); ok {
			c.Analyzer.InferenceToken = value
		}
	}
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.primary_db", &c.Paths.PrimaryDB, defaultPrimaryDB},
		{"paths.emotions_db", &c.Paths.EmotionsDB, defaultEmotionsDB},
		{"paths.emotions_fast_db", &c.Paths.EmotionsFastDB, defaultEmotionsFastDB},
		{"paths.settings_file", &c.Paths.SettingsFile, defaultSettingsFile},
		{"paths.static_dir", &c.Paths.StaticDir, defaultStaticDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeEnvironment() {
	c.Environment.Name = strings.ToLower(strings.TrimSpace(c.Environment.Name))
	if c.Environment.Name == "" {
		c.Environment.Name = EnvironmentDevelopment
	}
}

func (c *Config) normalizeYouTube() {
	c.YouTube.APIKey = strings.TrimSpace(c.YouTube.APIKey)
	c.YouTube.BaseURL = strings.TrimRight(strings.TrimSpace(c.YouTube.BaseURL), "/")
	if c.YouTube.BaseURL == "" {
		c.YouTube.BaseURL = defaultYouTubeBaseURL
	}
	if c.YouTube.DailyQuota == 0 {
		c.YouTube.DailyQuota = defaultDailyQuota
	}
	if c.YouTube.RequestTimeout == 0 {
		c.YouTube.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeScraper() {
	if c.Scraper.CommentsPerVideo == 0 {
		c.Scraper.CommentsPerVideo = defaultCommentsPerVideo
	}
	if c.Scraper.MassiveComments == 0 {
		c.Scraper.MassiveComments = defaultMassiveComments
	}
	if c.Scraper.Workers == 0 {
		c.Scraper.Workers = defaultScraperWorkers
	}
}

func (c *Config) normalizeAnalyzer() {
	if c.Analyzer.BatchSize == 0 {
		c.Analyzer.BatchSize = defaultAnalyzerBatch
	}
	if c.Analyzer.Workers == 0 {
		c.Analyzer.Workers = defaultAnalyzerWorkers
	}
	if c.Analyzer.CommitEvery == 0 {
		c.Analyzer.CommitEvery = defaultCommitEvery
	}
	c.Analyzer.InferenceURL = strings.TrimRight(strings.TrimSpace(c.Analyzer.InferenceURL), "/")
	c.Analyzer.InferenceToken = strings.TrimSpace(c.Analyzer.InferenceToken)
	c.Analyzer.Model = strings.TrimSpace(c.Analyzer.Model)
	if c.Analyzer.Model == "" {
		c.Analyzer.Model = defaultSentimentModel
	}
}

func (c *Config) normalizeClassifier() {
	c.Classifier.Variant = strings.ToLower(strings.TrimSpace(c.Classifier.Variant))
	if c.Classifier.Variant == "" {
		c.Classifier.Variant = VariantAuto
	}
	c.Classifier.OpenAIAPIKey = strings.TrimSpace(c.Classifier.OpenAIAPIKey)
	c.Classifier.OpenAIBaseURL = strings.TrimSpace(c.Classifier.OpenAIBaseURL)
	c.Classifier.EmbeddingModel = strings.TrimSpace(c.Classifier.EmbeddingModel)
	if c.Classifier.EmbeddingModel == "" {
		c.Classifier.EmbeddingModel = defaultEmbeddingModel
	}
	if c.Classifier.TestSize == 0 {
		c.Classifier.TestSize = defaultTestSize
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func lookupEnvTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func parseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
