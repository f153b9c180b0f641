package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ytanalyzer/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"YTA_ENVIRONMENT", "YTA_ENABLE_ML", "YTA_DB_PATH", "YTA_EMOTIONS_DB_PATH",
		"YTA_LOG_LEVEL", "YOUTUBE_API_KEY", "OPENAI_API_KEY", "HF_API_TOKEN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent")
	}
	if !filepath.IsAbs(cfg.Paths.PrimaryDB) || filepath.Base(cfg.Paths.PrimaryDB) != "database.db" {
		t.Fatalf("unexpected primary db path: %q", cfg.Paths.PrimaryDB)
	}
	if filepath.Base(cfg.Paths.EmotionsDB) != "youtube_emotions_massive.db" {
		t.Fatalf("unexpected emotions db path: %q", cfg.Paths.EmotionsDB)
	}
	if cfg.Environment.Name != config.EnvironmentDevelopment {
		t.Fatalf("expected development environment, got %q", cfg.Environment.Name)
	}
	if !cfg.ShouldLoadMLModels() {
		t.Fatal("expected ML models enabled in development by default")
	}
	if cfg.YouTube.DailyQuota != 10000 {
		t.Fatalf("unexpected daily quota: %d", cfg.YouTube.DailyQuota)
	}
	if cfg.Scraper.CommentsPerVideo != 20 || cfg.Analyzer.BatchSize != 1000 {
		t.Fatalf("unexpected worker defaults: %+v %+v", cfg.Scraper, cfg.Analyzer)
	}
	if cfg.Classifier.TestSize != 10 {
		t.Fatalf("unexpected classifier test size: %d", cfg.Classifier.TestSize)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "custom.db")
	t.Setenv("YTA_ENVIRONMENT", "Production")
	t.Setenv("YTA_DB_PATH", dbPath)
	t.Setenv("YOUTUBE_API_KEY", "yt-key")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production, got %q", cfg.Environment.Name)
	}
	if cfg.ShouldLoadMLModels() {
		t.Fatal("production must not load ML models")
	}
	if cfg.Paths.PrimaryDB != dbPath {
		t.Fatalf("expected YTA_DB_PATH override, got %q", cfg.Paths.PrimaryDB)
	}
	if cfg.YouTube.APIKey != "yt-key" {
		t.Fatalf("expected YouTube key from env, got %q", cfg.YouTube.APIKey)
	}
}

func TestEnableMLFlag(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("YTA_ENABLE_ML", "false")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ShouldLoadMLModels() {
		t.Fatal("expected YTA_ENABLE_ML=false to disable models")
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ytanalyzer.toml")

	type payload struct {
		YouTube struct {
			APIKey     string `toml:"api_key"`
			DailyQuota int    `toml:"daily_quota"`
		} `toml:"youtube"`
		Classifier struct {
			Variant string `toml:"variant"`
		} `toml:"classifier"`
	}
	custom := payload{}
	custom.YouTube.APIKey = "file-key"
	custom.YouTube.DailyQuota = 500
	custom.Classifier.Variant = "TFIDF"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom path to be used, got %q (exists=%v)", resolved, exists)
	}
	if cfg.YouTube.APIKey != "file-key" || cfg.YouTube.DailyQuota != 500 {
		t.Fatalf("unexpected youtube config: %+v", cfg.YouTube)
	}
	if cfg.Classifier.Variant != config.VariantTFIDF {
		t.Fatalf("expected normalized variant, got %q", cfg.Classifier.Variant)
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"environment", func(c *config.Config) { c.Environment.Name = "staging" }, "environment.name"},
		{"variant", func(c *config.Config) { c.Classifier.Variant = "bert" }, "classifier.variant"},
		{"workers", func(c *config.Config) { c.Scraper.Workers = -1 }, "scraper.workers"},
		{"quota", func(c *config.Config) { c.YouTube.DailyQuota = 0 }, "youtube.daily_quota"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "YTA_TEST_DOTENV_NEW=from-file\nYTA_TEST_DOTENV_SET=from-file\n"
	if err := os.WriteFile(envFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("YTA_TEST_DOTENV_SET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("YTA_TEST_DOTENV_NEW") })

	if err := config.LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("YTA_TEST_DOTENV_NEW"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("YTA_TEST_DOTENV_SET"); got != "from-env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}
