package testsupport

import (
	"path/filepath"
	"testing"

	"ytanalyzer/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose stores, settings, and static files live
// in a unique temp directory per test. ML is disabled unless an option enables it.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "instance")
	cfgVal.Paths.PrimaryDB = filepath.Join(base, "instance", "database.db")
	cfgVal.Paths.EmotionsDB = filepath.Join(base, "instance", "emotions.db")
	cfgVal.Paths.EmotionsFastDB = filepath.Join(base, "instance", "emotions_fast.db")
	cfgVal.Paths.SettingsFile = filepath.Join(base, "config", "settings.json")
	cfgVal.Paths.StaticDir = filepath.Join(base, "static")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Environment.EnableML = false
	cfgVal.YouTube.APIKey = "test-key"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithYouTube points the YouTube client at a test server.
func WithYouTube(baseURL, apiKey string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.YouTube.BaseURL = baseURL
		b.cfg.YouTube.APIKey = apiKey
	}
}

// WithML enables ML model loading in development mode.
func WithML() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Environment.Name = config.EnvironmentDevelopment
		b.cfg.Environment.EnableML = true
	}
}

// WithPaidThreshold writes settings.json with the given threshold.
func WithPaidThreshold(threshold int) ConfigOption {
	return func(b *configBuilder) {
		if err := b.cfg.SettingsStore().Save(config.Settings{PaidThreshold: threshold}); err != nil {
			b.t.Fatalf("save settings: %v", err)
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
