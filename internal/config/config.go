package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains store, settings, and log locations.
type Paths struct {
	DataDir        string `toml:"data_dir"`
	PrimaryDB      string `toml:"primary_db"`
	EmotionsDB     string `toml:"emotions_db"`
	EmotionsFastDB string `toml:"emotions_fast_db"`
	SettingsFile   string `toml:"settings_file"`
	StaticDir      string `toml:"static_dir"`
	LogDir         string `toml:"log_dir"`
}

// Environment controls deployment mode and ML model loading.
type Environment struct {
	Name     string `toml:"name"`
	EnableML bool   `toml:"enable_ml"`
}

// YouTube contains configuration for the YouTube Data API.
type YouTube struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	DailyQuota     int    `toml:"daily_quota"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxRetries     int    `toml:"max_retries"`
}

// Scraper contains comment scraping settings.
type Scraper struct {
	CommentsPerVideo int `toml:"comments_per_video"`
	MassiveComments  int `toml:"massive_comments"`
	Workers          int `toml:"workers"`
	VideoDelayMillis int `toml:"video_delay_ms"`
}

// Analyzer contains sentiment inference settings.
type Analyzer struct {
	BatchSize      int    `toml:"batch_size"`
	Workers        int    `toml:"workers"`
	CommitEvery    int    `toml:"commit_every"`
	InferenceURL   string `toml:"inference_url"`
	InferenceToken string `toml:"inference_token"`
	Model          string `toml:"model"`
}

// Classifier contains HERO/HUB/HELP classifier settings.
type Classifier struct {
	// Variant selects the semantic backend: auto, dense, quantized, or tfidf.
	Variant        string `toml:"variant"`
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIBaseURL  string `toml:"openai_base_url"`
	EmbeddingModel string `toml:"embedding_model"`
	TestSize       int    `toml:"test_size"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for ytanalyzer.
//
// Configuration sections by subsystem:
//   - Paths: store files, settings.json, static snapshot directory, logs
//   - Environment: development/production mode and ML toggle
//   - YouTube: Data API credentials, quota budget, retries
//   - Scraper: comments per video and worker count
//   - Analyzer: sentiment batch size, workers, inference endpoint
//   - Classifier: semantic variant and embedding backend
//   - Logging: log format and level
type Config struct {
	Paths       Paths       `toml:"paths"`
	Environment Environment `toml:"environment"`
	YouTube     YouTube     `toml:"youtube"`
	Scraper     Scraper     `toml:"scraper"`
	Analyzer    Analyzer    `toml:"analyzer"`
	Classifier  Classifier  `toml:"classifier"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/ytanalyzer/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and environment overrides applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ytanalyzer.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories holding the stores, settings,
// static exports, and logs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.LogDir,
		c.Paths.StaticDir,
		filepath.Dir(c.Paths.PrimaryDB),
		filepath.Dir(c.Paths.EmotionsDB),
		filepath.Dir(c.Paths.EmotionsFastDB),
		filepath.Dir(c.Paths.SettingsFile),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockDir returns the directory used for advisory refresh locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.DataDir, "locks")
}

// IsProduction reports whether the deployment runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment.Name == EnvironmentProduction
}

// ShouldLoadMLModels reports whether embedding and sentiment models may be loaded.
// Production deployments read cached tables and JSON only.
func (c *Config) ShouldLoadMLModels() bool {
	if c == nil {
		return false
	}
	return c.Environment.EnableML && !c.IsProduction()
}

// SettingsStore returns the settings.json accessor for this configuration.
func (c *Config) SettingsStore() *SettingsFile {
	return &SettingsFile{Path: c.Paths.SettingsFile}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
