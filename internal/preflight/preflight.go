package preflight

import (
	"context"
	"path/filepath"

	"ytanalyzer/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Static directory", cfg.Paths.StaticDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Settings directory", filepath.Dir(cfg.Paths.SettingsFile)),
		CheckYouTubeKey(cfg),
		CheckMLMode(cfg),
	}

	// The hosted model is only contacted when the analyzer would use it.
	if cfg.ShouldLoadMLModels() && cfg.Analyzer.InferenceToken != "" {
		results = append(results, CheckInference(ctx, cfg.Analyzer.InferenceURL, cfg.Analyzer.Model, cfg.Analyzer.InferenceToken))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
