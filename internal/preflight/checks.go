package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ytanalyzer/internal/config"
)

const (
	defaultInferenceURL   = "https://api-inference.huggingface.co/models"
	defaultSentimentModel = "cardiffnlp/twitter-xlm-roberta-base-sentiment"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckYouTubeKey reports whether a Data API key is configured. It never
// calls the API, since every call spends quota.
func CheckYouTubeKey(cfg *config.Config) Result {
	const name = "YouTube API key"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	key := strings.TrimSpace(cfg.YouTube.APIKey)
	if key == "" {
		return Result{Name: name, Detail: "Missing (set YOUTUBE_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("Configured (...%s), daily quota %d", tail(key, 4), cfg.YouTube.DailyQuota)}
}

// CheckMLMode reports which models the analyzer and classifier will load.
// It fails when ML is enabled but a credential the models need is missing.
func CheckMLMode(cfg *config.Config) Result {
	const name = "ML models"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.ShouldLoadMLModels() {
		reason := "disabled"
		if cfg.Environment.EnableML && cfg.IsProduction() {
			reason = "disabled in production"
		}
		return Result{Name: name, Passed: true, Detail: reason + "; lexicon sentiment and TF-IDF classifier"}
	}

	var missing []string
	if strings.TrimSpace(cfg.Analyzer.InferenceToken) == "" {
		missing = append(missing, "HF_API_TOKEN")
	}
	variant := cfg.Classifier.Variant
	if variant != config.VariantTFIDF && strings.TrimSpace(cfg.Classifier.OpenAIAPIKey) == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("enabled, missing %s (falling back to offline models)", strings.Join(missing, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("enabled; classifier variant %s", variant)}
}

// CheckInference verifies that the hosted sentiment model answers and the
// token is accepted. It uses a 10-second timeout and a single attempt.
func CheckInference(ctx context.Context, baseURL, model, token string) Result {
	const name = "Sentiment inference"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = defaultInferenceURL
	}
	model = strings.Trim(strings.TrimSpace(model), "/")
	if model == "" {
		model = defaultSentimentModel
	}
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "missing token"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/"+model, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: model + " reachable"}
	case http.StatusServiceUnavailable:
		return Result{Name: name, Passed: true, Detail: model + " loading"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid token)"}
	case http.StatusNotFound:
		return Result{Name: name, Detail: "model " + model + " not found"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// summarizeNetworkError produces a human-readable summary for endpoint failures.
func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (endpoint unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (endpoint unreachable)"
	}
	return err.Error()
}
