package classify

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/taxonomy"
	"ytanalyzer/internal/textutil"
)

// Classification methods reported to callers.
const (
	MethodHuman      = "human"
	MethodPropagated = "propagated"
	MethodSemantic   = "semantic"
	MethodKeyword    = "keyword"
	MethodShortTitle = "short_title"
)

const (
	minTitleChars     = 10
	shortTitleConf    = 50.0
	shortTitleHubConf = 40.0
)

// Classification is the verdict for one text.
type Classification struct {
	Category   taxonomy.Category `json:"category"`
	Confidence float64           `json:"confidence"`
	Method     string            `json:"method"`
	Details    map[string]any    `json:"details,omitempty"`
}

// Source maps the method to the classification_source written to the store.
func (c Classification) Source() taxonomy.Source {
	switch c.Method {
	case MethodHuman:
		return taxonomy.SourceHuman
	case MethodPropagated:
		return taxonomy.SourcePropagated
	case MethodSemantic:
		return taxonomy.SourceSemantic
	case MethodKeyword, MethodShortTitle:
		if c.Category.Valid() {
			return taxonomy.SourceKeyword
		}
	}
	return taxonomy.SourceNone
}

// Engine combines the semantic model with the keyword fallback.
type Engine struct {
	provider *Provider
	keyword  *Keyword
	logger   *slog.Logger
}

// NewEngine wires an engine over provider.
func NewEngine(provider *Provider, logger *slog.Logger) *Engine {
	return &Engine{provider: provider, keyword: NewKeyword(), logger: logging.NewComponentLogger(logger, "classifier")}
}

// ClassifyText labels a title and description. Titles shorter than ten
// non-whitespace characters inherit playlistCategory (or hub) with capped
// confidence; otherwise the semantic model decides and the keyword
// classifier covers its failures.
func (e *Engine) ClassifyText(ctx context.Context, title, description string, playlistCategory taxonomy.Category) Classification {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)

	if textutil.NonSpaceLen(title) < minTitleChars {
		out := Classification{Category: taxonomy.Hub, Confidence: shortTitleHubConf, Method: MethodShortTitle,
			Details: map[string]any{"title_length": textutil.NonSpaceLen(title)}}
		if playlistCategory.Valid() {
			out.Category, out.Confidence = playlistCategory, shortTitleConf
			out.Details["playlist_category"] = string(playlistCategory)
		}
		return out
	}

	text := strings.TrimSpace(title + " " + description)
	result, err := e.semantic(ctx, text)
	if err == nil && result.Category.Valid() {
		details := map[string]any{
			"variant":      result.Variant,
			"similarities": similarityDetails(result.Similarities),
		}
		if result.Tie {
			details["tie"] = true
		}
		return Classification{Category: result.Category, Confidence: result.Confidence, Method: MethodSemantic, Details: details}
	}

	kw := e.keyword.Classify(title, description)
	details := map[string]any{"scores": scoreDetails(kw.Scores), "language": string(kw.Language)}
	if err != nil {
		details["semantic_error"] = err.Error()
	}
	return Classification{Category: kw.Category, Confidence: kw.Confidence, Method: MethodKeyword, Details: details}
}

// semantic classifies with the shared model. An embedding failure degrades
// the provider to TF-IDF and retries once.
func (e *Engine) semantic(ctx context.Context, text string) (Result, error) {
	model := e.provider.Model()
	result, err := model.Classify(ctx, text)
	if err == nil || errors.Is(err, ErrNoSignal) || model.Variant() == VariantTFIDF {
		return result, err
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	return e.provider.Degrade(ctx, err).Classify(ctx, text)
}

func similarityDetails(sims map[taxonomy.Category]float64) map[string]float64 {
	out := make(map[string]float64, len(sims))
	for category, sim := range sims {
		out[string(category)] = sim
	}
	return out
}

func scoreDetails(scores map[taxonomy.Category]int) map[string]int {
	out := make(map[string]int, len(scores))
	for category, score := range scores {
		out[string(category)] = score
	}
	return out
}
