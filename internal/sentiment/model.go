package sentiment

import (
	"context"
	"log/slog"
	"strings"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/logging"
)

// Prediction is the sentiment of one text.
type Prediction struct {
	Emotion    emotionstore.EmotionType
	Confidence float64
}

// Model labels texts. Predict returns one prediction per input, in order.
type Model interface {
	Name() string
	Predict(ctx context.Context, texts []string) ([]Prediction, error)
}

// NewModel picks the inference endpoint when ML is enabled and a token is
// configured, and the lexicon otherwise.
func NewModel(cfg *config.Config, logger *slog.Logger) Model {
	logger = logging.NewComponentLogger(logger, "analyzer")
	if !cfg.ShouldLoadMLModels() {
		logger.Info("sentiment model selected", logging.String("model", LexiconModelName), logging.String("reason", "ml disabled"))
		return NewLexiconModel()
	}
	if strings.TrimSpace(cfg.Analyzer.InferenceToken) == "" {
		logging.WarnWithContext(logger, "inference token missing, using lexicon", "sentiment_model_fallback",
			logging.Hint("set HF_API_TOKEN to use the hosted model"),
			logging.Impact("sentiment uses the offline lexicon"),
		)
		return NewLexiconModel()
	}
	model := NewInferenceModel(InferenceConfig{
		BaseURL:        cfg.Analyzer.InferenceURL,
		Model:          cfg.Analyzer.Model,
		Token:          cfg.Analyzer.InferenceToken,
		TimeoutSeconds: cfg.YouTube.RequestTimeout * 2,
	})
	logger.Info("sentiment model selected", logging.String("model", model.Name()))
	return model
}
