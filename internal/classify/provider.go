package classify

import (
	"context"
	"log/slog"
	"sync"

	"ytanalyzer/internal/config"
	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
)

// Provider owns the process-wide semantic model. The model is built once on
// first use; a dense model that fails at runtime is swapped for TF-IDF.
type Provider struct {
	cfg      *config.Config
	logger   *slog.Logger
	embedder Embedder

	once     sync.Once
	mu       sync.RWMutex
	model    Semantic
	degraded error
}

// NewProvider selects the variant from configuration.
func NewProvider(cfg *config.Config, logger *slog.Logger) *Provider {
	return NewProviderWithEmbedder(cfg, logger, nil)
}

// NewProviderWithEmbedder injects the dense backend (used in tests).
func NewProviderWithEmbedder(cfg *config.Config, logger *slog.Logger, embedder Embedder) *Provider {
	return &Provider{cfg: cfg, logger: logging.NewComponentLogger(logger, "classifier"), embedder: embedder}
}

// Model returns the shared semantic model, building it on first call.
func (p *Provider) Model() Semantic {
	p.once.Do(func() {
		model := p.build()
		p.mu.Lock()
		p.model = model
		p.mu.Unlock()
	})
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// NewModel builds a fresh, untrained model of the active variant. Training
// validation uses it so the shared model is untouched.
func (p *Provider) NewModel() Semantic {
	switch p.Model().Variant() {
	case VariantDense:
		return NewDense(p.embedder)
	case VariantQuantized:
		return NewQuantized(p.embedder)
	default:
		return NewTFIDF()
	}
}

// Degrade replaces a failing embedding model with TF-IDF, keeping its
// training texts. It returns the replacement.
func (p *Provider) Degrade(ctx context.Context, cause error) Semantic {
	current := p.Model()
	if current.Variant() == VariantTFIDF {
		return current
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.model.Variant() == VariantTFIDF {
		return p.model
	}
	fallback := NewTFIDF()
	if err := fallback.Restore(ctx, p.model.State()); err != nil {
		p.logger.Debug("tfidf restore skipped", logging.Error(err))
	}
	logging.WarnWithContext(p.logger, "semantic model degraded to tfidf", "model_degraded",
		logging.String("variant", p.model.Variant()),
		logging.Error(cause),
		logging.Hint("check the embeddings endpoint and API key"),
		logging.Impact("classification uses TF-IDF prototypes"),
	)
	p.model = fallback
	p.degraded = services.Wrap(services.ErrModelUnavailable, "classifier", "embed", "dense model failed", cause)
	return fallback
}

// Degraded returns the failure that forced the TF-IDF fallback, if any.
func (p *Provider) Degraded() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.degraded
}

func (p *Provider) build() Semantic {
	variant := config.VariantAuto
	if p.cfg != nil {
		variant = p.cfg.Classifier.Variant
	}
	if variant == config.VariantTFIDF {
		return NewTFIDF()
	}
	if !p.cfg.ShouldLoadMLModels() {
		p.unavailable("ML models disabled for this environment")
		return NewTFIDF()
	}
	if p.embedder == nil {
		embedder, err := NewOpenAIEmbedder(p.cfg.Classifier.OpenAIAPIKey, p.cfg.Classifier.OpenAIBaseURL, p.cfg.Classifier.EmbeddingModel)
		if err != nil {
			p.unavailable(err.Error())
			return NewTFIDF()
		}
		p.embedder = embedder
	}
	if variant == config.VariantQuantized {
		p.logger.Info("semantic model selected", logging.String("variant", VariantQuantized), logging.String("embedder", p.embedder.Name()))
		return NewQuantized(p.embedder)
	}
	p.logger.Info("semantic model selected", logging.String("variant", VariantDense), logging.String("embedder", p.embedder.Name()))
	return NewDense(p.embedder)
}

func (p *Provider) unavailable(reason string) {
	p.mu.Lock()
	p.degraded = services.Wrap(services.ErrModelUnavailable, "classifier", "load model", reason, nil)
	p.mu.Unlock()
	logging.WarnWithContext(p.logger, "embedding model unavailable, using tfidf", "model_unavailable",
		logging.String("reason", reason),
		logging.Hint("set OPENAI_API_KEY and enable ML in development"),
		logging.Impact("classification uses TF-IDF prototypes"),
	)
}
