package classify

import (
	"context"
	"fmt"
	"sync"

	"ytanalyzer/internal/taxonomy"
	"ytanalyzer/internal/textutil"
)

// Embedder turns texts into dense vectors, one per input in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Dense classifies by cosine similarity against mean-embedding prototypes.
// Prototypes are encoded on first use, so the first call pays the model latency.
type Dense struct {
	variant  string
	embedder Embedder

	mu         sync.RWMutex
	texts      map[taxonomy.Category][]string
	prototypes map[taxonomy.Category][]float64
}

// NewDense builds the dense variant over the default prototypes.
func NewDense(embedder Embedder) *Dense {
	return newDense(VariantDense, embedder)
}

// NewQuantized builds the quantised variant: vectors round-trip through int8
// before comparison.
func NewQuantized(embedder Embedder) *Dense {
	return newDense(VariantQuantized, QuantizedEmbedder{Inner: embedder})
}

func newDense(variant string, embedder Embedder) *Dense {
	return &Dense{variant: variant, embedder: embedder, texts: DefaultPrototypes().Texts}
}

func (d *Dense) Variant() string { return d.variant }

// Train replaces the prototypes with the mean embedding of the examples of
// each category. Categories without examples keep their default sentences.
func (d *Dense) Train(ctx context.Context, examples []Example) error {
	grouped := groupExamples(examples)
	if len(grouped) == 0 {
		return fmt.Errorf("%s train: no usable examples", d.variant)
	}
	texts := DefaultPrototypes().Texts
	for category, list := range grouped {
		texts[category] = list
	}
	prototypes, err := d.encode(ctx, texts)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.texts, d.prototypes = texts, prototypes
	d.mu.Unlock()
	return nil
}

// Classify embeds text and returns the nearest prototype.
func (d *Dense) Classify(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{}, ErrNoSignal
	}
	prototypes, err := d.ensurePrototypes(ctx)
	if err != nil {
		return Result{}, err
	}
	vectors, err := d.embedder.Embed(ctx, []string{text})
	if err != nil {
		return Result{}, fmt.Errorf("%s embed query: %w", d.variant, err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return Result{}, fmt.Errorf("%s embed query: empty embedding", d.variant)
	}
	sims := make(map[taxonomy.Category]float64, len(prototypes))
	for category, proto := range prototypes {
		sims[category] = textutil.Cosine(vectors[0], proto)
	}
	return decide(d.variant, sims), nil
}

// State returns the example texts behind the current prototypes.
func (d *Dense) State() PrototypeState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return cloneState(PrototypeState{Texts: d.texts})
}

// Restore installs persisted example texts. They are re-encoded lazily.
func (d *Dense) Restore(_ context.Context, state PrototypeState) error {
	if len(state.Texts) == 0 {
		return fmt.Errorf("%s restore: empty state", d.variant)
	}
	texts := DefaultPrototypes().Texts
	for category, list := range cloneState(state).Texts {
		if category.Valid() && len(list) > 0 {
			texts[category] = list
		}
	}
	d.mu.Lock()
	d.texts, d.prototypes = texts, nil
	d.mu.Unlock()
	return nil
}

func (d *Dense) ensurePrototypes(ctx context.Context) (map[taxonomy.Category][]float64, error) {
	d.mu.RLock()
	prototypes, texts := d.prototypes, d.texts
	d.mu.RUnlock()
	if prototypes != nil {
		return prototypes, nil
	}
	prototypes, err := d.encode(ctx, texts)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	if d.prototypes == nil {
		d.prototypes = prototypes
	}
	prototypes = d.prototypes
	d.mu.Unlock()
	return prototypes, nil
}

// encode embeds every text in one request and averages per category.
func (d *Dense) encode(ctx context.Context, texts map[taxonomy.Category][]string) (map[taxonomy.Category][]float64, error) {
	var (
		flat   []string
		owners []taxonomy.Category
	)
	for _, category := range taxonomy.Categories {
		for _, text := range texts[category] {
			flat = append(flat, text)
			owners = append(owners, category)
		}
	}
	vectors, err := d.embedder.Embed(ctx, flat)
	if err != nil {
		return nil, fmt.Errorf("%s encode prototypes: %w", d.variant, err)
	}
	if len(vectors) != len(flat) {
		return nil, fmt.Errorf("%s encode prototypes: got %d vectors for %d texts", d.variant, len(vectors), len(flat))
	}
	grouped := make(map[taxonomy.Category][][]float64, len(taxonomy.Categories))
	for i, v := range vectors {
		grouped[owners[i]] = append(grouped[owners[i]], v)
	}
	prototypes := make(map[taxonomy.Category][]float64, len(grouped))
	for category, list := range grouped {
		if mean := textutil.Mean(list); mean != nil {
			prototypes[category] = mean
		}
	}
	return prototypes, nil
}
