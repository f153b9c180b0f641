package classify

import (
	"context"
	"errors"
	"sync"

	"ytanalyzer/internal/taxonomy"
	"ytanalyzer/internal/textutil"
)

// TFIDF compares a query with per-category TF-IDF profiles. It needs no model.
type TFIDF struct {
	mu       sync.RWMutex
	texts    map[taxonomy.Category][]string
	idf      map[string]float64
	profiles map[taxonomy.Category]*textutil.Fingerprint
}

// NewTFIDF builds the TF-IDF variant over the default prototypes.
func NewTFIDF() *TFIDF {
	t := &TFIDF{}
	t.install(DefaultPrototypes().Texts)
	return t
}

func (t *TFIDF) Variant() string { return VariantTFIDF }

func (t *TFIDF) Train(_ context.Context, examples []Example) error {
	grouped := groupExamples(examples)
	if len(grouped) == 0 {
		return errors.New("tfidf train: no usable examples")
	}
	texts := DefaultPrototypes().Texts
	for category, list := range grouped {
		texts[category] = list
	}
	t.install(texts)
	return nil
}

func (t *TFIDF) install(texts map[taxonomy.Category][]string) {
	corpus := textutil.NewCorpus()
	raw := make(map[taxonomy.Category][]*textutil.Fingerprint, len(texts))
	for category, list := range texts {
		for _, text := range list {
			fp := textutil.NewFingerprint(text)
			if fp == nil {
				continue
			}
			corpus.Add(fp)
			raw[category] = append(raw[category], fp)
		}
	}
	idf := corpus.IDF()
	profiles := make(map[taxonomy.Category]*textutil.Fingerprint, len(raw))
	for category, fps := range raw {
		weighted := make([]*textutil.Fingerprint, 0, len(fps))
		for _, fp := range fps {
			weighted = append(weighted, fp.WithIDF(idf))
		}
		if profile := textutil.Centroid(weighted); profile != nil {
			profiles[category] = profile
		}
	}
	t.mu.Lock()
	t.texts, t.idf, t.profiles = texts, idf, profiles
	t.mu.Unlock()
}

// Classify returns ErrNoSignal when the query shares no term with any profile.
func (t *TFIDF) Classify(_ context.Context, text string) (Result, error) {
	t.mu.RLock()
	idf, profiles := t.idf, t.profiles
	t.mu.RUnlock()

	query := textutil.NewFingerprint(text).WithIDF(idf)
	if query == nil {
		return Result{}, ErrNoSignal
	}
	sims := make(map[taxonomy.Category]float64, len(profiles))
	var total float64
	for category, profile := range profiles {
		sims[category] = textutil.CosineSimilarity(query, profile)
		total += sims[category]
	}
	if total == 0 {
		return Result{}, ErrNoSignal
	}
	return decide(VariantTFIDF, sims), nil
}

func (t *TFIDF) State() PrototypeState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneState(PrototypeState{Texts: t.texts})
}

func (t *TFIDF) Restore(_ context.Context, state PrototypeState) error {
	if len(state.Texts) == 0 {
		return errors.New("tfidf restore: empty state")
	}
	texts := DefaultPrototypes().Texts
	for category, list := range cloneState(state).Texts {
		if category.Valid() && len(list) > 0 {
			texts[category] = list
		}
	}
	t.install(texts)
	return nil
}
