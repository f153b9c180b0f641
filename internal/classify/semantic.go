package classify

import (
	"context"
	"errors"
	"math"

	"ytanalyzer/internal/taxonomy"
)

// Variant names shared with configuration.
const (
	VariantDense     = "dense"
	VariantQuantized = "quantized"
	VariantTFIDF     = "tfidf"
)

const (
	// tieMargin is the similarity gap below which the top two categories tie.
	tieMargin         = 0.01
	minSemanticConf   = 45.0
	semanticConfRange = 53.0
)

// ErrNoSignal reports that a text carries nothing the model can score.
var ErrNoSignal = errors.New("no semantic signal")

// Example is one labelled training text.
type Example struct {
	Text     string            `json:"text"`
	Category taxonomy.Category `json:"category"`
}

// Result is the semantic verdict for one text.
type Result struct {
	Category     taxonomy.Category             `json:"category"`
	Confidence   float64                       `json:"confidence"`
	Similarities map[taxonomy.Category]float64 `json:"similarities"`
	Variant      string                        `json:"variant"`
	Tie          bool                          `json:"tie,omitempty"`
}

// PrototypeState is the persisted form of a trained model: the example texts
// per category. Models re-encode them on restore.
type PrototypeState struct {
	Texts map[taxonomy.Category][]string `json:"texts"`
}

// Semantic is implemented by every semantic classifier variant.
type Semantic interface {
	Variant() string
	Train(ctx context.Context, examples []Example) error
	Classify(ctx context.Context, text string) (Result, error)
	State() PrototypeState
	Restore(ctx context.Context, state PrototypeState) error
}

var defaultPrototypes = map[taxonomy.Category][]string{
	taxonomy.Hero: {
		"Nouvelle collection exclusive lancée en avant-première",
		"Événement spécial et lancement de produit révolutionnaire",
		"Actualité importante et annonce majeure",
		"Première mondiale et révélation exclusive",
		"Campagne marketing de grande envergure",
		"Contenu viral et buzz médiatique",
		"Innovation révolutionnaire et technologie de pointe",
	},
	taxonomy.Hub: {
		"Série régulière de voyage et découverte de destinations",
		"Contenu hebdomadaire sur les expériences client",
		"Programme récurrent de présentation des services",
		"Collection de témoignages et retours d'expérience",
		"Série documentaire sur les coulisses",
		"Contenu éducatif et informatif régulier",
		"Présentation des équipes et des métiers",
	},
	taxonomy.Help: {
		"Comment résoudre un problème technique",
		"Guide étape par étape pour utiliser un service",
		"Tutoriel détaillé et mode d'emploi",
		"Réponses aux questions fréquentes",
		"Aide pour configurer et paramétrer",
		"Support technique et dépannage",
		"Instructions détaillées et marche à suivre",
	},
}

// DefaultPrototypes returns a copy of the built-in example sentences used
// until a model is trained.
func DefaultPrototypes() PrototypeState {
	return cloneState(PrototypeState{Texts: defaultPrototypes})
}

func cloneState(state PrototypeState) PrototypeState {
	out := PrototypeState{Texts: make(map[taxonomy.Category][]string, len(state.Texts))}
	for category, texts := range state.Texts {
		out.Texts[category] = append([]string(nil), texts...)
	}
	return out
}

// groupExamples buckets example texts by valid category, dropping blanks.
func groupExamples(examples []Example) map[taxonomy.Category][]string {
	grouped := make(map[taxonomy.Category][]string, len(taxonomy.Categories))
	for _, ex := range examples {
		if !ex.Category.Valid() || ex.Text == "" {
			continue
		}
		grouped[ex.Category] = append(grouped[ex.Category], ex.Text)
	}
	return grouped
}

// stateExamples flattens a prototype state back into examples.
func stateExamples(state PrototypeState) []Example {
	var out []Example
	for _, category := range taxonomy.Categories {
		for _, text := range state.Texts[category] {
			out = append(out, Example{Text: text, Category: category})
		}
	}
	return out
}

// decide picks the nearest category. When the top two similarities are
// within tieMargin the verdict is hub.
func decide(variant string, sims map[taxonomy.Category]float64) Result {
	result := Result{Similarities: sims, Variant: variant}
	best, second := taxonomy.None, taxonomy.None
	for _, category := range taxonomy.Categories {
		sim, ok := sims[category]
		if !ok {
			continue
		}
		switch {
		case best == taxonomy.None || sim > sims[best]:
			best, second = category, best
		case second == taxonomy.None || sim > sims[second]:
			second = category
		}
	}
	if best == taxonomy.None {
		return result
	}
	result.Category = best
	if second != taxonomy.None && sims[best]-sims[second] < tieMargin {
		result.Category = taxonomy.Hub
		result.Tie = true
	}
	result.Confidence = scaleConfidence(sims[result.Category])
	return result
}

// scaleConfidence maps a cosine similarity onto [45, 98].
func scaleConfidence(sim float64) float64 {
	if math.IsNaN(sim) {
		sim = 0
	}
	sim = math.Max(0, math.Min(1, sim))
	return math.Round((minSemanticConf+sim*semanticConfRange)*10) / 10
}
