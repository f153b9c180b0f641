package classify

import (
	"math"
	"testing"

	"ytanalyzer/internal/taxonomy"
)

func TestDecideTieResolvesToHub(t *testing.T) {
	result := decide(VariantDense, map[taxonomy.Category]float64{
		taxonomy.Hero: 0.80,
		taxonomy.Help: 0.795,
		taxonomy.Hub:  0.10,
	})
	if result.Category != taxonomy.Hub || !result.Tie {
		t.Fatalf("expected hub tie, got %+v", result)
	}
	if result.Confidence != scaleConfidence(0.10) {
		t.Fatalf("expected hub similarity to drive confidence, got %v", result.Confidence)
	}
}

func TestDecidePicksNearest(t *testing.T) {
	result := decide(VariantTFIDF, map[taxonomy.Category]float64{
		taxonomy.Hero: 0.2,
		taxonomy.Hub:  0.3,
		taxonomy.Help: 0.9,
	})
	if result.Category != taxonomy.Help || result.Tie {
		t.Fatalf("expected help, got %+v", result)
	}
	if result.Confidence != 92.7 {
		t.Fatalf("expected 92.7, got %v", result.Confidence)
	}
}

func TestScaleConfidenceBounds(t *testing.T) {
	cases := map[float64]float64{-0.5: 45, 0: 45, 1: 98, 2: 98, math.NaN(): 45}
	for sim, want := range cases {
		if got := scaleConfidence(sim); got != want {
			t.Fatalf("scaleConfidence(%v) = %v, want %v", sim, got, want)
		}
	}
}

func TestQuantizeRoundTrip(t *testing.T) {
	v := []float64{0.5, -1.25, 0.003, 0.9}
	q, scale := Quantize(v)
	back := Dequantize(q, scale)
	for i := range v {
		if math.Abs(back[i]-v[i]) > scale/2+1e-12 {
			t.Fatalf("component %d drifted: %v vs %v", i, back[i], v[i])
		}
	}
	zero, s := Quantize([]float64{0, 0})
	if s != 0 || zero[0] != 0 {
		t.Fatalf("expected zero vector to stay zero, got %v %v", zero, s)
	}
}

func TestKeywordScoresTitleTwice(t *testing.T) {
	k := NewKeyword()

	got := k.Classify("Tutoriel : comment réserver votre cottage", "")
	if got.Category != taxonomy.Help || got.Language != "fr" {
		t.Fatalf("expected french help, got %+v", got)
	}
	if got.Scores[taxonomy.Help] != 6 || got.Scores[taxonomy.Hub] != 2 {
		t.Fatalf("unexpected scores %+v", got.Scores)
	}
	if got.Confidence != 95 {
		t.Fatalf("expected capped confidence, got %v", got.Confidence)
	}

	desc := k.Classify("Our week in the forest", "A new festival")
	if desc.Category != taxonomy.Hero || desc.Score != 2 || desc.Confidence != 70 {
		t.Fatalf("expected description-only hero, got %+v", desc)
	}

	none := k.Classify("Zzzz qqqq", "")
	if none.Category != taxonomy.None || none.Confidence != 0 {
		t.Fatalf("expected uncategorised, got %+v", none)
	}
}

func TestKeywordMatchesAcrossSeparators(t *testing.T) {
	k := NewKeyword()
	got := k.Classify("Aqua-Mundo by night", "")
	if got.Scores[taxonomy.Hub] < 4 {
		t.Fatalf("expected the two-word phrase to match, got %+v", got.Scores)
	}
}
