package classify

import (
	"context"
	"math"
)

// Quantize maps v to int8 with a single per-vector scale.
func Quantize(v []float64) ([]int8, float64) {
	var maxAbs float64
	for _, x := range v {
		maxAbs = math.Max(maxAbs, math.Abs(x))
	}
	q := make([]int8, len(v))
	if maxAbs == 0 {
		return q, 0
	}
	scale := maxAbs / 127
	for i, x := range v {
		q[i] = int8(math.Round(x / scale))
	}
	return q, scale
}

// Dequantize reverses Quantize.
func Dequantize(q []int8, scale float64) []float64 {
	out := make([]float64, len(q))
	for i, x := range q {
		out[i] = float64(x) * scale
	}
	return out
}

// QuantizedEmbedder stores every vector of Inner at int8 precision.
type QuantizedEmbedder struct {
	Inner Embedder
}

func (q QuantizedEmbedder) Name() string { return q.Inner.Name() + "+int8" }

func (q QuantizedEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors, err := q.Inner.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		out[i] = Dequantize(Quantize(v))
	}
	return out, nil
}
