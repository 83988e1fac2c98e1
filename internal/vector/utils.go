package vector

import (
	"fmt"
	"math"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// The result is a value between -1 and 1, where 1 means the vectors point the
// same way, 0 means they are orthogonal, and -1 means they are opposite.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same dimension: %d != %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("one or both vectors have zero magnitude")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// ToFloat64 copies float32 embeddings into float64 rows for numeric code.
// It fails when the rows are ragged, empty-dimensional or non-finite.
func ToFloat64(vectors [][]float32) ([][]float64, error) {
	out := make([][]float64, len(vectors))
	if len(vectors) == 0 {
		return out, nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("vectors must have at least one dimension")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
		row := make([]float64, dim)
		for j, x := range v {
			f := float64(x)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, fmt.Errorf("vector %d has a non-finite value at %d", i, j)
			}
			row[j] = f
		}
		out[i] = row
	}
	return out, nil
}
