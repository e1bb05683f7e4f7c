package vector

import (
	"errors"
	"math"
	"sort"
)

var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// CosineSimilarity returns the cosine of the angle between a and b.
// A zero vector has similarity 0 with everything.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Normalize scales vec to unit length. pgvector cosine distance assumes
// comparable magnitudes, so every provider normalizes before storing.
func Normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}

// Scored is a ranked item. Key breaks ties in ascending order.
type Scored[T any] struct {
	Item  T
	Key   string
	Score float64
}

// SortScored orders by score descending, then key ascending.
func SortScored[T any](items []Scored[T]) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Key < items[j].Key
	})
}

// TopK filters items below threshold, sorts them and keeps at most k.
// The input slice is not modified.
func TopK[T any](items []Scored[T], threshold float64, k int) []Scored[T] {
	kept := make([]Scored[T], 0, len(items))
	for _, it := range items {
		if it.Score >= threshold {
			kept = append(kept, it)
		}
	}
	SortScored(kept)
	if k > 0 && len(kept) > k {
		kept = kept[:k]
	}
	return kept
}
