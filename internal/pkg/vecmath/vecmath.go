// Package vecmath holds the float32 vector helpers shared by the embedding
// generator and the brute-force similarity scan.
package vecmath

import "math"

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// IsZero reports whether v is empty or has zero norm.
func IsZero(v []float32) bool {
	return Norm(v) == 0
}

// Normalize returns a unit-length copy of v. A zero vector is returned as a
// zero vector of the same length.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// Scale returns a copy of v multiplied by w.
func Scale(v []float32, w float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * w)
	}
	return out
}

// Cosine returns dot(a,b) / (|a| * |b|). ok is false when the lengths differ
// or either vector has zero norm, in which case the similarity is undefined.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors a hair past 1
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, true
}
