// Package similarity computes cosine similarity between embedding vectors
package similarity

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDimensionMismatch is returned when two vectors have different lengths
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNonFinite is returned when a vector holds NaN or Inf components
	ErrNonFinite = errors.New("embedding contains non-finite values")
)

// Batch scores every target against query by cosine similarity, preserving
// target order. Scores lie in [-1, 1]; a zero-magnitude vector scores 0
// against everything. The query norm is computed once.
func Batch(query []float32, targets [][]float32) ([]float32, error) {
	scores := make([]float32, len(targets))

	queryNorm := L2Norm(query)
	for i, target := range targets {
		if len(target) != len(query) {
			return nil, fmt.Errorf("%w: candidate %d has %d dimensions, query has %d",
				ErrDimensionMismatch, i, len(target), len(query))
		}
		scores[i] = cosine(query, queryNorm, target)
	}

	return scores, nil
}

// cosine scores b against a whose norm is already known
func cosine(a []float32, normA float64, b []float32) float32 {
	if normA == 0 {
		return 0
	}
	normB := L2Norm(b)
	if normB == 0 {
		return 0
	}
	return clamp(dot(a, b) / (normA * normB))
}

// L2Norm computes the Euclidean norm of a vector, accumulated in float64
func L2Norm(v []float32) float64 {
	var sum float64
	n := len(v)
	limit := n - (n % 4)

	for i := 0; i < limit; i += 4 {
		x0, x1, x2, x3 := float64(v[i]), float64(v[i+1]), float64(v[i+2]), float64(v[i+3])
		sum += x0*x0 + x1*x1 + x2*x2 + x3*x3
	}
	for i := limit; i < n; i++ {
		x := float64(v[i])
		sum += x * x
	}

	return math.Sqrt(sum)
}

// CheckFinite reports ErrNonFinite if any component is NaN or Inf
func CheckFinite(v []float32) error {
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFinite, i, x)
		}
	}
	return nil
}

// dot unrolls by four so the compiler can keep the accumulators in registers
func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	limit := n - (n % 4)

	for i := 0; i < limit; i += 4 {
		sum += float64(a[i])*float64(b[i]) +
			float64(a[i+1])*float64(b[i+1]) +
			float64(a[i+2])*float64(b[i+2]) +
			float64(a[i+3])*float64(b[i+3])
	}
	for i := limit; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}

// clamp absorbs rounding that would push a score just past ±1
func clamp(x float64) float32 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return float32(x)
}
