package similarity

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-5

func almostEqual(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) < eps
}

func mustCosine(t *testing.T, a, b []float32) float32 {
	t.Helper()
	scores, err := Batch(a, [][]float32{b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return scores[0]
}

func TestCosine_IdenticalVectors(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	b := []float32{1, 2, 3, 4, 5, 6, 7, 8}

	sim := mustCosine(t, a, b)
	if !almostEqual(sim, 1.0, epsilon) {
		t.Errorf("expected 1.0 for identical vectors, got %f", sim)
	}
}

func TestCosine_OppositeVectors(t *testing.T) {
	a := []float32{1, 2, 3, 4}
	b := []float32{-1, -2, -3, -4}

	sim := mustCosine(t, a, b)
	if !almostEqual(sim, -1.0, epsilon) {
		t.Errorf("expected -1.0 for opposite vectors, got %f", sim)
	}
}

func TestCosine_OrthogonalVectors(t *testing.T) {
	sim := mustCosine(t, []float32{1, 0}, []float32{0, 1})
	if !almostEqual(sim, 0.0, epsilon) {
		t.Errorf("expected 0.0 for orthogonal vectors, got %f", sim)
	}
}

func TestCosine_ScaleInvariant(t *testing.T) {
	sim := mustCosine(t, []float32{1, 2, 3}, []float32{10, 20, 30})
	if !almostEqual(sim, 1.0, epsilon) {
		t.Errorf("expected 1.0 for parallel vectors, got %f", sim)
	}
}

func TestCosine_DifferentLengths(t *testing.T) {
	_, err := Batch([]float32{1, 2, 3}, [][]float32{{1, 2}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCosine_EmptyVectors(t *testing.T) {
	sim := mustCosine(t, []float32{}, []float32{})
	if sim != 0 {
		t.Errorf("expected 0 for empty vectors, got %f", sim)
	}
}

func TestCosine_ZeroVector(t *testing.T) {
	sim := mustCosine(t, []float32{0, 0, 0}, []float32{1, 2, 3})
	if sim != 0 {
		t.Errorf("expected 0 when one vector is zero, got %f", sim)
	}
	if math.IsNaN(float64(sim)) {
		t.Error("zero vector must not produce NaN")
	}
}

func TestCosine_NonAligned(t *testing.T) {
	// Length not divisible by the unroll factor
	a := []float32{1, 2, 3, 4, 5}
	b := []float32{1, 2, 3, 4, 5}

	sim := mustCosine(t, a, b)
	if !almostEqual(sim, 1.0, epsilon) {
		t.Errorf("expected 1.0, got %f", sim)
	}
}

func TestCosine_StaysInRange(t *testing.T) {
	v := make([]float32, 768)
	for i := range v {
		v[i] = float32(math.Sin(float64(i))) * 0.037
	}

	sim := mustCosine(t, v, v)
	if sim > 1 || sim < -1 {
		t.Errorf("similarity out of range: %f", sim)
	}
}

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{"simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"zeros", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
		{"eight elements", []float32{1, 1, 1, 1, 1, 1, 1, 1}, []float32{2, 2, 2, 2, 2, 2, 2, 2}, 16},
		{"empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dot(tt.a, tt.b); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestL2Norm(t *testing.T) {
	tests := []struct {
		name     string
		v        []float32
		expected float64
	}{
		{"unit vector", []float32{1, 0, 0}, 1.0},
		{"3-4-5 triangle", []float32{3, 4}, 5.0},
		{"zero vector", []float32{0, 0, 0}, 0.0},
		{"all ones (8 elements)", []float32{1, 1, 1, 1, 1, 1, 1, 1}, math.Sqrt(8)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := L2Norm(tt.v)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.expected, result)
			}
		})
	}
}

func TestBatch(t *testing.T) {
	query := []float32{1, 0, 0, 0, 0, 0, 0, 0}
	targets := [][]float32{
		{0, 1, 0, 0, 0, 0, 0, 0},  // orthogonal
		{1, 0, 0, 0, 0, 0, 0, 0},  // identical
		{-1, 0, 0, 0, 0, 0, 0, 0}, // opposite
	}

	scores, err := Batch(query, targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != len(targets) {
		t.Fatalf("expected %d scores, got %d", len(targets), len(scores))
	}

	expected := []float32{0.0, 1.0, -1.0}
	for i, want := range expected {
		if !almostEqual(scores[i], want, epsilon) {
			t.Errorf("at index %d: expected %f, got %f", i, want, scores[i])
		}
	}
}

func TestBatch_MatchesCosine(t *testing.T) {
	query := []float32{0.3, -0.2, 0.9, 0.1, 0.5}
	targets := [][]float32{
		{0.1, 0.2, 0.3, 0.4, 0.5},
		{-0.5, 0.4, -0.3, 0.2, -0.1},
		{0.3, -0.2, 0.9, 0.1, 0.5},
	}

	scores, err := Batch(query, targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, target := range targets {
		want := cosine(target, L2Norm(target), query)
		if !almostEqual(scores[i], want, epsilon) {
			t.Errorf("at index %d: batch %f != pairwise %f", i, scores[i], want)
		}
	}
}

func TestBatch_ZeroQuery(t *testing.T) {
	query := []float32{0, 0, 0, 0}
	targets := [][]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}

	scores, err := Batch(query, targets)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, sim := range scores {
		if sim != 0 {
			t.Errorf("at index %d: expected 0 for zero query, got %f", i, sim)
		}
	}
}

func TestBatch_ZeroTarget(t *testing.T) {
	scores, err := Batch([]float32{1, 2}, [][]float32{{0, 0}, {1, 2}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores[0] != 0 {
		t.Errorf("expected 0 for zero target, got %f", scores[0])
	}
	if !almostEqual(scores[1], 1.0, epsilon) {
		t.Errorf("expected 1.0, got %f", scores[1])
	}
}

func TestBatch_DimensionMismatch(t *testing.T) {
	_, err := Batch([]float32{1, 2, 3}, [][]float32{{1, 2, 3}, {1, 2}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestCheckFinite(t *testing.T) {
	if err := CheckFinite([]float32{0.1, -2, 3}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	nan := float32(math.NaN())
	if err := CheckFinite([]float32{0.1, nan}); !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected ErrNonFinite for NaN, got %v", err)
	}

	inf := float32(math.Inf(1))
	if err := CheckFinite([]float32{inf}); !errors.Is(err, ErrNonFinite) {
		t.Errorf("expected ErrNonFinite for Inf, got %v", err)
	}
}

// Benchmarks

func BenchmarkCosine_Medium(b *testing.B) {
	a := make([]float32, 384)
	vec := make([]float32, 384)
	for i := range a {
		a[i] = float32(i) * 0.1
		vec[i] = float32(i) * 0.2
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cosine(a, L2Norm(a), vec)
	}
}

func BenchmarkCosine_Large(b *testing.B) {
	a := make([]float32, 768)
	vec := make([]float32, 768)
	for i := range a {
		a[i] = float32(i) * 0.1
		vec[i] = float32(i) * 0.2
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cosine(a, L2Norm(a), vec)
	}
}

func BenchmarkBatch_100(b *testing.B) {
	dims := 768
	query := make([]float32, dims)
	for j := range query {
		query[j] = float32(j) * 0.05
	}
	targets := make([][]float32, 100)
	for i := range targets {
		targets[i] = make([]float32, dims)
		for j := range targets[i] {
			targets[i][j] = float32(j) * 0.1
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Batch(query, targets)
	}
}
