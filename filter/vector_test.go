package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVector(t *testing.T) {
	t.Run("scales to unit length", func(t *testing.T) {
		v := NormalizeVector([]float32{3, 4})

		var sumSquares float64
		for _, val := range v {
			sumSquares += float64(val) * float64(val)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-6)
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
	})

	t.Run("zero vector stays zero", func(t *testing.T) {
		v := NormalizeVector([]float32{0, 0, 0})

		assert.Equal(t, []float32{0, 0, 0}, v)
	})

	t.Run("empty vector", func(t *testing.T) {
		assert.Empty(t, NormalizeVector(nil))
	})

	t.Run("does not mutate input", func(t *testing.T) {
		in := []float32{3, 4}
		NormalizeVector(in)

		assert.Equal(t, []float32{3, 4}, in)
	})
}

func TestDotProduct(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{
			name: "orthogonal",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0,
		},
		{
			name: "identical unit",
			a:    []float32{1, 0},
			b:    []float32{1, 0},
			want: 1,
		},
		{
			name: "general case",
			a:    []float32{1, 2, 3},
			b:    []float32{4, 5, 6},
			want: 32,
		},
		{
			name: "mismatched lengths truncate",
			a:    []float32{1, 2, 3},
			b:    []float32{4, 5},
			want: 14,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DotProduct(tt.a, tt.b), 1e-6)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("clips negative scores to zero", func(t *testing.T) {
		score := CosineSimilarity([]float32{1, 0}, []float32{-1, 0})

		assert.Equal(t, float32(0), score)
	})

	t.Run("clips above one", func(t *testing.T) {
		// Not unit vectors; the raw dot product exceeds 1.
		score := CosineSimilarity([]float32{2, 0}, []float32{2, 0})

		assert.Equal(t, float32(1), score)
	})

	t.Run("equals dot product for unit vectors", func(t *testing.T) {
		a := NormalizeVector([]float32{1, 2, 3})
		b := NormalizeVector([]float32{2, 1, 0})

		assert.InDelta(t, DotProduct(a, b), CosineSimilarity(a, b), 1e-6)
	})
}
