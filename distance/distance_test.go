package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Single", []float32{2}, []float32{3}, 6},
		{"Unrolled", []float32{1, 1, 1, 1, 1}, []float32{1, 2, 3, 4, 5}, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Dot(tt.a, tt.b), 1e-5)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Unrolled", []float32{0, 0, 0, 0, 0}, []float32{1, 1, 1, 1, 2}, 8},
		{"Empty", []float32{}, []float32{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-5)
		})
	}
}

func TestNormalizeL2(t *testing.T) {
	t.Run("Copy", func(t *testing.T) {
		src := []float32{3, 4}
		dst, ok := NormalizeL2Copy(src)
		require.True(t, ok)
		assert.InDelta(t, 0.6, dst[0], 1e-6)
		assert.InDelta(t, 0.8, dst[1], 1e-6)
		assert.Equal(t, []float32{3, 4}, src, "source must be untouched")
	})

	t.Run("Zero", func(t *testing.T) {
		_, ok := NormalizeL2Copy([]float32{0, 0, 0})
		assert.False(t, ok)
		assert.False(t, NormalizeL2InPlace(nil))
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0, 0}, []float32{2, 0, 0}), 1e-6)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)
	assert.Equal(t, float32(0), CosineSimilarity([]float32{0, 0}, []float32{1, 0}))

	want := 0.9 / math.Sqrt(0.82)
	assert.InDelta(t, want, CosineSimilarity([]float32{1, 0, 0}, []float32{0.9, 0.1, 0}), 1e-6)
}

func TestProvider(t *testing.T) {
	t.Run("Cosine", func(t *testing.T) {
		fn, err := Provider(MetricCosine)
		require.NoError(t, err)

		d := fn([]float32{1, 0}, []float32{1, 0})
		assert.InDelta(t, 1.0, MetricCosine.Score(d), 1e-6)

		zero := fn([]float32{0, 0}, []float32{1, 0})
		assert.InDelta(t, 0.0, MetricCosine.Score(zero), 1e-6)
	})

	t.Run("Dot", func(t *testing.T) {
		fn, err := Provider(MetricDot)
		require.NoError(t, err)
		assert.InDelta(t, 11.0, MetricDot.Score(fn([]float32{1, 2}, []float32{3, 4})), 1e-6)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := Provider(Metric(42))
		require.Error(t, err)
	})
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{
		"":       MetricCosine,
		"Cosine": MetricCosine,
		"l2":     MetricL2,
		"dot":    MetricDot,
	} {
		got, err := ParseMetric(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMetric("hamming")
	require.Error(t, err)
	assert.Equal(t, "Unknown(9)", Metric(9).String())
}
