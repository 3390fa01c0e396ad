package vectorindex

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSerializeRoundTrip(t *testing.T) {
	vector := []float32{0, 1.5, -2.25, float32(math.Pi)}
	blob := serializeVector(vector)
	assert.Len(t, blob, 16)
	assert.Equal(t, vector, deserializeVector(blob))
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineDistance(tt.a, tt.b), 1e-6)
		})
	}
}

func TestSortHits(t *testing.T) {
	hits := []Hit{
		{ID: "b", Distance: 0.5},
		{ID: "c", Distance: 0.1},
		{ID: "a", Distance: 0.5},
	}
	sortHits(hits)
	assert.Equal(t, []string{"c", "a", "b"}, hitIDs(hits))
}
