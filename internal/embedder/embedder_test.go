package embedder

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHash(t *testing.T) {
	h1 := ComputeHash("quarterly planning")
	h2 := ComputeHash("quarterly planning")
	h3 := ComputeHash("quarterly budget")

	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
}

func TestValidateBatchRequest(t *testing.T) {
	tests := []struct {
		name    string
		texts   []string
		wantErr error
	}{
		{"valid", []string{"a", "b"}, nil},
		{"empty batch", nil, ErrInvalidInput},
		{"empty text", []string{"a", ""}, ErrInvalidInput},
		{"too large", make([]string, MaxBatchSize+1), ErrBatchTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBatchRequest(BatchEmbeddingRequest{Texts: tt.texts})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	assert.ErrorIs(t, ValidateRequest(EmbeddingRequest{}), ErrEmptyText)
}

func TestCache(t *testing.T) {
	cache := NewCache(2)

	cache.Set("a", &Embedding{Vector: []float32{1, 2}, Model: "m"})
	got, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, got.Vector)

	got.Vector[0] = 99
	again, _ := cache.Get("a")
	assert.Equal(t, float32(1), again.Vector[0], "cached vector must not be mutated through a copy")

	cache.Set("b", &Embedding{})
	cache.Set("c", &Embedding{})
	assert.Equal(t, 2, cache.Size())
	_, ok = cache.Get("a")
	assert.False(t, ok, "least recently used entry should be evicted")

	cache.Clear()
	assert.Equal(t, 0, cache.Size())
}

func TestLocalProvider(t *testing.T) {
	provider := mustNewLocalProvider(t)
	ctx := context.Background()

	assert.Equal(t, ProviderLocal, provider.Provider())
	assert.Equal(t, DefaultLocalModel, provider.Model())
	assert.Equal(t, LocalDimension, provider.Dimension())

	t.Run("deterministic unit vectors", func(t *testing.T) {
		a, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "Quarterly planning notes"})
		require.NoError(t, err)
		b, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "quarterly PLANNING notes!"})
		require.NoError(t, err)

		assert.Len(t, a.Vector, LocalDimension)
		assert.Equal(t, a.Vector, b.Vector, "case and punctuation do not change tokens")
		assert.InDelta(t, 1.0, dot(a.Vector, a.Vector), 1e-5)
	})

	t.Run("shared vocabulary is closer", func(t *testing.T) {
		query, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "quarterly planning"})
		require.NoError(t, err)
		near, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "notes from the quarterly planning meeting"})
		require.NoError(t, err)
		far, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "recipe for sourdough bread"})
		require.NoError(t, err)

		assert.Greater(t, dot(query.Vector, near.Vector), dot(query.Vector, far.Vector))
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x", Model: "other"})
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := provider.GenerateEmbedding(cctx, EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEmbed(t *testing.T) {
	provider := mustNewLocalProvider(t)
	ctx := context.Background()

	texts := make([]string, MaxBatchSize*2+5)
	for i := range texts {
		texts[i] = fmt.Sprintf("document number %d", i)
	}

	vectors, err := Embed(ctx, provider, "", texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	single, err := provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: texts[len(texts)-1]})
	require.NoError(t, err)
	assert.Equal(t, single.Vector, vectors[len(vectors)-1])

	empty, err := Embed(ctx, provider, "", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEmbedWrapsProviderErrors(t *testing.T) {
	provider := mustNewLocalProvider(t)

	_, err := Embed(context.Background(), provider, "other-model", []string{"a"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"budget", "2024", "q1", "café"}, Tokenize("Budget-2024: Q1, Café"))
	assert.Empty(t, Tokenize("  ...  "))
}

func TestNormalizeVector(t *testing.T) {
	assert.Equal(t, []float32{0.6, 0.8}, NormalizeVector([]float32{3, 4}))

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
