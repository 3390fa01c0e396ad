package embedder

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/docsearch/internal/config"
)

// New creates the embedder selected by cfg. An empty provider is
// auto-detected from the available API keys.
func New(cfg config.EmbeddingConfig) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = DetectProvider()
	}

	switch provider {
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache, WithModel(cfg.Model))
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache, WithModel(cfg.Model))
	case ProviderLocal:
		if cfg.Model != "" && cfg.Model != DefaultLocalModel {
			return nil, fmt.Errorf("%w: local provider only serves %s", ErrUnsupportedModel, DefaultLocalModel)
		}
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder from RAG_EMBEDDING_PROVIDER and
// RAG_EMBEDDING_MODEL, falling back to key detection.
func NewFromEnv() (Embedder, error) {
	return New(config.EmbeddingConfig{
		Provider:  os.Getenv(config.EnvEmbeddingProvider),
		Model:     os.Getenv(config.EnvEmbeddingModel),
		CacheSize: config.DefaultCacheSize,
	})
}

// DetectProvider returns the provider that would be used based on the
// current environment
func DetectProvider() string {
	if provider := os.Getenv(config.EnvEmbeddingProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
