package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-embeddings"

	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	DefaultBatchSize = 50
	MaxBatchSize     = 100

	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// remoteAPI describes an OpenAI-compatible embeddings endpoint
type remoteAPI struct {
	provider     string
	endpoint     string
	keyEnv       string
	defaultModel string
	dimension    int
}

var (
	jinaAPI = remoteAPI{
		provider:     ProviderJina,
		endpoint:     "https://api.jina.ai/v1/embeddings",
		keyEnv:       EnvJinaAPIKey,
		defaultModel: DefaultJinaModel,
		dimension:    JinaDimension,
	}
	openAIAPI = remoteAPI{
		provider:     ProviderOpenAI,
		endpoint:     "https://api.openai.com/v1/embeddings",
		keyEnv:       EnvOpenAIAPIKey,
		defaultModel: DefaultOpenAIModel,
		dimension:    OpenAIDimension,
	}
)

// RemoteOption customizes a RemoteProvider
type RemoteOption func(*RemoteProvider)

// WithEndpoint overrides the embeddings URL
func WithEndpoint(url string) RemoteOption {
	return func(p *RemoteProvider) { p.api.endpoint = url }
}

// WithModel overrides the default model
func WithModel(model string) RemoteOption {
	return func(p *RemoteProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithRetry replaces the retry policy
func WithRetry(cfg RetryConfig) RemoteOption {
	return func(p *RemoteProvider) { p.retry = cfg }
}

// RemoteProvider implements Embedder against a hosted embeddings API
type RemoteProvider struct {
	api        remoteAPI
	apiKey     string
	model      string
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
}

// NewJinaProvider creates an embedder backed by Jina AI
func NewJinaProvider(apiKey string, cache *Cache, opts ...RemoteOption) (*RemoteProvider, error) {
	return newRemoteProvider(jinaAPI, apiKey, cache, opts)
}

// NewOpenAIProvider creates an embedder backed by OpenAI
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...RemoteOption) (*RemoteProvider, error) {
	return newRemoteProvider(openAIAPI, apiKey, cache, opts)
}

func newRemoteProvider(api remoteAPI, apiKey string, cache *Cache, opts []RemoteOption) (*RemoteProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(api.keyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, api.keyEnv)
	}

	p := &RemoteProvider{
		api:    api,
		apiKey: apiKey,
		model:  api.defaultModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

// GenerateBatch serves cached texts locally and sends the rest in one call
func (p *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	embeddings := make([]*Embedding, len(req.Texts))
	var missing []int
	for i, text := range req.Texts {
		if p.cache != nil {
			if emb, ok := p.cache.Get(cacheKey(model, text)); ok {
				embeddings[i] = emb
				continue
			}
		}
		missing = append(missing, i)
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = req.Texts[i]
		}

		fetched, err := retryWithBackoff(ctx, p.retry, func() ([]*Embedding, error) {
			return p.callAPI(ctx, texts, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, p.retry.MaxRetries, err)
		}

		for j, i := range missing {
			emb := fetched[j]
			emb.Hash = ComputeHash(texts[j])
			if p.cache != nil {
				p.cache.Set(cacheKey(model, texts[j]), emb)
			}
			embeddings[i] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.api.provider,
		Model:      model,
	}, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (p *RemoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.api.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("api returned %d embeddings for %d texts", len(apiResp.Data), len(texts))
	}

	embeddings := make([]*Embedding, len(texts))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(texts) || embeddings[data.Index] != nil {
			return nil, fmt.Errorf("api returned invalid index %d", data.Index)
		}
		embeddings[data.Index] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.api.provider,
			Model:     model,
		}
	}
	return embeddings, nil
}

func (p *RemoteProvider) Dimension() int {
	return p.api.dimension
}

func (p *RemoteProvider) Provider() string {
	return p.api.provider
}

func (p *RemoteProvider) Model() string {
	return p.model
}

func (p *RemoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider embeds text offline as a hashed bag of words. Each
// lower-cased token is hashed into one of LocalDimension buckets and the
// counts are L2-normalized, so texts sharing vocabulary land close together.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates the offline embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: DefaultLocalModel,
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Model != "" && req.Model != l.model {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, req.Model)
	}

	key := cacheKey(l.model, req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(key); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    bagOfWords(req.Text, LocalDimension),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      ComputeHash(req.Text),
	}

	if l.cache != nil {
		l.cache.Set(key, emb)
	}
	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// Tokenize splits text into lower-cased runs of letters and digits
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func bagOfWords(text string, dim int) []float32 {
	vector := make([]float32, dim)
	h := fnv.New32a()
	for _, token := range Tokenize(text) {
		h.Reset()
		_, _ = h.Write([]byte(token))
		vector[h.Sum32()%uint32(dim)]++
	}
	return NormalizeVector(vector)
}

// NormalizeVector returns v scaled to unit length. A zero vector is
// returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
