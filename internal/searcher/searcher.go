package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/phuslu/log"

	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/logging"
	"github.com/dshills/docsearch/internal/vectorindex"
	"github.com/dshills/docsearch/pkg/types"
)

const (
	// DefaultK is the number of nearest neighbours requested per query
	DefaultK = config.DefaultTopK

	// SnippetRunes caps the snippet taken from the indexed text
	SnippetRunes = 240

	DefaultCacheSize = 1000

	// DefaultCacheTTL bounds how long a response can hide documents ingested
	// by another process, which cannot invalidate this cache
	DefaultCacheTTL = time.Minute
)

// ErrInvalidTypeFilter is returned for a type filter that names no type
var ErrInvalidTypeFilter = errors.New("type filter names no document type")

// MetadataReader resolves a vector hit to its relational record
type MetadataReader interface {
	// GetByFilename returns types.ErrNotFound when no record exists
	GetByFilename(ctx context.Context, filename string) (*types.DocumentMetadata, error)
}

// VectorQuerier finds nearest neighbours in a named index
type VectorQuerier interface {
	Query(ctx context.Context, name, model string, vector []float32, k int) ([]vectorindex.Hit, error)
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query string
	Model string // empty means the embedder's model
	Index string // empty means the searcher's default index

	// TypeFilter keeps only documents of this type. It ignores case and a
	// leading dot, so "TXT", "txt" and ".txt" are equivalent.
	TypeFilter string

	K        int // candidates requested from the index, default DefaultK
	UseCache bool
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.EnrichedResult
	Candidates   int // hits returned by the vector index
	Filtered     int // hits dropped by the type filter
	Duration     time.Duration
	CacheHit     bool
	IndexMissing bool
}

// Option configures a Searcher
type Option func(*Searcher)

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(s *Searcher) { s.logger = logging.OrNop(l) }
}

// WithDefaultIndex sets the index used when a request names none
func WithDefaultIndex(name string) Option {
	return func(s *Searcher) {
		if name != "" {
			s.defaultIndex = name
		}
	}
}

// WithDefaultK sets the neighbour count used when a request names none
func WithDefaultK(k int) Option {
	return func(s *Searcher) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

// WithCache sets the query cache capacity and entry lifetime
func WithCache(size int, ttl time.Duration) Option {
	return func(s *Searcher) {
		if size > 0 {
			s.cacheSize = size
		}
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// Searcher coordinates a query across the embedder, the vector index and
// the relational store. Searches run one at a time.
type Searcher struct {
	meta     MetadataReader
	index    VectorQuerier
	embedder embedder.Embedder
	logger   *log.Logger

	defaultIndex string
	defaultK     int
	cacheSize    int
	cacheTTL     time.Duration

	mu    sync.Mutex
	cache *expirable.LRU[[32]byte, *SearchResponse]
}

// NewSearcher creates a new Searcher instance
func NewSearcher(meta MetadataReader, index VectorQuerier, emb embedder.Embedder, opts ...Option) *Searcher {
	s := &Searcher{
		meta:         meta,
		index:        index,
		embedder:     emb,
		logger:       logging.Nop(),
		defaultIndex: config.DefaultIndexName,
		defaultK:     DefaultK,
		cacheSize:    DefaultCacheSize,
		cacheTTL:     DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.cache = expirable.NewLRU[[32]byte, *SearchResponse](s.cacheSize, nil, s.cacheTTL)
	return s
}

// Search embeds the query, takes the k nearest neighbours from the index
// and joins each with its relational record. Results keep the index's rank
// order and raw distances. A missing index yields an empty response with
// IndexMissing set.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if s.embedder == nil || s.index == nil || s.meta == nil {
		return nil, fmt.Errorf("searcher not initialized")
	}
	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	response, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}
	response.Duration = time.Since(startTime)

	if req.UseCache && !response.IndexMissing {
		s.storeInCache(req, response)
	}

	s.logger.Debug().
		Str("index", req.Index).
		Str("filter", req.TypeFilter).
		Int("candidates", response.Candidates).
		Int("results", len(response.Results)).
		Dur("duration", response.Duration).
		Msg("search complete")

	return response, nil
}

func (s *Searcher) search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: req.Query, Model: req.Model})
	if err != nil {
		if !errors.Is(err, embedder.ErrProviderFailed) {
			err = fmt.Errorf("%w: %w", embedder.ErrProviderFailed, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.index.Query(ctx, req.Index, req.Model, emb.Vector, req.K)
	if errors.Is(err, types.ErrIndexNotFound) {
		s.logger.Warn().Str("index", req.Index).Msg("vector index not found, returning no results")
		return &SearchResponse{Results: []types.EnrichedResult{}, IndexMissing: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", req.Index, err)
	}

	filter := types.NormalizeType(req.TypeFilter)
	response := &SearchResponse{
		Results:    make([]types.EnrichedResult, 0, len(hits)),
		Candidates: len(hits),
	}

	for i, hit := range hits {
		result, err := s.enrich(ctx, hit)
		if err != nil {
			return nil, err
		}
		result.Rank = i + 1

		if filter != "" && result.DocumentType.Name() != filter {
			// unresolved records have no type and never match
			response.Filtered++
			continue
		}
		response.Results = append(response.Results, result)
	}

	return response, nil
}

// enrich joins one hit with its relational record. A missing record leaves
// the document type empty.
func (s *Searcher) enrich(ctx context.Context, hit vectorindex.Hit) (types.EnrichedResult, error) {
	result := types.EnrichedResult{
		Filename: hit.ID,
		Score:    hit.Distance,
		Snippet:  snippet(hit.RawText),
	}

	meta, err := s.meta.GetByFilename(ctx, hit.ID)
	switch {
	case errors.Is(err, types.ErrNotFound):
		s.logger.Debug().Str("filename", hit.ID).Msg("vector hit has no metadata record")
		return result, nil
	case err != nil:
		return result, fmt.Errorf("lookup %s: %w", hit.ID, err)
	}

	result.DocumentType = meta.DocumentType
	if result.Snippet == "" && meta.Title != nil {
		result.Snippet = *meta.Title
	}
	return result, nil
}

// snippet returns the start of text with whitespace collapsed
func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= SnippetRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:SnippetRunes]) + "…"
}

func (s *Searcher) validateRequest(req *SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if strings.TrimSpace(req.TypeFilter) != "" && types.NormalizeType(req.TypeFilter) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTypeFilter, req.TypeFilter)
	}
	if req.K < 0 {
		return fmt.Errorf("k must not be negative")
	}
	if req.K == 0 {
		req.K = s.defaultK
	}
	if req.Model == "" {
		req.Model = s.embedder.Model()
	}
	if req.Index == "" {
		req.Index = s.defaultIndex
	}
	return nil
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(req SearchRequest) (*SearchResponse, bool) {
	response, found := s.cache.Get(computeQueryHash(req))
	if !found {
		return nil, false
	}
	return copySearchResponse(response), true
}

// storeInCache saves a copy of response so later mutations by the caller
// do not leak into the cache
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	s.cache.Add(computeQueryHash(req), copySearchResponse(response))
}

func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.EnrichedResult, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash keys the cache on every request field that changes results
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(req.Model)
	data.WriteString("|")
	data.WriteString(req.Index)
	data.WriteString("|")
	data.WriteString(types.NormalizeType(req.TypeFilter))
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.K))

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops every cached response. Ingestion calls it after
// writing to an index.
func (s *Searcher) InvalidateCache() {
	s.cache.Purge()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	return s.cache.Len()
}
