// Package app wires the stores, the embedder and the pipelines from a
// configuration. The CLI and the MCP server share it.
package app

import (
	"errors"
	"fmt"

	"github.com/phuslu/log"

	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/extractor"
	"github.com/dshills/docsearch/internal/indexer"
	"github.com/dshills/docsearch/internal/logging"
	"github.com/dshills/docsearch/internal/searcher"
	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/internal/vectorindex"
)

// App holds one instance of every component. The indexer and the searcher
// share the embedder so both sides use the same model.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Store     *storage.SQLiteStorage
	Vectors   *vectorindex.Index
	Embedder  embedder.Embedder
	Extractor *extractor.Extractor
	Searcher  *searcher.Searcher
	Indexer   *indexer.Indexer
}

// Open creates the data directory and opens both databases
func Open(cfg *config.Config, logger *log.Logger) (*App, error) {
	logger = logging.OrNop(logger)
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(cfg.MetadataPath(), storage.Options{PoolSize: cfg.PoolSize})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	vectors, err := vectorindex.New(cfg.VectorPath(), vectorindex.Options{PoolSize: cfg.PoolSize})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize vector index: %w", err)
	}

	emb, err := embedder.New(cfg.Embedding)
	if err != nil {
		_ = vectors.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ext := extractor.New(extractor.WithLogger(logger))
	srch := searcher.NewSearcher(store, vectors, emb,
		searcher.WithLogger(logger),
		searcher.WithDefaultIndex(cfg.IndexName),
		searcher.WithDefaultK(cfg.TopK),
	)
	idx := indexer.New(ext, store, vectors, emb,
		indexer.WithLogger(logger),
		indexer.WithDefaultIndex(cfg.IndexName),
		indexer.WithCacheInvalidator(srch),
	)

	logger.Debug().
		Str("metadata", cfg.MetadataPath()).
		Str("vectors", cfg.VectorPath()).
		Str("provider", emb.Provider()).
		Str("model", emb.Model()).
		Str("driver", storage.DriverName).
		Msg("components ready")

	return &App{
		Config:    cfg,
		Logger:    logger,
		Store:     store,
		Vectors:   vectors,
		Embedder:  emb,
		Extractor: ext,
		Searcher:  srch,
		Indexer:   idx,
	}, nil
}

// Close releases the embedder and both databases
func (a *App) Close() error {
	return errors.Join(a.Embedder.Close(), a.Vectors.Close(), a.Store.Close())
}
