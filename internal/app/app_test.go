package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/indexer"
	"github.com/dshills/docsearch/internal/searcher"
)

func TestOpenWiresComponents(t *testing.T) {
	cfg := config.Default()
	cfg.BaseDir = filepath.Join(t.TempDir(), "data")

	a, err := Open(cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.FileExists(t, cfg.MetadataPath())
	assert.FileExists(t, cfg.VectorPath())

	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.txt"), []byte("quarterly planning"), 0o644))

	ctx := context.Background()
	report, err := a.Indexer.IngestDir(ctx, docs, indexer.IngestRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Count(indexer.OutcomeIndexed))
	assert.Equal(t, cfg.IndexName, report.Index)

	resp, err := a.Searcher.Search(ctx, searcher.SearchRequest{Query: "planning", UseCache: true})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "notes.txt", resp.Results[0].Filename)
	assert.Equal(t, 1, a.Searcher.CacheLen())

	// a new ingestion clears cached responses
	require.NoError(t, os.WriteFile(filepath.Join(docs, "more.txt"), []byte("planning again"), 0o644))
	_, err = a.Indexer.Ingest(ctx, indexer.IngestRequest{Paths: []string{filepath.Join(docs, "more.txt")}})
	require.NoError(t, err)
	assert.Equal(t, 0, a.Searcher.CacheLen())
}

func TestOpenRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()
	cfg.Embedding.Provider = "word2vec"

	_, err := Open(cfg, nil)
	assert.Error(t, err)
}
