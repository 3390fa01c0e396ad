package searcher_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/extractor"
	"github.com/dshills/docsearch/internal/searcher"
	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/internal/vectorindex"
	"github.com/dshills/docsearch/pkg/types"
)

// TestQuarterlyPlanningScenario indexes a PDF report and a text note, then
// checks that a type-filtered query only ever returns the note.
func TestQuarterlyPlanningScenario(t *testing.T) {
	ctx := context.Background()
	docs := t.TempDir()
	data := t.TempDir()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAuthor("A. Silva", false)
	pdf.SetTitle("Annual budget", false)
	pdf.SetKeywords("budget,2024", false)
	pdf.SetCreationDate(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, "Annual budget report")
	reportPath := filepath.Join(docs, "report.pdf")
	require.NoError(t, pdf.OutputFileAndClose(reportPath))

	notesPath := filepath.Join(docs, "notes.txt")
	require.NoError(t, os.WriteFile(notesPath, []byte("Q3 planning\nAgenda for the quarterly planning review.\n"), 0o644))

	store, err := storage.NewSQLiteStorage(filepath.Join(data, "metadata.db"), storage.Options{})
	require.NoError(t, err)
	defer store.Close()

	index, err := vectorindex.New(filepath.Join(data, "vectors.db"), vectorindex.Options{})
	require.NoError(t, err)
	defer index.Close()

	emb, err := embedder.NewLocalProvider(embedder.NewCache(100))
	require.NoError(t, err)

	ext := extractor.New()
	var batch []vectorindex.Document
	var texts []string
	for _, path := range []string{reportPath, notesPath} {
		meta, err := ext.Extract(ctx, path)
		require.NoError(t, err)
		require.NoError(t, store.Insert(ctx, meta))

		text, err := ext.LoadText(ctx, path)
		require.NoError(t, err)
		batch = append(batch, vectorindex.Document{ID: meta.Filename, RawText: text})
		texts = append(texts, text)
	}

	vectors, err := embedder.Embed(ctx, emb, emb.Model(), texts)
	require.NoError(t, err)
	require.NoError(t, index.AddBatch(ctx, "documents_index", emb.Model(), batch, vectors))

	report, err := store.GetByFilename(ctx, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "A. Silva", report.Author)
	assert.Equal(t, "budget,2024", report.Tags)

	s := searcher.NewSearcher(store, index, emb)

	filtered, err := s.Search(ctx, searcher.SearchRequest{Query: "quarterly planning", TypeFilter: "txt"})
	require.NoError(t, err)
	require.Len(t, filtered.Results, 1)
	assert.Equal(t, "notes.txt", filtered.Results[0].Filename)
	assert.Equal(t, types.TypeText, filtered.Results[0].DocumentType)
	assert.Equal(t, 1, filtered.Filtered)

	all, err := s.Search(ctx, searcher.SearchRequest{Query: "quarterly planning"})
	require.NoError(t, err)
	require.Len(t, all.Results, 2)
	assert.Equal(t, "notes.txt", all.Results[0].Filename)
	assert.Less(t, all.Results[0].Score, all.Results[1].Score)
	assert.Equal(t, filtered.Results[0].Score, all.Results[0].Score)

	onlyPDF, err := s.Search(ctx, searcher.SearchRequest{Query: "quarterly planning", TypeFilter: ".PDF"})
	require.NoError(t, err)
	require.Len(t, onlyPDF.Results, 1)
	assert.Equal(t, "report.pdf", onlyPDF.Results[0].Filename)
}
