package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/internal/app"
	"github.com/dshills/docsearch/internal/config"
)

func setupServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := config.Default()
	cfg.BaseDir = t.TempDir()

	a, err := app.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	docs := t.TempDir()
	files := map[string]string{
		"notes.txt":  "Q3 planning\nquarterly planning review",
		"readme.md":  "# Setup guide\nInstall the tools.",
		"budget.txt": "budget figures for 2024",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(docs, name), []byte(content), 0o644))
	}
	return NewServer(a), docs
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (map[string]interface{}, error) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	if err != nil {
		return nil, err
	}
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func mcpCode(t *testing.T, err error) int {
	t.Helper()
	var mcpErr *MCPError
	require.True(t, errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	return mcpErr.Code
}

func TestIngestAndSearchTools(t *testing.T) {
	s, docs := setupServer(t)

	out, err := call(t, s.handleIngestDocuments, map[string]interface{}{
		"paths": []interface{}{docs},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), out["indexed"])
	assert.NotEmpty(t, out["run_id"])

	out, err = call(t, s.handleSearchDocuments, map[string]interface{}{
		"query":       "quarterly planning",
		"type_filter": "TXT",
	})
	require.NoError(t, err)
	results := out["results"].([]interface{})
	require.NotEmpty(t, results)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "notes.txt", first["filename"])
	for _, r := range results {
		assert.Equal(t, ".txt", r.(map[string]interface{})["document_type"])
	}
	assert.Equal(t, float64(1), out["filtered"])

	// the cache is opt-in, so a repeated query reaches the stores again
	args := map[string]interface{}{"query": "quarterly planning"}
	for i := 0; i < 2; i++ {
		out, err = call(t, s.handleSearchDocuments, args)
		require.NoError(t, err)
		assert.Equal(t, false, out["cache_hit"])
	}

	args["use_cache"] = true
	_, err = call(t, s.handleSearchDocuments, args)
	require.NoError(t, err)
	out, err = call(t, s.handleSearchDocuments, args)
	require.NoError(t, err)
	assert.Equal(t, true, out["cache_hit"])
}

func TestIngestToolValidation(t *testing.T) {
	s, docs := setupServer(t)

	_, err := call(t, s.handleIngestDocuments, map[string]interface{}{})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	_, err = call(t, s.handleIngestDocuments, map[string]interface{}{"paths": []interface{}{"relative/path"}})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	_, err = call(t, s.handleIngestDocuments, map[string]interface{}{
		"paths":        []interface{}{docs},
		"access_level": "secret",
	})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	out, err := call(t, s.handleIngestDocuments, map[string]interface{}{
		"paths": []interface{}{filepath.Join(docs, "notes.txt"), filepath.Join(docs, "notes.txt")},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), out["indexed"])
	assert.Equal(t, float64(1), out["rejected"])
}

func TestSearchToolValidation(t *testing.T) {
	s, _ := setupServer(t)

	_, err := call(t, s.handleSearchDocuments, map[string]interface{}{"query": "  "})
	assert.Equal(t, ErrorCodeEmptyQuery, mcpCode(t, err))

	_, err = call(t, s.handleSearchDocuments, map[string]interface{}{"query": "x", "k": float64(0)})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	_, err = call(t, s.handleSearchDocuments, map[string]interface{}{"query": "x", "type_filter": "."})
	assert.Equal(t, ErrorCodeInvalidParams, mcpCode(t, err))

	out, err := call(t, s.handleSearchDocuments, map[string]interface{}{"query": "anything"})
	require.NoError(t, err)
	assert.Equal(t, true, out["index_missing"])
	assert.Empty(t, out["results"])
}

func TestDocumentAndTagTools(t *testing.T) {
	s, docs := setupServer(t)
	_, err := call(t, s.handleIngestDocuments, map[string]interface{}{"paths": []interface{}{docs}})
	require.NoError(t, err)

	out, err := call(t, s.handleGetDocument, map[string]interface{}{"filename": "readme.md"})
	require.NoError(t, err)
	assert.Equal(t, "Setup guide", out["title"])
	assert.Equal(t, "indexed", out["index_status"])

	_, err = call(t, s.handleGetDocument, map[string]interface{}{"filename": "missing.pdf"})
	assert.Equal(t, ErrorCodeDocumentNotFound, mcpCode(t, err))

	out, err = call(t, s.handleSearchByTags, map[string]interface{}{"tags": []interface{}{"budget", "readme"}})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out["total_results"])

	out, err = call(t, s.handleSearchByTags, map[string]interface{}{"tags": []interface{}{}})
	require.NoError(t, err)
	assert.Equal(t, float64(0), out["total_results"])
}

func TestReconcileAndStatusTools(t *testing.T) {
	s, docs := setupServer(t)
	_, err := call(t, s.handleIngestDocuments, map[string]interface{}{"paths": []interface{}{docs}})
	require.NoError(t, err)

	out, err := call(t, s.handleReconcileIndex, map[string]interface{}{"repair": true})
	require.NoError(t, err)
	assert.Equal(t, true, out["consistent"])
	assert.NotContains(t, out, "repaired")

	out, err = call(t, s.handleGetStatus, nil)
	require.NoError(t, err)
	metadata := out["metadata"].(map[string]interface{})
	assert.Equal(t, float64(3), metadata["documents"])
	collections := out["collections"].([]interface{})
	require.Len(t, collections, 1)
	assert.Equal(t, float64(3), collections[0].(map[string]interface{})["count"])
}

func TestGetStringSlice(t *testing.T) {
	args := map[string]interface{}{
		"array":  []interface{}{"a", "", "b", 3},
		"csv":    " a, b ,,c",
		"number": 7,
	}
	assert.Equal(t, []string{"a", "b"}, getStringSlice(args, "array"))
	assert.Equal(t, []string{"a", "b", "c"}, getStringSlice(args, "csv"))
	assert.Nil(t, getStringSlice(args, "number"))
	assert.Nil(t, getStringSlice(args, "missing"))
}
