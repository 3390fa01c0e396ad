package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docsearch/internal/indexer"
	"github.com/dshills/docsearch/internal/searcher"
	"github.com/dshills/docsearch/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeDocumentNotFound   = -32001 // No record for the filename
	ErrorCodeIndexingInProgress = -32002 // Another ingestion or repair is running
	ErrorCodeModelMismatch      = -32003 // Index was built with another model
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

func (s *Server) handleIngestDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	inputs := getStringSlice(args, "paths")
	if len(inputs) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "paths parameter is required", map[string]interface{}{
			"param":  "paths",
			"reason": "missing or empty",
		})
	}

	var paths []string
	for _, p := range inputs {
		expanded, err := expandPath(p)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
				"param":  "paths",
				"value":  p,
				"reason": err.Error(),
			})
		}
		paths = append(paths, expanded...)
	}

	accessLevel := types.AccessLevel(getStringDefault(args, "access_level", string(types.DefaultAccessLevel)))
	if !accessLevel.Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid access_level", map[string]interface{}{
			"param":   "access_level",
			"value":   accessLevel,
			"allowed": []string{"public", "restricted", "confidential"},
		})
	}

	report, err := s.app.Indexer.Ingest(ctx, indexer.IngestRequest{
		Paths:       paths,
		Index:       getStringDefault(args, "index", ""),
		AccessLevel: accessLevel,
		AuthCode:    getStringDefault(args, "auth_code", ""),
	})
	if errors.Is(err, indexer.ErrRunInProgress) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "ingestion already in progress", nil)
	}
	if err != nil && report == nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	documents := make([]map[string]interface{}, len(report.Documents))
	for i, d := range report.Documents {
		entry := map[string]interface{}{
			"path":    d.Path,
			"outcome": d.Outcome,
		}
		if d.Filename != "" {
			entry["filename"] = d.Filename
		}
		if d.Err != nil {
			entry["error"] = d.Error()
		}
		documents[i] = entry
	}

	response := map[string]interface{}{
		"run_id":      report.RunID,
		"index":       report.Index,
		"model":       report.Model,
		"indexed":     report.Count(indexer.OutcomeIndexed),
		"unindexed":   report.Count(indexer.OutcomeUnindexed),
		"pending":     report.Count(indexer.OutcomePending),
		"rejected":    report.Count(indexer.OutcomeRejected),
		"documents":   documents,
		"duration_ms": report.Duration.Milliseconds(),
	}
	if err != nil {
		response["error"] = err.Error()
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	k := getIntDefault(args, "k", s.app.Config.TopK)
	if k < 1 || k > 1000 {
		return nil, newMCPError(ErrorCodeInvalidParams, "k must be between 1 and 1000", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}

	resp, err := s.app.Searcher.Search(ctx, searcher.SearchRequest{
		Query:      query,
		Index:      getStringDefault(args, "index", ""),
		TypeFilter: getStringDefault(args, "type_filter", ""),
		K:          k,
		UseCache:   getBoolDefault(args, "use_cache", false),
	})
	if errors.Is(err, searcher.ErrInvalidTypeFilter) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid type_filter", map[string]interface{}{
			"param": "type_filter",
			"value": args["type_filter"],
		})
	}
	if errors.Is(err, types.ErrModelMismatch) {
		return nil, newMCPError(ErrorCodeModelMismatch, "index was built with a different embedding model", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"query":         query,
		"results":       resp.Results,
		"total_results": len(resp.Results),
		"candidates":    resp.Candidates,
		"filtered":      resp.Filtered,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
	}
	if resp.IndexMissing {
		response["index_missing"] = true
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	filename, _ := args["filename"].(string)
	if filename == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "filename parameter is required", map[string]interface{}{
			"param":  "filename",
			"reason": "missing or empty",
		})
	}

	doc, err := s.app.Store.GetDocument(ctx, filename)
	if errors.Is(err, types.ErrNotFound) {
		return nil, newMCPError(ErrorCodeDocumentNotFound, "document not found", map[string]interface{}{
			"filename": filename,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get document", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(doc)), nil
}

func (s *Server) handleSearchByTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	if _, present := args["tags"]; !present {
		return nil, newMCPError(ErrorCodeInvalidParams, "tags parameter is required", map[string]interface{}{
			"param":  "tags",
			"reason": "missing",
		})
	}

	docs, err := s.app.Store.SearchByTags(ctx, getStringSlice(args, "tags"))
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "tag search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"documents":     docs,
		"total_results": len(docs),
	})), nil
}

func (s *Server) handleReconcileIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}
	index := getStringDefault(args, "index", "")

	rec, err := s.app.Indexer.Reconcile(ctx, index)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "reconcile failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	response := map[string]interface{}{
		"reconcile":  rec,
		"consistent": rec.Consistent(),
	}

	if getBoolDefault(args, "repair", false) && len(rec.NeedsRepair()) > 0 {
		report, err := s.app.Indexer.Repair(ctx, index, "")
		if errors.Is(err, indexer.ErrRunInProgress) {
			return nil, newMCPError(ErrorCodeIndexingInProgress, "ingestion already in progress", nil)
		}
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "repair failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		response["repaired"] = report.Count(indexer.OutcomeIndexed)
		response["still_unindexed"] = report.Count(indexer.OutcomeUnindexed)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.app.Store.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}
	collections, err := s.app.Vectors.Collections(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list collections", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"metadata":    status,
		"collections": collections,
		"embedding": map[string]interface{}{
			"provider":  s.app.Embedder.Provider(),
			"model":     s.app.Embedder.Model(),
			"dimension": s.app.Embedder.Dimension(),
		},
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// expandPath validates an input path and returns the documents it names:
// the file itself, or every supported file below a directory
func expandPath(path string) ([]string, error) {
	if !filepath.IsAbs(path) {
		return nil, ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrPathNotFound
	}
	if err != nil {
		return nil, ErrPathNotReadable
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	files, err := indexer.DiscoverFiles(path)
	if err != nil {
		return nil, ErrPathNotReadable
	}
	if len(files) == 0 {
		return nil, ErrNoDocuments
	}
	return files, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice accepts a JSON array of strings or a comma-separated string
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return val
	case string:
		var out []string
		for _, part := range strings.Split(val, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return nil
}

// Validation errors
var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNoDocuments     = errors.New("directory does not contain supported documents")
)
