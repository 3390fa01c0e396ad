package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/docsearch/internal/searcher"
)

func indexProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Vector index name (defaults to the configured index)",
	}
}

func ingestDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_documents",
		Description: "Extract metadata from .txt, .md and .pdf files, store it and index the documents for semantic search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"paths": map[string]interface{}{
					"type":        "array",
					"description": "Absolute file or directory paths; directories are walked recursively",
					"items":       map[string]interface{}{"type": "string"},
					"minItems":    1,
				},
				"index": indexProperty(),
				"access_level": map[string]interface{}{
					"type":        "string",
					"description": "Access level recorded for every ingested document",
					"enum":        []string{"public", "restricted", "confidential"},
					"default":     "public",
				},
				"auth_code": map[string]interface{}{
					"type":        "string",
					"description": "Optional authorization code recorded with the documents",
				},
			},
			Required: []string{"paths"},
		},
	}
}

func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over ingested documents, optionally restricted to one document type",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"type_filter": map[string]interface{}{
					"type":        "string",
					"description": "Keep only this document type (txt, md or pdf; case and leading dot ignored)",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Nearest neighbours to consider before filtering",
					"default":     searcher.DefaultK,
					"minimum":     1,
					"maximum":     1000,
				},
				"index": indexProperty(),
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "Serve repeated queries from the query cache. Entries expire after a minute, and ingestion by another process does not clear them.",
					"default":     false,
				},
			},
			Required: []string{"query"},
		},
	}
}

func getDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_document",
		Description: "Return the stored metadata of one document",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Document filename, e.g. report.pdf",
				},
			},
			Required: []string{"filename"},
		},
	}
}

func searchByTagsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_by_tags",
		Description: "List documents whose tags contain any of the given tags",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Tags to match; a document matches when its tags contain at least one",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"tags"},
		},
	}
}

func reconcileIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reconcile_index",
		Description: "Compare stored documents with the vector index and optionally re-index what is missing",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"index": indexProperty(),
				"repair": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-embed records that lack a vector",
					"default":     false,
				},
			},
		},
	}
}

func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report document counts, index status and vector collections",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
