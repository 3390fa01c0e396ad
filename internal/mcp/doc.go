// Package mcp serves the document search over the Model Context Protocol.
//
// The server speaks MCP on stdio, so all logging goes to stderr. It
// exposes these tools:
//
//   - ingest_documents: extract, store and index files or directories
//   - search_documents: semantic search with an optional type filter
//   - get_document: stored metadata for one filename
//   - search_by_tags: documents whose tags contain any given tag
//   - reconcile_index: compare both stores and optionally repair
//   - get_status: document counts and vector collections
//
// Tool responses are indented JSON text. Failures are returned as MCPError
// values carrying a JSON-RPC error code:
//
//	-32602  invalid parameters
//	-32603  internal error
//	-32001  document not found
//	-32002  ingestion already in progress
//	-32003  index built with a different embedding model
//	-32004  empty query
//
// A search against an index that does not exist yet succeeds with no
// results and "index_missing": true.
package mcp
