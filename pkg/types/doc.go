// Package types provides shared type definitions for docsearch.
//
// DocumentMetadata is the relational record for an ingested document, keyed by
// filename. Its DocumentType and AccessLevel fields are closed sets checked by
// Validate before any write:
//
//	meta := &types.DocumentMetadata{
//	    Filename:     "notes.txt",
//	    DocumentType: types.TypeText,
//	    AccessLevel:  types.AccessPublic,
//	    CreatedAt:    created,
//	    ModifiedAt:   modified,
//	}
//	if err := meta.Validate(); err != nil {
//	    // errors.Is(err, types.ErrConstraintViolation)
//	}
//
// EnrichedResult is what the hybrid search coordinator returns: a vector hit
// (filename, raw distance, snippet) joined with the stored document type.
//
// Type filters are compared with NormalizeType, so "PDF", ".pdf" and "pdf"
// select the same documents.
package types
